package repository

import (
	"errors"

	"yatube/internal/models"

	"gorm.io/gorm"
)

// translate maps GORM errors onto application errors.
func translate(err error, resource string, id interface{}) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return models.NewNotFoundError(resource, id)
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return models.NewValidationError(resource + " already exists")
	case errors.Is(err, gorm.ErrForeignKeyViolated):
		return models.NewValidationError(resource + " references a missing record")
	default:
		return models.NewInternalError(err)
	}
}
