package repository

import (
	"regexp"
	"testing"

	"yatube/internal/models"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGroupRepository_GetBySlug(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewGroupRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "groups" WHERE slug = $1 ORDER BY "groups"."id" LIMIT $2`)).
		WithArgs("cats", 1).
		WillReturnRows(sqlmock.NewRows([]string{"id", "title", "slug"}).AddRow(3, "Cats", "cats"))

	group, err := repo.GetBySlug(ctx(), "cats")
	require.NoError(t, err)
	assert.Equal(t, uint(3), group.ID)
	assert.Equal(t, "Group: cats", group.String())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGroupRepository_Integration(t *testing.T) {
	db := newTestDB(t)
	repo := NewGroupRepository(db)

	require.NoError(t, repo.Create(ctx(), &models.Group{Title: "Zebras", Slug: "zebras"}))
	require.NoError(t, repo.Create(ctx(), &models.Group{Title: "Cats", Slug: "cats"}))

	t.Run("list ordered by title", func(t *testing.T) {
		groups, err := repo.List(ctx())
		require.NoError(t, err)
		require.Len(t, groups, 2)
		assert.Equal(t, "cats", groups[0].Slug)
		assert.Equal(t, "zebras", groups[1].Slug)
	})

	t.Run("missing slug", func(t *testing.T) {
		_, err := repo.GetBySlug(ctx(), "dogs")
		assert.True(t, models.IsNotFound(err))
	})

	t.Run("exists", func(t *testing.T) {
		g, err := repo.GetBySlug(ctx(), "cats")
		require.NoError(t, err)

		ok, err := repo.Exists(ctx(), g.ID)
		require.NoError(t, err)
		assert.True(t, ok)

		ok, err = repo.Exists(ctx(), 999)
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("duplicate slug", func(t *testing.T) {
		err := repo.Create(ctx(), &models.Group{Title: "Other cats", Slug: "cats"})
		assert.Equal(t, models.CodeValidation, models.ErrorCode(err))
	})
}
