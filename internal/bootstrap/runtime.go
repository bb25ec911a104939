// Package bootstrap wires the process-wide runtime: database, Redis and
// development fixtures.
package bootstrap

import (
	"errors"
	"fmt"
	"strings"

	"yatube/internal/cache"
	"yatube/internal/config"
	"yatube/internal/database"
	"yatube/internal/middleware"
	"yatube/internal/models"
	"yatube/internal/seed"
	"yatube/internal/validation"

	"github.com/redis/go-redis/v9"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// InitRuntime connects to the database and Redis, then applies the
// development bootstrap. The Redis client is nil when Redis is unreachable.
func InitRuntime(cfg *config.Config) (*gorm.DB, *redis.Client, error) {
	db, err := database.Connect(cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("database connection failed: %w", err)
	}

	cache.InitRedis(cfg.RedisURL)
	r := cache.GetClient()

	if err := Prepare(cfg, db); err != nil {
		return nil, nil, err
	}
	return db, r, nil
}

// Prepare creates the development admin and built-in groups when enabled.
// It does nothing in production.
func Prepare(cfg *config.Config, db *gorm.DB) error {
	if cfg == nil || db == nil || cfg.IsProduction() {
		return nil
	}

	if err := ensureDevAdmin(cfg, db); err != nil {
		return fmt.Errorf("failed to bootstrap development admin: %w", err)
	}

	if cfg.SeedBuiltInGroups {
		fixtures, err := seed.BuiltInGroups()
		if err != nil {
			return err
		}
		groups, err := seed.NewSeeder(db, seed.Options{}).Groups(fixtures)
		if err != nil {
			return fmt.Errorf("failed to seed built-in groups: %w", err)
		}
		middleware.Logger.Info("built-in groups ensured", "count", len(groups))
	}
	return nil
}

func ensureDevAdmin(cfg *config.Config, db *gorm.DB) error {
	username := strings.TrimSpace(cfg.DevAdminUsername)
	if username == "" {
		return nil
	}
	if err := validation.ValidateUsername(username); err != nil {
		return fmt.Errorf("DEV_ADMIN_USERNAME: %w", err)
	}
	if cfg.DevAdminPassword == "" {
		return errors.New("DEV_ADMIN_PASSWORD must be set when DEV_ADMIN_USERNAME is set")
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(cfg.DevAdminPassword), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash admin password: %w", err)
	}

	return db.Transaction(func(tx *gorm.DB) error {
		var admin models.User
		err := tx.Where("username = ?", username).First(&admin).Error
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			admin = models.User{Username: username, Password: string(hashed), IsAdmin: true}
			if err := tx.Create(&admin).Error; err != nil {
				return err
			}
		case err != nil:
			return err
		default:
			if err := tx.Model(&admin).Updates(map[string]any{
				"is_admin": true,
				"password": string(hashed),
			}).Error; err != nil {
				return err
			}
		}
		middleware.Logger.Info("development admin ensured", "user_id", admin.ID, "username", username)
		return nil
	})
}
