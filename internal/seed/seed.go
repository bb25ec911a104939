package seed

import (
	"errors"
	"fmt"

	"yatube/internal/middleware"
	"yatube/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Options configures the seeder.
type Options struct {
	NumUsers int
	NumPosts int
	// UngroupedRatio is the share of posts filed under no group, 0..1.
	UngroupedRatio float64
	MaxDays        int
	BatchSize      int
	// FastHash hashes passwords at the minimum bcrypt cost.
	FastHash bool
	RandSeed int64
}

// Result reports what a seeding run created.
type Result struct {
	Users  []*models.User
	Groups []*models.Group
	Posts  int
}

// Seeder fills a database with users, groups and posts.
type Seeder struct {
	db      *gorm.DB
	opts    Options
	factory *Factory
}

// NewSeeder creates a Seeder bound to db.
func NewSeeder(db *gorm.DB, opts Options) *Seeder {
	return &Seeder{db: db, opts: opts, factory: NewFactory(db, opts)}
}

// Factory exposes the entity factory used by the seeder.
func (s *Seeder) Factory() *Factory {
	return s.factory
}

// ClearAll deletes every post, group and user.
func (s *Seeder) ClearAll() error {
	tx := s.db.Session(&gorm.Session{AllowGlobalUpdate: true})
	for _, model := range []any{&models.Post{}, &models.Group{}, &models.User{}} {
		if err := tx.Delete(model).Error; err != nil {
			return fmt.Errorf("clear %T: %w", model, err)
		}
	}
	middleware.Logger.Info("seed: database cleared")
	return nil
}

// Groups upserts fixtures by slug and returns the stored groups.
func (s *Seeder) Groups(fixtures []GroupFixture) ([]*models.Group, error) {
	out := make([]*models.Group, 0, len(fixtures))
	for _, item := range fixtures {
		group := &models.Group{Title: item.Title, Slug: item.Slug, Description: item.Description}
		err := s.db.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "slug"}},
			DoUpdates: clause.AssignmentColumns([]string{"title", "description", "updated_at"}),
		}).Create(group).Error
		if err != nil {
			return nil, fmt.Errorf("seed group %s: %w", item.Slug, err)
		}
		if group.ID == 0 {
			if err := s.db.Where("slug = ?", item.Slug).First(group).Error; err != nil {
				return nil, fmt.Errorf("reload group %s: %w", item.Slug, err)
			}
		}
		out = append(out, group)
	}
	return out, nil
}

// Users creates n users with DefaultPassword.
func (s *Seeder) Users(n int) ([]*models.User, error) {
	users := make([]*models.User, 0, n)
	for i := 0; i < n; i++ {
		u, err := s.factory.CreateUser()
		if err != nil {
			return nil, fmt.Errorf("create user %d: %w", i, err)
		}
		users = append(users, u)
	}
	return users, nil
}

// Posts creates n posts spread over the given authors and groups.
func (s *Seeder) Posts(authors []*models.User, groups []*models.Group, n int) (int, error) {
	if n <= 0 {
		return 0, nil
	}
	if len(authors) == 0 {
		return 0, errors.New("seed posts: no authors")
	}

	faker := s.factory.faker
	posts := make([]*models.Post, 0, n)
	for i := 0; i < n; i++ {
		author := authors[faker.Number(0, len(authors)-1)]
		var group *models.Group
		if len(groups) > 0 && faker.Float64Range(0, 1) >= s.opts.UngroupedRatio {
			group = groups[faker.Number(0, len(groups)-1)]
		}
		posts = append(posts, s.factory.BuildPost(author, group))
	}

	if err := s.factory.CreatePostsBatch(posts); err != nil {
		return 0, fmt.Errorf("create posts: %w", err)
	}
	return len(posts), nil
}

// Run seeds the built-in groups, NumUsers users and NumPosts posts.
func (s *Seeder) Run() (*Result, error) {
	fixtures, err := BuiltInGroups()
	if err != nil {
		return nil, err
	}
	groups, err := s.Groups(fixtures)
	if err != nil {
		return nil, err
	}
	middleware.Logger.Info("seed: groups ready", "count", len(groups))

	users, err := s.Users(s.opts.NumUsers)
	if err != nil {
		return nil, err
	}
	middleware.Logger.Info("seed: users created", "count", len(users))

	n, err := s.Posts(users, groups, s.opts.NumPosts)
	if err != nil {
		return nil, err
	}
	middleware.Logger.Info("seed: posts created", "count", n)

	return &Result{Users: users, Groups: groups, Posts: n}, nil
}
