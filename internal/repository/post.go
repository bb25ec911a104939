package repository

import (
	"context"
	"database/sql"
	"time"

	"yatube/internal/cache"
	"yatube/internal/models"
	"yatube/internal/pagination"

	"gorm.io/gorm"
)

// PostFilter narrows a post listing. Nil fields do not filter.
type PostFilter struct {
	GroupID  *uint
	AuthorID *uint
}

// PostRepository defines the interface for post data operations.
// Listings are ordered newest first; ties break on id so windows are stable.
type PostRepository interface {
	Create(ctx context.Context, post *models.Post) error
	GetByID(ctx context.Context, id uint) (*models.Post, error)
	Update(ctx context.Context, post *models.Post) error
	Count(ctx context.Context, filter PostFilter) (int, error)
	List(ctx context.Context, filter PostFilter, limit, offset int) ([]models.Post, error)
	// ListPage counts and fetches one page from the same read snapshot, so the
	// page metadata always agrees with the items.
	ListPage(ctx context.Context, filter PostFilter, paginator pagination.Paginator, rawPage string) (pagination.Page[models.Post], error)
}

type postRepository struct {
	db *gorm.DB
}

// NewPostRepository creates a new post repository
func NewPostRepository(db *gorm.DB) PostRepository {
	return &postRepository{db: db}
}

func (r *postRepository) Create(ctx context.Context, post *models.Post) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit("Author", "Group").Create(post).Error; err != nil {
			return err
		}
		return tx.Preload("Author").Preload("Group").First(post, post.ID).Error
	})
	return translate(err, "Post", post.ID)
}

func (r *postRepository) GetByID(ctx context.Context, id uint) (*models.Post, error) {
	var post models.Post
	err := cache.Aside(ctx, cache.PostKey(id), &post, cache.PostTTL, func() error {
		err := r.db.WithContext(ctx).
			Preload("Author").
			Preload("Group").
			First(&post, id).Error
		return translate(err, "Post", id)
	})
	if err != nil {
		return nil, err
	}
	return &post, nil
}

// Update rewrites the mutable columns of post. ID, author and creation time are left alone.
func (r *postRepository) Update(ctx context.Context, post *models.Post) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.Post{ID: post.ID}).
			Select("text", "group_id", "image", "updated_at").
			Updates(map[string]interface{}{
				"text":       post.Text,
				"group_id":   post.GroupID,
				"image":      post.Image,
				"updated_at": time.Now(),
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return tx.Preload("Author").Preload("Group").First(post, post.ID).Error
	})
	if err != nil {
		return translate(err, "Post", post.ID)
	}
	cache.InvalidatePost(ctx, post.ID)
	return nil
}

func (r *postRepository) Count(ctx context.Context, filter PostFilter) (int, error) {
	n, err := r.count(r.db.WithContext(ctx), filter)
	if err != nil {
		return 0, models.NewInternalError(err)
	}
	return n, nil
}

func (r *postRepository) List(ctx context.Context, filter PostFilter, limit, offset int) ([]models.Post, error) {
	posts, err := r.list(r.db.WithContext(ctx), filter, limit, offset)
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return posts, nil
}

func (r *postRepository) ListPage(ctx context.Context, filter PostFilter, paginator pagination.Paginator, rawPage string) (pagination.Page[models.Post], error) {
	var page pagination.Page[models.Post]
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		total, err := r.count(tx, filter)
		if err != nil {
			return err
		}
		window := paginator.Resolve(total, rawPage)
		posts, err := r.list(tx, filter, window.Limit, window.Offset)
		if err != nil {
			return err
		}
		page = pagination.NewPage(posts, window)
		return nil
	}, snapshotTxOptions(r.db))
	if err != nil {
		return pagination.Page[models.Post]{}, models.NewInternalError(err)
	}
	return page, nil
}

// snapshotTxOptions asks postgres for one snapshot across statements. SQLite
// transactions are already serializable and its driver takes no options.
func snapshotTxOptions(db *gorm.DB) *sql.TxOptions {
	if db.Dialector.Name() != "postgres" {
		return nil
	}
	return &sql.TxOptions{Isolation: sql.LevelRepeatableRead, ReadOnly: true}
}

func (r *postRepository) count(db *gorm.DB, filter PostFilter) (int, error) {
	var count int64
	if err := r.scope(db.Model(&models.Post{}), filter).Count(&count).Error; err != nil {
		return 0, err
	}
	return int(count), nil
}

func (r *postRepository) list(db *gorm.DB, filter PostFilter, limit, offset int) ([]models.Post, error) {
	if limit <= 0 {
		return []models.Post{}, nil
	}
	posts := make([]models.Post, 0, limit)
	err := r.scope(db, filter).
		Preload("Author").
		Preload("Group").
		Order("created_at DESC, id DESC").
		Limit(limit).
		Offset(offset).
		Find(&posts).Error
	return posts, err
}

func (r *postRepository) scope(db *gorm.DB, filter PostFilter) *gorm.DB {
	if filter.GroupID != nil {
		db = db.Where("group_id = ?", *filter.GroupID)
	}
	if filter.AuthorID != nil {
		db = db.Where("author_id = ?", *filter.AuthorID)
	}
	return db
}
