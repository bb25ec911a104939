// Package service holds the application's business rules on top of the repositories.
package service

import (
	"context"

	"yatube/internal/middleware"
	"yatube/internal/models"
	"yatube/internal/observability"
	"yatube/internal/pagination"
	"yatube/internal/repository"

	"go.opentelemetry.io/otel/attribute"
)

type PostService struct {
	postRepo  repository.PostRepository
	groupRepo repository.GroupRepository
	userRepo  repository.UserRepository
	validator *PostFormValidator
	images    *ImageService
	paginator pagination.Paginator
}

type CreatePostInput struct {
	ActorID uint
	Form    PostForm
}

type EditPostInput struct {
	ActorID uint
	PostID  uint
	Form    PostForm
}

// PostPage is one page of a post listing.
type PostPage = pagination.Page[models.Post]

// GroupPostsPage is a page of a group's posts with the group itself.
type GroupPostsPage struct {
	Group *models.Group   `json:"group"`
	Items []models.Post   `json:"items"`
	Meta  pagination.Meta `json:"page"`
}

// ProfilePage is a page of an author's posts with the author and their post count.
type ProfilePage struct {
	Author    *models.User    `json:"author"`
	PostCount int             `json:"post_count"`
	Items     []models.Post   `json:"items"`
	Meta      pagination.Meta `json:"page"`
}

// PostDetail is a single post with its author's post count.
type PostDetail struct {
	Post            *models.Post `json:"post"`
	AuthorPostCount int          `json:"author_post_count"`
}

// PostFormContext is what a client needs to render the create or edit form.
type PostFormContext struct {
	IsEdit bool           `json:"is_edit"`
	Fields []FormField    `json:"fields"`
	Groups []models.Group `json:"groups"`
	Post   *models.Post   `json:"post,omitempty"`
}

// NewPostService wires the post rules. images may be nil to reject uploads.
func NewPostService(
	postRepo repository.PostRepository,
	groupRepo repository.GroupRepository,
	userRepo repository.UserRepository,
	images *ImageService,
	paginator pagination.Paginator,
) *PostService {
	return &PostService{
		postRepo:  postRepo,
		groupRepo: groupRepo,
		userRepo:  userRepo,
		validator: NewPostFormValidator(groupRepo, images),
		images:    images,
		paginator: paginator,
	}
}

// ListPosts returns the requested page of all posts, newest first.
func (s *PostService) ListPosts(ctx context.Context, rawPage string) (*PostPage, error) {
	page, err := s.page(ctx, repository.PostFilter{}, rawPage)
	if err != nil {
		return nil, err
	}
	return &page, nil
}

// ListGroupPosts returns the requested page of the posts filed under slug.
func (s *PostService) ListGroupPosts(ctx context.Context, slug, rawPage string) (*GroupPostsPage, error) {
	group, err := s.groupRepo.GetBySlug(ctx, slug)
	if err != nil {
		return nil, err
	}
	page, err := s.page(ctx, repository.PostFilter{GroupID: &group.ID}, rawPage)
	if err != nil {
		return nil, err
	}
	return &GroupPostsPage{Group: group, Items: page.Items, Meta: page.Meta}, nil
}

// ListProfilePosts returns the requested page of the posts written by username.
func (s *PostService) ListProfilePosts(ctx context.Context, username, rawPage string) (*ProfilePage, error) {
	author, err := s.userRepo.GetByUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	page, err := s.page(ctx, repository.PostFilter{AuthorID: &author.ID}, rawPage)
	if err != nil {
		return nil, err
	}
	return &ProfilePage{Author: author, PostCount: page.Meta.TotalItems, Items: page.Items, Meta: page.Meta}, nil
}

func (s *PostService) GetPost(ctx context.Context, id uint) (*PostDetail, error) {
	post, err := s.postRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	count, err := s.postRepo.Count(ctx, repository.PostFilter{AuthorID: &post.AuthorID})
	if err != nil {
		return nil, err
	}
	return &PostDetail{Post: post, AuthorPostCount: count}, nil
}

// GetEditablePost returns the post only when actorID may edit it.
func (s *PostService) GetEditablePost(ctx context.Context, actorID, postID uint) (*models.Post, error) {
	post, err := s.postRepo.GetByID(ctx, postID)
	if err != nil {
		return nil, err
	}
	if !models.CanEdit(&models.User{ID: actorID}, post) {
		return nil, models.NewForbiddenError("Only the author can edit this post")
	}
	return post, nil
}

// FormContext describes the post form; post is nil for the create form.
func (s *PostService) FormContext(ctx context.Context, post *models.Post) (*PostFormContext, error) {
	groups, err := s.groupRepo.List(ctx)
	if err != nil {
		return nil, err
	}
	return &PostFormContext{
		IsEdit: post != nil,
		Fields: PostFormFields,
		Groups: groups,
		Post:   post,
	}, nil
}

// CreatePost validates the form and stores a post written by the actor.
func (s *PostService) CreatePost(ctx context.Context, in CreatePostInput) (post *models.Post, err error) {
	ctx, end := observability.StartSpan(ctx, "PostService.CreatePost",
		attribute.Int64("actor.id", int64(in.ActorID)))
	defer func() {
		end(err)
		recordPostWrite("create", err)
	}()

	if in.ActorID == 0 {
		return nil, models.NewUnauthorizedError("Authentication required")
	}

	clean, err := s.validator.Validate(ctx, in.Form)
	if err != nil {
		return nil, err
	}

	post = &models.Post{
		Text:     clean.Text,
		AuthorID: in.ActorID,
		GroupID:  clean.GroupID,
	}

	stored, err := s.storeImage(ctx, clean.Image)
	if err != nil {
		return nil, err
	}
	if stored != nil {
		post.Image = &stored.JPEG
	}

	if err := s.postRepo.Create(ctx, post); err != nil {
		if stored != nil {
			s.images.Remove(ctx, stored.JPEG)
		}
		return nil, err
	}
	return post, nil
}

// EditPost rewrites text, group and optionally image of a post the actor wrote.
// The author and id never change. Without a new upload the current image stays.
func (s *PostService) EditPost(ctx context.Context, in EditPostInput) (post *models.Post, err error) {
	ctx, end := observability.StartSpan(ctx, "PostService.EditPost",
		attribute.Int64("actor.id", int64(in.ActorID)),
		attribute.Int64("post.id", int64(in.PostID)))
	defer func() {
		end(err)
		recordPostWrite("edit", err)
	}()

	post, err = s.GetEditablePost(ctx, in.ActorID, in.PostID)
	if err != nil {
		return nil, err
	}

	clean, err := s.validator.Validate(ctx, in.Form)
	if err != nil {
		return nil, err
	}

	stored, err := s.storeImage(ctx, clean.Image)
	if err != nil {
		return nil, err
	}

	var previousImage string
	if post.Image != nil {
		previousImage = *post.Image
	}

	updated := &models.Post{
		ID:       post.ID,
		AuthorID: post.AuthorID,
		Text:     clean.Text,
		GroupID:  clean.GroupID,
		Image:    post.Image,
	}
	if stored != nil {
		updated.Image = &stored.JPEG
	}

	if err := s.postRepo.Update(ctx, updated); err != nil {
		if stored != nil {
			s.images.Remove(ctx, stored.JPEG)
		}
		return nil, err
	}
	if stored != nil && previousImage != "" {
		s.images.Remove(ctx, previousImage)
	}
	return updated, nil
}

func (s *PostService) storeImage(ctx context.Context, img *PreparedImage) (*StoredImage, error) {
	if img == nil || s.images == nil {
		return nil, nil
	}
	stored, err := s.images.Store(ctx, img)
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return stored, nil
}

func (s *PostService) page(ctx context.Context, filter repository.PostFilter, rawPage string) (PostPage, error) {
	return s.postRepo.ListPage(ctx, filter, s.paginator, rawPage)
}

func recordPostWrite(operation string, err error) {
	outcome := "ok"
	if err != nil {
		outcome = models.ErrorCode(err)
		if outcome == "" {
			outcome = models.CodeInternal
		}
	}
	middleware.PostWrites.WithLabelValues(operation, outcome).Inc()
}
