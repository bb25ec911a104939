package service

import (
	"context"
	"sort"

	"yatube/internal/models"
	"yatube/internal/pagination"
	"yatube/internal/repository"
)

// memPostRepo is an in-memory repository.PostRepository.
type memPostRepo struct {
	posts     []models.Post
	nextID    uint
	createErr error
	creates   int
	updates   int
}

func (r *memPostRepo) Create(_ context.Context, post *models.Post) error {
	r.creates++
	if r.createErr != nil {
		return r.createErr
	}
	r.nextID++
	post.ID = r.nextID
	r.posts = append(r.posts, *post)
	return nil
}

func (r *memPostRepo) GetByID(_ context.Context, id uint) (*models.Post, error) {
	for i := range r.posts {
		if r.posts[i].ID == id {
			p := r.posts[i]
			return &p, nil
		}
	}
	return nil, models.NewNotFoundError("Post", id)
}

func (r *memPostRepo) Update(_ context.Context, post *models.Post) error {
	r.updates++
	for i := range r.posts {
		if r.posts[i].ID == post.ID {
			r.posts[i].Text = post.Text
			r.posts[i].GroupID = post.GroupID
			r.posts[i].Image = post.Image
			return nil
		}
	}
	return models.NewNotFoundError("Post", post.ID)
}

func (r *memPostRepo) filtered(filter repository.PostFilter) []models.Post {
	out := make([]models.Post, 0, len(r.posts))
	for _, p := range r.posts {
		if filter.AuthorID != nil && p.AuthorID != *filter.AuthorID {
			continue
		}
		if filter.GroupID != nil && (p.GroupID == nil || *p.GroupID != *filter.GroupID) {
			continue
		}
		out = append(out, p)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out
}

func (r *memPostRepo) Count(_ context.Context, filter repository.PostFilter) (int, error) {
	return len(r.filtered(filter)), nil
}

func (r *memPostRepo) List(_ context.Context, filter repository.PostFilter, limit, offset int) ([]models.Post, error) {
	all := r.filtered(filter)
	if offset >= len(all) {
		return []models.Post{}, nil
	}
	end := min(offset+limit, len(all))
	return all[offset:end], nil
}

func (r *memPostRepo) ListPage(_ context.Context, filter repository.PostFilter, p pagination.Paginator, rawPage string) (pagination.Page[models.Post], error) {
	return pagination.Paginate(p, r.filtered(filter), rawPage), nil
}

// groupRepoStub is a stub for repository.GroupRepository.
type groupRepoStub struct {
	groups    []models.Group
	existsErr error
}

func (s *groupRepoStub) List(context.Context) ([]models.Group, error) {
	return s.groups, nil
}

func (s *groupRepoStub) GetBySlug(_ context.Context, slug string) (*models.Group, error) {
	for i := range s.groups {
		if s.groups[i].Slug == slug {
			return &s.groups[i], nil
		}
	}
	return nil, models.NewNotFoundError("Group", slug)
}

func (s *groupRepoStub) GetByID(_ context.Context, id uint) (*models.Group, error) {
	for i := range s.groups {
		if s.groups[i].ID == id {
			return &s.groups[i], nil
		}
	}
	return nil, models.NewNotFoundError("Group", id)
}

func (s *groupRepoStub) Exists(ctx context.Context, id uint) (bool, error) {
	if s.existsErr != nil {
		return false, s.existsErr
	}
	_, err := s.GetByID(ctx, id)
	return err == nil, nil
}

func (s *groupRepoStub) Create(_ context.Context, group *models.Group) error {
	group.ID = uint(len(s.groups) + 1)
	s.groups = append(s.groups, *group)
	return nil
}

// userRepoStub is a stub for repository.UserRepository.
type userRepoStub struct {
	users []models.User
}

func (s *userRepoStub) GetByID(_ context.Context, id uint) (*models.User, error) {
	for i := range s.users {
		if s.users[i].ID == id {
			return &s.users[i], nil
		}
	}
	return nil, models.NewNotFoundError("User", id)
}

func (s *userRepoStub) GetByUsername(_ context.Context, username string) (*models.User, error) {
	for i := range s.users {
		if s.users[i].Username == username {
			return &s.users[i], nil
		}
	}
	return nil, models.NewNotFoundError("User", username)
}

func (s *userRepoStub) Create(_ context.Context, user *models.User) error {
	user.ID = uint(len(s.users) + 1)
	s.users = append(s.users, *user)
	return nil
}
