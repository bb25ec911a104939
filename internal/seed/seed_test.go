package seed

import (
	"testing"
	"time"

	"yatube/internal/database"
	"yatube/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := database.OpenMemory()
	require.NoError(t, err)
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return db
}

func testOptions() Options {
	return Options{NumUsers: 3, NumPosts: 25, UngroupedRatio: 0.2, MaxDays: 10, BatchSize: 7, FastHash: true, RandSeed: 42}
}

func TestBuiltInGroups(t *testing.T) {
	groups, err := BuiltInGroups()
	require.NoError(t, err)
	require.NotEmpty(t, groups)
	for _, g := range groups {
		assert.NotEmpty(t, g.Title, g.Slug)
	}
}

func TestParseGroups_Rejects(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{name: "bad yaml", doc: "groups: [\n"},
		{name: "bad slug", doc: "groups:\n  - title: X\n    slug: Bad Slug\n"},
		{name: "reserved slug", doc: "groups:\n  - title: X\n    slug: admin\n"},
		{name: "blank title", doc: "groups:\n  - title: ''\n    slug: cats\n"},
		{name: "duplicate", doc: "groups:\n  - title: A\n    slug: cats\n  - title: B\n    slug: cats\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseGroups([]byte(tt.doc))
			assert.Error(t, err)
		})
	}
}

func TestSeeder_Run(t *testing.T) {
	db := newTestDB(t)
	s := NewSeeder(db, testOptions())

	res, err := s.Run()
	require.NoError(t, err)

	fixtures, _ := BuiltInGroups()
	assert.Len(t, res.Groups, len(fixtures))
	assert.Len(t, res.Users, 3)
	assert.Equal(t, 25, res.Posts)

	var posts []models.Post
	require.NoError(t, db.Find(&posts).Error)
	require.Len(t, posts, 25)

	cutoff := time.Now().Add(-10*24*time.Hour - time.Minute)
	for _, p := range posts {
		assert.NotEmpty(t, p.Text)
		assert.True(t, p.CreatedAt.After(cutoff), "post %d is older than MaxDays", p.ID)
	}

	require.NoError(t, bcrypt.CompareHashAndPassword([]byte(res.Users[0].Password), []byte(DefaultPassword)))
}

func TestSeeder_GroupsIdempotent(t *testing.T) {
	db := newTestDB(t)
	s := NewSeeder(db, testOptions())
	fixtures := []GroupFixture{{Title: "Cats", Slug: "cats", Description: "meow"}}

	first, err := s.Groups(fixtures)
	require.NoError(t, err)

	fixtures[0].Title = "Cats and kittens"
	second, err := s.Groups(fixtures)
	require.NoError(t, err)

	assert.Equal(t, first[0].ID, second[0].ID)

	var stored models.Group
	require.NoError(t, db.Where("slug = ?", "cats").First(&stored).Error)
	assert.Equal(t, "Cats and kittens", stored.Title)

	var n int64
	require.NoError(t, db.Model(&models.Group{}).Count(&n).Error)
	assert.Equal(t, int64(1), n)
}

func TestSeeder_PostsWithoutGroups(t *testing.T) {
	db := newTestDB(t)
	opts := testOptions()
	s := NewSeeder(db, opts)

	users, err := s.Users(2)
	require.NoError(t, err)

	n, err := s.Posts(users, nil, 5)
	require.NoError(t, err)
	assert.Equal(t, 5, n)

	var grouped int64
	require.NoError(t, db.Model(&models.Post{}).Where("group_id IS NOT NULL").Count(&grouped).Error)
	assert.Zero(t, grouped)

	_, err = s.Posts(nil, nil, 1)
	assert.Error(t, err)
}

func TestSeeder_ClearAll(t *testing.T) {
	db := newTestDB(t)
	s := NewSeeder(db, testOptions())
	_, err := s.Run()
	require.NoError(t, err)

	require.NoError(t, s.ClearAll())

	for _, model := range []any{&models.Post{}, &models.Group{}, &models.User{}} {
		var n int64
		require.NoError(t, db.Model(model).Count(&n).Error)
		assert.Zero(t, n, "%T", model)
	}
}

func TestFactory_Overrides(t *testing.T) {
	db := newTestDB(t)
	f := NewFactory(db, testOptions())

	user, err := f.CreateUser(func(u *models.User) { u.Username = "leo" })
	require.NoError(t, err)
	assert.Equal(t, "leo", user.Username)

	post, err := f.CreatePost(user, nil, func(p *models.Post) { p.Text = "Война и мир" })
	require.NoError(t, err)
	assert.NotZero(t, post.ID)
	assert.Equal(t, user.ID, post.AuthorID)
	assert.Nil(t, post.GroupID)
}
