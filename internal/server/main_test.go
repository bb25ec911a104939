package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"yatube/internal/config"
	"yatube/internal/database"
	"yatube/internal/models"
	"yatube/internal/service"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

const testSecret = "server-test-secret-that-is-long-enough"

type testEnv struct {
	t   *testing.T
	cfg *config.Config
	db  *gorm.DB
	srv *Server
	app *fiber.App
}

func newTestEnv(t *testing.T) *testEnv {
	return newTestEnvWithRedis(t, nil)
}

func newTestEnvWithRedis(t *testing.T, rdb *redis.Client) *testEnv {
	t.Helper()
	db, err := database.OpenMemory()
	require.NoError(t, err)

	cfg := &config.Config{
		Port:                 "0",
		JWTSecret:            testSecret,
		PostsPerPage:         10,
		MediaDir:             t.TempDir(),
		ImageMaxUploadSizeMB: 2,
		AllowedOrigins:       "http://localhost:8000",
	}
	srv, err := NewServerWithDeps(cfg, db, rdb)
	require.NoError(t, err)

	env := &testEnv{t: t, cfg: cfg, db: db, srv: srv, app: srv.NewApp()}
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return env
}

// signup registers a user and returns it with a bearer token.
func (e *testEnv) signup(username string, admin bool) (*models.User, string) {
	e.t.Helper()
	res, err := e.srv.authService.Signup(context.Background(), service.Credentials{
		Username: username,
		Password: "warandpeace1869",
	})
	require.NoError(e.t, err)
	if admin {
		require.NoError(e.t, e.db.Model(res.User).Update("is_admin", true).Error)
	}
	return res.User, res.Token
}

func (e *testEnv) group(slug string) *models.Group {
	e.t.Helper()
	g := &models.Group{Title: "Group " + slug, Slug: slug, Description: "about " + slug}
	require.NoError(e.t, e.db.Create(g).Error)
	return g
}

// posts inserts n posts one minute apart, the last one newest.
func (e *testEnv) posts(author *models.User, group *models.Group, n int) []models.Post {
	e.t.Helper()
	base := time.Date(2024, 3, 9, 12, 0, 0, 0, time.UTC)
	out := make([]models.Post, 0, n)
	for i := 0; i < n; i++ {
		p := models.Post{
			Text:      fmt.Sprintf("post %d", i),
			AuthorID:  author.ID,
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
		}
		if group != nil {
			p.GroupID = &group.ID
		}
		require.NoError(e.t, e.db.Create(&p).Error)
		out = append(out, p)
	}
	return out
}

func (e *testEnv) countPosts() int64 {
	e.t.Helper()
	var n int64
	require.NoError(e.t, e.db.Model(&models.Post{}).Count(&n).Error)
	return n
}

func (e *testEnv) reloadPost(id uint) models.Post {
	e.t.Helper()
	var p models.Post
	require.NoError(e.t, e.db.First(&p, id).Error)
	return p
}

func (e *testEnv) do(req *http.Request) *http.Response {
	e.t.Helper()
	resp, err := e.app.Test(req, -1)
	require.NoError(e.t, err)
	e.t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func get(path, token string) *http.Request {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return req
}

func postForm(path, token string, values url.Values) *http.Request {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(values.Encode()))
	req.Header.Set("Content-Type", fiber.MIMEApplicationForm)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return req
}

func postJSON(path, token string, body any) *http.Request {
	b, _ := json.Marshal(body)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(b))
	req.Header.Set("Content-Type", fiber.MIMEApplicationJSON)
	req.Header.Set("Accept", fiber.MIMEApplicationJSON)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return req
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var v T
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(body, &v), "body: %s", body)
	return v
}

type pageBody struct {
	Items []models.Post `json:"items"`
	Page  struct {
		Number     int  `json:"number"`
		NumPages   int  `json:"num_pages"`
		TotalItems int  `json:"total_items"`
		HasNext    bool `json:"has_next"`
	} `json:"page"`
}
