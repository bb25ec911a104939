package server

import (
	"net/http"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHealthChecks(t *testing.T) {
	env := newTestEnv(t)

	resp := env.do(get("/health/live", ""))
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	resp = env.do(get("/health/ready", ""))
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	body := decode[struct {
		Status string            `json:"status"`
		Checks map[string]string `json:"checks"`
	}](t, resp)
	assert.Equal(t, "healthy", body.Status)
	assert.Equal(t, "healthy", body.Checks["database"])
	assert.Equal(t, "unavailable", body.Checks["redis"])
}

func TestReadiness_DatabaseDown(t *testing.T) {
	env := newTestEnv(t)
	sqlDB, err := env.db.DB()
	require.NoError(t, err)
	require.NoError(t, sqlDB.Close())

	resp := env.do(get("/health/ready", ""))
	assert.Equal(t, fiber.StatusServiceUnavailable, resp.StatusCode)
}

func TestMiddlewareHeaders(t *testing.T) {
	env := newTestEnv(t)

	resp := env.do(get("/", ""))
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.NotEmpty(t, resp.Header.Get(fiber.HeaderXRequestID))
	assert.Equal(t, "nosniff", resp.Header.Get(fiber.HeaderXContentTypeOptions))
}

func TestCORS(t *testing.T) {
	env := newTestEnv(t)

	req := get("/", "")
	req.Method = http.MethodOptions
	req.Header.Set(fiber.HeaderOrigin, "http://localhost:8000")
	req.Header.Set(fiber.HeaderAccessControlRequestMethod, http.MethodGet)

	resp := env.do(req)
	assert.Equal(t, "http://localhost:8000", resp.Header.Get(fiber.HeaderAccessControlAllowOrigin))
}

func TestLoginURL(t *testing.T) {
	tests := []struct {
		next string
		want string
	}{
		{next: "/create/", want: "/auth/login/?next=/create/"},
		{next: "/posts/7/edit/", want: "/auth/login/?next=/posts/7/edit/"},
		{next: "/a?b=1&c=2", want: "/auth/login/?next=/a%3Fb=1%26c=2"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, loginURL(tt.next))
	}
}

func TestSafeRedirect(t *testing.T) {
	assert.True(t, safeRedirect("/create/"))
	assert.False(t, safeRedirect("//evil.example"))
	assert.False(t, safeRedirect("https://evil.example"))
	assert.False(t, safeRedirect("/\\evil"))
}
