package middleware

import (
	"context"
	"net/http/httptest"
	"testing"

	"yatube/internal/observability"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func newTracedApp(t *testing.T) (*fiber.App, *tracetest.SpanRecorder) {
	t.Helper()
	rec := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(rec))
	prev := observability.Tracer
	observability.Tracer = tp.Tracer("test")
	t.Cleanup(func() {
		observability.Tracer = prev
		_ = tp.Shutdown(context.Background())
	})

	app := fiber.New()
	app.Use(TracingMiddleware())
	app.Get("/", func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusOK)
	})
	app.Get("/posts/:id/", func(c *fiber.Ctx) error {
		WithUserID(c, 3)
		return c.SendStatus(fiber.StatusTeapot)
	})
	app.Post("/posts/:id/edit/", func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusInternalServerError)
	})
	return app, rec
}

func TestTracingMiddleware_NamesSpanByRoute(t *testing.T) {
	app, rec := newTracedApp(t)

	resp, err := app.Test(httptest.NewRequest("GET", "/posts/7/", nil))
	require.NoError(t, err)
	assert.NotEmpty(t, resp.Header.Get("X-Trace-ID"))

	spans := rec.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, "GET /posts/:id/", spans[0].Name())
	assert.Contains(t, spans[0].Attributes(), attribute.String("http.route", "/posts/:id/"))
	assert.Contains(t, spans[0].Attributes(), attribute.Int("http.status_code", fiber.StatusTeapot))
	assert.Contains(t, spans[0].Attributes(), attribute.String("yatube.actor_id", "3"))
	assert.Equal(t, spans[0].SpanContext().TraceID().String(), resp.Header.Get("X-Trace-ID"))
}

func TestTracingMiddleware_FeedPage(t *testing.T) {
	app, rec := newTracedApp(t)

	_, err := app.Test(httptest.NewRequest("GET", "/?page=2", nil))
	require.NoError(t, err)

	spans := rec.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, "GET /", spans[0].Name())
	assert.Contains(t, spans[0].Attributes(), attribute.String("yatube.page", "2"))
}

func TestTracingMiddleware_ServerErrorAndUnknownRoute(t *testing.T) {
	app, rec := newTracedApp(t)

	_, err := app.Test(httptest.NewRequest("POST", "/posts/1/edit/", nil))
	require.NoError(t, err)
	_, err = app.Test(httptest.NewRequest("GET", "/unexisting_page/", nil))
	require.NoError(t, err)

	spans := rec.Ended()
	require.Len(t, spans, 2)
	assert.Equal(t, codes.Error, spans[0].Status().Code)
	assert.Equal(t, "GET /unexisting_page/", spans[1].Name())
}
