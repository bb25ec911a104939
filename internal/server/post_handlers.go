package server

import (
	"bytes"
	"encoding/json"
	"io"
	"net/url"

	"yatube/internal/models"
	"yatube/internal/service"

	"github.com/gofiber/fiber/v2"
)

// Index handles GET /
func (s *Server) Index(c *fiber.Ctx) error {
	page, err := s.postService.ListPosts(c.UserContext(), c.Query("page"))
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(page)
}

// GroupPosts handles GET /group/:slug/
func (s *Server) GroupPosts(c *fiber.Ctx) error {
	page, err := s.postService.ListGroupPosts(c.UserContext(), pathParam(c, "slug"), c.Query("page"))
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(page)
}

// Profile handles GET /profile/:username/
func (s *Server) Profile(c *fiber.Ctx) error {
	page, err := s.postService.ListProfilePosts(c.UserContext(), pathParam(c, "username"), c.Query("page"))
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(page)
}

// PostDetail handles GET /posts/:id/
func (s *Server) PostDetail(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	detail, err := s.postService.GetPost(c.UserContext(), id)
	if err != nil {
		return respondServiceError(c, err)
	}

	canEdit := false
	if userID, ok := s.optionalUserID(c); ok {
		canEdit = models.CanEdit(&models.User{ID: userID}, detail.Post)
	}

	return c.JSON(fiber.Map{
		"post":              detail.Post,
		"author_post_count": detail.AuthorPostCount,
		"can_edit":          canEdit,
	})
}

// CreatePostForm handles GET /create/
func (s *Server) CreatePostForm(c *fiber.Ctx) error {
	form, err := s.postService.FormContext(c.UserContext(), nil)
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(form)
}

// CreatePost handles POST /create/. Browsers are sent to the author's profile.
func (s *Server) CreatePost(c *fiber.Ctx) error {
	form, err := s.parsePostForm(c)
	if err != nil {
		return respondServiceError(c, err)
	}

	post, err := s.postService.CreatePost(c.UserContext(), service.CreatePostInput{
		ActorID: actorID(c),
		Form:    form,
	})
	if err != nil {
		return respondServiceError(c, err)
	}

	if wantsJSON(c) {
		c.Location(postPath(post.ID))
		return c.Status(fiber.StatusCreated).JSON(post)
	}
	return c.Redirect(profilePath(post.Author.Username), fiber.StatusFound)
}

// EditPostForm handles GET /posts/:id/edit/
func (s *Server) EditPostForm(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	post, err := s.postService.GetEditablePost(c.UserContext(), actorID(c), id)
	if err != nil {
		if models.ErrorCode(err) == models.CodeForbidden {
			return c.Redirect(postPath(id), fiber.StatusFound)
		}
		return respondServiceError(c, err)
	}

	form, err := s.postService.FormContext(c.UserContext(), post)
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(form)
}

// EditPost handles POST /posts/:id/edit/. Anyone but the author is sent back
// to the post unchanged, before the body is read.
func (s *Server) EditPost(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	if _, err := s.postService.GetEditablePost(c.UserContext(), actorID(c), id); err != nil {
		if models.ErrorCode(err) == models.CodeForbidden {
			return c.Redirect(postPath(id), fiber.StatusFound)
		}
		return respondServiceError(c, err)
	}

	form, err := s.parsePostForm(c)
	if err != nil {
		return respondServiceError(c, err)
	}

	post, err := s.postService.EditPost(c.UserContext(), service.EditPostInput{
		ActorID: actorID(c),
		PostID:  id,
		Form:    form,
	})
	if err != nil {
		if models.ErrorCode(err) == models.CodeForbidden {
			return c.Redirect(postPath(id), fiber.StatusFound)
		}
		return respondServiceError(c, err)
	}

	if wantsJSON(c) {
		return c.JSON(post)
	}
	return c.Redirect(postPath(post.ID), fiber.StatusFound)
}

// parsePostForm reads text, group and image from a JSON, urlencoded or multipart body.
// Unknown fields, including any author, are ignored.
func (s *Server) parsePostForm(c *fiber.Ctx) (service.PostForm, error) {
	var form service.PostForm

	if bytes.HasPrefix(c.Request().Header.ContentType(), []byte(fiber.MIMEApplicationJSON)) {
		var req struct {
			Text  string          `json:"text"`
			Group json.RawMessage `json:"group"`
		}
		if err := json.Unmarshal(c.Body(), &req); err != nil {
			return form, models.NewValidationError("Invalid request body")
		}
		form.Text = req.Text
		form.Group = rawGroupChoice(req.Group)
		return form, nil
	}

	form.Text = c.FormValue("text")
	form.Group = c.FormValue("group")

	fh, err := c.FormFile("image")
	if err != nil || fh == nil || fh.Size == 0 {
		return form, nil
	}
	f, err := fh.Open()
	if err != nil {
		return form, models.NewInternalError(err)
	}
	defer f.Close()

	maxBytes := int64(s.config.ImageMaxUploadSizeMB) * 1024 * 1024
	content, err := io.ReadAll(io.LimitReader(f, maxBytes+1))
	if err != nil {
		return form, models.NewInternalError(err)
	}
	form.Image = &service.ImageUpload{
		Filename:    fh.Filename,
		ContentType: fh.Header.Get(fiber.HeaderContentType),
		Content:     content,
	}
	return form, nil
}

// rawGroupChoice accepts a JSON number, string or null as the group choice.
func rawGroupChoice(raw json.RawMessage) string {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return ""
	}
	if raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err == nil {
			return s
		}
	}
	return string(raw)
}

// pathParam returns a decoded route parameter.
func pathParam(c *fiber.Ctx, name string) string {
	raw := c.Params(name)
	if v, err := url.PathUnescape(raw); err == nil {
		return v
	}
	return raw
}
