package server

import (
	"strings"
	"time"

	"yatube/internal/middleware"
	"yatube/internal/models"
	"yatube/internal/service"

	"github.com/gofiber/fiber/v2"
)

const (
	tokenCookie = "access_token"
	localUserID = "userID"
	localClaims = "tokenClaims"
)

// tokenFromRequest reads the bearer header first, then the access_token cookie.
func tokenFromRequest(c *fiber.Ctx) string {
	if authHeader := c.Get(fiber.HeaderAuthorization); authHeader != "" {
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
			return strings.TrimSpace(parts[1])
		}
		return ""
	}
	return c.Cookies(tokenCookie)
}

// authenticate verifies the request token and stores the actor on the context.
func (s *Server) authenticate(c *fiber.Ctx) (*service.TokenClaims, error) {
	token := tokenFromRequest(c)
	if token == "" {
		return nil, models.NewUnauthorizedError("Authorization required")
	}
	claims, err := s.authService.ParseToken(c.UserContext(), token)
	if err != nil {
		return nil, err
	}
	c.Locals(localClaims, claims)
	middleware.WithUserID(c, claims.UserID)
	return claims, nil
}

// LoginRequired guards page routes: guests are redirected to the login entry point.
func (s *Server) LoginRequired() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if _, err := s.authenticate(c); err != nil {
			if models.ErrorCode(err) == models.CodeInternal {
				return respondServiceError(c, err)
			}
			return c.Redirect(loginURL(c.Path()), fiber.StatusFound)
		}
		return c.Next()
	}
}

// AuthRequired guards API routes: guests get 401.
func (s *Server) AuthRequired() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if _, err := s.authenticate(c); err != nil {
			return respondServiceError(c, err)
		}
		return c.Next()
	}
}

// AdminRequired returns middleware that rejects non-admin users with 403.
// Must be placed after AuthRequired so that userID is available in locals.
func (s *Server) AdminRequired() fiber.Handler {
	return func(c *fiber.Ctx) error {
		user, err := s.userRepo.GetByID(c.UserContext(), actorID(c))
		if err != nil {
			return respondServiceError(c, err)
		}
		if !user.IsAdmin {
			return models.RespondWithError(c, fiber.StatusForbidden,
				models.NewForbiddenError("Admin access required"))
		}
		return c.Next()
	}
}

// optionalUserID returns the actor when a valid token is present, without enforcing it.
func (s *Server) optionalUserID(c *fiber.Ctx) (uint, bool) {
	token := tokenFromRequest(c)
	if token == "" {
		return 0, false
	}
	claims, err := s.authService.ParseToken(c.UserContext(), token)
	if err != nil {
		return 0, false
	}
	return claims.UserID, true
}

func actorID(c *fiber.Ctx) uint {
	id, _ := c.Locals(localUserID).(uint)
	return id
}

// LoginForm handles GET /auth/login/, the target of login redirects.
func (s *Server) LoginForm(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"next": c.Query("next", "/"),
		"fields": []service.FormField{
			{Name: "username", Kind: "text", Label: "Имя пользователя", Required: true},
			{Name: "password", Kind: "password", Label: "Пароль", Required: true},
		},
	})
}

// Signup handles POST /auth/signup/
func (s *Server) Signup(c *fiber.Ctx) error {
	var req service.Credentials
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	res, err := s.authService.Signup(c.UserContext(), req)
	if err != nil {
		return respondServiceError(c, err)
	}
	s.setTokenCookie(c, res)
	return c.Status(fiber.StatusCreated).JSON(res)
}

// Login handles POST /auth/login/
func (s *Server) Login(c *fiber.Ctx) error {
	var req service.Credentials
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	res, err := s.authService.Login(c.UserContext(), req)
	if err != nil {
		return respondServiceError(c, err)
	}
	s.setTokenCookie(c, res)

	if next := c.Query("next"); next != "" && safeRedirect(next) && !wantsJSON(c) {
		return c.Redirect(next, fiber.StatusFound)
	}
	return c.JSON(res)
}

// Logout handles POST /auth/logout/
func (s *Server) Logout(c *fiber.Ctx) error {
	claims, _ := c.Locals(localClaims).(*service.TokenClaims)
	if err := s.authService.Logout(c.UserContext(), claims); err != nil {
		return respondServiceError(c, err)
	}
	c.Cookie(&fiber.Cookie{
		Name:     tokenCookie,
		Value:    "",
		Path:     "/",
		Expires:  time.Unix(0, 0),
		HTTPOnly: true,
		SameSite: fiber.CookieSameSiteLaxMode,
	})
	return c.SendStatus(fiber.StatusNoContent)
}

func (s *Server) setTokenCookie(c *fiber.Ctx, res *service.AuthResult) {
	c.Cookie(&fiber.Cookie{
		Name:     tokenCookie,
		Value:    res.Token,
		Path:     "/",
		Expires:  res.ExpiresAt,
		HTTPOnly: true,
		Secure:   s.config.IsProduction(),
		SameSite: fiber.CookieSameSiteLaxMode,
	})
}

// safeRedirect only allows local absolute paths.
func safeRedirect(next string) bool {
	return strings.HasPrefix(next, "/") && !strings.HasPrefix(next, "//") && !strings.Contains(next, "\\")
}
