package rest

import (
	"errors"
	"strings"
	"time"

	"github.com/dmitrijs2005/gophauth/internal/common"
	"github.com/dmitrijs2005/gophauth/internal/server/models"
	"github.com/gofiber/fiber/v2"
)

const welcomeMessage = "Welcome to the User Authentication API"

const (
	msgDuplicateEmail     = "Email already registered"
	msgInvalidCredentials = "Invalid credentials"
	msgUnauthenticated    = "Could not validate credentials"
	msgNotAuthenticated   = "Not authenticated"
	msgInternal           = "internal error"
)

const localsUser = "user"

type errorResponse struct {
	Detail string `json:"detail"`
}

type userResponse struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

type registerRequest struct {
	Email    string `json:"email"`
	Name     string `json:"name"`
	Password string `json:"password"`
}

// tokenRequest accepts the OAuth2 password form (username, password) as
// well as JSON with either username or email.
type tokenRequest struct {
	Username string `json:"username" form:"username"`
	Email    string `json:"email" form:"email"`
	Password string `json:"password" form:"password"`
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int64  `json:"expires_in"`
}

func toUserResponse(u *models.User) userResponse {
	return userResponse{ID: u.ID, Email: u.Email, Name: u.Name, CreatedAt: u.CreatedAt}
}

func (s *HTTPServer) root(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"message": welcomeMessage})
}

func (s *HTTPServer) register(c *fiber.Ctx) error {
	var req registerRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusUnprocessableEntity).JSON(errorResponse{Detail: "malformed request body"})
	}

	u, err := s.users.Register(c.UserContext(), req.Email, req.Name, req.Password)
	if err != nil {
		return s.writeError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(toUserResponse(u))
}

func (s *HTTPServer) token(c *fiber.Ctx) error {
	var req tokenRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusUnprocessableEntity).JSON(errorResponse{Detail: "malformed request body"})
	}
	email := req.Username
	if email == "" {
		email = req.Email
	}
	if email == "" || req.Password == "" {
		return c.Status(fiber.StatusUnprocessableEntity).JSON(errorResponse{Detail: "username and password are required"})
	}

	token, err := s.users.Login(c.UserContext(), email, req.Password)
	if err != nil {
		return s.writeError(c, err)
	}
	return c.JSON(tokenResponse{
		AccessToken: token,
		TokenType:   common.TokenTypeBearer,
		ExpiresIn:   int64(s.users.AccessTokenTTL().Seconds()),
	})
}

func (s *HTTPServer) me(c *fiber.Ctx) error {
	u, ok := c.Locals(localsUser).(*models.User)
	if !ok {
		return s.unauthorized(c, msgUnauthenticated)
	}
	return c.JSON(toUserResponse(u))
}

// requireUser resolves the bearer token and stores the user in Locals.
func (s *HTTPServer) requireUser(c *fiber.Ctx) error {
	token, ok := common.ParseBearer(c.Get(fiber.HeaderAuthorization))
	if !ok {
		return s.unauthorized(c, msgNotAuthenticated)
	}

	u, err := s.users.CurrentUser(c.UserContext(), token)
	if err != nil {
		return s.writeError(c, err)
	}
	c.Locals(localsUser, u)
	return c.Next()
}

func (s *HTTPServer) unauthorized(c *fiber.Ctx, msg string) error {
	c.Set(fiber.HeaderWWWAuthenticate, common.BearerScheme)
	return c.Status(fiber.StatusUnauthorized).JSON(errorResponse{Detail: msg})
}

// writeError maps a service error to its HTTP status. Internal causes are
// logged and never sent to the client.
func (s *HTTPServer) writeError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, common.ErrorValidation):
		detail := strings.TrimPrefix(err.Error(), common.ErrorValidation.Error()+": ")
		return c.Status(fiber.StatusUnprocessableEntity).JSON(errorResponse{Detail: detail})
	case errors.Is(err, common.ErrorDuplicateEmail):
		return c.Status(fiber.StatusBadRequest).JSON(errorResponse{Detail: msgDuplicateEmail})
	case errors.Is(err, common.ErrorInvalidCredentials):
		return s.unauthorized(c, msgInvalidCredentials)
	case errors.Is(err, common.ErrorUnauthenticated):
		return s.unauthorized(c, msgUnauthenticated)
	default:
		s.logger.Error(c.UserContext(), "request failed", "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(errorResponse{Detail: msgInternal})
	}
}
