// Package rest exposes UserService over HTTP with fiber. Routes and
// response shapes follow the OAuth2 password flow:
//
//	GET  /               welcome message
//	POST /api/register   create a user
//	POST /api/token      exchange email and password for a bearer token
//	GET  /api/users/me   the user behind the bearer token
package rest

import (
	"context"
	"errors"
	"time"

	"github.com/dmitrijs2005/gophauth/internal/logging"
	"github.com/dmitrijs2005/gophauth/internal/server/models"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/google/uuid"
)

const shutdownTimeout = 5 * time.Second

// userSvc is the part of services.UserService the transport calls.
type userSvc interface {
	Register(ctx context.Context, email, name, password string) (*models.User, error)
	Login(ctx context.Context, email, password string) (string, error)
	CurrentUser(ctx context.Context, token string) (*models.User, error)
	AccessTokenTTL() time.Duration
}

type HTTPServer struct {
	address string
	users   userSvc
	logger  logging.Logger
	app     *fiber.App
}

func NewHTTPServer(address string, l logging.Logger, us userSvc) *HTTPServer {
	s := &HTTPServer{
		address: address,
		users:   us,
		logger:  l.With("module", "http_server"),
	}

	// Immutable: values parsed from a request end up in the user store, so
	// they must not alias fasthttp's reused buffers.
	s.app = fiber.New(fiber.Config{
		AppName:               "gophauth",
		DisableStartupMessage: true,
		Immutable:             true,
		ErrorHandler:          s.errorHandler,
	})

	s.app.Use(requestid.New(requestid.Config{
		Header:    fiber.HeaderXRequestID,
		Generator: uuid.NewString,
	}))
	s.app.Use(s.contextMiddleware)
	s.app.Use(recover.New())

	s.routes()
	return s
}

func (s *HTTPServer) routes() {
	s.app.Get("/", s.root)

	api := s.app.Group("/api")
	api.Post("/register", s.register)
	api.Post("/token", s.token)
	api.Get("/users/me", s.requireUser, s.me)
}

// Run serves HTTP until ctx is done, then shuts down gracefully.
func (s *HTTPServer) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info(ctx, "Starting HTTP server", "address", s.address)
		errCh <- s.app.Listen(s.address)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	s.logger.Info(context.Background(), "Stopping HTTP server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := s.app.ShutdownWithContext(shutdownCtx); err != nil {
		return err
	}
	return <-errCh
}

// contextMiddleware moves the request id into the request context so every
// log line written while handling the request carries it, then logs the
// outcome.
func (s *HTTPServer) contextMiddleware(c *fiber.Ctx) error {
	id, _ := c.Locals("requestid").(string)
	c.SetUserContext(logging.WithRequestID(c.UserContext(), id))

	start := time.Now()
	err := c.Next()
	if err != nil {
		// resolve the status now so it is logged correctly
		if herr := s.errorHandler(c, err); herr != nil {
			return herr
		}
	}

	s.logger.Info(c.UserContext(), "http request",
		"method", c.Method(),
		"path", c.Path(),
		"status", c.Response().StatusCode(),
		"duration", time.Since(start),
	)
	return nil
}

func (s *HTTPServer) errorHandler(c *fiber.Ctx, err error) error {
	var fe *fiber.Error
	if errors.As(err, &fe) {
		return c.Status(fe.Code).JSON(errorResponse{Detail: fe.Message})
	}
	s.logger.Error(c.UserContext(), "unhandled error", "error", err)
	return c.Status(fiber.StatusInternalServerError).JSON(errorResponse{Detail: msgInternal})
}
