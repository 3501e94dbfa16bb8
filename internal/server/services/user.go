// Package services contains server-side business logic. UserService handles
// registration, password login and resolving a bearer token back to its
// user. It returns sentinel errors from internal/common; transports decide
// how each one is presented.
package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/dmitrijs2005/gophauth/internal/common"
	"github.com/dmitrijs2005/gophauth/internal/logging"
	"github.com/dmitrijs2005/gophauth/internal/server/auth"
	"github.com/dmitrijs2005/gophauth/internal/server/models"
	"github.com/dmitrijs2005/gophauth/internal/server/repositories/repomanager"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// MinPasswordLength is counted in characters, not bytes.
const MinPasswordLength = 8

const tracerName = "github.com/dmitrijs2005/gophauth/internal/server/services"

// TokenIssuer is the part of auth.JWTManager the service needs.
type TokenIssuer interface {
	GenerateToken(subject string, ttl time.Duration) (string, error)
	ParseSubject(token string) (string, error)
}

var _ TokenIssuer = (*auth.JWTManager)(nil)

type UserService struct {
	db                          *sql.DB
	repomanager                 repomanager.RepositoryManager
	hasher                      auth.PasswordHasher
	tokens                      TokenIssuer
	log                         logging.Logger
	tracer                      trace.Tracer
	accessTokenValidityDuration time.Duration

	// dummyHash is verified when the email is unknown so both login
	// failures cost one hash verification.
	dummyHash string

	// operators may list every user; keys are normalized emails.
	operators map[string]struct{}
}

type Option func(*UserService)

// WithOperators grants the given emails access to ListUsers.
func WithOperators(emails ...string) Option {
	return func(s *UserService) {
		for _, e := range emails {
			if e = NormalizeEmail(e); e != "" {
				s.operators[e] = struct{}{}
			}
		}
	}
}

// NewUserService wires the service. db may be nil for the memory backend.
func NewUserService(
	db *sql.DB,
	m repomanager.RepositoryManager,
	hasher auth.PasswordHasher,
	tokens TokenIssuer,
	log logging.Logger,
	accessTTL time.Duration,
	opts ...Option,
) (*UserService, error) {
	dummy, err := hasher.Hash("gophauth-timing-equaliser")
	if err != nil {
		return nil, fmt.Errorf("prepare dummy hash: %w", err)
	}
	s := &UserService{
		db:                          db,
		repomanager:                 m,
		hasher:                      hasher,
		tokens:                      tokens,
		log:                         log.With("module", "services.user"),
		tracer:                      otel.Tracer(tracerName),
		accessTokenValidityDuration: accessTTL,
		dummyHash:                   dummy,
		operators:                   map[string]struct{}{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// IsOperator reports whether u was configured as an operator.
func (s *UserService) IsOperator(u *models.User) bool {
	if u == nil {
		return false
	}
	_, ok := s.operators[NormalizeEmail(u.Email)]
	return ok
}

// AccessTokenTTL reports how long tokens issued by Login stay valid.
func (s *UserService) AccessTokenTTL() time.Duration {
	return s.accessTokenValidityDuration
}

// NormalizeEmail trims and lower-cases an address. Every email is passed
// through it before reaching the store, which makes lookups
// case-insensitive.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Register creates a user. The returned record carries the password hash;
// callers facing the network must not serialise it.
func (s *UserService) Register(ctx context.Context, email, name, password string) (*models.User, error) {
	ctx, span := s.tracer.Start(ctx, "UserService.Register")
	defer span.End()

	name = strings.TrimSpace(name)
	if name == "" {
		return nil, s.fail(span, fmt.Errorf("%w: name must not be empty", common.ErrorValidation))
	}
	if utf8.RuneCountInString(password) < MinPasswordLength {
		return nil, s.fail(span, fmt.Errorf("%w: password must be at least %d characters", common.ErrorValidation, MinPasswordLength))
	}
	email = NormalizeEmail(email)
	if err := validateEmail(email); err != nil {
		return nil, s.fail(span, err)
	}
	span.SetAttributes(attribute.String("user.email", email))

	repo := s.repomanager.Users(s.db)

	_, err := repo.GetUserByEmail(ctx, email)
	switch {
	case err == nil:
		return nil, s.fail(span, common.ErrorDuplicateEmail)
	case !errors.Is(err, common.ErrorNotFound):
		s.log.Error(ctx, "lookup by email failed", "error", err)
		return nil, s.fail(span, common.ErrorInternal)
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		if errors.Is(err, common.ErrorValidation) {
			return nil, s.fail(span, err)
		}
		s.log.Error(ctx, "password hashing failed", "error", err)
		return nil, s.fail(span, common.ErrorInternal)
	}

	u, err := repo.Create(ctx, &models.User{Email: email, Name: name, PasswordHash: hash})
	if err != nil {
		if errors.Is(err, common.ErrorDuplicateEmail) {
			return nil, s.fail(span, common.ErrorDuplicateEmail)
		}
		s.log.Error(ctx, "create user failed", "error", err)
		return nil, s.fail(span, common.ErrorInternal)
	}

	span.SetAttributes(attribute.String("user.id", u.ID))
	s.log.Info(ctx, "user registered", "user_id", u.ID)
	return u, nil
}

// Login checks email and password and returns a signed access token whose
// subject is the stored email. Unknown email and wrong password both
// produce common.ErrorInvalidCredentials.
func (s *UserService) Login(ctx context.Context, email, password string) (string, error) {
	ctx, span := s.tracer.Start(ctx, "UserService.Login")
	defer span.End()

	email = NormalizeEmail(email)
	repo := s.repomanager.Users(s.db)

	user, err := repo.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			s.hasher.Verify(password, s.dummyHash)
			return "", s.fail(span, common.ErrorInvalidCredentials)
		}
		s.log.Error(ctx, "lookup by email failed", "error", err)
		return "", s.fail(span, common.ErrorInternal)
	}

	if !s.hasher.Verify(password, user.PasswordHash) {
		return "", s.fail(span, common.ErrorInvalidCredentials)
	}

	token, err := s.tokens.GenerateToken(user.Email, s.accessTokenValidityDuration)
	if err != nil {
		s.log.Error(ctx, "token generation failed", "error", err)
		return "", s.fail(span, common.ErrorInternal)
	}

	s.log.Debug(ctx, "user logged in", "user_id", user.ID)
	return token, nil
}

// CurrentUser resolves a bearer token to the user it was issued for.
// Any token defect, and a subject with no matching user, yields
// common.ErrorUnauthenticated.
func (s *UserService) CurrentUser(ctx context.Context, token string) (*models.User, error) {
	ctx, span := s.tracer.Start(ctx, "UserService.CurrentUser")
	defer span.End()

	subject, err := s.tokens.ParseSubject(token)
	if err != nil {
		s.log.Debug(ctx, "token rejected", "error", err)
		return nil, s.fail(span, common.ErrorUnauthenticated)
	}
	if subject == "" {
		return nil, s.fail(span, common.ErrorUnauthenticated)
	}

	user, err := s.repomanager.Users(s.db).GetUserByEmail(ctx, subject)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, s.fail(span, common.ErrorUnauthenticated)
		}
		s.log.Error(ctx, "lookup by email failed", "error", err)
		return nil, s.fail(span, common.ErrorInternal)
	}
	return user, nil
}

// ListUsers returns every stored user. Only operators may call it; anyone
// else gets common.ErrorForbidden, since the list reveals which emails are
// registered.
func (s *UserService) ListUsers(ctx context.Context, requester *models.User) ([]*models.User, error) {
	ctx, span := s.tracer.Start(ctx, "UserService.ListUsers")
	defer span.End()

	if !s.IsOperator(requester) {
		return nil, s.fail(span, common.ErrorForbidden)
	}

	list, err := s.repomanager.Users(s.db).List(ctx)
	if err != nil {
		s.log.Error(ctx, "list users failed", "error", err)
		return nil, s.fail(span, common.ErrorInternal)
	}
	span.SetAttributes(attribute.Int("users.count", len(list)))
	return list, nil
}

func (s *UserService) fail(span trace.Span, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	return err
}

// validateEmail accepts a bare address only: no display name, no angle
// brackets, and a dot-free domain is rejected.
func validateEmail(email string) error {
	if email == "" {
		return fmt.Errorf("%w: email must not be empty", common.ErrorValidation)
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email || addr.Name != "" {
		return fmt.Errorf("%w: invalid email address", common.ErrorValidation)
	}
	_, domain, _ := strings.Cut(email, "@")
	if !strings.Contains(domain, ".") || strings.HasPrefix(domain, ".") || strings.HasSuffix(domain, ".") {
		return fmt.Errorf("%w: invalid email address", common.ErrorValidation)
	}
	return nil
}
