// Package auth holds the credential primitives of the server: password
// hashing and signing/verification of bearer tokens.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/gophauth/internal/common"
	"github.com/golang-jwt/jwt/v5"
)

// TokenConfig configures a JWTManager. SecretKey is the process-wide HMAC
// key; Now defaults to time.Now.
type TokenConfig struct {
	SecretKey []byte
	Issuer    string
	Now       func() time.Time
}

// JWTManager issues and verifies HS256 bearer tokens carrying a subject
// claim. Tokens are stateless: expiry is the only way they stop working.
type JWTManager struct {
	secret []byte
	issuer string
	now    func() time.Time
}

func NewJWTManager(cfg TokenConfig) (*JWTManager, error) {
	if len(cfg.SecretKey) == 0 {
		return nil, errors.New("jwt secret key is empty")
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	return &JWTManager{secret: cfg.SecretKey, issuer: cfg.Issuer, now: now}, nil
}

// GenerateToken signs a token for subject that expires ttl from now.
// A non-positive ttl yields a token that is already expired.
func (m *JWTManager) GenerateToken(subject string, ttl time.Duration) (string, error) {
	now := m.now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   subject,
		Issuer:    m.issuer,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	})

	tokenString, err := token.SignedString(m.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return tokenString, nil
}

// ParseSubject verifies tokenString and returns its subject claim.
// Expired tokens yield common.ErrTokenExpired; any other defect (signature,
// algorithm, structure, missing exp) yields common.ErrInvalidToken.
// The returned subject may be empty; callers decide whether that is valid.
func (m *JWTManager) ParseSubject(tokenString string) (string, error) {
	claims := &jwt.RegisteredClaims{}

	token, err := jwt.ParseWithClaims(tokenString, claims,
		func(t *jwt.Token) (interface{}, error) {
			return m.secret, nil
		},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(m.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return "", common.ErrTokenExpired
		}
		return "", common.ErrInvalidToken
	}

	if !token.Valid {
		return "", common.ErrInvalidToken
	}

	return claims.Subject, nil
}
