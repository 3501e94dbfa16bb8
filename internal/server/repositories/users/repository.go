// Package users stores user accounts. Every backend enforces email
// uniqueness atomically with the insert and reports absence as
// common.ErrorNotFound and conflicts as common.ErrorDuplicateEmail.
//
// Emails are compared exactly; callers normalise them first.
package users

import (
	"context"

	"github.com/dmitrijs2005/gophauth/internal/server/models"
)

type Repository interface {
	// Create stores user and returns it with ID and CreatedAt assigned.
	Create(ctx context.Context, user *models.User) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	GetUserByID(ctx context.Context, id string) (*models.User, error)
	// List returns every user. Order is not meaningful.
	List(ctx context.Context) ([]*models.User, error)
}
