// Package repomanager binds a storage backend to its repository
// constructors and its schema migrations.
package repomanager

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/dmitrijs2005/gophauth/internal/dbx"
	"github.com/dmitrijs2005/gophauth/internal/server/config"
	"github.com/dmitrijs2005/gophauth/internal/server/repositories/users"
)

type RepositoryManager interface {
	RunMigrations(context.Context, *sql.DB) error
	Users(db dbx.DBTX) users.Repository
}

// New returns the manager for the named storage type. The memory backend
// ignores the db handle entirely.
func New(storageType string) (RepositoryManager, error) {
	switch storageType {
	case config.StoragePostgres:
		return &PostgresRepositoryManager{}, nil
	case config.StorageSQLite:
		return &SQLiteRepositoryManager{}, nil
	case config.StorageMemory:
		return NewMemoryRepositoryManager(), nil
	default:
		return nil, fmt.Errorf("unknown storage type %q", storageType)
	}
}
