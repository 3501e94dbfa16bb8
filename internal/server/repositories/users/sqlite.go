package users

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/dmitrijs2005/gophauth/internal/common"
	"github.com/dmitrijs2005/gophauth/internal/dbx"
	"github.com/dmitrijs2005/gophauth/internal/server/models"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

// SQLiteRepository stores users in a SQLite file. Timestamps are kept as
// unix milliseconds.
type SQLiteRepository struct {
	db  dbx.DBTX
	now func() time.Time
}

func NewSQLiteRepository(db dbx.DBTX) *SQLiteRepository {
	return &SQLiteRepository{db: db, now: time.Now}
}

func (r *SQLiteRepository) Create(ctx context.Context, user *models.User) (*models.User, error) {
	query :=
		`INSERT INTO users (email, name, password_hash, created_at)
		 VALUES (?, ?, ?, ?)
		 RETURNING id
		 `

	createdAt := r.now().UTC().Truncate(time.Millisecond)

	var id int64
	err := r.db.QueryRowContext(ctx, query,
		user.Email, user.Name, user.PasswordHash, createdAt.UnixMilli()).Scan(&id)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, common.ErrorDuplicateEmail
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	out := *user
	out.ID = strconv.FormatInt(id, 10)
	out.CreatedAt = createdAt
	return &out, nil
}

func (r *SQLiteRepository) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	query := `SELECT id, email, name, password_hash, created_at FROM users WHERE email = ?`
	return r.getOne(ctx, query, email)
}

func (r *SQLiteRepository) GetUserByID(ctx context.Context, id string) (*models.User, error) {
	n, err := strconv.ParseInt(id, 10, 64)
	if err != nil {
		return nil, common.ErrorNotFound
	}
	query := `SELECT id, email, name, password_hash, created_at FROM users WHERE id = ?`
	return r.getOne(ctx, query, n)
}

func (r *SQLiteRepository) List(ctx context.Context) ([]*models.User, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id, email, name, password_hash, created_at FROM users ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	list := make([]*models.User, 0)
	for rows.Next() {
		u, err := scanSQLiteUser(rows)
		if err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		list = append(list, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return list, nil
}

func (r *SQLiteRepository) getOne(ctx context.Context, query string, arg any) (*models.User, error) {
	u, err := scanSQLiteUser(r.db.QueryRowContext(ctx, query, arg))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return u, nil
}

func scanSQLiteUser(row rowScanner) (*models.User, error) {
	var (
		id        int64
		createdAt int64
	)
	u := &models.User{}
	if err := row.Scan(&id, &u.Email, &u.Name, &u.PasswordHash, &createdAt); err != nil {
		return nil, err
	}
	u.ID = strconv.FormatInt(id, 10)
	u.CreatedAt = time.UnixMilli(createdAt).UTC()
	return u, nil
}

func isUniqueViolation(err error) bool {
	var se *sqlite.Error
	if !errors.As(err, &se) {
		return false
	}
	return se.Code() == sqlite3.SQLITE_CONSTRAINT_UNIQUE
}
