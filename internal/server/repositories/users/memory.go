package users

import (
	"context"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/dmitrijs2005/gophauth/internal/common"
	"github.com/dmitrijs2005/gophauth/internal/server/models"
)

// MemoryRepository keeps users in process memory. One mutex guards both
// indexes, so the duplicate check and the insert happen as a unit. Records
// are copied on the way in and out; callers never share a pointer with the
// store.
type MemoryRepository struct {
	mu      sync.RWMutex
	byEmail map[string]*models.User
	byID    map[string]*models.User
	lastID  int64
	now     func() time.Time
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		byEmail: make(map[string]*models.User),
		byID:    make(map[string]*models.User),
		now:     time.Now,
	}
}

func (r *MemoryRepository) Create(ctx context.Context, user *models.User) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.byEmail[user.Email]; exists {
		return nil, common.ErrorDuplicateEmail
	}

	r.lastID++
	stored := *user
	// The caller's strings may alias a reused request buffer; the map key
	// and fields must own their bytes.
	stored.Email = strings.Clone(user.Email)
	stored.Name = strings.Clone(user.Name)
	stored.PasswordHash = strings.Clone(user.PasswordHash)
	stored.ID = strconv.FormatInt(r.lastID, 10)
	stored.CreatedAt = r.now().UTC()

	r.byEmail[stored.Email] = &stored
	r.byID[stored.ID] = &stored

	out := stored
	return &out, nil
}

func (r *MemoryRepository) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	u, ok := r.byEmail[email]
	if !ok {
		return nil, common.ErrorNotFound
	}
	out := *u
	return &out, nil
}

func (r *MemoryRepository) GetUserByID(ctx context.Context, id string) (*models.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	u, ok := r.byID[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	out := *u
	return &out, nil
}

func (r *MemoryRepository) List(ctx context.Context) ([]*models.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	list := make([]*models.User, 0, len(r.byID))
	for _, u := range r.byID {
		out := *u
		list = append(list, &out)
	}
	return list, nil
}
