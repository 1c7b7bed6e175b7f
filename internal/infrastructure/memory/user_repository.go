package memory

import (
	"context"
	"sync"

	domain "github.com/synexstock/orderflow/internal/domain/user"
)

type UserRepository struct {
	mu         sync.RWMutex
	byUsername map[string]*domain.User
	emails     map[string]bool
}

func NewUserRepository() *UserRepository {
	return &UserRepository{
		byUsername: make(map[string]*domain.User),
		emails:     make(map[string]bool),
	}
}

func (r *UserRepository) Insert(ctx context.Context, u *domain.User) error {
	_ = ctx
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.byUsername[u.Username]; exists {
		return domain.ErrUsernameTaken
	}
	if r.emails[u.Email] {
		return domain.ErrEmailTaken
	}
	r.byUsername[u.Username] = u.Clone()
	r.emails[u.Email] = true
	return nil
}

func (r *UserRepository) FindByUsername(ctx context.Context, username string) (*domain.User, error) {
	_ = ctx
	r.mu.RLock()
	defer r.mu.RUnlock()

	u, ok := r.byUsername[username]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return u.Clone(), nil
}

func (r *UserRepository) ExistsByUsername(ctx context.Context, username string) (bool, error) {
	_ = ctx
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.byUsername[username]
	return ok, nil
}

func (r *UserRepository) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	_ = ctx
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.emails[email], nil
}
