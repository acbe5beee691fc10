package memory

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/rryowa/authsession/internal/models"
	"github.com/rryowa/authsession/internal/storage"
)

type UserRepository struct {
	mu     sync.RWMutex
	nextID int64
	users  map[int64]models.User
}

func NewUserRepository() *UserRepository {
	return &UserRepository{users: make(map[int64]models.User)}
}

func (r *UserRepository) CreateUser(_ context.Context, user *models.User) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, u := range r.users {
		if strings.EqualFold(u.Username, user.Username) {
			return nil, storage.ErrUsernameTaken
		}
		if u.Email == user.Email {
			return nil, storage.ErrEmailTaken
		}
	}

	r.nextID++
	created := *user
	created.ID = r.nextID
	created.CreatedAt = time.Now().UTC()
	created.UpdatedAt = created.CreatedAt
	r.users[created.ID] = created

	return &created, nil
}

func (r *UserRepository) GetUserByID(_ context.Context, id int64) (*models.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	u, ok := r.users[id]
	if !ok {
		return nil, storage.ErrUserNotFound
	}
	return &u, nil
}

func (r *UserRepository) GetUserByEmail(_ context.Context, email string) (*models.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, u := range r.users {
		if u.Email == email {
			return &u, nil
		}
	}
	return nil, storage.ErrUserNotFound
}

func (r *UserRepository) UpdatePasswordHash(_ context.Context, id int64, hash string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.users[id]
	if !ok {
		return storage.ErrUserNotFound
	}
	u.PasswordHash = hash
	u.UpdatedAt = time.Now().UTC()
	r.users[id] = u
	return nil
}

// Storage bundles the in-memory repositories behind storage.Storage.
type Storage struct {
	*UserRepository
	*RefreshTokenRepository
}

var _ storage.Storage = (*Storage)(nil)

func NewStorage() *Storage {
	return &Storage{
		UserRepository:         NewUserRepository(),
		RefreshTokenRepository: NewRefreshTokenRepository(),
	}
}

// DeleteUser removes the user and cascades to its refresh tokens.
func (s *Storage) DeleteUser(id int64) {
	s.UserRepository.mu.Lock()
	delete(s.users, id)
	s.UserRepository.mu.Unlock()

	s.DeleteUserRefreshTokens(id)
}
