package users

import (
	"context"
	"errors"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"

	"presence/internal/auth"
)

var (
	ErrNotFound     = errors.New("users: not found")
	ErrInvalidInput = errors.New("users: invalid input")
)

// User is the public profile of an identity. The password hash never leaves the repository.
type User struct {
	ID        string    `json:"userId"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// EditInput is a profile update. A nil Password keeps the stored hash.
type EditInput struct {
	Name     string
	Email    string
	Password *string
}

// Store is the persistence the service needs.
type Store interface {
	GetByID(ctx context.Context, id string) (*User, error)
	Update(ctx context.Context, id, name, email string, passwordHash *string) (bool, error)
	Insert(ctx context.Context, u User, passwordHash string) (User, error)
}

// Service reads and edits profiles, with an optional read-through cache.
type Service struct {
	store      Store
	cache      Cache
	bcryptCost int
}

// NewService creates a profile service. cache may be nil.
func NewService(store Store, cache Cache, bcryptCost int) *Service {
	return &Service{store: store, cache: cache, bcryptCost: bcryptCost}
}

// GetByID returns the profile for id, or nil when no such identity exists.
func (s *Service) GetByID(ctx context.Context, id string) (*User, error) {
	if s.cache != nil {
		cached, err := s.cache.Get(ctx, id)
		if err != nil {
			log.Printf("profile cache get %s failed: %v", id, err)
		} else if cached != nil {
			return cached, nil
		}
	}

	u, err := s.store.GetByID(ctx, id)
	if err != nil || u == nil {
		return u, err
	}
	if s.cache != nil {
		if err := s.cache.Set(ctx, *u); err != nil {
			log.Printf("profile cache set %s failed: %v", id, err)
		}
	}
	return u, nil
}

// Edit updates name and email, re-hashing the password when a new one is supplied.
func (s *Service) Edit(ctx context.Context, id string, in EditInput) error {
	in.Name = strings.TrimSpace(in.Name)
	in.Email = strings.TrimSpace(in.Email)
	if id == "" || in.Name == "" || in.Email == "" {
		return ErrInvalidInput
	}

	var hash *string
	if in.Password != nil && *in.Password != "" {
		h, err := auth.HashPassword(*in.Password, s.bcryptCost)
		if err != nil {
			return err
		}
		hash = &h
	}

	found, err := s.store.Update(ctx, id, in.Name, in.Email, hash)
	if err != nil {
		return err
	}
	if s.cache != nil {
		if err := s.cache.Delete(ctx, id); err != nil {
			log.Printf("profile cache delete %s failed: %v", id, err)
		}
	}
	if !found {
		return ErrNotFound
	}
	return nil
}

// Create registers a new identity with a freshly hashed password.
func (s *Service) Create(ctx context.Context, name, email, password string) (User, error) {
	name = strings.TrimSpace(name)
	email = strings.TrimSpace(email)
	if name == "" || email == "" || password == "" {
		return User{}, ErrInvalidInput
	}
	hash, err := auth.HashPassword(password, s.bcryptCost)
	if err != nil {
		return User{}, err
	}
	return s.store.Insert(ctx, User{ID: uuid.NewString(), Name: name, Email: email}, hash)
}
