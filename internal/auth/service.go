package auth

import (
	"context"
	"strings"
)

// Identity is the stored account a login is checked against.
type Identity struct {
	ID           string
	Name         string
	Email        string
	PasswordHash string
}

// IdentityFinder looks up an identity by email. A missing identity is (nil, nil).
type IdentityFinder interface {
	FindByEmail(ctx context.Context, email string) (*Identity, error)
}

// Profile is the public part of an identity returned after login.
type Profile struct {
	UserID string `json:"userId"`
	Name   string `json:"name"`
	Email  string `json:"email"`
}

// LoginResult carries the issued token and the caller's public profile.
type LoginResult struct {
	Token Token
	User  Profile
}

// Service verifies credentials and issues access tokens.
type Service struct {
	finder IdentityFinder
	tokens *TokenService
}

// NewService creates a credential verifier.
func NewService(finder IdentityFinder, tokens *TokenService) *Service {
	return &Service{finder: finder, tokens: tokens}
}

// Tokens exposes the token service the guard must share with the verifier.
func (s *Service) Tokens() *TokenService {
	return s.tokens
}

// Login checks email and password and issues a token for the matching identity.
// Unknown emails fail with ErrNotFound before any password comparison.
func (s *Service) Login(ctx context.Context, email, password string) (LoginResult, error) {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return LoginResult{}, ErrInvalidInput
	}
	identity, err := s.finder.FindByEmail(ctx, email)
	if err != nil {
		return LoginResult{}, err
	}
	if identity == nil {
		return LoginResult{}, ErrNotFound
	}
	if err := VerifyPassword(identity.PasswordHash, password); err != nil {
		return LoginResult{}, ErrUnauthorized
	}

	token, err := s.tokens.Issue(identity.ID, identity.Name, identity.Email)
	if err != nil {
		return LoginResult{}, err
	}
	return LoginResult{
		Token: token,
		User:  Profile{UserID: identity.ID, Name: identity.Name, Email: identity.Email},
	}, nil
}
