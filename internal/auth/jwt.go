package auth

import (
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// TokenTTL is the lifetime of every access token.
const TokenTTL = 24 * time.Hour

// Claims represents JWT payload.
type Claims struct {
	UserID string `json:"userId"`
	Name   string `json:"name"`
	Email  string `json:"email"`
	jwt.RegisteredClaims
}

// Token is a freshly signed access token.
type Token struct {
	AccessToken string
	IssuedAt    time.Time
	ExpiresAt   time.Time
	Claims      Claims
}

// TokenService signs and verifies HS256 access tokens with a key fixed at construction.
type TokenService struct {
	key    []byte
	issuer string
	now    func() time.Time
}

// NewTokenService builds a token service. An empty issuer disables the issuer check.
func NewTokenService(signingKey, issuer string) (*TokenService, error) {
	if signingKey == "" {
		return nil, errors.New("signing key required")
	}
	return &TokenService{key: []byte(signingKey), issuer: issuer, now: time.Now}, nil
}

// Issue signs a token carrying the identity's id, name and email.
func (s *TokenService) Issue(userID, name, email string) (Token, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return Token{}, ErrInvalidInput
	}
	issued := s.now().UTC().Truncate(time.Second)
	expires := issued.Add(TokenTTL)

	claims := Claims{
		UserID: userID,
		Name:   name,
		Email:  email,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.issuer,
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(issued),
			ExpiresAt: jwt.NewNumericDate(expires),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.key)
	if err != nil {
		return Token{}, err
	}
	return Token{AccessToken: signed, IssuedAt: issued, ExpiresAt: expires, Claims: claims}, nil
}

// Parse validates a token and returns claims. Every failure maps to ErrInvalidToken.
func (s *TokenService) Parse(tokenStr string) (Claims, error) {
	tokenStr = strings.TrimSpace(tokenStr)
	if tokenStr == "" {
		return Claims{}, ErrMissingToken
	}
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	}
	if s.issuer != "" {
		opts = append(opts, jwt.WithIssuer(s.issuer))
	}
	parsed, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		return s.key, nil
	}, opts...)
	if err != nil {
		return Claims{}, ErrInvalidToken
	}
	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid || claims.UserID == "" {
		return Claims{}, ErrInvalidToken
	}
	return *claims, nil
}
