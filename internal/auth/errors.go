package auth

import "errors"

var (
	ErrNotFound     = errors.New("auth: identity not found")
	ErrUnauthorized = errors.New("auth: wrong password")
	ErrMissingToken = errors.New("auth: missing bearer token")
	ErrInvalidToken = errors.New("auth: invalid token")
	ErrInvalidInput = errors.New("auth: invalid input")
)
