package users

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"presence/internal/auth"
)

// Repository persists identities in Postgres.
type Repository struct {
	db      *sql.DB
	timeout time.Duration
}

// NewRepository creates a repo. Every statement runs under timeout.
func NewRepository(db *sql.DB, timeout time.Duration) *Repository {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Repository{db: db, timeout: timeout}
}

// FindByEmail returns the identity with its password hash, or nil when none matches.
func (r *Repository) FindByEmail(ctx context.Context, email string) (*auth.Identity, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	row := r.db.QueryRowContext(ctx, `
		SELECT user_id, name, email, password
		FROM users WHERE email = $1
	`, email)
	var id auth.Identity
	if err := row.Scan(&id.ID, &id.Name, &id.Email, &id.PasswordHash); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &id, nil
}

// GetByID returns the public profile row, or nil when the id is unknown.
func (r *Repository) GetByID(ctx context.Context, id string) (*User, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	row := r.db.QueryRowContext(ctx, `
		SELECT user_id, name, email, created_at, updated_at
		FROM users WHERE user_id = $1
	`, id)
	var u User
	if err := row.Scan(&u.ID, &u.Name, &u.Email, &u.CreatedAt, &u.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &u, nil
}

// Update sets name and email, and the password hash only when one is given.
// It reports whether a row matched the id.
func (r *Repository) Update(ctx context.Context, id, name, email string, passwordHash *string) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	var (
		res sql.Result
		err error
	)
	if passwordHash != nil {
		res, err = r.db.ExecContext(ctx, `
			UPDATE users SET name = $1, email = $2, password = $3, updated_at = NOW()
			WHERE user_id = $4
		`, name, email, *passwordHash, id)
	} else {
		res, err = r.db.ExecContext(ctx, `
			UPDATE users SET name = $1, email = $2, updated_at = NOW()
			WHERE user_id = $3
		`, name, email, id)
	}
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// Insert writes a new identity.
func (r *Repository) Insert(ctx context.Context, u User, passwordHash string) (User, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	row := r.db.QueryRowContext(ctx, `
		INSERT INTO users (user_id, name, email, password)
		VALUES ($1, $2, $3, $4)
		RETURNING created_at, updated_at
	`, u.ID, u.Name, u.Email, passwordHash)
	if err := row.Scan(&u.CreatedAt, &u.UpdatedAt); err != nil {
		return User{}, err
	}
	return u, nil
}
