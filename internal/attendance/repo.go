package attendance

import (
	"context"
	"database/sql"
	"strconv"
	"strings"
	"time"
)

// Repository persists attendance records in Postgres.
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

// Insert writes a single record verbatim.
func (r *Repository) Insert(ctx context.Context, rec Record) error {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO attendances (attendance_id, user_id, latitude, longitude, ip, photo, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, rec.ID, rec.UserID, rec.Latitude, rec.Longitude, rec.IP, rec.Photo, rec.CreatedAt)
	return err
}

const listQuery = `SELECT u.name, a.latitude, a.longitude, a.ip, a.created_at
FROM attendances AS a LEFT JOIN users AS u ON a.user_id = u.user_id`

// List returns records matching every bound the filter sets, joined with the owner's name.
// Unset bounds add no clause. Results are ordered by created_at, then attendance_id.
func (r *Repository) List(ctx context.Context, f Filter) ([]View, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	query, args := buildListQuery(f)
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	res := []View{}
	for rows.Next() {
		var (
			v    View
			name sql.NullString
		)
		if err := rows.Scan(&name, &v.Latitude, &v.Longitude, &v.IP, &v.CreatedAt); err != nil {
			return nil, err
		}
		if name.Valid {
			v.Name = &name.String
		}
		res = append(res, v)
	}
	return res, rows.Err()
}

func buildListQuery(f Filter) (string, []any) {
	query := listQuery
	args := []any{}
	clauses := []string{}
	placeholder := func() string { return "$" + strconv.Itoa(len(args)) }

	if f.UserID != "" {
		args = append(args, f.UserID)
		clauses = append(clauses, "a.user_id = "+placeholder())
	}
	if f.From != nil {
		args = append(args, f.From.UTC())
		clauses = append(clauses, "a.created_at >= "+placeholder())
	}
	if f.To != nil {
		args = append(args, f.To.UTC())
		clauses = append(clauses, "a.created_at <= "+placeholder())
	}
	if len(clauses) > 0 {
		query += " WHERE " + strings.Join(clauses, " AND ")
	}
	query += " ORDER BY a.created_at ASC, a.attendance_id ASC"
	if f.Limit > 0 {
		args = append(args, f.Limit)
		query += " LIMIT " + placeholder()
	}
	if f.Offset > 0 {
		args = append(args, f.Offset)
		query += " OFFSET " + placeholder()
	}
	return query, args
}
