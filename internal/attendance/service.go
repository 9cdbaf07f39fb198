package attendance

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

var (
	ErrInvalidTimezone = errors.New("attendance: unknown timezone")
	ErrInvalidDate     = errors.New("attendance: invalid date")
	ErrInvalidInput    = errors.New("attendance: invalid input")
)

// Record is a stored check-in. CreatedAt is always server time in UTC.
type Record struct {
	ID        string
	UserID    string
	Latitude  float64
	Longitude float64
	IP        string
	Photo     string
	CreatedAt time.Time
}

// View is a record as listed: the owner's name joined in, created_at in the caller's zone.
// Name is nil when the owning user no longer exists.
type View struct {
	Name      *string   `json:"name"`
	Latitude  float64   `json:"latitude"`
	Longitude float64   `json:"longitude"`
	IP        string    `json:"ip"`
	CreatedAt time.Time `json:"created_at"`
}

// Filter holds optional list bounds; zero values add no predicate.
type Filter struct {
	UserID string
	From   *time.Time
	To     *time.Time
	Limit  int
	Offset int
}

// NewCheckIn is the client-supplied part of a record.
type NewCheckIn struct {
	UserID    string
	Latitude  float64
	Longitude float64
	IP        string
	Photo     string
}

// Query is a raw filter request as received from a client.
type Query struct {
	UserID   string
	FromDate string
	ToDate   string
	Timezone string
	Limit    int
	Offset   int
}

// Store is the persistence the service needs.
type Store interface {
	Insert(ctx context.Context, rec Record) error
	List(ctx context.Context, f Filter) ([]View, error)
}

// Service records and lists attendance check-ins.
type Service struct {
	repo Store
	now  func() time.Time
}

// NewService creates a service backed by a repository.
func NewService(repo Store) *Service {
	return &Service{repo: repo, now: time.Now}
}

// CheckIn stores a new record with a fresh id and the current server time.
func (s *Service) CheckIn(ctx context.Context, in NewCheckIn) (Record, error) {
	if strings.TrimSpace(in.UserID) == "" {
		return Record{}, ErrInvalidInput
	}
	rec := Record{
		ID:        uuid.NewString(),
		UserID:    in.UserID,
		Latitude:  in.Latitude,
		Longitude: in.Longitude,
		IP:        in.IP,
		Photo:     in.Photo,
		CreatedAt: s.now().UTC().Truncate(time.Microsecond),
	}
	if err := s.repo.Insert(ctx, rec); err != nil {
		return Record{}, err
	}
	return rec, nil
}

// All lists every record with created_at shown in timezone.
func (s *Service) All(ctx context.Context, timezone string) ([]View, error) {
	return s.Filter(ctx, Query{Timezone: timezone})
}

// Filter lists the records matching q, with created_at shown in q.Timezone.
func (s *Service) Filter(ctx context.Context, q Query) ([]View, error) {
	loc, err := LoadZone(q.Timezone)
	if err != nil {
		return nil, err
	}
	f := Filter{UserID: strings.TrimSpace(q.UserID), Limit: q.Limit, Offset: q.Offset}
	if q.FromDate != "" {
		from, err := ParseBound(q.FromDate, false)
		if err != nil {
			return nil, err
		}
		f.From = &from
	}
	if q.ToDate != "" {
		to, err := ParseBound(q.ToDate, true)
		if err != nil {
			return nil, err
		}
		f.To = &to
	}
	if f.Limit < 0 || f.Offset < 0 {
		return nil, ErrInvalidInput
	}

	views, err := s.repo.List(ctx, f)
	if err != nil {
		return nil, err
	}
	for i := range views {
		views[i].CreatedAt = views[i].CreatedAt.In(loc)
	}
	return views, nil
}

// IsClientError reports whether err came from bad input rather than storage.
func IsClientError(err error) bool {
	return errors.Is(err, ErrInvalidTimezone) || errors.Is(err, ErrInvalidDate) || errors.Is(err, ErrInvalidInput)
}
