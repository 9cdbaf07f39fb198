package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/bcrypt"

	"presence/internal/attendance"
	"presence/internal/auth"
	"presence/internal/users"
)

type memAttendance struct {
	mu      sync.Mutex
	records []attendance.Record
	err     error
}

func (m *memAttendance) Insert(_ context.Context, rec attendance.Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.records = append(m.records, rec)
	return nil
}

func (m *memAttendance) List(_ context.Context, f attendance.Filter) ([]attendance.View, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	out := []attendance.View{}
	for _, r := range m.records {
		if f.UserID != "" && r.UserID != f.UserID {
			continue
		}
		if f.From != nil && r.CreatedAt.Before(*f.From) {
			continue
		}
		if f.To != nil && r.CreatedAt.After(*f.To) {
			continue
		}
		name := "Alice"
		out = append(out, attendance.View{Name: &name, Latitude: r.Latitude, Longitude: r.Longitude, IP: r.IP, CreatedAt: r.CreatedAt})
	}
	return out, nil
}

type memUsers struct {
	mu     sync.Mutex
	users  map[string]users.User
	hashes map[string]string
	err    error
}

func (m *memUsers) FindByEmail(_ context.Context, email string) (*auth.Identity, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	for id, u := range m.users {
		if u.Email == email {
			return &auth.Identity{ID: id, Name: u.Name, Email: u.Email, PasswordHash: m.hashes[id]}, nil
		}
	}
	return nil, nil
}

func (m *memUsers) GetByID(_ context.Context, id string) (*users.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	u, ok := m.users[id]
	if !ok {
		return nil, nil
	}
	return &u, nil
}

func (m *memUsers) Update(_ context.Context, id, name, email string, hash *string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return false, m.err
	}
	u, ok := m.users[id]
	if !ok {
		return false, nil
	}
	u.Name, u.Email = name, email
	m.users[id] = u
	if hash != nil {
		m.hashes[id] = *hash
	}
	return true, nil
}

func (m *memUsers) Insert(_ context.Context, u users.User, hash string) (users.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.users[u.ID] = u
	m.hashes[u.ID] = hash
	return u, nil
}

type stubPinger bool

func (p stubPinger) Healthy(context.Context) bool { return bool(p) }

type testAPI struct {
	t          *testing.T
	handler    http.Handler
	tokens     *auth.TokenService
	attendance *memAttendance
	users      *memUsers
	token      string
}

func newTestAPI(t *testing.T, opts Options) *testAPI {
	t.Helper()
	gin.SetMode(gin.TestMode)

	hash, err := auth.HashPassword("s3cret", bcrypt.MinCost)
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}
	userStore := &memUsers{
		users:  map[string]users.User{"u1": {ID: "u1", Name: "Alice", Email: "alice@example.com"}},
		hashes: map[string]string{"u1": hash},
	}
	attStore := &memAttendance{}

	tokens, err := auth.NewTokenService("test-secret", "presence-test")
	if err != nil {
		t.Fatalf("NewTokenService: %v", err)
	}
	tok, err := tokens.Issue("u1", "Alice", "alice@example.com")
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	api := New(
		auth.NewService(userStore, tokens),
		attendance.NewService(attStore),
		users.NewService(userStore, nil, bcrypt.MinCost),
		opts,
	)
	return &testAPI{t: t, handler: api.Handler(), tokens: tokens, attendance: attStore, users: userStore, token: tok.AccessToken}
}

type envelope struct {
	Status  string          `json:"status"`
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Error   string          `json:"error"`
	Data    json.RawMessage `json:"data"`
}

func (a *testAPI) do(method, path string, body any, authed bool) (*httptest.ResponseRecorder, envelope) {
	a.t.Helper()
	var payload []byte
	if body != nil {
		var err error
		if payload, err = json.Marshal(body); err != nil {
			a.t.Fatalf("marshal body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, bytes.NewReader(payload))
	req.RemoteAddr = "203.0.113.7:5555"
	req.Header.Set("Content-Type", "application/json")
	if authed {
		req.Header.Set("Authorization", "Bearer "+a.token)
	}
	rr := httptest.NewRecorder()
	a.handler.ServeHTTP(rr, req)

	var env envelope
	if rr.Body.Len() > 0 {
		if err := json.Unmarshal(rr.Body.Bytes(), &env); err != nil {
			a.t.Fatalf("decode %s %s response %q: %v", method, path, rr.Body.String(), err)
		}
	}
	return rr, env
}

func TestLogin(t *testing.T) {
	api := newTestAPI(t, Options{})

	rr, env := api.do(http.MethodPost, "/api/auth/login", map[string]string{"email": "alice@example.com", "password": "s3cret"}, false)
	if rr.Code != http.StatusOK || env.Status != "success" {
		t.Fatalf("expected 200 success, got %d %+v", rr.Code, env)
	}
	var data loginResponse
	if err := json.Unmarshal(env.Data, &data); err != nil {
		t.Fatalf("decode data: %v", err)
	}
	if data.User != (auth.Profile{UserID: "u1", Name: "Alice", Email: "alice@example.com"}) {
		t.Fatalf("unexpected user: %+v", data.User)
	}
	claims, err := api.tokens.Parse(data.AccessToken)
	if err != nil {
		t.Fatalf("issued token does not verify: %v", err)
	}
	if claims.UserID != "u1" {
		t.Fatalf("unexpected claims: %+v", claims)
	}
	if bytes.Contains(rr.Body.Bytes(), []byte("$2a$")) {
		t.Fatalf("response leaks the password hash")
	}
}

func TestLoginFailures(t *testing.T) {
	api := newTestAPI(t, Options{})
	cases := []struct {
		name string
		body any
		want int
	}{
		{name: "unknown email", body: map[string]string{"email": "bob@example.com", "password": "x"}, want: http.StatusNotFound},
		{name: "wrong password", body: map[string]string{"email": "alice@example.com", "password": "nope"}, want: http.StatusUnauthorized},
		{name: "missing password", body: map[string]string{"email": "alice@example.com"}, want: http.StatusBadRequest},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rr, env := api.do(http.MethodPost, "/api/auth/login", tc.body, false)
			if rr.Code != tc.want || env.Code != tc.want || env.Status != "error" {
				t.Fatalf("expected %d, got %d %+v", tc.want, rr.Code, env)
			}
			if len(env.Data) != 0 {
				t.Fatalf("no data expected on failure, got %s", env.Data)
			}
		})
	}
}

func TestLoginStorageFailure(t *testing.T) {
	api := newTestAPI(t, Options{})
	api.users.err = errors.New("Database error")

	rr, env := api.do(http.MethodPost, "/api/auth/login", map[string]string{"email": "alice@example.com", "password": "s3cret"}, false)
	if rr.Code != http.StatusInternalServerError || env.Error != "Database error" {
		t.Fatalf("expected 500 with cause, got %d %+v", rr.Code, env)
	}
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	api := newTestAPI(t, Options{})
	routes := []struct{ method, path string }{
		{http.MethodPost, "/api/attendance"},
		{http.MethodGet, "/api/attendance"},
		{http.MethodGet, "/api/attendance/filter"},
		{http.MethodPatch, "/api/users/u1"},
	}
	for _, rt := range routes {
		rr, _ := api.do(rt.method, rt.path, map[string]string{}, false)
		if rr.Code != http.StatusUnauthorized {
			t.Fatalf("%s %s: expected 401, got %d", rt.method, rt.path, rr.Code)
		}
	}
	if len(api.attendance.records) != 0 {
		t.Fatalf("rejected requests must not reach storage")
	}
}

func TestCreateAttendance(t *testing.T) {
	api := newTestAPI(t, Options{})
	before := time.Now()

	rr, env := api.do(http.MethodPost, "/api/attendance", map[string]any{
		"userId": "u1", "latitude": 1.23, "longitude": 4.56, "ip": "192.168.1.1", "photo": "base64photo",
		"createdAt": "1999-01-01T00:00:00Z",
	}, true)
	if rr.Code != http.StatusCreated || env.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d %+v", rr.Code, env)
	}
	var data createAttendanceResponse
	if err := json.Unmarshal(env.Data, &data); err != nil {
		t.Fatalf("decode data: %v", err)
	}
	if data.AttendanceID == "" {
		t.Fatalf("expected attendance id")
	}
	if d := data.CreatedAt.Sub(before); d < -time.Millisecond || d > 5*time.Second {
		t.Fatalf("createdAt %v is not server time near %v", data.CreatedAt, before)
	}

	stored := api.attendance.records[0]
	if stored.ID != data.AttendanceID || stored.Latitude != 1.23 || stored.Photo != "base64photo" || stored.IP != "192.168.1.1" {
		t.Fatalf("unexpected stored record: %+v", stored)
	}
}

func TestCreateAttendanceDefaults(t *testing.T) {
	api := newTestAPI(t, Options{})

	rr, _ := api.do(http.MethodPost, "/api/attendance", map[string]any{"latitude": 1.0, "longitude": 2.0}, true)
	if rr.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", rr.Code)
	}
	stored := api.attendance.records[0]
	if stored.UserID != "u1" {
		t.Fatalf("expected token identity, got %q", stored.UserID)
	}
	if stored.IP != "203.0.113.7" {
		t.Fatalf("expected client ip, got %q", stored.IP)
	}
}

func TestCreateAttendanceStorageFailure(t *testing.T) {
	api := newTestAPI(t, Options{})
	api.attendance.err = errors.New("Database error")

	rr, env := api.do(http.MethodPost, "/api/attendance", map[string]any{"userId": "u1"}, true)
	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rr.Code)
	}
	if env.Message != "Internal Server Error" || env.Error != "Database error" {
		t.Fatalf("unexpected envelope: %+v", env)
	}
}

func seedAttendance(api *testAPI) {
	at := func(day, hour int) time.Time { return time.Date(2023, 11, day, hour, 0, 0, 0, time.UTC) }
	api.attendance.records = []attendance.Record{
		{ID: "1", UserID: "u1", IP: "a", CreatedAt: at(1, 0)},
		{ID: "2", UserID: "u1", IP: "b", CreatedAt: at(2, 20)},
		{ID: "3", UserID: "u2", IP: "c", CreatedAt: at(2, 21)},
		{ID: "4", UserID: "u1", IP: "d", CreatedAt: at(5, 0)},
	}
}

func decodeViews(t *testing.T, env envelope) []map[string]any {
	t.Helper()
	var views []map[string]any
	if err := json.Unmarshal(env.Data, &views); err != nil {
		t.Fatalf("decode views: %v", err)
	}
	return views
}

func TestFilterAttendances(t *testing.T) {
	api := newTestAPI(t, Options{})
	seedAttendance(api)

	params := url.Values{"userId": {"u1"}, "fromDate": {"2023-11-01"}, "toDate": {"2023-11-02"}, "timezone": {"Asia/Jakarta"}}
	rr, env := api.do(http.MethodGet, "/api/attendance/filter?"+params.Encode(), nil, true)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d %+v", rr.Code, env)
	}
	views := decodeViews(t, env)
	if len(views) != 2 {
		t.Fatalf("expected 2 records in window, got %d", len(views))
	}
	if got := views[0]["created_at"]; got != "2023-11-01T07:00:00+07:00" {
		t.Fatalf("expected Jakarta time, got %v", got)
	}
	for _, key := range []string{"name", "latitude", "longitude", "ip", "created_at"} {
		if _, ok := views[0][key]; !ok {
			t.Fatalf("missing field %q in %v", key, views[0])
		}
	}
}

func TestFilterAttendancesBadInput(t *testing.T) {
	api := newTestAPI(t, Options{})
	for _, q := range []string{"timezone=Nowhere/Special", "fromDate=31-12-2023", "limit=abc"} {
		rr, env := api.do(http.MethodGet, "/api/attendance/filter?"+q, nil, true)
		if rr.Code != http.StatusBadRequest || env.Status != "error" {
			t.Fatalf("%s: expected 400, got %d %+v", q, rr.Code, env)
		}
	}
}

func TestListAttendances(t *testing.T) {
	api := newTestAPI(t, Options{})
	seedAttendance(api)

	rr, env := api.do(http.MethodGet, "/api/attendance", nil, true)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	views := decodeViews(t, env)
	if len(views) != 4 {
		t.Fatalf("expected all 4 records, got %d", len(views))
	}
	if got := views[0]["created_at"]; got != "2023-11-01T00:00:00Z" {
		t.Fatalf("expected UTC default, got %v", got)
	}

	api.attendance.err = errors.New("Database error")
	rr, env = api.do(http.MethodGet, "/api/attendance", nil, true)
	if rr.Code != http.StatusInternalServerError || env.Error != "Database error" {
		t.Fatalf("expected 500 with cause, got %d %+v", rr.Code, env)
	}
}

func TestGetUser(t *testing.T) {
	api := newTestAPI(t, Options{})

	rr, env := api.do(http.MethodGet, "/api/users/u1", nil, false)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	var u map[string]any
	if err := json.Unmarshal(env.Data, &u); err != nil {
		t.Fatalf("decode user: %v", err)
	}
	if u["userId"] != "u1" || u["name"] != "Alice" {
		t.Fatalf("unexpected user %v", u)
	}
	if _, ok := u["password"]; ok {
		t.Fatalf("password must not be returned")
	}

	rr, _ = api.do(http.MethodGet, "/api/users/ghost", nil, false)
	var body map[string]any
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	data, present := body["data"]
	if rr.Code != http.StatusOK || !present || data != nil {
		t.Fatalf("expected 200 with null data, got %d %s", rr.Code, rr.Body.String())
	}
}

func TestGetUserRequiresAuthWhenConfigured(t *testing.T) {
	api := newTestAPI(t, Options{ProfileReadRequiresAuth: true})

	if rr, _ := api.do(http.MethodGet, "/api/users/u1", nil, false); rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rr.Code)
	}
	if rr, _ := api.do(http.MethodGet, "/api/users/u1", nil, true); rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
}

func TestEditUser(t *testing.T) {
	api := newTestAPI(t, Options{})
	oldHash := api.users.hashes["u1"]

	rr, env := api.do(http.MethodPatch, "/api/users/u1", map[string]string{"name": "Alicia", "email": "alicia@example.com"}, true)
	if rr.Code != http.StatusOK || env.Message != "User updated successfully" {
		t.Fatalf("expected 200, got %d %+v", rr.Code, env)
	}
	if api.users.hashes["u1"] != oldHash {
		t.Fatalf("hash changed without a new password")
	}

	rr, _ = api.do(http.MethodPatch, "/api/users/u1", map[string]string{"name": "Alicia", "email": "alicia@example.com", "password": "fresh"}, true)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	if err := auth.VerifyPassword(api.users.hashes["u1"], "fresh"); err != nil {
		t.Fatalf("new password not stored: %v", err)
	}

	if rr, _ := api.do(http.MethodPatch, "/api/users/ghost", map[string]string{"name": "G", "email": "g@example.com"}, true); rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rr.Code)
	}
	if rr, _ := api.do(http.MethodPatch, "/api/users/u1", map[string]string{"name": "NoEmail"}, true); rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rr.Code)
	}

	api.users.err = errors.New("Database error")
	rr, env = api.do(http.MethodPatch, "/api/users/u1", map[string]string{"name": "A", "email": "a@example.com"}, true)
	if rr.Code != http.StatusInternalServerError || env.Error != "Database error" {
		t.Fatalf("expected 500 with cause, got %d %+v", rr.Code, env)
	}
}

func TestHealthz(t *testing.T) {
	api := newTestAPI(t, Options{HealthChecks: map[string]Pinger{"db": stubPinger(true), "redis": stubPinger(false)}})

	rr, _ := api.do(http.MethodGet, "/healthz", nil, false)
	if rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", rr.Code)
	}
	var body map[string]any
	_ = json.Unmarshal(rr.Body.Bytes(), &body)
	if body["db"] != true || body["redis"] != false {
		t.Fatalf("unexpected health body %v", body)
	}
}

func TestUnknownRoute(t *testing.T) {
	api := newTestAPI(t, Options{})
	rr, env := api.do(http.MethodGet, "/nope", nil, false)
	if rr.Code != http.StatusNotFound || env.Status != "error" {
		t.Fatalf("expected 404 envelope, got %d %+v", rr.Code, env)
	}
}
