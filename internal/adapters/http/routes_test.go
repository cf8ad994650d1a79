package web

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"gymdesk/internal/adapters/email"
	"gymdesk/internal/adapters/http/middleware"
	"gymdesk/internal/adapters/http/perf"
	"gymdesk/internal/adapters/payments"
	accountStore "gymdesk/internal/adapters/storage/account"
	attendanceStore "gymdesk/internal/adapters/storage/attendance"
	memberStore "gymdesk/internal/adapters/storage/member"
	membershipStore "gymdesk/internal/adapters/storage/membership"
	paymentStore "gymdesk/internal/adapters/storage/payment"
	"gymdesk/internal/adapters/storage/storagetest"
	"gymdesk/internal/config"
	domainAccount "gymdesk/internal/domain/account"
	domainMember "gymdesk/internal/domain/member"
	domainMembership "gymdesk/internal/domain/membership"
)

var testNow = time.Date(2025, 3, 4, 9, 0, 0, 0, time.UTC)

// testEnv is a fully wired handler over an in-memory database.
type testEnv struct {
	t         *testing.T
	handler   http.Handler
	stores    *Stores
	sessions  *middleware.SessionStore
	gateway   *payments.StubGateway
	sender    *email.NoopSender
	collector *perf.Collector
}

func newTestEnv(t *testing.T, configure ...func(*config.Config)) *testEnv {
	t.Helper()
	RateLimitPerSecond = 10000

	db := storagetest.Open(t)
	cfg := config.Config{}
	cfg.App.Env = "test"
	cfg.App.Timezone = "UTC"
	cfg.Security.SessionTTL = time.Hour
	cfg.Metrics.Enabled = true
	for _, c := range configure {
		c(&cfg)
	}

	env := &testEnv{
		t: t,
		stores: &Stores{
			AccountStore:    accountStore.NewSQLiteStore(db),
			MemberStore:     memberStore.NewSQLiteStore(db),
			MembershipStore: membershipStore.NewSQLiteStore(db),
			PaymentStore:    paymentStore.NewSQLiteStore(db),
			AttendanceStore: attendanceStore.NewSQLiteStore(db),
		},
		sessions:  middleware.NewSessionStore(time.Hour),
		gateway:   payments.NewStubGateway(),
		sender:    email.NewNoopSender(),
		collector: perf.NewCollector(),
	}

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	h, err := NewMux(ctx, Options{
		Config:    cfg,
		Stores:    env.stores,
		Collector: env.collector,
		Sender:    env.sender,
		Gateway:   env.gateway,
		Sessions:  env.sessions,
		Health:    db.PingContext,
		Now:       func() time.Time { return testNow },
	})
	if err != nil {
		t.Fatalf("NewMux: %v", err)
	}
	env.handler = h
	return env
}

// token mints a session without going through bcrypt.
func (e *testEnv) token(role string, memberID int64) string {
	e.t.Helper()
	tok, err := e.sessions.Create(domainAccount.Account{ID: memberID + 100, Email: role + "@gymdesk.test", Role: role, MemberID: memberID})
	if err != nil {
		e.t.Fatalf("create session: %v", err)
	}
	return tok
}

// do sends a JSON request. body may be nil, a raw string, or a value to marshal.
func (e *testEnv) do(method, path, token string, body any) *httptest.ResponseRecorder {
	e.t.Helper()
	var rdr io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		rdr = strings.NewReader(b)
	default:
		raw, err := json.Marshal(b)
		if err != nil {
			e.t.Fatalf("marshal body: %v", err)
		}
		rdr = strings.NewReader(string(raw))
	}
	req := httptest.NewRequest(method, path, rdr)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	e.handler.ServeHTTP(rec, req)
	return rec
}

func (e *testEnv) seedMember(name string) domainMember.Member {
	e.t.Helper()
	m := domainMember.Member{
		Name:     name,
		Email:    strings.ToLower(strings.ReplaceAll(name, " ", ".")) + "@gymdesk.test",
		Status:   domainMember.StatusActive,
		JoinedAt: testNow.AddDate(0, -1, 0),
	}
	if err := e.stores.MemberStore.Save(context.Background(), &m); err != nil {
		e.t.Fatalf("seed member %s: %v", name, err)
	}
	return m
}

func (e *testEnv) seedPlan(name string, price domainMembership.Amount, active bool) domainMembership.Plan {
	e.t.Helper()
	p := domainMembership.Plan{Name: name, Price: price, DurationDays: 30, Features: domainMembership.Features{"Gym floor"}, IsActive: active, CreatedAt: testNow}
	if err := e.stores.MembershipStore.SavePlan(context.Background(), &p); err != nil {
		e.t.Fatalf("seed plan %s: %v", name, err)
	}
	return p
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(rec.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode %q: %v", rec.Body.String(), err)
	}
	return v
}

func expectStatus(t *testing.T, rec *httptest.ResponseRecorder, want int) {
	t.Helper()
	if rec.Code != want {
		t.Fatalf("status = %d, want %d; body = %s", rec.Code, want, rec.Body.String())
	}
}

// TestHealth verifies the health probe and security headers.
func TestHealth(t *testing.T) {
	env := newTestEnv(t)
	rec := env.do("GET", "/health", "", nil)
	expectStatus(t, rec, http.StatusOK)
	if got := decode[map[string]string](t, rec)["status"]; got != "ok" {
		t.Errorf("status = %q, want ok", got)
	}
	if rec.Header().Get("X-Content-Type-Options") != "nosniff" {
		t.Error("security headers missing")
	}
	if rec.Header().Get(middleware.RequestIDHeader) == "" {
		t.Error("request id header missing")
	}
}

// TestRoutes_AccessRules verifies each role reaches only its own endpoints.
func TestRoutes_AccessRules(t *testing.T) {
	env := newTestEnv(t)
	ana := env.seedMember("Ana Silva")
	admin := env.token(domainAccount.RoleAdmin, 0)
	trainer := env.token(domainAccount.RoleTrainer, 0)
	memberTok := env.token(domainAccount.RoleMember, ana.ID)

	tests := []struct {
		name   string
		method string
		path   string
		token  string
		want   int
	}{
		{"anonymous member list", "GET", "/api/members", "", http.StatusUnauthorized},
		{"member cannot list members", "GET", "/api/members", memberTok, http.StatusForbidden},
		{"trainer lists members", "GET", "/api/members", trainer, http.StatusOK},
		{"trainer cannot archive", "POST", "/api/members/1/archive", trainer, http.StatusForbidden},
		{"member cannot read stats", "GET", "/api/attendances/stats", memberTok, http.StatusForbidden},
		{"admin reads stats", "GET", "/api/attendances/stats", admin, http.StatusOK},
		{"member reads plans", "GET", "/api/memberships", memberTok, http.StatusOK},
		{"trainer cannot delete plans", "DELETE", "/api/memberships/1", trainer, http.StatusForbidden},
		{"staff have no membership", "GET", "/api/my-membership", admin, http.StatusForbidden},
		{"member reads own membership", "GET", "/api/my-membership", memberTok, http.StatusOK},
		{"anonymous resolve", "POST", "/api/entitlements/resolve", "", http.StatusUnauthorized},
		{"unknown session", "GET", "/api/auth/me", "not-a-token", http.StatusUnauthorized},
		{"bad id", "GET", "/api/members/abc", admin, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := env.do(tt.method, tt.path, tt.token, nil)
			if rec.Code != tt.want {
				t.Errorf("%s %s = %d, want %d; body = %s", tt.method, tt.path, rec.Code, tt.want, rec.Body.String())
			}
		})
	}
}

// TestLoginLogout exercises the password flow end to end.
func TestLoginLogout(t *testing.T) {
	env := newTestEnv(t)

	create := env.do("POST", "/api/accounts", env.token(domainAccount.RoleAdmin, 0), map[string]any{
		"email": "Coach@GymDesk.test", "password": "correct horse battery", "role": "trainer",
	})
	expectStatus(t, create, http.StatusCreated)
	if body := create.Body.String(); strings.Contains(body, "hash") || strings.Contains(body, "$2a$") {
		t.Errorf("account response leaks the password hash: %s", body)
	}

	bad := env.do("POST", "/api/auth/login", "", map[string]string{"email": "coach@gymdesk.test", "password": "wrong password!"})
	expectStatus(t, bad, http.StatusUnauthorized)

	login := env.do("POST", "/api/auth/login", "", map[string]string{"email": "coach@gymdesk.test", "password": "correct horse battery"})
	expectStatus(t, login, http.StatusOK)
	resp := decode[loginResponse](t, login)
	if resp.Token == "" || resp.User.Role != domainAccount.RoleTrainer || resp.User.Email != "coach@gymdesk.test" {
		t.Fatalf("login response = %+v", resp)
	}
	if cookie := login.Header().Get("Set-Cookie"); !strings.Contains(cookie, "HttpOnly") {
		t.Errorf("session cookie = %q", cookie)
	}

	me := env.do("GET", "/api/auth/me", resp.Token, nil)
	expectStatus(t, me, http.StatusOK)
	if got := decode[accountView](t, me); got.Email != "coach@gymdesk.test" {
		t.Errorf("me = %+v", got)
	}

	expectStatus(t, env.do("POST", "/api/auth/logout", resp.Token, nil), http.StatusNoContent)
	expectStatus(t, env.do("GET", "/api/auth/me", resp.Token, nil), http.StatusUnauthorized)
}

// TestCreateAccount_Validation verifies DTO errors name the offending json field.
func TestCreateAccount_Validation(t *testing.T) {
	env := newTestEnv(t)
	admin := env.token(domainAccount.RoleAdmin, 0)

	rec := env.do("POST", "/api/accounts", admin, map[string]any{"email": "not-an-email", "password": "x", "role": "owner"})
	expectStatus(t, rec, http.StatusBadRequest)
	body := decode[struct {
		Errors map[string]string `json:"errors"`
	}](t, rec)
	if body.Errors["email"] != "email" || body.Errors["role"] != "oneof" {
		t.Errorf("errors = %v", body.Errors)
	}

	rec = env.do("POST", "/api/accounts", admin, map[string]any{"email": "m@gymdesk.test", "password": "long enough pass", "role": "member"})
	expectStatus(t, rec, http.StatusBadRequest)

	rec = env.do("POST", "/api/accounts", admin, `{"email":"a@gymdesk.test","password":"long enough pass","role":"admin","extra":1}`)
	expectStatus(t, rec, http.StatusBadRequest)
}

// TestMetricsEndpoint verifies Prometheus exposition is served when enabled.
func TestMetricsEndpoint(t *testing.T) {
	env := newTestEnv(t)
	env.do("GET", "/health", "", nil)
	rec := env.do("GET", "/metrics", "", nil)
	expectStatus(t, rec, http.StatusOK)
	if !strings.Contains(rec.Body.String(), "gymdesk_http_request_duration_seconds") {
		t.Error("request histogram missing from /metrics")
	}

	off := newTestEnv(t, func(c *config.Config) { c.Metrics.Enabled = false })
	expectStatus(t, off.do("GET", "/metrics", "", nil), http.StatusNotFound)
}

// TestMetrics_RouteLabels verifies authenticated requests are labelled with
// their route pattern rather than "unmatched".
func TestMetrics_RouteLabels(t *testing.T) {
	env := newTestEnv(t)
	admin := env.token(domainAccount.RoleAdmin, 0)
	expectStatus(t, env.do("GET", "/api/members", admin, nil), http.StatusOK)
	expectStatus(t, env.do("GET", "/health", "", nil), http.StatusOK)

	body := env.do("GET", "/metrics", "", nil).Body.String()
	for _, want := range []string{
		`route="GET /api/members",status="200"} 1`,
		`route="GET /health",status="200"} 1`,
	} {
		if !strings.Contains(body, want) {
			t.Errorf("/metrics missing %s", want)
		}
	}
	if strings.Contains(body, `route="unmatched"`) {
		t.Error("matched requests should not be labelled unmatched")
	}
}

// TestNewMux_ProductionNeedsCSRFKey verifies production refuses to start without a key.
func TestNewMux_ProductionNeedsCSRFKey(t *testing.T) {
	cfg := config.Config{}
	cfg.App.Env = "production"
	cfg.App.Timezone = "UTC"
	_, err := NewMux(context.Background(), Options{Config: cfg, Stores: &Stores{}, Gateway: payments.NewStubGateway()})
	if err == nil {
		t.Fatal("expected an error without security.csrf_key")
	}

	cfg.Security.CSRFKey = "zz"
	if _, err := loadCSRFKey(cfg); err == nil {
		t.Error("expected an error for a malformed key")
	}
	cfg.Security.CSRFKey = strings.Repeat("ab", 32)
	if key, err := loadCSRFKey(cfg); err != nil || len(key) != 32 {
		t.Errorf("loadCSRFKey = %d bytes, %v", len(key), err)
	}
}
