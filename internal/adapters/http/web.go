package web

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
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
	"gymdesk/internal/config"
	domainAccount "gymdesk/internal/domain/account"
)

// Stores holds all storage dependencies.
type Stores struct {
	AccountStore    accountStore.Store
	MemberStore     memberStore.Store
	MembershipStore membershipStore.Store
	PaymentStore    paymentStore.Store
	AttendanceStore attendanceStore.Store
}

// Options configures NewMux. Collector, Sender, Sessions, Health and Now are optional.
type Options struct {
	Config    config.Config
	Stores    *Stores
	Collector *perf.Collector
	Sender    email.Sender
	Gateway   payments.Gateway
	Sessions  *middleware.SessionStore
	Health    func(ctx context.Context) error
	Now       func() time.Time
}

// RateLimitPerSecond controls the per-IP rate limit. Tests can increase this.
var RateLimitPerSecond = 10

// app carries the request-independent state shared by every handler.
type app struct {
	cfg       config.Config
	stores    *Stores
	sessions  *middleware.SessionStore
	collector *perf.Collector
	sender    email.Sender
	gateway   payments.Gateway
	health    func(ctx context.Context) error
	now       func() time.Time
	loc       *time.Location
}

// loadCSRFKey decodes security.csrf_key (hex, 32 bytes).
// Production requires the key; development falls back to a random key per start.
func loadCSRFKey(cfg config.Config) ([]byte, error) {
	if keyHex := cfg.Security.CSRFKey; keyHex != "" {
		key, err := hex.DecodeString(keyHex)
		if err != nil || len(key) != 32 {
			return nil, errors.New("security.csrf_key must be 64 hex characters (32 bytes)")
		}
		return key, nil
	}
	if cfg.IsProduction() {
		return nil, errors.New("security.csrf_key is required in production")
	}
	key := make([]byte, 32)
	if _, err := rand.Read(key); err != nil {
		return nil, fmt.Errorf("generate CSRF key: %w", err)
	}
	slog.Warn("using random CSRF key; set GYMDESK_SECURITY_CSRF_KEY for production")
	return key, nil
}

// NewMux wires HTTP handlers for the app. ctx bounds the rate limiter's
// background sweep.
// PRE: opts.Stores and opts.Gateway are set
func NewMux(ctx context.Context, opts Options) (http.Handler, error) {
	if opts.Stores == nil || opts.Gateway == nil {
		return nil, errors.New("web: stores and gateway are required")
	}
	csrfKey, err := loadCSRFKey(opts.Config)
	if err != nil {
		return nil, err
	}

	a := &app{
		cfg:       opts.Config,
		stores:    opts.Stores,
		sessions:  opts.Sessions,
		collector: opts.Collector,
		sender:    opts.Sender,
		gateway:   opts.Gateway,
		health:    opts.Health,
		now:       opts.Now,
		loc:       opts.Config.Location(),
	}
	if a.sessions == nil {
		a.sessions = middleware.NewSessionStore(opts.Config.Security.SessionTTL)
	}
	if a.now == nil {
		a.now = time.Now
	}

	mux := http.NewServeMux()
	a.registerRoutes(mux)

	limiter := middleware.NewRateLimiter(ctx, RateLimitPerSecond, time.Second)

	// Timing -> RateLimit -> Auth -> CSRF -> SecurityHeaders -> CaptureRoute -> Mux
	return middleware.Chain(mux,
		middleware.CaptureRoute,
		middleware.SecurityHeaders,
		middleware.CSRF(csrfKey, opts.Config.IsProduction(), opts.Config.Security.TrustedOrigins),
		middleware.Auth(a.sessions),
		middleware.RateLimit(limiter),
		middleware.Timing(opts.Collector, opts.Config.HTTP.SlowRequestMs),
	), nil
}

// registerRoutes mounts every endpoint with its access rule.
func (a *app) registerRoutes(mux *http.ServeMux) {
	staff := middleware.RequireRole(domainAccount.RoleAdmin, domainAccount.RoleTrainer)
	admin := middleware.RequireRole(domainAccount.RoleAdmin)
	authed := middleware.RequireAuth

	mux.HandleFunc("GET /health", a.handleHealth)
	if a.cfg.Metrics.Enabled && a.collector != nil {
		mux.Handle("GET /metrics", a.collector.Handler())
	}

	mux.HandleFunc("POST /api/auth/login", a.handleLogin)
	mux.HandleFunc("POST /api/auth/logout", a.handleLogout)
	mux.Handle("GET /api/auth/me", authed(http.HandlerFunc(a.handleMe)))
	mux.Handle("POST /api/auth/password", authed(http.HandlerFunc(a.handleChangePassword)))
	mux.Handle("POST /api/accounts", admin(http.HandlerFunc(a.handleCreateAccount)))

	mux.Handle("GET /api/members", staff(http.HandlerFunc(a.handleMemberList)))
	mux.Handle("POST /api/members", staff(http.HandlerFunc(a.handleMemberCreate)))
	mux.Handle("GET /api/members/{id}", staff(http.HandlerFunc(a.handleMemberGet)))
	mux.Handle("PUT /api/members/{id}", staff(http.HandlerFunc(a.handleMemberUpdate)))
	mux.Handle("POST /api/members/{id}/archive", admin(http.HandlerFunc(a.handleMemberArchive)))
	mux.Handle("POST /api/members/{id}/restore", admin(http.HandlerFunc(a.handleMemberRestore)))
	mux.Handle("GET /api/members/{id}/payments", staff(http.HandlerFunc(a.handleMemberPayments)))
	mux.Handle("GET /api/members/{id}/subscriptions", staff(http.HandlerFunc(a.handleMemberSubscriptions)))

	mux.Handle("GET /api/memberships", authed(http.HandlerFunc(a.handlePlanList)))
	mux.Handle("GET /api/memberships/{id}", authed(http.HandlerFunc(a.handlePlanGet)))
	mux.Handle("POST /api/memberships", admin(http.HandlerFunc(a.handlePlanCreate)))
	mux.Handle("PUT /api/memberships/{id}", admin(http.HandlerFunc(a.handlePlanUpdate)))
	mux.Handle("DELETE /api/memberships/{id}", admin(http.HandlerFunc(a.handlePlanDelete)))
	mux.Handle("POST /api/memberships/subscribe", authed(http.HandlerFunc(a.handleSubscribe)))
	mux.Handle("PUT /api/subscriptions/{id}", admin(http.HandlerFunc(a.handleSubscriptionSetActive)))
	mux.Handle("GET /api/my-membership", authed(http.HandlerFunc(a.handleMyMembership)))
	mux.Handle("GET /api/member/payments", authed(http.HandlerFunc(a.handleMyPayments)))
	mux.Handle("POST /api/entitlements/resolve", authed(http.HandlerFunc(a.handleResolveEntitlement)))

	mux.Handle("GET /api/attendances", authed(http.HandlerFunc(a.handleAttendanceList)))
	mux.Handle("GET /api/attendances/stats", staff(http.HandlerFunc(a.handleAttendanceStats)))
	mux.Handle("POST /api/attendances/check-in", authed(http.HandlerFunc(a.handleCheckIn)))
	mux.Handle("POST /api/attendances/{id}/check-out", authed(http.HandlerFunc(a.handleCheckOut)))
}

// handleHealth handles GET /health
func (a *app) handleHealth(w http.ResponseWriter, r *http.Request) {
	if a.health != nil {
		if err := a.health(r.Context()); err != nil {
			slog.Error("health_check_failed", "error", err.Error())
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
