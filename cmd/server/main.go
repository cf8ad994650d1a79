package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "time/tzdata"

	_ "modernc.org/sqlite"

	"gymdesk/internal/adapters/email"
	web "gymdesk/internal/adapters/http"
	"gymdesk/internal/adapters/http/perf"
	"gymdesk/internal/adapters/logger"
	"gymdesk/internal/adapters/payments"
	"gymdesk/internal/adapters/storage"
	accountStore "gymdesk/internal/adapters/storage/account"
	attendanceStore "gymdesk/internal/adapters/storage/attendance"
	memberStore "gymdesk/internal/adapters/storage/member"
	membershipStore "gymdesk/internal/adapters/storage/membership"
	paymentStore "gymdesk/internal/adapters/storage/payment"
	"gymdesk/internal/application/orchestrators"
	"gymdesk/internal/config"
)

// version is set at build time via -ldflags "-X main.version=..."
var version = "dev"

func main() {
	configPath := flag.String("config", "", "path to a YAML config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("config_load_failed", "error", err.Error())
		os.Exit(1)
	}
	logger.New(cfg.App.Env)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		slog.Error("server_failed", "error", err.Error())
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.Config) error {
	// WAL mode, foreign keys and a busy timeout for concurrent writers
	dsn := cfg.DB.Path + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=foreign_keys(ON)&_pragma=synchronous(NORMAL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return err
	}
	defer db.Close()
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(25)

	if err := db.PingContext(ctx); err != nil {
		return err
	}
	if err := storage.MigrateDB(db, cfg.DB.Path); err != nil {
		return err
	}

	collector := perf.NewCollector()
	timedDB := storage.NewTimedDB(db, collector, cfg.DB.SlowQueryMs)

	attendance := attendanceStore.NewSQLiteStore(timedDB)
	stores := &web.Stores{
		AccountStore:    accountStore.NewSQLiteStore(timedDB),
		MemberStore:     memberStore.NewSQLiteStore(timedDB),
		MembershipStore: membershipStore.NewSQLiteStore(timedDB),
		PaymentStore:    paymentStore.NewSQLiteStore(timedDB),
		AttendanceStore: attendance,
	}

	if _, err := orchestrators.ExecuteSeedAdmin(ctx, cfg.Admin.Email, cfg.Admin.Password,
		orchestrators.CreateAccountDeps{AccountStore: stores.AccountStore, MemberStore: stores.MemberStore}); err != nil {
		return err
	}

	// Open visits survive restarts, so the gauge starts from the table.
	if open, err := attendance.CountOpen(ctx); err == nil {
		collector.SetOpenSessions(open)
	} else {
		slog.Warn("open_sessions_count_failed", "error", err.Error())
	}

	var sender email.Sender
	if cfg.Email.ResendKey != "" {
		sender = email.NewResendSender(cfg.Email.ResendKey, cfg.Email.From, cfg.Email.ReplyTo)
		slog.Info("email_sender", "provider", "resend")
	} else {
		sender = email.NewNoopSender()
		if cfg.IsProduction() {
			slog.Warn("email_sender", "provider", "noop", "detail", "email.resend_key is not set, receipts are not delivered")
		}
	}

	handler, err := web.NewMux(ctx, web.Options{
		Config:    cfg,
		Stores:    stores,
		Collector: collector,
		Sender:    sender,
		Gateway:   payments.NewStubGateway(),
		Health:    timedDB.Ping,
	})
	if err != nil {
		return err
	}

	srv := &http.Server{
		Addr:              cfg.HTTP.Addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       2 * time.Minute,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("server_start",
			"version", version,
			"addr", cfg.HTTP.Addr,
			"env", cfg.App.Env,
			"schema", storage.LatestSchemaVersion(),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	slog.Info("server_shutdown")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
