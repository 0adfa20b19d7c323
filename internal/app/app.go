// Package app builds the process-scoped dependencies shared by the API
// server and the CLI from configuration.
package app

import (
	"context"
	"log/slog"
	"time"

	"github.com/beaconalert/beacon/internal/channel"
	"github.com/beaconalert/beacon/internal/config"
	"github.com/beaconalert/beacon/internal/db"
	"github.com/beaconalert/beacon/internal/identity"
	"github.com/beaconalert/beacon/internal/notify"
	"github.com/beaconalert/beacon/internal/store"
)

const bootPingTimeout = 5 * time.Second

// App holds every long-lived collaborator. Pool and Store are nil only when
// DATABASE_URL is unset or malformed; an unreachable database keeps them.
type App struct {
	Pool    *db.Pool
	Store   *store.Store
	Service *notify.Service
}

// New connects what it can. Missing credentials never fail start-up; they
// surface per request as Configuration errors or Unavailable channels.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	a := &App{}
	deps := notify.Deps{}

	if cfg.HasStore() {
		pool, err := db.Open(ctx, cfg)
		if err != nil {
			// Only a malformed DATABASE_URL lands here.
			logger.Error("Invalid database configuration", "error", err)
		} else {
			a.Pool = pool
			a.Store = store.New(pool.Pool)
			deps.Store = a.Store
			pingCtx, cancel := context.WithTimeout(ctx, bootPingTimeout)
			err := pool.Ping(pingCtx)
			cancel()
			if err != nil {
				logger.Warn("Database unreachable, lookups will fail until it recovers", "error", err)
			} else {
				logger.Info("Database connected",
					"min_conns", cfg.DBPoolMinConns,
					"max_conns", cfg.DBPoolMaxConns)
			}
		}
	} else {
		logger.Warn("DATABASE_URL not set")
	}

	if c := identity.NewClient(cfg.SupabaseURL, cfg.SupabaseServiceRoleKey, cfg.SendTimeout); c != nil {
		deps.Directory = c
	} else {
		logger.Warn("Identity provider not configured", "missing", cfg.MissingDirectoryKeys())
	}

	if e := channel.NewEmail(channel.EmailConfig{
		Host:     cfg.SMTPHost,
		Port:     cfg.SMTPPort,
		Username: cfg.SMTPUsername,
		Password: cfg.SMTPPassword,
		SSL:      cfg.SMTPSSL,
		From:     cfg.EmailFrom,
		Timeout:  cfg.SendTimeout,
	}, logger); e != nil {
		deps.Senders = append(deps.Senders, e)
	} else {
		logger.Warn("Email channel unavailable (no SMTP_PASSWORD / RESEND_API_KEY)")
	}

	if s := channel.NewSMS(channel.SMSConfig{
		AccountSID: cfg.TwilioAccountSID,
		AuthToken:  cfg.TwilioAuthToken,
		From:       cfg.TwilioPhoneNumber,
		BaseURL:    cfg.TwilioBaseURL,
		Timeout:    cfg.SendTimeout,
	}, logger); s != nil {
		deps.Senders = append(deps.Senders, s)
	} else {
		logger.Warn("SMS channel unavailable (Twilio credentials incomplete)")
	}

	svc, err := notify.NewService(deps, notify.Options{MaxConcurrency: cfg.DispatchMaxConcurrency}, logger)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.Service = svc
	return a, nil
}

// Close releases the pool, if any.
func (a *App) Close() {
	if a.Pool != nil {
		a.Pool.Close()
	}
}
