// Package db provides a pgxpool-based connection pool with prepared statement
// registration and health checking.
package db

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/beaconalert/beacon/internal/config"
)

// Pool wraps pgxpool.Pool with application-specific helpers.
type Pool struct {
	*pgxpool.Pool
}

// New creates a pool and verifies connectivity.
func New(ctx context.Context, cfg *config.Config) (*Pool, error) {
	p, err := Open(ctx, cfg)
	if err != nil {
		return nil, err
	}
	if err := p.Ping(ctx); err != nil {
		p.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return p, nil
}

// Open creates a pool without waiting for the database. Connections are
// made on demand, so a pool opened during an outage recovers by itself.
func Open(ctx context.Context, cfg *config.Config) (*Pool, error) {
	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is not set")
	}
	poolCfg, err := pgxpool.ParseConfig(cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse database URL: %w", err)
	}

	if cfg.DBPoolMinConns > 0 {
		poolCfg.MinConns = int32(cfg.DBPoolMinConns)
	}
	if cfg.DBPoolMaxConns > 0 {
		poolCfg.MaxConns = int32(cfg.DBPoolMaxConns)
	}
	if cfg.DBPoolMaxLife > 0 {
		poolCfg.MaxConnLifetime = cfg.DBPoolMaxLife
	}
	poolCfg.MaxConnIdleTime = 5 * time.Minute

	// Register prepared statements on every new connection.
	poolCfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		return registerPreparedStatements(ctx, conn)
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}
	return &Pool{Pool: pool}, nil
}

// HealthCheck runs a trivial query to verify the database is reachable.
func (p *Pool) HealthCheck(ctx context.Context) error {
	var n int
	return p.QueryRow(ctx, "health_check").Scan(&n)
}

// InstallEmergencyTrigger creates (or replaces) the trigger that publishes
// every new emergency report on EmergencyChannel.
func (p *Pool) InstallEmergencyTrigger(ctx context.Context) error {
	if _, err := p.Exec(ctx, EmergencyTriggerSQL); err != nil {
		return fmt.Errorf("install emergency trigger: %w", err)
	}
	return nil
}

// Statements lists every prepared statement by name.
var Statements = map[string]string{
	// Health
	"health_check": "SELECT 1",

	// Personal contacts of a reporter
	"contacts_for_user": `SELECT id::text, COALESCE(name, ''), COALESCE(email, ''), COALESCE(phone, '')
		FROM contacts WHERE user_id = $1 ORDER BY name, id`,

	// Accounts holding any of the given roles
	"users_with_roles": `SELECT DISTINCT user_id::text FROM user_roles
		WHERE role::text = ANY($1) ORDER BY 1`,

	// Reporter display name
	"profile_full_name": "SELECT COALESCE(full_name, '') FROM profiles WHERE id = $1",

	// Emergency report announced on EmergencyChannel, with its reporter
	"emergency_by_id": `SELECT e.id::text, COALESCE(e.emergency_type::text, ''),
		COALESCE(e.latitude, 0)::float8, COALESCE(e.longitude, 0)::float8,
		COALESCE(e.description, ''), COALESCE(e.user_id::text, ''),
		COALESCE(p.full_name, '')
		FROM emergency_reports e LEFT JOIN profiles p ON p.id = e.user_id
		WHERE e.id::text = $1`,
}

// registerPreparedStatements registers all statements the store and
// listener use.
func registerPreparedStatements(ctx context.Context, conn *pgx.Conn) error {
	for name, sql := range Statements {
		if _, err := conn.Prepare(ctx, name, sql); err != nil {
			return fmt.Errorf("prepare %q: %w", name, err)
		}
	}
	return nil
}
