// Package listener consumes new emergency reports from Postgres
// LISTEN/NOTIFY. It holds a dedicated pgx connection (not from the pool)
// listening on the emergency_created channel.
//
// Each report fires pg_notify from an AFTER INSERT trigger with only its id;
// this consumer loads the report and runs the responders strategy, plus the
// personal contacts strategy when the report carries a reporter.
package listener

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/beaconalert/beacon/internal/db"
	"github.com/beaconalert/beacon/internal/notify"
)

const (
	reconnectBackoff = 5 * time.Second
	maxReconnect     = 30 * time.Second
)

// Notifier runs one notify request.
type Notifier interface {
	Notify(ctx context.Context, strategy notify.Strategy, req notify.Request) (notify.Report, error)
}

// Reports loads the emergency report an event refers to.
type Reports interface {
	Emergency(ctx context.Context, id string) (notify.Request, error)
}

// Listener turns emergency_created events into notify requests.
type Listener struct {
	dbURL    string
	notifier Notifier
	reports  Reports
	logger   *slog.Logger
}

// New builds a Listener. With nil reports, events are used as decoded.
func New(dbURL string, notifier Notifier, reports Reports, logger *slog.Logger) *Listener {
	return &Listener{dbURL: dbURL, notifier: notifier, reports: reports, logger: logger}
}

// Start listens until ctx is cancelled, reconnecting on connection loss.
// Intended to be called with `go`.
func (l *Listener) Start(ctx context.Context) {
	backoff := reconnectBackoff

	for {
		err := l.listenLoop(ctx)
		if ctx.Err() != nil {
			l.logger.Info("Emergency listener stopped (context cancelled)")
			return
		}

		l.logger.Error("Emergency listener disconnected, reconnecting...",
			"error", err, "backoff", backoff)

		select {
		case <-time.After(backoff):
			backoff = min(backoff*2, maxReconnect)
		case <-ctx.Done():
			return
		}
	}
}

func (l *Listener) listenLoop(ctx context.Context) error {
	conn, err := pgx.Connect(ctx, l.dbURL)
	if err != nil {
		return fmt.Errorf("connect: %w", err)
	}
	defer conn.Close(context.Background())

	if _, err := conn.Exec(ctx, "LISTEN "+db.EmergencyChannel); err != nil {
		return fmt.Errorf("LISTEN %s: %w", db.EmergencyChannel, err)
	}
	l.logger.Info("Emergency listener connected", "channel", db.EmergencyChannel)

	for {
		n, err := conn.WaitForNotification(ctx)
		if err != nil {
			return fmt.Errorf("wait for notification: %w", err)
		}

		req, err := ParseEvent(n.Payload)
		if err != nil {
			l.logger.Warn("Failed to parse emergency event",
				"payload", n.Payload, "error", err)
			continue
		}

		l.logger.Info("Emergency event received", "emergency_id", req.EmergencyID)

		// Process asynchronously to avoid blocking the listener
		go l.Handle(ctx, req)
	}
}

// ParseEvent decodes a pg_notify payload. Only emergency_id is required;
// any other request field present is kept.
func ParseEvent(payload string) (notify.Request, error) {
	var req notify.Request
	if err := json.Unmarshal([]byte(payload), &req); err != nil {
		return notify.Request{}, fmt.Errorf("decode event: %w", err)
	}
	if req.EmergencyID == "" {
		return notify.Request{}, fmt.Errorf("decode event: missing emergency_id")
	}
	return req, nil
}

// Handle loads the report behind an event and fans it out. Failures are
// logged, never retried.
func (l *Listener) Handle(ctx context.Context, req notify.Request) {
	if l.reports != nil {
		full, err := l.reports.Emergency(ctx, req.EmergencyID)
		if err != nil {
			l.logger.Error("Failed to load emergency report",
				"emergency_id", req.EmergencyID, "error", err)
			return
		}
		req = full
	}

	strategies := []notify.Strategy{notify.StrategyResponders}
	if req.UserID != "" {
		strategies = append(strategies, notify.StrategyContacts)
	}

	for _, strategy := range strategies {
		rep, err := l.notifier.Notify(ctx, strategy, req)
		if err != nil {
			l.logger.Warn("Emergency notification failed",
				"strategy", strategy, "emergency_id", req.EmergencyID, "error", err)
			continue
		}
		l.logger.Info("Emergency notifications dispatched",
			"strategy", strategy,
			"emergency_id", req.EmergencyID,
			"recipients", rep.TotalRecipients,
			"sent", rep.TotalSent(),
			"failed", rep.TotalFailed())
	}
}
