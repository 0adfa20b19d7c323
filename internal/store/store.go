// Package store reads recipients from Postgres using the prepared statements
// registered by package db.
package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/beaconalert/beacon/internal/notify"
)

// Store implements notify.Store over a pgx pool.
type Store struct {
	pool *pgxpool.Pool
}

// New wraps a pool.
func New(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

var _ notify.Store = (*Store)(nil)

// ContactsForUser returns the saved emergency contacts of a user.
func (s *Store) ContactsForUser(ctx context.Context, userID string) ([]notify.Recipient, error) {
	rows, err := s.pool.Query(ctx, "contacts_for_user", userID)
	if err != nil {
		return nil, fmt.Errorf("get contacts: %w", err)
	}
	defer rows.Close()

	var contacts []notify.Recipient
	for rows.Next() {
		var c notify.Recipient
		if err := rows.Scan(&c.ID, &c.Name, &c.Email, &c.Phone); err != nil {
			return nil, fmt.Errorf("scan contact: %w", err)
		}
		contacts = append(contacts, c)
	}
	return contacts, rows.Err()
}

// UserIDsWithRoles returns the IDs of accounts holding any of roles.
func (s *Store) UserIDsWithRoles(ctx context.Context, roles []string) ([]string, error) {
	rows, err := s.pool.Query(ctx, "users_with_roles", roles)
	if err != nil {
		return nil, fmt.Errorf("get role holders: %w", err)
	}
	ids, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("scan role holder: %w", err)
	}
	return ids, nil
}

// ReporterName returns the profile name of a user, or "" if unknown.
func (s *Store) ReporterName(ctx context.Context, userID string) (string, error) {
	var name string
	err := s.pool.QueryRow(ctx, "profile_full_name", userID).Scan(&name)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("get reporter name: %w", err)
	}
	return name, nil
}

// ErrEmergencyNotFound is returned when no report has the requested id.
var ErrEmergencyNotFound = errors.New("emergency report not found")

// Emergency loads a report and its reporter name as a notify request.
func (s *Store) Emergency(ctx context.Context, id string) (notify.Request, error) {
	var req notify.Request
	err := s.pool.QueryRow(ctx, "emergency_by_id", id).Scan(
		&req.EmergencyID, &req.EmergencyType,
		&req.Latitude, &req.Longitude,
		&req.Description, &req.UserID, &req.ReporterName)
	if errors.Is(err, pgx.ErrNoRows) {
		return notify.Request{}, fmt.Errorf("%w: %s", ErrEmergencyNotFound, id)
	}
	if err != nil {
		return notify.Request{}, fmt.Errorf("get emergency %s: %w", id, err)
	}
	return req, nil
}
