package store

import (
	"context"
	"encoding/json"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/beaconalert/beacon/internal/config"
	"github.com/beaconalert/beacon/internal/db"
	"github.com/beaconalert/beacon/internal/notify"
)

const fixtureSQL = `
CREATE TABLE IF NOT EXISTS contacts (id text PRIMARY KEY, user_id text, name text, phone text, email text);
CREATE TABLE IF NOT EXISTS user_roles (user_id text, role text);
CREATE TABLE IF NOT EXISTS profiles (id text PRIMARY KEY, full_name text, phone text);
CREATE TABLE IF NOT EXISTS emergency_reports (id text PRIMARY KEY, user_id text, emergency_type text,
	latitude double precision, longitude double precision, description text);
DELETE FROM emergency_reports WHERE id LIKE 'storetest-%';
DELETE FROM contacts WHERE user_id LIKE 'storetest-%';
DELETE FROM user_roles WHERE user_id LIKE 'storetest-%';
DELETE FROM profiles WHERE id LIKE 'storetest-%';
INSERT INTO contacts VALUES
	('storetest-c1', 'storetest-u1', 'Ann', NULL, 'ann@example.com'),
	('storetest-c2', 'storetest-u1', 'Bob', '+15550002', NULL);
INSERT INTO user_roles VALUES
	('storetest-r1', 'storetest-responder'),
	('storetest-r2', 'storetest-admin'),
	('storetest-r1', 'storetest-admin'),
	('storetest-x', 'storetest-citizen');
INSERT INTO profiles VALUES ('storetest-u1', 'Dana', NULL);
INSERT INTO emergency_reports VALUES
	('storetest-e1', 'storetest-u1', 'fire', 40.5, -73.25, 'Smoke on 3rd floor'),
	('storetest-e2', NULL, 'flood', NULL, NULL, NULL);
`

// Runs against a scratch database when BEACON_TEST_DATABASE_URL is set.
func testStore(t *testing.T) *Store {
	s, _ := testStoreWithPool(t)
	return s
}

func testStoreWithPool(t *testing.T) (*Store, *db.Pool) {
	t.Helper()
	url := os.Getenv("BEACON_TEST_DATABASE_URL")
	if url == "" {
		t.Skip("BEACON_TEST_DATABASE_URL not set")
	}
	ctx := context.Background()

	// Tables must exist before the pool prepares its statements.
	conn, err := pgx.Connect(ctx, url)
	require.NoError(t, err)
	_, err = conn.Exec(ctx, fixtureSQL)
	require.NoError(t, err)
	require.NoError(t, conn.Close(ctx))

	pool, err := db.New(ctx, &config.Config{DatabaseURL: url, DBPoolMinConns: 1, DBPoolMaxConns: 2})
	require.NoError(t, err)
	t.Cleanup(pool.Close)
	return New(pool.Pool), pool
}

func TestStoreQueries(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	contacts, err := s.ContactsForUser(ctx, "storetest-u1")
	require.NoError(t, err)
	assert.Equal(t, []notify.Recipient{
		{ID: "storetest-c1", Name: "Ann", Email: "ann@example.com"},
		{ID: "storetest-c2", Name: "Bob", Phone: "+15550002"},
	}, contacts)

	none, err := s.ContactsForUser(ctx, "storetest-nobody")
	require.NoError(t, err)
	assert.Empty(t, none)

	ids, err := s.UserIDsWithRoles(ctx, []string{"storetest-responder", "storetest-admin"})
	require.NoError(t, err)
	assert.Equal(t, []string{"storetest-r1", "storetest-r2"}, ids)

	name, err := s.ReporterName(ctx, "storetest-u1")
	require.NoError(t, err)
	assert.Equal(t, "Dana", name)

	name, err = s.ReporterName(ctx, "storetest-missing")
	require.NoError(t, err)
	assert.Empty(t, name)
}

func TestStoreEmergency(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	req, err := s.Emergency(ctx, "storetest-e1")
	require.NoError(t, err)
	assert.Equal(t, notify.Request{
		EmergencyID:   "storetest-e1",
		EmergencyType: "fire",
		Latitude:      40.5,
		Longitude:     -73.25,
		Description:   "Smoke on 3rd floor",
		UserID:        "storetest-u1",
		ReporterName:  "Dana",
	}, req)

	req, err = s.Emergency(ctx, "storetest-e2")
	require.NoError(t, err)
	assert.Equal(t, "flood", req.EmergencyType)
	assert.Empty(t, req.UserID)
	assert.Empty(t, req.ReporterName)

	_, err = s.Emergency(ctx, "storetest-missing")
	assert.ErrorIs(t, err, ErrEmergencyNotFound)
}

func TestEmergencyTriggerWithLongDescription(t *testing.T) {
	s, pool := testStoreWithPool(t)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	require.NoError(t, pool.InstallEmergencyTrigger(ctx))

	conn, err := pgx.Connect(ctx, os.Getenv("BEACON_TEST_DATABASE_URL"))
	require.NoError(t, err)
	defer conn.Close(context.Background())
	_, err = conn.Exec(ctx, "LISTEN "+db.EmergencyChannel)
	require.NoError(t, err)

	// Larger than the 8000 byte pg_notify payload limit.
	long := strings.Repeat("x", 10000)
	_, err = pool.Exec(ctx, `INSERT INTO emergency_reports VALUES ('storetest-e3', 'storetest-u1', 'fire', 1, 2, $1)`, long)
	require.NoError(t, err)

	n, err := conn.WaitForNotification(ctx)
	require.NoError(t, err)
	var payload map[string]string
	require.NoError(t, json.Unmarshal([]byte(n.Payload), &payload))
	assert.Equal(t, map[string]string{"emergency_id": "storetest-e3", "user_id": "storetest-u1"}, payload)

	req, err := s.Emergency(ctx, "storetest-e3")
	require.NoError(t, err)
	assert.Equal(t, long, req.Description)
}
