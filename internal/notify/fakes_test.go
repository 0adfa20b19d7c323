package notify

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fakeStore struct {
	contacts   map[string][]Recipient
	roleIDs    []string
	contactErr error
	roleErr    error
}

func (f *fakeStore) ContactsForUser(_ context.Context, userID string) ([]Recipient, error) {
	if f.contactErr != nil {
		return nil, f.contactErr
	}
	return f.contacts[userID], nil
}

func (f *fakeStore) UserIDsWithRoles(_ context.Context, _ []string) ([]string, error) {
	if f.roleErr != nil {
		return nil, f.roleErr
	}
	return f.roleIDs, nil
}

type fakeDirectory struct {
	users []DirectoryUser
	err   error
}

func (f *fakeDirectory) ListUsers(context.Context) ([]DirectoryUser, error) {
	return f.users, f.err
}

// fakeSender records every address it was asked to deliver to. failFor
// makes sends to specific addresses fail; failAll fails everything.
type fakeSender struct {
	channel Channel
	failFor map[string]bool
	failAll bool
	delay   time.Duration
	panics  bool

	mu       sync.Mutex
	sent     []string
	inFlight atomic.Int32
	maxSeen  atomic.Int32
}

func (f *fakeSender) Channel() Channel { return f.channel }

func (f *fakeSender) Send(ctx context.Context, to string, _ Message) error {
	n := f.inFlight.Add(1)
	defer f.inFlight.Add(-1)
	for {
		m := f.maxSeen.Load()
		if n <= m || f.maxSeen.CompareAndSwap(m, n) {
			break
		}
	}

	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	if f.panics {
		panic("boom")
	}

	f.mu.Lock()
	f.sent = append(f.sent, to)
	f.mu.Unlock()

	if f.failAll || f.failFor[to] {
		return errors.New("provider rejected message")
	}
	return nil
}

func (f *fakeSender) addresses() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.sent))
	copy(out, f.sent)
	return out
}
