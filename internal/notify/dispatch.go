package notify

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"
)

// Dispatcher owns the lifecycle of every attempt in a request.
type Dispatcher struct {
	senders map[Channel]Sender
	limit   int
	logger  *slog.Logger
}

// NewDispatcher builds a dispatcher over the given channel clients. limit
// bounds concurrent sends; 0 or less dispatches every pair at once.
func NewDispatcher(senders []Sender, limit int, logger *slog.Logger) *Dispatcher {
	m := make(map[Channel]Sender, len(senders))
	for _, s := range senders {
		if s != nil {
			m[s.Channel()] = s
		}
	}
	return &Dispatcher{senders: m, limit: limit, logger: logger}
}

// Plan builds the cross-product of eligible (recipient, channel) pairs in
// recipient order, then channel order. Every attempt starts Pending.
func Plan(recipients []Recipient, channels []Channel) []Attempt {
	attempts := make([]Attempt, 0, len(recipients)*len(channels))
	for _, r := range recipients {
		for _, ch := range channels {
			addr := r.Address(ch)
			if addr == "" {
				continue
			}
			attempts = append(attempts, Attempt{
				RecipientID:   r.ID,
				RecipientName: r.DisplayName(),
				Channel:       ch,
				Address:       addr,
				Outcome:       Pending,
			})
		}
	}
	return attempts
}

// Dispatch sends every planned attempt concurrently and waits for all of
// them to settle. It never returns early: a failing or slow send only
// affects its own attempt. Each goroutine writes to its own slice slot, so
// the attempts need no lock.
func (d *Dispatcher) Dispatch(ctx context.Context, attempts []Attempt, msg Message) []Attempt {
	var g errgroup.Group
	if d.limit > 0 {
		g.SetLimit(d.limit)
	}

	for i := range attempts {
		a := &attempts[i]
		g.Go(func() error {
			d.send(ctx, a, msg)
			return nil
		})
	}
	_ = g.Wait()
	return attempts
}

func (d *Dispatcher) send(ctx context.Context, a *Attempt, msg Message) {
	start := time.Now()
	defer func() {
		if p := recover(); p != nil {
			a.Outcome = Failed
			a.Error = fmt.Sprintf("panic: %v", p)
			d.logger.Error("sender panicked", "channel", a.Channel, "recipient", a.RecipientID, "panic", p)
		}
	}()

	sender, ok := d.senders[a.Channel]
	if !ok {
		a.Outcome = Failed
		a.Error = fmt.Sprintf("no %s client", a.Channel)
		return
	}

	if err := sender.Send(ctx, a.Address, msg); err != nil {
		a.Outcome = Failed
		a.Error = err.Error()
		d.logger.Warn("send failed",
			"channel", a.Channel, "recipient", a.RecipientID,
			"duration", time.Since(start).Round(time.Millisecond), "error", err)
		return
	}
	a.Outcome = Sent
	d.logger.Debug("sent",
		"channel", a.Channel, "recipient", a.RecipientID,
		"duration", time.Since(start).Round(time.Millisecond))
}
