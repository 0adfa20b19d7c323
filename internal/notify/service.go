package notify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

const instrumentationName = "github.com/beaconalert/beacon/internal/notify"

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks the request body for the given strategy. The personal
// contacts strategy additionally needs user_id.
func (r Request) Validate(strategy Strategy) error {
	if err := validate.Struct(r); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			return fmt.Errorf("%w: field %s failed %q", ErrInvalidRequest, fe.Field(), fe.Tag())
		}
		return fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}
	if strategy == StrategyContacts && r.UserID == "" {
		return fmt.Errorf("%w: user_id is required", ErrInvalidRequest)
	}
	return nil
}

// Options tune a Service.
type Options struct {
	// MaxConcurrency bounds in-flight sends per request; 0 means unbounded.
	MaxConcurrency int
	// MeterProvider defaults to the global provider.
	MeterProvider metric.MeterProvider
}

// Service runs the whole pipeline for one request at a time. It holds no
// per-request state and is safe for concurrent use.
type Service struct {
	deps       Deps
	dispatcher *Dispatcher
	templates  *Templates
	logger     *slog.Logger

	tracer   trace.Tracer
	attempts metric.Int64Counter
	requests metric.Int64Counter
}

// NewService wires the pipeline over process-scoped dependencies.
func NewService(deps Deps, opts Options, logger *slog.Logger) (*Service, error) {
	templates, err := NewTemplates()
	if err != nil {
		return nil, err
	}

	mp := opts.MeterProvider
	if mp == nil {
		mp = otel.GetMeterProvider()
	}
	meter := mp.Meter(instrumentationName)
	attempts, err := meter.Int64Counter("beacon.notify.attempts",
		metric.WithDescription("Delivery attempts by channel and outcome"))
	if err != nil {
		return nil, fmt.Errorf("create attempts counter: %w", err)
	}
	requests, err := meter.Int64Counter("beacon.notify.requests",
		metric.WithDescription("Notify requests by strategy and result"))
	if err != nil {
		return nil, fmt.Errorf("create requests counter: %w", err)
	}

	return &Service{
		deps:       deps,
		dispatcher: NewDispatcher(deps.Senders, opts.MaxConcurrency, logger),
		templates:  templates,
		logger:     logger,
		tracer:     otel.Tracer(instrumentationName),
		attempts:   attempts,
		requests:   requests,
	}, nil
}

// Capabilities reports what a request with the given strategy would use.
func (s *Service) Capabilities(strategy Strategy) (Capabilities, error) {
	return Validate(s.deps, strategy)
}

// Notify validates, resolves, dispatches and aggregates. It only returns an
// error for an invalid request, a Configuration error or a Resolution
// error; every per-attempt failure is part of the Report.
func (s *Service) Notify(ctx context.Context, strategy Strategy, req Request) (Report, error) {
	dispatchID := uuid.NewString()
	logger := s.logger.With("dispatch_id", dispatchID, "strategy", strategy, "emergency_id", req.EmergencyID)

	ctx, span := s.tracer.Start(ctx, "notify."+string(strategy), trace.WithAttributes(
		attribute.String("dispatch.id", dispatchID),
		attribute.String("emergency.id", req.EmergencyID),
		attribute.String("emergency.type", req.EmergencyType),
	))
	defer span.End()

	rep, err := s.run(ctx, strategy, req, logger)
	rep.DispatchID = dispatchID
	rep.Strategy = strategy
	rep.EmergencyID = req.EmergencyID

	result := "ok"
	if err != nil {
		result = "error"
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		logger.Error("notify failed", "error", err)
	}
	s.requests.Add(ctx, 1, metric.WithAttributes(
		attribute.String("strategy", string(strategy)),
		attribute.String("result", result),
	))
	return rep, err
}

func (s *Service) run(ctx context.Context, strategy Strategy, req Request, logger *slog.Logger) (Report, error) {
	if err := req.Validate(strategy); err != nil {
		return Report{}, err
	}

	// 1. Capabilities
	caps, err := Validate(s.deps, strategy)
	if err != nil {
		return Report{}, err
	}
	channels := caps.Channels()
	if len(channels) == 0 {
		logger.Warn("no notification channel configured")
	}

	// 2. Recipients
	resolver, err := s.resolver(strategy)
	if err != nil {
		return Report{}, err
	}
	res, err := resolver.Resolve(ctx, req)
	if err != nil {
		return Report{}, &ResolutionError{Strategy: strategy, Err: err}
	}
	resolved := res.Recipients
	recipients := reachable(resolved)
	logger.Info("recipients resolved",
		"candidates", res.Candidates, "resolved", len(resolved),
		"reachable", len(recipients), "channels", channels)

	if len(recipients) == 0 {
		rep := Aggregate(nil)
		rep.Candidates = res.Candidates
		rep.TotalRecipients = len(resolved)
		rep.Unreachable = len(resolved)
		rep.Channels = channels
		return rep, nil
	}

	// 3. Fan out. Sends outlive the caller: a client that disconnects
	// mid-request must not cancel alerts already in flight. Each client's
	// own send timeout is the only bound.
	sendCtx := context.WithoutCancel(ctx)
	planned := Plan(recipients, channels)

	start := time.Now()
	var attempts []Attempt
	msg, err := s.templates.Render(strategy, req)
	if err != nil {
		logger.Error("render message", "error", err)
		attempts = failAll(planned, fmt.Errorf("render message: %w", err))
	} else {
		dctx, span := s.tracer.Start(sendCtx, "notify.dispatch")
		attempts = s.dispatcher.Dispatch(dctx, planned, msg)
		span.SetAttributes(attribute.Int("dispatch.attempts", len(attempts)))
		span.End()
	}

	// 4. Aggregate
	rep := Aggregate(attempts)
	rep.Candidates = res.Candidates
	rep.TotalRecipients = len(resolved)
	rep.Unreachable = len(resolved) - len(recipients)
	rep.Channels = channels

	for _, a := range attempts {
		s.attempts.Add(sendCtx, 1, metric.WithAttributes(
			attribute.String("channel", string(a.Channel)),
			attribute.String("outcome", a.Outcome.String()),
		))
	}
	logger.Info("notify complete",
		"recipients", rep.TotalRecipients,
		"attempts", len(attempts),
		"email_sent", rep.Sent(ChannelEmail), "email_failed", rep.Failed(ChannelEmail),
		"sms_sent", rep.Sent(ChannelSMS), "sms_failed", rep.Failed(ChannelSMS),
		"duration", time.Since(start).Round(time.Millisecond))
	return rep, nil
}

func (s *Service) resolver(strategy Strategy) (Resolver, error) {
	switch strategy {
	case StrategyContacts:
		return ContactsResolver{Store: s.deps.Store}, nil
	case StrategyResponders:
		return RolesResolver{Store: s.deps.Store, Directory: s.deps.Directory}, nil
	default:
		return nil, fmt.Errorf("%w: unknown strategy %q", ErrInvalidRequest, strategy)
	}
}

// failAll settles every planned attempt as Failed with the same cause.
func failAll(attempts []Attempt, err error) []Attempt {
	for i := range attempts {
		attempts[i].Outcome = Failed
		attempts[i].Error = err.Error()
	}
	return attempts
}
