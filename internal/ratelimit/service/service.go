// Package service implements dual-window sliding rate limiting for credential
// submissions. All counter state lives in an injected store, so the limiter
// survives process restarts within the same storage scope.
package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"trustforge/internal/ratelimit/models"
	"trustforge/internal/ratelimit/ports"
	dErrors "trustforge/pkg/domainerrors"
)

// Type aliases for interfaces from the ports package, so callers can depend
// on this package alone.
type (
	StateStore     = ports.StateStore
	AuditPublisher = ports.AuditPublisher
)

type Service struct {
	store          StateStore
	auditPublisher AuditPublisher
	logger         *slog.Logger
	now            func() time.Time
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithAuditPublisher(publisher AuditPublisher) Option {
	return func(s *Service) {
		s.auditPublisher = publisher
	}
}

// WithClock injects the time source. Tests pin this to drive windows.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

func New(store StateStore, opts ...Option) (*Service, error) {
	if store == nil {
		return nil, errors.New("state store is required")
	}

	svc := &Service{
		store: store,
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc, nil
}

// Check evaluates whether the subject may submit right now. It loads and
// prunes the persisted windows but records nothing: callers invoke Record only
// after the gated operation actually succeeds, so failed submissions never
// consume quota.
//
// Two contexts sharing one store can both pass Check before either Records;
// that check-then-record race is accepted and the limiter is treated as an
// abuse deterrent rather than a hard guarantee.
func (s *Service) Check(ctx context.Context, subject string) (*models.Result, error) {
	now := s.now()

	state, err := s.store.Load(ctx, models.StateKey(subject))
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load rate limit state")
	}
	state.Prune(now)

	result := &models.Result{
		MinuteCount: len(state.MinuteTimestamps),
		HourCount:   len(state.HourTimestamps),
	}

	minuteExceeded := result.MinuteCount >= models.MinuteLimit
	hourExceeded := result.HourCount >= models.HourLimit
	if !minuteExceeded && !hourExceeded {
		result.Allowed = true
		return result, nil
	}

	// The subject must wait until every violated window has freed a slot: the
	// oldest surviving entry in that window plus the window length.
	var retryAt time.Time
	if minuteExceeded {
		retryAt = state.MinuteTimestamps[0].Add(models.MinuteWindow)
	}
	if hourExceeded {
		if hourRetry := state.HourTimestamps[0].Add(models.HourWindow); hourRetry.After(retryAt) {
			retryAt = hourRetry
		}
	}
	result.RetryAt = &retryAt

	ports.LogAudit(ctx, s.logger, s.auditPublisher, "submission_rate_limit_exceeded",
		"subject", subject,
		"minute_count", result.MinuteCount,
		"hour_count", result.HourCount,
		"retry_at", retryAt,
	)
	return result, nil
}

// Record appends the current timestamp to both windows and persists. Call only
// after the gated operation has succeeded.
func (s *Service) Record(ctx context.Context, subject string) error {
	now := s.now()
	key := models.StateKey(subject)

	state, err := s.store.Load(ctx, key)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to load rate limit state")
	}
	state.Prune(now)
	state.MinuteTimestamps = append(state.MinuteTimestamps, now)
	state.HourTimestamps = append(state.HourTimestamps, now)

	if err := s.store.Save(ctx, key, state); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to save rate limit state")
	}
	return nil
}
