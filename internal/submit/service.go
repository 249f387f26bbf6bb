// Package submit is the admission pipeline for credential submissions. Every
// write passes through sanitization, metadata validation, file gates, the
// rate limiter, and the credential ceiling before a mint is attempted. Quota
// is recorded only after the mint succeeds, so failed submissions never
// consume it.
package submit

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"trustforge/internal/audit"
	"trustforge/internal/guard/file"
	"trustforge/internal/guard/metadata"
	"trustforge/internal/guard/sanitize"
	"trustforge/internal/limits"
	"trustforge/internal/platform/metrics"
	rlmodels "trustforge/internal/ratelimit/models"
	"trustforge/internal/registry"
	"trustforge/internal/trust"
	dErrors "trustforge/pkg/domainerrors"
)

// Pipeline stages, used as audit detail and metric label.
const (
	StageMetadata  = "metadata"
	StageFile      = "file"
	StageContent   = "content"
	StageRateLimit = "rate_limit"
	StageCeiling   = "ceiling"
	StageRegistry  = "registry"
)

// RateLimiter is the dual-window limiter seam.
type RateLimiter interface {
	Check(ctx context.Context, subject string) (*rlmodels.Result, error)
	Record(ctx context.Context, subject string) error
}

// Registry mints credentials and reports per-owner counts.
type Registry interface {
	Mint(ctx context.Context, owner string, metadata trust.CredentialMetadata) (registry.Record, error)
	CountByOwner(ctx context.Context, owner string) (int, error)
}

// AuditPublisher emits audit events for denied and admitted submissions.
type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

// Request is one submission: credential metadata plus an optional proof file.
type Request struct {
	Owner       string
	Metadata    trust.CredentialMetadata
	File        *file.Meta
	FileContent []byte
}

// Outcome reports an admitted submission. Warnings carry soft signals, such
// as approaching a rate limit or the credential ceiling, that do not block.
type Outcome struct {
	Record   registry.Record
	Warnings []string
}

type Service struct {
	limiter           RateLimiter
	registry          Registry
	metadataValidator *metadata.Validator
	fileValidator     *file.Validator
	auditPublisher    AuditPublisher
	metrics           *metrics.Metrics
	logger            *slog.Logger
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

func WithAuditPublisher(publisher AuditPublisher) Option {
	return func(s *Service) {
		s.auditPublisher = publisher
	}
}

func New(limiter RateLimiter, reg Registry, opts ...Option) (*Service, error) {
	if limiter == nil {
		return nil, dErrors.New(dErrors.CodeInternal, "rate limiter is required")
	}
	if reg == nil {
		return nil, dErrors.New(dErrors.CodeInternal, "registry is required")
	}
	svc := &Service{
		limiter:           limiter,
		registry:          reg,
		metadataValidator: metadata.New(),
		fileValidator:     file.New(),
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc, nil
}

// Submit runs the full admission pipeline and mints the credential. The
// returned metadata is the sanitized form, which is what gets stored.
func (s *Service) Submit(ctx context.Context, req Request) (*Outcome, error) {
	if req.Owner == "" {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "owner is required")
	}

	sanitized := sanitize.Metadata(req.Metadata)

	if result := s.metadataValidator.Validate(sanitized); !result.Valid {
		s.deny(ctx, req.Owner, StageMetadata, result.Message())
		return nil, dErrors.New(dErrors.CodeInvalidInput, result.Message())
	}

	if req.File != nil {
		if verdict := s.fileValidator.ValidateFile(*req.File); !verdict.Valid {
			s.deny(ctx, req.Owner, StageFile, verdict.Reason)
			return nil, dErrors.New(dErrors.CodeSecurityRejected, verdict.Reason)
		}
		if req.FileContent != nil {
			if scan := s.fileValidator.ScanContent(*req.File, req.FileContent); !scan.Safe {
				s.deny(ctx, req.Owner, StageContent, scan.Reason)
				return nil, dErrors.New(dErrors.CodeSecurityRejected, scan.Reason)
			}
		}
	}

	rateVerdict, ceilingVerdict, err := s.admit(ctx, req.Owner)
	if err != nil {
		return nil, err
	}
	if !rateVerdict.Allowed {
		s.deny(ctx, req.Owner, StageRateLimit, "submission rate limit exceeded")
		err := dErrors.New(dErrors.CodeRateLimited, "submission rate limit exceeded")
		if rateVerdict.RetryAt != nil {
			err = dErrors.Newf(dErrors.CodeRateLimited,
				"submission rate limit exceeded, retry after %s", rateVerdict.RetryAt.Format(time.RFC3339))
		}
		return nil, err
	}
	if !ceilingVerdict.Allowed {
		s.deny(ctx, req.Owner, StageCeiling, "credential limit reached")
		return nil, dErrors.Newf(dErrors.CodeLimitExceeded, "credential limit of %d reached", ceilingVerdict.Limit)
	}

	record, err := s.registry.Mint(ctx, req.Owner, sanitized)
	if err != nil {
		s.deny(ctx, req.Owner, StageRegistry, err.Error())
		return nil, err
	}

	// Quota is consumed only now that the mint has succeeded.
	if err := s.limiter.Record(ctx, req.Owner); err != nil && s.logger != nil {
		s.logger.WarnContext(ctx, "failed to record rate limit usage",
			"owner", req.Owner,
			"error", err,
		)
	}

	outcome := &Outcome{
		Record:   record,
		Warnings: s.warnings(rateVerdict, ceilingVerdict),
	}

	s.metrics.RecordAdmission()
	s.metrics.RecordMint()
	if len(outcome.Warnings) > 0 {
		s.metrics.RecordRateLimitWarning()
	}
	s.audit(ctx, req.Owner, "credential_submitted", map[string]any{
		"credential_id": record.ID,
		"warnings":      len(outcome.Warnings),
	})
	return outcome, nil
}

// admit runs the rate limit check and the ceiling check in parallel. Both
// are reads; neither consumes anything.
func (s *Service) admit(ctx context.Context, owner string) (*rlmodels.Result, limits.Result, error) {
	var (
		rateVerdict    *rlmodels.Result
		ceilingVerdict limits.Result
	)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		verdict, err := s.limiter.Check(ctx, owner)
		if err != nil {
			return err
		}
		rateVerdict = verdict
		return nil
	})
	g.Go(func() error {
		count, err := s.registry.CountByOwner(ctx, owner)
		if err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to count credentials")
		}
		ceilingVerdict = limits.CheckBatchLimit(count, 1)
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, limits.Result{}, err
	}
	return rateVerdict, ceilingVerdict, nil
}

// warnings collects soft signals for an admitted submission, counting the
// submission itself against the windows.
func (s *Service) warnings(rateVerdict *rlmodels.Result, ceilingVerdict limits.Result) []string {
	var warnings []string
	if msg, ok := rlmodels.WarningMessage(rateVerdict.MinuteCount+1, rateVerdict.HourCount+1); ok {
		warnings = append(warnings, msg)
	}
	if ceilingVerdict.Warning != "" {
		warnings = append(warnings, ceilingVerdict.Warning)
	}
	return warnings
}

func (s *Service) deny(ctx context.Context, owner, stage, reason string) {
	s.metrics.RecordDenial(stage)
	if s.logger != nil {
		s.logger.InfoContext(ctx, "submission denied",
			"owner", owner,
			"stage", stage,
			"reason", reason,
		)
	}
	s.audit(ctx, owner, "submission_denied", map[string]any{
		"stage":  stage,
		"reason": reason,
	})
}

func (s *Service) audit(ctx context.Context, owner, action string, details map[string]any) {
	if s.auditPublisher == nil {
		return
	}
	event := audit.Event{
		Action:  action,
		Subject: owner,
		Details: details,
	}
	if err := s.auditPublisher.Emit(ctx, event); err != nil && s.logger != nil {
		s.logger.WarnContext(ctx, "failed to emit audit event", "action", action, "error", err)
	}
}
