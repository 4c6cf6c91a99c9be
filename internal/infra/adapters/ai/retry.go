package ai

import (
	"context"
	"errors"
	"math/rand/v2"
	"regexp"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"stock-metadata-generator/internal/domain"
	"stock-metadata-generator/internal/domain/model"
	"stock-metadata-generator/internal/domain/ports/adapter"
	"stock-metadata-generator/internal/infra/metrics"
)

var _ adapter.MetadataProvider = (*retryingAI)(nil)

const (
	DefaultMaxAttempts = 5
	DefaultMaxJitter   = time.Second
)

// RetryPolicy bounds the exponential backoff around one provider call.
type RetryPolicy struct {
	MaxAttempts int           // total attempts, first call included
	BaseDelay   time.Duration // delay before attempt i+1 is BaseDelay * 2^i + jitter
	MaxJitter   time.Duration
}

type retryingAI struct {
	inner  adapter.MetadataProvider
	policy RetryPolicy
	log    *zerolog.Logger
	sleep  func(ctx context.Context, d time.Duration) error
	jitter func(max time.Duration) time.Duration
}

type RetryOption func(*retryingAI)

// WithSleeper replaces the backoff sleep, mainly for tests.
func WithSleeper(fn func(ctx context.Context, d time.Duration) error) RetryOption {
	return func(r *retryingAI) { r.sleep = fn }
}

// WithJitter replaces the jitter source.
func WithJitter(fn func(max time.Duration) time.Duration) RetryOption {
	return func(r *retryingAI) { r.jitter = fn }
}

func NewRetrying(inner adapter.MetadataProvider, policy RetryPolicy, log *zerolog.Logger, opts ...RetryOption) adapter.MetadataProvider {
	if policy.MaxAttempts <= 0 {
		policy.MaxAttempts = DefaultMaxAttempts
	}
	if policy.MaxJitter < 0 {
		policy.MaxJitter = 0
	}
	r := &retryingAI{
		inner:  inner,
		policy: policy,
		log:    log,
		sleep:  sleepCtx,
		jitter: randomJitter,
	}
	for _, o := range opts {
		o(r)
	}
	return r
}

func (r *retryingAI) Name() string { return r.inner.Name() }

func (r *retryingAI) Generate(ctx context.Context, req adapter.GenerateRequest) (model.Metadata, error) {
	var lastErr error
	for attempt := 0; attempt < r.policy.MaxAttempts; attempt++ {
		md, err := r.inner.Generate(ctx, req)
		if err == nil {
			return md, nil
		}
		lastErr = err
		if !IsTransient(err) || attempt == r.policy.MaxAttempts-1 {
			break
		}
		delay := r.policy.BaseDelay*(1<<attempt) + r.jitter(r.policy.MaxJitter)
		metrics.IncRetry(r.inner.Name())
		r.log.Warn().
			Err(err).
			Str("provider", r.inner.Name()).
			Str("platform", string(req.Platform.ID)).
			Int("attempt", attempt+1).
			Dur("delay", delay).
			Msg("transient provider error, backing off")
		if err := r.sleep(ctx, delay); err != nil {
			return model.Metadata{}, lastErr
		}
	}
	return model.Metadata{}, lastErr
}

var transientMarkers = []string{
	"rate limit",
	"rate_limit",
	"too many requests",
	"resource_exhausted",
	"overloaded",
	"unavailable",
	"internal error",
}

// transientStatus matches a retryable status code only when it is labelled
// as one, so "max 500 tokens" is not a server error.
var transientStatus = regexp.MustCompile(`(?i)\b(?:error|status|code|http)[\s:=]*(?:429|500|503)\b`)

// IsTransient classifies rate-limit and overload failures. Context
// cancellation and anything unrecognized are terminal.
func IsTransient(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	for _, terminal := range []error{
		domain.ErrMalformedResponse, domain.ErrEmptyResponse,
		domain.ErrUnsupportedMedia, domain.ErrNoCredential,
	} {
		if errors.Is(err, terminal) {
			return false
		}
	}
	var pe *adapter.ProviderError
	if errors.As(err, &pe) {
		if pe.Transient() {
			return true
		}
		if pe.StatusCode != 0 {
			return false
		}
	}
	msg := strings.ToLower(err.Error())
	if transientStatus.MatchString(msg) {
		return true
	}
	for _, m := range transientMarkers {
		if strings.Contains(msg, m) {
			return true
		}
	}
	return false
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func randomJitter(max time.Duration) time.Duration {
	if max <= 0 {
		return 0
	}
	return rand.N(max)
}
