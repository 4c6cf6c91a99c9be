package ai_test

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"stock-metadata-generator/internal/domain"
	"stock-metadata-generator/internal/domain/model"
	"stock-metadata-generator/internal/domain/ports/adapter"
	ai "stock-metadata-generator/internal/infra/adapters/ai"
	"stock-metadata-generator/internal/infra/logging"
)

// scriptedAI returns the scripted errors in order, then succeeds.
type scriptedAI struct {
	mu    sync.Mutex
	errs  []error
	calls int
}

func (s *scriptedAI) Name() string { return "scripted" }
func (s *scriptedAI) Generate(ctx context.Context, req adapter.GenerateRequest) (model.Metadata, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if len(s.errs) > 0 {
		err := s.errs[0]
		s.errs = s.errs[1:]
		return model.Metadata{}, err
	}
	return model.Metadata{Title: "ok", Keywords: []string{"ok"}}, nil
}

type recordedSleeps struct {
	mu     sync.Mutex
	delays []time.Duration
}

func (r *recordedSleeps) sleep(ctx context.Context, d time.Duration) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.delays = append(r.delays, d)
	return nil
}

func rateLimited() error {
	return &adapter.ProviderError{Provider: "scripted", StatusCode: http.StatusTooManyRequests, Message: "slow down"}
}

func newRetrying(inner adapter.MetadataProvider, rec *recordedSleeps) adapter.MetadataProvider {
	return ai.NewRetrying(inner, ai.RetryPolicy{MaxAttempts: 5, BaseDelay: time.Second, MaxJitter: time.Second},
		logging.Nop(),
		ai.WithSleeper(rec.sleep),
		ai.WithJitter(func(time.Duration) time.Duration { return 250 * time.Millisecond }),
	)
}

func TestRetry_TransientThenSuccess(t *testing.T) {
	inner := &scriptedAI{errs: []error{rateLimited(), rateLimited()}}
	rec := &recordedSleeps{}
	md, err := newRetrying(inner, rec).Generate(context.Background(), adapter.GenerateRequest{})
	if err != nil {
		t.Fatalf("expected success after retries, got %v", err)
	}
	if md.Title != "ok" || inner.calls != 3 {
		t.Fatalf("expected 3 calls, got %d (md=%+v)", inner.calls, md)
	}
	want := []time.Duration{1250 * time.Millisecond, 2250 * time.Millisecond}
	if len(rec.delays) != len(want) {
		t.Fatalf("unexpected delays %v", rec.delays)
	}
	for i := range want {
		if rec.delays[i] != want[i] {
			t.Errorf("delay %d: want %v got %v", i, want[i], rec.delays[i])
		}
	}
}

func TestRetry_GivesUpAfterFiveAttempts(t *testing.T) {
	last := &adapter.ProviderError{Provider: "scripted", StatusCode: http.StatusServiceUnavailable, Message: "overloaded"}
	inner := &scriptedAI{errs: []error{rateLimited(), rateLimited(), rateLimited(), rateLimited(), last, rateLimited()}}
	rec := &recordedSleeps{}
	_, err := newRetrying(inner, rec).Generate(context.Background(), adapter.GenerateRequest{})
	if inner.calls != 5 {
		t.Fatalf("expected exactly 5 attempts, got %d", inner.calls)
	}
	if err != last {
		t.Fatalf("expected last error to propagate unchanged, got %v", err)
	}
	if len(rec.delays) != 4 {
		t.Fatalf("expected 4 backoff sleeps, got %d", len(rec.delays))
	}
}

func TestRetry_TerminalErrorsAreNotRetried(t *testing.T) {
	cases := []error{
		&adapter.ProviderError{Provider: "scripted", StatusCode: http.StatusUnauthorized, Message: "bad key"},
		&adapter.ProviderError{Provider: "scripted", StatusCode: http.StatusBadRequest, Message: "bad request"},
		fmt.Errorf("wrap: %w", domain.ErrMalformedResponse),
		domain.ErrUnsupportedMedia,
	}
	for _, tc := range cases {
		inner := &scriptedAI{errs: []error{tc}}
		rec := &recordedSleeps{}
		_, err := newRetrying(inner, rec).Generate(context.Background(), adapter.GenerateRequest{})
		if err == nil || inner.calls != 1 || len(rec.delays) != 0 {
			t.Errorf("%v: expected a single attempt without backoff, got calls=%d sleeps=%d", tc, inner.calls, len(rec.delays))
		}
	}
}

func TestRetry_StopsWhenContextCancelledDuringBackoff(t *testing.T) {
	inner := &scriptedAI{errs: []error{rateLimited(), rateLimited()}}
	r := ai.NewRetrying(inner, ai.RetryPolicy{MaxAttempts: 5, BaseDelay: time.Hour}, logging.Nop())
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := r.Generate(ctx, adapter.GenerateRequest{})
	if !ai.IsTransient(err) || inner.calls != 1 {
		t.Fatalf("expected the rate-limit error after one call, got %v (calls=%d)", err, inner.calls)
	}
}

func TestIsTransient_MessageMarkers(t *testing.T) {
	tests := []struct {
		err  error
		want bool
	}{
		{errors.New("Error 429: RESOURCE_EXHAUSTED"), true},
		{errors.New("model is overloaded, try later"), true},
		{errors.New("invalid api key"), false},
		{errors.New("HTTP 503 Service Unavailable"), true},
		{errors.New("upstream status code: 500"), true},
		{errors.New("max 500 tokens exceeded"), false},
		{errors.New("daily quota exceeded for this key"), false},
		{context.Canceled, false},
		{&adapter.ProviderError{Provider: "x", StatusCode: 500}, true},
		{&adapter.ProviderError{Provider: "x", StatusCode: 403, Message: "quota project not set"}, false},
	}
	for _, tc := range tests {
		if got := ai.IsTransient(tc.err); got != tc.want {
			t.Errorf("IsTransient(%v)=%v want %v", tc.err, got, tc.want)
		}
	}
}

type slowAI struct {
	cur, peak int32
}

func (s *slowAI) Name() string { return "slow" }
func (s *slowAI) Generate(ctx context.Context, req adapter.GenerateRequest) (model.Metadata, error) {
	n := atomic.AddInt32(&s.cur, 1)
	for {
		p := atomic.LoadInt32(&s.peak)
		if n <= p || atomic.CompareAndSwapInt32(&s.peak, p, n) {
			break
		}
	}
	time.Sleep(20 * time.Millisecond)
	atomic.AddInt32(&s.cur, -1)
	return model.Metadata{}, nil
}

func TestLimitedAI_CapsConcurrency(t *testing.T) {
	inner := &slowAI{}
	l := ai.NewLimitedAI(inner, 2)
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = l.Generate(context.Background(), adapter.GenerateRequest{})
		}()
	}
	wg.Wait()
	if inner.peak > 2 {
		t.Fatalf("expected at most 2 concurrent calls, saw %d", inner.peak)
	}
}

func TestChain_AppliesCompliance(t *testing.T) {
	inner := &scriptedAI{}
	p := ai.Chain(inner, ai.RetryPolicy{MaxAttempts: 1}, 1, logging.Nop())
	md, err := p.Generate(context.Background(), adapter.GenerateRequest{
		Platform: model.PlatformConfig{TitleMin: 5, TitleMax: 100, DescMax: 100},
		Settings: model.DefaultSettings(),
	})
	if err != nil {
		t.Fatal(err)
	}
	if md.Title != "ok - Stock Image" {
		t.Fatalf("expected short title to get filler, got %q", md.Title)
	}
}
