package ai

import (
	"context"

	"stock-metadata-generator/internal/domain/model"
	"stock-metadata-generator/internal/domain/ports/adapter"
	"stock-metadata-generator/internal/infra/metrics"
)

// Compile-time check
var _ adapter.MetadataProvider = (*limitedAI)(nil)

// limitedAI caps concurrent requests to one provider at the host level,
// independently of how many batch workers are running.
type limitedAI struct {
	inner adapter.MetadataProvider
	sem   chan struct{}
}

func NewLimitedAI(inner adapter.MetadataProvider, maxConcurrent int) adapter.MetadataProvider {
	if maxConcurrent <= 0 {
		return inner
	}
	return &limitedAI{
		inner: inner,
		sem:   make(chan struct{}, maxConcurrent),
	}
}

func (l *limitedAI) Name() string { return l.inner.Name() }

func (l *limitedAI) Generate(ctx context.Context, req adapter.GenerateRequest) (model.Metadata, error) {
	select {
	case l.sem <- struct{}{}:
	case <-ctx.Done():
		return model.Metadata{}, ctx.Err()
	}
	metrics.AddInFlight(l.inner.Name(), 1)
	defer func() {
		metrics.AddInFlight(l.inner.Name(), -1)
		<-l.sem
	}()
	return l.inner.Generate(ctx, req)
}
