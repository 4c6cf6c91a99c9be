package ai

import (
	"context"

	"github.com/rs/zerolog"

	"stock-metadata-generator/internal/domain/compliance"
	"stock-metadata-generator/internal/domain/model"
	"stock-metadata-generator/internal/domain/ports/adapter"
)

var _ adapter.MetadataProvider = (*compliantAI)(nil)

// compliantAI runs the shared post-processing on every successful result.
type compliantAI struct {
	inner adapter.MetadataProvider
}

func NewCompliant(inner adapter.MetadataProvider) adapter.MetadataProvider {
	return &compliantAI{inner: inner}
}

func (c *compliantAI) Name() string { return c.inner.Name() }

func (c *compliantAI) Generate(ctx context.Context, req adapter.GenerateRequest) (model.Metadata, error) {
	raw, err := c.inner.Generate(ctx, req)
	if err != nil {
		return model.Metadata{}, err
	}
	return compliance.Finalize(raw, req.Platform, req.Settings), nil
}

// Chain wraps a raw provider adapter the way the batch runner expects it:
// compliance outermost, retries around the host concurrency limit.
func Chain(p adapter.MetadataProvider, policy RetryPolicy, maxConcurrent int, log *zerolog.Logger, opts ...RetryOption) adapter.MetadataProvider {
	return NewCompliant(NewRetrying(NewLimitedAI(p, maxConcurrent), policy, log, opts...))
}
