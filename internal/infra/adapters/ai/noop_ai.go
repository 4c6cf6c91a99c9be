package ai

import (
	"context"
	"strings"
	"time"

	"stock-metadata-generator/internal/domain/model"
	"stock-metadata-generator/internal/domain/ports/adapter"
)

var _ adapter.MetadataProvider = (*NoopAIAdapter)(nil)

// NoopAIAdapter implements adapter.MetadataProvider for local/dev testing.
// It derives metadata from the file name instead of calling a model.
type NoopAIAdapter struct {
	delay time.Duration
}

// NewNoopAIAdapter constructs the noop adapter.
func NewNoopAIAdapter(delay time.Duration) *NoopAIAdapter {
	return &NoopAIAdapter{delay: delay}
}

func (a *NoopAIAdapter) Name() string { return string(model.ProviderNoop) }

// Generate simulates a small delay and respects ctx.
func (a *NoopAIAdapter) Generate(ctx context.Context, req adapter.GenerateRequest) (model.Metadata, error) {
	select {
	case <-time.After(a.delay):
		// proceed
	case <-ctx.Done():
		return model.Metadata{}, ctx.Err()
	}
	words := strings.FieldsFunc(strings.ToLower(req.Primary.BaseName()), func(r rune) bool {
		return r == '-' || r == '_' || r == ' ' || r == '.'
	})
	if len(words) == 0 {
		words = []string{"asset"}
	}
	subject := strings.Join(words, " ")
	return model.Metadata{
		Title:       subject + " stock asset for " + req.Platform.Name,
		Description: "Placeholder description of " + subject + ".",
		Keywords:    append(words, "stock", "asset", string(req.Platform.ID)),
	}, nil
}
