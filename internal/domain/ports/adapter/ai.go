package adapter

import (
	"context"
	"fmt"
	"net/http"

	"stock-metadata-generator/internal/domain/model"
)

// GenerateRequest carries everything one provider call needs.
type GenerateRequest struct {
	Credential string
	Primary    model.File
	Preview    *model.File
	Platform   model.PlatformConfig
	Settings   model.GenerationSettings
}

// AnalysisFile is the preview when present, else the primary file.
func (r GenerateRequest) AnalysisFile() model.File {
	if r.Preview != nil {
		return *r.Preview
	}
	return r.Primary
}

// MetadataProvider is the port for multimodal metadata generation.
type MetadataProvider interface {
	// Name returns the provider identifier used for credentials and metrics.
	Name() string

	// Generate analyses the asset for one platform and returns metadata.
	Generate(ctx context.Context, req GenerateRequest) (model.Metadata, error)
}

// ProviderError wraps a failed provider call with the HTTP status, when known.
type ProviderError struct {
	Provider   string
	StatusCode int
	Message    string
	Err        error
}

func (e *ProviderError) Error() string {
	msg := e.Message
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	}
	if e.StatusCode > 0 {
		return fmt.Sprintf("%s: http %d: %s", e.Provider, e.StatusCode, msg)
	}
	return fmt.Sprintf("%s: %s", e.Provider, msg)
}

func (e *ProviderError) Unwrap() error { return e.Err }

// Transient reports whether the status code signals rate limiting or overload.
func (e *ProviderError) Transient() bool {
	switch e.StatusCode {
	case http.StatusTooManyRequests, http.StatusInternalServerError, http.StatusServiceUnavailable:
		return true
	}
	return false
}

// Thumbnailer renders a small preview for UI display.
type Thumbnailer interface {
	Thumbnail(f model.File) ([]byte, error)
}
