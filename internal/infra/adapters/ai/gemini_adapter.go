// File: internal/infra/adapters/ai/gemini_adapter.go
package ai

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"google.golang.org/genai"

	"stock-metadata-generator/internal/domain"
	"stock-metadata-generator/internal/domain/model"
	"stock-metadata-generator/internal/domain/ports/adapter"
)

var _ adapter.MetadataProvider = (*GeminiAdapter)(nil)

// metadataSchema constrains Gemini output to exactly the three fields we read.
var metadataSchema = &genai.Schema{
	Type: genai.TypeObject,
	Properties: map[string]*genai.Schema{
		"title":       {Type: genai.TypeString},
		"description": {Type: genai.TypeString},
		"keywords":    {Type: genai.TypeArray, Items: &genai.Schema{Type: genai.TypeString}},
	},
	Required:         []string{"title", "description", "keywords"},
	PropertyOrdering: []string{"title", "description", "keywords"},
}

type GeminiAdapter struct {
	baseURL string
	model   string
	maxOut  int
	timeout time.Duration
	prep    Preparer

	mu      sync.Mutex
	clients map[string]*genai.Client // one SDK client per credential
}

// NewGeminiAdapter creates a Gemini adapter using the official SDK. The API
// key is supplied per request since credentials rotate across calls.
func NewGeminiAdapter(baseURL, defaultModel string, maxOut int, timeout time.Duration, prep Preparer) *GeminiAdapter {
	if maxOut <= 0 {
		maxOut = 1024
	}
	return &GeminiAdapter{
		baseURL: baseURL,
		model:   modelOrDefault(defaultModel, "gemini-2.5-flash"),
		maxOut:  maxOut,
		timeout: timeout,
		prep:    prep,
		clients: map[string]*genai.Client{},
	}
}

func (g *GeminiAdapter) Name() string { return string(model.ProviderGemini) }

func (g *GeminiAdapter) Generate(ctx context.Context, req adapter.GenerateRequest) (model.Metadata, error) {
	if req.Credential == "" {
		return model.Metadata{}, fmt.Errorf("gemini: %w", domain.ErrNoCredential)
	}
	m, err := resolveMedia(req, mediaCaps{documents: true, video: true}, g.prep)
	if err != nil {
		return model.Metadata{}, err
	}
	client, err := g.clientFor(ctx, req.Credential)
	if err != nil {
		return model.Metadata{}, &adapter.ProviderError{Provider: g.Name(), Err: err}
	}

	system, task := BuildPrompt(req.Platform, req.Settings)
	temperature := float32(0.4)
	cfg := &genai.GenerateContentConfig{
		SystemInstruction: &genai.Content{Parts: []*genai.Part{{Text: system}}},
		ResponseMIMEType:  "application/json",
		ResponseSchema:    metadataSchema,
		Temperature:       &temperature,
		MaxOutputTokens:   int32(g.maxOut),
	}
	contents := []*genai.Content{{
		Role: genai.RoleUser,
		Parts: []*genai.Part{
			{InlineData: &genai.Blob{MIMEType: m.mimeType, Data: m.data}},
			{Text: task},
		},
	}}

	resp, err := client.Models.GenerateContent(ctx, g.model, contents, cfg)
	if err != nil {
		return model.Metadata{}, wrapGeminiErr(err)
	}
	md, err := DecodeMetadata(responseText(resp))
	if err != nil {
		return model.Metadata{}, &adapter.ProviderError{Provider: g.Name(), Message: err.Error(), Err: err}
	}
	return md, nil
}

// --- internal ---

func (g *GeminiAdapter) clientFor(ctx context.Context, apiKey string) (*genai.Client, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if c, ok := g.clients[apiKey]; ok {
		return c, nil
	}
	cc := &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
		HTTPOptions: genai.HTTPOptions{
			BaseURL: g.baseURL,
		},
	}
	if g.timeout > 0 {
		cc.HTTPClient = &http.Client{Timeout: g.timeout}
	}
	c, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, err
	}
	g.clients[apiKey] = c
	return c, nil
}

// Retain drops cached clients whose key is no longer in keys.
func (g *GeminiAdapter) Retain(keys []string) {
	keep := make(map[string]struct{}, len(keys))
	for _, k := range keys {
		keep[k] = struct{}{}
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	for k := range g.clients {
		if _, ok := keep[k]; !ok {
			delete(g.clients, k)
		}
	}
}

func responseText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return ""
	}
	var b strings.Builder
	for _, p := range resp.Candidates[0].Content.Parts {
		if p != nil && p.Text != "" && !p.Thought {
			b.WriteString(p.Text)
		}
	}
	return b.String()
}

func wrapGeminiErr(err error) error {
	pe := &adapter.ProviderError{Provider: string(model.ProviderGemini), Message: err.Error(), Err: err}
	var apiErr genai.APIError
	var apiErrPtr *genai.APIError
	switch {
	case errors.As(err, &apiErr):
		pe.StatusCode, pe.Message = apiErr.Code, apiErr.Message
	case errors.As(err, &apiErrPtr):
		pe.StatusCode, pe.Message = apiErrPtr.Code, apiErrPtr.Message
	}
	return pe
}

func modelOrDefault(model, def string) string {
	if strings.TrimSpace(model) != "" {
		return model
	}
	return def
}
