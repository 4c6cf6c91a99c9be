package ai

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/openai/openai-go/v2"
	"github.com/openai/openai-go/v2/option"
	"github.com/openai/openai-go/v2/shared"

	"stock-metadata-generator/internal/domain"
	"stock-metadata-generator/internal/domain/model"
	"stock-metadata-generator/internal/domain/ports/adapter"
)

// Compile-time assurance this adapter satisfies the port
var _ adapter.MetadataProvider = (*OpenAICompatAdapter)(nil)

const (
	MistralBaseURL = "https://api.mistral.ai/v1"
	GroqBaseURL    = "https://api.groq.com/openai/v1"
)

// OpenAICompatAdapter implements adapter.MetadataProvider for gateways that
// speak the OpenAI Chat Completions API with image_url content parts.
// Mistral and Groq both expose such an endpoint.
// Authorization: Bearer <credential>, supplied per request.
type OpenAICompatAdapter struct {
	name   string
	model  string
	maxOut int64
	prep   Preparer
	client openai.Client
}

func NewOpenAICompatAdapter(name, baseURL, modelName string, timeout time.Duration, prep Preparer) *OpenAICompatAdapter {
	opts := []option.RequestOption{
		option.WithBaseURL(strings.TrimRight(baseURL, "/") + "/"),
		// retries are owned by the retry wrapper
		option.WithMaxRetries(0),
	}
	if timeout > 0 {
		opts = append(opts, option.WithRequestTimeout(timeout))
	}
	return &OpenAICompatAdapter{
		name:   name,
		model:  modelName,
		maxOut: 1024,
		prep:   prep,
		client: openai.NewClient(opts...),
	}
}

// NewMistralAdapter targets Mistral's OpenAI-compatible API (pixtral models read images).
func NewMistralAdapter(baseURL, modelName string, timeout time.Duration, prep Preparer) *OpenAICompatAdapter {
	return NewOpenAICompatAdapter(string(model.ProviderMistral), modelOrDefault(baseURL, MistralBaseURL),
		modelOrDefault(modelName, "pixtral-12b-2409"), timeout, prep)
}

// NewGroqAdapter targets Groq's OpenAI-compatible API.
func NewGroqAdapter(baseURL, modelName string, timeout time.Duration, prep Preparer) *OpenAICompatAdapter {
	return NewOpenAICompatAdapter(string(model.ProviderGroq), modelOrDefault(baseURL, GroqBaseURL),
		modelOrDefault(modelName, "meta-llama/llama-4-scout-17b-16e-instruct"), timeout, prep)
}

func (o *OpenAICompatAdapter) Name() string { return o.name }

func (o *OpenAICompatAdapter) Generate(ctx context.Context, req adapter.GenerateRequest) (model.Metadata, error) {
	if req.Credential == "" {
		return model.Metadata{}, fmt.Errorf("%s: %w", o.name, domain.ErrNoCredential)
	}
	m, err := resolveMedia(req, mediaCaps{}, o.prep)
	if err != nil {
		return model.Metadata{}, err
	}
	dataURL := "data:" + m.mimeType + ";base64," + base64.StdEncoding.EncodeToString(m.data)

	system, task := BuildPrompt(req.Platform, req.Settings)
	params := openai.ChatCompletionNewParams{
		Model: openai.ChatModel(o.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(system),
			openai.UserMessage([]openai.ChatCompletionContentPartUnionParam{
				openai.TextContentPart(task),
				openai.ImageContentPart(openai.ChatCompletionContentPartImageImageURLParam{URL: dataURL}),
			}),
		},
		ResponseFormat: openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONObject: &shared.ResponseFormatJSONObjectParam{},
		},
		Temperature: openai.Float(0.4),
		MaxTokens:   openai.Int(o.maxOut),
	}

	resp, err := o.client.Chat.Completions.New(ctx, params, option.WithAPIKey(req.Credential))
	if err != nil {
		return model.Metadata{}, o.wrapErr(err)
	}
	text := ""
	for _, c := range resp.Choices {
		if c.Message.Content != "" {
			text = c.Message.Content
			break
		}
	}
	md, err := DecodeMetadata(text)
	if err != nil {
		return model.Metadata{}, &adapter.ProviderError{Provider: o.name, Message: err.Error(), Err: err}
	}
	return md, nil
}

func (o *OpenAICompatAdapter) wrapErr(err error) error {
	pe := &adapter.ProviderError{Provider: o.name, Message: err.Error(), Err: err}
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		pe.StatusCode = apiErr.StatusCode
		if apiErr.Message != "" {
			pe.Message = apiErr.Message
		}
	}
	return pe
}
