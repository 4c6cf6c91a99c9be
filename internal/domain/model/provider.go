package model

import (
	"fmt"
	"strings"

	"stock-metadata-generator/internal/domain"
)

// Provider identifies an AI backend that owns a credential pool.
type Provider string

const (
	ProviderGemini  Provider = "gemini"
	ProviderMistral Provider = "mistral"
	ProviderGroq    Provider = "groq"
	ProviderNoop    Provider = "noop"
)

func ParseProvider(s string) (Provider, error) {
	p := Provider(strings.ToLower(strings.TrimSpace(s)))
	switch p {
	case ProviderGemini, ProviderMistral, ProviderGroq, ProviderNoop:
		return p, nil
	}
	return "", fmt.Errorf("%w: %q", domain.ErrUnknownProvider, s)
}
