// File: internal/infra/adapters/ai/multi_adapter.go
package ai

import (
	"fmt"
	"sort"

	"stock-metadata-generator/internal/domain"
	"stock-metadata-generator/internal/domain/model"
	"stock-metadata-generator/internal/domain/ports/adapter"
)

// MultiProvider resolves a provider identifier to its fully wrapped adapter.
type MultiProvider struct {
	defaultProvider model.Provider
	byProvider      map[model.Provider]adapter.MetadataProvider
}

func NewMultiProvider(defaultProvider model.Provider, byProvider map[model.Provider]adapter.MetadataProvider) *MultiProvider {
	return &MultiProvider{defaultProvider: defaultProvider, byProvider: byProvider}
}

// Provider returns the adapter for p; an empty p selects the default provider.
func (m *MultiProvider) Provider(p model.Provider) (adapter.MetadataProvider, error) {
	if p == "" {
		p = m.defaultProvider
	}
	if a := m.byProvider[p]; a != nil {
		return a, nil
	}
	return nil, fmt.Errorf("%w: %q is not configured", domain.ErrUnknownProvider, p)
}

func (m *MultiProvider) Default() model.Provider { return m.defaultProvider }

// Providers lists configured providers in a stable order.
func (m *MultiProvider) Providers() []model.Provider {
	out := make([]model.Provider, 0, len(m.byProvider))
	for p, a := range m.byProvider {
		if a != nil {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
