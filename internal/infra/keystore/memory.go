// Package keystore holds the process-local credential store used when no
// redis is configured.
package keystore

import (
	"context"
	"sync"

	"stock-metadata-generator/internal/domain/model"
	"stock-metadata-generator/internal/domain/ports/repository"
	"stock-metadata-generator/internal/infra/metrics"
)

var _ repository.KeyStore = (*Memory)(nil)

type Memory struct {
	mu   sync.RWMutex
	keys map[model.Provider][]string
}

func NewMemory() *Memory {
	return &Memory{keys: map[model.Provider][]string{}}
}

func (m *Memory) Load(ctx context.Context, provider model.Provider) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	metrics.IncKeyStoreOp("memory", "load", nil)
	return append([]string(nil), m.keys[provider]...), nil
}

func (m *Memory) Save(ctx context.Context, provider model.Provider, keys []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.keys[provider] = append([]string(nil), keys...)
	metrics.IncKeyStoreOp("memory", "save", nil)
	return nil
}
