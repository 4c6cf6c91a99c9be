// File: internal/usecase/credential_pool.go
package usecase

import (
	"context"
	"fmt"
	"math/rand/v2"
	"slices"
	"sort"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog"

	"stock-metadata-generator/internal/domain"
	"stock-metadata-generator/internal/domain/model"
	"stock-metadata-generator/internal/domain/ports/repository"
)

// CredentialPool is the ordered, mutable key list of one provider. Mutations
// are persisted through the KeyStore before they become visible.
type CredentialPool struct {
	provider model.Provider
	store    repository.KeyStore
	log      *zerolog.Logger

	mu       sync.RWMutex
	keys     []string
	watchers map[int]chan []string
	nextW    int
}

func NewCredentialPool(provider model.Provider, store repository.KeyStore, log *zerolog.Logger) *CredentialPool {
	return &CredentialPool{provider: provider, store: store, log: log, watchers: map[int]chan []string{}}
}

func (p *CredentialPool) Provider() model.Provider { return p.provider }

// Load replaces the in-memory list with the persisted one.
func (p *CredentialPool) Load(ctx context.Context) error {
	keys, err := p.store.Load(ctx, p.provider)
	if err != nil {
		return err
	}
	p.mu.Lock()
	p.keys = dedupeKeys(keys)
	snapshot := slices.Clone(p.keys)
	p.mu.Unlock()
	p.log.Debug().Str("provider", string(p.provider)).Int("keys", len(snapshot)).Msg("credential pool loaded")
	p.broadcast(snapshot)
	return nil
}

func (p *CredentialPool) Keys() []string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return slices.Clone(p.keys)
}

func (p *CredentialPool) Len() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.keys)
}

// Add appends key unless it is already present.
func (p *CredentialPool) Add(ctx context.Context, key string) error {
	key = strings.TrimSpace(key)
	if key == "" {
		return fmt.Errorf("%w: empty credential", domain.ErrInvalidArgument)
	}
	return p.mutate(ctx, func(keys []string) ([]string, error) {
		if slices.Contains(keys, key) {
			return keys, nil
		}
		return append(keys, key), nil
	})
}

func (p *CredentialPool) Remove(ctx context.Context, key string) error {
	key = strings.TrimSpace(key)
	return p.mutate(ctx, func(keys []string) ([]string, error) {
		i := slices.Index(keys, key)
		if i < 0 {
			return nil, domain.ErrNotFound
		}
		return slices.Delete(keys, i, i+1), nil
	})
}

func (p *CredentialPool) Clear(ctx context.Context) error {
	return p.mutate(ctx, func([]string) ([]string, error) { return nil, nil })
}

// Watch delivers the full key list after every change. The returned func
// unsubscribes; a slow reader only sees the latest list.
func (p *CredentialPool) Watch() (<-chan []string, func()) {
	p.mu.Lock()
	defer p.mu.Unlock()
	id := p.nextW
	p.nextW++
	ch := make(chan []string, 1)
	p.watchers[id] = ch
	return ch, func() {
		p.mu.Lock()
		defer p.mu.Unlock()
		delete(p.watchers, id)
	}
}

// Random draws a uniformly random key.
func (p *CredentialPool) Random() (string, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if len(p.keys) == 0 {
		return "", fmt.Errorf("%s: %w", p.provider, domain.ErrNoCredential)
	}
	return p.keys[rand.IntN(len(p.keys))], nil
}

// NewRotation starts a round-robin sequence over the current keys. Keys
// added or removed afterwards do not affect an in-progress rotation.
func (p *CredentialPool) NewRotation() *Rotation {
	return &Rotation{provider: p.provider, keys: p.Keys()}
}

func (p *CredentialPool) mutate(ctx context.Context, fn func([]string) ([]string, error)) error {
	p.mu.Lock()
	next, err := fn(slices.Clone(p.keys))
	if err != nil {
		p.mu.Unlock()
		return err
	}
	if err := p.store.Save(ctx, p.provider, next); err != nil {
		p.mu.Unlock()
		return err
	}
	p.keys = next
	snapshot := slices.Clone(next)
	p.mu.Unlock()
	p.broadcast(snapshot)
	return nil
}

func (p *CredentialPool) broadcast(keys []string) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	for _, ch := range p.watchers {
		// drop a stale pending value so the reader gets the latest
		select {
		case <-ch:
		default:
		}
		select {
		case ch <- slices.Clone(keys):
		default:
		}
	}
}

// Rotation hands out keys[n % len] with a distinct n per call.
type Rotation struct {
	provider model.Provider
	keys     []string
	counter  atomic.Uint64
}

func (r *Rotation) Next() (key string, index int, err error) {
	if len(r.keys) == 0 {
		return "", 0, fmt.Errorf("%s: %w", r.provider, domain.ErrNoCredential)
	}
	n := r.counter.Add(1) - 1
	index = int(n % uint64(len(r.keys)))
	return r.keys[index], index, nil
}

// Dispatched reports how many keys were handed out.
func (r *Rotation) Dispatched() uint64 { return r.counter.Load() }

// CredentialRegistry maps each provider to its pool.
type CredentialRegistry struct {
	pools map[model.Provider]*CredentialPool
}

func NewCredentialRegistry(store repository.KeyStore, log *zerolog.Logger, providers ...model.Provider) *CredentialRegistry {
	r := &CredentialRegistry{pools: make(map[model.Provider]*CredentialPool, len(providers))}
	for _, p := range providers {
		r.pools[p] = NewCredentialPool(p, store, log)
	}
	return r
}

func (r *CredentialRegistry) Pool(p model.Provider) (*CredentialPool, error) {
	pool, ok := r.pools[p]
	if !ok {
		return nil, fmt.Errorf("%w: %q", domain.ErrUnknownProvider, p)
	}
	return pool, nil
}

func (r *CredentialRegistry) Providers() []model.Provider {
	out := make([]model.Provider, 0, len(r.pools))
	for p := range r.pools {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// LoadAll loads every pool from the store.
func (r *CredentialRegistry) LoadAll(ctx context.Context) error {
	for _, p := range r.Providers() {
		if err := r.pools[p].Load(ctx); err != nil {
			return fmt.Errorf("load %s credentials: %w", p, err)
		}
	}
	return nil
}

// Seed adds keys that are not yet present, e.g. from configuration.
func (r *CredentialRegistry) Seed(ctx context.Context, p model.Provider, keys []string) error {
	pool, err := r.Pool(p)
	if err != nil {
		return err
	}
	for _, k := range keys {
		if strings.TrimSpace(k) == "" {
			continue
		}
		if err := pool.Add(ctx, k); err != nil {
			return err
		}
	}
	return nil
}

func dedupeKeys(in []string) []string {
	out := make([]string, 0, len(in))
	for _, k := range in {
		if k = strings.TrimSpace(k); k != "" && !slices.Contains(out, k) {
			out = append(out, k)
		}
	}
	return out
}
