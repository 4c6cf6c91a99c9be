//go:build !integration

package usecase

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"stock-metadata-generator/internal/domain"
	"stock-metadata-generator/internal/domain/model"
	"stock-metadata-generator/internal/domain/ports/adapter"
	"stock-metadata-generator/internal/infra/keystore"
	"stock-metadata-generator/internal/infra/logging"
	"stock-metadata-generator/internal/infra/worker"
)

// ---- Fakes ----

type call struct {
	itemFile   string
	platform   model.Platform
	credential string
	start, end time.Time
}

// fakeProvider records every Generate call. failOn and delayFor let tests
// script outcomes per file name and platform.
type fakeProvider struct {
	mu       sync.Mutex
	calls    []call
	failOn   map[string]model.Platform
	delayFor map[string]time.Duration
	block    chan struct{}
}

func (f *fakeProvider) Name() string { return "fake" }

func (f *fakeProvider) Generate(ctx context.Context, req adapter.GenerateRequest) (model.Metadata, error) {
	c := call{itemFile: req.Primary.Name, platform: req.Platform.ID, credential: req.Credential, start: time.Now()}
	if f.block != nil {
		select {
		case <-f.block:
		case <-ctx.Done():
			return model.Metadata{}, ctx.Err()
		}
	}
	if d := f.delayFor[req.Primary.Name]; d > 0 {
		time.Sleep(d)
	}
	c.end = time.Now()
	f.mu.Lock()
	f.calls = append(f.calls, c)
	f.mu.Unlock()

	if p, ok := f.failOn[req.Primary.Name]; ok && p == req.Platform.ID {
		return model.Metadata{}, &adapter.ProviderError{Provider: "fake", StatusCode: 401, Message: "invalid api key"}
	}
	return model.Metadata{
		Title:       req.Primary.BaseName() + " for " + string(req.Platform.ID),
		Description: "generated",
		Keywords:    []string{"one", "two"},
	}, nil
}

func (f *fakeProvider) Calls() []call {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]call(nil), f.calls...)
}

type fakeResolver struct {
	def       model.Provider
	providers map[model.Provider]adapter.MetadataProvider
}

func (r *fakeResolver) Default() model.Provider { return r.def }

func (r *fakeResolver) Provider(p model.Provider) (adapter.MetadataProvider, error) {
	if p == "" {
		p = r.def
	}
	if a, ok := r.providers[p]; ok {
		return a, nil
	}
	return nil, fmt.Errorf("%w: %q", domain.ErrUnknownProvider, p)
}

type fakeThumbs struct{ failFor string }

func (f *fakeThumbs) Thumbnail(file model.File) ([]byte, error) {
	if file.Name == f.failFor {
		return nil, errors.New("cannot decode")
	}
	return []byte("thumb:" + file.Name), nil
}

type failingKeyStore struct{}

func (failingKeyStore) Load(ctx context.Context, p model.Provider) ([]string, error) { return nil, nil }
func (failingKeyStore) Save(ctx context.Context, p model.Provider, keys []string) error {
	return errors.New("store unavailable")
}

// syncSubmitter runs tasks inline so background paths are deterministic.
type syncSubmitter struct{}

func (syncSubmitter) Submit(task worker.Task) error {
	return task(context.Background())
}

// ---- Fixtures ----

type batchFixture struct {
	store    *ItemStore
	provider *fakeProvider
	creds    *CredentialRegistry
	batch    *batchUC
}

func newBatchFixture(t *testing.T, keys ...string) *batchFixture {
	t.Helper()
	log := logging.Nop()
	store := NewItemStore()
	prov := &fakeProvider{}
	creds := NewCredentialRegistry(keystore.NewMemory(), log, model.ProviderGemini)
	if err := creds.Seed(context.Background(), model.ProviderGemini, keys); err != nil {
		t.Fatalf("seed: %v", err)
	}
	resolver := &fakeResolver{def: model.ProviderGemini, providers: map[model.Provider]adapter.MetadataProvider{model.ProviderGemini: prov}}
	b := NewBatchUseCase(store, resolver, creds, model.MustDefaultCatalog(), nil, 6, log)
	return &batchFixture{store: store, provider: prov, creds: creds, batch: b}
}

func addItems(store *ItemStore, n int) []model.WorkItem {
	items := make([]model.WorkItem, n)
	for i := range items {
		items[i] = model.NewWorkItem(fmt.Sprintf("id-%d", i+1), model.File{Name: fmt.Sprintf("item%d.jpg", i+1)}, nil)
	}
	store.Append(items...)
	return items
}

func allPlatforms() []model.Platform {
	return []model.Platform{model.PlatformAdobe, model.PlatformShutterstock, model.PlatformFreepik}
}

func completeItem(id, title string, keywords ...string) model.WorkItem {
	it := model.NewWorkItem(id, model.File{Name: id + ".jpg", Data: []byte(id)}, nil)
	it.Status = model.StatusComplete
	it.PlatformMetadata[model.PlatformAdobe] = &model.Metadata{Title: title, Description: "desc", Keywords: keywords}
	return it
}
