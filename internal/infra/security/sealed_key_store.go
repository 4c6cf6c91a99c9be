package security

import (
	"context"
	"fmt"

	"stock-metadata-generator/internal/domain/model"
	"stock-metadata-generator/internal/domain/ports/repository"
)

var _ repository.KeyStore = (*SealedKeyStore)(nil)

// SealedKeyStore encrypts every credential before it reaches the inner
// store, so provider keys never sit in Redis as plaintext.
type SealedKeyStore struct {
	inner  repository.KeyStore
	cipher *Cipher
}

func NewSealedKeyStore(inner repository.KeyStore, c *Cipher) *SealedKeyStore {
	return &SealedKeyStore{inner: inner, cipher: c}
}

func (s *SealedKeyStore) Load(ctx context.Context, provider model.Provider) ([]string, error) {
	sealed, err := s.inner.Load(ctx, provider)
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(sealed))
	for i, v := range sealed {
		k, err := s.cipher.Open(v)
		if err != nil {
			return nil, fmt.Errorf("open %s credential %d: %w", provider, i, err)
		}
		out = append(out, k)
	}
	return out, nil
}

func (s *SealedKeyStore) Save(ctx context.Context, provider model.Provider, keys []string) error {
	sealed := make([]string, len(keys))
	for i, k := range keys {
		v, err := s.cipher.Seal(k)
		if err != nil {
			return err
		}
		sealed[i] = v
	}
	return s.inner.Save(ctx, provider, sealed)
}
