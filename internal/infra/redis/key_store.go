package redis

import (
	"context"
	"fmt"

	"github.com/go-redis/redis/v8"

	"stock-metadata-generator/internal/domain/model"
	"stock-metadata-generator/internal/domain/ports/repository"
	"stock-metadata-generator/internal/infra/metrics"
)

const defaultKeyPrefix = "stockmeta"

var _ repository.KeyStore = (*KeyStore)(nil)

// KeyStore keeps one redis list per provider: <prefix>:keys:<provider>.
type KeyStore struct {
	client RedisClient
	prefix string
}

func NewKeyStore(client RedisClient, prefix string) *KeyStore {
	if prefix == "" {
		prefix = defaultKeyPrefix
	}
	return &KeyStore{client: client, prefix: prefix}
}

func (s *KeyStore) key(p model.Provider) string {
	return s.prefix + ":keys:" + string(p)
}

func (s *KeyStore) Load(ctx context.Context, provider model.Provider) ([]string, error) {
	keys, err := s.client.LRange(ctx, s.key(provider))
	if err == redis.Nil {
		err = nil
	}
	metrics.IncKeyStoreOp("redis", "load", err)
	if err != nil {
		return nil, fmt.Errorf("load %s keys: %w", provider, err)
	}
	return keys, nil
}

func (s *KeyStore) Save(ctx context.Context, provider model.Provider, keys []string) error {
	err := s.client.ReplaceList(ctx, s.key(provider), keys)
	metrics.IncKeyStoreOp("redis", "save", err)
	if err != nil {
		return fmt.Errorf("save %s keys: %w", provider, err)
	}
	return nil
}
