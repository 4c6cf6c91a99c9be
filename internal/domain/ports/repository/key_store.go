package repository

import (
	"context"

	"stock-metadata-generator/internal/domain/model"
)

// KeyStore is the port for persisting a provider's credential list.
// Save replaces the whole list; order is preserved.
type KeyStore interface {
	Load(ctx context.Context, provider model.Provider) ([]string, error)
	Save(ctx context.Context, provider model.Provider, keys []string) error
}
