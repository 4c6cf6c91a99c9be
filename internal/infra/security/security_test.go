//go:build !integration

package security

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stock-metadata-generator/internal/domain/model"
	"stock-metadata-generator/internal/infra/keystore"
)

const testKey = "0123456789abcdef0123456789abcdef"

func TestNewCipher_KeyLength(t *testing.T) {
	_, err := NewCipher("short")
	assert.Error(t, err)
	_, err = NewCipher(testKey)
	assert.NoError(t, err)
}

func TestCipher_NonceVaries(t *testing.T) {
	c, err := NewCipher(testKey)
	require.NoError(t, err)
	a, _ := c.Seal("AIza-secret")
	b, _ := c.Seal("AIza-secret")
	assert.NotEqual(t, a, b)

	pt, err := c.Open(a)
	require.NoError(t, err)
	assert.Equal(t, "AIza-secret", pt)

	_, err = c.Open("!!")
	assert.Error(t, err)
}

func TestSealedKeyStore(t *testing.T) {
	ctx := context.Background()
	c, err := NewCipher(testKey)
	require.NoError(t, err)
	inner := keystore.NewMemory()
	store := NewSealedKeyStore(inner, c)

	require.NoError(t, store.Save(ctx, model.ProviderGemini, []string{"k1", "k2"}))

	raw, err := inner.Load(ctx, model.ProviderGemini)
	require.NoError(t, err)
	require.Len(t, raw, 2)
	assert.NotContains(t, raw, "k1")

	got, err := store.Load(ctx, model.ProviderGemini)
	require.NoError(t, err)
	assert.Equal(t, []string{"k1", "k2"}, got)

	other, _ := NewCipher("fedcba9876543210fedcba9876543210")
	_, err = NewSealedKeyStore(inner, other).Load(ctx, model.ProviderGemini)
	assert.Error(t, err)
}
