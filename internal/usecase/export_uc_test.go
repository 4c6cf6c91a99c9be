//go:build !integration

package usecase

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stock-metadata-generator/internal/domain"
	"stock-metadata-generator/internal/domain/model"
	"stock-metadata-generator/internal/infra/logging"
)

func readZip(t *testing.T, b []byte) map[string][]byte {
	t.Helper()
	zr, err := zip.NewReader(bytes.NewReader(b), int64(len(b)))
	require.NoError(t, err)
	out := map[string][]byte{}
	for _, f := range zr.File {
		rc, err := f.Open()
		require.NoError(t, err)
		data, err := io.ReadAll(rc)
		require.NoError(t, err)
		_ = rc.Close()
		out[f.Name] = data
	}
	return out
}

func TestExport_BundleAndCSV(t *testing.T) {
	vec := completeItem("v", "Red Fox, Autumn!", "fox", "autumn")
	vec.PrimaryFile = model.File{Name: "IMG_1.eps", Data: []byte("eps")}
	vec.PreviewFile = &model.File{Name: "IMG_1.jpg", Data: []byte("jpg")}
	twin := completeItem("w", "Red Fox autumn", "fox")
	pending := model.NewWorkItem("p", model.File{Name: "p.jpg"}, nil)

	store := NewItemStore()
	store.Append(vec, twin, pending)
	uc := NewExportUseCase(store, model.MustDefaultCatalog(), logging.Nop())

	var buf bytes.Buffer
	n, err := uc.Export(context.Background(), &buf, model.PlatformAdobe)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	entries := readZip(t, buf.Bytes())
	assert.Equal(t, []byte("eps"), entries["red-fox-autumn.eps"])
	assert.Equal(t, []byte("jpg"), entries["red-fox-autumn.jpg"])
	assert.Contains(t, entries, "red-fox-autumn-2.jpg")

	rows, err := csv.NewReader(bytes.NewReader(entries[CSVName])).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, []string{"platform", "filename", "title", "description", "keywords"}, rows[0])
	assert.Equal(t, []string{"adobe", "red-fox-autumn.eps", "Red Fox, Autumn!", "desc", "fox, autumn"}, rows[1])
	assert.Equal(t, "red-fox-autumn-2.jpg", rows[2][1])
}

func TestExport_NothingToExport(t *testing.T) {
	store := NewItemStore()
	store.Append(completeItem("a", "t"))
	uc := NewExportUseCase(store, model.MustDefaultCatalog(), logging.Nop())

	_, err := uc.Export(context.Background(), io.Discard, model.PlatformFreepik)
	assert.True(t, errors.Is(err, domain.ErrNothingToExport))
	_, err = uc.Export(context.Background(), io.Discard, "getty")
	assert.True(t, errors.Is(err, domain.ErrUnknownPlatform))

	assert.Equal(t, []model.Platform{model.PlatformAdobe}, uc.ReadyPlatforms())
}

func TestSlugify(t *testing.T) {
	assert.Equal(t, "golden-retriever-on-the-beach", Slugify("  Golden Retriever -- on the Beach ", "x"))
	assert.Equal(t, "img-1", Slugify("???", "IMG_1"))
	assert.Equal(t, "asset", Slugify("日本", ""))

	n := newNamer()
	assert.Equal(t, "fox", n.claim("fox"))
	assert.Equal(t, "fox-2", n.claim("fox"))
	assert.Equal(t, "fox-3", n.claim("fox"))
}
