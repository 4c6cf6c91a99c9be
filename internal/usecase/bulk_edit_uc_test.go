//go:build !integration

package usecase

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stock-metadata-generator/internal/domain"
	"stock-metadata-generator/internal/domain/model"
	"stock-metadata-generator/internal/infra/logging"
)

func newBulkEdit(items ...model.WorkItem) (*bulkEditUC, *ItemStore) {
	store := NewItemStore()
	store.Append(items...)
	return NewBulkEditUseCase(store, model.MustDefaultCatalog(), model.DefaultHistoryLimit, logging.Nop()), store
}

func adobeTitle(t *testing.T, store *ItemStore, id string) string {
	t.Helper()
	it, err := store.Get(id)
	require.NoError(t, err)
	require.NotNil(t, it.PlatformMetadata[model.PlatformAdobe])
	return it.PlatformMetadata[model.PlatformAdobe].Title
}

func TestBulkEdit_PrefixSuffixThenUndo(t *testing.T) {
	uc, store := newBulkEdit(completeItem("a", "Mountain Lake", "lake"))

	n, err := uc.Apply(BulkEdit{Platforms: []model.Platform{model.PlatformAdobe}, Prefix: "NEW_", Suffix: "_v2"})
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, "NEW_Mountain Lake_v2", adobeTitle(t, store, "a"))

	require.NoError(t, uc.Undo())
	assert.Equal(t, "Mountain Lake", adobeTitle(t, store, "a"))
	assert.True(t, errors.Is(uc.Undo(), domain.ErrNothingToUndo))
}

func TestBulkEdit_FindReplaceBeforeWrap(t *testing.T) {
	uc, store := newBulkEdit(completeItem("a", "cat on cat mat"))
	_, err := uc.Apply(BulkEdit{Platforms: []model.Platform{model.PlatformAdobe}, Find: "cat", Replace: "dog", Prefix: "[", Suffix: "]"})
	require.NoError(t, err)
	assert.Equal(t, "[dog on dog mat]", adobeTitle(t, store, "a"))

	// empty find is a no-op for replacement
	_, err = uc.Apply(BulkEdit{Platforms: []model.Platform{model.PlatformAdobe}, Replace: "x"})
	require.NoError(t, err)
	assert.Equal(t, "[dog on dog mat]", adobeTitle(t, store, "a"))
}

func TestBulkEdit_KeywordUnion(t *testing.T) {
	uc, store := newBulkEdit(completeItem("a", "Sky", "sky", "blue"))
	_, err := uc.Apply(BulkEdit{Platforms: []model.Platform{model.PlatformAdobe}, AddKeywords: "sky, Cloud ,sky,"})
	require.NoError(t, err)

	it, _ := store.Get("a")
	assert.Equal(t, []string{"sky", "blue", "cloud"}, it.PlatformMetadata[model.PlatformAdobe].Keywords)
}

func TestBulkEdit_OnlyCompleteItemsWithTargetedMetadata(t *testing.T) {
	pending := model.NewWorkItem("p", model.File{Name: "p.jpg"}, nil)
	pending.PlatformMetadata[model.PlatformAdobe] = &model.Metadata{Title: "untouched"}
	other := completeItem("o", "other platform only")
	other.PlatformMetadata[model.PlatformFreepik] = other.PlatformMetadata[model.PlatformAdobe]
	delete(other.PlatformMetadata, model.PlatformAdobe)

	uc, store := newBulkEdit(completeItem("a", "Title"), pending, other)
	n, err := uc.Apply(BulkEdit{Platforms: []model.Platform{model.PlatformAdobe}, Prefix: "X "})
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, "untouched", adobeTitle(t, store, "p"))

	got, _ := store.Get("o")
	assert.Equal(t, "other platform only", got.PlatformMetadata[model.PlatformFreepik].Title)
}

func TestBulkEdit_HistoryCap(t *testing.T) {
	uc, store := newBulkEdit(completeItem("a", "t"))
	titles := []string{adobeTitle(t, store, "a")}
	for i := 1; i <= 12; i++ {
		_, err := uc.Apply(BulkEdit{Platforms: []model.Platform{model.PlatformAdobe}, Suffix: fmt.Sprint(i%10)})
		require.NoError(t, err)
		titles = append(titles, adobeTitle(t, store, "a"))
	}
	assert.Equal(t, 10, uc.HistoryLen())

	for i := 0; i < 10; i++ {
		require.NoError(t, uc.Undo())
	}
	// state from immediately before the 3rd edit
	assert.Equal(t, titles[2], adobeTitle(t, store, "a"))
	assert.True(t, errors.Is(uc.Undo(), domain.ErrNothingToUndo))
}

func TestBulkEdit_Validation(t *testing.T) {
	uc, _ := newBulkEdit(completeItem("a", "t"))
	_, err := uc.Apply(BulkEdit{Prefix: "x"})
	assert.True(t, errors.Is(err, domain.ErrNoPlatforms))
	_, err = uc.Apply(BulkEdit{Platforms: []model.Platform{"getty"}})
	assert.True(t, errors.Is(err, domain.ErrUnknownPlatform))
	assert.Equal(t, 0, uc.HistoryLen(), "rejected edits must not push history")
}

func TestSetActivePlatformAndEditMetadata(t *testing.T) {
	uc, store := newBulkEdit(completeItem("a", "t"))

	require.NoError(t, uc.SetActivePlatform("a", model.PlatformFreepik))
	it, _ := store.Get("a")
	assert.Equal(t, model.PlatformFreepik, it.ActivePlatform)
	assert.True(t, errors.Is(uc.SetActivePlatform("missing", model.PlatformAdobe), domain.ErrNotFound))

	long := ""
	for i := 0; i < 30; i++ {
		long += "word "
	}
	md, err := uc.EditMetadata("a", model.PlatformFreepik, model.Metadata{Title: long, Keywords: []string{"Sun", "sun", " ", "sea"}})
	require.NoError(t, err)
	assert.LessOrEqual(t, len(md.Title), 100)
	assert.Equal(t, []string{"sun", "sea"}, md.Keywords)

	it, _ = store.Get("a")
	assert.Equal(t, "t", it.PlatformMetadata[model.PlatformAdobe].Title, "other slots are untouched")
	assert.Equal(t, md, *it.PlatformMetadata[model.PlatformFreepik])

	_, err = uc.EditMetadata("a", model.PlatformAdobe, model.Metadata{Title: "  "})
	assert.True(t, errors.Is(err, domain.ErrInvalidArgument))
}

func TestUnionKeywords(t *testing.T) {
	got := UnionKeywords([]string{"sky", "blue"}, []string{"sky", "cloud", "sky"})
	assert.Equal(t, []string{"sky", "blue", "cloud"}, got)
	assert.Empty(t, ParseKeywordList(" , ,"))
}
