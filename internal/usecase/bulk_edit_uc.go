// File: internal/usecase/bulk_edit_uc.go
package usecase

import (
	"fmt"
	"strings"
	"sync"

	"github.com/rs/zerolog"

	"stock-metadata-generator/internal/domain"
	"stock-metadata-generator/internal/domain/compliance"
	"stock-metadata-generator/internal/domain/model"
)

// Compile-time check
var _ BulkEditUseCase = (*bulkEditUC)(nil)

// BulkEdit is applied to every complete item's metadata on Platforms, in
// order: find/replace in the title, prefix/suffix wrap, keyword union.
type BulkEdit struct {
	Platforms   []model.Platform `json:"platforms"`
	Find        string           `json:"find"`
	Replace     string           `json:"replace"`
	Prefix      string           `json:"prefix"`
	Suffix      string           `json:"suffix"`
	AddKeywords string           `json:"add_keywords"` // comma separated
}

type BulkEditUseCase interface {
	Apply(edit BulkEdit) (modified int, err error)
	Undo() error
	HistoryLen() int
	SetActivePlatform(id string, p model.Platform) error
	EditMetadata(id string, p model.Platform, md model.Metadata) (model.Metadata, error)
}

type bulkEditUC struct {
	store   *ItemStore
	catalog *model.Catalog
	log     *zerolog.Logger

	mu      sync.Mutex
	history *model.History
}

func NewBulkEditUseCase(store *ItemStore, catalog *model.Catalog, historyLimit int, log *zerolog.Logger) *bulkEditUC {
	return &bulkEditUC{store: store, catalog: catalog, log: log, history: model.NewHistory(historyLimit)}
}

func (u *bulkEditUC) Apply(edit BulkEdit) (int, error) {
	if len(edit.Platforms) == 0 {
		return 0, domain.ErrNoPlatforms
	}
	for _, p := range edit.Platforms {
		if _, ok := u.catalog.Get(p); !ok {
			return 0, fmt.Errorf("%w: %q", domain.ErrUnknownPlatform, p)
		}
	}

	u.mu.Lock()
	defer u.mu.Unlock()
	var modified int
	u.store.Transform(func(items []model.WorkItem) []model.WorkItem {
		u.history.Push(model.NewSnapshot(items))
		var out []model.WorkItem
		out, modified = ApplyBulkEdit(items, edit)
		return out
	})
	u.log.Info().Int("modified", modified).Int("history", u.history.Len()).Msg("bulk edit applied")
	return modified, nil
}

func (u *bulkEditUC) Undo() error {
	u.mu.Lock()
	defer u.mu.Unlock()
	snap, ok := u.history.Pop()
	if !ok {
		return domain.ErrNothingToUndo
	}
	u.store.Replace(snap.Items())
	u.log.Info().Int("history", u.history.Len()).Msg("bulk edit undone")
	return nil
}

func (u *bulkEditUC) HistoryLen() int {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.history.Len()
}

func (u *bulkEditUC) SetActivePlatform(id string, p model.Platform) error {
	if _, ok := u.catalog.Get(p); !ok {
		return fmt.Errorf("%w: %q", domain.ErrUnknownPlatform, p)
	}
	return u.store.Update(id, model.SetActivePlatform(p))
}

// EditMetadata stores a manual edit for one platform slot. Hard platform
// bounds still apply so packaging never sees over-long fields.
func (u *bulkEditUC) EditMetadata(id string, p model.Platform, md model.Metadata) (model.Metadata, error) {
	pc, ok := u.catalog.Get(p)
	if !ok {
		return model.Metadata{}, fmt.Errorf("%w: %q", domain.ErrUnknownPlatform, p)
	}
	if strings.TrimSpace(md.Title) == "" {
		return model.Metadata{}, fmt.Errorf("%w: title is required", domain.ErrInvalidArgument)
	}
	md.Title = compliance.TruncateAtWord(strings.TrimSpace(md.Title), pc.TitleMax)
	md.Description = compliance.TruncateDescription(strings.TrimSpace(md.Description), pc.DescMax)
	md.Keywords = compliance.Dedupe(ParseKeywordList(strings.Join(md.Keywords, ",")))
	if pc.KeywordsMax > 0 && len(md.Keywords) > pc.KeywordsMax {
		md.Keywords = md.Keywords[:pc.KeywordsMax]
	}
	if err := u.store.Update(id, model.MergeMetadata(p, md)); err != nil {
		return model.Metadata{}, err
	}
	return md, nil
}

// ApplyBulkEdit is the pure transformation behind Apply. It returns the new
// collection and the number of items that had metadata on a targeted
// platform.
func ApplyBulkEdit(items []model.WorkItem, edit BulkEdit) ([]model.WorkItem, int) {
	add := ParseKeywordList(edit.AddKeywords)
	out := model.CloneItems(items)
	modified := 0
	for i := range out {
		if out[i].Status != model.StatusComplete {
			continue
		}
		touched := false
		for _, p := range edit.Platforms {
			md := out[i].PlatformMetadata[p]
			if md == nil {
				continue
			}
			touched = true
			if edit.Find != "" {
				md.Title = strings.ReplaceAll(md.Title, edit.Find, edit.Replace)
			}
			md.Title = edit.Prefix + md.Title + edit.Suffix
			md.Keywords = UnionKeywords(md.Keywords, add)
		}
		if touched {
			modified++
		}
	}
	return out, modified
}

// ParseKeywordList splits a comma separated list into trimmed, lowercased
// entries, dropping empties.
func ParseKeywordList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if k := strings.ToLower(strings.TrimSpace(part)); k != "" {
			out = append(out, k)
		}
	}
	return out
}

// UnionKeywords appends the entries of add not already in existing
// (case-insensitive), keeping existing order.
func UnionKeywords(existing, add []string) []string {
	seen := make(map[string]bool, len(existing)+len(add))
	out := make([]string, 0, len(existing)+len(add))
	for _, k := range existing {
		seen[strings.ToLower(k)] = true
		out = append(out, k)
	}
	for _, k := range add {
		lk := strings.ToLower(k)
		if seen[lk] {
			continue
		}
		seen[lk] = true
		out = append(out, lk)
	}
	return out
}
