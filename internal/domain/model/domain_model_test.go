//go:build !integration

package model

import (
	"errors"
	"testing"

	"stock-metadata-generator/internal/domain"
)

// --- WorkItem reducer tests ---

func TestApplyUpdate(t *testing.T) {
	items := []WorkItem{
		NewWorkItem("a", File{Name: "a.jpg"}, nil),
		NewWorkItem("b", File{Name: "b.jpg"}, nil),
	}

	t.Run("should replace only the targeted item", func(t *testing.T) {
		out := ApplyUpdate(items, "b", MarkProcessing())
		if out[1].Status != StatusProcessing {
			t.Fatalf("expected b to be processing, got %s", out[1].Status)
		}
		if out[0].Status != StatusPending {
			t.Errorf("expected a to stay pending, got %s", out[0].Status)
		}
		if items[1].Status != StatusPending {
			t.Errorf("input collection must not be mutated")
		}
	})

	t.Run("should keep other platforms when merging", func(t *testing.T) {
		out := ApplyUpdate(items, "a", MergeMetadata(PlatformAdobe, Metadata{Title: "adobe"}))
		out = ApplyUpdate(out, "a", MergeMetadata(PlatformFreepik, Metadata{Title: "freepik"}))
		md := out[0].PlatformMetadata
		if md[PlatformAdobe] == nil || md[PlatformAdobe].Title != "adobe" {
			t.Fatalf("adobe slot lost: %+v", md)
		}
		if md[PlatformFreepik] == nil || md[PlatformFreepik].Title != "freepik" {
			t.Fatalf("freepik slot missing: %+v", md)
		}
		if len(items[0].PlatformMetadata) != 0 {
			t.Errorf("input metadata map must not be mutated")
		}
	})

	t.Run("unknown id returns an equal copy", func(t *testing.T) {
		out := ApplyUpdate(items, "zzz", MarkComplete())
		for i := range out {
			if out[i].Status != items[i].Status {
				t.Fatalf("unexpected change at %d", i)
			}
		}
	})

	t.Run("error patch records message", func(t *testing.T) {
		out := ApplyUpdate(items, "a", MarkError("boom"))
		if out[0].Status != StatusError || out[0].Error != "boom" {
			t.Fatalf("got %+v", out[0])
		}
		out = ApplyUpdate(out, "a", ResetForRegeneration([]Platform{PlatformAdobe}))
		if out[0].Status != StatusProcessing || out[0].Error != "" {
			t.Fatalf("reset did not clear error: %+v", out[0])
		}
	})
}

func TestWorkItem_AnalysisFile(t *testing.T) {
	primary := File{Name: "photo.eps"}
	preview := File{Name: "photo.jpg"}
	w := NewWorkItem("x", primary, &preview)
	if got := w.AnalysisFile().Name; got != "photo.jpg" {
		t.Errorf("expected preview to be analysed, got %s", got)
	}
	w.PreviewFile = nil
	if got := w.AnalysisFile().Name; got != "photo.eps" {
		t.Errorf("expected primary fallback, got %s", got)
	}
}

// --- History tests ---

func TestHistory_CapEvictsOldest(t *testing.T) {
	h := NewHistory(DefaultHistoryLimit)
	for i := 0; i < 12; i++ {
		h.Push(NewSnapshot([]WorkItem{{ID: string(rune('a' + i))}}))
	}
	if h.Len() != 10 {
		t.Fatalf("expected 10 snapshots, got %d", h.Len())
	}
	var last Snapshot
	for i := 0; i < 10; i++ {
		s, ok := h.Pop()
		if !ok {
			t.Fatalf("pop %d failed", i)
		}
		last = s
	}
	if got := last.Items()[0].ID; got != "c" {
		t.Errorf("oldest remaining snapshot should be the 3rd push, got %q", got)
	}
	if _, ok := h.Pop(); ok {
		t.Error("expected empty history")
	}
}

func TestSnapshot_IsImmutable(t *testing.T) {
	items := []WorkItem{NewWorkItem("a", File{Name: "a.jpg"}, nil)}
	items = ApplyUpdate(items, "a", MergeMetadata(PlatformAdobe, Metadata{Title: "t", Keywords: []string{"k"}}))
	s := NewSnapshot(items)
	items[0].PlatformMetadata[PlatformAdobe].Title = "changed"
	got := s.Items()
	if got[0].PlatformMetadata[PlatformAdobe].Title != "t" {
		t.Fatalf("snapshot shared state with live collection")
	}
	got[0].PlatformMetadata[PlatformAdobe].Keywords[0] = "zz"
	if s.Items()[0].PlatformMetadata[PlatformAdobe].Keywords[0] != "k" {
		t.Fatalf("Items() must return a copy")
	}
}

// --- Catalog / settings tests ---

func TestDefaultCatalog(t *testing.T) {
	c, err := DefaultCatalog()
	if err != nil {
		t.Fatalf("expected embedded catalog to parse: %v", err)
	}
	if len(c.Platforms()) != 3 {
		t.Fatalf("expected 3 platforms, got %v", c.Platforms())
	}
	for _, p := range c.Platforms() {
		pc, ok := c.Get(p)
		if !ok || pc.TitleMax == 0 || pc.Prompt == "" {
			t.Errorf("platform %s incomplete: %+v", p, pc)
		}
	}
}

func TestParseCatalog_RejectsUnknownPlatform(t *testing.T) {
	_, err := ParseCatalog([]byte("platforms:\n  - id: pinterest\n    title_max: 10\n    desc_max: 10\n"))
	if !errors.Is(err, domain.ErrUnknownPlatform) {
		t.Fatalf("expected ErrUnknownPlatform, got %v", err)
	}
}

func TestGenerationSettings_Validate(t *testing.T) {
	if err := DefaultSettings().Validate(); err != nil {
		t.Fatalf("defaults should validate: %v", err)
	}
	s := DefaultSettings()
	s.KeywordsMin, s.KeywordsMax = 50, 10
	if err := s.Validate(); !errors.Is(err, domain.ErrInvalidArgument) {
		t.Fatalf("expected ErrInvalidArgument, got %v", err)
	}
}
