package model

import (
	"path/filepath"
	"strings"
)

type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusComplete   Status = "complete"
	StatusError      Status = "error"
)

// File is an uploaded asset held in memory for the lifetime of a run.
type File struct {
	Name     string `json:"name"`
	MIMEType string `json:"mime_type"`
	Data     []byte `json:"-"`
}

// Ext returns the lowercased extension including the dot.
func (f File) Ext() string {
	return strings.ToLower(filepath.Ext(f.Name))
}

// BaseName is the file name without directory or extension.
func (f File) BaseName() string {
	base := filepath.Base(f.Name)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

func (f File) IsVector() bool {
	switch f.Ext() {
	case ".ai", ".eps":
		return true
	}
	return false
}

func (f File) IsRaster() bool {
	switch f.Ext() {
	case ".jpg", ".jpeg", ".png":
		return true
	}
	return false
}

func (f File) IsVideo() bool {
	switch f.Ext() {
	case ".mp4", ".mov":
		return true
	}
	return false
}

// WorkItem is one deliverable asset plus its per-platform generation state.
type WorkItem struct {
	ID               string                 `json:"id"`
	PrimaryFile      File                   `json:"primary_file"`
	PreviewFile      *File                  `json:"preview_file,omitempty"`
	Thumbnail        []byte                 `json:"-"`
	Status           Status                 `json:"status"`
	PlatformMetadata map[Platform]*Metadata `json:"platform_metadata"`
	Error            string                 `json:"error,omitempty"`
	ActivePlatform   Platform               `json:"active_platform"`
}

// NewWorkItem creates a pending item.
func NewWorkItem(id string, primary File, preview *File) WorkItem {
	return WorkItem{
		ID:               id,
		PrimaryFile:      primary,
		PreviewFile:      preview,
		Status:           StatusPending,
		PlatformMetadata: map[Platform]*Metadata{},
		ActivePlatform:   PlatformAdobe,
	}
}

// AnalysisFile is the file sent to providers: the preview when present.
func (w WorkItem) AnalysisFile() File {
	if w.PreviewFile != nil {
		return *w.PreviewFile
	}
	return w.PrimaryFile
}

// HasMetadata reports whether any of the given platforms has metadata.
func (w WorkItem) HasMetadata(platforms ...Platform) bool {
	for _, p := range platforms {
		if w.PlatformMetadata[p] != nil {
			return true
		}
	}
	return false
}

// Clone deep-copies the mutable parts of the item. File bytes are shared
// since they are never mutated after intake.
func (w WorkItem) Clone() WorkItem {
	out := w
	if w.PreviewFile != nil {
		pf := *w.PreviewFile
		out.PreviewFile = &pf
	}
	out.PlatformMetadata = make(map[Platform]*Metadata, len(w.PlatformMetadata))
	for p, md := range w.PlatformMetadata {
		if md == nil {
			continue
		}
		c := md.Clone()
		out.PlatformMetadata[p] = &c
	}
	return out
}

// CloneItems deep-copies a collection.
func CloneItems(items []WorkItem) []WorkItem {
	out := make([]WorkItem, len(items))
	for i := range items {
		out[i] = items[i].Clone()
	}
	return out
}

// Patch produces a new item value from an existing one.
type Patch func(WorkItem) WorkItem

// ApplyUpdate returns a new collection with the item identified by id
// replaced by patch(item). The input slice is never modified.
func ApplyUpdate(items []WorkItem, id string, patch Patch) []WorkItem {
	out := make([]WorkItem, len(items))
	copy(out, items)
	for i := range out {
		if out[i].ID == id {
			out[i] = patch(out[i].Clone())
			break
		}
	}
	return out
}

func MarkProcessing() Patch {
	return func(w WorkItem) WorkItem {
		w.Status = StatusProcessing
		w.Error = ""
		return w
	}
}

// MergeMetadata writes md into the slot for p, leaving other platforms as-is.
func MergeMetadata(p Platform, md Metadata) Patch {
	return func(w WorkItem) WorkItem {
		if w.PlatformMetadata == nil {
			w.PlatformMetadata = map[Platform]*Metadata{}
		}
		c := md.Clone()
		w.PlatformMetadata[p] = &c
		return w
	}
}

func MarkComplete() Patch {
	return func(w WorkItem) WorkItem {
		w.Status = StatusComplete
		w.Error = ""
		return w
	}
}

func MarkError(msg string) Patch {
	return func(w WorkItem) WorkItem {
		w.Status = StatusError
		w.Error = msg
		return w
	}
}

// ResetForRegeneration clears error state and the slots of the platforms
// about to be regenerated.
func ResetForRegeneration(platforms []Platform) Patch {
	return func(w WorkItem) WorkItem {
		w.Status = StatusProcessing
		w.Error = ""
		for _, p := range platforms {
			delete(w.PlatformMetadata, p)
		}
		return w
	}
}

func SetActivePlatform(p Platform) Patch {
	return func(w WorkItem) WorkItem {
		w.ActivePlatform = p
		return w
	}
}

func SetThumbnail(b []byte) Patch {
	return func(w WorkItem) WorkItem {
		w.Thumbnail = b
		return w
	}
}
