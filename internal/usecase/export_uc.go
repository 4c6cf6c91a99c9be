// File: internal/usecase/export_uc.go
package usecase

import (
	"archive/zip"
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/rs/zerolog"

	"stock-metadata-generator/internal/domain"
	"stock-metadata-generator/internal/domain/model"
	"stock-metadata-generator/internal/infra/logging"
)

const (
	CSVName     = "metadata.csv"
	maxSlugLen  = 80
	fallbackTag = "asset"
)

var csvHeader = []string{"platform", "filename", "title", "description", "keywords"}

// Compile-time check
var _ ExportUseCase = (*exportUC)(nil)

type ExportUseCase interface {
	// Export writes a zip bundle for platform: every complete item's files
	// renamed from its title, plus metadata.csv. It returns the item count.
	Export(ctx context.Context, w io.Writer, p model.Platform) (int, error)
	ReadyPlatforms() []model.Platform
}

type exportUC struct {
	store   *ItemStore
	catalog *model.Catalog
	log     *zerolog.Logger
}

func NewExportUseCase(store *ItemStore, catalog *model.Catalog, log *zerolog.Logger) *exportUC {
	return &exportUC{store: store, catalog: catalog, log: log}
}

func exportable(items []model.WorkItem, p model.Platform) []model.WorkItem {
	var out []model.WorkItem
	for _, it := range items {
		if it.Status == model.StatusComplete && it.PlatformMetadata[p] != nil {
			out = append(out, it)
		}
	}
	return out
}

func (u *exportUC) ReadyPlatforms() []model.Platform {
	items := u.store.Snapshot()
	var out []model.Platform
	for _, p := range u.catalog.Platforms() {
		if len(exportable(items, p)) > 0 {
			out = append(out, p)
		}
	}
	return out
}

func (u *exportUC) Export(ctx context.Context, w io.Writer, p model.Platform) (int, error) {
	pc, ok := u.catalog.Get(p)
	if !ok {
		return 0, fmt.Errorf("%w: %q", domain.ErrUnknownPlatform, p)
	}
	items := exportable(u.store.Snapshot(), p)
	if len(items) == 0 {
		return 0, fmt.Errorf("%w: %s", domain.ErrNothingToExport, pc.Name)
	}

	zw := zip.NewWriter(w)
	names := newNamer()
	rows := [][]string{csvHeader}
	now := time.Now()
	for _, it := range items {
		if err := ctx.Err(); err != nil {
			return 0, err
		}
		md := it.PlatformMetadata[p]
		stem := names.claim(Slugify(md.Title, it.PrimaryFile.BaseName()))

		primaryName := stem + it.PrimaryFile.Ext()
		if err := writeEntry(zw, primaryName, it.PrimaryFile.Data, now); err != nil {
			return 0, err
		}
		if it.PreviewFile != nil {
			if err := writeEntry(zw, stem+it.PreviewFile.Ext(), it.PreviewFile.Data, now); err != nil {
				return 0, err
			}
		}
		rows = append(rows, []string{string(p), primaryName, md.Title, md.Description, strings.Join(md.Keywords, ", ")})
	}

	cw, err := zw.CreateHeader(&zip.FileHeader{Name: CSVName, Method: zip.Deflate, Modified: now})
	if err != nil {
		return 0, err
	}
	c := csv.NewWriter(cw)
	if err := c.WriteAll(rows); err != nil {
		return 0, fmt.Errorf("write %s: %w", CSVName, err)
	}
	if err := zw.Close(); err != nil {
		return 0, err
	}
	logging.With(ctx, u.log).Info().Str("platform", string(p)).Int("items", len(items)).Msg("export written")
	return len(items), nil
}

func writeEntry(zw *zip.Writer, name string, data []byte, mod time.Time) error {
	f, err := zw.CreateHeader(&zip.FileHeader{Name: name, Method: zip.Deflate, Modified: mod})
	if err != nil {
		return fmt.Errorf("zip %s: %w", name, err)
	}
	_, err = f.Write(data)
	return err
}

// Slugify turns a title into a lowercase, dash separated file stem. fallback
// is used when the title has no usable characters.
func Slugify(title, fallback string) string {
	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(title) {
		switch {
		case r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r)):
			b.WriteRune(r)
			dash = false
		case b.Len() > 0 && !dash:
			b.WriteByte('-')
			dash = true
		}
		if b.Len() >= maxSlugLen {
			break
		}
	}
	s := strings.Trim(b.String(), "-")
	if s == "" {
		if fallback != "" && fallback != fallbackTag {
			return Slugify(fallback, fallbackTag)
		}
		return fallbackTag
	}
	return s
}

// namer hands out unique stems: "fox", "fox-2", "fox-3"...
type namer struct {
	used map[string]int
}

func newNamer() *namer { return &namer{used: map[string]int{}} }

func (n *namer) claim(stem string) string {
	n.used[stem]++
	if c := n.used[stem]; c > 1 {
		candidate := stem + "-" + strconv.Itoa(c)
		for n.used[candidate] > 0 {
			c++
			candidate = stem + "-" + strconv.Itoa(c)
		}
		n.used[stem] = c
		n.used[candidate] = 1
		return candidate
	}
	return stem
}
