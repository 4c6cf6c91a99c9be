// File: internal/usecase/intake_uc.go
package usecase

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"stock-metadata-generator/internal/domain"
	"stock-metadata-generator/internal/domain/model"
	"stock-metadata-generator/internal/domain/ports/adapter"
	"stock-metadata-generator/internal/infra/logging"
)

const (
	DefaultMaxFiles   = 100
	thumbnailParallel = 8
)

// AcceptedExtensions lists the upload types intake understands.
var AcceptedExtensions = []string{".jpg", ".jpeg", ".png", ".ai", ".eps", ".mp4", ".mov"}

// Compile-time check
var _ IntakeUseCase = (*intakeUC)(nil)

type IntakeUseCase interface {
	Intake(ctx context.Context, files []model.File) ([]model.WorkItem, error)
}

type intakeUC struct {
	store    *ItemStore
	thumbs   adapter.Thumbnailer
	maxFiles int
	log      *zerolog.Logger
}

func NewIntakeUseCase(store *ItemStore, thumbs adapter.Thumbnailer, maxFiles int, log *zerolog.Logger) *intakeUC {
	if maxFiles <= 0 {
		maxFiles = DefaultMaxFiles
	}
	return &intakeUC{store: store, thumbs: thumbs, maxFiles: maxFiles, log: log}
}

// Intake pairs the upload into work items, renders thumbnails and appends the
// items to the store.
func (u *intakeUC) Intake(ctx context.Context, files []model.File) ([]model.WorkItem, error) {
	if len(files) > u.maxFiles {
		return nil, fmt.Errorf("%w: %d files, at most %d", domain.ErrTooManyFiles, len(files), u.maxFiles)
	}
	log := logging.With(ctx, u.log)

	accepted := make([]model.File, 0, len(files))
	for _, f := range files {
		if !IsAccepted(f) {
			log.Warn().Str("file", f.Name).Msg("skipping unsupported upload")
			continue
		}
		accepted = append(accepted, f)
	}
	if len(accepted) == 0 {
		return nil, fmt.Errorf("%w: no supported files", domain.ErrInvalidArgument)
	}

	items := PairFiles(accepted, uuid.NewString)
	u.renderThumbnails(ctx, items, log)
	u.store.Append(items...)
	log.Info().Int("files", len(accepted)).Int("items", len(items)).Msg("intake complete")
	return model.CloneItems(items), nil
}

// renderThumbnails fills Thumbnail in place. Failures degrade to an empty
// thumbnail and never fail intake.
func (u *intakeUC) renderThumbnails(ctx context.Context, items []model.WorkItem, log *zerolog.Logger) {
	if u.thumbs == nil {
		return
	}
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(thumbnailParallel)
	for i := range items {
		g.Go(func() error {
			if ctx.Err() != nil {
				return nil
			}
			src := items[i].AnalysisFile()
			b, err := u.thumbs.Thumbnail(src)
			if err != nil {
				log.Debug().Err(err).Str("file", src.Name).Msg("thumbnail failed")
				return nil
			}
			items[i].Thumbnail = b
			return nil
		})
	}
	_ = g.Wait()
}

func IsAccepted(f model.File) bool {
	ext := f.Ext()
	for _, e := range AcceptedExtensions {
		if ext == e {
			return true
		}
	}
	return false
}

// PairFiles turns uploads into work items. A vector takes the first unused
// raster with the same base name as its preview; that raster is not emitted
// on its own. Vectors come first, then remaining files, both in upload order.
func PairFiles(files []model.File, newID func() string) []model.WorkItem {
	consumed := make([]bool, len(files))
	var vectors, others []int
	for i, f := range files {
		if f.IsVector() {
			vectors = append(vectors, i)
		} else {
			others = append(others, i)
		}
	}

	items := make([]model.WorkItem, 0, len(files))
	for _, vi := range vectors {
		var preview *model.File
		base := strings.ToLower(files[vi].BaseName())
		for _, oi := range others {
			if consumed[oi] || !files[oi].IsRaster() {
				continue
			}
			if strings.ToLower(files[oi].BaseName()) == base {
				pf := files[oi]
				preview = &pf
				consumed[oi] = true
				break
			}
		}
		items = append(items, model.NewWorkItem(newID(), files[vi], preview))
	}
	for _, oi := range others {
		if !consumed[oi] {
			items = append(items, model.NewWorkItem(newID(), files[oi], nil))
		}
	}
	return items
}
