// Package fetcher downloads directional panorama views into the on-disk
// image store.
package fetcher

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sensingcity/greenview-cli/internal/model"
	"github.com/sensingcity/greenview-cli/pkg/streetview"
)

// Options configures an image fetch run.
type Options struct {
	MetadataDir   string // directory of Pnt_*.jsonl batches
	OutputDir     string // per-panorama image store
	GreenMonths   []int  // calendar months with visible vegetation
	ImagesPerPano int    // directional views per panorama
	ImageSize     int    // requested view edge length in pixels
	Concurrency   int    // in-flight download cap
}

// Fetcher downloads views for panoramas captured in the green season.
type Fetcher struct {
	client streetview.Client
	opts   Options
}

// New creates a Fetcher.
func New(client streetview.Client, opts Options) *Fetcher {
	if opts.ImagesPerPano <= 0 {
		opts.ImagesPerPano = 3
	}
	if opts.ImageSize <= 0 {
		opts.ImageSize = 400
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = 500
	}
	return &Fetcher{client: client, opts: opts}
}

// Fetch walks the metadata batches in order and downloads the configured
// views for every eligible panorama. A panorama is skipped when its capture
// month is outside the green season or when its store directory already holds
// any view; completion granularity is the panorama, not the heading. A single
// failed view download is dropped, never fatal.
func (f *Fetcher) Fetch(ctx context.Context) error {
	log := zap.L().With(zap.String("component", "fetcher"))

	if err := os.MkdirAll(f.opts.OutputDir, 0o755); err != nil {
		return eris.Wrapf(err, "fetcher: create image store %s", f.opts.OutputDir)
	}

	fetched, err := model.FetchedPanoIDs(f.opts.OutputDir)
	if err != nil {
		return err
	}
	if len(fetched) > 0 {
		log.Info("recovered fetch state from image store", zap.Int("panoramas", len(fetched)))
	}

	greenMonths := make(map[int]struct{}, len(f.opts.GreenMonths))
	for _, m := range f.opts.GreenMonths {
		greenMonths[m] = struct{}{}
	}

	metaFiles, err := filepath.Glob(filepath.Join(f.opts.MetadataDir, "Pnt_*.jsonl"))
	if err != nil {
		return eris.Wrapf(err, "fetcher: glob metadata in %s", f.opts.MetadataDir)
	}
	sort.Strings(metaFiles)

	fov := 360 / f.opts.ImagesPerPano

	for _, metaFile := range metaFiles {
		records, err := model.ReadBatchFile[model.PanoRecord](metaFile)
		if err != nil {
			return err
		}

		var eligible []model.PanoRecord
		for _, rec := range records {
			if _, ok := greenMonths[model.Month(rec.PanoDate)]; !ok {
				continue
			}
			if _, done := fetched[rec.PanoID]; done {
				continue
			}
			fetched[rec.PanoID] = struct{}{}
			eligible = append(eligible, rec)
		}
		if len(eligible) == 0 {
			continue
		}

		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(f.opts.Concurrency)
		for _, rec := range eligible {
			rec := rec
			for i := 0; i < f.opts.ImagesPerPano; i++ {
				heading := i * fov
				g.Go(func() error {
					if err := gctx.Err(); err != nil {
						return err
					}
					f.fetchView(gctx, rec.PanoID, fov, heading)
					return nil
				})
			}
		}
		if err := g.Wait(); err != nil {
			return err
		}

		log.Info("batch fetched",
			zap.String("file", filepath.Base(metaFile)),
			zap.Int("panoramas", len(eligible)),
		)
	}
	return nil
}

// fetchView downloads one heading. Failures leave a hole in the image set.
func (f *Fetcher) fetchView(ctx context.Context, panoID string, fov, heading int) {
	const pitch = 0

	data, err := f.client.Image(ctx, panoID, fov, heading, pitch, f.opts.ImageSize)
	if err != nil {
		zap.L().Warn("view download failed, dropping",
			zap.String("component", "fetcher"),
			zap.String("pano", panoID),
			zap.Int("heading", heading),
			zap.Error(err),
		)
		return
	}

	dir := filepath.Join(f.opts.OutputDir, panoID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		zap.L().Warn("pano dir create failed", zap.String("pano", panoID), zap.Error(err))
		return
	}
	name := fmt.Sprintf("%d-%d-%d.jpg", fov, heading, pitch)
	if err := os.WriteFile(filepath.Join(dir, name), data, 0o644); err != nil {
		zap.L().Warn("view write failed", zap.String("pano", panoID), zap.Error(err))
	}
}
