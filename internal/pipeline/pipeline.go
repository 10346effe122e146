// Package pipeline chains the full green view workflow: sample points,
// metadata, imagery, classification, export.
package pipeline

import (
	"context"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/sensingcity/greenview-cli/internal/collector"
	"github.com/sensingcity/greenview-cli/internal/config"
	"github.com/sensingcity/greenview-cli/internal/export"
	"github.com/sensingcity/greenview-cli/internal/fetcher"
	"github.com/sensingcity/greenview-cli/internal/gvi"
	"github.com/sensingcity/greenview-cli/internal/sampler"
	"github.com/sensingcity/greenview-cli/pkg/streetview"
)

// Dirs names the on-disk layout of one pipeline run rooted at a work
// directory.
type Dirs struct {
	Root string
}

// Points is the densified sample point shapefile.
func (d Dirs) Points() string { return filepath.Join(d.Root, "points.shp") }

// Metadata is the directory of Pnt_*.jsonl batches.
func (d Dirs) Metadata() string { return filepath.Join(d.Root, "metadata") }

// Images is the per-panorama image store.
func (d Dirs) Images() string { return filepath.Join(d.Root, "streetview") }

// Greenview is the directory of GV_*.jsonl batches.
func (d Dirs) Greenview() string { return filepath.Join(d.Root, "greenview") }

// Shapefile is the exported point dataset.
func (d Dirs) Shapefile() string { return filepath.Join(d.Root, "greenview.shp") }

// Pipeline runs every stage in order. Each stage is individually resumable,
// so re-running a half-finished pipeline picks up where it stopped.
type Pipeline struct {
	cfg    *config.Config
	client streetview.Client
	dirs   Dirs
}

// New creates a Pipeline over the given work directory.
func New(cfg *config.Config, client streetview.Client, dirs Dirs) *Pipeline {
	return &Pipeline{cfg: cfg, client: client, dirs: dirs}
}

// Run executes sampling (unless the point shapefile already exists),
// metadata collection, image fetching, GVI aggregation, and export.
func (p *Pipeline) Run(ctx context.Context, streetShp string) error {
	log := zap.L().With(zap.String("component", "pipeline"))

	if streetShp != "" {
		log.Info("stage: create sample points")
		if err := sampler.CreatePoints(streetShp, p.dirs.Points(), p.cfg.Sampler.MinDist); err != nil {
			return err
		}
	}

	points, err := sampler.ReadPoints(p.dirs.Points())
	if err != nil {
		return err
	}

	log.Info("stage: collect metadata", zap.Int("points", len(points)))
	coll := collector.New(p.client, collector.Options{
		OutputDir:   p.dirs.Metadata(),
		BatchSize:   p.cfg.Batch.Size,
		Concurrency: p.cfg.Concurrency,
	})
	if err := coll.Collect(ctx, points); err != nil {
		return err
	}

	log.Info("stage: fetch images")
	f := fetcher.New(p.client, fetcher.Options{
		MetadataDir:   p.dirs.Metadata(),
		OutputDir:     p.dirs.Images(),
		GreenMonths:   p.cfg.GreenMonths,
		ImagesPerPano: p.cfg.Images.PerPano,
		ImageSize:     p.cfg.Images.Size,
		Concurrency:   p.cfg.Concurrency,
	})
	if err := f.Fetch(ctx); err != nil {
		return err
	}

	log.Info("stage: compute green view index")
	if err := gvi.Aggregate(ctx, gvi.AggregateOptions{
		MetadataDir: p.dirs.Metadata(),
		ImageDir:    p.dirs.Images(),
		OutputDir:   p.dirs.Greenview(),
		Segment:     p.cfg.Segment,
	}); err != nil {
		return err
	}

	log.Info("stage: export shapefile")
	records, err := export.ReadGviRecords(p.dirs.Greenview())
	if err != nil {
		return err
	}
	if err := export.WriteShapefile(p.dirs.Shapefile(), records); err != nil {
		return err
	}

	log.Info("pipeline complete", zap.Int("panoramas", len(records)))
	return nil
}
