// Package collector resolves sampled street points to panorama metadata in
// resumable batches.
package collector

import (
	"context"
	"os"
	"path/filepath"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sensingcity/greenview-cli/internal/model"
	"github.com/sensingcity/greenview-cli/pkg/streetview"
)

// Options configures a metadata collection run.
type Options struct {
	OutputDir   string // destination for Pnt_*.jsonl batches
	BatchSize   int    // points per batch file
	Concurrency int    // in-flight lookup cap
}

// Collector drives batched metadata lookups against the imagery service.
type Collector struct {
	client streetview.Client
	opts   Options
}

// New creates a Collector.
func New(client streetview.Client, opts Options) *Collector {
	if opts.BatchSize <= 0 {
		opts.BatchSize = 500
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = 500
	}
	return &Collector{client: client, opts: opts}
}

// Collect partitions points into batches of the configured size and resolves
// each batch whose output file is absent. The file for a batch is written in
// full or not at all; its presence is the only completion marker. Panorama
// IDs are deduplicated across the whole run, seeded from batches already on
// disk so a resumed run never re-emits a panorama.
func (c *Collector) Collect(ctx context.Context, points []model.SamplePoint) error {
	log := zap.L().With(zap.String("component", "collector"))

	if err := os.MkdirAll(c.opts.OutputDir, 0o755); err != nil {
		return eris.Wrapf(err, "collector: create output dir %s", c.opts.OutputDir)
	}

	seen, err := model.SeenPanoIDs(c.opts.OutputDir)
	if err != nil {
		return err
	}
	if len(seen) > 0 {
		log.Info("recovered dedup state from existing batches", zap.Int("panoramas", len(seen)))
	}

	total := len(points)
	for start := 0; start < total; start += c.opts.BatchSize {
		end := start + c.opts.BatchSize
		if end > total {
			end = total
		}

		outPath := filepath.Join(c.opts.OutputDir, model.BatchStem(start, end)+".jsonl")
		if _, err := os.Stat(outPath); err == nil {
			log.Debug("batch already collected, skipping", zap.String("file", filepath.Base(outPath)))
			continue
		}

		records, err := c.collectBatch(ctx, points[start:end], seen)
		if err != nil {
			return err
		}
		if err := model.WriteBatchFile(outPath, records); err != nil {
			return err
		}
		log.Info("batch collected",
			zap.String("file", filepath.Base(outPath)),
			zap.Int("points", end-start),
			zap.Int("panoramas", len(records)),
		)
	}
	return nil
}

// collectBatch looks up every point concurrently, then filters and
// deduplicates sequentially so batch output order follows point order.
func (c *Collector) collectBatch(ctx context.Context, points []model.SamplePoint, seen map[string]struct{}) ([]model.PanoRecord, error) {
	log := zap.L().With(zap.String("component", "collector"))

	responses := make([]*streetview.MetadataResponse, len(points))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.opts.Concurrency)
	for i, pt := range points {
		i, pt := i, pt
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			meta, err := c.client.Metadata(gctx, pt.Latitude, pt.Longitude)
			if err != nil {
				// Transient lookup failure: the point is dropped, the batch
				// continues.
				log.Warn("metadata lookup failed, dropping point",
					zap.Float64("lat", pt.Latitude),
					zap.Float64("lng", pt.Longitude),
					zap.Error(err),
				)
				return nil
			}
			responses[i] = meta
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	records := make([]model.PanoRecord, 0, len(points))
	for _, meta := range responses {
		if meta == nil || !meta.OK() {
			continue
		}
		if _, dup := seen[meta.PanoID]; dup {
			continue
		}
		seen[meta.PanoID] = struct{}{}
		records = append(records, model.PanoRecord{
			PanoID:    meta.PanoID,
			PanoDate:  meta.Date,
			Longitude: meta.Location.Lng,
			Latitude:  meta.Location.Lat,
		})
	}
	return records, nil
}
