package gvi

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"sort"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/stat"

	"github.com/sensingcity/greenview-cli/internal/model"
)

// AggregateOptions configures the per-batch GVI computation.
type AggregateOptions struct {
	MetadataDir string // directory of Pnt_*.jsonl batches
	ImageDir    string // per-panorama image store
	OutputDir   string // destination for GV_*.jsonl batches
	Segment     bool   // apply the segmentation pre-filter
	Workers     int    // CPU fan-out; defaults to GOMAXPROCS
}

// Aggregate computes one GviRecord per panorama for every metadata batch
// whose GVI output does not exist yet. Panoramas within a batch are
// classified in parallel; the batch file appears only once every record in it
// is final. A panorama without views gets the MissingGVI sentinel so it can
// be told apart from low-but-valid vegetation cover.
func Aggregate(ctx context.Context, opts AggregateOptions) error {
	log := zap.L().With(zap.String("component", "gvi.aggregate"))

	workers := opts.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	metaFiles, err := filepath.Glob(filepath.Join(opts.MetadataDir, "Pnt_*.jsonl"))
	if err != nil {
		return eris.Wrapf(err, "gvi: glob metadata in %s", opts.MetadataDir)
	}
	sort.Strings(metaFiles)

	if err := os.MkdirAll(opts.OutputDir, 0o755); err != nil {
		return eris.Wrapf(err, "gvi: create output dir %s", opts.OutputDir)
	}

	classifier := &Classifier{}

	for _, metaFile := range metaFiles {
		outPath := filepath.Join(opts.OutputDir, model.GviName(filepath.Base(metaFile)))
		if _, err := os.Stat(outPath); err == nil {
			log.Debug("batch already computed, skipping", zap.String("file", filepath.Base(outPath)))
			continue
		}

		records, err := model.ReadBatchFile[model.PanoRecord](metaFile)
		if err != nil {
			return err
		}

		results := make([]model.GviRecord, len(records))
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(workers)
		for i, rec := range records {
			i, rec := i, rec
			g.Go(func() error {
				if err := gctx.Err(); err != nil {
					return err
				}
				gv, err := panoramaGVI(classifier, opts.ImageDir, rec.PanoID, opts.Segment)
				if err != nil {
					return err
				}
				results[i] = model.GviRecord{PanoRecord: rec, GreenView: gv}
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return err
		}

		if err := model.WriteBatchFile(outPath, results); err != nil {
			return err
		}
		log.Info("batch computed",
			zap.String("file", filepath.Base(outPath)),
			zap.Int("panoramas", len(results)),
		)
	}
	return nil
}

// panoramaGVI averages the classifier over every stored view of one
// panorama.
func panoramaGVI(c *Classifier, imageDir, panoID string, segment bool) (float64, error) {
	views, err := LoadImageSet(imageDir, panoID)
	if err != nil {
		return 0, err
	}
	if len(views) == 0 {
		return model.MissingGVI, nil
	}

	percents := make([]float64, 0, len(views))
	for _, view := range views {
		p, err := c.Classify(view, segment)
		if err != nil {
			return 0, eris.Wrapf(err, "gvi: classify view of %s", panoID)
		}
		percents = append(percents, p)
	}
	return stat.Mean(percents, nil), nil
}
