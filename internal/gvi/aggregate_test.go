package gvi

import (
	"context"
	"image/color"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sensingcity/greenview-cli/internal/model"
)

var leafGreen = color.RGBA{R: 40, G: 180, B: 40, A: 255}

func writeMetaBatch(t *testing.T, dir, name string, records []model.PanoRecord) {
	t.Helper()
	require.NoError(t, model.WriteBatchFile(filepath.Join(dir, name), records))
}

func TestAggregateSentinelForMissingImages(t *testing.T) {
	metaDir, imgDir, outDir := t.TempDir(), t.TempDir(), t.TempDir()
	writeMetaBatch(t, metaDir, "Pnt_start0_end500.jsonl", []model.PanoRecord{
		{PanoID: "GHOST", PanoDate: "2019-06", Longitude: 1, Latitude: 2},
	})

	err := Aggregate(context.Background(), AggregateOptions{
		MetadataDir: metaDir, ImageDir: imgDir, OutputDir: outDir,
	})
	require.NoError(t, err)

	records, err := model.ReadBatchFile[model.GviRecord](filepath.Join(outDir, "GV_Pnt_start0_end500.jsonl"))
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, model.MissingGVI, records[0].GreenView)
	assert.Negative(t, records[0].GreenView, "sentinel must be outside [0,100]")
}

func TestAggregateAveragesViews(t *testing.T) {
	metaDir, imgDir, outDir := t.TempDir(), t.TempDir(), t.TempDir()
	writeMetaBatch(t, metaDir, "Pnt_start0_end500.jsonl", []model.PanoRecord{
		{PanoID: "P1", PanoDate: "2019-06"},
	})

	// Two fully green views and one gray one: the panorama GVI is the mean.
	writePNG(t, filepath.Join(imgDir, "P1", "120-0-0.png"), leafGreen, 8, 8)
	writePNG(t, filepath.Join(imgDir, "P1", "120-120-0.png"), leafGreen, 8, 8)
	writePNG(t, filepath.Join(imgDir, "P1", "120-240-0.png"), color.RGBA{R: 128, G: 128, B: 128, A: 255}, 8, 8)

	err := Aggregate(context.Background(), AggregateOptions{
		MetadataDir: metaDir, ImageDir: imgDir, OutputDir: outDir,
	})
	require.NoError(t, err)

	records, err := model.ReadBatchFile[model.GviRecord](filepath.Join(outDir, "GV_Pnt_start0_end500.jsonl"))
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.InDelta(t, 200.0/3.0, records[0].GreenView, 1e-9)
}

func TestAggregateSkipsExistingBatch(t *testing.T) {
	metaDir, imgDir, outDir := t.TempDir(), t.TempDir(), t.TempDir()
	writeMetaBatch(t, metaDir, "Pnt_start0_end500.jsonl", []model.PanoRecord{
		{PanoID: "P1", PanoDate: "2019-06"},
	})

	// Pre-existing output with a marker value must survive untouched.
	existing := []model.GviRecord{{PanoRecord: model.PanoRecord{PanoID: "P1"}, GreenView: 42}}
	require.NoError(t, model.WriteBatchFile(filepath.Join(outDir, "GV_Pnt_start0_end500.jsonl"), existing))

	err := Aggregate(context.Background(), AggregateOptions{
		MetadataDir: metaDir, ImageDir: imgDir, OutputDir: outDir,
	})
	require.NoError(t, err)

	records, err := model.ReadBatchFile[model.GviRecord](filepath.Join(outDir, "GV_Pnt_start0_end500.jsonl"))
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, 42.0, records[0].GreenView)
}

func TestAggregateMultipleBatches(t *testing.T) {
	metaDir, imgDir, outDir := t.TempDir(), t.TempDir(), t.TempDir()
	writeMetaBatch(t, metaDir, "Pnt_start0_end500.jsonl", []model.PanoRecord{{PanoID: "A", PanoDate: "2019-06"}})
	writeMetaBatch(t, metaDir, "Pnt_start500_end1000.jsonl", []model.PanoRecord{{PanoID: "B", PanoDate: "2019-07"}})

	err := Aggregate(context.Background(), AggregateOptions{
		MetadataDir: metaDir, ImageDir: imgDir, OutputDir: outDir,
	})
	require.NoError(t, err)

	_, err = os.Stat(filepath.Join(outDir, "GV_Pnt_start0_end500.jsonl"))
	assert.NoError(t, err)
	_, err = os.Stat(filepath.Join(outDir, "GV_Pnt_start500_end1000.jsonl"))
	assert.NoError(t, err)
}
