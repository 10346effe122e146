// Package export materializes GVI batch results as a georeferenced point
// shapefile.
package export

import (
	"os"
	"path/filepath"
	"sort"

	"github.com/jonas-p/go-shp"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sensingcity/greenview-cli/internal/model"
)

// ReadGviRecords scans every GVI batch file in dir in lexicographic order and
// returns the unique records by panorama ID, first occurrence winning.
func ReadGviRecords(dir string) ([]model.GviRecord, error) {
	files, err := filepath.Glob(filepath.Join(dir, "GV_*.jsonl"))
	if err != nil {
		return nil, eris.Wrapf(err, "export: glob gvi batches in %s", dir)
	}
	sort.Strings(files)

	seen := make(map[string]struct{})
	var unique []model.GviRecord
	for _, f := range files {
		records, err := model.ReadBatchFile[model.GviRecord](f)
		if err != nil {
			return nil, err
		}
		for _, rec := range records {
			if _, dup := seen[rec.PanoID]; dup {
				continue
			}
			seen[rec.PanoID] = struct{}{}
			unique = append(unique, rec)
		}
	}
	return unique, nil
}

// WriteShapefile writes one point feature per record at the destination path,
// EPSG:4326, replacing any existing output. Attributes: sequence number,
// panorama ID, capture date, green view index.
func WriteShapefile(path string, records []model.GviRecord) error {
	log := zap.L().With(zap.String("component", "export"))

	// go-shp truncates the .shp/.shx pair; the .dbf needs explicit removal so
	// a shorter rerun cannot leave stale rows behind.
	_ = os.Remove(dbfPath(path))

	w, err := shp.Create(path, shp.POINT)
	if err != nil {
		return eris.Wrapf(err, "export: create shapefile %s", path)
	}
	defer w.Close()

	w.SetFields([]shp.Field{
		shp.NumberField("PntNum", 10),
		shp.StringField("panoID", 64),
		shp.StringField("panoDate", 10),
		shp.FloatField("greenView", 16, 8),
	})

	for i, rec := range records {
		w.Write(&shp.Point{X: rec.Longitude, Y: rec.Latitude})
		w.WriteAttribute(i, 0, i)
		w.WriteAttribute(i, 1, rec.PanoID)
		w.WriteAttribute(i, 2, rec.PanoDate)
		w.WriteAttribute(i, 3, rec.GreenView)
	}

	log.Info("shapefile written", zap.String("path", path), zap.Int("features", len(records)))
	return nil
}

func dbfPath(shpPath string) string {
	return shpPath[:len(shpPath)-len(filepath.Ext(shpPath))] + ".dbf"
}
