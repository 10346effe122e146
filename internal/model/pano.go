package model

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
)

// MissingGVI marks a panorama that was processed but had no usable views.
// Any valid green view index lies in [0,100]; a range check on sign is enough
// to tell the two apart downstream.
const MissingGVI = -1000.0

// SamplePoint is a geographic coordinate sampled along the street network,
// in EPSG:4326.
type SamplePoint struct {
	Longitude float64
	Latitude  float64
}

// PanoRecord is one resolved panorama: the nearest imagery capture for a
// sampled street point. Unique by PanoID across all metadata batches.
type PanoRecord struct {
	PanoID    string  `json:"panoID"`
	PanoDate  string  `json:"panoDate"`
	Longitude float64 `json:"longitude"`
	Latitude  float64 `json:"latitude"`
}

// GviRecord extends PanoRecord with the computed green view index.
type GviRecord struct {
	PanoRecord
	GreenView float64 `json:"greenview"`
}

// Month returns the calendar month (1-12) encoded in a panoDate of the form
// "YYYY-MM" or "YYYY-MM-DD". Returns 0 when the date cannot be parsed.
func Month(panoDate string) int {
	parts := strings.Split(panoDate, "-")
	if len(parts) < 2 {
		return 0
	}
	m, err := strconv.Atoi(parts[1])
	if err != nil || m < 1 || m > 12 {
		return 0
	}
	return m
}

// BatchStem names a metadata batch covering point indexes [start, end).
func BatchStem(start, end int) string {
	return fmt.Sprintf("Pnt_start%d_end%d", start, end)
}

// GviName maps a metadata batch file name to its GVI output file name.
func GviName(metaName string) string {
	return "GV_" + metaName
}

// ReadBatchFile decodes a newline-delimited JSON batch file into values of T.
func ReadBatchFile[T any](path string) ([]T, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, eris.Wrapf(err, "model: open batch %s", path)
	}
	defer func() { _ = f.Close() }()

	var records []T
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		var rec T
		if err := json.Unmarshal([]byte(line), &rec); err != nil {
			return nil, eris.Wrapf(err, "model: decode line in %s", path)
		}
		records = append(records, rec)
	}
	if err := sc.Err(); err != nil {
		return nil, eris.Wrapf(err, "model: scan batch %s", path)
	}
	return records, nil
}

// WriteBatchFile serializes records as newline-delimited JSON. The file is
// staged in the same directory and renamed into place, so the final name only
// ever appears with the complete batch behind it.
func WriteBatchFile[T any](path string, records []T) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return eris.Wrapf(err, "model: create dir %s", dir)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*")
	if err != nil {
		return eris.Wrapf(err, "model: stage batch %s", path)
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	w := bufio.NewWriter(tmp)
	enc := json.NewEncoder(w)
	for _, rec := range records {
		if err := enc.Encode(rec); err != nil {
			_ = tmp.Close()
			return eris.Wrapf(err, "model: encode record for %s", path)
		}
	}
	if err := w.Flush(); err != nil {
		_ = tmp.Close()
		return eris.Wrapf(err, "model: flush batch %s", path)
	}
	if err := tmp.Close(); err != nil {
		return eris.Wrapf(err, "model: close batch %s", path)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return eris.Wrapf(err, "model: publish batch %s", path)
	}
	return nil
}

// SeenPanoIDs rebuilds the deduplication set from every metadata batch file
// already present in dir. Cross-run dedup state lives only in these files.
func SeenPanoIDs(dir string) (map[string]struct{}, error) {
	seen := make(map[string]struct{})
	files, err := filepath.Glob(filepath.Join(dir, "Pnt_*.jsonl"))
	if err != nil {
		return nil, eris.Wrapf(err, "model: glob metadata in %s", dir)
	}
	for _, f := range files {
		records, err := ReadBatchFile[PanoRecord](f)
		if err != nil {
			return nil, err
		}
		for _, rec := range records {
			seen[rec.PanoID] = struct{}{}
		}
	}
	return seen, nil
}

// FetchedPanoIDs lists panoramas that already have a non-empty directory in
// the image store. Completion is tracked per panorama, not per heading.
func FetchedPanoIDs(storeDir string) (map[string]struct{}, error) {
	fetched := make(map[string]struct{})
	entries, err := os.ReadDir(storeDir)
	if os.IsNotExist(err) {
		return fetched, nil
	}
	if err != nil {
		return nil, eris.Wrapf(err, "model: read image store %s", storeDir)
	}
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		views, err := os.ReadDir(filepath.Join(storeDir, e.Name()))
		if err != nil {
			return nil, eris.Wrapf(err, "model: read pano dir %s", e.Name())
		}
		if len(views) > 0 {
			fetched[e.Name()] = struct{}{}
		}
	}
	return fetched, nil
}
