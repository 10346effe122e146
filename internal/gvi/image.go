package gvi

import (
	"image"
	"os"
	"path/filepath"
	"sort"

	_ "image/jpeg"
	_ "image/png"

	"github.com/rotisserie/eris"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// Image is a dense RGB raster with channels normalized to [0,1], stored as
// row-major planes. All classification math runs on this representation.
type Image struct {
	W, H    int
	R, G, B []float64
}

// NewImage allocates a zeroed raster of the given dimensions.
func NewImage(w, h int) *Image {
	n := w * h
	return &Image{W: w, H: h, R: make([]float64, n), G: make([]float64, n), B: make([]float64, n)}
}

// FromImage converts a decoded image into normalized RGB planes.
func FromImage(src image.Image) *Image {
	b := src.Bounds()
	out := NewImage(b.Dx(), b.Dy())
	i := 0
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			r, g, bl, _ := src.At(x, y).RGBA()
			out.R[i] = float64(r) / 65535.0
			out.G[i] = float64(g) / 65535.0
			out.B[i] = float64(bl) / 65535.0
			i++
		}
	}
	return out
}

// Clone returns a deep copy.
func (m *Image) Clone() *Image {
	c := NewImage(m.W, m.H)
	copy(c.R, m.R)
	copy(c.G, m.G)
	copy(c.B, m.B)
	return c
}

// LoadImageSet decodes every view stored for one panorama, sorted by file
// name so repeated runs see the views in the same order. Files that fail to
// decode are skipped; the caller decides what an empty set means.
func LoadImageSet(storeDir, panoID string) ([]*Image, error) {
	dir := filepath.Join(storeDir, panoID)
	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrapf(err, "gvi: read image set %s", panoID)
	}

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if !e.IsDir() {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)

	var views []*Image
	for _, name := range names {
		f, err := os.Open(filepath.Join(dir, name))
		if err != nil {
			continue
		}
		decoded, _, err := image.Decode(f)
		_ = f.Close()
		if err != nil {
			continue
		}
		views = append(views, FromImage(decoded))
	}
	return views, nil
}
