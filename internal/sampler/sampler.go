// Package sampler turns a street-network line shapefile into evenly spaced
// sample points ready for metadata collection.
package sampler

import (
	"math"
	"strings"

	"github.com/jonas-p/go-shp"
	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"go.uber.org/zap"

	"github.com/sensingcity/greenview-cli/internal/model"
)

// excludedHighways lists OSM highway classes skipped during cleaning:
// motorized or otherwise non-walkable street segments.
var excludedHighways = map[string]struct{}{
	"motorway": {}, "motorway_link": {},
	"trunk": {}, "trunk_link": {},
	"primary": {}, "primary_link": {},
	"secondary": {}, "secondary_link": {},
	"tertiary": {}, "tertiary_link": {},
	"pedestrian": {}, "footway": {}, "steps": {},
	"bridleway": {}, "service": {},
	"": {}, " ": {},
}

// CreatePoints reads a street-network line shapefile in EPSG:4326, drops
// excluded highway classes, and writes a point shapefile with a sample every
// minDist meters along each remaining line. Spacing is measured in projected
// (spherical web-mercator) meters and the points are written back in
// geographic coordinates.
func CreatePoints(inputShp, outputShp string, minDist float64) error {
	log := zap.L().With(zap.String("component", "sampler"))

	lines, err := readStreets(inputShp)
	if err != nil {
		return err
	}

	var points []model.SamplePoint
	for _, line := range lines {
		points = append(points, densify(line, minDist)...)
	}

	if err := writePoints(outputShp, points); err != nil {
		return err
	}
	log.Info("sample points created",
		zap.Int("streets", len(lines)),
		zap.Int("points", len(points)),
	)
	return nil
}

// readStreets loads line geometries, filtering by the highway attribute when
// the shapefile carries one.
func readStreets(path string) ([]*geom.LineString, error) {
	r, err := shp.Open(path)
	if err != nil {
		return nil, eris.Wrapf(err, "sampler: open street shapefile %s", path)
	}
	defer func() { _ = r.Close() }()

	highwayIdx := -1
	for i, f := range r.Fields() {
		name := strings.TrimRight(f.String(), "\x00")
		if strings.EqualFold(name, "highway") {
			highwayIdx = i
		}
	}

	var lines []*geom.LineString
	for r.Next() {
		_, shape := r.Shape()
		poly, ok := shape.(*shp.PolyLine)
		if !ok {
			continue
		}
		if highwayIdx >= 0 {
			class := strings.TrimSpace(strings.TrimRight(r.Attribute(highwayIdx), "\x00"))
			if _, skip := excludedHighways[class]; skip {
				continue
			}
		}
		for _, part := range splitParts(poly) {
			if len(part) < 2 {
				continue
			}
			ls := geom.NewLineString(geom.XY)
			if _, err := ls.SetCoords(part); err != nil {
				return nil, eris.Wrap(err, "sampler: build line geometry")
			}
			lines = append(lines, ls)
		}
	}
	return lines, nil
}

// splitParts expands a multi-part polyline into per-part coordinate slices.
func splitParts(poly *shp.PolyLine) [][]geom.Coord {
	parts := make([][]geom.Coord, 0, len(poly.Parts))
	for i, start := range poly.Parts {
		end := int32(len(poly.Points))
		if i+1 < len(poly.Parts) {
			end = poly.Parts[i+1]
		}
		coords := make([]geom.Coord, 0, end-start)
		for _, p := range poly.Points[start:end] {
			coords = append(coords, geom.Coord{p.X, p.Y})
		}
		parts = append(parts, coords)
	}
	return parts
}

// densify walks a geographic line in projected meters and emits a sample
// point at every multiple of minDist from the line start, including distance
// zero.
func densify(line *geom.LineString, minDist float64) []model.SamplePoint {
	coords := line.Coords()
	proj := make([]geom.Coord, len(coords))
	for i, c := range coords {
		x, y := forwardMercator(c[0], c[1])
		proj[i] = geom.Coord{x, y}
	}

	var points []model.SamplePoint
	emit := func(x, y float64) {
		lng, lat := inverseMercator(x, y)
		points = append(points, model.SamplePoint{Longitude: lng, Latitude: lat})
	}

	// Tolerance absorbs projection round-off so a line of exactly k*minDist
	// meters yields its end point.
	const eps = 1e-9

	next := 0.0 // distance along the line of the next sample
	walked := 0.0
	for i := 0; i < len(proj)-1; i++ {
		a, b := proj[i], proj[i+1]
		seg := math.Hypot(b[0]-a[0], b[1]-a[1])
		for next <= walked+seg+eps {
			t := 0.0
			if seg > 0 {
				t = (next - walked) / seg
				if t > 1 {
					t = 1
				}
			}
			emit(a[0]+t*(b[0]-a[0]), a[1]+t*(b[1]-a[1]))
			next += minDist
		}
		walked += seg
	}
	return points
}

const earthRadius = 6378137.0

// forwardMercator projects EPSG:4326 to EPSG:3857.
func forwardMercator(lng, lat float64) (x, y float64) {
	x = earthRadius * lng * math.Pi / 180
	y = earthRadius * math.Log(math.Tan(math.Pi/4+lat*math.Pi/360))
	return x, y
}

// inverseMercator projects EPSG:3857 back to EPSG:4326.
func inverseMercator(x, y float64) (lng, lat float64) {
	lng = x / earthRadius * 180 / math.Pi
	lat = (2*math.Atan(math.Exp(y/earthRadius)) - math.Pi/2) * 180 / math.Pi
	return lng, lat
}

// writePoints writes the sample points as a point shapefile with a sequence
// id attribute.
func writePoints(path string, points []model.SamplePoint) error {
	w, err := shp.Create(path, shp.POINT)
	if err != nil {
		return eris.Wrapf(err, "sampler: create point shapefile %s", path)
	}
	defer w.Close()

	w.SetFields([]shp.Field{shp.NumberField("id", 10)})
	for i, pt := range points {
		w.Write(&shp.Point{X: pt.Longitude, Y: pt.Latitude})
		w.WriteAttribute(i, 0, i)
	}
	return nil
}

// ReadPoints loads a point shapefile into sample points, preserving feature
// order.
func ReadPoints(path string) ([]model.SamplePoint, error) {
	r, err := shp.Open(path)
	if err != nil {
		return nil, eris.Wrapf(err, "sampler: open point shapefile %s", path)
	}
	defer func() { _ = r.Close() }()

	var points []model.SamplePoint
	for r.Next() {
		_, shape := r.Shape()
		pt, ok := shape.(*shp.Point)
		if !ok {
			continue
		}
		points = append(points, model.SamplePoint{Longitude: pt.X, Latitude: pt.Y})
	}
	return points, nil
}
