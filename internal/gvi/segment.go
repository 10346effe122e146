package gvi

import (
	"math"
	"sort"
)

// Segmenter partitions an image into homogeneous regions and fills each
// region with its mean color. Implementations must be pure and preserve
// dimensions.
type Segmenter func(img *Image, scale, sigma float64, minSize int) *Image

// Segment is the default Segmenter: Felzenszwalb-Huttenlocher graph-based
// region merging. Pixels become nodes of an 8-connected grid graph with edge
// weights equal to Euclidean RGB distance; edges are merged in ascending
// weight order while the weight stays under the adaptive component threshold
// scale/|C|, then components smaller than minSize are absorbed into their
// nearest neighbor. Every pixel is finally replaced by its component mean.
func Segment(img *Image, scale, sigma float64, minSize int) *Image {
	w, h := img.W, img.H
	n := w * h
	if n == 0 {
		return img.Clone()
	}

	sm := smooth(img, sigma)

	type edge struct {
		a, b   int32
		weight float64
	}
	edges := make([]edge, 0, 4*n)
	diff := func(a, b int) float64 {
		dr := sm.R[a] - sm.R[b]
		dg := sm.G[a] - sm.G[b]
		db := sm.B[a] - sm.B[b]
		return math.Sqrt(dr*dr + dg*dg + db*db)
	}
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			p := y*w + x
			if x < w-1 {
				edges = append(edges, edge{int32(p), int32(p + 1), diff(p, p+1)})
			}
			if y < h-1 {
				edges = append(edges, edge{int32(p), int32(p + w), diff(p, p+w)})
			}
			if x < w-1 && y < h-1 {
				edges = append(edges, edge{int32(p), int32(p + w + 1), diff(p, p+w+1)})
			}
			if x > 0 && y < h-1 {
				edges = append(edges, edge{int32(p), int32(p + w - 1), diff(p, p+w-1)})
			}
		}
	}

	// Ties broken by endpoint index so the merge order, and therefore the
	// output, is identical across runs.
	sort.Slice(edges, func(i, j int) bool {
		if edges[i].weight != edges[j].weight {
			return edges[i].weight < edges[j].weight
		}
		if edges[i].a != edges[j].a {
			return edges[i].a < edges[j].a
		}
		return edges[i].b < edges[j].b
	})

	uf := newUnionFind(n)
	threshold := make([]float64, n)
	for i := range threshold {
		threshold[i] = scale
	}
	for _, e := range edges {
		a, b := uf.find(int(e.a)), uf.find(int(e.b))
		if a == b {
			continue
		}
		if e.weight <= threshold[a] && e.weight <= threshold[b] {
			root := uf.union(a, b)
			threshold[root] = e.weight + scale/float64(uf.size[root])
		}
	}

	// Absorb undersized components.
	for _, e := range edges {
		a, b := uf.find(int(e.a)), uf.find(int(e.b))
		if a != b && (int(uf.size[a]) < minSize || int(uf.size[b]) < minSize) {
			uf.union(a, b)
		}
	}

	out := NewImage(w, h)
	sumR := make([]float64, n)
	sumG := make([]float64, n)
	sumB := make([]float64, n)
	for i := 0; i < n; i++ {
		root := uf.find(i)
		sumR[root] += img.R[i]
		sumG[root] += img.G[i]
		sumB[root] += img.B[i]
	}
	for i := 0; i < n; i++ {
		root := uf.find(i)
		count := float64(uf.size[root])
		out.R[i] = sumR[root] / count
		out.G[i] = sumG[root] / count
		out.B[i] = sumB[root] / count
	}
	return out
}

// smooth applies a separable gaussian blur to each channel. A sigma at or
// below zero disables smoothing.
func smooth(img *Image, sigma float64) *Image {
	if sigma <= 0 {
		return img
	}
	radius := int(math.Ceil(sigma * 4))
	if radius < 1 {
		radius = 1
	}
	kernel := make([]float64, 2*radius+1)
	var sum float64
	for i := -radius; i <= radius; i++ {
		v := math.Exp(-float64(i*i) / (2 * sigma * sigma))
		kernel[i+radius] = v
		sum += v
	}
	for i := range kernel {
		kernel[i] /= sum
	}

	convolve := func(src []float64, w, h int, horizontal bool) []float64 {
		dst := make([]float64, len(src))
		for y := 0; y < h; y++ {
			for x := 0; x < w; x++ {
				var acc float64
				for k := -radius; k <= radius; k++ {
					xx, yy := x, y
					if horizontal {
						xx = clampInt(x+k, 0, w-1)
					} else {
						yy = clampInt(y+k, 0, h-1)
					}
					acc += kernel[k+radius] * src[yy*w+xx]
				}
				dst[y*w+x] = acc
			}
		}
		return dst
	}

	out := NewImage(img.W, img.H)
	for _, ch := range []struct{ src, dst []float64 }{
		{img.R, out.R}, {img.G, out.G}, {img.B, out.B},
	} {
		tmp := convolve(ch.src, img.W, img.H, true)
		copy(ch.dst, convolve(tmp, img.W, img.H, false))
	}
	return out
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

type unionFind struct {
	parent []int32
	rank   []int8
	size   []int32
}

func newUnionFind(n int) *unionFind {
	uf := &unionFind{
		parent: make([]int32, n),
		rank:   make([]int8, n),
		size:   make([]int32, n),
	}
	for i := range uf.parent {
		uf.parent[i] = int32(i)
		uf.size[i] = 1
	}
	return uf
}

func (uf *unionFind) find(x int) int {
	root := x
	for uf.parent[root] != int32(root) {
		root = int(uf.parent[root])
	}
	for uf.parent[x] != int32(root) {
		x, uf.parent[x] = int(uf.parent[x]), int32(root)
	}
	return root
}

func (uf *unionFind) union(a, b int) int {
	if uf.rank[a] < uf.rank[b] {
		a, b = b, a
	}
	uf.parent[b] = int32(a)
	uf.size[a] += uf.size[b]
	if uf.rank[a] == uf.rank[b] {
		uf.rank[a]++
	}
	return a
}
