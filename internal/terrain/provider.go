// Package terrain makes heightmaps collidable: a broad-phase proxy that
// answers ray casts with a grid walk, and a filter that turns overlapping
// cells into per-triangle contacts.
package terrain

import (
	gomath "math"

	"github.com/Faultbox/midgard-collision/pkg/formats"
	"github.com/Faultbox/midgard-collision/pkg/math"
)

// HeightProvider is the minimal data source a terrain needs. A provider with
// Width x Height cells has (Width+1) x (Height+1) vertex heights.
type HeightProvider interface {
	// TryGetHeight returns the height of vertex (x, z).
	TryGetHeight(x, z int) (float64, bool)
	// IsValidCell reports whether cell (x, z) has ground.
	IsValidCell(x, z int) bool
	Width() int
	Height() int
}

// Heightfield is an in-memory HeightProvider with a hole mask.
// It is not synchronized; mutate it only while the terrain is detached or
// between steps, then call Terrain.Rebuild.
type Heightfield struct {
	width, height int
	samples       []float32
	holes         []bool
}

// NewHeightfield creates a flat heightfield of width x height cells.
func NewHeightfield(width, height int) *Heightfield {
	width = max(width, 0)
	height = max(height, 0)
	return &Heightfield{
		width:   width,
		height:  height,
		samples: make([]float32, (width+1)*(height+1)),
		holes:   make([]bool, width*height),
	}
}

// FromFile builds a heightfield from a parsed HFLD file.
func FromFile(f *formats.Heightfield) *Heightfield {
	h := NewHeightfield(int(f.Width), int(f.Height))
	copy(h.samples, f.Heights)
	for i, fl := range f.Flags {
		if i < len(h.holes) {
			h.holes[i] = fl&formats.CellHole != 0
		}
	}
	return h
}

// ToFile encodes the heightfield with the given placement.
func (h *Heightfield) ToFile(cellSize float64, origin [3]float64) *formats.Heightfield {
	f := formats.NewHeightfield(uint32(h.width), uint32(h.height), float32(cellSize))
	f.Origin = [3]float32{float32(origin[0]), float32(origin[1]), float32(origin[2])}
	copy(f.Heights, h.samples)
	for i, hole := range h.holes {
		if hole {
			f.Flags[i] = formats.CellHole
		}
	}
	return f
}

func (h *Heightfield) Width() int  { return h.width }
func (h *Heightfield) Height() int { return h.height }

func (h *Heightfield) vertex(x, z int) int {
	if x < 0 || z < 0 || x > h.width || z > h.height {
		return -1
	}
	return z*(h.width+1) + x
}

// TryGetHeight returns the height of vertex (x, z).
func (h *Heightfield) TryGetHeight(x, z int) (float64, bool) {
	i := h.vertex(x, z)
	if i < 0 {
		return 0, false
	}
	return float64(h.samples[i]), true
}

// IsValidCell reports whether cell (x, z) is inside the grid and not a hole.
func (h *Heightfield) IsValidCell(x, z int) bool {
	if x < 0 || z < 0 || x >= h.width || z >= h.height {
		return false
	}
	return !h.holes[z*h.width+x]
}

// SetHeight sets the height of vertex (x, z). Out-of-range vertices are ignored.
func (h *Heightfield) SetHeight(x, z int, v float64) {
	if i := h.vertex(x, z); i >= 0 {
		h.samples[i] = float32(v)
	}
}

// SetHole marks or clears cell (x, z) as a hole.
func (h *Heightfield) SetHole(x, z int, hole bool) {
	if x < 0 || z < 0 || x >= h.width || z >= h.height {
		return
	}
	h.holes[z*h.width+x] = hole
}

// Fill sets every vertex to fn(x, z).
func (h *Heightfield) Fill(fn func(x, z int) float64) {
	for z := 0; z <= h.height; z++ {
		for x := 0; x <= h.width; x++ {
			h.samples[z*(h.width+1)+x] = float32(fn(x, z))
		}
	}
}

// HeightRange returns the lowest and highest vertex height.
func (h *Heightfield) HeightRange() (lo, hi float64) {
	return heightRange(h)
}

// SampleHeight interpolates the height at grid coordinates (gx, gz).
func (h *Heightfield) SampleHeight(gx, gz float64) (float64, bool) {
	return sampleBilinear(h, gx, gz)
}

// heightRange scans every readable vertex of p.
func heightRange(p HeightProvider) (lo, hi float64) {
	lo, hi = gomath.Inf(1), gomath.Inf(-1)
	for z := 0; z <= p.Height(); z++ {
		for x := 0; x <= p.Width(); x++ {
			if v, ok := p.TryGetHeight(x, z); ok {
				lo = gomath.Min(lo, v)
				hi = gomath.Max(hi, v)
			}
		}
	}
	if lo > hi {
		return 0, 0
	}
	return lo, hi
}

// sampleBilinear interpolates the four corners of the cell under (gx, gz).
// Points on the far edge of the grid belong to the last cell.
func sampleBilinear(p HeightProvider, gx, gz float64) (float64, bool) {
	x := int(gomath.Floor(gx))
	z := int(gomath.Floor(gz))
	if x == p.Width() && gx == float64(x) {
		x--
	}
	if z == p.Height() && gz == float64(z) {
		z--
	}
	if !p.IsValidCell(x, z) {
		return 0, false
	}

	h00, ok00 := p.TryGetHeight(x, z)
	h10, ok10 := p.TryGetHeight(x+1, z)
	h01, ok01 := p.TryGetHeight(x, z+1)
	h11, ok11 := p.TryGetHeight(x+1, z+1)
	if !ok00 || !ok10 || !ok01 || !ok11 {
		return 0, false
	}

	fx := math.Clamp(gx-float64(x), 0, 1)
	fz := math.Clamp(gz-float64(z), 0, 1)

	near := h00*(1-fx) + h10*fx
	far := h01*(1-fx) + h11*fx
	return near*(1-fz) + far*fz, true
}
