// Package formats provides readers and writers for terrain data files.
package formats

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	gomath "math"
	"os"
	"path/filepath"
)

// HFLD format errors.
var (
	ErrInvalidHFLDMagic       = errors.New("invalid HFLD magic: expected 'HFLD'")
	ErrUnsupportedHFLDVersion = errors.New("unsupported HFLD version")
	ErrTruncatedHFLDData      = errors.New("truncated HFLD data")
	ErrInvalidHFLDDimensions  = errors.New("invalid HFLD dimensions")
)

// hfldMagic opens every heightfield file.
const hfldMagic = "HFLD"

// MaxHeightfieldSize is the largest accepted width or height, in cells.
const MaxHeightfieldSize = 4096

// HFLDVersion represents the HFLD file version.
type HFLDVersion struct {
	Major uint8
	Minor uint8
}

// String returns the version as "Major.Minor".
func (v HFLDVersion) String() string {
	return fmt.Sprintf("%d.%d", v.Major, v.Minor)
}

// CurrentHFLDVersion is the version WriteTo stamps into the header.
var CurrentHFLDVersion = HFLDVersion{Major: 1, Minor: 0}

// CellFlags holds per-cell attributes.
type CellFlags uint8

const (
	// CellHole marks a cell with no ground.
	CellHole CellFlags = 1 << iota
)

// Heightfield is a parsed HFLD file: a grid of Width x Height cells with
// (Width+1) x (Height+1) vertex heights in row-major order (Z rows, X columns).
//
// Layout (little endian):
//
//	magic    [4]byte  "HFLD"
//	version  [2]byte  minor, major
//	width    uint32
//	height   uint32
//	cellSize float32
//	origin   [3]float32
//	heights  [(width+1)*(height+1)]float32
//	flags    [width*height]uint8
type Heightfield struct {
	Version  HFLDVersion
	Width    uint32
	Height   uint32
	CellSize float32
	Origin   [3]float32
	Heights  []float32
	Flags    []CellFlags
}

// NewHeightfield creates a flat heightfield with no holes.
func NewHeightfield(width, height uint32, cellSize float32) *Heightfield {
	return &Heightfield{
		Version:  CurrentHFLDVersion,
		Width:    width,
		Height:   height,
		CellSize: cellSize,
		Heights:  make([]float32, int(width+1)*int(height+1)),
		Flags:    make([]CellFlags, int(width)*int(height)),
	}
}

// VertexIndex returns the index of vertex (x, z) in Heights, or -1.
func (h *Heightfield) VertexIndex(x, z int) int {
	if x < 0 || z < 0 || x > int(h.Width) || z > int(h.Height) {
		return -1
	}
	return z*(int(h.Width)+1) + x
}

// GetHeight returns the height of vertex (x, z).
func (h *Heightfield) GetHeight(x, z int) (float32, bool) {
	i := h.VertexIndex(x, z)
	if i < 0 {
		return 0, false
	}
	return h.Heights[i], true
}

// SetHeight sets the height of vertex (x, z). Out-of-range vertices are ignored.
func (h *Heightfield) SetHeight(x, z int, v float32) {
	if i := h.VertexIndex(x, z); i >= 0 {
		h.Heights[i] = v
	}
}

// GetFlags returns the flags of cell (x, z).
func (h *Heightfield) GetFlags(x, z int) CellFlags {
	if x < 0 || z < 0 || x >= int(h.Width) || z >= int(h.Height) {
		return 0
	}
	return h.Flags[z*int(h.Width)+x]
}

// SetFlags replaces the flags of cell (x, z).
func (h *Heightfield) SetFlags(x, z int, f CellFlags) {
	if x < 0 || z < 0 || x >= int(h.Width) || z >= int(h.Height) {
		return
	}
	h.Flags[z*int(h.Width)+x] = f
}

// IsHole checks if cell (x, z) is a hole.
func (h *Heightfield) IsHole(x, z int) bool {
	return h.GetFlags(x, z)&CellHole != 0
}

// CountHoles returns the number of hole cells.
func (h *Heightfield) CountHoles() int {
	n := 0
	for _, f := range h.Flags {
		if f&CellHole != 0 {
			n++
		}
	}
	return n
}

// GetHeightRange returns the minimum and maximum vertex height.
func (h *Heightfield) GetHeightRange() (min, max float32) {
	if len(h.Heights) == 0 {
		return 0, 0
	}

	min = h.Heights[0]
	max = h.Heights[0]
	for _, v := range h.Heights {
		if v < min {
			min = v
		}
		if v > max {
			max = v
		}
	}
	return min, max
}

// ParseHeightfield parses an HFLD file from raw bytes.
func ParseHeightfield(data []byte) (*Heightfield, error) {
	if len(data) < 30 {
		return nil, ErrTruncatedHFLDData
	}

	if string(data[0:4]) != hfldMagic {
		return nil, ErrInvalidHFLDMagic
	}

	// Version is stored as [minor, major]
	version := HFLDVersion{
		Major: data[5],
		Minor: data[4],
	}
	if version.Major != CurrentHFLDVersion.Major {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedHFLDVersion, version)
	}

	r := bytes.NewReader(data[6:])

	var header struct {
		Width    uint32
		Height   uint32
		CellSize float32
		Origin   [3]float32
	}
	if err := binary.Read(r, binary.LittleEndian, &header); err != nil {
		return nil, fmt.Errorf("%w: reading header", ErrTruncatedHFLDData)
	}

	if header.Width == 0 || header.Height == 0 || header.Width > MaxHeightfieldSize || header.Height > MaxHeightfieldSize {
		return nil, fmt.Errorf("%w: %dx%d", ErrInvalidHFLDDimensions, header.Width, header.Height)
	}
	if cs := float64(header.CellSize); cs <= 0 || gomath.IsNaN(cs) || gomath.IsInf(cs, 0) {
		return nil, fmt.Errorf("%w: cell size %v", ErrInvalidHFLDDimensions, header.CellSize)
	}
	for _, o := range header.Origin {
		if gomath.IsNaN(float64(o)) || gomath.IsInf(float64(o), 0) {
			return nil, fmt.Errorf("%w: origin %v", ErrInvalidHFLDDimensions, header.Origin)
		}
	}

	hf := NewHeightfield(header.Width, header.Height, header.CellSize)
	hf.Version = version
	hf.Origin = header.Origin

	if err := binary.Read(r, binary.LittleEndian, hf.Heights); err != nil {
		return nil, fmt.Errorf("%w: reading %d heights", ErrTruncatedHFLDData, len(hf.Heights))
	}
	if err := binary.Read(r, binary.LittleEndian, hf.Flags); err != nil {
		return nil, fmt.Errorf("%w: reading %d cell flags", ErrTruncatedHFLDData, len(hf.Flags))
	}

	return hf, nil
}

// ParseHeightfieldFile parses an HFLD file from disk.
func ParseHeightfieldFile(path string) (*Heightfield, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading HFLD file: %w", err)
	}
	return ParseHeightfield(data)
}

// WriteTo encodes the heightfield to w.
func (h *Heightfield) WriteTo(w io.Writer) (int64, error) {
	if len(h.Heights) != int(h.Width+1)*int(h.Height+1) || len(h.Flags) != int(h.Width)*int(h.Height) {
		return 0, fmt.Errorf("%w: sample count does not match %dx%d", ErrInvalidHFLDDimensions, h.Width, h.Height)
	}

	buf := new(bytes.Buffer)
	buf.WriteString(hfldMagic)
	buf.WriteByte(h.Version.Minor)
	buf.WriteByte(h.Version.Major)

	fields := []any{h.Width, h.Height, h.CellSize, h.Origin, h.Heights, h.Flags}
	for _, f := range fields {
		if err := binary.Write(buf, binary.LittleEndian, f); err != nil {
			return 0, fmt.Errorf("encoding HFLD: %w", err)
		}
	}

	return buf.WriteTo(w)
}

// WriteFile writes the heightfield to path, creating parent directories.
func (h *Heightfield) WriteFile(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating HFLD file: %w", err)
	}
	if _, err := h.WriteTo(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
