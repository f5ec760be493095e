package dynamics

import (
	"github.com/Faultbox/midgard-collision/internal/config"
)

// LayerMask selects a subset of collision layers.
type LayerMask uint32

// AllLayers selects every layer.
const AllLayers LayerMask = 0xFFFFFFFF

// MaskOf builds a mask from layer indices. Out-of-range layers are ignored.
func MaskOf(layers ...int) LayerMask {
	var m LayerMask
	for _, l := range layers {
		if l >= 0 && l < config.NumLayers {
			m |= 1 << uint(l)
		}
	}
	return m
}

// Has reports whether layer is in the mask.
func (m LayerMask) Has(layer int) bool {
	if layer < 0 || layer >= config.NumLayers {
		return false
	}
	return m&(1<<uint(layer)) != 0
}

// LayerMatrix is a symmetric relation saying which layers collide. All pairs
// collide by default. It is not synchronized; mutate it between steps.
type LayerMatrix struct {
	rows [config.NumLayers]uint32
}

// NewLayerMatrix returns a matrix with every pair enabled.
func NewLayerMatrix() *LayerMatrix {
	m := &LayerMatrix{}
	m.Reset()
	return m
}

func validLayer(l int) bool {
	return l >= 0 && l < config.NumLayers
}

// Enable lets layers a and b collide.
func (m *LayerMatrix) Enable(a, b int) {
	if !validLayer(a) || !validLayer(b) {
		return
	}
	m.rows[a] |= 1 << uint(b)
	m.rows[b] |= 1 << uint(a)
}

// Disable stops layers a and b from colliding.
func (m *LayerMatrix) Disable(a, b int) {
	if !validLayer(a) || !validLayer(b) {
		return
	}
	m.rows[a] &^= 1 << uint(b)
	m.rows[b] &^= 1 << uint(a)
}

// CanCollide reports whether layers a and b collide. Invalid layers never do.
func (m *LayerMatrix) CanCollide(a, b int) bool {
	if !validLayer(a) || !validLayer(b) {
		return false
	}
	return m.rows[a]&(1<<uint(b)) != 0
}

// Mask returns the layers that collide with layer.
func (m *LayerMatrix) Mask(layer int) LayerMask {
	if !validLayer(layer) {
		return 0
	}
	return LayerMask(m.rows[layer])
}

// Reset enables every pair.
func (m *LayerMatrix) Reset() {
	for i := range m.rows {
		m.rows[i] = 0xFFFFFFFF
	}
}

type bodyPair struct {
	lo, hi uint64
}

func makeBodyPair(a, b BodyHandle) bodyPair {
	ka, kb := a.Key(), b.Key()
	if ka > kb {
		ka, kb = kb, ka
	}
	return bodyPair{ka, kb}
}

// IgnoreSet holds unordered body pairs that never collide. It is not
// synchronized; mutate it between steps.
type IgnoreSet struct {
	pairs map[bodyPair]struct{}
}

// NewIgnoreSet returns an empty set.
func NewIgnoreSet() *IgnoreSet {
	return &IgnoreSet{pairs: make(map[bodyPair]struct{})}
}

// Ignore marks the pair as non-colliding.
func (s *IgnoreSet) Ignore(a, b BodyHandle) {
	s.pairs[makeBodyPair(a, b)] = struct{}{}
}

// Enable clears the pair, in either argument order.
func (s *IgnoreSet) Enable(a, b BodyHandle) {
	delete(s.pairs, makeBodyPair(a, b))
}

// Ignored reports whether the pair is ignored.
func (s *IgnoreSet) Ignored(a, b BodyHandle) bool {
	_, ok := s.pairs[makeBodyPair(a, b)]
	return ok
}

// Len returns the number of ignored pairs.
func (s *IgnoreSet) Len() int {
	return len(s.pairs)
}

// Clear removes every pair.
func (s *IgnoreSet) Clear() {
	clear(s.pairs)
}
