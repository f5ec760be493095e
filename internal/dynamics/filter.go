package dynamics

import (
	"sync"

	"github.com/Faultbox/midgard-collision/internal/broadphase"
)

// BroadPhaseFilter decides whether a candidate pair goes on to the narrow
// phase. Returning false means the pair is fully handled: later filters and
// the default narrow phase skip it. Filters run concurrently during Step.
type BroadPhaseFilter interface {
	Filter(a, b broadphase.Proxy) bool
}

// CompositeFilter runs an ordered chain of filters and passes a pair only if
// every filter does. Filters are compared by ==, so use pointer types.
type CompositeFilter struct {
	mu      sync.RWMutex
	filters []BroadPhaseFilter
}

// Add appends f to the chain.
func (c *CompositeFilter) Add(f BroadPhaseFilter) {
	if f == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.filters = append(c.filters, f)
}

// Remove deletes the first occurrence of f. Returns false if f is absent.
func (c *CompositeFilter) Remove(f BroadPhaseFilter) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i, other := range c.filters {
		if other == f {
			c.filters = append(c.filters[:i], c.filters[i+1:]...)
			return true
		}
	}
	return false
}

// Len returns the number of filters in the chain.
func (c *CompositeFilter) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.filters)
}

// Filter stops at the first filter that rejects the pair.
func (c *CompositeFilter) Filter(a, b broadphase.Proxy) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, f := range c.filters {
		if !f.Filter(a, b) {
			return false
		}
	}
	return true
}

func (c *CompositeFilter) clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.filters = nil
}

// LayerFilter gates pairs of rigid-body shapes by constraint connection,
// layer matrix and ignore set. Other pairs pass through.
type LayerFilter struct {
	world *World
}

// NewLayerFilter creates a layer filter reading w's tables.
func NewLayerFilter(w *World) *LayerFilter {
	return &LayerFilter{world: w}
}

func (f *LayerFilter) Filter(a, b broadphase.Proxy) bool {
	sa, okA := a.(*Shape)
	sb, okB := b.(*Shape)
	if !okA || !okB {
		return true
	}

	ba, okA := f.world.Body(sa.body)
	bb, okB := f.world.Body(sb.body)
	if !okA || !okB {
		return false
	}

	if f.world.Connected(ba.Handle, bb.Handle) {
		return false
	}
	return f.world.layers.CanCollide(ba.Layer, bb.Layer) &&
		!f.world.ignore.Ignored(ba.Handle, bb.Handle)
}
