package dynamics

import (
	"sync"

	"github.com/go-gl/mathgl/mgl64"
	"go.uber.org/zap"

	"github.com/Faultbox/midgard-collision/internal/broadphase"
	"github.com/Faultbox/midgard-collision/internal/collision"
	"github.com/Faultbox/midgard-collision/internal/config"
	"github.com/Faultbox/midgard-collision/internal/logger"
)

type bodySlot struct {
	body       *Body
	generation uint32
}

// World owns bodies, the broad-phase index, the filter chain and contacts.
// Body mutation and Step must not overlap; queries may run between steps.
type World struct {
	cfg config.PhysicsConfig

	mu     sync.RWMutex
	slots  []bodySlot
	free   []uint32
	joints map[bodyPair]int

	index    *broadphase.Index
	ids      *IDAllocator
	layers   *LayerMatrix
	ignore   *IgnoreSet
	filters  *CompositeFilter
	contacts *contactRegistry

	step uint64
}

// NewWorld creates an empty world. The layer filter is installed as the
// first filter of the chain.
func NewWorld(cfg config.PhysicsConfig) *World {
	w := &World{
		cfg:      cfg,
		joints:   make(map[bodyPair]int),
		index:    broadphase.NewIndex(cfg.BroadphaseCellSize, cfg.MaxCellsPerProxy),
		ids:      &IDAllocator{},
		layers:   NewLayerMatrix(),
		ignore:   NewIgnoreSet(),
		filters:  &CompositeFilter{},
		contacts: newContactRegistry(),
	}
	w.filters.Add(NewLayerFilter(w))
	return w
}

// Close clears every table. The world is empty but usable afterwards.
func (w *World) Close() {
	w.mu.Lock()
	for _, slot := range w.slots {
		if slot.body != nil {
			w.index.Remove(slot.body.Shape)
		}
	}
	w.slots = nil
	w.free = nil
	clear(w.joints)
	w.mu.Unlock()

	w.layers.Reset()
	w.ignore.Clear()
	w.contacts.clear()
	w.filters.clear()
	w.filters.Add(NewLayerFilter(w))
	logger.Named("dynamics").Debug("world closed")
}

// Config returns the physics settings the world was built with.
func (w *World) Config() config.PhysicsConfig { return w.cfg }

func (w *World) Layers() *LayerMatrix      { return w.layers }
func (w *World) IgnoreSet() *IgnoreSet     { return w.ignore }
func (w *World) Filters() *CompositeFilter { return w.filters }
func (w *World) Index() *broadphase.Index  { return w.index }
func (w *World) IDs() *IDAllocator         { return w.ids }

// DefaultQueryMask is the layer mask queries use when none is given.
func (w *World) DefaultQueryMask() LayerMask {
	return LayerMask(w.cfg.DefaultQueryMask)
}

// RayMaxDistance is the ray length queries use when none is given.
func (w *World) RayMaxDistance() float64 {
	return w.cfg.RayMaxDistance
}

// ApplyLayers disables the configured layer pairs.
func (w *World) ApplyLayers(l config.LayersConfig) error {
	return l.Apply(w.layers)
}

// AddBody creates a body with one shape and indexes it.
func (w *World) AddBody(desc BodyDesc) BodyHandle {
	w.mu.Lock()

	var h BodyHandle
	if n := len(w.free); n > 0 {
		h.Index = w.free[n-1]
		w.free = w.free[:n-1]
		h.Generation = w.slots[h.Index].generation
	} else {
		h.Index = uint32(len(w.slots))
		h.Generation = 1
		w.slots = append(w.slots, bodySlot{generation: 1})
	}

	id, _ := w.ids.RequestID(1)
	pose := desc.Pose
	if pose.Orientation == (mgl64.Quat{}) {
		pose.Orientation = collision.Identity().Orientation
	}
	b := &Body{
		Handle: h,
		Name:   desc.Name,
		Layer:  desc.Layer,
		Motion: desc.Motion,
		Active: !desc.Inactive,
		Pose:   pose,
		Shape:  newShape(id, h, desc.Shape, pose),
	}
	w.slots[h.Index].body = b
	w.mu.Unlock()

	w.index.Add(b.Shape)
	logger.Named("dynamics").Debug("body added",
		zap.Stringer("handle", h),
		zap.String("name", desc.Name),
		zap.Uint64("shape", id),
		zap.Stringer("motion", desc.Motion))
	return h
}

func (w *World) lookup(h BodyHandle) *Body {
	if h.IsZero() || int(h.Index) >= len(w.slots) {
		return nil
	}
	slot := w.slots[h.Index]
	if slot.generation != h.Generation {
		return nil
	}
	return slot.body
}

// Body returns a snapshot of the body. Stale handles return false.
func (w *World) Body(h BodyHandle) (Body, bool) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	b := w.lookup(h)
	if b == nil {
		return Body{}, false
	}
	return *b, true
}

// BodyCount returns the number of live bodies.
func (w *World) BodyCount() int {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return len(w.slots) - len(w.free)
}

// RemoveBody deletes the body, its shape, its contacts and its connections.
// Handles to it become stale. Returns false for an unknown handle.
func (w *World) RemoveBody(h BodyHandle) bool {
	w.mu.Lock()
	b := w.lookup(h)
	if b == nil {
		w.mu.Unlock()
		return false
	}
	slot := &w.slots[h.Index]
	slot.body = nil
	slot.generation++
	if slot.generation == 0 {
		slot.generation = 1
	}
	w.free = append(w.free, h.Index)
	for k := range w.joints {
		if k.lo == h.Key() || k.hi == h.Key() {
			delete(w.joints, k)
		}
	}
	w.mu.Unlock()

	w.index.Remove(b.Shape)
	w.contacts.removeID(b.Shape.id)
	logger.Named("dynamics").Debug("body removed", zap.Stringer("handle", h))
	return true
}

// SetPose moves a body and re-bins its shape.
func (w *World) SetPose(h BodyHandle, pose collision.Pose) bool {
	w.mu.Lock()
	b := w.lookup(h)
	if b == nil {
		w.mu.Unlock()
		return false
	}
	b.Pose = pose
	b.Shape.setPose(pose)
	w.mu.Unlock()

	w.index.Update(b.Shape)
	return true
}

// SetActive wakes or deactivates a body.
func (w *World) SetActive(h BodyHandle, active bool) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	b := w.lookup(h)
	if b == nil {
		return false
	}
	b.Active = active
	return true
}

// SetLayer moves a body to another collision layer.
func (w *World) SetLayer(h BodyHandle, layer int) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	b := w.lookup(h)
	if b == nil {
		return false
	}
	b.Layer = layer
	return true
}

// Connect records a constraint between two bodies. Connected bodies never
// collide. Connections are counted, so each Connect needs a Disconnect.
func (w *World) Connect(a, b BodyHandle) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.joints[makeBodyPair(a, b)]++
}

// Disconnect removes one constraint between two bodies.
func (w *World) Disconnect(a, b BodyHandle) {
	w.mu.Lock()
	defer w.mu.Unlock()
	k := makeBodyPair(a, b)
	if w.joints[k] <= 1 {
		delete(w.joints, k)
		return
	}
	w.joints[k]--
}

// Connected reports whether a constraint joins the two bodies.
func (w *World) Connected(a, b BodyHandle) bool {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.joints[makeBodyPair(a, b)] > 0
}

// IgnoreCollisionBetween stops two bodies from colliding.
func (w *World) IgnoreCollisionBetween(a, b BodyHandle) {
	w.ignore.Ignore(a, b)
}

// EnableCollisionBetween undoes IgnoreCollisionBetween in either argument order.
func (w *World) EnableCollisionBetween(a, b BodyHandle) {
	w.ignore.Enable(a, b)
}

// RegisterTerrain adds a terrain proxy to the index and its filter to the
// chain. A nil argument makes the call a no-op.
func (w *World) RegisterTerrain(proxy broadphase.Proxy, filter BroadPhaseFilter) {
	if proxy == nil || filter == nil {
		logger.Named("dynamics").Warn("terrain registration skipped: nil proxy or filter")
		return
	}
	w.index.Add(proxy)
	w.filters.Add(filter)
	logger.Named("dynamics").Debug("terrain registered", zap.Uint64("proxy", proxy.ProxyID()))
}

// UnregisterTerrain removes what RegisterTerrain added. A nil argument makes
// the call a no-op.
func (w *World) UnregisterTerrain(proxy broadphase.Proxy, filter BroadPhaseFilter) {
	if proxy == nil || filter == nil {
		return
	}
	w.index.Remove(proxy)
	w.filters.Remove(filter)
	logger.Named("dynamics").Debug("terrain unregistered", zap.Uint64("proxy", proxy.ProxyID()))
}

// RegisterContact records a contact between two shape or triangle IDs. Safe
// for concurrent use.
func (w *World) RegisterContact(idA, idB uint64, c ContactPoint) {
	w.contacts.register(idA, idB, c, w.currentStep())
}

// Contacts returns a snapshot of every contact, ordered by ID pair.
func (w *World) Contacts() []Contact {
	return w.contacts.snapshot()
}

// Contact returns the contact between two IDs, in either order. The
// geometry is expressed with the lower ID as A.
func (w *World) Contact(idA, idB uint64) (Contact, bool) {
	return w.contacts.get(idA, idB)
}

func (w *World) currentStep() uint64 {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.step
}
