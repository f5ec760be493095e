package dynamics

import (
	gomath "math"
	"sync/atomic"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/Faultbox/midgard-collision/internal/broadphase"
	"github.com/Faultbox/midgard-collision/internal/collision"
	"github.com/Faultbox/midgard-collision/internal/config"
	"github.com/Faultbox/midgard-collision/internal/logger"
	"github.com/Faultbox/midgard-collision/pkg/math"
)

func newTestWorld() *World {
	return NewWorld(config.DefaultPhysics())
}

func addSphere(w *World, pos mgl64.Vec3, layer int, motion MotionType) BodyHandle {
	return w.AddBody(BodyDesc{
		Layer:  layer,
		Motion: motion,
		Pose:   collision.At(pos),
		Shape:  &collision.Sphere{Radius: 1},
	})
}

func shapeOf(t *testing.T, w *World, h BodyHandle) *Shape {
	t.Helper()
	b, ok := w.Body(h)
	if !ok {
		t.Fatalf("body %v not found", h)
	}
	return b.Shape
}

func TestIDAllocator(t *testing.T) {
	var ids IDAllocator
	first, last := ids.RequestID(32)
	if first != 1 || last != 32 {
		t.Errorf("RequestID(32) = %d, %d, want 1, 32", first, last)
	}
	first, last = ids.RequestID(1)
	if first != 33 || last != 33 {
		t.Errorf("RequestID(1) = %d, %d, want 33, 33", first, last)
	}
	first, last = ids.RequestID(0)
	if first != last || first != 34 {
		t.Errorf("RequestID(0) = %d, %d, want a single ID 34", first, last)
	}
}

func TestBodyHandleStale(t *testing.T) {
	w := newTestWorld()
	h := addSphere(w, mgl64.Vec3{}, 0, Dynamic)

	if _, ok := w.Body(h); !ok {
		t.Fatal("fresh handle not found")
	}
	if !w.RemoveBody(h) {
		t.Fatal("RemoveBody() failed")
	}
	if _, ok := w.Body(h); ok {
		t.Error("stale handle still resolves")
	}
	if w.RemoveBody(h) {
		t.Error("RemoveBody() succeeded twice")
	}

	// The slot is reused with a new generation.
	h2 := addSphere(w, mgl64.Vec3{}, 0, Dynamic)
	if h2.Index != h.Index || h2.Generation == h.Generation {
		t.Errorf("expected slot reuse with new generation, got %v after %v", h2, h)
	}
	if _, ok := w.Body(h); ok {
		t.Error("old handle resolves to the new body")
	}
	if _, ok := w.Body(BodyHandle{}); ok {
		t.Error("zero handle resolves")
	}
	if w.BodyCount() != 1 {
		t.Errorf("BodyCount() = %d, want 1", w.BodyCount())
	}
}

func TestLayerMask(t *testing.T) {
	m := MaskOf(0, 3, 31, 40)
	if !m.Has(0) || !m.Has(3) || !m.Has(31) {
		t.Errorf("mask %b missing layers", m)
	}
	if m.Has(1) || m.Has(40) || m.Has(-1) {
		t.Errorf("mask %b has unexpected layers", m)
	}
	if !AllLayers.Has(17) {
		t.Error("AllLayers should contain every layer")
	}
}

func TestLayerMatrixSymmetric(t *testing.T) {
	m := NewLayerMatrix()
	if !m.CanCollide(2, 5) {
		t.Error("default matrix should enable every pair")
	}
	m.Disable(2, 5)
	if m.CanCollide(2, 5) || m.CanCollide(5, 2) {
		t.Error("Disable(2, 5) should apply in both orders")
	}
	if m.Mask(2).Has(5) {
		t.Error("Mask(2) should not contain layer 5")
	}
	m.Enable(5, 2)
	if !m.CanCollide(2, 5) {
		t.Error("Enable(5, 2) should restore the pair")
	}
	if m.CanCollide(0, 32) {
		t.Error("invalid layer should never collide")
	}
}

func TestIgnorePairSymmetry(t *testing.T) {
	w := newTestWorld()
	a := addSphere(w, mgl64.Vec3{0, 0, 0}, 0, Dynamic)
	b := addSphere(w, mgl64.Vec3{10, 0, 0}, 0, Dynamic)

	w.IgnoreCollisionBetween(a, b)
	if !w.IgnoreSet().Ignored(b, a) {
		t.Error("ignore should be order independent")
	}
	w.EnableCollisionBetween(b, a)
	if w.IgnoreSet().Ignored(a, b) || w.IgnoreSet().Len() != 0 {
		t.Error("reversed enable should fully clear the ignore state")
	}
}

func TestLayerFilter(t *testing.T) {
	w := newTestWorld()
	a := addSphere(w, mgl64.Vec3{0, 0, 0}, 1, Dynamic)
	b := addSphere(w, mgl64.Vec3{1, 0, 0}, 2, Dynamic)
	sa, sb := shapeOf(t, w, a), shapeOf(t, w, b)
	f := NewLayerFilter(w)

	if !f.Filter(sa, sb) {
		t.Fatal("default pair should pass")
	}

	t.Run("disabled layers ignore the ignore set", func(t *testing.T) {
		w.Layers().Disable(1, 2)
		defer w.Layers().Enable(1, 2)
		if f.Filter(sa, sb) {
			t.Error("disabled layer pair passed")
		}
		w.IgnoreCollisionBetween(a, b)
		w.EnableCollisionBetween(a, b)
		if f.Filter(sb, sa) {
			t.Error("disabled layer pair passed after ignore toggling")
		}
	})

	t.Run("ignored pair", func(t *testing.T) {
		w.IgnoreCollisionBetween(a, b)
		defer w.EnableCollisionBetween(a, b)
		if f.Filter(sa, sb) {
			t.Error("ignored pair passed")
		}
	})

	t.Run("connected bodies", func(t *testing.T) {
		w.Connect(a, b)
		if f.Filter(sa, sb) {
			t.Error("connected pair passed")
		}
		w.Layers().Reset()
		if f.Filter(sb, sa) {
			t.Error("connected pair passed regardless of layer matrix")
		}
		w.Disconnect(b, a)
		if !f.Filter(sa, sb) {
			t.Error("pair should pass after disconnect")
		}
	})

	t.Run("non-rigid pair passes", func(t *testing.T) {
		other := &stubProxy{id: 999}
		if !f.Filter(sa, other) {
			t.Error("non-rigid pair should be deferred")
		}
	})
}

type stubProxy struct {
	id uint64
}

func (s *stubProxy) ProxyID() uint64 { return s.id }
func (s *stubProxy) Bounds() collision.AABB {
	return collision.AABBFromCenter(mgl64.Vec3{}, mgl64.Vec3{100, 100, 100})
}

type countingFilter struct {
	result bool
	calls  atomic.Int32
}

func (c *countingFilter) Filter(a, b broadphase.Proxy) bool {
	c.calls.Add(1)
	return c.result
}

func TestCompositeFilter(t *testing.T) {
	var chain CompositeFilter
	first := &countingFilter{result: true}
	second := &countingFilter{result: false}
	third := &countingFilter{result: true}
	chain.Add(first)
	chain.Add(second)
	chain.Add(third)
	chain.Add(nil)

	if chain.Len() != 3 {
		t.Fatalf("Len() = %d, want 3", chain.Len())
	}
	if chain.Filter(nil, nil) {
		t.Error("chain with a rejecting filter passed")
	}
	if third.calls.Load() != 0 {
		t.Error("chain did not short-circuit")
	}

	if !chain.Remove(second) {
		t.Fatal("Remove() failed")
	}
	if chain.Remove(second) {
		t.Error("Remove() succeeded twice")
	}
	if !chain.Filter(nil, nil) {
		t.Error("chain of accepting filters rejected")
	}
	if first.calls.Load() != 2 || third.calls.Load() != 1 {
		t.Errorf("unexpected call counts %d, %d", first.calls.Load(), third.calls.Load())
	}
}

func TestStepContacts(t *testing.T) {
	w := newTestWorld()
	a := addSphere(w, mgl64.Vec3{0, 0, 0}, 0, Dynamic)
	b := addSphere(w, mgl64.Vec3{1.5, 0, 0}, 0, Dynamic)
	addSphere(w, mgl64.Vec3{50, 0, 0}, 0, Dynamic)
	sa, sb := shapeOf(t, w, a), shapeOf(t, w, b)

	stats := w.Step()
	if stats.Pairs != 1 || stats.Contacts != 1 {
		t.Fatalf("Step() = %+v, want 1 pair and 1 contact", stats)
	}

	c, ok := w.Contact(sb.ProxyID(), sa.ProxyID())
	if !ok {
		t.Fatal("contact not registered")
	}
	if gomath.Abs(c.Depth-0.5) > 1e-2 {
		t.Errorf("Depth = %v, want 0.5", c.Depth)
	}
	if c.IDA != sa.ProxyID() || c.IDB != sb.ProxyID() {
		t.Errorf("contact IDs = %d, %d, want ordered %d, %d", c.IDA, c.IDB, sa.ProxyID(), sb.ProxyID())
	}
	if c.Age != 0 {
		t.Errorf("Age = %d, want 0 for a new contact", c.Age)
	}

	w.Step()
	c, _ = w.Contact(sa.ProxyID(), sb.ProxyID())
	if c.Age != 1 {
		t.Errorf("Age = %d, want 1 after a second step", c.Age)
	}

	w.SetPose(b, collision.At(mgl64.Vec3{10, 0, 0}))
	stats = w.Step()
	if stats.Pruned != 1 || len(w.Contacts()) != 0 {
		t.Errorf("expected the stale contact to be pruned, got %+v", stats)
	}
}

func TestStepSkipsFilteredAndStatic(t *testing.T) {
	tests := []struct {
		name  string
		setup func(w *World, a, b BodyHandle)
	}{
		{"ignored", func(w *World, a, b BodyHandle) { w.IgnoreCollisionBetween(a, b) }},
		{"connected", func(w *World, a, b BodyHandle) { w.Connect(a, b) }},
		{"layers", func(w *World, a, b BodyHandle) { w.Layers().Disable(3, 4) }},
		{"inactive", func(w *World, a, b BodyHandle) { w.SetActive(a, false) }},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			w := newTestWorld()
			a := addSphere(w, mgl64.Vec3{0, 0, 0}, 3, Dynamic)
			b := addSphere(w, mgl64.Vec3{1, 0, 0}, 4, Static)
			tc.setup(w, a, b)
			if stats := w.Step(); stats.Contacts != 0 {
				t.Errorf("Step() registered %d contacts, want 0", stats.Contacts)
			}
		})
	}
}

func TestRegisterTerrainNil(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	logger.Log = zap.New(core)
	t.Cleanup(logger.Reset)

	w := newTestWorld()
	before := w.Filters().Len()

	w.RegisterTerrain(nil, &countingFilter{})
	w.RegisterTerrain(&stubProxy{id: 7}, nil)
	w.UnregisterTerrain(nil, nil)

	if w.Filters().Len() != before || w.Index().Len() != 0 {
		t.Error("nil registration should be a no-op")
	}
	if n := logs.Len(); n != 2 {
		t.Errorf("got %d warnings, want 2", n)
	}
	for _, e := range logs.All() {
		if e.LoggerName != "dynamics" {
			t.Errorf("warning logged by %q, want dynamics", e.LoggerName)
		}
	}

	proxy := &stubProxy{id: 7}
	filter := &countingFilter{result: true}
	w.RegisterTerrain(proxy, filter)
	if w.Filters().Len() != before+1 || !w.Index().Contains(7) {
		t.Fatal("terrain not registered")
	}
	w.UnregisterTerrain(proxy, filter)
	if w.Filters().Len() != before || w.Index().Contains(7) {
		t.Error("terrain not unregistered")
	}
}

func TestShapeRayCast(t *testing.T) {
	w := newTestWorld()
	h := addSphere(w, mgl64.Vec3{5, 0, 0}, 0, Static)
	s := shapeOf(t, w, h)

	hit, normal, lambda := s.RayCast(mgl64.Vec3{}, mgl64.Vec3{1, 0, 0})
	if !hit {
		t.Fatal("RayCast() missed")
	}
	if gomath.Abs(lambda-4) > 1e-3 {
		t.Errorf("lambda = %v, want 4", lambda)
	}
	if !math.NearZero(normal.Sub(mgl64.Vec3{-1, 0, 0}), 1e-3) {
		t.Errorf("normal = %v, want -X", normal)
	}

	if hit, _, _ := s.RayCast(mgl64.Vec3{0, 3, 0}, mgl64.Vec3{1, 0, 0}); hit {
		t.Error("expected miss above the sphere")
	}
}

func TestClose(t *testing.T) {
	w := newTestWorld()
	a := addSphere(w, mgl64.Vec3{0, 0, 0}, 0, Dynamic)
	b := addSphere(w, mgl64.Vec3{1, 0, 0}, 0, Dynamic)
	w.IgnoreCollisionBetween(a, b)
	w.Layers().Disable(0, 1)
	w.Filters().Add(&countingFilter{})

	w.Close()

	if w.Index().Len() != 0 || w.BodyCount() != 0 {
		t.Error("Close() left bodies behind")
	}
	if w.IgnoreSet().Len() != 0 || !w.Layers().CanCollide(0, 1) {
		t.Error("Close() left filter state behind")
	}
	if w.Filters().Len() != 1 {
		t.Errorf("Close() should leave only the layer filter, got %d", w.Filters().Len())
	}
	if _, ok := w.Body(a); ok {
		t.Error("handle survived Close()")
	}
}
