package dynamics

import (
	"sync"

	"go.uber.org/zap"

	"github.com/Faultbox/midgard-collision/internal/broadphase"
	"github.com/Faultbox/midgard-collision/internal/collision"
	"github.com/Faultbox/midgard-collision/internal/logger"
)

// StepStats summarizes one Step.
type StepStats struct {
	Pairs    int // candidate pairs from the broad phase
	Filtered int // pairs rejected or handled by the filter chain
	Contacts int // contacts registered by the default narrow phase
	Pruned   int // stale contacts dropped
}

// Step runs the collision stage of one tick: broad-phase pairs go through the
// filter chain, surviving rigid pairs go through the default narrow phase,
// and contacts not refreshed during the step are dropped.
//
// Pairs are split into batches processed by cfg.Workers goroutines.
func (w *World) Step() StepStats {
	w.mu.Lock()
	w.step++
	step := w.step
	w.mu.Unlock()

	pairs := w.index.Pairs()
	stats := StepStats{Pairs: len(pairs)}

	workers := max(w.cfg.Workers, 1)
	batchSize := max(1, (len(pairs)+workers-1)/workers)

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		filtered int
		contacts int
	)
	for i := 0; i < len(pairs); i += batchSize {
		end := min(i+batchSize, len(pairs))
		batch := pairs[i:end]

		wg.Add(1)
		go func(batch []broadphase.Pair) {
			defer wg.Done()
			f, c := w.processBatch(batch)
			mu.Lock()
			filtered += f
			contacts += c
			mu.Unlock()
		}(batch)
	}
	wg.Wait()

	stats.Filtered = filtered
	stats.Contacts = contacts
	stats.Pruned = w.contacts.prune(step)

	logger.Named("dynamics").Debug("step",
		zap.Uint64("step", step),
		zap.Int("pairs", stats.Pairs),
		zap.Int("filtered", stats.Filtered),
		zap.Int("contacts", stats.Contacts),
		zap.Int("pruned", stats.Pruned))
	return stats
}

func (w *World) processBatch(batch []broadphase.Pair) (filtered, contacts int) {
	for _, p := range batch {
		if !w.filters.Filter(p.A, p.B) {
			filtered++
			continue
		}
		if w.narrowPhase(p.A, p.B) {
			contacts++
		}
	}
	return filtered, contacts
}

// narrowPhase tests two rigid-body shapes and registers a contact when they
// penetrate. Pairs without an active dynamic body are skipped.
func (w *World) narrowPhase(a, b broadphase.Proxy) bool {
	sa, okA := a.(*Shape)
	sb, okB := b.(*Shape)
	if !okA || !okB {
		return false
	}

	ba, okA := w.Body(sa.body)
	bb, okB := w.Body(sb.body)
	if !okA || !okB {
		return false
	}
	if !isAwakeDynamic(ba) && !isAwakeDynamic(bb) {
		return false
	}

	pen, ok := collision.Penetrate(sa.convex, sa.pose, sb.convex, sb.pose)
	if !ok {
		return false
	}
	w.RegisterContact(sa.id, sb.id, ContactPoint{
		PointA: pen.PointA,
		PointB: pen.PointB,
		Normal: pen.Normal,
		Depth:  pen.Depth,
	})
	return true
}

func isAwakeDynamic(b Body) bool {
	return b.Motion == Dynamic && b.Active
}
