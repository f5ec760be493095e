package dynamics

import (
	"sort"
	"sync"

	"github.com/go-gl/mathgl/mgl64"
)

// ContactPoint is the geometry of one contact. Normal points from B toward A.
type ContactPoint struct {
	PointA mgl64.Vec3
	PointB mgl64.Vec3
	Normal mgl64.Vec3
	Depth  float64
}

// Contact is a persistent contact between two shape or triangle IDs,
// stored with IDA < IDB.
type Contact struct {
	IDA, IDB uint64
	ContactPoint

	// Age counts consecutive steps the contact has been refreshed; zero for
	// a new contact.
	Age int

	step uint64
}

type contactKey struct {
	a, b uint64
}

// contactRegistry serializes contact registration from concurrent filters.
type contactRegistry struct {
	mu       sync.Mutex
	contacts map[contactKey]*Contact
}

func newContactRegistry() *contactRegistry {
	return &contactRegistry{contacts: make(map[contactKey]*Contact)}
}

func (r *contactRegistry) register(idA, idB uint64, c ContactPoint, step uint64) {
	if idA > idB {
		idA, idB = idB, idA
		c.PointA, c.PointB = c.PointB, c.PointA
		c.Normal = c.Normal.Mul(-1)
	}
	key := contactKey{idA, idB}

	r.mu.Lock()
	defer r.mu.Unlock()

	if existing, ok := r.contacts[key]; ok {
		if existing.step != step {
			existing.Age++
		}
		existing.ContactPoint = c
		existing.step = step
		return
	}
	r.contacts[key] = &Contact{IDA: idA, IDB: idB, ContactPoint: c, step: step}
}

func (r *contactRegistry) get(idA, idB uint64) (Contact, bool) {
	if idA > idB {
		idA, idB = idB, idA
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.contacts[contactKey{idA, idB}]
	if !ok {
		return Contact{}, false
	}
	return *c, true
}

func (r *contactRegistry) snapshot() []Contact {
	r.mu.Lock()
	out := make([]Contact, 0, len(r.contacts))
	for _, c := range r.contacts {
		out = append(out, *c)
	}
	r.mu.Unlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].IDA != out[j].IDA {
			return out[i].IDA < out[j].IDA
		}
		return out[i].IDB < out[j].IDB
	})
	return out
}

// prune drops contacts not refreshed during step.
func (r *contactRegistry) prune(step uint64) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for k, c := range r.contacts {
		if c.step != step {
			delete(r.contacts, k)
			n++
		}
	}
	return n
}

// removeID drops every contact involving id.
func (r *contactRegistry) removeID(id uint64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for k := range r.contacts {
		if k.a == id || k.b == id {
			delete(r.contacts, k)
		}
	}
}

func (r *contactRegistry) clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	clear(r.contacts)
}
