// Package dynamics holds the collision world: the body table, the broad-phase
// index, the filter chain and the contact registry. It does not integrate
// motion or solve constraints.
package dynamics

import (
	"fmt"

	"github.com/Faultbox/midgard-collision/internal/collision"
)

// BodyHandle is a non-owning reference to a body. A handle whose body has
// been removed resolves to "not found".
type BodyHandle struct {
	Index      uint32
	Generation uint32
}

// Key returns a stable identity used to order pairs of bodies.
func (h BodyHandle) Key() uint64 {
	return uint64(h.Generation)<<32 | uint64(h.Index)
}

// IsZero reports whether h is the zero handle, which never refers to a body.
func (h BodyHandle) IsZero() bool {
	return h.Generation == 0
}

func (h BodyHandle) String() string {
	return fmt.Sprintf("body(%d:%d)", h.Index, h.Generation)
}

// MotionType says how a body moves.
type MotionType int

const (
	Static MotionType = iota
	Kinematic
	Dynamic
)

func (m MotionType) String() string {
	switch m {
	case Static:
		return "static"
	case Kinematic:
		return "kinematic"
	case Dynamic:
		return "dynamic"
	default:
		return fmt.Sprintf("motion(%d)", int(m))
	}
}

// BodyDesc describes a body to add to a world.
type BodyDesc struct {
	Name     string
	Layer    int
	Motion   MotionType
	Pose     collision.Pose
	Shape    collision.ConvexShape
	Inactive bool
}

// Body is a snapshot of a body in the world.
type Body struct {
	Handle BodyHandle
	Name   string
	Layer  int
	Motion MotionType
	Active bool
	Pose   collision.Pose
	Shape  *Shape
}

// IsStatic reports whether the body never moves.
func (b Body) IsStatic() bool {
	return b.Motion == Static
}
