// Package physicstest provides a scriptable physics.World for tests.
package physicstest

import (
	"github.com/wfunc/broinkroyale/physics"
)

// Body is the state the fake keeps per body.
type Body struct {
	Static   bool
	Position physics.Vec2
	Velocity physics.Vec2
	Force    physics.Vec2 // accumulated since the last Step
	Size     physics.Vec2 // radius in X for circles, half extents for boxes
	Parked   bool
}

// World records every call and only moves bodies when told to.
// Step clears accumulated forces and fires queued contacts.
type World struct {
	Bodies    map[physics.BodyID]*Body
	Steps     int
	LastDt    float64
	Destroyed bool

	// StepHook runs inside Step before queued contacts are delivered.
	StepHook func(w *World)
	// PanicOnStep makes Step panic, simulating an engine fault.
	PanicOnStep bool

	nextID    physics.BodyID
	onContact physics.ContactFunc
	pending   [][2]physics.BodyID
	forces    []physics.Vec2
}

var _ physics.World = (*World)(nil)

func New() *World {
	return &World{Bodies: make(map[physics.BodyID]*Body), nextID: 1}
}

func (w *World) add(b *Body) physics.BodyID {
	id := w.nextID
	w.nextID++
	w.Bodies[id] = b
	return id
}

func (w *World) CreateDynamicCircle(pos physics.Vec2, radius, density, restitution float64) physics.BodyID {
	return w.add(&Body{Position: pos, Size: physics.Vec2{X: radius}})
}

func (w *World) CreateStaticBox(pos physics.Vec2, halfWidth, halfHeight, restitution float64) physics.BodyID {
	return w.add(&Body{Static: true, Position: pos, Size: physics.Vec2{X: halfWidth, Y: halfHeight}})
}

func (w *World) DestroyBody(id physics.BodyID) {
	delete(w.Bodies, id)
}

func (w *World) ApplyForceToCenter(id physics.BodyID, force physics.Vec2) {
	if b, ok := w.Bodies[id]; ok {
		b.Force.X += force.X
		b.Force.Y += force.Y
	}
}

// Contact queues a begin-contact event delivered during the next Step.
func (w *World) Contact(a, b physics.BodyID) {
	w.pending = append(w.pending, [2]physics.BodyID{a, b})
}

// Place teleports a body without going through Step.
func (w *World) Place(id physics.BodyID, pos physics.Vec2) {
	if b, ok := w.Bodies[id]; ok {
		b.Position = pos
	}
}

// LastForces returns the per-body forces seen by the most recent Step.
func (w *World) LastForces() []physics.Vec2 {
	return w.forces
}

func (w *World) Step(dt float64) {
	if w.PanicOnStep {
		panic("physicstest: step fault")
	}
	w.Steps++
	w.LastDt = dt
	w.forces = w.forces[:0]
	for _, b := range w.Bodies {
		if b.Force != (physics.Vec2{}) {
			w.forces = append(w.forces, b.Force)
		}
		b.Force = physics.Vec2{}
	}
	if w.StepHook != nil {
		w.StepHook(w)
	}
	pending := w.pending
	w.pending = nil
	for _, p := range pending {
		if w.onContact != nil {
			w.onContact(p[0], p[1])
		}
	}
}

func (w *World) Position(id physics.BodyID) physics.Vec2 {
	if b, ok := w.Bodies[id]; ok {
		return b.Position
	}
	return physics.Vec2{}
}

func (w *World) Velocity(id physics.BodyID) physics.Vec2 {
	if b, ok := w.Bodies[id]; ok {
		return b.Velocity
	}
	return physics.Vec2{}
}

func (w *World) Park(id physics.BodyID, pos physics.Vec2) {
	if b, ok := w.Bodies[id]; ok {
		b.Position = pos
		b.Velocity = physics.Vec2{}
		b.Parked = true
	}
}

func (w *World) OnContactBegin(fn physics.ContactFunc) {
	w.onContact = fn
}

func (w *World) Destroy() {
	for id := range w.Bodies {
		delete(w.Bodies, id)
	}
	w.onContact = nil
	w.Destroyed = true
}

// StaticCount returns the number of static bodies, i.e. arena walls.
func (w *World) StaticCount() int {
	n := 0
	for _, b := range w.Bodies {
		if b.Static {
			n++
		}
	}
	return n
}
