// physics/physics.go
package physics

// BodyID is an opaque handle to a body owned by a World.
type BodyID uint64

// Vec2 is a 2D vector in world units.
type Vec2 struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// ContactFunc is called once for every pair of bodies that begin touching.
// It runs inside Step; implementations must not mutate the world.
type ContactFunc func(a, b BodyID)

// World is the narrow contract the lobby needs from a rigid-body engine.
// A World is not safe for concurrent use; its owner serializes access.
type World interface {
	// CreateDynamicCircle adds a movable circle and returns its handle.
	CreateDynamicCircle(pos Vec2, radius, density, restitution float64) BodyID
	// CreateStaticBox adds an immovable box centered at pos.
	CreateStaticBox(pos Vec2, halfWidth, halfHeight, restitution float64) BodyID
	DestroyBody(id BodyID)
	ApplyForceToCenter(id BodyID, force Vec2)
	Step(dt float64)
	Position(id BodyID) Vec2
	Velocity(id BodyID) Vec2
	// Park moves a body to pos, zeroes its velocity and takes it out of the
	// simulation. The body stays in the world until destroyed.
	Park(id BodyID, pos Vec2)
	// OnContactBegin replaces the contact handler.
	OnContactBegin(fn ContactFunc)
	// Destroy releases every body still in the world.
	Destroy()
}
