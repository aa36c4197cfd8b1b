// physics/box2d.go
package physics

import (
	"github.com/ByteArena/box2d"
)

const (
	defaultVelocityIterations = 8
	defaultPositionIterations = 3
)

// Box2DWorld implements World on top of the Box2D port.
type Box2DWorld struct {
	world     *box2d.B2World
	bodies    map[BodyID]*box2d.B2Body
	nextID    BodyID
	onContact ContactFunc

	velocityIterations int
	positionIterations int
}

var _ World = (*Box2DWorld)(nil)

// NewBox2DWorld creates a gravity-free world.
// Non-positive iteration counts fall back to Box2D's recommended values.
func NewBox2DWorld(velocityIterations, positionIterations int) *Box2DWorld {
	if velocityIterations <= 0 {
		velocityIterations = defaultVelocityIterations
	}
	if positionIterations <= 0 {
		positionIterations = defaultPositionIterations
	}
	bw := box2d.MakeB2World(box2d.MakeB2Vec2(0, 0))
	w := &Box2DWorld{
		world:              &bw,
		bodies:             make(map[BodyID]*box2d.B2Body),
		nextID:             1,
		velocityIterations: velocityIterations,
		positionIterations: positionIterations,
	}
	w.world.SetContactListener(&contactListener{world: w})
	return w
}

func (w *Box2DWorld) CreateDynamicCircle(pos Vec2, radius, density, restitution float64) BodyID {
	def := box2d.MakeB2BodyDef()
	def.Type = box2d.B2BodyType.B2_dynamicBody
	def.Position.Set(pos.X, pos.Y)
	body := w.world.CreateBody(&def)

	shape := box2d.MakeB2CircleShape()
	shape.M_radius = radius
	fd := box2d.MakeB2FixtureDef()
	fd.Shape = &shape
	fd.Density = density
	fd.Restitution = restitution
	body.CreateFixtureFromDef(&fd)

	return w.track(body)
}

func (w *Box2DWorld) CreateStaticBox(pos Vec2, halfWidth, halfHeight, restitution float64) BodyID {
	def := box2d.MakeB2BodyDef()
	def.Type = box2d.B2BodyType.B2_staticBody
	def.Position.Set(pos.X, pos.Y)
	body := w.world.CreateBody(&def)

	shape := box2d.MakeB2PolygonShape()
	shape.SetAsBox(halfWidth, halfHeight)
	fd := box2d.MakeB2FixtureDef()
	fd.Shape = &shape
	fd.Density = 0
	fd.Restitution = restitution
	body.CreateFixtureFromDef(&fd)

	return w.track(body)
}

func (w *Box2DWorld) track(body *box2d.B2Body) BodyID {
	id := w.nextID
	w.nextID++
	body.SetUserData(id)
	w.bodies[id] = body
	return id
}

func (w *Box2DWorld) DestroyBody(id BodyID) {
	body, ok := w.bodies[id]
	if !ok {
		return
	}
	w.world.DestroyBody(body)
	delete(w.bodies, id)
}

func (w *Box2DWorld) ApplyForceToCenter(id BodyID, force Vec2) {
	if body, ok := w.bodies[id]; ok {
		body.ApplyForceToCenter(box2d.MakeB2Vec2(force.X, force.Y), true)
	}
}

func (w *Box2DWorld) Step(dt float64) {
	w.world.Step(dt, w.velocityIterations, w.positionIterations)
}

func (w *Box2DWorld) Position(id BodyID) Vec2 {
	body, ok := w.bodies[id]
	if !ok {
		return Vec2{}
	}
	p := body.GetPosition()
	return Vec2{X: p.X, Y: p.Y}
}

func (w *Box2DWorld) Velocity(id BodyID) Vec2 {
	body, ok := w.bodies[id]
	if !ok {
		return Vec2{}
	}
	v := body.GetLinearVelocity()
	return Vec2{X: v.X, Y: v.Y}
}

func (w *Box2DWorld) Park(id BodyID, pos Vec2) {
	body, ok := w.bodies[id]
	if !ok {
		return
	}
	body.SetTransform(box2d.MakeB2Vec2(pos.X, pos.Y), 0)
	body.SetLinearVelocity(box2d.MakeB2Vec2(0, 0))
	body.SetAngularVelocity(0)
	body.SetActive(false)
}

// isActive reports whether a body still takes part in the simulation.
func (w *Box2DWorld) isActive(id BodyID) bool {
	body, ok := w.bodies[id]
	return ok && body.IsActive()
}

func (w *Box2DWorld) OnContactBegin(fn ContactFunc) {
	w.onContact = fn
}

func (w *Box2DWorld) Destroy() {
	for id, body := range w.bodies {
		w.world.DestroyBody(body)
		delete(w.bodies, id)
	}
	w.onContact = nil
}

// bodyCount reports how many bodies the world still owns.
func (w *Box2DWorld) bodyCount() int {
	return len(w.bodies)
}

// contactListener forwards begin-contact events as BodyID pairs.
type contactListener struct {
	world *Box2DWorld
}

func (l *contactListener) BeginContact(contact box2d.B2ContactInterface) {
	if l.world.onContact == nil {
		return
	}
	a, okA := bodyID(contact.GetFixtureA())
	b, okB := bodyID(contact.GetFixtureB())
	if okA && okB {
		l.world.onContact(a, b)
	}
}

func (l *contactListener) EndContact(contact box2d.B2ContactInterface) {}

func (l *contactListener) PreSolve(contact box2d.B2ContactInterface, oldManifold box2d.B2Manifold) {}

func (l *contactListener) PostSolve(contact box2d.B2ContactInterface, impulse *box2d.B2ContactImpulse) {
}

func bodyID(f *box2d.B2Fixture) (BodyID, bool) {
	if f == nil {
		return 0, false
	}
	id, ok := f.GetBody().GetUserData().(BodyID)
	return id, ok
}
