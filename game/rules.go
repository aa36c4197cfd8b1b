// game/rules.go
package game

import "time"

// Rules collects every tunable constant of a match.
type Rules struct {
	TickRateHz         int
	PhysicsStep        float64 // seconds advanced by one world step
	VelocityIterations int
	PositionIterations int

	ArenaWidth    float64
	ArenaHeight   float64
	ShrinkRate    float64
	MinSize       float64
	ShrinkEvery   time.Duration
	WallThickness float64

	ForceGain     float64
	PlayerRadius  float64
	MinPlayers    int // lobby starts when this many have joined
	MaxPlayers    int
	ContactWindow time.Duration
}

// DefaultRules returns the standard match settings.
func DefaultRules() Rules {
	return Rules{
		TickRateHz:         30,
		PhysicsStep:        1.0 / 60,
		VelocityIterations: 8,
		PositionIterations: 3,
		ArenaWidth:         800,
		ArenaHeight:        600,
		ShrinkRate:         20,
		MinSize:            200,
		ShrinkEvery:        10 * time.Second,
		WallThickness:      10,
		ForceGain:          1000,
		PlayerRadius:       16,
		MinPlayers:         4,
		MaxPlayers:         8,
		ContactWindow:      2000 * time.Millisecond,
	}
}

// TickInterval is the wall-clock duration of one scheduler tick.
func (r Rules) TickInterval() time.Duration {
	return time.Second / time.Duration(r.TickRateHz)
}

// ShrinkTicks is the number of active ticks between two arena shrinks.
// Counting ticks instead of summing 1/30 avoids float drift.
func (r Rules) ShrinkTicks() int {
	n := int(r.ShrinkEvery * time.Duration(r.TickRateHz) / time.Second)
	if n < 1 {
		return 1
	}
	return n
}
