// game/arena.go
package game

import (
	"math"

	"github.com/wfunc/broinkroyale/physics"
)

// Arena is the shrinking playfield. Width and Height never drop below MinSize.
type Arena struct {
	Width      float64 `json:"width"`
	Height     float64 `json:"height"`
	ShrinkRate float64 `json:"shrinkRate"`
	MinSize    float64 `json:"minSize"`
}

func NewArena(r Rules) *Arena {
	return &Arena{
		Width:      math.Max(r.ArenaWidth, r.MinSize),
		Height:     math.Max(r.ArenaHeight, r.MinSize),
		ShrinkRate: r.ShrinkRate,
		MinSize:    r.MinSize,
	}
}

// Shrink reduces both dimensions by ShrinkRate, clamped at MinSize.
// It reports whether either dimension changed.
func (a *Arena) Shrink() bool {
	w := math.Max(a.MinSize, a.Width-a.ShrinkRate)
	h := math.Max(a.MinSize, a.Height-a.ShrinkRate)
	changed := w != a.Width || h != a.Height
	a.Width, a.Height = w, h
	return changed
}

// Center is where players spawn and where eliminated bodies are parked.
func (a *Arena) Center() physics.Vec2 {
	return physics.Vec2{X: a.Width / 2, Y: a.Height / 2}
}

// Contains reports whether p lies inside [0,Width]x[0,Height].
func (a *Arena) Contains(p physics.Vec2) bool {
	return p.X >= 0 && p.X <= a.Width && p.Y >= 0 && p.Y <= a.Height
}

// Wall describes one static boundary box.
type Wall struct {
	Center     physics.Vec2
	HalfWidth  float64
	HalfHeight float64
}

// Walls returns the four boundary boxes sitting just outside the arena:
// bottom, top, left and right.
func (a *Arena) Walls(thickness float64) [4]Wall {
	half := thickness / 2
	return [4]Wall{
		{Center: physics.Vec2{X: a.Width / 2, Y: -half}, HalfWidth: a.Width / 2, HalfHeight: half},
		{Center: physics.Vec2{X: a.Width / 2, Y: a.Height + half}, HalfWidth: a.Width / 2, HalfHeight: half},
		{Center: physics.Vec2{X: -half, Y: a.Height / 2}, HalfWidth: half, HalfHeight: a.Height / 2},
		{Center: physics.Vec2{X: a.Width + half, Y: a.Height / 2}, HalfWidth: half, HalfHeight: a.Height / 2},
	}
}
