// game/contact.go
package game

import "time"

// ContactTracker keeps the last-write-wins "who touched whom" memory used
// to attribute knockouts.
type ContactTracker struct {
	window time.Duration
}

func NewContactTracker(window time.Duration) *ContactTracker {
	return &ContactTracker{window: window}
}

// Touch records a symmetric contact between a and b at the given time.
func (t *ContactTracker) Touch(a, b *Player, at time.Time) {
	if a == nil || b == nil || a == b {
		return
	}
	a.LastContact = &ContactRecord{PlayerID: b.ID, At: at}
	b.LastContact = &ContactRecord{PlayerID: a.ID, At: at}
}

// Attribute returns the id of the player credited with victim's fall, if
// the last contact happened less than the window before now.
func (t *ContactTracker) Attribute(victim *Player, now time.Time) (string, bool) {
	c := victim.LastContact
	if c == nil || c.PlayerID == "" {
		return "", false
	}
	if now.Sub(c.At) >= t.window {
		return "", false
	}
	return c.PlayerID, true
}
