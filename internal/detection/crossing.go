package detection

import (
	"fmt"
	"image"
)

// IsCrossing reports whether any pixel on row lineY of the masked edge map is
// an edge (non-zero) pixel.
//
// lineY is relative to the map's top row. It must satisfy 0 <= lineY < height;
// Resolve guarantees this, so a violation is a programming error and panics.
func IsCrossing(masked *image.Gray, lineY int) bool {
	b := masked.Bounds()
	if lineY < 0 || lineY >= b.Dy() {
		panic(fmt.Sprintf("detection: line row %d outside map height %d", lineY, b.Dy()))
	}

	off := masked.PixOffset(b.Min.X, b.Min.Y+lineY)
	for _, v := range masked.Pix[off : off+b.Dx()] {
		if v != 0 {
			return true
		}
	}
	return false
}

// TriggerMode selects how per-frame crossing states become crossing events.
type TriggerMode string

const (
	// TriggerLevel fires on every frame with an edge on the line.
	TriggerLevel TriggerMode = "level"

	// TriggerEdge fires only when the line goes from clear to occupied.
	TriggerEdge TriggerMode = "edge"
)

// ParseTriggerMode validates a trigger mode name. An empty string selects
// TriggerEdge.
func ParseTriggerMode(s string) (TriggerMode, error) {
	switch TriggerMode(s) {
	case "":
		return TriggerEdge, nil
	case TriggerLevel, TriggerEdge:
		return TriggerMode(s), nil
	default:
		return "", fmt.Errorf("unknown trigger mode %q (want %q or %q)", s, TriggerLevel, TriggerEdge)
	}
}

// Trigger turns the per-frame crossing boolean into crossing events.
//
// In edge mode an event fires on a false→true transition, and is suppressed
// while fewer than Cooldown frames have passed since the previous event.
// Level mode ignores Cooldown and fires on every crossing frame.
//
// A Trigger is owned by one processing loop and is not safe for concurrent use.
type Trigger struct {
	Mode     TriggerMode
	Cooldown int

	prev      bool
	frame     int
	lastFire  int
	everFired bool
}

// NewTrigger returns a trigger in the given mode.
func NewTrigger(mode TriggerMode, cooldown int) *Trigger {
	if mode == "" {
		mode = TriggerEdge
	}
	return &Trigger{Mode: mode, Cooldown: max(cooldown, 0)}
}

// Update feeds the crossing state of the next frame and reports whether a
// crossing event fires for it.
func (t *Trigger) Update(crossing bool) bool {
	t.frame++
	rising := crossing && !t.prev
	t.prev = crossing

	fire := crossing
	if t.Mode == TriggerEdge {
		fire = rising && (!t.everFired || t.frame-t.lastFire >= t.Cooldown)
	}
	if fire {
		t.lastFire = t.frame
		t.everFired = true
	}
	return fire
}

// Reset forgets the previous frame state.
func (t *Trigger) Reset() {
	t.prev = false
	t.frame = 0
	t.lastFire = 0
	t.everFired = false
}
