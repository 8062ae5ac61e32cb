package recognize

import (
	"github.com/kozaktomas/face-attend/internal/gallery"
)

// Confirmer debounces per-frame identifications. A subject is confirmed
// after holding the best identification for a fixed number of
// consecutive frames; each streak fires at most once, and an unknown
// frame or a different subject breaks the streak.
//
// Confirmer keeps per-stream state and is not safe for concurrent use.
type Confirmer struct {
	required  int
	name      string
	count     int
	confirmed bool
}

// NewConfirmer creates a confirmer that fires after required consecutive
// sightings of the same subject.
func NewConfirmer(required int) *Confirmer {
	if required < 1 {
		required = 1
	}
	return &Confirmer{required: required}
}

// Observe feeds one frame's best identification and reports whether this
// frame completed a confirmation streak.
func (c *Confirmer) Observe(name string) (string, bool) {
	if name == "" || name == gallery.Unknown {
		c.Reset()
		return "", false
	}

	if name != c.name {
		c.name = name
		c.count = 0
		c.confirmed = false
	}

	c.count++
	if c.count >= c.required && !c.confirmed {
		c.confirmed = true
		return name, true
	}
	return "", false
}

// Reset clears the current streak.
func (c *Confirmer) Reset() {
	c.name = ""
	c.count = 0
	c.confirmed = false
}

// Streak returns the current subject and how many consecutive frames it
// has held.
func (c *Confirmer) Streak() (string, int) {
	return c.name, c.count
}
