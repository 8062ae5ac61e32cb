package recognize

import (
	"testing"

	"github.com/kozaktomas/face-attend/internal/gallery"
)

func TestConfirmerFiresAfterStreak(t *testing.T) {
	c := NewConfirmer(3)

	for i := range 2 {
		if name, ok := c.Observe("alice"); ok {
			t.Fatalf("fired after %d frames: %q", i+1, name)
		}
	}

	name, ok := c.Observe("alice")
	if !ok || name != "alice" {
		t.Errorf("Observe = (%q, %v); want (alice, true) on frame 3", name, ok)
	}
}

func TestConfirmerFiresOncePerStreak(t *testing.T) {
	c := NewConfirmer(2)

	c.Observe("alice")
	if _, ok := c.Observe("alice"); !ok {
		t.Fatal("expected confirmation on frame 2")
	}

	// The streak continues but must not fire again.
	for range 5 {
		if name, ok := c.Observe("alice"); ok {
			t.Errorf("latched streak fired again: %q", name)
		}
	}
}

func TestConfirmerUnknownResetsStreak(t *testing.T) {
	c := NewConfirmer(3)

	c.Observe("alice")
	c.Observe("alice")
	c.Observe(gallery.Unknown)

	// Streak starts over.
	c.Observe("alice")
	c.Observe("alice")
	if _, ok := c.Observe("alice"); !ok {
		t.Error("expected confirmation after a fresh 3-frame streak")
	}
}

func TestConfirmerNameSwitchResetsStreak(t *testing.T) {
	c := NewConfirmer(2)

	c.Observe("alice")
	if name, ok := c.Observe("bob"); ok {
		t.Fatalf("fired on first bob frame: %q", name)
	}
	name, ok := c.Observe("bob")
	if !ok || name != "bob" {
		t.Errorf("Observe = (%q, %v); want (bob, true)", name, ok)
	}
}

func TestConfirmerRefiresAfterBreak(t *testing.T) {
	c := NewConfirmer(2)

	c.Observe("alice")
	if _, ok := c.Observe("alice"); !ok {
		t.Fatal("expected first confirmation")
	}

	c.Observe(gallery.Unknown)

	c.Observe("alice")
	if _, ok := c.Observe("alice"); !ok {
		t.Error("expected a second confirmation after the streak broke")
	}
}

func TestConfirmerMinimumStreak(t *testing.T) {
	// A requirement below 1 behaves like 1: every new streak fires
	// immediately, once.
	c := NewConfirmer(0)

	if _, ok := c.Observe("alice"); !ok {
		t.Error("expected immediate confirmation with streak length 1")
	}
	if _, ok := c.Observe("alice"); ok {
		t.Error("same streak fired twice")
	}
}

func TestConfirmerStreak(t *testing.T) {
	c := NewConfirmer(5)

	c.Observe("alice")
	c.Observe("alice")

	name, count := c.Streak()
	if name != "alice" || count != 2 {
		t.Errorf("Streak = (%q, %d); want (alice, 2)", name, count)
	}

	c.Reset()
	if name, count := c.Streak(); name != "" || count != 0 {
		t.Errorf("Streak after Reset = (%q, %d); want empty", name, count)
	}
}
