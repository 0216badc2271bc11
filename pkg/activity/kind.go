// Package activity implements the keep-alive interaction engine: a small
// catalog of randomized human-like interaction primitives, a selector
// that never repeats the previous choice, and an executor that runs one
// primitive per cycle against a browser handle.
package activity

import (
	"math/rand"
	"time"
)

// Kind identifies one interaction primitive. The set is closed; there is
// no ordering significance between kinds.
type Kind string

const (
	Scroll          Kind = "scroll"
	MouseMove       Kind = "mouse_move"
	SafeClick       Kind = "safe_click"
	KeyPress        Kind = "key_press"
	MouseEvent      Kind = "mouse_event"
	TouchSimulation Kind = "touch_simulation"
	TabSwitch       Kind = "tab_switch"
	TextSelection   Kind = "text_selection"
)

var allKinds = []Kind{
	Scroll,
	MouseMove,
	SafeClick,
	KeyPress,
	MouseEvent,
	TouchSimulation,
	TabSwitch,
	TextSelection,
}

// Kinds returns a copy of the full activity catalog.
func Kinds() []Kind {
	return append([]Kind(nil), allKinds...)
}

// Selector draws activity kinds uniformly at random, excluding the kind
// drawn in the immediately preceding call so no two consecutive cycles
// repeat the same primitive. Not safe for concurrent use; each worker
// owns its own selector.
type Selector struct {
	rng     *rand.Rand
	last    Kind
	hasLast bool
}

// NewSelector creates a selector seeded from the current time.
func NewSelector() *Selector {
	return NewSelectorWithRand(rand.New(rand.NewSource(time.Now().UnixNano())))
}

// NewSelectorWithRand creates a selector using the given random source.
func NewSelectorWithRand(rng *rand.Rand) *Selector {
	return &Selector{rng: rng}
}

// Next returns the next activity kind. The first draw considers the full
// catalog; every later draw excludes the previous result.
func (s *Selector) Next() Kind {
	candidates := allKinds
	if s.hasLast {
		candidates = make([]Kind, 0, len(allKinds)-1)
		for _, k := range allKinds {
			if k != s.last {
				candidates = append(candidates, k)
			}
		}
	}

	choice := candidates[s.rng.Intn(len(candidates))]
	s.last = choice
	s.hasLast = true
	return choice
}

// Last returns the most recent draw, or "" before the first call to Next.
func (s *Selector) Last() Kind {
	return s.last
}
