package activity

import (
	"github.com/entrhq/vigil/pkg/browser"
)

// navigationKeys are non-destructive keys: they scroll or move focus but
// can never type text, submit a form or trigger a shortcut.
var navigationKeys = []string{
	"PageDown",
	"PageUp",
	"ArrowDown",
	"ArrowUp",
	"ArrowRight",
	"ArrowLeft",
}

// keyPress sends one randomly chosen navigation key to the page.
func (e *Executor) keyPress(h browser.Handle) error {
	key := navigationKeys[e.rng.Intn(len(navigationKeys))]
	return h.PressKey(key)
}
