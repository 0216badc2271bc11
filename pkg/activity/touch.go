package activity

import (
	"fmt"

	"github.com/entrhq/vigil/pkg/browser"
)

// touchSimulation synthesizes a touchstart event at a random coordinate.
// The event is dispatched from script so it works on pages loaded in a
// desktop profile where no touchscreen is emulated.
func (e *Executor) touchSimulation(h browser.Handle) error {
	x, y := e.randomPoint(h)

	script := fmt.Sprintf(`
		(() => {
			if (typeof TouchEvent === 'undefined' || typeof Touch === 'undefined') {
				return;
			}
			const target = document.elementFromPoint(%[1]d, %[2]d) || document.body;
			if (!target) {
				return;
			}
			const touch = new Touch({
				identifier: Date.now(),
				target: target,
				clientX: %[1]d,
				clientY: %[2]d,
				pageX: %[1]d,
				pageY: %[2]d,
				radiusX: 2.5,
				radiusY: 2.5,
				rotationAngle: 10,
				force: 0.5
			});
			const event = new TouchEvent('touchstart', {
				cancelable: true,
				bubbles: true,
				touches: [touch],
				targetTouches: [touch],
				changedTouches: [touch]
			});
			target.dispatchEvent(event);
		})();
	`, int(x), int(y))

	return h.Eval(script)
}
