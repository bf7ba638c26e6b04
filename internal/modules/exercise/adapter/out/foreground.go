package out

import (
	"log"
	"sync/atomic"
)

// LogForegroundController stands in for a host that grants elevated
// execution. It only tracks and logs the requested level; process
// priority is left to the operating system.
type LogForegroundController struct {
	elevated atomic.Bool
}

func NewLogForegroundController() *LogForegroundController {
	return &LogForegroundController{}
}

func (c *LogForegroundController) MoveToForeground() {
	if c.elevated.CompareAndSwap(false, true) {
		log.Print("exercise: session in progress, holding foreground")
	}
}

func (c *LogForegroundController) RemoveFromForeground() {
	if c.elevated.CompareAndSwap(true, false) {
		log.Print("exercise: session idle, releasing foreground")
	}
}

func (c *LogForegroundController) Elevated() bool {
	return c.elevated.Load()
}
