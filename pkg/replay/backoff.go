package replay

import (
	"runtime"
	"time"
)

// runtimeGosched yields the current goroutine's timeslice: the "yield"
// outcome of the post-rollback pause.
func runtimeGosched() {
	runtime.Gosched()
}

// sleepBackoff sleeps min(ntries * 1ms, 100ms).
func sleepBackoff(ntries int) {
	d := time.Duration(ntries) * time.Millisecond
	const maxBackoff = 100 * time.Millisecond
	if d > maxBackoff {
		d = maxBackoff
	}
	time.Sleep(d)
}
