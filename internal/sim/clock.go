package sim

import (
	"context"
	"sync"
	"time"
)

// DefaultFrameInterval approximates the 30fps cooperative animation loop of
// the interactive document.
const DefaultFrameInterval = 33 * time.Millisecond

// Clock drives the animation of one open report view. It starts Paused; the
// only transitions are explicit Toggle calls. While running it invokes the
// frame callback once per tick; while paused it schedules nothing. Stop (or
// context cancellation) ends the loop for good — a closed view never leaks
// a recurring callback.
type Clock struct {
	interval time.Duration
	onFrame  func()

	mu      sync.Mutex
	active  bool
	started bool
	stopped bool

	setActive chan bool
	cancel    context.CancelFunc
	done      chan struct{}
}

// NewClock creates a paused clock. onFrame runs on the clock goroutine; it
// is expected to advance the frame counter and redraw.
func NewClock(interval time.Duration, onFrame func()) *Clock {
	if interval <= 0 {
		interval = DefaultFrameInterval
	}
	return &Clock{
		interval:  interval,
		onFrame:   onFrame,
		setActive: make(chan bool, 1),
		done:      make(chan struct{}),
	}
}

// Start launches the clock loop. The clock remains Paused until toggled.
func (c *Clock) Start(ctx context.Context) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.started || c.stopped {
		return
	}
	c.started = true
	ctx, c.cancel = context.WithCancel(ctx)
	go c.run(ctx)
}

func (c *Clock) run(ctx context.Context) {
	defer close(c.done)
	ticker := time.NewTicker(c.interval)
	ticker.Stop() // paused initially; ticks are scheduled only while active
	defer ticker.Stop()

	running := false
	for {
		select {
		case <-ctx.Done():
			return
		case want := <-c.setActive:
			if want && !running {
				ticker.Reset(c.interval)
			} else if !want && running {
				ticker.Stop()
			}
			running = want
		case <-ticker.C:
			c.onFrame()
		}
	}
}

// Toggle flips Paused<->Running and returns the new active state.
func (c *Clock) Toggle() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.stopped {
		return false
	}
	c.active = !c.active
	// Coalesce with any undelivered state change so Toggle never blocks.
	select {
	case <-c.setActive:
	default:
	}
	c.setActive <- c.active
	return c.active
}

// Active reports the current state.
func (c *Clock) Active() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.active
}

// Stop cancels the loop and waits for it to exit. Safe to call more than
// once, and before Start.
func (c *Clock) Stop() {
	c.mu.Lock()
	if c.stopped {
		c.mu.Unlock()
		<-c.done
		return
	}
	c.stopped = true
	c.active = false
	cancel := c.cancel
	started := c.started
	c.mu.Unlock()

	if !started {
		close(c.done)
		return
	}
	cancel()
	<-c.done
}
