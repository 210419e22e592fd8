package ook

import (
	"context"
	"runtime"
	"sync"
)

// checkEvery is how many samples pass between cancellation checks and
// stats publication. Must be a power of two.
const checkEvery = 1024

// DefaultBuffer is the Reading channel capacity used when none is given.
const DefaultBuffer = 16

type readErrorCounter interface {
	ReadErrors() uint64
}

// Capture runs the polling loop: sample, decode, hand off.
type Capture struct {
	sampler Sampler
	errs    readErrorCounter // nil if the sampler cannot fail
	dec     *Decoder
	out     chan Reading

	mu   sync.Mutex
	snap Stats
}

// NewCapture creates a Capture feeding dec from s. Readings are delivered on
// a channel of the given capacity.
func NewCapture(s Sampler, dec *Decoder, buffer int) *Capture {
	if buffer <= 0 {
		buffer = DefaultBuffer
	}
	errs, _ := s.(readErrorCounter)
	return &Capture{
		sampler: s,
		errs:    errs,
		dec:     dec,
		out:     make(chan Reading, buffer),
	}
}

// Readings returns the channel confirmed readings are delivered on. It is
// closed when Run returns.
func (c *Capture) Readings() <-chan Reading {
	return c.out
}

// Stats returns the decoder counters as of the last publication.
func (c *Capture) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snap
}

// Run polls the sampler until ctx is cancelled. It occupies its goroutine
// and OS thread for the whole time; call it once.
func (c *Capture) Run(ctx context.Context) error {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()
	defer close(c.out)
	defer c.publish()

	done := ctx.Done()
	for i := uint64(0); ; i++ {
		if i&(checkEvery-1) == 0 {
			c.publish()
			select {
			case <-done:
				return nil
			default:
			}
		}

		level, now := c.sampler.Sample()
		r, ok := c.dec.Feed(level, now)
		if !ok {
			continue
		}
		c.handoff(r)
	}
}

// handoff never blocks; a reading that does not fit is counted and lost.
func (c *Capture) handoff(r Reading) {
	select {
	case c.out <- r:
	default:
		c.dec.stats.Dropped++
	}
}

// publish refreshes the sampler's error count and snapshots the counters.
func (c *Capture) publish() {
	if c.errs != nil {
		c.dec.stats.ReadErrors = c.errs.ReadErrors()
	}
	c.mu.Lock()
	c.snap = c.dec.stats
	c.mu.Unlock()
}
