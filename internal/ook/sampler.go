package ook

import "time"

// LineReader reads the logical level of the receiver line.
type LineReader interface {
	Read() (bool, error)
}

// LineSampler adapts a LineReader to a Sampler. A failed read repeats the
// last good level, so Sample never fails; failures are counted.
type LineSampler struct {
	r     LineReader
	epoch time.Time
	now   func() time.Duration
	last  Level
	errs  uint64
}

// NewLineSampler creates a LineSampler timed by the monotonic clock.
func NewLineSampler(r LineReader) *LineSampler {
	epoch := time.Now()
	return &LineSampler{
		r:     r,
		epoch: epoch,
		now:   func() time.Duration { return time.Since(epoch) },
	}
}

// NewLineSamplerWithClock creates a LineSampler whose timestamps come from
// now, with epoch as the wall time of timestamp 0.
func NewLineSamplerWithClock(r LineReader, epoch time.Time, now func() time.Duration) *LineSampler {
	return &LineSampler{r: r, epoch: epoch, now: now}
}

// Sample implements Sampler.
func (s *LineSampler) Sample() (Level, time.Duration) {
	high, err := s.r.Read()
	t := s.now()
	if err != nil {
		s.errs++
		return s.last, t
	}
	s.last = LevelOf(high)
	return s.last, t
}

// Epoch returns the wall time corresponding to timestamp 0.
func (s *LineSampler) Epoch() time.Time {
	return s.epoch
}

// ReadErrors returns the number of failed reads.
func (s *LineSampler) ReadErrors() uint64 {
	return s.errs
}

// StepClock returns a clock that advances by step on every call, starting
// at zero. Useful to replay recorded or scripted samples at a fixed rate.
func StepClock(step time.Duration) func() time.Duration {
	var t time.Duration
	return func() time.Duration {
		now := t
		t += step
		return now
	}
}
