package ook

import "time"

// EdgeTracker turns a stream of level samples into Intervals.
type EdgeTracker struct {
	level  Level
	start  time.Duration
	primed bool
}

// Observe records a sample. When the level differs from the previous one it
// returns the Interval the line just finished, closed at now.
// The first sample after construction or Reset only initializes state.
func (e *EdgeTracker) Observe(level Level, now time.Duration) (Interval, bool) {
	if !e.primed {
		e.level = level
		e.start = now
		e.primed = true
		return Interval{}, false
	}
	if level == e.level {
		return Interval{}, false
	}

	iv := Interval{Level: e.level, Duration: now - e.start}
	e.level = level
	e.start = now
	if iv.Duration <= 0 {
		// Clock did not advance between samples; nothing observable to report.
		return Interval{}, false
	}
	return iv, true
}

// Since returns how long the line has held its current level.
func (e *EdgeTracker) Since(now time.Duration) time.Duration {
	if !e.primed {
		return 0
	}
	return now - e.start
}

// Level returns the current line level.
func (e *EdgeTracker) Level() Level {
	return e.level
}

// Reset forgets the current level; the next sample re-primes the tracker.
func (e *EdgeTracker) Reset() {
	*e = EdgeTracker{}
}
