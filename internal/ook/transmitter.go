package ook

import (
	"sort"
	"time"
)

// Timing describes a transmitter's pulse and gap widths.
type Timing struct {
	Pulse time.Duration
	Zero  time.Duration
	One   time.Duration
	Sync  time.Duration
}

// NexusTiming is the nominal timing of a Nexus-TH sensor.
var NexusTiming = Timing{
	Pulse: 500 * time.Microsecond,
	Zero:  900 * time.Microsecond,
	One:   1900 * time.Microsecond,
	Sync:  4000 * time.Microsecond,
}

// DefaultRepeats is the number of payload copies in one burst.
const DefaultRepeats = 3

// Waveform returns the intervals of one burst: every copy of the payload
// is led by a pulse and a sync gap, every bit is a pulse followed by a gap,
// and the burst ends with a pulse and a sync gap.
func (t Timing) Waveform(bits uint64, repeats int) []Interval {
	ivs := make([]Interval, 0, repeats*(2+2*FrameBits)+2)
	pulse := Interval{Level: Carrier, Duration: t.Pulse}
	for r := 0; r < repeats; r++ {
		ivs = append(ivs, pulse, Interval{Level: NoCarrier, Duration: t.Sync})
		for i := FrameBits - 1; i >= 0; i-- {
			gap := t.Zero
			if bits>>i&1 == 1 {
				gap = t.One
			}
			ivs = append(ivs, pulse, Interval{Level: NoCarrier, Duration: gap})
		}
	}
	return append(ivs, pulse, Interval{Level: NoCarrier, Duration: t.Sync})
}

// Transmitter is a Sampler that plays a burst of one reading every period,
// with the line idle (NoCarrier) in between. It stands in for a receiver
// when no hardware is attached.
type Transmitter struct {
	period time.Duration
	ends   []time.Duration // cumulative end offset of each interval
	levels []Level
	epoch  time.Time
	now    func() time.Duration
}

// NewTransmitter creates a Transmitter sending fields every period.
// A period shorter than the burst is stretched to fit it.
func NewTransmitter(fields Fields, timing Timing, repeats int, period time.Duration) *Transmitter {
	if repeats <= 0 {
		repeats = DefaultRepeats
	}
	ivs := timing.Waveform(EncodeFields(fields), repeats)
	tx := &Transmitter{
		ends:   make([]time.Duration, len(ivs)),
		levels: make([]Level, len(ivs)),
		epoch:  time.Now(),
	}
	var total time.Duration
	for i, iv := range ivs {
		total += iv.Duration
		tx.ends[i] = total
		tx.levels[i] = iv.Level
	}
	if period < total {
		period = total
	}
	tx.period = period
	epoch := tx.epoch
	tx.now = func() time.Duration { return time.Since(epoch) }
	return tx
}

// Sample implements Sampler.
func (tx *Transmitter) Sample() (Level, time.Duration) {
	now := tx.now()
	return tx.LevelAt(now), now
}

// LevelAt returns the line level at offset t from the epoch.
func (tx *Transmitter) LevelAt(t time.Duration) Level {
	pos := t % tx.period
	i := sort.Search(len(tx.ends), func(i int) bool { return tx.ends[i] > pos })
	if i == len(tx.ends) {
		return NoCarrier
	}
	return tx.levels[i]
}

// Epoch returns the wall time corresponding to timestamp 0.
func (tx *Transmitter) Epoch() time.Time {
	return tx.epoch
}

// Period returns the time between burst starts.
func (tx *Transmitter) Period() time.Duration {
	return tx.period
}
