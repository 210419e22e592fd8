package ook

import (
	"fmt"
	"time"
)

// StuckMultiple scales the END_OF_PAYLOAD minimum into the default stuck
// line timeout.
const StuckMultiple = 10

// Config configures a Decoder. Zero values select defaults.
type Config struct {
	Thresholds     Thresholds
	SilenceTimeout time.Duration // held candidate expiry; DefaultSilenceTimeout if 0, never if < 0
	StuckTimeout   time.Duration // forced reset while in a frame; StuckMultiple x EOP if 0
	Epoch          time.Time     // wall clock at sampler timestamp 0
}

// Decoder owns every stage between the sampler and the Reading sink.
// It is not safe for concurrent use; one goroutine feeds it.
type Decoder struct {
	thresholds Thresholds
	stuck      time.Duration
	epoch      time.Time

	edges     EdgeTracker
	assembler Assembler
	validator *Validator
	stats     Stats
}

// NewDecoder creates a Decoder from cfg.
func NewDecoder(cfg Config) (*Decoder, error) {
	if cfg.Thresholds == (Thresholds{}) {
		cfg.Thresholds = DefaultThresholds
	}
	if err := cfg.Thresholds.Validate(); err != nil {
		return nil, fmt.Errorf("invalid thresholds: %w", err)
	}
	if cfg.SilenceTimeout == 0 {
		cfg.SilenceTimeout = DefaultSilenceTimeout
	}
	if cfg.StuckTimeout == 0 {
		cfg.StuckTimeout = StuckMultiple * cfg.Thresholds.EndOfPayload.Min
	}
	return &Decoder{
		thresholds: cfg.Thresholds,
		stuck:      cfg.StuckTimeout,
		epoch:      cfg.Epoch,
		validator:  NewValidator(cfg.SilenceTimeout),
	}, nil
}

// Feed processes one line sample and returns a Reading when a transmission
// has just been confirmed.
func (d *Decoder) Feed(level Level, now time.Duration) (Reading, bool) {
	d.stats.Samples++
	iv, ok := d.edges.Observe(level, now)
	if !ok {
		if d.assembler.InFrame() && d.edges.Since(now) > d.stuck {
			d.assembler.Reset()
			d.stats.StuckResets++
			d.stats.Abandoned = d.assembler.Abandoned()
		}
		return Reading{}, false
	}
	return d.interval(iv, now)
}

// FeedInterval processes an already measured interval ending at now.
func (d *Decoder) FeedInterval(iv Interval, now time.Duration) (Reading, bool) {
	return d.interval(iv, now)
}

func (d *Decoder) interval(iv Interval, now time.Duration) (Reading, bool) {
	d.stats.Intervals++
	sym := d.thresholds.Classify(iv)
	if sym == SymbolNoise {
		d.stats.Noise++
	}

	frame, ok := d.assembler.Feed(sym, now)
	d.stats.Abandoned = d.assembler.Abandoned()
	if !ok {
		return Reading{}, false
	}

	d.stats.Frames++
	fields, verdict := d.validator.Check(frame)
	d.stats.LastFrame = frame
	d.stats.LastVerdict = verdict
	switch verdict {
	case VerdictRejected:
		d.stats.Rejected++
		return Reading{}, false
	case VerdictConfirmed:
		d.stats.Readings++
		return Reading{Fields: fields, Time: d.epoch.Add(frame.At)}, true
	}
	return Reading{}, false
}

// Stats returns a copy of the counters.
func (d *Decoder) Stats() Stats {
	return d.stats
}

// Reset returns every stage to its initial state. Counters are kept.
func (d *Decoder) Reset() {
	d.edges.Reset()
	d.assembler.Reset()
	d.validator.Clear()
	d.stats.Abandoned = d.assembler.Abandoned()
}
