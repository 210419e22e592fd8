package ook

import (
	"fmt"
	"sort"
	"time"
)

// Band is an inclusive duration range. A zero Max leaves the band open-ended.
type Band struct {
	Min time.Duration
	Max time.Duration
}

// Contains reports whether d lies within the band, edges included.
func (b Band) Contains(d time.Duration) bool {
	return d >= b.Min && (b.Max == 0 || d <= b.Max)
}

func (b Band) String() string {
	if b.Max == 0 {
		return fmt.Sprintf("[%dus,inf)", b.Min.Microseconds())
	}
	return fmt.Sprintf("[%dus,%dus]", b.Min.Microseconds(), b.Max.Microseconds())
}

func us(n int64) time.Duration { return time.Duration(n) * time.Microsecond }

// Thresholds holds the duration bands used to classify intervals.
// Pulse applies to Carrier intervals, every other band to NoCarrier.
type Thresholds struct {
	Pulse        Band
	Zero         Band
	One          Band
	Preamble     Band
	EndOfPayload Band
}

// DefaultThresholds are the Nexus-TH bands.
var DefaultThresholds = Thresholds{
	Pulse:        Band{Min: us(400), Max: us(600)},
	Zero:         Band{Min: us(800), Max: us(1000)},
	One:          Band{Min: us(1650), Max: us(2150)},
	Preamble:     Band{Min: us(2151), Max: us(3000)},
	EndOfPayload: Band{Min: us(3001)},
}

// Classify maps an interval to a Symbol. Durations are truncated to whole
// microseconds first so the documented edges are exact. Anything outside
// every band is SymbolNoise.
func (t Thresholds) Classify(iv Interval) Symbol {
	d := iv.Duration.Truncate(time.Microsecond)
	if iv.Level == Carrier {
		if t.Pulse.Contains(d) {
			return SymbolPulse
		}
		return SymbolNoise
	}
	switch {
	case t.Zero.Contains(d):
		return SymbolZero
	case t.One.Contains(d):
		return SymbolOne
	case t.Preamble.Contains(d):
		return SymbolPreamble
	case t.EndOfPayload.Contains(d):
		return SymbolEndOfPayload
	}
	return SymbolNoise
}

// Validate checks every band is well formed and that the NoCarrier bands
// do not overlap.
func (t Thresholds) Validate() error {
	type namedBand struct {
		name string
		band Band
	}
	named := []namedBand{
		{"zero", t.Zero},
		{"one", t.One},
		{"preamble", t.Preamble},
		{"end-of-payload", t.EndOfPayload},
	}
	all := append([]namedBand{{"pulse", t.Pulse}}, named...)
	for _, n := range all {
		if n.band.Min <= 0 {
			return fmt.Errorf("%s band %s: minimum must be positive", n.name, n.band)
		}
		if n.band.Max != 0 && n.band.Max < n.band.Min {
			return fmt.Errorf("%s band %s: maximum below minimum", n.name, n.band)
		}
	}

	sort.Slice(named, func(i, j int) bool { return named[i].band.Min < named[j].band.Min })
	for i := 1; i < len(named); i++ {
		prev, cur := named[i-1], named[i]
		if prev.band.Max == 0 || prev.band.Max >= cur.band.Min {
			return fmt.Errorf("%s band %s overlaps %s band %s", prev.name, prev.band, cur.name, cur.band)
		}
	}
	return nil
}
