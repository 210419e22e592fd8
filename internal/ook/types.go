// Package ook decodes the Nexus-TH on-off-keyed payload from a polled
// receiver line.
//
// The pipeline is a chain of small stages connected by plain values:
// EdgeTracker turns (level, timestamp) samples into Intervals, Thresholds
// classifies each Interval as a Symbol, Assembler collects Symbols into
// 36-bit Frames, and Validator confirms a Frame by repetition before
// decoding it into a Reading. Decoder owns all four; Capture drives a
// Decoder from a Sampler and hands Readings off on a channel.
//
// This package has NO external dependencies (no GPIO, MQTT, OS, or logging).
// Time is always injected as a monotonic time.Duration since sampler start.
package ook

import (
	"fmt"
	"time"
)

// Level is the receiver output level.
type Level uint8

const (
	NoCarrier Level = iota
	Carrier
)

func (l Level) String() string {
	switch l {
	case Carrier:
		return "CARRIER"
	case NoCarrier:
		return "NO_CARRIER"
	}
	return fmt.Sprintf("Level(%d)", uint8(l))
}

// LevelOf converts a logical line value to a Level.
func LevelOf(high bool) Level {
	if high {
		return Carrier
	}
	return NoCarrier
}

// Interval is a span of time the line held one level.
type Interval struct {
	Level    Level
	Duration time.Duration
}

func (iv Interval) String() string {
	return fmt.Sprintf("%s/%dus", iv.Level, iv.Duration.Microseconds())
}

// Symbol is the classification of a single Interval.
type Symbol uint8

const (
	SymbolNoise Symbol = iota
	SymbolPulse
	SymbolZero
	SymbolOne
	SymbolPreamble
	SymbolEndOfPayload
)

var symbolNames = [...]string{
	SymbolNoise:        "NOISE",
	SymbolPulse:        "PULSE",
	SymbolZero:         "ZERO",
	SymbolOne:          "ONE",
	SymbolPreamble:     "PREAMBLE",
	SymbolEndOfPayload: "END_OF_PAYLOAD",
}

func (s Symbol) String() string {
	if int(s) < len(symbolNames) {
		return symbolNames[s]
	}
	return fmt.Sprintf("Symbol(%d)", uint8(s))
}

// Sampler reads the instantaneous line level together with a monotonic
// timestamp. Sample must not block and never fails.
type Sampler interface {
	Sample() (Level, time.Duration)
}

// Stats counts what the decoder has seen since construction.
type Stats struct {
	Samples     uint64
	Intervals   uint64
	Noise       uint64
	Abandoned   uint64 // partial frames dropped before 36 bits
	Frames      uint64 // complete 36-bit candidates
	Rejected    uint64 // candidates failing the reserved-bit check
	Readings    uint64
	Dropped     uint64 // readings lost to a full handoff channel
	StuckResets uint64
	ReadErrors  uint64

	LastFrame   Frame
	LastVerdict Verdict
}
