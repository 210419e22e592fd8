package ook

import (
	"strings"
	"time"
)

// FrameBits is the number of payload bits in a Nexus-TH frame.
const FrameBits = 36

// Frame is a complete 36-bit candidate payload. Bit 0 (the first bit
// received) is the most significant of the 36 bits held in Bits.
type Frame struct {
	Bits uint64
	At   time.Duration // timestamp of the interval that carried the last bit
}

// Bit returns bit i in transmission order.
func (f Frame) Bit(i int) uint8 {
	return uint8(f.Bits>>(FrameBits-1-i)) & 1
}

// Field extracts width bits starting at bit offset, MSB first.
func (f Frame) Field(offset, width int) uint64 {
	shift := FrameBits - offset - width
	return (f.Bits >> shift) & (1<<width - 1)
}

// String renders the bits in transmission order, grouped by field.
func (f Frame) String() string {
	var b strings.Builder
	for i := 0; i < FrameBits; i++ {
		switch i {
		case 8, 9, 10, 12, 24, 28:
			b.WriteByte(' ')
		}
		b.WriteByte('0' + f.Bit(i))
	}
	return b.String()
}

type assemblerState uint8

const (
	searching assemblerState = iota
	inFrame
)

// Assembler is the frame state machine. It collects ZERO/ONE symbols that
// follow a frame start into a Frame.
type Assembler struct {
	state     assemblerState
	n         int
	bits      uint64
	abandoned uint64
}

// Feed advances the state machine by one symbol and returns a Frame once
// 36 bits have been collected.
func (a *Assembler) Feed(sym Symbol, at time.Duration) (Frame, bool) {
	if a.state == searching {
		switch sym {
		case SymbolPreamble, SymbolEndOfPayload:
			// A long gap in Searching is the sync ahead of a payload copy,
			// whichever band it fell into.
			a.start()
		}
		return Frame{}, false
	}

	switch sym {
	case SymbolPulse:
		return Frame{}, false
	case SymbolZero, SymbolOne:
		a.bits <<= 1
		if sym == SymbolOne {
			a.bits |= 1
		}
		a.n++
		if a.n == FrameBits {
			f := Frame{Bits: a.bits, At: at}
			a.state = searching
			a.n = 0
			a.bits = 0
			return f, true
		}
		return Frame{}, false
	case SymbolPreamble:
		a.abandon()
		a.start()
		return Frame{}, false
	case SymbolEndOfPayload:
		if a.n == 0 {
			// Two gaps in a row (idle line, then sync): the later one leads
			// the payload.
			a.start()
			return Frame{}, false
		}
		a.abandon()
		a.state = searching
		return Frame{}, false
	default:
		// NOISE: bit positions are lost.
		a.abandon()
		a.state = searching
		return Frame{}, false
	}
}

// InFrame reports whether a frame is being collected.
func (a *Assembler) InFrame() bool {
	return a.state == inFrame
}

// Collected returns the number of bits collected for the current frame.
func (a *Assembler) Collected() int {
	return a.n
}

// Abandoned returns how many partial frames with at least one bit were
// dropped.
func (a *Assembler) Abandoned() uint64 {
	return a.abandoned
}

// Reset abandons any partial frame and returns to Searching.
func (a *Assembler) Reset() {
	a.abandon()
	a.state = searching
}

func (a *Assembler) start() {
	a.state = inFrame
	a.n = 0
	a.bits = 0
}

func (a *Assembler) abandon() {
	if a.state == inFrame && a.n > 0 {
		a.abandoned++
	}
	a.n = 0
	a.bits = 0
}
