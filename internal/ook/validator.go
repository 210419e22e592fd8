package ook

import (
	"errors"
	"time"
)

// ErrReservedBitSet is returned by DecodeFields when the always-zero bit
// of a frame is 1.
var ErrReservedBitSet = errors.New("reserved bit set")

// Nexus-TH field layout, bit offsets in transmission order.
const (
	offID          = 0
	offBattery     = 8
	offReserved    = 9
	offChannel     = 10
	offTemperature = 12
	offUnknown     = 24
	offHumidity    = 28
)

// MaxHumidity is the clamp applied to the humidity field.
const MaxHumidity = 100

// Fields are the decoded contents of a frame.
type Fields struct {
	ID                uint8
	BatteryOK         bool
	Channel           uint8 // zero-based
	TemperatureTenths int16 // tenths of a degree Celsius
	Unknown           uint8
	Humidity          uint8 // percent, clamped to 100
}

// Temperature returns the temperature in degrees Celsius.
func (f Fields) Temperature() float64 {
	return float64(f.TemperatureTenths) / 10
}

// Reading is a confirmed, decoded transmission.
type Reading struct {
	Fields
	Time time.Time
}

// DecodeFields splits a frame into its fields.
func DecodeFields(f Frame) (Fields, error) {
	if f.Field(offReserved, 1) != 0 {
		return Fields{}, ErrReservedBitSet
	}

	temp := int16(f.Field(offTemperature, 12))
	if temp > 2048 {
		temp -= 4096
	}
	humidity := f.Field(offHumidity, 8)
	if humidity > MaxHumidity {
		humidity = MaxHumidity
	}

	return Fields{
		ID:                uint8(f.Field(offID, 8)),
		BatteryOK:         f.Field(offBattery, 1) == 1,
		Channel:           uint8(f.Field(offChannel, 2)),
		TemperatureTenths: temp,
		Unknown:           uint8(f.Field(offUnknown, 4)),
		Humidity:          uint8(humidity),
	}, nil
}

// EncodeFields packs fields into frame bits. Humidity is written as given
// and the reserved bit is always 0.
func EncodeFields(fl Fields) uint64 {
	var bits uint64
	put := func(v uint64, width int) {
		bits = bits<<width | v&(1<<width-1)
	}
	put(uint64(fl.ID), 8)
	if fl.BatteryOK {
		put(1, 1)
	} else {
		put(0, 1)
	}
	put(0, 1)
	put(uint64(fl.Channel), 2)
	put(uint64(uint16(fl.TemperatureTenths)), 12)
	put(uint64(fl.Unknown), 4)
	put(uint64(fl.Humidity), 8)
	return bits
}

// Verdict is the Validator's decision on one candidate frame.
type Verdict uint8

const (
	VerdictNone      Verdict = iota
	VerdictHeld              // first seen, awaiting confirmation
	VerdictReplaced          // differed from the held candidate
	VerdictConfirmed         // matched the held candidate; reading emitted
	VerdictRepeat            // matched an already confirmed candidate
	VerdictRejected          // failed the reserved-bit check
)

var verdictNames = [...]string{
	VerdictNone:      "NONE",
	VerdictHeld:      "HELD",
	VerdictReplaced:  "REPLACED",
	VerdictConfirmed: "CONFIRMED",
	VerdictRepeat:    "REPEAT",
	VerdictRejected:  "REJECTED",
}

func (v Verdict) String() string {
	if int(v) < len(verdictNames) {
		return verdictNames[v]
	}
	return "UNKNOWN"
}

// DefaultSilenceTimeout is how long a held candidate survives without a
// new candidate arriving.
const DefaultSilenceTimeout = 5 * time.Second

// Validator confirms candidate frames by requiring two identical copies in
// a row. Only the bits take part in comparison. A payload is emitted at most
// once until the line has been quiet for the silence timeout, even when other
// candidates are seen in between.
type Validator struct {
	silence time.Duration

	held     uint64
	hasHeld  bool
	last     uint64 // bits of the last emitted reading
	hasLast  bool
	lastSeen time.Duration
}

// NewValidator creates a Validator. A silence of 0 or less never expires
// the held candidate.
func NewValidator(silence time.Duration) *Validator {
	return &Validator{silence: silence}
}

// Check evaluates one candidate and returns the decoded fields when the
// candidate confirms the held one and differs from the last emitted payload.
func (v *Validator) Check(f Frame) (Fields, Verdict) {
	fields, err := DecodeFields(f)
	if err != nil {
		return Fields{}, VerdictRejected
	}

	if v.hasHeld && v.silence > 0 && f.At-v.lastSeen > v.silence {
		v.Clear()
	}
	v.lastSeen = f.At

	switch {
	case !v.hasHeld:
		v.hold(f.Bits)
		return Fields{}, VerdictHeld
	case f.Bits != v.held:
		v.hold(f.Bits)
		return Fields{}, VerdictReplaced
	case v.hasLast && f.Bits == v.last:
		return Fields{}, VerdictRepeat
	}
	v.last = f.Bits
	v.hasLast = true
	return fields, VerdictConfirmed
}

// Clear drops the held candidate and forgets the last emitted payload.
func (v *Validator) Clear() {
	*v = Validator{silence: v.silence}
}

func (v *Validator) hold(bits uint64) {
	v.held = bits
	v.hasHeld = true
}
