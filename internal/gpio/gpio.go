// Package gpio provides receiver line reading with hardware abstraction.
// The real implementation uses the Linux GPIO character device; a serial
// port modem-status pin can stand in for it on hosts without GPIO.
// The fake implementation allows testing without hardware.
package gpio

import (
	"errors"
	"fmt"
	"strings"
)

// Reader reads the logical level of the receiver data line.
type Reader interface {
	// Read returns true while the receiver reports carrier.
	Read() (bool, error)

	// Close releases line resources.
	Close() error
}

// Line defaults: BCM 27 on the Pi header, first GPIO chip.
const (
	DefaultChip = "gpiochip0"
	DefaultLine = 27
)

// ErrUnsupported is returned by NewRealReader on platforms without the
// GPIO character device.
var ErrUnsupported = errors.New("gpio: not supported on this platform (requires Linux)")

// Bias selects the line's internal resistor.
type Bias int

const (
	BiasAsIs Bias = iota
	BiasDisabled
	BiasPullUp
	BiasPullDown
)

// ParseBias parses a bias name as used on the command line.
func ParseBias(s string) (Bias, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "as-is":
		return BiasAsIs, nil
	case "disabled", "none":
		return BiasDisabled, nil
	case "pull-up", "up":
		return BiasPullUp, nil
	case "pull-down", "down":
		return BiasPullDown, nil
	}
	return BiasAsIs, fmt.Errorf("unknown bias %q: expected as-is, disabled, pull-up or pull-down", s)
}

func (b Bias) String() string {
	switch b {
	case BiasDisabled:
		return "disabled"
	case BiasPullUp:
		return "pull-up"
	case BiasPullDown:
		return "pull-down"
	}
	return "as-is"
}

// Options selects and configures the receiver line.
type Options struct {
	Chip      string
	Line      int
	Bias      Bias
	ActiveLow bool // receiver drives the line low for carrier
}

func (o Options) withDefaults() Options {
	if o.Chip == "" {
		o.Chip = DefaultChip
	}
	return o
}
