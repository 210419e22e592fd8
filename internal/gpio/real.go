//go:build linux

package gpio

import (
	"fmt"

	"github.com/warthog618/go-gpiocdev"
)

// RealReader reads the receiver line using the Linux GPIO character device.
type RealReader struct {
	chip *gpiocdev.Chip
	line *gpiocdev.Line
	opts Options
}

// NewRealReader requests the configured line as an input.
func NewRealReader(opts Options) (*RealReader, error) {
	opts = opts.withDefaults()

	chip, err := gpiocdev.NewChip(opts.Chip, gpiocdev.WithConsumer("nexus-sensor"))
	if err != nil {
		return nil, fmt.Errorf("open gpio chip %s: %w", opts.Chip, err)
	}

	line, err := chip.RequestLine(opts.Line, lineOptions(opts)...)
	if err != nil {
		chip.Close()
		return nil, fmt.Errorf("request line %d: %w", opts.Line, err)
	}

	return &RealReader{
		chip: chip,
		line: line,
		opts: opts,
	}, nil
}

func lineOptions(opts Options) []gpiocdev.LineReqOption {
	lo := []gpiocdev.LineReqOption{gpiocdev.AsInput}
	switch opts.Bias {
	case BiasDisabled:
		lo = append(lo, gpiocdev.WithBiasDisabled)
	case BiasPullUp:
		lo = append(lo, gpiocdev.WithPullUp)
	case BiasPullDown:
		lo = append(lo, gpiocdev.WithPullDown)
	}
	if opts.ActiveLow {
		lo = append(lo, gpiocdev.AsActiveLow)
	}
	return lo
}

// Read returns the logical line value. Active-low inversion is done by the
// kernel.
func (r *RealReader) Read() (bool, error) {
	v, err := r.line.Value()
	if err != nil {
		return false, fmt.Errorf("read line %d: %w", r.opts.Line, err)
	}
	return v == 1, nil
}

// Close releases the line and chip.
// The line is returned to a plain input first so the pin is left in a
// harmless state for whatever requests it next.
func (r *RealReader) Close() error {
	var errs []error

	if r.line != nil {
		if err := r.line.Reconfigure(gpiocdev.AsInput); err != nil {
			errs = append(errs, fmt.Errorf("reconfigure line: %w", err))
		}
		if err := r.line.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close line: %w", err))
		}
	}
	if r.chip != nil {
		if err := r.chip.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close chip: %w", err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("close errors: %v", errs)
	}
	return nil
}
