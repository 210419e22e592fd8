package gpio

import (
	"errors"
	"fmt"
	"strings"

	"go.bug.st/serial"
)

// ModemPin is a serial port status input that can carry the receiver line.
type ModemPin int

const (
	PinDCD ModemPin = iota
	PinCTS
	PinDSR
	PinRI
)

// ParseModemPin parses a modem status pin name.
func ParseModemPin(s string) (ModemPin, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "", "DCD", "CD":
		return PinDCD, nil
	case "CTS":
		return PinCTS, nil
	case "DSR":
		return PinDSR, nil
	case "RI":
		return PinRI, nil
	}
	return PinDCD, fmt.Errorf("unknown modem pin %q: expected DCD, CTS, DSR or RI", s)
}

func (p ModemPin) String() string {
	switch p {
	case PinCTS:
		return "CTS"
	case PinDSR:
		return "DSR"
	case PinRI:
		return "RI"
	}
	return "DCD"
}

func (p ModemPin) bit(b *serial.ModemStatusBits) bool {
	switch p {
	case PinCTS:
		return b.CTS
	case PinDSR:
		return b.DSR
	case PinRI:
		return b.RI
	}
	return b.DCD
}

// modemPort is the part of serial.Port used by SerialReader.
type modemPort interface {
	GetModemStatusBits() (*serial.ModemStatusBits, error)
	SetDTR(dtr bool) error
	Close() error
}

// SerialOptions selects the serial port and status pin.
type SerialOptions struct {
	Port      string
	Pin       ModemPin
	ActiveLow bool
	PowerDTR  bool // raise DTR to supply the receiver
}

// SerialReader reads the receiver line from a serial port status pin,
// for USB-serial adapters wired to the receiver's data output.
type SerialReader struct {
	port modemPort
	opts SerialOptions
}

// NewSerialReader opens the serial port.
func NewSerialReader(opts SerialOptions) (*SerialReader, error) {
	port, err := serial.Open(opts.Port, &serial.Mode{BaudRate: 9600})
	if err != nil {
		return nil, fmt.Errorf("open serial port %s: %w", opts.Port, err)
	}
	r, err := newSerialReader(port, opts)
	if err != nil {
		port.Close()
		return nil, err
	}
	return r, nil
}

func newSerialReader(port modemPort, opts SerialOptions) (*SerialReader, error) {
	if err := port.SetDTR(opts.PowerDTR); err != nil {
		return nil, fmt.Errorf("set DTR: %w", err)
	}
	return &SerialReader{port: port, opts: opts}, nil
}

// Read returns the logical value of the configured status pin.
func (r *SerialReader) Read() (bool, error) {
	bits, err := r.port.GetModemStatusBits()
	if err != nil {
		return false, fmt.Errorf("read %s: %w", r.opts.Pin, err)
	}
	return r.opts.Pin.bit(bits) != r.opts.ActiveLow, nil
}

// Close drops DTR and closes the port.
func (r *SerialReader) Close() error {
	var errs []error
	if r.opts.PowerDTR {
		if err := r.port.SetDTR(false); err != nil {
			errs = append(errs, fmt.Errorf("clear DTR: %w", err))
		}
	}
	if err := r.port.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close port: %w", err))
	}
	return errors.Join(errs...)
}
