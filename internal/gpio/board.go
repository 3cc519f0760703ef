package gpio

import (
	"errors"
	"fmt"
	"io"

	"github.com/reef-pi/hal"
)

// Backend names accepted by OpenBoard.
const (
	BackendCdev = "cdev"
	BackendNoop = "noop"
)

// Board hands out the pins the supervisor uses and releases them on Close.
type Board interface {
	// Input opens pin as an input. pullUp biases the line high where the
	// backend supports it.
	Input(pin int, pullUp bool) (Input, error)
	Output(pin int) (Output, error)
	Close() error
}

// OpenBoard selects a backend by name. An empty name means BackendCdev.
func OpenBoard(backend, chip string) (Board, error) {
	switch backend {
	case "", BackendCdev:
		return NewCdevBoard(chip), nil
	case BackendNoop:
		return NewNoopBoard()
	default:
		return nil, fmt.Errorf("unknown gpio backend %q (want %s or %s)", backend, BackendCdev, BackendNoop)
	}
}

// CdevBoard opens lines on one GPIO character device.
type CdevBoard struct {
	chip  string
	lines []*Line
}

// NewCdevBoard returns a board for chip. Lines are requested lazily.
func NewCdevBoard(chip string) *CdevBoard {
	return &CdevBoard{chip: chip}
}

// Input requests pin as an input line.
func (b *CdevBoard) Input(pin int, pullUp bool) (Input, error) {
	l, err := OpenInput(b.chip, pin, pullUp)
	if err != nil {
		return nil, err
	}
	b.lines = append(b.lines, l)
	return l, nil
}

// Output requests pin as an output line driven low.
func (b *CdevBoard) Output(pin int) (Output, error) {
	l, err := OpenOutput(b.chip, pin)
	if err != nil {
		return nil, err
	}
	b.lines = append(b.lines, l)
	return l, nil
}

// Close releases every requested line.
func (b *CdevBoard) Close() error {
	var errs []error
	for _, l := range b.lines {
		errs = append(errs, l.Close())
	}
	b.lines = nil
	return errors.Join(errs...)
}

// HALBoard looks pins up by number on a reef-pi hal driver. The driver must
// offer digital input and digital output pins.
type HALBoard struct {
	driver hal.Driver
	in     hal.DigitalInputDriver
	out    hal.DigitalOutputDriver
	pins   []io.Closer
}

// NewHALBoard wraps d. The board owns d and closes it on Close.
func NewHALBoard(d hal.Driver) (*HALBoard, error) {
	in, ok := d.(hal.DigitalInputDriver)
	if !ok {
		return nil, fmt.Errorf("hal driver %s has no digital inputs", d.Metadata().Name)
	}
	out, ok := d.(hal.DigitalOutputDriver)
	if !ok {
		return nil, fmt.Errorf("hal driver %s has no digital outputs", d.Metadata().Name)
	}
	return &HALBoard{driver: d, in: in, out: out}, nil
}

// NewNoopBoard is a HALBoard over the hal noop driver. Its inputs always read
// high and writes are discarded, which suits hosts without pins.
func NewNoopBoard() (*HALBoard, error) {
	d, err := hal.NoopFactory().NewDriver(map[string]interface{}{"Sample Parameter": "wifiprov"}, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create hal noop driver: %w", err)
	}
	return NewHALBoard(d)
}

// Input ignores pullUp; biasing is the driver's concern.
func (b *HALBoard) Input(pin int, pullUp bool) (Input, error) {
	p, err := b.in.DigitalInputPin(pin)
	if err != nil {
		return nil, fmt.Errorf("hal input pin %d: %w", pin, err)
	}
	b.pins = append(b.pins, p)
	return p, nil
}

// Output looks pin up on the driver.
func (b *HALBoard) Output(pin int) (Output, error) {
	p, err := b.out.DigitalOutputPin(pin)
	if err != nil {
		return nil, fmt.Errorf("hal output pin %d: %w", pin, err)
	}
	b.pins = append(b.pins, p)
	return p, nil
}

// Close closes the opened pins and the driver.
func (b *HALBoard) Close() error {
	var errs []error
	for _, p := range b.pins {
		errs = append(errs, p.Close())
	}
	b.pins = nil
	errs = append(errs, b.driver.Close())
	return errors.Join(errs...)
}
