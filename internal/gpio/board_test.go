package gpio

import (
	"errors"
	"testing"

	"github.com/reef-pi/hal"
)

type fakePin struct {
	number int
	level  bool
	closed bool
}

func (p *fakePin) Name() string        { return "fake" }
func (p *fakePin) Number() int         { return p.number }
func (p *fakePin) Read() (bool, error) { return p.level, nil }
func (p *fakePin) LastState() bool     { return p.level }

func (p *fakePin) Close() error {
	p.closed = true
	return nil
}

func (p *fakePin) Write(level bool) error {
	p.level = level
	return nil
}

type fakeDriver struct {
	pins   map[int]*fakePin
	closed bool
}

func newFakeDriver(numbers ...int) *fakeDriver {
	d := &fakeDriver{pins: make(map[int]*fakePin)}
	for _, n := range numbers {
		d.pins[n] = &fakePin{number: n}
	}
	return d
}

func (d *fakeDriver) Metadata() hal.Metadata                 { return hal.Metadata{Name: "fake"} }
func (d *fakeDriver) Pins(hal.Capability) ([]hal.Pin, error) { return nil, nil }

func (d *fakeDriver) Close() error {
	d.closed = true
	return nil
}

func (d *fakeDriver) pin(n int) (*fakePin, error) {
	p, ok := d.pins[n]
	if !ok {
		return nil, errors.New("no such pin")
	}
	return p, nil
}

func (d *fakeDriver) DigitalInputPins() []hal.DigitalInputPin   { return nil }
func (d *fakeDriver) DigitalOutputPins() []hal.DigitalOutputPin { return nil }

func (d *fakeDriver) DigitalInputPin(n int) (hal.DigitalInputPin, error) {
	return d.pin(n)
}

func (d *fakeDriver) DigitalOutputPin(n int) (hal.DigitalOutputPin, error) {
	return d.pin(n)
}

func TestHALBoardLooksUpPinsByNumber(t *testing.T) {
	d := newFakeDriver(4, 5)
	board, err := NewHALBoard(d)
	if err != nil {
		t.Fatalf("NewHALBoard: %v", err)
	}

	d.pins[4].level = true
	in, err := board.Input(4, true)
	if err != nil {
		t.Fatalf("Input(4): %v", err)
	}
	if v, _ := in.Read(); !v {
		t.Error("Input(4).Read() = false, want the pin level true")
	}

	out, err := board.Output(5)
	if err != nil {
		t.Fatalf("Output(5): %v", err)
	}
	if err := out.Write(true); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if !d.pins[5].level {
		t.Error("Write(true) did not reach pin 5")
	}

	if _, err := board.Input(9, false); err == nil {
		t.Error("Input(9) should fail for a pin the driver does not have")
	}

	if err := board.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if !d.pins[4].closed || !d.pins[5].closed || !d.closed {
		t.Error("Close should release every opened pin and the driver")
	}
}

func TestHALBoardRequiresDigitalPins(t *testing.T) {
	var d hal.Driver = struct {
		hal.Driver
	}{newFakeDriver()}
	if _, err := NewHALBoard(d); err == nil {
		t.Error("expected an error for a driver without digital pins")
	}
}

func TestNoopBoard(t *testing.T) {
	board, err := NewNoopBoard()
	if err != nil {
		t.Fatalf("NewNoopBoard: %v", err)
	}
	defer board.Close()

	in, err := board.Input(17, true)
	if err != nil {
		t.Fatalf("Input: %v", err)
	}
	if v, err := in.Read(); err != nil || !v {
		t.Errorf("Read() = %v, %v; noop inputs read high", v, err)
	}
	out, err := board.Output(18)
	if err != nil {
		t.Fatalf("Output: %v", err)
	}
	if err := out.Write(true); err != nil {
		t.Errorf("Write: %v", err)
	}
}

func TestOpenBoard(t *testing.T) {
	tests := []struct {
		backend string
		wantErr bool
	}{
		{"", false},
		{BackendCdev, false},
		{BackendNoop, false},
		{"spi", true},
	}
	for _, tt := range tests {
		t.Run(tt.backend, func(t *testing.T) {
			board, err := OpenBoard(tt.backend, "gpiochip0")
			if (err != nil) != tt.wantErr {
				t.Fatalf("OpenBoard(%q) error = %v, wantErr %v", tt.backend, err, tt.wantErr)
			}
			if board != nil {
				_ = board.Close()
			}
		})
	}
}
