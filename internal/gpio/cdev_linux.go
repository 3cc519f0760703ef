//go:build linux

package gpio

import (
	"fmt"

	"github.com/warthog618/go-gpiocdev"
)

const consumer = "wifiprov"

// Line is a GPIO character device line.
type Line struct {
	line *gpiocdev.Line
}

// OpenInput requests offset on chip as an input. pullUp biases the line high,
// which suits an active-low button wired to ground.
func OpenInput(chip string, offset int, pullUp bool) (*Line, error) {
	opts := []gpiocdev.LineReqOption{gpiocdev.AsInput, gpiocdev.WithConsumer(consumer)}
	if pullUp {
		opts = append(opts, gpiocdev.WithPullUp)
	}
	l, err := gpiocdev.RequestLine(chip, offset, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to request input line %s:%d: %w", chip, offset, err)
	}
	return &Line{line: l}, nil
}

// OpenOutput requests offset on chip as an output driven low.
func OpenOutput(chip string, offset int) (*Line, error) {
	l, err := gpiocdev.RequestLine(chip, offset, gpiocdev.AsOutput(0), gpiocdev.WithConsumer(consumer))
	if err != nil {
		return nil, fmt.Errorf("failed to request output line %s:%d: %w", chip, offset, err)
	}
	return &Line{line: l}, nil
}

// Read returns the line level.
func (l *Line) Read() (bool, error) {
	v, err := l.line.Value()
	if err != nil {
		return false, err
	}
	return v != 0, nil
}

// Write sets the line level.
func (l *Line) Write(level bool) error {
	v := 0
	if level {
		v = 1
	}
	return l.line.SetValue(v)
}

// Close releases the line.
func (l *Line) Close() error {
	return l.line.Close()
}
