//go:build !linux

package gpio

import "errors"

// ErrUnsupported is returned by the character device openers off Linux.
var ErrUnsupported = errors.New("gpio character devices require linux")

// Line is unavailable on this platform.
type Line struct{}

// OpenInput always fails with ErrUnsupported.
func OpenInput(chip string, offset int, pullUp bool) (*Line, error) {
	return nil, ErrUnsupported
}

// OpenOutput always fails with ErrUnsupported.
func OpenOutput(chip string, offset int) (*Line, error) {
	return nil, ErrUnsupported
}

// Read always fails with ErrUnsupported.
func (l *Line) Read() (bool, error) { return false, ErrUnsupported }

// Write always fails with ErrUnsupported.
func (l *Line) Write(level bool) error { return ErrUnsupported }

// Close does nothing.
func (l *Line) Close() error { return nil }
