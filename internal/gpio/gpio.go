// Package gpio defines the digital pin primitives the supervisor reads and
// drives: the reset button input and the status LED output.
//
// A Board hands the pins out. CdevBoard requests lines from a GPIO character
// device on Linux; HALBoard looks them up on a github.com/reef-pi/hal driver.
package gpio

import "sync"

// Input is a digital input. Read returns the raw electrical level.
type Input interface {
	Read() (bool, error)
}

// Output is a digital output. Write sets the raw electrical level.
type Output interface {
	Write(level bool) error
}

// SimInput is an input whose level is set programmatically.
type SimInput struct {
	mu    sync.Mutex
	level bool
}

// NewSimInput returns an input reading level.
func NewSimInput(level bool) *SimInput {
	return &SimInput{level: level}
}

// Read returns the level last passed to Set.
func (s *SimInput) Read() (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.level, nil
}

// Set changes the level returned by Read.
func (s *SimInput) Set(level bool) {
	s.mu.Lock()
	s.level = level
	s.mu.Unlock()
}

// SimOutput records writes.
type SimOutput struct {
	mu     sync.Mutex
	level  bool
	writes int
}

// NewSimOutput returns an output that starts low.
func NewSimOutput() *SimOutput {
	return &SimOutput{}
}

// Write records level.
func (s *SimOutput) Write(level bool) error {
	s.mu.Lock()
	s.level = level
	s.writes++
	s.mu.Unlock()
	return nil
}

// Level returns the last written level.
func (s *SimOutput) Level() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.level
}

// Writes returns how many times Write was called.
func (s *SimOutput) Writes() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.writes
}
