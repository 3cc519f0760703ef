// Package state is the provisioning state machine: one struct per phase and a
// pure transition function.
//
// Transition never touches the clock, the radio or the store. The coordinator
// observes the world, turns what it saw into an Event and runs exit and entry
// effects around the phase change.
package state

import (
	"fmt"
	"time"

	"github.com/muurk/wifiprov/internal/connect"
	"github.com/muurk/wifiprov/internal/portal"
)

// Phase names a state without its payload.
type Phase int

const (
	PhaseInit Phase = iota
	PhaseLoadConfig
	PhaseConnecting
	PhaseConnected
	PhaseRetryWait
	PhaseProvisioning
	PhaseProvisioningActive
)

var phaseNames = [...]string{
	PhaseInit:               "Init",
	PhaseLoadConfig:         "LoadConfig",
	PhaseConnecting:         "Connecting",
	PhaseConnected:          "Connected",
	PhaseRetryWait:          "RetryWait",
	PhaseProvisioning:       "Provisioning",
	PhaseProvisioningActive: "ProvisioningActive",
}

// String implements fmt.Stringer.
func (p Phase) String() string {
	if p >= 0 && int(p) < len(phaseNames) {
		return phaseNames[p]
	}
	return fmt.Sprintf("Phase(%d)", int(p))
}

// Phases lists every phase in declaration order.
func Phases() []Phase {
	return []Phase{
		PhaseInit, PhaseLoadConfig, PhaseConnecting, PhaseConnected,
		PhaseRetryWait, PhaseProvisioning, PhaseProvisioningActive,
	}
}

// Provisioning reports whether the portal owns the radio in this phase.
func (p Phase) Provisioning() bool {
	return p == PhaseProvisioning || p == PhaseProvisioningActive
}

// State is one phase and its payload.
type State interface {
	Phase() Phase
}

// Init is the state before Begin.
type Init struct{}

// LoadConfig reads the credential store.
type LoadConfig struct{}

// Connecting holds the in-flight attempt. Attempt is nil until the
// coordinator's entry effect begins one.
type Connecting struct {
	Attempt *connect.Attempt
}

// Connected means the station link is up.
type Connected struct{}

// RetryWait records when the last attempt failed.
type RetryWait struct {
	FailedAt time.Duration
}

// Provisioning is waiting for the portal to start.
type Provisioning struct{}

// ProvisioningActive holds the running portal.
type ProvisioningActive struct {
	Session *portal.Session
}

// Phase implements State.
func (Init) Phase() Phase { return PhaseInit }

// Phase implements State.
func (LoadConfig) Phase() Phase { return PhaseLoadConfig }

// Phase implements State.
func (Connecting) Phase() Phase { return PhaseConnecting }

// Phase implements State.
func (Connected) Phase() Phase { return PhaseConnected }

// Phase implements State.
func (RetryWait) Phase() Phase { return PhaseRetryWait }

// Phase implements State.
func (Provisioning) Phase() Phase { return PhaseProvisioning }

// Phase implements State.
func (ProvisioningActive) Phase() Phase { return PhaseProvisioningActive }
