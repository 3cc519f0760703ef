package state

import (
	"strings"
	"testing"
	"time"

	"github.com/muurk/wifiprov/internal/portal"
)

func TestTransitionTable(t *testing.T) {
	session := &portal.Session{ID: "s1"}

	tests := []struct {
		name string
		from State
		ev   Event
		want State
	}{
		{"boot", Init{}, Booted{}, LoadConfig{}},
		{"stored network", LoadConfig{}, CredentialsLoaded{Present: true}, Connecting{}},
		{"empty store", LoadConfig{}, CredentialsLoaded{Present: false}, Provisioning{}},
		{"connect ok", Connecting{}, ConnectSucceeded{}, Connected{}},
		{"connect failed", Connecting{}, ConnectFailed{At: 7 * time.Second}, RetryWait{FailedAt: 7 * time.Second}},
		{"retry", RetryWait{}, RetryDue{Count: 1, Max: 3, AutoWipe: true}, Connecting{}},
		{"give up and wipe", RetryWait{}, RetryDue{Count: 3, Max: 3, AutoWipe: true}, Provisioning{}},
		{"give up without wipe", RetryWait{}, RetryDue{Count: 3, Max: 3, AutoWipe: false}, Connecting{}},
		{"link lost", Connected{}, LinkLost{}, Connecting{}},
		{"portal up", Provisioning{}, PortalStarted{Session: session}, ProvisioningActive{Session: session}},
		{"portal timeout with creds", ProvisioningActive{Session: session}, PortalTimedOut{HasCredentials: true}, Connecting{}},
		{"portal timeout without creds", ProvisioningActive{Session: session}, PortalTimedOut{HasCredentials: false}, ProvisioningActive{Session: session}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Transition(tt.from, tt.ev); got != tt.want {
				t.Errorf("Transition(%#v, %#v) = %#v, want %#v", tt.from, tt.ev, got, tt.want)
			}
		})
	}
}

func TestIrrelevantEventsIgnored(t *testing.T) {
	events := []Event{
		Booted{}, CredentialsLoaded{Present: true}, ConnectSucceeded{}, ConnectFailed{},
		RetryDue{Count: 1, Max: 2}, LinkLost{}, PortalStarted{}, PortalTimedOut{HasCredentials: true},
	}
	states := []State{Init{}, LoadConfig{}, Connecting{}, Connected{}, RetryWait{}, Provisioning{}, ProvisioningActive{}}

	applies := map[Phase]map[string]bool{
		PhaseInit:               {"state.Booted": true},
		PhaseLoadConfig:         {"state.CredentialsLoaded": true},
		PhaseConnecting:         {"state.ConnectSucceeded": true, "state.ConnectFailed": true},
		PhaseConnected:          {"state.LinkLost": true},
		PhaseRetryWait:          {"state.RetryDue": true},
		PhaseProvisioning:       {"state.PortalStarted": true},
		PhaseProvisioningActive: {"state.PortalTimedOut": true},
	}

	for _, s := range states {
		for _, e := range events {
			if applies[s.Phase()][typeName(e)] {
				continue
			}
			if got := Transition(s, e); got != s {
				t.Errorf("%s on %s moved to %s", s.Phase(), typeName(e), got.Phase())
			}
		}
	}
}

func typeName(e Event) string {
	switch e.(type) {
	case Booted:
		return "state.Booted"
	case CredentialsLoaded:
		return "state.CredentialsLoaded"
	case ConnectSucceeded:
		return "state.ConnectSucceeded"
	case ConnectFailed:
		return "state.ConnectFailed"
	case RetryDue:
		return "state.RetryDue"
	case LinkLost:
		return "state.LinkLost"
	case PortalStarted:
		return "state.PortalStarted"
	case PortalTimedOut:
		return "state.PortalTimedOut"
	}
	return "unknown"
}

func TestNoPathFromEmptyStoreToConnecting(t *testing.T) {
	s := Transition(Transition(Init{}, Booted{}), CredentialsLoaded{Present: false})
	if s.Phase() != PhaseProvisioning {
		t.Fatalf("phase = %s, want Provisioning", s.Phase())
	}
	s = Transition(s, PortalStarted{Session: &portal.Session{}})
	for i := 0; i < 1000; i++ {
		s = Transition(s, PortalTimedOut{HasCredentials: false})
		if s.Phase() == PhaseConnecting {
			t.Fatal("reached Connecting without credentials")
		}
	}
	if s.Phase() != PhaseProvisioningActive {
		t.Errorf("phase = %s, want ProvisioningActive", s.Phase())
	}
}

func TestPhaseString(t *testing.T) {
	for _, p := range Phases() {
		if strings.HasPrefix(p.String(), "Phase(") {
			t.Errorf("phase %d has no name", int(p))
		}
	}
	if PhaseProvisioningActive.String() != "ProvisioningActive" {
		t.Errorf("String() = %q", PhaseProvisioningActive.String())
	}
	if Phase(99).String() != "Phase(99)" {
		t.Errorf("unknown phase = %q", Phase(99).String())
	}
	if !PhaseProvisioning.Provisioning() || PhaseConnected.Provisioning() {
		t.Error("Provisioning() wrong")
	}
}

func TestRetryDueReason(t *testing.T) {
	if got := (RetryDue{Count: 3, Max: 3, AutoWipe: true}).Reason(); got != "retry 3/3, giving up and wiping credentials" {
		t.Errorf("Reason() = %q", got)
	}
}
