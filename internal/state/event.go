package state

import (
	"fmt"
	"time"

	"github.com/muurk/wifiprov/internal/portal"
)

// Event is something the coordinator observed during a tick.
type Event interface {
	// Reason describes the event for transition logs.
	Reason() string
}

// Booted is raised once by Begin.
type Booted struct{}

// CredentialsLoaded reports the result of reading the store.
type CredentialsLoaded struct {
	Present bool
}

// ConnectSucceeded means the station link came up.
type ConnectSucceeded struct{}

// ConnectFailed means the attempt hit its ceiling or was refused.
type ConnectFailed struct {
	At time.Duration
}

// RetryDue means the retry delay elapsed. Count is the retry number just
// consumed and Max the configured limit.
type RetryDue struct {
	Count    int
	Max      int
	AutoWipe bool
}

// Exhausted reports whether the give-up policy applies.
func (e RetryDue) Exhausted() bool {
	return e.Count >= e.Max
}

// LinkLost means a connected station dropped.
type LinkLost struct{}

// PortalStarted carries the session that just opened.
type PortalStarted struct {
	Session *portal.Session
}

// PortalTimedOut means the access point timeout elapsed.
type PortalTimedOut struct {
	HasCredentials bool
}

// Reason implements Event.
func (Booted) Reason() string { return "boot" }

// Reason implements Event.
func (e CredentialsLoaded) Reason() string {
	if e.Present {
		return "stored credentials found"
	}
	return "no stored credentials"
}

// Reason implements Event.
func (ConnectSucceeded) Reason() string { return "connected" }

// Reason implements Event.
func (ConnectFailed) Reason() string { return "connect failed" }

// Reason implements Event.
func (e RetryDue) Reason() string {
	switch {
	case e.Exhausted() && e.AutoWipe:
		return fmt.Sprintf("retry %d/%d, giving up and wiping credentials", e.Count, e.Max)
	case e.Exhausted():
		return fmt.Sprintf("retry %d/%d, counter reset", e.Count, e.Max)
	default:
		return fmt.Sprintf("retry %d/%d", e.Count, e.Max)
	}
}

// Reason implements Event.
func (LinkLost) Reason() string { return "link lost" }

// Reason implements Event.
func (PortalStarted) Reason() string { return "portal started" }

// Reason implements Event.
func (e PortalTimedOut) Reason() string {
	if e.HasCredentials {
		return "portal timed out, retrying stored network"
	}
	return "portal timed out without stored credentials"
}
