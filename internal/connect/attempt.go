package connect

import (
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/muurk/wifiprov/internal/credstore"
	"github.com/muurk/wifiprov/internal/fault"
	"github.com/muurk/wifiprov/internal/logging"
	"github.com/muurk/wifiprov/internal/radio"
)

const (
	// PollInterval is the spacing between link status checks.
	PollInterval = 100 * time.Millisecond
	// Ceiling bounds one attempt, independent of the retry delay.
	Ceiling = 10 * time.Second
)

// Result is the outcome of polling an attempt.
type Result int

const (
	Pending Result = iota
	Succeeded
	Failed
)

// String implements fmt.Stringer.
func (r Result) String() string {
	switch r {
	case Pending:
		return "pending"
	case Succeeded:
		return "succeeded"
	case Failed:
		return "failed"
	default:
		return fmt.Sprintf("Result(%d)", int(r))
	}
}

// Attempt is one bounded association with the stored credentials.
// Begin issues the association; each tick calls Poll once.
type Attempt struct {
	radio radio.Radio
	creds credstore.Credentials

	started  time.Duration
	lastPoll time.Duration
	polls    int
	result   Result
	err      error
}

// NewAttempt prepares an attempt; nothing happens until Begin.
func NewAttempt(r radio.Radio, creds credstore.Credentials) *Attempt {
	return &Attempt{radio: r, creds: creds}
}

// Begin starts association. A radio error fails the attempt immediately and
// the next Poll reports Failed.
func (a *Attempt) Begin(now time.Duration) {
	a.started = now
	a.lastPoll = now - PollInterval
	a.result = Pending

	logging.Info("Connecting", zap.String("ssid", a.creds.SSID))
	if err := a.radio.Connect(a.creds.SSID, a.creds.Password); err != nil {
		a.fail(fault.NewConnectFailed("association request rejected", err))
	}
}

// Poll checks link status at most every PollInterval and never blocks.
func (a *Attempt) Poll(now time.Duration) Result {
	if a.result != Pending {
		return a.result
	}
	if now-a.lastPoll < PollInterval {
		return Pending
	}
	a.lastPoll = now
	a.polls++

	if a.radio.Connected() {
		a.result = Succeeded
		logging.Info("Connected",
			zap.String("ssid", a.creds.SSID),
			zap.Duration("took", now-a.started),
			zap.Int("polls", a.polls),
		)
		return a.result
	}

	if now-a.started >= Ceiling {
		_ = a.radio.Disconnect()
		a.fail(fault.NewConnectFailed(fmt.Sprintf("no link after %s", Ceiling), nil))
	}
	return a.result
}

func (a *Attempt) fail(err error) {
	a.result = Failed
	a.err = err
	logging.Warn("Connection attempt failed", zap.String("ssid", a.creds.SSID), zap.Error(err))
}

// Err returns the failure reason once Poll reported Failed.
func (a *Attempt) Err() error { return a.err }

// SSID returns the network being joined.
func (a *Attempt) SSID() string { return a.creds.SSID }

// Polls returns how many link checks were made.
func (a *Attempt) Polls() int { return a.polls }
