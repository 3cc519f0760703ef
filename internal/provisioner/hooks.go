package provisioner

import (
	"net"

	"go.uber.org/zap"

	"github.com/muurk/wifiprov/internal/logging"
)

// Hooks are optional host callbacks. They run on the tick goroutine.
type Hooks struct {
	// Connected fires when the station link comes up.
	Connected func()
	// Failed fires on every retry with the retry count, 1 to MaxRetries.
	Failed func(retryCount int)
	// APModeStarted fires once the provisioning portal is up.
	APModeStarted func(apName string, apAddress net.IP)
	// Reset fires before a reset wipes the store.
	Reset func()
}

func (h Hooks) connected() {
	logging.LogHook("connected")
	if h.Connected != nil {
		h.Connected()
	}
}

func (h Hooks) failed(count int) {
	logging.LogHook("failed", zap.Int("retry_count", count))
	if h.Failed != nil {
		h.Failed(count)
	}
}

func (h Hooks) apModeStarted(name string, addr net.IP) {
	logging.LogHook("ap_mode_started", zap.String("ap_name", name), zap.Stringer("ap_address", addr))
	if h.APModeStarted != nil {
		h.APModeStarted(name, addr)
	}
}

func (h Hooks) reset() {
	logging.LogHook("reset")
	if h.Reset != nil {
		h.Reset()
	}
}
