// Package reset funnels every way of wiping the device into one action.
//
// Triggers:
//   - a hardware button held for the configured duration, fired once per press
//   - POST /reset, optionally gated by the stored reset secret
//   - two boots inside the double-reboot window
//   - the host application calling Reset
//
// PerformReset fires the reset hook, clears the whole store namespace, waits
// 500 ms and restarts the device. Once a restart was requested the Arbiter
// ignores everything else.
//
// HTTP triggers never reset inside the response. They schedule the action and
// the next Poll after the delay carries it out.
package reset
