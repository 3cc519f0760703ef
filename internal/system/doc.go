// Package system connects the supervisor to the host: how the device restarts
// and how the service manager learns it is alive.
//
// ExitRestarter ends the daemon with ExitCodeRestart and leaves the restart to
// the service manager (Restart=on-failure). Login1Restarter asks logind to
// reboot the machine. Notifier speaks the sd_notify protocol.
package system
