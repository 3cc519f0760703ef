// Package portal serves the device's HTTP surfaces.
//
// A Session is one run of the provisioning portal. Start disconnects the
// station, opens an access point named after the configured base and the last
// three MAC bytes, answers every DNS query with the access point address and
// serves the configuration page:
//
//	GET  /       configuration page
//	GET  /scan   nearby networks as JSON, strongest first
//	POST /save   store credentials, restart two seconds later
//	GET  /save   "OK"
//	POST /reset  reset trigger
//
// Anything else is redirected to "/" so captive-portal connectivity checks land on the page.
//
// A Surface is the listener kept while the station link is up: /reset, /status,
// custom routes and, when enabled, /metrics and /events.
//
// # Request servicing
//
// Handlers never run on listener goroutines. Each request is queued on a Pump
// and the listener goroutine blocks until the supervisor tick calls Service,
// which runs queued handlers on the tick goroutine. A GET /scan therefore blocks
// the tick for the duration of the scan. /metrics and /events bypass the pump.
package portal
