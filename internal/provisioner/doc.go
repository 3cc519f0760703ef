// Package provisioner is the supervisor a host application drives.
//
// A Coordinator owns the state machine, the reset arbiter, the status LED and
// whichever HTTP surface is up. The host calls Begin once and Tick in a loop:
//
//	c, err := provisioner.New(cfg, provisioner.Options{
//	    Radio:     r,
//	    Store:     ns,
//	    Clock:     clock.NewMonotonic(),
//	    Restarter: system.NewExitRestarter(cancel),
//	    Hooks: provisioner.Hooks{
//	        Connected: func() { log.Println("online") },
//	    },
//	})
//	if err != nil {
//	    return err
//	}
//	c.Begin()
//	for range time.Tick(10 * time.Millisecond) {
//	    c.Tick()
//	}
//
// Each Tick polls the reset arbiter, updates the LED, runs queued HTTP
// requests and advances the state machine by at most one transition. After a
// restart was requested Tick does nothing.
//
// A Coordinator is not safe for concurrent use. Everything, HTTP handlers
// included, runs on the goroutine calling Tick.
package provisioner
