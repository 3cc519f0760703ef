// Package connect is the connection supervisor: a non-blocking connect attempt
// and the fixed-delay retry policy.
//
// An Attempt replaces a blocking "connect and wait" call. Begin issues the
// association request, then every tick calls Poll, which checks the link at
// most every 100 ms and fails the attempt after a 10 s ceiling:
//
//	a := connect.NewAttempt(r, creds)
//	a.Begin(clk.Now())
//	// each tick:
//	switch a.Poll(clk.Now()) {
//	case connect.Succeeded:
//	case connect.Failed:
//	}
//
// RetryPolicy applies the same delay before every retry; there is no backoff.
package connect
