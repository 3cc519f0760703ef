// Package discovery advertises provisioned devices over mDNS and finds them
// from the command line.
//
// While the station link is up the supervisor registers an "_http._tcp"
// service under the configured mDNS name, so the device answers as
// "<name>.local". The TXT record carries "provisioner=wifiprov", which is how
// the Scanner tells wifiprov devices apart from every other HTTP service on
// the segment.
//
// # Usage Example
//
//	scanner := discovery.NewScanner()
//	devices, err := scanner.Scan(ctx)
//	if err != nil {
//	    return err
//	}
//	for _, d := range devices {
//	    fmt.Println(d)
//	}
//
// # Network Requirements
//
// - Requires multicast support on the network interface
// - Devices must be on the same local network segment
// - Firewall must allow mDNS (UDP port 5353)
//
// # Thread Safety
//
// Scanners are safe for concurrent use. An Advertiser registers at most one
// service at a time.
package discovery
