// Package devclient talks to a running wifiprov device over HTTP.
//
// A device exposes two surfaces. While provisioning, the captive portal
// answers on the access point address and supports scanning and saving
// credentials. Once connected, the connected surface answers on the station
// address with /status and /reset.
//
// Basic usage:
//
//	client := devclient.NewClient("192.168.4.1", 80)
//	networks, err := client.Scan(ctx)
//	if err != nil {
//	    fmt.Println(devclient.GetTroubleshootingHint(err))
//	}
//	err = client.Save(ctx, "HomeWiFi", "secret", "")
//
// Failed requests return *DeviceError values classified by type (network,
// timeout, auth, HTTP, parse). Transient errors are retried with
// exponential backoff.
package devclient
