// Package credstore is the credential and secret persistence contract of the
// supervisor, layered over an nvs.Namespace.
//
// # Keys
//
// Everything lives in the "wifiprov" namespace:
//   - ssid, password: the stored network (present iff ssid is non-empty)
//   - reset_pwd: lowercase hex SHA-256 of the authenticated reset secret
//   - boot_count, boot_time: the double-reboot marker (uint32)
//
// # Failure handling
//
// Load never fails: an unavailable store is logged and reported as "no
// credentials", which routes the supervisor into provisioning. Writes return
// *fault.Error values of kind StoreUnavailable.
//
// VerifyResetSecret fails closed. With no stored digest every candidate is
// rejected as invalid.
package credstore
