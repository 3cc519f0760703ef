// Package fault defines the error taxonomy shared by every supervisor component.
//
// No failure is fatal to the device. Each *Error carries a Kind that decides
// how it surfaces: store failures are treated as "no credentials", connect
// failures drive the retry policy, and the rest become HTTP responses
// (validation 400, auth 401, disabled 403).
//
//	if err := store.Save(ssid, pass); err != nil {
//	    http.Error(w, fault.Message(err), fault.StatusCode(err))
//	}
package fault
