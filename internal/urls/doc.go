// Package urls holds the HTTP paths served by a provisioning device and the
// address its portal answers on. The portal registers these routes and the
// devclient package requests them, so both sides change together.
//
// Usage:
//
//	import "github.com/muurk/wifiprov/internal/urls"
//
//	r.HandleFunc(urls.Save, handleSave).Methods(http.MethodPost)
package urls
