// Package site serves the embedded stylesheet and scripts of the dashboard.
package site

import (
	"net/http"
)

// ViewportCookie is the cookie the viewport script keeps set to the current
// viewport width in CSS pixels.
const ViewportCookie = "scout_vw"

// Register attaches the static asset routes to mux under /static/.
func Register(mux *http.ServeMux) {
	if mux == nil {
		panic("mux is nil")
	}
	mux.Handle("GET /static/", http.StripPrefix("/static/", Handler()))
}

// Handler serves the embedded assets with a short cache lifetime.
func Handler() http.Handler {
	files := http.FileServer(FS())
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Cache-Control", "public, max-age=300")
		files.ServeHTTP(w, r)
	})
}
