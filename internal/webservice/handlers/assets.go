package handlers

import (
	"io"
	"net/http"

	"github.com/lvlagency/gforms-gtm/internal/confirmation"
	"github.com/lvlagency/gforms-gtm/internal/plugin"
)

// NewCSSVars returns the handler printing the presentation settings as CSS custom properties.
func NewCSSVars(p *plugin.Plugin) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = io.WriteString(w, p.Adapter().CSSVars())
	})
}

// StylesheetHandler describes the stylesheet to enqueue.
func StylesheetHandler(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, confirmation.Stylesheet())
}

// NewHooks returns the handler listing the served host extension points.
func NewHooks(p *plugin.Plugin) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, p.Hooks())
	})
}
