package webui

import (
	"net/http"

	"github.com/julienschmidt/httprouter"

	"github.com/arquest/waypoint/internal/app"
)

// WebUI serves the operator debug pages.
type WebUI struct {
	*app.Application
}

func (webUI *WebUI) SetWebUIRoutes(router *httprouter.Router) {
	router.Handler(http.MethodGet, "/debug/", webUI.requireAPIKey(webUI.debugIndexHandler))
	router.Handler(http.MethodGet, "/debug/sessions", webUI.requireAPIKey(webUI.debugSessionsHandler))
}

func (webUI *WebUI) requireAPIKey(next http.HandlerFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if webUI.RequestHasInvalidAPIKey(r) {
			http.Error(w, "permission denied", http.StatusUnauthorized)
			return
		}
		next(w, r)
	})
}
