package restapi

import (
	"net/http"

	"github.com/julienschmidt/httprouter"
)

type handlerFunc func(w http.ResponseWriter, r *http.Request)

func validateAPIKey(api *RestAPI, finalHandler handlerFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if api.RequestHasInvalidAPIKey(r) {
			api.invalidAPIKeyResponse(w, r)
			return
		}
		finalHandler(w, r)
	})
}

// SetRoutes registers the API on router. Session routes past creation are
// authorized by the session token rather than an API key.
func (api *RestAPI) SetRoutes(router *httprouter.Router) {
	router.Handler(http.MethodGet, "/healthz", http.HandlerFunc(api.healthHandler))
	router.Handler(http.MethodGet, "/api/current-time.json", validateAPIKey(api, api.currentTimeHandler))

	router.Handler(http.MethodPost, "/api/sessions", validateAPIKey(api, api.createSessionHandler))
	router.Handler(http.MethodGet, "/api/sessions", validateAPIKey(api, api.listSessionsHandler))
	router.HandlerFunc(http.MethodGet, "/api/sessions/:id", api.getSessionHandler)
	router.HandlerFunc(http.MethodDelete, "/api/sessions/:id", api.deleteSessionHandler)
	router.HandlerFunc(http.MethodPost, "/api/sessions/:id/location", api.postLocationHandler)
	router.HandlerFunc(http.MethodPost, "/api/sessions/:id/heading", api.postHeadingHandler)
	router.HandlerFunc(http.MethodGet, "/api/sessions/:id/ws", api.sessionSocketHandler)

	router.NotFound = http.HandlerFunc(api.notFoundResponse)
	router.HandleOPTIONS = false
}

// WithMiddleware wraps h with rate limiting, compression, security headers
// and request logging, outermost last.
func (api *RestAPI) WithMiddleware(h http.Handler) http.Handler {
	h = api.rateLimiter.Handler(h)
	h = CompressionMiddleware(h)
	h = api.WithSecurityHeaders(h)
	return NewRequestLoggingMiddleware(api.Logger)(h)
}

// Handler returns the fully wrapped API.
func (api *RestAPI) Handler() http.Handler {
	router := httprouter.New()
	api.SetRoutes(router)
	return api.WithMiddleware(router)
}
