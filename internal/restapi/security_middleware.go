package restapi

import (
	"net/http"
	"strings"

	"github.com/arquest/waypoint/internal/appconf"
)

const (
	corsAllowMethods  = "GET, POST, DELETE, OPTIONS"
	corsAllowHeaders  = "Content-Type, Authorization, X-API-Key"
	corsExposeHeaders = "Retry-After, X-RateLimit-Limit, X-RateLimit-Remaining"

	apiContentSecurityPolicy   = "default-src 'none'; frame-ancestors 'none';"
	debugContentSecurityPolicy = "default-src 'none'; style-src 'unsafe-inline'; frame-ancestors 'none';"
)

// WithSecurityHeaders wraps the given handler with security headers middleware
func (api *RestAPI) WithSecurityHeaders(handler http.Handler) http.Handler {
	return securityHeaders(api.Config.Env, handler)
}

// securityHeaders adds security and CORS headers to every response.
//
// Browser navigators call the API cross-origin and authenticate with a
// bearer token, a ?token= query parameter or an API key, never cookies,
// so any origin may call it. Session tokens can appear in URLs (the
// websocket handshake cannot carry headers), hence no-referrer and
// no-store on session routes.
func securityHeaders(env appconf.Environment, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Set("X-Content-Type-Options", "nosniff")
		h.Set("X-Frame-Options", "DENY")
		h.Set("Referrer-Policy", "no-referrer")

		if strings.HasPrefix(r.URL.Path, "/debug/") {
			h.Set("Content-Security-Policy", debugContentSecurityPolicy)
		} else {
			h.Set("Content-Security-Policy", apiContentSecurityPolicy)
		}

		// Local development runs over plain HTTP.
		if env == appconf.Production {
			h.Set("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
		}

		if strings.HasPrefix(r.URL.Path, "/api/sessions") {
			h.Set("Cache-Control", "no-store")
		}

		origin := r.Header.Get("Origin")
		if origin != "" {
			h.Add("Vary", "Origin")
			h.Set("Access-Control-Allow-Origin", "*")
			h.Set("Access-Control-Expose-Headers", corsExposeHeaders)
		}

		// Preflight
		if r.Method == http.MethodOptions {
			if origin != "" {
				h.Set("Access-Control-Allow-Methods", corsAllowMethods)
				h.Set("Access-Control-Allow-Headers", corsAllowHeaders)
				h.Set("Access-Control-Max-Age", "86400")
			}
			w.WriteHeader(http.StatusNoContent)
			return
		}

		next.ServeHTTP(w, r)
	})
}
