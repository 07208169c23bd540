package restapi

import (
	"encoding/json"
	"net/http"

	"github.com/arquest/waypoint/internal/models"
)

func (api *RestAPI) errorResponse(w http.ResponseWriter, code int, text string) {
	response := models.NewResponse(code, nil, text)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(response); err != nil {
		api.Logger.Error("failed to encode error response", "error", err, "code", code)
	}
}

// invalidAPIKeyResponse sends a 401 Unauthorized response for a missing or unknown API key.
func (api *RestAPI) invalidAPIKeyResponse(w http.ResponseWriter, r *http.Request) {
	api.errorResponse(w, http.StatusUnauthorized, "permission denied")
}

// invalidTokenResponse sends a 401 for a missing, expired or foreign session token.
func (api *RestAPI) invalidTokenResponse(w http.ResponseWriter, r *http.Request, err error) {
	api.Logger.Debug("rejected session token", "error", err, "path", r.URL.Path)
	api.errorResponse(w, http.StatusUnauthorized, "invalid session token")
}

func (api *RestAPI) forbiddenResponse(w http.ResponseWriter, r *http.Request) {
	api.errorResponse(w, http.StatusForbidden, "token may not update this session")
}

func (api *RestAPI) notFoundResponse(w http.ResponseWriter, r *http.Request) {
	api.errorResponse(w, http.StatusNotFound, "resource not found")
}

func (api *RestAPI) badRequestResponse(w http.ResponseWriter, r *http.Request, text string) {
	api.errorResponse(w, http.StatusBadRequest, text)
}

func (api *RestAPI) serviceUnavailableResponse(w http.ResponseWriter, r *http.Request, err error) {
	api.Logger.Warn("request could not be served", "error", err, "path", r.URL.Path)
	api.errorResponse(w, http.StatusServiceUnavailable, err.Error())
}

func (api *RestAPI) serverErrorResponse(w http.ResponseWriter, r *http.Request, err error) {
	api.Logger.Error("internal server error", "error", err, "path", r.URL.Path)
	api.errorResponse(w, http.StatusInternalServerError, "internal server error")
}

// validationErrorResponse sends a 400 Bad Request response with field-specific validation errors
func (api *RestAPI) validationErrorResponse(w http.ResponseWriter, r *http.Request, fieldErrors map[string][]string) {
	response := struct {
		FieldErrors map[string][]string `json:"fieldErrors"`
	}{
		FieldErrors: fieldErrors,
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusBadRequest)
	err := json.NewEncoder(w).Encode(response)
	if err != nil {
		api.Logger.Error("failed to encode validation error response", "error", err)
	}
}
