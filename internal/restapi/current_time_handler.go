package restapi

import (
	"net/http"
	"time"

	"github.com/arquest/waypoint/internal/models"
)

func (api *RestAPI) currentTimeHandler(w http.ResponseWriter, r *http.Request) {
	timeData := models.NewCurrentTimeData(time.Now())
	response := models.NewOKResponse(timeData)

	api.sendResponse(w, r, response)
}

// healthHandler reports liveness and how many sessions are running.
func (api *RestAPI) healthHandler(w http.ResponseWriter, r *http.Request) {
	sessions := 0
	if api.Sessions != nil {
		sessions = api.Sessions.Len()
	}
	api.sendResponse(w, r, models.NewOKResponse(map[string]interface{}{
		"status":   "ok",
		"sessions": sessions,
	}))
}
