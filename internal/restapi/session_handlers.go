package restapi

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/julienschmidt/httprouter"

	"github.com/arquest/waypoint/internal/auth"
	"github.com/arquest/waypoint/internal/geo"
	"github.com/arquest/waypoint/internal/logging"
	"github.com/arquest/waypoint/internal/models"
	"github.com/arquest/waypoint/internal/navigation"
)

type destinationInput struct {
	Name string `json:"name"`
	pointInput
}

type createSessionRequest struct {
	Origin      *pointInput       `json:"origin"`
	Destination *destinationInput `json:"destination"`
	headingInput
}

func sessionIDParam(r *http.Request) string {
	return httprouter.ParamsFromContext(r.Context()).ByName("id")
}

func mergeFieldErrors(dst, src map[string][]string) {
	for k, v := range src {
		dst[k] = append(dst[k], v...)
	}
}

// createSessionHandler starts navigating from the posted origin. The
// response carries the session tokens; the route arrives asynchronously.
func (api *RestAPI) createSessionHandler(w http.ResponseWriter, r *http.Request) {
	var req createSessionRequest
	if err := decodeJSON(w, r, &req); err != nil {
		api.badRequestResponse(w, r, err.Error())
		return
	}

	now := time.Now()
	fieldErrors := make(map[string][]string)

	var origin geo.Point
	if req.Origin == nil {
		fieldErrors["origin"] = []string{"origin is required"}
	} else {
		pt, errs := req.Origin.point("origin.")
		mergeFieldErrors(fieldErrors, errs)
		origin = pt
	}

	destination := api.Destination()
	if req.Destination != nil {
		pt, errs := req.Destination.point("destination.")
		mergeFieldErrors(fieldErrors, errs)
		destination = navigation.Destination{Name: req.Destination.Name, Point: pt}
	}

	sample, errs := req.headingInput.sample(now)
	mergeFieldErrors(fieldErrors, errs)

	if len(fieldErrors) > 0 {
		api.validationErrorResponse(w, r, fieldErrors)
		return
	}

	feed := navigation.NewFeed(navigation.DefaultFeedBuffer)
	if err := feed.PushLocation(navigation.LocationFix{Point: origin, CapturedAt: now}); err != nil {
		api.serverErrorResponse(w, r, err)
		return
	}
	if sample.Valid() {
		_ = feed.PushHeading(sample)
	}

	hub := NewHub(logging.Component(api.Logger, "websocket"))
	session := api.Sessions.Create(navigation.SessionParams{
		Destination: destination,
		Locations:   feed,
		Headings:    feed,
		Sink:        hub,
	})
	ls := &liveSession{feed: feed, hub: hub}
	api.register(session.ID(), ls)

	if err := session.Start(r.Context()); err != nil {
		api.discard(session.ID())
		api.serviceUnavailableResponse(w, r, err)
		return
	}
	go api.closeWhenDone(session, ls)

	token, err := api.Tokens.MakeToken(session.ID(), auth.RoleNavigator)
	if err != nil {
		api.discard(session.ID())
		api.serverErrorResponse(w, r, err)
		return
	}
	viewerToken, err := api.Tokens.MakeToken(session.ID(), auth.RoleViewer)
	if err != nil {
		api.discard(session.ID())
		api.serverErrorResponse(w, r, err)
		return
	}

	api.Logger.Info("navigation session created",
		slog.String("session_id", session.ID()),
		slog.String("destination", destination.DisplayName()))

	entry := models.NewSessionEntry(session)
	entry.Token = token
	entry.ViewerToken = viewerToken
	api.sendResponse(w, r, models.NewResponse(http.StatusCreated, map[string]interface{}{"entry": entry}, "Created"))
}

// listSessionsHandler lists live sessions for operators holding an API key.
func (api *RestAPI) listSessionsHandler(w http.ResponseWriter, r *http.Request) {
	sessions := api.Sessions.List()
	entries := make([]models.SessionEntry, 0, len(sessions))
	for _, s := range sessions {
		entries = append(entries, models.NewSessionEntry(s))
	}
	api.sendResponse(w, r, models.NewListResponse(entries, false))
}

func (api *RestAPI) getSessionHandler(w http.ResponseWriter, r *http.Request) {
	id := sessionIDParam(r)
	if _, err := api.Tokens.Authorize(r, id); err != nil {
		api.invalidTokenResponse(w, r, err)
		return
	}

	session, err := api.Sessions.Get(id)
	if err != nil {
		api.notFoundResponse(w, r)
		return
	}
	api.sendResponse(w, r, models.NewEntryResponse(models.NewSessionEntry(session)))
}

// writableSession authorizes a navigator token for the session in the path.
func (api *RestAPI) writableSession(w http.ResponseWriter, r *http.Request) (string, *liveSession, bool) {
	id := sessionIDParam(r)
	claims, err := api.Tokens.Authorize(r, id)
	if err != nil {
		api.invalidTokenResponse(w, r, err)
		return id, nil, false
	}
	if !claims.CanWrite() {
		api.forbiddenResponse(w, r)
		return id, nil, false
	}
	ls, ok := api.lookup(id)
	if !ok {
		api.notFoundResponse(w, r)
		return id, nil, false
	}
	return id, ls, true
}

func (api *RestAPI) acceptedResponse(w http.ResponseWriter, r *http.Request, id string) {
	session, err := api.Sessions.Get(id)
	if err != nil {
		api.notFoundResponse(w, r)
		return
	}
	api.sendResponse(w, r, models.NewResponse(http.StatusAccepted,
		map[string]interface{}{"entry": models.NewSessionEntry(session)}, "Accepted"))
}

func (api *RestAPI) pushError(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, navigation.ErrFeedClosed) {
		api.errorResponse(w, http.StatusConflict, "session stopped")
		return
	}
	api.badRequestResponse(w, r, err.Error())
}

func (api *RestAPI) postLocationHandler(w http.ResponseWriter, r *http.Request) {
	id, ls, ok := api.writableSession(w, r)
	if !ok {
		return
	}

	var in locationInput
	if err := decodeJSON(w, r, &in); err != nil {
		api.badRequestResponse(w, r, err.Error())
		return
	}
	fix, fieldErrors := in.fix(time.Now())
	if len(fieldErrors) > 0 {
		api.validationErrorResponse(w, r, fieldErrors)
		return
	}
	if err := ls.feed.PushLocation(fix); err != nil {
		api.pushError(w, r, err)
		return
	}
	api.acceptedResponse(w, r, id)
}

func (api *RestAPI) postHeadingHandler(w http.ResponseWriter, r *http.Request) {
	id, ls, ok := api.writableSession(w, r)
	if !ok {
		return
	}

	var in headingInput
	if err := decodeJSON(w, r, &in); err != nil {
		api.badRequestResponse(w, r, err.Error())
		return
	}
	sample, fieldErrors := in.sample(time.Now())
	if len(fieldErrors) > 0 {
		api.validationErrorResponse(w, r, fieldErrors)
		return
	}
	if err := ls.feed.PushHeading(sample); err != nil {
		api.pushError(w, r, err)
		return
	}
	api.acceptedResponse(w, r, id)
}

// deleteSessionHandler stops the session. Deleting an already stopped
// session is not an error.
func (api *RestAPI) deleteSessionHandler(w http.ResponseWriter, r *http.Request) {
	id := sessionIDParam(r)
	claims, err := api.Tokens.Authorize(r, id)
	if err != nil {
		api.invalidTokenResponse(w, r, err)
		return
	}
	if !claims.CanWrite() {
		api.forbiddenResponse(w, r)
		return
	}

	session, err := api.Sessions.Get(id)
	if err != nil {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	api.discard(id)
	api.sendResponse(w, r, models.NewEntryResponse(models.NewSessionEntry(session)))
}

// discard stops and forgets a session along with its feed and hub.
func (api *RestAPI) discard(id string) {
	if err := api.Sessions.Remove(id); err != nil && !errors.Is(err, navigation.ErrSessionNotFound) {
		api.Logger.Warn("failed to remove session", slog.String("session_id", id), slog.String("error", err.Error()))
	}
	if ls := api.unregister(id); ls != nil {
		ls.feed.Close()
		ls.hub.Close()
	}
}
