package restapi

import (
	"sync"
	"time"

	"github.com/arquest/waypoint/internal/app"
	"github.com/arquest/waypoint/internal/navigation"
)

// liveSession is what the HTTP layer keeps next to a navigation session:
// the feed handlers push samples into and the hub that fans frames out.
type liveSession struct {
	feed *navigation.Feed
	hub  *Hub
}

type RestAPI struct {
	*app.Application
	rateLimiter *RateLimitMiddleware

	mu   sync.RWMutex
	live map[string]*liveSession
}

// NewRestAPI creates a new RestAPI instance with initialized rate limiter
func NewRestAPI(app *app.Application) *RestAPI {
	return &RestAPI{
		Application: app,
		rateLimiter: NewRateLimitMiddleware(app.Config.RateLimit, time.Second),
		live:        make(map[string]*liveSession),
	}
}

func (api *RestAPI) register(id string, ls *liveSession) {
	api.mu.Lock()
	defer api.mu.Unlock()
	api.live[id] = ls
}

func (api *RestAPI) lookup(id string) (*liveSession, bool) {
	api.mu.RLock()
	defer api.mu.RUnlock()
	ls, ok := api.live[id]
	return ls, ok
}

func (api *RestAPI) unregister(id string) *liveSession {
	api.mu.Lock()
	defer api.mu.Unlock()
	ls := api.live[id]
	delete(api.live, id)
	return ls
}

// closeWhenDone rejects further pushes and disconnects viewers once the
// session's event loop exits on its own, e.g. after a fatal routing error.
// The session stays listed until it is deleted so clients can read why it
// stopped.
func (api *RestAPI) closeWhenDone(session *navigation.Session, ls *liveSession) {
	<-session.Done()
	ls.feed.Close()
	ls.hub.Close()
}

// Shutdown stops every session and disconnects websocket clients.
func (api *RestAPI) Shutdown() {
	api.rateLimiter.Stop()
	if api.Sessions != nil {
		api.Sessions.Shutdown()
	}

	api.mu.Lock()
	live := api.live
	api.live = make(map[string]*liveSession)
	api.mu.Unlock()

	for _, ls := range live {
		ls.feed.Close()
		ls.hub.Close()
	}
}
