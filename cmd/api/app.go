package main

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/julienschmidt/httprouter"

	"github.com/arquest/waypoint/internal/app"
	"github.com/arquest/waypoint/internal/appconf"
	"github.com/arquest/waypoint/internal/auth"
	"github.com/arquest/waypoint/internal/logging"
	"github.com/arquest/waypoint/internal/navigation"
	"github.com/arquest/waypoint/internal/restapi"
	"github.com/arquest/waypoint/internal/webui"
)

// BuildApplication wires the routing chain, session manager and token
// issuer described by cfg.
func BuildApplication(cfg appconf.Config, logger *slog.Logger) (*app.Application, error) {
	router, err := app.NewRouter(cfg.Routing, logging.Component(logger, "routing"))
	if err != nil {
		return nil, fmt.Errorf("building router: %w", err)
	}

	secret := cfg.JWTSecret
	if secret == "" {
		if cfg.Env == appconf.Production {
			return nil, errors.New("jwt_secret is required in production")
		}
		secret, err = randomSecret()
		if err != nil {
			return nil, err
		}
		logger.Warn("no jwt_secret configured, using a random one; session tokens will not survive a restart")
	}

	tokens, err := auth.NewIssuer(secret, cfg.TokenTTL)
	if err != nil {
		return nil, err
	}

	return &app.Application{
		Config:   cfg,
		Logger:   logger,
		Sessions: navigation.NewManager(cfg.Navigation, router, logging.Component(logger, "navigation")),
		Router:   router,
		Tokens:   tokens,
	}, nil
}

func randomSecret() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generating jwt secret: %w", err)
	}
	return hex.EncodeToString(b), nil
}

// BuildHandler registers the API, plus the debug pages outside production,
// and wraps them in the middleware stack.
func BuildHandler(api *restapi.RestAPI) http.Handler {
	router := httprouter.New()
	api.SetRoutes(router)
	if api.Config.Env != appconf.Production {
		ui := &webui.WebUI{Application: api.Application}
		ui.SetWebUIRoutes(router)
	}
	return api.WithMiddleware(router)
}

// CreateServer creates the HTTP server. There is no write timeout because
// websocket connections stay open for the whole session.
func CreateServer(cfg appconf.Config, handler http.Handler, logger *slog.Logger) *http.Server {
	return &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           handler,
		IdleTimeout:       time.Minute,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		ErrorLog:          slog.NewLogLogger(logger.Handler(), slog.LevelError),
	}
}
