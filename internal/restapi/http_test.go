package restapi

import (
	"bytes"
	"compress/gzip"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arquest/waypoint/internal/app"
	"github.com/arquest/waypoint/internal/appconf"
	"github.com/arquest/waypoint/internal/auth"
	"github.com/arquest/waypoint/internal/geo"
	"github.com/arquest/waypoint/internal/logging"
	"github.com/arquest/waypoint/internal/models"
	"github.com/arquest/waypoint/internal/navigation"
)

const testAPIKey = "TEST"

var testDestination = navigation.Destination{
	Name:  "Temple",
	Point: geo.Point{Lat: 27.71, Lng: 85.31},
}

// directRouter answers every request with the straight-line fallback route.
type directRouter struct{}

func (directRouter) GetRoute(_ context.Context, origin, destination geo.Point) (navigation.Route, error) {
	return navigation.DirectRoute(origin, navigation.Destination{Name: "Temple", Point: destination}), nil
}

// createTestApi creates a RestAPI backed by an in-memory session manager and
// a router that never leaves the process.
func createTestApi(t *testing.T) *RestAPI {
	t.Helper()
	logger := logging.NewStructuredLogger(io.Discard, slog.LevelInfo)

	cfg := appconf.Config{
		Env:         appconf.Test,
		ApiKeys:     []string{testAPIKey},
		RateLimit:   100,
		Destination: testDestination,
		Navigation:  navigation.DefaultConfig(),
	}

	tokens, err := auth.NewIssuer("test-secret", time.Hour)
	require.NoError(t, err)

	application := &app.Application{
		Config:   cfg,
		Logger:   logger,
		Sessions: navigation.NewManager(cfg.Navigation, directRouter{}, logger),
		Router:   directRouter{},
		Tokens:   tokens,
	}

	api := NewRestAPI(application)
	t.Cleanup(api.Shutdown)
	return api
}

func serveApi(t *testing.T, api *RestAPI) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(api.Handler())
	t.Cleanup(server.Close)
	return server
}

// apiResponse is the envelope with a loosely typed payload.
type apiResponse struct {
	Code        int                    `json:"code"`
	CurrentTime int64                  `json:"currentTime"`
	Text        string                 `json:"text"`
	Version     int                    `json:"version"`
	Data        map[string]interface{} `json:"data"`
	FieldErrors map[string][]string    `json:"fieldErrors"`
}

func doRequest(t *testing.T, method, url string, body any, header http.Header) (*http.Response, apiResponse) {
	t.Helper()

	var reader io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		reader = strings.NewReader(b)
	default:
		encoded, err := json.Marshal(b)
		require.NoError(t, err)
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequest(method, url, reader)
	require.NoError(t, err)
	for k, v := range header {
		req.Header[k] = v
	}
	if reader != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer logging.SafeCloseWithLogging(resp.Body,
		slog.Default().With(slog.String("component", "test")),
		"http_response_body")

	var decoded apiResponse
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	if len(raw) > 0 {
		require.NoError(t, json.Unmarshal(raw, &decoded), string(raw))
	}
	return resp, decoded
}

func bearer(token string) http.Header {
	return http.Header{"Authorization": []string{"Bearer " + token}}
}

func TestCurrentTimeHandler(t *testing.T) {
	server := serveApi(t, createTestApi(t))

	resp, model := doRequest(t, http.MethodGet, server.URL+"/api/current-time.json?key="+testAPIKey, nil, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, 200, model.Code)
	assert.Equal(t, 2, model.Version)

	entry, ok := model.Data["entry"].(map[string]interface{})
	require.True(t, ok)
	assert.InDelta(t, float64(time.Now().UnixMilli()), entry["time"], 60_000)

	resp, model = doRequest(t, http.MethodGet, server.URL+"/api/current-time.json?key=nope", nil, nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, "permission denied", model.Text)
}

func TestHealthHandler(t *testing.T) {
	server := serveApi(t, createTestApi(t))

	resp, model := doRequest(t, http.MethodGet, server.URL+"/healthz", nil, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "ok", model.Data["status"])
	assert.Equal(t, float64(0), model.Data["sessions"])
}

func TestUnknownRoute(t *testing.T) {
	server := serveApi(t, createTestApi(t))

	resp, model := doRequest(t, http.MethodGet, server.URL+"/api/where/stops.json", nil, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "resource not found", model.Text)
}

func TestCompressionMiddleware(t *testing.T) {
	testHandler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		largeResponse := strings.Repeat(`{"test": "data"}`, 1000)
		_, _ = w.Write([]byte(largeResponse))
	})

	t.Run("compresses response when gzip accepted", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/test", nil)
		req.Header.Set("Accept-Encoding", "gzip")
		recorder := httptest.NewRecorder()

		CompressionMiddleware(testHandler).ServeHTTP(recorder, req)

		assert.Equal(t, http.StatusOK, recorder.Code)
		assert.Equal(t, "gzip", recorder.Header().Get("Content-Encoding"))

		reader, err := gzip.NewReader(bytes.NewReader(recorder.Body.Bytes()))
		require.NoError(t, err)
		defer func() { _ = reader.Close() }()

		decompressed, err := io.ReadAll(reader)
		require.NoError(t, err)

		expected := strings.Repeat(`{"test": "data"}`, 1000)
		assert.Equal(t, expected, string(decompressed))
		assert.Less(t, recorder.Body.Len(), len(expected))
	})

	t.Run("does not compress when gzip not accepted", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/test", nil)
		recorder := httptest.NewRecorder()

		CompressionMiddleware(testHandler).ServeHTTP(recorder, req)

		assert.Empty(t, recorder.Header().Get("Content-Encoding"))
		assert.Equal(t, strings.Repeat(`{"test": "data"}`, 1000), recorder.Body.String())
	})

	t.Run("skips small responses", func(t *testing.T) {
		small := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"ok":true}`))
		})
		req := httptest.NewRequest("GET", "/test", nil)
		req.Header.Set("Accept-Encoding", "gzip")
		recorder := httptest.NewRecorder()

		CompressionMiddleware(small).ServeHTTP(recorder, req)

		assert.Empty(t, recorder.Header().Get("Content-Encoding"))
		assert.Equal(t, `{"ok":true}`, recorder.Body.String())
	})

	t.Run("passes websocket upgrades through", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/ws", nil)
		req.Header.Set("Accept-Encoding", "gzip")
		req.Header.Set("Upgrade", "websocket")
		recorder := httptest.NewRecorder()

		CompressionMiddleware(testHandler).ServeHTTP(recorder, req)

		assert.Empty(t, recorder.Header().Get("Content-Encoding"))
	})
}

func TestResponseEnvelope(t *testing.T) {
	api := createTestApi(t)
	recorder := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)

	api.sendResponse(recorder, req, models.NewResponse(http.StatusAccepted, map[string]interface{}{"entry": "x"}, "Accepted"))

	assert.Equal(t, http.StatusAccepted, recorder.Code)
	assert.Equal(t, "application/json", recorder.Header().Get("Content-Type"))
	assert.Contains(t, recorder.Body.String(), `"text":"Accepted"`)
}

func TestDecodeJSON(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		wantErr string
	}{
		{"valid", `{"lat": 1, "lng": 2}`, ""},
		{"empty", ``, "request body must not be empty"},
		{"malformed", `{"lat": `, "malformed JSON body"},
		{"two objects", `{"lat": 1} {"lat": 2}`, "single JSON object"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(tt.body))
			var in pointInput
			err := decodeJSON(httptest.NewRecorder(), req, &in)
			if tt.wantErr == "" {
				require.NoError(t, err)
				require.NotNil(t, in.Lat)
				assert.Equal(t, 1.0, *in.Lat)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
