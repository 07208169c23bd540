package restapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/coder/websocket"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/arquest/waypoint/internal/auth"
	"github.com/arquest/waypoint/internal/logging"
	"github.com/arquest/waypoint/internal/navigation"
)

const maxMessageBytes = 4096

// inboundMessage is a sample pushed by the navigating client over the socket.
type inboundMessage struct {
	Type     string   `json:"type" msgpack:"type"`
	Lat      *float64 `json:"lat" msgpack:"lat"`
	Lng      *float64 `json:"lng" msgpack:"lng"`
	Accuracy float64  `json:"accuracy" msgpack:"accuracy"`
	Heading  *float64 `json:"heading" msgpack:"heading"`
	Alpha    *float64 `json:"alpha" msgpack:"alpha"`
}

func decodeInbound(typ websocket.MessageType, data []byte) (inboundMessage, error) {
	var msg inboundMessage
	var err error
	if typ == websocket.MessageBinary {
		err = msgpack.Unmarshal(data, &msg)
	} else {
		err = json.Unmarshal(data, &msg)
	}
	return msg, err
}

// flattenFieldErrors renders field errors as one line, ordered by field.
func flattenFieldErrors(fieldErrors map[string][]string) string {
	fields := make([]string, 0, len(fieldErrors))
	for field := range fieldErrors {
		fields = append(fields, field)
	}
	sort.Strings(fields)

	parts := make([]string, 0, len(fields))
	for _, field := range fields {
		parts = append(parts, strings.Join(fieldErrors[field], ", "))
	}
	return strings.Join(parts, "; ")
}

func pushInbound(feed *navigation.Feed, msg inboundMessage, now time.Time) error {
	switch msg.Type {
	case "location":
		in := locationInput{pointInput: pointInput{Lat: msg.Lat, Lng: msg.Lng}, Accuracy: msg.Accuracy}
		fix, fieldErrors := in.fix(now)
		if len(fieldErrors) > 0 {
			return fmt.Errorf("invalid location: %s", flattenFieldErrors(fieldErrors))
		}
		return feed.PushLocation(fix)
	case "heading":
		in := headingInput{Heading: msg.Heading, Alpha: msg.Alpha}
		sample, fieldErrors := in.sample(now)
		if len(fieldErrors) > 0 {
			return fmt.Errorf("invalid heading: %s", flattenFieldErrors(fieldErrors))
		}
		return feed.PushHeading(sample)
	default:
		return fmt.Errorf("unknown message type %q", msg.Type)
	}
}

// sessionSocketHandler streams frames to the client. Navigator tokens may
// also push location and heading samples over the same connection.
func (api *RestAPI) sessionSocketHandler(w http.ResponseWriter, r *http.Request) {
	id := sessionIDParam(r)
	claims, err := api.Tokens.Authorize(r, id)
	if err != nil {
		api.invalidTokenResponse(w, r, err)
		return
	}
	ls, ok := api.lookup(id)
	if !ok {
		api.notFoundResponse(w, r)
		return
	}

	encoding := strings.ToLower(r.URL.Query().Get("encoding"))
	switch encoding {
	case "":
		encoding = encodingJSON
	case encodingJSON, encodingMsgpack:
	default:
		api.badRequestResponse(w, r, fmt.Sprintf("unsupported encoding %q", encoding))
		return
	}

	// Browser clients connect from their own origin; the token authorizes them.
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{InsecureSkipVerify: true})
	if err != nil {
		api.Logger.Warn("websocket upgrade failed", slog.String("session_id", id), slog.String("error", err.Error()))
		return
	}
	defer func() { _ = conn.CloseNow() }()
	conn.SetReadLimit(maxMessageBytes)

	logger := logging.Component(api.Logger, "websocket").With(
		slog.String("session_id", id),
		slog.String("role", string(claims.Role)),
		slog.String("encoding", encoding))

	client := NewWSClient(conn, encoding, logger)
	if !ls.hub.AddClient(client) {
		_ = conn.Close(websocket.StatusGoingAway, "session closed")
		return
	}
	defer ls.hub.RemoveClient(client)
	logger.Debug("websocket client connected", slog.Int("clients", ls.hub.Len()))

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	go func() {
		defer logging.Recover(logger, "websocket_writer")
		client.writeLoop(ctx)
	}()

	api.readLoop(ctx, conn, client, ls.feed, claims, logger)
}

func (api *RestAPI) readLoop(ctx context.Context, conn *websocket.Conn, client *WSClient, feed *navigation.Feed, claims *auth.Claims, logger *slog.Logger) {
	defer logging.Recover(logger, "websocket_reader")

	for {
		typ, data, err := conn.Read(ctx)
		if err != nil {
			switch websocket.CloseStatus(err) {
			case websocket.StatusNormalClosure, websocket.StatusGoingAway:
			default:
				if ctx.Err() == nil {
					logger.Debug("websocket read ended", slog.String("error", err.Error()))
				}
			}
			return
		}

		msg, err := decodeInbound(typ, data)
		if err != nil {
			client.Send(errorMessage("malformed message"))
			continue
		}
		if !claims.CanWrite() {
			client.Send(errorMessage("token may not update this session"))
			continue
		}
		if err := pushInbound(feed, msg, time.Now()); err != nil {
			if errors.Is(err, navigation.ErrFeedClosed) {
				return
			}
			client.Send(errorMessage(err.Error()))
		}
	}
}
