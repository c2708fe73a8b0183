package http

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"listening-quiz-service/internal/app"
	"listening-quiz-service/internal/domain"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = pongWait * 9 / 10
)

// Subscriber hands out per-room event streams.
type Subscriber interface {
	Subscribe(topic string) (<-chan domain.Event, func())
}

// WSHandler streams a room's broadcast events to a websocket client. The stream is
// read-only: every action goes through the JSON endpoints.
type WSHandler struct {
	service  *app.Service
	hub      Subscriber
	logger   zerolog.Logger
	upgrader websocket.Upgrader
}

func NewWSHandler(service *app.Service, hub Subscriber, logger zerolog.Logger) *WSHandler {
	return &WSHandler{
		service: service,
		hub:     hub,
		logger:  logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

type eventMessage struct {
	Type    string `json:"type"`
	Payload any    `json:"payload"`
}

// ServeWS checks the room exists, upgrades the request and forwards events until the
// client goes away.
func (h *WSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	code := roomCode(r)
	exists, err := h.service.RoomExists(r.Context(), code)
	if err != nil {
		h.logger.Error().Err(err).Str("room", code).Msg("ws room lookup failed")
		writeJSON(w, http.StatusInternalServerError, errorBody{Error: "internal error", Code: "internal"})
		return
	}
	if !exists {
		writeJSON(w, http.StatusNotFound, errorBody{Error: domain.ErrRoomNotFound.Error(), Code: "room_not_found"})
		return
	}

	events, cancel := h.hub.Subscribe(code)
	defer cancel()

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn().Err(err).Str("room", code).Msg("ws upgrade failed")
		return
	}
	defer conn.Close()

	closed := make(chan struct{})
	writerDone := make(chan struct{})

	go func() {
		defer close(writerDone)
		// unblocks the reader when the writer gives up first
		defer conn.Close()
		ticker := time.NewTicker(pingPeriod)
		defer ticker.Stop()
		for {
			select {
			case evt, ok := <-events:
				if !ok {
					return
				}
				_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
				if err := conn.WriteJSON(eventMessage{Type: evt.Name, Payload: evt.Payload}); err != nil {
					h.logger.Debug().Err(err).Str("room", code).Msg("ws write error")
					return
				}
			case <-ticker.C:
				_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
				if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
					return
				}
			case <-closed:
				return
			}
		}
	}()

	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}

	close(closed)
	<-writerDone
}
