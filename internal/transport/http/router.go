package http

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/rs/zerolog"

	"listening-quiz-service/internal/app"
)

// NewRouter wires every endpoint plus access logging, panic recovery and CORS.
func NewRouter(service *app.Service, hub Subscriber, logger zerolog.Logger) http.Handler {
	api := NewHandler(service, logger)
	ws := NewWSHandler(service, hub, logger)

	r := mux.NewRouter()
	r.HandleFunc("/healthz", api.healthz).Methods(http.MethodGet)

	room := r.PathPrefix("/room").Subrouter()
	room.HandleFunc("/create", api.createRoom).Methods(http.MethodPost)
	room.HandleFunc("/{code}/join", api.join).Methods(http.MethodPost)
	room.HandleFunc("/{code}/players", api.players).Methods(http.MethodGet)
	room.HandleFunc("/{code}/scores", api.scores).Methods(http.MethodGet)
	room.HandleFunc("/{code}/events", ws.ServeWS).Methods(http.MethodGet)
	room.HandleFunc("/{code}/answer", api.answer).Methods(http.MethodPost)
	room.HandleFunc("/{code}/round/start", api.startRound).Methods(http.MethodPost)
	room.HandleFunc("/{code}/round/end", api.endRound).Methods(http.MethodPost)
	room.HandleFunc("/{code}/round/{roundId}", api.roundStatus).Methods(http.MethodGet)

	var h http.Handler = r
	h = handlers.CORS(
		handlers.AllowedOrigins([]string{"*"}),
		handlers.AllowedMethods([]string{http.MethodGet, http.MethodPost, http.MethodOptions}),
		handlers.AllowedHeaders([]string{"Content-Type"}),
	)(h)
	h = handlers.RecoveryHandler(handlers.RecoveryLogger(recoveryLogger{logger}))(h)
	h = handlers.CombinedLoggingHandler(accessLog{logger}, h)
	return h
}

// accessLog feeds combined-log lines into the structured logger.
type accessLog struct {
	logger zerolog.Logger
}

func (a accessLog) Write(p []byte) (int, error) {
	a.logger.Info().Str("component", "http").Msg(strings.TrimRight(string(p), "\n"))
	return len(p), nil
}

type recoveryLogger struct {
	logger zerolog.Logger
}

func (l recoveryLogger) Println(v ...interface{}) {
	l.logger.Error().Str("component", "http").Msg(strings.TrimSpace(fmt.Sprintln(v...)))
}
