package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"

	"listening-quiz-service/internal/app"
	"listening-quiz-service/internal/domain"
)

const maxBodyBytes = 256 << 10

// Handler exposes the room, round and answer use cases as JSON endpoints.
type Handler struct {
	service *app.Service
	logger  zerolog.Logger
}

func NewHandler(service *app.Service, logger zerolog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

type errorBody struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

type joinRequest struct {
	Name          string  `json:"name"`
	AvatarDataURL *string `json:"avatarDataUrl"`
}

type joinResponse struct {
	PlayerID string `json:"playerId"`
	Name     string `json:"name"`
	Code     string `json:"code"`
}

type answerRequest struct {
	PlayerID    string `json:"playerId"`
	RoundID     string `json:"roundId"`
	ChoiceIndex *int   `json:"choiceIndex"`
}

type endRoundRequest struct {
	RoundID string `json:"roundId"`
}

func (h *Handler) healthz(w http.ResponseWriter, _ *http.Request) {
	w.Write([]byte("ok"))
}

func (h *Handler) createRoom(w http.ResponseWriter, r *http.Request) {
	room, err := h.service.CreateRoom(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"code": room.Code})
}

func (h *Handler) join(w http.ResponseWriter, r *http.Request) {
	code := roomCode(r)
	var req joinRequest
	if err := decodeBody(w, r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	joinReq := app.JoinRequest{Name: req.Name}
	if req.AvatarDataURL != nil {
		joinReq.AvatarDataURL = *req.AvatarDataURL
	}

	player, err := h.service.Join(r.Context(), code, joinReq)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, joinResponse{PlayerID: player.ID, Name: player.Name, Code: code})
}

func (h *Handler) players(w http.ResponseWriter, r *http.Request) {
	players, err := h.service.Players(r.Context(), roomCode(r))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"players": players})
}

func (h *Handler) startRound(w http.ResponseWriter, r *http.Request) {
	schedule, err := h.service.StartNextRound(r.Context(), roomCode(r))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, schedule)
}

func (h *Handler) roundStatus(w http.ResponseWriter, r *http.Request) {
	status, err := h.service.RoundStatus(r.Context(), roomCode(r), mux.Vars(r)["roundId"])
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, status)
}

func (h *Handler) answer(w http.ResponseWriter, r *http.Request) {
	var req answerRequest
	if err := decodeBody(w, r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	if req.ChoiceIndex == nil {
		h.writeError(w, r, invalidInput("choiceIndex is required"))
		return
	}

	if _, err := h.service.SubmitAnswer(r.Context(), roomCode(r), req.RoundID, req.PlayerID, *req.ChoiceIndex); err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

func (h *Handler) endRound(w http.ResponseWriter, r *http.Request) {
	var req endRoundRequest
	if err := decodeBody(w, r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	result, err := h.service.FinalizeRound(r.Context(), roomCode(r), req.RoundID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (h *Handler) scores(w http.ResponseWriter, r *http.Request) {
	leaderboard, err := h.service.Leaderboard(r.Context(), roomCode(r))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"leaderboard": leaderboard})
}

var errorTable = []struct {
	err    error
	status int
	code   string
}{
	{domain.ErrInvalidInput, http.StatusBadRequest, "invalid_input"},
	{domain.ErrRoomNotFound, http.StatusNotFound, "room_not_found"},
	{domain.ErrRoundNotFound, http.StatusNotFound, "round_not_found"},
	{domain.ErrTooEarly, http.StatusConflict, "too_early"},
	{domain.ErrTooLate, http.StatusConflict, "too_late"},
	{domain.ErrAlreadyAnswered, http.StatusConflict, "already_answered"},
	{domain.ErrFinalizeInProgress, http.StatusConflict, "finalizing"},
	{domain.ErrNoMoreQuestions, http.StatusConflict, "no_more_questions"},
}

func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	for _, e := range errorTable {
		if errors.Is(err, e.err) {
			writeJSON(w, e.status, errorBody{Error: err.Error(), Code: e.code})
			return
		}
	}
	h.logger.Error().Err(err).Str("method", r.Method).Str("path", r.URL.Path).Msg("request failed")
	writeJSON(w, http.StatusInternalServerError, errorBody{Error: "internal error", Code: "internal"})
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return invalidInput("malformed JSON body")
	}
	return nil
}

func invalidInput(msg string) error {
	return fmt.Errorf("%w: %s", domain.ErrInvalidInput, msg)
}

func roomCode(r *http.Request) string {
	return strings.TrimSpace(mux.Vars(r)["code"])
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
