package domain

import "errors"

var (
	// ErrInvalidInput is wrapped by every validation failure; the client can fix the request.
	ErrInvalidInput = errors.New("invalid input")
	// ErrRoomNotFound is returned when a room code is unknown or its TTL has elapsed.
	ErrRoomNotFound = errors.New("room not found or expired")
	// ErrRoundNotFound is returned when no round is stored under the given id.
	ErrRoundNotFound = errors.New("round not found")
	// ErrTooEarly rejects answers submitted while the round is still listening.
	ErrTooEarly = errors.New("answering window has not opened yet")
	// ErrTooLate rejects answers submitted after the answering window closed.
	ErrTooLate = errors.New("answering window is closed")
	// ErrAlreadyAnswered is returned for every submission after the first one for a player and round.
	ErrAlreadyAnswered = errors.New("answer already recorded")
	// ErrFinalizeInProgress means another caller holds the finalize lock and has not stored a result yet.
	ErrFinalizeInProgress = errors.New("round finalization in progress")
	// ErrNoMoreQuestions signals that the room consumed the whole catalog.
	ErrNoMoreQuestions = errors.New("no more questions available for this room")
	// ErrRoomCodeExhausted is returned when no free room code was found after all attempts.
	ErrRoomCodeExhausted = errors.New("could not allocate a room code")
	// ErrInvalidQuestion indicates malformed catalog content.
	ErrInvalidQuestion = errors.New("invalid question")
)
