package domain

import "time"

// Phase is derived from a round's timestamps and never stored.
type Phase string

const (
	PhaseIdle      Phase = "IDLE"
	PhaseListening Phase = "LISTENING"
	PhaseAnswering Phase = "ANSWERING"
	PhaseAfter     Phase = "AFTER"
	PhaseEnded     Phase = "ENDED"
)

// PhaseAt reports the phase of round at now. A nil round is IDLE; finalized wins over time.
func PhaseAt(round *Round, now time.Time, finalized bool) Phase {
	if round == nil {
		return PhaseIdle
	}
	if finalized {
		return PhaseEnded
	}
	ms := UnixMilli(now)
	switch {
	case ms < round.AnswerStartAt:
		return PhaseListening
	case ms <= round.EndsAt:
		return PhaseAnswering
	default:
		return PhaseAfter
	}
}

// CheckAnswerWindow enforces the inclusive [AnswerStartAt, EndsAt] window.
func (r Round) CheckAnswerWindow(now time.Time) error {
	ms := UnixMilli(now)
	if ms < r.AnswerStartAt {
		return ErrTooEarly
	}
	if ms > r.EndsAt {
		return ErrTooLate
	}
	return nil
}
