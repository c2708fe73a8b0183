package domain

import (
	"fmt"
	"math"
	"time"
)

// OptionLabels names answer options in the order they are played.
var OptionLabels = [...]string{"A", "B", "C", "D"}

// MaxOptions is the largest number of answer options a question may carry.
const MaxOptions = len(OptionLabels)

// Room is the master record of a game session; its TTL bounds every dependent key.
type Room struct {
	Code      string `json:"code"`
	CreatedAt int64  `json:"createdAt"`
}

// Player is a participant scoped to a single room.
type Player struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	AvatarDataURL string `json:"avatarDataUrl,omitempty"`
	JoinedAt      int64  `json:"joinedAt"`
}

// PlayerSummary is the public view of a player used in listings and player-joined events.
type PlayerSummary struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	JoinedAt int64  `json:"joinedAt"`
}

// Summary drops the avatar payload.
func (p Player) Summary() PlayerSummary {
	return PlayerSummary{ID: p.ID, Name: p.Name, JoinedAt: p.JoinedAt}
}

// Question is a catalog entry. Durations are in seconds as measured on the audio files.
type Question struct {
	ID               string    `json:"id" yaml:"id"`
	Difficulty       int       `json:"difficulty" yaml:"difficulty"`
	QuestionURL      string    `json:"questionUrl" yaml:"questionUrl"`
	QuestionDuration float64   `json:"questionDuration" yaml:"questionDuration"`
	OptionURLs       []string  `json:"optionUrls" yaml:"optionUrls"`
	OptionDurations  []float64 `json:"optionDurations" yaml:"optionDurations"`
	CorrectIndex     int       `json:"correctIndex" yaml:"correctIndex"`
	AnswerURL        string    `json:"answerUrl,omitempty" yaml:"answerUrl"`
}

// Validate checks the invariants the round sequencer relies on.
func (q Question) Validate() error {
	switch {
	case q.Difficulty < 1 || q.Difficulty > 3:
		return fmt.Errorf("%w %q: difficulty %d outside 1-3", ErrInvalidQuestion, q.ID, q.Difficulty)
	case q.QuestionURL == "":
		return fmt.Errorf("%w %q: missing question audio", ErrInvalidQuestion, q.ID)
	case len(q.OptionURLs) == 0 || len(q.OptionURLs) > MaxOptions:
		return fmt.Errorf("%w %q: %d options, want 1-%d", ErrInvalidQuestion, q.ID, len(q.OptionURLs), MaxOptions)
	case len(q.OptionDurations) != len(q.OptionURLs):
		return fmt.Errorf("%w %q: %d option durations for %d options", ErrInvalidQuestion, q.ID, len(q.OptionDurations), len(q.OptionURLs))
	case q.CorrectIndex < 0 || q.CorrectIndex >= len(q.OptionURLs):
		return fmt.Errorf("%w %q: correct index %d out of range", ErrInvalidQuestion, q.ID, q.CorrectIndex)
	case SegmentDuration(q.QuestionDuration) <= 0:
		// a zero-length listening phase would open answers as the sequence starts
		return fmt.Errorf("%w %q: question duration must be at least 1ms", ErrInvalidQuestion, q.ID)
	}
	for i, d := range q.OptionDurations {
		if d < 0 {
			return fmt.Errorf("%w %q: negative duration for option %s", ErrInvalidQuestion, q.ID, OptionLabels[i])
		}
	}
	return nil
}

// ListeningDuration is the time needed to play the question and every option, with gap
// inserted between consecutive options. Each segment is rounded to the millisecond first
// so the result is exactly the sum of the parts.
func (q Question) ListeningDuration(gap time.Duration) time.Duration {
	total := SegmentDuration(q.QuestionDuration)
	for _, d := range q.OptionDurations {
		total += SegmentDuration(d)
	}
	if n := len(q.OptionURLs); n > 1 {
		total += time.Duration(n-1) * gap
	}
	return total
}

// SegmentDuration converts an audio length in seconds to a millisecond-precision duration.
func SegmentDuration(seconds float64) time.Duration {
	return time.Duration(math.Round(seconds*1000)) * time.Millisecond
}

// RoundSchedule is the public part of a round, safe to send before finalization.
type RoundSchedule struct {
	RoundID         string   `json:"roundId"`
	Difficulty      int      `json:"difficulty"`
	QuestionURL     string   `json:"questionUrl"`
	OptionURLs      []string `json:"optionUrls"`
	AnswerURL       string   `json:"answerUrl,omitempty"`
	SequenceStartAt int64    `json:"sequenceStartAt"`
	AnswerStartAt   int64    `json:"answerStartAt"`
	EndsAt          int64    `json:"endsAt"`
}

// Round is the stored round record. CorrectIndex never leaves the server before finalization.
type Round struct {
	RoundSchedule
	QuestionIndex int   `json:"questionIndex"`
	CorrectIndex  int   `json:"correctIndex"`
	CreatedAt     int64 `json:"createdAt"`
}

// Public strips server-only fields.
func (r Round) Public() RoundSchedule {
	return r.RoundSchedule
}

// Answer is a player's single admitted choice for a round.
type Answer struct {
	ChoiceIndex int   `json:"choiceIndex"`
	AnsweredAt  int64 `json:"answeredAt"`
}

// PlayerOutcome is the per-player breakdown of a finalized round.
type PlayerOutcome struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	ChoiceIndex *int   `json:"choiceIndex"`
	AnsweredAt  *int64 `json:"answeredAt"`
	Correct     bool   `json:"correct"`
	Delta       int    `json:"delta"`
}

// LeaderboardEntry is a player's cumulative score.
type LeaderboardEntry struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Score int64  `json:"score"`
}

// RoundResult is written exactly once per round.
type RoundResult struct {
	RoundID      string             `json:"roundId"`
	CorrectIndex int                `json:"correctIndex"`
	CorrectLabel string             `json:"correctLabel"`
	PerPlayer    []PlayerOutcome    `json:"perPlayer"`
	Leaderboard  []LeaderboardEntry `json:"leaderboard"`
	EndedAt      int64              `json:"endedAt"`
}

// UnixMilli is the wire representation of every timestamp.
func UnixMilli(t time.Time) int64 {
	return t.UnixMilli()
}
