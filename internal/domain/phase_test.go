package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestPhaseAt(t *testing.T) {
	start := time.UnixMilli(1_000_000)
	round := &Round{RoundSchedule: RoundSchedule{
		SequenceStartAt: start.UnixMilli(),
		AnswerStartAt:   start.Add(20 * time.Second).UnixMilli(),
		EndsAt:          start.Add(30 * time.Second).UnixMilli(),
	}}

	tests := []struct {
		name      string
		round     *Round
		at        time.Time
		finalized bool
		want      Phase
	}{
		{"no round", nil, start, false, PhaseIdle},
		{"before sequence", round, start.Add(-time.Second), false, PhaseListening},
		{"listening", round, start.Add(19999 * time.Millisecond), false, PhaseListening},
		{"window opens", round, start.Add(20 * time.Second), false, PhaseAnswering},
		{"window closes inclusive", round, start.Add(30 * time.Second), false, PhaseAnswering},
		{"after window", round, start.Add(30001 * time.Millisecond), false, PhaseAfter},
		{"finalized", round, start.Add(31 * time.Second), true, PhaseEnded},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, PhaseAt(tt.round, tt.at, tt.finalized))
		})
	}
}

func TestCheckAnswerWindow(t *testing.T) {
	round := Round{RoundSchedule: RoundSchedule{AnswerStartAt: 5000, EndsAt: 15000}}

	assert.ErrorIs(t, round.CheckAnswerWindow(time.UnixMilli(4999)), ErrTooEarly)
	assert.NoError(t, round.CheckAnswerWindow(time.UnixMilli(5000)))
	assert.NoError(t, round.CheckAnswerWindow(time.UnixMilli(10000)))
	assert.NoError(t, round.CheckAnswerWindow(time.UnixMilli(15000)))
	assert.ErrorIs(t, round.CheckAnswerWindow(time.UnixMilli(15001)), ErrTooLate)
}

func TestListeningDurationSumsSegmentsAndGaps(t *testing.T) {
	q := Question{
		QuestionDuration: 30.5,
		OptionURLs:       []string{"a", "b", "c", "d"},
		OptionDurations:  []float64{5.6, 5, 4.9, 5.3},
	}
	// 30500 + 5600 + 5000 + 4900 + 5300 + 3*3000
	assert.Equal(t, 60300*time.Millisecond, q.ListeningDuration(3*time.Second))

	single := Question{QuestionDuration: 2, OptionURLs: []string{"a"}, OptionDurations: []float64{1}}
	assert.Equal(t, 3*time.Second, single.ListeningDuration(3*time.Second))
}

func TestQuestionValidate(t *testing.T) {
	valid := Question{
		ID:               "q1",
		Difficulty:       2,
		QuestionURL:      "/audio/q1.mp3",
		QuestionDuration: 3,
		OptionURLs:       []string{"a", "b"},
		OptionDurations:  []float64{1, 1},
		CorrectIndex:     1,
	}
	assert.NoError(t, valid.Validate())

	broken := []func(q *Question){
		func(q *Question) { q.Difficulty = 4 },
		func(q *Question) { q.QuestionURL = "" },
		func(q *Question) {
			q.OptionURLs = nil
			q.OptionDurations = nil
		},
		func(q *Question) { q.OptionDurations = []float64{1} },
		func(q *Question) { q.CorrectIndex = 2 },
		func(q *Question) { q.OptionDurations = []float64{1, -1} },
		func(q *Question) { q.QuestionDuration = 0 },
		func(q *Question) { q.QuestionDuration = -2 },
		func(q *Question) { q.QuestionDuration = 0.0004 },
		func(q *Question) {
			q.QuestionDuration = 0
			q.OptionURLs = []string{"a"}
			q.OptionDurations = []float64{0}
			q.CorrectIndex = 0
		},
	}
	for i, mutate := range broken {
		q := valid
		q.OptionURLs = append([]string(nil), valid.OptionURLs...)
		q.OptionDurations = append([]float64(nil), valid.OptionDurations...)
		mutate(&q)
		assert.ErrorIs(t, q.Validate(), ErrInvalidQuestion, "case %d", i)
	}
}
