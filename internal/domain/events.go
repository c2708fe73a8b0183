package domain

import "encoding/json"

// Broadcast event names; the topic is always the room code.
const (
	EventPlayerJoined   = "player-joined"
	EventRoundStarted   = "round-started"
	EventPlayerAnswered = "player-answered"
	EventRoundEnded     = "round-ended"
)

// PlayerAnswered is the payload of EventPlayerAnswered.
type PlayerAnswered struct {
	PlayerID    string `json:"playerId"`
	RoundID     string `json:"roundId"`
	ChoiceIndex int    `json:"choiceIndex"`
	AnsweredAt  int64  `json:"answeredAt"`
}

// Event is the envelope delivered to subscribers of a room topic.
type Event struct {
	Topic   string          `json:"topic"`
	Name    string          `json:"event"`
	Payload json.RawMessage `json:"payload"`
}

// NewEvent marshals payload into an envelope.
func NewEvent(topic, name string, payload any) (Event, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return Event{}, err
	}
	return Event{Topic: topic, Name: name, Payload: raw}, nil
}
