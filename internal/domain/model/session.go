// Package model contains domain models passed between layers.
package model

import "time"

// GameType identifies which mini-game produced a session.
type GameType string

// Known game types.
const (
	GameDetective     GameType = "detective"
	GameStory         GameType = "story"
	GameDebate        GameType = "debate"
	GameFactOrFiction GameType = "fact-or-fiction"
)

// GameTypes lists every known game type.
var GameTypes = []GameType{GameDetective, GameStory, GameDebate, GameFactOrFiction} //nolint:gochecknoglobals // closed enum

// Valid reports whether g is one of the known game types.
func (g GameType) Valid() bool {
	switch g {
	case GameDetective, GameStory, GameDebate, GameFactOrFiction:
		return true
	default:
		return false
	}
}

// Scores are the four sub-scores a game reports, each expected in [0,100].
type Scores struct {
	Accuracy    int `json:"accuracy"`
	Reasoning   int `json:"reasoning"`
	Speed       int `json:"speed"`
	Consistency int `json:"consistency"`
}

// SessionInput is a completed playthrough as handed over by a game UI.
// The aggregator stamps the id and completion time.
type SessionInput struct {
	GameType  GameType       `json:"gameType"`
	GameID    string         `json:"gameId"`
	TimeSpent float64        `json:"timeSpent"` // seconds
	Scores    Scores         `json:"scores"`
	Skills    []string       `json:"skills"`
	RawData   map[string]any `json:"rawData,omitempty"`
}

// GameSession is an ingested, immutable session record.
type GameSession struct {
	ID          string         `json:"id"`
	GameType    GameType       `json:"gameType"`
	GameID      string         `json:"gameId"`
	CompletedAt time.Time      `json:"completedAt"`
	TimeSpent   float64        `json:"timeSpent"`
	Scores      Scores         `json:"scores"`
	Skills      []string       `json:"skills"`
	RawData     map[string]any `json:"rawData,omitempty"`
}

// SessionEvent is a submission travelling through the ingestion pipeline.
type SessionEvent struct {
	SubmissionID string       // idempotency key chosen by the producer
	UserID       string       // profile owner
	Input        SessionInput // playthrough payload
	ReceivedAt   time.Time    // when the submission was accepted
}

// Clone returns a deep copy of the session input.
func (in SessionInput) Clone() SessionInput {
	out := in
	out.Skills = append([]string(nil), in.Skills...)
	out.RawData = cloneRaw(in.RawData)
	return out
}

func (s GameSession) clone() GameSession {
	out := s
	out.Skills = append([]string(nil), s.Skills...)
	out.RawData = cloneRaw(s.RawData)
	return out
}

// cloneRaw copies the top level of a telemetry bag. Nested values are shared;
// the aggregator never reads or writes them.
func cloneRaw(raw map[string]any) map[string]any {
	if raw == nil {
		return nil
	}
	out := make(map[string]any, len(raw))
	for k, v := range raw {
		out[k] = v
	}
	return out
}
