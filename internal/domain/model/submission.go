package model

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Submission validation errors.
var (
	ErrMissingSubmissionID = errors.New("submission_id is required")
	ErrMissingUserID       = errors.New("user_id is required")
	ErrUnknownGameType     = errors.New("unknown game_type")
)

// Submission is the wire shape of a finished playthrough, shared by the HTTP
// API and the Kafka topic.
type Submission struct {
	SubmissionID string         `json:"submission_id"`
	UserID       string         `json:"user_id"`
	GameType     GameType       `json:"game_type"`
	GameID       string         `json:"game_id"`
	TimeSpent    float64        `json:"time_spent"`
	Scores       Scores         `json:"scores"`
	Skills       []string       `json:"skills"`
	RawData      map[string]any `json:"raw_data,omitempty"`
}

// Validate checks the fields the pipeline keys on. Score ranges are not
// checked here; the aggregator tolerates them.
func (s *Submission) Validate() error {
	if strings.TrimSpace(s.SubmissionID) == "" {
		return ErrMissingSubmissionID
	}
	if strings.TrimSpace(s.UserID) == "" {
		return ErrMissingUserID
	}
	if !s.GameType.Valid() {
		return fmt.Errorf("%w: %q", ErrUnknownGameType, s.GameType)
	}
	return nil
}

// Event converts the submission into a pipeline event received at now.
func (s *Submission) Event(now time.Time) SessionEvent {
	return SessionEvent{
		SubmissionID: strings.TrimSpace(s.SubmissionID),
		UserID:       strings.TrimSpace(s.UserID),
		Input: SessionInput{
			GameType:  s.GameType,
			GameID:    s.GameID,
			TimeSpent: s.TimeSpent,
			Scores:    s.Scores,
			Skills:    s.Skills,
			RawData:   s.RawData,
		}.Clone(),
		ReceivedAt: now,
	}
}
