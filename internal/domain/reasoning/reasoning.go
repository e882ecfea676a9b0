// Package reasoning scores a child's free-text explanation of an answer.
package reasoning

import (
	"context"
	"errors"
)

// Sources that can produce an assessment.
const (
	SourceLLM     = "llm"
	SourceRules   = "rules"
	SourceNeutral = "neutral"
)

// NeutralScore is used when no estimator could produce a score.
const NeutralScore = 50

// ErrEmptyReasoning is returned by estimators that need text to work with.
var ErrEmptyReasoning = errors.New("reasoning text is empty")

// Request is the text to assess.
type Request struct {
	Reasoning string `json:"reasoning"`
	Context   string `json:"context"`
	Correct   bool   `json:"correct"`
}

// Assessment is a 0-100 quality score with a short feedback line.
type Assessment struct {
	Score    int    `json:"score"`
	Feedback string `json:"feedback"`
	Source   string `json:"source"`
}

// Estimator maps reasoning text to a quality score.
type Estimator interface {
	Evaluate(ctx context.Context, req Request) (Assessment, error)
}

func clamp(score int) int {
	return min(100, max(0, score))
}
