package reasoning

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/okian/artemis/internal/adapters/llm"
)

const estimatorSystemPrompt = `You assess the reasoning of a child aged 8-14 who just answered a critical-thinking puzzle.
Score the quality of their explanation from 0 to 100: logic, use of evidence, clarity.
Be encouraging in feedback and keep it to one sentence a child understands.
Respond with JSON only: {"score": <integer 0-100>, "feedback": "<one sentence>"}`

// LLMEstimator delegates assessment to a language model.
type LLMEstimator struct {
	client llm.Client
}

// NewLLMEstimator returns an estimator backed by client.
func NewLLMEstimator(client llm.Client) *LLMEstimator {
	return &LLMEstimator{client: client}
}

type llmAssessment struct {
	Score    *int   `json:"score"`
	Feedback string `json:"feedback"`
}

func validAssessment(a llmAssessment) error {
	if a.Score == nil {
		return errors.New("missing score")
	}
	if *a.Score < 0 || *a.Score > 100 {
		return fmt.Errorf("score %d out of range", *a.Score)
	}
	if strings.TrimSpace(a.Feedback) == "" {
		return errors.New("missing feedback")
	}
	return nil
}

// Evaluate asks the model for a score and returns any client or parse error.
func (e *LLMEstimator) Evaluate(ctx context.Context, req Request) (Assessment, error) {
	if strings.TrimSpace(req.Reasoning) == "" {
		return Assessment{}, ErrEmptyReasoning
	}
	verdict := "incorrect"
	if req.Correct {
		verdict = "correct"
	}
	user := fmt.Sprintf("Puzzle context: %s\nThe child's answer was %s.\nTheir reasoning: %q",
		req.Context, verdict, req.Reasoning)

	resp, err := e.client.Complete(ctx, llm.Request{
		Task: "estimate",
		Messages: []llm.Message{
			{Role: llm.RoleSystem, Content: estimatorSystemPrompt},
			{Role: llm.RoleUser, Content: user},
		},
		Temperature: 0.2,
		MaxTokens:   200,
	})
	if err != nil {
		return Assessment{}, err
	}

	out, err := llm.ExtractJSON[llmAssessment](resp.Text, validAssessment)
	if err != nil {
		return Assessment{}, err
	}
	return Assessment{Score: *out.Score, Feedback: strings.TrimSpace(out.Feedback), Source: SourceLLM}, nil
}
