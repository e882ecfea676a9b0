// Package tutor produces the next guiding question in a Socratic homework chat.
// It has no interface to the profile aggregator.
package tutor

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/okian/artemis/internal/adapters/llm"
	"github.com/okian/artemis/pkg/logger"
)

// Reply sources.
const (
	SourceLLM      = "llm"
	SourceFallback = "fallback"
)

// Speaker roles in a transcript.
const (
	RoleStudent = "student"
	RoleTutor   = "tutor"
)

const maxTranscriptTurns = 20

// Tutor errors.
var (
	ErrEmptyProblem = errors.New("problem statement is empty")
	ErrUnknownRole  = errors.New("unknown transcript role")
)

// Turn is one message of the running conversation.
type Turn struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Request carries the homework problem and the conversation so far.
type Request struct {
	Problem    string `json:"problem"`
	Transcript []Turn `json:"transcript"`
}

// Reply is the tutor's next message.
type Reply struct {
	Message string `json:"message"`
	Source  string `json:"source"`
}

const systemPrompt = `You are Artemis, a Socratic tutor for children aged 8-14.
Never give the answer. Ask exactly one short guiding question that helps the student take the next step.
Praise effort, keep language simple, and stay on the homework problem.`

var socraticPrompts = []string{ //nolint:gochecknoglobals // static prompt table
	"What is the problem asking you to find? Can you say it in your own words?",
	"What information do you already have that might help?",
	"Can you think of a smaller or simpler version of this problem?",
	"What would be a good first step? Why do you think so?",
	"How could you check whether your answer makes sense?",
	"Is there another way to look at this? What would change?",
}

// Tutor answers with an LLM when one is configured and with scripted
// Socratic questions otherwise.
type Tutor struct {
	client llm.Client
	log    logger.Logger
}

// New returns a tutor. client may be nil.
func New(client llm.Client, log logger.Logger) *Tutor {
	if log == nil {
		log = logger.Nop()
	}
	return &Tutor{client: client, log: log}
}

// Next returns the next guiding message. It fails only for invalid requests.
func (t *Tutor) Next(ctx context.Context, req Request) (Reply, error) {
	if strings.TrimSpace(req.Problem) == "" {
		return Reply{}, ErrEmptyProblem
	}
	for _, turn := range req.Transcript {
		if turn.Role != RoleStudent && turn.Role != RoleTutor {
			return Reply{}, fmt.Errorf("%w: %q", ErrUnknownRole, turn.Role)
		}
	}

	if t.client != nil {
		resp, err := t.client.Complete(ctx, llm.Request{
			Task:        "tutor",
			Messages:    buildMessages(req),
			Temperature: 0.7,
			MaxTokens:   250,
		})
		if err == nil {
			return Reply{Message: strings.TrimSpace(resp.Text), Source: SourceLLM}, nil
		}
		t.log.Warn(ctx, "tutor model unavailable, using scripted prompt", logger.Error(err))
	}
	return Reply{Message: scripted(req.Transcript), Source: SourceFallback}, nil
}

func buildMessages(req Request) []llm.Message {
	turns := req.Transcript
	if len(turns) > maxTranscriptTurns {
		turns = turns[len(turns)-maxTranscriptTurns:]
	}
	msgs := make([]llm.Message, 0, len(turns)+2)
	msgs = append(msgs,
		llm.Message{Role: llm.RoleSystem, Content: systemPrompt},
		llm.Message{Role: llm.RoleUser, Content: "My homework problem: " + req.Problem},
	)
	for _, turn := range turns {
		role := llm.RoleUser
		if turn.Role == RoleTutor {
			role = llm.RoleAssistant
		}
		msgs = append(msgs, llm.Message{Role: role, Content: turn.Content})
	}
	return msgs
}

// scripted picks a prompt by how many times the student has spoken.
func scripted(transcript []Turn) string {
	n := 0
	for _, turn := range transcript {
		if turn.Role == RoleStudent {
			n++
		}
	}
	return socraticPrompts[n%len(socraticPrompts)]
}
