package reasoning

import (
	"context"
	"strings"
	"unicode"
)

// Rule weights. A maximal answer reaches exactly 100.
const (
	maxLengthPoints     = 25
	connectivePoints    = 8
	maxConnectivePoints = 32
	evidencePoints      = 6
	maxEvidencePoints   = 18
	contextPoints       = 3
	maxContextPoints    = 15
	correctBonus        = 10
	minContextWordLen   = 4
)

var connectives = []string{ //nolint:gochecknoglobals // static word list
	"because", "therefore", "since", "so that", "which means", "if", "then",
	"however", "but", "although", "unless", "as a result", "this shows",
}

var evidenceTerms = []string{ //nolint:gochecknoglobals // static word list
	"clue", "evidence", "saw", "found", "noticed", "proof", "source",
	"fact", "according", "data", "footprint", "witness", "said",
}

// RuleBased is a local heuristic estimator. It never fails.
type RuleBased struct{}

// NewRuleBased returns the heuristic estimator.
func NewRuleBased() *RuleBased { return &RuleBased{} }

// Evaluate scores length, use of reasoning connectives, references to
// evidence and to the puzzle context, plus a bonus for a correct answer.
func (RuleBased) Evaluate(_ context.Context, req Request) (Assessment, error) {
	text := strings.ToLower(strings.TrimSpace(req.Reasoning))
	if text == "" {
		return Assessment{
			Score:    0,
			Feedback: "Try explaining why you chose your answer. What made you think so?",
			Source:   SourceRules,
		}, nil
	}

	words := strings.FieldsFunc(text, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '\''
	})
	padded := " " + strings.Join(words, " ") + " "

	score := min(maxLengthPoints, len(words))
	score += min(maxConnectivePoints, connectivePoints*countPhrases(padded, connectives))
	score += min(maxEvidencePoints, evidencePoints*countPrefixes(words, evidenceTerms))
	score += min(maxContextPoints, contextPoints*contextOverlap(words, req.Context))
	if req.Correct {
		score += correctBonus
	}
	score = clamp(score)

	return Assessment{Score: score, Feedback: feedbackFor(score, req.Correct), Source: SourceRules}, nil
}

// countPhrases counts distinct phrases found as whole words in padded.
func countPhrases(padded string, phrases []string) int {
	n := 0
	for _, p := range phrases {
		if strings.Contains(padded, " "+p+" ") {
			n++
		}
	}
	return n
}

// countPrefixes counts distinct terms that start at least one word, so
// "clues" and "noticed" both match.
func countPrefixes(words, terms []string) int {
	n := 0
	for _, t := range terms {
		for _, w := range words {
			if strings.HasPrefix(w, t) {
				n++
				break
			}
		}
	}
	return n
}

func contextOverlap(words []string, puzzle string) int {
	if puzzle == "" {
		return 0
	}
	want := make(map[string]struct{})
	for _, w := range strings.Fields(strings.ToLower(puzzle)) {
		w = strings.Trim(w, ".,!?;:\"'()")
		if len(w) >= minContextWordLen {
			want[w] = struct{}{}
		}
	}
	n := 0
	for _, w := range words {
		if _, ok := want[w]; ok {
			n++
			delete(want, w)
		}
	}
	return n
}

func feedbackFor(score int, correct bool) string {
	switch {
	case score >= 80:
		return "Excellent reasoning! You explained your thinking and backed it up with evidence."
	case score >= 60 && correct:
		return "Good thinking! Next time, point to the exact clue that proves your answer."
	case score >= 60:
		return "You explained your thinking well. Check the evidence again to see what you missed."
	case score >= 35:
		return "Nice start. Try using words like \"because\" to connect your answer to the clues."
	default:
		return "Tell us more about why. Which clues did you use, and what do they show?"
	}
}
