package llm

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Validator checks a value decoded by ExtractJSON.
type Validator[T any] func(T) error

// ExtractJSON decodes the first JSON object in raw model text into T.
// Markdown code fences and surrounding prose are ignored.
func ExtractJSON[T any](raw string, validate Validator[T]) (T, error) {
	var zero T

	block := firstObject(stripCodeFences(raw))
	if block == "" {
		return zero, fmt.Errorf("%w: no JSON object found in response", ErrInvalidOutput)
	}

	var out T
	if err := json.Unmarshal([]byte(block), &out); err != nil {
		return zero, fmt.Errorf("%w: %v", ErrInvalidOutput, err)
	}
	if validate != nil {
		if err := validate(out); err != nil {
			return zero, fmt.Errorf("%w: validation failed: %v", ErrInvalidOutput, err)
		}
	}
	return out, nil
}

func stripCodeFences(s string) string {
	lines := strings.Split(s, "\n")
	kept := lines[:0]
	for _, line := range lines {
		if strings.HasPrefix(strings.TrimSpace(line), "```") {
			continue
		}
		kept = append(kept, line)
	}
	return strings.Join(kept, "\n")
}

// firstObject returns the first balanced { ... } block, honouring strings.
func firstObject(s string) string {
	start := strings.IndexByte(s, '{')
	if start == -1 {
		return ""
	}
	depth := 0
	inString, escaped := false, false
	for i := start; i < len(s); i++ {
		c := s[i]
		switch {
		case escaped:
			escaped = false
		case c == '\\' && inString:
			escaped = true
		case c == '"':
			inString = !inString
		case inString:
		case c == '{':
			depth++
		case c == '}':
			depth--
			if depth == 0 {
				return s[start : i+1]
			}
		}
	}
	return ""
}
