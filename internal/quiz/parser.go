package quiz

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// ErrSchemaValidation indicates the model output could not be parsed into a
// valid quiz by any tier.
var ErrSchemaValidation = errors.New("quiz output failed schema validation")

// Parse turns raw model output into exactly n validated questions.
//
// Parsing is an ordered sequence of attempts:
//  1. the raw output as JSON,
//  2. the contents of a fenced code block extracted from the raw output,
//  3. terminal failure.
//
// Each tier's candidate must both unmarshal and validate; a candidate that
// unmarshals but fails validation falls through to the next tier. There is
// no lenient truncation or padding: a wrong question count is a failure.
func Parse(raw string, n int) ([]Question, error) {
	if questions, err := parseCandidate(raw, n); err == nil {
		return questions, nil
	}

	if fenced, ok := extractFencedBlock(raw); ok {
		if questions, err := parseCandidate(fenced, n); err == nil {
			return questions, nil
		}
	}

	return nil, fmt.Errorf("%w: output is neither direct nor fenced JSON matching the schema", ErrSchemaValidation)
}

// parseCandidate unmarshals one candidate string and validates it.
func parseCandidate(candidate string, n int) ([]Question, error) {
	var out Output
	if err := json.Unmarshal([]byte(strings.TrimSpace(candidate)), &out); err != nil {
		return nil, err
	}
	if err := validate(out.Quiz, n); err != nil {
		return nil, err
	}
	return out.Quiz, nil
}

// validate enforces the quiz schema: exactly n questions, exactly four
// options each, answer a single letter A-D.
func validate(questions []Question, n int) error {
	if len(questions) != n {
		return fmt.Errorf("%w: got %d questions, want %d", ErrSchemaValidation, len(questions), n)
	}
	for i, q := range questions {
		if strings.TrimSpace(q.Question) == "" {
			return fmt.Errorf("%w: question %d is empty", ErrSchemaValidation, i)
		}
		if len(q.Options) != 4 {
			return fmt.Errorf("%w: question %d has %d options, want 4", ErrSchemaValidation, i, len(q.Options))
		}
		switch strings.ToUpper(strings.TrimSpace(q.Answer)) {
		case "A", "B", "C", "D":
		default:
			return fmt.Errorf("%w: question %d has answer %q, want A-D", ErrSchemaValidation, i, q.Answer)
		}
	}
	return nil
}

// extractFencedBlock returns the body of the first fenced code block in raw,
// preferring a ```json fence over a bare ``` fence.
func extractFencedBlock(raw string) (string, bool) {
	for _, fence := range []string{"```json", "```"} {
		start := strings.Index(raw, fence)
		if start < 0 {
			continue
		}
		body := raw[start+len(fence):]
		end := strings.Index(body, "```")
		if end < 0 {
			continue
		}
		return strings.TrimSpace(body[:end]), true
	}
	return "", false
}
