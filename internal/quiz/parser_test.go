package quiz

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const validQuizJSON = `{
  "quiz": [
    {
      "question": "What is the capital of France?",
      "options": ["London", "Berlin", "Paris", "Madrid"],
      "answer": "C",
      "explanation": "Paris is the capital of France."
    },
    {
      "question": "What is 2+2?",
      "options": ["3", "4", "5", "6"],
      "answer": "B",
      "explanation": "Basic arithmetic."
    }
  ]
}`

func TestParse_DirectJSON(t *testing.T) {
	questions, err := Parse(validQuizJSON, 2)
	require.NoError(t, err)
	require.Len(t, questions, 2)
	assert.Equal(t, "C", questions[0].Answer)
	assert.Len(t, questions[0].Options, 4)
}

func TestParse_FencedJSONBlock(t *testing.T) {
	raw := "Sure! Here are your questions:\n```json\n" + validQuizJSON + "\n```\nLet me know if you need more."
	questions, err := Parse(raw, 2)
	require.NoError(t, err)
	assert.Len(t, questions, 2)
}

func TestParse_BareFencedBlock(t *testing.T) {
	raw := "Here you go:\n```\n" + validQuizJSON + "\n```"
	questions, err := Parse(raw, 2)
	require.NoError(t, err)
	assert.Len(t, questions, 2)
}

func TestParse_GarbageFailsTerminally(t *testing.T) {
	_, err := Parse("I could not generate a quiz, sorry.", 2)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrSchemaValidation)
}

func TestParse_FencedGarbageFailsTerminally(t *testing.T) {
	_, err := Parse("```json\nnot actually json\n```", 2)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrSchemaValidation)
}

func TestParse_WrongQuestionCount(t *testing.T) {
	// Valid JSON for two questions must not be truncated or padded.
	_, err := Parse(validQuizJSON, 3)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrSchemaValidation)

	_, err = Parse(validQuizJSON, 1)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrSchemaValidation)
}

func TestParse_OptionCountEnforced(t *testing.T) {
	raw := `{"quiz":[{"question":"q","options":["a","b","c"],"answer":"A","explanation":"e"}]}`
	_, err := Parse(raw, 1)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrSchemaValidation)
}

func TestParse_AnswerLetterEnforced(t *testing.T) {
	raw := `{"quiz":[{"question":"q","options":["a","b","c","d"],"answer":"E","explanation":"e"}]}`
	_, err := Parse(raw, 1)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrSchemaValidation)
}

func TestParse_LowercaseAnswerAccepted(t *testing.T) {
	raw := `{"quiz":[{"question":"q","options":["a","b","c","d"],"answer":"c","explanation":"e"}]}`
	questions, err := Parse(raw, 1)
	require.NoError(t, err)
	assert.Equal(t, "c", questions[0].Answer)
}

func TestParse_EmptyQuestionRejected(t *testing.T) {
	raw := `{"quiz":[{"question":"  ","options":["a","b","c","d"],"answer":"A","explanation":"e"}]}`
	_, err := Parse(raw, 1)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrSchemaValidation)
}

func TestExtractFencedBlock(t *testing.T) {
	body, ok := extractFencedBlock("prefix ```json\n{\"a\":1}\n``` suffix")
	require.True(t, ok)
	assert.Equal(t, `{"a":1}`, body)

	_, ok = extractFencedBlock("no fences here")
	assert.False(t, ok)

	_, ok = extractFencedBlock("```json unterminated")
	assert.False(t, ok)
}
