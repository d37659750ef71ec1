package quiz

// Question is one multiple-choice quiz question.
type Question struct {
	// Question is the question text.
	Question string `json:"question"`

	// Options holds exactly four choices, in A..D order.
	Options []string `json:"options"`

	// Answer is the correct option letter: A, B, C or D.
	Answer string `json:"answer"`

	// Explanation says why the answer is correct.
	Explanation string `json:"explanation"`
}

// Output is the model's structured quiz payload.
type Output struct {
	Quiz []Question `json:"quiz"`
}
