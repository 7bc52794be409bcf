// Package srs provides answer validation, hybrid learning-step/FSRS
// scheduling and progressive hints for the study flow.
package srs

// Result classifies a validated answer.
type Result string

const (
	// ResultCorrect is a full match (core plus disambiguation if present).
	ResultCorrect Result = "Correct"
	// ResultPartialMatch means the core matched but the expected
	// disambiguation is missing. A knowledge gap, eligible for retry.
	ResultPartialMatch Result = "PartialMatch"
	// ResultCloseEnough is within typo tolerance. An execution error, not a
	// knowledge gap, so it carries no quality penalty.
	ResultCloseEnough Result = "CloseEnough"
	// ResultIncorrect is a wrong answer.
	ResultIncorrect Result = "Incorrect"
)

// IsCorrect reports whether the result counts as a correct review.
func (r Result) IsCorrect() bool {
	return r != ResultIncorrect
}

// AllowsRetry reports whether the result should offer a retry opportunity.
func (r Result) AllowsRetry() bool {
	return r == ResultPartialMatch
}

// Quality maps the result to an SRS grade.
func (r Result) Quality(usedHint bool) int {
	switch r {
	case ResultCorrect, ResultCloseEnough:
		if usedHint {
			return 3
		}
		return 4
	case ResultPartialMatch:
		return 2
	default:
		return 0
	}
}

// Validation is the outcome of checking a user's answer.
type Validation struct {
	Result      Result `json:"result"`
	Quality     int    `json:"quality"`
	IsCorrect   bool   `json:"is_correct"`
	AllowsRetry bool   `json:"allows_retry"`
}

// Validate checks a user's answer against the correct answer and derives the
// quality grade.
func Validate(userInput, correctAnswer string, usedHint bool) Validation {
	result := validateAnswer(userInput, correctAnswer)
	return Validation{
		Result:      result,
		Quality:     result.Quality(usedHint),
		IsCorrect:   result.IsCorrect(),
		AllowsRetry: result.AllowsRetry(),
	}
}
