// Package grading scores submitted answers against an assessment's answer keys.
// It is pure: callers load the questions and persist the result.
package grading

import (
	"bytes"
	"encoding/json"
	"math"
)

// Question is the view of a question needed for grading.
type Question struct {
	ID            string
	Type          string
	Points        int
	CorrectAnswer json.RawMessage
	Explanation   string
}

// Feedback is the per-question grading detail stored on a submission.
type Feedback struct {
	Correct       bool            `json:"correct"`
	Points        int             `json:"points"`
	MaxPoints     int             `json:"maxPoints"`
	Message       string          `json:"message,omitempty"`
	CorrectAnswer json.RawMessage `json:"correctAnswer,omitempty"`
	Explanation   string          `json:"explanation,omitempty"`
}

// Policy carries the assessment-level scoring settings.
type Policy struct {
	MaxScore        int
	PassingScore    int
	ShowExplanation bool
}

// Result is the score breakdown for a whole submission.
type Result struct {
	Score           int                 `json:"score"`
	MaxScore        int                 `json:"maxScore"`
	ScorePercentage int                 `json:"scorePercentage"`
	Passed          bool                `json:"passed"`
	Feedback        map[string]Feedback `json:"feedback"`
}

// MessageQuestionNotFound is recorded for answers to questions outside the assessment.
const MessageQuestionNotFound = "Question not found"

// Matcher reports whether a submitted answer matches the answer key.
type Matcher func(key, answer json.RawMessage) bool

var matchers = map[string]Matcher{
	"multiple_choice": strictEqual,
	"true_false":      strictEqual,
	"short_answer":    textEqual,
	"matching":        sequenceEqual,
}

// Grade scores answers (question id -> submitted value) against questions.
// Unknown question types are always incorrect and no partial credit is given.
func Grade(answers map[string]json.RawMessage, questions []Question, p Policy) Result {
	byID := make(map[string]Question, len(questions))
	for _, q := range questions {
		byID[q.ID] = q
	}

	res := Result{
		MaxScore: p.MaxScore,
		Feedback: make(map[string]Feedback, len(answers)),
	}

	for qid, answer := range answers {
		q, ok := byID[qid]
		if !ok {
			res.Feedback[qid] = Feedback{Correct: false, Message: MessageQuestionNotFound}
			continue
		}

		correct := false
		if m, ok := matchers[q.Type]; ok {
			correct = m(q.CorrectAnswer, answer)
		}

		fb := Feedback{
			Correct:       correct,
			MaxPoints:     q.Points,
			CorrectAnswer: q.CorrectAnswer,
		}
		if correct {
			fb.Points = q.Points
			res.Score += q.Points
		}
		if p.ShowExplanation {
			fb.Explanation = q.Explanation
		}
		res.Feedback[qid] = fb
	}

	res.ScorePercentage = Percentage(res.Score, res.MaxScore)
	res.Passed = res.ScorePercentage >= p.PassingScore
	return res
}

// Percentage returns round(score/maxScore*100). A zero maxScore yields 0.
func Percentage(score, maxScore int) int {
	if maxScore <= 0 {
		return 0
	}
	return int(math.Round(float64(score) / float64(maxScore) * 100))
}

func decode(raw json.RawMessage) (interface{}, bool) {
	if len(bytes.TrimSpace(raw)) == 0 {
		return nil, false
	}
	var v interface{}
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil, false
	}
	return v, true
}

// primitiveEqual compares JSON scalars by type and value. Objects and arrays never match.
func primitiveEqual(a, b interface{}) bool {
	switch av := a.(type) {
	case float64:
		bv, ok := b.(float64)
		return ok && av == bv
	case string:
		bv, ok := b.(string)
		return ok && av == bv
	case bool:
		bv, ok := b.(bool)
		return ok && av == bv
	case nil:
		return b == nil
	}
	return false
}

func strictEqual(key, answer json.RawMessage) bool {
	k, ok := decode(key)
	if !ok {
		return false
	}
	a, ok := decode(answer)
	if !ok {
		return false
	}
	return primitiveEqual(k, a)
}
