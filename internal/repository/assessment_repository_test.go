package repository

import (
	"ace_lms_backend/internal/model"
	"ace_lms_backend/internal/testutil"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQuestionAnswerKeyRoundTrip(t *testing.T) {
	repo := NewAssessmentRepository(testutil.NewDB(t))

	cases := []struct {
		name    string
		qt      model.QuestionType
		options []string
		answer  string
	}{
		{"multiple choice", model.QuestionMultipleChoice, []string{"A", "B", "C"}, `1`},
		{"multiple choice first option", model.QuestionMultipleChoice, []string{"A", "B"}, `0`},
		{"true false", model.QuestionTrueFalse, nil, `false`},
		{"short answer", model.QuestionShortAnswer, nil, `"Paris"`},
		{"numeric short answer", model.QuestionShortAnswer, nil, `"42"`},
		{"matching", model.QuestionMatching, nil, `["a","b"]`},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			q := &model.Question{
				Text:          tc.name,
				Type:          tc.qt,
				Options:       tc.options,
				CorrectAnswer: model.AnswerKey(tc.answer),
				Points:        1,
			}
			require.NoError(t, repo.CreateQuestion(q))
			assert.Equal(t, model.DifficultyMedium, q.Difficulty)

			got, err := repo.FindQuestionByID(q.ID)
			require.NoError(t, err)
			assert.JSONEq(t, tc.answer, string(got.CorrectAnswer))

			list, err := repo.FindQuestionsByIDs([]string{q.ID})
			require.NoError(t, err)
			require.Len(t, list, 1)
			assert.JSONEq(t, tc.answer, string(list[0].CorrectAnswer))
		})
	}
}

func TestAssessmentQuestionsKeepAnswerKeys(t *testing.T) {
	repo := NewAssessmentRepository(testutil.NewDB(t))

	a := &model.Assessment{Title: "Mixed", Type: model.AssessmentQuiz, TotalPoints: 2, PassingScore: 70, MaxAttempts: 1, IsActive: true}
	questions := []model.Question{
		{Text: "pick", Type: model.QuestionMultipleChoice, Options: []string{"A", "B"}, CorrectAnswer: model.AnswerKey(`1`), Points: 1},
		{Text: "flag", Type: model.QuestionTrueFalse, CorrectAnswer: model.AnswerKey(`true`), Points: 1},
	}
	require.NoError(t, repo.CreateAssessment(a, questions, nil))

	loaded, err := repo.FindAssessmentQuestions(a.ID)
	require.NoError(t, err)
	require.Len(t, loaded, 2)
	assert.Equal(t, json.RawMessage(`1`), json.RawMessage(loaded[0].CorrectAnswer))
	assert.Equal(t, json.RawMessage(`true`), json.RawMessage(loaded[1].CorrectAnswer))
}
