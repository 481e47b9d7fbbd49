package quiz

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func strPtr(s string) *string { return &s }

func TestCheckAnswer_MultipleChoice(t *testing.T) {
	q := Question{ID: "q1", Difficulty: 3, Type: TypeMultipleChoice, CorrectAnswer: "b"}

	assert.True(t, q.CheckAnswer(strPtr("b")))
	assert.True(t, q.CheckAnswer(strPtr(" b ")))
	assert.False(t, q.CheckAnswer(strPtr("a")))
	assert.False(t, q.CheckAnswer(strPtr("B")))
}

func TestCheckAnswer_TrueFalse(t *testing.T) {
	q := Question{ID: "q2", Difficulty: 1, Type: TypeTrueFalse, CorrectAnswer: "true"}

	assert.True(t, q.CheckAnswer(strPtr("true")))
	assert.True(t, q.CheckAnswer(strPtr("TRUE")))
	assert.False(t, q.CheckAnswer(strPtr("false")))
}

func TestCheckAnswer_TimeoutIsIncorrect(t *testing.T) {
	q := Question{ID: "q1", Difficulty: 3, Type: TypeMultipleChoice, CorrectAnswer: "b"}

	assert.False(t, q.CheckAnswer(nil))
	assert.False(t, q.CheckAnswer(strPtr("")))
}

func TestQuestionValidate(t *testing.T) {
	valid := Question{ID: "q1", Difficulty: 3, Type: TypeMultipleChoice, CorrectAnswer: "b"}
	assert.NoError(t, valid.Validate())

	cases := []Question{
		{ID: "", Difficulty: 3, Type: TypeMultipleChoice, CorrectAnswer: "b"},
		{ID: "q1", Difficulty: 0, Type: TypeMultipleChoice, CorrectAnswer: "b"},
		{ID: "q1", Difficulty: 6, Type: TypeMultipleChoice, CorrectAnswer: "b"},
		{ID: "q1", Difficulty: 3, Type: "essay", CorrectAnswer: "b"},
		{ID: "q1", Difficulty: 3, Type: TypeMultipleChoice, CorrectAnswer: ""},
	}
	for _, q := range cases {
		assert.Error(t, q.Validate())
	}
}
