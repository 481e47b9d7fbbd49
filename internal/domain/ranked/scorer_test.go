package ranked

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScore_Correct(t *testing.T) {
	// difficulty 3, 10s, one hint: 300 + 50 - 25 = 325.
	score, err := Score(3, true, 10000, 1)
	require.NoError(t, err)
	assert.Equal(t, 325, score)

	// Instant answer, no hints: full speed bonus.
	score, err = Score(3, true, 0, 0)
	require.NoError(t, err)
	assert.Equal(t, 400, score)

	// At the time limit the speed bonus is zero.
	score, err = Score(5, true, QuestionTimeLimitMs, 0)
	require.NoError(t, err)
	assert.Equal(t, 500, score)
}

func TestScore_TimeCappedAtLimit(t *testing.T) {
	atLimit, err := Score(2, true, QuestionTimeLimitMs, 0)
	require.NoError(t, err)

	over, err := Score(2, true, QuestionTimeLimitMs*10, 0)
	require.NoError(t, err)

	assert.Equal(t, atLimit, over)
}

func TestScore_Incorrect(t *testing.T) {
	score, err := Score(2, false, 5000, 3)
	require.NoError(t, err)
	assert.Equal(t, -100, score)

	// Time and hints are irrelevant for a miss.
	score, err = Score(2, false, 0, 0)
	require.NoError(t, err)
	assert.Equal(t, -100, score)
}

func TestScore_CorrectCanGoNegative(t *testing.T) {
	// Easy question, no speed bonus, many hints: 100 + 0 - 125 = -25.
	score, err := Score(1, true, QuestionTimeLimitMs, 5)
	require.NoError(t, err)
	assert.Equal(t, -25, score)
}

func TestScore_Rounding(t *testing.T) {
	// 19900 ms left over 200 = 0.5 bonus, rounds up.
	score, err := Score(1, true, 100, 0)
	require.NoError(t, err)
	assert.Equal(t, 200, score)
}

func TestScore_InvalidInput(t *testing.T) {
	_, err := Score(0, true, 1000, 0)
	assert.Error(t, err)

	_, err = Score(6, true, 1000, 0)
	assert.Error(t, err)

	_, err = Score(3, true, -1, 0)
	assert.Error(t, err)

	_, err = Score(3, true, 1000, -1)
	assert.Error(t, err)
}

func TestAttemptXP(t *testing.T) {
	assert.Equal(t, 30, AttemptXP(3, true))
	assert.Equal(t, 50, AttemptXP(5, true))
	assert.Equal(t, 0, AttemptXP(3, false))
}
