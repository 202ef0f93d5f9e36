package timed

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stemsi/psikotes-proctor/internal/model"
)

func questions(n, options int) []model.Question {
	qs := make([]model.Question, n)
	for i := range qs {
		qs[i] = model.Question{ID: i + 1, OptionCount: options}
	}
	return qs
}

func TestStart(t *testing.T) {
	t.Run("all unanswered", func(t *testing.T) {
		r, err := Start(questions(5, 6), 180)
		require.NoError(t, err)

		snap := r.Snapshot()
		assert.Len(t, snap, 5)
		for _, a := range snap {
			assert.Nil(t, a)
		}
		assert.Equal(t, 180, r.Remaining())
		assert.True(t, r.Running())
	})

	t.Run("rejects empty set", func(t *testing.T) {
		_, err := Start(nil, 180)
		assert.ErrorIs(t, err, ErrNoQuestions)
	})

	t.Run("rejects zero budget", func(t *testing.T) {
		_, err := Start(questions(1, 2), 0)
		assert.ErrorIs(t, err, ErrInvalidBudget)
	})
}

func TestAnswer(t *testing.T) {
	r, err := Start(questions(3, 2), 60)
	require.NoError(t, err)

	require.NoError(t, r.Answer(1, 0))
	require.NoError(t, r.Answer(1, 1))
	require.NoError(t, r.Answer(1, 1))

	snap := r.Snapshot()
	require.NotNil(t, snap[1])
	assert.Equal(t, 1, *snap[1])
	assert.Nil(t, snap[0])
	assert.Nil(t, snap[2])

	assert.ErrorIs(t, r.Answer(3, 0), ErrQuestionIndex)
	assert.ErrorIs(t, r.Answer(-1, 0), ErrQuestionIndex)
	assert.ErrorIs(t, r.Answer(0, 2), ErrOptionIndex)
	assert.Len(t, r.Snapshot(), 3)
}

func TestAnswerUnknownOptionCount(t *testing.T) {
	r, err := Start(questions(1, 0), 60)
	require.NoError(t, err)

	assert.NoError(t, r.Answer(0, 9))
	assert.ErrorIs(t, r.Answer(0, -1), ErrOptionIndex)
}

func TestSnapshotIsACopy(t *testing.T) {
	r, err := Start(questions(2, 4), 60)
	require.NoError(t, err)
	require.NoError(t, r.Answer(0, 3))

	snap := r.Snapshot()
	*snap[0] = 0

	assert.Equal(t, 3, *r.Snapshot()[0])
}

func TestTickExpiresOnce(t *testing.T) {
	r, err := Start(questions(5, 6), 3)
	require.NoError(t, err)
	require.NoError(t, r.Answer(0, 2))

	assert.False(t, r.Tick())
	assert.False(t, r.Tick())
	assert.True(t, r.Tick())
	assert.False(t, r.Tick())
	assert.Equal(t, 0, r.Remaining())
	assert.False(t, r.Running())

	assert.ErrorIs(t, r.Answer(1, 1), ErrNotRunning)

	snap := r.Snapshot()
	assert.Len(t, snap, 5)
	assert.Equal(t, 2, *snap[0])
	for i := 1; i < 5; i++ {
		assert.Nil(t, snap[i])
	}
}

func TestStop(t *testing.T) {
	r, err := Start(questions(2, 2), 10)
	require.NoError(t, err)
	r.Tick()
	r.Stop()

	assert.False(t, r.Tick())
	assert.Equal(t, 9, r.Remaining())
	assert.Equal(t, 1, r.Elapsed())
	assert.ErrorIs(t, r.Answer(0, 0), ErrNotRunning)
}
