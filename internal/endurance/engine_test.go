package endurance

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stemsi/psikotes-proctor/internal/model"
)

// seqSource replays digits 1-9 in order, cycling.
type seqSource struct {
	values []int
	i      int
}

func (s *seqSource) IntN(n int) int {
	v := s.values[s.i%len(s.values)] - 1
	s.i++
	return v % n
}

var exampleGrid = Grid{
	{3, 7, 2, 9},
	{1, 5, 8, 4},
	{6, 2, 9, 1},
}

var exampleConfig = model.GridConfig{Columns: 3, Rows: 4, PerColumnSeconds: 15}

func newExampleEngine(t *testing.T) *Engine {
	t.Helper()
	e, err := NewEngine(exampleConfig, exampleGrid)
	require.NoError(t, err)
	return e
}

func TestGenerate(t *testing.T) {
	t.Run("dimensions and digit range", func(t *testing.T) {
		g, err := Generate(model.GridConfig{Columns: 50, Rows: 27, PerColumnSeconds: 15}, nil)
		require.NoError(t, err)
		assert.Equal(t, 50, g.Columns())
		assert.Equal(t, 27, g.Rows())
		for _, col := range g {
			for _, v := range col {
				assert.GreaterOrEqual(t, v, 1)
				assert.LessOrEqual(t, v, 9)
			}
		}
	})

	t.Run("deterministic source", func(t *testing.T) {
		src := &seqSource{values: []int{3, 7, 2, 9, 1, 5, 8, 4, 6, 2, 9, 1}}
		g, err := Generate(exampleConfig, src)
		require.NoError(t, err)
		assert.Equal(t, exampleGrid, g)
	})

	t.Run("rejects degenerate shapes", func(t *testing.T) {
		_, err := Generate(model.GridConfig{Columns: 0, Rows: 4}, nil)
		assert.ErrorIs(t, err, ErrInvalidConfig)
		_, err = Generate(model.GridConfig{Columns: 3, Rows: 1}, nil)
		assert.ErrorIs(t, err, ErrInvalidConfig)
	})
}

func TestNewEngineShapeMismatch(t *testing.T) {
	_, err := NewEngine(model.GridConfig{Columns: 2, Rows: 4, PerColumnSeconds: 5}, exampleGrid)
	assert.ErrorIs(t, err, ErrGridShape)

	_, err = NewEngine(model.GridConfig{Columns: 3, Rows: 5, PerColumnSeconds: 5}, exampleGrid)
	assert.ErrorIs(t, err, ErrGridShape)

	_, err = NewEngine(model.GridConfig{Columns: 3, Rows: 4, PerColumnSeconds: 0}, exampleGrid)
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestSlotSequenceBottomToTop(t *testing.T) {
	e := newExampleEngine(t)

	var observed []int
	for i := 0; i < 3; i++ {
		col, slot := e.Position()
		require.Equal(t, 0, col)
		observed = append(observed, slot)
		_, err := e.Key(5)
		require.NoError(t, err)
	}
	assert.Equal(t, []int{2, 1, 0}, observed)

	col, slot := e.Position()
	assert.Equal(t, 1, col, "filling gap 0 advances the column")
	assert.Equal(t, 2, slot)
	assert.Equal(t, 15, e.ColumnTimeRemaining())
}

func TestKeySteps(t *testing.T) {
	e := newExampleEngine(t)

	step, err := e.Key(1)
	require.NoError(t, err)
	assert.Equal(t, StepSlot, step)

	step, err = e.Key(9)
	require.NoError(t, err)
	assert.Equal(t, StepSlot, step)

	step, err = e.Key(0)
	require.NoError(t, err)
	assert.Equal(t, StepColumn, step)

	answers := e.Answers()
	assert.Equal(t, 0, *answers[0][0])
	assert.Equal(t, 9, *answers[0][1])
	assert.Equal(t, 1, *answers[0][2])
}

func TestKeyRejectsNonDigits(t *testing.T) {
	e := newExampleEngine(t)
	_, err := e.Key(10)
	assert.ErrorIs(t, err, ErrInvalidDigit)
	_, err = e.Key(-1)
	assert.ErrorIs(t, err, ErrInvalidDigit)

	_, slot := e.Position()
	assert.Equal(t, 2, slot, "rejected input does not move the cursor")
}

func TestColumnTimeoutLeavesSlotsUnanswered(t *testing.T) {
	e := newExampleEngine(t)
	_, err := e.Key(1)
	require.NoError(t, err)

	for i := 0; i < 14; i++ {
		assert.Equal(t, StepNone, e.Tick())
	}
	assert.Equal(t, StepColumn, e.Tick())

	col, slot := e.Position()
	assert.Equal(t, 1, col)
	assert.Equal(t, 2, slot)

	answers := e.Answers()
	assert.NotNil(t, answers[0][2])
	assert.Nil(t, answers[0][1])
	assert.Nil(t, answers[0][0])
}

func TestSkipBehavesLikeExpiry(t *testing.T) {
	e := newExampleEngine(t)
	e.Tick()
	e.Tick()

	step, err := e.Skip()
	require.NoError(t, err)
	assert.Equal(t, StepColumn, step)
	assert.Equal(t, 15, e.ColumnTimeRemaining())

	col, _ := e.Position()
	assert.Equal(t, 1, col)
}

func TestNoBackwardNavigation(t *testing.T) {
	e := newExampleEngine(t)

	last := 0
	for !e.Finished() {
		col, _ := e.Position()
		assert.GreaterOrEqual(t, col, last)
		last = col
		_, err := e.Skip()
		require.NoError(t, err)
	}
	assert.Equal(t, 2, last)
}

func TestFinishAfterLastColumn(t *testing.T) {
	e := newExampleEngine(t)

	_, _ = e.Skip()
	_, _ = e.Skip()
	step, err := e.Skip()
	require.NoError(t, err)
	assert.Equal(t, StepFinished, step)
	assert.True(t, e.Finished())

	_, err = e.Key(3)
	assert.ErrorIs(t, err, ErrFinished)
	_, err = e.Skip()
	assert.ErrorIs(t, err, ErrFinished)
	assert.Equal(t, StepNone, e.Tick())
}

func TestStopFreezesAnswers(t *testing.T) {
	e := newExampleEngine(t)
	_, _ = e.Key(1)
	e.Stop()

	_, err := e.Key(9)
	assert.ErrorIs(t, err, ErrFinished)

	answers := e.Answers()
	assert.Equal(t, 1, *answers[0][2])
	assert.Nil(t, answers[0][1])
}

func TestTwoRowGridHasSingleGap(t *testing.T) {
	cfg := model.GridConfig{Columns: 2, Rows: 2, PerColumnSeconds: 5}
	e, err := NewEngine(cfg, Grid{{4, 8}, {1, 1}})
	require.NoError(t, err)

	_, slot := e.Position()
	assert.Equal(t, 0, slot)

	step, err := e.Key(2)
	require.NoError(t, err)
	assert.Equal(t, StepColumn, step)

	step, err = e.Key(2)
	require.NoError(t, err)
	assert.Equal(t, StepFinished, step)

	rep := e.Report()
	assert.Equal(t, 2, rep.TotalCorrect)
}

func TestGridIsImmutableFromOutside(t *testing.T) {
	e := newExampleEngine(t)
	g := e.Grid()
	g[0][0] = 9

	assert.Equal(t, 3, e.Grid()[0][0])
}
