package endurance

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stemsi/psikotes-proctor/internal/model"
)

func digits(vs ...int) []*int {
	out := make([]*int, len(vs))
	for i, v := range vs {
		if v < 0 {
			continue
		}
		d := v
		out[i] = &d
	}
	return out
}

func TestGridKey(t *testing.T) {
	assert.Equal(t, []int{0, 9, 1}, []int{
		exampleGrid.Key(0, 0),
		exampleGrid.Key(0, 1),
		exampleGrid.Key(0, 2),
	})
}

func TestScoreExampleColumn(t *testing.T) {
	answers := [][]*int{
		digits(0, 9, 1),
		digits(-1, -1, -1),
		digits(-1, -1, -1),
	}

	rep := Score(exampleGrid, answers)

	require.Len(t, rep.Columns, 3)
	assert.Equal(t, model.ColumnScore{Attempted: 3, Correct: 3}, rep.Columns[0])
	assert.Equal(t, model.ColumnScore{Omitted: 3}, rep.Columns[1])
	assert.Equal(t, 3, rep.TotalCorrect)
	assert.Equal(t, 0, rep.TotalErrors)
	assert.Equal(t, 6, rep.TotalOmitted)
	assert.Equal(t, 1.0, rep.Panker)
	assert.Equal(t, 1.33, rep.Janker)
	assert.Equal(t, 1.0, rep.Accuracy)
	assert.Equal(t, 1.0, rep.MeanCorrect)
	assert.Equal(t, model.GradeExcellent, rep.AccuracyNorm)
}

func TestScoreCountsErrors(t *testing.T) {
	answers := [][]*int{
		digits(0, 8, 1),  // one wrong
		digits(6, 3, 2),  // keys: 6, 3, 2
		digits(8, -1, 0), // keys: 8, 1, 0
	}

	rep := Score(exampleGrid, answers)

	assert.Equal(t, model.ColumnScore{Attempted: 3, Correct: 2, Incorrect: 1}, rep.Columns[0])
	assert.Equal(t, model.ColumnScore{Attempted: 3, Correct: 3}, rep.Columns[1])
	assert.Equal(t, model.ColumnScore{Attempted: 2, Correct: 2, Omitted: 1}, rep.Columns[2])
	assert.Equal(t, 1, rep.TotalErrors)
	assert.Equal(t, 8, rep.TotalAttempted)
	assert.Equal(t, 2.67, rep.Panker)
	assert.Equal(t, 0.44, rep.Janker)
	assert.Equal(t, 0.88, rep.Accuracy)
	assert.Equal(t, model.GradeGood, rep.AccuracyNorm)
	assert.Equal(t, model.GradeExcellent, rep.Stability)
	assert.Equal(t, model.GradeVeryPoor, rep.SpeedGrade)
	assert.Contains(t, rep.Interpretation, "Ketelitian: Baik")
}

func TestScoreGradesSpeedOnCorrectAnswers(t *testing.T) {
	g, err := Generate(model.GridConfig{Columns: 4, Rows: 28, PerColumnSeconds: 15}, nil)
	require.NoError(t, err)

	// Every slot filled, every answer wrong.
	answers := make([][]*int, g.Columns())
	for c := range answers {
		answers[c] = make([]*int, g.Rows()-1)
		for gap := range answers[c] {
			v := (g.Key(c, gap) + 1) % 10
			answers[c][gap] = &v
		}
	}

	rep := Score(g, answers)

	assert.Equal(t, 27.0, rep.Panker)
	assert.Equal(t, 0.0, rep.MeanCorrect)
	assert.Equal(t, 0.0, rep.CorrectDeviation)
	assert.Equal(t, 108, rep.TotalErrors)
	assert.Equal(t, model.GradeVeryPoor, rep.SpeedGrade)
	assert.Equal(t, model.GradeVeryPoor, rep.AccuracyNorm)
}

func TestScoreGradesStabilityOnCorrectCounts(t *testing.T) {
	answers := [][]*int{
		digits(0, 9, 1), // 3 correct
		digits(6, 3, 2), // 3 correct
		digits(9, 2, 1), // 0 correct, same pace
	}

	rep := Score(exampleGrid, answers)

	assert.Equal(t, 0.0, rep.Janker)
	assert.Equal(t, 2.0, rep.MeanCorrect)
	assert.Equal(t, 1.33, rep.CorrectDeviation)
	assert.Equal(t, model.GradePoor, rep.Stability)
}

func TestScoreToleratesShortAnswerMatrix(t *testing.T) {
	rep := Score(exampleGrid, [][]*int{digits(0)})

	assert.Equal(t, 1, rep.TotalCorrect)
	assert.Equal(t, 8, rep.TotalOmitted)
	assert.Len(t, rep.Columns, 3)
}

func TestScoreNothingAttempted(t *testing.T) {
	rep := Score(exampleGrid, nil)

	assert.Equal(t, 0.0, rep.Panker)
	assert.Equal(t, 0.0, rep.Janker)
	assert.Equal(t, 0.0, rep.Accuracy)
	assert.Equal(t, 9, rep.TotalOmitted)
}

func TestScoreIsDeterministic(t *testing.T) {
	g, err := Generate(model.GridConfig{Columns: 20, Rows: 10, PerColumnSeconds: 15}, nil)
	require.NoError(t, err)

	answers := make([][]*int, g.Columns())
	for c := range answers {
		answers[c] = make([]*int, g.Rows()-1)
		for gap := 0; gap < c%(g.Rows()-1); gap++ {
			v := (g.Key(c, gap) + gap%2) % 10
			answers[c][gap] = &v
		}
	}

	assert.Equal(t, Score(g, answers), Score(g, answers))
}

func TestNormBoundaries(t *testing.T) {
	speed := []struct {
		in   float64
		want model.Grade
	}{
		{17.22, model.GradeExcellent},
		{17.21, model.GradeGood},
		{14.973, model.GradeGood},
		{14.9, model.GradeAverage},
		{12.736, model.GradeAverage},
		{10.5, model.GradePoor},
		{10.49, model.GradeVeryPoor},
	}
	for _, tc := range speed {
		assert.Equal(t, tc.want, GradeSpeed(tc.in), "speed %v", tc.in)
	}

	stability := []struct {
		in   float64
		want model.Grade
	}{
		{0.695, model.GradeExcellent},
		{0.696, model.GradeGood},
		{0.908, model.GradeGood},
		{1.056, model.GradeAverage},
		{1.779, model.GradePoor},
		{1.78, model.GradeVeryPoor},
	}
	for _, tc := range stability {
		assert.Equal(t, tc.want, GradeStability(tc.in), "stability %v", tc.in)
	}

	accuracy := []struct {
		in   int
		want model.Grade
	}{
		{0, model.GradeExcellent},
		{1, model.GradeGood},
		{3, model.GradeAverage},
		{14, model.GradePoor},
		{15, model.GradeVeryPoor},
	}
	for _, tc := range accuracy {
		assert.Equal(t, tc.want, GradeAccuracy(tc.in), "errors %d", tc.in)
	}
}
