package endurance

import (
	"fmt"
	"math"

	"github.com/stemsi/psikotes-proctor/internal/model"
)

// Score evaluates answers against grid. Missing columns or slots count as
// omitted. The result depends only on its inputs, so re-scoring after a failed
// submission yields the identical report.
func Score(grid Grid, answers [][]*int) model.EnduranceReport {
	cols := grid.Columns()
	gaps := grid.Rows() - 1
	if gaps < 0 {
		gaps = 0
	}

	rep := model.EnduranceReport{Columns: make([]model.ColumnScore, cols)}

	for c := 0; c < cols; c++ {
		var col []*int
		if c < len(answers) {
			col = answers[c]
		}
		var cs model.ColumnScore
		for gap := 0; gap < gaps; gap++ {
			if gap >= len(col) || col[gap] == nil {
				cs.Omitted++
				continue
			}
			cs.Attempted++
			if *col[gap] == grid.Key(c, gap) {
				cs.Correct++
			} else {
				cs.Incorrect++
			}
		}
		rep.Columns[c] = cs
		rep.TotalAttempted += cs.Attempted
		rep.TotalCorrect += cs.Correct
		rep.TotalErrors += cs.Incorrect
		rep.TotalOmitted += cs.Omitted
	}

	var panker, janker, meanCorrect, correctDev, accuracy float64
	if cols > 0 {
		panker = float64(rep.TotalAttempted) / float64(cols)
		meanCorrect = float64(rep.TotalCorrect) / float64(cols)

		var dev, cdev float64
		for _, cs := range rep.Columns {
			dev += math.Abs(float64(cs.Attempted) - panker)
			cdev += math.Abs(float64(cs.Correct) - meanCorrect)
		}
		janker = dev / float64(cols)
		correctDev = cdev / float64(cols)
	}
	if rep.TotalAttempted > 0 {
		accuracy = float64(rep.TotalCorrect) / float64(rep.TotalAttempted)
	}

	// The graduate norms are calibrated on correct answers, not on raw pace.
	rep.SpeedGrade = GradeSpeed(meanCorrect)
	rep.Stability = GradeStability(correctDev)
	rep.AccuracyNorm = GradeAccuracy(rep.TotalErrors)

	rep.Panker = round2(panker)
	rep.Janker = round2(janker)
	rep.MeanCorrect = round2(meanCorrect)
	rep.CorrectDeviation = round2(correctDev)
	rep.Accuracy = round2(accuracy)
	rep.Interpretation = fmt.Sprintf("Kecepatan: %s, Stabilitas: %s, Ketelitian: %s",
		rep.SpeedGrade, rep.Stability, rep.AccuracyNorm)

	return rep
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
