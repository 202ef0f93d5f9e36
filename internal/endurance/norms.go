package endurance

import "github.com/stemsi/psikotes-proctor/internal/model"

// Norm thresholds for graduate-level candidates.

// GradeSpeed grades the mean number of correct answers per column.
func GradeSpeed(panker float64) model.Grade {
	switch {
	case panker > 17.21:
		return model.GradeExcellent
	case panker >= 14.973:
		return model.GradeGood
	case panker >= 12.736:
		return model.GradeAverage
	case panker >= 10.5:
		return model.GradePoor
	default:
		return model.GradeVeryPoor
	}
}

// GradeStability grades the mean deviation of per-column correct counts;
// lower is steadier.
func GradeStability(janker float64) model.Grade {
	switch {
	case janker < 0.696:
		return model.GradeExcellent
	case janker <= 0.908:
		return model.GradeGood
	case janker <= 1.056:
		return model.GradeAverage
	case janker <= 1.779:
		return model.GradePoor
	default:
		return model.GradeVeryPoor
	}
}

// GradeAccuracy grades the total number of wrong answers.
func GradeAccuracy(errors int) model.Grade {
	switch {
	case errors == 0:
		return model.GradeExcellent
	case errors <= 1:
		return model.GradeGood
	case errors <= 3:
		return model.GradeAverage
	case errors <= 14:
		return model.GradePoor
	default:
		return model.GradeVeryPoor
	}
}
