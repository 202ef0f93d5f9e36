package model

// Grade is a norm category of the endurance metrics.
type Grade string

const (
	GradeExcellent Grade = "Baik Sekali"
	GradeGood      Grade = "Baik"
	GradeAverage   Grade = "Sedang"
	GradePoor      Grade = "Kurang"
	GradeVeryPoor  Grade = "Kurang Sekali"
)

// ColumnScore tallies one endurance column.
type ColumnScore struct {
	Attempted int `json:"attempted"`
	Correct   int `json:"correct"`
	Incorrect int `json:"incorrect"`
	Omitted   int `json:"omitted"`
}

// EnduranceReport is the scored result of an endurance grid attempt.
// The camelCase tags are the keys the HR backend reads from "results".
type EnduranceReport struct {
	Columns        []ColumnScore `json:"columns"`
	TotalAttempted int           `json:"total_attempted"`
	TotalCorrect   int           `json:"total_correct"`
	TotalErrors    int           `json:"totalErrors"`
	TotalOmitted   int           `json:"total_omitted"`

	// Panker is the mean number of attempted slots per column.
	Panker float64 `json:"panker"`
	// Janker is the mean absolute deviation of attempted slots per column.
	Janker      float64 `json:"janker"`
	Accuracy    float64 `json:"accuracy"`
	MeanCorrect float64 `json:"mean_correct"`
	// CorrectDeviation is the mean absolute deviation of correct answers per column.
	CorrectDeviation float64 `json:"correct_deviation"`

	// SpeedGrade and Stability are graded from MeanCorrect and CorrectDeviation.
	SpeedGrade   Grade `json:"gradeSpeed"`
	Stability    Grade `json:"gradeStability"`
	AccuracyNorm Grade `json:"gradeAccuracy"`

	Interpretation string `json:"interpretation"`
}

// Submission is what a finished test run hands to the backend.
type Submission struct {
	Token          string           `json:"token"`
	Kind           TestKind         `json:"kind"`
	Answers        []*int           `json:"answers,omitempty"`
	Grid           [][]int          `json:"grid,omitempty"`
	GridAnswers    [][]*int         `json:"grid_answers,omitempty"`
	Report         *EnduranceReport `json:"results,omitempty"`
	Cause          CompletionCause  `json:"cause"`
	ViolationCount int              `json:"violation_count"`
	ElapsedSeconds int              `json:"elapsed_seconds"`
}

// AnsweredCount counts the filled answers or grid slots.
func (s *Submission) AnsweredCount() int {
	n := 0
	for _, a := range s.Answers {
		if a != nil {
			n++
		}
	}
	for _, col := range s.GridAnswers {
		for _, a := range col {
			if a != nil {
				n++
			}
		}
	}
	return n
}
