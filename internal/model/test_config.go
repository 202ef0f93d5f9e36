package model

import "encoding/json"

// Question is an opaque question record. Correctness data stays with the backend;
// the runtime only needs the option count to bound an answer.
type Question struct {
	ID          int             `json:"id"`
	OptionCount int             `json:"option_count"`
	Payload     json.RawMessage `json:"payload,omitempty"`
}

// GridConfig configures the endurance grid test.
type GridConfig struct {
	Columns          int `json:"columns" validate:"required,min=1,max=200"`
	Rows             int `json:"rows" validate:"required,min=2,max=100"`
	PerColumnSeconds int `json:"durationPerColumn" validate:"required,min=1,max=600"`
}

// TotalSeconds is the session-level budget of the endurance test.
func (c GridConfig) TotalSeconds() int {
	return c.Columns * c.PerColumnSeconds
}

// Gaps is the number of answer slots per column.
func (c GridConfig) Gaps() int {
	return c.Rows - 1
}

// TestConfig is the backend-supplied configuration of one test.
type TestConfig struct {
	Kind      TestKind    `json:"kind"`
	Questions []Question  `json:"questions,omitempty"`
	Grid      *GridConfig `json:"grid,omitempty"`
}
