// Package endurance implements the Kraepelin-style numeric endurance test:
// grid generation, bottom-to-top column navigation, and scoring.
package endurance

import (
	"errors"
	"math/rand/v2"

	"github.com/stemsi/psikotes-proctor/internal/model"
)

var ErrInvalidConfig = errors.New("invalid grid configuration")

// Source yields integers in [0, n). *rand.Rand satisfies it.
type Source interface {
	IntN(n int) int
}

// DefaultSource is an unseeded PCG source. Sampling is not security sensitive.
func DefaultSource() Source {
	return rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
}

// Grid is a column-major matrix of digits 1-9: Grid[col][row].
type Grid [][]int

// Generate draws a columns x rows grid of uniform digits 1-9.
func Generate(cfg model.GridConfig, src Source) (Grid, error) {
	if cfg.Columns < 1 || cfg.Rows < 2 {
		return nil, ErrInvalidConfig
	}
	if src == nil {
		src = DefaultSource()
	}
	g := make(Grid, cfg.Columns)
	for c := range g {
		g[c] = make([]int, cfg.Rows)
		for r := range g[c] {
			g[c][r] = src.IntN(9) + 1
		}
	}
	return g, nil
}

// Columns returns the number of columns.
func (g Grid) Columns() int { return len(g) }

// Rows returns the number of rows, or 0 for an empty grid.
func (g Grid) Rows() int {
	if len(g) == 0 {
		return 0
	}
	return len(g[0])
}

// Key returns the expected answer for the gap below row: (upper + lower) mod 10.
func (g Grid) Key(col, gap int) int {
	return (g[col][gap] + g[col][gap+1]) % 10
}

// Clone deep-copies the grid.
func (g Grid) Clone() Grid {
	out := make(Grid, len(g))
	for c := range g {
		out[c] = append([]int(nil), g[c]...)
	}
	return out
}

// Raw exposes the grid as a plain matrix for serialization.
func (g Grid) Raw() [][]int {
	return g.Clone()
}
