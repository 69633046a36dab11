package generator

import (
	"fmt"
	"math/rand/v2"
	"strings"
)

// Difficulty is a requested or resolved question difficulty.
type Difficulty string

const (
	Easy     Difficulty = "easy"
	Moderate Difficulty = "moderate"
	Hard     Difficulty = "hard"
	// Mix assigns each path an independent random concrete difficulty.
	Mix Difficulty = "mix"
)

// Concrete lists the difficulties a Mix draw can produce.
var Concrete = []Difficulty{Easy, Moderate, Hard}

// Modes lists every selectable difficulty mode in display order.
var Modes = []Difficulty{Easy, Moderate, Hard, Mix}

// RandSource draws uniform integers in [0, n).
type RandSource interface {
	IntN(n int) int
}

type globalRand struct{}

func (globalRand) IntN(n int) int { return rand.IntN(n) }

// NewSeededRand returns a deterministic source for tests and reproducible runs.
func NewSeededRand(seed uint64) *rand.Rand {
	return rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
}

// ParseDifficulty parses a difficulty mode, case-insensitively.
func ParseDifficulty(s string) (Difficulty, error) {
	d := Difficulty(strings.ToLower(strings.TrimSpace(s)))
	switch d {
	case Easy, Moderate, Hard, Mix:
		return d, nil
	default:
		return "", fmt.Errorf("unknown difficulty %q: must be easy, moderate, hard or mix", s)
	}
}

// Resolve returns the concrete difficulty for one path. Only Mix consults rng.
func (d Difficulty) Resolve(rng RandSource) Difficulty {
	if d != Mix {
		return d
	}
	if rng == nil {
		rng = globalRand{}
	}
	return Concrete[rng.IntN(len(Concrete))]
}

func (d Difficulty) String() string {
	return string(d)
}
