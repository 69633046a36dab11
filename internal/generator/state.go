package generator

import (
	"time"

	"github.com/p-n-ai/highscore/internal/curriculum"
)

// Result is one successful generation for a curriculum path.
type Result struct {
	Subject      string     `json:"subject"`
	Unit         string     `json:"unit"`
	Topic        string     `json:"topic"`
	Difficulty   Difficulty `json:"difficulty"`
	Content      string     `json:"content"`
	Model        string     `json:"model,omitempty"`
	InputTokens  int        `json:"input_tokens,omitempty"`
	OutputTokens int        `json:"output_tokens,omitempty"`
}

// Failure records a path whose generation call did not produce content.
type Failure struct {
	Path       curriculum.Path `json:"path"`
	Difficulty Difficulty      `json:"difficulty"`
	Error      string          `json:"error"`
	// Reason is a short user-facing cause when the service reported one.
	Reason string `json:"reason,omitempty"`
}

// State is the session-scoped view of the latest generation batch.
type State struct {
	Results    []Result  `json:"results"`
	Failures   []Failure `json:"failures,omitempty"`
	Rejected   []string  `json:"rejected,omitempty"`
	InProgress bool      `json:"in_progress"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// Begin starts a new batch, clearing the previous one. It fails if a batch is
// already running in this session.
func (s *State) Begin() error {
	if s.InProgress {
		return ErrBatchInProgress
	}
	s.Results = []Result{}
	s.Failures = nil
	s.InProgress = true
	s.UpdatedAt = time.Now()
	return nil
}

// Finish marks the batch as no longer running.
func (s *State) Finish() {
	s.InProgress = false
	s.UpdatedAt = time.Now()
}

// Clone returns a deep copy safe to hand to another goroutine.
func (s *State) Clone() *State {
	c := *s
	c.Results = append([]Result(nil), s.Results...)
	c.Failures = append([]Failure(nil), s.Failures...)
	c.Rejected = append([]string(nil), s.Rejected...)
	return &c
}
