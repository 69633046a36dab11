// Package generator turns curriculum paths into generated assessment questions,
// one external completion call per path.
package generator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/p-n-ai/highscore/internal/ai"
	"github.com/p-n-ai/highscore/internal/curriculum"
)

const (
	DefaultModel       = "llama3-8b-8192"
	DefaultTemperature = 0.7
	DefaultMaxTokens   = 2000
)

var (
	ErrMissingBaseQuestions = errors.New("please enter both base questions")
	ErrNoCurriculum         = errors.New("no valid curriculum paths found")
	ErrMissingCredential    = errors.New("please enter your API key")
	ErrBatchInProgress      = errors.New("a generation batch is already running")
	ErrEmptyResponse        = errors.New("empty response from generation service")
)

// Completer is the single capability the generator needs from a provider.
type Completer interface {
	Complete(ctx context.Context, req ai.CompletionRequest) (ai.CompletionResponse, error)
}

// Request is one generation batch.
type Request struct {
	BaseQ1 string
	BaseQ2 string
	Paths  []curriculum.Path
	Mode   Difficulty
}

// Validate checks the batch inputs before any external call is made.
func (r Request) Validate() error {
	if strings.TrimSpace(r.BaseQ1) == "" || strings.TrimSpace(r.BaseQ2) == "" {
		return ErrMissingBaseQuestions
	}
	if len(r.Paths) == 0 {
		return ErrNoCurriculum
	}
	if _, err := ParseDifficulty(string(r.Mode)); err != nil {
		return err
	}
	return nil
}

// ProgressKind identifies a step in a batch.
type ProgressKind string

const (
	BatchStarted  ProgressKind = "batch_started"
	PathStarted   ProgressKind = "path_started"
	PathSucceeded ProgressKind = "path_succeeded"
	PathFailed    ProgressKind = "path_failed"
)

// Progress describes one step of a running batch.
type Progress struct {
	Kind       ProgressKind
	Index      int // zero-based position in the batch, -1 for BatchStarted
	Total      int
	Path       curriculum.Path
	Difficulty Difficulty
	Err        error
}

// Observer is notified after every batch step, with the state already updated.
type Observer interface {
	Observe(ctx context.Context, state *State, p Progress)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(ctx context.Context, state *State, p Progress)

func (f ObserverFunc) Observe(ctx context.Context, state *State, p Progress) {
	f(ctx, state, p)
}

// Report summarizes a finished batch.
type Report struct {
	Results  []Result
	Failures []Failure
	Duration time.Duration
}

// Config holds generator settings.
type Config struct {
	Model string
	// Temperature must be positive; zero selects DefaultTemperature.
	Temperature float64
	MaxTokens   int
	Rand        RandSource
}

// Generator runs generation batches sequentially.
type Generator struct {
	model       string
	temperature float64
	maxTokens   int
	rng         RandSource
}

// New creates a generator, filling unset settings with defaults.
func New(cfg Config) *Generator {
	model := cfg.Model
	if model == "" {
		model = DefaultModel
	}
	temperature := cfg.Temperature
	if temperature == 0 {
		temperature = DefaultTemperature
	}
	maxTokens := cfg.MaxTokens
	if maxTokens == 0 {
		maxTokens = DefaultMaxTokens
	}
	rng := cfg.Rand
	if rng == nil {
		rng = globalRand{}
	}
	return &Generator{
		model:       model,
		temperature: temperature,
		maxTokens:   maxTokens,
		rng:         rng,
	}
}

// Generate runs one batch over req.Paths in order, one attempt per path. A
// failing path is recorded in state.Failures and the batch moves on. state is
// reset when the batch begins and its in-progress flag is cleared on return.
// observer may be nil.
func (g *Generator) Generate(ctx context.Context, client Completer, state *State, req Request, observer Observer) (Report, error) {
	if err := state.Begin(); err != nil {
		return Report{}, err
	}
	defer state.Finish()

	notify := func(p Progress) {
		if observer != nil {
			observer.Observe(ctx, state, p)
		}
	}

	start := time.Now()
	total := len(req.Paths)
	slog.Info("generation batch started", "paths", total, "difficulty", req.Mode, "model", g.model)
	notify(Progress{Kind: BatchStarted, Index: -1, Total: total})

	for i, path := range req.Paths {
		difficulty := req.Mode.Resolve(g.rng)
		step := Progress{Index: i, Total: total, Path: path, Difficulty: difficulty}

		step.Kind = PathStarted
		notify(step)

		resp, err := client.Complete(ctx, ai.CompletionRequest{
			Messages: []ai.Message{
				{Role: "system", Content: systemPrompt},
				{Role: "user", Content: BuildPrompt(req.BaseQ1, req.BaseQ2, path, difficulty)},
			},
			Model:       g.model,
			Temperature: g.temperature,
			MaxTokens:   g.maxTokens,
		})
		if err == nil && strings.TrimSpace(resp.Content) == "" {
			err = ErrEmptyResponse
		}

		if err != nil {
			err = fmt.Errorf("generate questions for %q: %w", path.Topic, err)
			slog.Warn("topic generation failed",
				"topic", path.Topic,
				"index", i,
				"error", err,
			)
			state.Failures = append(state.Failures, Failure{
				Path:       path,
				Difficulty: difficulty,
				Error:      err.Error(),
				Reason:     FailureReason(err),
			})
			step.Kind = PathFailed
			step.Err = err
			notify(step)
			continue
		}

		state.Results = append(state.Results, Result{
			Subject:      path.Subject,
			Unit:         path.Unit,
			Topic:        path.Topic,
			Difficulty:   difficulty,
			Content:      resp.Content,
			Model:        resp.Model,
			InputTokens:  resp.InputTokens,
			OutputTokens: resp.OutputTokens,
		})
		slog.Debug("topic generated",
			"topic", path.Topic,
			"difficulty", difficulty,
			"input_tokens", resp.InputTokens,
			"output_tokens", resp.OutputTokens,
		)
		step.Kind = PathSucceeded
		notify(step)
	}

	report := Report{
		Results:  append([]Result(nil), state.Results...),
		Failures: append([]Failure(nil), state.Failures...),
		Duration: time.Since(start),
	}
	slog.Info("generation batch finished",
		"succeeded", len(report.Results),
		"failed", len(report.Failures),
		"duration", report.Duration,
	)
	return report, nil
}

// Failure reasons shown to the user.
const (
	ReasonCredentialRejected = "API key rejected"
	ReasonRateLimited        = "quota or rate limit exceeded"
	ReasonEmptyResponse      = "empty response"
)

// FailureReason maps a generation error to a short cause, or "" when the
// error carries none.
func FailureReason(err error) string {
	var apiErr *ai.APIError
	switch {
	case errors.As(err, &apiErr) && apiErr.Unauthorized():
		return ReasonCredentialRejected
	case errors.As(err, &apiErr) && apiErr.RateLimited():
		return ReasonRateLimited
	case errors.Is(err, ErrEmptyResponse):
		return ReasonEmptyResponse
	}
	return ""
}
