package web

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/p-n-ai/highscore/internal/curriculum"
	"github.com/p-n-ai/highscore/internal/events"
	"github.com/p-n-ai/highscore/internal/generator"
)

const (
	inputText   = "text"
	inputExcel  = "excel"
	inputPreset = "preset"
)

var (
	errMissingCurriculum = errors.New("please provide curriculum data")
	errUnknownPreset     = errors.New("unknown curriculum preset")
	errInputMethod       = errors.New("unknown curriculum input method")
)

// inputError is a problem with the submitted form, reported inline.
type inputError struct {
	status int
	err    error
}

func (e *inputError) Error() string { return e.err.Error() }
func (e *inputError) Unwrap() error { return e.err }

func badInput(err error) *inputError {
	return &inputError{status: http.StatusBadRequest, err: err}
}

func (s *Server) handleGenerate(w http.ResponseWriter, r *http.Request) {
	id := s.sessionID(w, r)
	r.Body = http.MaxBytesReader(w, r.Body, s.maxUpload)

	form, err := s.readForm(r)
	if err != nil {
		s.rejectInput(w, r, id, form, err)
		return
	}

	req, rejected, apiKey, err := s.buildRequest(r, form)
	if err != nil {
		s.rejectInput(w, r, id, form, err)
		return
	}

	// The batch runs to completion even if the browser goes away.
	ctx := context.WithoutCancel(r.Context())

	state, err := s.claim(ctx, id)
	if err != nil {
		var ie *inputError
		if !errors.As(err, &ie) {
			slog.Error("failed to claim session", "session_id", id, "error", err)
			ie = &inputError{status: http.StatusInternalServerError, err: errors.New("failed to load session")}
		}
		s.rejectInput(w, r, id, form, ie)
		return
	}
	state.Rejected = rejected
	if len(rejected) > 0 {
		s.logEvent(ctx, id, events.InputRejected, map[string]any{"count": len(rejected)})
	}

	report, err := s.gen.Generate(ctx, s.providers(apiKey), state, req, s.observer(id))
	if err != nil {
		slog.Error("generation batch did not start", "session_id", id, "error", err)
	} else {
		s.logEvent(ctx, id, events.BatchFinished, map[string]any{
			"succeeded":   len(report.Results),
			"failed":      len(report.Failures),
			"duration_ms": report.Duration.Milliseconds(),
		})
	}
	if serr := s.sessions.Save(ctx, id, state); serr != nil {
		slog.Error("failed to save session", "session_id", id, "error", serr)
	}
	if err != nil {
		s.render(w, http.StatusInternalServerError, pageData{State: state, Form: form, Error: err.Error()})
		return
	}

	msg := fmt.Sprintf("Generated questions for %d of %d topics", len(report.Results), len(req.Paths))
	if r.Header.Get("Accept") == "application/json" {
		writeJSON(w, http.StatusOK, state)
		return
	}
	http.Redirect(w, r, "/?msg="+url.QueryEscape(msg), http.StatusSeeOther)
}

// readForm reads the submitted fields, without the uploaded file.
func (s *Server) readForm(r *http.Request) (formValues, error) {
	var err error
	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		err = r.ParseMultipartForm(s.maxUpload)
	} else {
		err = r.ParseForm()
	}

	form := formValues{
		Difficulty:  r.FormValue("difficulty"),
		InputMethod: r.FormValue("input_method"),
		BaseQ1:      r.FormValue("base_q1"),
		BaseQ2:      r.FormValue("base_q2"),
		Curriculum:  r.FormValue("curriculum"),
		Preset:      r.FormValue("preset"),
	}
	if form.InputMethod == "" {
		form.InputMethod = inputText
	}
	if form.Difficulty == "" {
		form.Difficulty = string(generator.Mix)
	}

	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return form, &inputError{
				status: http.StatusRequestEntityTooLarge,
				err:    fmt.Errorf("upload exceeds %d MB", s.maxUpload>>20),
			}
		}
		return form, badInput(fmt.Errorf("read form: %w", err))
	}
	return form, nil
}

// buildRequest validates the form in the order the user fills it in: base
// questions, curriculum, then credential. No external call happens before
// every check passes.
func (s *Server) buildRequest(r *http.Request, form formValues) (generator.Request, []string, string, error) {
	if strings.TrimSpace(form.BaseQ1) == "" || strings.TrimSpace(form.BaseQ2) == "" {
		return generator.Request{}, nil, "", badInput(generator.ErrMissingBaseQuestions)
	}

	parsed, err := s.readCurriculum(r, form)
	if err != nil {
		return generator.Request{}, nil, "", err
	}

	apiKey := strings.TrimSpace(r.FormValue("api_key"))
	if apiKey == "" {
		apiKey = s.defaultKey
	}
	if apiKey == "" {
		return generator.Request{}, parsed.Rejected, "", badInput(generator.ErrMissingCredential)
	}

	mode, err := generator.ParseDifficulty(form.Difficulty)
	if err != nil {
		return generator.Request{}, parsed.Rejected, "", badInput(err)
	}

	req := generator.Request{
		BaseQ1: form.BaseQ1,
		BaseQ2: form.BaseQ2,
		Paths:  parsed.Paths,
		Mode:   mode,
	}
	if err := req.Validate(); err != nil {
		return generator.Request{}, parsed.Rejected, "", badInput(err)
	}
	return req, parsed.Rejected, apiKey, nil
}

func (s *Server) readCurriculum(r *http.Request, form formValues) (curriculum.ParseResult, error) {
	switch form.InputMethod {
	case inputText:
		if strings.TrimSpace(form.Curriculum) == "" {
			return curriculum.ParseResult{}, badInput(errMissingCurriculum)
		}
		return curriculum.ParseText(form.Curriculum), nil

	case inputExcel:
		file, _, err := r.FormFile("curriculum_file")
		if errors.Is(err, http.ErrMissingFile) {
			return curriculum.ParseResult{}, badInput(errMissingCurriculum)
		}
		if err != nil {
			return curriculum.ParseResult{}, badInput(fmt.Errorf("read upload: %w", err))
		}
		defer file.Close()

		parsed, err := curriculum.ParseWorkbook(file)
		if errors.Is(err, curriculum.ErrTooFewColumns) {
			return curriculum.ParseResult{}, badInput(errors.New("excel file must have at least 3 columns: Subject, Unit, Topic"))
		}
		if err != nil {
			return curriculum.ParseResult{}, badInput(fmt.Errorf("error reading excel file: %w", err))
		}
		return parsed, nil

	case inputPreset:
		if form.Preset == "" {
			return curriculum.ParseResult{}, badInput(errMissingCurriculum)
		}
		preset, ok := s.presets.Preset(form.Preset)
		if !ok {
			return curriculum.ParseResult{}, badInput(fmt.Errorf("%w: %s", errUnknownPreset, form.Preset))
		}
		return curriculum.ParseResult{Paths: preset.Paths}, nil
	}

	return curriculum.ParseResult{}, badInput(fmt.Errorf("%w: %q", errInputMethod, form.InputMethod))
}

// claim loads the session state and marks it as running in the store, so a
// concurrent submit from the same session sees the batch in progress.
func (s *Server) claim(ctx context.Context, id string) (*generator.State, error) {
	s.claimMu.Lock()
	defer s.claimMu.Unlock()

	state, err := s.sessions.Load(ctx, id)
	if err != nil {
		return nil, err
	}
	if state.InProgress {
		return nil, &inputError{status: http.StatusConflict, err: generator.ErrBatchInProgress}
	}

	marker := state.Clone()
	marker.InProgress = true
	if err := s.sessions.Save(ctx, id, marker); err != nil {
		return nil, err
	}
	return state, nil
}

// observer persists partial results after every step and records the batch
// lifecycle in the event log.
func (s *Server) observer(id string) generator.Observer {
	return generator.ObserverFunc(func(ctx context.Context, state *generator.State, p generator.Progress) {
		if err := s.sessions.Save(ctx, id, state); err != nil {
			slog.Warn("failed to save partial session state", "session_id", id, "error", err)
		}

		switch p.Kind {
		case generator.BatchStarted:
			s.logEvent(ctx, id, events.BatchStarted, map[string]any{"paths": p.Total})
		case generator.PathSucceeded:
			s.logEvent(ctx, id, events.TopicGenerated, map[string]any{
				"index":      p.Index,
				"topic":      p.Path.Topic,
				"difficulty": p.Difficulty,
			})
		case generator.PathFailed:
			s.logEvent(ctx, id, events.TopicFailed, map[string]any{
				"index":      p.Index,
				"topic":      p.Path.Topic,
				"difficulty": p.Difficulty,
				"error":      p.Err.Error(),
				"reason":     generator.FailureReason(p.Err),
			})
		}
	})
}

func (s *Server) rejectInput(w http.ResponseWriter, r *http.Request, id string, form formValues, err error) {
	status := http.StatusBadRequest
	var ie *inputError
	if errors.As(err, &ie) {
		status = ie.status
	}
	slog.Info("generate request rejected", "session_id", id, "status", status, "error", err)

	if r.Header.Get("Accept") == "application/json" {
		writeJSON(w, status, map[string]string{"error": err.Error()})
		return
	}

	state, lerr := s.sessions.Load(r.Context(), id)
	if lerr != nil {
		state = nil
	}
	s.render(w, status, pageData{State: state, Form: form, Error: capitalize(err.Error())})
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
