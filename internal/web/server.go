// Package web serves the question generator's browser interface.
package web

import (
	"context"
	"embed"
	"encoding/json"
	"fmt"
	"html/template"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/microcosm-cc/bluemonday"

	"github.com/p-n-ai/highscore/internal/ai"
	"github.com/p-n-ai/highscore/internal/curriculum"
	"github.com/p-n-ai/highscore/internal/events"
	"github.com/p-n-ai/highscore/internal/generator"
	"github.com/p-n-ai/highscore/internal/session"
)

const exampleCurriculum = "Quantitative Math | Problem Solving | Numbers and Operations; " +
	"Quantitative Math | Algebra | Quadratic Equations & Functions; " +
	"Quantitative Math | Geometry and Measurement | Area & Volume"

//go:embed templates/*.html
var templateFS embed.FS

// CheckFunc reports whether a dependency is ready to serve traffic.
type CheckFunc func(ctx context.Context) error

// Config wires the server to its collaborators.
type Config struct {
	Generator  *generator.Generator
	Providers  ai.Factory
	DefaultKey string // used when the form leaves the credential blank
	Sessions   session.Store
	Events     events.Logger
	Presets    *curriculum.Loader

	ExportDir    string
	MaxUploadMB  int
	SessionTTL   time.Duration
	CookieSecure bool

	// Checks are run by /readyz, keyed by dependency name.
	Checks map[string]CheckFunc
}

// Server handles HTTP requests for the generator.
type Server struct {
	gen          *generator.Generator
	providers    ai.Factory
	defaultKey   string
	sessions     session.Store
	events       events.Logger
	presets      *curriculum.Loader
	exportDir    string
	maxUpload    int64
	sessionTTL   time.Duration
	cookieSecure bool
	checks       map[string]CheckFunc

	page   *template.Template
	policy *bluemonday.Policy
	now    func() time.Time

	// claimMu serializes the in-progress check and claim of a session batch.
	claimMu sync.Mutex
}

// New creates a server. Generator, Providers and Sessions are required.
func New(cfg Config) (*Server, error) {
	if cfg.Generator == nil || cfg.Providers == nil || cfg.Sessions == nil {
		return nil, fmt.Errorf("web: generator, provider factory and session store are required")
	}

	s := &Server{
		gen:          cfg.Generator,
		providers:    cfg.Providers,
		defaultKey:   strings.TrimSpace(cfg.DefaultKey),
		sessions:     cfg.Sessions,
		events:       cfg.Events,
		presets:      cfg.Presets,
		exportDir:    cfg.ExportDir,
		maxUpload:    int64(cfg.MaxUploadMB) << 20,
		sessionTTL:   cfg.SessionTTL,
		cookieSecure: cfg.CookieSecure,
		checks:       cfg.Checks,
		policy:       presetPolicy(),
		now:          time.Now,
	}
	if s.events == nil {
		s.events = events.NopLogger{}
	}
	if s.presets == nil {
		s.presets, _ = curriculum.NewLoader("")
	}
	if s.maxUpload <= 0 {
		s.maxUpload = 10 << 20
	}
	if s.sessionTTL <= 0 {
		s.sessionTTL = 24 * time.Hour
	}

	page, err := template.New("index.html").Funcs(template.FuncMap{
		"inc":         func(i int) int { return i + 1 },
		"description": s.renderDescription,
	}).ParseFS(templateFS, "templates/index.html")
	if err != nil {
		return nil, fmt.Errorf("parse page template: %w", err)
	}
	s.page = page

	return s, nil
}

// Routes returns the HTTP router.
func (s *Server) Routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", s.handleIndex)
	mux.HandleFunc("POST /generate", s.handleGenerate)
	mux.HandleFunc("GET /download", s.handleDownload)
	mux.HandleFunc("GET /api/session", s.handleSessionState)
	mux.HandleFunc("GET /healthz", handleHealthz)
	mux.HandleFunc("GET /readyz", s.handleReadyz)
	return mux
}

// presetPolicy allows the inline formatting preset authors may use in a
// description.
func presetPolicy() *bluemonday.Policy {
	p := bluemonday.NewPolicy()
	p.AllowElements("b", "strong", "i", "em", "code", "sub", "sup", "br")
	return p
}

// renderDescription sanitizes a preset description for inline display.
// Generated question content is never passed through here: it is plain text
// and is escaped by the template.
func (s *Server) renderDescription(description string) template.HTML {
	return template.HTML(s.policy.Sanitize(description))
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	id := s.sessionID(w, r)
	state, err := s.sessions.Load(r.Context(), id)
	if err != nil {
		slog.Error("failed to load session", "session_id", id, "error", err)
		state = &generator.State{}
	}

	s.render(w, http.StatusOK, pageData{
		State:   state,
		Form:    formValues{Difficulty: string(generator.Mix), InputMethod: inputText, Curriculum: exampleCurriculum},
		Message: r.URL.Query().Get("msg"),
	})
}

func (s *Server) handleSessionState(w http.ResponseWriter, r *http.Request) {
	id := s.sessionID(w, r)
	state, err := s.sessions.Load(r.Context(), id)
	if err != nil {
		slog.Error("failed to load session", "session_id", id, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to load session"})
		return
	}
	writeJSON(w, http.StatusOK, state)
}

func handleHealthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleReadyz(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	failed := map[string]string{}
	for name, check := range s.checks {
		if err := check(ctx); err != nil {
			slog.Warn("readiness check failed", "check", name, "error", err)
			failed[name] = err.Error()
		}
	}

	if len(failed) > 0 {
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{"status": "not ready", "failed": failed})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

type formValues struct {
	Difficulty  string
	InputMethod string
	BaseQ1      string
	BaseQ2      string
	Curriculum  string
	Preset      string
}

type pageData struct {
	State         *generator.State
	Presets       []curriculum.Preset
	Modes         []generator.Difficulty
	Form          formValues
	HasDefaultKey bool
	Error         string
	Message       string
}

func (s *Server) render(w http.ResponseWriter, status int, data pageData) {
	if data.State == nil {
		data.State = &generator.State{}
	}
	data.Presets = s.presets.Presets()
	data.Modes = generator.Modes
	data.HasDefaultKey = s.defaultKey != ""

	var buf strings.Builder
	if err := s.page.Execute(&buf, data); err != nil {
		slog.Error("failed to render page", "error", err)
		http.Error(w, "failed to render page", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	w.Write([]byte(buf.String()))
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Warn("failed to write JSON response", "error", err)
	}
}

func (s *Server) logEvent(ctx context.Context, sessionID, eventType string, data map[string]any) {
	err := s.events.LogEvent(ctx, events.Event{
		SessionID: sessionID,
		Type:      eventType,
		Data:      data,
		CreatedAt: s.now(),
	})
	if err != nil {
		slog.Warn("failed to log event", "type", eventType, "session_id", sessionID, "error", err)
	}
}
