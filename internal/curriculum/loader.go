package curriculum

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

// Loader loads and caches curriculum presets from a directory of YAML files.
type Loader struct {
	rootDir string
	presets map[string]Preset
	mu      sync.RWMutex
}

// NewLoader creates a new preset loader and loads all presets under rootDir.
// A missing directory yields an empty loader.
func NewLoader(rootDir string) (*Loader, error) {
	l := &Loader{
		rootDir: rootDir,
		presets: make(map[string]Preset),
	}

	if rootDir == "" {
		return l, nil
	}
	if _, err := os.Stat(rootDir); os.IsNotExist(err) {
		slog.Warn("curriculum preset directory not found", "dir", rootDir)
		return l, nil
	}

	if err := l.loadAll(); err != nil {
		return nil, fmt.Errorf("loading curriculum presets: %w", err)
	}

	slog.Info("curriculum presets loaded", "presets", len(l.presets))
	return l, nil
}

// Preset returns a preset by name.
func (l *Loader) Preset(name string) (Preset, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	p, ok := l.presets[name]
	return p, ok
}

// Presets returns all loaded presets sorted by name.
func (l *Loader) Presets() []Preset {
	l.mu.RLock()
	defer l.mu.RUnlock()
	presets := make([]Preset, 0, len(l.presets))
	for _, p := range l.presets {
		presets = append(presets, p)
	}
	sort.Slice(presets, func(i, j int) bool { return presets[i].Name < presets[j].Name })
	return presets
}

func (l *Loader) loadAll() error {
	return filepath.Walk(l.rootDir, func(path string, info os.FileInfo, err error) error {
		if err != nil || info.IsDir() {
			return nil
		}
		if strings.HasSuffix(path, ".yaml") || strings.HasSuffix(path, ".yml") {
			return l.loadPreset(path)
		}
		return nil
	})
}

func (l *Loader) loadPreset(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	var preset Preset
	if err := yaml.Unmarshal(data, &preset); err != nil {
		slog.Warn("skipping invalid preset YAML", "path", path, "error", err)
		return nil
	}

	if preset.Name == "" {
		return nil // Not a preset file
	}

	valid := preset.Paths[:0]
	for _, p := range preset.Paths {
		p = Path{
			Subject: strings.TrimSpace(p.Subject),
			Unit:    strings.TrimSpace(p.Unit),
			Topic:   strings.TrimSpace(p.Topic),
		}
		if !p.Valid() {
			slog.Warn("skipping incomplete preset path", "preset", preset.Name, "path", p.String())
			continue
		}
		valid = append(valid, p)
	}
	preset.Paths = valid

	l.mu.Lock()
	l.presets[preset.Name] = preset
	l.mu.Unlock()

	return nil
}
