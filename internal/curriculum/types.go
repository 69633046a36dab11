// Package curriculum parses curriculum paths from text, spreadsheet rows and
// YAML presets.
package curriculum

import "strings"

// Path identifies one assessment area: a subject, a unit within it and a topic
// within the unit.
type Path struct {
	Subject string `json:"subject" yaml:"subject" toml:"subject"`
	Unit    string `json:"unit" yaml:"unit" toml:"unit"`
	Topic   string `json:"topic" yaml:"topic" toml:"topic"`
}

// Valid reports whether all three fields are non-empty after trimming.
func (p Path) Valid() bool {
	return strings.TrimSpace(p.Subject) != "" &&
		strings.TrimSpace(p.Unit) != "" &&
		strings.TrimSpace(p.Topic) != ""
}

// String renders the path in the manual input format.
func (p Path) String() string {
	return p.Subject + " | " + p.Unit + " | " + p.Topic
}

// ParseResult holds the accepted paths in input order together with the raw
// entries that were dropped.
type ParseResult struct {
	Paths    []Path   `json:"paths"`
	Rejected []string `json:"rejected,omitempty"`
}

// Empty reports whether no valid path was found.
func (r ParseResult) Empty() bool {
	return len(r.Paths) == 0
}

// Preset is a named, reusable curriculum loaded from YAML.
type Preset struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
	Paths       []Path `yaml:"paths"`
}
