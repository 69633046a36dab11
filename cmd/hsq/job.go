package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/p-n-ai/highscore/internal/curriculum"
)

// JobFile is a TOML description of one generation batch.
type JobFile struct {
	Generate GenerateJob `toml:"generate"`
}

// GenerateJob maps the generate command's settings. Unset fields leave the
// flag values alone.
type GenerateJob struct {
	Difficulty *string           `toml:"difficulty"`
	BaseQ1     *string           `toml:"base-q1"`
	BaseQ2     *string           `toml:"base-q2"`
	Curriculum *string           `toml:"curriculum"`
	Workbook   *string           `toml:"workbook"`
	Preset     *string           `toml:"preset"`
	PresetsDir *string           `toml:"presets-dir"`
	Output     *string           `toml:"output"`
	Model      *string           `toml:"model"`
	BaseURL    *string           `toml:"base-url"`
	Seed       *int              `toml:"seed"`
	Paths      []curriculum.Path `toml:"paths"`
}

// loadJob reads a job file. Unlike the config file, a missing job is an error.
func loadJob(path string) (JobFile, error) {
	var job JobFile
	md, err := toml.DecodeFile(path, &job)
	if err != nil {
		return JobFile{}, fmt.Errorf("failed to decode job %s: %w", path, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return JobFile{}, fmt.Errorf("unknown keys in job %s: %s", path, strings.Join(keys, ", "))
	}
	return job, nil
}

// curriculumSource names where the batch's curriculum comes from. The first
// non-empty source wins: workbook, text, preset, then inline job paths.
type curriculumSource struct {
	Workbook   string
	Text       string
	Preset     string
	PresetsDir string
	Paths      []curriculum.Path
}

func (src curriculumSource) resolve() (curriculum.ParseResult, error) {
	switch {
	case src.Workbook != "":
		f, err := os.Open(src.Workbook)
		if err != nil {
			return curriculum.ParseResult{}, fmt.Errorf("failed to open workbook: %w", err)
		}
		defer f.Close()
		return curriculum.ParseWorkbook(f)

	case strings.TrimSpace(src.Text) != "":
		return curriculum.ParseText(src.Text), nil

	case src.Preset != "":
		loader, err := curriculum.NewLoader(src.PresetsDir)
		if err != nil {
			return curriculum.ParseResult{}, err
		}
		preset, ok := loader.Preset(src.Preset)
		if !ok {
			return curriculum.ParseResult{}, fmt.Errorf("preset %q not found in %s", src.Preset, src.PresetsDir)
		}
		return curriculum.ParseResult{Paths: preset.Paths}, nil

	case len(src.Paths) > 0:
		var res curriculum.ParseResult
		for _, p := range src.Paths {
			p = curriculum.Path{
				Subject: strings.TrimSpace(p.Subject),
				Unit:    strings.TrimSpace(p.Unit),
				Topic:   strings.TrimSpace(p.Topic),
			}
			if !p.Valid() {
				res.Rejected = append(res.Rejected, p.String())
				continue
			}
			res.Paths = append(res.Paths, p)
		}
		return res, nil
	}

	return curriculum.ParseResult{}, fmt.Errorf("no curriculum given: use --curriculum, --workbook, --preset or a job file")
}
