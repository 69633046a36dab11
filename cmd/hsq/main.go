// Package main provides the batch CLI for the question generator.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/p-n-ai/highscore/internal/ai"
	"github.com/p-n-ai/highscore/internal/curriculum"
	"github.com/p-n-ai/highscore/internal/export"
	"github.com/p-n-ai/highscore/internal/generator"
	"github.com/p-n-ai/highscore/internal/platform/config"
)

var (
	genJob        string
	genDifficulty string
	genBaseQ1     string
	genBaseQ2     string
	genCurriculum string
	genWorkbook   string
	genPreset     string
	genPresetsDir string
	genOutput     string
	genModel      string
	genBaseURL    string
	genAPIKey     string
	genSeed       int

	parseCurriculum string
	parseWorkbook   string

	presetsDir string
)

func main() {
	rootCmd := newRootCmd()
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "hsq",
		Short:         "High Score question generator",
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			cfg.Log.Format = "text"
			slog.SetDefault(cfg.Log.NewLoggerTo(cmd.ErrOrStderr()))
			return nil
		},
	}

	rootCmd.AddCommand(newGenerateCmd())
	rootCmd.AddCommand(newParseCmd())
	rootCmd.AddCommand(newPresetsCmd())
	rootCmd.AddCommand(newPingCmd())

	return rootCmd
}

func newGenerateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate questions for a curriculum and write a Word document",
		Args:  cobra.NoArgs,
		RunE:  runGenerateCmd,
	}

	cmd.Flags().StringVar(&genJob, "job", "", "TOML job file; flags override its values")
	cmd.Flags().StringVar(&genDifficulty, "difficulty", string(generator.Mix), "easy, moderate, hard or mix")
	cmd.Flags().StringVar(&genBaseQ1, "base-q1", "", "first example question")
	cmd.Flags().StringVar(&genBaseQ2, "base-q2", "", "second example question")
	cmd.Flags().StringVar(&genCurriculum, "curriculum", "", `curriculum text, "Subject|Unit|Topic;..."`)
	cmd.Flags().StringVar(&genWorkbook, "workbook", "", "curriculum .xlsx file (Subject, Unit, Topic columns)")
	cmd.Flags().StringVar(&genPreset, "preset", "", "curriculum preset name")
	cmd.Flags().StringVar(&genPresetsDir, "presets-dir", "", "preset directory (default: HSQ_PRESETS_PATH)")
	cmd.Flags().StringVarP(&genOutput, "output", "o", "", "output .docx path (default: high_score_questions_<unix>.docx)")
	cmd.Flags().StringVar(&genModel, "model", "", "model name (default: HSQ_AI_MODEL)")
	cmd.Flags().StringVar(&genBaseURL, "base-url", "", "API base URL (default: HSQ_AI_BASE_URL)")
	cmd.Flags().StringVar(&genAPIKey, "api-key", "", "API key (default: HSQ_AI_API_KEY)")
	cmd.Flags().IntVar(&genSeed, "seed", 0, "seed for mixed difficulty; 0 picks a random seed")

	return cmd
}

func runGenerateCmd(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	var paths []curriculum.Path
	if genJob != "" {
		job, err := loadJob(genJob)
		if err != nil {
			return err
		}
		g := job.Generate
		applyStringJob(cmd, "difficulty", &genDifficulty, g.Difficulty)
		applyStringJob(cmd, "base-q1", &genBaseQ1, g.BaseQ1)
		applyStringJob(cmd, "base-q2", &genBaseQ2, g.BaseQ2)
		// A curriculum source on the command line replaces every source in the job.
		if !anyChanged(cmd, "curriculum", "workbook", "preset") {
			applyStringJob(cmd, "curriculum", &genCurriculum, g.Curriculum)
			applyStringJob(cmd, "workbook", &genWorkbook, g.Workbook)
			applyStringJob(cmd, "preset", &genPreset, g.Preset)
			paths = g.Paths
		}
		applyStringJob(cmd, "presets-dir", &genPresetsDir, g.PresetsDir)
		applyStringJob(cmd, "output", &genOutput, g.Output)
		applyStringJob(cmd, "model", &genModel, g.Model)
		applyStringJob(cmd, "base-url", &genBaseURL, g.BaseURL)
		applyIntJob(cmd, "seed", &genSeed, g.Seed)
	}

	mode, err := generator.ParseDifficulty(genDifficulty)
	if err != nil {
		return err
	}
	if genPresetsDir == "" {
		genPresetsDir = cfg.PresetsPath
	}

	parsed, err := curriculumSource{
		Workbook:   genWorkbook,
		Text:       genCurriculum,
		Preset:     genPreset,
		PresetsDir: genPresetsDir,
		Paths:      paths,
	}.resolve()
	if err != nil {
		return err
	}
	printRejected(cmd.ErrOrStderr(), parsed.Rejected)

	req := generator.Request{BaseQ1: genBaseQ1, BaseQ2: genBaseQ2, Paths: parsed.Paths, Mode: mode}
	if err := req.Validate(); err != nil {
		return err
	}

	apiKey := firstNonEmpty(genAPIKey, cfg.AI.APIKey)
	if apiKey == "" {
		return generator.ErrMissingCredential
	}

	model := firstNonEmpty(genModel, cfg.AI.Model)
	provider := ai.NewGroqProvider(apiKey,
		ai.WithBaseURL(firstNonEmpty(genBaseURL, cfg.AI.BaseURL)),
		ai.WithDefaultModel(model),
	)

	genCfg := generator.Config{
		Model:       model,
		Temperature: cfg.AI.Temperature,
		MaxTokens:   cfg.AI.MaxTokens,
	}
	if genSeed != 0 {
		genCfg.Rand = generator.NewSeededRand(uint64(genSeed))
	}

	out := cmd.OutOrStdout()
	state := &generator.State{Rejected: parsed.Rejected}
	report, err := generator.New(genCfg).Generate(context.Background(), provider, state, req, progressPrinter(out))
	if err != nil {
		return err
	}
	if len(report.Results) == 0 {
		return errors.New("no questions were generated")
	}

	now := time.Now()
	output := genOutput
	if output == "" {
		output = export.Filename(now)
	}
	if err := writeDocument(output, report.Results, now, cfg.Export.TempDir); err != nil {
		return err
	}

	fmt.Fprintf(out, "wrote %s: %d topics, %d failed, %s\n",
		output, len(report.Results), len(report.Failures), report.Duration.Round(time.Millisecond))
	return nil
}

func writeDocument(path string, results []generator.Result, generatedAt time.Time, tempDir string) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("failed to close %s: %w", path, cerr)
		}
	}()

	if _, err := export.Stream(f, results, generatedAt, tempDir); err != nil {
		return err
	}
	return nil
}

// progressPrinter reports each finished topic on w.
func progressPrinter(w io.Writer) generator.Observer {
	return generator.ObserverFunc(func(_ context.Context, _ *generator.State, p generator.Progress) {
		switch p.Kind {
		case generator.PathSucceeded:
			fmt.Fprintf(w, "[%d/%d] ok     %s (%s)\n", p.Index+1, p.Total, p.Path.Topic, p.Difficulty)
		case generator.PathFailed:
			fmt.Fprintf(w, "[%d/%d] failed %s: %v\n", p.Index+1, p.Total, p.Path.Topic, p.Err)
		}
	})
}

func newParseCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "parse",
		Short: "Show the curriculum paths parsed from text or a workbook",
		Args:  cobra.NoArgs,
		RunE:  runParseCmd,
	}
	cmd.Flags().StringVar(&parseCurriculum, "curriculum", "", `curriculum text, "Subject|Unit|Topic;..."`)
	cmd.Flags().StringVar(&parseWorkbook, "workbook", "", "curriculum .xlsx file")
	return cmd
}

func runParseCmd(cmd *cobra.Command, _ []string) error {
	parsed, err := curriculumSource{Workbook: parseWorkbook, Text: parseCurriculum}.resolve()
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	for i, p := range parsed.Paths {
		fmt.Fprintf(out, "%d. %s\n", i+1, p)
	}
	printRejected(out, parsed.Rejected)
	if parsed.Empty() {
		return generator.ErrNoCurriculum
	}
	return nil
}

func newPresetsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "presets",
		Short: "List curriculum presets",
		Args:  cobra.NoArgs,
		RunE:  runPresetsCmd,
	}
	cmd.Flags().StringVar(&presetsDir, "dir", "", "preset directory (default: HSQ_PRESETS_PATH)")
	return cmd
}

func runPresetsCmd(cmd *cobra.Command, _ []string) error {
	dir := presetsDir
	if dir == "" {
		cfg, err := config.Load()
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		dir = cfg.PresetsPath
	}

	loader, err := curriculum.NewLoader(dir)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	for _, p := range loader.Presets() {
		fmt.Fprintf(out, "%-24s %3d topics  %s\n", p.Name, len(p.Paths), p.Description)
	}
	return nil
}

func newPingCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "ping",
		Short: "Check that the configured API key is accepted",
		Args:  cobra.NoArgs,
		RunE:  runPingCmd,
	}
}

func runPingCmd(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if cfg.AI.APIKey == "" {
		return generator.ErrMissingCredential
	}

	provider := ai.NewGroqProvider(cfg.AI.APIKey, ai.WithBaseURL(cfg.AI.BaseURL))
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := provider.HealthCheck(ctx); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s: ok\n", provider.Name())
	return nil
}

func printRejected(w io.Writer, rejected []string) {
	if len(rejected) == 0 {
		return
	}
	fmt.Fprintf(w, "skipped %d malformed curriculum entries:\n", len(rejected))
	for _, r := range rejected {
		fmt.Fprintf(w, "  %s\n", r)
	}
}

func applyStringJob(cmd *cobra.Command, name string, target, value *string) {
	if value == nil || cmd.Flags().Changed(name) {
		return
	}
	*target = *value
}

func anyChanged(cmd *cobra.Command, names ...string) bool {
	for _, name := range names {
		if cmd.Flags().Changed(name) {
			return true
		}
	}
	return false
}

func applyIntJob(cmd *cobra.Command, name string, target, value *int) {
	if value == nil || cmd.Flags().Changed(name) {
		return
	}
	*target = *value
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
