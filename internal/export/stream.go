package export

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"time"

	"github.com/p-n-ai/highscore/internal/generator"
)

// WithTempDocument writes the document to a temporary file in dir (the system
// temp dir when empty), rewinds it and hands it to fn together with its size.
// The file is closed and removed when WithTempDocument returns, whatever the
// outcome.
func WithTempDocument(results []generator.Result, generatedAt time.Time, dir string, fn func(f *os.File, size int64) error) (err error) {
	f, err := os.CreateTemp(dir, "high_score_questions_*.docx")
	if err != nil {
		return fmt.Errorf("create temp document: %w", err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && !errors.Is(cerr, fs.ErrClosed) {
			slog.Warn("failed to close temp document", "path", f.Name(), "error", cerr)
		}
		if rerr := os.Remove(f.Name()); rerr != nil && !errors.Is(rerr, fs.ErrNotExist) {
			slog.Warn("failed to remove temp document", "path", f.Name(), "error", rerr)
		}
	}()

	if err := Write(f, results, generatedAt); err != nil {
		return fmt.Errorf("write document: %w", err)
	}

	size, err := f.Seek(0, io.SeekCurrent)
	if err != nil {
		return fmt.Errorf("size temp document: %w", err)
	}
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return fmt.Errorf("rewind temp document: %w", err)
	}

	return fn(f, size)
}

// Stream writes the document for results to w through a temporary file and
// returns the number of bytes copied.
func Stream(w io.Writer, results []generator.Result, generatedAt time.Time, dir string) (int64, error) {
	var n int64
	err := WithTempDocument(results, generatedAt, dir, func(f *os.File, _ int64) error {
		var err error
		n, err = io.Copy(w, f)
		if err != nil {
			return fmt.Errorf("stream document: %w", err)
		}
		return nil
	})
	return n, err
}
