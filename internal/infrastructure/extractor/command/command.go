// Package command runs an external extraction engine as a child process.
// The log text is written to a private temporary file that becomes the
// process stdin; the process answers with CSV on stdout.
package command

import (
	"bytes"
	"context"
	"io"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/cockroachdb/errors"

	"github.com/PauloFidalgo/cmov-5g/internal/domain"
	"github.com/PauloFidalgo/cmov-5g/internal/infrastructure/extractor/table"
)

// DefaultTimeout bounds a single extraction run.
const DefaultTimeout = 30 * time.Second

// Config describes how the extraction engine is launched.
type Config struct {
	Path    string
	Args    []string
	Env     []string
	Timeout time.Duration
	TempDir string
}

// Extractor invokes the configured engine once per Extract call.
type Extractor struct {
	cfg    Config
	logger domain.Logger
}

// New creates an Extractor. Path is required.
func New(cfg Config, logger domain.Logger) (*Extractor, error) {
	if strings.TrimSpace(cfg.Path) == "" {
		return nil, errors.New("command extractor: executable path is required")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	return &Extractor{cfg: cfg, logger: logger}, nil
}

// Extract feeds text to the engine and decodes its output.
func (e *Extractor) Extract(ctx context.Context, text string) (domain.Table, error) {
	input, cleanup, err := e.prepareInput(text)
	if err != nil {
		return domain.Table{}, err
	}
	defer cleanup()

	runCtx, cancel := context.WithTimeout(ctx, e.cfg.Timeout)
	defer cancel()

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(runCtx, e.cfg.Path, e.cfg.Args...)
	cmd.Stdin = input
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	cmd.WaitDelay = time.Second
	if len(e.cfg.Env) > 0 {
		cmd.Env = append(os.Environ(), e.cfg.Env...)
	}

	runErr := cmd.Run()
	if err := ctx.Err(); err != nil {
		return domain.Table{}, err
	}
	if errors.Is(runCtx.Err(), context.DeadlineExceeded) {
		return domain.Table{}, errors.Wrapf(domain.ErrExtractionTimeout, "%s after %s", e.cfg.Path, e.cfg.Timeout)
	}
	if runErr != nil {
		var exitErr *exec.ExitError
		if errors.As(runErr, &exitErr) {
			return domain.Table{}, errors.Wrapf(domain.ErrExtractionFailed, "exit status %d: %s",
				exitErr.ExitCode(), strings.TrimSpace(stderr.String()))
		}
		return domain.Table{}, errors.Mark(errors.Wrap(runErr, "start extraction engine"), domain.ErrExtractionFailed)
	}

	if msg := strings.TrimSpace(stderr.String()); msg != "" {
		e.log(ctx, "command extractor: engine wrote to stderr: %s", msg)
	}
	if strings.TrimSpace(stdout.String()) == "" {
		return domain.Table{}, domain.ErrNoRecords
	}

	return table.Decode(&stdout)
}

func (e *Extractor) prepareInput(text string) (io.Reader, func(), error) {
	file, err := os.CreateTemp(e.cfg.TempDir, "kpm-extract-*.log")
	if err != nil {
		return nil, nil, errors.Mark(errors.Wrap(err, "create input file"), domain.ErrWorkspace)
	}
	cleanup := func() {
		_ = file.Close()
		_ = os.Remove(file.Name())
	}

	if _, err := file.WriteString(text); err != nil {
		cleanup()
		return nil, nil, errors.Mark(errors.Wrap(err, "write input file"), domain.ErrWorkspace)
	}
	if _, err := file.Seek(0, io.SeekStart); err != nil {
		cleanup()
		return nil, nil, errors.Mark(errors.Wrap(err, "rewind input file"), domain.ErrWorkspace)
	}
	return file, cleanup, nil
}

func (e *Extractor) log(ctx context.Context, format string, v ...any) {
	if e.logger == nil {
		return
	}
	e.logger.Printf(ctx, format, v...)
}

var _ domain.Extractor = (*Extractor)(nil)
