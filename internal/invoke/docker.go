// Package invoke runs the containerized OCRmyPDF engine against single
// work items. The engine is an opaque collaborator: one docker run per
// file, judged entirely by its exit code and diagnostic output.
package invoke

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"

	"github.com/spherical/ocrbatch/internal/config"
	"github.com/spherical/ocrbatch/internal/discover"
)

// ErrExternalToolUnavailable indicates docker itself (binary, daemon, or
// image) is unusable. No file can succeed, so the whole batch aborts.
var ErrExternalToolUnavailable = errors.New("docker unavailable")

// Docker reserves these exit codes for failures of the run itself rather
// than the contained process.
const (
	dockerExitRunFailed   = 125
	dockerExitNotRunnable = 126
	dockerExitNotFound    = 127
)

// Result captures one finished invocation. A non-zero exit is a recoverable
// per-file failure carried as a value, never a Go error that propagates
// past the work item.
type Result struct {
	ExitCode int
	Output   string
	Duration time.Duration
	Err      error
}

// OK reports whether the invocation produced a usable output file.
func (r Result) OK() bool {
	return r.Err == nil && r.ExitCode == 0
}

// Invoker runs the OCR engine for one work item. The returned error is
// non-nil only for fatal transport failures; tool failures are reported
// inside the Result.
type Invoker interface {
	Preflight(ctx context.Context) error
	Run(ctx context.Context, item discover.WorkItem, flags []string) (Result, error)
}

// DockerInvoker invokes OCRmyPDF through docker run, mounting the work
// item's directory into the container.
type DockerInvoker struct {
	cfg    config.DockerConfig
	logger zerolog.Logger
}

// NewDockerInvoker creates an invoker for the configured image.
func NewDockerInvoker(cfg config.DockerConfig, logger zerolog.Logger) *DockerInvoker {
	if cfg.Workdir == "" {
		cfg.Workdir = "/data"
	}
	return &DockerInvoker{cfg: cfg, logger: logger}
}

// Preflight verifies the docker daemon is reachable before any file is
// processed.
func (d *DockerInvoker) Preflight(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	cmd := exec.CommandContext(ctx, "docker", "version", "--format", "{{.Server.Version}}")
	out, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("%w: %v: %s", ErrExternalToolUnavailable, err, bytes.TrimSpace(out))
	}

	d.logger.Debug().
		Str("image", d.cfg.Image).
		Str("server_version", string(bytes.TrimSpace(out))).
		Msg("Docker daemon reachable")
	return nil
}

// waitDelay bounds how long Run waits for inherited stdio pipes after the
// container process is killed, so a lingering grandchild cannot hold the
// invocation open indefinitely.
var waitDelay = 10 * time.Second

// Run executes one container invocation and blocks until it exits.
func (d *DockerInvoker) Run(parent context.Context, item discover.WorkItem, flags []string) (Result, error) {
	ctx := parent
	if d.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(parent, d.cfg.Timeout.Std())
		defer cancel()
	}

	args := d.commandArgs(item, flags)
	d.logger.Debug().Strs("args", args).Msg("Running OCR container")

	var output bytes.Buffer
	cmd := exec.CommandContext(ctx, "docker", args...)
	cmd.Stdout = &output
	cmd.Stderr = &output
	cmd.WaitDelay = waitDelay

	start := time.Now()
	err := cmd.Run()
	result := Result{
		Output:   output.String(),
		Duration: time.Since(start),
	}

	if err == nil {
		// Match the container user's umask so output stays group-writable.
		_ = os.Chmod(item.Path, 0o664)
		_ = os.Chmod(item.OutputPath, 0o664)
		return result, nil
	}

	if parentErr := parent.Err(); parentErr != nil {
		return result, fmt.Errorf("ocr container interrupted: %w", parentErr)
	}

	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		// The per-file deadline is a recoverable failure like any other
		// tool failure; the batch moves on to the next file.
		result.ExitCode = -1
		result.Err = fmt.Errorf("ocrmypdf timed out after %s", d.cfg.Timeout.Std())
		if result.Output == "" {
			result.Output = result.Err.Error()
		}
		return result, nil
	}

	var exitErr *exec.ExitError
	if !errors.As(err, &exitErr) {
		// The process never started: docker binary missing or not executable.
		return result, fmt.Errorf("%w: %v", ErrExternalToolUnavailable, err)
	}

	result.ExitCode = exitErr.ExitCode()
	switch result.ExitCode {
	case dockerExitRunFailed, dockerExitNotRunnable, dockerExitNotFound:
		return result, fmt.Errorf("%w: docker run exited %d: %s",
			ErrExternalToolUnavailable, result.ExitCode, output.String())
	}

	result.Err = fmt.Errorf("ocrmypdf exited %d", result.ExitCode)
	return result, nil
}

// commandArgs assembles the docker run argument list: the work item's
// directory is mounted at the container workdir, and input/output are
// passed as container-relative file names.
func (d *DockerInvoker) commandArgs(item discover.WorkItem, flags []string) []string {
	args := []string{"run", "--rm"}
	if d.cfg.User != "" {
		args = append(args, "--user", d.cfg.User)
	}
	args = append(args,
		"--workdir", d.cfg.Workdir,
		"-v", fmt.Sprintf("%s:%s", filepath.Dir(item.Path), d.cfg.Workdir),
		d.cfg.Image,
	)
	args = append(args, flags...)
	args = append(args, filepath.Base(item.Path), filepath.Base(item.OutputPath))
	return args
}
