// Package shell provides the command runners handed to plugins.
package shell

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"

	"github.com/EchoPBX/idlebell/pkg/sdk"
	"github.com/gen2brain/beeep"
)

// Runner modes accepted by NewRunner.
const (
	ModeExec = "exec"
	ModeBeep = "beep"
)

const DefaultShell = "/bin/sh"

var ErrUnknownMode = errors.New("shell: unknown runner mode")

// ExitError describes a command that ran and failed.
type ExitError struct {
	Command  string
	ExitCode int
	Stderr   string
	Err      error
}

func (e *ExitError) Error() string {
	msg := fmt.Sprintf("command %q exited with code %d", e.Command, e.ExitCode)
	if e.Stderr != "" {
		msg += ": " + e.Stderr
	}
	return msg
}

func (e *ExitError) Unwrap() error { return e.Err }

// ExecRunner runs commands through a shell, "sh -c <command>".
type ExecRunner struct {
	Shell  string
	Stdout io.Writer
	Env    []string
}

func NewExecRunner(shell string, stdout io.Writer) *ExecRunner {
	if shell == "" {
		shell = DefaultShell
	}
	if stdout == nil {
		stdout = os.Stdout
	}
	return &ExecRunner{Shell: shell, Stdout: stdout}
}

func (r *ExecRunner) Run(ctx context.Context, command string) error {
	path, err := exec.LookPath(r.Shell)
	if err != nil {
		return fmt.Errorf("lookup shell %q: %w", r.Shell, err)
	}

	var stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, path, "-c", command)
	cmd.Stdout = r.Stdout
	cmd.Stderr = &stderr
	if len(r.Env) > 0 {
		cmd.Env = append(os.Environ(), r.Env...)
	}

	if err := cmd.Run(); err != nil {
		code := -1
		var ee *exec.ExitError
		if errors.As(err, &ee) {
			code = ee.ExitCode()
		}
		return &ExitError{
			Command:  command,
			ExitCode: code,
			Stderr:   strings.TrimSpace(stderr.String()),
			Err:      err,
		}
	}
	return nil
}

// BeepRunner ignores the command text and sounds the system beeper instead.
type BeepRunner struct {
	Freq     float64
	Duration int

	beep func(freq float64, duration int) error
}

func NewBeepRunner() *BeepRunner {
	return &BeepRunner{Freq: beeep.DefaultFreq, Duration: beeep.DefaultDuration, beep: beeep.Beep}
}

func (r *BeepRunner) Run(ctx context.Context, command string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	beep := r.beep
	if beep == nil {
		beep = beeep.Beep
	}
	if err := beep(r.Freq, r.Duration); err != nil {
		return fmt.Errorf("beep for %q: %w", command, err)
	}
	return nil
}

// NewRunner picks a runner for the configured mode. An empty mode means exec.
func NewRunner(mode, shell string, stdout io.Writer) (sdk.CommandRunner, error) {
	switch strings.ToLower(mode) {
	case "", ModeExec:
		return NewExecRunner(shell, stdout), nil
	case ModeBeep:
		return NewBeepRunner(), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownMode, mode)
	}
}
