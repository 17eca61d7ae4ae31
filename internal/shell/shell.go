// Package shell runs external commands.
//
// The spooler tools, neighbor-table utilities and route inspection all go
// through Runner so tests can replace them with canned output.
package shell

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
)

// ErrNotInstalled is returned when a command binary cannot be found
var ErrNotInstalled = errors.New("command not installed")

// Runner executes a command and returns its standard output
type Runner interface {
	Run(ctx context.Context, name string, args ...string) ([]byte, error)
	RunInput(ctx context.Context, stdin []byte, name string, args ...string) ([]byte, error)
}

// ExitError carries the stderr text of a failed command
type ExitError struct {
	Command string
	Code    int
	Stderr  string
	Err     error
}

func (e *ExitError) Error() string {
	msg := strings.TrimSpace(e.Stderr)
	if msg == "" {
		msg = e.Err.Error()
	}
	return fmt.Sprintf("%s: %s", e.Command, msg)
}

func (e *ExitError) Unwrap() error {
	return e.Err
}

// Exec runs commands with os/exec
type Exec struct{}

// Run executes name with args
func (Exec) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	return run(ctx, nil, name, args...)
}

// RunInput executes name with args, feeding stdin
func (Exec) RunInput(ctx context.Context, stdin []byte, name string, args ...string) ([]byte, error) {
	return run(ctx, stdin, name, args...)
}

func run(ctx context.Context, stdin []byte, name string, args ...string) ([]byte, error) {
	path, err := exec.LookPath(name)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, ErrNotInstalled)
	}

	cmd := exec.CommandContext(ctx, path, args...)
	// Parsers expect untranslated tool output
	cmd.Env = append(os.Environ(), "LC_ALL=C")
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if stdin != nil {
		cmd.Stdin = bytes.NewReader(stdin)
	}

	if err := cmd.Run(); err != nil {
		exitErr := &ExitError{Command: name, Code: -1, Stderr: stderr.String(), Err: err}
		var ee *exec.ExitError
		if errors.As(err, &ee) {
			exitErr.Code = ee.ExitCode()
		}
		if ctx.Err() != nil {
			exitErr.Err = ctx.Err()
		}
		return stdout.Bytes(), exitErr
	}
	return stdout.Bytes(), nil
}

// Available reports whether a command binary is on $PATH
func Available(name string) bool {
	_, err := exec.LookPath(name)
	return err == nil
}
