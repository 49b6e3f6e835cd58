package process

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
)

// Runner executes name with args inside dir and returns the combined output.
// A non-zero exit status or a failure to spawn the child is reported as *Error.
type Runner interface {
	Run(ctx context.Context, dir, name string, args ...string) (string, error)
}

// Error describes a child process that could not be started or exited
// unsuccessfully. Output holds whatever the child wrote before it ended.
type Error struct {
	Command string
	Output  string
	Err     error
}

func (e *Error) Error() string {
	output := strings.TrimSpace(e.Output)
	if output == "" {
		return fmt.Sprintf("%q failed: %v", e.Command, e.Err)
	}

	return fmt.Sprintf("%q failed: %v\n%s", e.Command, e.Err, output)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// ExitCode returns the exit status of the child, or -1 when it never ran or
// its status is unknown.
func (e *Error) ExitCode() int {
	var exitErr *exec.ExitError
	if errors.As(e.Err, &exitErr) {
		return exitErr.ExitCode()
	}

	var statusErr ExitStatusError
	if errors.As(e.Err, &statusErr) {
		return int(statusErr)
	}

	return -1
}

// ExitStatusError is the failure reported by runners that only learn the exit
// status of a child, not an *exec.ExitError.
type ExitStatusError int

func (s ExitStatusError) Error() string {
	return fmt.Sprintf("exit status %d", int(s))
}

// ExecRunner runs commands as host child processes.
type ExecRunner struct {
	env []string
}

// NewExecRunner creates a Runner whose children inherit the current process
// environment plus the given KEY=VALUE entries.
func NewExecRunner(env ...string) ExecRunner {
	return ExecRunner{env: env}
}

// Run starts name with args in dir and waits for it to exit.
func (r ExecRunner) Run(ctx context.Context, dir, name string, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Dir = dir
	if len(r.env) > 0 {
		cmd.Env = append(os.Environ(), r.env...)
	}

	output, err := cmd.CombinedOutput()
	if err != nil {
		return string(output), &Error{
			Command: CommandLine(name, args...),
			Output:  string(output),
			Err:     err,
		}
	}

	return string(output), nil
}

// CommandLine renders name and args the way they would be typed in a shell,
// for log lines and error messages.
func CommandLine(name string, args ...string) string {
	return strings.Join(append([]string{name}, args...), " ")
}
