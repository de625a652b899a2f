package process

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"strings"
	"time"

	"github.com/zxsted/dialogmanager/internal/logging"
)

// ErrNotRegistered is returned for a process name missing from the allow-list.
var ErrNotRegistered = errors.New("process not registered")

// Process defines an allowed command execution.
type Process struct {
	Command string
	Args    []string
	Env     map[string]string
}

// Output is the result of a completed run.
type Output struct {
	// Value is stdout decoded as JSON when it looks like JSON, the trimmed
	// text otherwise, and nil when stdout is empty.
	Value    any
	ExitCode int
	Stderr   string
}

// Runner executes local processes.
// It follows a Strict Registry pattern for security (Allow-Listing): only
// registered commands run, and the input is passed on stdin, never as
// command flags.
type Runner struct {
	registry map[string]Process
	baseDir  string
	timeout  time.Duration
	logger   *slog.Logger
}

// RunnerOption configures the runner.
type RunnerOption func(*Runner)

// WithProcesses populates the allow-list.
func WithProcesses(processes map[string]Process) RunnerOption {
	return func(r *Runner) {
		for name, p := range processes {
			r.registry[name] = p
		}
	}
}

// WithBaseDir sets the working directory for executed processes.
func WithBaseDir(dir string) RunnerOption {
	return func(r *Runner) {
		r.baseDir = dir
	}
}

// WithTimeout bounds every run. Zero means no limit besides the context.
func WithTimeout(d time.Duration) RunnerOption {
	return func(r *Runner) {
		r.timeout = d
	}
}

// WithLogger configures the structured logger.
func WithLogger(logger *slog.Logger) RunnerOption {
	return func(r *Runner) {
		r.logger = logger
	}
}

// NewRunner creates a new Process Runner.
func NewRunner(opts ...RunnerOption) *Runner {
	r := &Runner{
		registry: make(map[string]Process),
		logger:   logging.NewNop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Register adds a trusted script/command to the allow-list.
func (r *Runner) Register(name string, command string, args ...string) {
	r.registry[name] = Process{
		Command: command,
		Args:    args,
	}
}

// Run executes the named process with input encoded as JSON on stdin. A
// non-zero exit status is reported in Output, not as an error; errors mean
// the process could not run to completion.
func (r *Runner) Run(ctx context.Context, name string, input any) (*Output, error) {
	proc, ok := r.registry[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotRegistered, name)
	}

	stdin, err := json.Marshal(input)
	if err != nil {
		return nil, fmt.Errorf("encoding input of %s: %w", name, err)
	}

	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(ctx, proc.Command, proc.Args...)
	cmd.Dir = r.baseDir
	cmd.WaitDelay = time.Second
	cmd.Stdin = bytes.NewReader(stdin)

	env := []string{"DIALOGMANAGER_PROCESS=" + name}
	for k, v := range proc.Env {
		env = append(env, k+"="+v)
	}
	cmd.Env = append(cmd.Environ(), env...)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	start := time.Now()
	err = cmd.Run()
	r.logger.Debug("process finished", "process", name, "duration", time.Since(start), "err", err)

	out := &Output{Stderr: stderr.String()}
	if err != nil {
		var exitErr *exec.ExitError
		if !errors.As(err, &exitErr) || ctx.Err() != nil {
			if ctx.Err() != nil {
				return nil, fmt.Errorf("process %s: %w", name, ctx.Err())
			}
			return nil, fmt.Errorf("process %s: %w", name, err)
		}
		out.ExitCode = exitErr.ExitCode()
	}
	out.Value = decodeOutput(stdout.String())
	return out, nil
}

func decodeOutput(output string) any {
	trimmed := strings.TrimSpace(output)
	if trimmed == "" {
		return nil
	}

	// Try to parse as JSON (Auto-Detection)
	if (strings.HasPrefix(trimmed, "{") && strings.HasSuffix(trimmed, "}")) ||
		(strings.HasPrefix(trimmed, "[") && strings.HasSuffix(trimmed, "]")) {
		var v any
		if err := json.Unmarshal([]byte(trimmed), &v); err == nil {
			return v
		}
	}

	// Fallback to string
	return trimmed
}
