package process

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"sync"
)

//go:generate go tool mockgen -source=handle.go -destination=mocks.go -package=process

const (
	// StatusSignaled is reported when the process was terminated by a signal.
	StatusSignaled = -1

	// StatusStartFailed is the synthetic status of a process that could not
	// be started at all, e.g. because the executable does not exist.
	StatusStartFailed = -2
)

// Record describes a process for as long as its step runs. ExitStatus is nil
// until the process has terminated.
type Record struct {
	CommandLine string
	ExitStatus  *int
}

// Terminated reports whether the process has finished.
func (r Record) Terminated() bool {
	return r.ExitStatus != nil
}

// Process is a spawned external process.
type Process interface {
	// CommandLine returns the command line the process was started with.
	CommandLine() string

	// Wait blocks until the process has terminated and all of its output has
	// been forwarded, then returns its exit status.
	Wait() int

	// Record returns the current bookkeeping for the process.
	Record() Record
}

// Spawner starts processes. Spawn never fails: a process that cannot be
// started is returned already terminated with StatusStartFailed.
type Spawner interface {
	Spawn(ctx context.Context, spec Spec, sink Sink) Process
}

// Handle is the Process implementation returned by ExecSpawner.
type Handle struct {
	commandLine string
	done        chan struct{}

	mu     sync.Mutex
	status int
	exited bool
}

func newHandle(commandLine string) *Handle {
	return &Handle{commandLine: commandLine, done: make(chan struct{})}
}

func (h *Handle) CommandLine() string {
	return h.commandLine
}

func (h *Handle) Wait() int {
	<-h.done
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.status
}

// Done is closed once the process has terminated.
func (h *Handle) Done() <-chan struct{} {
	return h.done
}

func (h *Handle) Record() Record {
	h.mu.Lock()
	defer h.mu.Unlock()
	r := Record{CommandLine: h.commandLine}
	if h.exited {
		status := h.status
		r.ExitStatus = &status
	}
	return r
}

func (h *Handle) finish(status int) {
	h.mu.Lock()
	h.status = status
	h.exited = true
	h.mu.Unlock()
	close(h.done)
}

// ExecSpawner starts processes with os/exec.
type ExecSpawner struct {
	Logger *slog.Logger
}

// Spawn starts spec, binding sink to it. Stdout and stderr share a single
// writer, so chunks reach the sink in the order the tool produced them.
func (s *ExecSpawner) Spawn(ctx context.Context, spec Spec, sink Sink) Process {
	logger := s.Logger
	if logger == nil {
		logger = slog.Default()
	}

	h := newHandle(spec.CommandLine())
	sink.Bind(h.commandLine)

	//nolint:gosec // tool commands come from the user's own configuration
	cmd := exec.CommandContext(ctx, spec.Command, spec.Args...)
	cmd.Dir = spec.Dir
	if len(spec.Env) > 0 {
		cmd.Env = append(os.Environ(), spec.Env...)
	}
	out := &sinkWriter{sink: sink}
	cmd.Stdout = out
	cmd.Stderr = out

	if err := cmd.Start(); err != nil {
		logger.Debug("process failed to start", "command", spec.Command, "error", err)
		sink.Append(fmt.Sprintf("Failed to start %s: %v\n", spec.Command, err))
		h.finish(StatusStartFailed)
		return h
	}
	logger.Debug("process started", "command", h.commandLine, "pid", cmd.Process.Pid)

	go func() {
		err := cmd.Wait()
		h.finish(exitStatus(cmd, err))
	}()
	return h
}

func exitStatus(cmd *exec.Cmd, err error) int {
	if err == nil {
		return 0
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.ExitCode()
	}
	if cmd.ProcessState != nil {
		return cmd.ProcessState.ExitCode()
	}
	return StatusStartFailed
}
