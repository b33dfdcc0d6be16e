package process

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingSink struct {
	mu      sync.Mutex
	bound   []string
	chunks  []string
	reveals int
}

func (s *recordingSink) Bind(commandLine string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.bound = append(s.bound, commandLine)
}

func (s *recordingSink) Append(chunk string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.chunks = append(s.chunks, chunk)
}

func (s *recordingSink) Reveal() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reveals++
}

func (s *recordingSink) output() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return strings.Join(s.chunks, "")
}

func sh(script string) Spec {
	return NewSpec("sh", []string{"-c", script}, "", nil)
}

func TestExecSpawner_ExitStatus(t *testing.T) {
	tests := []struct {
		name   string
		script string
		want   int
	}{
		{"success", "exit 0", 0},
		{"failure", "exit 1", 1},
		{"custom code", "exit 42", 42},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := (&ExecSpawner{}).Spawn(context.Background(), sh(tt.script), DiscardSink{})
			assert.Equal(t, tt.want, p.Wait())
		})
	}
}

func TestExecSpawner_StreamsOutputInOrder(t *testing.T) {
	sink := &recordingSink{}
	spec := sh("echo one; echo two 1>&2; echo three")

	p := (&ExecSpawner{}).Spawn(context.Background(), spec, sink)
	require.Equal(t, 0, p.Wait())

	assert.Equal(t, []string{"sh -c echo one; echo two 1>&2; echo three"}, sink.bound)
	assert.Equal(t, "one\ntwo\nthree\n", sink.output())
}

func TestExecSpawner_RunsInDirWithEnv(t *testing.T) {
	dir := t.TempDir()
	sink := &recordingSink{}
	spec := NewSpec("sh", []string{"-c", `pwd; echo "$TLABRIDGE_TEST"`}, dir, []string{"TLABRIDGE_TEST=hello"})

	p := (&ExecSpawner{}).Spawn(context.Background(), spec, sink)
	require.Equal(t, 0, p.Wait())

	lines := strings.Split(strings.TrimSpace(sink.output()), "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[0], dir[strings.LastIndex(dir, "/")+1:])
	assert.Equal(t, "hello", lines[1])
}

func TestExecSpawner_StartFailure(t *testing.T) {
	sink := &recordingSink{}
	spec := NewSpec("/nonexistent/tlabridge-tool", []string{"x"}, "", nil)

	p := (&ExecSpawner{}).Spawn(context.Background(), spec, sink)

	assert.Equal(t, StatusStartFailed, p.Wait())
	assert.Equal(t, []string{"/nonexistent/tlabridge-tool x"}, sink.bound)
	assert.Contains(t, sink.output(), "Failed to start /nonexistent/tlabridge-tool")
	rec := p.Record()
	require.True(t, rec.Terminated())
	assert.Equal(t, StatusStartFailed, *rec.ExitStatus)
}

func TestExecSpawner_RecordAfterExit(t *testing.T) {
	p := (&ExecSpawner{}).Spawn(context.Background(), sh("exit 5"), DiscardSink{})
	h, ok := p.(*Handle)
	require.True(t, ok)

	select {
	case <-h.Done():
	case <-time.After(10 * time.Second):
		t.Fatal("process did not exit")
	}

	rec := p.Record()
	require.True(t, rec.Terminated())
	assert.Equal(t, 5, *rec.ExitStatus)
	assert.Equal(t, "sh -c exit 5", rec.CommandLine)
}

func TestHandle_RecordNotTerminatedUntilFinish(t *testing.T) {
	h := newHandle("tool --flag")

	rec := h.Record()
	assert.False(t, rec.Terminated())
	assert.Nil(t, rec.ExitStatus)

	h.finish(3)

	rec = h.Record()
	require.True(t, rec.Terminated())
	assert.Equal(t, 3, *rec.ExitStatus)
	assert.Equal(t, 3, h.Wait())
}

func TestExecSpawner_CancelledContextTerminates(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	p := (&ExecSpawner{}).Spawn(ctx, sh("sleep 30"), DiscardSink{})
	cancel()

	done := make(chan int, 1)
	go func() { done <- p.Wait() }()
	select {
	case status := <-done:
		assert.NotEqual(t, 0, status)
	case <-time.After(10 * time.Second):
		t.Fatal("process was not terminated by context cancellation")
	}
}

func TestNewSpec_ClonesSlices(t *testing.T) {
	args := []string{"-a", "b"}
	env := []string{"K=V"}

	spec := NewSpec("tool", args, "/tmp", env)
	args[0] = "changed"
	env[0] = "changed"

	assert.Equal(t, []string{"-a", "b"}, spec.Args)
	assert.Equal(t, []string{"K=V"}, spec.Env)
	assert.Equal(t, "tool -a b", spec.CommandLine())
}

func TestSpec_CommandLineWithoutArgs(t *testing.T) {
	assert.Equal(t, "pdflatex", NewSpec("pdflatex", nil, "", nil).CommandLine())
}
