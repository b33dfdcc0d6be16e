package host

import (
	"fmt"
	"io"
	"sync"

	"github.com/tlaplus/tlabridge/internal/process"
)

// Console is the host used by command-line exports: tool output streams to
// out, messages go to errOut.
type Console struct {
	mu     sync.Mutex
	out    io.Writer
	errOut io.Writer
}

// NewConsole creates a console host.
func NewConsole(out, errOut io.Writer) *Console {
	return &Console{out: out, errOut: errOut}
}

// Sink returns a sink that writes tool output to the console.
func (c *Console) Sink(kind string) process.Sink {
	return &consoleSink{console: c, kind: kind}
}

//nolint:errcheck // console writes are best effort
func (c *Console) write(w io.Writer, format string, args ...any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fmt.Fprintf(w, format, args...)
}

func (c *Console) Info(msg string)  { c.write(c.out, "%s\n", msg) }
func (c *Console) Warn(msg string)  { c.write(c.errOut, "warning: %s\n", msg) }
func (c *Console) Error(msg string) { c.write(c.errOut, "error: %s\n", msg) }

type consoleSink struct {
	console *Console
	kind    string
}

func (s *consoleSink) Bind(commandLine string) {
	s.console.write(s.console.out, "[%s] %s\n", s.kind, commandLine)
}

func (s *consoleSink) Append(chunk string) {
	s.console.write(s.console.out, "%s", chunk)
}

// Reveal is a no-op: console output is always visible.
func (s *consoleSink) Reveal() {}
