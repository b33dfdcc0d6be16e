package process

// Sink is a user-visible destination for a tool's output.
type Sink interface {
	// Bind prepares the sink for a new process, typically clearing earlier
	// output and showing the command line.
	Bind(commandLine string)

	// Append adds a chunk of output as it arrives.
	Append(chunk string)

	// Reveal makes the sink visible to the user.
	Reveal()
}

// sinkWriter adapts a Sink to io.Writer.
type sinkWriter struct {
	sink Sink
}

func (w *sinkWriter) Write(p []byte) (int, error) {
	w.sink.Append(string(p))
	return len(p), nil
}

// DiscardSink drops all output.
type DiscardSink struct{}

func (DiscardSink) Bind(string)   {}
func (DiscardSink) Append(string) {}
func (DiscardSink) Reveal()       {}
