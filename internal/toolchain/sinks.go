package toolchain

import (
	"sync"

	"github.com/tlaplus/tlabridge/internal/process"
)

// SinkFactory creates the output sink for a tool kind.
type SinkFactory func(kind string) process.Sink

// Sinks hands out one sink per tool kind. A sink is created on first use and
// reused for every later invocation of the same kind.
type Sinks struct {
	mu      sync.Mutex
	factory SinkFactory
	sinks   map[string]process.Sink
	order   []string
}

// NewSinks returns a registry that creates sinks with factory. A nil factory
// yields sinks that discard output.
func NewSinks(factory SinkFactory) *Sinks {
	if factory == nil {
		factory = func(string) process.Sink { return process.DiscardSink{} }
	}
	return &Sinks{factory: factory, sinks: make(map[string]process.Sink)}
}

// Get returns the sink for kind, creating it if needed.
func (s *Sinks) Get(kind string) process.Sink {
	s.mu.Lock()
	defer s.mu.Unlock()
	if sink, ok := s.sinks[kind]; ok {
		return sink
	}
	sink := s.factory(kind)
	s.sinks[kind] = sink
	s.order = append(s.order, kind)
	return sink
}

// Kinds lists the kinds that have a sink, in creation order.
func (s *Sinks) Kinds() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.order...)
}
