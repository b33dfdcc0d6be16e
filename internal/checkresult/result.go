// Package checkresult defines the snapshot of a model-check run that the
// result panel displays.
package checkresult

import (
	"bytes"
	"encoding/json"
	"time"
)

// Source identifies where a check result came from.
type Source string

const (
	SourceProcess Source = "process"
	SourceOutFile Source = "outFile"
)

// State is the coarse lifecycle state of a model-check run.
type State string

const (
	StateNotStarted State = "NotStarted"
	StateRunning    State = "Running"
	StateSuccess    State = "Success"
	StateError      State = "Error"
	StateFatal      State = "Fatal"
	StateStopped    State = "Stopped"
)

// Result is an immutable snapshot of one model-check run. It is replaced
// wholesale on every update; fields must not be modified after construction.
type Result struct {
	Source    Source          `json:"source"`
	State     State           `json:"state"`
	ModelName string          `json:"modelName,omitempty"`
	Status    string          `json:"status,omitempty"`
	StartTime *time.Time      `json:"startDateTime,omitempty"`
	EndTime   *time.Time      `json:"endDateTime,omitempty"`
	Details   json.RawMessage `json:"details,omitempty"`
}

// Empty returns the "no run has happened yet" sentinel for source.
func Empty(source Source) Result {
	return Result{Source: source, State: StateNotStarted}
}

// IsEmpty reports whether r is the sentinel produced by Empty.
func (r Result) IsEmpty() bool {
	return r.State == StateNotStarted && r.ModelName == "" && r.Status == "" && len(r.Details) == 0
}

// Clone returns a deep copy of r so callers never share the details buffer.
func (r Result) Clone() Result {
	c := r
	if r.Details != nil {
		c.Details = bytes.Clone(r.Details)
	}
	if r.StartTime != nil {
		t := *r.StartTime
		c.StartTime = &t
	}
	if r.EndTime != nil {
		t := *r.EndTime
		c.EndTime = &t
	}
	return c
}

// WithDetails returns a copy of r carrying a private copy of details.
func (r Result) WithDetails(details json.RawMessage) Result {
	c := r.Clone()
	c.Details = bytes.Clone(details)
	return c
}

// Finished reports whether the run reached a terminal state.
func (r Result) Finished() bool {
	switch r.State {
	case StateSuccess, StateError, StateFatal, StateStopped:
		return true
	}
	return false
}
