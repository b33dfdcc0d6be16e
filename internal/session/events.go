package session

import "time"

// EventType identifies the kind of session event.
type EventType string

const (
	EventPipelineStart    EventType = "pipeline_start"
	EventPipelineComplete EventType = "pipeline_complete"
	EventStepStart        EventType = "step_start"
	EventStepComplete     EventType = "step_complete"
	EventCleanup          EventType = "cleanup"
	EventError            EventType = "error"
)

// Event is a single timestamped entry in a session log.
type Event struct {
	Timestamp time.Time      `json:"timestamp"`
	Type      EventType      `json:"type"`
	Data      map[string]any `json:"data,omitempty"`
}

// NewEvent creates an event with the current timestamp.
func NewEvent(t EventType, data map[string]any) Event {
	return Event{
		Timestamp: time.Now().UTC(),
		Type:      t,
		Data:      data,
	}
}

// PipelineStartData returns event data for a pipeline start.
func PipelineStartData(steps []string) map[string]any {
	return map[string]any{
		"steps":      steps,
		"step_count": len(steps),
	}
}

// PipelineCompleteData returns event data for a pipeline end. failedStep is
// -1 when every step succeeded.
func PipelineCompleteData(success bool, failedStep, exitStatus int, durationMs int64) map[string]any {
	return map[string]any{
		"success":     success,
		"failed_step": failedStep,
		"exit_status": exitStatus,
		"duration_ms": durationMs,
	}
}

// StepStartData returns event data for a step start.
func StepStartData(step string, stepNum, totalSteps int, commandLine string) map[string]any {
	return map[string]any{
		"step":         step,
		"step_num":     stepNum,
		"total_steps":  totalSteps,
		"command_line": commandLine,
	}
}

// StepCompleteData returns event data for a step completion.
func StepCompleteData(step string, exitStatus int, succeeded bool, durationMs int64) map[string]any {
	return map[string]any{
		"step":        step,
		"exit_status": exitStatus,
		"succeeded":   succeeded,
		"duration_ms": durationMs,
	}
}

// CleanupData returns event data for the artifact cleanup of a step.
func CleanupData(step string, paths []string) map[string]any {
	return map[string]any{
		"step":  step,
		"paths": paths,
	}
}

// ErrorData returns event data for an error.
func ErrorData(message string, details map[string]any) map[string]any {
	d := map[string]any{
		"message": message,
	}
	for k, v := range details {
		d[k] = v
	}
	return d
}
