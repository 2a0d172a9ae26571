package runtime

import (
	"time"

	"github.com/kadirpekel/obot/pkg/orchestrate"
)

// EventType identifies a run lifecycle event.
type EventType string

const (
	EventPositionChanged       EventType = "position_changed"
	EventStepCompleted         EventType = "step_completed"
	EventConsultationRequested EventType = "consultation_requested"
	EventConsultationAnswered  EventType = "consultation_answered"
	EventSuspended             EventType = "suspended"
	EventResumed               EventType = "resumed"
	EventTerminated            EventType = "terminated"
)

// Event is one observation of the run, delivered on a bounded channel.
type Event struct {
	Type      EventType
	Schedule  orchestrate.ScheduleID
	Process   orchestrate.ProcessID
	FlowCode  string
	Detail    string
	Timestamp time.Time
}
