package studyplan

import "time"

// Transition moves a topic entry between pending and completed.
type Transition struct {
	to Status
	at time.Time
}

// Complete marks an entry completed at the given time.
func Complete(at time.Time) Transition {
	return Transition{to: StatusCompleted, at: at}
}

// Reopen marks an entry pending again and clears its completion time.
func Reopen() Transition {
	return Transition{to: StatusPending}
}

// Target is the status the transition moves to.
func (t Transition) Target() Status {
	return t.to
}

// CompletedAt is the completion time a transition records, nil when reopening.
func (t Transition) CompletedAt() *time.Time {
	if t.to != StatusCompleted {
		return nil
	}
	at := t.at
	return &at
}

// Apply changes e and reports whether anything changed. Completing a
// completed entry keeps its original CompletedAt, so repeating a transition
// leaves the entry as the first application did.
func (t Transition) Apply(e *TopicEntry) bool {
	switch t.to {
	case StatusCompleted:
		if e.Status == StatusCompleted && e.CompletedAt != nil {
			return false
		}
		e.Status = StatusCompleted
		e.CompletedAt = t.CompletedAt()
		return true
	default:
		if e.Status == StatusPending && e.CompletedAt == nil {
			return false
		}
		e.Status = StatusPending
		e.CompletedAt = nil
		return true
	}
}
