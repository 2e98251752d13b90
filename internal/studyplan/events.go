package studyplan

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Event types recorded for plans.
const (
	EventPlanCreated    = "plan_created"
	EventPlanTruncated  = "plan_truncated"
	EventTopicCompleted = "topic_completed"
	EventTopicReopened  = "topic_reopened"
)

// EventData is the payload of one kind of plan event. It is stored as the
// event's jsonb data column.
type EventData interface {
	EventType() string
}

// PlanCreated records the shape of a newly stored plan.
type PlanCreated struct {
	SyllabusID       string  `json:"syllabus_id,omitempty"`
	Topics           int     `json:"topics"`
	TotalDays        int     `json:"total_days"`
	StudyHoursPerDay float64 `json:"study_hours_per_day"`
}

func (PlanCreated) EventType() string { return EventPlanCreated }

// PlanTruncated lists the topics that did not fit in the day budget.
type PlanTruncated struct {
	DroppedTopicIDs []string `json:"dropped_topic_ids"`
}

func (PlanTruncated) EventType() string { return EventPlanTruncated }

// TopicStatusChanged records a completed or reopened topic and the plan's
// progress afterwards.
type TopicStatusChanged struct {
	TopicID            string `json:"topic_id"`
	Status             Status `json:"status"`
	ProgressPercentage int    `json:"progress_percentage"`
}

func (d TopicStatusChanged) EventType() string {
	if d.Status == StatusCompleted {
		return EventTopicCompleted
	}
	return EventTopicReopened
}

// Event represents an analytics event persisted to the plan_events table.
type Event struct {
	PlanID    string
	UserID    string
	Data      EventData
	CreatedAt time.Time
}

// Type is the event type named by the payload, or "" without one.
func (e Event) Type() string {
	if e.Data == nil {
		return ""
	}
	return e.Data.EventType()
}

// EventLogger defines event logging behavior.
type EventLogger interface {
	LogEvent(ctx context.Context, event Event) error
}

// NopEventLogger ignores all events.
type NopEventLogger struct{}

func (NopEventLogger) LogEvent(context.Context, Event) error {
	return nil
}

// MemoryEventLogger stores events in memory for tests.
type MemoryEventLogger struct {
	mu     sync.Mutex
	events []Event
}

func NewMemoryEventLogger() *MemoryEventLogger {
	return &MemoryEventLogger{
		events: []Event{},
	}
}

func (l *MemoryEventLogger) LogEvent(_ context.Context, event Event) error {
	if event.Type() == "" {
		return fmt.Errorf("event data is required")
	}
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now()
	}

	l.mu.Lock()
	l.events = append(l.events, event)
	l.mu.Unlock()

	return nil
}

func (l *MemoryEventLogger) Events() []Event {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]Event{}, l.events...)
}

// PostgresEventLogger inserts events into the plan_events table.
type PostgresEventLogger struct {
	pool *pgxpool.Pool
}

func NewPostgresEventLogger(pool *pgxpool.Pool) *PostgresEventLogger {
	return &PostgresEventLogger{pool: pool}
}

func (l *PostgresEventLogger) LogEvent(ctx context.Context, event Event) error {
	if l == nil || l.pool == nil {
		return fmt.Errorf("event logger pool is nil")
	}
	if event.Type() == "" {
		return fmt.Errorf("event data is required")
	}
	if event.PlanID == "" {
		return fmt.Errorf("plan_id is required")
	}

	data, err := json.Marshal(event.Data)
	if err != nil {
		return fmt.Errorf("marshal event data: %w", err)
	}

	createdAt := event.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}

	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	cmd, err := l.pool.Exec(ctx,
		`INSERT INTO plan_events (plan_id, user_id, event_type, data, created_at)
		 SELECT p.id, p.user_id, $2, $3::jsonb, $4
		 FROM study_plans p
		 WHERE p.id = $1::uuid`,
		event.PlanID,
		event.Type(),
		string(data),
		createdAt,
	)
	if err != nil {
		return fmt.Errorf("insert event: %w", err)
	}
	if cmd.RowsAffected() == 0 {
		return fmt.Errorf("plan not found: %s: %w", event.PlanID, ErrNotFound)
	}

	slog.Debug("event logged",
		"type", event.Type(),
		"plan_id", event.PlanID,
		"user_id", event.UserID,
	)
	return nil
}
