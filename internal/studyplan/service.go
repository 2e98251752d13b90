package studyplan

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/p-n-ai/pai-planner/internal/curriculum"
	"github.com/p-n-ai/pai-planner/internal/schedule"
)

// DifficultyRater assigns difficulties to topics before scheduling.
type DifficultyRater interface {
	Rate(ctx context.Context, topics []curriculum.Topic) ([]curriculum.Topic, error)
}

// ProgressNotifier receives progress after every topic transition.
type ProgressNotifier interface {
	NotifyProgress(ctx context.Context, event ProgressEvent) error
}

// Config holds dependencies for the plan service.
type Config struct {
	Store    Store
	Planner  *schedule.Planner
	Defaults schedule.Options // used for zero-valued request options (default 2h over 30 days)
	Events   EventLogger
	Notifier ProgressNotifier // optional
	Rater    DifficultyRater  // optional
	Now      func() time.Time
}

// Service creates plans and tracks topic completion.
type Service struct {
	store    Store
	planner  *schedule.Planner
	defaults schedule.Options
	events   EventLogger
	notifier ProgressNotifier
	rater    DifficultyRater
	now      func() time.Time
}

// NewService creates a plan service, filling unset dependencies with
// in-memory defaults.
func NewService(cfg Config) *Service {
	store := cfg.Store
	if store == nil {
		store = NewMemoryStore()
	}
	planner := cfg.Planner
	if planner == nil {
		planner = schedule.NewPlanner(schedule.DefaultWeights())
	}
	defaults := cfg.Defaults
	if defaults.HoursPerDay == 0 {
		defaults.HoursPerDay = schedule.DefaultHoursPerDay
	}
	if defaults.TotalDays == 0 {
		defaults.TotalDays = schedule.DefaultTotalDays
	}
	events := cfg.Events
	if events == nil {
		events = NopEventLogger{}
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	return &Service{
		store:    store,
		planner:  planner,
		defaults: defaults,
		events:   events,
		notifier: cfg.Notifier,
		rater:    cfg.Rater,
		now:      now,
	}
}

// CreateInput is a request to schedule topics for one user. Zero HoursPerDay
// or TotalDays take the service defaults.
type CreateInput struct {
	UserID      string             `json:"user_id"`
	SyllabusID  string             `json:"syllabus_id,omitempty"`
	Topics      []curriculum.Topic `json:"topics"`
	HoursPerDay float64            `json:"study_hours_per_day,omitempty"`
	TotalDays   int                `json:"total_days,omitempty"`
}

func (s *Service) options(in CreateInput) (schedule.Options, error) {
	opts := s.defaults
	switch {
	case in.HoursPerDay < 0:
		return opts, &schedule.ValidationError{Field: "study_hours_per_day", Message: fmt.Sprintf("must be positive, got %v", in.HoursPerDay)}
	case in.HoursPerDay > 0:
		opts.HoursPerDay = in.HoursPerDay
	}
	switch {
	case in.TotalDays < 0:
		return opts, &schedule.ValidationError{Field: "total_days", Message: fmt.Sprintf("must be at least 1, got %d", in.TotalDays)}
	case in.TotalDays > 0:
		opts.TotalDays = in.TotalDays
	}
	return opts, opts.Validate()
}

// CreatePlan schedules the topics and stores the plan. When the user already
// has a plan for the syllabus built from the same input, that plan is
// returned with its completion state intact.
func (s *Service) CreatePlan(ctx context.Context, in CreateInput) (*Plan, error) {
	if in.UserID == "" {
		return nil, &schedule.ValidationError{Field: "user_id", Message: "is required"}
	}
	opts, err := s.options(in)
	if err != nil {
		return nil, err
	}

	// Difficulties are stored as weighed, so "HARD" becomes "hard" here.
	topics := normalizeTopics(in.Topics)
	fingerprint := Fingerprint(topics, opts)
	if in.SyllabusID != "" {
		existing, err := s.store.FindBySyllabus(ctx, in.UserID, in.SyllabusID)
		switch {
		case err == nil && existing.Fingerprint == fingerprint:
			slog.Info("plan unchanged",
				"user_id", in.UserID,
				"plan_id", existing.ID,
				"syllabus_id", in.SyllabusID,
			)
			return existing, nil
		case err != nil && !errors.Is(err, ErrNotFound):
			return nil, fmt.Errorf("find existing plan: %w", err)
		}
	}

	if s.rater != nil && len(topics) > 0 {
		rated, err := s.rater.Rate(ctx, topics)
		if err != nil {
			slog.Warn("difficulty rating failed, keeping input difficulties",
				"user_id", in.UserID,
				"error", err,
			)
		} else {
			topics = normalizeTopics(rated)
		}
	}

	res, err := s.planner.Plan(topics, opts)
	if err != nil {
		return nil, err
	}

	plan := NewPlan(in.UserID, in.SyllabusID, topics, opts, res, s.now())
	plan.Fingerprint = fingerprint

	saved, err := s.store.Save(ctx, plan)
	if err != nil {
		return nil, fmt.Errorf("save plan: %w", err)
	}

	slog.Info("plan created",
		"user_id", saved.UserID,
		"plan_id", saved.ID,
		"topics", len(saved.Topics),
		"total_days", saved.Schedule.TotalDays,
	)
	s.logEvent(ctx, Event{
		PlanID: saved.ID,
		UserID: saved.UserID,
		Data: PlanCreated{
			SyllabusID:       saved.SyllabusID,
			Topics:           len(saved.Topics),
			TotalDays:        saved.Schedule.TotalDays,
			StudyHoursPerDay: saved.Schedule.StudyHoursPerDay,
		},
	})

	if saved.Partial {
		slog.Warn("plan truncated, topics did not fit in the day budget",
			"user_id", saved.UserID,
			"plan_id", saved.ID,
			"dropped", len(saved.DroppedTopicIDs),
			"total_days", opts.TotalDays,
		)
		s.logEvent(ctx, Event{
			PlanID: saved.ID,
			UserID: saved.UserID,
			Data:   PlanTruncated{DroppedTopicIDs: saved.DroppedTopicIDs},
		})
	}

	return saved, nil
}

func normalizeTopics(in []curriculum.Topic) []curriculum.Topic {
	out := make([]curriculum.Topic, len(in))
	for i, t := range in {
		t.Difficulty = t.Difficulty.Normalize()
		out[i] = t
	}
	return out
}

func (s *Service) GetPlan(ctx context.Context, planID string) (*Plan, error) {
	return s.store.Get(ctx, planID)
}

func (s *Service) GetPlanForSyllabus(ctx context.Context, userID, syllabusID string) (*Plan, error) {
	return s.store.FindBySyllabus(ctx, userID, syllabusID)
}

// ListPlans returns the user's plans, newest first.
func (s *Service) ListPlans(ctx context.Context, userID string) ([]*Plan, error) {
	return s.store.ListByUser(ctx, userID)
}

// Progress summarises every plan of the user, newest first.
func (s *Service) Progress(ctx context.Context, userID string) ([]Progress, error) {
	plans, err := s.store.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	out := make([]Progress, len(plans))
	for i, p := range plans {
		out[i] = ComputeProgress(p)
	}
	return out, nil
}

// MarkComplete marks the topic completed in the user's newest plan that has it.
func (s *Service) MarkComplete(ctx context.Context, userID, topicID string) (*Plan, error) {
	return s.transition(ctx, userID, topicID, Complete(s.now()))
}

// MarkPending reopens the topic in the user's newest plan that has it.
func (s *Service) MarkPending(ctx context.Context, userID, topicID string) (*Plan, error) {
	return s.transition(ctx, userID, topicID, Reopen())
}

func (s *Service) transition(ctx context.Context, userID, topicID string, t Transition) (*Plan, error) {
	if userID == "" {
		return nil, &schedule.ValidationError{Field: "user_id", Message: "is required"}
	}
	if topicID == "" {
		return nil, &schedule.ValidationError{Field: "topic_id", Message: "is required"}
	}

	plan, changed, err := s.store.ApplyTransition(ctx, userID, topicID, t)
	if err != nil {
		return nil, err
	}
	if !changed {
		slog.Debug("topic status unchanged",
			"user_id", userID,
			"plan_id", plan.ID,
			"topic_id", topicID,
			"status", t.Target(),
		)
		return plan, nil
	}

	progress := ComputeProgress(plan)
	slog.Info("topic status changed",
		"user_id", userID,
		"plan_id", plan.ID,
		"topic_id", topicID,
		"status", t.Target(),
		"progress", progress.ProgressPercentage,
	)
	s.logEvent(ctx, Event{
		PlanID: plan.ID,
		UserID: userID,
		Data: TopicStatusChanged{
			TopicID:            topicID,
			Status:             t.Target(),
			ProgressPercentage: progress.ProgressPercentage,
		},
	})

	if s.notifier != nil {
		event := ProgressEvent{
			UserID:   userID,
			TopicID:  topicID,
			Status:   t.Target(),
			Progress: progress,
			At:       s.now(),
		}
		if err := s.notifier.NotifyProgress(ctx, event); err != nil {
			slog.Warn("progress notification failed",
				"user_id", userID,
				"topic_id", topicID,
				"error", err,
			)
		}
	}

	return plan, nil
}

func (s *Service) logEvent(ctx context.Context, event Event) {
	if event.CreatedAt.IsZero() {
		event.CreatedAt = s.now()
	}
	if err := s.events.LogEvent(ctx, event); err != nil {
		slog.Warn("failed to log event",
			"type", event.Type(),
			"plan_id", event.PlanID,
			"error", err,
		)
	}
}
