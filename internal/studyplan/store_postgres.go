package studyplan

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/p-n-ai/pai-planner/internal/curriculum"
)

const dbTimeout = 5 * time.Second

var topicColumns = []string{
	"plan_id", "position", "topic_id", "subject", "name", "status",
	"allocated_minutes", "allocated_formatted", "scheduled_day", "difficulty", "completed_at",
}

const planColumns = `id::text, user_id, COALESCE(syllabus_id, ''), fingerprint, total_days,
	study_hours_per_day, daily_schedule, dropped_topic_ids, created_at`

// PostgresStore is a PostgreSQL-backed Store. Plans live in study_plans with
// one study_plan_topics row per entry.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a PostgreSQL-backed plan store.
func NewPostgresStore(pool *pgxpool.Pool) (*PostgresStore, error) {
	if pool == nil {
		return nil, fmt.Errorf("pool is nil")
	}
	return &PostgresStore{pool: pool}, nil
}

func (s *PostgresStore) Save(ctx context.Context, plan *Plan) (*Plan, error) {
	if plan == nil || plan.UserID == "" {
		return nil, fmt.Errorf("user_id is required: %w", ErrInvalidInput)
	}

	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	stored := plan.Clone()
	if stored.CreatedAt.IsZero() {
		stored.CreatedAt = time.Now()
	}
	daily, err := stored.Schedule.MarshalDailySchedule()
	if err != nil {
		return nil, fmt.Errorf("marshal daily schedule: %w", err)
	}
	dropped := stored.DroppedTopicIDs
	if dropped == nil {
		dropped = []string{}
	}

	var planID uuid.UUID
	err = pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		if stored.SyllabusID != "" {
			var existingID uuid.UUID
			var fingerprint string
			err := tx.QueryRow(ctx,
				`SELECT id, fingerprint FROM study_plans
				 WHERE user_id = $1 AND syllabus_id = $2
				 FOR UPDATE`,
				stored.UserID, stored.SyllabusID,
			).Scan(&existingID, &fingerprint)
			switch {
			case err == nil && fingerprint == stored.Fingerprint:
				planID = existingID
				return nil
			case err == nil:
				planID = existingID
				if _, err := tx.Exec(ctx,
					`UPDATE study_plans
					 SET fingerprint = $2, total_days = $3, study_hours_per_day = $4,
					     daily_schedule = $5::jsonb, dropped_topic_ids = $6, created_at = $7
					 WHERE id = $1`,
					planID, stored.Fingerprint, stored.Schedule.TotalDays, stored.Schedule.StudyHoursPerDay,
					string(daily), dropped, stored.CreatedAt,
				); err != nil {
					return fmt.Errorf("update plan: %w", err)
				}
				if _, err := tx.Exec(ctx, `DELETE FROM study_plan_topics WHERE plan_id = $1`, planID); err != nil {
					return fmt.Errorf("clear plan topics: %w", err)
				}
				return copyTopics(ctx, tx, planID, stored.Topics)
			case !errors.Is(err, pgx.ErrNoRows):
				return fmt.Errorf("find plan for syllabus: %w", err)
			}
		}

		if stored.ID == "" {
			planID = uuid.New()
		} else {
			id, err := uuid.Parse(stored.ID)
			if err != nil {
				return fmt.Errorf("plan id %q: %w", stored.ID, ErrInvalidInput)
			}
			planID = id
		}
		if _, err := tx.Exec(ctx,
			`INSERT INTO study_plans
			   (id, user_id, syllabus_id, fingerprint, total_days, study_hours_per_day,
			    daily_schedule, dropped_topic_ids, created_at)
			 VALUES ($1, $2, $3, $4, $5, $6, $7::jsonb, $8, $9)`,
			planID, stored.UserID, nullIfEmpty(stored.SyllabusID), stored.Fingerprint,
			stored.Schedule.TotalDays, stored.Schedule.StudyHoursPerDay,
			string(daily), dropped, stored.CreatedAt,
		); err != nil {
			return fmt.Errorf("insert plan: %w", err)
		}
		return copyTopics(ctx, tx, planID, stored.Topics)
	})
	if err != nil {
		return nil, mapError(err, "save plan", stored.UserID)
	}

	return s.Get(ctx, planID.String())
}

func copyTopics(ctx context.Context, tx pgx.Tx, planID uuid.UUID, topics []TopicEntry) error {
	rows := make([][]any, len(topics))
	for i, e := range topics {
		rows[i] = []any{
			planID, i, e.TopicID, e.Subject, e.Name, string(e.Status),
			e.AllocatedTime.Minutes, e.AllocatedTime.Formatted, e.ScheduledDay, string(e.Difficulty), e.CompletedAt,
		}
	}
	if _, err := tx.CopyFrom(ctx, pgx.Identifier{"study_plan_topics"}, topicColumns, pgx.CopyFromRows(rows)); err != nil {
		return fmt.Errorf("copy plan topics: %w", err)
	}
	return nil
}

func (s *PostgresStore) Get(ctx context.Context, planID string) (*Plan, error) {
	if _, err := uuid.Parse(planID); err != nil {
		return nil, fmt.Errorf("plan %s: %w", planID, ErrNotFound)
	}

	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	plans, err := s.queryPlans(ctx, `SELECT `+planColumns+` FROM study_plans WHERE id = $1::uuid`, planID)
	if err != nil {
		return nil, mapError(err, "plan", planID)
	}
	if len(plans) == 0 {
		return nil, fmt.Errorf("plan %s: %w", planID, ErrNotFound)
	}
	return plans[0], nil
}

func (s *PostgresStore) FindBySyllabus(ctx context.Context, userID, syllabusID string) (*Plan, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	plans, err := s.queryPlans(ctx,
		`SELECT `+planColumns+` FROM study_plans WHERE user_id = $1 AND syllabus_id = $2`,
		userID, syllabusID,
	)
	if err != nil {
		return nil, mapError(err, "plan for syllabus", syllabusID)
	}
	if len(plans) == 0 {
		return nil, fmt.Errorf("plan for user %s syllabus %s: %w", userID, syllabusID, ErrNotFound)
	}
	return plans[0], nil
}

func (s *PostgresStore) ListByUser(ctx context.Context, userID string) ([]*Plan, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	plans, err := s.queryPlans(ctx,
		`SELECT `+planColumns+` FROM study_plans WHERE user_id = $1 ORDER BY created_at DESC, id`,
		userID,
	)
	if err != nil {
		return nil, mapError(err, "plans for user", userID)
	}
	return plans, nil
}

func (s *PostgresStore) FindPlanContaining(ctx context.Context, userID, topicID string) (*Plan, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	var planID string
	err := s.pool.QueryRow(ctx,
		`SELECT p.id::text
		 FROM study_plans p
		 JOIN study_plan_topics t ON t.plan_id = p.id
		 WHERE p.user_id = $1 AND t.topic_id = $2
		 ORDER BY p.created_at DESC, p.id
		 LIMIT 1`,
		userID, topicID,
	).Scan(&planID)
	if err != nil {
		return nil, mapError(err, "topic", topicID)
	}
	return s.Get(ctx, planID)
}

// ApplyTransition updates the entry in a single statement; the target plan
// row is locked for the duration. The entry counts as changed under the same
// rule Transition.Apply uses.
func (s *PostgresStore) ApplyTransition(ctx context.Context, userID, topicID string, t Transition) (*Plan, bool, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	var (
		planID  string
		changed bool
	)
	err := s.pool.QueryRow(ctx,
		`WITH target AS (
		   SELECT p.id, t.status AS old_status, t.completed_at AS old_completed_at
		   FROM study_plans p
		   JOIN study_plan_topics t ON t.plan_id = p.id
		   WHERE p.user_id = $1 AND t.topic_id = $2
		   ORDER BY p.created_at DESC, p.id
		   LIMIT 1
		   FOR UPDATE OF p
		 ), updated AS (
		   UPDATE study_plan_topics t
		   SET status = $3,
		       completed_at = CASE WHEN $3::text = 'completed' THEN COALESCE(t.completed_at, $4::timestamptz) ELSE NULL END
		   FROM target
		   WHERE t.plan_id = target.id AND t.topic_id = $2
		   RETURNING t.plan_id
		 )
		 SELECT u.plan_id::text,
		        NOT (target.old_status::text = $3::text
		             AND (target.old_completed_at IS NOT NULL) = ($3::text = 'completed'))
		 FROM updated u, target
		 LIMIT 1`,
		userID, topicID, string(t.Target()), t.at,
	).Scan(&planID, &changed)
	if err != nil {
		return nil, false, mapError(err, "topic", topicID)
	}
	plan, err := s.Get(ctx, planID)
	if err != nil {
		return nil, false, err
	}
	return plan, changed, nil
}

func (s *PostgresStore) queryPlans(ctx context.Context, query string, args ...any) ([]*Plan, error) {
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}

	var plans []*Plan
	for rows.Next() {
		var (
			p     Plan
			daily []byte
		)
		if err := rows.Scan(
			&p.ID, &p.UserID, &p.SyllabusID, &p.Fingerprint, &p.Schedule.TotalDays,
			&p.Schedule.StudyHoursPerDay, &daily, &p.DroppedTopicIDs, &p.CreatedAt,
		); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan plan: %w", err)
		}
		if err := json.Unmarshal(daily, &p.Schedule.DailySchedule); err != nil {
			rows.Close()
			return nil, fmt.Errorf("decode daily schedule: %w", err)
		}
		p.Partial = len(p.DroppedTopicIDs) > 0
		if len(p.DroppedTopicIDs) == 0 {
			p.DroppedTopicIDs = nil
		}
		plans = append(plans, &p)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if err := s.loadTopics(ctx, plans); err != nil {
		return nil, err
	}
	return plans, nil
}

func (s *PostgresStore) loadTopics(ctx context.Context, plans []*Plan) error {
	if len(plans) == 0 {
		return nil
	}
	ids := make([]string, len(plans))
	byID := make(map[string]*Plan, len(plans))
	for i, p := range plans {
		ids[i] = p.ID
		byID[p.ID] = p
		p.Topics = []TopicEntry{}
	}

	rows, err := s.pool.Query(ctx,
		`SELECT plan_id::text, topic_id, subject, name, status, allocated_minutes,
		        allocated_formatted, scheduled_day, difficulty, completed_at
		 FROM study_plan_topics
		 WHERE plan_id = ANY($1::uuid[])
		 ORDER BY plan_id, position`,
		ids,
	)
	if err != nil {
		return fmt.Errorf("query plan topics: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			planID     string
			status     string
			difficulty string
			e          TopicEntry
		)
		if err := rows.Scan(
			&planID, &e.TopicID, &e.Subject, &e.Name, &status, &e.AllocatedTime.Minutes,
			&e.AllocatedTime.Formatted, &e.ScheduledDay, &difficulty, &e.CompletedAt,
		); err != nil {
			return fmt.Errorf("scan plan topic: %w", err)
		}
		e.Status = Status(status)
		e.Difficulty = curriculum.Difficulty(difficulty)
		if p, ok := byID[planID]; ok {
			p.Topics = append(p.Topics, e)
		}
	}
	return rows.Err()
}

func mapError(err error, entity, id string) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return fmt.Errorf("%s %s: %w", entity, id, err)
	}
	if errors.Is(err, ErrInvalidInput) || errors.Is(err, ErrNotFound) {
		return fmt.Errorf("%s %s: %w", entity, id, err)
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("%s %s: %w", entity, id, ErrNotFound)
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23505": // unique_violation
			return fmt.Errorf("%s %s: %w", entity, id, ErrConflict)
		case "40001", "40P01": // serialization_failure, deadlock_detected
			return fmt.Errorf("%s %s: %w", entity, id, ErrConflict)
		case "22P02": // invalid_text_representation
			return fmt.Errorf("%s %s: %w", entity, id, ErrNotFound)
		}
	}

	return fmt.Errorf("%s %s: %w", entity, id, err)
}

func nullIfEmpty(v string) any {
	if v == "" {
		return nil
	}
	return v
}
