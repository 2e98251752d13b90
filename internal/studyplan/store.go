package studyplan

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Store persists plans. Implementations must make ApplyTransition an atomic
// read-modify-write of one plan.
type Store interface {
	// Save inserts a plan, or replaces the user's plan for the same syllabus.
	// When the stored plan has the same fingerprint it is returned unchanged.
	Save(ctx context.Context, plan *Plan) (*Plan, error)
	Get(ctx context.Context, planID string) (*Plan, error)
	FindBySyllabus(ctx context.Context, userID, syllabusID string) (*Plan, error)
	// ListByUser returns the user's plans, newest first.
	ListByUser(ctx context.Context, userID string) ([]*Plan, error)
	// FindPlanContaining returns the user's newest plan with an entry for topicID.
	FindPlanContaining(ctx context.Context, userID, topicID string) (*Plan, error)
	// ApplyTransition applies t to topicID in the plan FindPlanContaining
	// would return. It returns the updated plan and whether the entry changed.
	ApplyTransition(ctx context.Context, userID, topicID string, t Transition) (*Plan, bool, error)
}

// MemoryStore is an in-memory implementation of Store. Plans handed out are
// copies; the store's own state is only changed under its lock.
type MemoryStore struct {
	plans map[string]*Plan
	mu    sync.RWMutex
}

// NewMemoryStore creates a new in-memory plan store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		plans: make(map[string]*Plan),
	}
}

func (s *MemoryStore) Save(_ context.Context, plan *Plan) (*Plan, error) {
	if plan == nil || plan.UserID == "" {
		return nil, fmt.Errorf("user_id is required: %w", ErrInvalidInput)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	stored := plan.Clone()
	if stored.CreatedAt.IsZero() {
		stored.CreatedAt = time.Now()
	}

	if stored.SyllabusID != "" {
		if existing := s.bySyllabusLocked(stored.UserID, stored.SyllabusID); existing != nil {
			if existing.Fingerprint == stored.Fingerprint {
				return existing.Clone(), nil
			}
			stored.ID = existing.ID
			s.plans[stored.ID] = stored
			return stored.Clone(), nil
		}
	}

	if stored.ID == "" {
		stored.ID = uuid.NewString()
	}
	if _, taken := s.plans[stored.ID]; taken {
		return nil, fmt.Errorf("plan %s already exists: %w", stored.ID, ErrConflict)
	}
	s.plans[stored.ID] = stored
	return stored.Clone(), nil
}

func (s *MemoryStore) Get(_ context.Context, planID string) (*Plan, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	plan, ok := s.plans[planID]
	if !ok {
		return nil, fmt.Errorf("plan %s: %w", planID, ErrNotFound)
	}
	return plan.Clone(), nil
}

func (s *MemoryStore) FindBySyllabus(_ context.Context, userID, syllabusID string) (*Plan, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	plan := s.bySyllabusLocked(userID, syllabusID)
	if plan == nil {
		return nil, fmt.Errorf("plan for user %s syllabus %s: %w", userID, syllabusID, ErrNotFound)
	}
	return plan.Clone(), nil
}

func (s *MemoryStore) ListByUser(_ context.Context, userID string) ([]*Plan, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	plans := s.userPlansLocked(userID)
	out := make([]*Plan, len(plans))
	for i, p := range plans {
		out[i] = p.Clone()
	}
	return out, nil
}

func (s *MemoryStore) FindPlanContaining(_ context.Context, userID, topicID string) (*Plan, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	plan := s.containingLocked(userID, topicID)
	if plan == nil {
		return nil, fmt.Errorf("topic %s for user %s: %w", topicID, userID, ErrNotFound)
	}
	return plan.Clone(), nil
}

// ApplyTransition holds the write lock for the whole read-modify-write.
func (s *MemoryStore) ApplyTransition(_ context.Context, userID, topicID string, t Transition) (*Plan, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	plan := s.containingLocked(userID, topicID)
	if plan == nil {
		return nil, false, fmt.Errorf("topic %s for user %s: %w", topicID, userID, ErrNotFound)
	}
	_, changed := plan.Apply(topicID, t)
	return plan.Clone(), changed, nil
}

func (s *MemoryStore) bySyllabusLocked(userID, syllabusID string) *Plan {
	for _, p := range s.userPlansLocked(userID) {
		if p.SyllabusID == syllabusID {
			return p
		}
	}
	return nil
}

func (s *MemoryStore) containingLocked(userID, topicID string) *Plan {
	for _, p := range s.userPlansLocked(userID) {
		if p.Contains(topicID) {
			return p
		}
	}
	return nil
}

// userPlansLocked returns the user's plans newest first, ties broken by ID.
func (s *MemoryStore) userPlansLocked(userID string) []*Plan {
	var plans []*Plan
	for _, p := range s.plans {
		if p.UserID == userID {
			plans = append(plans, p)
		}
	}
	sort.Slice(plans, func(i, j int) bool {
		if !plans[i].CreatedAt.Equal(plans[j].CreatedAt) {
			return plans[i].CreatedAt.After(plans[j].CreatedAt)
		}
		return plans[i].ID < plans[j].ID
	})
	return plans
}
