package studyplan

import (
	"errors"

	"github.com/p-n-ai/pai-planner/internal/schedule"
)

var (
	// ErrInvalidInput is the scheduling input error, shared so callers need
	// only check one sentinel.
	ErrInvalidInput = schedule.ErrInvalidInput
	ErrNotFound     = errors.New("not found")
	// ErrConflict reports a concurrent write the store refused; the caller may retry.
	ErrConflict = errors.New("conflict")
)
