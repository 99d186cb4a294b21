// Package store persists extraction runs and their inference attempt
// audit trail. Persistence is optional: an unconfigured driver means the
// pipeline runs stateless.
package store

import (
	"context"

	"github.com/sells-group/pagelens/internal/model"
)

// RunFilter specifies criteria for listing runs.
type RunFilter struct {
	Status model.RunStatus `json:"status,omitempty"`
	URL    string          `json:"url,omitempty"`
	Limit  int             `json:"limit,omitempty"`
	Offset int             `json:"offset,omitempty"`
}

// Store defines the persistence interface for extraction runs.
type Store interface {
	// CreateRun records a new pending run.
	CreateRun(ctx context.Context, run *model.Run) error
	// FinishRun stores the terminal status, result, and attempt audit.
	FinishRun(ctx context.Context, run *model.Run) error
	GetRun(ctx context.Context, runID string) (*model.Run, error)
	ListRuns(ctx context.Context, filter RunFilter) ([]model.Run, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}
