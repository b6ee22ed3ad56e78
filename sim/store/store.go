// Package store persists finished dispatch runs.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/dispatch-sim/dispatch-sim/sim"
)

// ErrNotFound is returned when a run ID has no stored run.
var ErrNotFound = errors.New("run not found")

// DefaultListLimit caps ListRuns when the caller passes a non-positive limit.
const DefaultListLimit = 20

// Run is one persisted dispatch result.
type Run struct {
	ID        string        `json:"id"`
	Policy    string        `json:"policy"`
	Makespan  float64       `json:"makespan"`
	Jobs      int           `json:"jobs"`
	CreatedAt time.Time     `json:"created_at"`
	Schedule  *sim.Schedule `json:"schedule"`
	Metrics   *sim.Metrics  `json:"metrics,omitempty"`
}

// NewRun wraps a finished result with a fresh ID and creation time.
func NewRun(sys *sim.System, res *sim.Result) *Run {
	return &Run{
		ID:        "run_" + uuid.New().String(),
		Policy:    res.Schedule.ScheduleType,
		Makespan:  res.Schedule.Time,
		Jobs:      len(sys.Jobs),
		CreatedAt: time.Now().UTC(),
		Schedule:  res.Schedule,
		Metrics:   res.Metrics,
	}
}

// Store is the run history.
type Store interface {
	SaveRun(ctx context.Context, run *Run) error
	GetRun(ctx context.Context, id string) (*Run, error)
	ListRuns(ctx context.Context, limit int) ([]*Run, error)
	Close() error
}
