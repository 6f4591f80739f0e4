// Package store defines the hierarchy persistence contract shared by the
// lock engine, the completion aggregator and the audience resolver. The
// postgres implementation lives in internal/repository; tests use in-memory
// fakes.
package store

import (
	"context"
	"errors"
	"time"

	"acadtrack/internal/model"
)

var (
	// ErrNotFound is returned when a node (or its CAS precondition row)
	// cannot be resolved.
	ErrNotFound = errors.New("node not found")

	// ErrVersionConflict is returned when an optimistic-lock update hits a
	// row whose version moved under it. The enclosing transaction must be
	// rolled back.
	ErrVersionConflict = errors.New("node version conflict")
)

// LockUpdate carries the lock fields written by a single state-machine
// transition. Actor and At are nil for unlock.
type LockUpdate struct {
	Locked  bool
	ActorID *int
	At      *time.Time
}

// Store is the hierarchy access surface consumed by the core services.
// All mutating methods use per-node version CAS and return
// ErrVersionConflict when the compare fails.
type Store interface {
	// RunInTx executes fn against a transaction-scoped Store. Any error
	// from fn rolls the whole transaction back.
	RunInTx(ctx context.Context, fn func(tx Store) error) error

	GetProject(ctx context.Context, id int) (*model.Project, error)
	GetMilestone(ctx context.Context, id int) (*model.Milestone, error)
	GetTask(ctx context.Context, id int) (*model.Task, error)
	GetReport(ctx context.Context, id int) (*model.Report, error)

	InsertProject(ctx context.Context, p *model.Project) (int, error)
	DeleteProject(ctx context.Context, id int) error
	UpdateProjectObjectives(ctx context.Context, id int, objectives, scope string) error

	InsertMilestone(ctx context.Context, m *model.Milestone) (int, error)
	DeleteMilestone(ctx context.Context, id int) error

	InsertTask(ctx context.Context, t *model.Task) (int, error)
	// UpdateTaskStatus applies a CAS status change to one task.
	UpdateTaskStatus(ctx context.Context, id, version int, status string) error
	DeleteTask(ctx context.Context, id int) error

	InsertReport(ctx context.Context, rep *model.Report) (int, error)
	DeleteReport(ctx context.Context, id int) error

	AddMember(ctx context.Context, m *model.Membership) error
	DeactivateMember(ctx context.Context, projectID, userID int) error
	MembersByProject(ctx context.Context, projectID int) ([]model.Membership, error)
	IsActiveMember(ctx context.Context, projectID, userID int) (bool, error)

	MilestonesByProject(ctx context.Context, projectID int) ([]model.Milestone, error)
	TasksByMilestone(ctx context.Context, milestoneID int) ([]model.Task, error)
	UnscopedTasksByProject(ctx context.Context, projectID int) ([]model.Task, error)

	// SetNodeLock applies a lock or unlock transition to exactly one node.
	SetNodeLock(ctx context.Context, nodeType model.NodeType, id, version int, upd LockUpdate) error

	// SetProjectObjectivesLock flips the independent objectives/scope lock
	// on a project. It never cascades and never notifies.
	SetProjectObjectivesLock(ctx context.Context, projectID, version int, locked bool) error

	// CountTasks returns (total, completed) for a milestone or for a whole
	// project (every milestone plus unscoped tasks).
	CountTasksByMilestone(ctx context.Context, milestoneID int) (total, completed int, err error)
	CountTasksByProject(ctx context.Context, projectID int) (total, completed int, err error)

	SetMilestoneCompletion(ctx context.Context, milestoneID int, pct float64) error
	SetProjectCompletion(ctx context.Context, projectID int, pct float64) error
	SetProjectStatus(ctx context.Context, projectID int, status string) error

	// ActiveStudentIDs lists user ids of active STUDENT members of a
	// project, ordered by user id.
	ActiveStudentIDs(ctx context.Context, projectID int) ([]int, error)

	// EnqueueEvent records a domain event in the transactional outbox. It
	// is only valid inside RunInTx; the dispatcher publishes it after
	// commit.
	EnqueueEvent(ctx context.Context, aggregateType string, aggregateID int64, routingKey string, payload any) error
}
