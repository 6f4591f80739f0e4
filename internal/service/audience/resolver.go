// Package audience resolves who should hear about a lock event and what the
// message says. Only project and milestone locks dispatch; the recipient set
// is every currently-active student member of the project minus the actor
// who took the lock.
package audience

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"acadtrack/internal/model"
	"acadtrack/internal/store"
)

type Resolver struct {
	store  store.Store
	logger *zap.Logger
}

func NewResolver(st store.Store, logger *zap.Logger) *Resolver {
	return &Resolver{store: st, logger: logger}
}

// Resolve returns the ordered set of user ids that should receive a lock
// notification for the given project, excluding the triggering actor and any
// inactive memberships. Delivery is the dispatcher's problem; this only
// decides who.
func (r *Resolver) Resolve(ctx context.Context, projectID, excludeUserID int) ([]int, error) {
	ids, err := r.store.ActiveStudentIDs(ctx, projectID)
	if err != nil {
		r.logger.Error("Audience resolution failed",
			zap.Int("project_id", projectID),
			zap.Error(err),
		)
		return nil, err
	}

	out := make([]int, 0, len(ids))
	for _, id := range ids {
		if id == excludeUserID {
			continue
		}
		out = append(out, id)
	}
	return out, nil
}

// BuildLockMessage renders the notification title and body for a node-locked
// event.
func BuildLockMessage(nodeType model.NodeType, nodeTitle string) (title, body string) {
	switch nodeType {
	case model.NodeProject:
		title = "Project locked"
		body = fmt.Sprintf("The project %q has been locked by your instructor. Its milestones and tasks are now read-only.", nodeTitle)
	case model.NodeMilestone:
		title = "Milestone locked"
		body = fmt.Sprintf("The milestone %q has been locked by your instructor. Its tasks are now read-only.", nodeTitle)
	default:
		title = "Item locked"
		body = fmt.Sprintf("%q has been locked.", nodeTitle)
	}
	return title, body
}
