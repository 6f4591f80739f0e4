// Package lock implements the per-node lock state machine and the cascade
// orchestrator for the project hierarchy.
//
// Locks cascade downward only: locking a project locks every milestone and
// every unscoped task under it, locking a milestone locks its tasks, and
// tasks are the cascade floor. Unlock never cascades; each sub-resource must
// be unlocked explicitly. Callers and notification text depend on this
// asymmetry.
package lock

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	contracts "acadtrack/contracts/mq"
	"acadtrack/internal/model"
	"acadtrack/internal/store"
	"acadtrack/pkg/metrics"
	"acadtrack/pkg/trace"
)

// ErrLocked is returned by guards that refuse to mutate or delete an
// effectively locked node.
var ErrLocked = errors.New("node is locked")

type Engine struct {
	store  store.Store
	logger *zap.Logger
}

func NewEngine(st store.Store, logger *zap.Logger) *Engine {
	return &Engine{store: st, logger: logger}
}

// LockWithCascade locks the named node and its structural descendants in
// pre-order (parent before child) inside one transaction. Locking an
// already-locked node is idempotent: the flag stays set and actor/timestamp
// are overwritten, so cascade retries never fail on their own footprint.
//
// Project and milestone cascades enqueue exactly one node-locked event for
// the root action; task and report locks stay silent. A missing node
// anywhere in the cascade set aborts and rolls back the whole operation.
func (e *Engine) LockWithCascade(ctx context.Context, nodeType model.NodeType, id, actorID int) error {
	start := time.Now()
	now := start.UTC()
	upd := store.LockUpdate{Locked: true, ActorID: &actorID, At: &now}

	nodes := 0
	err := e.store.RunInTx(ctx, func(tx store.Store) error {
		switch nodeType {
		case model.NodeProject:
			p, err := tx.GetProject(ctx, id)
			if err != nil {
				return err
			}
			if err := tx.SetNodeLock(ctx, model.NodeProject, p.ID, p.Version, upd); err != nil {
				return err
			}
			nodes++

			milestones, err := tx.MilestonesByProject(ctx, p.ID)
			if err != nil {
				return err
			}
			for i := range milestones {
				n, err := e.lockMilestoneSubtree(ctx, tx, &milestones[i], upd)
				if err != nil {
					return err
				}
				nodes += n
			}

			unscoped, err := tx.UnscopedTasksByProject(ctx, p.ID)
			if err != nil {
				return err
			}
			for i := range unscoped {
				t := &unscoped[i]
				if err := tx.SetNodeLock(ctx, model.NodeTask, t.ID, t.Version, upd); err != nil {
					return err
				}
				nodes++
			}

			return e.enqueueLocked(ctx, tx, model.NodeProject, p.ID, p.ID, p.Title, actorID, now)

		case model.NodeMilestone:
			m, err := tx.GetMilestone(ctx, id)
			if err != nil {
				return err
			}
			n, err := e.lockMilestoneSubtree(ctx, tx, m, upd)
			if err != nil {
				return err
			}
			nodes += n
			return e.enqueueLocked(ctx, tx, model.NodeMilestone, m.ID, m.ProjectID, m.Title, actorID, now)

		case model.NodeTask:
			t, err := tx.GetTask(ctx, id)
			if err != nil {
				return err
			}
			nodes++
			return tx.SetNodeLock(ctx, model.NodeTask, t.ID, t.Version, upd)

		case model.NodeReport:
			r, err := tx.GetReport(ctx, id)
			if err != nil {
				return err
			}
			nodes++
			return tx.SetNodeLock(ctx, model.NodeReport, r.ID, r.Version, upd)

		default:
			return store.ErrNotFound
		}
	})

	if err != nil {
		e.logger.Error("Lock cascade failed",
			zap.String("node_type", string(nodeType)),
			zap.Int("node_id", id),
			zap.Int("actor_id", actorID),
			zap.Error(err),
		)
		return err
	}

	metrics.RecordLockCascade(string(nodeType), nodes, time.Since(start))
	e.logger.Info("Lock cascade committed",
		zap.String("node_type", string(nodeType)),
		zap.Int("node_id", id),
		zap.Int("actor_id", actorID),
		zap.Int("nodes_locked", nodes),
	)
	return nil
}

func (e *Engine) lockMilestoneSubtree(ctx context.Context, tx store.Store, m *model.Milestone, upd store.LockUpdate) (int, error) {
	if err := tx.SetNodeLock(ctx, model.NodeMilestone, m.ID, m.Version, upd); err != nil {
		return 0, err
	}
	nodes := 1

	tasks, err := tx.TasksByMilestone(ctx, m.ID)
	if err != nil {
		return nodes, err
	}
	for i := range tasks {
		t := &tasks[i]
		if err := tx.SetNodeLock(ctx, model.NodeTask, t.ID, t.Version, upd); err != nil {
			return nodes, err
		}
		nodes++
	}
	return nodes, nil
}

// enqueueLocked records the post-commit node-locked event for the cascade
// root. Inserting into the outbox inside the same transaction means the
// event exists exactly when the lock does; delivery happens after commit and
// its failures can never roll the lock back.
func (e *Engine) enqueueLocked(ctx context.Context, tx store.Store, nodeType model.NodeType, nodeID, projectID int, title string, actorID int, at time.Time) error {
	routingKey := contracts.RoutingKeyProjectLocked
	if nodeType == model.NodeMilestone {
		routingKey = contracts.RoutingKeyMilestoneLocked
	}
	payload := contracts.NodeLockedPayload{
		NodeType:  string(nodeType),
		NodeID:    nodeID,
		ProjectID: projectID,
		Title:     title,
		ActorID:   actorID,
		LockedAt:  at,
		TraceID:   trace.FromContext(ctx),
	}
	return tx.EnqueueEvent(ctx, string(nodeType), int64(nodeID), routingKey, payload)
}

// Unlock clears the lock fields on exactly the named node. Descendants keep
// whatever lock state they have; there is no upward or downward propagation.
func (e *Engine) Unlock(ctx context.Context, nodeType model.NodeType, id int) error {
	upd := store.LockUpdate{Locked: false}

	err := e.store.RunInTx(ctx, func(tx store.Store) error {
		version, err := e.nodeVersion(ctx, tx, nodeType, id)
		if err != nil {
			return err
		}
		return tx.SetNodeLock(ctx, nodeType, id, version, upd)
	})
	if err != nil {
		e.logger.Error("Unlock failed",
			zap.String("node_type", string(nodeType)),
			zap.Int("node_id", id),
			zap.Error(err),
		)
		return err
	}

	e.logger.Info("Node unlocked",
		zap.String("node_type", string(nodeType)),
		zap.Int("node_id", id),
	)
	return nil
}

func (e *Engine) nodeVersion(ctx context.Context, tx store.Store, nodeType model.NodeType, id int) (int, error) {
	switch nodeType {
	case model.NodeProject:
		p, err := tx.GetProject(ctx, id)
		if err != nil {
			return 0, err
		}
		return p.Version, nil
	case model.NodeMilestone:
		m, err := tx.GetMilestone(ctx, id)
		if err != nil {
			return 0, err
		}
		return m.Version, nil
	case model.NodeTask:
		t, err := tx.GetTask(ctx, id)
		if err != nil {
			return 0, err
		}
		return t.Version, nil
	case model.NodeReport:
		r, err := tx.GetReport(ctx, id)
		if err != nil {
			return 0, err
		}
		return r.Version, nil
	}
	return 0, store.ErrNotFound
}

// IsEffectivelyLocked reports whether the node itself or any ancestor in the
// hierarchy carries a lock. The answer is recomputed from the ancestor chain
// on every call and never cached on the child.
//
// A missing ancestor resolves as not locked (fail-open): an orphaned node
// stays available instead of erroring. The node itself must exist.
func (e *Engine) IsEffectivelyLocked(ctx context.Context, nodeType model.NodeType, id int) (bool, error) {
	switch nodeType {
	case model.NodeProject:
		p, err := e.store.GetProject(ctx, id)
		if err != nil {
			return false, err
		}
		return p.Locked, nil

	case model.NodeMilestone:
		m, err := e.store.GetMilestone(ctx, id)
		if err != nil {
			return false, err
		}
		if m.Locked {
			return true, nil
		}
		return e.ancestorProjectLocked(ctx, m.ProjectID), nil

	case model.NodeTask:
		t, err := e.store.GetTask(ctx, id)
		if err != nil {
			return false, err
		}
		if t.Locked {
			return true, nil
		}
		if t.MilestoneID != nil && e.ancestorMilestoneLocked(ctx, *t.MilestoneID) {
			return true, nil
		}
		return e.ancestorProjectLocked(ctx, t.ProjectID), nil

	case model.NodeReport:
		r, err := e.store.GetReport(ctx, id)
		if err != nil {
			return false, err
		}
		if r.Locked {
			return true, nil
		}
		milestoneID := r.MilestoneID
		if r.TaskID != nil {
			t, err := e.store.GetTask(ctx, *r.TaskID)
			if err == nil {
				if t.Locked {
					return true, nil
				}
				if milestoneID == nil {
					milestoneID = t.MilestoneID
				}
			} else if !errors.Is(err, store.ErrNotFound) {
				e.logger.Warn("Ancestor task lookup failed, treating as unlocked",
					zap.Int("task_id", *r.TaskID),
					zap.Error(err),
				)
			}
		}
		if milestoneID != nil && e.ancestorMilestoneLocked(ctx, *milestoneID) {
			return true, nil
		}
		return e.ancestorProjectLocked(ctx, r.ProjectID), nil
	}

	return false, store.ErrNotFound
}

// ancestorProjectLocked resolves a project's own lock flag, treating a
// missing project as unlocked.
func (e *Engine) ancestorProjectLocked(ctx context.Context, projectID int) bool {
	p, err := e.store.GetProject(ctx, projectID)
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			e.logger.Warn("Ancestor project lookup failed, treating as unlocked",
				zap.Int("project_id", projectID),
				zap.Error(err),
			)
		}
		return false
	}
	return p.Locked
}

func (e *Engine) ancestorMilestoneLocked(ctx context.Context, milestoneID int) bool {
	m, err := e.store.GetMilestone(ctx, milestoneID)
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			e.logger.Warn("Ancestor milestone lookup failed, treating as unlocked",
				zap.Int("milestone_id", milestoneID),
				zap.Error(err),
			)
		}
		return false
	}
	return m.Locked
}

// LockObjectives sets the independent objectives/scope lock on a project.
// It is a second lock dimension: no cascade, no notification, and no effect
// on the main lock walk.
func (e *Engine) LockObjectives(ctx context.Context, projectID int) error {
	return e.setObjectivesLock(ctx, projectID, true)
}

// UnlockObjectives clears the objectives/scope lock.
func (e *Engine) UnlockObjectives(ctx context.Context, projectID int) error {
	return e.setObjectivesLock(ctx, projectID, false)
}

func (e *Engine) setObjectivesLock(ctx context.Context, projectID int, locked bool) error {
	err := e.store.RunInTx(ctx, func(tx store.Store) error {
		p, err := tx.GetProject(ctx, projectID)
		if err != nil {
			return err
		}
		return tx.SetProjectObjectivesLock(ctx, p.ID, p.Version, locked)
	})
	if err != nil {
		e.logger.Error("Objectives lock update failed",
			zap.Int("project_id", projectID),
			zap.Bool("locked", locked),
			zap.Error(err),
		)
		return err
	}
	e.logger.Info("Objectives lock updated",
		zap.Int("project_id", projectID),
		zap.Bool("locked", locked),
	)
	return nil
}
