// Package completion maintains the completion percentages on milestones and
// projects from the COMPLETED/total ratio of their tasks.
//
// Percentages are always recomputed from the task rows, never accepted from
// client input, and recompute runs on task create/delete/status change.
// Lock operations never touch completion.
package completion

import (
	"context"
	"time"

	"go.uber.org/zap"

	"acadtrack/internal/model"
	"acadtrack/internal/store"
	"acadtrack/pkg/metrics"
)

type Aggregator struct {
	store  store.Store
	logger *zap.Logger
}

func NewAggregator(st store.Store, logger *zap.Logger) *Aggregator {
	return &Aggregator{store: st, logger: logger}
}

// RecomputeMilestone recalculates and persists a milestone's completion
// percentage. A milestone with zero tasks is 0% complete, never 100.
func (a *Aggregator) RecomputeMilestone(ctx context.Context, milestoneID int) (float64, error) {
	start := time.Now()

	var pct float64
	err := a.store.RunInTx(ctx, func(tx store.Store) error {
		if _, err := tx.GetMilestone(ctx, milestoneID); err != nil {
			return err
		}
		total, completed, err := tx.CountTasksByMilestone(ctx, milestoneID)
		if err != nil {
			return err
		}
		pct = percentage(total, completed)
		return tx.SetMilestoneCompletion(ctx, milestoneID, pct)
	})
	if err != nil {
		a.logger.Error("Milestone recompute failed",
			zap.Int("milestone_id", milestoneID),
			zap.Error(err),
		)
		return 0, err
	}

	metrics.RecordRecompute("milestone", time.Since(start))
	a.logger.Debug("Milestone completion recomputed",
		zap.Int("milestone_id", milestoneID),
		zap.Float64("percentage", pct),
	)
	return pct, nil
}

// RecomputeProject recalculates a project's completion over every task under
// it, scoped and unscoped. When the ratio reaches 100% on a non-empty task
// set the project status flips to COMPLETED. The transition is one-way:
// reopening a task pulls the percentage back down on the next recompute but
// never reverts the status automatically.
func (a *Aggregator) RecomputeProject(ctx context.Context, projectID int) (float64, error) {
	start := time.Now()

	var pct float64
	err := a.store.RunInTx(ctx, func(tx store.Store) error {
		p, err := tx.GetProject(ctx, projectID)
		if err != nil {
			return err
		}
		total, completed, err := tx.CountTasksByProject(ctx, projectID)
		if err != nil {
			return err
		}
		pct = percentage(total, completed)
		if err := tx.SetProjectCompletion(ctx, projectID, pct); err != nil {
			return err
		}
		if total > 0 && pct >= 100.0 && p.Status != model.ProjectStatusCompleted {
			if err := tx.SetProjectStatus(ctx, projectID, model.ProjectStatusCompleted); err != nil {
				return err
			}
			a.logger.Info("Project auto-completed",
				zap.Int("project_id", projectID),
				zap.Int("task_count", total),
			)
		}
		return nil
	})
	if err != nil {
		a.logger.Error("Project recompute failed",
			zap.Int("project_id", projectID),
			zap.Error(err),
		)
		return 0, err
	}

	metrics.RecordRecompute("project", time.Since(start))
	a.logger.Debug("Project completion recomputed",
		zap.Int("project_id", projectID),
		zap.Float64("percentage", pct),
	)
	return pct, nil
}

// RecomputeForTask re-runs both aggregates affected by a task: its milestone
// (when scoped) and its project. Called after task create, delete and status
// change.
func (a *Aggregator) RecomputeForTask(ctx context.Context, task *model.Task) error {
	if task.MilestoneID != nil {
		if _, err := a.RecomputeMilestone(ctx, *task.MilestoneID); err != nil {
			return err
		}
	}
	_, err := a.RecomputeProject(ctx, task.ProjectID)
	return err
}

// percentage avoids both NaN on empty sets and stored rounding; callers
// truncate for display.
func percentage(total, completed int) float64 {
	if total == 0 {
		return 0.0
	}
	return float64(completed) / float64(total) * 100.0
}
