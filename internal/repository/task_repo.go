package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"acadtrack/internal/model"
	"acadtrack/internal/store"
)

type TaskRepository struct {
	db     Querier
	logger *zap.Logger
}

func NewTaskRepository(db Querier, logger *zap.Logger) *TaskRepository {
	return &TaskRepository{db: db, logger: logger}
}

const taskColumns = `
	id, project_id, milestone_id, title, description, status,
	locked, locked_by, locked_at, version, created_at, updated_at
`

func scanTask(row pgx.Row) (*model.Task, error) {
	var t model.Task
	err := row.Scan(
		&t.ID,
		&t.ProjectID,
		&t.MilestoneID,
		&t.Title,
		&t.Description,
		&t.Status,
		&t.Locked,
		&t.LockedBy,
		&t.LockedAt,
		&t.Version,
		&t.CreatedAt,
		&t.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	return &t, nil
}

func (r *TaskRepository) GetByID(ctx context.Context, id int) (*model.Task, error) {
	query := `SELECT ` + taskColumns + ` FROM tasks WHERE id = $1`
	return scanTask(r.db.QueryRow(ctx, query, id))
}

func (r *TaskRepository) Insert(ctx context.Context, t *model.Task) (int, error) {
	r.logger.Debug("Inserting task",
		zap.Int("project_id", t.ProjectID),
		zap.String("title", t.Title),
	)

	query := `
        INSERT INTO tasks (project_id, milestone_id, title, description, status)
        VALUES ($1, $2, $3, $4, $5)
        RETURNING id
    `
	var id int
	err := r.db.QueryRow(ctx, query,
		t.ProjectID,
		t.MilestoneID,
		t.Title,
		t.Description,
		model.TaskStatusNotStarted,
	).Scan(&id)
	if err != nil {
		r.logger.Error("Failed to insert task", zap.Error(err))
		return 0, err
	}

	r.logger.Info("Task inserted successfully",
		zap.Int("task_id", id),
		zap.Int("project_id", t.ProjectID),
	)
	return id, nil
}

func (r *TaskRepository) Delete(ctx context.Context, id int) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM tasks WHERE id = $1`, id)
	if err != nil {
		r.logger.Error("Failed to delete task", zap.Int("task_id", id), zap.Error(err))
		return err
	}
	if tag.RowsAffected() == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (r *TaskRepository) ListByMilestone(ctx context.Context, milestoneID int) ([]model.Task, error) {
	query := `
        SELECT ` + taskColumns + `
        FROM tasks
        WHERE milestone_id = $1
        ORDER BY id ASC
    `
	return r.list(ctx, query, milestoneID)
}

func (r *TaskRepository) ListUnscopedByProject(ctx context.Context, projectID int) ([]model.Task, error) {
	query := `
        SELECT ` + taskColumns + `
        FROM tasks
        WHERE project_id = $1 AND milestone_id IS NULL
        ORDER BY id ASC
    `
	return r.list(ctx, query, projectID)
}

func (r *TaskRepository) list(ctx context.Context, query string, arg any) ([]model.Task, error) {
	rows, err := r.db.Query(ctx, query, arg)
	if err != nil {
		r.logger.Error("Failed to list tasks", zap.Error(err))
		return nil, err
	}
	defer rows.Close()

	var tasks []model.Task
	for rows.Next() {
		var t model.Task
		if err := rows.Scan(
			&t.ID,
			&t.ProjectID,
			&t.MilestoneID,
			&t.Title,
			&t.Description,
			&t.Status,
			&t.Locked,
			&t.LockedBy,
			&t.LockedAt,
			&t.Version,
			&t.CreatedAt,
			&t.UpdatedAt,
		); err != nil {
			r.logger.Error("Failed to scan task", zap.Error(err))
			return nil, err
		}
		tasks = append(tasks, t)
	}

	return tasks, rows.Err()
}

// CountByMilestone returns total and completed task counts for a milestone in
// one pass so both come from the same snapshot.
func (r *TaskRepository) CountByMilestone(ctx context.Context, milestoneID int) (total, completed int, err error) {
	query := `
		SELECT COUNT(*), COUNT(*) FILTER (WHERE status = 'COMPLETED')
		FROM tasks
		WHERE milestone_id = $1
	`
	err = r.db.QueryRow(ctx, query, milestoneID).Scan(&total, &completed)
	if err != nil {
		r.logger.Error("Failed to count milestone tasks", zap.Int("milestone_id", milestoneID), zap.Error(err))
		return 0, 0, err
	}
	return total, completed, nil
}

// CountByProject counts every task under a project, scoped and unscoped.
func (r *TaskRepository) CountByProject(ctx context.Context, projectID int) (total, completed int, err error) {
	query := `
		SELECT COUNT(*), COUNT(*) FILTER (WHERE status = 'COMPLETED')
		FROM tasks
		WHERE project_id = $1
	`
	err = r.db.QueryRow(ctx, query, projectID).Scan(&total, &completed)
	if err != nil {
		r.logger.Error("Failed to count project tasks", zap.Int("project_id", projectID), zap.Error(err))
		return 0, 0, err
	}
	return total, completed, nil
}

func (r *TaskRepository) SetLock(ctx context.Context, id, version int, upd store.LockUpdate) error {
	query := `
		UPDATE tasks
		SET locked = $1, locked_by = $2, locked_at = $3,
		    version = version + 1, updated_at = NOW()
		WHERE id = $4 AND version = $5
	`
	tag, err := r.db.Exec(ctx, query, upd.Locked, upd.ActorID, upd.At, id, version)
	if err != nil {
		r.logger.Error("Failed to update task lock", zap.Int("task_id", id), zap.Error(err))
		return err
	}
	if tag.RowsAffected() == 0 {
		return store.ErrVersionConflict
	}
	return nil
}

func (r *TaskRepository) UpdateStatus(ctx context.Context, id, version int, status string) error {
	query := `
		UPDATE tasks
		SET status = $1, version = version + 1, updated_at = NOW()
		WHERE id = $2 AND version = $3
	`
	tag, err := r.db.Exec(ctx, query, status, id, version)
	if err != nil {
		r.logger.Error("Failed to update task status", zap.Int("task_id", id), zap.Error(err))
		return err
	}
	if tag.RowsAffected() == 0 {
		return store.ErrVersionConflict
	}
	return nil
}
