package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"acadtrack/internal/model"
	"acadtrack/internal/store"
)

type ProjectRepository struct {
	db     Querier
	logger *zap.Logger
}

func NewProjectRepository(db Querier, logger *zap.Logger) *ProjectRepository {
	return &ProjectRepository{db: db, logger: logger}
}

const projectColumns = `
	id, title, description, objectives, scope, status, completion_percentage,
	locked, locked_by, locked_at, objectives_locked, version, created_at, updated_at
`

func scanProject(row pgx.Row) (*model.Project, error) {
	var p model.Project
	err := row.Scan(
		&p.ID,
		&p.Title,
		&p.Description,
		&p.Objectives,
		&p.Scope,
		&p.Status,
		&p.CompletionPercentage,
		&p.Locked,
		&p.LockedBy,
		&p.LockedAt,
		&p.ObjectivesLocked,
		&p.Version,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	return &p, nil
}

func (r *ProjectRepository) GetByID(ctx context.Context, id int) (*model.Project, error) {
	query := `SELECT ` + projectColumns + ` FROM projects WHERE id = $1`
	return scanProject(r.db.QueryRow(ctx, query, id))
}

func (r *ProjectRepository) Insert(ctx context.Context, p *model.Project) (int, error) {
	r.logger.Debug("Inserting project",
		zap.String("title", p.Title),
	)

	query := `
        INSERT INTO projects (title, description, objectives, scope, status)
        VALUES ($1, $2, $3, $4, $5)
        RETURNING id
    `
	var id int
	err := r.db.QueryRow(ctx, query,
		p.Title,
		p.Description,
		p.Objectives,
		p.Scope,
		model.ProjectStatusActive,
	).Scan(&id)
	if err != nil {
		r.logger.Error("Failed to insert project", zap.Error(err))
		return 0, err
	}

	r.logger.Info("Project inserted successfully", zap.Int("project_id", id))
	return id, nil
}

func (r *ProjectRepository) Delete(ctx context.Context, id int) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM projects WHERE id = $1`, id)
	if err != nil {
		r.logger.Error("Failed to delete project", zap.Int("project_id", id), zap.Error(err))
		return err
	}
	if tag.RowsAffected() == 0 {
		return store.ErrNotFound
	}
	return nil
}

// SetLock applies a lock transition with a version CAS. Locking also moves
// status to LOCKED (unless the project already completed); unlocking restores
// ACTIVE from LOCKED and leaves COMPLETED alone.
func (r *ProjectRepository) SetLock(ctx context.Context, id, version int, upd store.LockUpdate) error {
	var query string
	if upd.Locked {
		query = `
			UPDATE projects
			SET locked = TRUE, locked_by = $1, locked_at = $2,
			    status = CASE WHEN status = 'COMPLETED' THEN status ELSE 'LOCKED' END,
			    version = version + 1, updated_at = NOW()
			WHERE id = $3 AND version = $4
		`
	} else {
		query = `
			UPDATE projects
			SET locked = FALSE, locked_by = $1, locked_at = $2,
			    status = CASE WHEN status = 'LOCKED' THEN 'ACTIVE' ELSE status END,
			    version = version + 1, updated_at = NOW()
			WHERE id = $3 AND version = $4
		`
	}

	tag, err := r.db.Exec(ctx, query, upd.ActorID, upd.At, id, version)
	if err != nil {
		r.logger.Error("Failed to update project lock", zap.Int("project_id", id), zap.Error(err))
		return err
	}
	if tag.RowsAffected() == 0 {
		return store.ErrVersionConflict
	}
	return nil
}

func (r *ProjectRepository) SetObjectivesLock(ctx context.Context, id, version int, locked bool) error {
	query := `
		UPDATE projects
		SET objectives_locked = $1, version = version + 1, updated_at = NOW()
		WHERE id = $2 AND version = $3
	`
	tag, err := r.db.Exec(ctx, query, locked, id, version)
	if err != nil {
		r.logger.Error("Failed to update objectives lock", zap.Int("project_id", id), zap.Error(err))
		return err
	}
	if tag.RowsAffected() == 0 {
		return store.ErrVersionConflict
	}
	return nil
}

func (r *ProjectRepository) SetCompletion(ctx context.Context, id int, pct float64) error {
	query := `
		UPDATE projects
		SET completion_percentage = $1, updated_at = NOW()
		WHERE id = $2
	`
	tag, err := r.db.Exec(ctx, query, pct, id)
	if err != nil {
		r.logger.Error("Failed to update project completion", zap.Int("project_id", id), zap.Error(err))
		return err
	}
	if tag.RowsAffected() == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (r *ProjectRepository) SetStatus(ctx context.Context, id int, status string) error {
	query := `
		UPDATE projects
		SET status = $1, updated_at = NOW()
		WHERE id = $2
	`
	tag, err := r.db.Exec(ctx, query, status, id)
	if err != nil {
		r.logger.Error("Failed to update project status", zap.Int("project_id", id), zap.Error(err))
		return err
	}
	if tag.RowsAffected() == 0 {
		return store.ErrNotFound
	}
	return nil
}

// UpdateObjectives writes the two text fields guarded by the objectives lock.
func (r *ProjectRepository) UpdateObjectives(ctx context.Context, id int, objectives, scope string) error {
	query := `
		UPDATE projects
		SET objectives = $1, scope = $2, updated_at = NOW()
		WHERE id = $3
	`
	tag, err := r.db.Exec(ctx, query, objectives, scope, id)
	if err != nil {
		r.logger.Error("Failed to update project objectives", zap.Int("project_id", id), zap.Error(err))
		return err
	}
	if tag.RowsAffected() == 0 {
		return store.ErrNotFound
	}
	return nil
}
