package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"acadtrack/internal/model"
	"acadtrack/internal/store"
)

type MilestoneRepository struct {
	db     Querier
	logger *zap.Logger
}

func NewMilestoneRepository(db Querier, logger *zap.Logger) *MilestoneRepository {
	return &MilestoneRepository{db: db, logger: logger}
}

const milestoneColumns = `
	id, project_id, title, description, order_number, status,
	completion_percentage, locked, locked_by, locked_at, version, created_at, updated_at
`

func scanMilestone(row pgx.Row) (*model.Milestone, error) {
	var m model.Milestone
	err := row.Scan(
		&m.ID,
		&m.ProjectID,
		&m.Title,
		&m.Description,
		&m.OrderNumber,
		&m.Status,
		&m.CompletionPercentage,
		&m.Locked,
		&m.LockedBy,
		&m.LockedAt,
		&m.Version,
		&m.CreatedAt,
		&m.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	return &m, nil
}

func (r *MilestoneRepository) GetByID(ctx context.Context, id int) (*model.Milestone, error) {
	query := `SELECT ` + milestoneColumns + ` FROM milestones WHERE id = $1`
	return scanMilestone(r.db.QueryRow(ctx, query, id))
}

func (r *MilestoneRepository) Insert(ctx context.Context, m *model.Milestone) (int, error) {
	r.logger.Debug("Inserting milestone",
		zap.Int("project_id", m.ProjectID),
		zap.String("title", m.Title),
		zap.Int("order_number", m.OrderNumber),
	)

	query := `
        INSERT INTO milestones (project_id, title, description, order_number, status)
        VALUES ($1, $2, $3, $4, $5)
        RETURNING id
    `
	var id int
	err := r.db.QueryRow(ctx, query,
		m.ProjectID,
		m.Title,
		m.Description,
		m.OrderNumber,
		model.MilestoneStatusInProgress,
	).Scan(&id)
	if err != nil {
		r.logger.Error("Failed to insert milestone", zap.Error(err))
		return 0, err
	}

	r.logger.Info("Milestone inserted successfully",
		zap.Int("milestone_id", id),
		zap.Int("project_id", m.ProjectID),
	)
	return id, nil
}

func (r *MilestoneRepository) Delete(ctx context.Context, id int) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM milestones WHERE id = $1`, id)
	if err != nil {
		r.logger.Error("Failed to delete milestone", zap.Int("milestone_id", id), zap.Error(err))
		return err
	}
	if tag.RowsAffected() == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (r *MilestoneRepository) ListByProject(ctx context.Context, projectID int) ([]model.Milestone, error) {
	query := `
        SELECT ` + milestoneColumns + `
        FROM milestones
        WHERE project_id = $1
        ORDER BY order_number ASC
    `

	rows, err := r.db.Query(ctx, query, projectID)
	if err != nil {
		r.logger.Error("Failed to list milestones", zap.Int("project_id", projectID), zap.Error(err))
		return nil, err
	}
	defer rows.Close()

	var milestones []model.Milestone
	for rows.Next() {
		var m model.Milestone
		if err := rows.Scan(
			&m.ID,
			&m.ProjectID,
			&m.Title,
			&m.Description,
			&m.OrderNumber,
			&m.Status,
			&m.CompletionPercentage,
			&m.Locked,
			&m.LockedBy,
			&m.LockedAt,
			&m.Version,
			&m.CreatedAt,
			&m.UpdatedAt,
		); err != nil {
			r.logger.Error("Failed to scan milestone", zap.Error(err))
			return nil, err
		}
		milestones = append(milestones, m)
	}

	return milestones, rows.Err()
}

func (r *MilestoneRepository) SetLock(ctx context.Context, id, version int, upd store.LockUpdate) error {
	query := `
		UPDATE milestones
		SET locked = $1, locked_by = $2, locked_at = $3,
		    version = version + 1, updated_at = NOW()
		WHERE id = $4 AND version = $5
	`
	tag, err := r.db.Exec(ctx, query, upd.Locked, upd.ActorID, upd.At, id, version)
	if err != nil {
		r.logger.Error("Failed to update milestone lock", zap.Int("milestone_id", id), zap.Error(err))
		return err
	}
	if tag.RowsAffected() == 0 {
		return store.ErrVersionConflict
	}
	return nil
}

func (r *MilestoneRepository) SetCompletion(ctx context.Context, id int, pct float64) error {
	query := `
		UPDATE milestones
		SET completion_percentage = $1, updated_at = NOW()
		WHERE id = $2
	`
	tag, err := r.db.Exec(ctx, query, pct, id)
	if err != nil {
		r.logger.Error("Failed to update milestone completion", zap.Int("milestone_id", id), zap.Error(err))
		return err
	}
	if tag.RowsAffected() == 0 {
		return store.ErrNotFound
	}
	return nil
}
