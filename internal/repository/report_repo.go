package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"acadtrack/internal/model"
	"acadtrack/internal/store"
)

type ReportRepository struct {
	db     Querier
	logger *zap.Logger
}

func NewReportRepository(db Querier, logger *zap.Logger) *ReportRepository {
	return &ReportRepository{db: db, logger: logger}
}

const reportColumns = `
	id, project_id, milestone_id, task_id, author_id, title, content, status,
	locked, locked_by, locked_at, version, created_at, updated_at
`

func scanReport(row pgx.Row) (*model.Report, error) {
	var rep model.Report
	err := row.Scan(
		&rep.ID,
		&rep.ProjectID,
		&rep.MilestoneID,
		&rep.TaskID,
		&rep.AuthorID,
		&rep.Title,
		&rep.Content,
		&rep.Status,
		&rep.Locked,
		&rep.LockedBy,
		&rep.LockedAt,
		&rep.Version,
		&rep.CreatedAt,
		&rep.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	return &rep, nil
}

func (r *ReportRepository) GetByID(ctx context.Context, id int) (*model.Report, error) {
	query := `SELECT ` + reportColumns + ` FROM reports WHERE id = $1`
	return scanReport(r.db.QueryRow(ctx, query, id))
}

func (r *ReportRepository) Insert(ctx context.Context, rep *model.Report) (int, error) {
	r.logger.Debug("Inserting report",
		zap.Int("project_id", rep.ProjectID),
		zap.Int("author_id", rep.AuthorID),
	)

	query := `
        INSERT INTO reports (project_id, milestone_id, task_id, author_id, title, content, status)
        VALUES ($1, $2, $3, $4, $5, $6, $7)
        RETURNING id
    `
	var id int
	err := r.db.QueryRow(ctx, query,
		rep.ProjectID,
		rep.MilestoneID,
		rep.TaskID,
		rep.AuthorID,
		rep.Title,
		rep.Content,
		model.ReportStatusSubmitted,
	).Scan(&id)
	if err != nil {
		r.logger.Error("Failed to insert report", zap.Error(err))
		return 0, err
	}

	r.logger.Info("Report inserted successfully",
		zap.Int("report_id", id),
		zap.Int("project_id", rep.ProjectID),
	)
	return id, nil
}

func (r *ReportRepository) Delete(ctx context.Context, id int) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM reports WHERE id = $1`, id)
	if err != nil {
		r.logger.Error("Failed to delete report", zap.Int("report_id", id), zap.Error(err))
		return err
	}
	if tag.RowsAffected() == 0 {
		return store.ErrNotFound
	}
	return nil
}

// SetLock moves status between SUBMITTED and LOCKED alongside the lock flag.
func (r *ReportRepository) SetLock(ctx context.Context, id, version int, upd store.LockUpdate) error {
	status := model.ReportStatusSubmitted
	if upd.Locked {
		status = model.ReportStatusLocked
	}
	query := `
		UPDATE reports
		SET locked = $1, locked_by = $2, locked_at = $3, status = $4,
		    version = version + 1, updated_at = NOW()
		WHERE id = $5 AND version = $6
	`
	tag, err := r.db.Exec(ctx, query, upd.Locked, upd.ActorID, upd.At, status, id, version)
	if err != nil {
		r.logger.Error("Failed to update report lock", zap.Int("report_id", id), zap.Error(err))
		return err
	}
	if tag.RowsAffected() == 0 {
		return store.ErrVersionConflict
	}
	return nil
}
