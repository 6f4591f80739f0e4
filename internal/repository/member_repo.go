package repository

import (
	"context"

	"go.uber.org/zap"

	"acadtrack/internal/model"
)

type MemberRepository struct {
	db     Querier
	logger *zap.Logger
}

func NewMemberRepository(db Querier, logger *zap.Logger) *MemberRepository {
	return &MemberRepository{db: db, logger: logger}
}

func (r *MemberRepository) Add(ctx context.Context, m *model.Membership) error {
	query := `
        INSERT INTO project_members (project_id, user_id, role, active)
        VALUES ($1, $2, $3, $4)
        ON CONFLICT (project_id, user_id)
        DO UPDATE SET role = EXCLUDED.role, active = EXCLUDED.active
    `
	_, err := r.db.Exec(ctx, query, m.ProjectID, m.UserID, m.Role, m.Active)
	if err != nil {
		r.logger.Error("Failed to add project member",
			zap.Int("project_id", m.ProjectID),
			zap.Int("user_id", m.UserID),
			zap.Error(err),
		)
		return err
	}

	r.logger.Info("Project member added",
		zap.Int("project_id", m.ProjectID),
		zap.Int("user_id", m.UserID),
		zap.String("role", m.Role),
	)
	return nil
}

func (r *MemberRepository) Deactivate(ctx context.Context, projectID, userID int) error {
	query := `
        UPDATE project_members
        SET active = FALSE
        WHERE project_id = $1 AND user_id = $2
    `
	_, err := r.db.Exec(ctx, query, projectID, userID)
	if err != nil {
		r.logger.Error("Failed to deactivate project member",
			zap.Int("project_id", projectID),
			zap.Int("user_id", userID),
			zap.Error(err),
		)
	}
	return err
}

func (r *MemberRepository) ListByProject(ctx context.Context, projectID int) ([]model.Membership, error) {
	query := `
        SELECT project_id, user_id, role, active, joined_at
        FROM project_members
        WHERE project_id = $1
        ORDER BY user_id ASC
    `
	rows, err := r.db.Query(ctx, query, projectID)
	if err != nil {
		r.logger.Error("Failed to list project members", zap.Int("project_id", projectID), zap.Error(err))
		return nil, err
	}
	defer rows.Close()

	var members []model.Membership
	for rows.Next() {
		var m model.Membership
		if err := rows.Scan(&m.ProjectID, &m.UserID, &m.Role, &m.Active, &m.JoinedAt); err != nil {
			r.logger.Error("Failed to scan project member", zap.Error(err))
			return nil, err
		}
		members = append(members, m)
	}

	return members, rows.Err()
}

// IsActiveMember reports whether userID holds an active membership in the
// project.
func (r *MemberRepository) IsActiveMember(ctx context.Context, projectID, userID int) (bool, error) {
	query := `
        SELECT EXISTS (
            SELECT 1 FROM project_members
            WHERE project_id = $1 AND user_id = $2 AND active
        )
    `
	var active bool
	if err := r.db.QueryRow(ctx, query, projectID, userID).Scan(&active); err != nil {
		r.logger.Error("Failed to check membership",
			zap.Int("project_id", projectID),
			zap.Int("user_id", userID),
			zap.Error(err),
		)
		return false, err
	}
	return active, nil
}

// ActiveStudentIDs returns the ordered lock-notification audience base: user
// ids of active student members of the project.
func (r *MemberRepository) ActiveStudentIDs(ctx context.Context, projectID int) ([]int, error) {
	query := `
        SELECT user_id
        FROM project_members
        WHERE project_id = $1 AND active AND role = 'student'
        ORDER BY user_id ASC
    `
	rows, err := r.db.Query(ctx, query, projectID)
	if err != nil {
		r.logger.Error("Failed to query student members", zap.Int("project_id", projectID), zap.Error(err))
		return nil, err
	}
	defer rows.Close()

	var ids []int
	for rows.Next() {
		var id int
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}

	return ids, rows.Err()
}
