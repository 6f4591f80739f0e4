package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"acadtrack/internal/model"
	"acadtrack/internal/store"
	"acadtrack/pkg/outbox"
)

// Store wires the per-entity repositories into the hierarchy contract
// consumed by the core services. RunInTx re-binds every repository to a
// pgx transaction so a whole cascade or recompute commits or rolls back as
// one unit, with outbox events riding the same transaction.
type Store struct {
	pool   *pgxpool.Pool
	tx     pgx.Tx // non-nil inside RunInTx
	outbox *outbox.Repository
	logger *zap.Logger

	projects   *ProjectRepository
	milestones *MilestoneRepository
	tasks      *TaskRepository
	reports    *ReportRepository
	members    *MemberRepository
}

func NewStore(pool *pgxpool.Pool, logger *zap.Logger) *Store {
	return &Store{
		pool:       pool,
		outbox:     outbox.NewRepository(pool),
		logger:     logger,
		projects:   NewProjectRepository(pool, logger),
		milestones: NewMilestoneRepository(pool, logger),
		tasks:      NewTaskRepository(pool, logger),
		reports:    NewReportRepository(pool, logger),
		members:    NewMemberRepository(pool, logger),
	}
}

var _ store.Store = (*Store)(nil)

func (s *Store) withTx(tx pgx.Tx) *Store {
	return &Store{
		pool:       s.pool,
		tx:         tx,
		outbox:     s.outbox,
		logger:     s.logger,
		projects:   NewProjectRepository(tx, s.logger),
		milestones: NewMilestoneRepository(tx, s.logger),
		tasks:      NewTaskRepository(tx, s.logger),
		reports:    NewReportRepository(tx, s.logger),
		members:    NewMemberRepository(tx, s.logger),
	}
}

func (s *Store) RunInTx(ctx context.Context, fn func(tx store.Store) error) error {
	if s.tx != nil {
		// already transactional, join the outer transaction
		return fn(s)
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := fn(s.withTx(tx)); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func (s *Store) GetProject(ctx context.Context, id int) (*model.Project, error) {
	return s.projects.GetByID(ctx, id)
}

func (s *Store) GetMilestone(ctx context.Context, id int) (*model.Milestone, error) {
	return s.milestones.GetByID(ctx, id)
}

func (s *Store) GetTask(ctx context.Context, id int) (*model.Task, error) {
	return s.tasks.GetByID(ctx, id)
}

func (s *Store) GetReport(ctx context.Context, id int) (*model.Report, error) {
	return s.reports.GetByID(ctx, id)
}

func (s *Store) InsertProject(ctx context.Context, p *model.Project) (int, error) {
	return s.projects.Insert(ctx, p)
}

func (s *Store) DeleteProject(ctx context.Context, id int) error {
	return s.projects.Delete(ctx, id)
}

func (s *Store) UpdateProjectObjectives(ctx context.Context, id int, objectives, scope string) error {
	return s.projects.UpdateObjectives(ctx, id, objectives, scope)
}

func (s *Store) InsertMilestone(ctx context.Context, m *model.Milestone) (int, error) {
	return s.milestones.Insert(ctx, m)
}

func (s *Store) DeleteMilestone(ctx context.Context, id int) error {
	return s.milestones.Delete(ctx, id)
}

func (s *Store) InsertTask(ctx context.Context, t *model.Task) (int, error) {
	return s.tasks.Insert(ctx, t)
}

func (s *Store) UpdateTaskStatus(ctx context.Context, id, version int, status string) error {
	return s.tasks.UpdateStatus(ctx, id, version, status)
}

func (s *Store) DeleteTask(ctx context.Context, id int) error {
	return s.tasks.Delete(ctx, id)
}

func (s *Store) InsertReport(ctx context.Context, rep *model.Report) (int, error) {
	return s.reports.Insert(ctx, rep)
}

func (s *Store) DeleteReport(ctx context.Context, id int) error {
	return s.reports.Delete(ctx, id)
}

func (s *Store) AddMember(ctx context.Context, m *model.Membership) error {
	return s.members.Add(ctx, m)
}

func (s *Store) DeactivateMember(ctx context.Context, projectID, userID int) error {
	return s.members.Deactivate(ctx, projectID, userID)
}

func (s *Store) MembersByProject(ctx context.Context, projectID int) ([]model.Membership, error) {
	return s.members.ListByProject(ctx, projectID)
}

func (s *Store) IsActiveMember(ctx context.Context, projectID, userID int) (bool, error) {
	return s.members.IsActiveMember(ctx, projectID, userID)
}

func (s *Store) MilestonesByProject(ctx context.Context, projectID int) ([]model.Milestone, error) {
	return s.milestones.ListByProject(ctx, projectID)
}

func (s *Store) TasksByMilestone(ctx context.Context, milestoneID int) ([]model.Task, error) {
	return s.tasks.ListByMilestone(ctx, milestoneID)
}

func (s *Store) UnscopedTasksByProject(ctx context.Context, projectID int) ([]model.Task, error) {
	return s.tasks.ListUnscopedByProject(ctx, projectID)
}

func (s *Store) SetNodeLock(ctx context.Context, nodeType model.NodeType, id, version int, upd store.LockUpdate) error {
	switch nodeType {
	case model.NodeProject:
		return s.projects.SetLock(ctx, id, version, upd)
	case model.NodeMilestone:
		return s.milestones.SetLock(ctx, id, version, upd)
	case model.NodeTask:
		return s.tasks.SetLock(ctx, id, version, upd)
	case model.NodeReport:
		return s.reports.SetLock(ctx, id, version, upd)
	}
	return store.ErrNotFound
}

func (s *Store) SetProjectObjectivesLock(ctx context.Context, projectID, version int, locked bool) error {
	return s.projects.SetObjectivesLock(ctx, projectID, version, locked)
}

func (s *Store) CountTasksByMilestone(ctx context.Context, milestoneID int) (int, int, error) {
	return s.tasks.CountByMilestone(ctx, milestoneID)
}

func (s *Store) CountTasksByProject(ctx context.Context, projectID int) (int, int, error) {
	return s.tasks.CountByProject(ctx, projectID)
}

func (s *Store) SetMilestoneCompletion(ctx context.Context, milestoneID int, pct float64) error {
	return s.milestones.SetCompletion(ctx, milestoneID, pct)
}

func (s *Store) SetProjectCompletion(ctx context.Context, projectID int, pct float64) error {
	return s.projects.SetCompletion(ctx, projectID, pct)
}

func (s *Store) SetProjectStatus(ctx context.Context, projectID int, status string) error {
	return s.projects.SetStatus(ctx, projectID, status)
}

func (s *Store) ActiveStudentIDs(ctx context.Context, projectID int) ([]int, error) {
	return s.members.ActiveStudentIDs(ctx, projectID)
}

func (s *Store) EnqueueEvent(ctx context.Context, aggregateType string, aggregateID int64, routingKey string, payload any) error {
	if s.tx == nil {
		return errors.New("EnqueueEvent called outside a transaction")
	}
	return outbox.InsertEventInTx(ctx, s.tx, s.outbox, aggregateType, &aggregateID, routingKey, payload)
}

// Repository accessors for the handler layer.

func (s *Store) Projects() *ProjectRepository       { return s.projects }
func (s *Store) Milestones() *MilestoneRepository   { return s.milestones }
func (s *Store) Tasks() *TaskRepository             { return s.tasks }
func (s *Store) Reports() *ReportRepository         { return s.reports }
func (s *Store) Members() *MemberRepository         { return s.members }
func (s *Store) Outbox() *outbox.Repository         { return s.outbox }
