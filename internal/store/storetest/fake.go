// Package storetest provides an in-memory store.Store for service tests.
package storetest

import (
	"context"
	"encoding/json"
	"sort"
	"sync"

	"acadtrack/internal/model"
	"acadtrack/internal/store"
)

// Event is one outbox record captured by EnqueueEvent.
type Event struct {
	AggregateType string
	AggregateID   int64
	RoutingKey    string
	Payload       json.RawMessage
}

// Fake keeps the whole hierarchy in maps and honors the same CAS and
// not-found semantics as the postgres store. RunInTx snapshots state so a
// failing callback observes real rollback.
type Fake struct {
	mu sync.Mutex

	Projects   map[int]*model.Project
	Milestones map[int]*model.Milestone
	Tasks      map[int]*model.Task
	Reports    map[int]*model.Report
	Members    []model.Membership
	Events     []Event

	nextID int

	// Errs forces method errors by name, e.g. Errs["GetProject"].
	Errs map[string]error
}

func NewFake() *Fake {
	return &Fake{
		Projects:   map[int]*model.Project{},
		Milestones: map[int]*model.Milestone{},
		Tasks:      map[int]*model.Task{},
		Reports:    map[int]*model.Report{},
		nextID:     1,
		Errs:       map[string]error{},
	}
}

var _ store.Store = (*Fake)(nil)

func (f *Fake) id() int {
	id := f.nextID
	f.nextID++
	return id
}

func (f *Fake) forced(method string) error {
	if f.Errs == nil {
		return nil
	}
	return f.Errs[method]
}

// AddProject seeds a project and returns its id.
func (f *Fake) AddProject(p model.Project) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	if p.ID == 0 {
		p.ID = f.id()
	} else if p.ID >= f.nextID {
		f.nextID = p.ID + 1
	}
	if p.Status == "" {
		p.Status = model.ProjectStatusActive
	}
	f.Projects[p.ID] = &p
	return p.ID
}

func (f *Fake) AddMilestone(m model.Milestone) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	if m.ID == 0 {
		m.ID = f.id()
	} else if m.ID >= f.nextID {
		f.nextID = m.ID + 1
	}
	if m.Status == "" {
		m.Status = model.MilestoneStatusInProgress
	}
	f.Milestones[m.ID] = &m
	return m.ID
}

func (f *Fake) AddTask(t model.Task) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	if t.ID == 0 {
		t.ID = f.id()
	} else if t.ID >= f.nextID {
		f.nextID = t.ID + 1
	}
	if t.Status == "" {
		t.Status = model.TaskStatusNotStarted
	}
	f.Tasks[t.ID] = &t
	return t.ID
}

func (f *Fake) AddReport(r model.Report) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	if r.ID == 0 {
		r.ID = f.id()
	} else if r.ID >= f.nextID {
		f.nextID = r.ID + 1
	}
	if r.Status == "" {
		r.Status = model.ReportStatusSubmitted
	}
	f.Reports[r.ID] = &r
	return r.ID
}

func (f *Fake) snapshot() *Fake {
	s := NewFake()
	s.nextID = f.nextID
	for id, p := range f.Projects {
		cp := *p
		s.Projects[id] = &cp
	}
	for id, m := range f.Milestones {
		cm := *m
		s.Milestones[id] = &cm
	}
	for id, t := range f.Tasks {
		ct := *t
		s.Tasks[id] = &ct
	}
	for id, r := range f.Reports {
		cr := *r
		s.Reports[id] = &cr
	}
	s.Members = append([]model.Membership(nil), f.Members...)
	s.Events = append([]Event(nil), f.Events...)
	return s
}

func (f *Fake) restore(s *Fake) {
	f.nextID = s.nextID
	f.Projects = s.Projects
	f.Milestones = s.Milestones
	f.Tasks = s.Tasks
	f.Reports = s.Reports
	f.Members = s.Members
	f.Events = s.Events
}

func (f *Fake) RunInTx(ctx context.Context, fn func(tx store.Store) error) error {
	if err := f.forced("RunInTx"); err != nil {
		return err
	}
	f.mu.Lock()
	snap := f.snapshot()
	f.mu.Unlock()

	if err := fn(f); err != nil {
		f.mu.Lock()
		f.restore(snap)
		f.mu.Unlock()
		return err
	}
	return nil
}

func (f *Fake) GetProject(ctx context.Context, id int) (*model.Project, error) {
	if err := f.forced("GetProject"); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.Projects[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (f *Fake) GetMilestone(ctx context.Context, id int) (*model.Milestone, error) {
	if err := f.forced("GetMilestone"); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	m, ok := f.Milestones[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	cm := *m
	return &cm, nil
}

func (f *Fake) GetTask(ctx context.Context, id int) (*model.Task, error) {
	if err := f.forced("GetTask"); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	t, ok := f.Tasks[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	ct := *t
	return &ct, nil
}

func (f *Fake) GetReport(ctx context.Context, id int) (*model.Report, error) {
	if err := f.forced("GetReport"); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.Reports[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	cr := *r
	return &cr, nil
}

func (f *Fake) InsertProject(ctx context.Context, p *model.Project) (int, error) {
	return f.AddProject(*p), nil
}

func (f *Fake) DeleteProject(ctx context.Context, id int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.Projects, id)
	return nil
}

func (f *Fake) UpdateProjectObjectives(ctx context.Context, id int, objectives, scope string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.Projects[id]
	if !ok {
		return store.ErrNotFound
	}
	p.Objectives = objectives
	p.Scope = scope
	return nil
}

func (f *Fake) InsertMilestone(ctx context.Context, m *model.Milestone) (int, error) {
	return f.AddMilestone(*m), nil
}

func (f *Fake) DeleteMilestone(ctx context.Context, id int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.Milestones, id)
	return nil
}

func (f *Fake) InsertTask(ctx context.Context, t *model.Task) (int, error) {
	if err := f.forced("InsertTask"); err != nil {
		return 0, err
	}
	return f.AddTask(*t), nil
}

func (f *Fake) UpdateTaskStatus(ctx context.Context, id, version int, status string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	t, ok := f.Tasks[id]
	if !ok {
		return store.ErrNotFound
	}
	if t.Version != version {
		return store.ErrVersionConflict
	}
	t.Status = status
	t.Version++
	return nil
}

func (f *Fake) DeleteTask(ctx context.Context, id int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.Tasks, id)
	return nil
}

func (f *Fake) InsertReport(ctx context.Context, r *model.Report) (int, error) {
	return f.AddReport(*r), nil
}

func (f *Fake) DeleteReport(ctx context.Context, id int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.Reports, id)
	return nil
}

func (f *Fake) AddMember(ctx context.Context, m *model.Membership) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.Members {
		if f.Members[i].ProjectID == m.ProjectID && f.Members[i].UserID == m.UserID {
			f.Members[i] = *m
			return nil
		}
	}
	f.Members = append(f.Members, *m)
	return nil
}

func (f *Fake) DeactivateMember(ctx context.Context, projectID, userID int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.Members {
		if f.Members[i].ProjectID == projectID && f.Members[i].UserID == userID {
			f.Members[i].Active = false
		}
	}
	return nil
}

func (f *Fake) MembersByProject(ctx context.Context, projectID int) ([]model.Membership, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.Membership
	for _, m := range f.Members {
		if m.ProjectID == projectID {
			out = append(out, m)
		}
	}
	return out, nil
}

func (f *Fake) IsActiveMember(ctx context.Context, projectID, userID int) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, m := range f.Members {
		if m.ProjectID == projectID && m.UserID == userID && m.Active {
			return true, nil
		}
	}
	return false, nil
}

func (f *Fake) MilestonesByProject(ctx context.Context, projectID int) ([]model.Milestone, error) {
	if err := f.forced("MilestonesByProject"); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.Milestone
	for _, m := range f.Milestones {
		if m.ProjectID == projectID {
			out = append(out, *m)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].OrderNumber != out[j].OrderNumber {
			return out[i].OrderNumber < out[j].OrderNumber
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (f *Fake) TasksByMilestone(ctx context.Context, milestoneID int) ([]model.Task, error) {
	if err := f.forced("TasksByMilestone"); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.Task
	for _, t := range f.Tasks {
		if t.MilestoneID != nil && *t.MilestoneID == milestoneID {
			out = append(out, *t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f *Fake) UnscopedTasksByProject(ctx context.Context, projectID int) ([]model.Task, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.Task
	for _, t := range f.Tasks {
		if t.ProjectID == projectID && t.MilestoneID == nil {
			out = append(out, *t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f *Fake) SetNodeLock(ctx context.Context, nodeType model.NodeType, id, version int, upd store.LockUpdate) error {
	if err := f.forced("SetNodeLock"); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	switch nodeType {
	case model.NodeProject:
		p, ok := f.Projects[id]
		if !ok {
			return store.ErrNotFound
		}
		if p.Version != version {
			return store.ErrVersionConflict
		}
		p.Locked, p.LockedBy, p.LockedAt = upd.Locked, upd.ActorID, upd.At
		if upd.Locked && p.Status != model.ProjectStatusCompleted {
			p.Status = model.ProjectStatusLocked
		} else if !upd.Locked && p.Status == model.ProjectStatusLocked {
			p.Status = model.ProjectStatusActive
		}
		p.Version++
	case model.NodeMilestone:
		m, ok := f.Milestones[id]
		if !ok {
			return store.ErrNotFound
		}
		if m.Version != version {
			return store.ErrVersionConflict
		}
		m.Locked, m.LockedBy, m.LockedAt = upd.Locked, upd.ActorID, upd.At
		m.Version++
	case model.NodeTask:
		t, ok := f.Tasks[id]
		if !ok {
			return store.ErrNotFound
		}
		if t.Version != version {
			return store.ErrVersionConflict
		}
		t.Locked, t.LockedBy, t.LockedAt = upd.Locked, upd.ActorID, upd.At
		t.Version++
	case model.NodeReport:
		r, ok := f.Reports[id]
		if !ok {
			return store.ErrNotFound
		}
		if r.Version != version {
			return store.ErrVersionConflict
		}
		r.Locked, r.LockedBy, r.LockedAt = upd.Locked, upd.ActorID, upd.At
		if upd.Locked {
			r.Status = model.ReportStatusLocked
		} else {
			r.Status = model.ReportStatusSubmitted
		}
		r.Version++
	default:
		return store.ErrNotFound
	}
	return nil
}

func (f *Fake) SetProjectObjectivesLock(ctx context.Context, projectID, version int, locked bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.Projects[projectID]
	if !ok {
		return store.ErrNotFound
	}
	if p.Version != version {
		return store.ErrVersionConflict
	}
	p.ObjectivesLocked = locked
	p.Version++
	return nil
}

func (f *Fake) CountTasksByMilestone(ctx context.Context, milestoneID int) (int, int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var total, completed int
	for _, t := range f.Tasks {
		if t.MilestoneID != nil && *t.MilestoneID == milestoneID {
			total++
			if t.Status == model.TaskStatusCompleted {
				completed++
			}
		}
	}
	return total, completed, nil
}

func (f *Fake) CountTasksByProject(ctx context.Context, projectID int) (int, int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var total, completed int
	for _, t := range f.Tasks {
		if t.ProjectID == projectID {
			total++
			if t.Status == model.TaskStatusCompleted {
				completed++
			}
		}
	}
	return total, completed, nil
}

func (f *Fake) SetMilestoneCompletion(ctx context.Context, milestoneID int, pct float64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	m, ok := f.Milestones[milestoneID]
	if !ok {
		return store.ErrNotFound
	}
	m.CompletionPercentage = pct
	return nil
}

func (f *Fake) SetProjectCompletion(ctx context.Context, projectID int, pct float64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.Projects[projectID]
	if !ok {
		return store.ErrNotFound
	}
	p.CompletionPercentage = pct
	return nil
}

func (f *Fake) SetProjectStatus(ctx context.Context, projectID int, status string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.Projects[projectID]
	if !ok {
		return store.ErrNotFound
	}
	p.Status = status
	return nil
}

func (f *Fake) ActiveStudentIDs(ctx context.Context, projectID int) ([]int, error) {
	if err := f.forced("ActiveStudentIDs"); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	var ids []int
	for _, m := range f.Members {
		if m.ProjectID == projectID && m.Active && m.Role == model.RoleStudent {
			ids = append(ids, m.UserID)
		}
	}
	sort.Ints(ids)
	return ids, nil
}

func (f *Fake) EnqueueEvent(ctx context.Context, aggregateType string, aggregateID int64, routingKey string, payload any) error {
	raw, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Events = append(f.Events, Event{
		AggregateType: aggregateType,
		AggregateID:   aggregateID,
		RoutingKey:    routingKey,
		Payload:       raw,
	})
	return nil
}
