package lock

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	contracts "acadtrack/contracts/mq"
	"acadtrack/internal/model"
	"acadtrack/internal/store"
	"acadtrack/internal/store/storetest"
)

func intPtr(i int) *int { return &i }

// seedHierarchy builds one project with two milestones, tasks under each, one
// unscoped task and a report. Returns the fake plus the ids.
func seedHierarchy(t *testing.T) (f *storetest.Fake, projectID, m1, m2, t1, t2, t3, unscoped, reportID int) {
	t.Helper()
	f = storetest.NewFake()
	projectID = f.AddProject(model.Project{Title: "Compilers"})
	m1 = f.AddMilestone(model.Milestone{ProjectID: projectID, Title: "Parser", OrderNumber: 1})
	m2 = f.AddMilestone(model.Milestone{ProjectID: projectID, Title: "Codegen", OrderNumber: 2})
	t1 = f.AddTask(model.Task{ProjectID: projectID, MilestoneID: intPtr(m1), Title: "Lexer"})
	t2 = f.AddTask(model.Task{ProjectID: projectID, MilestoneID: intPtr(m1), Title: "AST"})
	t3 = f.AddTask(model.Task{ProjectID: projectID, MilestoneID: intPtr(m2), Title: "IR"})
	unscoped = f.AddTask(model.Task{ProjectID: projectID, Title: "Report draft"})
	reportID = f.AddReport(model.Report{ProjectID: projectID, MilestoneID: intPtr(m1), AuthorID: 7, Title: "Week 1"})
	return
}

func TestLockMilestoneCascadesToOwnTasksOnly(t *testing.T) {
	f, projectID, m1, m2, t1, t2, t3, unscoped, _ := seedHierarchy(t)
	engine := NewEngine(f, zap.NewNop())

	require.NoError(t, engine.LockWithCascade(context.Background(), model.NodeMilestone, m1, 42))

	assert.True(t, f.Milestones[m1].Locked)
	assert.True(t, f.Tasks[t1].Locked)
	assert.True(t, f.Tasks[t2].Locked)

	// siblings and the parent stay untouched
	assert.False(t, f.Milestones[m2].Locked)
	assert.False(t, f.Tasks[t3].Locked)
	assert.False(t, f.Tasks[unscoped].Locked)
	assert.False(t, f.Projects[projectID].Locked)

	require.NotNil(t, f.Milestones[m1].LockedBy)
	assert.Equal(t, 42, *f.Milestones[m1].LockedBy)
	assert.NotNil(t, f.Milestones[m1].LockedAt)
}

func TestLockProjectCascadesEverywhere(t *testing.T) {
	f, projectID, m1, m2, t1, t2, t3, unscoped, reportID := seedHierarchy(t)
	engine := NewEngine(f, zap.NewNop())

	require.NoError(t, engine.LockWithCascade(context.Background(), model.NodeProject, projectID, 42))

	assert.True(t, f.Projects[projectID].Locked)
	assert.True(t, f.Milestones[m1].Locked)
	assert.True(t, f.Milestones[m2].Locked)
	assert.True(t, f.Tasks[t1].Locked)
	assert.True(t, f.Tasks[t2].Locked)
	assert.True(t, f.Tasks[t3].Locked)
	assert.True(t, f.Tasks[unscoped].Locked)

	// reports are not structural children of the cascade
	assert.False(t, f.Reports[reportID].Locked)

	assert.Equal(t, model.ProjectStatusLocked, f.Projects[projectID].Status)
}

func TestLockTaskDoesNotPropagate(t *testing.T) {
	f, projectID, m1, _, t1, t2, _, _, _ := seedHierarchy(t)
	engine := NewEngine(f, zap.NewNop())

	require.NoError(t, engine.LockWithCascade(context.Background(), model.NodeTask, t1, 42))

	assert.True(t, f.Tasks[t1].Locked)
	assert.False(t, f.Tasks[t2].Locked)
	assert.False(t, f.Milestones[m1].Locked)
	assert.False(t, f.Projects[projectID].Locked)
}

func TestLockIsIdempotent(t *testing.T) {
	f, _, m1, _, _, _, _, _, _ := seedHierarchy(t)
	engine := NewEngine(f, zap.NewNop())

	require.NoError(t, engine.LockWithCascade(context.Background(), model.NodeMilestone, m1, 42))
	firstAt := *f.Milestones[m1].LockedAt

	// second lock by another actor succeeds and overwrites attribution
	require.NoError(t, engine.LockWithCascade(context.Background(), model.NodeMilestone, m1, 99))
	assert.True(t, f.Milestones[m1].Locked)
	assert.Equal(t, 99, *f.Milestones[m1].LockedBy)
	assert.False(t, f.Milestones[m1].LockedAt.Before(firstAt))
}

func TestUnlockDoesNotCascade(t *testing.T) {
	f, _, m1, _, t1, t2, _, _, _ := seedHierarchy(t)
	engine := NewEngine(f, zap.NewNop())
	ctx := context.Background()

	require.NoError(t, engine.LockWithCascade(ctx, model.NodeMilestone, m1, 42))
	require.NoError(t, engine.Unlock(ctx, model.NodeMilestone, m1))

	assert.False(t, f.Milestones[m1].Locked)
	assert.Nil(t, f.Milestones[m1].LockedBy)
	assert.Nil(t, f.Milestones[m1].LockedAt)

	// tasks keep their own lock until unlocked one by one
	assert.True(t, f.Tasks[t1].Locked)
	assert.True(t, f.Tasks[t2].Locked)

	require.NoError(t, engine.Unlock(ctx, model.NodeTask, t1))
	assert.False(t, f.Tasks[t1].Locked)
	assert.True(t, f.Tasks[t2].Locked)
}

func TestLockFailureMidCascadeRollsBackEverything(t *testing.T) {
	f, projectID, m1, _, t1, _, _, _, _ := seedHierarchy(t)
	engine := NewEngine(f, zap.NewNop())

	// break the cascade after the project and milestone flags are written
	failure := errors.New("connection reset")
	f.Errs["TasksByMilestone"] = failure

	err := engine.LockWithCascade(context.Background(), model.NodeProject, projectID, 42)
	require.ErrorIs(t, err, failure)

	// nothing stays locked after rollback
	assert.False(t, f.Projects[projectID].Locked)
	assert.False(t, f.Milestones[m1].Locked)
	assert.False(t, f.Tasks[t1].Locked)
	assert.Empty(t, f.Events)
}

func TestLockVersionConflictRollsBackCascade(t *testing.T) {
	f, projectID, m1, _, t1, _, _, _, _ := seedHierarchy(t)
	engine := NewEngine(f, zap.NewNop())

	// a concurrent writer bumped a version between read and update
	f.Errs["SetNodeLock"] = store.ErrVersionConflict

	err := engine.LockWithCascade(context.Background(), model.NodeProject, projectID, 42)
	require.ErrorIs(t, err, store.ErrVersionConflict)

	assert.False(t, f.Projects[projectID].Locked)
	assert.False(t, f.Milestones[m1].Locked)
	assert.False(t, f.Tasks[t1].Locked)
	assert.Empty(t, f.Events)
}

func TestLockUnknownNodeReturnsNotFound(t *testing.T) {
	f := storetest.NewFake()
	engine := NewEngine(f, zap.NewNop())

	err := engine.LockWithCascade(context.Background(), model.NodeProject, 12345, 1)
	assert.ErrorIs(t, err, store.ErrNotFound)

	err = engine.Unlock(context.Background(), model.NodeTask, 12345)
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestProjectLockEnqueuesSingleEvent(t *testing.T) {
	f, projectID, _, _, _, _, _, _, _ := seedHierarchy(t)
	engine := NewEngine(f, zap.NewNop())

	require.NoError(t, engine.LockWithCascade(context.Background(), model.NodeProject, projectID, 42))

	require.Len(t, f.Events, 1)
	ev := f.Events[0]
	assert.Equal(t, contracts.RoutingKeyProjectLocked, ev.RoutingKey)
	assert.Equal(t, int64(projectID), ev.AggregateID)

	var payload contracts.NodeLockedPayload
	require.NoError(t, json.Unmarshal(ev.Payload, &payload))
	assert.Equal(t, string(model.NodeProject), payload.NodeType)
	assert.Equal(t, projectID, payload.ProjectID)
	assert.Equal(t, 42, payload.ActorID)
	assert.Equal(t, "Compilers", payload.Title)
}

func TestMilestoneLockEventCarriesProjectID(t *testing.T) {
	f, projectID, m1, _, _, _, _, _, _ := seedHierarchy(t)
	engine := NewEngine(f, zap.NewNop())

	require.NoError(t, engine.LockWithCascade(context.Background(), model.NodeMilestone, m1, 42))

	require.Len(t, f.Events, 1)
	assert.Equal(t, contracts.RoutingKeyMilestoneLocked, f.Events[0].RoutingKey)

	var payload contracts.NodeLockedPayload
	require.NoError(t, json.Unmarshal(f.Events[0].Payload, &payload))
	assert.Equal(t, projectID, payload.ProjectID)
	assert.Equal(t, m1, payload.NodeID)
}

func TestTaskAndReportLocksAreSilent(t *testing.T) {
	f, _, _, _, t1, _, _, _, reportID := seedHierarchy(t)
	engine := NewEngine(f, zap.NewNop())
	ctx := context.Background()

	require.NoError(t, engine.LockWithCascade(ctx, model.NodeTask, t1, 42))
	require.NoError(t, engine.LockWithCascade(ctx, model.NodeReport, reportID, 42))

	assert.Empty(t, f.Events)
	assert.True(t, f.Tasks[t1].Locked)
	assert.True(t, f.Reports[reportID].Locked)
	assert.Equal(t, model.ReportStatusLocked, f.Reports[reportID].Status)
}

func TestEffectiveLockFollowsAncestorChain(t *testing.T) {
	f, projectID, m1, m2, t1, _, t3, unscoped, reportID := seedHierarchy(t)
	engine := NewEngine(f, zap.NewNop())
	ctx := context.Background()

	// nothing locked yet
	locked, err := engine.IsEffectivelyLocked(ctx, model.NodeTask, t1)
	require.NoError(t, err)
	assert.False(t, locked)

	require.NoError(t, engine.LockWithCascade(ctx, model.NodeMilestone, m1, 42))

	for _, tc := range []struct {
		name     string
		nodeType model.NodeType
		id       int
		want     bool
	}{
		{"locked milestone", model.NodeMilestone, m1, true},
		{"task under locked milestone", model.NodeTask, t1, true},
		{"report under locked milestone", model.NodeReport, reportID, true},
		{"sibling milestone", model.NodeMilestone, m2, false},
		{"task under sibling", model.NodeTask, t3, false},
		{"unscoped task", model.NodeTask, unscoped, false},
		{"project", model.NodeProject, projectID, false},
	} {
		t.Run(tc.name, func(t *testing.T) {
			got, err := engine.IsEffectivelyLocked(ctx, tc.nodeType, tc.id)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestEffectiveLockAfterParentUnlock(t *testing.T) {
	f, _, m1, _, t1, _, _, _, _ := seedHierarchy(t)
	engine := NewEngine(f, zap.NewNop())
	ctx := context.Background()

	require.NoError(t, engine.LockWithCascade(ctx, model.NodeMilestone, m1, 42))
	require.NoError(t, engine.Unlock(ctx, model.NodeMilestone, m1))

	// the task's own flag from the cascade still holds
	locked, err := engine.IsEffectivelyLocked(ctx, model.NodeTask, t1)
	require.NoError(t, err)
	assert.True(t, locked)

	require.NoError(t, engine.Unlock(ctx, model.NodeTask, t1))
	locked, err = engine.IsEffectivelyLocked(ctx, model.NodeTask, t1)
	require.NoError(t, err)
	assert.False(t, locked)
}

func TestEffectiveLockProjectAncestor(t *testing.T) {
	f, projectID, _, _, _, _, _, unscoped, _ := seedHierarchy(t)
	engine := NewEngine(f, zap.NewNop())
	ctx := context.Background()

	// direct flag without cascade, so a descendant's answer must come from
	// the walk rather than its own column
	p := f.Projects[projectID]
	p.Locked = true

	locked, err := engine.IsEffectivelyLocked(ctx, model.NodeTask, unscoped)
	require.NoError(t, err)
	assert.True(t, locked)
}

func TestEffectiveLockMissingAncestorFailsOpen(t *testing.T) {
	f := storetest.NewFake()
	engine := NewEngine(f, zap.NewNop())
	ctx := context.Background()

	// orphan: milestone id points nowhere
	taskID := f.AddTask(model.Task{ProjectID: 999, MilestoneID: intPtr(888), Title: "Orphan"})

	locked, err := engine.IsEffectivelyLocked(ctx, model.NodeTask, taskID)
	require.NoError(t, err)
	assert.False(t, locked)
}

func TestEffectiveLockMissingNodeErrors(t *testing.T) {
	f := storetest.NewFake()
	engine := NewEngine(f, zap.NewNop())

	_, err := engine.IsEffectivelyLocked(context.Background(), model.NodeMilestone, 404)
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestReportEffectiveLockViaTaskMilestone(t *testing.T) {
	f := storetest.NewFake()
	engine := NewEngine(f, zap.NewNop())
	ctx := context.Background()

	projectID := f.AddProject(model.Project{Title: "DB Systems"})
	mID := f.AddMilestone(model.Milestone{ProjectID: projectID, Title: "Storage"})
	taskID := f.AddTask(model.Task{ProjectID: projectID, MilestoneID: intPtr(mID), Title: "B-tree"})
	// report attached only to the task; the milestone comes from the task
	repID := f.AddReport(model.Report{ProjectID: projectID, TaskID: intPtr(taskID), AuthorID: 1, Title: "Perf"})

	require.NoError(t, engine.LockWithCascade(ctx, model.NodeMilestone, mID, 5))

	locked, err := engine.IsEffectivelyLocked(ctx, model.NodeReport, repID)
	require.NoError(t, err)
	assert.True(t, locked)
}

func TestReportEffectiveLockUnreadableTaskFailsOpen(t *testing.T) {
	f := storetest.NewFake()
	engine := NewEngine(f, zap.NewNop())
	ctx := context.Background()

	projectID := f.AddProject(model.Project{Title: "DB Systems"})
	taskID := f.AddTask(model.Task{ProjectID: projectID, Title: "B-tree"})
	repID := f.AddReport(model.Report{ProjectID: projectID, TaskID: intPtr(taskID), AuthorID: 1, Title: "Perf"})

	// an unreadable ancestor is treated like a missing one
	f.Errs["GetTask"] = errors.New("connection reset")

	locked, err := engine.IsEffectivelyLocked(ctx, model.NodeReport, repID)
	require.NoError(t, err)
	assert.False(t, locked)
}

func TestObjectivesLockIsIndependent(t *testing.T) {
	f, projectID, m1, _, t1, _, _, _, _ := seedHierarchy(t)
	engine := NewEngine(f, zap.NewNop())
	ctx := context.Background()

	require.NoError(t, engine.LockObjectives(ctx, projectID))
	assert.True(t, f.Projects[projectID].ObjectivesLocked)

	// no cascade, no event, no effect on the lock walk
	assert.False(t, f.Projects[projectID].Locked)
	assert.False(t, f.Milestones[m1].Locked)
	assert.Empty(t, f.Events)

	locked, err := engine.IsEffectivelyLocked(ctx, model.NodeTask, t1)
	require.NoError(t, err)
	assert.False(t, locked)

	require.NoError(t, engine.UnlockObjectives(ctx, projectID))
	assert.False(t, f.Projects[projectID].ObjectivesLocked)
}

func TestUnlockRestoresProjectStatus(t *testing.T) {
	f, projectID, _, _, _, _, _, _, _ := seedHierarchy(t)
	engine := NewEngine(f, zap.NewNop())
	ctx := context.Background()

	require.NoError(t, engine.LockWithCascade(ctx, model.NodeProject, projectID, 1))
	assert.Equal(t, model.ProjectStatusLocked, f.Projects[projectID].Status)

	require.NoError(t, engine.Unlock(ctx, model.NodeProject, projectID))
	assert.Equal(t, model.ProjectStatusActive, f.Projects[projectID].Status)
}
