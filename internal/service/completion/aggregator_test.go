package completion

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"acadtrack/internal/model"
	"acadtrack/internal/store"
	"acadtrack/internal/store/storetest"
)

func intPtr(i int) *int { return &i }

func TestRecomputeMilestoneZeroTasksIsZeroPercent(t *testing.T) {
	f := storetest.NewFake()
	projectID := f.AddProject(model.Project{Title: "Thesis"})
	mID := f.AddMilestone(model.Milestone{ProjectID: projectID, Title: "Empty"})

	agg := NewAggregator(f, zap.NewNop())
	pct, err := agg.RecomputeMilestone(context.Background(), mID)
	require.NoError(t, err)

	assert.Equal(t, 0.0, pct)
	assert.Equal(t, 0.0, f.Milestones[mID].CompletionPercentage)
}

func TestRecomputeMilestonePartial(t *testing.T) {
	f := storetest.NewFake()
	projectID := f.AddProject(model.Project{Title: "Thesis"})
	mID := f.AddMilestone(model.Milestone{ProjectID: projectID, Title: "Research"})
	f.AddTask(model.Task{ProjectID: projectID, MilestoneID: intPtr(mID), Status: model.TaskStatusCompleted})
	f.AddTask(model.Task{ProjectID: projectID, MilestoneID: intPtr(mID), Status: model.TaskStatusInProgress})

	agg := NewAggregator(f, zap.NewNop())
	pct, err := agg.RecomputeMilestone(context.Background(), mID)
	require.NoError(t, err)

	assert.Equal(t, 50.0, pct)
}

func TestRecomputeMilestoneThirds(t *testing.T) {
	f := storetest.NewFake()
	projectID := f.AddProject(model.Project{Title: "Thesis"})
	mID := f.AddMilestone(model.Milestone{ProjectID: projectID, Title: "Writeup"})
	f.AddTask(model.Task{ProjectID: projectID, MilestoneID: intPtr(mID), Status: model.TaskStatusCompleted})
	f.AddTask(model.Task{ProjectID: projectID, MilestoneID: intPtr(mID), Status: model.TaskStatusCompleted})
	f.AddTask(model.Task{ProjectID: projectID, MilestoneID: intPtr(mID), Status: model.TaskStatusNotStarted})

	agg := NewAggregator(f, zap.NewNop())
	pct, err := agg.RecomputeMilestone(context.Background(), mID)
	require.NoError(t, err)

	assert.InDelta(t, 66.666, pct, 0.001)
}

func TestRecomputeMilestoneMissingErrors(t *testing.T) {
	f := storetest.NewFake()
	agg := NewAggregator(f, zap.NewNop())

	_, err := agg.RecomputeMilestone(context.Background(), 404)
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestRecomputeProjectCountsScopedAndUnscoped(t *testing.T) {
	f := storetest.NewFake()
	projectID := f.AddProject(model.Project{Title: "Thesis"})
	mID := f.AddMilestone(model.Milestone{ProjectID: projectID, Title: "Research"})
	f.AddTask(model.Task{ProjectID: projectID, MilestoneID: intPtr(mID), Status: model.TaskStatusCompleted})
	f.AddTask(model.Task{ProjectID: projectID, Status: model.TaskStatusCompleted})
	f.AddTask(model.Task{ProjectID: projectID, Status: model.TaskStatusNotStarted})
	f.AddTask(model.Task{ProjectID: projectID, Status: model.TaskStatusInProgress})

	agg := NewAggregator(f, zap.NewNop())
	pct, err := agg.RecomputeProject(context.Background(), projectID)
	require.NoError(t, err)

	assert.Equal(t, 50.0, pct)
	assert.Equal(t, model.ProjectStatusActive, f.Projects[projectID].Status)
}

func TestRecomputeProjectZeroTasksNeverCompletes(t *testing.T) {
	f := storetest.NewFake()
	projectID := f.AddProject(model.Project{Title: "Fresh"})

	agg := NewAggregator(f, zap.NewNop())
	pct, err := agg.RecomputeProject(context.Background(), projectID)
	require.NoError(t, err)

	// no tasks means 0%, not 100%, and no auto-complete
	assert.Equal(t, 0.0, pct)
	assert.Equal(t, model.ProjectStatusActive, f.Projects[projectID].Status)
}

func TestRecomputeProjectAutoCompletes(t *testing.T) {
	f := storetest.NewFake()
	projectID := f.AddProject(model.Project{Title: "Done"})
	f.AddTask(model.Task{ProjectID: projectID, Status: model.TaskStatusCompleted})
	f.AddTask(model.Task{ProjectID: projectID, Status: model.TaskStatusCompleted})

	agg := NewAggregator(f, zap.NewNop())
	pct, err := agg.RecomputeProject(context.Background(), projectID)
	require.NoError(t, err)

	assert.Equal(t, 100.0, pct)
	assert.Equal(t, model.ProjectStatusCompleted, f.Projects[projectID].Status)
}

func TestCompletedStatusSurvivesReopenedTask(t *testing.T) {
	f := storetest.NewFake()
	projectID := f.AddProject(model.Project{Title: "Done"})
	taskID := f.AddTask(model.Task{ProjectID: projectID, Status: model.TaskStatusCompleted})

	agg := NewAggregator(f, zap.NewNop())
	ctx := context.Background()

	_, err := agg.RecomputeProject(ctx, projectID)
	require.NoError(t, err)
	require.Equal(t, model.ProjectStatusCompleted, f.Projects[projectID].Status)

	// reopen the task: percentage drops, status stays
	f.Tasks[taskID].Status = model.TaskStatusInProgress
	pct, err := agg.RecomputeProject(ctx, projectID)
	require.NoError(t, err)

	assert.Equal(t, 0.0, pct)
	assert.Equal(t, model.ProjectStatusCompleted, f.Projects[projectID].Status)
}

func TestRecomputeForTaskUpdatesMilestoneAndProject(t *testing.T) {
	f := storetest.NewFake()
	projectID := f.AddProject(model.Project{Title: "Thesis"})
	mID := f.AddMilestone(model.Milestone{ProjectID: projectID, Title: "Research"})
	taskID := f.AddTask(model.Task{ProjectID: projectID, MilestoneID: intPtr(mID), Status: model.TaskStatusCompleted})
	f.AddTask(model.Task{ProjectID: projectID, Status: model.TaskStatusNotStarted})

	agg := NewAggregator(f, zap.NewNop())
	task, err := f.GetTask(context.Background(), taskID)
	require.NoError(t, err)

	require.NoError(t, agg.RecomputeForTask(context.Background(), task))

	assert.Equal(t, 100.0, f.Milestones[mID].CompletionPercentage)
	assert.Equal(t, 50.0, f.Projects[projectID].CompletionPercentage)
}

func TestRecomputeForUnscopedTaskSkipsMilestone(t *testing.T) {
	f := storetest.NewFake()
	projectID := f.AddProject(model.Project{Title: "Thesis"})
	taskID := f.AddTask(model.Task{ProjectID: projectID, Status: model.TaskStatusCompleted})

	agg := NewAggregator(f, zap.NewNop())
	task, err := f.GetTask(context.Background(), taskID)
	require.NoError(t, err)

	require.NoError(t, agg.RecomputeForTask(context.Background(), task))
	assert.Equal(t, 100.0, f.Projects[projectID].CompletionPercentage)
}

func TestPercentageNeverNaN(t *testing.T) {
	assert.Equal(t, 0.0, percentage(0, 0))
	assert.Equal(t, 100.0, percentage(4, 4))
	assert.Equal(t, 25.0, percentage(4, 1))
}
