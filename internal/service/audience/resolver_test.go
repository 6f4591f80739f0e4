package audience

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"acadtrack/internal/model"
	"acadtrack/internal/store/storetest"
)

func seedMembers(f *storetest.Fake, projectID int) {
	ctx := context.Background()
	f.AddMember(ctx, &model.Membership{ProjectID: projectID, UserID: 30, Role: model.RoleStudent, Active: true})
	f.AddMember(ctx, &model.Membership{ProjectID: projectID, UserID: 10, Role: model.RoleStudent, Active: true})
	f.AddMember(ctx, &model.Membership{ProjectID: projectID, UserID: 20, Role: model.RoleStudent, Active: false})
	f.AddMember(ctx, &model.Membership{ProjectID: projectID, UserID: 40, Role: model.RoleInstructor, Active: true})
	// member of another project
	f.AddMember(ctx, &model.Membership{ProjectID: projectID + 1, UserID: 50, Role: model.RoleStudent, Active: true})
}

func TestResolveActiveStudentsOrdered(t *testing.T) {
	f := storetest.NewFake()
	projectID := f.AddProject(model.Project{Title: "OS"})
	seedMembers(f, projectID)

	r := NewResolver(f, zap.NewNop())
	ids, err := r.Resolve(context.Background(), projectID, 0)
	require.NoError(t, err)

	// inactive members, instructors and other projects are all out;
	// survivors come back sorted by user id
	assert.Equal(t, []int{10, 30}, ids)
}

func TestResolveExcludesActor(t *testing.T) {
	f := storetest.NewFake()
	projectID := f.AddProject(model.Project{Title: "OS"})
	seedMembers(f, projectID)

	r := NewResolver(f, zap.NewNop())
	ids, err := r.Resolve(context.Background(), projectID, 10)
	require.NoError(t, err)

	assert.Equal(t, []int{30}, ids)
}

func TestResolveEmptyAudience(t *testing.T) {
	f := storetest.NewFake()
	projectID := f.AddProject(model.Project{Title: "Solo"})

	r := NewResolver(f, zap.NewNop())
	ids, err := r.Resolve(context.Background(), projectID, 0)
	require.NoError(t, err)
	assert.Empty(t, ids)
}

func TestResolvePropagatesStoreError(t *testing.T) {
	f := storetest.NewFake()
	failure := errors.New("db down")
	f.Errs["ActiveStudentIDs"] = failure

	r := NewResolver(f, zap.NewNop())
	_, err := r.Resolve(context.Background(), 1, 0)
	assert.ErrorIs(t, err, failure)
}

func TestBuildLockMessage(t *testing.T) {
	title, body := BuildLockMessage(model.NodeProject, "Compilers")
	assert.Equal(t, "Project locked", title)
	assert.Contains(t, body, `"Compilers"`)
	assert.Contains(t, body, "read-only")

	title, body = BuildLockMessage(model.NodeMilestone, "Parser")
	assert.Equal(t, "Milestone locked", title)
	assert.Contains(t, body, `"Parser"`)
}
