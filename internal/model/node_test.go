package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseNodeType(t *testing.T) {
	tests := []struct {
		in   string
		want NodeType
		ok   bool
	}{
		{"projects", NodeProject, true},
		{"project", NodeProject, true},
		{"PROJECT", NodeProject, true},
		{"milestones", NodeMilestone, true},
		{"tasks", NodeTask, true},
		{"reports", NodeReport, true},
		{"users", "", false},
		{"", "", false},
	}
	for _, tc := range tests {
		got, ok := ParseNodeType(tc.in)
		assert.Equal(t, tc.ok, ok, tc.in)
		assert.Equal(t, tc.want, got, tc.in)
	}
}

func TestNodeTypeValid(t *testing.T) {
	assert.True(t, NodeProject.Valid())
	assert.True(t, NodeReport.Valid())
	assert.False(t, NodeType("USER").Valid())
}

func TestValidTaskStatus(t *testing.T) {
	assert.True(t, ValidTaskStatus(TaskStatusNotStarted))
	assert.True(t, ValidTaskStatus(TaskStatusInProgress))
	assert.True(t, ValidTaskStatus(TaskStatusCompleted))
	assert.False(t, ValidTaskStatus("DONE"))
	assert.False(t, ValidTaskStatus(""))
}
