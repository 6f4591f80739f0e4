package model

// NodeType identifies a level of the Project -> Milestone -> Task -> Report
// hierarchy. Projects, milestones, tasks and reports are all lockable nodes.
type NodeType string

const (
	NodeProject   NodeType = "PROJECT"
	NodeMilestone NodeType = "MILESTONE"
	NodeTask      NodeType = "TASK"
	NodeReport    NodeType = "REPORT"
)

// Valid reports whether t is one of the four hierarchy node types.
func (t NodeType) Valid() bool {
	switch t {
	case NodeProject, NodeMilestone, NodeTask, NodeReport:
		return true
	}
	return false
}

// ParseNodeType maps a URL/path segment to a NodeType.
func ParseNodeType(s string) (NodeType, bool) {
	switch s {
	case "projects", "project", "PROJECT":
		return NodeProject, true
	case "milestones", "milestone", "MILESTONE":
		return NodeMilestone, true
	case "tasks", "task", "TASK":
		return NodeTask, true
	case "reports", "report", "REPORT":
		return NodeReport, true
	}
	return "", false
}
