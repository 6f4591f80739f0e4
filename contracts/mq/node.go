package mq

import "time"

// Routing keys on the events exchange. Only project and milestone locks fan
// out to members; task and report locks stay silent.
const (
	RoutingKeyProjectLocked   = "project.locked"
	RoutingKeyMilestoneLocked = "milestone.locked"
)

// NodeLockedPayload is emitted through the outbox after a lock cascade
// commits.
type NodeLockedPayload struct {
	NodeType  string    `json:"node_type"` // PROJECT / MILESTONE
	NodeID    int       `json:"node_id"`
	ProjectID int       `json:"project_id"`
	Title     string    `json:"title"`
	ActorID   int       `json:"actor_id"`
	LockedAt  time.Time `json:"locked_at"`
	TraceID   string    `json:"trace_id,omitempty"`
}

// RoutingKey maps the payload back to the routing key it was published
// under. Undecodable payloads fall back to the project key.
func (p NodeLockedPayload) RoutingKey() string {
	if p.NodeType == "MILESTONE" {
		return RoutingKeyMilestoneLocked
	}
	return RoutingKeyProjectLocked
}
