package types

// ExecuteRequest represents a service execution request
type ExecuteRequest struct {
	ToolID  string         `json:"tool_id" binding:"required"`
	Params  map[string]any `json:"params"`
	AgentID *string        `json:"agent_id,omitempty"`
}
