package http

// ExecRequest is the body of the exec endpoints. An empty command sends a
// bare newline.
type ExecRequest struct {
	Command *string `json:"command" binding:"required"`
	// TimeoutMs applies to exec/wait and exec/capture only.
	TimeoutMs int `json:"timeout_ms,omitempty" binding:"gte=0"`
}

// WriteRequest is the body of the write endpoints. Data is sent unchanged.
type WriteRequest struct {
	Data *string `json:"data" binding:"required"`
}

// ResizeRequest is the body of the resize endpoint.
type ResizeRequest struct {
	Cols int `json:"cols" binding:"required,gt=0"`
	Rows int `json:"rows" binding:"required,gt=0"`
}

// BufferResponse is returned by the buffer endpoints.
type BufferResponse struct {
	SessionID string   `json:"session_id"`
	Lines     []string `json:"lines"`
	Count     int      `json:"count"`
}

// CaptureResponse is returned by exec/capture.
type CaptureResponse struct {
	SessionID  string `json:"session_id"`
	Output     string `json:"output"`
	ExitCode   int    `json:"exit_code"`
	DurationMs int64  `json:"duration_ms"`
}
