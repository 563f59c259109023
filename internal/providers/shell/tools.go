package shell

import "github.com/GriffinCanCode/termhost/internal/shared/types"

var (
	sessionIDParam = types.Parameter{
		Name:        "session_id",
		Type:        "string",
		Description: "Session ID. Either session_id or name is required",
	}
	nameParam = types.Parameter{
		Name:        "name",
		Type:        "string",
		Description: "Session name, used when session_id is absent",
	}
	commandParam = types.Parameter{
		Name:        "command",
		Type:        "string",
		Description: "Command line; a newline is appended",
		Required:    true,
	}
	timeoutParam = types.Parameter{
		Name:        "timeout_ms",
		Type:        "number",
		Description: "Milliseconds to wait. Defaults to 30000",
	}
)

func addressed(extra ...types.Parameter) []types.Parameter {
	return append([]types.Parameter{sessionIDParam, nameParam}, extra...)
}

func tools() []types.Tool {
	return []types.Tool{
		{
			ID:          "terminal.create_session",
			Name:        "Create Terminal Session",
			Description: "Start a named shell session on a new pseudo-terminal",
			Parameters: []types.Parameter{
				{Name: "name", Type: "string", Description: "Unique session name", Required: true},
				{Name: "shell", Type: "string", Description: "Shell executable. Defaults to the server's shell"},
				{Name: "cwd", Type: "string", Description: "Working directory, absolute or relative to the workspace"},
				{Name: "cols", Type: "number", Description: "Width in columns. Defaults to 120"},
				{Name: "rows", Type: "number", Description: "Height in rows. Defaults to 40"},
				{Name: "env", Type: "object", Description: "Extra environment variables"},
			},
			Returns: "session_info",
		},
		{
			ID:          "terminal.exec",
			Name:        "Execute Command",
			Description: "Send a command line to a session without waiting for output",
			Parameters:  addressed(commandParam),
			Returns:     "success",
		},
		{
			ID:   "terminal.exec_wait",
			Name: "Execute and Wait",
			Description: "Send a command line, wait the full timeout, and return the last 100 lines of output. " +
				"Does not detect when the command finishes",
			Parameters: addressed(commandParam, timeoutParam),
			Returns:    "output",
		},
		{
			ID:          "terminal.exec_capture",
			Name:        "Execute and Capture",
			Description: "Run a command in a POSIX shell session and return its output and exit code once it finishes",
			Parameters:  addressed(commandParam, timeoutParam),
			Returns:     "output_and_exit_code",
		},
		{
			ID:          "terminal.write",
			Name:        "Write to Terminal",
			Description: "Send raw input to a session. No newline is added",
			Parameters: addressed(types.Parameter{
				Name:        "input",
				Type:        "string",
				Description: "Bytes to send, including any control characters",
				Required:    true,
			}),
			Returns: "success",
		},
		{
			ID:          "terminal.read",
			Name:        "Read Output",
			Description: "Return buffered output lines",
			Parameters: addressed(types.Parameter{
				Name:        "lines",
				Type:        "number",
				Description: "Most recent lines to return. Omit for the whole buffer",
			}),
			Returns: "output_lines",
		},
		{
			ID:          "terminal.resize",
			Name:        "Resize Terminal",
			Description: "Change a session's window size",
			Parameters: addressed(
				types.Parameter{Name: "cols", Type: "number", Description: "New width in columns", Required: true},
				types.Parameter{Name: "rows", Type: "number", Description: "New height in rows", Required: true},
			),
			Returns: "success",
		},
		{
			ID:          "terminal.list_sessions",
			Name:        "List Terminal Sessions",
			Description: "List every session, oldest first",
			Parameters:  []types.Parameter{},
			Returns:     "sessions_list",
		},
		{
			ID:          "terminal.get_session",
			Name:        "Get Session Info",
			Description: "Get a session's metadata and status",
			Parameters:  addressed(),
			Returns:     "session_info",
		},
		{
			ID:          "terminal.kill",
			Name:        "Kill Terminal Session",
			Description: "Terminate a session and free its name",
			Parameters:  addressed(),
			Returns:     "success",
		},
		{
			ID:          "terminal.flush",
			Name:        "Flush Output",
			Description: "Discard a session's buffered output",
			Parameters:  addressed(),
			Returns:     "success",
		},
	}
}
