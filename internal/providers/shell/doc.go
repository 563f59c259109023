// Package shell exposes terminal sessions to agents as terminal.* tools.
//
// Every tool other than create_session and list_sessions addresses its
// session by session_id or, failing that, by name.
package shell
