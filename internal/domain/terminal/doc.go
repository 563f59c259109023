// Package terminal manages shell sessions backed by pseudo-terminals.
//
// A Manager owns every live session. Each session binds its metadata to a
// pty-attached shell (package process) and a bounded line capture of its
// output (package buffer). Sessions are addressed by an opaque ID or by a
// unique, client-chosen name.
//
// Two access modes share one session record:
//   - Polled: Write / Exec / ExecWait / Buffer, used by HTTP handlers and agents
//   - Streaming: Subscribe / Unsubscribe, used by the WebSocket relay
//
// Example Usage:
//
//	mgr := terminal.NewManager(terminal.DefaultOptions(), logger)
//	sess, err := mgr.Create(ctx, terminal.Config{Name: "build"})
//	err = mgr.Exec(sess.ID, "make test")
//	lines, err := mgr.Buffer(sess.ID, 50)
//	err = mgr.Kill(sess.ID)
package terminal
