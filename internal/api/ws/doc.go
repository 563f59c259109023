// Package ws relays terminal sessions over WebSocket.
//
// Two routes are served:
//   - /ws/terminal spawns a session named relay-<uuid> for the connection
//     and kills it when the connection ends.
//   - /api/terminals/:id/stream attaches to an existing session, optionally
//     replaying the last ?replay=N buffered lines. Disconnecting detaches.
//
// Client frames: binary frames are written to the session as-is. Text frames
// holding a JSON object with a string data or input field write that field;
// {"type":"resize","cols":C,"rows":R} resizes. Other text is written as-is.
//
// Server frames are text. With ?format=json each frame is an Envelope
// ({"type":"output","data":...}) and the stream ends with {"type":"exit"}.
//
// Example:
//
//	relay := ws.NewRelay(manager, metrics, corsConfig, logger)
//	relay.Register(router)
package ws
