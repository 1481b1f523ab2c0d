// Package agui bridges the event stream to the AG-UI protocol.
//
// AG-UI (Agent-User Interface) is an open, event-based protocol that
// standardizes how AI agents connect to user-facing applications. This
// package converts the runner's events into AG-UI events, enabling
// integration with AG-UI-compatible frontends.
//
// The package provides:
//   - [Mapper]: stateful converter that expands streaming deltas into
//     AG-UI's Start-Content-End lifecycle
//   - Message conversion: [ToMessages], [FromMessages]
//   - [RunAgentInput]: the protocol request payload, with helpers for
//     decoding frontend-provided tools and state
//
// The package does NOT provide HTTP handlers or transports. Serve the
// mapped events with the AG-UI SDK's SSE writer or your own transport.
//
// # Usage
//
//	mapper := agui.NewMapper(threadID, runID)
//
//	run := runner.ExecuteStream(ctx, messages...)
//	for e := range run.Events() {
//	    for _, aguiEvent := range mapper.MapEvent(e) {
//	        writeEvent(aguiEvent)
//	    }
//	}
package agui
