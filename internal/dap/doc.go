// Package dap implements the server side of the Debug Adapter Protocol.
//
// The package has three layers:
//
//   - Wire types: the protocol's request/response/event shapes
//     (protocol.go), serialized with encoding/json.
//   - Transports: Content-Length framed streams over stdio or TCP
//     (transport.go) and WebSocket frames (websocket.go).
//   - Server: a read loop that decodes requests, dispatches each on its
//     own goroutine to a Handler, and writes sequenced responses and
//     events back (server.go).
//
// The Handler interface is the closed set of requests this adapter
// understands; backends implement it and emit events through the
// Client handle:
//
//	srv := dap.NewServer(dap.NewStdioTransport())
//	err := srv.Serve(backend) // blocks until disconnect or EOF
//
// Handlers may block for as long as they need (a stackTrace handler
// legitimately waits for a paused debuggee); only the per-request
// goroutine is held up.
package dap
