// Package debugger implements the debug adapter backend: breakpoint
// management, script execution control, and the translation between
// interpreter state and protocol shapes.
//
// # Concurrency model
//
// Interpreter state is owned by exactly one goroutine, the execution
// session spawned by the Controller. No other goroutine ever reads or
// writes it directly. Protocol handlers run concurrently (one goroutine
// per request) and interact with the session in exactly one way:
// packaging a unit of work as a Command and submitting it through the
// controller's command channel. The session's pause loop, entered when
// a statement hits a breakpoint, consumes commands one at a time, runs
// them against the live evaluator, and delivers each result back on a
// per-call reply channel. The submitting goroutine blocks; the session
// goroutine blocks only while waiting for the next command.
//
//	request goroutines                 execution session
//	──────────────────                 ─────────────────
//	stackTrace ──┐                     statement hook
//	variables  ──┼── inject ── cmds ──▶ pause loop ── evaluator
//	continue   ──┘            (chan)      │
//	     ▲                                │
//	     └──────── reply channels ────────┘
//
// The breakpoint Registry is the one piece of state both sides touch
// without the channel; it is guarded by a mutex held only for map
// lookups.
//
// # Pause semantics
//
// Inspection commands (stackTrace, scopes, variables, evaluate) always
// leave the session paused; only continue releases it. Evaluate parks
// the statement hook while the expression runs, so an expression that
// calls back into breakpointed code cannot re-enter the pause loop.
package debugger
