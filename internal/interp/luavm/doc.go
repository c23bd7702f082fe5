// Package luavm implements the interp boundary on gopher-lua.
//
// gopher-lua has no native statement hook, so the runtime creates one:
// the parsed AST is walked and a call to a registered Go function is
// inserted before every statement, including statements inside nested
// function bodies. Each injected call carries the index of the
// statement's span, assigned at parse time; identical file content
// always yields identical spans, which keeps spans usable as breakpoint
// identities across separate parses.
//
// While the hook (and therefore the debugger's pause loop) is running,
// the Lua call stack is live underneath it. Introspection uses the
// state's debug interface: GetStack/GetInfo walk the frames for the
// call stack, GetLocal reads frame locals. Expression evaluation
// compiles a separate chunk against the global environment; evaluation
// chunks are never instrumented.
//
// The base/table/string/math libraries are opened; io, os, debug and
// package are not, mirroring the sandboxing posture of a plugin host.
// print is rebound to a capture function so script output can be
// forwarded over the debug protocol instead of clobbering stdout.
package luavm
