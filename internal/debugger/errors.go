package debugger

import "errors"

// Errors surfaced to the client as request failures.
var (
	// ErrNoSession is returned when a request needs a live execution
	// session and none has been started.
	ErrNoSession = errors.New("no active debug session")

	// ErrSessionActive is returned when a second execution session is
	// requested; the backend supports exactly one per instance.
	ErrSessionActive = errors.New("a debug session is already active")

	// ErrNoProgram is returned when launch arguments lack a usable
	// program path.
	ErrNoProgram = errors.New("launch arguments require a string \"program\"")
)
