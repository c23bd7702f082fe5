package dap

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sync"
	"sync/atomic"

	"github.com/gorilla/websocket"
)

// Handler is the closed set of requests a debug adapter backend serves.
// One method per request command; the server rejects anything else.
//
// Handlers are invoked on their own goroutine per request, so a handler
// may block (for example waiting on a paused debuggee) without stalling
// the read loop.
type Handler interface {
	Initialize(args InitializeRequestArguments) (*Capabilities, error)
	SetBreakpoints(args SetBreakpointsArguments) (*SetBreakpointsResponseBody, error)
	SetExceptionBreakpoints(args SetExceptionBreakpointsArguments) error
	Launch(args json.RawMessage) error
	ConfigurationDone() error
	Threads() (*ThreadsResponseBody, error)
	StackTrace(args StackTraceArguments) (*StackTraceResponseBody, error)
	Scopes(args ScopesArguments) (*ScopesResponseBody, error)
	Variables(args VariablesArguments) (*VariablesResponseBody, error)
	Continue(args ContinueArguments) (*ContinueResponseBody, error)
	Evaluate(args EvaluateArguments) (*EvaluateResponseBody, error)
	Disconnect(args DisconnectArguments) error
}

// Server reads DAP requests from a transport, dispatches them to a
// Handler, and writes responses and events back.
type Server struct {
	transport Transport
	seq       int64
	sendMu    sync.Mutex
	client    *Client
}

// NewServer creates a server on the given transport.
func NewServer(transport Transport) *Server {
	s := &Server{transport: transport}
	s.client = &Client{srv: s}
	return s
}

// Client returns the outbound event handle for this server's client.
func (s *Server) Client() *Client {
	return s.client
}

// Serve reads and dispatches requests until the client disconnects or
// the transport fails. Each request is handled on its own goroutine;
// the disconnect request is handled inline and ends the loop.
func (s *Server) Serve(handler Handler) error {
	for {
		msg, err := s.transport.Receive()
		if err != nil {
			if isClosed(err) {
				return nil
			}
			return err
		}

		var req Request
		if err := json.Unmarshal(msg.Content, &req); err != nil {
			continue
		}
		if req.Type != "request" {
			continue
		}

		if req.Command == "disconnect" {
			s.dispatch(handler, req)
			return nil
		}
		go s.dispatch(handler, req)
	}
}

// isClosed reports whether err means the client went away cleanly.
func isClosed(err error) bool {
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return true
	}
	var closeErr *websocket.CloseError
	return errors.As(err, &closeErr)
}

// dispatch runs one request through the handler and sends the response.
func (s *Server) dispatch(handler Handler, req Request) {
	body, err := s.handle(handler, req)
	s.respond(req, body, err)
}

// handle decodes the request arguments and calls the matching handler
// method.
func (s *Server) handle(handler Handler, req Request) (interface{}, error) {
	switch req.Command {
	case "initialize":
		var args InitializeRequestArguments
		if err := unmarshalArgs(req.Arguments, &args); err != nil {
			return nil, err
		}
		return handler.Initialize(args)
	case "setBreakpoints":
		var args SetBreakpointsArguments
		if err := unmarshalArgs(req.Arguments, &args); err != nil {
			return nil, err
		}
		return handler.SetBreakpoints(args)
	case "setExceptionBreakpoints":
		var args SetExceptionBreakpointsArguments
		if err := unmarshalArgs(req.Arguments, &args); err != nil {
			return nil, err
		}
		return nil, handler.SetExceptionBreakpoints(args)
	case "launch":
		// Launch arguments are adapter-specific; hand over the raw JSON.
		return nil, handler.Launch(req.Arguments)
	case "configurationDone":
		return nil, handler.ConfigurationDone()
	case "threads":
		return handler.Threads()
	case "stackTrace":
		var args StackTraceArguments
		if err := unmarshalArgs(req.Arguments, &args); err != nil {
			return nil, err
		}
		return handler.StackTrace(args)
	case "scopes":
		var args ScopesArguments
		if err := unmarshalArgs(req.Arguments, &args); err != nil {
			return nil, err
		}
		return handler.Scopes(args)
	case "variables":
		var args VariablesArguments
		if err := unmarshalArgs(req.Arguments, &args); err != nil {
			return nil, err
		}
		return handler.Variables(args)
	case "continue":
		var args ContinueArguments
		if err := unmarshalArgs(req.Arguments, &args); err != nil {
			return nil, err
		}
		return handler.Continue(args)
	case "evaluate":
		var args EvaluateArguments
		if err := unmarshalArgs(req.Arguments, &args); err != nil {
			return nil, err
		}
		return handler.Evaluate(args)
	case "disconnect":
		var args DisconnectArguments
		if err := unmarshalArgs(req.Arguments, &args); err != nil {
			return nil, err
		}
		return nil, handler.Disconnect(args)
	default:
		return nil, fmt.Errorf("unsupported command %q", req.Command)
	}
}

// unmarshalArgs decodes request arguments, tolerating their absence.
func unmarshalArgs(raw json.RawMessage, v interface{}) error {
	if len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("unmarshal arguments: %w", err)
	}
	return nil
}

// respond sends the response for req. A handler error becomes an
// unsuccessful response with the error text as message.
func (s *Server) respond(req Request, body interface{}, err error) {
	resp := Response{
		ProtocolMessage: ProtocolMessage{
			Seq:  s.nextSeq(),
			Type: "response",
		},
		RequestSeq: req.Seq,
		Command:    req.Command,
		Success:    err == nil,
	}

	if err != nil {
		resp.Message = err.Error()
	} else if body != nil {
		content, merr := json.Marshal(body)
		if merr != nil {
			resp.Success = false
			resp.Message = fmt.Sprintf("marshal response body: %v", merr)
		} else {
			resp.Body = content
		}
	}

	s.send(resp)
}

// nextSeq allocates the next outbound sequence number.
func (s *Server) nextSeq() int {
	return int(atomic.AddInt64(&s.seq, 1))
}

// send marshals and writes one outbound message.
func (s *Server) send(v interface{}) {
	content, err := json.Marshal(v)
	if err != nil {
		return
	}

	s.sendMu.Lock()
	defer s.sendMu.Unlock()

	// Transport failures here mean the client is gone; the read loop
	// will observe the same condition and stop.
	_ = s.transport.Send(&Message{
		ContentLength: len(content),
		Content:       content,
	})
}

// Client emits DAP events to the connected client.
type Client struct {
	srv *Server
}

// event sends one event message.
func (c *Client) event(name string, body interface{}) {
	evt := Event{
		ProtocolMessage: ProtocolMessage{
			Seq:  c.srv.nextSeq(),
			Type: "event",
		},
		Event: name,
	}
	if body != nil {
		content, err := json.Marshal(body)
		if err != nil {
			return
		}
		evt.Body = content
	}
	c.srv.send(evt)
}

// Initialized emits the initialized event.
func (c *Client) Initialized() {
	c.event("initialized", nil)
}

// Stopped emits a stopped event.
func (c *Client) Stopped(body StoppedEventBody) {
	c.event("stopped", body)
}

// Output emits an output event.
func (c *Client) Output(body OutputEventBody) {
	c.event("output", body)
}

// Exited emits an exited event with the given exit code.
func (c *Client) Exited(code int) {
	c.event("exited", ExitedEventBody{ExitCode: code})
}

// Terminated emits a terminated event.
func (c *Client) Terminated() {
	c.event("terminated", TerminatedEventBody{})
}

// Log emits a console-category output event. Diagnostics go through
// here so they reach the client without mixing into script output.
func (c *Client) Log(text string) {
	c.Output(OutputEventBody{Category: "console", Output: text + "\n"})
}
