package dap

import (
	"encoding/json"
	"errors"
	"io"
	"strings"
	"sync"
	"testing"
	"time"
)

// chanTransport is an in-memory transport for exercising the server
// loop without sockets.
type chanTransport struct {
	in  chan *Message
	out chan *Message
}

func newChanTransport() *chanTransport {
	return &chanTransport{
		in:  make(chan *Message, 16),
		out: make(chan *Message, 16),
	}
}

func (t *chanTransport) Send(msg *Message) error {
	t.out <- msg
	return nil
}

func (t *chanTransport) Receive() (*Message, error) {
	msg, ok := <-t.in
	if !ok {
		return nil, io.EOF
	}
	return msg, nil
}

func (t *chanTransport) Close() error {
	return nil
}

func (t *chanTransport) request(tb testing.TB, seq int, command string, args interface{}) {
	tb.Helper()

	req := Request{
		ProtocolMessage: ProtocolMessage{Seq: seq, Type: "request"},
		Command:         command,
	}
	if args != nil {
		raw, err := json.Marshal(args)
		if err != nil {
			tb.Fatalf("marshal arguments: %v", err)
		}
		req.Arguments = raw
	}

	content, err := json.Marshal(req)
	if err != nil {
		tb.Fatalf("marshal request: %v", err)
	}
	t.in <- &Message{ContentLength: len(content), Content: content}
}

// next decodes the next outbound message into v.
func (t *chanTransport) next(tb testing.TB, v interface{}) {
	tb.Helper()

	select {
	case msg := <-t.out:
		if err := json.Unmarshal(msg.Content, v); err != nil {
			tb.Fatalf("unmarshal outbound message: %v", err)
		}
	case <-time.After(time.Second):
		tb.Fatal("timeout waiting for outbound message")
	}
}

// stubHandler records which commands were dispatched and serves canned
// results.
type stubHandler struct {
	mu       sync.Mutex
	commands []string

	initializeErr error
}

func (h *stubHandler) record(command string) {
	h.mu.Lock()
	h.commands = append(h.commands, command)
	h.mu.Unlock()
}

func (h *stubHandler) Initialize(InitializeRequestArguments) (*Capabilities, error) {
	h.record("initialize")
	if h.initializeErr != nil {
		return nil, h.initializeErr
	}
	return &Capabilities{SupportsConfigurationDoneRequest: true}, nil
}

func (h *stubHandler) SetBreakpoints(SetBreakpointsArguments) (*SetBreakpointsResponseBody, error) {
	h.record("setBreakpoints")
	return &SetBreakpointsResponseBody{Breakpoints: []Breakpoint{}}, nil
}

func (h *stubHandler) SetExceptionBreakpoints(SetExceptionBreakpointsArguments) error {
	h.record("setExceptionBreakpoints")
	return nil
}

func (h *stubHandler) Launch(json.RawMessage) error {
	h.record("launch")
	return nil
}

func (h *stubHandler) ConfigurationDone() error {
	h.record("configurationDone")
	return nil
}

func (h *stubHandler) Threads() (*ThreadsResponseBody, error) {
	h.record("threads")
	return &ThreadsResponseBody{Threads: []Thread{{ID: 0, Name: "main"}}}, nil
}

func (h *stubHandler) StackTrace(StackTraceArguments) (*StackTraceResponseBody, error) {
	h.record("stackTrace")
	return &StackTraceResponseBody{}, nil
}

func (h *stubHandler) Scopes(ScopesArguments) (*ScopesResponseBody, error) {
	h.record("scopes")
	return &ScopesResponseBody{}, nil
}

func (h *stubHandler) Variables(VariablesArguments) (*VariablesResponseBody, error) {
	h.record("variables")
	return &VariablesResponseBody{}, nil
}

func (h *stubHandler) Continue(ContinueArguments) (*ContinueResponseBody, error) {
	h.record("continue")
	return &ContinueResponseBody{}, nil
}

func (h *stubHandler) Evaluate(EvaluateArguments) (*EvaluateResponseBody, error) {
	h.record("evaluate")
	return &EvaluateResponseBody{Result: "42"}, nil
}

func (h *stubHandler) Disconnect(DisconnectArguments) error {
	h.record("disconnect")
	return nil
}

func serveAsync(transport Transport, handler Handler) chan error {
	errs := make(chan error, 1)
	go func() {
		srv := NewServer(transport)
		errs <- srv.Serve(handler)
	}()
	return errs
}

func TestServeDispatchesRequest(t *testing.T) {
	transport := newChanTransport()
	handler := &stubHandler{}
	errs := serveAsync(transport, handler)

	transport.request(t, 1, "initialize", InitializeRequestArguments{AdapterID: "test"})

	var resp Response
	transport.next(t, &resp)

	if resp.Type != "response" {
		t.Errorf("expected type response, got %q", resp.Type)
	}
	if resp.Command != "initialize" {
		t.Errorf("expected command initialize, got %q", resp.Command)
	}
	if resp.RequestSeq != 1 {
		t.Errorf("expected request_seq 1, got %d", resp.RequestSeq)
	}
	if !resp.Success {
		t.Errorf("expected success, got failure: %s", resp.Message)
	}

	var caps Capabilities
	if err := json.Unmarshal(resp.Body, &caps); err != nil {
		t.Fatalf("unmarshal body: %v", err)
	}
	if !caps.SupportsConfigurationDoneRequest {
		t.Error("expected supportsConfigurationDoneRequest in body")
	}

	close(transport.in)
	if err := <-errs; err != nil {
		t.Fatalf("serve: %v", err)
	}
}

func TestServeHandlerError(t *testing.T) {
	transport := newChanTransport()
	handler := &stubHandler{initializeErr: errors.New("boom")}
	errs := serveAsync(transport, handler)

	transport.request(t, 1, "initialize", nil)

	var resp Response
	transport.next(t, &resp)

	if resp.Success {
		t.Error("expected failure response")
	}
	if resp.Message != "boom" {
		t.Errorf("expected message 'boom', got %q", resp.Message)
	}

	close(transport.in)
	<-errs
}

func TestServeUnsupportedCommand(t *testing.T) {
	transport := newChanTransport()
	handler := &stubHandler{}
	errs := serveAsync(transport, handler)

	transport.request(t, 1, "stepBack", nil)

	var resp Response
	transport.next(t, &resp)

	if resp.Success {
		t.Error("expected failure response for unsupported command")
	}
	if !strings.Contains(resp.Message, "unsupported command") {
		t.Errorf("unexpected message: %q", resp.Message)
	}

	close(transport.in)
	<-errs
}

func TestServeDisconnectEndsLoop(t *testing.T) {
	transport := newChanTransport()
	handler := &stubHandler{}
	errs := serveAsync(transport, handler)

	transport.request(t, 1, "disconnect", DisconnectArguments{})

	var resp Response
	transport.next(t, &resp)
	if !resp.Success {
		t.Errorf("expected success, got failure: %s", resp.Message)
	}

	select {
	case err := <-errs:
		if err != nil {
			t.Fatalf("serve: %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("serve did not return after disconnect")
	}

	handler.mu.Lock()
	defer handler.mu.Unlock()
	if len(handler.commands) != 1 || handler.commands[0] != "disconnect" {
		t.Errorf("unexpected dispatched commands: %v", handler.commands)
	}
}

func TestServeIgnoresNonRequests(t *testing.T) {
	transport := newChanTransport()
	handler := &stubHandler{}
	errs := serveAsync(transport, handler)

	// Events from the client are not requests and must not be dispatched.
	content := []byte(`{"seq": 1, "type": "event", "event": "stopped"}`)
	transport.in <- &Message{ContentLength: len(content), Content: content}

	transport.request(t, 2, "threads", nil)

	var resp Response
	transport.next(t, &resp)
	if resp.Command != "threads" {
		t.Errorf("expected threads response, got %q", resp.Command)
	}

	close(transport.in)
	<-errs

	handler.mu.Lock()
	defer handler.mu.Unlock()
	if len(handler.commands) != 1 || handler.commands[0] != "threads" {
		t.Errorf("unexpected dispatched commands: %v", handler.commands)
	}
}

func TestClientEvents(t *testing.T) {
	transport := newChanTransport()
	srv := NewServer(transport)
	client := srv.Client()

	client.Initialized()
	client.Exited(3)
	client.Log("hello")

	var initialized Event
	transport.next(t, &initialized)
	if initialized.Type != "event" || initialized.Event != "initialized" {
		t.Errorf("unexpected first event: %+v", initialized)
	}

	var exited Event
	transport.next(t, &exited)
	if exited.Event != "exited" {
		t.Errorf("expected exited event, got %q", exited.Event)
	}
	var exitedBody ExitedEventBody
	if err := json.Unmarshal(exited.Body, &exitedBody); err != nil {
		t.Fatalf("unmarshal exited body: %v", err)
	}
	if exitedBody.ExitCode != 3 {
		t.Errorf("expected exit code 3, got %d", exitedBody.ExitCode)
	}

	var output Event
	transport.next(t, &output)
	if output.Event != "output" {
		t.Errorf("expected output event, got %q", output.Event)
	}
	var outputBody OutputEventBody
	if err := json.Unmarshal(output.Body, &outputBody); err != nil {
		t.Fatalf("unmarshal output body: %v", err)
	}
	if outputBody.Category != "console" || outputBody.Output != "hello\n" {
		t.Errorf("unexpected output body: %+v", outputBody)
	}

	if initialized.Seq >= exited.Seq || exited.Seq >= output.Seq {
		t.Errorf("event seq not increasing: %d %d %d", initialized.Seq, exited.Seq, output.Seq)
	}
}
