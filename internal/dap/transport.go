package dap

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"os"
	"strconv"
	"strings"
	"sync"
)

// Transport carries DAP messages between the adapter and its client.
type Transport interface {
	// Send sends a message to the client.
	Send(msg *Message) error

	// Receive receives a message from the client.
	Receive() (*Message, error)

	// Close closes the transport.
	Close() error
}

// Message represents a DAP message with headers and content.
type Message struct {
	// ContentLength is the length of the content.
	ContentLength int

	// ContentType is the MIME type (optional).
	ContentType string

	// Content is the JSON content.
	Content json.RawMessage
}

// RawTransport implements Transport over any io.ReadWriteCloser using
// Content-Length framing.
type RawTransport struct {
	rwc    io.ReadWriteCloser
	reader *bufio.Reader
	mu     sync.Mutex
}

// NewRawTransport creates a transport from any ReadWriteCloser.
func NewRawTransport(rwc io.ReadWriteCloser) *RawTransport {
	return &RawTransport{
		rwc:    rwc,
		reader: bufio.NewReader(rwc),
	}
}

// NewStdioTransport creates a transport over the process's own
// stdin/stdout. The caller must not write anything else to stdout for
// the lifetime of the transport.
func NewStdioTransport() *RawTransport {
	return NewRawTransport(stdioPipe{})
}

// NewConnTransport creates a transport over an accepted network
// connection.
func NewConnTransport(conn net.Conn) *RawTransport {
	return NewRawTransport(conn)
}

// Send sends a message.
func (t *RawTransport) Send(msg *Message) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	return writeMessage(t.rwc, msg)
}

// Receive receives a message.
func (t *RawTransport) Receive() (*Message, error) {
	return readMessage(t.reader)
}

// Close closes the underlying connection.
func (t *RawTransport) Close() error {
	return t.rwc.Close()
}

// stdioPipe bundles stdin/stdout as one ReadWriteCloser.
type stdioPipe struct{}

func (stdioPipe) Read(p []byte) (int, error)  { return os.Stdin.Read(p) }
func (stdioPipe) Write(p []byte) (int, error) { return os.Stdout.Write(p) }
func (stdioPipe) Close() error                { return nil }

// writeMessage writes a DAP message to the writer.
func writeMessage(w io.Writer, msg *Message) error {
	// Build headers
	headers := fmt.Sprintf("Content-Length: %d\r\n", len(msg.Content))
	if msg.ContentType != "" {
		headers += fmt.Sprintf("Content-Type: %s\r\n", msg.ContentType)
	}
	headers += "\r\n"

	// Write headers
	if _, err := w.Write([]byte(headers)); err != nil {
		return fmt.Errorf("write headers: %w", err)
	}

	// Write content
	if _, err := w.Write(msg.Content); err != nil {
		return fmt.Errorf("write content: %w", err)
	}

	return nil
}

// MaxContentLength is the maximum allowed content length for DAP messages (10MB).
const MaxContentLength = 10 * 1024 * 1024

// readMessage reads a DAP message from the reader.
func readMessage(r *bufio.Reader) (*Message, error) {
	var contentLength int
	var contentType string

	// Read headers
	for {
		line, err := r.ReadString('\n')
		if err != nil {
			return nil, fmt.Errorf("read header: %w", err)
		}

		line = strings.TrimRight(line, "\r\n")
		if line == "" {
			break // End of headers
		}

		// Parse header
		parts := strings.SplitN(line, ": ", 2)
		if len(parts) != 2 {
			return nil, fmt.Errorf("invalid header: %s", line)
		}

		switch strings.ToLower(parts[0]) {
		case "content-length":
			length, err := strconv.Atoi(parts[1])
			if err != nil {
				return nil, fmt.Errorf("invalid content-length: %w", err)
			}
			if length < 0 || length > MaxContentLength {
				return nil, fmt.Errorf("content-length %d exceeds maximum allowed %d", length, MaxContentLength)
			}
			contentLength = length
		case "content-type":
			contentType = parts[1]
		}
	}

	if contentLength == 0 {
		return nil, fmt.Errorf("missing Content-Length header")
	}

	// Read content
	content := make([]byte, contentLength)
	if _, err := io.ReadFull(r, content); err != nil {
		return nil, fmt.Errorf("read content: %w", err)
	}

	return &Message{
		ContentLength: contentLength,
		ContentType:   contentType,
		Content:       content,
	}, nil
}
