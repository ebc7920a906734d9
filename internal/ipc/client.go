package ipc

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// DefaultSendTimeout bounds a single Send call end to end: connect,
// write, and read-until-newline. A var, not a const, so tests can
// shrink it instead of waiting out the production value.
var DefaultSendTimeout = 5 * time.Second

// ProbeTimeout bounds the liveness probe's ping round-trip.
var ProbeTimeout = 2 * time.Second

var (
	// ErrUnavailable wraps any failure that should be treated as
	// IpcUnavailable: the controller falls back to the protocol-level
	// path rather than failing the whole operation.
	ErrUnavailable = errors.New("ipc: unavailable")
)

// Send performs one request/response exchange at path: connect, write
// request newline-terminated, read a single line, parse it as a
// Response, close. It never retries; retry-once-before-fallback lives
// in SendWithRetry (used by GetState and Navigate), not here.
func Send(path string, req Request, timeout time.Duration) (Response, error) {
	if req.ID == "" {
		req.ID = uuid.NewString()
	}

	conn, err := dial(path, timeout)
	if err != nil {
		return Response{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer conn.Close()

	deadline := time.Now().Add(timeout)
	if err := conn.SetDeadline(deadline); err != nil {
		return Response{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	payload, err := json.Marshal(req)
	if err != nil {
		return Response{}, fmt.Errorf("ipc: marshal request: %w", err)
	}
	payload = append(payload, '\n')

	if _, err := conn.Write(payload); err != nil {
		return Response{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	reader := bufio.NewReader(conn)
	line, err := reader.ReadBytes('\n')
	if err != nil {
		// A premature close before any newline still yields whatever
		// bytes were read; io.EOF on an empty read is unavailable, but
		// a partial line is a protocol error worth distinguishing if a
		// caller wants to (both currently surface as ErrUnavailable).
		return Response{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	var resp Response
	if err := json.Unmarshal(line, &resp); err != nil {
		return Response{}, fmt.Errorf("%w: malformed response: %v", ErrUnavailable, err)
	}

	return resp, nil
}

// SendWithRetry sends req once, and on failure retries exactly once
// after a short pause before the caller falls back to the
// protocol-level path.
func SendWithRetry(path string, req Request, timeout time.Duration) (Response, error) {
	resp, err := Send(path, req, timeout)
	if err == nil {
		return resp, nil
	}
	time.Sleep(50 * time.Millisecond)
	return Send(path, req, timeout)
}

// Probe reports whether a server is alive at path: a ping request must
// return a well-formed ok response within ProbeTimeout.
func Probe(path string) bool {
	resp, err := Send(path, Request{Type: RequestPing}, ProbeTimeout)
	if err != nil {
		return false
	}
	return resp.IsOK()
}

// GetState fetches the editor's published state over path.
func GetState(path string, timeout time.Duration) (EditorState, error) {
	resp, err := SendWithRetry(path, Request{Type: RequestGetState}, timeout)
	if err != nil {
		return EditorState{}, err
	}
	if resp.Type != ResponseState {
		return EditorState{}, fmt.Errorf("%w: unexpected response type %q", ErrUnavailable, resp.Type)
	}
	var state EditorState
	if err := json.Unmarshal(resp.Payload, &state); err != nil {
		return EditorState{}, fmt.Errorf("%w: malformed state payload: %v", ErrUnavailable, err)
	}
	return state, nil
}

// Navigate asks the editor-host to navigate its active browser tab.
func Navigate(path, url string, timeout time.Duration) error {
	payload, err := json.Marshal(NavigatePayload{URL: url})
	if err != nil {
		return fmt.Errorf("ipc: marshal navigate payload: %w", err)
	}
	resp, err := SendWithRetry(path, Request{Type: RequestNavigate, Payload: payload}, timeout)
	if err != nil {
		return err
	}
	if resp.Type == ResponseError {
		var ep ErrorPayload
		_ = json.Unmarshal(resp.Payload, &ep)
		return fmt.Errorf("ipc: navigate: %s", ep.Message)
	}
	if !resp.IsOK() {
		return fmt.Errorf("%w: unexpected response type %q", ErrUnavailable, resp.Type)
	}
	return nil
}
