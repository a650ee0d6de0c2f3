package bridge

import (
	"bytes"
	"encoding/json"
	"io"
	"sync"
	"time"

	"github.com/google/go-dap"

	"github.com/musher-dev/zxdb-adapter/internal/observability"
)

const clientWriteTimeout = 5 * time.Second

// header classifies a frame without decoding its payload.
type header struct {
	Seq     int    `json:"seq"`
	Type    string `json:"type"`
	Command string `json:"command"`
}

func parseHeader(frame []byte) (header, error) {
	var h header
	err := json.Unmarshal(frame, &h)

	return h, err
}

type writeDeadliner interface {
	SetWriteDeadline(t time.Time) error
}

// clientWriter serializes frames written to the front-end. Relayed backend
// frames, error responses and output events all share it.
type clientWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (c *clientWriter) writeFrame(frame []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.armDeadline()

	return dap.WriteBaseMessage(c.w, frame)
}

func (c *clientWriter) writeMessage(msg dap.Message) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.armDeadline()

	return dap.WriteProtocolMessage(c.w, msg)
}

func (c *clientWriter) armDeadline() {
	if d, ok := c.w.(writeDeadliner); ok {
		_ = d.SetWriteDeadline(time.Now().Add(clientWriteTimeout))
	}
}

// errorResponse answers request seq with a failure shown to the user.
func errorResponse(seq int, command, message string) *dap.ErrorResponse {
	return &dap.ErrorResponse{
		Response: dap.Response{
			ProtocolMessage: dap.ProtocolMessage{Type: "response"},
			RequestSeq:      seq,
			Success:         false,
			Command:         command,
			Message:         message,
		},
		Body: dap.ErrorResponseBody{
			Error: &dap.ErrorMessage{
				Id:       1,
				Format:   message,
				ShowUser: true,
			},
		},
	}
}

// outputEvent carries a notification to the front-end's debug console.
func outputEvent(severity observability.Severity, message string) *dap.OutputEvent {
	category := "console"
	if severity != observability.SeverityInfo {
		category = "important"
	}

	if len(message) == 0 || message[len(message)-1] != '\n' {
		message += "\n"
	}

	return &dap.OutputEvent{
		Event: dap.Event{
			ProtocolMessage: dap.ProtocolMessage{Type: "event"},
			Event:           "output",
		},
		Body: dap.OutputEventBody{
			Category: category,
			Output:   message,
		},
	}
}

// outputSurface shows notifications as DAP output events on client.
func outputSurface(client *clientWriter) observability.Surface {
	return observability.SurfaceFunc(func(severity observability.Severity, message string) {
		_ = client.writeMessage(outputEvent(severity, message))
	})
}

// rewriteArguments replaces the arguments object of a request frame,
// keeping every other field.
func rewriteArguments(frame []byte, args map[string]any) ([]byte, error) {
	var msg map[string]json.RawMessage
	if err := json.Unmarshal(frame, &msg); err != nil {
		return nil, err
	}

	raw, err := json.Marshal(args)
	if err != nil {
		return nil, err
	}

	msg["arguments"] = raw

	return json.Marshal(msg)
}

// requestArguments decodes the arguments object of a request frame. Numbers
// are kept as json.Number so re-encoding does not alter them.
func requestArguments(frame []byte) (map[string]any, error) {
	var msg struct {
		Arguments json.RawMessage `json:"arguments"`
	}

	if err := json.Unmarshal(frame, &msg); err != nil {
		return nil, err
	}

	args := map[string]any{}
	if len(msg.Arguments) == 0 || bytes.Equal(msg.Arguments, []byte("null")) {
		return args, nil
	}

	dec := json.NewDecoder(bytes.NewReader(msg.Arguments))
	dec.UseNumber()

	if err := dec.Decode(&args); err != nil {
		return nil, err
	}

	return args, nil
}
