package runner

import (
	"bufio"
	"context"
	"encoding/json"
	"io"
	"os"
	"strings"
)

// JSONMessage is one line read by the JSONHandler.
type JSONMessage struct {
	Text string `json:"text"`
}

// JSONOutput is one line written by the JSONHandler.
type JSONOutput struct {
	Replies []any  `json:"replies,omitempty"`
	System  string `json:"system,omitempty"`
}

// JSONHandler implements the IOHandler interface for structured JSON-Lines communication.
type JSONHandler struct {
	Reader  *bufio.Reader
	Encoder *json.Encoder
}

// NewJSONHandler creates a handler for JSON IO.
func NewJSONHandler(r io.Reader, w io.Writer) *JSONHandler {
	if r == nil {
		r = os.Stdin
	}
	if w == nil {
		w = os.Stdout
	}
	return &JSONHandler{
		Reader:  bufio.NewReader(r),
		Encoder: json.NewEncoder(w),
	}
}

// Output emits the replies as a single JSON line.
func (h *JSONHandler) Output(ctx context.Context, replies []any) error {
	if replies == nil {
		replies = []any{}
	}
	return h.Encoder.Encode(JSONOutput{Replies: replies})
}

// Input reads a line holding a JSON object ({"text": ...}), a JSON string
// or plain text.
func (h *JSONHandler) Input(ctx context.Context) (string, error) {
	for {
		line, err := h.Reader.ReadString('\n')
		line = strings.TrimSpace(line)
		if line == "" {
			if err != nil {
				return "", err
			}
			continue
		}
		return SanitizeInput(decodeJSONInput(line))
	}
}

func decodeJSONInput(line string) string {
	var msg JSONMessage
	if err := json.Unmarshal([]byte(line), &msg); err == nil {
		return msg.Text
	}
	var s string
	if err := json.Unmarshal([]byte(line), &s); err == nil {
		return s
	}
	return line
}

// SystemOutput emits a {"system": msg} line.
func (h *JSONHandler) SystemOutput(ctx context.Context, msg string) error {
	return h.Encoder.Encode(JSONOutput{System: msg})
}
