package protocol

import (
	"encoding/json"
	"strings"

	"github.com/wagiedev/study-bridge-go/internal/errors"
)

// Status is the worker's response status.
type Status string

const (
	// StatusReady is sent once when the worker is ready for commands.
	StatusReady Status = "ready"
	// StatusSuccess carries a result field named after the command.
	StatusSuccess Status = "success"
	// StatusError carries a human-readable message.
	StatusError Status = "error"
)

// Response is one decoded worker line.
//
// Wire format:
//
//	{"status":"success","request_id":"01J...","answer":"..."}
//	{"status":"error","message":"Unknown action: foo"}
type Response struct {
	// Status is the lowercased status field.
	Status Status

	// RequestID is the echoed request id, empty if the worker did not echo one.
	RequestID string

	// Message is the error message of an error response.
	Message string

	// Payload holds every other field. Non-string values are kept as their
	// JSON text.
	Payload map[string]string
}

// Field returns the payload field name and whether it was present.
func (r *Response) Field(name string) (string, bool) {
	v, ok := r.Payload[name]

	return v, ok
}

// DecodeResponse decodes exactly one worker line.
//
// Returns a ProtocolError if the line is not a JSON object or has no string
// status field.
func DecodeResponse(line []byte) (*Response, error) {
	var raw map[string]json.RawMessage

	if err := json.Unmarshal(line, &raw); err != nil {
		return nil, &errors.ProtocolError{RawData: string(line), Reason: "decode line", Err: err}
	}

	if raw == nil {
		return nil, &errors.ProtocolError{RawData: string(line), Reason: "line is not a JSON object"}
	}

	resp := &Response{Payload: make(map[string]string, len(raw))}

	for key, value := range raw {
		text := decodeValue(value)

		switch key {
		case "status":
			var status string
			if err := json.Unmarshal(value, &status); err != nil {
				return nil, &errors.ProtocolError{RawData: string(line), Reason: "status is not a string", Err: err}
			}

			resp.Status = Status(strings.ToLower(status))
		case "request_id":
			resp.RequestID = text
		case "message":
			resp.Message = text
		default:
			resp.Payload[key] = text
		}
	}

	if resp.Status == "" {
		return nil, &errors.ProtocolError{RawData: string(line), Reason: "missing status"}
	}

	return resp, nil
}

// decodeValue returns string values unquoted and anything else as JSON text.
func decodeValue(value json.RawMessage) string {
	var s string
	if err := json.Unmarshal(value, &s); err == nil {
		return s
	}

	return string(value)
}
