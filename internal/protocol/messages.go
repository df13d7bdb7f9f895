// Package protocol defines the JSON wire format spoken between the
// controller and the agent: request/response/event frames, the flat
// string-keyed parameter map, and the documented command set.
package protocol

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
)

// ProtocolVersion is the version this build speaks.
const ProtocolVersion = "1.1"

// SupportedVersions lists protocol versions this build interoperates with.
// A version mismatch is a warning, not a refusal.
var SupportedVersions = []string{"1.0", "1.1"}

// IsSupportedVersion reports whether v is a known protocol version.
func IsSupportedVersion(v string) bool {
	for _, s := range SupportedVersions {
		if s == v {
			return true
		}
	}
	return false
}

// MessageType discriminates wire frames.
type MessageType string

const (
	TypeRequest  MessageType = "request"
	TypeResponse MessageType = "response"
	TypeEvent    MessageType = "event"
)

// Request is a command sent from the controller to the agent.
type Request struct {
	ID       string      `json:"id"`
	Type     MessageType `json:"type"`
	Category string      `json:"category"`
	Action   string      `json:"action"`
	Params   Params      `json:"params,omitempty"`
}

// Key returns the dispatch key, "category.action".
func (r *Request) Key() string {
	return r.Category + "." + r.Action
}

// Response answers exactly one Request, matched by ID. Success is always
// serialized so a failed response is unambiguous on the wire.
type Response struct {
	ID      string         `json:"id"`
	Type    MessageType    `json:"type"`
	Success bool           `json:"success"`
	Result  map[string]any `json:"result,omitempty"`
	Error   string         `json:"error,omitempty"`
}

// Event is a spontaneous notification pushed by the agent.
type Event struct {
	ID   string         `json:"id"`
	Type MessageType    `json:"type"`
	Name string         `json:"event"`
	Data map[string]any `json:"data,omitempty"`
}

// Message is a parsed frame. Exactly one field is non-nil.
type Message struct {
	Request  *Request
	Response *Response
	Event    *Event
}

// NewID returns a fresh globally unique message id.
func NewID() string {
	return uuid.NewString()
}

// NewRequest builds a request with a fresh id. A nil params map becomes
// an empty one.
func NewRequest(category, action string, params Params) *Request {
	if params == nil {
		params = Params{}
	}
	return &Request{
		ID:       NewID(),
		Type:     TypeRequest,
		Category: category,
		Action:   action,
		Params:   params,
	}
}

// NewResponse builds a successful response for the given request id.
func NewResponse(id string, result map[string]any) *Response {
	return &Response{ID: id, Type: TypeResponse, Success: true, Result: result}
}

// NewErrorResponse builds a failed response for the given request id.
func NewErrorResponse(id, errMsg string) *Response {
	return &Response{ID: id, Type: TypeResponse, Success: false, Error: errMsg}
}

// NewEvent builds an event frame with a fresh id.
func NewEvent(name string, data map[string]any) *Event {
	if data == nil {
		data = map[string]any{}
	}
	return &Event{ID: NewID(), Type: TypeEvent, Name: name, Data: data}
}

// probe is the minimal shape needed to classify and validate a frame.
type probe struct {
	ID       string      `json:"id"`
	Type     MessageType `json:"type"`
	Category string      `json:"category"`
	Action   string      `json:"action"`
	Event    string      `json:"event"`
}

// Parse decodes one wire frame. The returned Message has exactly one
// variant set. Malformed frames are errors for the caller to log and drop.
func Parse(data []byte) (*Message, error) {
	var p probe
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("invalid frame: %w", err)
	}
	if p.ID == "" {
		return nil, fmt.Errorf("frame missing id")
	}

	switch p.Type {
	case TypeRequest:
		if p.Category == "" || p.Action == "" {
			return nil, fmt.Errorf("request %s missing category or action", p.ID)
		}
		var req Request
		if err := json.Unmarshal(data, &req); err != nil {
			return nil, fmt.Errorf("invalid request frame: %w", err)
		}
		if req.Params == nil {
			req.Params = Params{}
		}
		return &Message{Request: &req}, nil

	case TypeResponse:
		var resp Response
		if err := json.Unmarshal(data, &resp); err != nil {
			return nil, fmt.Errorf("invalid response frame: %w", err)
		}
		return &Message{Response: &resp}, nil

	case TypeEvent:
		if p.Event == "" {
			return nil, fmt.Errorf("event %s missing name", p.ID)
		}
		var ev Event
		if err := json.Unmarshal(data, &ev); err != nil {
			return nil, fmt.Errorf("invalid event frame: %w", err)
		}
		if ev.Data == nil {
			ev.Data = map[string]any{}
		}
		return &Message{Event: &ev}, nil

	default:
		return nil, fmt.Errorf("unknown frame type %q", p.Type)
	}
}

// Encode serializes one frame for the wire.
func Encode(v any) ([]byte, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to encode frame: %w", err)
	}
	return data, nil
}
