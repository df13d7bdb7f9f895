package protocol

import "time"

// Log types carried by console.log events.
const (
	LogTypeInfo    = "info"
	LogTypeWarning = "warning"
	LogTypeError   = "error"
)

// Play mode states carried by playModeChanged events.
const (
	PlayStatePlaying = "playing"
	PlayStatePaused  = "paused"
	PlayStateStopped = "stopped"
)

// ConsoleLog is the payload of a console.log event.
type ConsoleLog struct {
	Message    string  `json:"message"`
	StackTrace string  `json:"stackTrace,omitempty"`
	LogType    string  `json:"logType"`
	Timestamp  float64 `json:"timestamp"`
}

// PlayModeChange is the payload of a playModeChanged event.
type PlayModeChange struct {
	State string `json:"state"`
}

// NewConsoleLogEvent builds a console.log event frame.
func NewConsoleLogEvent(message, stackTrace, logType string) *Event {
	return NewEvent(EventConsoleLog, map[string]any{
		"message":    message,
		"stackTrace": stackTrace,
		"logType":    logType,
		"timestamp":  float64(time.Now().UnixMilli()) / 1000.0,
	})
}

// NewPlayModeEvent builds a playModeChanged event frame.
func NewPlayModeEvent(state string) *Event {
	return NewEvent(EventPlayModeChanged, map[string]any{
		"state": state,
	})
}

// DecodeConsoleLog extracts a ConsoleLog from event data, tolerating
// missing optional fields.
func DecodeConsoleLog(data map[string]any) ConsoleLog {
	cl := ConsoleLog{LogType: LogTypeInfo}
	if m, ok := data["message"].(string); ok {
		cl.Message = m
	}
	if s, ok := data["stackTrace"].(string); ok {
		cl.StackTrace = s
	}
	if lt, ok := data["logType"].(string); ok && lt != "" {
		cl.LogType = lt
	}
	if ts, ok := data["timestamp"].(float64); ok {
		cl.Timestamp = ts
	}
	return cl
}

// DecodePlayModeChange extracts a PlayModeChange from event data.
// An absent state defaults to stopped.
func DecodePlayModeChange(data map[string]any) PlayModeChange {
	pm := PlayModeChange{State: PlayStateStopped}
	if s, ok := data["state"].(string); ok && s != "" {
		pm.State = s
	}
	return pm
}
