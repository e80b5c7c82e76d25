// Package protocol defines the JSON frames exchanged over the session websocket.
//
// A client request is {"id": n, "event": name, "data": {...}}; the id is optional
// and, when present, the server answers with {"ack": n, "data": {...}}. Server
// pushed notifications are {"event": name, "data": {...}}.
package protocol

import (
	"encoding/json"
	"fmt"
	"time"
)

// Client to server events.
const (
	EventStart     = "start"
	EventChunk     = "chunk"
	EventPause     = "pause"
	EventResume    = "resume"
	EventEnd       = "end"
	EventHeartbeat = "heartbeat"
)

// Server to client events.
const (
	EventStatus     = "status"
	EventTranscript = "transcript"
	EventCompleted  = "completed"
	EventError      = "error"
)

// Frame is the envelope of every websocket message in either direction.
type Frame struct {
	ID    *uint64         `json:"id,omitempty"`
	Ack   *uint64         `json:"ack,omitempty"`
	Event string          `json:"event,omitempty"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// NewEvent builds a server notification frame.
func NewEvent(event string, data any) (Frame, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return Frame{}, fmt.Errorf("encode %s payload: %w", event, err)
	}
	return Frame{Event: event, Data: raw}, nil
}

// NewRequest builds a client request frame. id 0 means no acknowledgment is wanted.
func NewRequest(id uint64, event string, data any) (Frame, error) {
	f, err := NewEvent(event, data)
	if err != nil {
		return Frame{}, err
	}
	if id != 0 {
		f.ID = &id
	}
	return f, nil
}

// NewAck builds the acknowledgment of request id.
func NewAck(id uint64, data any) (Frame, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return Frame{}, fmt.Errorf("encode ack: %w", err)
	}
	return Frame{Ack: &id, Data: raw}, nil
}

// Millis converts t to Unix milliseconds, the timestamp unit on the wire.
func Millis(t time.Time) int64 {
	return t.UnixMilli()
}
