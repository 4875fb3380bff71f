/*
Package chat contains the real-time side of the server: the room event loop,
per-connection pumps and the JSON events exchanged with clients.

This file defines the wire format. Every WebSocket frame is an envelope
{"event": <name>, "data": <payload>} in both directions.
*/
package chat

import (
	"encoding/json"
	"fmt"
	"time"
)

// Event names shared with the browser client.
const (
	EventJoin        = "join"
	EventChatMessage = "chat message"
	EventTyping      = "typing"
	EventUserJoined  = "user joined"
	EventUserLeft    = "user left"
	EventUserCount   = "user count"
	EventError       = "error"
)

// Message kinds carried by EventChatMessage.
const (
	MessageTypeText  = "text"
	MessageTypeImage = "image"
)

// Envelope is the inbound frame before its payload is decoded.
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// outbound is the frame sent to clients.
type outbound struct {
	Event string `json:"event"`
	Data  any    `json:"data"`
}

// ChatMessage is a relayed chat message. Username and Timestamp are always set by the server.
type ChatMessage struct {
	Username     string `json:"username"`
	Message      string `json:"message"`
	Timestamp    string `json:"timestamp"`
	Type         string `json:"type"`
	ImageURL     string `json:"imageUrl,omitempty"`
	OriginalName string `json:"originalName,omitempty"`
}

// SystemNotice announces a user joining or leaving.
type SystemNotice struct {
	Username  string `json:"username"`
	Message   string `json:"message"`
	Timestamp string `json:"timestamp"`
}

// TypingNotice tells other clients whether a user is composing.
type TypingNotice struct {
	Username string `json:"username"`
	IsTyping bool   `json:"isTyping"`
}

// ErrorNotice reports a rejected event to the connection that sent it.
type ErrorNotice struct {
	Code  int    `json:"code"`
	Error string `json:"error"`
}

// encode marshals one outbound frame.
func encode(event string, data any) ([]byte, error) {
	b, err := json.Marshal(outbound{Event: event, Data: data})
	if err != nil {
		return nil, fmt.Errorf("encode %q: %w", event, err)
	}
	return b, nil
}

// formatTimestamp renders server timestamps as RFC 3339 in UTC.
func formatTimestamp(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

func joinedNotice(name string, at time.Time) SystemNotice {
	return SystemNotice{
		Username:  name,
		Message:   name + " joined the chat.",
		Timestamp: formatTimestamp(at),
	}
}

func leftNotice(name string, at time.Time) SystemNotice {
	return SystemNotice{
		Username:  name,
		Message:   name + " left the chat.",
		Timestamp: formatTimestamp(at),
	}
}
