package chat

import (
	"encoding/json"
	"strings"
	"unicode/utf8"

	"livechat/internal/pkg/errs"
	"livechat/internal/pkg/sanitize"
)

const (
	// MaxUsernameLength is the display name limit in characters.
	MaxUsernameLength = 20

	// MaxContentBytes is the maximum size of a message body.
	MaxContentBytes = 5000
)

// Inbound is a validated client event. The concrete types are JoinRequest,
// ChatRequest and TypingRequest.
type Inbound interface {
	eventName() string
}

// JoinRequest announces the connection's display name.
type JoinRequest struct {
	Name string
}

// ChatRequest is a text or image message as sent by a client, before the
// server attaches identity and time.
type ChatRequest struct {
	Message      string
	Type         string
	ImageURL     string
	OriginalName string
}

// TypingRequest carries the sender's composing state.
type TypingRequest struct {
	IsTyping bool
}

func (JoinRequest) eventName() string   { return EventJoin }
func (ChatRequest) eventName() string   { return EventChatMessage }
func (TypingRequest) eventName() string { return EventTyping }

// ImageURLPolicy reports whether an image URL may be relayed.
type ImageURLPolicy func(url string) bool

// DecodeInbound parses and validates one client frame.
func DecodeInbound(frame []byte, ownsImage ImageURLPolicy) (Inbound, *errs.CustomError) {
	var env Envelope
	if err := json.Unmarshal(frame, &env); err != nil {
		return nil, errs.NewError(errs.ErrInvalidJSONFormat)
	}

	switch env.Event {
	case EventJoin:
		return decodeJoin(env.Data)
	case EventChatMessage:
		return decodeChat(env.Data, ownsImage)
	case EventTyping:
		return decodeTyping(env.Data)
	default:
		return nil, errs.NewError(errs.ErrUnsupportedEvent, truncate(env.Event, 32))
	}
}

func decodeJoin(data json.RawMessage) (Inbound, *errs.CustomError) {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, errs.NewError(errs.ErrInvalidJSONFormat)
	}

	name, err := ValidateUsername(raw)
	if err != nil {
		return nil, err
	}
	return JoinRequest{Name: name}, nil
}

// ValidateUsername trims and strips markup from raw and checks the length limit.
func ValidateUsername(raw string) (string, *errs.CustomError) {
	name := sanitize.Text(raw)

	if name == "" || utf8.RuneCountInString(name) > MaxUsernameLength {
		return "", errs.NewError(errs.ErrInvalidUsername, MaxUsernameLength)
	}
	return name, nil
}

func decodeChat(data json.RawMessage, ownsImage ImageURLPolicy) (Inbound, *errs.CustomError) {
	var payload struct {
		Message      string `json:"message"`
		Type         string `json:"type"`
		ImageURL     string `json:"imageUrl"`
		OriginalName string `json:"originalName"`
	}
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, errs.NewError(errs.ErrInvalidJSONFormat)
	}

	if len(payload.Message) > MaxContentBytes {
		return nil, errs.NewError(errs.ErrMessageContentTooLong)
	}

	switch payload.Type {
	case "", MessageTypeText:
		if strings.TrimSpace(payload.Message) == "" {
			return nil, errs.NewError(errs.ErrMessageEmpty)
		}
		return ChatRequest{Message: payload.Message, Type: MessageTypeText}, nil

	case MessageTypeImage:
		if payload.ImageURL == "" || ownsImage == nil || !ownsImage(payload.ImageURL) {
			return nil, errs.NewError(errs.ErrImageURLInvalid)
		}
		return ChatRequest{
			Message:      payload.Message,
			Type:         MessageTypeImage,
			ImageURL:     payload.ImageURL,
			OriginalName: sanitize.FileName(payload.OriginalName),
		}, nil

	default:
		return nil, errs.NewError(errs.ErrMessageTypeInvalid)
	}
}

func decodeTyping(data json.RawMessage) (Inbound, *errs.CustomError) {
	var payload struct {
		IsTyping *bool `json:"isTyping"`
	}
	if err := json.Unmarshal(data, &payload); err != nil || payload.IsTyping == nil {
		return nil, errs.NewError(errs.ErrInvalidJSONFormat)
	}
	return TypingRequest{IsTyping: *payload.IsTyping}, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
