package main

import (
	"errors"
	"strings"
)

// Client event types.
const (
	evJoinRoom   = "join-room"
	evLeaveRoom  = "leave-room"
	evChat       = "chat-message"
	evImage      = "image-message"
	evAdminLogin = "admin-login"
	evAdminReset = "admin-reset"
)

// Server event types (evChat and evImage are reused for the peer copy).
const (
	evAdminLog = "admin-message-log"
	evError    = "error"
)

// Payload kinds carried in the admin log copy.
const (
	kindText  = "text"
	kindImage = "image"
)

// maxImageBytes caps the encoded size of an image payload.
const maxImageBytes = 2 << 20

var (
	errUnknownType = errors.New("unknown event type")
	errMissingRoom = errors.New("missing room")
	errEmptyBody   = errors.New("empty message body")
	errBadImage    = errors.New("image must be a data:image/ URI")
	errImageSize   = errors.New("image too large")
)

// ClientEvent is the envelope received from websocket clients.
type ClientEvent struct {
	Type     string `json:"type"`
	Room     string `json:"room,omitempty"`
	Nickname string `json:"nickname,omitempty"`
	Message  string `json:"message,omitempty"`
	Image    string `json:"image,omitempty"`
	Secret   string `json:"secret,omitempty"`
}

// ServerEvent is pushed to clients. Kind tags the payload type on
// admin-message-log copies.
type ServerEvent struct {
	Type     string `json:"type"`
	Room     string `json:"room,omitempty"`
	Nickname string `json:"nickname,omitempty"`
	Message  string `json:"message,omitempty"`
	Image    string `json:"image,omitempty"`
	Kind     string `json:"kind,omitempty"`
	Reason   string `json:"reason,omitempty"`
}

// validate checks the per-variant required fields. Malformed events are
// rejected at the boundary instead of being silently dropped.
func (e ClientEvent) validate() error {
	switch e.Type {
	case evJoinRoom, evLeaveRoom:
		if strings.TrimSpace(e.Room) == "" {
			return errMissingRoom
		}
	case evChat:
		if strings.TrimSpace(e.Room) == "" {
			return errMissingRoom
		}
		if strings.TrimSpace(e.Message) == "" {
			return errEmptyBody
		}
	case evImage:
		if strings.TrimSpace(e.Room) == "" {
			return errMissingRoom
		}
		if !strings.HasPrefix(e.Image, "data:image/") || !strings.Contains(e.Image, ";base64,") {
			return errBadImage
		}
		if len(e.Image) > maxImageBytes {
			return errImageSize
		}
	case evAdminLogin, evAdminReset:
		// no payload requirements
	default:
		return errUnknownType
	}
	return nil
}
