package realtime

import (
	"time"

	gonanoid "github.com/matoous/go-nanoid/v2"
)

const (
	EnvelopeTypeNotification = "notification"
	EnvelopeTypePong         = "pong"
)

// Envelope is the wire shape every outbound channel message uses.
type Envelope struct {
	Type string `json:"type"`
	Data any    `json:"data,omitempty"`
}

type Notification struct {
	Id        string         `json:"id"`
	Type      string         `json:"type"`
	Title     string         `json:"title"`
	Message   string         `json:"message"`
	Timestamp time.Time      `json:"timestamp"`
	Metadata  map[string]any `json:"metadata"`
}

const (
	defaultNotificationType  = "info"
	defaultNotificationTitle = "Notification"
)

// NewNotification synthesizes a notification record, defaulting the fields
// the sender left out and stamping it with the receipt time.
func NewNotification(id string, kind string, title string, message string, metadata map[string]any) Notification {
	if id == "" {
		id = gonanoid.Must()
	}
	if kind == "" {
		kind = defaultNotificationType
	}
	if title == "" {
		title = defaultNotificationTitle
	}
	if metadata == nil {
		metadata = map[string]any{}
	}

	return Notification{
		Id:        id,
		Type:      kind,
		Title:     title,
		Message:   message,
		Timestamp: time.Now(),
		Metadata:  metadata,
	}
}

func (n Notification) Envelope() Envelope {
	return Envelope{
		Type: EnvelopeTypeNotification,
		Data: n,
	}
}
