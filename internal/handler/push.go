package handler

import (
	"context"

	"github.com/calmora/sessionhub/internal/realtime"
)

type PushRequest struct {
	Id       string         `json:"id,omitempty"`
	Type     string         `json:"type,omitempty"`
	Title    string         `json:"title,omitempty"`
	Message  string         `json:"message,omitempty"`
	UserId   string         `json:"userId,omitempty"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

type PushHandlerInterface interface {
	Handle(ctx context.Context, req PushRequest) (realtime.Notification, error)
}

// PushHandler synthesizes a notification record and routes it: to one
// user's connections when a target is given, to every connection otherwise.
type PushHandler struct {
	registry realtime.Registry
}

func NewPushHandler(registry realtime.Registry) *PushHandler {
	return &PushHandler{
		registry,
	}
}

func (h *PushHandler) Handle(ctx context.Context, req PushRequest) (realtime.Notification, error) {
	notification := realtime.NewNotification(req.Id, req.Type, req.Title, req.Message, req.Metadata)

	if req.UserId != "" {
		h.registry.SendToUser(req.UserId, notification.Envelope())
	} else {
		h.registry.Broadcast(notification.Envelope())
	}

	return notification, nil
}
