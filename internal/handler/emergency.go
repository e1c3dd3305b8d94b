package handler

import (
	"context"
	"errors"

	"github.com/calmora/sessionhub/internal/auth"
	"github.com/calmora/sessionhub/internal/domain"
	"github.com/calmora/sessionhub/internal/ierr"
	"github.com/calmora/sessionhub/internal/realtime"
	"github.com/calmora/sessionhub/internal/store"
)

const (
	EmergencyActionSwitch     = "switch"
	EmergencyActionReschedule = "reschedule"
)

type EmergencyRequest struct {
	BookingId       string `json:"bookingId"`
	Reason          string `json:"reason"`
	PreferredAction string `json:"preferredAction"`
}

type EmergencyResponse struct {
	Message             string           `json:"message"`
	AlternativeTrainers []domain.Trainer `json:"alternativeTrainers,omitempty"`
}

type EmergencyHandler struct {
	bookings store.BookingStore
	trainers store.TrainerStore
	registry realtime.Registry
}

func NewEmergencyHandler(
	bookings store.BookingStore,
	trainers store.TrainerStore,
	registry realtime.Registry,
) *EmergencyHandler {
	return &EmergencyHandler{
		bookings,
		trainers,
		registry,
	}
}

func (h *EmergencyHandler) Handle(ctx context.Context, req EmergencyRequest) (EmergencyResponse, error) {
	identity, ok := auth.IdentityFromContext(ctx)
	if !ok {
		return EmergencyResponse{}, ierr.New(ierr.ErrorCodeUnauthenticated, errors.New("not authenticated"))
	}

	booking, err := h.bookings.GetById(ctx, req.BookingId)
	if errors.Is(err, store.ErrNotFound) || (err == nil && booking.UserId != identity.UserId) {
		return EmergencyResponse{}, ierr.New(ierr.ErrorCodePermissionDenied, errors.New("cannot create emergency request for this booking"))
	}
	if err != nil {
		return EmergencyResponse{}, err
	}

	h.notifyTrainer(ctx, booking, req.Reason)

	switch req.PreferredAction {
	case EmergencyActionSwitch:
		alternatives, err := h.alternativeTrainers(ctx, booking.TrainerId)
		if err != nil {
			return EmergencyResponse{}, err
		}

		return EmergencyResponse{
			Message:             "emergency request processed",
			AlternativeTrainers: alternatives,
		}, nil
	case EmergencyActionReschedule:
		err = h.bookings.UpdateStatus(ctx, booking.Id, domain.BookingStatusRescheduled)
		if err != nil {
			return EmergencyResponse{}, err
		}

		return EmergencyResponse{
			Message: "booking rescheduled successfully",
		}, nil
	default:
		return EmergencyResponse{
			Message: "emergency request processed",
		}, nil
	}
}

func (h *EmergencyHandler) alternativeTrainers(ctx context.Context, excludeTrainerId string) ([]domain.Trainer, error) {
	trainers, _, err := h.trainers.List(ctx, 0, 4)
	if err != nil {
		return nil, err
	}

	alternatives := make([]domain.Trainer, 0, 3)
	for _, trainer := range trainers {
		if trainer.Id == excludeTrainerId {
			continue
		}

		alternatives = append(alternatives, trainer)
		if len(alternatives) == 3 {
			break
		}
	}

	return alternatives, nil
}

func (h *EmergencyHandler) notifyTrainer(ctx context.Context, booking domain.Booking, reason string) {
	trainer, err := h.trainers.GetById(ctx, booking.TrainerId)
	if err != nil {
		return
	}

	notification := realtime.NewNotification("", "warning", "Emergency request", reason,
		map[string]any{"bookingId": booking.Id})

	h.registry.SendToUser(trainer.UserId, notification.Envelope())
}
