package handler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/calmora/sessionhub/internal/auth"
	"github.com/calmora/sessionhub/internal/domain"
	"github.com/calmora/sessionhub/internal/ierr"
	"github.com/calmora/sessionhub/internal/realtime"
	"github.com/calmora/sessionhub/internal/store"
	"github.com/google/uuid"
)

// defaultSessionDuration is the session length in minutes assigned to new
// bookings.
const defaultSessionDuration = 50

type CreateBookingRequest struct {
	TrainerId   string             `json:"trainerId"`
	ServiceType string             `json:"serviceType"`
	ScheduledAt time.Time          `json:"scheduledAt"`
	SessionMode domain.SessionMode `json:"sessionMode"`
	Notes       string             `json:"notes,omitempty"`
}

type CreateBookingHandler struct {
	bookings store.BookingStore
	trainers store.TrainerStore
	registry realtime.Registry
}

func NewCreateBookingHandler(
	bookings store.BookingStore,
	trainers store.TrainerStore,
	registry realtime.Registry,
) *CreateBookingHandler {
	return &CreateBookingHandler{
		bookings,
		trainers,
		registry,
	}
}

func (h *CreateBookingHandler) Handle(ctx context.Context, req CreateBookingRequest) (domain.Booking, error) {
	identity, ok := auth.IdentityFromContext(ctx)
	if !ok {
		return domain.Booking{}, ierr.New(ierr.ErrorCodeUnauthenticated, errors.New("not authenticated"))
	}

	if !req.SessionMode.Valid() {
		return domain.Booking{}, ierr.New(ierr.ErrorCodeInvalidArgument, errors.New("invalid session mode"))
	}

	if req.ScheduledAt.IsZero() {
		return domain.Booking{}, ierr.New(ierr.ErrorCodeInvalidArgument, errors.New("scheduledAt is required"))
	}

	trainer, err := h.trainers.GetById(ctx, req.TrainerId)
	if errors.Is(err, store.ErrNotFound) {
		return domain.Booking{}, ierr.New(ierr.ErrorCodeNotFound, errors.New("trainer not found"))
	}
	if err != nil {
		return domain.Booking{}, err
	}

	booking := domain.Booking{
		Id:          uuid.NewString(),
		UserId:      identity.UserId,
		TrainerId:   trainer.Id,
		ServiceType: req.ServiceType,
		ScheduledAt: req.ScheduledAt,
		Duration:    defaultSessionDuration,
		Status:      domain.BookingStatusPending,
		SessionMode: req.SessionMode,
		Notes:       req.Notes,
		CreateTime:  time.Now(),
	}

	err = h.bookings.Create(ctx, booking)
	if err != nil {
		return domain.Booking{}, err
	}

	notification := realtime.NewNotification("", "info", "New booking request",
		fmt.Sprintf("New %s session requested for %s", booking.SessionMode, booking.ScheduledAt.Format(time.RFC3339)),
		map[string]any{"bookingId": booking.Id})

	h.registry.SendToUser(trainer.UserId, notification.Envelope())

	return booking, nil
}

type ListBookingsResponse struct {
	Bookings []domain.Booking `json:"bookings"`
}

type ListBookingsHandler struct {
	bookings store.BookingStore
}

func NewListBookingsHandler(bookings store.BookingStore) *ListBookingsHandler {
	return &ListBookingsHandler{
		bookings,
	}
}

func (h *ListBookingsHandler) Handle(ctx context.Context) (ListBookingsResponse, error) {
	identity, ok := auth.IdentityFromContext(ctx)
	if !ok {
		return ListBookingsResponse{}, ierr.New(ierr.ErrorCodeUnauthenticated, errors.New("not authenticated"))
	}

	bookings, err := h.bookings.ListByUser(ctx, identity.UserId)
	if err != nil {
		return ListBookingsResponse{}, err
	}

	if bookings == nil {
		bookings = []domain.Booking{}
	}

	return ListBookingsResponse{
		Bookings: bookings,
	}, nil
}
