package handler

import (
	"context"
	"errors"
	"time"

	"github.com/calmora/sessionhub/internal/auth"
	"github.com/calmora/sessionhub/internal/domain"
	"github.com/calmora/sessionhub/internal/ierr"
	"github.com/calmora/sessionhub/internal/store"
	"github.com/google/uuid"
)

type SubmitFeedbackRequest struct {
	BookingId     string `json:"bookingId"`
	Rating        int    `json:"rating"`
	Review        string `json:"review"`
	IsRecommended bool   `json:"isRecommended"`
}

type SubmitFeedbackResponse struct {
	FeedbackId string `json:"feedbackId"`
}

type SubmitFeedbackHandler struct {
	bookings store.BookingStore
	feedback store.FeedbackStore
	trainers store.TrainerStore
}

func NewSubmitFeedbackHandler(
	bookings store.BookingStore,
	feedback store.FeedbackStore,
	trainers store.TrainerStore,
) *SubmitFeedbackHandler {
	return &SubmitFeedbackHandler{
		bookings,
		feedback,
		trainers,
	}
}

func (h *SubmitFeedbackHandler) Handle(ctx context.Context, req SubmitFeedbackRequest) (SubmitFeedbackResponse, error) {
	identity, ok := auth.IdentityFromContext(ctx)
	if !ok {
		return SubmitFeedbackResponse{}, ierr.New(ierr.ErrorCodeUnauthenticated, errors.New("not authenticated"))
	}

	if req.Rating < 1 || req.Rating > 5 {
		return SubmitFeedbackResponse{}, ierr.New(ierr.ErrorCodeInvalidArgument, errors.New("rating must be between 1 and 5"))
	}

	booking, err := h.bookings.GetById(ctx, req.BookingId)
	if errors.Is(err, store.ErrNotFound) || (err == nil && booking.UserId != identity.UserId) {
		return SubmitFeedbackResponse{}, ierr.New(ierr.ErrorCodePermissionDenied, errors.New("cannot submit feedback for this booking"))
	}
	if err != nil {
		return SubmitFeedbackResponse{}, err
	}

	_, err = h.feedback.GetByBooking(ctx, req.BookingId)
	if err == nil {
		return SubmitFeedbackResponse{}, ierr.New(ierr.ErrorCodeAlreadyExists, errors.New("feedback already submitted for this booking"))
	}
	if !errors.Is(err, store.ErrNotFound) {
		return SubmitFeedbackResponse{}, err
	}

	feedback := domain.Feedback{
		Id:            uuid.NewString(),
		BookingId:     req.BookingId,
		UserId:        identity.UserId,
		Rating:        req.Rating,
		Review:        req.Review,
		IsRecommended: req.IsRecommended,
		CreateTime:    time.Now(),
	}

	err = h.feedback.Create(ctx, feedback)
	if err != nil {
		return SubmitFeedbackResponse{}, err
	}

	err = h.updateTrainerRating(ctx, booking.TrainerId, req.Rating)
	if err != nil {
		return SubmitFeedbackResponse{}, err
	}

	return SubmitFeedbackResponse{
		FeedbackId: feedback.Id,
	}, nil
}

func (h *SubmitFeedbackHandler) updateTrainerRating(ctx context.Context, trainerId string, rating int) error {
	trainer, err := h.trainers.GetById(ctx, trainerId)
	if errors.Is(err, store.ErrNotFound) {
		// Trainer deleted since booking; the feedback itself still stands.
		return nil
	}
	if err != nil {
		return err
	}

	reviewCount := trainer.ReviewCount + 1
	average := (trainer.Rating*float64(trainer.ReviewCount) + float64(rating)) / float64(reviewCount)

	return h.trainers.UpdateRating(ctx, trainerId, average, reviewCount)
}
