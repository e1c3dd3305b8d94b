package handler

import (
	"context"
	"errors"

	"github.com/calmora/sessionhub/internal/auth"
	"github.com/calmora/sessionhub/internal/ierr"
	"github.com/calmora/sessionhub/internal/store"
)

const pointsPerSession = 10

type LoyaltyResponse struct {
	Points            int64    `json:"points"`
	Tier              string   `json:"tier"`
	BenefitsAvailable []string `json:"benefitsAvailable"`
}

// LoyaltyHandler derives points from the caller's booking history: ten
// points per session, tiers at fixed thresholds.
type LoyaltyHandler struct {
	bookings store.BookingStore
}

func NewLoyaltyHandler(bookings store.BookingStore) *LoyaltyHandler {
	return &LoyaltyHandler{
		bookings,
	}
}

func (h *LoyaltyHandler) Handle(ctx context.Context) (LoyaltyResponse, error) {
	identity, ok := auth.IdentityFromContext(ctx)
	if !ok {
		return LoyaltyResponse{}, ierr.New(ierr.ErrorCodeUnauthenticated, errors.New("not authenticated"))
	}

	count, err := h.bookings.CountByUser(ctx, identity.UserId)
	if err != nil {
		return LoyaltyResponse{}, err
	}

	points := count * pointsPerSession

	return LoyaltyResponse{
		Points:            points,
		Tier:              tierForPoints(points),
		BenefitsAvailable: []string{"priority_booking", "discount_10"},
	}, nil
}

func tierForPoints(points int64) string {
	switch {
	case points > 100:
		return "gold"
	case points > 50:
		return "silver"
	default:
		return "bronze"
	}
}
