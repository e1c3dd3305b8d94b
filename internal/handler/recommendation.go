package handler

import (
	"context"
	"errors"

	"github.com/calmora/sessionhub/internal/auth"
	"github.com/calmora/sessionhub/internal/domain"
	"github.com/calmora/sessionhub/internal/ierr"
	"github.com/calmora/sessionhub/internal/store"
)

type Recommendation struct {
	Type   string         `json:"type"`
	Item   domain.Trainer `json:"item"`
	Score  float64        `json:"score"`
	Reason string         `json:"reason"`
}

type RecommendationsResponse struct {
	Recommendations []Recommendation `json:"recommendations"`
}

// RecommendationsHandler returns the top trainers with a static score.
// TODO: rank by the caller's feedback history once enough of it exists.
type RecommendationsHandler struct {
	trainers store.TrainerStore
}

func NewRecommendationsHandler(trainers store.TrainerStore) *RecommendationsHandler {
	return &RecommendationsHandler{
		trainers,
	}
}

func (h *RecommendationsHandler) Handle(ctx context.Context) (RecommendationsResponse, error) {
	_, ok := auth.IdentityFromContext(ctx)
	if !ok {
		return RecommendationsResponse{}, ierr.New(ierr.ErrorCodeUnauthenticated, errors.New("not authenticated"))
	}

	trainers, _, err := h.trainers.List(ctx, 0, 3)
	if err != nil {
		return RecommendationsResponse{}, err
	}

	recommendations := make([]Recommendation, 0, len(trainers))
	for _, trainer := range trainers {
		recommendations = append(recommendations, Recommendation{
			Type:   "trainer",
			Item:   trainer,
			Score:  0.95,
			Reason: "Matches your previous session preferences",
		})
	}

	return RecommendationsResponse{
		Recommendations: recommendations,
	}, nil
}
