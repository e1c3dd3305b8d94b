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

const (
	defaultTrainerPageSize = 10
	maxTrainerPageSize     = 100
)

type OnboardTrainerRequest struct {
	FirstName       string   `json:"firstName"`
	LastName        string   `json:"lastName"`
	Phone           string   `json:"phone"`
	Specializations []string `json:"specializations"`
	Certifications  []string `json:"certifications"`
	HourlyRate      float64  `json:"hourlyRate"`
	Bio             string   `json:"bio"`
	Experience      int      `json:"experience"`
}

type OnboardTrainerResponse struct {
	TrainerId string `json:"trainerId"`
}

type OnboardTrainerHandler struct {
	trainers store.TrainerStore
}

func NewOnboardTrainerHandler(trainers store.TrainerStore) *OnboardTrainerHandler {
	return &OnboardTrainerHandler{
		trainers,
	}
}

func (h *OnboardTrainerHandler) Handle(ctx context.Context, req OnboardTrainerRequest) (OnboardTrainerResponse, error) {
	identity, ok := auth.IdentityFromContext(ctx)
	if !ok {
		return OnboardTrainerResponse{}, ierr.New(ierr.ErrorCodeUnauthenticated, errors.New("not authenticated"))
	}

	if identity.Role != domain.RoleTrainer {
		return OnboardTrainerResponse{}, ierr.New(ierr.ErrorCodePermissionDenied, errors.New("only trainers can onboard"))
	}

	if req.FirstName == "" || req.LastName == "" {
		return OnboardTrainerResponse{}, ierr.New(ierr.ErrorCodeInvalidArgument, errors.New("first and last name are required"))
	}

	if req.HourlyRate <= 0 {
		return OnboardTrainerResponse{}, ierr.New(ierr.ErrorCodeInvalidArgument, errors.New("hourly rate must be positive"))
	}

	trainer := domain.Trainer{
		Id:              uuid.NewString(),
		UserId:          identity.UserId,
		FirstName:       req.FirstName,
		LastName:        req.LastName,
		Phone:           req.Phone,
		Specializations: req.Specializations,
		Certifications:  req.Certifications,
		HourlyRate:      req.HourlyRate,
		Bio:             req.Bio,
		Experience:      req.Experience,
		CreateTime:      time.Now(),
	}

	err := h.trainers.Create(ctx, trainer)
	if err != nil {
		return OnboardTrainerResponse{}, err
	}

	return OnboardTrainerResponse{
		TrainerId: trainer.Id,
	}, nil
}

type ListTrainersRequest struct {
	Skip  int
	Limit int
}

type ListTrainersResponse struct {
	Trainers []domain.Trainer `json:"trainers"`
	Total    int64            `json:"total"`
}

type ListTrainersHandler struct {
	trainers store.TrainerStore
}

func NewListTrainersHandler(trainers store.TrainerStore) *ListTrainersHandler {
	return &ListTrainersHandler{
		trainers,
	}
}

func (h *ListTrainersHandler) Handle(ctx context.Context, req ListTrainersRequest) (ListTrainersResponse, error) {
	if req.Skip < 0 {
		req.Skip = 0
	}
	if req.Limit <= 0 {
		req.Limit = defaultTrainerPageSize
	}
	if req.Limit > maxTrainerPageSize {
		req.Limit = maxTrainerPageSize
	}

	trainers, total, err := h.trainers.List(ctx, req.Skip, req.Limit)
	if err != nil {
		return ListTrainersResponse{}, err
	}

	if trainers == nil {
		trainers = []domain.Trainer{}
	}

	return ListTrainersResponse{
		Trainers: trainers,
		Total:    total,
	}, nil
}

type GetTrainerHandler struct {
	trainers store.TrainerStore
}

func NewGetTrainerHandler(trainers store.TrainerStore) *GetTrainerHandler {
	return &GetTrainerHandler{
		trainers,
	}
}

func (h *GetTrainerHandler) Handle(ctx context.Context, trainerId string) (domain.Trainer, error) {
	trainer, err := h.trainers.GetById(ctx, trainerId)
	if errors.Is(err, store.ErrNotFound) {
		return domain.Trainer{}, ierr.New(ierr.ErrorCodeNotFound, errors.New("trainer not found"))
	}

	return trainer, err
}
