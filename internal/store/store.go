package store

import (
	"context"
	"errors"

	"github.com/calmora/sessionhub/internal/domain"
)

// ErrNotFound is returned by every store when the requested record does not
// exist. Engines wrap their driver's sentinel into this one.
var ErrNotFound = errors.New("record not found")

type UserStore interface {
	Create(ctx context.Context, user domain.User) error
	GetById(ctx context.Context, id string) (domain.User, error)
	GetByEmail(ctx context.Context, email string) (domain.User, error)
}

type TrainerStore interface {
	Create(ctx context.Context, trainer domain.Trainer) error
	GetById(ctx context.Context, id string) (domain.Trainer, error)
	List(ctx context.Context, skip int, limit int) ([]domain.Trainer, int64, error)
	UpdateRating(ctx context.Context, trainerId string, rating float64, reviewCount int) error
}

type BookingStore interface {
	Create(ctx context.Context, booking domain.Booking) error
	GetById(ctx context.Context, id string) (domain.Booking, error)
	ListByUser(ctx context.Context, userId string) ([]domain.Booking, error)
	CountByUser(ctx context.Context, userId string) (int64, error)
	UpdateStatus(ctx context.Context, id string, status domain.BookingStatus) error
}

type FeedbackStore interface {
	Create(ctx context.Context, feedback domain.Feedback) error
	GetByBooking(ctx context.Context, bookingId string) (domain.Feedback, error)
}

// Engine groups the per-aggregate stores behind one setup hook.
type Engine interface {
	Setup(ctx context.Context) error
	Users() UserStore
	Trainers() TrainerStore
	Bookings() BookingStore
	Feedback() FeedbackStore
}
