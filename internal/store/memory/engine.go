package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/calmora/sessionhub/internal/domain"
	"github.com/calmora/sessionhub/internal/store"
)

// Engine keeps every aggregate in process memory. It backs tests and local
// runs without a MongoDB instance.
type Engine struct {
	mu sync.RWMutex

	users    map[string]domain.User
	trainers map[string]domain.Trainer
	bookings map[string]domain.Booking
	feedback map[string]domain.Feedback
}

func NewEngine() *Engine {
	return &Engine{
		users:    make(map[string]domain.User),
		trainers: make(map[string]domain.Trainer),
		bookings: make(map[string]domain.Booking),
		feedback: make(map[string]domain.Feedback),
	}
}

func (e *Engine) Setup(ctx context.Context) error {
	return nil
}

func (e *Engine) Users() store.UserStore        { return (*userStore)(e) }
func (e *Engine) Trainers() store.TrainerStore  { return (*trainerStore)(e) }
func (e *Engine) Bookings() store.BookingStore  { return (*bookingStore)(e) }
func (e *Engine) Feedback() store.FeedbackStore { return (*feedbackStore)(e) }

type userStore Engine

func (s *userStore) Create(ctx context.Context, user domain.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.users[user.Id] = user

	return nil
}

func (s *userStore) GetById(ctx context.Context, id string) (domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	user, ok := s.users[id]
	if !ok {
		return domain.User{}, store.ErrNotFound
	}

	return user, nil
}

func (s *userStore) GetByEmail(ctx context.Context, email string) (domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, user := range s.users {
		if user.Email == email {
			return user, nil
		}
	}

	return domain.User{}, store.ErrNotFound
}

type trainerStore Engine

func (s *trainerStore) Create(ctx context.Context, trainer domain.Trainer) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.trainers[trainer.Id] = trainer

	return nil
}

func (s *trainerStore) GetById(ctx context.Context, id string) (domain.Trainer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	trainer, ok := s.trainers[id]
	if !ok {
		return domain.Trainer{}, store.ErrNotFound
	}

	return trainer, nil
}

func (s *trainerStore) List(ctx context.Context, skip int, limit int) ([]domain.Trainer, int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	trainers := make([]domain.Trainer, 0, len(s.trainers))
	for _, trainer := range s.trainers {
		trainers = append(trainers, trainer)
	}

	sort.Slice(trainers, func(i, j int) bool {
		return trainers[i].CreateTime.Before(trainers[j].CreateTime)
	})

	total := int64(len(trainers))

	if skip >= len(trainers) {
		return []domain.Trainer{}, total, nil
	}

	trainers = trainers[skip:]
	if limit > 0 && limit < len(trainers) {
		trainers = trainers[:limit]
	}

	return trainers, total, nil
}

func (s *trainerStore) UpdateRating(ctx context.Context, trainerId string, rating float64, reviewCount int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	trainer, ok := s.trainers[trainerId]
	if !ok {
		return store.ErrNotFound
	}

	trainer.Rating = rating
	trainer.ReviewCount = reviewCount
	s.trainers[trainerId] = trainer

	return nil
}

type bookingStore Engine

func (s *bookingStore) Create(ctx context.Context, booking domain.Booking) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.bookings[booking.Id] = booking

	return nil
}

func (s *bookingStore) GetById(ctx context.Context, id string) (domain.Booking, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	booking, ok := s.bookings[id]
	if !ok {
		return domain.Booking{}, store.ErrNotFound
	}

	return booking, nil
}

func (s *bookingStore) ListByUser(ctx context.Context, userId string) ([]domain.Booking, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var bookings []domain.Booking
	for _, booking := range s.bookings {
		if booking.UserId == userId {
			bookings = append(bookings, booking)
		}
	}

	sort.Slice(bookings, func(i, j int) bool {
		return bookings[i].CreateTime.After(bookings[j].CreateTime)
	})

	return bookings, nil
}

func (s *bookingStore) CountByUser(ctx context.Context, userId string) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var count int64
	for _, booking := range s.bookings {
		if booking.UserId == userId {
			count++
		}
	}

	return count, nil
}

func (s *bookingStore) UpdateStatus(ctx context.Context, id string, status domain.BookingStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	booking, ok := s.bookings[id]
	if !ok {
		return store.ErrNotFound
	}

	booking.Status = status
	s.bookings[id] = booking

	return nil
}

type feedbackStore Engine

func (s *feedbackStore) Create(ctx context.Context, feedback domain.Feedback) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.feedback[feedback.Id] = feedback

	return nil
}

func (s *feedbackStore) GetByBooking(ctx context.Context, bookingId string) (domain.Feedback, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, feedback := range s.feedback {
		if feedback.BookingId == bookingId {
			return feedback, nil
		}
	}

	return domain.Feedback{}, store.ErrNotFound
}
