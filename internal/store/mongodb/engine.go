package mongodb

import (
	"context"
	"errors"

	"github.com/calmora/sessionhub/internal/domain"
	"github.com/calmora/sessionhub/internal/store"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

type Engine struct {
	users    *userStore
	trainers *trainerStore
	bookings *bookingStore
	feedback *feedbackStore
}

func NewEngine(client *mongo.Client) *Engine {
	database := client.Database("sessionhub")

	return &Engine{
		users:    &userStore{collection: database.Collection("users")},
		trainers: &trainerStore{collection: database.Collection("trainers")},
		bookings: &bookingStore{collection: database.Collection("bookings")},
		feedback: &feedbackStore{collection: database.Collection("feedback")},
	}
}

func (e *Engine) Setup(ctx context.Context) error {
	emailIndexModel := mongo.IndexModel{
		Keys:    bson.D{{Key: "email", Value: 1}},
		Options: options.Index().SetUnique(true),
	}

	_, err := e.users.collection.Indexes().CreateOne(ctx, emailIndexModel)
	if err != nil {
		return err
	}

	bookingUserIndexModel := mongo.IndexModel{
		Keys: bson.D{
			{Key: "userId", Value: 1},
			{Key: "createTime", Value: -1},
		},
	}

	_, err = e.bookings.collection.Indexes().CreateOne(ctx, bookingUserIndexModel)
	if err != nil {
		return err
	}

	feedbackBookingIndexModel := mongo.IndexModel{
		Keys:    bson.D{{Key: "bookingId", Value: 1}},
		Options: options.Index().SetUnique(true),
	}

	_, err = e.feedback.collection.Indexes().CreateOne(ctx, feedbackBookingIndexModel)

	return err
}

func (e *Engine) Users() store.UserStore        { return e.users }
func (e *Engine) Trainers() store.TrainerStore  { return e.trainers }
func (e *Engine) Bookings() store.BookingStore  { return e.bookings }
func (e *Engine) Feedback() store.FeedbackStore { return e.feedback }

func mapError(err error) error {
	if errors.Is(err, mongo.ErrNoDocuments) {
		return store.ErrNotFound
	}

	return err
}

type userStore struct {
	collection *mongo.Collection
}

func (s *userStore) Create(ctx context.Context, user domain.User) error {
	_, err := s.collection.InsertOne(ctx, user)

	return err
}

func (s *userStore) GetById(ctx context.Context, id string) (domain.User, error) {
	var user domain.User
	err := s.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&user)

	return user, mapError(err)
}

func (s *userStore) GetByEmail(ctx context.Context, email string) (domain.User, error) {
	var user domain.User
	err := s.collection.FindOne(ctx, bson.M{"email": email}).Decode(&user)

	return user, mapError(err)
}

type trainerStore struct {
	collection *mongo.Collection
}

func (s *trainerStore) Create(ctx context.Context, trainer domain.Trainer) error {
	_, err := s.collection.InsertOne(ctx, trainer)

	return err
}

func (s *trainerStore) GetById(ctx context.Context, id string) (domain.Trainer, error) {
	var trainer domain.Trainer
	err := s.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&trainer)

	return trainer, mapError(err)
}

func (s *trainerStore) List(ctx context.Context, skip int, limit int) ([]domain.Trainer, int64, error) {
	total, err := s.collection.CountDocuments(ctx, bson.M{})
	if err != nil {
		return nil, 0, err
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "createTime", Value: 1}}).
		SetSkip(int64(skip)).
		SetLimit(int64(limit))

	cursor, err := s.collection.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, 0, err
	}

	var trainers []domain.Trainer
	err = cursor.All(ctx, &trainers)
	if err != nil {
		return nil, 0, err
	}

	return trainers, total, nil
}

func (s *trainerStore) UpdateRating(ctx context.Context, trainerId string, rating float64, reviewCount int) error {
	result, err := s.collection.UpdateOne(ctx,
		bson.M{"_id": trainerId},
		bson.M{"$set": bson.M{
			"rating":      rating,
			"reviewCount": reviewCount,
		}})
	if err != nil {
		return err
	}

	if result.MatchedCount == 0 {
		return store.ErrNotFound
	}

	return nil
}

type bookingStore struct {
	collection *mongo.Collection
}

func (s *bookingStore) Create(ctx context.Context, booking domain.Booking) error {
	_, err := s.collection.InsertOne(ctx, booking)

	return err
}

func (s *bookingStore) GetById(ctx context.Context, id string) (domain.Booking, error) {
	var booking domain.Booking
	err := s.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&booking)

	return booking, mapError(err)
}

func (s *bookingStore) ListByUser(ctx context.Context, userId string) ([]domain.Booking, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "createTime", Value: -1}})

	cursor, err := s.collection.Find(ctx, bson.M{"userId": userId}, opts)
	if err != nil {
		return nil, err
	}

	var bookings []domain.Booking
	err = cursor.All(ctx, &bookings)
	if err != nil {
		return nil, err
	}

	return bookings, nil
}

func (s *bookingStore) CountByUser(ctx context.Context, userId string) (int64, error) {
	return s.collection.CountDocuments(ctx, bson.M{"userId": userId})
}

func (s *bookingStore) UpdateStatus(ctx context.Context, id string, status domain.BookingStatus) error {
	result, err := s.collection.UpdateOne(ctx,
		bson.M{"_id": id},
		bson.M{"$set": bson.M{"status": status}})
	if err != nil {
		return err
	}

	if result.MatchedCount == 0 {
		return store.ErrNotFound
	}

	return nil
}

type feedbackStore struct {
	collection *mongo.Collection
}

func (s *feedbackStore) Create(ctx context.Context, feedback domain.Feedback) error {
	_, err := s.collection.InsertOne(ctx, feedback)

	return err
}

func (s *feedbackStore) GetByBooking(ctx context.Context, bookingId string) (domain.Feedback, error) {
	var feedback domain.Feedback
	err := s.collection.FindOne(ctx, bson.M{"bookingId": bookingId}).Decode(&feedback)

	return feedback, mapError(err)
}
