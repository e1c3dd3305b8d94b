package server

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/calmora/sessionhub/internal/auth"
	"github.com/calmora/sessionhub/internal/domain"
	"github.com/calmora/sessionhub/internal/handler"
	"github.com/calmora/sessionhub/internal/realtime"
	"github.com/calmora/sessionhub/internal/store/memory"
	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type restTestStack struct {
	server   *httptest.Server
	registry realtime.Registry
}

func newRESTTestStack(t *testing.T) *restTestStack {
	t.Helper()

	logger := zap.NewNop()
	engine := memory.NewEngine()
	registry := realtime.NewInMemoryRegistry(logger)
	authenticator := auth.NewAuthenticator("test-secret", []string{"test-api-key"}, 30*time.Minute)
	pushHandler := handler.NewPushHandler(registry)

	handlers := Handlers{
		Register:        handler.NewRegisterHandler(engine.Users(), authenticator),
		Login:           handler.NewLoginHandler(engine.Users(), authenticator),
		Me:              handler.NewMeHandler(engine.Users()),
		OnboardTrainer:  handler.NewOnboardTrainerHandler(engine.Trainers()),
		ListTrainers:    handler.NewListTrainersHandler(engine.Trainers()),
		GetTrainer:      handler.NewGetTrainerHandler(engine.Trainers()),
		CreateBooking:   handler.NewCreateBookingHandler(engine.Bookings(), engine.Trainers(), registry),
		ListBookings:    handler.NewListBookingsHandler(engine.Bookings()),
		SubmitFeedback:  handler.NewSubmitFeedbackHandler(engine.Bookings(), engine.Feedback(), engine.Trainers()),
		Emergency:       handler.NewEmergencyHandler(engine.Bookings(), engine.Trainers(), registry),
		Loyalty:         handler.NewLoyaltyHandler(engine.Bookings()),
		Recommendations: handler.NewRecommendationsHandler(engine.Trainers()),
		Push:            pushHandler,
	}

	restServer := NewRESTServer(logger, authenticator, handlers)

	router := mux.NewRouter()
	restServer.Register(router)

	server := httptest.NewServer(router)
	t.Cleanup(server.Close)

	return &restTestStack{
		server:   server,
		registry: registry,
	}
}

func (s *restTestStack) do(t *testing.T, method string, path string, token string, body any, out any) *http.Response {
	t.Helper()

	var reqBody *bytes.Buffer
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reqBody = bytes.NewBuffer(raw)
	} else {
		reqBody = bytes.NewBuffer(nil)
	}

	req, err := http.NewRequest(method, s.server.URL+path, reqBody)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	if out != nil {
		err = json.NewDecoder(resp.Body).Decode(out)
		require.NoError(t, err)
	}

	return resp
}

func (s *restTestStack) register(t *testing.T, email string, role domain.Role) handler.AuthResponse {
	t.Helper()

	var response handler.AuthResponse
	resp := s.do(t, "POST", "/api/v1/auth/register", "", handler.RegisterRequest{
		Email:    email,
		Password: "s3cret-password",
		Role:     role,
	}, &response)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	return response
}

func (s *restTestStack) onboardTrainer(t *testing.T, token string) string {
	t.Helper()

	var response handler.OnboardTrainerResponse
	resp := s.do(t, "POST", "/api/v1/trainers/onboard", token, handler.OnboardTrainerRequest{
		FirstName:       "Ada",
		LastName:        "Coach",
		Phone:           "555-0100",
		Specializations: []string{"mindfulness"},
		HourlyRate:      80,
		Experience:      5,
	}, &response)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	return response.TrainerId
}

// listen registers a live connection bound to userId and returns its
// channel, so tests can observe notifications pushed by the API.
func (s *restTestStack) listen(t *testing.T, userId string) *realtime.Connection {
	t.Helper()

	connection := realtime.NewConnection()
	s.registry.Connect(connection)
	require.NoError(t, s.registry.Bind(connection.Id, userId))

	return connection
}

func awaitEnvelope(t *testing.T, connection *realtime.Connection) realtime.Envelope {
	t.Helper()

	select {
	case envelope := <-connection.Send:
		return envelope
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for envelope")
		return realtime.Envelope{}
	}
}

func TestRESTServer_Health(t *testing.T) {
	stack := newRESTTestStack(t)

	var response map[string]any
	resp := stack.do(t, "GET", "/health", "", nil, &response)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "healthy", response["status"])
}

func TestRESTServer_Auth(t *testing.T) {
	stack := newRESTTestStack(t)

	t.Run("register", func(t *testing.T) {
		response := stack.register(t, "user@example.com", "")

		assert.NotEmpty(t, response.Token)
		assert.Equal(t, "bearer", response.TokenType)
		assert.Equal(t, domain.RoleUser, response.User.Role)
		assert.NotEmpty(t, response.User.Id)
	})

	t.Run("duplicate email", func(t *testing.T) {
		resp := stack.do(t, "POST", "/api/v1/auth/register", "", handler.RegisterRequest{
			Email:    "user@example.com",
			Password: "s3cret-password",
		}, nil)

		assert.Equal(t, http.StatusConflict, resp.StatusCode)
	})

	t.Run("invalid email", func(t *testing.T) {
		resp := stack.do(t, "POST", "/api/v1/auth/register", "", handler.RegisterRequest{
			Email:    "not-an-email",
			Password: "s3cret-password",
		}, nil)

		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})

	t.Run("short password", func(t *testing.T) {
		resp := stack.do(t, "POST", "/api/v1/auth/register", "", handler.RegisterRequest{
			Email:    "short@example.com",
			Password: "short",
		}, nil)

		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})

	t.Run("login", func(t *testing.T) {
		var response handler.AuthResponse
		resp := stack.do(t, "POST", "/api/v1/auth/login", "", handler.LoginRequest{
			Email:    "user@example.com",
			Password: "s3cret-password",
		}, &response)

		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.NotEmpty(t, response.Token)
	})

	t.Run("login with wrong password", func(t *testing.T) {
		resp := stack.do(t, "POST", "/api/v1/auth/login", "", handler.LoginRequest{
			Email:    "user@example.com",
			Password: "wrong-password",
		}, nil)

		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	})

	t.Run("me", func(t *testing.T) {
		registered := stack.register(t, "me@example.com", "")

		var user domain.User
		resp := stack.do(t, "GET", "/api/v1/auth/me", registered.Token, nil, &user)

		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, "me@example.com", user.Email)
	})

	t.Run("me without token", func(t *testing.T) {
		resp := stack.do(t, "GET", "/api/v1/auth/me", "", nil, nil)

		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	})
}

func TestRESTServer_Trainers(t *testing.T) {
	stack := newRESTTestStack(t)

	trainerAuth := stack.register(t, "trainer@example.com", domain.RoleTrainer)
	trainerId := stack.onboardTrainer(t, trainerAuth.Token)

	t.Run("onboard requires trainer role", func(t *testing.T) {
		userAuth := stack.register(t, "plain@example.com", "")

		resp := stack.do(t, "POST", "/api/v1/trainers/onboard", userAuth.Token, handler.OnboardTrainerRequest{
			FirstName:  "Not",
			LastName:   "Allowed",
			HourlyRate: 50,
		}, nil)

		assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	})

	t.Run("list", func(t *testing.T) {
		var response handler.ListTrainersResponse
		resp := stack.do(t, "GET", "/api/v1/trainers/list", "", nil, &response)

		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, int64(1), response.Total)
		require.Len(t, response.Trainers, 1)
		assert.Equal(t, trainerId, response.Trainers[0].Id)
	})

	t.Run("get", func(t *testing.T) {
		var trainer domain.Trainer
		resp := stack.do(t, "GET", "/api/v1/trainers/"+trainerId, "", nil, &trainer)

		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, "Ada", trainer.FirstName)
	})

	t.Run("get missing", func(t *testing.T) {
		resp := stack.do(t, "GET", "/api/v1/trainers/missing-id", "", nil, nil)

		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	})
}

func TestRESTServer_Bookings(t *testing.T) {
	stack := newRESTTestStack(t)

	trainerAuth := stack.register(t, "trainer@example.com", domain.RoleTrainer)
	trainerId := stack.onboardTrainer(t, trainerAuth.Token)
	userAuth := stack.register(t, "client@example.com", "")

	trainerConnection := stack.listen(t, trainerAuth.User.Id)

	var booking domain.Booking
	resp := stack.do(t, "POST", "/api/v1/bookings/create", userAuth.Token, handler.CreateBookingRequest{
		TrainerId:   trainerId,
		ServiceType: "life-coaching",
		ScheduledAt: time.Now().Add(24 * time.Hour),
		SessionMode: domain.SessionModeVideo,
	}, &booking)

	require.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.Equal(t, domain.BookingStatusPending, booking.Status)
	assert.Equal(t, 50, booking.Duration)
	assert.Equal(t, userAuth.User.Id, booking.UserId)

	t.Run("trainer is notified", func(t *testing.T) {
		envelope := awaitEnvelope(t, trainerConnection)

		assert.Equal(t, realtime.EnvelopeTypeNotification, envelope.Type)
		notification, ok := envelope.Data.(realtime.Notification)
		require.True(t, ok)
		assert.Equal(t, "New booking request", notification.Title)
		assert.Equal(t, booking.Id, notification.Metadata["bookingId"])
	})

	t.Run("unknown trainer", func(t *testing.T) {
		resp := stack.do(t, "POST", "/api/v1/bookings/create", userAuth.Token, handler.CreateBookingRequest{
			TrainerId:   "missing-trainer",
			ScheduledAt: time.Now().Add(24 * time.Hour),
			SessionMode: domain.SessionModeChat,
		}, nil)

		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	})

	t.Run("invalid session mode", func(t *testing.T) {
		resp := stack.do(t, "POST", "/api/v1/bookings/create", userAuth.Token, handler.CreateBookingRequest{
			TrainerId:   trainerId,
			ScheduledAt: time.Now().Add(24 * time.Hour),
			SessionMode: "hologram",
		}, nil)

		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})

	t.Run("list", func(t *testing.T) {
		var response handler.ListBookingsResponse
		resp := stack.do(t, "GET", "/api/v1/bookings/list", userAuth.Token, nil, &response)

		assert.Equal(t, http.StatusOK, resp.StatusCode)
		require.Len(t, response.Bookings, 1)
		assert.Equal(t, booking.Id, response.Bookings[0].Id)
	})

	t.Run("loyalty points accrue per booking", func(t *testing.T) {
		var response handler.LoyaltyResponse
		resp := stack.do(t, "GET", "/api/v1/loyalty/points", userAuth.Token, nil, &response)

		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, int64(10), response.Points)
		assert.Equal(t, "bronze", response.Tier)
		assert.Contains(t, response.BenefitsAvailable, "priority_booking")
	})
}

func TestRESTServer_Feedback(t *testing.T) {
	stack := newRESTTestStack(t)

	trainerAuth := stack.register(t, "trainer@example.com", domain.RoleTrainer)
	trainerId := stack.onboardTrainer(t, trainerAuth.Token)
	userAuth := stack.register(t, "client@example.com", "")

	var booking domain.Booking
	resp := stack.do(t, "POST", "/api/v1/bookings/create", userAuth.Token, handler.CreateBookingRequest{
		TrainerId:   trainerId,
		ScheduledAt: time.Now().Add(time.Hour),
		SessionMode: domain.SessionModeAudio,
	}, &booking)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	t.Run("owner submits feedback", func(t *testing.T) {
		var response handler.SubmitFeedbackResponse
		resp := stack.do(t, "POST", "/api/v1/feedback/submit", userAuth.Token, handler.SubmitFeedbackRequest{
			BookingId:     booking.Id,
			Rating:        5,
			Review:        "very helpful",
			IsRecommended: true,
		}, &response)

		assert.Equal(t, http.StatusCreated, resp.StatusCode)
		assert.NotEmpty(t, response.FeedbackId)

		var trainer domain.Trainer
		stack.do(t, "GET", "/api/v1/trainers/"+trainerId, "", nil, &trainer)
		assert.Equal(t, float64(5), trainer.Rating)
		assert.Equal(t, 1, trainer.ReviewCount)
	})

	t.Run("duplicate feedback", func(t *testing.T) {
		resp := stack.do(t, "POST", "/api/v1/feedback/submit", userAuth.Token, handler.SubmitFeedbackRequest{
			BookingId: booking.Id,
			Rating:    4,
		}, nil)

		assert.Equal(t, http.StatusConflict, resp.StatusCode)
	})

	t.Run("non-owner cannot submit", func(t *testing.T) {
		otherAuth := stack.register(t, "other@example.com", "")

		resp := stack.do(t, "POST", "/api/v1/feedback/submit", otherAuth.Token, handler.SubmitFeedbackRequest{
			BookingId: booking.Id,
			Rating:    1,
		}, nil)

		assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	})

	t.Run("invalid rating", func(t *testing.T) {
		resp := stack.do(t, "POST", "/api/v1/feedback/submit", userAuth.Token, handler.SubmitFeedbackRequest{
			BookingId: booking.Id,
			Rating:    6,
		}, nil)

		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})
}

func TestRESTServer_Emergency(t *testing.T) {
	stack := newRESTTestStack(t)

	trainerAuth := stack.register(t, "trainer@example.com", domain.RoleTrainer)
	trainerId := stack.onboardTrainer(t, trainerAuth.Token)
	userAuth := stack.register(t, "client@example.com", "")

	var booking domain.Booking
	resp := stack.do(t, "POST", "/api/v1/bookings/create", userAuth.Token, handler.CreateBookingRequest{
		TrainerId:   trainerId,
		ScheduledAt: time.Now().Add(time.Hour),
		SessionMode: domain.SessionModeVideo,
	}, &booking)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	t.Run("reschedule", func(t *testing.T) {
		var response handler.EmergencyResponse
		resp := stack.do(t, "POST", "/api/v1/emergency/notify", userAuth.Token, handler.EmergencyRequest{
			BookingId:       booking.Id,
			Reason:          "trainer unavailable",
			PreferredAction: handler.EmergencyActionReschedule,
		}, &response)

		assert.Equal(t, http.StatusOK, resp.StatusCode)

		var bookings handler.ListBookingsResponse
		stack.do(t, "GET", "/api/v1/bookings/list", userAuth.Token, nil, &bookings)
		require.Len(t, bookings.Bookings, 1)
		assert.Equal(t, domain.BookingStatusRescheduled, bookings.Bookings[0].Status)
	})

	t.Run("switch excludes the current trainer", func(t *testing.T) {
		var response handler.EmergencyResponse
		resp := stack.do(t, "POST", "/api/v1/emergency/notify", userAuth.Token, handler.EmergencyRequest{
			BookingId:       booking.Id,
			Reason:          "schedule conflict",
			PreferredAction: handler.EmergencyActionSwitch,
		}, &response)

		assert.Equal(t, http.StatusOK, resp.StatusCode)
		for _, alternative := range response.AlternativeTrainers {
			assert.NotEqual(t, trainerId, alternative.Id)
		}
	})

	t.Run("non-owner is rejected", func(t *testing.T) {
		otherAuth := stack.register(t, "other@example.com", "")

		resp := stack.do(t, "POST", "/api/v1/emergency/notify", otherAuth.Token, handler.EmergencyRequest{
			BookingId:       booking.Id,
			PreferredAction: handler.EmergencyActionReschedule,
		}, nil)

		assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	})
}

func TestRESTServer_Recommendations(t *testing.T) {
	stack := newRESTTestStack(t)

	trainerAuth := stack.register(t, "trainer@example.com", domain.RoleTrainer)
	stack.onboardTrainer(t, trainerAuth.Token)
	userAuth := stack.register(t, "client@example.com", "")

	var response handler.RecommendationsResponse
	resp := stack.do(t, "GET", "/api/v1/ai/recommendations", userAuth.Token, nil, &response)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	require.Len(t, response.Recommendations, 1)
	assert.Equal(t, "trainer", response.Recommendations[0].Type)
	assert.InDelta(t, 0.95, response.Recommendations[0].Score, 0.001)
}

func TestRESTServer_Push(t *testing.T) {
	stack := newRESTTestStack(t)

	connection := stack.listen(t, "push-target")

	t.Run("valid api key", func(t *testing.T) {
		var notification realtime.Notification
		resp := stack.do(t, "POST", "/api/v1/notifications/push", "test-api-key", handler.PushRequest{
			Title:   "Reminder",
			Message: "session in 15 minutes",
			UserId:  "push-target",
		}, &notification)

		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, "Reminder", notification.Title)
		assert.Equal(t, "info", notification.Type)

		envelope := awaitEnvelope(t, connection)
		assert.Equal(t, realtime.EnvelopeTypeNotification, envelope.Type)
	})

	t.Run("invalid api key", func(t *testing.T) {
		resp := stack.do(t, "POST", "/api/v1/notifications/push", "invalid-api-key", handler.PushRequest{
			Message: "should not go through",
		}, nil)

		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	})
}
