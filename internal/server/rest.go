package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/calmora/sessionhub/internal/auth"
	"github.com/calmora/sessionhub/internal/handler"
	"github.com/calmora/sessionhub/internal/ierr"
	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

// Handlers groups the API operations the REST server exposes.
type Handlers struct {
	Register        *handler.RegisterHandler
	Login           *handler.LoginHandler
	Me              *handler.MeHandler
	OnboardTrainer  *handler.OnboardTrainerHandler
	ListTrainers    *handler.ListTrainersHandler
	GetTrainer      *handler.GetTrainerHandler
	CreateBooking   *handler.CreateBookingHandler
	ListBookings    *handler.ListBookingsHandler
	SubmitFeedback  *handler.SubmitFeedbackHandler
	Emergency       *handler.EmergencyHandler
	Loyalty         *handler.LoyaltyHandler
	Recommendations *handler.RecommendationsHandler
	Push            handler.PushHandlerInterface
}

type RESTServer struct {
	logger        *zap.Logger
	authenticator *auth.Authenticator
	handlers      Handlers
}

func NewRESTServer(
	logger *zap.Logger,
	authenticator *auth.Authenticator,
	handlers Handlers,
) *RESTServer {
	return &RESTServer{
		logger,
		authenticator,
		handlers,
	}
}

func (s *RESTServer) Register(router *mux.Router) {
	router.Use(corsMiddleware)

	router.HandleFunc("/health", s.handleHealth).Methods("GET")

	api := router.PathPrefix("/api/v1").Subrouter()

	api.HandleFunc("/auth/register", s.handleRegister).Methods("POST", "OPTIONS")
	api.HandleFunc("/auth/login", s.handleLogin).Methods("POST", "OPTIONS")
	api.HandleFunc("/auth/me", s.requireAuth(s.handleMe)).Methods("GET", "OPTIONS")

	api.HandleFunc("/trainers/onboard", s.requireAuth(s.handleOnboardTrainer)).Methods("POST", "OPTIONS")
	api.HandleFunc("/trainers/list", s.handleListTrainers).Methods("GET", "OPTIONS")
	api.HandleFunc("/trainers/{trainerId}", s.handleGetTrainer).Methods("GET", "OPTIONS")

	api.HandleFunc("/bookings/create", s.requireAuth(s.handleCreateBooking)).Methods("POST", "OPTIONS")
	api.HandleFunc("/bookings/list", s.requireAuth(s.handleListBookings)).Methods("GET", "OPTIONS")

	api.HandleFunc("/feedback/submit", s.requireAuth(s.handleSubmitFeedback)).Methods("POST", "OPTIONS")
	api.HandleFunc("/emergency/notify", s.requireAuth(s.handleEmergency)).Methods("POST", "OPTIONS")
	api.HandleFunc("/loyalty/points", s.requireAuth(s.handleLoyalty)).Methods("GET", "OPTIONS")
	api.HandleFunc("/ai/recommendations", s.requireAuth(s.handleRecommendations)).Methods("GET", "OPTIONS")

	api.HandleFunc("/notifications/push", s.requireAPIKey(s.handlePush)).Methods("POST", "OPTIONS")
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Headers", "Authorization, Content-Type")

		if r.Method == http.MethodOptions {
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (s *RESTServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]any{
		"status":    "healthy",
		"timestamp": time.Now(),
	})
}

func (s *RESTServer) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req handler.RegisterRequest
	if !s.decodeBody(w, r, &req) {
		return
	}

	response, err := s.handlers.Register.Handle(r.Context(), req)
	if err != nil {
		s.writeError(w, err)
		return
	}

	s.writeJSON(w, http.StatusCreated, response)
}

func (s *RESTServer) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req handler.LoginRequest
	if !s.decodeBody(w, r, &req) {
		return
	}

	response, err := s.handlers.Login.Handle(r.Context(), req)
	if err != nil {
		s.writeError(w, err)
		return
	}

	s.writeJSON(w, http.StatusOK, response)
}

func (s *RESTServer) handleMe(w http.ResponseWriter, r *http.Request) {
	user, err := s.handlers.Me.Handle(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}

	s.writeJSON(w, http.StatusOK, user)
}

func (s *RESTServer) handleOnboardTrainer(w http.ResponseWriter, r *http.Request) {
	var req handler.OnboardTrainerRequest
	if !s.decodeBody(w, r, &req) {
		return
	}

	response, err := s.handlers.OnboardTrainer.Handle(r.Context(), req)
	if err != nil {
		s.writeError(w, err)
		return
	}

	s.writeJSON(w, http.StatusCreated, response)
}

func (s *RESTServer) handleListTrainers(w http.ResponseWriter, r *http.Request) {
	skip, _ := strconv.Atoi(r.URL.Query().Get("skip"))
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	response, err := s.handlers.ListTrainers.Handle(r.Context(), handler.ListTrainersRequest{
		Skip:  skip,
		Limit: limit,
	})
	if err != nil {
		s.writeError(w, err)
		return
	}

	s.writeJSON(w, http.StatusOK, response)
}

func (s *RESTServer) handleGetTrainer(w http.ResponseWriter, r *http.Request) {
	trainerId := mux.Vars(r)["trainerId"]

	trainer, err := s.handlers.GetTrainer.Handle(r.Context(), trainerId)
	if err != nil {
		s.writeError(w, err)
		return
	}

	s.writeJSON(w, http.StatusOK, trainer)
}

func (s *RESTServer) handleCreateBooking(w http.ResponseWriter, r *http.Request) {
	var req handler.CreateBookingRequest
	if !s.decodeBody(w, r, &req) {
		return
	}

	booking, err := s.handlers.CreateBooking.Handle(r.Context(), req)
	if err != nil {
		s.writeError(w, err)
		return
	}

	s.writeJSON(w, http.StatusCreated, booking)
}

func (s *RESTServer) handleListBookings(w http.ResponseWriter, r *http.Request) {
	response, err := s.handlers.ListBookings.Handle(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}

	s.writeJSON(w, http.StatusOK, response)
}

func (s *RESTServer) handleSubmitFeedback(w http.ResponseWriter, r *http.Request) {
	var req handler.SubmitFeedbackRequest
	if !s.decodeBody(w, r, &req) {
		return
	}

	response, err := s.handlers.SubmitFeedback.Handle(r.Context(), req)
	if err != nil {
		s.writeError(w, err)
		return
	}

	s.writeJSON(w, http.StatusCreated, response)
}

func (s *RESTServer) handleEmergency(w http.ResponseWriter, r *http.Request) {
	var req handler.EmergencyRequest
	if !s.decodeBody(w, r, &req) {
		return
	}

	response, err := s.handlers.Emergency.Handle(r.Context(), req)
	if err != nil {
		s.writeError(w, err)
		return
	}

	s.writeJSON(w, http.StatusOK, response)
}

func (s *RESTServer) handleLoyalty(w http.ResponseWriter, r *http.Request) {
	response, err := s.handlers.Loyalty.Handle(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}

	s.writeJSON(w, http.StatusOK, response)
}

func (s *RESTServer) handleRecommendations(w http.ResponseWriter, r *http.Request) {
	response, err := s.handlers.Recommendations.Handle(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}

	s.writeJSON(w, http.StatusOK, response)
}

func (s *RESTServer) handlePush(w http.ResponseWriter, r *http.Request) {
	var req handler.PushRequest
	if !s.decodeBody(w, r, &req) {
		return
	}

	notification, err := s.handlers.Push.Handle(r.Context(), req)
	if err != nil {
		s.writeError(w, err)
		return
	}

	s.writeJSON(w, http.StatusOK, notification)
}

func (s *RESTServer) requireAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token, ok := bearerToken(r)
		if !ok {
			s.writeError(w, ierr.New(ierr.ErrorCodeUnauthenticated, errors.New("missing bearer token")))
			return
		}

		identity, err := s.authenticator.VerifyToken(token)
		if err != nil {
			s.writeError(w, err)
			return
		}

		ctx := auth.WithIdentity(r.Context(), identity)
		next(w, r.WithContext(ctx))
	}
}

func (s *RESTServer) requireAPIKey(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		key, ok := bearerToken(r)
		if !ok {
			s.writeError(w, ierr.New(ierr.ErrorCodeUnauthenticated, errors.New("missing api key")))
			return
		}

		err := s.authenticator.VerifyAPIKey(key)
		if err != nil {
			s.writeError(w, err)
			return
		}

		next(w, r)
	}
}

func bearerToken(r *http.Request) (string, bool) {
	authHeader := r.Header.Get("Authorization")

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", false
	}

	return parts[1], true
}

func (s *RESTServer) decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	err := json.NewDecoder(r.Body).Decode(v)
	if err != nil {
		s.writeError(w, ierr.New(ierr.ErrorCodeInvalidArgument, errors.New("invalid request body")))
		return false
	}

	return true
}

func (s *RESTServer) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	err := json.NewEncoder(w).Encode(v)
	if err != nil {
		s.logger.Error("failed to encode response", zap.Error(err))
	}
}

func (s *RESTServer) writeError(w http.ResponseWriter, err error) {
	var coded ierr.Error
	if !errors.As(err, &coded) {
		s.logger.Error("internal error in rest handler", zap.Error(err))

		coded = ierr.New(ierr.ErrorCodeInternal, errors.New("internal error"))
	}

	s.writeJSON(w, coded.HTTPStatus(), coded)
}
