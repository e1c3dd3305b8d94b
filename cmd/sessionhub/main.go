package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/Netflix/go-env"
	"github.com/calmora/sessionhub/internal/auth"
	"github.com/calmora/sessionhub/internal/handler"
	"github.com/calmora/sessionhub/internal/realtime"
	"github.com/calmora/sessionhub/internal/server"
	"github.com/calmora/sessionhub/internal/store"
	"github.com/calmora/sessionhub/internal/store/memory"
	"github.com/calmora/sessionhub/internal/store/mongodb"
	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
	"go.uber.org/zap"
)

type App struct {
	logger          *zap.Logger
	settings        Settings
	engine          store.Engine
	websocketServer *server.WebSocketServer
	restServer      *server.RESTServer
}

func NewApp(logger *zap.Logger, settings Settings, engine store.Engine) *App {
	websocketUpgrader := &websocket.Upgrader{
		ReadBufferSize:    1024,
		WriteBufferSize:   1024,
		CheckOrigin:       func(r *http.Request) bool { return true },
		EnableCompression: true,
	}

	tokenTTL := time.Duration(settings.TokenTTLMinutes) * time.Minute
	authenticator := auth.NewAuthenticator(settings.JWTSecret, settings.APIKeys, tokenTTL)

	registry := realtime.NewInMemoryRegistry(logger)
	pushHandler := handler.NewPushHandler(registry)

	handlers := server.Handlers{
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

	websocketServer := server.NewWebSocketServer(
		logger,
		websocketUpgrader,
		authenticator,
		registry,
		pushHandler,
	)
	restServer := server.NewRESTServer(
		logger,
		authenticator,
		handlers,
	)

	return &App{
		logger,
		settings,
		engine,
		websocketServer,
		restServer,
	}
}

func (a *App) setup(ctx context.Context) error {
	err := a.engine.Setup(ctx)
	if err != nil {
		return fmt.Errorf("store setup failed: %w", err)
	}

	a.startHttpServer(ctx)

	return nil
}

func (a *App) startHttpServer(ctx context.Context) {
	notifyCtx, notifyCtxCancel := signal.NotifyContext(ctx, syscall.SIGTERM, syscall.SIGINT)
	defer notifyCtxCancel()

	address := fmt.Sprintf("0.0.0.0:%d", a.settings.Port)

	rootRouter := mux.NewRouter()

	router := rootRouter
	if a.settings.BasePath != "" {
		router = rootRouter.PathPrefix(a.settings.BasePath).Subrouter()
	}

	a.websocketServer.Register(router)
	a.restServer.Register(router)

	httpServer := &http.Server{
		Addr:    address,
		Handler: rootRouter,
	}

	a.logger.Info("starting http server",
		zap.String("address", address))

	go func() {
		err := httpServer.ListenAndServe()

		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.logger.Fatal("failed to start http server",
				zap.Error(err))
		}
	}()

	<-notifyCtx.Done()

	a.logger.Info("stopping http server")

	shutdownCtx, shutdownCtxCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCtxCancel()

	err := httpServer.Shutdown(shutdownCtx)
	if err != nil {
		a.logger.Fatal("http server shutdown failed",
			zap.Error(err))
	}

	a.logger.Info("http server stopped")
}

func buildEngine(logger *zap.Logger, settings Settings) (store.Engine, error) {
	if settings.MongoDBURI == "" {
		logger.Warn("no mongodb uri configured, using in-memory store")

		return memory.NewEngine(), nil
	}

	client, err := mongo.Connect(options.Client().ApplyURI(settings.MongoDBURI))
	if err != nil {
		return nil, fmt.Errorf("mongodb connection failed: %w", err)
	}

	return mongodb.NewEngine(client), nil
}

func main() {
	ctx := context.Background()

	var settings Settings
	_, err := env.UnmarshalFromEnviron(&settings)
	if err != nil {
		panic(err)
	}

	logger, err := buildZapLogger(settings.LogEncoding)
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	engine, err := buildEngine(logger, settings)
	if err != nil {
		logger.Fatal("failed to build store engine", zap.Error(err))
	}

	app := NewApp(logger, settings, engine)

	err = app.setup(ctx)
	if err != nil {
		logger.Fatal("failed to setup", zap.Error(err))
	}
}
