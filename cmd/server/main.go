package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/justxchange/go-backend/internal/auth"
	"github.com/justxchange/go-backend/internal/chat"
	"github.com/justxchange/go-backend/internal/config"
	"github.com/justxchange/go-backend/internal/httpapi"
	"github.com/justxchange/go-backend/internal/listing"
	"github.com/justxchange/go-backend/internal/notification"
	"github.com/justxchange/go-backend/internal/realtime"
	"github.com/justxchange/go-backend/internal/store"
)

const shutdownTimeout = 10 * time.Second

func main() {
	logger := newLogger(os.Getenv("LOG_LEVEL"))

	if err := run(logger); err != nil {
		logger.Fatal().Err(err).Msg("server exited")
	}
}

func run(logger zerolog.Logger) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	logger = newLogger(cfg.LogLevel)

	db, err := store.Open(cfg.DatabaseDSN)
	if err != nil {
		return err
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	err = store.Init(ctx, db)
	cancel()
	if err != nil {
		return err
	}

	tokens := auth.NewTokenService([]byte(cfg.SigningKey), cfg.TokenExpiry, cfg.TokenIssuer)
	sms := auth.WithTimeout(&auth.SMSSender{From: cfg.SMSFromNumber, Logger: logger}, cfg.DispatchTimeout)
	email := auth.WithTimeout(&auth.EmailSender{From: cfg.EmailFrom, Logger: logger}, cfg.DispatchTimeout)

	authService := auth.NewService(
		auth.NewUsersRepository(db),
		tokens,
		sms,
		email,
		logger,
		auth.WithCodeTTL(cfg.OTPExpiry),
	)

	hub := realtime.NewHub(logger)

	chatService := chat.NewService(chat.NewRepository(db), hub, logger)
	notificationService := notification.NewService(notification.NewRepository(db), hub, logger)
	listingService := listing.NewService(listing.NewRepository(db), notificationService, logger)

	realtimeHandler := realtime.NewHandler(hub, tokens, chatService, notificationService, logger)

	app := fiber.New(fiber.Config{
		AppName:      "justxchange",
		ErrorHandler: httpapi.NewErrorHandler(logger),
	})

	httpapi.Register(app, tokens, httpapi.Controllers{
		Users:         httpapi.NewUserController(authService),
		Chats:         httpapi.NewChatController(chatService),
		Notifications: httpapi.NewNotificationController(notificationService),
		Listings:      httpapi.NewListingController(listingService),
		Realtime:      realtimeHandler,
	})

	errCh := make(chan error, 1)
	go func() {
		logger.Info().Str("addr", cfg.ServerAddr).Msg("server listening")
		errCh <- app.Listen(cfg.ServerAddr)
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case sig := <-stop:
		logger.Info().Str("signal", sig.String()).Msg("shutting down")
	}

	hub.Shutdown()

	if err := app.ShutdownWithTimeout(shutdownTimeout); err != nil {
		logger.Error().Err(err).Msg("shutdown did not complete cleanly")
	}

	return nil
}

func newLogger(level string) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil || level == "" {
		lvl = zerolog.InfoLevel
	}
	return zerolog.New(os.Stderr).Level(lvl).With().Timestamp().Logger()
}
