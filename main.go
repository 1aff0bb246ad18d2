package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"obrolan/server/internal/config"
	"obrolan/server/internal/contacts"
	"obrolan/server/internal/database"
	"obrolan/server/internal/database/memory"
	"obrolan/server/internal/handlers"
	"obrolan/server/internal/middleware"
	"obrolan/server/internal/realtime"
	"obrolan/server/internal/rooms"
	"obrolan/server/internal/routes"
	"obrolan/server/internal/storage"
	"obrolan/server/internal/store"
	"obrolan/server/internal/translate"
	"obrolan/server/internal/utils"
	ws "obrolan/server/internal/websocket"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/sirupsen/logrus"
)

// backend is what both database modes provide
type backend interface {
	store.Contacts
	store.Profiles
	store.Notifications
	store.Rooms
}

func newLogger(cfg *config.Config) *logrus.Logger {
	log := logrus.New()
	level, err := logrus.ParseLevel(cfg.LogLevel)
	if err != nil {
		log.WithField("level", cfg.LogLevel).Warn("unknown LOG_LEVEL, using info")
		level = logrus.InfoLevel
	}
	log.SetLevel(level)
	if strings.EqualFold(cfg.LogFormat, "json") {
		log.SetFormatter(&logrus.JSONFormatter{})
	} else {
		log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
	return log
}

func openBackend(ctx context.Context, cfg *config.Config, log *logrus.Logger) (backend, func(), error) {
	if cfg.DatabaseMode == config.DatabaseMemory {
		log.Warn("using in-memory store; data is lost on restart")
		return memory.New(), func() {}, nil
	}

	pool, err := database.Connect(ctx, cfg.DatabaseURL, log)
	if err != nil {
		return nil, nil, err
	}
	if err := database.Migrate(ctx, pool); err != nil {
		pool.Close()
		return nil, nil, err
	}
	return database.New(pool), pool.Close, nil
}

func main() {
	if err := run(); err != nil {
		logrus.WithError(err).Fatal("server exited")
	}
}

// run owns every resource it opens, so its defers always release them.
func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	log := newLogger(cfg)
	utils.SetJWTSecret(cfg.JWTSecret)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, closeDB, err := openBackend(ctx, cfg, log)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer closeDB()

	feed, err := realtime.NewFeed(realtime.Config{
		RedisAddr:     cfg.RedisAddr,
		RedisPassword: cfg.RedisPassword,
		RedisDB:       cfg.RedisDB,
		BufferSize:    cfg.FeedBuffer,
	})
	if err != nil {
		return fmt.Errorf("open change feed: %w", err)
	}
	defer feed.Close()

	feedLog := log.WithField("component", "feed")
	contactRows := store.NewPublishingContacts(db, feed, feedLog)
	notificationRows := store.NewPublishingNotifications(db, feed, feedLog)

	contactMgr := contacts.NewManager(contactRows, db, notificationRows, db, log.WithField("component", "contacts"))
	roomSvc := rooms.NewService(db, db, contactMgr, log.WithField("component", "rooms"))

	translator := translate.New(cfg.TranslateAPIURL, cfg.TranslateAPIKey, cfg.TranslateModel)
	if !cfg.TranslateEnabled() {
		log.Info("translation disabled: TRANSLATE_API_URL or TRANSLATE_API_KEY not set")
	}

	handlers.Init(handlers.Deps{
		Profiles:      db,
		Notifications: notificationRows,
		Contacts:      contactMgr,
		Rooms:         roomSvc,
		Blobs:         storage.NewLocal(cfg.UploadDir, cfg.PublicBaseURL),
		Translator:    translator,
		Log:           log.WithField("component", "http"),
	})

	hubCtx, stopHub := context.WithCancel(context.Background())
	defer stopHub()
	handlers.InitWebSocket(hubCtx, ws.Services{
		Contacts: contactMgr,
		Feed:     feed,
		Presence: db,
		Rooms:    db,
	})

	app := fiber.New(fiber.Config{
		AppName:   "Obrolan API v1.0",
		BodyLimit: storage.MaxFileSize + 1024*1024,
	})

	app.Use(recover.New())
	app.Use(middleware.RequestLogger(log.WithField("component", "http")))
	app.Use(cors.New(cors.Config{
		AllowOrigins:     strings.Join(cfg.AllowedOrigins(), ","),
		AllowCredentials: true,
	}))

	routes.SetupRoutes(app)

	go func() {
		<-ctx.Done()
		log.Info("shutting down")
		stopHub()
		<-handlers.WSHub.Done()
		if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
			log.WithError(err).Warn("server shutdown")
		}
	}()

	log.WithField("port", cfg.Port).Info("server starting")
	if err := app.Listen(":" + cfg.Port); err != nil {
		return fmt.Errorf("listen on %s: %w", cfg.Port, err)
	}
	return nil
}
