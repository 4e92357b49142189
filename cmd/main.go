package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"helpdesk-notification-service/internal/config"
	"helpdesk-notification-service/internal/dispatch"
	"helpdesk-notification-service/internal/events"
	"helpdesk-notification-service/internal/handlers"
	"helpdesk-notification-service/internal/mailer"
	"helpdesk-notification-service/internal/middleware"
	"helpdesk-notification-service/internal/models"
	"helpdesk-notification-service/internal/queue"
	"helpdesk-notification-service/internal/ratelimit"
	"helpdesk-notification-service/internal/repository"
	"helpdesk-notification-service/internal/seed"
)

func main() {
	log := logrus.New()
	log.SetFormatter(&logrus.JSONFormatter{})

	cfg, err := config.Load()
	if err != nil {
		log.WithError(err).Fatal("failed to load configuration")
	}
	if cfg.App.Environment != "production" {
		log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
		log.SetLevel(logrus.DebugLevel)
	}

	db, err := initDatabase(cfg)
	if err != nil {
		log.WithError(err).Fatal("failed to initialize database")
	}
	if err := migrateDatabase(db); err != nil {
		log.WithError(err).Fatal("failed to migrate database")
	}
	if err := seed.Run(db, log); err != nil {
		log.WithError(err).Fatal("failed to seed templates and settings")
	}

	emailProvider := initEmailProvider(cfg, log)

	// Repositories
	templateRepo := repository.NewTemplateRepository(db)
	settingRepo := repository.NewSettingRepository(db)
	notifSettingRepo := repository.NewNotificationSettingRepository(db)
	userRepo := repository.NewUserRepository(db)
	ticketRepo := repository.NewTicketRepository(db)
	logRepo := repository.NewDeliveryLogRepository(db)

	// Redis is optional; without it the rate limiter counts in memory
	var redisClient *redis.Client
	if cfg.Redis.Host != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     fmt.Sprintf("%s:%d", cfg.Redis.Host, cfg.Redis.Port),
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := redisClient.Ping(ctx).Err(); err != nil {
			log.WithError(err).Warn("redis unavailable, rate limiting falls back to in-memory counters")
			redisClient = nil
		} else {
			log.Info("redis connected for email rate limiting")
		}
		cancel()
	}

	var limiter *ratelimit.Limiter
	if cfg.RateLimit.Enabled {
		limiter = ratelimit.NewLimiter(redisClient, log, ratelimit.Config{
			RecipientHourlyLimit: cfg.RateLimit.RecipientHourlyLimit,
		})
		log.WithField("recipient_hourly_limit", cfg.RateLimit.RecipientHourlyLimit).Info("email rate limiting enabled")
	}

	// NATS is optional. Queued delivery and the mail worker need it; when it
	// is unreachable the service degrades to synchronous sends.
	var natsClient *queue.Client
	var publisher *queue.Publisher
	var worker *queue.Worker
	queuedDelivery := cfg.Queue.Enabled

	natsClient, err = queue.NewClient(cfg.NATS.URL, cfg.NATS.MaxReconnects, cfg.NATS.ReconnectWait, log)
	if err != nil {
		log.WithError(err).Warn("nats unavailable")
		natsClient = nil
	} else if queuedDelivery {
		publisher, err = queue.NewPublisher(natsClient, log)
		if err != nil {
			log.WithError(err).Warn("failed to set up mail stream, falling back to synchronous delivery")
			publisher = nil
		} else {
			worker = queue.NewWorker(natsClient, emailProvider, log)
			if err := worker.Start(context.Background()); err != nil {
				log.WithError(err).Warn("failed to start mail worker")
				worker = nil
			}
		}
	}
	if queuedDelivery && publisher == nil {
		queuedDelivery = false
	}

	var mailQueue dispatch.MailQueue
	if publisher != nil {
		mailQueue = publisher
	}
	deliverer := dispatch.NewDeliverer(
		emailProvider,
		mailQueue,
		limiter,
		queuedDelivery,
		cfg.App.MailFrom,
		cfg.App.MailFromName,
	)
	log.WithField("mode", deliverer.Mode()).Info("delivery mode selected")

	// Dispatcher and event bus
	dispatcher := dispatch.NewDispatcher(dispatch.Stores{
		Tickets:     ticketRepo,
		Users:       userRepo,
		Templates:   templateRepo,
		Settings:    settingRepo,
		Preferences: notifSettingRepo,
		Logs:        logRepo,
	}, deliverer, dispatch.AppInfo{
		AppName:    cfg.App.Name,
		AppURL:     cfg.App.URL,
		SenderName: cfg.App.MailFromName,
	}, log)

	bus := events.NewBus(log)
	dispatcher.Register(bus)

	// Handlers
	healthHandler := handlers.NewHealthHandler(db, natsClient)
	templateHandler := handlers.NewTemplateHandler(templateRepo)
	settingsHandler := handlers.NewSettingsHandler(notifSettingRepo, settingRepo)
	eventHandler := handlers.NewEventHandler(bus)
	logHandler := handlers.NewDeliveryLogHandler(logRepo)

	router := setupRouter(cfg, log, healthHandler, templateHandler, settingsHandler, eventHandler, logHandler)

	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		log.WithField("addr", addr).Info("starting notification service")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.WithError(err).Fatal("failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("shutting down notification service")

	if worker != nil {
		worker.Stop()
	}
	if natsClient != nil {
		natsClient.Close()
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.WithError(err).Fatal("server forced to shutdown")
	}

	log.Info("notification service stopped")
}

// initDatabase initializes the database connection
func initDatabase(cfg *config.Config) (*gorm.DB, error) {
	gormConfig := &gorm.Config{}
	if cfg.App.Environment == "production" {
		gormConfig.Logger = logger.Default.LogMode(logger.Silent)
	} else {
		gormConfig.Logger = logger.Default.LogMode(logger.Info)
	}

	db, err := gorm.Open(postgres.Open(cfg.Database.DSN()), gormConfig)
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetMaxOpenConns(100)

	return db, nil
}

// migrateDatabase runs database migrations
func migrateDatabase(db *gorm.DB) error {
	modelsToMigrate := []interface{}{
		&models.User{},
		&models.TicketType{},
		&models.Ticket{},
		&models.Setting{},
		&models.NotificationSetting{},
		&models.EmailTemplate{},
		&models.DeliveryLog{},
	}

	for _, model := range modelsToMigrate {
		if err := db.AutoMigrate(model); err != nil {
			return fmt.Errorf("failed to migrate %T: %w", model, err)
		}
	}
	return nil
}

// initEmailProvider initializes the email provider with failover chain
// Priority: AWS SES (primary) -> SendGrid (secondary) -> SMTP (last resort)
func initEmailProvider(cfg *config.Config, log *logrus.Logger) mailer.Provider {
	var providers []mailer.Provider

	if cfg.Email.SESFrom != "" && (cfg.AWS.AccessKeyID != "" || cfg.AWS.Region != "") {
		sesProvider, err := mailer.NewSESProvider(&mailer.ProviderConfig{
			AWSRegion:          cfg.AWS.Region,
			AWSAccessKeyID:     cfg.AWS.AccessKeyID,
			AWSSecretAccessKey: cfg.AWS.SecretAccessKey,
			SESFrom:            cfg.Email.SESFrom,
			SESFromName:        cfg.Email.SESFromName,
		})
		if err != nil {
			log.WithError(err).Warn("failed to initialize AWS SES")
		} else {
			providers = append(providers, sesProvider)
			log.WithField("region", cfg.AWS.Region).Info("email provider configured: AWS SES (primary)")
		}
	}

	if cfg.Email.SendGridAPIKey != "" {
		providers = append(providers, mailer.NewSendGridProvider(&mailer.ProviderConfig{
			SendGridAPIKey: cfg.Email.SendGridAPIKey,
			SendGridFrom:   cfg.Email.SendGridFrom,
		}))
		log.Info("email provider configured: SendGrid (secondary)")
	}

	if cfg.Email.SMTPHost != "" {
		providers = append(providers, mailer.NewSMTPProvider(&mailer.ProviderConfig{
			SMTPHost:     cfg.Email.SMTPHost,
			SMTPPort:     cfg.Email.SMTPPort,
			SMTPUsername: cfg.Email.SMTPUsername,
			SMTPPassword: cfg.Email.SMTPPassword,
			SMTPFrom:     cfg.Email.SMTPFrom,
		}))
		log.WithFields(logrus.Fields{
			"host": cfg.Email.SMTPHost,
			"port": cfg.Email.SMTPPort,
		}).Info("email provider configured: SMTP (last resort)")
	}

	if len(providers) == 0 {
		log.Warn("no email provider configured, deliveries will fail")
		return nil
	}
	if len(providers) == 1 {
		return providers[0]
	}

	failover := mailer.NewFailoverProvider(providers, &mailer.FailoverConfig{
		EnableFailover: cfg.Email.EnableFailover,
		MaxRetries:     1,
		RetryDelay:     2 * time.Second,
	}, log)
	log.WithFields(logrus.Fields{
		"chain":    failover.GetName(),
		"failover": cfg.Email.EnableFailover,
	}).Info("email failover chain initialized")

	return failover
}

// setupRouter configures the Gin router with middleware and routes
func setupRouter(
	cfg *config.Config,
	log *logrus.Logger,
	healthHandler *handlers.HealthHandler,
	templateHandler *handlers.TemplateHandler,
	settingsHandler *handlers.SettingsHandler,
	eventHandler *handlers.EventHandler,
	logHandler *handlers.DeliveryLogHandler,
) *gin.Engine {
	if cfg.App.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	} else {
		gin.SetMode(gin.DebugMode)
	}

	router := gin.New()

	router.Use(middleware.Logger(log))
	router.Use(middleware.Recovery(log))
	router.Use(middleware.CORS())

	router.GET("/health", healthHandler.Health)
	router.GET("/livez", healthHandler.Livez)
	router.GET("/readyz", healthHandler.Readyz)

	api := router.Group("/api/v1")
	{
		api.POST("/events", eventHandler.Publish)

		templates := api.Group("/templates")
		{
			templates.GET("", templateHandler.List)
			templates.GET("/:id", templateHandler.Get)
			templates.POST("", templateHandler.Create)
			templates.PUT("/:id", templateHandler.Update)
			templates.DELETE("/:id", templateHandler.Delete)
			templates.POST("/:id/preview", templateHandler.Preview)
		}

		settings := api.Group("/settings")
		{
			settings.GET("/notifications", settingsHandler.ListToggles)
			settings.PUT("/notifications/:key", settingsHandler.UpdateToggle)
			settings.GET("/default-recipient", settingsHandler.GetDefaultRecipient)
			settings.PUT("/default-recipient", settingsHandler.SetDefaultRecipient)
		}

		api.GET("/delivery-logs", logHandler.List)
	}

	return router
}
