package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"github.com/joho/godotenv"

	"eventify-payments/internal/config"
	"eventify-payments/internal/email"
	"eventify-payments/internal/handlers"
	"eventify-payments/internal/kafka"
	"eventify-payments/internal/logger"
	"eventify-payments/internal/middleware"
	"eventify-payments/internal/models"
	rediswrap "eventify-payments/internal/redis"
	"eventify-payments/internal/services"
	"eventify-payments/internal/storage"
)

var log *logger.Logger

func main() {
	log = logger.NewLogger()
	defer log.Close()

	if err := godotenv.Load(); err != nil {
		log.Warn("ENV", "Error loading .env file, using environment variables")
	}

	log.LogProcess("STARTUP", "Eventify payments service starting up...")

	cfg := config.Load()
	log.Info("CONFIG", "Configuration loaded successfully")

	log.LogProcess("DATABASE", "Initializing MySQL ledger store...")
	store, err := storage.NewMySQLStore(cfg.Database, log)
	if err != nil {
		log.Fatal("DATABASE", "Failed to initialize MySQL: "+err.Error())
	}
	defer store.Close()

	log.LogProcess("KAFKA", "Initializing Kafka producer...")
	producer, err := kafka.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.MockMode, log)
	if err != nil {
		log.Fatal("KAFKA", "Failed to create Kafka producer: "+err.Error())
	}
	defer producer.Close()

	redisClient := redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr})
	deliveryLock := rediswrap.NewLock(redisClient)
	log.LogProcess("REDIS", "Redis delivery lock initialized")

	gateway, err := services.NewStripeGateway(log)
	if err != nil {
		log.Fatal("STRIPE", "Failed to initialize Stripe gateway: "+err.Error())
	}

	verifier, err := services.NewWebhookVerifier(cfg.Stripe.WebhookSecret, log)
	if err != nil {
		log.Fatal("WEBHOOK", "Failed to initialize webhook verifier: "+err.Error())
	}

	mailer := email.NewSender(cfg.SMTP, log)

	checkoutService := services.NewCheckoutService(store, gateway, log, cfg.App.BaseURL)
	reconciler := services.NewReconcilerService(store, gateway, producer, deliveryLock, mailer, log)
	log.LogProcess("SERVICE", "Checkout and reconciler services initialized")

	checkoutHandler := handlers.NewCheckoutHandler(checkoutService, log)
	webhookHandler := handlers.NewWebhookHandler(verifier, reconciler, log)
	paymentHandler := handlers.NewPaymentHandler(store, log)
	eventHandler := handlers.NewEventHandler(store, log)
	log.LogProcess("HANDLER", "All handlers initialized")

	// Keep the local catalog in sync with the events service.
	if !cfg.Kafka.MockMode {
		consumer, err := kafka.NewCatalogConsumer(cfg.Kafka.Brokers, cfg.Kafka.GroupID, log)
		if err != nil {
			log.Fatal("KAFKA", "Failed to create catalog consumer: "+err.Error())
		}
		defer consumer.Close()

		go func() {
			log.LogKafka("START", "event-catalog", "Starting catalog consumer goroutine")
			err := consumer.ConsumeEvents(context.Background(), func(msg *models.EventMessage) error {
				if msg.Event == nil {
					return nil
				}
				return store.UpsertEvent(msg.Event)
			})
			if err != nil && err != context.Canceled {
				log.Error("KAFKA", "Catalog consumer error: "+err.Error())
			}
		}()
	}

	router := setupRouter(store, checkoutHandler, webhookHandler, paymentHandler, eventHandler)
	log.LogProcess("ROUTER", "HTTP router configured")

	srv := &http.Server{
		Addr:         cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		log.LogProcess("SERVER", "Starting HTTP server on "+cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("SERVER", "Server failed to start: "+err.Error())
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Warn("SHUTDOWN", "Received shutdown signal, initiating graceful shutdown...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("SHUTDOWN", "Server forced to shutdown: "+err.Error())
	}

	log.Info("SHUTDOWN", "Payments service shutdown completed")
}

func setupRouter(store storage.Store, checkout *handlers.CheckoutHandler, webhook *handlers.WebhookHandler, payments *handlers.PaymentHandler, events *handlers.EventHandler) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()

	router.Use(middleware.RequestLogger(log))
	router.Use(middleware.Recovery(log))
	router.Use(middleware.CORS())
	router.Use(middleware.SecurityHeaders())
	router.Use(middleware.RateLimit(100, 100, log))

	router.GET("/health", func(c *gin.Context) {
		status := "healthy"
		code := http.StatusOK
		if err := store.HealthCheck(); err != nil {
			status = "degraded"
			code = http.StatusServiceUnavailable
		}
		c.JSON(code, gin.H{
			"status":    status,
			"timestamp": time.Now().UTC(),
			"service":   "eventify-payments",
		})
	})

	v1 := router.Group("/api/v1")
	{
		v1.POST("/checkout", checkout.CreateCheckoutSession)
		v1.GET("/checkout/session", checkout.GetSessionDetails)

		v1.POST("/stripe/webhook", webhook.HandleStripeWebhook)

		v1.GET("/payments/:id", payments.GetPayment)
		v1.GET("/payments", payments.ListPayments)

		v1.GET("/events/:id", events.GetEvent)
		v1.PUT("/events/:id/inventory", events.ResetInventory)
	}

	return router
}
