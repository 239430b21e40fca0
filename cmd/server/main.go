package main

import (
	"context"
	"time"

	availabilityhandler "roomly/internal/availability/handler"
	availabilityservice "roomly/internal/availability/service"
	bookingshandler "roomly/internal/bookings/handler"
	bookingsrepository "roomly/internal/bookings/repository"
	bookingsservice "roomly/internal/bookings/service"
	bookingsvalidator "roomly/internal/bookings/validator"
	"roomly/internal/events"
	resourceshandler "roomly/internal/resources/handler"
	resourcesrepository "roomly/internal/resources/repository"
	resourcesservice "roomly/internal/resources/service"
	usershandler "roomly/internal/users/handler"
	usersrepository "roomly/internal/users/repository"
	usersservice "roomly/internal/users/service"
	"roomly/pkg/app"
	"roomly/pkg/auth"
	"roomly/pkg/config"
	"roomly/pkg/kafka"
)

const ServiceName = "server"

func main() {
	cfg := config.Load(ServiceName)
	cfg.SetMongo()

	cfg.Log.Info("Starting booking server")

	resourceRepo := resourcesrepository.NewMongoResourceRepository(cfg)
	bookingRepo := bookingsrepository.NewMongoBookingRepository(cfg)
	userRepo := usersrepository.NewMongoUserRepository(cfg)
	ensureIndexes(cfg, resourceRepo, bookingRepo, userRepo)

	publisher, producer := initPublisher(cfg)

	tokenManager := auth.NewTokenManager(cfg.JWTSecret, cfg.AccessTokenTTL)
	resourceService := resourcesservice.NewResourceService(resourceRepo, cfg)
	bookingService := bookingsservice.NewBookingService(
		bookingRepo,
		resourceRepo,
		bookingsvalidator.NewBookingValidator(cfg.Log),
		publisher,
		cfg,
	)
	availabilityService := availabilityservice.NewAvailabilityService(bookingRepo, resourceRepo, cfg)
	userService := usersservice.NewUserService(userRepo, tokenManager, cfg)

	serverApp := app.NewApplication(cfg)
	serverApp.SetApp(
		resourceshandler.NewResourceHandler(resourceService, cfg.Log),
		bookingshandler.NewBookingHandler(bookingService, cfg.Log),
		availabilityhandler.NewAvailabilityHandler(availabilityService, cfg.Log),
		usershandler.NewUserHandler(userService, cfg.Log),
	)
	if producer != nil {
		serverApp.OnShutdown(func() {
			if err := producer.Close(); err != nil {
				cfg.Log.Error("Failed to close Kafka producer", "error", err)
			}
		})
	}
	serverApp.Run()
}

type indexer interface {
	EnsureIndexes(ctx context.Context) error
}

func ensureIndexes(cfg *config.Config, repos ...indexer) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	for _, repo := range repos {
		if err := repo.EnsureIndexes(ctx); err != nil {
			cfg.Log.Fatal("Failed to ensure indexes", "error", err)
		}
	}
}

// initPublisher wires Kafka when brokers are configured and falls back
// to a no-op publisher otherwise, so the server runs without a bus.
func initPublisher(cfg *config.Config) (events.Publisher, *kafka.Producer) {
	kafkaCfg := kafka.Load()
	if !kafkaCfg.Enabled() {
		cfg.Log.Info("Kafka brokers not configured, booking events disabled")
		return events.NopPublisher{}, nil
	}

	producer, err := kafka.NewProducer(kafkaCfg, events.TopicBookings, cfg.Log)
	if err != nil {
		cfg.Log.Fatal("Failed to create Kafka producer", "error", err)
	}

	cfg.Log.Info("Kafka producer initialized", "topic", events.TopicBookings)
	return events.NewKafkaPublisher(producer, ServiceName, cfg.Log), producer
}
