package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"roomly/internal/events"
	"roomly/internal/notifier"
	"roomly/pkg/kafka"
	"roomly/pkg/logger"
)

const (
	ServiceName     = "notifier"
	ConsumerGroupID = "roomly-notifier"
)

func main() {
	log := logger.New(logger.Config{
		Level:   os.Getenv("LOG_LEVEL"),
		Format:  logger.FormatJSON,
		Service: ServiceName,
	})

	kafkaCfg := kafka.Load()
	if !kafkaCfg.Enabled() {
		log.Fatal("KAFKA_BROKERS must be set for the notifier")
	}

	worker := notifier.New(log)
	consumer, err := kafka.NewConsumer(kafkaCfg, events.TopicBookings, ConsumerGroupID, worker.Handle, log)
	if err != nil {
		log.Fatal("Failed to create Kafka consumer", "error", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	go func() {
		sig := <-shutdown
		log.Info("Shutdown signal received", "signal", sig)
		cancel()
	}()

	log.Info("Notifier started", "topic", events.TopicBookings, "group_id", ConsumerGroupID)
	if err := consumer.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
		log.Error("Consumer stopped with error", "error", err)
	}

	if err := consumer.Close(); err != nil {
		log.Error("Failed to close consumer", "error", err)
	}
	log.Info("Notifier stopped")
}
