package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"cineasts/src/adapters/kafka/consumers"
	"cineasts/src/bootstrap"
	"cineasts/src/helper/env"
	"cineasts/src/infra/kafka"
	"cineasts/src/services/catalog"

	"go.uber.org/fx"
)

func main() {
	log.SetOutput(os.Stdout)
	log.Println("Starting Ratings Consumer with Uber Fx...")

	app := fx.New(
		bootstrap.CatalogModule,

		fx.Provide(
			newKafkaClient,
			newRatingsConsumer,
		),

		fx.Invoke(startConsumer),
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := app.Start(ctx); err != nil {
		log.Fatalf("Failed to start consumer application: %v", err)
	}

	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)
	<-c

	log.Println("Shutting down ratings consumer...")

	stopCtx, stopCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer stopCancel()

	if err := app.Stop(stopCtx); err != nil {
		log.Printf("Failed to stop application gracefully: %v", err)
	}

	log.Println("Ratings consumer shutdown complete")
}

func newKafkaClient() (*kafka.KafkaClient, error) {
	brokers := env.MustGetString("KAFKA_BROKERS")
	groupID := env.GetString("KAFKA_RATINGS_CONSUMER_GROUP_ID", "cineasts-ratings")
	batchSize := env.GetInt("KAFKA_BATCH_SIZE", 100)

	return kafka.NewKafkaClient(brokers, groupID, batchSize)
}

func newRatingsConsumer(
	logger *slog.Logger,
	catalogService *catalog.Catalog,
) *consumers.RatingsConsumer {
	return consumers.NewRatingsConsumer(logger, catalogService)
}

func startConsumer(
	lc fx.Lifecycle,
	logger *slog.Logger,
	kafkaClient *kafka.KafkaClient,
	ratingsConsumer *consumers.RatingsConsumer,
) {
	// o ctx do OnStart expira junto com o start; o consumer precisa do seu
	consumerCtx, cancel := context.WithCancel(context.Background())

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			topic := env.GetString("KAFKA_RATINGS_CONSUMER_TOPIC", "cineasts.ratings")

			go func() {
				if err := ratingsConsumer.Start(consumerCtx, kafkaClient, topic); err != nil {
					logger.Error("Consumer failed", "error", err)
				}
			}()

			return nil
		},
		OnStop: func(ctx context.Context) error {
			cancel()
			logger.Info("Shutting down Kafka client...")
			if err := kafkaClient.Close(); err != nil {
				logger.Error("Failed to close Kafka client", "error", err)
				return err
			}
			logger.Info("Kafka client shut down gracefully")
			return nil
		},
	})
}
