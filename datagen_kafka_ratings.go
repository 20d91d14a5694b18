//go:build datagen_kafka_ratings
// +build datagen_kafka_ratings

package main

import (
	"context"
	"encoding/json"
	"flag"
	"log"
	"math/rand"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"cineasts/src/infra/kafka"

	"github.com/go-faker/faker/v4"
)

// KafkaRatingMessage é o mesmo schema lido pelo ratings consumer
type KafkaRatingMessage struct {
	Login   string `json:"login"`
	MovieID string `json:"movie_id"`
	Stars   int    `json:"stars"`
	Comment string `json:"comment"`
}

func generateRating(logins, movies []string) KafkaRatingMessage {
	return KafkaRatingMessage{
		Login:   logins[rand.Intn(len(logins))],
		MovieID: movies[rand.Intn(len(movies))],
		Stars:   1 + rand.Intn(5),
		Comment: faker.Sentence(),
	}
}

func main() {
	totalMessages := flag.Int("count", 1000, "Total number of ratings to generate")
	batchSize := flag.Int("batch-size", 100, "Number of messages per batch")
	topic := flag.String("topic", "cineasts.ratings", "Kafka topic to send messages to")
	brokers := flag.String("brokers", "", "Kafka brokers (comma-separated) (required)")
	logins := flag.String("logins", "micha,luanne,ollie", "Comma-separated user logins to rate with")
	movies := flag.String("movies", "603,604,562,13,120", "Comma-separated movie ids to rate")
	delayMs := flag.Int("delay-ms", 100, "Delay in milliseconds between batches")
	flag.Parse()

	if *brokers == "" {
		log.Fatal("The 'brokers' flag is required")
	}

	loginList := strings.Split(*logins, ",")
	movieList := strings.Split(*movies, ",")

	kafkaClient, err := kafka.NewKafkaProducerClient(*brokers)
	if err != nil {
		log.Fatalf("Failed to create Kafka client: %v", err)
	}
	defer kafkaClient.Close()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	messagesSent := 0
	startTime := time.Now()

	for messagesSent < *totalMessages && ctx.Err() == nil {
		currentBatchSize := *batchSize
		if *totalMessages-messagesSent < currentBatchSize {
			currentBatchSize = *totalMessages - messagesSent
		}

		kafkaMessages := make([]kafka.Message, 0, currentBatchSize)
		for i := 0; i < currentBatchSize; i++ {
			rating := generateRating(loginList, movieList)
			msgBytes, err := json.Marshal(rating)
			if err != nil {
				log.Printf("Failed to marshal message: %v", err)
				continue
			}
			// mesma chave por usuário mantém as avaliações dele em ordem
			kafkaMessages = append(kafkaMessages, kafka.Message{Key: rating.Login, Value: msgBytes})
		}

		if err := kafkaClient.Producer(kafkaMessages, *topic); err != nil {
			log.Printf("Failed to send batch: %v", err)
			continue
		}
		messagesSent += len(kafkaMessages)

		if *delayMs > 0 {
			time.Sleep(time.Duration(*delayMs) * time.Millisecond)
		}
	}

	elapsed := time.Since(startTime)
	log.Printf("Sent %d ratings in %v (%.1f msg/sec)", messagesSent, elapsed, float64(messagesSent)/elapsed.Seconds())
}
