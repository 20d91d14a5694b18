//go:build datagen_kafka_movies
// +build datagen_kafka_movies

package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"math/rand"
	"os"
	"os/signal"
	"syscall"
	"time"

	"cineasts/src/domain"
	"cineasts/src/infra/kafka"

	"github.com/go-faker/faker/v4"
)

// pessoas reaparecem em vários filmes, como num catálogo real
type peoplePool struct {
	actors    []domain.PersonImport
	directors []domain.PersonImport
}

func newPerson(prefix string) domain.PersonImport {
	return domain.PersonImport{
		ID:   fmt.Sprintf("%s%d", prefix, rand.Intn(10000000)),
		Name: faker.Name(),
	}
}

func (p *peoplePool) actor() domain.PersonImport {
	// 40% de chance de reaproveitar um ator já gerado
	if len(p.actors) > 0 && rand.Float32() < 0.4 {
		return p.actors[rand.Intn(len(p.actors))]
	}
	actor := newPerson("a")
	p.actors = append(p.actors, actor)
	return actor
}

func (p *peoplePool) director() domain.PersonImport {
	if len(p.directors) > 0 && rand.Float32() < 0.5 {
		return p.directors[rand.Intn(len(p.directors))]
	}
	director := newPerson("d")
	p.directors = append(p.directors, director)
	return director
}

func generateMovie(pool *peoplePool) domain.MovieImport {
	movie := domain.MovieImport{
		ID:    fmt.Sprintf("%d", rand.Intn(100000000)),
		Title: faker.Sentence(),
	}

	castSize := 1 + rand.Intn(6)
	for i := 0; i < castSize; i++ {
		actor := pool.actor()
		movie.Cast = append(movie.Cast, domain.CastMember{
			ActorID: actor.ID,
			Name:    actor.Name,
			Role:    faker.FirstName(),
		})
	}

	directors := 1 + rand.Intn(2)
	for i := 0; i < directors; i++ {
		movie.Directors = append(movie.Directors, pool.director())
	}

	return movie
}

func main() {
	totalMessages := flag.Int("count", 1000, "Total number of movies to generate. Use -1 for infinite.")
	batchSize := flag.Int("batch-size", 100, "Number of messages per batch")
	topic := flag.String("topic", "cineasts.movies", "Kafka topic to send messages to")
	brokers := flag.String("brokers", "", "Kafka brokers (comma-separated) (required)")
	delayMs := flag.Int("delay-ms", 100, "Delay in milliseconds between batches")
	flag.Parse()

	if *brokers == "" {
		log.Fatal("The 'brokers' flag is required")
	}

	kafkaClient, err := kafka.NewKafkaProducerClient(*brokers)
	if err != nil {
		log.Fatalf("Failed to create Kafka client: %v", err)
	}
	defer kafkaClient.Close()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	isInfinite := *totalMessages == -1
	pool := &peoplePool{}
	messagesSent := 0
	startTime := time.Now()

	for isInfinite || messagesSent < *totalMessages {
		if ctx.Err() != nil {
			log.Println("Shutdown requested, stopping message generation")
			break
		}

		currentBatchSize := *batchSize
		if !isInfinite && *totalMessages-messagesSent < currentBatchSize {
			currentBatchSize = *totalMessages - messagesSent
		}

		kafkaMessages := make([]kafka.Message, 0, currentBatchSize)
		for i := 0; i < currentBatchSize; i++ {
			movie := generateMovie(pool)
			msgBytes, err := json.Marshal(movie)
			if err != nil {
				log.Printf("Failed to marshal message: %v", err)
				continue
			}
			kafkaMessages = append(kafkaMessages, kafka.Message{Key: movie.ID, Value: msgBytes})
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
	log.Printf("Sent %d movies in %v (%.1f msg/sec)", messagesSent, elapsed, float64(messagesSent)/elapsed.Seconds())
}
