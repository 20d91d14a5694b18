package consumers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"cineasts/src/domain"
	"cineasts/src/domain/entities"
	"cineasts/src/infra/kafka"
)

// KafkaRatingMessage representa o schema da mensagem Kafka
type KafkaRatingMessage struct {
	Login   string `json:"login"`
	MovieID string `json:"movie_id"`
	Stars   int    `json:"stars"`
	Comment string `json:"comment"`
}

// Rater é o pedaço do catálogo usado pelo consumer.
type Rater interface {
	Rate(ctx context.Context, login, movieID string, stars int, comment string) (entities.Rating, error)
}

type RatingsConsumer struct {
	logger *slog.Logger
	rater  Rater
}

func NewRatingsConsumer(
	logger *slog.Logger,
	rater Rater,
) *RatingsConsumer {
	return &RatingsConsumer{
		logger: logger,
		rater:  rater,
	}
}

func (c *RatingsConsumer) Start(ctx context.Context, kafkaClient *kafka.KafkaClient, topic string) error {
	c.logger.Info("Starting ratings consumer", "topic", topic)
	return kafkaClient.Consumer(ctx, c.HandleMessages, topic)
}

// HandleMessages aplica as avaliações do lote em ordem. Mensagens que nunca
// vão passar (payload inválido, usuário ou filme inexistente) são descartadas
// com log; qualquer outra falha devolve erro e o lote inteiro é reprocessado.
// Reaplicar uma avaliação igual não cria outra aresta.
func (c *RatingsConsumer) HandleMessages(ctx context.Context, messages []kafka.Message) error {
	if len(messages) == 0 {
		return nil
	}

	applied, skipped := 0, 0
	for _, msg := range messages {
		var ratingMessage KafkaRatingMessage
		if err := json.Unmarshal(msg.Value, &ratingMessage); err != nil {
			c.logger.Error("Failed to unmarshal message",
				"error", err,
				"key", msg.Key,
				"value", string(msg.Value))
			skipped++
			continue
		}

		_, err := c.rater.Rate(ctx, ratingMessage.Login, ratingMessage.MovieID, ratingMessage.Stars, ratingMessage.Comment)
		if err != nil {
			if errors.Is(err, domain.ErrValidation) || errors.Is(err, domain.ErrEntityNotFound) {
				c.logger.Warn("Skipping rating",
					"error", err,
					"key", msg.Key,
					"login", ratingMessage.Login,
					"movie_id", ratingMessage.MovieID)
				skipped++
				continue
			}
			return fmt.Errorf("RatingsConsumer.HandleMessages - rating from %s for %s: %w", ratingMessage.Login, ratingMessage.MovieID, err)
		}
		applied++
	}

	c.logger.Info("Ratings batch processed",
		"count", len(messages),
		"applied", applied,
		"skipped", skipped)
	return nil
}
