package consumers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"cineasts/src/domain"
	"cineasts/src/infra/kafka"
)

// MovieImporter é o pedaço do catálogo usado pelo consumer.
type MovieImporter interface {
	ImportMovies(ctx context.Context, movies []domain.MovieImport) (domain.ImportSummary, error)
}

type MoviesConsumer struct {
	logger   *slog.Logger
	importer MovieImporter
}

func NewMoviesConsumer(
	logger *slog.Logger,
	importer MovieImporter,
) *MoviesConsumer {
	return &MoviesConsumer{
		logger:   logger,
		importer: importer,
	}
}

func (c *MoviesConsumer) Start(ctx context.Context, kafkaClient *kafka.KafkaClient, topic string) error {
	c.logger.Info("Starting movies consumer", "topic", topic)
	return kafkaClient.Consumer(ctx, c.HandleMessages, topic)
}

// HandleMessages grava o lote inteiro numa transação. Mensagens repetidas
// para o mesmo filme são aplicadas na ordem em que chegaram.
func (c *MoviesConsumer) HandleMessages(ctx context.Context, messages []kafka.Message) error {
	if len(messages) == 0 {
		return nil
	}

	movies := make([]domain.MovieImport, 0, len(messages))
	for _, msg := range messages {
		var movie domain.MovieImport
		if err := json.Unmarshal(msg.Value, &movie); err != nil {
			c.logger.Error("Failed to unmarshal message",
				"error", err,
				"key", msg.Key,
				"value", string(msg.Value))
			continue
		}

		if movie.ID == "" {
			c.logger.Warn("Skipping movie without id", "key", msg.Key)
			continue
		}

		movies = append(movies, movie)
	}

	summary, err := c.importer.ImportMovies(ctx, movies)
	if errors.Is(err, domain.ErrValidation) {
		// um filme inválido não pode travar o lote: aplica um a um
		summary, err = c.importOneByOne(ctx, movies)
	}
	if err != nil {
		c.logger.Error("Failed to import movies",
			"error", err,
			"moviesCount", len(movies))
		return fmt.Errorf("MoviesConsumer.HandleMessages - %w", err)
	}

	c.logger.Info("Successfully processed messages batch",
		"count", len(messages),
		"moviesCount", summary.Movies,
		"relationshipsCount", summary.Relationships)
	return nil
}

func (c *MoviesConsumer) importOneByOne(ctx context.Context, movies []domain.MovieImport) (domain.ImportSummary, error) {
	var total domain.ImportSummary
	for _, movie := range movies {
		summary, err := c.importer.ImportMovies(ctx, []domain.MovieImport{movie})
		if errors.Is(err, domain.ErrValidation) {
			c.logger.Warn("Skipping invalid movie", "error", err, "movie_id", movie.ID)
			continue
		}
		if err != nil {
			return total, err
		}
		total.Movies += summary.Movies
		total.Relationships += summary.Relationships
		total.Events += summary.Events
	}
	return total, nil
}
