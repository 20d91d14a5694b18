// Package bootstrap reúne os providers fx compartilhados pelos binários em
// src/cmd. A configuração vem toda de variáveis de ambiente.
package bootstrap

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"cineasts/src/domain"
	"cineasts/src/helper/env"
	"cineasts/src/infra/kafka"
	"cineasts/src/infra/memgraph"
	neo4jinfra "cineasts/src/infra/neo4j"
	"cineasts/src/infra/postgres"
	"cineasts/src/infra/redis"
	"cineasts/src/repositories"
	"cineasts/src/services/catalog"
	"cineasts/src/services/events"

	"go.uber.org/fx"
)

const (
	StoreMemory   = "memory"
	StorePostgres = "postgres"
	StoreNeo4j    = "neo4j"
)

// CatalogModule provê o catálogo completo: logger, store (com cache quando
// REDIS_HOSTS estiver definido) e publicação de eventos quando KAFKA_BROKERS
// estiver definido.
var CatalogModule = fx.Options(
	fx.Provide(
		NewLogger,
		NewGraphStore,
		NewEventPublisher,
		catalog.NewCatalog,
	),
)

func NewLogger() *slog.Logger {
	logLevel := env.GetString("LOG_LEVEL", "info")
	var level slog.Level

	switch logLevel {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	h := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level})
	logger := slog.New(h)
	slog.SetDefault(logger)
	return logger
}

// NewGraphStore escolhe o backend por GRAPH_STORE (memory, postgres, neo4j).
func NewGraphStore(lc fx.Lifecycle, logger *slog.Logger) (repositories.GraphStore, error) {
	var store repositories.GraphStore

	backend := env.GetString("GRAPH_STORE", StoreMemory)
	switch backend {
	case StoreMemory:
		store = memgraph.NewStore()

	case StorePostgres:
		readWriteClient, err := newReadWriteClient()
		if err != nil {
			return nil, err
		}
		lc.Append(fx.Hook{
			OnStart: func(ctx context.Context) error {
				return postgres.EnsureSchema(ctx, readWriteClient.GetWritePool())
			},
			OnStop: func(ctx context.Context) error {
				readWriteClient.Close()
				return nil
			},
		})
		store = repositories.NewPostgresGraphStore(readWriteClient)

	case StoreNeo4j:
		client, err := neo4jinfra.NewNeo4jClient(
			env.MustGetString("NEO4J_URI"),
			env.GetString("NEO4J_USERNAME"),
			env.GetString("NEO4J_PASSWORD"),
			env.GetString("NEO4J_DATABASE"),
		)
		if err != nil {
			return nil, err
		}
		lc.Append(fx.Hook{
			OnStart: func(ctx context.Context) error {
				return client.EnsureConstraints(ctx, labels())
			},
			OnStop: func(ctx context.Context) error {
				return client.Close(ctx)
			},
		})
		store = repositories.NewNeo4jGraphStore(client)

	default:
		return nil, fmt.Errorf("unknown GRAPH_STORE %q", backend)
	}

	logger.Info("Graph store configured", "backend", backend)

	if env.GetString("REDIS_HOSTS") == "" {
		return store, nil
	}

	redisClient := newRedisClient()
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			if err := redisClient.HealthCheck(ctx); err != nil {
				logger.Warn("Redis unavailable, reads will go to the store", "error", err)
			}
			return nil
		},
		OnStop: func(ctx context.Context) error {
			return redisClient.Close()
		},
	})
	logger.Info("Graph query cache enabled")
	return repositories.NewCachedGraphStore(store, redisClient), nil
}

// NewEventPublisher devolve nil (sem publicação) quando KAFKA_BROKERS não
// está definido.
func NewEventPublisher(lc fx.Lifecycle, logger *slog.Logger) (catalog.EventPublisher, error) {
	brokers := env.GetString("KAFKA_BROKERS")
	if brokers == "" {
		logger.Info("KAFKA_BROKERS not set, domain events will not be published")
		return nil, nil
	}

	kafkaClient, err := kafka.NewKafkaProducerClient(brokers)
	if err != nil {
		return nil, err
	}
	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			return kafkaClient.Close()
		},
	})

	topic := env.GetString("KAFKA_DOMAIN_EVENTS_TOPIC", "cineasts.domain-events")
	return events.NewDomainEventPublisher(logger, kafkaClient, topic), nil
}

func newReadWriteClient() (*postgres.ReadWriteClient, error) {
	dbWriteHost := env.MustGetString("DB_WRITE_HOST")
	dbReadHost := env.GetString("DB_READ_HOST", dbWriteHost)
	dbWritePort := env.GetString("DB_WRITE_PORT", "5432")
	dbReadPort := env.GetString("DB_READ_PORT", dbWritePort)
	dbname := env.MustGetString("DB_NAME")
	dbUser := env.MustGetString("DB_USER")
	dbPassword := env.MustGetString("DB_PASSWORD")
	maxConnections := env.GetInt("DB_MAX_POOL_CONNECTIONS", 25)

	return postgres.NewReadWriteClient(dbReadHost, dbWriteHost, dbReadPort, dbWritePort, dbname, dbUser, dbPassword, maxConnections)
}

func newRedisClient() *redis.RedisClient {
	redisHosts := env.MustGetString("REDIS_HOSTS")
	redisPoolSize := env.GetInt("REDIS_POOL_SIZE", 50)
	redisDefaultTTL := env.GetDuration("REDIS_DEFAULT_TTL", 120*time.Second)

	return redis.NewRedisClient(redisHosts, redisPoolSize, redisDefaultTTL).
		WithPrefix(env.GetString("REDIS_KEY_PREFIX", "cineasts:"))
}

func labels() []string {
	return []string{
		string(domain.LabelActor),
		string(domain.LabelDirector),
		string(domain.LabelMovie),
		string(domain.LabelUser),
	}
}
