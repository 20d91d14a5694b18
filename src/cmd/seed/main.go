package main

import (
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"os"
	"time"

	"cineasts/src/bootstrap"
	"cineasts/src/domain"
	"cineasts/src/helper/env"
	"cineasts/src/services/catalog"

	"go.uber.org/fx"
)

//go:embed catalog.json
var demoCatalog []byte

type seedUser struct {
	Login    string `json:"login"`
	Name     string `json:"name"`
	Password string `json:"password"`
	Admin    bool   `json:"admin"`
}

type seedRating struct {
	Login   string `json:"login"`
	MovieID string `json:"movie_id"`
	Stars   int    `json:"stars"`
	Comment string `json:"comment"`
}

type seedFile struct {
	Movies      []domain.MovieImport `json:"movies"`
	Users       []seedUser           `json:"users"`
	Friendships [][2]string          `json:"friendships"`
	Ratings     []seedRating         `json:"ratings"`
}

func main() {
	log.SetOutput(os.Stdout)

	app := fx.New(
		bootstrap.CatalogModule,
		fx.NopLogger,
		fx.Invoke(runSeed),
	)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	if err := app.Start(ctx); err != nil {
		log.Fatalf("Seed failed: %v", err)
	}
	if err := app.Stop(ctx); err != nil {
		log.Printf("Failed to stop application gracefully: %v", err)
	}
}

func runSeed(lc fx.Lifecycle, logger *slog.Logger, catalogService *catalog.Catalog) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			return seed(ctx, logger, catalogService, env.GetBool("SEED_PURGE", false))
		},
	})
}

func seed(ctx context.Context, logger *slog.Logger, catalogService *catalog.Catalog, purge bool) error {
	var data seedFile
	if err := json.Unmarshal(demoCatalog, &data); err != nil {
		return fmt.Errorf("invalid seed file: %w", err)
	}

	if purge {
		if err := catalogService.Purge(ctx); err != nil {
			return err
		}
	}

	summary, err := catalogService.ImportMovies(ctx, data.Movies)
	if err != nil {
		return err
	}
	logger.Info("Movies imported", "movies", summary.Movies, "relationships", summary.Relationships)

	for _, user := range data.Users {
		roles := []domain.SecurityRole{domain.RoleUser}
		if user.Admin {
			roles = append(roles, domain.RoleAdmin)
		}
		_, err := catalogService.CreateUser(ctx, user.Login, user.Name, user.Password, roles...)
		if errors.Is(err, domain.ErrDuplicateKey) {
			logger.Debug("User already exists", "login", user.Login)
			continue
		}
		if err != nil {
			return err
		}
	}

	for _, pair := range data.Friendships {
		if _, err := catalogService.AddFriend(ctx, pair[0], pair[1]); err != nil {
			return err
		}
	}

	for _, rating := range data.Ratings {
		if _, err := catalogService.Rate(ctx, rating.Login, rating.MovieID, rating.Stars, rating.Comment); err != nil {
			return err
		}
	}

	logger.Info("Seed complete",
		"users", len(data.Users),
		"friendships", len(data.Friendships),
		"ratings", len(data.Ratings))
	return nil
}
