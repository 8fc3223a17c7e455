// Command seed fills the database with demo users, items, favorites and
// follows. It is idempotent per user: existing demo accounts are reused.
//
//	DB_PATH=data/marketplace.db go run ./cmd/seed -items 30
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/sakif/marketplace-api/internal/apperror"
	"github.com/sakif/marketplace-api/internal/auth"
	"github.com/sakif/marketplace-api/internal/logger"
	"github.com/sakif/marketplace-api/internal/model"
	sqliteRepo "github.com/sakif/marketplace-api/internal/repository/sqlite"
)

const demoPassword = "password123"

var demoUsers = []struct {
	username, bio string
	verified      bool
}{
	{"alice", "Vintage lamps and furniture", true},
	{"bob", "Vinyl collector", false},
	{"carol", "Handmade ceramics", true},
}

var demoTags = [][]string{
	{"home", "vintage"},
	{"music"},
	{"ceramics", "handmade"},
	{},
}

func main() {
	dbPath := flag.String("db", envOr("DB_PATH", "data/marketplace.db"), "SQLite database path")
	perSeller := flag.Int("items", 10, "items to create per seller")
	flag.Parse()

	log := logger.New(os.Stdout, envOr("LOG_LEVEL", "info"), envOr("LOG_FORMAT", "text"))

	if err := run(context.Background(), log, *dbPath, *perSeller); err != nil {
		log.Error("seeding failed", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

func run(ctx context.Context, log *slog.Logger, dbPath string, perSeller int) error {
	if dbPath != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
			return fmt.Errorf("creating database directory: %w", err)
		}
	}

	db, err := sqliteRepo.New(dbPath)
	if err != nil {
		return err
	}
	defer db.Close()

	passwords := auth.NewPasswordServiceWithCost(auth.DefaultCost)
	hash, err := passwords.Hash(demoPassword)
	if err != nil {
		return err
	}

	users := make([]*model.User, 0, len(demoUsers))
	for _, d := range demoUsers {
		u := &model.User{
			Username:     d.username,
			Email:        d.username + "@example.com",
			Bio:          d.bio,
			IsVerified:   d.verified,
			PasswordHash: hash,
		}
		err := db.CreateUser(ctx, u)
		if errors.Is(err, apperror.ErrConflict) {
			existing, getErr := db.GetUserByEmail(ctx, u.Email)
			if getErr != nil {
				return getErr
			}
			log.Info("user exists, reusing", slog.String("username", existing.Username))
			users = append(users, existing)
			continue
		}
		if err != nil {
			return err
		}
		log.Info("user created", slog.String("username", u.Username))
		users = append(users, u)
	}

	var itemIDs []string
	for i, seller := range users {
		for n := 1; n <= perSeller; n++ {
			it := &model.Item{
				Title:       fmt.Sprintf("%s's item #%d", seller.Username, n),
				Description: "Demo listing",
				TagList:     demoTags[(i+n)%len(demoTags)],
				SellerID:    seller.ID,
			}
			if err := db.CreateItem(ctx, it); err != nil {
				return err
			}
			itemIDs = append(itemIDs, it.ID)
		}
	}

	// Every user follows the next one and favorites every third item.
	for i, u := range users {
		next := users[(i+1)%len(users)]
		if next.ID != u.ID {
			if err := db.Follow(ctx, u.ID, next.ID); err != nil {
				return err
			}
		}
		for j := i; j < len(itemIDs); j += 3 {
			if err := db.AddFavorite(ctx, u.ID, itemIDs[j]); err != nil {
				return err
			}
		}
	}

	log.Info("seed complete",
		slog.Int("users", len(users)),
		slog.Int("items", len(itemIDs)),
		slog.String("password", demoPassword),
	)
	return nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
