// cmd/server/main.go
package main

import (
	"context"
	"net/http"
	"os"
	"strconv"
	"time"

	_ "github.com/joho/godotenv/autoload"
	"github.com/sirupsen/logrus"

	"github.com/skrawlhq/skrawl/internal/auth"
	"github.com/skrawlhq/skrawl/internal/cache"
	"github.com/skrawlhq/skrawl/internal/handlers"
	"github.com/skrawlhq/skrawl/internal/middleware"
	"github.com/skrawlhq/skrawl/internal/room"
	"github.com/skrawlhq/skrawl/internal/words"
)

func main() {
	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	auth.Init()

	// Redis is optional: without it the engine skips journaling and surface
	// persistence but plays fine.
	var store room.SurfaceStore
	if err := cache.ConnectRedis(); err != nil {
		logger.Warnf("redis unavailable, journaling and surface persistence disabled: %v", err)
	} else {
		store = cache.SurfaceStore{}
		logger.Info("connected to redis")
	}

	bank := words.NewBank(loadWordList(logger))
	logger.WithField("words", bank.Size()).Info("word bank ready")

	reg := room.NewRegistry(bank, store)
	reg.RoundDuration = time.Duration(getEnvInt("ROUND_SECONDS", 80)) * time.Second
	reg.MaxRounds = getEnvInt("MAX_ROUNDS", 5)

	mw := middleware.LogMiddleware(logger)
	mux := http.NewServeMux()
	mux.Handle("/rooms/create", mw(handlers.CreateRoomHandler(logger, reg)))
	mux.Handle("/rooms/join", mw(handlers.JoinRoomHandler(logger, reg)))
	mux.Handle("/rooms/", mw(handlers.RoomHandler(logger, reg)))
	mux.Handle("/ws", handlers.RoomWSHandler(logger, reg))

	port := getEnv("PORT", "8080")
	logger.Infof("skrawl server listening on :%s", port)
	if err := http.ListenAndServe(":"+port, mux); err != nil {
		logger.Fatalf("server error: %v", err)
	}
}

// loadWordList prefers a Postgres word bank when WORDS_DATABASE_URL is set,
// falling back to the embedded list on any failure.
func loadWordList(logger *logrus.Logger) []string {
	connString := os.Getenv("WORDS_DATABASE_URL")
	if connString == "" {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	list, err := words.LoadFromPostgres(ctx, connString)
	if err != nil {
		logger.Warnf("failed to load words from postgres, using embedded list: %v", err)
		return nil
	}
	logger.WithField("count", len(list)).Info("loaded word list from postgres")
	return list
}

func getEnv(key, def string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return def
}

func getEnvInt(key string, def int) int {
	s := os.Getenv(key)
	if s == "" {
		return def
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return v
}
