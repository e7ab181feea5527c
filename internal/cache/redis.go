// internal/cache/redis.go
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// Rdb is the global Redis client. Connect it once at application startup.
// When nil, journaling and surface persistence are disabled and the engine
// runs purely in memory.
var Rdb *redis.Client

// DefaultQueueName is the Redis list (queue) name for room event journal records.
var DefaultQueueName = "skrawl_events"

// surfaceKeyPrefix namespaces persisted canvas blobs per room code.
const surfaceKeyPrefix = "skrawl:surface:"

// RoomEventRecord holds the minimal info an external consumer needs to replay
// or audit what happened in a room.
type RoomEventRecord struct {
	RoomCode  string                 `json:"room_code"`
	Seq       int                    `json:"seq"`
	Actor     string                 `json:"actor"`
	EventType string                 `json:"event_type"`
	Payload   map[string]interface{} `json:"payload"`
	Timestamp int64                  `json:"timestamp"`
}

// ConnectRedis initializes the global Redis client with environment variables:
//   - REDIS_ADDR (default "localhost:6379")
//   - REDIS_DB (optional, default 0)
func ConnectRedis() error {
	addr := getEnv("REDIS_ADDR", "localhost:6379")
	dbIdx := getEnvInt("REDIS_DB", 0)

	Rdb = redis.NewClient(&redis.Options{
		Addr: addr,
		DB:   dbIdx,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := Rdb.Ping(ctx).Err(); err != nil {
		Rdb = nil
		return fmt.Errorf("failed to connect to Redis at %s: %w", addr, err)
	}
	return nil
}

// Enabled reports whether a Redis connection is available.
func Enabled() bool {
	return Rdb != nil
}

// PublishRoomEvent serializes the given record to JSON, then pushes it onto
// the journal queue. This does not block the calling logic (other than a
// quick network send).
func PublishRoomEvent(ctx context.Context, record RoomEventRecord) error {
	if Rdb == nil {
		return nil
	}
	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("failed to marshal RoomEventRecord: %w", err)
	}

	queueName := getEnv("JOURNAL_QUEUE_NAME", DefaultQueueName)
	if err := Rdb.RPush(ctx, queueName, data).Err(); err != nil {
		return fmt.Errorf("failed to RPush to Redis list '%s': %w", queueName, err)
	}
	return nil
}

// SurfaceStore persists canvas surface blobs keyed by room code. It satisfies
// the room package's surface persistence hooks.
type SurfaceStore struct{}

// Save stores the surface blob for a room. An empty blob deletes the entry.
func (SurfaceStore) Save(ctx context.Context, roomCode string, blob []byte) error {
	if Rdb == nil {
		return nil
	}
	key := surfaceKeyPrefix + roomCode
	if len(blob) == 0 {
		if err := Rdb.Del(ctx, key).Err(); err != nil {
			return fmt.Errorf("failed to delete surface blob for room %s: %w", roomCode, err)
		}
		return nil
	}
	if err := Rdb.Set(ctx, key, blob, 0).Err(); err != nil {
		return fmt.Errorf("failed to store surface blob for room %s: %w", roomCode, err)
	}
	return nil
}

// Load fetches the persisted surface blob for a room, or nil when absent.
func (SurfaceStore) Load(ctx context.Context, roomCode string) ([]byte, error) {
	if Rdb == nil {
		return nil, nil
	}
	blob, err := Rdb.Get(ctx, surfaceKeyPrefix+roomCode).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load surface blob for room %s: %w", roomCode, err)
	}
	return blob, nil
}

// getEnv is a helper to read an environment variable or return a default value.
func getEnv(key, def string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return def
}

// getEnvInt is a helper to parse an environment variable as integer, else a default value.
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
