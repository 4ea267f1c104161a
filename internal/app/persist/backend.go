// Package persist saves and restores the playback cursor across restarts.
//
// Only the selected playlist title and track index are persisted; playlists
// are reloaded from their sources on startup.
package persist

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sync"

	"github.com/cockroachdb/errors"
	"github.com/redis/go-redis/v9"
)

// Snapshot is the persisted subset of the playback state.
type Snapshot struct {
	CurrentPlaylist string `json:"currentPlaylist"`
	CurrentMusic    int    `json:"currentMusic"`
}

// Backend stores a single snapshot.
type Backend interface {
	// Load returns the saved snapshot. The boolean is false when nothing has
	// been saved yet.
	Load(ctx context.Context) (Snapshot, bool, error)
	// Save replaces the saved snapshot.
	Save(ctx context.Context, s Snapshot) error
}

// FileBackend keeps the snapshot in a JSON file.
type FileBackend struct {
	path string
}

// NewFileBackend creates a backend writing to path.
func NewFileBackend(path string) *FileBackend {
	return &FileBackend{path: path}
}

// Load reads the snapshot file. A missing file is not an error.
func (b *FileBackend) Load(ctx context.Context) (Snapshot, bool, error) {
	data, err := os.ReadFile(b.path)
	if errors.Is(err, os.ErrNotExist) {
		return Snapshot{}, false, nil
	}
	if err != nil {
		return Snapshot{}, false, errors.Wrap(err, "failed to read snapshot file")
	}

	var s Snapshot
	if err := json.Unmarshal(data, &s); err != nil {
		return Snapshot{}, false, errors.Wrap(err, "failed to parse snapshot file")
	}
	return s, true, nil
}

// Save writes the snapshot to a temporary file and renames it into place.
func (b *FileBackend) Save(ctx context.Context, s Snapshot) error {
	data, err := json.Marshal(s)
	if err != nil {
		return errors.Wrap(err, "failed to marshal snapshot")
	}

	dir := filepath.Dir(b.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return errors.Wrap(err, "failed to create snapshot directory")
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(b.path)+".*.tmp")
	if err != nil {
		return errors.Wrap(err, "failed to create temp file")
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return errors.Wrap(err, "failed to write snapshot")
	}
	if err := tmp.Close(); err != nil {
		return errors.Wrap(err, "failed to close snapshot")
	}
	if err := os.Rename(tmp.Name(), b.path); err != nil {
		return errors.Wrap(err, "failed to replace snapshot file")
	}
	return nil
}

// RedisBackend keeps the snapshot as a JSON string under a single key.
type RedisBackend struct {
	client redis.Cmdable
	key    string
}

// RedisConfig represents Redis connection settings.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	Key      string
}

// NewRedisBackend connects to Redis and returns a backend together with the
// client, which the caller closes.
func NewRedisBackend(ctx context.Context, cfg RedisConfig) (*RedisBackend, *redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, nil, errors.Wrapf(err, "failed to connect to redis at %s", cfg.Addr)
	}

	return NewRedisBackendWithClient(client, cfg.Key), client, nil
}

// NewRedisBackendWithClient wraps an existing client.
func NewRedisBackendWithClient(client redis.Cmdable, key string) *RedisBackend {
	return &RedisBackend{client: client, key: key}
}

// Load reads the snapshot key. A missing key is not an error.
func (b *RedisBackend) Load(ctx context.Context) (Snapshot, bool, error) {
	data, err := b.client.Get(ctx, b.key).Bytes()
	if errors.Is(err, redis.Nil) {
		return Snapshot{}, false, nil
	}
	if err != nil {
		return Snapshot{}, false, errors.Wrap(err, "failed to read snapshot from redis")
	}

	var s Snapshot
	if err := json.Unmarshal(data, &s); err != nil {
		return Snapshot{}, false, errors.Wrap(err, "failed to parse snapshot from redis")
	}
	return s, true, nil
}

// Save writes the snapshot key without expiry.
func (b *RedisBackend) Save(ctx context.Context, s Snapshot) error {
	data, err := json.Marshal(s)
	if err != nil {
		return errors.Wrap(err, "failed to marshal snapshot")
	}
	if err := b.client.Set(ctx, b.key, data, 0).Err(); err != nil {
		return errors.Wrap(err, "failed to write snapshot to redis")
	}
	return nil
}

// MemoryBackend keeps the snapshot in memory. It is used by tests; the
// server disables persistence entirely for the "none" setting.
type MemoryBackend struct {
	mu    sync.Mutex
	snap  Snapshot
	saved bool
	saves int
}

// NewMemoryBackend creates an empty in-memory backend.
func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{}
}

// Load returns the last saved snapshot.
func (b *MemoryBackend) Load(ctx context.Context) (Snapshot, bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.snap, b.saved, nil
}

// Save stores the snapshot.
func (b *MemoryBackend) Save(ctx context.Context, s Snapshot) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.snap = s
	b.saved = true
	b.saves++
	return nil
}

// Saves returns how many times Save was called.
func (b *MemoryBackend) Saves() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.saves
}
