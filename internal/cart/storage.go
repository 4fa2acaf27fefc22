package cart

import (
	"context"
	"sync"
	"time"

	"github.com/angelmondragon/loupes-storefront/internal/repo"
	"github.com/angelmondragon/loupes-storefront/pkg/db/models"
	pkgredis "github.com/angelmondragon/loupes-storefront/pkg/redis"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Storage persists one serialized cart blob per key. Load returns nil data
// and a nil error when nothing is stored under key.
type Storage interface {
	Load(ctx context.Context, key string) ([]byte, error)
	Save(ctx context.Context, key string, blob []byte) error
	Name() string
}

// MemoryStorage keeps blobs in process memory.
type MemoryStorage struct {
	mu    sync.RWMutex
	blobs map[string][]byte
}

func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{blobs: make(map[string][]byte)}
}

func (m *MemoryStorage) Load(_ context.Context, key string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	data, ok := m.blobs[key]
	if !ok {
		return nil, nil
	}
	return append([]byte(nil), data...), nil
}

func (m *MemoryStorage) Save(_ context.Context, key string, blob []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.blobs[key] = append([]byte(nil), blob...)
	return nil
}

// Put writes raw bytes under key, bypassing encoding.
func (m *MemoryStorage) Put(key string, raw []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.blobs[key] = raw
}

func (m *MemoryStorage) Name() string { return "memory" }

type blobCache interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
}

// RedisStorage keeps blobs in redis, refreshing the TTL on every write.
type RedisStorage struct {
	client blobCache
	ttl    time.Duration
}

func NewRedisStorage(client blobCache, ttl time.Duration) *RedisStorage {
	return &RedisStorage{client: client, ttl: ttl}
}

func (r *RedisStorage) Load(ctx context.Context, key string) ([]byte, error) {
	val, err := r.client.Get(ctx, key)
	if err != nil {
		if pkgredis.IsNil(err) {
			return nil, nil
		}
		return nil, err
	}
	return []byte(val), nil
}

func (r *RedisStorage) Save(ctx context.Context, key string, blob []byte) error {
	return r.client.Set(ctx, key, blob, r.ttl)
}

func (r *RedisStorage) Name() string { return "redis" }

// DBStorage keeps blobs in the cart_blobs table.
type DBStorage struct {
	repo.Base
	now func() time.Time
}

func NewDBStorage(db *gorm.DB) *DBStorage {
	return &DBStorage{Base: repo.NewBase(db), now: time.Now}
}

func (d *DBStorage) Load(ctx context.Context, key string) ([]byte, error) {
	var row models.CartBlob
	err := d.DB(ctx).Where("key = ?", key).Limit(1).Find(&row).Error
	if err != nil {
		return nil, err
	}
	if row.Key == "" {
		return nil, nil
	}
	return row.Payload, nil
}

func (d *DBStorage) Save(ctx context.Context, key string, blob []byte) error {
	row := models.CartBlob{Key: key, Payload: blob, UpdatedAt: d.now().UTC()}
	return d.DB(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"payload", "updated_at"}),
	}).Create(&row).Error
}

func (d *DBStorage) Name() string { return "db" }

// DeleteIdleBefore removes blobs not written since cutoff and reports how many went.
func (d *DBStorage) DeleteIdleBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res := d.DB(ctx).Where("updated_at < ?", cutoff.UTC()).Delete(&models.CartBlob{})
	return res.RowsAffected, res.Error
}
