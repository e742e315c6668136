package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"strconv"
	"time"

	"github.com/jhoicas/inventario-ledger/internal/application/inventory"
	"github.com/jhoicas/inventario-ledger/internal/domain/entity"
	"github.com/jhoicas/inventario-ledger/pkg/config"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
)

const (
	itemKeyPrefix   = "ledger:item:"
	defaultCacheTTL = time.Minute
)

var (
	_ inventory.ItemCache = (*redisItemCache)(nil)
	_ inventory.ItemCache = (*noopItemCache)(nil)
)

type redisItemCache struct {
	client *redis.Client
	ttl    time.Duration
}

type noopItemCache struct{}

// cachedItem forma serializada de la proyección del ítem.
type cachedItem struct {
	ID              string          `json:"id"`
	QuantityOnHand  decimal.Decimal `json:"quantity_on_hand"`
	MinimumQuantity decimal.Decimal `json:"minimum_quantity"`
	AverageCost     decimal.Decimal `json:"average_cost"`
	Version         int64           `json:"version"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

// NewItemCache caché Redis de la proyección del ítem, o no-op si está deshabilitada.
func NewItemCache(cfg config.CacheConfig) (inventory.ItemCache, error) {
	if !cfg.Enabled {
		return &noopItemCache{}, nil
	}
	client, ttl, err := newRedisClient(cfg)
	if err != nil {
		return nil, err
	}
	return &redisItemCache{client: client, ttl: ttl}, nil
}

// NewRedisItemCache caché sobre un cliente existente.
func NewRedisItemCache(client *redis.Client, ttl time.Duration) inventory.ItemCache {
	if ttl <= 0 {
		ttl = defaultCacheTTL
	}
	return &redisItemCache{client: client, ttl: ttl}
}

// NewNoopItemCache caché deshabilitada.
func NewNoopItemCache() inventory.ItemCache {
	return &noopItemCache{}
}

func itemKey(id string) string {
	return itemKeyPrefix + id
}

func (c *redisItemCache) Get(ctx context.Context, id string) (*entity.StockItem, bool, error) {
	payload, err := c.client.Get(ctx, itemKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis get failed: %w", err)
	}
	var ci cachedItem
	if err := json.Unmarshal(payload, &ci); err != nil {
		return nil, false, fmt.Errorf("decode item cache: %w", err)
	}
	return &entity.StockItem{
		ID:              ci.ID,
		QuantityOnHand:  ci.QuantityOnHand,
		MinimumQuantity: ci.MinimumQuantity,
		AverageCost:     ci.AverageCost,
		Version:         ci.Version,
		CreatedAt:       ci.CreatedAt,
		UpdatedAt:       ci.UpdatedAt,
	}, true, nil
}

// Set guarda la proyección solo si no hay una versión más nueva en caché (WATCH/MULTI).
// Si otra escritura compite por la misma clave se borra la entrada y la próxima lectura va a la BD.
func (c *redisItemCache) Set(ctx context.Context, item *entity.StockItem) error {
	payload, err := json.Marshal(cachedItem{
		ID:              item.ID,
		QuantityOnHand:  item.QuantityOnHand,
		MinimumQuantity: item.MinimumQuantity,
		AverageCost:     item.AverageCost,
		Version:         item.Version,
		CreatedAt:       item.CreatedAt,
		UpdatedAt:       item.UpdatedAt,
	})
	if err != nil {
		return fmt.Errorf("encode item cache: %w", err)
	}
	key := itemKey(item.ID)
	err = c.client.Watch(ctx, func(tx *redis.Tx) error {
		current, err := tx.Get(ctx, key).Bytes()
		if err != nil && !errors.Is(err, redis.Nil) {
			return err
		}
		if err == nil && !replacesCached(current, item.Version) {
			return nil
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, payload, c.ttl)
			return nil
		})
		return err
	}, key)
	if errors.Is(err, redis.TxFailedErr) {
		return c.Invalidate(ctx, item.ID)
	}
	if err != nil {
		return fmt.Errorf("redis set failed: %w", err)
	}
	return nil
}

// replacesCached indica si una proyección con version puede pisar la entrada guardada.
// Una entrada ilegible siempre se reemplaza.
func replacesCached(current []byte, version int64) bool {
	var ci cachedItem
	if err := json.Unmarshal(current, &ci); err != nil {
		return true
	}
	return version >= ci.Version
}

func (c *redisItemCache) Invalidate(ctx context.Context, id string) error {
	if err := c.client.Del(ctx, itemKey(id)).Err(); err != nil {
		return fmt.Errorf("redis delete failed: %w", err)
	}
	return nil
}

func (c *noopItemCache) Get(context.Context, string) (*entity.StockItem, bool, error) {
	return nil, false, nil
}

func (c *noopItemCache) Set(context.Context, *entity.StockItem) error { return nil }

func (c *noopItemCache) Invalidate(context.Context, string) error { return nil }

func newRedisClient(cfg config.CacheConfig) (*redis.Client, time.Duration, error) {
	opts, err := buildRedisOptions(cfg)
	if err != nil {
		return nil, 0, err
	}
	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, 0, fmt.Errorf("redis ping failed: %w", err)
	}

	ttl := time.Duration(cfg.TTLSeconds) * time.Second
	if ttl <= 0 {
		ttl = defaultCacheTTL
	}
	return client, ttl, nil
}

func buildRedisOptions(cfg config.CacheConfig) (*redis.Options, error) {
	if cfg.RedisURL != "" {
		opt, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			return nil, fmt.Errorf("invalid redis url: %w", err)
		}
		return opt, nil
	}
	host := cfg.RedisHost
	if host == "" {
		host = "127.0.0.1"
	}
	port := cfg.RedisPort
	if port <= 0 {
		port = 6379
	}
	return &redis.Options{
		Addr:     net.JoinHostPort(host, strconv.Itoa(port)),
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	}, nil
}
