package cache

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strconv"
	"time"

	"github.com/geocoder89/usuarios/internal/domain/usuario"
	"github.com/redis/go-redis/v9"
)

const keyPrefix = "usuarios:v1:"

func usuarioKey(id int64) string {
	return keyPrefix + strconv.FormatInt(id, 10)
}

func tombstoneKey(id int64) string {
	return usuarioKey(id) + ":tomb"
}

// TombstoneTTL is how long a Delete on one instance blocks Set for the same
// id on every instance. It must outlast a backend read.
const TombstoneTTL = 10 * time.Second

// setUnlessTombstoned: KEYS[1] entry, KEYS[2] tombstone, ARGV[1] value,
// ARGV[2] ttl in ms.
var setUnlessTombstoned = redis.NewScript(`
if redis.call("EXISTS", KEYS[2]) == 1 then
	return 0
end
redis.call("SET", KEYS[1], ARGV[1], "PX", ARGV[2])
return 1
`)

// MemoryUsuarios caches get-one lookups inside this process.
type MemoryUsuarios struct {
	c *Cache[int64, usuario.Usuario]
}

func NewMemoryUsuarios(ttl time.Duration) *MemoryUsuarios {
	return &MemoryUsuarios{c: New[int64, usuario.Usuario](ttl)}
}

func (m *MemoryUsuarios) Get(_ context.Context, id int64) (usuario.Usuario, bool) {
	return m.c.Get(id)
}

func (m *MemoryUsuarios) Set(_ context.Context, u usuario.Usuario) {
	m.c.Set(u.ID, u)
}

func (m *MemoryUsuarios) Delete(_ context.Context, id int64) {
	m.c.Delete(id)
}

func (m *MemoryUsuarios) Ping(context.Context) error { return nil }

func (m *MemoryUsuarios) Close() error { return nil }

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// RedisUsuarios shares cached rows between API instances. Redis failures
// are logged and treated as misses; they never fail a request.
type RedisUsuarios struct {
	rdb *redis.Client
	ttl time.Duration
	log *slog.Logger
}

// NewRedisUsuarios does not dial; the first command does.
func NewRedisUsuarios(cfg RedisConfig, ttl time.Duration, log *slog.Logger) *RedisUsuarios {
	if log == nil {
		log = slog.Default()
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  2 * time.Second,
		ReadTimeout:  500 * time.Millisecond,
		WriteTimeout: 500 * time.Millisecond,
	})

	return &RedisUsuarios{rdb: rdb, ttl: ttl, log: log}
}

func (r *RedisUsuarios) Get(ctx context.Context, id int64) (usuario.Usuario, bool) {
	raw, err := r.rdb.Get(ctx, usuarioKey(id)).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			r.log.WarnContext(ctx, "cache_get_failed", "id", id, "err", err)
		}
		return usuario.Usuario{}, false
	}

	var u usuario.Usuario
	if err := json.Unmarshal(raw, &u); err != nil {
		r.log.WarnContext(ctx, "cache_decode_failed", "id", id, "err", err)
		return usuario.Usuario{}, false
	}

	return u, true
}

// Set is skipped while a tombstone for u.ID exists, so a read that raced a
// write on another instance cannot bring the old row back.
func (r *RedisUsuarios) Set(ctx context.Context, u usuario.Usuario) {
	raw, err := json.Marshal(u)
	if err != nil {
		return
	}

	ttl := max(r.ttl.Milliseconds(), 1)

	err = setUnlessTombstoned.Run(ctx, r.rdb, []string{usuarioKey(u.ID), tombstoneKey(u.ID)}, raw, ttl).Err()
	if err != nil {
		r.log.WarnContext(ctx, "cache_set_failed", "id", u.ID, "err", err)
	}
}

// Delete drops the entry and leaves a tombstone for TombstoneTTL.
func (r *RedisUsuarios) Delete(ctx context.Context, id int64) {
	_, err := r.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, tombstoneKey(id), 1, TombstoneTTL)
		pipe.Del(ctx, usuarioKey(id))
		return nil
	})
	if err != nil {
		r.log.WarnContext(ctx, "cache_delete_failed", "id", id, "err", err)
	}
}

func (r *RedisUsuarios) Ping(ctx context.Context) error {
	return r.rdb.Ping(ctx).Err()
}

func (r *RedisUsuarios) Close() error {
	return r.rdb.Close()
}
