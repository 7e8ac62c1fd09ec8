package redis

import (
	"context"
	"strings"
	"time"

	sonic "github.com/bytedance/sonic"
	crerr "github.com/cockroachdb/errors"
	goredis "github.com/redis/go-redis/v9"
	"github.com/riskibarqy/matchday-relay/internal/domain/idempotency"
)

const DefaultKeyPrefix = "matchday-relay:idem:"

type Options struct {
	Addr      string
	Password  string
	DB        int
	KeyPrefix string
	Timeout   time.Duration
}

// NewClient opens a client and pings it once so a bad address fails startup.
func NewClient(ctx context.Context, opts Options) (*goredis.Client, error) {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 3 * time.Second
	}
	client := goredis.NewClient(&goredis.Options{
		Addr:         opts.Addr,
		Password:     opts.Password,
		DB:           opts.DB,
		ReadTimeout:  timeout,
		WriteTimeout: timeout,
	})

	pingCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, crerr.Wrapf(err, "ping redis addr=%s", opts.Addr)
	}
	return client, nil
}

type storedRecord struct {
	CreatedAt time.Time `json:"created_at"`
	TTLMillis int64     `json:"ttl_ms"`
}

// IdempotencyRepository relies on SET NX for write-if-absent and on key
// expiry for the TTL, so expired keys simply disappear.
type IdempotencyRepository struct {
	client goredis.Cmdable
	prefix string
}

func NewIdempotencyRepository(client goredis.Cmdable, prefix string) *IdempotencyRepository {
	if strings.TrimSpace(prefix) == "" {
		prefix = DefaultKeyPrefix
	}
	return &IdempotencyRepository{client: client, prefix: prefix}
}

func (r *IdempotencyRepository) Get(ctx context.Context, key string) (idempotency.Record, bool, error) {
	raw, err := r.client.Get(ctx, r.prefix+key).Bytes()
	if err != nil {
		if crerr.Is(err, goredis.Nil) {
			return idempotency.Record{}, false, nil
		}
		return idempotency.Record{}, false, crerr.Wrapf(err, "redis get key=%s", key)
	}
	rec, err := decodeRecord(key, raw)
	if err != nil {
		return idempotency.Record{}, false, err
	}
	return rec, true, nil
}

func (r *IdempotencyRepository) PutIfAbsent(ctx context.Context, rec idempotency.Record) (bool, error) {
	raw, err := encodeRecord(rec)
	if err != nil {
		return false, err
	}
	// A zero expiration keeps the key until evicted.
	ok, err := r.client.SetNX(ctx, r.prefix+rec.Key, raw, rec.TTL).Result()
	if err != nil {
		return false, crerr.Wrapf(err, "redis setnx key=%s", rec.Key)
	}
	return ok, nil
}

func encodeRecord(rec idempotency.Record) ([]byte, error) {
	raw, err := sonic.Marshal(storedRecord{
		CreatedAt: rec.CreatedAt.UTC(),
		TTLMillis: rec.TTL.Milliseconds(),
	})
	if err != nil {
		return nil, crerr.Wrapf(err, "encode idempotency record key=%s", rec.Key)
	}
	return raw, nil
}

func decodeRecord(key string, raw []byte) (idempotency.Record, error) {
	var stored storedRecord
	if err := sonic.Unmarshal(raw, &stored); err != nil {
		return idempotency.Record{}, crerr.Wrapf(err, "decode idempotency record key=%s", key)
	}
	return idempotency.Record{
		Key:       key,
		CreatedAt: stored.CreatedAt.UTC(),
		TTL:       time.Duration(stored.TTLMillis) * time.Millisecond,
	}, nil
}
