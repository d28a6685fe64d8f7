package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"github.com/coder/quartz"
	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"github.com/lox/blackjack/internal/game"
	"github.com/mitchellh/mapstructure"
)

const lockRetryInterval = 20 * time.Millisecond

// unlockScript deletes the lock only if it still holds our token, so an
// expired lock taken over by another caller is never released by us.
var unlockScript = redis.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
end
return 0
`)

// writeScript sets the session hash in one step, but only when the key's
// existence matches ARGV[1]: "0" to create, "1" to update. A session deleted
// while a writer was busy therefore stays deleted.
var writeScript = redis.NewScript(`
if redis.call("exists", KEYS[1]) ~= tonumber(ARGV[1]) then
	return 0
end
redis.call("hset", KEYS[1], unpack(ARGV, 2))
return 1
`)

// RedisOptions configures a RedisStore
type RedisOptions struct {
	Addr      string
	Password  string
	DB        int
	KeyPrefix string
	LockTTL   time.Duration
}

// RedisStore keeps each session in a hash at <prefix>session:<id> with the
// fields state (round JSON), created_at, updated_at and version. Locks are
// plain keys at <prefix>lock:<id> taken with SETNX.
type RedisStore struct {
	rdb     *redis.Client
	prefix  string
	lockTTL time.Duration
	clock   quartz.Clock
	logger  *log.Logger
}

// redisRecord is the flat hash form of a Record
type redisRecord struct {
	State     string    `mapstructure:"state"`
	CreatedAt time.Time `mapstructure:"created_at"`
	UpdatedAt time.Time `mapstructure:"updated_at"`
	Version   int64     `mapstructure:"version"`
}

// NewRedisStore connects to redis and checks the connection
func NewRedisStore(ctx context.Context, opts RedisOptions, logger *log.Logger) (*RedisStore, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("connect to redis at %s: %w", opts.Addr, err)
	}
	s := NewRedisStoreFromClient(rdb, opts.KeyPrefix, opts.LockTTL, logger)
	s.logger.Info("Connected to redis", "addr", opts.Addr, "db", opts.DB, "prefix", opts.KeyPrefix)
	return s, nil
}

// NewRedisStoreFromClient wraps an existing client
func NewRedisStoreFromClient(rdb *redis.Client, prefix string, lockTTL time.Duration, logger *log.Logger) *RedisStore {
	if lockTTL <= 0 {
		lockTTL = 5 * time.Second
	}
	return &RedisStore{
		rdb:     rdb,
		prefix:  prefix,
		lockTTL: lockTTL,
		clock:   quartz.NewReal(),
		logger:  logger.WithPrefix("redis"),
	}
}

func (s *RedisStore) sessionKey(id string) string {
	return s.prefix + "session:" + id
}

func (s *RedisStore) lockKey(id string) string {
	return s.prefix + "lock:" + id
}

func (s *RedisStore) Create(ctx context.Context, rec *Record) error {
	ok, err := s.write(ctx, rec, false)
	if err != nil {
		return fmt.Errorf("create session %s: %w", rec.ID, err)
	}
	if !ok {
		return ErrExists
	}
	return nil
}

func (s *RedisStore) Get(ctx context.Context, id string) (*Record, error) {
	fields, err := s.rdb.HGetAll(ctx, s.sessionKey(id)).Result()
	if err != nil {
		return nil, fmt.Errorf("get session %s: %w", id, err)
	}
	if len(fields) == 0 {
		return nil, ErrNotFound
	}
	rec, err := decodeRecord(fields)
	if err != nil {
		return nil, fmt.Errorf("decode session %s: %w", id, err)
	}
	rec.ID = id
	return rec, nil
}

func (s *RedisStore) Put(ctx context.Context, rec *Record) error {
	ok, err := s.write(ctx, rec, true)
	if err != nil {
		return fmt.Errorf("put session %s: %w", rec.ID, err)
	}
	if !ok {
		return ErrNotFound
	}
	return nil
}

// write runs writeScript and reports whether the hash was written
func (s *RedisStore) write(ctx context.Context, rec *Record, exists bool) (bool, error) {
	fields, err := encodeRecord(rec)
	if err != nil {
		return false, err
	}
	args := make([]any, 0, 1+2*len(fields))
	if exists {
		args = append(args, 1)
	} else {
		args = append(args, 0)
	}
	for k, v := range fields {
		args = append(args, k, v)
	}
	n, err := writeScript.Run(ctx, s.rdb, []string{s.sessionKey(rec.ID)}, args...).Int()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

func (s *RedisStore) Delete(ctx context.Context, id string) error {
	n, err := s.rdb.Del(ctx, s.sessionKey(id)).Result()
	if err != nil {
		return fmt.Errorf("delete session %s: %w", id, err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *RedisStore) List(ctx context.Context) ([]*Record, error) {
	prefix := s.sessionKey("")
	var out []*Record
	iter := s.rdb.Scan(ctx, 0, prefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		id := iter.Val()[len(prefix):]
		rec, err := s.Get(ctx, id)
		if errors.Is(err, ErrNotFound) {
			// Deleted between scan and read
			continue
		}
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	return out, nil
}

// Lock polls SETNX with a random token until it wins or ctx ends. The lock
// expires after the configured TTL in case the holder dies.
func (s *RedisStore) Lock(ctx context.Context, id string) (func(), error) {
	key := s.lockKey(id)
	token := uuid.NewString()

	for {
		ok, err := s.rdb.SetNX(ctx, key, token, s.lockTTL).Result()
		if err != nil {
			if ctx.Err() != nil {
				return nil, ErrLockTimeout
			}
			return nil, fmt.Errorf("lock session %s: %w", id, err)
		}
		if ok {
			break
		}

		timer := s.clock.NewTimer(lockRetryInterval, "redis", "lock")
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ErrLockTimeout
		case <-timer.C:
		}
	}

	released := false
	return func() {
		if released {
			return
		}
		released = true
		if err := unlockScript.Run(context.Background(), s.rdb, []string{key}, token).Err(); err != nil && !errors.Is(err, redis.Nil) {
			s.logger.Warn("Failed to release lock", "session", id, "error", err)
		}
	}, nil
}

func (s *RedisStore) Close() error {
	return s.rdb.Close()
}

func encodeRecord(rec *Record) (map[string]any, error) {
	state, err := json.Marshal(rec.Round)
	if err != nil {
		return nil, fmt.Errorf("encode session %s: %w", rec.ID, err)
	}
	return map[string]any{
		"state":      string(state),
		"created_at": rec.CreatedAt.UTC().Format(time.RFC3339Nano),
		"updated_at": rec.UpdatedAt.UTC().Format(time.RFC3339Nano),
		"version":    rec.Version,
	}, nil
}

func decodeRecord(fields map[string]string) (*Record, error) {
	var raw redisRecord
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook:       mapstructure.StringToTimeHookFunc(time.RFC3339Nano),
		WeaklyTypedInput: true,
		Result:           &raw,
	})
	if err != nil {
		return nil, err
	}
	if err := decoder.Decode(fields); err != nil {
		return nil, err
	}

	var round game.Round
	if err := json.Unmarshal([]byte(raw.State), &round); err != nil {
		return nil, err
	}
	return &Record{
		Round:     &round,
		CreatedAt: raw.CreatedAt,
		UpdatedAt: raw.UpdatedAt,
		Version:   raw.Version,
	}, nil
}
