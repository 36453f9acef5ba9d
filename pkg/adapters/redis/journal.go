package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/aretw0/arbor/pkg/domain"
	backend "github.com/redis/go-redis/v9"
)

// Journal implements ports.Journal using Redis.
//
// Each run is a list of JSON records under <prefix>run:<id>. A sorted set
// <prefix>index scores run IDs by their last append time; with a TTL set,
// List drops index entries older than the TTL.
type Journal struct {
	client *backend.Client
	prefix string
	ttl    time.Duration
}

// Option configures the Redis Journal.
type Option func(*Journal)

// WithPrefix sets the key prefix (default "arbor:").
func WithPrefix(prefix string) Option {
	return func(j *Journal) {
		j.prefix = prefix
	}
}

// WithTTL expires runs after ttl of inactivity. Zero keeps them forever.
func WithTTL(ttl time.Duration) Option {
	return func(j *Journal) {
		j.ttl = ttl
	}
}

// New connects to addr and returns a Journal.
func New(addr, password string, db int, opts ...Option) *Journal {
	client := backend.NewClient(&backend.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	return NewFromClient(client, opts...)
}

// NewFromClient wraps an existing client.
func NewFromClient(client *backend.Client, opts ...Option) *Journal {
	j := &Journal{
		client: client,
		prefix: "arbor:",
	}
	for _, opt := range opts {
		opt(j)
	}
	return j
}

// Client returns the underlying client, e.g. to share it with a Locker.
func (j *Journal) Client() *backend.Client {
	return j.client
}

func (j *Journal) key(runID string) string {
	return j.prefix + "run:" + runID
}

func (j *Journal) indexKey() string {
	return j.prefix + "index"
}

// Append pushes the record and refreshes the run in the index.
func (j *Journal) Append(ctx context.Context, runID string, rec domain.OutcomeRecord) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to marshal record: %w", err)
	}

	pipe := j.client.TxPipeline()
	pipe.RPush(ctx, j.key(runID), data)
	if j.ttl > 0 {
		pipe.Expire(ctx, j.key(runID), j.ttl)
	}
	pipe.ZAdd(ctx, j.indexKey(), backend.Z{
		Score:  float64(time.Now().Unix()),
		Member: runID,
	})
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to append to run %s: %w", runID, err)
	}
	return nil
}

// Load returns the run's records in order.
func (j *Journal) Load(ctx context.Context, runID string) ([]domain.OutcomeRecord, error) {
	raw, err := j.client.LRange(ctx, j.key(runID), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to load run %s: %w", runID, err)
	}
	if len(raw) == 0 {
		return nil, domain.ErrRunNotFound
	}

	recs := make([]domain.OutcomeRecord, 0, len(raw))
	for i, item := range raw {
		var rec domain.OutcomeRecord
		if err := json.Unmarshal([]byte(item), &rec); err != nil {
			return nil, fmt.Errorf("failed to decode record %d of run %s: %w", i, runID, err)
		}
		recs = append(recs, rec)
	}
	return recs, nil
}

// Delete removes the run and its index entry.
func (j *Journal) Delete(ctx context.Context, runID string) error {
	pipe := j.client.TxPipeline()
	pipe.Del(ctx, j.key(runID))
	pipe.ZRem(ctx, j.indexKey(), runID)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to delete run %s: %w", runID, err)
	}
	return nil
}

// List returns the indexed run IDs, oldest first.
func (j *Journal) List(ctx context.Context) ([]string, error) {
	if j.ttl > 0 {
		cutoff := time.Now().Add(-j.ttl).Unix()
		if err := j.client.ZRemRangeByScore(ctx, j.indexKey(), "-inf", "("+strconv.FormatInt(cutoff, 10)).Err(); err != nil {
			return nil, fmt.Errorf("failed to prune index: %w", err)
		}
	}
	ids, err := j.client.ZRange(ctx, j.indexKey(), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	return ids, nil
}
