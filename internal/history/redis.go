package history

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	redis "github.com/redis/go-redis/v9"
)

// Redis key layout
const (
	jobKeyPrefix   = "job:"
	statsKeyPrefix = "stats:"

	fieldTotal     = "total"
	fieldCompleted = "completed"
	fieldFailed    = "failed"
	fieldBytes     = "bytes"

	DefaultRetention = 168 * time.Hour
)

// RedisOptions configures the Redis ledger
type RedisOptions struct {
	Addr      string
	Password  string
	DB        int
	Retention time.Duration
}

// Redis keeps records as expiring JSON values plus a per-requester counter hash
type Redis struct {
	client    *redis.Client
	retention time.Duration
}

// OpenRedis connects and pings the server
func OpenRedis(ctx context.Context, opts RedisOptions) (*Redis, error) {
	client := redis.NewClient(&redis.Options{
		Addr:        opts.Addr,
		Password:    opts.Password,
		DB:          opts.DB,
		DialTimeout: 3 * time.Second,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis not available at %s: %w", opts.Addr, err)
	}

	retention := opts.Retention
	if retention <= 0 {
		retention = DefaultRetention
	}
	return &Redis{client: client, retention: retention}, nil
}

// Record implements Recorder
func (r *Redis) Record(ctx context.Context, rec Record) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return err
	}

	statsKey := statsKey(rec.RequesterID)
	_, err = r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, jobKey(rec.JobID), data, r.retention)
		pipe.HIncrBy(ctx, statsKey, fieldTotal, 1)
		switch rec.State {
		case "Completed":
			pipe.HIncrBy(ctx, statsKey, fieldCompleted, 1)
		case "Failed":
			pipe.HIncrBy(ctx, statsKey, fieldFailed, 1)
		}
		pipe.HIncrBy(ctx, statsKey, fieldBytes, rec.Bytes)
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to record job %s: %w", rec.JobID, err)
	}
	return nil
}

// Stats implements Recorder
func (r *Redis) Stats(ctx context.Context, requesterID int64) (Stats, error) {
	values, err := r.client.HGetAll(ctx, statsKey(requesterID)).Result()
	if err != nil {
		return Stats{}, fmt.Errorf("failed to read stats: %w", err)
	}
	return statsFromHash(values), nil
}

// Close implements Recorder
func (r *Redis) Close() error {
	return r.client.Close()
}

func statsFromHash(values map[string]string) Stats {
	atoi := func(key string) int64 {
		n, _ := strconv.ParseInt(values[key], 10, 64)
		return n
	}
	return Stats{
		Total:     int(atoi(fieldTotal)),
		Completed: int(atoi(fieldCompleted)),
		Failed:    int(atoi(fieldFailed)),
		Bytes:     atoi(fieldBytes),
	}
}

func jobKey(jobID string) string {
	return jobKeyPrefix + jobID
}

func statsKey(requesterID int64) string {
	return statsKeyPrefix + strconv.FormatInt(requesterID, 10)
}
