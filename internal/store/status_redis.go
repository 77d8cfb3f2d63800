package store

import (
	"context"
	"fmt"
	"strconv"
	"time"

	redis "github.com/redis/go-redis/v9"

	"github.com/local/pagesampler/internal/domain"
)

// Run states published to the status hash.
const (
	RunRunning   = "running"
	RunCompleted = "completed"
	RunCancelled = "cancelled"
	RunFailed    = "failed"
)

// RunStatus is one snapshot of a batch run.
type RunStatus struct {
	State   string
	Message string
	Stats   domain.Stats
	Start   *time.Time
	End     *time.Time
}

// RedisStatus publishes batch progress into a Redis hash per run so other
// processes can poll it.
type RedisStatus struct {
	client *redis.Client
	keyNS  string
	ttl    time.Duration
}

func NewRedisStatus(redisURL string, ttl time.Duration) (*RedisStatus, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, err
	}
	c := redis.NewClient(opt)
	if err := c.Ping(context.Background()).Err(); err != nil {
		_ = c.Close()
		return nil, err
	}
	return &RedisStatus{client: c, keyNS: "batch", ttl: ttl}, nil
}

func (s *RedisStatus) key(runID string) string { return fmt.Sprintf("%s:%s:status", s.keyNS, runID) }

// Update overwrites the run hash and refreshes its expiry.
func (s *RedisStatus) Update(ctx context.Context, runID string, st RunStatus) error {
	key := s.key(runID)
	pipe := s.client.TxPipeline()
	pipe.HSet(ctx, key, statusFields(st))
	if s.ttl > 0 {
		pipe.Expire(ctx, key, s.ttl)
	}
	_, err := pipe.Exec(ctx)
	return err
}

func (s *RedisStatus) Get(ctx context.Context, runID string) (RunStatus, bool, error) {
	res, err := s.client.HGetAll(ctx, s.key(runID)).Result()
	if err != nil {
		return RunStatus{}, false, err
	}
	if len(res) == 0 {
		return RunStatus{}, false, nil
	}
	return parseStatus(res), true, nil
}

// Ping reports whether the server is reachable.
func (s *RedisStatus) Ping(ctx context.Context) error { return s.client.Ping(ctx).Err() }

func (s *RedisStatus) Close() error { return s.client.Close() }

func statusFields(st RunStatus) map[string]interface{} {
	m := map[string]interface{}{
		"status":     st.State,
		"message":    st.Message,
		"discovered": st.Stats.Discovered,
		"processed":  st.Stats.Processed,
		"partial":    st.Stats.Partial,
		"failed":     st.Stats.Failed,
		"images":     st.Stats.Images,
	}
	if st.Start != nil {
		m["start"] = st.Start.Format(time.RFC3339Nano)
	}
	if st.End != nil {
		m["end"] = st.End.Format(time.RFC3339Nano)
	}
	return m
}

func parseStatus(res map[string]string) RunStatus {
	st := RunStatus{State: res["status"], Message: res["message"]}
	st.Stats.Discovered = atoi(res["discovered"])
	st.Stats.Processed = atoi(res["processed"])
	st.Stats.Partial = atoi(res["partial"])
	st.Stats.Failed = atoi(res["failed"])
	st.Stats.Images = atoi(res["images"])
	if v := res["start"]; v != "" {
		if t, err := time.Parse(time.RFC3339Nano, v); err == nil {
			st.Start = &t
		}
	}
	if v := res["end"]; v != "" {
		if t, err := time.Parse(time.RFC3339Nano, v); err == nil {
			st.End = &t
		}
	}
	return st
}

// ignore parse errors; default 0
func atoi(s string) int {
	n, _ := strconv.Atoi(s)
	return n
}
