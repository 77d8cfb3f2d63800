package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcredis "github.com/testcontainers/testcontainers-go/modules/redis"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/local/pagesampler/internal/domain"
)

// startRedis runs a throwaway Redis and returns its URL.
func startRedis(t *testing.T) string {
	t.Helper()
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}
	if !isDockerAvailable() {
		t.Skip("Docker not available")
	}

	ctx := context.Background()
	container, err := tcredis.Run(ctx,
		"redis:7.4-alpine",
		testcontainers.WithWaitStrategy(
			wait.ForLog("Ready to accept connections").
				WithStartupTimeout(30*time.Second),
		),
	)
	require.NoError(t, err)
	t.Cleanup(func() {
		if err := container.Terminate(context.Background()); err != nil {
			t.Logf("Failed to terminate redis container: %v", err)
		}
	})

	url, err := container.ConnectionString(ctx)
	require.NoError(t, err)
	return url
}

func isDockerAvailable() bool {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	provider, err := testcontainers.NewDockerProvider()
	if err != nil {
		return false
	}
	defer provider.Close()

	_, err = provider.Client().Ping(ctx)
	return err == nil
}

func TestRedisStatusRoundTrip(t *testing.T) {
	url := startRedis(t)
	ctx := context.Background()

	rs, err := NewRedisStatus(url, time.Hour)
	require.NoError(t, err)
	defer rs.Close()
	require.NoError(t, rs.Ping(ctx))

	start := time.Date(2026, 5, 2, 8, 0, 0, 0, time.UTC)
	end := start.Add(time.Minute)
	want := RunStatus{
		State:   RunCompleted,
		Message: "done",
		Stats:   domain.Stats{Discovered: 3, Processed: 2, Partial: 1, Failed: 1, Images: 9},
		Start:   &start,
		End:     &end,
	}
	require.NoError(t, rs.Update(ctx, "run-1", want))

	got, found, err := rs.Get(ctx, "run-1")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, want.State, got.State)
	assert.Equal(t, want.Message, got.Message)
	assert.Equal(t, want.Stats, got.Stats)
	require.NotNil(t, got.End)
	assert.True(t, end.Equal(*got.End))

	ttl, err := rs.client.TTL(ctx, rs.key("run-1")).Result()
	require.NoError(t, err)
	assert.Greater(t, ttl, time.Duration(0))
	assert.LessOrEqual(t, ttl, time.Hour)

	_, found, err = rs.Get(ctx, "unknown")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestRedisStatusUpdateOverwrites(t *testing.T) {
	url := startRedis(t)
	ctx := context.Background()

	rs, err := NewRedisStatus(url, 0)
	require.NoError(t, err)
	defer rs.Close()

	require.NoError(t, rs.Update(ctx, "run-2", RunStatus{State: RunRunning, Stats: domain.Stats{Discovered: 4}}))
	require.NoError(t, rs.Update(ctx, "run-2", RunStatus{State: RunFailed, Message: "boom", Stats: domain.Stats{Discovered: 4, Failed: 1}}))

	got, found, err := rs.Get(ctx, "run-2")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, RunFailed, got.State)
	assert.Equal(t, 1, got.Stats.Failed)

	// zero ttl keeps the hash persistent
	ttl, err := rs.client.TTL(ctx, rs.key("run-2")).Result()
	require.NoError(t, err)
	assert.Equal(t, time.Duration(-1), ttl)
}

func TestRedisDocumentRoundTrip(t *testing.T) {
	url := startRedis(t)
	ctx := context.Background()

	rs, err := NewRedisStatus(url, 30*time.Minute)
	require.NoError(t, err)
	defer rs.Close()

	res := domain.TaskResult{
		Path:     "/in/atlas_v2.pdf",
		Name:     "atlas_v2.pdf",
		State:    domain.StateCompleted,
		Pages:    12,
		Selected: []int{0, 4, 9},
		Images:   3,
		Duration: 2 * time.Second,
	}
	require.NoError(t, rs.SaveDocument(ctx, "run-3", res))

	fields, err := rs.GetDocument(ctx, "run-3", "atlas_v2.pdf")
	require.NoError(t, err)
	require.NotNil(t, fields)
	assert.Equal(t, "completed", fields["state"])
	assert.Equal(t, "1,5,10", fields["selected"])
	assert.Equal(t, "3", fields["images"])
	assert.Equal(t, "12", fields["pages"])
	assert.Equal(t, "2000", fields["duration_ms"])
	assert.NotContains(t, fields, "error")

	ttl, err := rs.client.TTL(ctx, rs.docKey("run-3", "atlas_v2.pdf")).Result()
	require.NoError(t, err)
	assert.Greater(t, ttl, time.Duration(0))
	assert.LessOrEqual(t, ttl, 30*time.Minute)

	missing, err := rs.GetDocument(ctx, "run-3", "other.pdf")
	require.NoError(t, err)
	assert.Nil(t, missing)
}
