package store

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/local/pagesampler/internal/domain"
)

func (s *RedisStatus) docKey(runID, name string) string {
	return fmt.Sprintf("%s:%s:doc:%s", s.keyNS, runID, name)
}

// SaveDocument records the outcome of one document under the run.
func (s *RedisStatus) SaveDocument(ctx context.Context, runID string, res domain.TaskResult) error {
	key := s.docKey(runID, res.Name)
	pipe := s.client.TxPipeline()
	pipe.HSet(ctx, key, documentFields(res))
	if s.ttl > 0 {
		pipe.Expire(ctx, key, s.ttl)
	}
	_, err := pipe.Exec(ctx)
	return err
}

// GetDocument returns the stored outcome fields for a document, or nil if absent.
func (s *RedisStatus) GetDocument(ctx context.Context, runID, name string) (map[string]string, error) {
	res, err := s.client.HGetAll(ctx, s.docKey(runID, name)).Result()
	if err != nil {
		return nil, err
	}
	if len(res) == 0 {
		return nil, nil
	}
	return res, nil
}

func documentFields(res domain.TaskResult) map[string]interface{} {
	m := map[string]interface{}{
		"path":        res.Path,
		"state":       string(res.State),
		"pages":       res.Pages,
		"selected":    joinPages(res.Selected),
		"images":      res.Images,
		"page_errors": res.PageErrors,
		"duration_ms": res.Duration.Milliseconds(),
	}
	if res.Err != nil {
		m["error"] = res.Err.Error()
		m["error_kind"] = domain.Kind(res.Err)
	}
	return m
}

// joinPages renders 0-based indices as the 1-based numbers used in file names.
func joinPages(pages []int) string {
	parts := make([]string, len(pages))
	for i, p := range pages {
		parts[i] = strconv.Itoa(p + 1)
	}
	return strings.Join(parts, ",")
}
