package telemetry

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	defaultRedisMaxRecords = 500
	redisRecordTTL         = 24 * time.Hour
)

// RedisSink keeps a capped list of records per run.
type RedisSink struct {
	rdb        redis.UniversalClient
	maxRecords int64
}

// DialRedisSink parses url (redis://...) or falls back to a bare address.
func DialRedisSink(url string, maxRecords int) (*RedisSink, error) {
	url = strings.TrimSpace(url)
	if url == "" {
		return nil, fmt.Errorf("redis url is required")
	}
	opt, err := redis.ParseURL(url)
	if err != nil {
		opt = &redis.Options{Addr: url}
	}
	return NewRedisSink(redis.NewClient(opt), maxRecords), nil
}

func NewRedisSink(rdb redis.UniversalClient, maxRecords int) *RedisSink {
	if maxRecords <= 0 {
		maxRecords = defaultRedisMaxRecords
	}
	return &RedisSink{rdb: rdb, maxRecords: int64(maxRecords)}
}

func redisKey(runID string) string {
	return "contentpilot:debug:" + sanitizeRunID(runID)
}

func (s *RedisSink) Write(ctx context.Context, rec Record) error {
	data, err := json.Marshal(stamp(rec))
	if err != nil {
		return fmt.Errorf("encode record: %w", err)
	}
	key := redisKey(rec.RunID)
	pipe := s.rdb.TxPipeline()
	pipe.LPush(ctx, key, data)
	pipe.LTrim(ctx, key, 0, s.maxRecords-1)
	pipe.Expire(ctx, key, redisRecordTTL)
	_, err = pipe.Exec(ctx)
	return err
}

func (s *RedisSink) Read(ctx context.Context, runID string) ([]Record, error) {
	raw, err := s.rdb.LRange(ctx, redisKey(runID), 0, -1).Result()
	if err != nil {
		return nil, err
	}
	out := make([]Record, 0, len(raw))
	for i := len(raw) - 1; i >= 0; i-- {
		var rec Record
		if err := json.Unmarshal([]byte(raw[i]), &rec); err != nil {
			continue
		}
		out = append(out, rec)
	}
	return out, nil
}

func (s *RedisSink) Close() error { return s.rdb.Close() }
