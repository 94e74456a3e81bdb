// Package storage persists finished benchmark reports in Redis and
// publishes run lifecycle events for live consumers.
package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/querybench/querybench/internal/config"
	"github.com/querybench/querybench/internal/report"
)

const (
	defaultKeyPrefix = "querybench"
	opTimeout        = 5 * time.Second
)

// RedisStore saves each finished report under
// <prefix>:report:<name>:<tool>, maintains a run-set index of stored
// reports, and publishes lifecycle events on <prefix>:progress. A nil
// store is inert: every method is a no-op, so callers can register it
// unconditionally.
type RedisStore struct {
	client *redis.Client
	prefix string
	log    *logrus.Entry
}

// OpenRedis connects to the configured instance and verifies the
// connection with a ping. A nil or empty config yields a nil store and
// no error.
func OpenRedis(ctx context.Context, cfg *config.RedisConfig, log *logrus.Entry) (*RedisStore, error) {
	if cfg == nil || cfg.Addr == "" {
		return nil, nil
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	pingCtx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, errors.Wrapf(err, "connecting to redis at %s", cfg.Addr)
	}
	prefix := cfg.KeyPrefix
	if prefix == "" {
		prefix = defaultKeyPrefix
	}
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	return &RedisStore{client: client, prefix: prefix, log: log}, nil
}

// Close releases the connection pool.
func (s *RedisStore) Close() error {
	if s == nil {
		return nil
	}
	return s.client.Close()
}

func (s *RedisStore) reportKey(name, tool string) string {
	return fmt.Sprintf("%s:report:%s:%s", s.prefix, name, tool)
}

func (s *RedisStore) indexKey() string {
	return s.prefix + ":reports"
}

func (s *RedisStore) channel() string {
	return s.prefix + ":progress"
}

type storeEvent struct {
	Event     string    `json:"event"`
	Time      time.Time `json:"time"`
	Benchmark string    `json:"benchmark"`
	Tool      string    `json:"tool"`
	Samples   int64     `json:"samples,omitempty"`
	Key       string    `json:"key,omitempty"`
}

// RunStarted publishes a run_started event.
func (s *RedisStore) RunStarted(benchmark, tool string) {
	s.publish(storeEvent{Event: "run_started", Benchmark: benchmark, Tool: tool})
}

// RunProgress publishes a run_progress event with the cumulative
// sample count.
func (s *RedisStore) RunProgress(benchmark, tool string, samples int64) {
	s.publish(storeEvent{Event: "run_progress", Benchmark: benchmark, Tool: tool, Samples: samples})
}

// RunFinished stores the document under its report key, adds it to the
// run-set index, and publishes a run_finished event naming the key.
func (s *RedisStore) RunFinished(doc *report.BenchmarkMetrics) {
	if s == nil || doc == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	payload, err := json.Marshal(doc)
	if err != nil {
		s.log.WithError(err).Warn("could not marshal report for redis")
		return
	}
	key := s.reportKey(doc.Name, doc.Tool)
	if err := s.client.Set(ctx, key, payload, 0).Err(); err != nil {
		s.log.WithError(err).WithField("key", key).Warn("could not store report in redis")
		return
	}
	if err := s.client.SAdd(ctx, s.indexKey(), doc.Name+":"+doc.Tool).Err(); err != nil {
		s.log.WithError(err).Warn("could not index report in redis")
	}

	event := "run_finished"
	if doc.Error != "" {
		event = "run_failed"
	}
	s.publish(storeEvent{Event: event, Benchmark: doc.Name, Tool: doc.Tool, Key: key})
}

// Report fetches a stored document by benchmark name and tool.
func (s *RedisStore) Report(ctx context.Context, name, tool string) (*report.BenchmarkMetrics, error) {
	if s == nil {
		return nil, errors.New("no redis store configured")
	}
	raw, err := s.client.Get(ctx, s.reportKey(name, tool)).Bytes()
	if err != nil {
		return nil, errors.Wrapf(err, "fetching report %s:%s", name, tool)
	}
	var doc report.BenchmarkMetrics
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, errors.Wrapf(err, "decoding report %s:%s", name, tool)
	}
	return &doc, nil
}

// List returns the run-set index members, each "name:tool".
func (s *RedisStore) List(ctx context.Context) ([]string, error) {
	if s == nil {
		return nil, nil
	}
	members, err := s.client.SMembers(ctx, s.indexKey()).Result()
	if err != nil {
		return nil, errors.Wrap(err, "listing stored reports")
	}
	return members, nil
}

func (s *RedisStore) publish(ev storeEvent) {
	if s == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	ev.Time = time.Now().UTC()
	payload, err := json.Marshal(ev)
	if err != nil {
		return
	}
	if err := s.client.Publish(ctx, s.channel(), payload).Err(); err != nil {
		s.log.WithError(err).Warn("could not publish run event to redis")
	}
}
