package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/golang/snappy"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
)

// reportCache stores snappy-compressed JSON snapshots in redis. Reports are
// recomputed on miss, so a cold or unavailable cache only costs latency.
type reportCache struct {
	client *redis.Client
	ttl    time.Duration

	hits   *prometheus.CounterVec
	misses *prometheus.CounterVec
}

func newReportCache(client *redis.Client, ttl time.Duration, reg *prometheus.Registry) *reportCache {
	hits := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "stackspend_report_cache_hits_total",
		Help: "Report cache hits by report kind.",
	}, []string{"report"})
	misses := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "stackspend_report_cache_misses_total",
		Help: "Report cache misses by report kind.",
	}, []string{"report"})
	reg.MustRegister(hits, misses)

	return &reportCache{
		client: client,
		ttl:    ttl,
		hits:   hits,
		misses: misses,
	}
}

func summaryKey(orgID snowflake.ID) string {
	return fmt.Sprintf("report:summary:%s", orgID)
}

func renewalsKey(orgID snowflake.ID, windowDays int) string {
	return fmt.Sprintf("report:renewals:%s:%d", orgID, windowDays)
}

func (c *reportCache) get(ctx context.Context, kind, key string, out any) bool {
	raw, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			return false
		}
		c.misses.WithLabelValues(kind).Inc()
		return false
	}

	decoded, err := snappy.Decode(nil, raw)
	if err != nil {
		c.misses.WithLabelValues(kind).Inc()
		return false
	}
	if err := json.Unmarshal(decoded, out); err != nil {
		c.misses.WithLabelValues(kind).Inc()
		return false
	}

	c.hits.WithLabelValues(kind).Inc()
	return true
}

// invalidate drops every cached report for the organization. The summary key
// is fixed; renewals keys carry a window suffix, so those are collected with
// a scan anchored on the org id to keep other tenants' keys out of the match.
func (c *reportCache) invalidate(ctx context.Context, orgID snowflake.ID) error {
	keys := []string{summaryKey(orgID)}

	pattern := fmt.Sprintf("report:renewals:%s:*", orgID)
	iter := c.client.Scan(ctx, 0, pattern, 0).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return err
	}
	return c.client.Del(ctx, keys...).Err()
}

func (c *reportCache) set(ctx context.Context, key string, value any) error {
	encoded, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, key, snappy.Encode(nil, encoded), c.ttl).Err()
}
