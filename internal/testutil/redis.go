//go:build integration

// Package testutil provides integration-test helpers for packages that
// talk to a real Redis instance (currently just pkg/mastership).
package testutil

import (
	"context"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/go-redis/redis/v8"
)

// RedisAddr returns the address of the test Redis instance, from
// SROUTED_TEST_REDIS_ADDR, or "" if unset.
func RedisAddr() string {
	return strings.TrimSpace(os.Getenv("SROUTED_TEST_REDIS_ADDR"))
}

// SkipIfNoRedis skips the test if no reachable test Redis is configured.
func SkipIfNoRedis(t *testing.T) {
	t.Helper()

	addr := RedisAddr()
	if addr == "" {
		t.Skip("test Redis not available: set SROUTED_TEST_REDIS_ADDR")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	client := redis.NewClient(&redis.Options{Addr: addr})
	defer client.Close()

	if err := client.Ping(ctx).Err(); err != nil {
		t.Skipf("test Redis not reachable at %s: %v", addr, err)
	}
}

// FlushDB flushes one database on the test Redis instance.
func FlushDB(t *testing.T, db int) {
	t.Helper()
	client := redis.NewClient(&redis.Options{Addr: RedisAddr(), DB: db})
	defer client.Close()
	if err := client.FlushDB(context.Background()).Err(); err != nil {
		t.Fatalf("flushing test Redis DB %d: %v", db, err)
	}
}
