// testutil 整合測試用的 Postgres / Redis，服務不存在時略過
package testutil

import (
	"context"
	"fmt"
	"testing"
	"time"

	"nft-ticket-marketplace/config"
	"nft-ticket-marketplace/internal/database"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
)

const connectTimeout = 2 * time.Second

// SetupDatabase 連線並建立 schema
func SetupDatabase() (*pgxpool.Pool, func(), error) {
	cfg := config.LoadTestConfig()
	ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
	defer cancel()

	pool, err := database.InitDatabase(ctx, &cfg.Database)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize test database: %w", err)
	}
	if err := database.EnsureSchema(ctx, pool); err != nil {
		pool.Close()
		return nil, nil, err
	}
	return pool, pool.Close, nil
}

// SetupRedisOnly 僅初始化 Redis，用於只依賴 Redis 的測試（如 queue 整合測試）
func SetupRedisOnly() (*redis.Client, func(), error) {
	cfg := config.LoadTestConfig()
	ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
	defer cancel()

	rdb, err := database.InitRedis(ctx, &cfg.Redis)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize redis: %w", err)
	}
	return rdb, func() { rdb.Close() }, nil
}

// RequireDB 服務不存在時略過測試
func RequireDB(t *testing.T, pool *pgxpool.Pool) *pgxpool.Pool {
	t.Helper()
	if pool == nil {
		t.Skip("test database not available")
	}
	return pool
}

func RequireRedis(t *testing.T, rdb *redis.Client) *redis.Client {
	t.Helper()
	if rdb == nil {
		t.Skip("test redis not available")
	}
	return rdb
}
