package database

import (
	"context"
	"fmt"
	"time"

	"nft-ticket-marketplace/config"

	"github.com/jackc/pgx/v5/pgxpool"
)

// activity journal：只記錄本服務送出的交易結果，鏈上資料仍以合約為準
const schema = `
CREATE TABLE IF NOT EXISTS activities (
	id           SERIAL PRIMARY KEY,
	operation_id UUID        NOT NULL UNIQUE,
	wallet       VARCHAR(42) NOT NULL,
	action       VARCHAR(32) NOT NULL,
	ticket_id    BIGINT,
	token_id     BIGINT,
	hash         VARCHAR(66),
	outcome      VARCHAR(32) NOT NULL,
	error_kind   VARCHAR(32),
	created_at   TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS idx_activities_wallet_created ON activities (wallet, created_at DESC);
CREATE INDEX IF NOT EXISTS idx_activities_wallet_action_ticket ON activities (wallet, action, ticket_id);
`

func InitDatabase(ctx context.Context, config *config.DatabaseConfig) (*pgxpool.Pool, error) {
	dsn := fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s timezone=%s",
		config.Host,
		config.Port,
		config.User,
		config.Password,
		config.DBName,
		config.SSLMode,
		"UTC",
	)

	poolConfig, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, err
	}

	// journal 寫入量小，連線數比一般 API 少
	poolConfig.MaxConns = 10
	poolConfig.MinConns = 2
	poolConfig.MaxConnLifetime = time.Hour
	poolConfig.MaxConnIdleTime = time.Minute * 30

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, err
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	return pool, nil
}

func EnsureSchema(ctx context.Context, pool *pgxpool.Pool) error {
	if _, err := pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}
