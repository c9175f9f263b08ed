package config

import (
	"os"
	"strconv"
	"time"
)

type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	Chain    ChainConfig
	Cache    CacheConfig
	Queue    QueueConfig
}

type ServerConfig struct {
	Port     string
	LogLevel string
	// 背景預熱 recent tickets 快取的間隔
	RefreshInterval time.Duration
}

type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
}

type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
}

// ChainConfig 鏈上相關設定：合約地址與 chain id 只當作不透明常數使用
type ChainConfig struct {
	RPCURL              string
	ChainID             int64
	TicketContract      string
	MarketContract      string
	WalletPrivateKey    string
	ReceiptPollInterval time.Duration
	LogLookbackBlocks   uint64
}

type CacheConfig struct {
	TicketTTL       time.Duration
	RegistrationTTL time.Duration
}

type QueueConfig struct {
	// memory | redis
	Backend    string
	BufferSize int
	ConsumerID string
}

func LoadConfig() *Config {
	return &Config{
		Server:   GetServerConfig(),
		Database: GetDatabaseConfig(),
		Redis:    GetRedisConfig(),
		Chain:    GetChainConfig(),
		Cache:    GetCacheConfig(),
		Queue:    GetQueueConfig(),
	}
}

func LoadTestConfig() *Config {
	testConfig := &DatabaseConfig{
		Host:     "localhost",
		Port:     "5433", // 測試 DB 用 5433 port
		User:     "postgres",
		Password: "postgres",
		DBName:   "test_db",
		SSLMode:  "disable",
	}

	testRedisConfig := RedisConfig{
		Host:     "localhost",
		Port:     "6380", // 測試 Redis 用 6380 port
		Password: "",
		DB:       1,
	}

	return &Config{
		Server: ServerConfig{
			Port:            "8080",
			LogLevel:        "debug",
			RefreshInterval: time.Minute,
		},
		Database: *testConfig,
		Redis:    testRedisConfig,
		Chain: ChainConfig{
			RPCURL:              "http://localhost:8545",
			ChainID:             31337,
			ReceiptPollInterval: 10 * time.Millisecond,
			LogLookbackBlocks:   1000,
		},
		Cache: CacheConfig{
			TicketTTL:       time.Minute,
			RegistrationTTL: 10 * time.Second,
		},
		Queue: QueueConfig{
			Backend:    "memory",
			BufferSize: 16,
			ConsumerID: "test",
		},
	}
}

func GetServerConfig() ServerConfig {
	return ServerConfig{
		Port:            getEnv("PORT", "8080"),
		LogLevel:        getEnv("LOG_LEVEL", "info"),
		RefreshInterval: getDuration("CATALOG_REFRESH_INTERVAL", 30*time.Second),
	}
}

func GetDatabaseConfig() DatabaseConfig {
	return DatabaseConfig{
		Host:     getEnv("DB_HOST", "localhost"),
		Port:     getEnv("DB_PORT", "5432"),
		User:     getEnv("DB_USER", "postgres"),
		Password: getEnv("DB_PASSWORD", "postgres"),
		DBName:   getEnv("DB_NAME", "postgres"),
		SSLMode:  getEnv("DB_SSL_MODE", "disable"),
	}
}

func GetRedisConfig() RedisConfig {
	return RedisConfig{
		Host:     getEnv("REDIS_HOST", "localhost"),
		Port:     getEnv("REDIS_PORT", "6379"),
		Password: getEnv("REDIS_PASSWORD", ""),
		DB:       getInt("REDIS_DB", 0),
	}
}

func GetChainConfig() ChainConfig {
	return ChainConfig{
		RPCURL:              getEnv("CHAIN_RPC_URL", "http://localhost:8545"),
		ChainID:             int64(getInt("CHAIN_ID", 11155111)),
		TicketContract:      getEnv("TICKET_CONTRACT_ADDRESS", ""),
		MarketContract:      getEnv("MARKET_CONTRACT_ADDRESS", ""),
		WalletPrivateKey:    getEnv("WALLET_PRIVATE_KEY", ""),
		ReceiptPollInterval: getDuration("RECEIPT_POLL_INTERVAL", 2*time.Second),
		LogLookbackBlocks:   uint64(getInt("LOG_LOOKBACK_BLOCKS", 50000)),
	}
}

func GetCacheConfig() CacheConfig {
	return CacheConfig{
		TicketTTL:       getDuration("CACHE_TICKET_TTL", time.Minute),
		RegistrationTTL: getDuration("CACHE_REGISTRATION_TTL", 15*time.Second),
	}
}

func GetQueueConfig() QueueConfig {
	return QueueConfig{
		Backend:    getEnv("ACTIVITY_QUEUE_BACKEND", "memory"),
		BufferSize: getInt("ACTIVITY_QUEUE_BUFFER", 256),
		ConsumerID: getEnv("ACTIVITY_QUEUE_CONSUMER", ""),
	}
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getInt(key string, fallback int) int {
	v, err := strconv.Atoi(getEnv(key, strconv.Itoa(fallback)))
	if err != nil {
		panic(err)
	}
	return v
}

func getDuration(key string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(getEnv(key, fallback.String()))
	if err != nil {
		panic(err)
	}
	return d
}
