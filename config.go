package main

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"

	awspkg "github.com/Techyana/RWP-Pilot/pkg/aws"
)

// Config holds all configuration for the workshop portal.
type Config struct {
	Port string
	Env  string // "production" or "development"

	JWTSecret string

	StoreBackend string // "memory" or "mongo"
	MongoURI     string
	MongoDB      string

	RedisAddr string // projection cache, optional
	CacheTTL  time.Duration

	FeedBackend  string // "poll" or "sqs"
	FeedInterval time.Duration
	SQSQueueURL  string
	SNSTopicARN  string

	CloudWatchNamespace string // custom metrics, optional
	CloudWatchLogGroup  string // log shipping, optional

	LedgerWindowHours int // default window for activity views
}

// LoadConfig loads environment variables into Config struct.
func LoadConfig() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Port:         getEnv("PORT", "8080"),
		Env:          getEnv("APP_ENV", "development"),
		JWTSecret:    os.Getenv("JWT_SECRET"),
		StoreBackend: getEnv("STORE_BACKEND", "memory"),
		MongoURI:     getEnv("MONGO_URI", "mongodb://localhost:27017"),
		MongoDB:      getEnv("MONGO_DB", "rwp_portal"),
		RedisAddr:    os.Getenv("REDIS_ADDR"),
		FeedBackend:  getEnv("FEED_BACKEND", "poll"),
		SQSQueueURL:  os.Getenv("SQS_QUEUE_URL"),
		SNSTopicARN:  os.Getenv("SNS_TOPIC_ARN"),

		CloudWatchNamespace: os.Getenv("CLOUDWATCH_NAMESPACE"),
		CloudWatchLogGroup:  os.Getenv("CLOUDWATCH_LOG_GROUP"),
	}

	cfg.CacheTTL = getDuration("CACHE_TTL", 20*time.Second)
	cfg.FeedInterval = getDuration("FEED_INTERVAL", 15*time.Second)
	cfg.LedgerWindowHours = getInt("LEDGER_WINDOW_HOURS", 12)

	if os.Getenv("AWS_USE_SECRETS") == "true" {
		if awsCfg, err := awspkg.LoadAWSConfig(context.Background()); err == nil {
			sm := awspkg.NewSecretsClient(awsCfg)
			if jwt, err := sm.GetSecret(context.Background(), "portal/JWT_SECRET"); err == nil && jwt != "" {
				cfg.JWTSecret = jwt
			}
		}
	}

	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET is required")
	}
	if cfg.StoreBackend != "memory" && cfg.StoreBackend != "mongo" {
		return nil, fmt.Errorf("STORE_BACKEND must be \"memory\" or \"mongo\", got %q", cfg.StoreBackend)
	}
	if cfg.FeedBackend != "poll" && cfg.FeedBackend != "sqs" {
		return nil, fmt.Errorf("FEED_BACKEND must be \"poll\" or \"sqs\", got %q", cfg.FeedBackend)
	}
	if cfg.FeedBackend == "sqs" && cfg.SQSQueueURL == "" {
		return nil, fmt.Errorf("SQS_QUEUE_URL is required when FEED_BACKEND=sqs")
	}

	return cfg, nil
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getInt(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if n, err := strconv.Atoi(val); err == nil && n > 0 {
			return n
		}
	}
	return defaultVal
}

func getDuration(key string, defaultVal time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		if d, err := time.ParseDuration(val); err == nil && d > 0 {
			return d
		}
	}
	return defaultVal
}
