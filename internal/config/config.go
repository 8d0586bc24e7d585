package config

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"sales_import/internal/config/connections/mongo"
	"sales_import/internal/config/connections/postgres"
	"sales_import/internal/config/connections/redis"
	"sales_import/internal/config/connections/s3"

	"github.com/joho/godotenv"
)

// Settings is everything read from the environment; no connections are
// opened while building it.
type Settings struct {
	Port string

	StoreBackend string
	SQLitePath   string
	Postgres     postgres.ConnectionInfo

	MongoEnabled bool
	Mongo        mongo.ConnectionInfo

	S3Enabled bool
	S3        s3.ConnectionInfo

	Redis    redis.ConnectionInfo
	CacheTTL time.Duration

	KafkaBrokers    []string
	KafkaAuditTopic string

	ChunkSize    int
	SampleSize   int
	Workers      int
	SellerPolicy string

	ReportsDir   string
	UploadsDir   string
	DuplicateLog string
	DuplicateCSV string

	APITokens []string
}

type Config struct {
	Settings

	S3       *s3.S3
	Mongo    *mongo.Mongo
	Redis    *redis.Redis
	Postgres *postgres.Postgres
}

// Load reads .env (when present) and the process environment.
func Load() Settings {
	_ = godotenv.Load()

	return Settings{
		Port: getenv("SERVER_PORT", "8070"),

		StoreBackend: getenv("STORE_BACKEND", "sqlite"),
		SQLitePath:   getenv("SQLITE_PATH", "data/sales.db"),
		Postgres: postgres.ConnectionInfo{
			URL:      os.Getenv("PG_URL"),
			Host:     getenv("PG_HOST", "127.0.0.1"),
			Port:     getenv("PG_PORT", "5432"),
			User:     getenv("PG_USER", "root"),
			Password: getenv("PG_PASSWORD", "hello-world"),
			DB:       getenv("PG_DB", "sales"),
			SSLMode:  getenv("PG_SSLMODE", "disable"),
			MaxConns: int32(getint("PG_MAX_CONNS", 0)),
		},

		MongoEnabled: getbool("MONGO_ENABLED", false),
		Mongo: mongo.ConnectionInfo{
			URI:        os.Getenv("MONGO_URI"),
			Scheme:     getenv("MONGO_SCHEME", "mongodb"),
			User:       getenv("MONGO_USER", "root"),
			Password:   getenv("MONGO_PASSWORD", "secret"),
			Host:       getenv("MONGO_HOST", "127.0.0.1"),
			Port:       getenv("MONGO_PORT", "27017"),
			DB:         getenv("MONGO_DB", "import_db"),
			AuthSource: getenv("MONGO_AUTH_SOURCE", "admin"),
		},

		S3Enabled: getbool("S3_ENABLED", false),
		S3: s3.ConnectionInfo{
			Endpoint:  getenv("AWS_ENDPOINT", "http://localhost:9000"),
			AccessKey: getenv("AWS_ACCESS_KEY_ID", "minioadmin"),
			SecretKey: getenv("AWS_SECRET_ACCESS_KEY", "minioadmin"),
			Region:    getenv("AWS_DEFAULT_REGION", "us-east-1"),
			Bucket:    getenv("AWS_BUCKET", "imports"),
			UseSSL:    getbool("AWS_USE_SSL", false),
		},

		Redis: redis.ConnectionInfo{
			URL:      os.Getenv("REDIS_URL"),
			PoolSize: getint("REDIS_POOL_SIZE", 0),
		},
		CacheTTL: getduration("CACHE_TTL", 5*time.Minute),

		KafkaBrokers:    getlist("KAFKA_BROKERS"),
		KafkaAuditTopic: getenv("KAFKA_AUDIT_TOPIC", "sales.duplicates"),

		ChunkSize:    getint("CHUNK_SIZE", 500),
		SampleSize:   getint("SAMPLE_SIZE", 1000),
		Workers:      getint("INGEST_WORKERS", 1),
		SellerPolicy: getenv("SELLER_POLICY", "reject"),

		ReportsDir:   getenv("REPORTS_DIR", "data/reports"),
		UploadsDir:   getenv("UPLOADS_DIR", "data/uploads"),
		DuplicateLog: getenv("DUPLICATE_LOG", "data/duplicates.jsonl"),
		DuplicateCSV: getenv("DUPLICATE_CSV", "data/duplicates.csv"),

		APITokens: getlist("API_TOKENS"),
	}
}

// Init loads the settings and opens every enabled connection. The constraint
// store itself is opened by the repository factory.
func Init(ctx context.Context) *Config {
	cfg := &Config{Settings: Load()}

	if cfg.S3Enabled {
		s3c, err := s3.NewConnection(cfg.Settings.S3)
		if err != nil {
			log.Fatal("S3 connect error:", err)
		}
		cfg.S3 = s3c
	}

	if cfg.MongoEnabled {
		mg, err := mongo.NewConnection(ctx, cfg.Settings.Mongo)
		if err != nil {
			log.Fatal("Mongo connect error:", err)
		}
		cfg.Mongo = mg
	}

	rd, err := redis.NewConnection(ctx, cfg.Settings.Redis)
	if err != nil {
		log.Fatal("Redis connect error:", err)
	}
	cfg.Redis = rd

	return cfg
}

// CheckConnections pings every connection that is configured.
func (c *Config) CheckConnections(ctx context.Context) error {
	var errs []error

	if c.Postgres != nil {
		if err := c.Postgres.Pool.Ping(ctx); err != nil {
			errs = append(errs, fmt.Errorf("postgres ping failed: %w", err))
		}
	} else if c.StoreBackend == "postgres" {
		errs = append(errs, errors.New("postgres not initialized"))
	}

	if c.MongoEnabled {
		if c.Mongo == nil {
			errs = append(errs, errors.New("mongo not initialized"))
		} else if err := c.Mongo.Ping(ctx); err != nil {
			errs = append(errs, fmt.Errorf("mongo ping failed: %w", err))
		}
	}

	if c.S3Enabled {
		if c.S3 == nil || c.S3.Client == nil {
			errs = append(errs, errors.New("s3 not initialized"))
		} else if err := c.S3.Check(ctx); err != nil {
			errs = append(errs, err)
		}
	}

	if c.Redis != nil {
		if err := c.Redis.Client.Ping(ctx).Err(); err != nil {
			errs = append(errs, fmt.Errorf("redis ping failed: %w", err))
		}
	}

	if len(errs) == 0 {
		return nil
	}

	return errors.Join(errs...)
}

func (c *Config) Close(ctx context.Context) {
	if c.Mongo != nil {
		_ = c.Mongo.Close(ctx)
	}
	if c.Redis != nil {
		_ = c.Redis.Close()
	}
}

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func getint(k string, def int) int {
	v, err := strconv.Atoi(os.Getenv(k))
	if err != nil {
		return def
	}
	return v
}

func getbool(k string, def bool) bool {
	v, err := strconv.ParseBool(os.Getenv(k))
	if err != nil {
		return def
	}
	return v
}

func getduration(k string, def time.Duration) time.Duration {
	v, err := time.ParseDuration(os.Getenv(k))
	if err != nil {
		return def
	}
	return v
}

func getlist(k string) []string {
	var out []string
	for _, p := range strings.Split(os.Getenv(k), ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
