package shared

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pelletier/go-toml/v2"
)

type Config struct {
	AppEnv      string `toml:"app_env"`
	LogLevel    string `toml:"log_level"`
	Port        int    `toml:"port" validate:"min=1,max=65535"`
	MetricsAddr string `toml:"metrics_addr"`

	PlacesKey       string        `toml:"places_api_key" validate:"required"`
	PlacesBase      string        `toml:"places_base_url" validate:"required,url"`
	PlacesRPS       int           `toml:"places_rps" validate:"min=1"`
	UpstreamTimeout time.Duration `toml:"-"`

	RecordStore string `toml:"record_store" validate:"oneof=file sqlite mysql mongo"`
	RecordsFile string `toml:"records_file"`
	SQLitePath  string `toml:"sqlite_path"`
	MySQLDSN    string `toml:"mysql_dsn" validate:"required_if=RecordStore mysql"`
	MongoURI    string `toml:"mongo_uri" validate:"required_if=RecordStore mongo"`
	MongoDB     string `toml:"mongo_db"`

	MediaBackend string `toml:"media_backend" validate:"oneof=local s3"`
	UploadDir    string `toml:"upload_dir"`
	S3Bucket     string `toml:"s3_bucket" validate:"required_if=MediaBackend s3"`
	S3PublicBase string `toml:"s3_public_base"`
	AWSRegion    string `toml:"aws_region"`
	MediaWorkers int    `toml:"media_workers" validate:"min=1"`

	RedisAddr       string        `toml:"redis_addr"`
	RedisPass       string        `toml:"redis_password"`
	RedisDB         int           `toml:"redis_db"`
	DetailsCacheTTL time.Duration `toml:"-"`
}

// Addr is the HTTP listen address derived from Port.
func (c Config) Addr() string { return ":" + strconv.Itoa(c.Port) }

// Load builds the configuration: defaults, then the optional TOML file named by
// CONFIG_FILE, then environment variables. A missing provider key is an error.
func Load() (Config, error) { return load(true) }

// LoadStorage is Load for tools that never call the places provider.
func LoadStorage() (Config, error) { return load(false) }

func load(requireKey bool) (Config, error) {
	c := defaults()
	if path := os.Getenv("CONFIG_FILE"); path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config file: %w", err)
		}
		if err := toml.Unmarshal(b, &c); err != nil {
			return Config{}, fmt.Errorf("parse config file %s: %w", path, err)
		}
	}

	c.AppEnv = env("APP_ENV", c.AppEnv)
	c.LogLevel = env("LOG_LEVEL", c.LogLevel)
	c.Port = atoi("PORT", c.Port)
	c.MetricsAddr = env("METRICS_ADDR", c.MetricsAddr)
	c.PlacesKey = env("PLACES_API_KEY", c.PlacesKey)
	c.PlacesBase = env("PLACES_BASE_URL", c.PlacesBase)
	c.PlacesRPS = atoi("PLACES_RPS", c.PlacesRPS)
	c.UpstreamTimeout = time.Duration(atoi("UPSTREAM_TIMEOUT_SECONDS", int(c.UpstreamTimeout.Seconds()))) * time.Second
	c.RecordStore = env("RECORD_STORE", c.RecordStore)
	c.RecordsFile = env("RECORDS_FILE", c.RecordsFile)
	c.SQLitePath = env("SQLITE_PATH", c.SQLitePath)
	c.MySQLDSN = env("MYSQL_DSN", c.MySQLDSN)
	c.MongoURI = env("MONGO_URI", c.MongoURI)
	c.MongoDB = env("MONGO_DB", c.MongoDB)
	c.MediaBackend = env("MEDIA_BACKEND", c.MediaBackend)
	c.UploadDir = env("UPLOAD_DIR", c.UploadDir)
	c.S3Bucket = env("S3_BUCKET", c.S3Bucket)
	c.S3PublicBase = env("S3_PUBLIC_BASE", c.S3PublicBase)
	c.AWSRegion = env("AWS_REGION", c.AWSRegion)
	c.MediaWorkers = atoi("MEDIA_WORKERS", c.MediaWorkers)
	c.RedisAddr = env("REDIS_ADDR", c.RedisAddr)
	c.RedisPass = env("REDIS_PASSWORD", c.RedisPass)
	c.RedisDB = atoi("REDIS_DB", c.RedisDB)
	c.DetailsCacheTTL = time.Duration(atoi("DETAILS_CACHE_TTL_SECONDS", int(c.DetailsCacheTTL.Seconds()))) * time.Second

	v := validator.New()
	check := func() error { return v.Struct(c) }
	if !requireKey {
		check = func() error { return v.StructExcept(c, "PlacesKey") }
	}
	if err := check(); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			for _, fe := range verrs {
				if fe.Field() == "PlacesKey" {
					return Config{}, errors.New("PLACES_API_KEY is required")
				}
			}
		}
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}
	return c, nil
}

func defaults() Config {
	return Config{
		AppEnv:          "prod",
		LogLevel:        "info",
		Port:            3000,
		PlacesBase:      "https://maps.googleapis.com/maps/api/place",
		PlacesRPS:       10,
		UpstreamTimeout: 10 * time.Second,
		RecordStore:     "file",
		RecordsFile:     "data/uploads.json",
		SQLitePath:      "data/uploads.db",
		MongoDB:         "dishmap",
		MediaBackend:    "local",
		UploadDir:       "uploads",
		AWSRegion:       "ap-east-1",
		MediaWorkers:    4,
	}
}

func env(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func atoi(k string, def int) int {
	if v := os.Getenv(k); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}
