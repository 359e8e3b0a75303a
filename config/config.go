package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net"
	"net/url"
	"strconv"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"
)

const (
	StoragePostgres = "postgres"
	StorageSQLite   = "sqlite"
)

type Config struct {
	App
	Postgres
	SQLite
	MinIO
	Redis
}

type App struct {
	PageSize       int    `env:"PAGE_SIZE" env-default:"10"`
	LogLevel       string `env:"LOG_LEVEL" env-default:"info"`
	LogDevelopment bool   `env:"LOG_DEV" env-default:"false"`
	Storage        string `env:"STORAGE" env-default:"sqlite"`
}

type Postgres struct {
	User    string        `env:"POSTGRES_USER" env-default:"postgres"`
	Pass    string        `env:"POSTGRES_PASSWORD" env-default:"postgres"`
	Host    string        `env:"POSTGRES_HOST" env-default:"localhost"`
	Port    string        `env:"POSTGRES_PORT" env-default:"5432"`
	DB      string        `env:"POSTGRES_DB" env-default:"yatube"`
	SSLMode string        `env:"POSTGRES_SSLMODE" env-default:"disable"`
	Timeout time.Duration `env:"POSTGRES_TIMEOUT" env-default:"5s"`
}

type SQLite struct {
	Path string `env:"SQLITE_PATH" env-default:"yatube.db"`
}

type MinIO struct {
	Enabled bool   `env:"MINIO_ENABLED" env-default:"false"`
	User    string `env:"MINIO_USER" env-default:"minioadmin"`
	Pass    string `env:"MINIO_PASSWORD" env-default:"minioadmin"`
	Host    string `env:"MINIO_HOST" env-default:"localhost"`
	Port    string `env:"MINIO_PORT" env-default:"9000"`
	Bucket  string `env:"MINIO_BUCKET" env-default:"yatube"`
	Secure  bool   `env:"MINIO_SECURE" env-default:"false"`

	LinkExpiry time.Duration `env:"MINIO_LINK_EXPIRY" env-default:"1h"`
}

// Redis caching is switched off while Addr is empty.
type Redis struct {
	Addr     string        `env:"REDIS_ADDR" env-default:""`
	Password string        `env:"REDIS_PASSWORD" env-default:""`
	DB       int           `env:"REDIS_DB" env-default:"0"`
	TTL      time.Duration `env:"REDIS_TTL" env-default:"10m"`
}

// New loads env (when the file exists) on top of the process environment and
// fills Config from it.
func New(env string) (*Config, error) {
	conf := &Config{}

	if env != "" {
		if err := godotenv.Overload(env); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("godotenv.Overload: %w", err)
		}
	}

	if err := cleanenv.ReadEnv(conf); err != nil {
		return nil, fmt.Errorf("cleanenv.ReadEnv: %w", err)
	}

	if err := conf.validate(); err != nil {
		return nil, err
	}

	return conf, nil
}

func (c *Config) validate() error {
	switch c.Storage {
	case StoragePostgres, StorageSQLite:
	default:
		return fmt.Errorf("config: unknown STORAGE %q", c.Storage)
	}
	if c.PageSize < 1 {
		return fmt.Errorf("config: PAGE_SIZE must be positive, got %d", c.PageSize)
	}
	return nil
}

// DSN renders the lib/pq connection URL with credentials escaped.
func (p Postgres) DSN() string {
	q := url.Values{}
	q.Set("sslmode", p.SSLMode)
	q.Set("connect_timeout", strconv.Itoa(int(p.Timeout.Seconds())))

	u := url.URL{
		Scheme:   "postgresql",
		User:     url.UserPassword(p.User, p.Pass),
		Host:     net.JoinHostPort(p.Host, p.Port),
		Path:     "/" + p.DB,
		RawQuery: q.Encode(),
	}
	return u.String()
}
