package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the application.
type Config struct {
	Server   ServerConfig
	Postgres PostgresConfig
	Redis    RedisConfig
	Matrix   MatrixConfig
	Solver   SolverConfig
	Bus      BusConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host         string
	Port         int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

// PostgresConfig holds PostgreSQL connection settings.
type PostgresConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	SSLMode  string
}

// RedisConfig holds Redis connection settings for the matrix cache.
// An empty Host disables the cache.
type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

// MatrixConfig controls the external matrix strategy and its fallback.
// An empty APIKey forces the haversine fallback.
type MatrixConfig struct {
	APIURL      string
	APIKey      string
	LocationCap int
	Timeout     time.Duration
	AvgSpeedKmh float64
	CacheTTL    time.Duration
}

// SolverConfig bounds solver runs and the dispatch pool.
type SolverConfig struct {
	WorkerPoolSize int
	Timeout        time.Duration
	ServiceTimeMin float64
	QueueDepth     int
}

// BusConfig sizes the per-subscriber event buffer and the websocket
// idle timeout.
type BusConfig struct {
	SubscriberBuffer int
	IdleTimeout      time.Duration
}

// DSN returns the PostgreSQL connection string.
func (p *PostgresConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		p.User, p.Password, p.Host, p.Port, p.DBName, p.SSLMode,
	)
}

// Addr returns the Redis address in host:port format.
func (r *RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

// ServerAddr returns the HTTP listen address in host:port format.
func (s *ServerConfig) ServerAddr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// Load reads configuration from environment variables and .env file.
func Load() (*Config, error) {
	viper.SetConfigName(".env")
	viper.SetConfigType("env")
	viper.AddConfigPath(".")
	viper.AutomaticEnv()

	viper.SetDefault("SERVER_HOST", "0.0.0.0")
	viper.SetDefault("SERVER_PORT", 8080)
	viper.SetDefault("SERVER_READ_TIMEOUT", "10s")
	viper.SetDefault("SERVER_WRITE_TIMEOUT", "60s")
	viper.SetDefault("SERVER_IDLE_TIMEOUT", "120s")

	viper.SetDefault("POSTGRES_HOST", "localhost")
	viper.SetDefault("POSTGRES_PORT", 5432)
	viper.SetDefault("POSTGRES_USER", "lastmile")
	viper.SetDefault("POSTGRES_PASSWORD", "lastmile_secret")
	viper.SetDefault("POSTGRES_DB", "lastmile_db")
	viper.SetDefault("POSTGRES_SSLMODE", "disable")

	viper.SetDefault("REDIS_HOST", "")
	viper.SetDefault("REDIS_PORT", 6379)
	viper.SetDefault("REDIS_PASSWORD", "")
	viper.SetDefault("REDIS_DB", 0)

	viper.SetDefault("MATRIX_API_URL", "https://api.openrouteservice.org")
	viper.SetDefault("MATRIX_API_KEY", "")
	viper.SetDefault("MATRIX_LOCATION_CAP", 49)
	viper.SetDefault("MATRIX_TIMEOUT", "10s")
	viper.SetDefault("MATRIX_CACHE_TTL", "15m")
	viper.SetDefault("AVG_SPEED_KMH", 40.0)

	viper.SetDefault("WORKER_POOL_SIZE", 4)
	viper.SetDefault("SOLVER_TIMEOUT", "30s")
	viper.SetDefault("SERVICE_TIME_MIN", 5.0)
	viper.SetDefault("JOB_QUEUE_DEPTH", 256)

	viper.SetDefault("BUS_SUBSCRIBER_BUFFER", 64)
	viper.SetDefault("BUS_IDLE_TIMEOUT", "60s")

	// Missing .env is fine; env vars injected by the runtime are used
	// instead.
	_ = viper.ReadInConfig()

	cfg := &Config{
		Server: ServerConfig{
			Host:         viper.GetString("SERVER_HOST"),
			Port:         viper.GetInt("SERVER_PORT"),
			ReadTimeout:  viper.GetDuration("SERVER_READ_TIMEOUT"),
			WriteTimeout: viper.GetDuration("SERVER_WRITE_TIMEOUT"),
			IdleTimeout:  viper.GetDuration("SERVER_IDLE_TIMEOUT"),
		},
		Postgres: PostgresConfig{
			Host:     viper.GetString("POSTGRES_HOST"),
			Port:     viper.GetInt("POSTGRES_PORT"),
			User:     viper.GetString("POSTGRES_USER"),
			Password: viper.GetString("POSTGRES_PASSWORD"),
			DBName:   viper.GetString("POSTGRES_DB"),
			SSLMode:  viper.GetString("POSTGRES_SSLMODE"),
		},
		Redis: RedisConfig{
			Host:     viper.GetString("REDIS_HOST"),
			Port:     viper.GetInt("REDIS_PORT"),
			Password: viper.GetString("REDIS_PASSWORD"),
			DB:       viper.GetInt("REDIS_DB"),
		},
		Matrix: MatrixConfig{
			APIURL:      viper.GetString("MATRIX_API_URL"),
			APIKey:      viper.GetString("MATRIX_API_KEY"),
			LocationCap: viper.GetInt("MATRIX_LOCATION_CAP"),
			Timeout:     viper.GetDuration("MATRIX_TIMEOUT"),
			AvgSpeedKmh: viper.GetFloat64("AVG_SPEED_KMH"),
			CacheTTL:    viper.GetDuration("MATRIX_CACHE_TTL"),
		},
		Solver: SolverConfig{
			WorkerPoolSize: viper.GetInt("WORKER_POOL_SIZE"),
			Timeout:        viper.GetDuration("SOLVER_TIMEOUT"),
			ServiceTimeMin: viper.GetFloat64("SERVICE_TIME_MIN"),
			QueueDepth:     viper.GetInt("JOB_QUEUE_DEPTH"),
		},
		Bus: BusConfig{
			SubscriberBuffer: viper.GetInt("BUS_SUBSCRIBER_BUFFER"),
			IdleTimeout:      viper.GetDuration("BUS_IDLE_TIMEOUT"),
		},
	}

	if cfg.Solver.WorkerPoolSize < 1 {
		return nil, fmt.Errorf("load config: WORKER_POOL_SIZE must be >= 1, got %d", cfg.Solver.WorkerPoolSize)
	}
	if cfg.Matrix.AvgSpeedKmh <= 0 {
		return nil, fmt.Errorf("load config: AVG_SPEED_KMH must be positive, got %f", cfg.Matrix.AvgSpeedKmh)
	}

	return cfg, nil
}
