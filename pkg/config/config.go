// pkg/config/config.go
package config

import (
	"fmt"
	"strings"
	"time"
)

// Config - главная структура конфигурации
type Config struct {
	App         AppConfig         `koanf:"app"`
	HTTP        HTTPConfig        `koanf:"http"`
	GRPC        GRPCConfig        `koanf:"grpc"`
	Log         LogConfig         `koanf:"log"`
	Metrics     MetricsConfig     `koanf:"metrics"`
	Tracing     TracingConfig     `koanf:"tracing"`
	Cache       CacheConfig       `koanf:"cache"`
	RateLimit   RateLimitConfig   `koanf:"rate_limit"`
	Repository  RepositoryConfig  `koanf:"repository"`
	Node        NodeConfig        `koanf:"node"`
	Replication ReplicationConfig `koanf:"replication"`
	Decision    DecisionConfig    `koanf:"decision"`
}

// AppConfig - общие настройки приложения
type AppConfig struct {
	Name        string `koanf:"name"`
	Version     string `koanf:"version"`
	Environment string `koanf:"environment"` // development, staging, production
	Debug       bool   `koanf:"debug"`
}

// HTTPConfig - настройки HTTP-сервера балансировщика (proxy + /stats + /health)
type HTTPConfig struct {
	Port            int           `koanf:"port"`
	ReadTimeout     time.Duration `koanf:"read_timeout"`
	WriteTimeout    time.Duration `koanf:"write_timeout"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
	CORS            CORSConfig    `koanf:"cors"`
}

// CORSConfig - настройки CORS
type CORSConfig struct {
	Enabled          bool     `koanf:"enabled"`
	AllowedOrigins   []string `koanf:"allowed_origins"`
	AllowedMethods   []string `koanf:"allowed_methods"`
	AllowedHeaders   []string `koanf:"allowed_headers"`
	AllowCredentials bool     `koanf:"allow_credentials"`
	MaxAge           int      `koanf:"max_age"`
}

// GRPCConfig - настройки gRPC сервера приёма телеметрии (PushMetrics)
type GRPCConfig struct {
	Port              int             `koanf:"port"`
	MaxRecvMsgSize    int             `koanf:"max_recv_msg_size"` // bytes
	MaxSendMsgSize    int             `koanf:"max_send_msg_size"` // bytes
	MaxConcurrentConn int             `koanf:"max_concurrent_conn"`
	KeepAlive         KeepAliveConfig `koanf:"keepalive"`
	TLS               TLSConfig       `koanf:"tls"`
}

// KeepAliveConfig - настройки keep-alive. Значения по умолчанию соответствуют
// требованиям приёмника телеметрии: пинг каждые 10с, таймаут 5с, разрешён
// пинг вне активных вызовов.
type KeepAliveConfig struct {
	MaxConnectionIdle     time.Duration `koanf:"max_connection_idle"`
	MaxConnectionAge      time.Duration `koanf:"max_connection_age"`
	MaxConnectionAgeGrace time.Duration `koanf:"max_connection_age_grace"`
	Time                  time.Duration `koanf:"time"`
	Timeout               time.Duration `koanf:"timeout"`
}

// TLSConfig - настройки TLS
type TLSConfig struct {
	Enabled  bool   `koanf:"enabled"`
	CertFile string `koanf:"cert_file"`
	KeyFile  string `koanf:"key_file"`
	CAFile   string `koanf:"ca_file"`
}

// LogConfig - настройки логирования
type LogConfig struct {
	Level      string `koanf:"level"`       // debug, info, warn, error
	Format     string `koanf:"format"`      // json, text
	Output     string `koanf:"output"`      // stdout, stderr, file
	FilePath   string `koanf:"file_path"`   // путь к файлу логов
	MaxSize    int    `koanf:"max_size"`    // MB
	MaxBackups int    `koanf:"max_backups"` // количество бэкапов
	MaxAge     int    `koanf:"max_age"`     // дней
	Compress   bool   `koanf:"compress"`
}

// MetricsConfig - настройки Prometheus метрик
type MetricsConfig struct {
	Enabled   bool   `koanf:"enabled"`
	Port      int    `koanf:"port"`
	Path      string `koanf:"path"`
	Namespace string `koanf:"namespace"`
	Subsystem string `koanf:"subsystem"`
}

// TracingConfig - настройки OpenTelemetry
type TracingConfig struct {
	Enabled     bool    `koanf:"enabled"`
	Endpoint    string  `koanf:"endpoint"`
	ServiceName string  `koanf:"service_name"`
	SampleRate  float64 `koanf:"sample_rate"`
}

// CacheConfig - настройки хранилища метрик узлов (memory или redis)
type CacheConfig struct {
	Enabled    bool          `koanf:"enabled"`
	Driver     string        `koanf:"driver"` // redis, memory
	Host       string        `koanf:"host"`
	Port       int           `koanf:"port"`
	Password   string        `koanf:"password"`
	DB         int           `koanf:"db"`
	DefaultTTL time.Duration `koanf:"default_ttl"`
	MaxEntries int           `koanf:"max_entries"` // для in-memory
}

// Address возвращает адрес кэша
func (c CacheConfig) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// RateLimitConfig конфигурация rate limiting на входе прокси
type RateLimitConfig struct {
	Enabled         bool          `koanf:"enabled"`
	Requests        int           `koanf:"requests"`
	Window          time.Duration `koanf:"window"`
	Strategy        string        `koanf:"strategy"`
	Backend         string        `koanf:"backend"`
	BurstSize       int           `koanf:"burst_size"`
	CleanupInterval time.Duration `koanf:"cleanup_interval"`
	RedisAddr       string        `koanf:"redis_addr"`
}

// RepositoryConfig - настройки репозитория метрик узлов
type RepositoryConfig struct {
	Backend         string `koanf:"backend"` // memory, redis
	Prefix          string `koanf:"prefix"`
	HistoryLimit    int    `koanf:"history_limit"`
	LatencyWindow   int    `koanf:"latency_window"`
	StatsEMAAlpha   float64 `koanf:"stats_ema_alpha"`
}

// NodeConfig - настройки, применяемые к интерпретации телеметрии узлов
type NodeConfig struct {
	CollectorInterval time.Duration `koanf:"collector_interval"`
	SLALatencyMS      float64       `koanf:"sla_latency_ms"`
}

// ReplicationConfig - настройки стратегий репликации запросов
type ReplicationConfig struct {
	DefaultReplicas      int           `koanf:"default_replicas"`
	MaxReplicas          int           `koanf:"max_replicas"`
	HedgedDelay          time.Duration `koanf:"hedged_delay"`
	SpeculativeThreshold time.Duration `koanf:"speculative_threshold"`
	DefaultStrategy      string        `koanf:"default_strategy"`
	DefaultCompletion    string        `koanf:"default_completion"`
	Adaptive             bool          `koanf:"adaptive"`
	AdaptiveLambda       float64       `koanf:"adaptive_lambda"`
	ReplicationsLiteral  int           `koanf:"replications_literal"` // what "true" resolves to for X-Replications-Count
}

// DecisionConfig - настройки MCDM ранжирования
type DecisionConfig struct {
	DefaultBalancerStrategy string `koanf:"default_balancer_strategy"`
	DefaultWeightsStrategy  string `koanf:"default_weights_strategy"`
	AIRMIterations          int    `koanf:"airm_iterations"`
	EntropyEpsilon          float64 `koanf:"entropy_epsilon"`
}

// Validate проверяет конфигурацию
func (c *Config) Validate() error {
	var errs []string

	if c.App.Name == "" {
		errs = append(errs, "app.name is required")
	}

	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		errs = append(errs, fmt.Sprintf("http.port must be between 1 and 65535, got %d", c.HTTP.Port))
	}

	if c.GRPC.Port <= 0 || c.GRPC.Port > 65535 {
		errs = append(errs, fmt.Sprintf("grpc.port must be between 1 and 65535, got %d", c.GRPC.Port))
	}

	if c.Log.Level == "" {
		c.Log.Level = "info"
	}

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[strings.ToLower(c.Log.Level)] {
		errs = append(errs, fmt.Sprintf("log.level must be one of: debug, info, warn, error, got %s", c.Log.Level))
	}

	if c.Repository.HistoryLimit <= 0 {
		errs = append(errs, "repository.history_limit must be positive")
	}

	if c.Repository.LatencyWindow <= 0 {
		errs = append(errs, "repository.latency_window must be positive")
	}

	if c.Replication.DefaultReplicas <= 0 || c.Replication.DefaultReplicas > c.Replication.MaxReplicas {
		errs = append(errs, "replication.default_replicas must be positive and not exceed replication.max_replicas")
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration validation failed: %s", strings.Join(errs, "; "))
	}

	return nil
}

// IsDevelopment проверяет режим разработки
func (c *Config) IsDevelopment() bool {
	return c.App.Environment == "development" || c.App.Environment == "dev"
}

// IsProduction проверяет продакшн режим
func (c *Config) IsProduction() bool {
	return c.App.Environment == "production" || c.App.Environment == "prod"
}
