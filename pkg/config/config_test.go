package config

import (
	"testing"
	"time"
)

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{
			name: "valid config",
			cfg: Config{
				App:         AppConfig{Name: "test-service"},
				HTTP:        HTTPConfig{Port: 8080},
				GRPC:        GRPCConfig{Port: 50051},
				Log:         LogConfig{Level: "info"},
				Repository:  RepositoryConfig{HistoryLimit: 32, LatencyWindow: 100},
				Replication: ReplicationConfig{DefaultReplicas: 1, MaxReplicas: 5},
			},
			wantErr: false,
		},
		{
			name: "missing app name",
			cfg: Config{
				HTTP:        HTTPConfig{Port: 8080},
				GRPC:        GRPCConfig{Port: 50051},
				Log:         LogConfig{Level: "info"},
				Repository:  RepositoryConfig{HistoryLimit: 32, LatencyWindow: 100},
				Replication: ReplicationConfig{DefaultReplicas: 1, MaxReplicas: 5},
			},
			wantErr: true,
		},
		{
			name: "invalid grpc port - zero",
			cfg: Config{
				App:         AppConfig{Name: "test"},
				HTTP:        HTTPConfig{Port: 8080},
				GRPC:        GRPCConfig{Port: 0},
				Log:         LogConfig{Level: "info"},
				Repository:  RepositoryConfig{HistoryLimit: 32, LatencyWindow: 100},
				Replication: ReplicationConfig{DefaultReplicas: 1, MaxReplicas: 5},
			},
			wantErr: true,
		},
		{
			name: "invalid http port - too high",
			cfg: Config{
				App:         AppConfig{Name: "test"},
				HTTP:        HTTPConfig{Port: 70000},
				GRPC:        GRPCConfig{Port: 50051},
				Log:         LogConfig{Level: "info"},
				Repository:  RepositoryConfig{HistoryLimit: 32, LatencyWindow: 100},
				Replication: ReplicationConfig{DefaultReplicas: 1, MaxReplicas: 5},
			},
			wantErr: true,
		},
		{
			name: "invalid log level",
			cfg: Config{
				App:         AppConfig{Name: "test"},
				HTTP:        HTTPConfig{Port: 8080},
				GRPC:        GRPCConfig{Port: 50051},
				Log:         LogConfig{Level: "invalid"},
				Repository:  RepositoryConfig{HistoryLimit: 32, LatencyWindow: 100},
				Replication: ReplicationConfig{DefaultReplicas: 1, MaxReplicas: 5},
			},
			wantErr: true,
		},
		{
			name: "invalid replication bounds",
			cfg: Config{
				App:         AppConfig{Name: "test"},
				HTTP:        HTTPConfig{Port: 8080},
				GRPC:        GRPCConfig{Port: 50051},
				Log:         LogConfig{Level: "info"},
				Repository:  RepositoryConfig{HistoryLimit: 32, LatencyWindow: 100},
				Replication: ReplicationConfig{DefaultReplicas: 10, MaxReplicas: 5},
			},
			wantErr: true,
		},
		{
			name: "missing history limit",
			cfg: Config{
				App:         AppConfig{Name: "test"},
				HTTP:        HTTPConfig{Port: 8080},
				GRPC:        GRPCConfig{Port: 50051},
				Log:         LogConfig{Level: "info"},
				Repository:  RepositoryConfig{HistoryLimit: 0, LatencyWindow: 100},
				Replication: ReplicationConfig{DefaultReplicas: 1, MaxReplicas: 5},
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestConfig_IsDevelopment(t *testing.T) {
	tests := []struct {
		env  string
		want bool
	}{
		{"development", true},
		{"dev", true},
		{"production", false},
		{"staging", false},
	}

	for _, tt := range tests {
		cfg := &Config{App: AppConfig{Environment: tt.env}}
		if got := cfg.IsDevelopment(); got != tt.want {
			t.Errorf("IsDevelopment() for %s = %v, want %v", tt.env, got, tt.want)
		}
	}
}

func TestConfig_IsProduction(t *testing.T) {
	tests := []struct {
		env  string
		want bool
	}{
		{"production", true},
		{"prod", true},
		{"development", false},
		{"staging", false},
	}

	for _, tt := range tests {
		cfg := &Config{App: AppConfig{Environment: tt.env}}
		if got := cfg.IsProduction(); got != tt.want {
			t.Errorf("IsProduction() for %s = %v, want %v", tt.env, got, tt.want)
		}
	}
}

func TestCacheConfig_Address(t *testing.T) {
	cfg := CacheConfig{
		Host: "redis.local",
		Port: 6379,
	}

	addr := cfg.Address()
	if addr != "redis.local:6379" {
		t.Errorf("expected 'redis.local:6379', got %s", addr)
	}
}

func TestKeepAliveConfig(t *testing.T) {
	cfg := KeepAliveConfig{
		MaxConnectionIdle:     15 * time.Minute,
		MaxConnectionAge:      30 * time.Minute,
		MaxConnectionAgeGrace: 5 * time.Minute,
		Time:                  10 * time.Second,
		Timeout:               5 * time.Second,
	}

	if cfg.Time != 10*time.Second {
		t.Errorf("unexpected keepalive Time: %v", cfg.Time)
	}
	if cfg.Timeout != 5*time.Second {
		t.Errorf("unexpected keepalive Timeout: %v", cfg.Timeout)
	}
}

func TestCORSConfig(t *testing.T) {
	cfg := CORSConfig{
		Enabled:          true,
		AllowedOrigins:   []string{"http://localhost:3000", "https://example.com"},
		AllowedMethods:   []string{"GET", "POST"},
		AllowedHeaders:   []string{"Authorization"},
		AllowCredentials: true,
		MaxAge:           86400,
	}

	if !cfg.Enabled {
		t.Error("expected CORS to be enabled")
	}
	if len(cfg.AllowedOrigins) != 2 {
		t.Errorf("expected 2 origins, got %d", len(cfg.AllowedOrigins))
	}
}
