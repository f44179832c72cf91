package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Server     ServerConfig
	GRPC       GRPCConfig
	DB         DatabaseConfig
	Logging    LoggingConfig
	Triage     TriageConfig
	Classifier ClassifierConfig
	Hotspot    HotspotConfig
	Ingest     IngestConfig
	NATS       NATSConfig
	Simulator  SimulatorConfig
}

type ServerConfig struct {
	Host         string
	Port         int
	GinMode      string
	RateLimitRPS int
	CORSOrigins  []string
}

type GRPCConfig struct {
	Port int
}

type DatabaseConfig struct {
	Path          string
	BusyTimeout   time.Duration
	SeedHospitals bool
}

type LoggingConfig struct {
	Level  string
	Format string
}

// TriageConfig holds the severity decision policy.
type TriageConfig struct {
	CriticalThreshold float64
	FallbackTier      int
}

type ClassifierConfig struct {
	URL       string
	ModelPath string
	Timeout   time.Duration
}

type HotspotConfig struct {
	RadiusMeters     float64
	BufferMeters     float64
	RecomputeTimeout time.Duration
}

type IngestConfig struct {
	ReserveTimeout time.Duration
	PersistTimeout time.Duration
}

type NATSConfig struct {
	URL           string
	SubjectPrefix string
}

type SimulatorConfig struct {
	TargetURL       string
	Workers         int
	WaveMin         int
	WaveMax         int
	WaveIntervalMin time.Duration
	WaveIntervalMax time.Duration
	CriticalRate    float64
	RequestTimeout  time.Duration
}

func Load() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Host:         getEnv("SERVER_HOST", "localhost"),
			Port:         getEnvInt("SERVER_PORT", 5001),
			GinMode:      getEnv("GIN_MODE", "release"),
			RateLimitRPS: getEnvInt("RATE_LIMIT_RPS", 50),
			CORSOrigins:  getEnvList("CORS_ORIGINS", []string{"*"}),
		},
		GRPC: GRPCConfig{
			Port: getEnvInt("GRPC_PORT", 50051),
		},
		DB: DatabaseConfig{
			Path:          getEnv("DB_PATH", "./data/triage.db"),
			BusyTimeout:   getEnvDuration("DB_BUSY_TIMEOUT", 5*time.Second),
			SeedHospitals: getEnvBool("SEED_HOSPITALS", true),
		},
		Logging: LoggingConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
		},
		Triage: TriageConfig{
			CriticalThreshold: getEnvFloat("TRIAGE_CRITICAL_THRESHOLD", 0.25),
			FallbackTier:      getEnvInt("TRIAGE_FALLBACK_TIER", 1),
		},
		Classifier: ClassifierConfig{
			URL:       getEnv("CLASSIFIER_URL", ""),
			ModelPath: getEnv("CLASSIFIER_MODEL_PATH", ""),
			Timeout:   getEnvDuration("CLASSIFIER_TIMEOUT", 2*time.Second),
		},
		Hotspot: HotspotConfig{
			RadiusMeters:     getEnvFloat("HOTSPOT_RADIUS_METERS", 500),
			BufferMeters:     getEnvFloat("HOTSPOT_BUFFER_METERS", 20),
			RecomputeTimeout: getEnvDuration("HOTSPOT_RECOMPUTE_TIMEOUT", 10*time.Second),
		},
		Ingest: IngestConfig{
			ReserveTimeout: getEnvDuration("INGEST_RESERVE_TIMEOUT", 2*time.Second),
			PersistTimeout: getEnvDuration("INGEST_PERSIST_TIMEOUT", 5*time.Second),
		},
		NATS: NATSConfig{
			URL:           getEnv("NATS_URL", ""),
			SubjectPrefix: getEnv("NATS_SUBJECT_PREFIX", "triage"),
		},
		Simulator: SimulatorConfig{
			TargetURL:       getEnv("SIM_TARGET_URL", "http://127.0.0.1:5001/api/ingest"),
			Workers:         getEnvInt("SIM_WORKERS", 4),
			WaveMin:         getEnvInt("SIM_WAVE_MIN", 3),
			WaveMax:         getEnvInt("SIM_WAVE_MAX", 8),
			WaveIntervalMin: getEnvDuration("SIM_WAVE_INTERVAL_MIN", 8*time.Second),
			WaveIntervalMax: getEnvDuration("SIM_WAVE_INTERVAL_MAX", 15*time.Second),
			CriticalRate:    getEnvFloat("SIM_CRITICAL_RATE", 0.15),
			RequestTimeout:  getEnvDuration("SIM_REQUEST_TIMEOUT", 15*time.Second),
		},
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}
	if c.GRPC.Port < 1 || c.GRPC.Port > 65535 {
		return fmt.Errorf("invalid gRPC port: %d", c.GRPC.Port)
	}
	if c.Server.RateLimitRPS < 1 {
		return fmt.Errorf("rate limit must be at least 1 req/s")
	}

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[c.Logging.Level] {
		return fmt.Errorf("invalid log level: %s", c.Logging.Level)
	}
	if c.Logging.Format != "json" && c.Logging.Format != "text" {
		return fmt.Errorf("invalid log format: %s", c.Logging.Format)
	}

	if c.Triage.CriticalThreshold <= 0 || c.Triage.CriticalThreshold >= 1 {
		return fmt.Errorf("critical threshold must be in (0,1), got %v", c.Triage.CriticalThreshold)
	}
	if c.Triage.FallbackTier < 0 || c.Triage.FallbackTier > 3 {
		return fmt.Errorf("fallback tier must be 0-3, got %d", c.Triage.FallbackTier)
	}

	if c.Hotspot.RadiusMeters <= 0 {
		return fmt.Errorf("hotspot radius must be positive")
	}
	if c.Hotspot.BufferMeters < 0 {
		return fmt.Errorf("hotspot buffer must not be negative")
	}
	if c.Hotspot.RecomputeTimeout <= 0 {
		return fmt.Errorf("hotspot recompute timeout must be positive")
	}

	if c.Ingest.ReserveTimeout <= 0 || c.Ingest.PersistTimeout <= 0 {
		return fmt.Errorf("ingest timeouts must be positive")
	}
	if c.Classifier.Timeout <= 0 {
		return fmt.Errorf("classifier timeout must be positive")
	}

	if c.Simulator.WaveMin < 1 || c.Simulator.WaveMax < c.Simulator.WaveMin {
		return fmt.Errorf("invalid simulator wave size %d-%d", c.Simulator.WaveMin, c.Simulator.WaveMax)
	}
	if c.Simulator.WaveIntervalMax < c.Simulator.WaveIntervalMin {
		return fmt.Errorf("simulator wave interval max is below min")
	}

	return nil
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if val := os.Getenv(key); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	if val := os.Getenv(key); val != "" {
		if f, err := strconv.ParseFloat(val, 64); err == nil {
			return f
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if val := os.Getenv(key); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			return b
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			return d
		}
	}
	return fallback
}

func getEnvList(key string, fallback []string) []string {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	var out []string
	for _, part := range strings.Split(val, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return fallback
	}
	return out
}
