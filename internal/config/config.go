package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	App          AppConfig
	Database     DatabaseConfig
	JWT          JWTConfig
	Storage      StorageConfig
	Attendance   AttendanceConfig
	Notification NotificationConfig
}

const (
	DriverPostgres = "postgres"
	DriverMemory   = "memory"
)

type DatabaseConfig struct {
	Driver   string
	Host     string
	Port     int
	User     string
	Password string
	Name     string
	SSLMode  string
}

// JWTConfig holds JWT configuration
type JWTConfig struct {
	Secret           string
	AccessExpiration time.Duration
}

// AppConfig holds application configuration
type AppConfig struct {
	Port           int
	Env            string
	LogLevel       string
	LogFormat      string
	AllowedOrigins []string
}

type StorageConfig struct {
	BasePath string
	BaseURL  string
	// MaxProofSize bounds uploaded dispute proof, in bytes.
	MaxProofSize int64
}

// AttendanceConfig holds fallbacks for companies that leave a field unset.
type AttendanceConfig struct {
	DefaultRadiusMeters float64
	DefaultLateCutoff   string
	DefaultTimezone     string
	StaleCloseInterval  time.Duration
}

type NotificationConfig struct {
	BatchSize     int
	FlushInterval time.Duration
	WorkerCount   int
	QueueSize     int
}

// Load reads the environment. A .env file is optional.
func Load() (*Config, error) {
	_ = godotenv.Load()

	config := &Config{}
	var err error
	p := &parser{}

	config.App = AppConfig{
		Port:           p.int("APP_PORT", 8080),
		Env:            getEnv("APP_ENV", "development"),
		LogLevel:       getEnv("LOG_LEVEL", "info"),
		LogFormat:      getEnv("LOG_FORMAT", "json"),
		AllowedOrigins: getEnvSlice("CORS_ALLOWED_ORIGINS", []string{"*"}),
	}

	config.Database = DatabaseConfig{
		Driver:   getEnv("DB_DRIVER", DriverPostgres),
		Host:     getEnv("DB_HOST", "localhost"),
		Port:     p.int("DB_PORT", 5432),
		User:     getEnv("DB_USER", "postgres"),
		Password: getEnv("DB_PASSWORD", ""),
		Name:     getEnv("DB_NAME", "presence_payroll"),
		SSLMode:  getEnv("DB_SSL_MODE", "disable"),
	}

	config.JWT = JWTConfig{
		Secret:           getEnv("JWT_SECRET_KEY", ""),
		AccessExpiration: p.duration("JWT_ACCESS_EXPIRATION_TIME", time.Hour),
	}

	config.Storage = StorageConfig{
		BasePath:     getEnv("STORAGE_BASE_PATH", "./uploads"),
		BaseURL:      getEnv("STORAGE_BASE_URL", "http://localhost:8080/api/v1/uploads"),
		MaxProofSize: int64(p.int("STORAGE_MAX_PROOF_SIZE", 5<<20)),
	}

	config.Attendance = AttendanceConfig{
		DefaultRadiusMeters: p.float("GEOFENCE_DEFAULT_RADIUS_METERS", 100),
		DefaultLateCutoff:   getEnv("ATTENDANCE_DEFAULT_LATE_CUTOFF", "08:00"),
		DefaultTimezone:     getEnv("ATTENDANCE_DEFAULT_TIMEZONE", "UTC"),
		StaleCloseInterval:  p.duration("ATTENDANCE_STALE_CLOSE_INTERVAL", time.Hour),
	}

	config.Notification = NotificationConfig{
		BatchSize:     p.int("NOTIFICATION_BATCH_SIZE", 100),
		FlushInterval: p.duration("NOTIFICATION_FLUSH_INTERVAL", 5*time.Second),
		WorkerCount:   p.int("NOTIFICATION_WORKERS", 2),
		QueueSize:     p.int("NOTIFICATION_QUEUE_SIZE", 1000),
	}

	if err = p.err(); err != nil {
		return nil, err
	}

	// Validate required fields
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return config, nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	switch c.Database.Driver {
	case DriverPostgres:
		if c.Database.Password == "" {
			return fmt.Errorf("DB_PASSWORD is required")
		}
	case DriverMemory:
	default:
		return fmt.Errorf("DB_DRIVER must be %s or %s", DriverPostgres, DriverMemory)
	}
	if c.JWT.Secret == "" {
		return fmt.Errorf("JWT_SECRET_KEY is required")
	}
	if c.Attendance.DefaultRadiusMeters <= 0 {
		return fmt.Errorf("GEOFENCE_DEFAULT_RADIUS_METERS must be positive")
	}
	if _, err := time.Parse("15:04", c.Attendance.DefaultLateCutoff); err != nil {
		return fmt.Errorf("ATTENDANCE_DEFAULT_LATE_CUTOFF must be HH:MM")
	}
	if _, err := time.LoadLocation(c.Attendance.DefaultTimezone); err != nil {
		return fmt.Errorf("ATTENDANCE_DEFAULT_TIMEZONE is not a valid IANA zone")
	}
	return nil
}

// DatabaseURL returns the PostgreSQL connection string
func (c *Config) DatabaseURL() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.Database.User,
		c.Database.Password,
		c.Database.Host,
		c.Database.Port,
		c.Database.Name,
		c.Database.SSLMode,
	)
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvSlice(key string, fallback []string) []string {
	value := getEnv(key, "")
	if value == "" {
		return fallback
	}
	parts := strings.Split(value, ",")
	result := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			result = append(result, p)
		}
	}
	return result
}

// parser collects every malformed variable instead of stopping at the first.
type parser struct {
	errs []error
}

func (p *parser) int(key string, fallback int) int {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		p.errs = append(p.errs, fmt.Errorf("invalid %s: %w", key, err))
		return fallback
	}
	return v
}

func (p *parser) float(key string, fallback float64) float64 {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		p.errs = append(p.errs, fmt.Errorf("invalid %s: %w", key, err))
		return fallback
	}
	return v
}

func (p *parser) duration(key string, fallback time.Duration) time.Duration {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	v, err := time.ParseDuration(raw)
	if err != nil {
		p.errs = append(p.errs, fmt.Errorf("invalid %s: %w", key, err))
		return fallback
	}
	return v
}

func (p *parser) err() error {
	return errors.Join(p.errs...)
}
