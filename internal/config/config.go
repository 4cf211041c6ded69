package config

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

type Config struct {
	App       AppConfig
	State     StateConfig
	Events    EventsConfig
	DevServer DevServerConfig
}

type AppConfig struct {
	APIBaseURL  string `validate:"required,url"`
	Environment string `validate:"oneof=development production test"`
	LogFilePath string `validate:"required"`
	LogLevel    string `validate:"oneof=debug info warn error"`
	OtelEnabled bool
	// OtelEndpoint is the OTLP/HTTP collector, host:port.
	OtelEndpoint string `validate:"required_if=OtelEnabled true"`
}

type StateConfig struct {
	Backend  string `validate:"oneof=file redis memory"`
	FilePath string `validate:"required_if=Backend file"`
	RedisURL string `validate:"required_if=Backend redis"`

	// Namespace prefixes every key so several profiles can share one Redis.
	Namespace string
}

type EventsConfig struct {
	// NatsURL enables mirroring chat events to NATS when non-empty.
	NatsURL     string `validate:"omitempty,url"`
	NatsSubject string `validate:"required"`
	// NatsStream retains mirrored events for watchers that attach late.
	NatsStream string `validate:"required,alphanum"`
	NatsMaxAge time.Duration
}

type DevServerConfig struct {
	Port         string `validate:"required,numeric"`
	JWTSecret    string `validate:"required,min=8"`
	DemoEmail    string `validate:"required,email"`
	DemoPassword string `validate:"required"`
	DemoFullName string
	AnswerDelay  int    `validate:"gte=0"` // milliseconds between streamed tokens
}

func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("Note: .env file not found, usage system environment")
	}

	return &Config{
		App: AppConfig{
			APIBaseURL:  getEnv("CHAT_API_URL", "http://localhost:8000"),
			Environment: getEnv("GO_ENV", "development"),
			LogFilePath: getEnv("LOG_FILE_PATH", defaultPath("chat-client.log")),
			LogLevel:    strings.ToLower(getEnv("LOG_LEVEL", "info")),
			OtelEnabled:  getEnvAsBool("OTEL_ENABLED", false),
			OtelEndpoint: getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4318"),
		},
		State: StateConfig{
			Backend:   getEnv("STATE_BACKEND", "file"),
			FilePath:  getEnv("STATE_FILE_PATH", defaultPath("state.yaml")),
			RedisURL:  getEnv("REDIS_URL", ""),
			Namespace: getEnv("STATE_NAMESPACE", "pdfchat"),
		},
		Events: EventsConfig{
			NatsURL:     getEnv("NATS_URL", ""),
			NatsSubject: getEnv("NATS_SUBJECT", "events.chat"),
			NatsStream:  getEnv("NATS_STREAM", "CHATEVENTS"),
			NatsMaxAge:  getEnvAsDuration("NATS_MAX_AGE", 24*time.Hour),
		},
		DevServer: DevServerConfig{
			Port:         getEnv("DEV_SERVER_PORT", "8000"),
			JWTSecret:    getEnv("JWT_SECRET", "dev-secret-change-me"),
			DemoEmail:    getEnv("DEV_DEMO_EMAIL", "demo@example.com"),
			DemoPassword: getEnv("DEV_DEMO_PASSWORD", "demo1234"),
			DemoFullName: getEnv("DEV_DEMO_FULL_NAME", "Demo User"),
			AnswerDelay:  getEnvAsInt("DEV_ANSWER_DELAY_MS", 40),
		},
	}
}

// Validate checks the loaded values and reports every invalid field at once.
func (c *Config) Validate() error {
	v := validator.New()
	if err := v.Struct(c); err != nil {
		var fields []string
		if verrs, ok := err.(validator.ValidationErrors); ok {
			for _, fe := range verrs {
				fields = append(fields, fmt.Sprintf("%s (%s)", fe.Namespace(), fe.Tag()))
			}
			return fmt.Errorf("invalid configuration: %s", strings.Join(fields, ", "))
		}
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

func (c *Config) IsProduction() bool {
	return c.App.Environment == "production"
}

func defaultPath(name string) string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return name
	}
	return filepath.Join(dir, "pdfchat", name)
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	strValue := getEnv(key, "")
	if value, err := strconv.Atoi(strValue); err == nil {
		return value
	}
	return fallback
}

func getEnvAsBool(key string, fallback bool) bool {
	strValue := getEnv(key, "")
	if value, err := strconv.ParseBool(strValue); err == nil {
		return value
	}
	return fallback
}

func getEnvAsDuration(key string, fallback time.Duration) time.Duration {
	if value, err := time.ParseDuration(getEnv(key, "")); err == nil {
		return value
	}
	return fallback
}
