package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("CHAT_API_URL", "http://api.test:9000")
	t.Setenv("STATE_BACKEND", "memory")
	t.Setenv("DEV_ANSWER_DELAY_MS", "not-a-number")
	t.Setenv("OTEL_ENABLED", "true")

	cfg := Load()
	assert.Equal(t, "http://api.test:9000", cfg.App.APIBaseURL)
	assert.Equal(t, "memory", cfg.State.Backend)
	assert.Equal(t, 40, cfg.DevServer.AnswerDelay, "invalid ints fall back")
	assert.True(t, cfg.App.OtelEnabled)
	assert.Equal(t, "localhost:4318", cfg.App.OtelEndpoint)
	assert.Equal(t, 24*time.Hour, cfg.Events.NatsMaxAge)
	require.NoError(t, cfg.Validate())
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{
			name:   "valid",
			mutate: func(c *Config) {},
		},
		{
			name:    "bad api url",
			mutate:  func(c *Config) { c.App.APIBaseURL = "not a url" },
			wantErr: "Config.App.APIBaseURL (url)",
		},
		{
			name:    "unknown state backend",
			mutate:  func(c *Config) { c.State.Backend = "etcd" },
			wantErr: "Config.State.Backend (oneof)",
		},
		{
			name: "redis backend needs url",
			mutate: func(c *Config) {
				c.State.Backend = "redis"
				c.State.RedisURL = ""
			},
			wantErr: "Config.State.RedisURL (required_if)",
		},
		{
			name:    "stream name with dots",
			mutate:  func(c *Config) { c.Events.NatsStream = "chat.events" },
			wantErr: "Config.Events.NatsStream (alphanum)",
		},
		{
			name: "tracing needs an endpoint",
			mutate: func(c *Config) {
				c.App.OtelEnabled = true
				c.App.OtelEndpoint = ""
			},
			wantErr: "Config.App.OtelEndpoint (required_if)",
		},
		{
			name:    "short jwt secret",
			mutate:  func(c *Config) { c.DevServer.JWTSecret = "short" },
			wantErr: "Config.DevServer.JWTSecret (min)",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func validConfig() *Config {
	return &Config{
		App: AppConfig{
			APIBaseURL:  "http://localhost:8000",
			Environment: "test",
			LogFilePath: "client.log",
			LogLevel:    "info",
		},
		State:  StateConfig{Backend: "file", FilePath: "state.yaml"},
		Events: EventsConfig{NatsSubject: "events.chat", NatsStream: "CHATEVENTS"},
		DevServer: DevServerConfig{
			Port:         "8000",
			JWTSecret:    "long-enough-secret",
			DemoEmail:    "demo@example.com",
			DemoPassword: "pw",
		},
	}
}
