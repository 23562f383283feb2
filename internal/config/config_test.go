package config

import (
	"strings"
	"testing"
	"time"
)

func validConfig() Config {
	return Config{
		App: AppConfig{Environment: "development"},
		Broker: BrokerConfig{
			BaseURL:            "https://api.public.com",
			APISecret:          "secret",
			Timeout:            20 * time.Second,
			TokenValidity:      15 * time.Minute,
			InstrumentPageSize: 500,
		},
		OpenAI: OpenAIConfig{
			APIKey:  "sk-test",
			Model:   "gpt-4o-mini",
			Timeout: 15 * time.Second,
		},
		Dialogue: DialogueConfig{
			HistoryLimit:       20,
			QuoteHistoryLimit:  300,
			StatusPollAttempts: 12,
			StatusPollInterval: 1200 * time.Millisecond,
		},
		Server: ServerConfig{
			Port:      8087,
			Password:  "pw",
			JWTSecret: "jwt-secret",
			TokenTTL:  12 * time.Hour,
		},
		Database: DatabaseConfig{
			Path:            "data/assistant.db",
			MaxOpenConns:    4,
			MaxIdleConns:    4,
			ConnMaxLifetime: time.Hour,
		},
		Logging: LoggingConfig{
			Level:            "info",
			Encoding:         "console",
			OutputPaths:      []string{"stdout"},
			ErrorOutputPaths: []string{"stderr"},
		},
	}
}

func TestValidate_AcceptsCompleteConfig(t *testing.T) {
	cfg := validConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("valid config should pass, got %v", err)
	}
}

func TestValidate_RejectsBadFields(t *testing.T) {
	cases := map[string]struct {
		mutate  func(*Config)
		keyword string
	}{
		"empty broker secret": {
			mutate:  func(c *Config) { c.Broker.APISecret = "" },
			keyword: "broker.api_secret",
		},
		"short token validity": {
			mutate:  func(c *Config) { c.Broker.TokenValidity = 30 * time.Second },
			keyword: "broker.token_validity",
		},
		"missing openai key": {
			mutate:  func(c *Config) { c.OpenAI.APIKey = "" },
			keyword: "openai.api_key",
		},
		"zero poll attempts": {
			mutate:  func(c *Config) { c.Dialogue.StatusPollAttempts = 0 },
			keyword: "dialogue.status_poll_attempts",
		},
		"port out of range": {
			mutate:  func(c *Config) { c.Server.Port = 70000 },
			keyword: "server.port",
		},
		"missing jwt secret": {
			mutate:  func(c *Config) { c.Server.JWTSecret = "" },
			keyword: "server.jwt_secret",
		},
		"file db without path": {
			mutate:  func(c *Config) { c.Database.Path = "" },
			keyword: "database.path",
		},
		"no log outputs": {
			mutate:  func(c *Config) { c.Logging.OutputPaths = nil },
			keyword: "logging.output_paths",
		},
	}

	for name, tc := range cases {
		cfg := validConfig()
		tc.mutate(&cfg)
		err := cfg.Validate()
		if err == nil {
			t.Errorf("%s: expected validation failure", name)
			continue
		}
		if !strings.Contains(err.Error(), tc.keyword) {
			t.Errorf("%s: error should name %s, got %v", name, tc.keyword, err)
		}
	}
}

func TestValidate_InMemoryDatabaseNeedsNoPath(t *testing.T) {
	cfg := validConfig()
	cfg.Database.Path = ""
	cfg.Database.InMemory = true
	if err := cfg.Validate(); err != nil {
		t.Fatalf("in-memory database should not require a path, got %v", err)
	}
}

func TestValidate_AggregatesAllFailures(t *testing.T) {
	cfg := validConfig()
	cfg.Broker.APISecret = ""
	cfg.OpenAI.APIKey = ""
	cfg.Server.Password = ""

	err := cfg.Validate()
	if err == nil {
		t.Fatalf("expected validation failure")
	}
	for _, keyword := range []string{"broker.api_secret", "openai.api_key", "server.password"} {
		if !strings.Contains(err.Error(), keyword) {
			t.Errorf("aggregated error should mention %s, got %v", keyword, err)
		}
	}
}
