package config

import (
	"errors"
	"fmt"
	"time"

	"go.uber.org/multierr"
)

// Config 聚合了系统运行所需的全部配置项。
type Config struct {
	App      AppConfig      `mapstructure:"app"`
	Broker   BrokerConfig   `mapstructure:"broker"`
	OpenAI   OpenAIConfig   `mapstructure:"openai"`
	Dialogue DialogueConfig `mapstructure:"dialogue"`
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Logging  LoggingConfig  `mapstructure:"logging"`
}

// AppConfig 控制应用级参数。
type AppConfig struct {
	Environment string `mapstructure:"environment"`
}

// BrokerConfig 描述券商 API 连接信息。
type BrokerConfig struct {
	BaseURL            string        `mapstructure:"base_url"`
	APISecret          string        `mapstructure:"api_secret"`
	AccountID          string        `mapstructure:"account_id"`
	Timeout            time.Duration `mapstructure:"timeout"`
	TokenValidity      time.Duration `mapstructure:"token_validity"`
	InstrumentPageSize int           `mapstructure:"instrument_page_size"`
}

// OpenAIConfig 描述大模型调用参数。
type OpenAIConfig struct {
	APIKey  string        `mapstructure:"api_key"`
	BaseURL string        `mapstructure:"base_url"`
	Model   string        `mapstructure:"model"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// DialogueConfig 控制对话引擎行为。
type DialogueConfig struct {
	HistoryLimit       int           `mapstructure:"history_limit"`
	QuoteHistoryLimit  int           `mapstructure:"quote_history_limit"`
	StatusPollAttempts int           `mapstructure:"status_poll_attempts"`
	StatusPollInterval time.Duration `mapstructure:"status_poll_interval"`
}

// ServerConfig 控制 HTTP 服务及访问口令。
type ServerConfig struct {
	Port      int           `mapstructure:"port"`
	Password  string        `mapstructure:"password"`
	JWTSecret string        `mapstructure:"jwt_secret"`
	TokenTTL  time.Duration `mapstructure:"token_ttl"`
}

// DatabaseConfig 管理数据库连接。
type DatabaseConfig struct {
	Path            string        `mapstructure:"path"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	InMemory        bool          `mapstructure:"in_memory"`
}

// LoggingConfig 控制日志输出。
type LoggingConfig struct {
	Level            string   `mapstructure:"level"`
	Encoding         string   `mapstructure:"encoding"`
	Development      bool     `mapstructure:"development"`
	OutputPaths      []string `mapstructure:"output_paths"`
	ErrorOutputPaths []string `mapstructure:"error_output_paths"`
}

// Validate 对配置进行基本校验。
func (c *Config) Validate() error {
	var err error

	if c.App.Environment == "" {
		err = multierr.Append(err, errors.New("app.environment 不能为空"))
	}
	if c.Broker.BaseURL == "" {
		err = multierr.Append(err, errors.New("broker.base_url 不能为空"))
	}
	if c.Broker.APISecret == "" {
		err = multierr.Append(err, errors.New("broker.api_secret 不能为空"))
	}
	if c.Broker.Timeout <= 0 {
		err = multierr.Append(err, errors.New("broker.timeout 必须大于0"))
	}
	if c.Broker.TokenValidity < time.Minute {
		err = multierr.Append(err, errors.New("broker.token_validity 不能小于1分钟"))
	}
	if c.Broker.InstrumentPageSize <= 0 {
		err = multierr.Append(err, errors.New("broker.instrument_page_size 必须大于0"))
	}
	if c.OpenAI.APIKey == "" {
		err = multierr.Append(err, errors.New("openai.api_key 不能为空"))
	}
	if c.OpenAI.Model == "" {
		err = multierr.Append(err, errors.New("openai.model 不能为空"))
	}
	if c.OpenAI.Timeout <= 0 {
		err = multierr.Append(err, errors.New("openai.timeout 必须大于0"))
	}
	if c.Dialogue.HistoryLimit <= 0 {
		err = multierr.Append(err, errors.New("dialogue.history_limit 必须大于0"))
	}
	if c.Dialogue.QuoteHistoryLimit <= 0 {
		err = multierr.Append(err, errors.New("dialogue.quote_history_limit 必须大于0"))
	}
	if c.Dialogue.StatusPollAttempts <= 0 {
		err = multierr.Append(err, errors.New("dialogue.status_poll_attempts 必须大于0"))
	}
	if c.Dialogue.StatusPollInterval <= 0 {
		err = multierr.Append(err, errors.New("dialogue.status_poll_interval 必须大于0"))
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		err = multierr.Append(err, errors.New("server.port 必须位于[1,65535]"))
	}
	if c.Server.Password == "" {
		err = multierr.Append(err, errors.New("server.password 不能为空"))
	}
	if c.Server.JWTSecret == "" {
		err = multierr.Append(err, errors.New("server.jwt_secret 不能为空"))
	}
	if c.Server.TokenTTL <= 0 {
		err = multierr.Append(err, errors.New("server.token_ttl 必须大于0"))
	}
	if c.Database.Path == "" && !c.Database.InMemory {
		err = multierr.Append(err, errors.New("database.path 不能为空"))
	}
	if c.Database.MaxOpenConns <= 0 {
		err = multierr.Append(err, errors.New("database.max_open_conns 必须大于0"))
	}
	if c.Database.MaxIdleConns < 0 {
		err = multierr.Append(err, errors.New("database.max_idle_conns 不能为负"))
	}
	if c.Database.ConnMaxLifetime < 0 {
		err = multierr.Append(err, errors.New("database.conn_max_lifetime 不能为负"))
	}
	if c.Logging.Level == "" {
		err = multierr.Append(err, errors.New("logging.level 不能为空"))
	}
	if c.Logging.Encoding == "" {
		err = multierr.Append(err, errors.New("logging.encoding 不能为空"))
	}
	if len(c.Logging.OutputPaths) == 0 {
		err = multierr.Append(err, errors.New("logging.output_paths 至少包含一个输出目标"))
	}
	if len(c.Logging.ErrorOutputPaths) == 0 {
		err = multierr.Append(err, errors.New("logging.error_output_paths 至少包含一个输出目标"))
	}

	if err != nil {
		return fmt.Errorf("配置校验失败: %w", err)
	}

	return nil
}
