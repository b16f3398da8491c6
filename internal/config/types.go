package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/multierr"
)

// Config 聚合了下单程序运行所需的全部配置项。
type Config struct {
	App       AppConfig       `mapstructure:"app"`
	Exchange  ExchangeConfig  `mapstructure:"exchange"`
	Limits    LimitsConfig    `mapstructure:"limits"`
	Execution ExecutionConfig `mapstructure:"execution"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Journal   JournalConfig   `mapstructure:"journal"`
	Logging   LoggingConfig   `mapstructure:"logging"`
}

// AppConfig 控制应用级参数。
type AppConfig struct {
	Environment string `mapstructure:"environment"`
}

// ExchangeConfig 描述交易所连接信息，构造网关后不再修改。
type ExchangeConfig struct {
	Name      string `mapstructure:"name"`
	APIKey    string `mapstructure:"api_key"`
	APISecret string `mapstructure:"api_secret"`
	BaseURL   string `mapstructure:"base_url"`
	Testnet   bool   `mapstructure:"testnet"`
}

// HasCredentials 判断是否配置了 API 凭证。
func (c ExchangeConfig) HasCredentials() bool {
	return strings.TrimSpace(c.APIKey) != "" && strings.TrimSpace(c.APISecret) != ""
}

// LimitsConfig 为输入校验的策略边界。
type LimitsConfig struct {
	MinQuantity        float64 `mapstructure:"min_quantity"`
	MaxQuantity        float64 `mapstructure:"max_quantity"`
	PriceScale         int     `mapstructure:"price_scale"`
	MaxChunks          int     `mapstructure:"max_chunks"`
	MaxIntervalSeconds int     `mapstructure:"max_interval_seconds"`
}

// ExecutionConfig 控制下单行为。
type ExecutionConfig struct {
	Simulation bool `mapstructure:"simulation"`
}

// DatabaseConfig 管理数据库连接。
type DatabaseConfig struct {
	Path            string        `mapstructure:"path"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	InMemory        bool          `mapstructure:"in_memory"`
}

// JournalConfig 控制订单事件是否落库。
type JournalConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

// LoggingConfig 控制日志输出。
type LoggingConfig struct {
	Level            string   `mapstructure:"level"`
	Encoding         string   `mapstructure:"encoding"`
	Development      bool     `mapstructure:"development"`
	OutputPaths      []string `mapstructure:"output_paths"`
	ErrorOutputPaths []string `mapstructure:"error_output_paths"`
	File             string   `mapstructure:"file"`
	FileLevel        string   `mapstructure:"file_level"`
}

// Validate 对配置进行基本校验，凭证缺失留给网关初始化时处理。
func (c *Config) Validate() error {
	var err error

	if c.App.Environment == "" {
		err = multierr.Append(err, errors.New("app.environment 不能为空"))
	}
	if c.Exchange.Name == "" {
		err = multierr.Append(err, errors.New("exchange.name 不能为空"))
	}
	if c.Exchange.BaseURL != "" && !strings.HasPrefix(c.Exchange.BaseURL, "http") {
		err = multierr.Append(err, fmt.Errorf("exchange.base_url 必须为 http(s) 地址: %q", c.Exchange.BaseURL))
	}
	if c.Limits.MinQuantity <= 0 {
		err = multierr.Append(err, errors.New("limits.min_quantity 必须大于0"))
	}
	if c.Limits.MaxQuantity <= 0 {
		err = multierr.Append(err, errors.New("limits.max_quantity 必须大于0"))
	}
	if c.Limits.MinQuantity > c.Limits.MaxQuantity {
		err = multierr.Append(err, errors.New("limits.min_quantity 不能大于 max_quantity"))
	}
	if c.Limits.PriceScale < 0 || c.Limits.PriceScale > 18 {
		err = multierr.Append(err, errors.New("limits.price_scale 必须位于[0,18]"))
	}
	if c.Limits.MaxChunks <= 0 {
		err = multierr.Append(err, errors.New("limits.max_chunks 必须大于0"))
	}
	if c.Limits.MaxIntervalSeconds <= 0 {
		err = multierr.Append(err, errors.New("limits.max_interval_seconds 必须大于0"))
	}
	if c.Journal.Enabled {
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
