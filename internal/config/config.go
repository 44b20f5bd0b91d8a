package config

import (
	"fmt"
	"time"
)

// Config represents the global configuration
type Config struct {
	Server       ServerConfig       `mapstructure:"server"`
	Database     DatabaseConfig     `mapstructure:"database"`
	Redis        RedisConfig        `mapstructure:"redis"`
	Log          LogConfig          `mapstructure:"log"`
	Telegram     TelegramConfig     `mapstructure:"telegram"`
	Payment      PaymentConfig      `mapstructure:"payment"`
	Market       MarketConfig       `mapstructure:"market"`
	RateLimit    RateLimitConfig    `mapstructure:"rate_limit"`
	CircuitBreak CircuitBreakConfig `mapstructure:"circuit_break"`
	Security     SecurityConfig     `mapstructure:"security"`
}

// ServerConfig represents the webhook HTTP server configuration
type ServerConfig struct {
	Host         string        `mapstructure:"host"`
	Port         int           `mapstructure:"port"`
	Mode         string        `mapstructure:"mode"` // debug, release, test
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	IdleTimeout  time.Duration `mapstructure:"idle_timeout"`
}

// DatabaseConfig represents database configuration
type DatabaseConfig struct {
	Driver          string        `mapstructure:"driver"`
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	Username        string        `mapstructure:"username"`
	Password        string        `mapstructure:"password"`
	DBName          string        `mapstructure:"dbname"`
	Charset         string        `mapstructure:"charset"`
	ParseTime       bool          `mapstructure:"parse_time"`
	Loc             string        `mapstructure:"loc"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `mapstructure:"conn_max_idle_time"`
	LogLevel        string        `mapstructure:"log_level"` // silent, error, warn, info
}

// RedisConfig represents Redis configuration
type RedisConfig struct {
	Host         string        `mapstructure:"host"`
	Port         int           `mapstructure:"port"`
	Password     string        `mapstructure:"password"`
	DB           int           `mapstructure:"db"`
	PoolSize     int           `mapstructure:"pool_size"`
	MinIdleConns int           `mapstructure:"min_idle_conns"`
	MaxRetries   int           `mapstructure:"max_retries"`
	DialTimeout  time.Duration `mapstructure:"dial_timeout"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	PoolTimeout  time.Duration `mapstructure:"pool_timeout"`
}

// LogConfig represents logging configuration
type LogConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"`
	Output     string `mapstructure:"output"`
	Filename   string `mapstructure:"filename"`
	MaxSize    int    `mapstructure:"max_size"`
	MaxAge     int    `mapstructure:"max_age"`
	MaxBackups int    `mapstructure:"max_backups"`
	Compress   bool   `mapstructure:"compress"`
}

// TelegramConfig represents Bot API client configuration
type TelegramConfig struct {
	Token       string        `mapstructure:"token"`
	APIURL      string        `mapstructure:"api_url"`
	PollTimeout time.Duration `mapstructure:"poll_timeout"`
	// Outbound send throttle, the Bot API caps bots around 30 msg/s
	SendRPS   int    `mapstructure:"send_rps"`
	SendBurst int    `mapstructure:"send_burst"`
	BotName   string `mapstructure:"bot_name"` // username without @, used in deep links
}

// PaymentConfig represents the PIX payment gateway configuration
type PaymentConfig struct {
	AccessToken     string        `mapstructure:"access_token"`
	APIURL          string        `mapstructure:"api_url"`
	NotificationURL string        `mapstructure:"notification_url"`
	ExpireAfter     time.Duration `mapstructure:"expire_after"`
	// Reconciliation matches a payment to a plan by exact price first,
	// then within this tolerance
	PriceTolerance float64 `mapstructure:"price_tolerance"`
}

// MarketConfig represents marketplace business configuration
type MarketConfig struct {
	// Telegram chat id of the public group where new ads are announced
	GroupChatID int64 `mapstructure:"group_chat_id"`
	// Base URL of the companion site, used in signup prompts
	SiteURL string `mapstructure:"site_url"`
	// How often expired subscriptions are swept
	SweepInterval time.Duration `mapstructure:"sweep_interval"`
	// How long a conversation may stay parked in a flow before reset
	StateTTL time.Duration `mapstructure:"state_ttl"`
}

// RateLimitConfig represents inbound update rate limiting configuration
type RateLimitConfig struct {
	Enabled bool `mapstructure:"enabled"`
	PerUser struct {
		RPS   int           `mapstructure:"rps"`
		Burst int           `mapstructure:"burst"`
		TTL   time.Duration `mapstructure:"ttl"`
	} `mapstructure:"per_user"`
}

// CircuitBreakConfig represents circuit breaker configuration for
// outbound HTTP calls
type CircuitBreakConfig struct {
	Enabled         bool          `mapstructure:"enabled"`
	MaxRequests     uint32        `mapstructure:"max_requests"`
	Interval        time.Duration `mapstructure:"interval"`
	Timeout         time.Duration `mapstructure:"timeout"`
	FailureRatio    float64       `mapstructure:"failure_ratio"`
	MinRequestCount uint32        `mapstructure:"min_request_count"`
}

// SecurityConfig represents security configuration
type SecurityConfig struct {
	JWT struct {
		Secret string        `mapstructure:"secret"`
		Expire time.Duration `mapstructure:"expire"`
		Issuer string        `mapstructure:"issuer"`
	} `mapstructure:"jwt"`
	CORS struct {
		Enabled          bool     `mapstructure:"enabled"`
		AllowOrigins     []string `mapstructure:"allow_origins"`
		AllowMethods     []string `mapstructure:"allow_methods"`
		AllowHeaders     []string `mapstructure:"allow_headers"`
		AllowCredentials bool     `mapstructure:"allow_credentials"`
		MaxAge           int      `mapstructure:"max_age"`
	} `mapstructure:"cors"`
}

// GetAddr returns the server address
func (s *ServerConfig) GetAddr() string {
	if s.Host == "" {
		s.Host = "0.0.0.0"
	}
	if s.Port == 0 {
		s.Port = 8080
	}
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// GetDSN returns the database DSN
func (d *DatabaseConfig) GetDSN() string {
	if d.Charset == "" {
		d.Charset = "utf8mb4"
	}
	if d.Loc == "" {
		d.Loc = "Local"
	}
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=%s&parseTime=%t&loc=%s",
		d.Username, d.Password, d.Host, d.Port, d.DBName, d.Charset, d.ParseTime, d.Loc)
}

// GetAddr returns the Redis address
func (r *RedisConfig) GetAddr() string {
	if r.Host == "" {
		r.Host = "localhost"
	}
	if r.Port == 0 {
		r.Port = 6379
	}
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}

	if c.Database.Host == "" {
		return fmt.Errorf("database host is required")
	}

	if c.Database.Username == "" {
		return fmt.Errorf("database username is required")
	}

	if c.Database.DBName == "" {
		return fmt.Errorf("database name is required")
	}

	if c.Redis.Host == "" {
		return fmt.Errorf("redis host is required")
	}

	if c.Telegram.Token == "" {
		return fmt.Errorf("telegram bot token is required")
	}

	if c.Payment.AccessToken == "" {
		return fmt.Errorf("payment gateway access token is required")
	}

	if c.Security.JWT.Secret == "" {
		return fmt.Errorf("JWT secret is required")
	}

	return nil
}

// SetDefaults sets default values for configuration
func (c *Config) SetDefaults() {
	if c.Server.Host == "" {
		c.Server.Host = "0.0.0.0"
	}
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if c.Server.Mode == "" {
		c.Server.Mode = "release"
	}
	if c.Server.ReadTimeout == 0 {
		c.Server.ReadTimeout = 30 * time.Second
	}
	if c.Server.WriteTimeout == 0 {
		c.Server.WriteTimeout = 30 * time.Second
	}
	if c.Server.IdleTimeout == 0 {
		c.Server.IdleTimeout = 60 * time.Second
	}

	if c.Database.Driver == "" {
		c.Database.Driver = "mysql"
	}
	if c.Database.Host == "" {
		c.Database.Host = "localhost"
	}
	if c.Database.Port == 0 {
		c.Database.Port = 3306
	}
	if c.Database.Charset == "" {
		c.Database.Charset = "utf8mb4"
	}
	if c.Database.Loc == "" {
		c.Database.Loc = "Local"
	}
	if c.Database.MaxOpenConns == 0 {
		c.Database.MaxOpenConns = 50
	}
	if c.Database.MaxIdleConns == 0 {
		c.Database.MaxIdleConns = 10
	}
	if c.Database.ConnMaxLifetime == 0 {
		c.Database.ConnMaxLifetime = time.Hour
	}
	if c.Database.ConnMaxIdleTime == 0 {
		c.Database.ConnMaxIdleTime = 10 * time.Minute
	}
	if c.Database.LogLevel == "" {
		c.Database.LogLevel = "warn"
	}

	if c.Redis.Host == "" {
		c.Redis.Host = "localhost"
	}
	if c.Redis.Port == 0 {
		c.Redis.Port = 6379
	}
	if c.Redis.PoolSize == 0 {
		c.Redis.PoolSize = 50
	}
	if c.Redis.MinIdleConns == 0 {
		c.Redis.MinIdleConns = 5
	}
	if c.Redis.MaxRetries == 0 {
		c.Redis.MaxRetries = 3
	}
	if c.Redis.DialTimeout == 0 {
		c.Redis.DialTimeout = 5 * time.Second
	}
	if c.Redis.ReadTimeout == 0 {
		c.Redis.ReadTimeout = 3 * time.Second
	}
	if c.Redis.WriteTimeout == 0 {
		c.Redis.WriteTimeout = 3 * time.Second
	}
	if c.Redis.PoolTimeout == 0 {
		c.Redis.PoolTimeout = 4 * time.Second
	}

	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "json"
	}
	if c.Log.Output == "" {
		c.Log.Output = "stdout"
	}

	if c.Telegram.APIURL == "" {
		c.Telegram.APIURL = "https://api.telegram.org"
	}
	if c.Telegram.PollTimeout == 0 {
		c.Telegram.PollTimeout = 30 * time.Second
	}
	if c.Telegram.SendRPS == 0 {
		c.Telegram.SendRPS = 25
	}
	if c.Telegram.SendBurst == 0 {
		c.Telegram.SendBurst = 5
	}

	if c.Payment.APIURL == "" {
		c.Payment.APIURL = "https://api.mercadopago.com"
	}
	if c.Payment.ExpireAfter == 0 {
		c.Payment.ExpireAfter = 30 * time.Minute
	}
	if c.Payment.PriceTolerance == 0 {
		c.Payment.PriceTolerance = 0.1
	}

	if c.Market.SweepInterval == 0 {
		c.Market.SweepInterval = time.Hour
	}
	if c.Market.StateTTL == 0 {
		c.Market.StateTTL = 24 * time.Hour
	}

	if c.RateLimit.PerUser.RPS == 0 {
		c.RateLimit.PerUser.RPS = 5
	}
	if c.RateLimit.PerUser.Burst == 0 {
		c.RateLimit.PerUser.Burst = 10
	}
	if c.RateLimit.PerUser.TTL == 0 {
		c.RateLimit.PerUser.TTL = time.Minute
	}

	if c.CircuitBreak.MaxRequests == 0 {
		c.CircuitBreak.MaxRequests = 5
	}
	if c.CircuitBreak.Interval == 0 {
		c.CircuitBreak.Interval = time.Minute
	}
	if c.CircuitBreak.Timeout == 0 {
		c.CircuitBreak.Timeout = 30 * time.Second
	}
	if c.CircuitBreak.FailureRatio == 0 {
		c.CircuitBreak.FailureRatio = 0.6
	}
	if c.CircuitBreak.MinRequestCount == 0 {
		c.CircuitBreak.MinRequestCount = 10
	}

	if c.Security.JWT.Expire == 0 {
		c.Security.JWT.Expire = 2 * time.Hour
	}
	if c.Security.JWT.Issuer == "" {
		c.Security.JWT.Issuer = "milebot"
	}
}
