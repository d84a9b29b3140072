package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config represents the application configuration
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Log      LogConfig      `yaml:"log"`
	Chain    ChainConfig    `yaml:"chain"`
	Redis    RedisConfig    `yaml:"redis"`
	Postgres PostgresConfig `yaml:"postgres"`
	Kafka    KafkaConfig    `yaml:"kafka"`
	Sync     SyncConfig     `yaml:"sync"`
	Explorer ExplorerConfig `yaml:"explorer"`
	Relay    RelayConfig    `yaml:"relay"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port         int           `yaml:"port"`
	PublicURL    string        `yaml:"public_url"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
	IdleTimeout  time.Duration `yaml:"idle_timeout"`
}

// LogConfig controls the slog handler
type LogConfig struct {
	Level      string `yaml:"level"`
	Format     string `yaml:"format"`
	File       string `yaml:"file"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days"`
}

// ChainConfig describes the fullnode and the deployed contract
type ChainConfig struct {
	RPCURL         string        `yaml:"rpc_url"`
	RequestTimeout time.Duration `yaml:"request_timeout"`
	PackageID      string        `yaml:"package_id"`
	Module         string        `yaml:"module"`
	ProfileStruct  string        `yaml:"profile_struct"`
	GameStruct     string        `yaml:"game_struct"`
	RegistryID     string        `yaml:"registry_id"`
	PageSize       int           `yaml:"page_size"`
	Functions      ContractFuncs `yaml:"functions"`
}

// ContractFuncs names the entry functions of the contract module
type ContractFuncs struct {
	CreateProfile string `yaml:"create_profile"`
	AddGame       string `yaml:"add_game"`
	UpdateGame    string `yaml:"update_game"`
	RemoveGame    string `yaml:"remove_game"`
}

// ProfileType returns the fully qualified profile struct type
func (c *ChainConfig) ProfileType() string {
	return fmt.Sprintf("%s::%s::%s", c.PackageID, c.Module, c.ProfileStruct)
}

// GameType returns the fully qualified game struct type
func (c *ChainConfig) GameType() string {
	return fmt.Sprintf("%s::%s::%s", c.PackageID, c.Module, c.GameStruct)
}

// Target returns the move call target for a contract function
func (c *ChainConfig) Target(function string) string {
	return fmt.Sprintf("%s::%s::%s", c.PackageID, c.Module, function)
}

// RedisConfig holds Redis connection configuration
type RedisConfig struct {
	Addr             string        `yaml:"addr"`
	Password         string        `yaml:"password"`
	DB               int           `yaml:"db"`
	PoolSize         int           `yaml:"pool_size"`
	MinIdleConns     int           `yaml:"min_idle_conns"`
	DialTimeout      time.Duration `yaml:"dial_timeout"`
	ReadTimeout      time.Duration `yaml:"read_timeout"`
	WriteTimeout     time.Duration `yaml:"write_timeout"`
	ProfileNamespace string        `yaml:"profile_namespace"`
	GamesNamespace   string        `yaml:"games_namespace"`
	SnapshotTTL      time.Duration `yaml:"snapshot_ttl"`
	DirectoryTTL     time.Duration `yaml:"directory_ttl"`
}

// PostgresConfig holds PostgreSQL connection configuration
type PostgresConfig struct {
	Host            string        `yaml:"host"`
	Port            int           `yaml:"port"`
	User            string        `yaml:"user"`
	Password        string        `yaml:"password"`
	Database        string        `yaml:"database"`
	SSLMode         string        `yaml:"ssl_mode"`
	MaxConnections  int           `yaml:"max_connections"`
	MinConnections  int           `yaml:"min_connections"`
	MaxConnLifetime time.Duration `yaml:"max_conn_lifetime"`
	MaxConnIdleTime time.Duration `yaml:"max_conn_idle_time"`
}

// ConnectionString returns the PostgreSQL connection string
func (c *PostgresConfig) ConnectionString() string {
	sslMode := c.SSLMode
	if sslMode == "" {
		sslMode = "disable"
	}
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.User, c.Password, c.Host, c.Port, c.Database, sslMode,
	)
}

// KafkaConfig holds Kafka connection configuration
type KafkaConfig struct {
	Brokers       []string      `yaml:"brokers"`
	Topic         string        `yaml:"topic"`
	GroupID       string        `yaml:"group_id"`
	Enabled       bool          `yaml:"enabled"`
	BatchSize     int           `yaml:"batch_size"`
	BatchTimeout  time.Duration `yaml:"batch_timeout"`
	RetryAttempts int           `yaml:"retry_attempts"`
	RetryDelay    time.Duration `yaml:"retry_delay"`
}

// SyncConfig holds directory sync worker configuration
type SyncConfig struct {
	Interval      time.Duration `yaml:"interval"`
	Concurrency   int           `yaml:"concurrency"`
	RetryAttempts int           `yaml:"retry_attempts"`
	RetryDelay    time.Duration `yaml:"retry_delay"`
	Enabled       bool          `yaml:"enabled"`
}

// ExplorerConfig holds explorer listing limits
type ExplorerConfig struct {
	MaxPlanets int `yaml:"max_planets"`
}

// RelayConfig controls the chain event relay
type RelayConfig struct {
	PollInterval  time.Duration `yaml:"poll_interval"`
	PageSize      int           `yaml:"page_size"`
	RetryAttempts int           `yaml:"retry_attempts"`
	RetryDelay    time.Duration `yaml:"retry_delay"`
	// StartCursor resumes after a known event, as "<txDigest>:<eventSeq>"
	StartCursor string `yaml:"start_cursor"`
}

// Load reads configuration from a YAML file. Variables from a .env file next to
// the process, when present, are made available to the ${VAR} expansion.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	data = []byte(os.ExpandEnv(string(data)))

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	cfg.applyDefaults()

	return &cfg, nil
}

// applyDefaults sets default values for missing configuration
func (c *Config) applyDefaults() {
	// Server defaults
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if c.Server.PublicURL == "" {
		c.Server.PublicURL = "http://localhost:5173"
	}
	if c.Server.ReadTimeout == 0 {
		c.Server.ReadTimeout = 5 * time.Second
	}
	if c.Server.WriteTimeout == 0 {
		c.Server.WriteTimeout = 30 * time.Second
	}
	if c.Server.IdleTimeout == 0 {
		c.Server.IdleTimeout = 120 * time.Second
	}

	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "json"
	}
	if c.Log.MaxSizeMB == 0 {
		c.Log.MaxSizeMB = 100
	}
	if c.Log.MaxBackups == 0 {
		c.Log.MaxBackups = 3
	}
	if c.Log.MaxAgeDays == 0 {
		c.Log.MaxAgeDays = 28
	}

	// Chain defaults point at the testnet deployment
	if c.Chain.RPCURL == "" {
		c.Chain.RPCURL = "https://fullnode.testnet.sui.io:443"
	}
	if c.Chain.RequestTimeout == 0 {
		c.Chain.RequestTimeout = 15 * time.Second
	}
	if c.Chain.PackageID == "" {
		c.Chain.PackageID = "0x471fd84d5a391aca7c324bb1e9ebc6d21f49b45d32e268d1fdb1683f15956024"
	}
	if c.Chain.Module == "" {
		c.Chain.Module = "game_dev_card"
	}
	if c.Chain.ProfileStruct == "" {
		c.Chain.ProfileStruct = "GameDevCardProfile"
	}
	if c.Chain.GameStruct == "" {
		c.Chain.GameStruct = "GameItem"
	}
	if c.Chain.RegistryID == "" {
		c.Chain.RegistryID = "0x8c7fb9842cb1b969c83fbc9c5ff7c747b9c3f2d97a3d60c8ac9fb3448ed63eba"
	}
	if c.Chain.PageSize == 0 {
		c.Chain.PageSize = 50
	}
	if c.Chain.Functions.CreateProfile == "" {
		c.Chain.Functions.CreateProfile = "create_game_dev_profile"
	}
	if c.Chain.Functions.AddGame == "" {
		c.Chain.Functions.AddGame = "add_game"
	}
	if c.Chain.Functions.UpdateGame == "" {
		c.Chain.Functions.UpdateGame = "update_game"
	}
	if c.Chain.Functions.RemoveGame == "" {
		c.Chain.Functions.RemoveGame = "remove_game"
	}

	// Redis defaults
	if c.Redis.Addr == "" {
		c.Redis.Addr = "localhost:6379"
	}
	if c.Redis.PoolSize == 0 {
		c.Redis.PoolSize = 100
	}
	if c.Redis.MinIdleConns == 0 {
		c.Redis.MinIdleConns = 10
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
	if c.Redis.ProfileNamespace == "" {
		c.Redis.ProfileNamespace = "gamedev_profile_new"
	}
	if c.Redis.GamesNamespace == "" {
		c.Redis.GamesNamespace = "gamedev_games_new"
	}
	if c.Redis.SnapshotTTL == 0 {
		c.Redis.SnapshotTTL = 24 * time.Hour
	}
	if c.Redis.DirectoryTTL == 0 {
		c.Redis.DirectoryTTL = 5 * time.Minute
	}

	// PostgreSQL defaults
	if c.Postgres.Host == "" {
		c.Postgres.Host = "localhost"
	}
	if c.Postgres.Port == 0 {
		c.Postgres.Port = 5432
	}
	if c.Postgres.MaxConnections == 0 {
		c.Postgres.MaxConnections = 20
	}
	if c.Postgres.MinConnections == 0 {
		c.Postgres.MinConnections = 2
	}
	if c.Postgres.MaxConnLifetime == 0 {
		c.Postgres.MaxConnLifetime = 1 * time.Hour
	}
	if c.Postgres.MaxConnIdleTime == 0 {
		c.Postgres.MaxConnIdleTime = 30 * time.Minute
	}

	// Kafka defaults
	if len(c.Kafka.Brokers) == 0 {
		c.Kafka.Brokers = []string{"localhost:9092"}
	}
	if c.Kafka.Topic == "" {
		c.Kafka.Topic = "gamedev-chain-events"
	}
	if c.Kafka.GroupID == "" {
		c.Kafka.GroupID = "gamedev-directory"
	}
	if c.Kafka.BatchSize == 0 {
		c.Kafka.BatchSize = 50
	}
	if c.Kafka.BatchTimeout == 0 {
		c.Kafka.BatchTimeout = 2 * time.Second
	}
	if c.Kafka.RetryAttempts == 0 {
		c.Kafka.RetryAttempts = 3
	}
	if c.Kafka.RetryDelay == 0 {
		c.Kafka.RetryDelay = 1 * time.Second
	}

	// Sync defaults
	if c.Sync.Interval == 0 {
		c.Sync.Interval = 10 * time.Minute
	}
	if c.Sync.Concurrency == 0 {
		c.Sync.Concurrency = 4
	}
	if c.Sync.RetryAttempts == 0 {
		c.Sync.RetryAttempts = 3
	}
	if c.Sync.RetryDelay == 0 {
		c.Sync.RetryDelay = 500 * time.Millisecond
	}

	if c.Explorer.MaxPlanets == 0 {
		c.Explorer.MaxPlanets = 500
	}

	if c.Relay.PollInterval == 0 {
		c.Relay.PollInterval = 3 * time.Second
	}
	if c.Relay.PageSize == 0 {
		c.Relay.PageSize = 50
	}
	if c.Relay.RetryAttempts == 0 {
		c.Relay.RetryAttempts = 5
	}
	if c.Relay.RetryDelay == 0 {
		c.Relay.RetryDelay = 1 * time.Second
	}
}

// Validate reports configuration values the service cannot run with
func (c *Config) Validate() error {
	var errs []error
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("server.port out of range: %d", c.Server.Port))
	}
	if !strings.HasPrefix(c.Chain.RPCURL, "http://") && !strings.HasPrefix(c.Chain.RPCURL, "https://") {
		errs = append(errs, fmt.Errorf("chain.rpc_url must be an http(s) url: %q", c.Chain.RPCURL))
	}
	if !strings.HasPrefix(c.Chain.PackageID, "0x") {
		errs = append(errs, fmt.Errorf("chain.package_id must be a 0x-prefixed id: %q", c.Chain.PackageID))
	}
	if !strings.HasPrefix(c.Chain.RegistryID, "0x") {
		errs = append(errs, fmt.Errorf("chain.registry_id must be a 0x-prefixed id: %q", c.Chain.RegistryID))
	}
	if c.Chain.PageSize <= 0 || c.Chain.PageSize > 50 {
		errs = append(errs, fmt.Errorf("chain.page_size must be within 1..50: %d", c.Chain.PageSize))
	}
	switch strings.ToLower(c.Log.Format) {
	case "json", "text":
	default:
		errs = append(errs, fmt.Errorf("log.format must be json or text: %q", c.Log.Format))
	}
	if c.Sync.Concurrency <= 0 {
		errs = append(errs, fmt.Errorf("sync.concurrency must be positive: %d", c.Sync.Concurrency))
	}
	return errors.Join(errs...)
}

// DefaultConfig returns a configuration with all defaults
func DefaultConfig() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	cfg.Sync.Enabled = true
	return cfg
}
