package configs

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v2"
)

const (
	StorageMemory   = "memory"
	StoragePostgres = "postgres"
)

type Config struct {
	GRPC      GRPCConfig      `yaml:"grpc"`
	HTTP      HTTPConfig      `yaml:"http"`
	Storage   StorageConfig   `yaml:"storage"`
	DB        DBConfig        `yaml:"db"`
	Kafka     KafkaConfig     `yaml:"kafka"`
	Redis     RedisConfig     `yaml:"redis"`
	Reminders RemindersConfig `yaml:"reminders"`
	Mail      MailConfig      `yaml:"mail"`
	Cascade   CascadeConfig   `yaml:"cascade"`
	Log       LogConfig       `yaml:"log"`
}

type GRPCConfig struct {
	Address string        `yaml:"address"`
	Timeout time.Duration `yaml:"timeout"`
}

type HTTPConfig struct {
	Address         string        `yaml:"address"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

type StorageConfig struct {
	Driver string `yaml:"driver"`
}

type DBConfig struct {
	Host           string `yaml:"host"`
	Port           int    `yaml:"port"`
	User           string `yaml:"user"`
	Password       string `yaml:"password"` //nolint:gosec // config struct, not hardcoded cred
	DBName         string `yaml:"dbname"`
	SSLMode        string `yaml:"sslmode"`
	MigrationsPath string `yaml:"migrations_path"`
	MaxOpenConns   int    `yaml:"max_open_conns"`
}

type KafkaConfig struct {
	Brokers     []string `yaml:"brokers"`
	EmailTopic  string   `yaml:"email_topic"`
	RemindTopic string   `yaml:"remind_topic"`
	ResendTopic string   `yaml:"resend_topic"`
	// UnpublishedTopic carries unpublished-email requests. The service
	// produces to it when a session is unpublished and consumes from it.
	UnpublishedTopic string        `yaml:"unpublished_topic"`
	GroupID          string        `yaml:"group_id"`
	WriteTimeout     time.Duration `yaml:"write_timeout"`
}

// RedisConfig enables the roster cache when Address is set.
type RedisConfig struct {
	Address   string        `yaml:"address"`
	Password  string        `yaml:"password"` //nolint:gosec // config struct, not hardcoded cred
	DB        int           `yaml:"db"`
	RosterTTL time.Duration `yaml:"roster_ttl"`
}

type RemindersConfig struct {
	Interval          time.Duration `yaml:"interval"`
	OpeningSoonWindow time.Duration `yaml:"opening_soon_window"`
	ClosingWindow     time.Duration `yaml:"closing_window"`
	ClosedWindow      time.Duration `yaml:"closed_window"`
}

type MailConfig struct {
	MaxRetries       int           `yaml:"max_retries"`
	BaseDelay        time.Duration `yaml:"base_delay"`
	FailureThreshold int           `yaml:"failure_threshold"`
	ResetTimeout     time.Duration `yaml:"reset_timeout"`
}

type CascadeConfig struct {
	BatchSize  int           `yaml:"batch_size"`
	TimeBudget time.Duration `yaml:"time_budget"`
}

type LogConfig struct {
	Level string `yaml:"level"`
}

func Load() (*Config, error) {
	// A missing .env file is normal outside local development.
	_ = godotenv.Load()

	configPath := getConfigPath()
	data, err := os.ReadFile(configPath) //nolint:gosec // config path from env/flag
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return Parse(data)
}

// Parse builds a Config from YAML, applying defaults and environment
// overrides.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	setDefaults(&cfg)
	overrideFromEnv(&cfg)

	if err := validateConfig(&cfg); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

func getConfigPath() string {
	if path := os.Getenv("CONFIG_PATH"); path != "" {
		return path
	}

	possiblePaths := []string{
		"config/config.yaml",
		"/etc/feedback-service/config.yaml",
		"./config.yaml",
	}

	for _, path := range possiblePaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}

	return "config.yaml"
}

func setDefaults(cfg *Config) {
	if cfg.GRPC.Timeout == 0 {
		cfg.GRPC.Timeout = 30 * time.Second
	}
	if cfg.HTTP.ShutdownTimeout == 0 {
		cfg.HTTP.ShutdownTimeout = 10 * time.Second
	}

	if cfg.Storage.Driver == "" {
		cfg.Storage.Driver = StoragePostgres
	}
	if cfg.DB.MigrationsPath == "" {
		cfg.DB.MigrationsPath = "migrations"
	}
	if cfg.DB.SSLMode == "" {
		cfg.DB.SSLMode = "disable"
	}

	if cfg.Kafka.EmailTopic == "" {
		cfg.Kafka.EmailTopic = "feedback-emails"
	}
	if cfg.Kafka.RemindTopic == "" {
		cfg.Kafka.RemindTopic = "feedback-remind"
	}
	if cfg.Kafka.ResendTopic == "" {
		cfg.Kafka.ResendTopic = "feedback-resend-published"
	}
	if cfg.Kafka.UnpublishedTopic == "" {
		cfg.Kafka.UnpublishedTopic = "feedback-unpublished"
	}
	if cfg.Kafka.GroupID == "" {
		cfg.Kafka.GroupID = "feedback-service-group"
	}
	if cfg.Kafka.WriteTimeout == 0 {
		cfg.Kafka.WriteTimeout = 10 * time.Second
	}

	if cfg.Redis.RosterTTL == 0 {
		cfg.Redis.RosterTTL = 5 * time.Minute
	}

	if cfg.Reminders.Interval == 0 {
		cfg.Reminders.Interval = 15 * time.Minute
	}
	if cfg.Reminders.OpeningSoonWindow == 0 {
		cfg.Reminders.OpeningSoonWindow = 24 * time.Hour
	}
	if cfg.Reminders.ClosingWindow == 0 {
		cfg.Reminders.ClosingWindow = 24 * time.Hour
	}
	if cfg.Reminders.ClosedWindow == 0 {
		cfg.Reminders.ClosedWindow = time.Hour
	}

	if cfg.Cascade.BatchSize == 0 {
		cfg.Cascade.BatchSize = 100
	}
	if cfg.Cascade.TimeBudget == 0 {
		cfg.Cascade.TimeBudget = 30 * time.Second
	}

	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
}

func overrideFromEnv(cfg *Config) {
	if val := os.Getenv("GRPC_ADDRESS"); val != "" {
		cfg.GRPC.Address = val
	}
	if val := os.Getenv("GRPC_TIMEOUT"); val != "" {
		if timeout, err := strconv.Atoi(val); err == nil {
			cfg.GRPC.Timeout = time.Duration(timeout) * time.Second
		}
	}
	if val := os.Getenv("HTTP_ADDRESS"); val != "" {
		cfg.HTTP.Address = val
	}

	if val := os.Getenv("STORAGE_DRIVER"); val != "" {
		cfg.Storage.Driver = val
	}

	if val := os.Getenv("DB_HOST"); val != "" {
		cfg.DB.Host = val
	}
	if val := os.Getenv("DB_PORT"); val != "" {
		if port, err := strconv.Atoi(val); err == nil {
			cfg.DB.Port = port
		}
	}
	if val := os.Getenv("DB_USER"); val != "" {
		cfg.DB.User = val
	}
	if val := os.Getenv("DB_PASSWORD"); val != "" {
		cfg.DB.Password = val
	}
	if val := os.Getenv("DB_NAME"); val != "" {
		cfg.DB.DBName = val
	}
	if val := os.Getenv("DB_SSL_MODE"); val != "" {
		cfg.DB.SSLMode = val
	}
	if val := os.Getenv("DB_MIGRATIONS_PATH"); val != "" {
		cfg.DB.MigrationsPath = val
	}

	if val := os.Getenv("KAFKA_BROKERS"); val != "" {
		cfg.Kafka.Brokers = strings.Split(val, ",")
	}
	if val := os.Getenv("KAFKA_EMAIL_TOPIC"); val != "" {
		cfg.Kafka.EmailTopic = val
	}
	if val := os.Getenv("KAFKA_REMIND_TOPIC"); val != "" {
		cfg.Kafka.RemindTopic = val
	}
	if val := os.Getenv("KAFKA_RESEND_TOPIC"); val != "" {
		cfg.Kafka.ResendTopic = val
	}
	if val := os.Getenv("KAFKA_UNPUBLISHED_TOPIC"); val != "" {
		cfg.Kafka.UnpublishedTopic = val
	}
	if val := os.Getenv("KAFKA_GROUP_ID"); val != "" {
		cfg.Kafka.GroupID = val
	}

	if val := os.Getenv("REDIS_ADDRESS"); val != "" {
		cfg.Redis.Address = val
	}
	if val := os.Getenv("REDIS_PASSWORD"); val != "" {
		cfg.Redis.Password = val
	}
	if val := os.Getenv("REDIS_DB"); val != "" {
		if n, err := strconv.Atoi(val); err == nil {
			cfg.Redis.DB = n
		}
	}

	if val := os.Getenv("REMINDER_INTERVAL"); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			cfg.Reminders.Interval = d
		}
	}

	if val := os.Getenv("LOG_LEVEL"); val != "" {
		cfg.Log.Level = val
	}
}

func validateConfig(cfg *Config) error {
	if cfg.GRPC.Address == "" {
		return fmt.Errorf("GRPC address must be set")
	}

	if cfg.HTTP.Address == "" {
		return fmt.Errorf("HTTP address must be set")
	}

	if len(cfg.Kafka.Brokers) == 0 {
		return fmt.Errorf("at least one Kafka broker must be specified")
	}

	switch cfg.Storage.Driver {
	case StorageMemory:
	case StoragePostgres:
		if cfg.DB.Host == "" || cfg.DB.User == "" || cfg.DB.DBName == "" {
			return fmt.Errorf("database configuration is incomplete")
		}
	default:
		return fmt.Errorf("unknown storage driver %q", cfg.Storage.Driver)
	}

	if cfg.Cascade.BatchSize < 0 {
		return fmt.Errorf("cascade batch size must not be negative")
	}

	return nil
}
