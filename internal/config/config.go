package config

import (
	"fmt"
	"net"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/udisondev/hexbattle/internal/model"
)

// Storage drivers.
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// BattleServer holds all configuration for the battle server.
type BattleServer struct {
	// Network
	BindAddress string `yaml:"bind_address"`
	Port        int    `yaml:"port"`

	// LogLevel is one of debug, info, warn, error.
	LogLevel string `yaml:"log_level"`

	// Storage
	Storage  StorageConfig  `yaml:"storage"`
	Database DatabaseConfig `yaml:"database"`

	// Websocket viewers
	SendQueueSize int           `yaml:"send_queue_size"` // per-viewer outbox capacity (default: 16)
	WriteTimeout  time.Duration `yaml:"write_timeout"`   // per-write deadline (default: 5s)

	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`

	Combat     Combat            `yaml:"combat"`
	Companions []model.Companion `yaml:"companions"`
}

// StorageConfig selects where battles are kept.
type StorageConfig struct {
	Driver     string `yaml:"driver"`
	SQLitePath string `yaml:"sqlite_path"`
}

// DatabaseConfig holds PostgreSQL connection parameters.
type DatabaseConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	DBName   string `yaml:"dbname"`
	SSLMode  string `yaml:"sslmode"`
}

// DSN returns the PostgreSQL connection string.
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.DBName, d.SSLMode,
	)
}

// Addr returns the HTTP listen address.
func (c BattleServer) Addr() string {
	return net.JoinHostPort(c.BindAddress, strconv.Itoa(c.Port))
}

// DefaultBattleServer returns BattleServer config with sensible defaults.
func DefaultBattleServer() BattleServer {
	return BattleServer{
		BindAddress: "0.0.0.0",
		Port:        8080,
		LogLevel:    "info",
		Storage: StorageConfig{
			Driver:     DriverPostgres,
			SQLitePath: "hexbattle.db",
		},
		Database: DatabaseConfig{
			Host:     "127.0.0.1",
			Port:     5432,
			User:     "hexbattle",
			Password: "hexbattle",
			DBName:   "hexbattle",
			SSLMode:  "disable",
		},
		SendQueueSize:   16,
		WriteTimeout:    5 * time.Second,
		ShutdownTimeout: 10 * time.Second,
		Combat:          DefaultCombat(),
	}
}

// LoadBattleServer loads battle server config from a YAML file.
// If the file doesn't exist, returns defaults.
func LoadBattleServer(path string) (BattleServer, error) {
	cfg := DefaultBattleServer()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("reading config %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parsing config %s: %w", path, err)
	}

	switch cfg.Storage.Driver {
	case DriverPostgres, DriverSQLite:
	default:
		return cfg, fmt.Errorf("config %s: unknown storage driver %q", path, cfg.Storage.Driver)
	}

	return cfg, nil
}
