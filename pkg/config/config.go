package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// EnvFile is loaded when present. Variables already set in the environment
// take precedence over it.
var EnvFile = "config.env"

const (
	AuditSinkFile     = "file"
	AuditSinkPostgres = "postgres"
)

type Config struct {
	Port        string
	APIKey      string
	LogDir      string
	LockTimeout time.Duration

	// TLS is served when both files are set.
	TLSCertFile string
	TLSKeyFile  string

	Audit AuditConfig
}

type AuditConfig struct {
	Sink     string
	Dir      string
	Schedule string

	TransactionCapacity  int
	TransactionBatchSize int
	TransactionInterval  time.Duration

	BalanceCapacity  int
	BalanceBatchSize int
	BalanceInterval  time.Duration

	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
}

type DBConfig struct {
	Host         string
	Port         int
	User         string
	Password     string
	Name         string
	MaxOpenConns int
	MaxIdleConns int
}

func loadEnvFile() error {
	err := godotenv.Load(EnvFile)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("load %s: %w", EnvFile, err)
	}
	return nil
}

func LoadConfig() (*Config, error) {
	if err := loadEnvFile(); err != nil {
		return nil, err
	}

	r := &reader{}
	cfg := &Config{
		Port:        r.str("SERVER_PORT", "8080"),
		APIKey:      r.str("API_KEY", "f9Uie8nNf112hx8s"),
		LogDir:      r.str("LOG_DIR", "logs"),
		LockTimeout: r.duration("LOCK_TIMEOUT", time.Second),
		TLSCertFile: r.str("TLS_CERT_FILE", ""),
		TLSKeyFile:  r.str("TLS_KEY_FILE", ""),
		Audit: AuditConfig{
			Sink:     r.str("AUDIT_SINK", AuditSinkFile),
			Dir:      r.str("AUDIT_DIR", "audit"),
			Schedule: r.str("AUDIT_SNAPSHOT_SCHEDULE", "@every 1m"),

			TransactionCapacity:  r.integer("AUDIT_TX_QUEUE_CAPACITY", 100000),
			TransactionBatchSize: r.integer("AUDIT_TX_BATCH_SIZE", 1000),
			TransactionInterval:  r.duration("AUDIT_TX_FLUSH_INTERVAL", 100*time.Millisecond),

			BalanceCapacity:  r.integer("AUDIT_BALANCE_QUEUE_CAPACITY", 10000),
			BalanceBatchSize: r.integer("AUDIT_BALANCE_BATCH_SIZE", 100),
			BalanceInterval:  r.duration("AUDIT_BALANCE_FLUSH_INTERVAL", 200*time.Millisecond),

			WriteTimeout:    r.duration("AUDIT_WRITE_TIMEOUT", 5*time.Second),
			ShutdownTimeout: r.duration("AUDIT_SHUTDOWN_TIMEOUT", 10*time.Second),
		},
	}
	if r.err != nil {
		return nil, r.err
	}

	switch cfg.Audit.Sink {
	case AuditSinkFile, AuditSinkPostgres:
	default:
		return nil, fmt.Errorf("invalid AUDIT_SINK %q: want %s or %s", cfg.Audit.Sink, AuditSinkFile, AuditSinkPostgres)
	}
	if cfg.APIKey == "" {
		return nil, errors.New("API_KEY must not be empty")
	}
	return cfg, nil
}

func LoadConfigDB() (*DBConfig, error) {
	if err := loadEnvFile(); err != nil {
		return nil, err
	}

	port, err := strconv.Atoi(os.Getenv("DB_PORT"))
	if err != nil {
		return nil, fmt.Errorf("invalid DB_PORT: %w", err)
	}

	r := &reader{}
	cfg := &DBConfig{
		Host:         os.Getenv("DB_HOST"),
		Port:         port,
		User:         os.Getenv("DB_USER"),
		Password:     os.Getenv("DB_PASSWORD"),
		Name:         os.Getenv("DB_NAME"),
		MaxOpenConns: r.integer("DB_MAX_OPEN_CONNS", 10),
		MaxIdleConns: r.integer("DB_MAX_IDLE_CONNS", 5),
	}
	if r.err != nil {
		return nil, r.err
	}
	return cfg, nil
}

// reader keeps the first parse error so LoadConfig can read every key
// before checking.
type reader struct {
	err error
}

func (r *reader) str(key, def string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return def
}

func (r *reader) integer(key string, def int) int {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err == nil && n <= 0 {
		err = errors.New("must be positive")
	}
	if err != nil {
		r.fail(fmt.Errorf("invalid %s: %w", key, err))
		return def
	}
	return n
}

func (r *reader) duration(key string, def time.Duration) time.Duration {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err == nil && d <= 0 {
		err = errors.New("must be positive")
	}
	if err != nil {
		r.fail(fmt.Errorf("invalid %s: %w", key, err))
		return def
	}
	return d
}

func (r *reader) fail(err error) {
	if r.err == nil {
		r.err = err
	}
}
