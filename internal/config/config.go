// Package config loads the three binaries' configuration from the
// environment, following the koanf + validator pattern the upstream
// gateway uses for its single service.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator"
	_ "github.com/joho/godotenv/autoload"
	"github.com/knadh/koanf"
	"github.com/knadh/koanf/providers/env"
)

// TLSConfig points at the mutual-TLS material every tier needs: its own
// certificate/key pair and the shared CA that signs all three tiers'
// certificates.
type TLSConfig struct {
	CertFile string `koanf:"cert_file" validate:"required"`
	KeyFile  string `koanf:"key_file" validate:"required"`
	CAFile   string `koanf:"ca_file" validate:"required"`
}

// BankConfig configures a single bank server process.
type BankConfig struct {
	BankName     string        `koanf:"bank_name" validate:"required"`
	Port         string        `koanf:"port" validate:"required"`
	TLS          TLSConfig     `koanf:"tls"`
	Database     DatabaseConfig `koanf:"database"`
	Logger       LoggerConfig  `koanf:"logger"`
	AbortTimeout time.Duration `koanf:"abort_timeout"`
}

// GatewayConfig configures the coordinator process. Banks is the static
// discovery map of bank name to address.
type GatewayConfig struct {
	Port             string            `koanf:"port" validate:"required"`
	TLS              TLSConfig         `koanf:"tls"`
	Banks            map[string]string `koanf:"-"`
	TokenTTL         time.Duration     `koanf:"token_ttl"`
	TokenSweep       time.Duration     `koanf:"token_sweep_interval"`
	PhaseTimeout     time.Duration     `koanf:"phase_timeout"`
	AbortTimeout     time.Duration     `koanf:"abort_timeout"`
	SafetyMargin     time.Duration     `koanf:"safety_margin"`
	TokenStorePath   string            `koanf:"token_store_path" validate:"required"`
	IdempotencyStore string            `koanf:"idempotency_store_path" validate:"required"`
	Logger           LoggerConfig      `koanf:"logger"`
}

// ClientConfig configures the interactive CLI client.
type ClientConfig struct {
	GatewayAddr    string        `koanf:"gateway_addr" validate:"required"`
	TLS            TLSConfig     `koanf:"tls"`
	QueueDir       string        `koanf:"queue_dir" validate:"required"`
	CheckInterval  time.Duration `koanf:"check_interval"`
	Logger         LoggerConfig  `koanf:"logger"`
}

type DatabaseConfig struct {
	Host            string        `koanf:"host" validate:"required"`
	Port            int           `koanf:"port" validate:"required"`
	User            string        `koanf:"user" validate:"required"`
	Password        string        `koanf:"password" validate:"required"`
	Name            string        `koanf:"name" validate:"required"`
	SSLMode         string        `koanf:"ssl_mode"`
	MaxOpenConns    int           `koanf:"max_open_conns"`
	MaxIdleConns    int           `koanf:"max_idle_conns"`
	ConnMaxLifetime time.Duration `koanf:"conn_max_lifetime"`
}

type LoggerConfig struct {
	Level string `koanf:"level"`
}

func newLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

// load reads environment variables under prefix into dst using koanf,
// in "GATEWAY_SECTION__FIELD" style (GATEWAY_TLS__CERT_FILE becomes
// tls.cert_file), then validates required fields.
func load(prefix string, dst any) error {
	logger := newLogger()
	k := koanf.New(".")

	err := k.Load(env.Provider(prefix, ".", func(s string) string {
		return strings.ReplaceAll(
			strings.ToLower(strings.TrimPrefix(s, prefix)),
			"__",
			".",
		)
	}), nil)
	if err != nil {
		logger.Error("failed to load environment variables", "error", err, "prefix", prefix)
		return err
	}

	if err := k.Unmarshal("", dst); err != nil {
		logger.Error("could not unmarshal config", "error", err, "prefix", prefix)
		return err
	}

	validate := validator.New()
	if err := validate.Struct(dst); err != nil {
		logger.Error("config validation failed", "error", err, "prefix", prefix)
		return err
	}

	return nil
}

func applyBankDefaults(cfg *BankConfig) {
	if cfg.AbortTimeout == 0 {
		cfg.AbortTimeout = 2 * time.Second
	}
	if cfg.Database.SSLMode == "" {
		cfg.Database.SSLMode = "disable"
	}
	if cfg.Database.MaxOpenConns == 0 {
		cfg.Database.MaxOpenConns = 10
	}
	if cfg.Database.MaxIdleConns == 0 {
		cfg.Database.MaxIdleConns = 5
	}
	if cfg.Database.ConnMaxLifetime == 0 {
		cfg.Database.ConnMaxLifetime = time.Hour
	}
	if cfg.Logger.Level == "" {
		cfg.Logger.Level = "info"
	}
}

func applyGatewayDefaults(cfg *GatewayConfig) {
	if cfg.TokenTTL == 0 {
		cfg.TokenTTL = time.Hour
	}
	if cfg.TokenSweep == 0 {
		cfg.TokenSweep = time.Hour
	}
	if cfg.PhaseTimeout == 0 {
		cfg.PhaseTimeout = 10 * time.Second
	}
	if cfg.AbortTimeout == 0 {
		cfg.AbortTimeout = 2 * time.Second
	}
	if cfg.SafetyMargin == 0 {
		cfg.SafetyMargin = time.Second
	}
	if cfg.Logger.Level == "" {
		cfg.Logger.Level = "info"
	}
}

func applyClientDefaults(cfg *ClientConfig) {
	if cfg.CheckInterval == 0 {
		cfg.CheckInterval = 10 * time.Second
	}
	if cfg.Logger.Level == "" {
		cfg.Logger.Level = "info"
	}
}

// LoadBankConfig loads a bank server's configuration from BANK_* env vars.
func LoadBankConfig() (*BankConfig, error) {
	cfg := &BankConfig{}
	if err := load("BANK_", cfg); err != nil {
		return nil, err
	}
	applyBankDefaults(cfg)
	return cfg, nil
}

// LoadGatewayConfig loads the gateway's configuration from GATEWAY_* env
// vars, plus the static bank discovery map from GATEWAY_BANKS
// ("Bank1=localhost:50052,Bank2=localhost:50053").
func LoadGatewayConfig() (*GatewayConfig, error) {
	cfg := &GatewayConfig{}
	if err := load("GATEWAY_", cfg); err != nil {
		return nil, err
	}
	applyGatewayDefaults(cfg)

	cfg.Banks = map[string]string{}
	if raw := os.Getenv("GATEWAY_BANKS"); raw != "" {
		for _, pair := range strings.Split(raw, ",") {
			kv := strings.SplitN(pair, "=", 2)
			if len(kv) != 2 {
				return nil, fmt.Errorf("invalid GATEWAY_BANKS entry %q", pair)
			}
			cfg.Banks[strings.TrimSpace(kv[0])] = strings.TrimSpace(kv[1])
		}
	}
	return cfg, nil
}

// LoadClientConfig loads the CLI client's configuration from CLIENT_*
// env vars.
func LoadClientConfig() (*ClientConfig, error) {
	cfg := &ClientConfig{}
	if err := load("CLIENT_", cfg); err != nil {
		return nil, err
	}
	applyClientDefaults(cfg)
	return cfg, nil
}
