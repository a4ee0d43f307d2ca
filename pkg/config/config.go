// Package config loads folio settings from a YAML file and FOLIO_*
// environment variables.
package config

import "time"

// Config is the root application configuration.
type Config struct {
	Server ServerConfig `yaml:"server"`
	Store  StoreConfig  `yaml:"store"`
	Plan   PlanConfig   `yaml:"plan"`
	Log    LogConfig    `yaml:"log"`
	MCP    MCPConfig    `yaml:"mcp"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Addr            string        `yaml:"addr"             env:"FOLIO_ADDR"             env-default:":8420"`
	CertFile        string        `yaml:"cert_file"        env:"FOLIO_CERT_FILE"`
	KeyFile         string        `yaml:"key_file"         env:"FOLIO_KEY_FILE"`
	DevTLS          bool          `yaml:"dev_tls"          env:"FOLIO_DEV_TLS"          env-default:"false"`
	HTTP3           bool          `yaml:"http3"            env:"FOLIO_HTTP3"            env-default:"false"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" env:"FOLIO_SHUTDOWN_TIMEOUT" env-default:"10s"`
}

// TLS reports whether the server will terminate TLS.
func (s ServerConfig) TLS() bool {
	return s.DevTLS || (s.CertFile != "" && s.KeyFile != "")
}

// StoreConfig holds the SQLite document store settings.
type StoreConfig struct {
	Path string `yaml:"path" env:"FOLIO_STORE_PATH" env-default:"data/folio.db"`
}

// PlanConfig points at an alternative field plan. Empty uses the built-in one.
type PlanConfig struct {
	File string `yaml:"file" env:"FOLIO_PLAN_FILE"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level  string `yaml:"level"  env:"FOLIO_LOG_LEVEL"  env-default:"info"`
	Format string `yaml:"format" env:"FOLIO_LOG_FORMAT" env-default:"text"`
}

// MCPConfig toggles the MCP endpoint, which is mounted unless Disabled.
type MCPConfig struct {
	Disabled bool `yaml:"disabled" env:"FOLIO_MCP_DISABLED"`
}
