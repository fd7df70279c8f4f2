// Package config loads server configuration from a YAML file with
// environment-variable overrides.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"go.yaml.in/yaml/v3"
)

// Validation errors.
var (
	ErrNoDomain       = errors.New("domain must not be empty")
	ErrBadTimeout     = errors.New("ssh idle timeout must be positive")
	ErrBadMessageSize = errors.New("message size limit must be positive")
)

// Config holds all server configuration.
type Config struct {
	// Domain is the public hostname, used in prompts and menu links.
	Domain string `yaml:"domain"`

	// Listen addresses, one per protocol. Empty disables the protocol.
	SSHAddr     string `yaml:"ssh_addr"`
	HTTPAddr    string `yaml:"http_addr"`
	GopherAddr  string `yaml:"gopher_addr"`
	POP3Addr    string `yaml:"pop3_addr"`
	IMAPAddr    string `yaml:"imap_addr"`
	QOTDAddr    string `yaml:"qotd_addr"`
	MetricsAddr string `yaml:"metrics_addr"`

	// GopherPort is advertised in gophermap entries; it must match the
	// port clients use to reach GopherAddr.
	GopherPort int `yaml:"gopher_port"`

	// ContentDir is the root of the site content tree.
	ContentDir string `yaml:"content_dir"`

	// ShowHidden includes projects with non-positive priority.
	ShowHidden bool `yaml:"show_hidden"`

	// HostKeyPath points at a PEM-encoded SSH host key. If the file does
	// not exist, a fresh key is generated and written there.
	HostKeyPath string `yaml:"host_key_path"`

	// SSHIdleTimeout closes terminal sessions with no input for this long.
	SSHIdleTimeout time.Duration `yaml:"ssh_idle_timeout"`

	// Contact store settings.
	MessageDB          string `yaml:"message_db"`
	MessageMaxSize     int    `yaml:"message_max_size"`
	MaxUnreadThreads   int    `yaml:"max_unread_threads"`
	MaxUnreadPerSource int    `yaml:"max_unread_per_source"`

	// Logging settings.
	LogLevel  string `yaml:"log_level"`
	LogFormat string `yaml:"log_format"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Domain:             "localhost",
		SSHAddr:            ":2222",
		HTTPAddr:           ":8080",
		GopherAddr:         ":7070",
		POP3Addr:           ":1100",
		IMAPAddr:           ":1430",
		QOTDAddr:           ":1700",
		MetricsAddr:        ":9090",
		GopherPort:         70,
		ContentDir:         "content",
		HostKeyPath:        "retroweb_host_key",
		SSHIdleTimeout:     5 * time.Minute,
		MessageDB:          "messages.db",
		MessageMaxSize:     2000,
		MaxUnreadThreads:   100,
		MaxUnreadPerSource: 5,
		LogLevel:           "info",
		LogFormat:          "json",
	}
}

// Load reads the configuration file at path, applies environment overrides,
// and validates the result. A missing file is not an error; defaults and
// environment variables alone are used.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	case os.IsNotExist(err):
		// Defaults only.
	default:
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}

	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyEnv overrides fields from RETROWEB_* environment variables.
func (c *Config) applyEnv() {
	setString(&c.Domain, "RETROWEB_DOMAIN")
	setString(&c.SSHAddr, "RETROWEB_SSH_ADDR")
	setString(&c.HTTPAddr, "RETROWEB_HTTP_ADDR")
	setString(&c.GopherAddr, "RETROWEB_GOPHER_ADDR")
	setString(&c.POP3Addr, "RETROWEB_POP3_ADDR")
	setString(&c.IMAPAddr, "RETROWEB_IMAP_ADDR")
	setString(&c.QOTDAddr, "RETROWEB_QOTD_ADDR")
	setString(&c.MetricsAddr, "RETROWEB_METRICS_ADDR")
	setString(&c.ContentDir, "RETROWEB_CONTENT_DIR")
	setString(&c.HostKeyPath, "RETROWEB_HOST_KEY")
	setString(&c.MessageDB, "RETROWEB_MESSAGE_DB")
	setString(&c.LogLevel, "RETROWEB_LOG_LEVEL")
	setString(&c.LogFormat, "RETROWEB_LOG_FORMAT")
	setInt(&c.GopherPort, "RETROWEB_GOPHER_PORT")
	setBool(&c.ShowHidden, "RETROWEB_SHOW_HIDDEN")
	setDuration(&c.SSHIdleTimeout, "RETROWEB_SSH_IDLE_TIMEOUT")
}

// Validate checks the configuration for usable values.
func (c *Config) Validate() error {
	if c.Domain == "" {
		return ErrNoDomain
	}
	if c.SSHIdleTimeout <= 0 {
		return ErrBadTimeout
	}
	if c.MessageMaxSize <= 0 {
		return ErrBadMessageSize
	}
	return nil
}

func setString(dst *string, key string) {
	if v, ok := os.LookupEnv(key); ok {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v, ok := os.LookupEnv(key); ok {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setBool(dst *bool, key string) {
	if v, ok := os.LookupEnv(key); ok {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

func setDuration(dst *time.Duration, key string) {
	if v, ok := os.LookupEnv(key); ok {
		if d, err := time.ParseDuration(v); err == nil {
			*dst = d
		}
	}
}
