package config

import (
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"
)

func (c *Config) normalize() error {
	c.applyEnv()
	if err := c.normalizePaths(); err != nil {
		return err
	}
	if err := c.normalizeServer(); err != nil {
		return err
	}
	if err := c.normalizeJournal(); err != nil {
		return err
	}
	if c.Execution.BulkTimeoutSeconds <= 0 {
		c.Execution.BulkTimeoutSeconds = defaultBulkTimeoutSeconds
	}
	c.normalizeLogging()
	return nil
}

// applyEnv lets the environment override file values. FILEMANAGER_PORT only
// replaces the port portion of server.bind.
func (c *Config) applyEnv() {
	if value, ok := os.LookupEnv(EnvStateDir); ok && strings.TrimSpace(value) != "" {
		c.Paths.StateDir = strings.TrimSpace(value)
	}
	if value, ok := os.LookupEnv(EnvSkippedDir); ok && strings.TrimSpace(value) != "" {
		c.Paths.SkippedDir = strings.TrimSpace(value)
	}
	if value, ok := os.LookupEnv(EnvPort); ok && strings.TrimSpace(value) != "" {
		host := "127.0.0.1"
		if h, _, err := net.SplitHostPort(strings.TrimSpace(c.Server.Bind)); err == nil {
			host = h
		}
		c.Server.Bind = net.JoinHostPort(host, strings.TrimSpace(value))
	}
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.StateDir) == "" {
		c.Paths.StateDir = defaultStateDir
	}
	if c.Paths.StateDir, err = expandPath(strings.TrimSpace(c.Paths.StateDir)); err != nil {
		return fmt.Errorf("paths.state_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.SkippedDir) == "" {
		c.Paths.SkippedDir = defaultSkippedDir
	}
	if c.Paths.SkippedDir, err = expandPath(strings.TrimSpace(c.Paths.SkippedDir)); err != nil {
		return fmt.Errorf("paths.skipped_dir: %w", err)
	}
	if c.Paths.LogDir, err = expandPath(strings.TrimSpace(c.Paths.LogDir)); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeServer() error {
	var err error
	c.Server.Bind = strings.TrimSpace(c.Server.Bind)
	if c.Server.Bind == "" {
		c.Server.Bind = defaultServerBind
	}
	if c.Server.StaticDir, err = expandPath(strings.TrimSpace(c.Server.StaticDir)); err != nil {
		return fmt.Errorf("server.static_dir: %w", err)
	}
	c.Server.APIToken = strings.TrimSpace(c.Server.APIToken)
	return nil
}

func (c *Config) normalizeJournal() error {
	var err error
	if c.Journal.Path, err = expandPath(strings.TrimSpace(c.Journal.Path)); err != nil {
		return fmt.Errorf("journal.path: %w", err)
	}
	return nil
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	switch c.Logging.Format {
	case "", "console":
		c.Logging.Format = "console"
	case "json":
	default:
		c.Logging.Format = "console"
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}

// Port returns the numeric port of server.bind, or 0 when it cannot be parsed.
func (c *Config) Port() int {
	_, port, err := net.SplitHostPort(c.Server.Bind)
	if err != nil {
		return 0
	}
	value, err := strconv.Atoi(port)
	if err != nil {
		return 0
	}
	return value
}
