package main

import (
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"filemanager/internal/config"
	"filemanager/internal/journal"
	"filemanager/internal/logging"
	"filemanager/internal/review"
)

type commandContext struct {
	configFlag *string
	jsonFlag   *bool

	configOnce sync.Once
	config     *config.Config
	configErr  error

	journalOnce sync.Once
	journal     *journal.Journal
	journalErr  error
}

func newCommandContext(configFlag *string, jsonFlag *bool) *commandContext {
	return &commandContext{
		configFlag: configFlag,
		jsonFlag:   jsonFlag,
	}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		cfg, _, _, err := config.Load(path)
		if err != nil {
			c.configErr = err
			return
		}
		if err := cfg.EnsureDirectories(); err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
	})
	return c.config, c.configErr
}

func (c *commandContext) jsonOutput() bool {
	return c.jsonFlag != nil && *c.jsonFlag
}

// openJournal opens the configured journal once. It returns nil when the
// journal is disabled.
func (c *commandContext) openJournal() (*journal.Journal, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	c.journalOnce.Do(func() {
		path := cfg.JournalPath()
		if path == "" {
			return
		}
		c.journal, c.journalErr = journal.Open(path)
	})
	return c.journal, c.journalErr
}

// cliLogger writes warnings and errors to the command's stderr so one-shot
// commands stay quiet on success.
func (c *commandContext) cliLogger(cmd *cobra.Command) *slog.Logger {
	format := "console"
	if cfg, err := c.ensureConfig(); err == nil {
		format = cfg.Logging.Format
	}
	logger, err := logging.New(logging.Options{
		Level:  "warn",
		Format: format,
		Writer: cmd.ErrOrStderr(),
	})
	if err != nil {
		return logging.NewNop()
	}
	return logger
}

// executor builds an executor that journals when the journal is enabled.
func (c *commandContext) executor(cmd *cobra.Command, logger *slog.Logger) (*review.Executor, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = c.cliLogger(cmd)
	}
	var opts []review.Option
	j, err := c.openJournal()
	if err != nil {
		return nil, fmt.Errorf("open journal: %w", err)
	}
	if j != nil {
		opts = append(opts, review.WithJournal(j))
	}
	return review.New(cfg, logger, opts...), nil
}

func (c *commandContext) close() error {
	if c.journal == nil {
		return nil
	}
	err := c.journal.Close()
	c.journal = nil
	return err
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}
