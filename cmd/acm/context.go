package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"acmsync/internal/access"
	"acmsync/internal/checkoutapi"
	"acmsync/internal/config"
	"acmsync/internal/logging"
	"acmsync/internal/revision"
	"acmsync/internal/srn"
)

type commandContext struct {
	configFlag *string
	verbose    *bool

	configOnce sync.Once
	config     *config.Config
	configErr  error

	loggerOnce sync.Once
	logger     *slog.Logger
}

func newCommandContext(configFlag *string, verbose *bool) *commandContext {
	return &commandContext{
		configFlag: configFlag,
		verbose:    verbose,
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

func (c *commandContext) configValue() *config.Config {
	cfg, _ := c.ensureConfig()
	return cfg
}

// log returns the CLI logger. Without --verbose only warnings reach stderr;
// the JSON copy in the log directory follows the same level.
func (c *commandContext) log() *slog.Logger {
	c.loggerOnce.Do(func() {
		cfg := c.configValue()
		if cfg == nil {
			c.logger = logging.NewNop()
			return
		}
		opts := logging.Options{
			Level:       "warn",
			Format:      cfg.Logging.Format,
			OutputPaths: []string{"stderr"},
			FilePath:    filepath.Join(cfg.Paths.LogDir, "acm.log"),
		}
		if c.verbose != nil && *c.verbose {
			opts.Level = cfg.Logging.Level
		}
		logger, err := logging.New(opts)
		if err != nil {
			logger = logging.NewNop()
		}
		c.logger = logger
	})
	return c.logger
}

func (c *commandContext) client() (*checkoutapi.Client, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	return checkoutapi.NewClientFromConfig(cfg)
}

func (c *commandContext) store() (revision.Store, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	store, err := revision.NewFromConfig(cfg)
	if err != nil {
		return nil, fmt.Errorf("open revision store: %w", err)
	}
	return store, nil
}

// withController builds an access controller for acm, runs Init and hands it
// to fn. The controller is closed afterwards; read-write checkouts persist in
// the local marker.
func (c *commandContext) withController(ctx context.Context, acm string, fn func(*access.Controller, access.AccessStatus) error) error {
	cfg, err := c.ensureConfig()
	if err != nil {
		return err
	}
	store, err := c.store()
	if err != nil {
		return err
	}
	client, err := c.client()
	if err != nil {
		return err
	}
	ctrl, err := access.NewFromConfig(cfg, acm, store, client, c.log())
	if err != nil {
		return err
	}
	defer ctrl.Close()

	status, err := ctrl.Init(ctx)
	if err != nil {
		return fmt.Errorf("determine access status: %w", err)
	}
	return fn(ctrl, status)
}

func (c *commandContext) allocator() (*srn.Allocator, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	client, err := c.client()
	if err != nil {
		return nil, err
	}
	return srn.NewFromConfig(cfg, client, c.log())
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}

func requireACM(args []string) (string, error) {
	if len(args) == 0 || strings.TrimSpace(args[0]) == "" {
		return "", errors.New("acm name is required")
	}
	return revision.CanonicalACM(args[0])
}

func yesNo(value bool) string {
	if value {
		return "yes"
	}
	return "no"
}
