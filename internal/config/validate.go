package config

import (
	"errors"
	"fmt"
	"net/url"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateServer(); err != nil {
		return err
	}
	if err := c.validateStorage(); err != nil {
		return err
	}
	if err := c.validateSRN(); err != nil {
		return err
	}
	if err := c.validateDaemon(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateServer() error {
	parsed, err := url.Parse(c.Server.URL)
	if err != nil {
		return fmt.Errorf("server.url: %w", err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return fmt.Errorf("server.url must use http or https, got %q", c.Server.URL)
	}
	if parsed.Host == "" {
		return fmt.Errorf("server.url must include a host, got %q", c.Server.URL)
	}
	return nil
}

func (c *Config) validateStorage() error {
	switch c.Storage.Backend {
	case StorageBackendDir:
		if c.Paths.SharedDir == "" {
			return errors.New("paths.shared_dir must be set when storage.backend is \"dir\"")
		}
	case StorageBackendS3:
		if c.Storage.S3Bucket == "" {
			return errors.New("storage.s3_bucket must be set when storage.backend is \"s3\"")
		}
	default:
		return fmt.Errorf("storage.backend: unsupported value %q (want %q or %q)", c.Storage.Backend, StorageBackendDir, StorageBackendS3)
	}
	if c.Storage.KeepRevisions < 0 {
		return errors.New("storage.keep_revisions must be >= 0")
	}
	return nil
}

func (c *Config) validateSRN() error {
	if c.SRN.BlockSize >= maxSRNBlockSize {
		return fmt.Errorf("srn.block_size must be below %d", maxSRNBlockSize)
	}
	return nil
}

func (c *Config) validateDaemon() error {
	switch c.Daemon.DBDriver {
	case DBDriverSQLite, DBDriverPostgres:
	default:
		return fmt.Errorf("daemon.db_driver: unsupported value %q (want %q or %q)", c.Daemon.DBDriver, DBDriverSQLite, DBDriverPostgres)
	}
	if c.Daemon.DBDriver == DBDriverPostgres && c.Daemon.DBDSN == "" {
		return errors.New("daemon.db_dsn must be set when daemon.db_driver is \"postgres\"")
	}
	if c.Daemon.MinClientVersion < 0 {
		return errors.New("daemon.min_client_version must be >= 0")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format: unsupported value %q", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level: unsupported value %q", c.Logging.Level)
	}
	return nil
}
