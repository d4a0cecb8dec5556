package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeIdentity()
	c.normalizeServer()
	c.normalizeStorage()
	c.normalizeSRN()
	c.normalizeDaemon()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.SharedDir) == "" {
		c.Paths.SharedDir = defaultSharedDir
	}
	if c.Paths.SharedDir, err = expandPath(strings.TrimSpace(c.Paths.SharedDir)); err != nil {
		return fmt.Errorf("paths.shared_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.LocalDir) == "" {
		c.Paths.LocalDir = defaultLocalDir
	}
	if c.Paths.LocalDir, err = expandPath(strings.TrimSpace(c.Paths.LocalDir)); err != nil {
		return fmt.Errorf("paths.local_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = defaultLogDir
	}
	if c.Paths.LogDir, err = expandPath(strings.TrimSpace(c.Paths.LogDir)); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.SRNDir) == "" {
		c.Paths.SRNDir = defaultSRNDir
	}
	if c.Paths.SRNDir, err = expandPath(strings.TrimSpace(c.Paths.SRNDir)); err != nil {
		return fmt.Errorf("paths.srn_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeIdentity() {
	c.Identity.UserName = strings.TrimSpace(c.Identity.UserName)
	if c.Identity.UserName == "" {
		if value, ok := os.LookupEnv("ACM_USER"); ok && strings.TrimSpace(value) != "" {
			c.Identity.UserName = strings.TrimSpace(value)
		} else if value, ok := os.LookupEnv("USER"); ok && strings.TrimSpace(value) != "" {
			c.Identity.UserName = strings.TrimSpace(value)
		} else {
			c.Identity.UserName = defaultUserName
		}
	}
	c.Identity.Contact = strings.TrimSpace(c.Identity.Contact)
	c.Identity.ComputerName = strings.TrimSpace(c.Identity.ComputerName)
	if c.Identity.ComputerName == "" {
		if host, err := os.Hostname(); err == nil && strings.TrimSpace(host) != "" {
			c.Identity.ComputerName = strings.TrimSpace(host)
		} else {
			c.Identity.ComputerName = defaultComputerName
		}
	}
}

func (c *Config) normalizeServer() {
	c.Server.URL = strings.TrimRight(strings.TrimSpace(c.Server.URL), "/")
	if c.Server.URL == "" {
		c.Server.URL = defaultServerURL
	}
	c.Server.APIToken = strings.TrimSpace(c.Server.APIToken)
	if c.Server.APIToken == "" {
		if value, ok := os.LookupEnv("ACM_API_TOKEN"); ok {
			c.Server.APIToken = strings.TrimSpace(value)
		}
	}
	if c.Server.TimeoutSeconds <= 0 {
		c.Server.TimeoutSeconds = defaultServerTimeout
	}
}

func (c *Config) normalizeStorage() {
	c.Storage.Backend = strings.ToLower(strings.TrimSpace(c.Storage.Backend))
	if c.Storage.Backend == "" {
		c.Storage.Backend = defaultStorageBackend
	}
	c.Storage.S3Bucket = strings.TrimSpace(c.Storage.S3Bucket)
	c.Storage.S3Prefix = strings.TrimLeft(strings.TrimSpace(c.Storage.S3Prefix), "/")
	if c.Storage.S3Prefix != "" && !strings.HasSuffix(c.Storage.S3Prefix, "/") {
		c.Storage.S3Prefix += "/"
	}
	c.Storage.S3Region = strings.TrimSpace(c.Storage.S3Region)
	if c.Storage.S3Region == "" {
		if value, ok := os.LookupEnv("AWS_REGION"); ok {
			c.Storage.S3Region = strings.TrimSpace(value)
		}
	}
	if c.Storage.MinFreeSpaceMiB < 0 {
		c.Storage.MinFreeSpaceMiB = 0
	}
}

func (c *Config) normalizeSRN() {
	c.SRN.Prefix = strings.ToUpper(strings.TrimSpace(c.SRN.Prefix))
	if c.SRN.Prefix == "" {
		c.SRN.Prefix = defaultSRNPrefix
	}
	if c.SRN.BlockSize <= 0 {
		c.SRN.BlockSize = defaultSRNBlockSize
	}
}

func (c *Config) normalizeDaemon() {
	c.Daemon.Bind = strings.TrimSpace(c.Daemon.Bind)
	if c.Daemon.Bind == "" {
		c.Daemon.Bind = defaultDaemonBind
	}
	c.Daemon.APIToken = strings.TrimSpace(c.Daemon.APIToken)
	if c.Daemon.APIToken == "" {
		if value, ok := os.LookupEnv("ACMD_API_TOKEN"); ok {
			c.Daemon.APIToken = strings.TrimSpace(value)
		}
	}
	c.Daemon.DBDriver = strings.ToLower(strings.TrimSpace(c.Daemon.DBDriver))
	if c.Daemon.DBDriver == "" {
		c.Daemon.DBDriver = defaultDBDriver
	}
	c.Daemon.DBDSN = strings.TrimSpace(c.Daemon.DBDSN)
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
