package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory configuration.
type Paths struct {
	SharedDir string `toml:"shared_dir"`
	LocalDir  string `toml:"local_dir"`
	LogDir    string `toml:"log_dir"`
	SRNDir    string `toml:"srn_dir"`
}

// Identity describes the workstation user presented to the checkout server.
type Identity struct {
	UserName     string `toml:"user_name"`
	Contact      string `toml:"contact"`
	ComputerName string `toml:"computer_name"`
	ReadOnly     bool   `toml:"read_only"`
}

// Server contains the checkout server endpoint used by the CLI.
type Server struct {
	URL            string `toml:"url"`
	APIToken       string `toml:"api_token"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

// Storage selects where ACM revisions (dbN.zip) are kept.
type Storage struct {
	Backend         string `toml:"backend"`
	S3Bucket        string `toml:"s3_bucket"`
	S3Prefix        string `toml:"s3_prefix"`
	S3Region        string `toml:"s3_region"`
	KeepRevisions   int    `toml:"keep_revisions"`
	MinFreeSpaceMiB int    `toml:"min_free_space_mib"`
}

// SRN contains serial-number allocation settings.
type SRN struct {
	Prefix    string `toml:"prefix"`
	BlockSize int    `toml:"block_size"`
}

// Daemon contains settings for the acmd checkout server.
type Daemon struct {
	Bind             string `toml:"bind"`
	APIToken         string `toml:"api_token"`
	DBDriver         string `toml:"db_driver"`
	DBDSN            string `toml:"db_dsn"`
	MinClientVersion int    `toml:"min_client_version"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for acmsync.
//
// Configuration sections by subsystem:
//   - Paths: shared store, local mirrors, logs and SRN state
//   - Identity: who this workstation claims to be when checking out
//   - Server: checkout server endpoint for the CLI
//   - Storage: revision backend (shared directory or S3) and retention
//   - SRN: serial-number prefix and block size
//   - Daemon: acmd bind address, database and client version policy
//   - Logging: log format and level
type Config struct {
	Paths    Paths    `toml:"paths"`
	Identity Identity `toml:"identity"`
	Server   Server   `toml:"server"`
	Storage  Storage  `toml:"storage"`
	SRN      SRN      `toml:"srn"`
	Daemon   Daemon   `toml:"daemon"`
	Logging  Logging  `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/acmsync/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("acmsync.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates the directories acmsync writes to. The shared
// directory is created on a best-effort basis because it usually belongs to a
// sync client that may not have mounted it yet.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.LocalDir, c.Paths.LogDir, c.Paths.SRNDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	if c.Storage.Backend == StorageBackendDir && strings.TrimSpace(c.Paths.SharedDir) != "" {
		_ = os.MkdirAll(c.Paths.SharedDir, 0o755)
	}
	return nil
}

// ServerTimeout returns the per-request timeout for checkout server calls.
func (c *Config) ServerTimeout() time.Duration {
	return time.Duration(c.Server.TimeoutSeconds) * time.Second
}

// SRNStorePath returns the location of the serial-number state file.
func (c *Config) SRNStorePath() string {
	return filepath.Join(c.Paths.SRNDir, "tbsrnstore.info")
}

// DaemonLockPath returns the single-instance lock file for acmd.
func (c *Config) DaemonLockPath() string {
	return filepath.Join(c.Paths.LogDir, "acmd.lock")
}

// DaemonDSN returns the database DSN for acmd, defaulting to a SQLite file in
// the log directory.
func (c *Config) DaemonDSN() string {
	if dsn := strings.TrimSpace(c.Daemon.DBDSN); dsn != "" {
		return dsn
	}
	return filepath.Join(c.Paths.LogDir, "checkouts.db")
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
