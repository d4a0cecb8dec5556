package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pelletier/go-toml/v2"

	"acmsync/internal/config"
)

func TestLoadDefaultConfigUsesEnvAndExpandsPaths(t *testing.T) {
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)
	t.Setenv("ACM_API_TOKEN", "secret")
	t.Setenv("ACM_USER", "field.worker")
	t.Chdir(t.TempDir())

	cfg, resolved, exists, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if resolved == "" {
		t.Fatal("expected resolved path")
	}
	if exists {
		t.Fatal("expected config file to be absent in temp HOME")
	}

	wantLocal := filepath.Join(tempHome, ".local", "share", "acmsync", "mirrors")
	if cfg.Paths.LocalDir != wantLocal {
		t.Fatalf("unexpected local dir: got %q want %q", cfg.Paths.LocalDir, wantLocal)
	}
	if cfg.Paths.SharedDir != filepath.Join(tempHome, "Dropbox", "ACM") {
		t.Fatalf("unexpected shared dir: %q", cfg.Paths.SharedDir)
	}
	if cfg.Server.APIToken != "secret" {
		t.Fatalf("expected api token from env, got %q", cfg.Server.APIToken)
	}
	if cfg.Identity.UserName != "field.worker" {
		t.Fatalf("expected user name from env, got %q", cfg.Identity.UserName)
	}
	if cfg.Identity.ComputerName == "" {
		t.Fatal("expected computer name default")
	}
	if cfg.Storage.Backend != config.StorageBackendDir {
		t.Fatalf("unexpected storage backend: %q", cfg.Storage.Backend)
	}
	if cfg.SRN.BlockSize != config.Default().SRN.BlockSize {
		t.Fatalf("unexpected block size: %d", cfg.SRN.BlockSize)
	}
	if cfg.SRNStorePath() != filepath.Join(cfg.Paths.SRNDir, "tbsrnstore.info") {
		t.Fatalf("unexpected srn store path: %q", cfg.SRNStorePath())
	}
	if cfg.DaemonDSN() != filepath.Join(cfg.Paths.LogDir, "checkouts.db") {
		t.Fatalf("unexpected default dsn: %q", cfg.DaemonDSN())
	}

	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories failed: %v", err)
	}
	for _, dir := range []string{cfg.Paths.LocalDir, cfg.Paths.LogDir, cfg.Paths.SRNDir, cfg.Paths.SharedDir} {
		info, err := os.Stat(dir)
		if err != nil {
			t.Fatalf("expected directory %q to exist: %v", dir, err)
		}
		if !info.IsDir() {
			t.Fatalf("expected %q to be directory", dir)
		}
	}
}

func TestLoadCustomPath(t *testing.T) {
	tempDir := t.TempDir()
	configPath := filepath.Join(tempDir, "acmsync.toml")

	type payload struct {
		Paths struct {
			SharedDir string `toml:"shared_dir"`
		} `toml:"paths"`
		Server struct {
			URL string `toml:"url"`
		} `toml:"server"`
		Storage struct {
			Backend  string `toml:"backend"`
			S3Bucket string `toml:"s3_bucket"`
			S3Prefix string `toml:"s3_prefix"`
		} `toml:"storage"`
		SRN struct {
			Prefix string `toml:"prefix"`
		} `toml:"srn"`
	}
	custom := payload{}
	custom.Paths.SharedDir = filepath.Join(tempDir, "shared")
	custom.Server.URL = "https://acm.example.org/ "
	custom.Storage.Backend = "S3"
	custom.Storage.S3Bucket = "acm-content"
	custom.Storage.S3Prefix = "/programs"
	custom.SRN.Prefix = "c-"

	data, err := toml.Marshal(custom)
	if err != nil {
		t.Fatalf("marshal config: %v", err)
	}
	if err := os.WriteFile(configPath, data, 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, resolved, exists, err := config.Load(configPath)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !exists {
		t.Fatal("expected config file to exist")
	}
	if resolved != configPath {
		t.Fatalf("unexpected resolved path: %q", resolved)
	}
	if cfg.Server.URL != "https://acm.example.org" {
		t.Fatalf("expected trimmed server url, got %q", cfg.Server.URL)
	}
	if cfg.Storage.Backend != config.StorageBackendS3 {
		t.Fatalf("expected s3 backend, got %q", cfg.Storage.Backend)
	}
	if cfg.Storage.S3Prefix != "programs/" {
		t.Fatalf("expected normalized prefix, got %q", cfg.Storage.S3Prefix)
	}
	if cfg.SRN.Prefix != "C-" {
		t.Fatalf("expected upper-cased srn prefix, got %q", cfg.SRN.Prefix)
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*config.Config)
		want   string
	}{
		{
			name:   "s3 without bucket",
			mutate: func(c *config.Config) { c.Storage.Backend = config.StorageBackendS3 },
			want:   "storage.s3_bucket",
		},
		{
			name:   "unknown backend",
			mutate: func(c *config.Config) { c.Storage.Backend = "ftp" },
			want:   "storage.backend",
		},
		{
			name:   "postgres without dsn",
			mutate: func(c *config.Config) { c.Daemon.DBDriver = config.DBDriverPostgres },
			want:   "daemon.db_dsn",
		},
		{
			name:   "bad server scheme",
			mutate: func(c *config.Config) { c.Server.URL = "ftp://host" },
			want:   "server.url",
		},
		{
			name:   "oversized srn block",
			mutate: func(c *config.Config) { c.SRN.BlockSize = 0x10000 },
			want:   "srn.block_size",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := config.Default()
			tc.mutate(&cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("expected error mentioning %q, got %v", tc.want, err)
			}
		})
	}
}

func TestCreateSampleLoads(t *testing.T) {
	target := filepath.Join(t.TempDir(), "nested", "config.toml")
	if err := config.CreateSample(target); err != nil {
		t.Fatalf("CreateSample: %v", err)
	}
	if _, _, exists, err := config.Load(target); err != nil || !exists {
		t.Fatalf("sample config should load cleanly: exists=%v err=%v", exists, err)
	}
}
