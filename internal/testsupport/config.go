package testsupport

import (
	"path/filepath"
	"testing"

	"acmsync/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// It defaults common fields and applies any provided options.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Paths.SharedDir = filepath.Join(base, "shared")
	cfgVal.Paths.LocalDir = filepath.Join(base, "local")
	cfgVal.Paths.LogDir = filepath.Join(base, "logs")
	cfgVal.Paths.SRNDir = filepath.Join(base, "srn")
	cfgVal.Identity.UserName = "tester"
	cfgVal.Identity.Contact = "tester@example.org"
	cfgVal.Identity.ComputerName = "test-host"
	cfgVal.Daemon.Bind = "127.0.0.1:0"
	cfgVal.Storage.MinFreeSpaceMiB = 0

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}

	for _, opt := range opts {
		opt(builder)
	}

	return builder.cfg
}

// WithServerURL points the CLI side of the config at a test server.
func WithServerURL(url string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Server.URL = url
	}
}

// WithAPIToken sets the same bearer token on the client and daemon sections.
func WithAPIToken(token string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Server.APIToken = token
		b.cfg.Daemon.APIToken = token
	}
}

// WithIdentity overrides the workstation identity.
func WithIdentity(name, computer string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Identity.UserName = name
		b.cfg.Identity.ComputerName = computer
	}
}

// WithReadOnly marks the workstation user as read-only.
func WithReadOnly() ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Identity.ReadOnly = true
	}
}

// WithSRNBlockSize overrides the number of serials requested per block.
func WithSRNBlockSize(n int) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.SRN.BlockSize = n
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.LocalDir)
}
