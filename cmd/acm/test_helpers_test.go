package main

import (
	"bytes"
	"context"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pelletier/go-toml/v2"

	"acmsync/internal/config"
	"acmsync/internal/logging"
	"acmsync/internal/revision"
	"acmsync/internal/server"
	"acmsync/internal/testsupport"
)

const testACM = "ACM-TEST"

type cliTestEnv struct {
	serverURL string
	sharedDir string
	store     *server.Store
}

// setupCLITestEnv starts a checkout server on SQLite and a shared revision
// directory that every workstation in the test uses.
func setupCLITestEnv(t *testing.T) *cliTestEnv {
	t.Helper()
	return setupCLITestEnvWithToken(t, "")
}

func setupCLITestEnvWithToken(t *testing.T, token string) *cliTestEnv {
	t.Helper()

	t.Setenv("HOME", t.TempDir())
	base := t.TempDir()
	store, err := server.OpenDSN(context.Background(), config.DBDriverSQLite, filepath.Join(base, "checkouts.db"))
	if err != nil {
		t.Fatalf("server.OpenDSN: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })

	svc := server.NewService(store, 1, logging.NewNop())
	srv := httptest.NewServer(server.NewHandler(svc, store, token, logging.NewNop()))
	t.Cleanup(srv.Close)

	return &cliTestEnv{
		serverURL: srv.URL,
		sharedDir: filepath.Join(base, "shared"),
		store:     store,
	}
}

type workstation struct {
	cfg        *config.Config
	configPath string
}

// workstation writes a config file for user on computer pointing at env.
func (env *cliTestEnv) workstation(t *testing.T, user, computer string, opts ...testsupport.ConfigOption) *workstation {
	t.Helper()

	opts = append([]testsupport.ConfigOption{
		testsupport.WithServerURL(env.serverURL),
		testsupport.WithIdentity(user, computer),
	}, opts...)
	cfg := testsupport.NewConfig(t, opts...)
	cfg.Paths.SharedDir = env.sharedDir

	configPath := filepath.Join(testsupport.BaseDir(cfg), "acmsync.toml")
	data, err := toml.Marshal(cfg)
	if err != nil {
		t.Fatalf("marshal config: %v", err)
	}
	if err := os.WriteFile(configPath, data, 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return &workstation{cfg: cfg, configPath: configPath}
}

func (w *workstation) mirrorDir(acm string) string {
	return filepath.Join(w.cfg.Paths.LocalDir, acm)
}

// storeFor returns the shared revision store as seen by w.
func storeFor(t *testing.T, w *workstation) revision.Store {
	t.Helper()
	return revision.NewDirStore(w.cfg.Paths.SharedDir)
}

func (w *workstation) run(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	return runCLI(t, args, w.configPath)
}

func runCLI(t *testing.T, args []string, configPath string) (string, string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetIn(strings.NewReader(""))
	var flags []string
	if configPath != "" {
		flags = append(flags, "--config", configPath)
	}
	cmd.SetArgs(append(flags, args...))
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func requireContains(t *testing.T, output, substr string) {
	t.Helper()
	if !strings.Contains(output, substr) {
		t.Fatalf("expected %q to contain %q", output, substr)
	}
}
