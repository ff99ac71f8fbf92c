// Package harness provides E2E testing utilities for filmscatalog.
package harness

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/dendi/filmscatalog/e2e/testserver"
	"github.com/dendi/filmscatalog/internal/app"
	"github.com/dendi/filmscatalog/internal/config"
)

// Token is the api key the fake API accepts.
const Token = "e2e-token"

// E2EHarness is the main test orchestrator.
type E2EHarness struct {
	t          *testing.T
	api        *testserver.Server
	tmpDir     string
	configPath string
	timeout    time.Duration
}

// Config configures the harness.
type Config struct {
	// CacheTTL is written to the config file. Zero refreshes only when empty.
	CacheTTL time.Duration
	Timeout  time.Duration // Default: 10 seconds
}

// New creates a harness with a fake API, a temp data dir and a config file
// pointing at both.
func New(t *testing.T, cfg Config) *E2EHarness {
	t.Helper()

	if cfg.Timeout == 0 {
		cfg.Timeout = 10 * time.Second
	}

	h := &E2EHarness{
		t:       t,
		api:     testserver.New(Token),
		tmpDir:  t.TempDir(),
		timeout: cfg.Timeout,
	}

	h.configPath = filepath.Join(h.tmpDir, "config.yaml")
	content := fmt.Sprintf(`data_dir: %s
api:
  base_url: %s
  timeout: 5s
cache:
  ttl: %s
log:
  level: error
`, h.tmpDir, h.api.BaseURL(), cfg.CacheTTL)
	if err := os.WriteFile(h.configPath, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}

	// The token comes from the environment, as in production.
	t.Setenv(config.EnvAPIToken, Token)
	t.Setenv(config.EnvAPIURL, "")
	t.Setenv(config.EnvDB, "")

	t.Cleanup(h.api.Close)
	return h
}

// API returns the fake remote API.
func (h *E2EHarness) API() *testserver.Server {
	return h.api
}

// ConfigPath returns the config file path.
func (h *E2EHarness) ConfigPath() string {
	return h.configPath
}

// TmpDir returns the temporary directory path.
func (h *E2EHarness) TmpDir() string {
	return h.tmpDir
}

// Timeout returns the configured timeout.
func (h *E2EHarness) Timeout() time.Duration {
	return h.timeout
}

// CLI returns a CLI runner for this harness.
func (h *E2EHarness) CLI() *CLIRunner {
	return &CLIRunner{harness: h}
}

// OpenApp opens the application from the harness config. The app is closed
// when the test ends.
func (h *E2EHarness) OpenApp() *app.App {
	h.t.Helper()

	cfg, err := config.Load(h.configPath)
	if err != nil {
		h.t.Fatalf("failed to load config: %v", err)
	}
	a := app.New(app.WithConfig(cfg))
	if err := a.Open(); err != nil {
		h.t.Fatalf("failed to open app: %v", err)
	}
	h.t.Cleanup(func() { a.Close() })
	return a
}
