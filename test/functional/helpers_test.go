//go:build functional

// Package functional runs the vault server on a real port and drives it
// over HTTP and WebSocket.
package functional

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"os"
	"strconv"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/vyrodovalexey/vault-inventory/internal/auth"
	"github.com/vyrodovalexey/vault-inventory/internal/client"
	"github.com/vyrodovalexey/vault-inventory/internal/config"
	"github.com/vyrodovalexey/vault-inventory/internal/server"
	"github.com/vyrodovalexey/vault-inventory/internal/store"
)

// Environment variable names for test configuration.
const (
	EnvTestServerHost    = "TEST_SERVER_HOST"
	EnvTestTimeout       = "TEST_TIMEOUT"
	EnvTestMetricsEnable = "TEST_METRICS_ENABLED"
)

// Default test configuration values.
const (
	DefaultTestHost         = "127.0.0.1"
	DefaultTestTimeout      = 30 * time.Second
	DefaultShutdownTimeout  = 5 * time.Second
	DefaultSnapshotInterval = 100 * time.Millisecond
)

// TestConfig holds test configuration loaded from environment.
type TestConfig struct {
	Host           string
	Timeout        time.Duration
	MetricsEnabled bool
}

// LoadTestConfig loads test configuration from environment variables.
func LoadTestConfig() *TestConfig {
	cfg := &TestConfig{
		Host:    DefaultTestHost,
		Timeout: DefaultTestTimeout,
	}

	if host := os.Getenv(EnvTestServerHost); host != "" {
		cfg.Host = host
	}

	if timeoutStr := os.Getenv(EnvTestTimeout); timeoutStr != "" {
		if timeout, err := time.ParseDuration(timeoutStr); err == nil {
			cfg.Timeout = timeout
		}
	}

	if metricsStr := os.Getenv(EnvTestMetricsEnable); metricsStr != "" {
		if enabled, err := strconv.ParseBool(metricsStr); err == nil {
			cfg.MetricsEnabled = enabled
		}
	}

	return cfg
}

// TestServer is a vault server listening on a free local port.
type TestServer struct {
	Server  *server.Server
	Store   *store.MemoryStore
	BaseURL string
	WSURL   string

	t        *testing.T
	timeout  time.Duration
	serveErr chan error
	stopOnce sync.Once
}

// NewTestServer builds a server over an empty vault. A nil authenticator
// leaves the API open.
func NewTestServer(t *testing.T, authenticator auth.Authenticator) *TestServer {
	t.Helper()

	testCfg := LoadTestConfig()
	port := freePort(t, testCfg.Host)
	vaultStore := store.NewMemoryStore()

	cfg := &config.Config{
		ServerPort:      port,
		LogLevel:        "error",
		ShutdownTimeout: DefaultShutdownTimeout,
		MetricsEnabled:  testCfg.MetricsEnabled,
		CORSOrigins:     []string{config.DefaultCORSOrigins},
		WSInterval:      DefaultSnapshotInterval,
	}

	return &TestServer{
		Server:   server.New(cfg, zap.NewNop(), vaultStore, authenticator),
		Store:    vaultStore,
		BaseURL:  fmt.Sprintf("http://%s:%d", testCfg.Host, port),
		WSURL:    fmt.Sprintf("ws://%s:%d/ws", testCfg.Host, port),
		t:        t,
		timeout:  testCfg.Timeout,
		serveErr: make(chan error, 1),
	}
}

// Start runs the server in the background and blocks until /health answers
// 200. The server is stopped when the test ends.
func (ts *TestServer) Start() {
	ts.t.Helper()

	go func() { ts.serveErr <- ts.Server.Start() }()
	ts.t.Cleanup(ts.Stop)

	ctx, cancel := context.WithTimeout(context.Background(), ts.timeout)
	defer cancel()

	for !ts.healthy(ctx) {
		select {
		case err := <-ts.serveErr:
			ts.t.Fatalf("server exited before becoming ready: %v", err)
		case <-ctx.Done():
			ts.t.Fatalf("server not ready within %s", ts.timeout)
		case <-time.After(50 * time.Millisecond):
		}
	}
}

func (ts *TestServer) healthy(ctx context.Context) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, ts.BaseURL+"/health", nil)
	if err != nil {
		return false
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return false
	}
	resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}

// Stop shuts the server down once; later calls are no-ops.
func (ts *TestServer) Stop() {
	ts.stopOnce.Do(func() {
		ctx, cancel := context.WithTimeout(context.Background(), DefaultShutdownTimeout)
		defer cancel()

		if err := ts.Server.Shutdown(ctx); err != nil {
			ts.t.Logf("server shutdown: %v", err)
		}
	})
}

// Client returns an API client for the server.
func (ts *TestServer) Client(opts ...client.Option) *client.Client {
	ts.t.Helper()

	c, err := client.New(ts.BaseURL, opts...)
	if err != nil {
		ts.t.Fatalf("client.New() error = %v", err)
	}
	return c
}

// freePort asks the kernel for an unused port on host.
func freePort(t *testing.T, host string) int {
	t.Helper()

	listener, err := net.Listen("tcp", net.JoinHostPort(host, "0"))
	if err != nil {
		t.Fatalf("Failed to find available port: %v", err)
	}
	defer listener.Close()

	return listener.Addr().(*net.TCPAddr).Port
}

// LogTestStart logs the start of a test.
func LogTestStart(t *testing.T, testID, testName string) {
	t.Helper()
	t.Logf("Starting test %s: %s", testID, testName)
}

// LogTestEnd logs the end of a test.
func LogTestEnd(t *testing.T, testID string) {
	t.Helper()
	t.Logf("Completed test %s", testID)
}
