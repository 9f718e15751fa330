package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/vyrodovalexey/vault-inventory/internal/auth"
	"github.com/vyrodovalexey/vault-inventory/internal/config"
	"github.com/vyrodovalexey/vault-inventory/internal/model"
	"github.com/vyrodovalexey/vault-inventory/internal/store"
	"github.com/vyrodovalexey/vault-inventory/internal/vault"
)

// testConfig returns a valid configuration for server tests.
func testConfig(port int, metrics bool) *config.Config {
	return &config.Config{
		ServerPort:      port,
		LogLevel:        "info",
		ShutdownTimeout: 30 * time.Second,
		MetricsEnabled:  metrics,
		CORSOrigins:     []string{"*"},
		AuthMode:        config.AuthModeNone,
		WSInterval:      50 * time.Millisecond,
	}
}

// doJSON sends a request with an optional JSON body through the router.
func doJSON(t *testing.T, s *Server, method, path string, body any, header http.Header) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("failed to marshal body: %v", err)
		}
		reader = bytes.NewReader(data)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	for key, values := range header {
		for _, v := range values {
			req.Header.Add(key, v)
		}
	}

	rr := httptest.NewRecorder()
	s.handler.ServeHTTP(rr, req)
	return rr
}

func TestNew(t *testing.T) {
	// Arrange
	cfg := testConfig(8080, true)
	logger := zap.NewNop()
	vaultStore := store.NewMemoryStore()

	// Act
	server := New(cfg, logger, vaultStore, nil)

	// Assert
	if server == nil {
		t.Fatal("New() returned nil")
	}
	if server.router == nil {
		t.Error("router should not be nil")
	}
	if server.httpServer == nil {
		t.Error("httpServer should not be nil")
	}
	if server.wsHandler == nil {
		t.Error("wsHandler should not be nil")
	}
	if server.authenticator != nil {
		t.Error("authenticator should be nil when none is given")
	}
}

func TestNew_MetricsDisabled(t *testing.T) {
	// Arrange
	server := New(testConfig(8080, false), zap.NewNop(), store.NewMemoryStore(), nil)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rr := httptest.NewRecorder()

	// Act
	server.handler.ServeHTTP(rr, req)

	// Assert
	if rr.Code != http.StatusNotFound {
		t.Errorf("Metrics endpoint status = %d, want %d when metrics disabled", rr.Code, http.StatusNotFound)
	}
}

func TestNew_MetricsEnabled(t *testing.T) {
	// Arrange
	server := New(testConfig(8080, true), zap.NewNop(), store.NewMemoryStore(), nil)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rr := httptest.NewRecorder()

	// Act
	server.handler.ServeHTTP(rr, req)

	// Assert
	if rr.Code != http.StatusOK {
		t.Fatalf("Metrics endpoint status = %d, want %d when metrics enabled", rr.Code, http.StatusOK)
	}
	for _, name := range []string{"vault_items", "vault_total_value"} {
		if !strings.Contains(rr.Body.String(), name) {
			t.Errorf("metrics output should contain %s", name)
		}
	}
}

func TestServer_Handler(t *testing.T) {
	// Arrange
	server := New(testConfig(8080, true), zap.NewNop(), store.NewMemoryStore(), nil)

	// Act
	h := server.Handler()

	// Assert
	if h == nil {
		t.Fatal("Handler() returned nil")
	}

	// Assert - the listener serves through the same edge middleware
	for name, served := range map[string]http.Handler{"Handler()": h, "httpServer.Handler": server.httpServer.Handler} {
		rr := httptest.NewRecorder()
		served.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/health", nil))
		if rr.Code != http.StatusOK {
			t.Errorf("%s GET /health status = %d, want %d", name, rr.Code, http.StatusOK)
		}
		if rr.Header().Get("X-Request-ID") == "" {
			t.Errorf("%s should set X-Request-ID", name)
		}
	}
}

func TestServer_EdgeMiddlewareCoversUnmatchedRequests(t *testing.T) {
	// Arrange
	server := New(testConfig(8080, false), zap.NewNop(), store.NewMemoryStore(), nil)
	header := http.Header{}
	header.Set("Origin", "http://localhost:3000")
	header.Set("Access-Control-Request-Method", http.MethodDelete)

	tests := []struct {
		name       string
		method     string
		path       string
		wantStatus int
	}{
		{name: "preflight on item route", method: http.MethodOptions, path: "/api/v1/items/1", wantStatus: http.StatusNoContent},
		{name: "unknown path", method: http.MethodGet, path: "/api/v1/nowhere", wantStatus: http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Act
			rr := doJSON(t, server, tt.method, tt.path, nil, header)

			// Assert
			if rr.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", rr.Code, tt.wantStatus)
			}
			if rr.Header().Get("X-Request-ID") == "" {
				t.Error("X-Request-ID should be set outside the router")
			}
			if rr.Header().Get("Access-Control-Allow-Origin") == "" {
				t.Error("CORS headers should be set outside the router")
			}
		})
	}
}

func TestServer_HealthEndpoint(t *testing.T) {
	// Arrange
	server := New(testConfig(8080, true), zap.NewNop(), store.NewMemoryStore(), nil)

	// Act
	rr := doJSON(t, server, http.MethodGet, "/health", nil, nil)

	// Assert
	if rr.Code != http.StatusOK {
		t.Errorf("Health endpoint status = %d, want %d", rr.Code, http.StatusOK)
	}
	if ct := rr.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type = %s, want application/json", ct)
	}

	var response model.APIResponse[map[string]string]
	if err := json.NewDecoder(rr.Body).Decode(&response); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if !response.Success {
		t.Error("Health check should return success")
	}
}

func TestServer_VaultScenario(t *testing.T) {
	// Arrange
	server := New(testConfig(8080, true), zap.NewNop(), store.NewMemoryStore(), nil)

	// Act & Assert - insert two items
	for _, body := range []map[string]any{
		{"id": 1, "value": 97.88},
		{"id": 2, "value": 50.0},
	} {
		rr := doJSON(t, server, http.MethodPost, "/api/v1/items", body, nil)
		if rr.Code != http.StatusCreated {
			t.Fatalf("POST %v status = %d, want %d", body, rr.Code, http.StatusCreated)
		}
	}

	// Total of both items
	rr := doJSON(t, server, http.MethodGet, "/api/v1/vault/total", nil, nil)
	var total model.APIResponse[model.VaultSummary]
	if err := json.NewDecoder(rr.Body).Decode(&total); err != nil {
		t.Fatalf("Failed to decode total: %v", err)
	}
	if total.Data.Count != 2 || total.Data.TotalValue != 147.88 {
		t.Errorf("total = %+v, want {Count:2 TotalValue:147.88}", total.Data)
	}

	// Duplicate insert is rejected
	rr = doJSON(t, server, http.MethodPost, "/api/v1/items", map[string]any{"id": 1, "value": 1}, nil)
	if rr.Code != http.StatusConflict {
		t.Errorf("duplicate POST status = %d, want %d", rr.Code, http.StatusConflict)
	}

	// Remove item 1
	rr = doJSON(t, server, http.MethodDelete, "/api/v1/items/1", nil, nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("DELETE status = %d, want %d", rr.Code, http.StatusOK)
	}
	var removed model.APIResponse[model.Item]
	if err := json.NewDecoder(rr.Body).Decode(&removed); err != nil {
		t.Fatalf("Failed to decode removed item: %v", err)
	}
	if removed.Data != (model.Item{ID: 1, Value: 97.88}) {
		t.Errorf("removed = %+v, want {ID:1 Value:97.88}", removed.Data)
	}

	// Lookup of the removed item reports the domain error
	rr = doJSON(t, server, http.MethodGet, "/api/v1/items/1", nil, nil)
	if rr.Code != http.StatusNotFound {
		t.Fatalf("GET removed status = %d, want %d", rr.Code, http.StatusNotFound)
	}
	var notFound model.ErrorResponse
	if err := json.NewDecoder(rr.Body).Decode(&notFound); err != nil {
		t.Fatalf("Failed to decode error: %v", err)
	}
	if notFound.Name != vault.NotFoundErrorName {
		t.Errorf("error name = %s, want %s", notFound.Name, vault.NotFoundErrorName)
	}
	if notFound.Message != "Item with id 1 not found in vault!" {
		t.Errorf("error message = %q", notFound.Message)
	}

	// Rendering reflects the remaining item
	rr = doJSON(t, server, http.MethodGet, "/api/v1/vault/render", nil, nil)
	if got, want := rr.Body.String(), "ITEMS IN VAULT\nID: 2\nValue: 50\n"; got != want {
		t.Errorf("render = %q, want %q", got, want)
	}
}

func TestServer_RESTEndpoints(t *testing.T) {
	// Arrange
	server := New(testConfig(8080, true), zap.NewNop(), store.NewMemoryStore(), nil)

	tests := []struct {
		name       string
		method     string
		path       string
		body       any
		wantStatus int
	}{
		{name: "list items", method: http.MethodGet, path: "/api/v1/items", wantStatus: http.StatusOK},
		{name: "get item - not found", method: http.MethodGet, path: "/api/v1/items/42", wantStatus: http.StatusNotFound},
		{name: "get item - invalid id", method: http.MethodGet, path: "/api/v1/items/abc", wantStatus: http.StatusBadRequest},
		{name: "revalue - not found", method: http.MethodPut, path: "/api/v1/items/42", body: map[string]any{"value": 1}, wantStatus: http.StatusNotFound},
		{name: "remove - not found", method: http.MethodDelete, path: "/api/v1/items/42", wantStatus: http.StatusNotFound},
		{name: "insert - missing value", method: http.MethodPost, path: "/api/v1/items", body: map[string]any{"id": 5}, wantStatus: http.StatusBadRequest},
		{name: "total of empty vault", method: http.MethodGet, path: "/api/v1/vault/total", wantStatus: http.StatusOK},
		{name: "ready", method: http.MethodGet, path: "/ready", wantStatus: http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Act
			rr := doJSON(t, server, tt.method, tt.path, tt.body, nil)

			// Assert
			if rr.Code != tt.wantStatus {
				t.Errorf("%s %s status = %d, want %d", tt.method, tt.path, rr.Code, tt.wantStatus)
			}
		})
	}
}

func TestNew_WithAuthenticator(t *testing.T) {
	// Arrange
	authenticator, err := auth.NewAPIKeyAuthenticator("audit-key:auditor:reader,ops-key:curator:keeper")
	if err != nil {
		t.Fatalf("NewAPIKeyAuthenticator() error = %v", err)
	}
	cfg := testConfig(8080, true)
	cfg.AuthMode = config.AuthModeAPIKey
	server := New(cfg, zap.NewNop(), store.NewMemoryStore(), authenticator)

	withKey := func(key string) http.Header {
		h := http.Header{}
		if key != "" {
			h.Set(auth.APIKeyHeader, key)
		}
		return h
	}
	item := map[string]any{"id": 7, "value": 12.5}

	tests := []struct {
		name       string
		method     string
		path       string
		body       any
		key        string
		wantStatus int
	}{
		{name: "health is public", method: http.MethodGet, path: "/health", wantStatus: http.StatusOK},
		{name: "metrics is public", method: http.MethodGet, path: "/metrics", wantStatus: http.StatusOK},
		{name: "list without key", method: http.MethodGet, path: "/api/v1/items", wantStatus: http.StatusUnauthorized},
		{name: "list with wrong key", method: http.MethodGet, path: "/api/v1/items", key: "nope", wantStatus: http.StatusUnauthorized},
		{name: "reader lists", method: http.MethodGet, path: "/api/v1/items", key: "audit-key", wantStatus: http.StatusOK},
		{name: "reader cannot insert", method: http.MethodPost, path: "/api/v1/items", body: item, key: "audit-key", wantStatus: http.StatusForbidden},
		{name: "keeper inserts", method: http.MethodPost, path: "/api/v1/items", body: item, key: "ops-key", wantStatus: http.StatusCreated},
		{name: "reader reads inserted item", method: http.MethodGet, path: "/api/v1/items/7", key: "audit-key", wantStatus: http.StatusOK},
		{name: "reader cannot remove", method: http.MethodDelete, path: "/api/v1/items/7", key: "audit-key", wantStatus: http.StatusForbidden},
		{name: "keeper removes", method: http.MethodDelete, path: "/api/v1/items/7", key: "ops-key", wantStatus: http.StatusOK},
	}

	// Subtests run in order; later cases depend on earlier mutations.
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Act
			rr := doJSON(t, server, tt.method, tt.path, tt.body, withKey(tt.key))

			// Assert
			if rr.Code != tt.wantStatus {
				t.Errorf("%s %s status = %d, want %d", tt.method, tt.path, rr.Code, tt.wantStatus)
			}
		})
	}
}

func TestServer_UpgradeHeaderDoesNotSkipAuth(t *testing.T) {
	// Arrange
	authenticator, err := auth.NewAPIKeyAuthenticator("ops-key:curator:keeper")
	if err != nil {
		t.Fatalf("NewAPIKeyAuthenticator() error = %v", err)
	}
	cfg := testConfig(8080, false)
	cfg.AuthMode = config.AuthModeAPIKey
	vaultStore := store.NewMemoryStore()
	if _, err := vaultStore.Insert(context.Background(), vault.NewItem(1, 97.88)); err != nil {
		t.Fatalf("Insert() error = %v", err)
	}
	server := New(cfg, zap.NewNop(), vaultStore, authenticator)

	upgrade := http.Header{}
	upgrade.Set("Connection", "Upgrade")
	upgrade.Set("Upgrade", "websocket")

	tests := []struct {
		name   string
		method string
		path   string
		body   any
	}{
		{name: "remove", method: http.MethodDelete, path: "/api/v1/items/1"},
		{name: "insert", method: http.MethodPost, path: "/api/v1/items", body: map[string]any{"id": 2, "value": 1}},
		{name: "revalue", method: http.MethodPut, path: "/api/v1/items/1", body: map[string]any{"value": 0}},
		{name: "list", method: http.MethodGet, path: "/api/v1/items"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Act
			rr := doJSON(t, server, tt.method, tt.path, tt.body, upgrade)

			// Assert
			if rr.Code != http.StatusUnauthorized {
				t.Errorf("%s %s status = %d, want %d", tt.method, tt.path, rr.Code, http.StatusUnauthorized)
			}
		})
	}

	// Assert - the vault is untouched
	item, err := vaultStore.Get(context.Background(), 1)
	if err != nil {
		t.Fatalf("Get() error = %v, item 1 should survive", err)
	}
	if item.Value != 97.88 {
		t.Errorf("item 1 value = %v, want 97.88", item.Value)
	}
	summary, err := vaultStore.Summary(context.Background())
	if err != nil {
		t.Fatalf("Summary() error = %v", err)
	}
	if summary.Count != 1 {
		t.Errorf("Count = %d, want 1", summary.Count)
	}

	// Act - the stream handshake itself stays open to anonymous callers
	rr := doJSON(t, server, http.MethodGet, "/ws", nil, upgrade)

	// Assert - the recorder cannot be hijacked, but auth did not refuse it
	if rr.Code == http.StatusUnauthorized {
		t.Error("GET /ws handshake should not require credentials")
	}
}

func TestServer_WebSocketEndpoint(t *testing.T) {
	// Arrange
	server := New(testConfig(8080, true), zap.NewNop(), store.NewMemoryStore(), nil)

	req := httptest.NewRequest(http.MethodGet, "/ws", nil)
	rr := httptest.NewRecorder()

	// Act
	server.handler.ServeHTTP(rr, req)

	// Assert - Should not be 404 (will fail upgrade but route exists)
	if rr.Code == http.StatusNotFound {
		t.Error("WebSocket endpoint /ws not found")
	}
}

func TestServer_MiddlewareApplied(t *testing.T) {
	// Arrange
	server := New(testConfig(8080, true), zap.NewNop(), store.NewMemoryStore(), nil)

	header := http.Header{}
	header.Set("Origin", "http://localhost:3000")

	// Act
	rr := doJSON(t, server, http.MethodGet, "/health", nil, header)

	// Assert
	if rr.Header().Get("X-Request-ID") == "" {
		t.Error("X-Request-ID header should be set by middleware")
	}
	if rr.Header().Get("Access-Control-Allow-Origin") == "" {
		t.Error("CORS headers should be set by middleware")
	}
	if allowed := rr.Header().Get("Access-Control-Allow-Headers"); !strings.Contains(allowed, auth.APIKeyHeader) {
		t.Errorf("Access-Control-Allow-Headers = %q, want it to include %s", allowed, auth.APIKeyHeader)
	}
}

func TestServer_HTTPServerConfiguration(t *testing.T) {
	// Act
	server := New(testConfig(8080, true), zap.NewNop(), store.NewMemoryStore(), nil)

	// Assert
	if server.httpServer.Addr != ":8080" {
		t.Errorf("httpServer.Addr = %s, want :8080", server.httpServer.Addr)
	}
	if server.httpServer.ReadTimeout != 15*time.Second {
		t.Errorf("httpServer.ReadTimeout = %v, want 15s", server.httpServer.ReadTimeout)
	}
	if server.httpServer.ReadHeaderTimeout != 5*time.Second {
		t.Errorf("httpServer.ReadHeaderTimeout = %v, want 5s", server.httpServer.ReadHeaderTimeout)
	}
	if server.httpServer.IdleTimeout != 60*time.Second {
		t.Errorf("httpServer.IdleTimeout = %v, want 60s", server.httpServer.IdleTimeout)
	}
	if server.httpServer.MaxHeaderBytes != 1<<20 {
		t.Errorf("httpServer.MaxHeaderBytes = %d, want %d", server.httpServer.MaxHeaderBytes, 1<<20)
	}
}

func TestServer_Shutdown(t *testing.T) {
	// Arrange
	server := New(testConfig(8090, false), zap.NewNop(), store.NewMemoryStore(), nil)

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	// Give server time to start
	time.Sleep(100 * time.Millisecond)

	// Act
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	err := server.Shutdown(ctx)

	// Assert
	if err != nil {
		t.Errorf("Shutdown() error = %v", err)
	}
	select {
	case startErr := <-errCh:
		if startErr != nil {
			t.Errorf("Start() error = %v, want nil after shutdown", startErr)
		}
	case <-time.After(5 * time.Second):
		t.Error("Start() did not return after shutdown")
	}
}
