//go:build functional

// Package functional provides functional tests for the recipe catalog server.
package functional

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/vyrodovalexey/recipe-catalog/internal/config"
	"github.com/vyrodovalexey/recipe-catalog/internal/model"
	"github.com/vyrodovalexey/recipe-catalog/internal/server"
	"github.com/vyrodovalexey/recipe-catalog/internal/slot"
	"github.com/vyrodovalexey/recipe-catalog/internal/store"
)

// Environment variable names for test configuration.
const (
	EnvTestServerHost = "TEST_SERVER_HOST"
	EnvTestTimeout    = "TEST_TIMEOUT"
)

// Default test configuration values.
const (
	DefaultTestHost         = "127.0.0.1"
	DefaultTestTimeout      = 30 * time.Second
	DefaultRequestTimeout   = 5 * time.Second
	DefaultWebSocketTimeout = 10 * time.Second
	DefaultShutdownTimeout  = 5 * time.Second
)

func testHost() string {
	if host := os.Getenv(EnvTestServerHost); host != "" {
		return host
	}
	return DefaultTestHost
}

func testTimeout() time.Duration {
	if v := os.Getenv(EnvTestTimeout); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return DefaultTestTimeout
}

// TestServer runs the full server against a file slot in DataDir.
type TestServer struct {
	Server  *server.Server
	Store   *store.RecipeStore
	DataDir string
	BaseURL string
	WSURL   string
	Port    int
	t       *testing.T
	mu      sync.Mutex
	started bool
}

// NewTestServer creates a test server with a fresh data directory.
func NewTestServer(t *testing.T) *TestServer {
	t.Helper()
	return NewTestServerWithDir(t, t.TempDir())
}

// NewTestServerWithDir creates a test server whose catalog lives in dir.
func NewTestServerWithDir(t *testing.T, dir string) *TestServer {
	t.Helper()

	host := testHost()
	listener, err := net.Listen("tcp", host+":0")
	if err != nil {
		t.Fatalf("Failed to find available port: %v", err)
	}
	port := listener.Addr().(*net.TCPAddr).Port
	listener.Close()

	cfg := &config.Config{
		ServerPort:      port,
		LogLevel:        "error",
		ShutdownTimeout: DefaultShutdownTimeout,
		StorageBackend:  config.BackendFile,
		StorageKey:      config.DefaultStorageKey,
		StorageDir:      dir,
	}

	fileSlot, err := slot.NewFileSlot(dir)
	if err != nil {
		t.Fatalf("Failed to open file slot: %v", err)
	}

	recipeStore, err := store.Open(context.Background(), fileSlot, store.WithKey(cfg.StorageKey))
	if err != nil {
		t.Fatalf("Failed to open store: %v", err)
	}

	return &TestServer{
		Server:  server.New(cfg, zap.NewNop(), recipeStore),
		Store:   recipeStore,
		DataDir: dir,
		BaseURL: fmt.Sprintf("http://%s:%d", host, port),
		WSURL:   fmt.Sprintf("ws://%s:%d/ws", host, port),
		Port:    port,
		t:       t,
	}
}

// Start starts the test server and waits until it answers /health.
func (ts *TestServer) Start() {
	ts.mu.Lock()
	defer ts.mu.Unlock()

	if ts.started {
		return
	}

	go func() {
		if err := ts.Server.Start(); err != nil {
			ts.t.Logf("Server error: %v", err)
		}
	}()

	ts.waitForReady()
	ts.started = true
}

func (ts *TestServer) waitForReady() {
	ctx, cancel := context.WithTimeout(context.Background(), testTimeout())
	defer cancel()

	ticker := time.NewTicker(50 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			ts.t.Fatalf("Server did not become ready within timeout")
		case <-ticker.C:
			resp, err := http.Get(ts.BaseURL + "/health")
			if err == nil {
				resp.Body.Close()
				if resp.StatusCode == http.StatusOK {
					return
				}
			}
		}
	}
}

// Stop stops the test server.
func (ts *TestServer) Stop() {
	ts.mu.Lock()
	defer ts.mu.Unlock()

	if !ts.started {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), DefaultShutdownTimeout)
	defer cancel()

	if err := ts.Server.Shutdown(ctx); err != nil {
		ts.t.Logf("Server shutdown error: %v", err)
	}

	ts.started = false
}

// HTTPClient provides a configured HTTP client for tests.
type HTTPClient struct {
	client  *http.Client
	baseURL string
}

// NewHTTPClient creates a new HTTP client for testing.
func NewHTTPClient(baseURL string) *HTTPClient {
	return &HTTPClient{
		client:  &http.Client{Timeout: DefaultRequestTimeout},
		baseURL: baseURL,
	}
}

// Response represents an HTTP response.
type Response struct {
	StatusCode int
	Headers    http.Header
	Body       []byte
}

// Do executes an HTTP request. A string body is sent as is; anything else is
// encoded as JSON.
func (c *HTTPClient) Do(ctx context.Context, method, path string, body any) (*Response, error) {
	var bodyReader io.Reader
	switch v := body.(type) {
	case nil:
	case string:
		bodyReader = bytes.NewBufferString(v)
	default:
		data, err := json.Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request body: %w", err)
		}
		bodyReader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	return &Response{StatusCode: resp.StatusCode, Headers: resp.Header, Body: data}, nil
}

// APIResponse is the envelope returned by successful calls.
type APIResponse struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data,omitempty"`
	Error   string          `json:"error,omitempty"`
}

// MustRecipe decodes a single recipe from a success envelope.
func MustRecipe(t *testing.T, resp *Response) model.Recipe {
	t.Helper()
	var env APIResponse
	if err := json.Unmarshal(resp.Body, &env); err != nil {
		t.Fatalf("Failed to parse response: %v (%s)", err, resp.Body)
	}
	var r model.Recipe
	if err := json.Unmarshal(env.Data, &r); err != nil {
		t.Fatalf("Failed to parse recipe: %v", err)
	}
	return r
}

// MustRecipes decodes a recipe list from a success envelope.
func MustRecipes(t *testing.T, resp *Response) []model.Recipe {
	t.Helper()
	var env APIResponse
	if err := json.Unmarshal(resp.Body, &env); err != nil {
		t.Fatalf("Failed to parse response: %v (%s)", err, resp.Body)
	}
	// An empty list is omitted from the envelope.
	recipes := []model.Recipe{}
	if len(env.Data) == 0 {
		return recipes
	}
	if err := json.Unmarshal(env.Data, &recipes); err != nil {
		t.Fatalf("Failed to parse recipes: %v", err)
	}
	return recipes
}

// MustError decodes an error response.
func MustError(t *testing.T, resp *Response) model.ErrorResponse {
	t.Helper()
	var e model.ErrorResponse
	if err := json.Unmarshal(resp.Body, &e); err != nil {
		t.Fatalf("Failed to parse error response: %v (%s)", err, resp.Body)
	}
	return e
}

// AssertStatusCode asserts that the response has the expected status code.
func AssertStatusCode(t *testing.T, resp *Response, expected int) {
	t.Helper()
	if resp.StatusCode != expected {
		t.Errorf("Expected status code %d, got %d. Body: %s", expected, resp.StatusCode, string(resp.Body))
	}
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

// soupRequest is a valid create body using form-style string values.
func soupRequest() map[string]any {
	return map[string]any{
		"name":         "Tomato Soup",
		"category":     "lunch",
		"cookingTime":  "30",
		"difficulty":   "easy",
		"servings":     "2",
		"imageUrl":     "",
		"ingredients":  "4 tomatoes\n1 onion\n\nsalt",
		"instructions": "Chop\nSimmer\nBlend",
	}
}
