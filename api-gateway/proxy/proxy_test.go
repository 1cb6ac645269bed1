package proxy

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/olenev/userhub/api-gateway/config"
	"github.com/olenev/userhub/pkg/logger"
)

func init() {
	logger.Init("proxy-test", "test", "error")
}

type echo struct {
	Method      string `json:"method"`
	Path        string `json:"path"`
	Query       string `json:"query"`
	Body        string `json:"body"`
	ForwardedBy string `json:"forwarded_by"`
	AuthHeader  string `json:"auth_header"`
}

func echoBackend(t *testing.T) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		w.Header().Set("X-Backend", "echo")
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(echo{
			Method:      r.Method,
			Path:        r.URL.Path,
			Query:       r.URL.RawQuery,
			Body:        string(body),
			ForwardedBy: r.Header.Get("X-Forwarded-For"),
			AuthHeader:  r.Header.Get("Authorization"),
		})
	}))
}

func gatewayConfig(instances ...string) *config.GatewayConfig {
	return &config.GatewayConfig{
		Port: "8000",
		Services: map[string]config.ServiceConfig{
			"userhub": {
				Name:        "userhub-api",
				Instances:   instances,
				Timeout:     5 * time.Second,
				HealthCheck: "/api/healthchecker",
			},
		},
	}
}

func proxyApp(rp *ReverseProxy, stripPrefix string) *fiber.App {
	app := fiber.New()
	app.All("/api/users/*", func(c *fiber.Ctx) error {
		return rp.ProxyRequest(c, "userhub", stripPrefix)
	})
	app.All("/mailer/*", func(c *fiber.Ctx) error {
		return rp.ProxyRequest(c, "userhub", stripPrefix)
	})
	return app
}

func TestProxyForwardsRequest(t *testing.T) {
	backend := echoBackend(t)
	defer backend.Close()

	rp := NewReverseProxy(gatewayConfig(backend.URL))
	app := proxyApp(rp, "")

	req := httptest.NewRequest("POST", "/api/users/me?verbose=1", strings.NewReader(`{"bio":"hi"}`))
	req.Header.Set("Authorization", "Bearer token123")
	resp, err := app.Test(req, 5000)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "echo", resp.Header.Get("X-Backend"))

	var got echo
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&got))
	assert.Equal(t, "POST", got.Method)
	assert.Equal(t, "/api/users/me", got.Path)
	assert.Equal(t, "verbose=1", got.Query)
	assert.Equal(t, `{"bio":"hi"}`, got.Body)
	assert.Equal(t, "Bearer token123", got.AuthHeader)
	assert.NotEmpty(t, got.ForwardedBy)
}

func TestProxyStripsPrefix(t *testing.T) {
	backend := echoBackend(t)
	defer backend.Close()

	rp := NewReverseProxy(gatewayConfig(backend.URL))
	app := proxyApp(rp, "/mailer")

	req := httptest.NewRequest("GET", "/mailer/health", nil)
	resp, err := app.Test(req, 5000)
	require.NoError(t, err)
	defer resp.Body.Close()

	var got echo
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&got))
	assert.Equal(t, "/health", got.Path)
}

func TestProxyFailsOverToHealthyInstance(t *testing.T) {
	dead := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	deadURL := dead.URL
	dead.Close()

	backend := echoBackend(t)
	defer backend.Close()

	rp := NewReverseProxy(gatewayConfig(deadURL, backend.URL))
	app := proxyApp(rp, "")

	req := httptest.NewRequest("GET", "/api/users/me", nil)
	resp, err := app.Test(req, 5000)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)

	// The unreachable instance is marked down so later requests skip it
	stats := rp.LoadBalancers()["userhub"].GetStats()
	servers := stats["servers"].(map[string]bool)
	assert.False(t, servers[deadURL])
	assert.True(t, servers[backend.URL])
}

func TestProxyReturns502WhenAllInstancesDown(t *testing.T) {
	dead := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	deadURL := dead.URL
	dead.Close()

	rp := NewReverseProxy(gatewayConfig(deadURL))
	app := proxyApp(rp, "")

	req := httptest.NewRequest("GET", "/api/users/me", nil)
	resp, err := app.Test(req, 5000)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusBadGateway, resp.StatusCode)

	body, _ := io.ReadAll(resp.Body)
	assert.Contains(t, string(body), "Failed to reach backend service")
}

func TestProxyUnknownService(t *testing.T) {
	rp := NewReverseProxy(gatewayConfig())

	app := fiber.New()
	app.Get("/orders", func(c *fiber.Ctx) error {
		return rp.ProxyRequest(c, "orders", "")
	})

	req := httptest.NewRequest("GET", "/orders", nil)
	resp, err := app.Test(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusBadGateway, resp.StatusCode)
}

func TestProxyStatsKeyedByService(t *testing.T) {
	rp := NewReverseProxy(gatewayConfig("http://localhost:9999"))

	stats := rp.Stats()
	require.Contains(t, stats, "userhub")

	lbStats := stats["userhub"].(map[string]interface{})
	assert.Equal(t, "round-robin", lbStats["algorithm"])
}
