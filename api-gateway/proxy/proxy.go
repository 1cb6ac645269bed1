package proxy

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/olenev/userhub/api-gateway/config"
	"github.com/olenev/userhub/api-gateway/loadbalancer"
	"github.com/olenev/userhub/pkg/logger"
)

// ReverseProxy forwards requests to backend instances, failing over to
// the next instance when one cannot be reached.
type ReverseProxy struct {
	config        *config.GatewayConfig
	client        *http.Client
	loadBalancers map[string]*loadbalancer.RoundRobin
}

// NewReverseProxy creates a new reverse proxy
func NewReverseProxy(cfg *config.GatewayConfig) *ReverseProxy {
	loadBalancers := make(map[string]*loadbalancer.RoundRobin)
	for name, svc := range cfg.Services {
		loadBalancers[name] = loadbalancer.NewRoundRobin(svc.Instances)
	}

	return &ReverseProxy{
		config:        cfg,
		loadBalancers: loadBalancers,
		client: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// LoadBalancers exposes the per-service balancers so the health
// checker can mark instances up and down.
func (p *ReverseProxy) LoadBalancers() map[string]*loadbalancer.RoundRobin {
	return p.loadBalancers
}

// Stats returns balancer statistics keyed by service
func (p *ReverseProxy) Stats() map[string]interface{} {
	stats := make(map[string]interface{}, len(p.loadBalancers))
	for name, lb := range p.loadBalancers {
		stats[name] = lb.GetStats()
	}
	return stats
}

// ProxyRequest forwards the request to the target service. Transport
// failures move on to the next instance; once a backend has produced a
// response it is returned as is, so non-idempotent requests are never
// replayed.
func (p *ReverseProxy) ProxyRequest(c *fiber.Ctx, serviceName, stripPrefix string) error {
	lb, lbExists := p.loadBalancers[serviceName]
	if !lbExists {
		return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{
			"error": fmt.Sprintf("Load balancer for '%s' not found", serviceName),
		})
	}

	svc := p.config.Services[serviceName]
	attempts := len(svc.Instances)
	if attempts < 1 {
		attempts = 1
	}

	timeout := svc.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	ctx, cancel := context.WithTimeout(c.UserContext(), timeout)
	defer cancel()

	body := c.Body()
	var lastErr error

	for attempt := 0; attempt < attempts; attempt++ {
		serverURL := lb.Next()
		if serverURL == "" {
			break
		}

		logger.Logger.Debug().
			Str("service", serviceName).
			Str("target_url", serverURL).
			Str("path", c.Path()).
			Int("attempt", attempt+1).
			Msg("Load balancer selected instance")

		targetURL := p.buildTargetURL(c, serverURL, stripPrefix)

		req, err := http.NewRequestWithContext(
			ctx,
			c.Method(),
			targetURL,
			bytes.NewReader(body),
		)
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "Failed to create request",
			})
		}

		p.copyHeaders(c, req)

		resp, err := p.client.Do(req)
		if err != nil {
			lastErr = err
			lb.SetHealthy(serverURL, false)
			logger.Logger.Warn().
				Err(err).
				Str("service", serviceName).
				Str("instance", serverURL).
				Msg("Instance unreachable, failing over")
			continue
		}

		return p.sendResponse(c, resp)
	}

	return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{
		"error":   "Failed to reach backend service",
		"service": serviceName,
		"details": errDetails(lastErr),
	})
}

// sendResponse copies the backend response onto the Fiber context
func (p *ReverseProxy) sendResponse(c *fiber.Ctx, resp *http.Response) error {
	defer resp.Body.Close()

	p.copyResponseHeaders(c, resp)
	c.Status(resp.StatusCode)

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to read response",
		})
	}

	return c.Send(respBody)
}

// buildTargetURL constructs the full URL for the backend instance
func (p *ReverseProxy) buildTargetURL(c *fiber.Ctx, serverURL, stripPrefix string) string {
	path := string(c.Request().URI().Path())
	if stripPrefix != "" && strings.HasPrefix(path, stripPrefix) {
		path = path[len(stripPrefix):]
		if path == "" || path[0] != '/' {
			path = "/" + path
		}
	}

	queryString := string(c.Request().URI().QueryString())
	if queryString != "" {
		queryString = "?" + queryString
	}

	return serverURL + path + queryString
}

// copyHeaders copies relevant headers from Fiber context to http.Request
func (p *ReverseProxy) copyHeaders(c *fiber.Ctx, req *http.Request) {
	c.Request().Header.VisitAll(func(key, value []byte) {
		keyStr := string(key)
		if strings.ToLower(keyStr) == "host" {
			return
		}
		req.Header.Set(keyStr, string(value))
	})

	// X-Forwarded headers tell the backend who the real client is
	req.Header.Set("X-Forwarded-For", c.IP())
	req.Header.Set("X-Forwarded-Proto", c.Protocol())
	req.Header.Set("X-Forwarded-Host", c.Hostname())
}

// copyResponseHeaders copies headers from http.Response to Fiber context
func (p *ReverseProxy) copyResponseHeaders(c *fiber.Ctx, resp *http.Response) {
	for key, values := range resp.Header {
		if strings.ToLower(key) == "content-length" {
			continue
		}
		for _, value := range values {
			c.Response().Header.Add(key, value)
		}
	}
}

func errDetails(err error) string {
	if err == nil {
		return "no reachable instances"
	}
	return err.Error()
}
