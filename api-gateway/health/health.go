package health

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/olenev/userhub/api-gateway/config"
	"github.com/olenev/userhub/api-gateway/loadbalancer"
	"github.com/olenev/userhub/pkg/logger"
)

// InstanceHealth is the probe result for a single backend instance
type InstanceHealth struct {
	URL       string    `json:"url"`
	Status    string    `json:"status"` // healthy, unhealthy
	Latency   float64   `json:"latency_ms"`
	Error     string    `json:"error,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// ServiceHealth aggregates the probe results of one service
type ServiceHealth struct {
	Name      string           `json:"name"`
	Status    string           `json:"status"` // healthy, degraded, unhealthy
	Instances []InstanceHealth `json:"instances"`
}

// GatewayHealth represents the overall gateway health
type GatewayHealth struct {
	Gateway  string                   `json:"gateway"`
	Status   string                   `json:"status"` // healthy, degraded, unhealthy
	Services map[string]ServiceHealth `json:"services"`
	Uptime   float64                  `json:"uptime_seconds"`
}

// HealthChecker probes every instance of every backend service and
// feeds the results back into the load balancers so traffic avoids
// instances that fail their checks.
type HealthChecker struct {
	config    *config.GatewayConfig
	balancers map[string]*loadbalancer.RoundRobin
	client    *http.Client
	startTime time.Time
}

// NewHealthChecker creates a health checker over the proxy's balancers
func NewHealthChecker(cfg *config.GatewayConfig, balancers map[string]*loadbalancer.RoundRobin) *HealthChecker {
	return &HealthChecker{
		config:    cfg,
		balancers: balancers,
		client: &http.Client{
			Timeout: 5 * time.Second,
		},
		startTime: time.Now(),
	}
}

// Watch probes all services at the given interval until the context is
// cancelled. Run it on its own goroutine.
func (h *HealthChecker) Watch(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			checkCtx, cancel := context.WithTimeout(ctx, interval)
			h.CheckAllServices(checkCtx)
			cancel()
		}
	}
}

// CheckInstance probes the health endpoint of a single instance
func (h *HealthChecker) CheckInstance(ctx context.Context, svc config.ServiceConfig, url string) InstanceHealth {
	start := time.Now()
	healthURL := url + svc.HealthCheck

	result := InstanceHealth{
		URL:       url,
		Timestamp: time.Now(),
	}

	req, err := http.NewRequestWithContext(ctx, "GET", healthURL, nil)
	if err != nil {
		result.Status = "unhealthy"
		result.Error = fmt.Sprintf("Failed to create request: %v", err)
		result.Latency = msSince(start)
		return result
	}

	resp, err := h.client.Do(req)
	if err != nil {
		result.Status = "unhealthy"
		result.Error = fmt.Sprintf("Failed to reach service: %v", err)
		result.Latency = msSince(start)
		return result
	}
	defer resp.Body.Close()

	result.Latency = msSince(start)

	if resp.StatusCode == http.StatusOK {
		result.Status = "healthy"
	} else {
		result.Status = "unhealthy"
		result.Error = fmt.Sprintf("Unexpected status code: %d", resp.StatusCode)
	}

	return result
}

// CheckService probes every instance of one service concurrently and
// updates the load balancer marks.
func (h *HealthChecker) CheckService(ctx context.Context, name string, svc config.ServiceConfig) ServiceHealth {
	instances := make([]InstanceHealth, len(svc.Instances))
	var wg sync.WaitGroup

	for i, url := range svc.Instances {
		wg.Add(1)
		go func(i int, url string) {
			defer wg.Done()
			instances[i] = h.CheckInstance(ctx, svc, url)
		}(i, url)
	}
	wg.Wait()

	healthy := 0
	for _, inst := range instances {
		ok := inst.Status == "healthy"
		if ok {
			healthy++
		}
		if lb, exists := h.balancers[name]; exists {
			lb.SetHealthy(inst.URL, ok)
		}
		if !ok {
			logger.Logger.Warn().
				Str("service", name).
				Str("instance", inst.URL).
				Str("error", inst.Error).
				Msg("Instance health check failed")
		}
	}

	return ServiceHealth{
		Name:      svc.Name,
		Status:    aggregateStatus(healthy, len(instances)),
		Instances: instances,
	}
}

// CheckAllServices probes all downstream services
func (h *HealthChecker) CheckAllServices(ctx context.Context) GatewayHealth {
	services := make(map[string]ServiceHealth)
	var wg sync.WaitGroup
	var mu sync.Mutex

	for name, svc := range h.config.Services {
		wg.Add(1)
		go func(n string, s config.ServiceConfig) {
			defer wg.Done()
			result := h.CheckService(ctx, n, s)

			mu.Lock()
			services[n] = result
			mu.Unlock()
		}(name, svc)
	}
	wg.Wait()

	healthy := 0
	for _, svc := range services {
		if svc.Status == "healthy" {
			healthy++
		}
	}

	return GatewayHealth{
		Gateway:  "userhub-gateway",
		Status:   aggregateStatus(healthy, len(services)),
		Services: services,
		Uptime:   time.Since(h.startTime).Seconds(),
	}
}

func msSince(start time.Time) float64 {
	return float64(time.Since(start).Microseconds()) / 1000.0
}

// aggregateStatus folds member health into one status
func aggregateStatus(healthy, total int) string {
	switch {
	case total == 0 || healthy == total:
		return "healthy"
	case healthy > 0:
		return "degraded"
	default:
		return "unhealthy"
	}
}

// QuickCheck reports the gateway's own liveness without probing
// downstream services.
func (h *HealthChecker) QuickCheck() map[string]interface{} {
	return map[string]interface{}{
		"status":    "healthy",
		"gateway":   "userhub-gateway",
		"uptime":    time.Since(h.startTime).Seconds(),
		"timestamp": time.Now(),
	}
}
