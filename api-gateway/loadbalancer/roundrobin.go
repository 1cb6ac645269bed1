package loadbalancer

import (
	"sync"

	"github.com/olenev/userhub/pkg/logger"
)

// instance is one backend server and its last known health.
type instance struct {
	url     string
	healthy bool
}

// RoundRobin rotates requests across the healthy instances of one
// service. Instances start healthy; the health checker and the proxy
// mark them up and down as probes and requests succeed or fail.
type RoundRobin struct {
	instances []instance
	current   int
	mu        sync.Mutex
}

// NewRoundRobin creates a balancer over the given instance URLs
func NewRoundRobin(servers []string) *RoundRobin {
	instances := make([]instance, 0, len(servers))
	for _, s := range servers {
		instances = append(instances, instance{url: s, healthy: true})
	}

	logger.Logger.Info().
		Int("server_count", len(servers)).
		Strs("servers", servers).
		Msg("Round-robin load balancer initialized")

	return &RoundRobin{instances: instances}
}

// Next returns the next healthy instance URL. When every instance is
// marked down it falls back to plain rotation so a backend that
// recovered between probes can still be reached.
func (rr *RoundRobin) Next() string {
	rr.mu.Lock()
	defer rr.mu.Unlock()

	n := len(rr.instances)
	if n == 0 {
		return ""
	}

	for i := 0; i < n; i++ {
		candidate := &rr.instances[rr.current]
		rr.current = (rr.current + 1) % n
		if candidate.healthy {
			return candidate.url
		}
	}

	url := rr.instances[rr.current].url
	rr.current = (rr.current + 1) % n
	return url
}

// SetHealthy updates the health mark for an instance
func (rr *RoundRobin) SetHealthy(url string, healthy bool) {
	rr.mu.Lock()
	defer rr.mu.Unlock()

	for i := range rr.instances {
		if rr.instances[i].url != url {
			continue
		}
		if rr.instances[i].healthy != healthy {
			rr.instances[i].healthy = healthy
			if healthy {
				logger.Logger.Info().
					Str("server", url).
					Msg("Instance marked healthy")
			} else {
				logger.Logger.Warn().
					Str("server", url).
					Msg("Instance marked down")
			}
		}
		return
	}
}

// GetServers returns all instance URLs regardless of health
func (rr *RoundRobin) GetServers() []string {
	rr.mu.Lock()
	defer rr.mu.Unlock()

	servers := make([]string, 0, len(rr.instances))
	for _, inst := range rr.instances {
		servers = append(servers, inst.url)
	}
	return servers
}

// GetStats returns load balancer statistics
func (rr *RoundRobin) GetStats() map[string]interface{} {
	rr.mu.Lock()
	defer rr.mu.Unlock()

	healthy := 0
	servers := make(map[string]bool, len(rr.instances))
	for _, inst := range rr.instances {
		servers[inst.url] = inst.healthy
		if inst.healthy {
			healthy++
		}
	}

	return map[string]interface{}{
		"algorithm":     "round-robin",
		"server_count":  len(rr.instances),
		"healthy_count": healthy,
		"servers":       servers,
		"current_index": rr.current,
	}
}
