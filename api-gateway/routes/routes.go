package routes

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/olenev/userhub/api-gateway/config"
	"github.com/olenev/userhub/api-gateway/health"
	"github.com/olenev/userhub/api-gateway/middleware"
	"github.com/olenev/userhub/api-gateway/proxy"
	"github.com/olenev/userhub/pkg/auth"
)

// RouteDefinition maps a path prefix to a backend service
type RouteDefinition struct {
	Prefix       string
	ServiceName  string
	StripPrefix  string
	Description  string
	RequireAuth  bool
	RequireAdmin bool
}

// Routes lists every prefix the gateway serves. The backend enforces
// authorization itself; edge checks only reject the obvious cases
// early.
var Routes = []RouteDefinition{
	{
		Prefix:      "/api/auth",
		ServiceName: "userhub",
		Description: "Signup, login, token refresh and email confirmation",
	},
	{
		Prefix:      "/api/healthchecker",
		ServiceName: "userhub",
		Description: "Backend health probe",
	},
	{
		Prefix:      "/api/users",
		ServiceName: "userhub",
		Description: "Profile and avatar management",
		RequireAuth: true,
	},
	{
		Prefix:       "/api/admin",
		ServiceName:  "userhub",
		Description:  "User administration",
		RequireAuth:  true,
		RequireAdmin: true,
	},
	{
		Prefix:      "/swagger",
		ServiceName: "userhub",
		Description: "API documentation",
	},
	{
		Prefix:      "/static",
		ServiceName: "userhub",
		Description: "Uploaded avatars",
	},
	{
		Prefix:       "/mailer",
		ServiceName:  "mailer",
		StripPrefix:  "/mailer",
		Description:  "Mailer worker diagnostics",
		RequireAuth:  true,
		RequireAdmin: true,
	},
}

// SetupRoutes wires all gateway routes and returns the health checker
// so the caller can start its background watch loop.
func SetupRoutes(app *fiber.App, cfg *config.GatewayConfig, tokens *auth.TokenManager, cbManager *middleware.CircuitBreakerManager) *health.HealthChecker {
	reverseProxy := proxy.NewReverseProxy(cfg)
	checker := health.NewHealthChecker(cfg, reverseProxy.LoadBalancers())

	registerHealthRoutes(app, checker)
	registerStatsRoute(app, reverseProxy, cbManager)
	registerOverviewRoute(app)

	for _, route := range Routes {
		registerServiceRoute(app, reverseProxy, tokens, route)
	}

	return checker
}

func registerHealthRoutes(app *fiber.App, checker *health.HealthChecker) {
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(checker.QuickCheck())
	})

	app.Get("/health/live", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "alive"})
	})

	app.Get("/health/ready", func(c *fiber.Ctx) error {
		ctx, cancel := context.WithTimeout(c.UserContext(), 3*time.Second)
		defer cancel()

		result := checker.CheckAllServices(ctx)
		if result.Status == "unhealthy" {
			return c.Status(fiber.StatusServiceUnavailable).JSON(result)
		}
		return c.JSON(result)
	})

	app.Get("/health/services", func(c *fiber.Ctx) error {
		ctx, cancel := context.WithTimeout(c.UserContext(), 5*time.Second)
		defer cancel()

		return c.JSON(checker.CheckAllServices(ctx))
	})
}

func registerStatsRoute(app *fiber.App, reverseProxy *proxy.ReverseProxy, cbManager *middleware.CircuitBreakerManager) {
	app.Get("/stats", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"load_balancers":   reverseProxy.Stats(),
			"circuit_breakers": cbManager.GetAllStats(),
			"timestamp":        time.Now(),
		})
	})
}

func registerOverviewRoute(app *fiber.App) {
	type routeInfo struct {
		Prefix      string `json:"prefix"`
		Service     string `json:"service"`
		Description string `json:"description"`
		Protected   bool   `json:"protected"`
	}

	overview := make([]routeInfo, 0, len(Routes))
	for _, route := range Routes {
		overview = append(overview, routeInfo{
			Prefix:      route.Prefix,
			Service:     route.ServiceName,
			Description: route.Description,
			Protected:   route.RequireAuth,
		})
	}

	app.Get("/", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"gateway": "userhub-gateway",
			"routes":  overview,
		})
	})
}

func registerServiceRoute(app *fiber.App, reverseProxy *proxy.ReverseProxy, tokens *auth.TokenManager, route RouteDefinition) {
	handlers := make([]fiber.Handler, 0, 3)
	if route.RequireAuth {
		handlers = append(handlers, middleware.AuthMiddleware(tokens))
	}
	if route.RequireAdmin {
		handlers = append(handlers, middleware.AdminMiddleware())
	}
	handlers = append(handlers, func(c *fiber.Ctx) error {
		return reverseProxy.ProxyRequest(c, route.ServiceName, route.StripPrefix)
	})

	app.All(route.Prefix, handlers...)
	app.All(route.Prefix+"/*", handlers...)
}
