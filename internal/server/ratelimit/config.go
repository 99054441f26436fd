package ratelimit

import (
	"time"
)

// EndpointConfig represents rate limiting configuration for a specific endpoint.
type EndpointConfig struct {
	Path   string        // Endpoint path pattern (supports prefix and {param} segments)
	Method string        // HTTP method (GET, POST, etc.)
	Limit  int           // Maximum requests per window
	Window time.Duration // Time window
}

// DefaultEndpointConfigs returns the default endpoint-specific configurations.
func DefaultEndpointConfigs() []EndpointConfig {
	return []EndpointConfig{
		// Session creation and report generation call the AI for every request
		{Path: "/sessions", Method: "POST", Limit: 20, Window: time.Hour},
		{Path: "/sessions/{id}/complete", Method: "POST", Limit: 20, Window: time.Hour},

		// Answers are evaluated by the AI, voice answers are also transcribed
		{Path: "/sessions/{id}/questions/{n}/voice", Method: "POST", Limit: 30, Window: time.Minute},
		{Path: "/sessions/{id}/questions/{n}/answer", Method: "POST", Limit: 60, Window: time.Minute},
		{Path: "/sessions/", Method: "POST", Limit: 120, Window: time.Minute},

		// Reads are handled by the default limit, /health is unlimited
	}
}
