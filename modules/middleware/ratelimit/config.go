package ratelimit

import (
	"time"
)

type KeyStrategyId string

const (
	RemoteIpKeyStrategy KeyStrategyId = "remote_ip"
)

type (
	// RestHTTPConfig is parsed from RATE_LIMIT_*. The defaults allow 600
	// requests per minute per remote IP on every route.
	RestHTTPConfig struct {
		Routes              []Route      `envPrefix:"ROUTE_"`
		DefaultPolicy       EndpointRule `envPrefix:"DEFAULT_"`
		AllowIfNoMatch      bool         `env:"ALLOW_IF_NO_MATCH" envDefault:"true"`
		AllowIfNoIdentifier bool         `env:"ALLOW_IF_NO_ID"`
	}

	// Route.Pattern is a ServeMux path pattern without the method, e.g. "/api/employees/{id}".
	Route struct {
		Pattern       string         `env:"PATTERN"`
		EndpointRules []EndpointRule `envPrefix:"POLICY_"`
	}

	EndpointRule struct {
		Method      string        `env:"METHOD"`
		Limit       int64         `env:"LIMIT" envDefault:"600"`
		Window      time.Duration `env:"WINDOW" envDefault:"1m"`
		KeyStrategy KeyStrategyId `env:"KEY_STRATEGY" envDefault:"remote_ip"`
	}
)
