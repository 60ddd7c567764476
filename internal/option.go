package internal

import "github.com/prometheus/client_golang/prometheus"

// Option is a functional option for configuring the application.
type Option func(*application)

type application struct {
	config   *Config
	registry *prometheus.Registry
}

// WithConfig sets the application configuration.
func WithConfig(cfg *Config) Option {
	return func(a *application) {
		a.config = cfg
	}
}

// WithRegistry sets the prometheus registry metrics are registered on.
// A fresh registry is used by default.
func WithRegistry(reg *prometheus.Registry) Option {
	return func(a *application) {
		a.registry = reg
	}
}
