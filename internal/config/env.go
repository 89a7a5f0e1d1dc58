package config

import (
	"fmt"

	"github.com/caarlos0/env/v11"
)

// Env holds the settings taken from the environment.
type Env struct {
	DataDir  string `env:"GEODESIM_DATA"      envDefault:".geodesim"`
	Workers  int    `env:"GEODESIM_WORKERS"   envDefault:"0"`
	LogLevel string `env:"GEODESIM_LOG_LEVEL" envDefault:"info"`

	// OTelEndpoint is an OTLP/HTTP collector URL. Tracing is off when empty.
	OTelEndpoint string `env:"GEODESIM_OTEL_ENDPOINT"`
}

func LoadEnv() (Env, error) {
	var e Env
	if err := env.Parse(&e); err != nil {
		return Env{}, fmt.Errorf("parse env: %w", err)
	}
	return e, nil
}
