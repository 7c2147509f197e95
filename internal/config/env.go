package config

import (
	"time"

	"github.com/kelseyhightower/envconfig"
)

// WorkerEnv holds environment overrides for the standalone dispatcher worker,
// which typically runs without a config file in container deployments.
// Variables are prefixed NOTIFY_, e.g. NOTIFY_RETRY_CEILING.
type WorkerEnv struct {
	RetryCeiling int           `envconfig:"RETRY_CEILING"`
	PollInterval time.Duration `envconfig:"POLL_INTERVAL"`
	SendTimeout  time.Duration `envconfig:"SEND_TIMEOUT"`
	WorkerPool   int           `envconfig:"WORKER_POOL"`
	HealthPort   int           `envconfig:"HEALTH_PORT" default:"8081"`
}

func LoadWorkerEnv() (*WorkerEnv, error) {
	var env WorkerEnv
	if err := envconfig.Process("NOTIFY", &env); err != nil {
		return nil, err
	}
	return &env, nil
}

// Apply overlays the non-zero environment values onto the dispatcher config.
func (e *WorkerEnv) Apply(cfg *DispatcherConfig) {
	if e.RetryCeiling > 0 {
		cfg.RetryCeiling = e.RetryCeiling
	}
	if e.PollInterval > 0 {
		cfg.PollInterval = e.PollInterval
	}
	if e.SendTimeout > 0 {
		cfg.SendTimeout = e.SendTimeout
	}
	if e.WorkerPool > 0 {
		cfg.WorkerPool = e.WorkerPool
	}
}
