package main

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"printkeeper/internal/config"
)

func TestApplyFlagsOnlyChanged(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Server.Port = 8080 // from file or environment
	cfg.Dispatch.MaxAttempts = 5

	flags := &flagValues{
		port:       config.DefaultServerPort,
		maxRetries: 2,
		retryDelay: 500 * time.Millisecond,
		subnet:     "10.0.0.0/24",
	}
	applyFlags(cfg, flags, map[string]bool{"max-retries": true, "retry-delay": true, "subnet": true})

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, 2, cfg.Dispatch.MaxAttempts)
	assert.Equal(t, 500*time.Millisecond, cfg.Dispatch.RetryDelay.Duration())
	assert.Equal(t, "10.0.0.0/24", cfg.Discovery.Subnet)
}
