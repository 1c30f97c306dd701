// Package config loads the non-domain runtime knobs for the sr-reroute-network
// controller: Redis connection details, retry tuning, logging, and the
// administrative passphrase hash. The fabric-specific collaborators
// (FabricView, DeviceConfig, RulePopulator) are supplied by the embedding
// controller, not configured here (spec §6).
package config

import (
	"os"

	"gopkg.in/yaml.v3"

	"github.com/srfabric/srouted/pkg/retryfilters"
)

// Config is the static, file-loaded controller configuration.
type Config struct {
	RedisAddr string `yaml:"redis_addr"`
	RedisDB   int    `yaml:"redis_db"`

	ControllerID string `yaml:"controller_id"`

	RetryIntervalMS       int `yaml:"retry_interval_ms"`
	RetryIntervalScale    int `yaml:"retry_interval_scale"`
	ConstantRetryAttempts int `yaml:"constant_retry_attempts"`

	LogLevel string `yaml:"log_level"`
	LogJSON  bool   `yaml:"log_json"`

	// AdminPassphraseHash is a bcrypt hash checked by pkg/srauth before a
	// CLI operator may trigger startPopulationProcess/resumePopulationProcess.
	AdminPassphraseHash string `yaml:"admin_passphrase_hash"`
}

// Default returns a Config with every knob at its spec-defined default,
// matching the source's RETRY_INTERVAL_MS/RETRY_INTERVAL_SCALE/
// MAX_CONSTANT_RETRY_ATTEMPTS constants.
func Default() *Config {
	return &Config{
		RedisAddr:             "127.0.0.1:6379",
		RedisDB:               0,
		ControllerID:          "controller-1",
		RetryIntervalMS:       retryfilters.RetryIntervalMS,
		RetryIntervalScale:    retryfilters.RetryIntervalScale,
		ConstantRetryAttempts: retryfilters.ConstantAttempts,
		LogLevel:              "info",
		LogJSON:               false,
	}
}

// Load reads path and overlays it onto Default(), following the teacher's
// settings.Load error-tolerant style: a missing file is not an error.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, err
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}
