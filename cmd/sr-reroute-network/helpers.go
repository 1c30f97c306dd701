package main

import (
	"fmt"

	"github.com/srfabric/srouted/pkg/config"
	"github.com/srfabric/srouted/pkg/fabric/fixture"
	"github.com/srfabric/srouted/pkg/orchestrator"
	"github.com/srfabric/srouted/pkg/srauth"
	"github.com/srfabric/srouted/pkg/srlog"
)

// buildOrchestrator loads the topology fixture and controller config named
// by the --topology/--config flags and wires them into a fresh
// Orchestrator. Each CLI invocation is a new process, so the Orchestrator
// always starts IDLE — "resume" only makes sense within a single
// long-running embedding, not across separate CLI invocations; this
// command-line tool demonstrates the operation sequence, not persistence.
func buildOrchestrator() (*orchestrator.Orchestrator, *config.Config, error) {
	if topologyFlag == "" {
		return nil, nil, fmt.Errorf("--topology is required")
	}

	cfg := config.Default()
	if configFlag != "" {
		loaded, err := config.Load(configFlag)
		if err != nil {
			return nil, nil, fmt.Errorf("loading config: %w", err)
		}
		cfg = loaded
	}

	if verboseFlag {
		_ = srlog.SetLevel("debug")
	} else if cfg.LogLevel != "" {
		_ = srlog.SetLevel(cfg.LogLevel)
	}
	if cfg.LogJSON {
		srlog.SetJSONFormat()
	}

	f, err := fixture.Load(topologyFlag)
	if err != nil {
		return nil, nil, fmt.Errorf("loading topology: %w", err)
	}

	o := orchestrator.New(f, f, newLoggingPopulator())
	return o, cfg, nil
}

// authGate builds the srauth.Gate for this invocation's config.
func authGate(cfg *config.Config) *srauth.Gate {
	return srauth.NewGate(cfg.AdminPassphraseHash)
}
