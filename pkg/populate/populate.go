// Package populate drives a RulePopulator for one root device, one ECMP
// graph, and an optional subnet scope (spec §4.3).
package populate

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/srfabric/srouted/pkg/fabric"
	"github.com/srfabric/srouted/pkg/spg"
	"github.com/srfabric/srouted/pkg/srlog"
)

// Populator drives RulePopulator installs from an EcmpSpg, resolving
// per-device edge/router config from DeviceConfig as it goes.
type Populator struct {
	Config        fabric.DeviceConfig
	RulePopulator fabric.RulePopulator
}

// New builds a Populator over the given DeviceConfig and RulePopulator.
func New(cfg fabric.DeviceConfig, rp fabric.RulePopulator) *Populator {
	return &Populator{Config: cfg, RulePopulator: rp}
}

// PopulateEcmpRules installs, for every (depth, target) in the graph, the
// rules that forward traffic at target toward destSw. Returns false on
// the first partial failure (spec §4.3).
func (p *Populator) PopulateEcmpRules(ctx context.Context, destSw fabric.DeviceId, graph *spg.EcmpSpg, subnets []fabric.IpPrefix) bool {
	for _, bucket := range graph.ViaByDepth() {
		for target, paths := range bucket {
			if target == destSw {
				continue // depth-0 self entry: nothing to program toward itself
			}
			nextHops := nextHopsFor(destSw, paths)
			if !p.PopulatePartial(ctx, target, destSw, nextHops, subnets) {
				return false
			}
		}
	}
	return true
}

// nextHopsFor computes the set of first hops on each ECMP via-path to a
// target: the via-path's first intermediate, or destSw itself when the
// via-path is empty (direct neighbor).
func nextHopsFor(destSw fabric.DeviceId, paths []spg.ViaPath) []fabric.DeviceId {
	seen := make(map[fabric.DeviceId]struct{}, len(paths))
	var hops []fabric.DeviceId
	add := func(id fabric.DeviceId) {
		if _, ok := seen[id]; ok {
			return
		}
		seen[id] = struct{}{}
		hops = append(hops, id)
	}
	for _, via := range paths {
		if len(via) == 0 {
			add(destSw)
		} else {
			add(via[0])
		}
	}
	return hops
}

// PopulatePartial installs, at targetSw, the rules that forward traffic
// toward destSw via nextHops, for the given subnet scope (spec §4.3).
func (p *Populator) PopulatePartial(ctx context.Context, targetSw, destSw fabric.DeviceId, nextHops []fabric.DeviceId, subnets []fabric.IpPrefix) bool {
	log := srlog.WithFields(map[string]interface{}{"target": string(targetSw), "dest": string(destSw)})

	targetIsEdge, err := p.Config.IsEdgeDevice(ctx, targetSw)
	if err != nil {
		return configMissing(log, targetSw, "edge", err)
	}
	destIsEdge, err := p.Config.IsEdgeDevice(ctx, destSw)
	if err != nil {
		return configMissing(log, destSw, "edge", err)
	}
	destRouterV4, err := p.Config.RouterIPv4(ctx, destSw)
	if err != nil {
		return configMissing(log, destSw, "routerIPv4", err)
	}
	destRouterV6, hasV6, err := p.Config.RouterIPv6(ctx, destSw)
	if err != nil {
		return configMissing(log, destSw, "routerIPv6", err)
	}

	if targetIsEdge && destIsEdge {
		scope := subnets
		if len(scope) == 0 {
			scope, err = p.Config.SubnetsOf(ctx, destSw)
			if err != nil {
				return configMissing(log, destSw, "subnets", err)
			}
		}
		if ok, err := p.RulePopulator.PopulateIPRuleForSubnet(ctx, targetSw, scope, destSw, nextHops); err != nil || !ok {
			return installFailed(log, "populateIPRuleForSubnet", targetSw, destSw, err)
		}
		if !p.populateRouterIPRules(ctx, targetSw, destSw, nextHops, destRouterV4, destRouterV6, hasV6, log) {
			return false
		}
	} else if targetIsEdge {
		if !p.populateRouterIPRules(ctx, targetSw, destSw, nextHops, destRouterV4, destRouterV6, hasV6, log) {
			return false
		}
	}

	if ok, err := p.RulePopulator.PopulateMPLSRule(ctx, targetSw, destSw, nextHops, destRouterV4.AsPrefix()); err != nil || !ok {
		return installFailed(log, "populateMPLSRule(v4)", targetSw, destSw, err)
	}
	if hasV6 {
		if ok, err := p.RulePopulator.PopulateMPLSRule(ctx, targetSw, destSw, nextHops, destRouterV6.AsPrefix()); err != nil || !ok {
			return installFailed(log, "populateMPLSRule(v6)", targetSw, destSw, err)
		}
	}
	return true
}

func (p *Populator) populateRouterIPRules(ctx context.Context, targetSw, destSw fabric.DeviceId, nextHops []fabric.DeviceId, v4 fabric.Ipv4, v6 fabric.Ipv6, hasV6 bool, log *logrus.Entry) bool {
	if ok, err := p.RulePopulator.PopulateIPRuleForRouter(ctx, targetSw, v4.AsPrefix(), destSw, nextHops); err != nil || !ok {
		return installFailed(log, "populateIPRuleForRouter(v4)", targetSw, destSw, err)
	}
	if hasV6 {
		if ok, err := p.RulePopulator.PopulateIPRuleForRouter(ctx, targetSw, v6.AsPrefix(), destSw, nextHops); err != nil || !ok {
			return installFailed(log, "populateIPRuleForRouter(v6)", targetSw, destSw, err)
		}
	}
	return true
}

// configMissing logs a typed fabric.ErrConfigMissing and returns false,
// the common shape of every DeviceConfig-lookup failure branch above
// (spec §7 ConfigMissing).
func configMissing(log *logrus.Entry, device fabric.DeviceId, field string, err error) bool {
	log.WithError(&fabric.ErrConfigMissing{Device: device, Field: field, Err: err}).Warn("populatePartial: config missing")
	return false
}

// installFailed logs a typed fabric.ErrInstallFailed and returns false,
// the common shape of every RulePopulator-call failure branch above
// (spec §7 InstallFailed).
func installFailed(log *logrus.Entry, op string, target, dest fabric.DeviceId, err error) bool {
	log.WithError(&fabric.ErrInstallFailed{Op: op, Target: target, Dest: dest, Err: err}).Warn("populatePartial: install failed")
	return false
}

// PopulatePortAddressing installs router-IP and ARP/NDP punt rules for
// deviceId, then installs its router MAC/VLAN filters; if that first
// filter call returns a nil result, it kicks off the retry-filters loop
// with a zero PortFilterInfo baseline (spec §4.3). A non-nil first result
// starts no loop. The caller (the Orchestrator) supplies the retry
// scheduler entrypoint since the scheduler is shared across devices.
func (p *Populator) PopulatePortAddressing(ctx context.Context, deviceId fabric.DeviceId, startRetryFilters func(fabric.PortFilterInfo)) error {
	if err := p.RulePopulator.PopulateRouterIPPunts(ctx, deviceId); err != nil {
		return err
	}
	if err := p.RulePopulator.PopulateArpNdpPunts(ctx, deviceId); err != nil {
		return err
	}
	first, err := p.RulePopulator.PopulateRouterMacVlanFilters(ctx, deviceId)
	if err != nil {
		return err
	}
	if first == nil {
		startRetryFilters(fabric.PortFilterInfo{})
	}
	return nil
}
