package main

import (
	"context"
	"sync/atomic"

	"github.com/srfabric/srouted/pkg/fabric"
	"github.com/srfabric/srouted/pkg/srlog"
)

// loggingPopulator is a RulePopulator that logs every install/revoke/punt
// call and always succeeds. It stands in for the real hardware-facing
// implementation an embedding controller would supply (spec §6); running
// the CLI against pkg/fabric/fixture topologies exercises the full
// Populator/Orchestrator/RetryFilters pipeline without real switches.
type loggingPopulator struct {
	counter int64
}

func newLoggingPopulator() *loggingPopulator { return &loggingPopulator{} }

func (p *loggingPopulator) PopulateIPRuleForSubnet(ctx context.Context, target fabric.DeviceId, subnets []fabric.IpPrefix, dest fabric.DeviceId, nextHops []fabric.DeviceId) (bool, error) {
	atomic.AddInt64(&p.counter, 1)
	srlog.WithFields(map[string]interface{}{"target": target, "dest": dest, "subnets": subnets, "next_hops": nextHops}).
		Debug("populate: IP subnet rule")
	return true, nil
}

func (p *loggingPopulator) PopulateIPRuleForRouter(ctx context.Context, target fabric.DeviceId, prefix fabric.IpPrefix, dest fabric.DeviceId, nextHops []fabric.DeviceId) (bool, error) {
	atomic.AddInt64(&p.counter, 1)
	srlog.WithFields(map[string]interface{}{"target": target, "dest": dest, "prefix": prefix, "next_hops": nextHops}).
		Debug("populate: router-IP rule")
	return true, nil
}

func (p *loggingPopulator) PopulateMPLSRule(ctx context.Context, target fabric.DeviceId, dest fabric.DeviceId, nextHops []fabric.DeviceId, routerIP fabric.IpPrefix) (bool, error) {
	atomic.AddInt64(&p.counter, 1)
	srlog.WithFields(map[string]interface{}{"target": target, "dest": dest, "router_ip": routerIP, "next_hops": nextHops}).
		Debug("populate: MPLS-SR rule")
	return true, nil
}

func (p *loggingPopulator) RevokeIPRuleForSubnet(ctx context.Context, subnets []fabric.IpPrefix) (bool, error) {
	srlog.WithField("subnets", subnets).Info("revoke: IP subnet rule")
	return true, nil
}

func (p *loggingPopulator) PopulateRouterIPPunts(ctx context.Context, id fabric.DeviceId) error {
	srlog.WithDevice(string(id)).Debug("populate: router-IP punts")
	return nil
}

func (p *loggingPopulator) PopulateArpNdpPunts(ctx context.Context, id fabric.DeviceId) error {
	srlog.WithDevice(string(id)).Debug("populate: ARP/NDP punts")
	return nil
}

func (p *loggingPopulator) PopulateRouterMacVlanFilters(ctx context.Context, id fabric.DeviceId) (*fabric.PortFilterInfo, error) {
	srlog.WithDevice(string(id)).Debug("populate: router MAC/VLAN filters")
	return &fabric.PortFilterInfo{}, nil
}

func (p *loggingPopulator) PopulateSinglePortFilters(ctx context.Context, id fabric.DeviceId, port fabric.PortId) error {
	srlog.WithDevice(string(id)).WithField("port", port.Port).Debug("populate: single-port filter")
	return nil
}

func (p *loggingPopulator) RevokeSinglePortFilters(ctx context.Context, id fabric.DeviceId, port fabric.PortId) error {
	srlog.WithDevice(string(id)).WithField("port", port.Port).Debug("revoke: single-port filter")
	return nil
}

func (p *loggingPopulator) ResetCounter() { atomic.StoreInt64(&p.counter, 0) }

func (p *loggingPopulator) GetCounter() int { return int(atomic.LoadInt64(&p.counter)) }

var _ fabric.RulePopulator = (*loggingPopulator)(nil)
