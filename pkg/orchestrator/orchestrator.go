// Package orchestrator owns the population status lock, the current and
// updated EcmpSpg maps, the snapshot-and-diff flow, the full-reprogram
// fallback, and the retry scheduler (spec §4.4).
package orchestrator

import (
	"context"
	"sync"

	"github.com/srfabric/srouted/pkg/fabric"
	"github.com/srfabric/srouted/pkg/populate"
	"github.com/srfabric/srouted/pkg/retryfilters"
	"github.com/srfabric/srouted/pkg/routediff"
	"github.com/srfabric/srouted/pkg/spg"
	"github.com/srfabric/srouted/pkg/srlog"
)

// ControlPoint names a device whose subnet scope is being (re)installed
// (spec §4.4 populateSubnet).
type ControlPoint struct {
	Device fabric.DeviceId
}

// Orchestrator drives the whole reconfiguration lifecycle for one
// controller instance. All exported methods serialize through a single
// mutex standing in for the source's reentrant statusLock — each
// exported entrypoint acquires it once and calls an internal, lock-held
// variant, so one entrypoint may call into another without deadlocking
// (spec §5: "a single reentrant statusLock").
type Orchestrator struct {
	view   fabric.FabricView
	config fabric.DeviceConfig
	rp     fabric.RulePopulator
	pop    *populate.Populator
	retry  *retryfilters.Scheduler

	statusLock sync.Mutex
	status     fabric.Status
	current    routediff.SnapshotMap
	updated    routediff.SnapshotMap
}

// New builds an Orchestrator in the IDLE state.
func New(view fabric.FabricView, config fabric.DeviceConfig, rp fabric.RulePopulator) *Orchestrator {
	pop := populate.New(config, rp)
	o := &Orchestrator{
		view:    view,
		config:  config,
		rp:      rp,
		pop:     pop,
		status:  fabric.StatusIdle,
		current: make(routediff.SnapshotMap),
		updated: make(routediff.SnapshotMap),
	}
	o.retry = retryfilters.NewScheduler(func(ctx context.Context, devId fabric.DeviceId) (*fabric.PortFilterInfo, error) {
		return rp.PopulateRouterMacVlanFilters(ctx, devId)
	})
	return o
}

// Close releases the retry scheduler's worker goroutine.
func (o *Orchestrator) Close() { o.retry.Close() }

// Status returns the current lifecycle state. Reading it outside the lock
// is only for diagnostic logging, per spec §5.
func (o *Orchestrator) Status() fabric.Status {
	o.statusLock.Lock()
	defer o.statusLock.Unlock()
	return o.status
}

// CurrentSnapshot returns a shallow copy of the current EcmpSpg map, for
// read-only inspection (CLI status/graph commands).
func (o *Orchestrator) CurrentSnapshot() routediff.SnapshotMap {
	o.statusLock.Lock()
	defer o.statusLock.Unlock()
	out := make(routediff.SnapshotMap, len(o.current))
	for k, v := range o.current {
		out[k] = v
	}
	return out
}

func (o *Orchestrator) locallyMastered(ctx context.Context) ([]fabric.DeviceId, error) {
	devices, err := o.view.Devices(ctx)
	if err != nil {
		return nil, err
	}
	var out []fabric.DeviceId
	for _, d := range devices {
		master, err := o.view.IsLocalMaster(ctx, d.ID)
		if err != nil {
			return nil, err
		}
		if master {
			out = append(out, d.ID)
		}
	}
	return out, nil
}

// PopulateAllRoutingRules builds a fresh EcmpSpg for every locally
// mastered device and programs it from scratch (spec §4.4).
func (o *Orchestrator) PopulateAllRoutingRules(ctx context.Context) bool {
	o.statusLock.Lock()
	defer o.statusLock.Unlock()
	return o.populateAllRoutingRulesLocked(ctx)
}

func (o *Orchestrator) populateAllRoutingRulesLocked(ctx context.Context) bool {
	o.status = fabric.StatusStarted
	o.rp.ResetCounter()

	devices, err := o.locallyMastered(ctx)
	if err != nil {
		srlog.Logger.WithError(err).Error("orchestrator: listing locally-mastered devices failed")
		o.status = fabric.StatusAborted
		return false
	}

	for _, dev := range devices {
		graph, err := spg.Build(ctx, dev, o.view)
		if err != nil {
			srlog.WithRoot(string(dev)).WithError(err).Error("orchestrator: building ECMP graph failed")
			o.status = fabric.StatusAborted
			return false
		}
		if !o.pop.PopulateEcmpRules(ctx, dev, graph, nil) {
			srlog.WithRoot(string(dev)).Warn("orchestrator: populateEcmpRules failed, aborting cycle")
			o.status = fabric.StatusAborted
			return false
		}
		o.current[dev] = graph
	}

	o.status = fabric.StatusSucceeded
	return true
}

// PopulateRoutingRulesForLinkStatusChange reacts to a link event. failedLink
// is nil for a "link added" / general topology-mutation event and
// non-nil for a specific link failure (spec §4.4).
func (o *Orchestrator) PopulateRoutingRulesForLinkStatusChange(ctx context.Context, failedLink *fabric.LinkKey) bool {
	o.statusLock.Lock()
	defer o.statusLock.Unlock()
	return o.populateForLinkStatusChangeLocked(ctx, failedLink)
}

func (o *Orchestrator) populateForLinkStatusChangeLocked(ctx context.Context, failedLink *fabric.LinkKey) bool {
	if o.status == fabric.StatusStarted {
		srlog.Logger.Warn("orchestrator: previous population not finished, dropping link event")
		return true
	}

	devices, err := o.locallyMastered(ctx)
	if err != nil {
		srlog.Logger.WithError(err).Error("orchestrator: listing locally-mastered devices failed")
		o.status = fabric.StatusAborted
		return false
	}

	o.updated = make(routediff.SnapshotMap, len(devices))
	for _, dev := range devices {
		graph, err := spg.Build(ctx, dev, o.view)
		if err != nil {
			srlog.WithRoot(string(dev)).WithError(err).Error("orchestrator: building ECMP graph failed")
			o.status = fabric.StatusAborted
			return false
		}
		o.updated[dev] = graph
	}

	o.status = fabric.StatusStarted

	var routes routediff.RouteSet
	if failedLink == nil {
		routes = routediff.ChangedRoutes(o.current, o.updated, devices)
	} else {
		var staleErr error
		routes, staleErr = routediff.DamagedRoutes(o.current, devices, *failedLink)
		if staleErr != nil {
			// SnapshotStale: some locally-mastered device has no current
			// entry — escalate to a full reprogram (spec §7).
			srlog.Logger.WithError(staleErr).Warn("orchestrator: stale snapshot, escalating to full reprogram")
			return o.populateAllRoutingRulesLocked(ctx)
		}
	}

	if len(routes) == 0 {
		o.status = fabric.StatusSucceeded
		return true
	}

	return o.repopulateLocked(ctx, routes.Slice())
}

// StartPopulationProcess is the equivalent of the "sr-reroute-network"
// administrative trigger (spec §4.4, §6).
func (o *Orchestrator) StartPopulationProcess(ctx context.Context) bool {
	o.statusLock.Lock()
	defer o.statusLock.Unlock()

	switch o.status {
	case fabric.StatusIdle, fabric.StatusSucceeded, fabric.StatusAborted:
		o.status = fabric.StatusStarted
		return o.populateAllRoutingRulesLocked(ctx)
	default:
		srlog.Logger.WithField("status", o.status).Warn("orchestrator: startPopulationProcess skipped, cycle in flight")
		return false
	}
}

// ResumePopulationProcess restarts a full reprogram from ABORTED. There
// is no partial-progress checkpoint (spec §9): "do not infer a
// checkpointing mechanism".
func (o *Orchestrator) ResumePopulationProcess(ctx context.Context) bool {
	o.statusLock.Lock()
	defer o.statusLock.Unlock()

	if o.status != fabric.StatusAborted {
		srlog.Logger.WithField("status", o.status).Warn("orchestrator: resumePopulationProcess requires ABORTED status")
		return false
	}
	o.status = fabric.StatusStarted
	return o.populateAllRoutingRulesLocked(ctx)
}

// PopulateSubnet (re)installs the subnet rule scope for cp's device using
// its current EcmpSpg (spec §4.4).
func (o *Orchestrator) PopulateSubnet(ctx context.Context, cp ControlPoint, subnets []fabric.IpPrefix) bool {
	o.statusLock.Lock()
	defer o.statusLock.Unlock()

	graph, ok := o.current[cp.Device]
	if !ok {
		srlog.WithDevice(string(cp.Device)).Warn("orchestrator: populateSubnet: no current ECMP graph")
		return false
	}
	return o.pop.PopulateEcmpRules(ctx, cp.Device, graph, subnets)
}

// RevokeSubnet delegates to RulePopulator.RevokeIPRuleForSubnet (spec §4.4).
func (o *Orchestrator) RevokeSubnet(ctx context.Context, subnets []fabric.IpPrefix) bool {
	o.statusLock.Lock()
	defer o.statusLock.Unlock()

	ok, err := o.rp.RevokeIPRuleForSubnet(ctx, subnets)
	if err != nil {
		srlog.Logger.WithError(err).Warn("orchestrator: revokeSubnet failed")
		return false
	}
	return ok
}

// PurgeEcmpGraph drops deviceId from both maps and triggers a link-change
// cycle with a nil failedLink (spec §4.4).
func (o *Orchestrator) PurgeEcmpGraph(ctx context.Context, deviceId fabric.DeviceId) bool {
	o.statusLock.Lock()
	defer o.statusLock.Unlock()

	delete(o.current, deviceId)
	delete(o.updated, deviceId)
	return o.populateForLinkStatusChangeLocked(ctx, nil)
}

// PopulatePortAddressing installs punt/filter rules for deviceId and
// starts its RetryFilters loop when the first MAC/VLAN filter result is
// nil, supplementing the route-install path with the port-addressing path
// spec §4.3 describes.
func (o *Orchestrator) PopulatePortAddressing(ctx context.Context, deviceId fabric.DeviceId) error {
	o.statusLock.Lock()
	defer o.statusLock.Unlock()

	return o.pop.PopulatePortAddressing(ctx, deviceId, func(baseline fabric.PortFilterInfo) {
		o.retry.Start(ctx, deviceId, baseline)
	})
}

// repopulateLocked implements spec §4.4's repopulate algorithm: partition
// routes by root (the second element), handle degenerate "(root,)"
// routes with a full rebuild at that root, handle (target,root) routes
// via populatePartial against the fresh updated[root] graph, and only
// after every route toward a given root has succeeded, promote
// updated[root] into current[root].
func (o *Orchestrator) repopulateLocked(ctx context.Context, routes []fabric.Route) bool {
	o.rp.ResetCounter()

	byRoot := make(map[fabric.DeviceId][]fabric.Route)
	var order []fabric.DeviceId
	for _, r := range routes {
		if _, seen := byRoot[r.Root]; !seen {
			order = append(order, r.Root)
		}
		byRoot[r.Root] = append(byRoot[r.Root], r)
	}

	for _, root := range order {
		group := byRoot[root]
		ok := o.repopulateRootLocked(ctx, root, group)
		if !ok {
			o.status = fabric.StatusAborted
			return false
		}
	}

	o.status = fabric.StatusSucceeded
	return true
}

func (o *Orchestrator) repopulateRootLocked(ctx context.Context, root fabric.DeviceId, routes []fabric.Route) bool {
	for _, r := range routes {
		if !r.IsDegenerate() {
			continue
		}
		graph, err := spg.Build(ctx, root, o.view)
		if err != nil {
			srlog.WithRoot(string(root)).WithError(err).Error("orchestrator: rebuilding ECMP graph failed")
			return false
		}
		if !o.pop.PopulateEcmpRules(ctx, root, graph, nil) {
			return false
		}
		o.current[root] = graph
		return true
	}

	updGraph, ok := o.updated[root]
	if !ok {
		srlog.WithRoot(string(root)).Error("orchestrator: repopulate: no updated ECMP graph for root")
		return false
	}

	for _, r := range routes {
		paths, _, found := updGraph.ViaForTarget(r.Target)
		if !found {
			srlog.WithRoot(string(root)).WithField("target", string(r.Target)).Error("orchestrator: repopulate: target not in updated graph")
			return false
		}
		nextHops := firstHops(root, paths)
		if !o.pop.PopulatePartial(ctx, r.Target, root, nextHops, nil) {
			return false
		}
	}

	o.current[root] = updGraph
	return true
}

func firstHops(destSw fabric.DeviceId, paths []spg.ViaPath) []fabric.DeviceId {
	seen := make(map[fabric.DeviceId]struct{}, len(paths))
	var hops []fabric.DeviceId
	for _, via := range paths {
		hop := destSw
		if len(via) > 0 {
			hop = via[0]
		}
		if _, ok := seen[hop]; ok {
			continue
		}
		seen[hop] = struct{}{}
		hops = append(hops, hop)
	}
	return hops
}
