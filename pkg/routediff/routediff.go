// Package routediff compares EcmpSpg snapshots (and one snapshot against
// a failed link) to produce the minimal set of routes that need
// reprogramming (spec §4.2). Every function here is pure: no I/O, no
// shared state.
package routediff

import (
	"github.com/cespare/xxhash/v2"

	"github.com/srfabric/srouted/pkg/fabric"
	"github.com/srfabric/srouted/pkg/spg"
)

// SnapshotMap is current or updated EcmpSpg state, one entry per
// locally-mastered root device that has been successfully programmed (or
// snapshotted).
type SnapshotMap map[fabric.DeviceId]*spg.EcmpSpg

// routeKey canonicalizes a Route for deduplication (spec §4.2:
// "implementers must deduplicate by value equality of the two DeviceIds").
func routeKey(r fabric.Route) uint64 {
	h := xxhash.New()
	h.WriteString(string(r.Target))
	h.Write([]byte{0})
	h.WriteString(string(r.Root))
	return h.Sum64()
}

// RouteSet is an unordered, deduplicated collection of routes.
type RouteSet map[uint64]fabric.Route

func newRouteSet() RouteSet { return make(RouteSet) }

func (s RouteSet) add(r fabric.Route) { s[routeKey(r)] = r }

// Slice returns the routes in the set, in no particular order.
func (s RouteSet) Slice() []fabric.Route {
	out := make([]fabric.Route, 0, len(s))
	for _, r := range s {
		out = append(out, r)
	}
	return out
}

// DamagedRoutes enumerates, for every locally-mastered root device with a
// current entry, every (target,root) pair whose via-path traverses
// failedLink, expanding each via-path into its constituent hop pairs
// (spec §4.2). It returns a *fabric.ErrSnapshotStale (forcing a full
// reprogram upstream) if any locally-mastered device lacks a current
// entry — locallyMastered must list exactly the devices the Orchestrator
// considers locally mastered.
func DamagedRoutes(current SnapshotMap, locallyMastered []fabric.DeviceId, failedLink fabric.LinkKey) (RouteSet, error) {
	result := newRouteSet()
	for _, root := range locallyMastered {
		g, ok := current[root]
		if !ok {
			return nil, &fabric.ErrSnapshotStale{Device: root}
		}
		for _, bucket := range g.ViaByDepth() {
			for target, paths := range bucket {
				if target == root {
					continue // depth-0 self entry carries no route
				}
				for _, via := range paths {
					if viaTraversesLink(root, target, via, failedLink) {
						result.add(fabric.Route{Target: target, Root: root})
						break
					}
				}
			}
		}
	}
	return result, nil
}

// viaTraversesLink expands a via-path from root to target into its
// constituent hop pairs — root->via[0], via[i]->via[i+1], ..., last->target
// (or root->target directly if via is empty) — and reports whether any of
// them matches failedLink in either direction.
func viaTraversesLink(root, target fabric.DeviceId, via spg.ViaPath, failedLink fabric.LinkKey) bool {
	chain := make([]fabric.DeviceId, 0, len(via)+2)
	chain = append(chain, root)
	chain = append(chain, via...)
	chain = append(chain, target)

	for i := 0; i+1 < len(chain); i++ {
		if failedLink.HasEndpoints(chain[i], chain[i+1]) {
			return true
		}
	}
	return false
}

// ChangedRoutes enumerates, for every locally-mastered root, the routes
// whose via-path set differs between current and updated (spec §4.2). If
// current lacks a root entirely, the degenerate "(root,)" route is
// emitted instead of per-target diffing.
func ChangedRoutes(current, updated SnapshotMap, locallyMastered []fabric.DeviceId) RouteSet {
	result := newRouteSet()
	for _, root := range locallyMastered {
		curG, haveCur := current[root]
		if !haveCur {
			result.add(fabric.Degenerate(root))
			continue
		}
		updG := updated[root] // nil if root vanished from the fresh view

		for _, r := range compare(updG, curG, root) {
			result.add(r)
		}
		for _, r := range compare(curG, updG, root) {
			result.add(r)
		}
	}
	return result
}

// compare emits (target, root) for every target reachable in base whose
// via-path-set differs from (or is absent in) comp.
func compare(base, comp *spg.EcmpSpg, root fabric.DeviceId) []fabric.Route {
	if base == nil {
		return nil
	}
	var out []fabric.Route
	for _, bucket := range base.ViaByDepth() {
		for target, basePaths := range bucket {
			if target == root {
				continue
			}
			compPaths, ok := compViaFor(comp, target)
			if !ok || !spg.SameViaSet(basePaths, compPaths) {
				out = append(out, fabric.Route{Target: target, Root: root})
			}
		}
	}
	return out
}

func compViaFor(g *spg.EcmpSpg, target fabric.DeviceId) ([]spg.ViaPath, bool) {
	if g == nil {
		return nil, false
	}
	paths, _, ok := g.ViaForTarget(target)
	return paths, ok
}
