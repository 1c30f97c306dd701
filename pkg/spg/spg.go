// Package spg builds and compares EcmpSpg trees: for one root device, the
// full set of minimum-hop via-paths to every device reachable from it
// (spec §4.1).
package spg

import (
	"context"
	"fmt"

	"github.com/cespare/xxhash/v2"

	"github.com/srfabric/srouted/pkg/fabric"
)

// ViaPath is the ordered sequence of intermediate devices on one ECMP
// branch from a root to a target, excluding both endpoints. An empty
// ViaPath means the target is a direct neighbor of the root.
type ViaPath []fabric.DeviceId

// fingerprint hashes a via-path into a comparable 64-bit key, used to
// dedupe via-path sets without O(n^2) slice comparisons (see SPEC_FULL.md
// §11 — an arena-of-hashes in place of per-edge allocation, per spec §9's
// "prefer arena + integer indices" note).
func fingerprint(v ViaPath) uint64 {
	h := xxhash.New()
	for _, id := range v {
		h.WriteString(string(id))
		h.Write([]byte{0}) // separator: prevents "ab","c" colliding with "a","bc"
	}
	return h.Sum64()
}

// EcmpSpg is the breadth-indexed shortest-path graph rooted at Root: for
// every device reachable from Root, the full set of minimum-hop via-paths
// toward it. Immutable after Build returns.
type EcmpSpg struct {
	root       fabric.DeviceId
	viaByDepth []map[fabric.DeviceId][]ViaPath // index 0 == depth 0 == {root: [[]]}
}

// Root returns the device this graph is rooted at.
func (g *EcmpSpg) Root() fabric.DeviceId { return g.root }

// ViaByDepth returns the full indexed structure, ordered by hop-distance
// from the root. Callers must not mutate the returned maps or slices.
func (g *EcmpSpg) ViaByDepth() []map[fabric.DeviceId][]ViaPath {
	return g.viaByDepth
}

// ViaForTarget linearly scans depth buckets and returns the via-path set
// for the first (and only) depth at which target appears, or ok=false if
// target is unreachable from the root.
func (g *EcmpSpg) ViaForTarget(target fabric.DeviceId) (paths []ViaPath, depth int, ok bool) {
	for d, bucket := range g.viaByDepth {
		if v, found := bucket[target]; found {
			return v, d, true
		}
	}
	return nil, 0, false
}

// Targets returns every device reachable from the root, root included.
func (g *EcmpSpg) Targets() []fabric.DeviceId {
	var out []fabric.DeviceId
	for _, bucket := range g.viaByDepth {
		for t := range bucket {
			out = append(out, t)
		}
	}
	return out
}

// Equal reports whether g and o agree on every (target -> via-path-set)
// entry, treating each target's via-path collection as a set (spec §3).
func (g *EcmpSpg) Equal(o *EcmpSpg) bool {
	if o == nil {
		return false
	}
	if g.root != o.root {
		return false
	}
	gSets := viaSetsByTarget(g)
	oSets := viaSetsByTarget(o)
	if len(gSets) != len(oSets) {
		return false
	}
	for target, gSet := range gSets {
		oSet, ok := oSets[target]
		if !ok || !sameSet(gSet, oSet) {
			return false
		}
	}
	return true
}

func viaSetsByTarget(g *EcmpSpg) map[fabric.DeviceId]map[uint64]struct{} {
	out := make(map[fabric.DeviceId]map[uint64]struct{})
	for _, bucket := range g.viaByDepth {
		for target, paths := range bucket {
			set := make(map[uint64]struct{}, len(paths))
			for _, p := range paths {
				set[fingerprint(p)] = struct{}{}
			}
			out[target] = set
		}
	}
	return out
}

func sameSet(a, b map[uint64]struct{}) bool {
	if len(a) != len(b) {
		return false
	}
	for k := range a {
		if _, ok := b[k]; !ok {
			return false
		}
	}
	return true
}

// SameViaSet reports whether a and b represent the same via-path set,
// treating each collection as a set of ordered sequences (spec §3). Used
// by RouteDiffer to compare a target's via-paths across two snapshots.
func SameViaSet(a, b []ViaPath) bool {
	if len(a) != len(b) {
		return false
	}
	fpSet := make(map[uint64]struct{}, len(a))
	for _, p := range a {
		fpSet[fingerprint(p)] = struct{}{}
	}
	for _, p := range b {
		if _, ok := fpSet[fingerprint(p)]; !ok {
			return false
		}
	}
	return true
}

// Build performs a breadth-first expansion from root over view's current
// bidirectional links, recording every minimum-hop predecessor at each
// frontier so the resulting graph carries the full ECMP via-path set
// (spec §4.1). Only devices and links currently visible to view
// participate; mastership is not consulted here.
func Build(ctx context.Context, root fabric.DeviceId, view fabric.FabricView) (*EcmpSpg, error) {
	depthOf := map[fabric.DeviceId]int{root: 0}
	viaByDepth := []map[fabric.DeviceId][]ViaPath{
		{root: {{}}},
	}

	frontier := []fabric.DeviceId{root}
	for depth := 1; len(frontier) > 0; depth++ {
		// predecessors[w] accumulates every device at the current frontier
		// depth (depth-1) that has a minimum-hop link to newly-reached w.
		predecessors := make(map[fabric.DeviceId][]fabric.DeviceId)
		var order []fabric.DeviceId // preserves first-seen order for determinism

		for _, u := range frontier {
			links, err := view.LinksOf(ctx, u)
			if err != nil {
				return nil, fmt.Errorf("srouted: listing links of %s: %w", u, err)
			}
			for _, link := range links {
				w, isEndpoint := link.Other(u)
				if !isEndpoint {
					continue
				}
				if _, seen := depthOf[w]; seen {
					continue // already reached at a smaller or equal depth
				}
				if _, seenThisRound := predecessors[w]; !seenThisRound {
					order = append(order, w)
				}
				predecessors[w] = append(predecessors[w], u)
			}
		}

		if len(order) == 0 {
			break
		}

		bucket := make(map[fabric.DeviceId][]ViaPath, len(order))
		var nextFrontier []fabric.DeviceId
		for _, w := range order {
			depthOf[w] = depth
			bucket[w] = viaPathsFor(root, predecessors[w], viaByDepth[depth-1])
			nextFrontier = append(nextFrontier, w)
		}
		viaByDepth = append(viaByDepth, bucket)
		frontier = nextFrontier
	}

	return &EcmpSpg{root: root, viaByDepth: viaByDepth}, nil
}

// viaPathsFor computes the deduplicated via-path set for a newly-reached
// device given its contributing predecessors (all at the prior depth) and
// that prior depth's via-path bucket.
func viaPathsFor(root fabric.DeviceId, preds []fabric.DeviceId, prevBucket map[fabric.DeviceId][]ViaPath) []ViaPath {
	seen := make(map[uint64]struct{})
	var out []ViaPath
	for _, p := range preds {
		var bases []ViaPath
		if p == root {
			bases = []ViaPath{{}}
		} else {
			bases = prevBucket[p]
		}
		for _, base := range bases {
			var via ViaPath
			if p == root {
				via = ViaPath{}
			} else {
				via = make(ViaPath, 0, len(base)+1)
				via = append(via, base...)
				via = append(via, p)
			}
			fp := fingerprint(via)
			if _, dup := seen[fp]; dup {
				continue
			}
			seen[fp] = struct{}{}
			out = append(out, via)
		}
	}
	return out
}
