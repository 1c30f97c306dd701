package spg

import (
	"context"
	"testing"

	"github.com/srfabric/srouted/pkg/fabric"
)

// fakeView is a fixed-topology FabricView double for graph-construction tests.
type fakeView struct {
	links map[fabric.DeviceId][]fabric.Link
}

func (v *fakeView) Devices(ctx context.Context) ([]fabric.Device, error) {
	var out []fabric.Device
	for id := range v.links {
		out = append(out, fabric.Device{ID: id})
	}
	return out, nil
}

func (v *fakeView) LinksOf(ctx context.Context, id fabric.DeviceId) ([]fabric.Link, error) {
	return v.links[id], nil
}

func (v *fakeView) IsLocalMaster(ctx context.Context, id fabric.DeviceId) (bool, error) {
	return true, nil
}

func link(a, b fabric.DeviceId) fabric.Link {
	return fabric.Link{Src: fabric.PortId{Device: a, Port: "p"}, Dst: fabric.PortId{Device: b, Port: "p"}}
}

// diamondView builds a spine/leaf diamond: root -> {a,b} -> leaf.
//
//	root
//	/  \
//
// a    b
//
//	\  /
//	leaf
func diamondView() *fakeView {
	links := map[fabric.DeviceId][]fabric.Link{
		"root": {link("root", "a"), link("root", "b")},
		"a":    {link("root", "a"), link("a", "leaf")},
		"b":    {link("root", "b"), link("b", "leaf")},
		"leaf": {link("a", "leaf"), link("b", "leaf")},
	}
	return &fakeView{links: links}
}

func TestBuild_DirectNeighborHasEmptyViaPath(t *testing.T) {
	g, err := Build(context.Background(), "root", diamondView())
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	paths, depth, ok := g.ViaForTarget("a")
	if !ok {
		t.Fatal("expected a reachable from root")
	}
	if depth != 1 {
		t.Errorf("depth = %d, want 1", depth)
	}
	if len(paths) != 1 || len(paths[0]) != 0 {
		t.Errorf("via-paths for direct neighbor = %v, want [[]]", paths)
	}
}

func TestBuild_DiamondHasTwoEcmpPaths(t *testing.T) {
	g, err := Build(context.Background(), "root", diamondView())
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	paths, depth, ok := g.ViaForTarget("leaf")
	if !ok {
		t.Fatal("expected leaf reachable from root")
	}
	if depth != 2 {
		t.Errorf("depth = %d, want 2", depth)
	}
	if len(paths) != 2 {
		t.Fatalf("via-path count = %d, want 2", len(paths))
	}
	seen := map[fabric.DeviceId]bool{}
	for _, p := range paths {
		if len(p) != 1 {
			t.Fatalf("via-path length = %d, want 1: %v", len(p), p)
		}
		seen[p[0]] = true
	}
	if !seen["a"] || !seen["b"] {
		t.Errorf("via-paths = %v, want via a and via b", paths)
	}
}

func TestBuild_UnreachableDeviceNotInGraph(t *testing.T) {
	links := map[fabric.DeviceId][]fabric.Link{
		"root":    {},
		"island1": {link("island1", "island2")},
		"island2": {link("island1", "island2")},
	}
	g, err := Build(context.Background(), "root", &fakeView{links: links})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if _, _, ok := g.ViaForTarget("island1"); ok {
		t.Error("island1 should be unreachable from root")
	}
}

func TestEqual_SameTopologyBuiltTwiceIsEqual(t *testing.T) {
	g1, _ := Build(context.Background(), "root", diamondView())
	g2, _ := Build(context.Background(), "root", diamondView())
	if !g1.Equal(g2) {
		t.Error("two builds of the same topology should be equal")
	}
}

func TestEqual_DifferentRootNotEqual(t *testing.T) {
	g1, _ := Build(context.Background(), "root", diamondView())
	g2, _ := Build(context.Background(), "a", diamondView())
	if g1.Equal(g2) {
		t.Error("graphs rooted at different devices must not be equal")
	}
}

func TestSameViaSet(t *testing.T) {
	a := []ViaPath{{"x", "y"}, {"z"}}
	b := []ViaPath{{"z"}, {"x", "y"}}
	if !SameViaSet(a, b) {
		t.Error("reordered identical via-path sets should be equal")
	}

	c := []ViaPath{{"x", "y"}}
	if SameViaSet(a, c) {
		t.Error("via-path sets of different size must not be equal")
	}
}
