// Package fixture provides a YAML-described, in-memory implementation of
// fabric.FabricView and fabric.DeviceConfig, grounded on the teacher's
// pkg/labgen topology-file format and pkg/spec.Loader's "parse once,
// serve from memory" shape. It exercises every core component
// (pkg/spg, pkg/routediff, pkg/populate, pkg/orchestrator) end-to-end
// without a live fabric.
package fixture

import (
	"context"
	"fmt"
	"net/netip"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/srfabric/srouted/pkg/fabric"
)

// Topology is the on-disk YAML shape: a device list, a link list, and
// per-device configuration.
type Topology struct {
	Devices []DeviceDef `yaml:"devices"`
	Links   []LinkDef   `yaml:"links"`
}

// DeviceDef describes one device and its DeviceConfig-facing attributes.
type DeviceDef struct {
	ID         string   `yaml:"id"`
	Edge       bool     `yaml:"edge"`
	RouterIPv4 string   `yaml:"router_ipv4"`
	RouterIPv6 string   `yaml:"router_ipv6,omitempty"`
	Subnets    []string `yaml:"subnets,omitempty"`
}

// LinkDef describes one bidirectional link as "device:port" endpoints.
type LinkDef struct {
	A string `yaml:"a"`
	B string `yaml:"b"`
}

// Fixture implements fabric.FabricView and fabric.DeviceConfig over a
// fixed, in-memory topology. All locally mastered by default; call
// SetMastered to restrict it (simulating a multi-controller split).
type Fixture struct {
	devices  []fabric.Device
	links    map[fabric.DeviceId][]fabric.Link
	edge     map[fabric.DeviceId]bool
	v4       map[fabric.DeviceId]fabric.Ipv4
	v6       map[fabric.DeviceId]fabric.Ipv6
	hasV6    map[fabric.DeviceId]bool
	subnets  map[fabric.DeviceId][]fabric.IpPrefix
	mastered map[fabric.DeviceId]bool
}

// Load parses a Topology from a YAML file at path.
func Load(path string) (*Fixture, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("srouted: fixture: reading %s: %w", path, err)
	}
	var topo Topology
	if err := yaml.Unmarshal(data, &topo); err != nil {
		return nil, fmt.Errorf("srouted: fixture: parsing %s: %w", path, err)
	}
	return FromTopology(&topo)
}

// FromTopology builds a Fixture directly from a parsed Topology, for
// tests that construct topologies in code rather than on disk.
func FromTopology(topo *Topology) (*Fixture, error) {
	f := &Fixture{
		links:    make(map[fabric.DeviceId][]fabric.Link),
		edge:     make(map[fabric.DeviceId]bool),
		v4:       make(map[fabric.DeviceId]fabric.Ipv4),
		v6:       make(map[fabric.DeviceId]fabric.Ipv6),
		hasV6:    make(map[fabric.DeviceId]bool),
		subnets:  make(map[fabric.DeviceId][]fabric.IpPrefix),
		mastered: make(map[fabric.DeviceId]bool),
	}

	for _, d := range topo.Devices {
		id := fabric.DeviceId(d.ID)
		f.devices = append(f.devices, fabric.Device{ID: id})
		f.edge[id] = d.Edge
		f.mastered[id] = true

		if d.RouterIPv4 != "" {
			addr, err := netip.ParseAddr(d.RouterIPv4)
			if err != nil {
				return nil, fmt.Errorf("srouted: fixture: device %s: bad router_ipv4 %q: %w", d.ID, d.RouterIPv4, err)
			}
			f.v4[id] = fabric.NewIpv4(addr)
		}
		if d.RouterIPv6 != "" {
			addr, err := netip.ParseAddr(d.RouterIPv6)
			if err != nil {
				return nil, fmt.Errorf("srouted: fixture: device %s: bad router_ipv6 %q: %w", d.ID, d.RouterIPv6, err)
			}
			f.v6[id] = fabric.NewIpv6(addr)
			f.hasV6[id] = true
		}
		for _, s := range d.Subnets {
			prefix, err := netip.ParsePrefix(s)
			if err != nil {
				return nil, fmt.Errorf("srouted: fixture: device %s: bad subnet %q: %w", d.ID, s, err)
			}
			f.subnets[id] = append(f.subnets[id], prefix)
		}
	}

	for _, l := range topo.Links {
		link := fabric.Link{
			Src: fabric.PortId{Device: fabric.DeviceId(l.A)},
			Dst: fabric.PortId{Device: fabric.DeviceId(l.B)},
		}
		f.links[link.Src.Device] = append(f.links[link.Src.Device], link)
		f.links[link.Dst.Device] = append(f.links[link.Dst.Device], link)
	}

	return f, nil
}

// SetMastered restricts which devices this Fixture reports as locally
// mastered, simulating a rendezvous split across controllers.
func (f *Fixture) SetMastered(ids ...fabric.DeviceId) {
	f.mastered = make(map[fabric.DeviceId]bool, len(ids))
	for _, id := range ids {
		f.mastered[id] = true
	}
}

// RemoveLink deletes one link (in either direction) from the fixture,
// simulating a link failure for damagedRoutes tests.
func (f *Fixture) RemoveLink(a, b fabric.DeviceId) {
	filter := func(id fabric.DeviceId) {
		var kept []fabric.Link
		for _, l := range f.links[id] {
			if l.Key().HasEndpoints(a, b) {
				continue
			}
			kept = append(kept, l)
		}
		f.links[id] = kept
	}
	filter(a)
	filter(b)
}

func (f *Fixture) Devices(ctx context.Context) ([]fabric.Device, error) {
	return f.devices, nil
}

func (f *Fixture) LinksOf(ctx context.Context, id fabric.DeviceId) ([]fabric.Link, error) {
	return f.links[id], nil
}

func (f *Fixture) IsLocalMaster(ctx context.Context, id fabric.DeviceId) (bool, error) {
	return f.mastered[id], nil
}

func (f *Fixture) IsEdgeDevice(ctx context.Context, id fabric.DeviceId) (bool, error) {
	if _, ok := f.edge[id]; !ok {
		return false, &fabric.ErrNotFound{Device: id, Field: "edge"}
	}
	return f.edge[id], nil
}

func (f *Fixture) RouterIPv4(ctx context.Context, id fabric.DeviceId) (fabric.Ipv4, error) {
	v, ok := f.v4[id]
	if !ok {
		return fabric.Ipv4{}, &fabric.ErrNotFound{Device: id, Field: "routerIPv4"}
	}
	return v, nil
}

func (f *Fixture) RouterIPv6(ctx context.Context, id fabric.DeviceId) (fabric.Ipv6, bool, error) {
	return f.v6[id], f.hasV6[id], nil
}

func (f *Fixture) SubnetsOf(ctx context.Context, id fabric.DeviceId) ([]fabric.IpPrefix, error) {
	return f.subnets[id], nil
}
