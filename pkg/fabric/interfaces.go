package fabric

import "context"

// FabricView enumerates devices, links, and mastership for the live SDN
// fabric (spec §6). It is implemented by the surrounding controller (an
// inventory service backed by a topology/link discovery subsystem); the
// core never mutates it.
type FabricView interface {
	// Devices lists every switch currently visible in the fabric.
	Devices(ctx context.Context) ([]Device, error)

	// LinksOf lists every link incident on deviceId, in either direction.
	LinksOf(ctx context.Context, deviceId DeviceId) ([]Link, error)

	// IsLocalMaster reports whether this controller instance is permitted
	// to program deviceId.
	IsLocalMaster(ctx context.Context, deviceId DeviceId) (bool, error)
}

// DeviceConfig is the persistent per-device configuration store (spec §6).
// Lookups for a device with no configuration on record return *ErrNotFound.
type DeviceConfig interface {
	// IsEdgeDevice reports whether id is an edge device (terminates
	// subscriber subnets) as opposed to a transit device.
	IsEdgeDevice(ctx context.Context, id DeviceId) (bool, error)

	// RouterIPv4 returns the device's router IPv4 address. Required: every
	// configured device has one.
	RouterIPv4(ctx context.Context, id DeviceId) (Ipv4, error)

	// RouterIPv6 returns the device's router IPv6 address, if configured.
	// ok is false when the device has no IPv6 router address; that is not
	// an error.
	RouterIPv6(ctx context.Context, id DeviceId) (addr Ipv6, ok bool, err error)

	// SubnetsOf returns the subscriber subnets configured on id.
	SubnetsOf(ctx context.Context, id DeviceId) ([]IpPrefix, error)
}

// RulePopulator installs and revokes forwarding rules on hardware (spec
// §6). Every install/punt/filter call may block on a hardware RPC; none
// may be called while holding the Orchestrator's status lock for longer
// than the RPC itself takes — callers are expected to release the lock
// around long-running calls only when the design explicitly allows it
// (it does not here: RulePopulator must tolerate being invoked serially
// under the lock, per spec §5).
type RulePopulator interface {
	// PopulateIPRuleForSubnet installs, at target, an IP-subnet forwarding
	// rule for subnets toward dest via nextHops.
	PopulateIPRuleForSubnet(ctx context.Context, target DeviceId, subnets []IpPrefix, dest DeviceId, nextHops []DeviceId) (bool, error)

	// PopulateIPRuleForRouter installs, at target, a host-route rule for
	// prefix (a router IP, as a /32 or /128) toward dest via nextHops.
	PopulateIPRuleForRouter(ctx context.Context, target DeviceId, prefix IpPrefix, dest DeviceId, nextHops []DeviceId) (bool, error)

	// PopulateMPLSRule installs, at target, an MPLS-SR forwarding entry
	// toward dest via nextHops, labeled with dest's segment-routing node
	// segment (routerIP).
	PopulateMPLSRule(ctx context.Context, target DeviceId, dest DeviceId, nextHops []DeviceId, routerIP IpPrefix) (bool, error)

	// RevokeIPRuleForSubnet removes the IP-subnet rule for subnets from
	// every device that carries it.
	RevokeIPRuleForSubnet(ctx context.Context, subnets []IpPrefix) (bool, error)

	// PopulateRouterIPPunts installs punt-to-controller rules for id's own
	// router IPs.
	PopulateRouterIPPunts(ctx context.Context, id DeviceId) error

	// PopulateArpNdpPunts installs ARP/NDP punt-to-controller rules on id.
	PopulateArpNdpPunts(ctx context.Context, id DeviceId) error

	// PopulateRouterMacVlanFilters (re-)installs router MAC/VLAN filters
	// on id and returns the resulting port-filter counts, or nil if the
	// device did not yet respond (e.g. ports not enumerated yet).
	PopulateRouterMacVlanFilters(ctx context.Context, id DeviceId) (*PortFilterInfo, error)

	// PopulateSinglePortFilters installs the filter for a single port.
	PopulateSinglePortFilters(ctx context.Context, id DeviceId, port PortId) error

	// RevokeSinglePortFilters removes the filter for a single port.
	RevokeSinglePortFilters(ctx context.Context, id DeviceId, port PortId) error

	// ResetCounter zeroes the advisory rule-install counter.
	ResetCounter()

	// GetCounter returns the advisory rule-install counter.
	GetCounter() int
}
