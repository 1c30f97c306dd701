// Package fabric holds the data model and external-collaborator contracts
// shared by every component of the segment-routing default routing
// handler: device/link identifiers, the Route and PortFilterInfo value
// types, the Orchestrator's Status enum, and the FabricView/DeviceConfig/
// RulePopulator interfaces consumed from the surrounding controller.
package fabric

import "net/netip"

// DeviceId identifies a switch. Equality and hashing are plain string
// comparison; the value itself is opaque and supplied by FabricView.
type DeviceId string

// PortId identifies a physical port on a device.
type PortId struct {
	Device DeviceId
	Port   string
}

// LinkKey identifies a bidirectional link between two ports. Two LinkKeys
// referring to the same physical link but opposite endpoint order are
// considered the same link by HasEndpoints.
type LinkKey struct {
	Src PortId
	Dst PortId
}

// HasEndpoints reports whether the link connects a and b, regardless of
// which one is Src and which is Dst.
func (l LinkKey) HasEndpoints(a, b DeviceId) bool {
	return (l.Src.Device == a && l.Dst.Device == b) ||
		(l.Src.Device == b && l.Dst.Device == a)
}

// Device is a fabric switch as enumerated by FabricView.
type Device struct {
	ID DeviceId
}

// Link is a bidirectional edge between two device ports, as enumerated by
// FabricView.
type Link struct {
	Src PortId
	Dst PortId
}

// Key returns the LinkKey for this link.
func (l Link) Key() LinkKey {
	return LinkKey{Src: l.Src, Dst: l.Dst}
}

// Other returns the device at the far end of the link from dev, and
// whether dev was actually an endpoint of the link.
func (l Link) Other(dev DeviceId) (DeviceId, bool) {
	switch dev {
	case l.Src.Device:
		return l.Dst.Device, true
	case l.Dst.Device:
		return l.Src.Device, true
	default:
		return "", false
	}
}

// IpPrefix is a CIDR subnet, e.g. a configured customer subnet or a /32
// router-IP prefix.
type IpPrefix = netip.Prefix

// Ipv4 is a device's router IPv4 address.
type Ipv4 struct{ addr netip.Addr }

// NewIpv4 wraps an IPv4 netip.Addr. It panics if addr is not a valid IPv4
// address — callers are expected to validate at the DeviceConfig boundary.
func NewIpv4(addr netip.Addr) Ipv4 {
	if !addr.Is4() && !addr.Is4In6() {
		panic("fabric: NewIpv4 requires an IPv4 address")
	}
	return Ipv4{addr: addr}
}

// Addr returns the underlying address.
func (v Ipv4) Addr() netip.Addr { return v.addr }

// AsPrefix returns the /32 host prefix for this router IP.
func (v Ipv4) AsPrefix() IpPrefix {
	return netip.PrefixFrom(v.addr, 32)
}

func (v Ipv4) String() string { return v.addr.String() }

// Ipv6 is a device's router IPv6 address. Unlike Ipv4, it is optional per
// device — callers track presence separately (see DeviceConfig.RouterIPv6).
type Ipv6 struct{ addr netip.Addr }

// NewIpv6 wraps an IPv6 netip.Addr.
func NewIpv6(addr netip.Addr) Ipv6 {
	if !addr.Is6() {
		panic("fabric: NewIpv6 requires an IPv6 address")
	}
	return Ipv6{addr: addr}
}

// Addr returns the underlying address.
func (v Ipv6) Addr() netip.Addr { return v.addr }

// AsPrefix returns the /128 host prefix for this router IP.
func (v Ipv6) AsPrefix() IpPrefix {
	return netip.PrefixFrom(v.addr, 128)
}

func (v Ipv6) String() string { return v.addr.String() }

// Route is a directed re-install scope: "program at Target the rules
// that forward traffic toward Root". The degenerate form — Target equal
// to the zero value — means "reprogram all targets toward Root"; the
// Orchestrator expands it during repopulate.
type Route struct {
	Target DeviceId
	Root   DeviceId
}

// Degenerate builds the single-element route "(root,)".
func Degenerate(root DeviceId) Route {
	return Route{Root: root}
}

// IsDegenerate reports whether this route is the "(root,)" reprogram-all form.
func (r Route) IsDegenerate() bool {
	return r.Target == ""
}

// PortFilterInfo is the stabilization signal RetryFilters polls for:
// counts of disabled, errored, and filtered ports on one device.
type PortFilterInfo struct {
	DisabledPorts int
	ErrorPorts    int
	FilteredPorts int
}

// Equal reports field-wise equality, the only comparison RetryFilters needs.
func (p PortFilterInfo) Equal(o PortFilterInfo) bool {
	return p.DisabledPorts == o.DisabledPorts &&
		p.ErrorPorts == o.ErrorPorts &&
		p.FilteredPorts == o.FilteredPorts
}

// Status is the Orchestrator's population lifecycle state.
type Status string

const (
	StatusIdle      Status = "IDLE"
	StatusStarted   Status = "STARTED"
	StatusSucceeded Status = "SUCCEEDED"
	StatusAborted   Status = "ABORTED"
)
