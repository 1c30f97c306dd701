package fabric

import (
	"net/netip"
	"testing"
)

func TestLinkKeyHasEndpoints_OrderIndependent(t *testing.T) {
	l := LinkKey{
		Src: PortId{Device: "sw1", Port: "Ethernet0"},
		Dst: PortId{Device: "sw2", Port: "Ethernet4"},
	}
	if !l.HasEndpoints("sw1", "sw2") {
		t.Error("expected HasEndpoints(sw1, sw2) true")
	}
	if !l.HasEndpoints("sw2", "sw1") {
		t.Error("expected HasEndpoints(sw2, sw1) true regardless of order")
	}
	if l.HasEndpoints("sw1", "sw3") {
		t.Error("expected HasEndpoints(sw1, sw3) false")
	}
}

func TestLinkOther(t *testing.T) {
	l := Link{
		Src: PortId{Device: "sw1", Port: "Ethernet0"},
		Dst: PortId{Device: "sw2", Port: "Ethernet4"},
	}
	if got, ok := l.Other("sw1"); !ok || got != "sw2" {
		t.Errorf("Other(sw1) = (%v, %v), want (sw2, true)", got, ok)
	}
	if got, ok := l.Other("sw2"); !ok || got != "sw1" {
		t.Errorf("Other(sw2) = (%v, %v), want (sw1, true)", got, ok)
	}
	if _, ok := l.Other("sw3"); ok {
		t.Error("Other(sw3) should report not-an-endpoint")
	}
}

func TestIpv4_AsPrefixIsHostRoute(t *testing.T) {
	v4 := NewIpv4(netip.MustParseAddr("10.0.0.1"))
	prefix := v4.AsPrefix()
	if prefix.Bits() != 32 {
		t.Errorf("AsPrefix().Bits() = %d, want 32", prefix.Bits())
	}
}

func TestIpv6_AsPrefixIsHostRoute(t *testing.T) {
	v6 := NewIpv6(netip.MustParseAddr("2001:db8::1"))
	prefix := v6.AsPrefix()
	if prefix.Bits() != 128 {
		t.Errorf("AsPrefix().Bits() = %d, want 128", prefix.Bits())
	}
}

func TestRoute_DegenerateForm(t *testing.T) {
	r := Degenerate("root1")
	if !r.IsDegenerate() {
		t.Error("Degenerate(root) should report IsDegenerate true")
	}
	if r.Root != "root1" {
		t.Errorf("Root = %q, want root1", r.Root)
	}

	full := Route{Target: "t", Root: "root1"}
	if full.IsDegenerate() {
		t.Error("a route with a non-empty Target must not be degenerate")
	}
}

func TestPortFilterInfoEqual(t *testing.T) {
	a := PortFilterInfo{DisabledPorts: 1, ErrorPorts: 2, FilteredPorts: 3}
	b := PortFilterInfo{DisabledPorts: 1, ErrorPorts: 2, FilteredPorts: 3}
	c := PortFilterInfo{DisabledPorts: 1, ErrorPorts: 2, FilteredPorts: 4}
	if !a.Equal(b) {
		t.Error("identical PortFilterInfo values should be equal")
	}
	if a.Equal(c) {
		t.Error("differing FilteredPorts should not be equal")
	}
}
