package orchestrator

import (
	"context"
	"errors"
	"net/netip"
	"testing"

	"github.com/srfabric/srouted/pkg/fabric"
	"github.com/srfabric/srouted/pkg/fabric/fixture"
)

// fakeRP is a RulePopulator double that records every install call and
// can be made to fail for one target device.
type fakeRP struct {
	failOn  fabric.DeviceId
	counter int
	calls   int

	puntErr      error
	macVlanSet   bool // when true, PopulateRouterMacVlanFilters returns macVlanFirst instead of the zero-value default
	macVlanFirst *fabric.PortFilterInfo
}

func (r *fakeRP) PopulateIPRuleForSubnet(ctx context.Context, target fabric.DeviceId, subnets []fabric.IpPrefix, dest fabric.DeviceId, nextHops []fabric.DeviceId) (bool, error) {
	r.calls++
	return target != r.failOn, nil
}
func (r *fakeRP) PopulateIPRuleForRouter(ctx context.Context, target fabric.DeviceId, prefix fabric.IpPrefix, dest fabric.DeviceId, nextHops []fabric.DeviceId) (bool, error) {
	r.calls++
	return target != r.failOn, nil
}
func (r *fakeRP) PopulateMPLSRule(ctx context.Context, target fabric.DeviceId, dest fabric.DeviceId, nextHops []fabric.DeviceId, routerIP fabric.IpPrefix) (bool, error) {
	r.calls++
	return target != r.failOn, nil
}
func (r *fakeRP) RevokeIPRuleForSubnet(ctx context.Context, subnets []fabric.IpPrefix) (bool, error) {
	return true, nil
}
func (r *fakeRP) PopulateRouterIPPunts(ctx context.Context, id fabric.DeviceId) error { return r.puntErr }
func (r *fakeRP) PopulateArpNdpPunts(ctx context.Context, id fabric.DeviceId) error   { return nil }
func (r *fakeRP) PopulateRouterMacVlanFilters(ctx context.Context, id fabric.DeviceId) (*fabric.PortFilterInfo, error) {
	if r.macVlanSet {
		return r.macVlanFirst, nil
	}
	return &fabric.PortFilterInfo{}, nil
}
func (r *fakeRP) PopulateSinglePortFilters(ctx context.Context, id fabric.DeviceId, port fabric.PortId) error {
	return nil
}
func (r *fakeRP) RevokeSinglePortFilters(ctx context.Context, id fabric.DeviceId, port fabric.PortId) error {
	return nil
}
func (r *fakeRP) ResetCounter() { r.counter = 0 }
func (r *fakeRP) GetCounter() int { return r.counter }

func diamondTopology() *fixture.Topology {
	return &fixture.Topology{
		Devices: []fixture.DeviceDef{
			{ID: "root", Edge: false, RouterIPv4: "10.0.0.1"},
			{ID: "a", Edge: false, RouterIPv4: "10.0.0.2"},
			{ID: "b", Edge: false, RouterIPv4: "10.0.0.3"},
			{ID: "leaf", Edge: true, RouterIPv4: "10.0.0.4", Subnets: []string{"192.168.1.0/24"}},
		},
		Links: []fixture.LinkDef{
			{A: "root", B: "a"},
			{A: "root", B: "b"},
			{A: "a", B: "leaf"},
			{A: "b", B: "leaf"},
		},
	}
}

func TestPopulateAllRoutingRules_SucceedsAndSnapshotsCurrent(t *testing.T) {
	f, err := fixture.FromTopology(diamondTopology())
	if err != nil {
		t.Fatalf("FromTopology: %v", err)
	}
	rp := &fakeRP{}
	o := New(f, f, rp)
	defer o.Close()

	if !o.PopulateAllRoutingRules(context.Background()) {
		t.Fatal("expected PopulateAllRoutingRules to succeed")
	}
	if o.Status() != fabric.StatusSucceeded {
		t.Errorf("status = %s, want SUCCEEDED", o.Status())
	}
	snap := o.CurrentSnapshot()
	if _, ok := snap["root"]; !ok {
		t.Error("expected current[root] to be populated")
	}
}

func TestPopulateAllRoutingRules_AbortsOnInstallFailure(t *testing.T) {
	f, err := fixture.FromTopology(diamondTopology())
	if err != nil {
		t.Fatalf("FromTopology: %v", err)
	}
	rp := &fakeRP{failOn: "leaf"}
	o := New(f, f, rp)
	defer o.Close()

	if o.PopulateAllRoutingRules(context.Background()) {
		t.Fatal("expected PopulateAllRoutingRules to fail")
	}
	if o.Status() != fabric.StatusAborted {
		t.Errorf("status = %s, want ABORTED", o.Status())
	}
}

func TestStartPopulationProcess_SkipsWhenAlreadyStarted(t *testing.T) {
	f, err := fixture.FromTopology(diamondTopology())
	if err != nil {
		t.Fatalf("FromTopology: %v", err)
	}
	o := New(f, f, &fakeRP{})
	defer o.Close()

	o.status = fabric.StatusStarted
	if o.StartPopulationProcess(context.Background()) {
		t.Fatal("expected StartPopulationProcess to decline while already STARTED")
	}
}

func TestResumePopulationProcess_RequiresAborted(t *testing.T) {
	f, err := fixture.FromTopology(diamondTopology())
	if err != nil {
		t.Fatalf("FromTopology: %v", err)
	}
	o := New(f, f, &fakeRP{})
	defer o.Close()

	if o.ResumePopulationProcess(context.Background()) {
		t.Fatal("expected ResumePopulationProcess to decline from IDLE")
	}

	o.status = fabric.StatusAborted
	if !o.ResumePopulationProcess(context.Background()) {
		t.Fatal("expected ResumePopulationProcess to succeed from ABORTED")
	}
}

func TestPopulateRoutingRulesForLinkStatusChange_NoopWhenNothingChanged(t *testing.T) {
	f, err := fixture.FromTopology(diamondTopology())
	if err != nil {
		t.Fatalf("FromTopology: %v", err)
	}
	o := New(f, f, &fakeRP{})
	defer o.Close()

	if !o.PopulateAllRoutingRules(context.Background()) {
		t.Fatal("initial populate should succeed")
	}
	if !o.PopulateRoutingRulesForLinkStatusChange(context.Background(), nil) {
		t.Fatal("expected a no-op topology refresh to report success")
	}
	if o.Status() != fabric.StatusSucceeded {
		t.Errorf("status = %s, want SUCCEEDED", o.Status())
	}
}

func TestPopulateRoutingRulesForLinkStatusChange_ReactsToFailedLink(t *testing.T) {
	f, err := fixture.FromTopology(diamondTopology())
	if err != nil {
		t.Fatalf("FromTopology: %v", err)
	}
	o := New(f, f, &fakeRP{})
	defer o.Close()

	if !o.PopulateAllRoutingRules(context.Background()) {
		t.Fatal("initial populate should succeed")
	}

	failed := fabric.LinkKey{
		Src: fabric.PortId{Device: "a", Port: ""},
		Dst: fabric.PortId{Device: "leaf", Port: ""},
	}
	if !o.PopulateRoutingRulesForLinkStatusChange(context.Background(), &failed) {
		t.Fatal("expected repopulate after link failure to succeed")
	}
	if o.Status() != fabric.StatusSucceeded {
		t.Errorf("status = %s, want SUCCEEDED", o.Status())
	}
}

func TestPopulateSubnet_RequiresExistingCurrentGraph(t *testing.T) {
	f, err := fixture.FromTopology(diamondTopology())
	if err != nil {
		t.Fatalf("FromTopology: %v", err)
	}
	o := New(f, f, &fakeRP{})
	defer o.Close()

	if o.PopulateSubnet(context.Background(), ControlPoint{Device: "leaf"}, nil) {
		t.Fatal("expected PopulateSubnet to fail with no current graph yet")
	}

	if !o.PopulateAllRoutingRules(context.Background()) {
		t.Fatal("initial populate should succeed")
	}
	if !o.PopulateSubnet(context.Background(), ControlPoint{Device: "leaf"}, []fabric.IpPrefix{netip.MustParsePrefix("10.10.0.0/24")}) {
		t.Fatal("expected PopulateSubnet to succeed once current graph exists")
	}
}

func TestPurgeEcmpGraph_DropsAndRepopulates(t *testing.T) {
	f, err := fixture.FromTopology(diamondTopology())
	if err != nil {
		t.Fatalf("FromTopology: %v", err)
	}
	o := New(f, f, &fakeRP{})
	defer o.Close()

	if !o.PopulateAllRoutingRules(context.Background()) {
		t.Fatal("initial populate should succeed")
	}
	o.PurgeEcmpGraph(context.Background(), "a")

	snap := o.CurrentSnapshot()
	if _, ok := snap["a"]; !ok {
		t.Error("expected current[a] to be rebuilt by the triggered link-change cycle")
	}
}

func TestPopulatePortAddressing_StartsRetryLoopOnNilFirstResult(t *testing.T) {
	f, err := fixture.FromTopology(diamondTopology())
	if err != nil {
		t.Fatalf("FromTopology: %v", err)
	}
	rp := &fakeRP{macVlanSet: true, macVlanFirst: nil}
	o := New(f, f, rp)
	defer o.Close()

	if err := o.PopulatePortAddressing(context.Background(), "leaf"); err != nil {
		t.Fatalf("PopulatePortAddressing: %v", err)
	}
}

func TestPopulatePortAddressing_SkipsRetryLoopWhenFirstResultNonNil(t *testing.T) {
	f, err := fixture.FromTopology(diamondTopology())
	if err != nil {
		t.Fatalf("FromTopology: %v", err)
	}
	rp := &fakeRP{macVlanSet: true, macVlanFirst: &fabric.PortFilterInfo{DisabledPorts: 1}}
	o := New(f, f, rp)
	defer o.Close()

	if err := o.PopulatePortAddressing(context.Background(), "leaf"); err != nil {
		t.Fatalf("PopulatePortAddressing: %v", err)
	}
}

func TestPopulatePortAddressing_PropagatesPuntFailure(t *testing.T) {
	f, err := fixture.FromTopology(diamondTopology())
	if err != nil {
		t.Fatalf("FromTopology: %v", err)
	}
	puntErr := errors.New("punt install failed")
	rp := &fakeRP{puntErr: puntErr}
	o := New(f, f, rp)
	defer o.Close()

	if err := o.PopulatePortAddressing(context.Background(), "leaf"); !errors.Is(err, puntErr) {
		t.Fatalf("PopulatePortAddressing error = %v, want %v", err, puntErr)
	}
}
