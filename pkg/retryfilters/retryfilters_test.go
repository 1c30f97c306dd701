package retryfilters

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/srfabric/srouted/pkg/fabric"
)

// scripted replays a fixed sequence of PortFilterInfo results (the last
// one repeating once exhausted) and signals done when the scheduler stops
// rescheduling for the device.
type scripted struct {
	mu      sync.Mutex
	results []*fabric.PortFilterInfo
	calls   int
	done    chan struct{}
}

func (s *scripted) populate(ctx context.Context, devId fabric.DeviceId) (*fabric.PortFilterInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	idx := s.calls
	if idx >= len(s.results) {
		idx = len(s.results) - 1
	}
	s.calls++
	return s.results[idx], nil
}

func waitOrTimeout(t *testing.T, ch chan struct{}, d time.Duration) {
	t.Helper()
	select {
	case <-ch:
	case <-time.After(d):
		t.Fatal("timed out waiting for retry loop to stabilize")
	}
}

// TestScheduler_StabilizesAfterFiveEqualResults reproduces the spec's
// concrete scenario: results (1,0,2),(1,0,3),(1,0,3),(1,0,3),(1,0,3),(1,0,3)
// should reschedule through attempt 5 and stop after attempt 6.
func TestScheduler_StabilizesAfterFiveEqualResults(t *testing.T) {
	s := &scripted{results: []*fabric.PortFilterInfo{
		{DisabledPorts: 1, ErrorPorts: 0, FilteredPorts: 2},
		{DisabledPorts: 1, ErrorPorts: 0, FilteredPorts: 3},
		{DisabledPorts: 1, ErrorPorts: 0, FilteredPorts: 3},
		{DisabledPorts: 1, ErrorPorts: 0, FilteredPorts: 3},
		{DisabledPorts: 1, ErrorPorts: 0, FilteredPorts: 3},
		{DisabledPorts: 1, ErrorPorts: 0, FilteredPorts: 3},
	}}

	sched := NewScheduler(s.populate)
	defer sched.Close()

	stableCh := make(chan struct{})

	// Scheduler only logs on stabilization, so detect it by polling the
	// call count settling at len(s.results).
	go func() {
		for {
			s.mu.Lock()
			n := s.calls
			s.mu.Unlock()
			if n >= len(s.results) {
				time.Sleep(50 * time.Millisecond)
				close(stableCh)
				return
			}
			time.Sleep(5 * time.Millisecond)
		}
	}()

	sched.Start(context.Background(), "sw1", fabric.PortFilterInfo{})
	waitOrTimeout(t, stableCh, 10*time.Second)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.calls != len(s.results) {
		t.Errorf("calls = %d, want exactly %d (no call after stabilization)", s.calls, len(s.results))
	}
}

func TestNextDelay_LinearGrowth(t *testing.T) {
	cases := []struct {
		counter int
		want    time.Duration
	}{
		{1, 250 * time.Millisecond},
		{2, 500 * time.Millisecond},
		{5, 1250 * time.Millisecond},
	}
	for _, c := range cases {
		got := nextDelay(c.counter)
		if got != c.want {
			t.Errorf("nextDelay(%d) = %v, want %v", c.counter, got, c.want)
		}
	}
}

// TestScheduler_NilResultDoesNotCountTowardStabilization reproduces a
// device whose ports haven't enumerated yet (nil result) followed by a
// run of five equal non-nil results; only the five equal results should
// count toward stabilization.
func TestScheduler_NilResultDoesNotCountTowardStabilization(t *testing.T) {
	steady := fabric.PortFilterInfo{DisabledPorts: 2, ErrorPorts: 0, FilteredPorts: 1}
	s := &scripted{results: []*fabric.PortFilterInfo{
		nil,
		&steady, &steady, &steady, &steady, &steady,
	}}

	sched := NewScheduler(s.populate)
	defer sched.Close()

	stableCh := make(chan struct{})
	go func() {
		for {
			s.mu.Lock()
			n := s.calls
			s.mu.Unlock()
			if n >= len(s.results) {
				time.Sleep(50 * time.Millisecond)
				close(stableCh)
				return
			}
			time.Sleep(5 * time.Millisecond)
		}
	}()

	sched.Start(context.Background(), "sw2", fabric.PortFilterInfo{})
	waitOrTimeout(t, stableCh, 10*time.Second)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.calls != len(s.results) {
		t.Errorf("calls = %d, want exactly %d", s.calls, len(s.results))
	}
}
