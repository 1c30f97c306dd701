// Package retryfilters implements the per-device port-filter
// stabilization loop (spec §4.5): after a device's ports first appear,
// its filters are re-applied on a linearly growing backoff until the
// result stops changing for five consecutive attempts.
package retryfilters

import (
	"context"
	"sync"
	"time"

	"github.com/srfabric/srouted/pkg/fabric"
	"github.com/srfabric/srouted/pkg/srlog"
)

// RetryIntervalMS is the base retry delay, matching the source's
// RETRY_INTERVAL_MS.
const RetryIntervalMS = 250

// RetryIntervalScale is the exponent applied to the attempt counter,
// matching the source's RETRY_INTERVAL_SCALE (1 == linear growth).
const RetryIntervalScale = 1

// ConstantAttempts is the number of consecutive equal results required to
// stop rescheduling, matching the source's MAX_CONSTANT_RETRY_ATTEMPTS.
const ConstantAttempts = 5

// Populate is the subset of RulePopulator this loop needs.
type Populate func(ctx context.Context, devId fabric.DeviceId) (*fabric.PortFilterInfo, error)

// Scheduler runs every device's retry loop on a single worker goroutine,
// matching spec §5's "scheduler pool has exactly one worker" requirement
// — RetryFilters runs serialize against each other but not against
// Orchestrator operations.
type Scheduler struct {
	populate Populate

	mu      sync.Mutex
	timers  map[fabric.DeviceId]*time.Timer
	workCh  chan func()
	closeCh chan struct{}
	once    sync.Once
}

// NewScheduler builds a scheduler that calls populate to poll a device's
// filter state.
func NewScheduler(populate Populate) *Scheduler {
	s := &Scheduler{
		populate: populate,
		timers:   make(map[fabric.DeviceId]*time.Timer),
		workCh:   make(chan func()),
		closeCh:  make(chan struct{}),
	}
	go s.worker()
	return s
}

// worker is the scheduler's single goroutine: every timer fire and every
// run body executes here, serially.
func (s *Scheduler) worker() {
	for {
		select {
		case fn := <-s.workCh:
			fn()
		case <-s.closeCh:
			return
		}
	}
}

// Close stops the scheduler; in-flight timers are not rescheduled after
// it returns.
func (s *Scheduler) Close() {
	s.once.Do(func() {
		close(s.closeCh)
	})
}

// Start begins (or restarts) the retry loop for devId with the given
// baseline PortFilterInfo — normally the zero value, per spec §4.3's
// "initial PortFilterInfo(0,0,0) baseline".
func (s *Scheduler) Start(ctx context.Context, devId fabric.DeviceId, baseline fabric.PortFilterInfo) {
	r := &runnable{
		devId:   devId,
		prevRun: baseline,
	}
	s.schedule(ctx, r, 0)
}

// runnable is the per-device retry state (spec §4.5). repeatCount tracks
// how many consecutive attempts (including the one that first produced
// the current value) have returned a result equal to prevRun; reaching
// ConstantAttempts is the terminal condition.
type runnable struct {
	devId       fabric.DeviceId
	counter     int
	repeatCount int
	prevRun     fabric.PortFilterInfo
}

func (s *Scheduler) schedule(ctx context.Context, r *runnable, delay time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if old, ok := s.timers[r.devId]; ok {
		old.Stop()
	}
	s.timers[r.devId] = time.AfterFunc(delay, func() {
		select {
		case s.workCh <- func() { s.run(ctx, r) }:
		case <-s.closeCh:
		}
	})
}

// run executes one attempt and reschedules per spec §4.5. A result equal
// to the previous one extends the current repeat run; once that run
// reaches ConstantAttempts consecutive equal results, the loop stops
// rescheduling (spec §8: "terminates in at most 5 additional runs after
// populateRouterMacVlanFilters first returns a value equal to the
// previous"; scenario 6 pins the exact attempt count).
func (s *Scheduler) run(ctx context.Context, r *runnable) {
	r.counter++
	log := srlog.WithDevice(string(r.devId))

	thisRun, err := s.populate(ctx, r.devId)
	if err != nil {
		log.WithError(err).Warn("retryfilters: populateRouterMacVlanFilters failed")
	}

	reschedule := true
	switch {
	case thisRun == nil:
		r.repeatCount = 0
	case thisRun.Equal(r.prevRun):
		r.repeatCount++
		reschedule = r.repeatCount < ConstantAttempts
	default:
		r.repeatCount = 1
	}

	if thisRun != nil {
		r.prevRun = *thisRun
	}

	if !reschedule {
		log.WithField("attempts", r.counter).Info("retryfilters: port filters stabilized")
		s.mu.Lock()
		delete(s.timers, r.devId)
		s.mu.Unlock()
		return
	}

	delay := nextDelay(r.counter)
	log.WithFields(map[string]interface{}{"attempt": r.counter, "delay_ms": delay.Milliseconds()}).Debug("retryfilters: rescheduling")
	s.schedule(ctx, r, delay)
}

// nextDelay computes RETRY_INTERVAL_MS * counter^RETRY_INTERVAL_SCALE.
func nextDelay(counter int) time.Duration {
	scaled := 1
	for i := 0; i < RetryIntervalScale; i++ {
		scaled *= counter
	}
	if scaled < 1 {
		scaled = 1
	}
	return time.Duration(RetryIntervalMS*scaled) * time.Millisecond
}
