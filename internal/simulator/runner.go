package simulator

import (
	"context"
	"encoding/json"
	"math/rand"
	"strings"
	"time"

	coremqtt "github.com/kilianp07/sanifleet/core/mqtt"
	"github.com/kilianp07/sanifleet/infra/logger"
)

// Runner publishes the fleet telemetry at a fixed interval.
type Runner struct {
	Units     []*Unit
	Publisher coremqtt.Publisher
	// Prefix is the topic prefix; units publish on <prefix>/<id>.
	Prefix string
	// Interval is the wall-clock publish period.
	Interval time.Duration
	// Speedup multiplies simulated time per tick. Zero means 1.
	Speedup float64
	Rng     *rand.Rand
	Now     func() time.Time

	log logger.Logger
}

// Tick advances every unit by dt and publishes the online ones. It returns
// how many snapshots were published.
func (r *Runner) Tick(ctx context.Context, dt time.Duration) int {
	if r.log == nil {
		r.log = logger.New("simulator")
	}
	now := time.Now
	if r.Now != nil {
		now = r.Now
	}
	prefix := strings.TrimSuffix(r.Prefix, "/")
	sent := 0
	for _, u := range r.Units {
		if !u.Step(now(), dt, r.Rng) {
			r.log.Debugf("%s offline this tick", u.ID)
			continue
		}
		payload, err := json.Marshal(u.Snapshot())
		if err != nil {
			r.log.Errorf("%s: encode: %v", u.ID, err)
			continue
		}
		if err := r.Publisher.Publish(ctx, prefix+"/"+u.ID, payload); err != nil {
			r.log.Warnf("%s: publish: %v", u.ID, err)
			continue
		}
		sent++
	}
	return sent
}

// Run ticks until ctx is canceled.
func (r *Runner) Run(ctx context.Context) error {
	if r.Interval <= 0 {
		r.Interval = 10 * time.Second
	}
	speed := r.Speedup
	if speed <= 0 {
		speed = 1
	}
	dt := time.Duration(float64(r.Interval) * speed)
	t := time.NewTicker(r.Interval)
	defer t.Stop()
	r.Tick(ctx, 0)
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-t.C:
			n := r.Tick(ctx, dt)
			if r.log != nil {
				r.log.Debugf("published %d/%d snapshots", n, len(r.Units))
			}
		}
	}
}
