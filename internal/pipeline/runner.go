package pipeline

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/ayusman/gesturemix/internal/detector"
	"github.com/ayusman/gesturemix/internal/monitoring"
)

// Stats counts runner activity.
type Stats struct {
	Submitted uint64        `json:"submitted"`
	Processed uint64        `json:"processed"`
	Dropped   uint64        `json:"dropped"`
	Latency   time.Duration `json:"last_latency"`
}

// Runner serializes frames into a Pipeline through a queue of depth one.
// A frame submitted while another is waiting replaces it.
type Runner struct {
	pipeline  *Pipeline
	slot      chan detector.Frame
	submitted atomic.Uint64
	processed atomic.Uint64
	dropped   atomic.Uint64
	latency   atomic.Int64

	// LogInterval is the minimum gap between dropped-frame log lines.
	LogInterval time.Duration
}

// NewRunner creates a runner for p.
func NewRunner(p *Pipeline) *Runner {
	return &Runner{
		pipeline:    p,
		slot:        make(chan detector.Frame, 1),
		LogInterval: 10 * time.Second,
	}
}

// Submit queues frame without blocking. It reports false when a waiting
// frame had to be discarded to make room.
func (r *Runner) Submit(frame detector.Frame) bool {
	r.submitted.Add(1)
	for {
		select {
		case r.slot <- frame:
			return true
		default:
		}
		select {
		case <-r.slot:
			r.dropped.Add(1)
			select {
			case r.slot <- frame:
			default:
				// Another producer filled the slot; drop ours instead.
				r.dropped.Add(1)
			}
			return false
		default:
		}
	}
}

// Run processes queued frames until ctx is done, handing each output to
// sink.
func (r *Runner) Run(ctx context.Context, sink Sink) error {
	var (
		lastLog     time.Time
		lastDropped uint64
	)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case frame := <-r.slot:
			out := r.pipeline.ProcessFrame(frame)
			r.processed.Add(1)
			r.latency.Store(int64(out.Latency))
			if sink != nil {
				sink.Offer(out)
			}

			if d := r.dropped.Load(); d != lastDropped && time.Since(lastLog) >= r.LogInterval {
				monitoring.Logf("pipeline: dropped %d stale frames (%d total)", d-lastDropped, d)
				lastDropped = d
				lastLog = time.Now()
			}
		}
	}
}

// Stats returns a snapshot of the counters.
func (r *Runner) Stats() Stats {
	return Stats{
		Submitted: r.submitted.Load(),
		Processed: r.processed.Load(),
		Dropped:   r.dropped.Load(),
		Latency:   time.Duration(r.latency.Load()),
	}
}
