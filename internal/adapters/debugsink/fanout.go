package debugsink

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/samirrijal/routegate/internal/core/domain"
	"github.com/samirrijal/routegate/internal/core/ports"
	"github.com/samirrijal/routegate/internal/pkg/metrics"
)

const defaultSinkTimeout = 500 * time.Millisecond

type namedSink struct {
	name string
	rec  ports.PayloadRecorder
}

// Fanout forwards a payload to every configured sink, giving each its own
// short deadline so a slow sink cannot hold up routing.
type Fanout struct {
	sinks   []namedSink
	timeout time.Duration
}

// NewFanout creates an empty fan-out. With no sinks it behaves as a no-op.
func NewFanout(timeout time.Duration) *Fanout {
	if timeout <= 0 {
		timeout = defaultSinkTimeout
	}
	return &Fanout{timeout: timeout}
}

// Add registers a sink under name (used as the metrics label).
func (f *Fanout) Add(name string, rec ports.PayloadRecorder) *Fanout {
	f.sinks = append(f.sinks, namedSink{name: name, rec: rec})
	return f
}

// Len returns the number of registered sinks.
func (f *Fanout) Len() int { return len(f.sinks) }

// Record writes to all sinks and joins their errors.
func (f *Fanout) Record(ctx context.Context, payload *domain.RoutingPayload) error {
	var errs []error
	for _, s := range f.sinks {
		sinkCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), f.timeout)
		err := s.rec.Record(sinkCtx, payload)
		cancel()
		if err != nil {
			metrics.DebugSinkErrors.WithLabelValues(s.name).Inc()
			errs = append(errs, fmt.Errorf("%s: %w", s.name, err))
		}
	}
	return errors.Join(errs...)
}
