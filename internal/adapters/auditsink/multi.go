package auditsink

import (
	"context"
	"errors"
	"fmt"

	"sales_import/internal/metrics"
	"sales_import/internal/models"
	"sales_import/internal/ports"
)

type Named struct {
	Name string
	Sink ports.AuditSink
}

// Multi appends to every sink, in order, and reports all failures together.
type Multi struct {
	sinks []Named
}

func NewMulti(sinks ...Named) *Multi {
	return &Multi{sinks: sinks}
}

func (m *Multi) Append(ctx context.Context, e models.DuplicateAuditEntry) error {
	var errs []error
	for _, s := range m.sinks {
		if err := s.Sink.Append(ctx, e); err != nil {
			metrics.AuditAppendFailures.WithLabelValues(s.Name).Inc()
			errs = append(errs, fmt.Errorf("%s: %w", s.Name, err))
		}
	}
	return errors.Join(errs...)
}

func (m *Multi) Len() int { return len(m.sinks) }
