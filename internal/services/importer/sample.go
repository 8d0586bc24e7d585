package importer

import "sales_import/internal/models"

type SampleRecord struct {
	Sale    models.Sale
	Outcome string
	Reason  string
}

// ring keeps the last cap records; older ones are overwritten.
type ring struct {
	buf  []SampleRecord
	next int
	full bool
}

func newRing(capacity int) *ring {
	if capacity < 0 {
		capacity = 0
	}
	return &ring{buf: make([]SampleRecord, 0, capacity)}
}

func (r *ring) add(rec SampleRecord) {
	if cap(r.buf) == 0 {
		return
	}
	if !r.full {
		r.buf = append(r.buf, rec)
		if len(r.buf) == cap(r.buf) {
			r.full = true
		}
		return
	}
	r.buf[r.next] = rec
	r.next = (r.next + 1) % len(r.buf)
}

// items returns the retained records oldest first.
func (r *ring) items() []SampleRecord {
	out := make([]SampleRecord, 0, len(r.buf))
	if !r.full {
		return append(out, r.buf...)
	}
	out = append(out, r.buf[r.next:]...)
	return append(out, r.buf[:r.next]...)
}
