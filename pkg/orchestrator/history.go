package orchestrator

import (
	"sync"
	"time"
)

// historyRing retains the most recent N operation records, oldest evicted
// first. All mutation goes through the orchestrator; callers only ever see
// copies.
type historyRing struct {
	mu      sync.Mutex
	records []*OperationRecord
	next    int
	filled  bool

	perService map[string]*ServiceMetrics
}

func newHistoryRing(capacity int) *historyRing {
	return &historyRing{
		records:    make([]*OperationRecord, capacity),
		perService: make(map[string]*ServiceMetrics),
	}
}

// add stores a finalized record, evicting the oldest when full, and folds
// it into the per-service aggregates.
func (h *historyRing) add(record *OperationRecord) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.records[h.next] = record
	h.next++
	if h.next == len(h.records) {
		h.next = 0
		h.filled = true
	}

	agg := h.perService[record.Service]
	if agg == nil {
		agg = &ServiceMetrics{Service: record.Service}
		h.perService[record.Service] = agg
	}

	// Running average over lifetime calls, not just retained ones
	total := time.Duration(agg.Calls)*agg.AvgDuration + record.Duration
	agg.Calls++
	agg.AvgDuration = total / time.Duration(agg.Calls)
	agg.LastCall = record.StartedAt
	if record.Status == StatusError {
		agg.Errors++
	}
}

// recent returns copies of retained records, most recent first.
func (h *historyRing) recent() []OperationRecord {
	h.mu.Lock()
	defer h.mu.Unlock()

	size := h.next
	if h.filled {
		size = len(h.records)
	}

	out := make([]OperationRecord, 0, size)
	idx := h.next - 1
	for i := 0; i < size; i++ {
		if idx < 0 {
			idx = len(h.records) - 1
		}
		out = append(out, *h.records[idx])
		idx--
	}
	return out
}

// serviceMetrics returns copies of the per-service aggregates.
func (h *historyRing) serviceMetrics() map[string]ServiceMetrics {
	h.mu.Lock()
	defer h.mu.Unlock()

	out := make(map[string]ServiceMetrics, len(h.perService))
	for name, agg := range h.perService {
		out[name] = *agg
	}
	return out
}
