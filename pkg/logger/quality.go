package logger

import (
	"sync"
	"time"
)

// QualityCollector aggregates data-quality defects (dropped malformed
// records, discrepancies) per instrument and kind so a run can report
// them once at the end instead of flooding the log per record.
type QualityCollector struct {
	mu sync.Mutex
	m  map[string]*QualityEntry
}

// QualityEntry is one aggregated defect bucket.
type QualityEntry struct {
	Instrument string    `json:"instrument"`
	Kind       string    `json:"kind"`
	Count      int       `json:"count"`
	FirstSeen  time.Time `json:"first_seen"`
	LastSeen   time.Time `json:"last_seen"`
}

func NewQualityCollector() *QualityCollector {
	return &QualityCollector{m: make(map[string]*QualityEntry)}
}

// Add records n defects of the given kind for an instrument.
func (q *QualityCollector) Add(instrument, kind string, n int) {
	if n <= 0 {
		return
	}
	now := time.Now()
	key := instrument + "|" + kind

	q.mu.Lock()
	defer q.mu.Unlock()

	if e, ok := q.m[key]; ok {
		e.Count += n
		e.LastSeen = now
		return
	}
	q.m[key] = &QualityEntry{
		Instrument: instrument,
		Kind:       kind,
		Count:      n,
		FirstSeen:  now,
		LastSeen:   now,
	}
}

// Count returns the aggregated defect count for one instrument and kind.
func (q *QualityCollector) Count(instrument, kind string) int {
	q.mu.Lock()
	defer q.mu.Unlock()
	if e, ok := q.m[instrument+"|"+kind]; ok {
		return e.Count
	}
	return 0
}

// Drain returns all entries and resets the collector.
func (q *QualityCollector) Drain() []QualityEntry {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := make([]QualityEntry, 0, len(q.m))
	for _, e := range q.m {
		out = append(out, *e)
	}
	q.m = make(map[string]*QualityEntry)
	return out
}
