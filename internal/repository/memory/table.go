package memory

import (
	"context"
	"sync"
	"time"

	"sentinel-be/internal/repository/specification"
)

// keys tells a table how to read the columns specifications filter on.
type keys[E any] struct {
	caseId    func(*E) string
	runId     func(*E) string
	eventType func(*E) string
	stamp     func(*E, time.Time)
}

// table is an append-only, insertion-ordered slice guarded by a mutex.
type table[E any] struct {
	mu   sync.RWMutex
	rows []*E
	keys keys[E]
	now  func() time.Time
}

func newTable[E any](k keys[E]) *table[E] {
	return &table[E]{keys: k, now: time.Now}
}

func (t *table[E]) Create(_ context.Context, e *E) error {
	if t.keys.stamp != nil {
		t.keys.stamp(e, t.now())
	}
	row := *e
	t.mu.Lock()
	t.rows = append(t.rows, &row)
	t.mu.Unlock()
	return nil
}

func (t *table[E]) FindOne(ctx context.Context, specs ...specification.Specification) (*E, error) {
	rows, err := t.FindAll(ctx, specs...)
	if err != nil || len(rows) == 0 {
		return nil, err
	}
	return rows[0], nil
}

func (t *table[E]) FindAll(_ context.Context, specs ...specification.Specification) ([]*E, error) {
	t.mu.RLock()
	rows := make([]*E, len(t.rows))
	copy(rows, t.rows)
	t.mu.RUnlock()

	var limit, offset int
	desc := false
	for _, spec := range specs {
		switch s := spec.(type) {
		case specification.ByCaseId:
			rows = t.filter(rows, t.keys.caseId, s.CaseId)
		case specification.ByRunId:
			rows = t.filter(rows, t.keys.runId, s.RunId)
		case specification.ByEventType:
			rows = t.filter(rows, t.keys.eventType, s.EventType)
		case specification.OrderBy:
			// Only creation order is tracked; any ordering maps onto it.
			desc = s.Desc
		case specification.Pagination:
			limit, offset = s.Limit, s.Offset
		}
	}

	if desc {
		for i, j := 0, len(rows)-1; i < j; i, j = i+1, j-1 {
			rows[i], rows[j] = rows[j], rows[i]
		}
	}
	if offset > 0 {
		if offset >= len(rows) {
			return []*E{}, nil
		}
		rows = rows[offset:]
	}
	if limit > 0 && len(rows) > limit {
		rows = rows[:limit]
	}

	out := make([]*E, len(rows))
	for i, r := range rows {
		c := *r
		out[i] = &c
	}
	return out, nil
}

func (t *table[E]) filter(rows []*E, key func(*E) string, want string) []*E {
	if key == nil {
		return []*E{}
	}
	out := rows[:0:0]
	for _, r := range rows {
		if key(r) == want {
			out = append(out, r)
		}
	}
	return out
}

func (t *table[E]) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.rows)
}
