// Package memstore is an in-memory store.Store driver. It backs the test
// suites and the STORE_DRIVER=memory development mode. A single mutex
// serializes every operation, which trivially satisfies the isolation the
// interface promises; write hooks let tests inject batch and transaction
// failures.
package memstore

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"ripple/internal/observability"
	"ripple/internal/store"
)

// Memstore implements store.Store over a map of document paths.
type Memstore struct {
	mu      sync.Mutex
	docs    map[string]store.Fields
	now     func() time.Time
	metrics *observability.StoreMetrics

	batchHook func(writes []store.Write) error
	txnHook   func() error
}

// New returns an empty Memstore using the wall clock.
func New() *Memstore {
	return NewWithClock(func() time.Time { return time.Now().UTC() })
}

// NewWithClock returns an empty Memstore whose server timestamps come from
// the given clock.
func NewWithClock(now func() time.Time) *Memstore {
	return &Memstore{
		docs:    make(map[string]store.Fields),
		now:     now,
		metrics: observability.NewStoreMetrics("memory"),
	}
}

// SetBatchHook installs fn to run before each batch commits. A non-nil
// return aborts the batch with no effect. Pass nil to clear.
func (m *Memstore) SetBatchHook(fn func(writes []store.Write) error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.batchHook = fn
}

// SetTxnHook installs fn to run before each transaction body. A non-nil
// return fails the transaction with no effect. Pass nil to clear.
func (m *Memstore) SetTxnHook(fn func() error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.txnHook = fn
}

// Len returns the number of stored documents.
func (m *Memstore) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.docs)
}

func (m *Memstore) Get(ctx context.Context, path string) (*store.Document, error) {
	defer m.metrics.TrackOperation("get")()
	if err := ctx.Err(); err != nil {
		return nil, store.ErrUnavailable
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.getLocked(path)
}

func (m *Memstore) Set(ctx context.Context, path string, fields store.Fields) error {
	defer m.metrics.TrackOperation("set")()
	if !store.IsDocumentPath(path) {
		return store.ErrInvalidPath
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.docs[path] = m.resolve(fields)
	return nil
}

func (m *Memstore) Update(ctx context.Context, path string, fields store.Fields) error {
	defer m.metrics.TrackOperation("update")()
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.updateLocked(path, fields)
}

func (m *Memstore) Delete(ctx context.Context, path string) error {
	defer m.metrics.TrackOperation("delete")()
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.docs, path)
	return nil
}

func (m *Memstore) Increment(ctx context.Context, path, field string, delta int64) error {
	defer m.metrics.TrackOperation("increment")()
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.incrementLocked(path, field, delta)
}

func (m *Memstore) RunTransaction(ctx context.Context, fn func(tx store.Txn) error) error {
	defer m.metrics.TrackOperation("transaction")()
	if err := ctx.Err(); err != nil {
		return store.ErrUnavailable
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.txnHook != nil {
		if err := m.txnHook(); err != nil {
			return err
		}
	}

	tx := &memTxn{m: m}
	if err := fn(tx); err != nil {
		return err
	}
	return m.applyLocked(tx.writes)
}

func (m *Memstore) RunBatch(ctx context.Context, writes []store.Write) error {
	defer m.metrics.TrackOperation("batch")()
	if len(writes) > store.MaxBatchWrites {
		return store.ErrBatchTooLarge
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.batchHook != nil {
		if err := m.batchHook(writes); err != nil {
			return err
		}
	}
	return m.applyLocked(writes)
}

func (m *Memstore) Query(ctx context.Context, collectionPath string, q store.Query) ([]*store.Document, error) {
	defer m.metrics.TrackOperation("query")()
	m.mu.Lock()
	defer m.mu.Unlock()

	prefix := collectionPath + "/"
	var out []*store.Document
	for path, fields := range m.docs {
		if !strings.HasPrefix(path, prefix) {
			continue
		}
		// Direct children only: the remainder must be a bare document ID.
		if strings.Contains(path[len(prefix):], "/") {
			continue
		}
		out = append(out, m.snapshot(path, fields))
	}
	return applyQuery(out, q), nil
}

func (m *Memstore) QueryGroup(ctx context.Context, collectionID string, q store.Query) ([]*store.Document, error) {
	defer m.metrics.TrackOperation("query_group")()
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []*store.Document
	for path, fields := range m.docs {
		if store.CollectionOf(path) != collectionID {
			continue
		}
		out = append(out, m.snapshot(path, fields))
	}
	return applyQuery(out, q), nil
}

// applyLocked commits staged writes. Every write is validated before any is
// applied so a failing batch has no effect.
func (m *Memstore) applyLocked(writes []store.Write) error {
	staged := make(map[string]bool, len(writes))
	for _, w := range writes {
		if !store.IsDocumentPath(w.Path) {
			return store.ErrInvalidPath
		}
		switch w.Kind {
		case store.WriteSet:
			staged[w.Path] = true
		case store.WriteDelete:
			staged[w.Path] = false
		case store.WriteUpdate, store.WriteIncrement:
			exists, wasStaged := staged[w.Path]
			if !wasStaged {
				_, exists = m.docs[w.Path]
			}
			if !exists {
				return store.ErrNotFound
			}
		}
	}
	for _, w := range writes {
		switch w.Kind {
		case store.WriteSet:
			m.docs[w.Path] = m.resolve(w.Fields)
		case store.WriteUpdate:
			if err := m.updateLocked(w.Path, w.Fields); err != nil {
				return err
			}
		case store.WriteDelete:
			delete(m.docs, w.Path)
		case store.WriteIncrement:
			if err := m.incrementLocked(w.Path, w.Field, w.Delta); err != nil {
				return err
			}
		}
	}
	return nil
}

func (m *Memstore) getLocked(path string) (*store.Document, error) {
	fields, ok := m.docs[path]
	if !ok {
		return nil, store.ErrNotFound
	}
	return m.snapshot(path, fields), nil
}

func (m *Memstore) updateLocked(path string, fields store.Fields) error {
	existing, ok := m.docs[path]
	if !ok {
		return store.ErrNotFound
	}
	for k, v := range m.resolve(fields) {
		existing[k] = v
	}
	return nil
}

func (m *Memstore) incrementLocked(path, field string, delta int64) error {
	existing, ok := m.docs[path]
	if !ok {
		return store.ErrNotFound
	}
	existing[field] = asInt(existing[field]) + delta
	return nil
}

// resolve copies fields, replacing ServerTimestamp sentinels with the
// current clock reading.
func (m *Memstore) resolve(fields store.Fields) store.Fields {
	out := make(store.Fields, len(fields))
	ts := m.now().Format(time.RFC3339Nano)
	for k, v := range fields {
		if v == store.ServerTimestamp {
			out[k] = ts
			continue
		}
		out[k] = v
	}
	return out
}

func (m *Memstore) snapshot(path string, fields store.Fields) *store.Document {
	doc := &store.Document{Path: path, Fields: fields}
	return doc.Clone()
}

func applyQuery(docs []*store.Document, q store.Query) []*store.Document {
	filtered := docs[:0]
	for _, d := range docs {
		if matches(d, q.Filters) {
			filtered = append(filtered, d)
		}
	}
	docs = filtered

	if q.OrderBy != "" {
		sort.SliceStable(docs, func(i, j int) bool {
			less := compare(docs[i].Fields[q.OrderBy], docs[j].Fields[q.OrderBy]) < 0
			if q.Desc {
				return !less
			}
			return less
		})
	} else {
		// Deterministic order for callers that do not ask for one.
		sort.Slice(docs, func(i, j int) bool { return docs[i].Path < docs[j].Path })
	}

	if q.Limit > 0 && len(docs) > q.Limit {
		docs = docs[:q.Limit]
	}
	return docs
}

func matches(d *store.Document, filters []store.Filter) bool {
	for _, f := range filters {
		if compare(d.Fields[f.Field], f.Value) != 0 {
			return false
		}
	}
	return true
}

// compare orders two field values. Strings compare lexically, which orders
// RFC3339 timestamps chronologically; numbers compare numerically.
func compare(a, b any) int {
	if sa, ok := a.(string); ok {
		if sb, ok := b.(string); ok {
			return strings.Compare(sa, sb)
		}
	}
	na, aNum := asNumber(a)
	nb, bNum := asNumber(b)
	if aNum && bNum {
		switch {
		case na < nb:
			return -1
		case na > nb:
			return 1
		default:
			return 0
		}
	}
	if a == b {
		return 0
	}
	return -1
}

func asNumber(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case float64:
		return n, true
	default:
		return 0, false
	}
}

func asInt(v any) int64 {
	switch n := v.(type) {
	case int:
		return int64(n)
	case int64:
		return n
	case float64:
		return int64(n)
	default:
		return 0
	}
}

// memTxn stages writes against the store while serving reads through to
// committed state overlaid with the staged writes.
type memTxn struct {
	m      *Memstore
	writes []store.Write
}

func (t *memTxn) Get(path string) (*store.Document, error) {
	// Read-your-writes: staged writes shadow committed state.
	doc, err := t.m.getLocked(path)
	for _, w := range t.writes {
		if w.Path != path {
			continue
		}
		switch w.Kind {
		case store.WriteSet:
			doc = &store.Document{Path: path, Fields: t.m.resolve(w.Fields)}
			err = nil
		case store.WriteDelete:
			doc, err = nil, store.ErrNotFound
		case store.WriteUpdate:
			if doc != nil {
				for k, v := range t.m.resolve(w.Fields) {
					doc.Fields[k] = v
				}
			}
		case store.WriteIncrement:
			if doc != nil {
				doc.Fields[w.Field] = asInt(doc.Fields[w.Field]) + w.Delta
			}
		}
	}
	return doc, err
}

func (t *memTxn) Set(path string, fields store.Fields) {
	t.writes = append(t.writes, store.SetWrite(path, fields))
}

func (t *memTxn) Update(path string, fields store.Fields) {
	t.writes = append(t.writes, store.UpdateWrite(path, fields))
}

func (t *memTxn) Delete(path string) {
	t.writes = append(t.writes, store.DeleteWrite(path))
}

func (t *memTxn) Increment(path, field string, delta int64) {
	t.writes = append(t.writes, store.IncrementWrite(path, field, delta))
}
