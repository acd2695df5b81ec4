// Package pgstore implements store.Store on PostgreSQL. Documents live in a
// single path-keyed JSONB table; transactions map to SQL transactions with
// row locks, batches to SQL transactions, and the atomic field increment to
// a single jsonb_set UPDATE so concurrent counters never read-modify-write.
package pgstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"

	"ripple/internal/observability"
	"ripple/internal/store"
)

// Pgstore implements store.Store over a gorm PostgreSQL connection.
type Pgstore struct {
	db      *gorm.DB
	now     func() time.Time
	metrics *observability.StoreMetrics
	logger  *observability.StoreLogger
}

// New returns a Pgstore on the given connection. The documents schema must
// already exist (database.EnsureSchema).
func New(db *gorm.DB) *Pgstore {
	return &Pgstore{
		db:      db,
		now:     func() time.Time { return time.Now().UTC() },
		metrics: observability.NewStoreMetrics("postgres"),
		logger:  observability.NewStoreLogger("postgres"),
	}
}

type docRow struct {
	Path string
	Doc  []byte
}

func (s *Pgstore) Get(ctx context.Context, path string) (*store.Document, error) {
	defer s.metrics.TrackOperation("get")()
	var row docRow
	err := s.db.WithContext(ctx).
		Raw(`SELECT path, doc FROM documents WHERE path = ?`, path).
		Scan(&row).Error
	if err != nil {
		err = s.translateErr(err)
		s.logger.LogError(ctx, err, "get", path)
		return nil, err
	}
	if row.Path == "" {
		return nil, store.ErrNotFound
	}
	return decodeRow(row)
}

func (s *Pgstore) Set(ctx context.Context, path string, fields store.Fields) error {
	defer s.metrics.TrackOperation("set")()
	if err := s.set(ctx, s.db, path, fields); err != nil {
		s.logger.LogError(ctx, err, "set", path)
		return err
	}
	s.logger.LogWrite(ctx, "set", path)
	return nil
}

func (s *Pgstore) Update(ctx context.Context, path string, fields store.Fields) error {
	defer s.metrics.TrackOperation("update")()
	if err := s.update(ctx, s.db, path, fields); err != nil {
		s.logger.LogError(ctx, err, "update", path)
		return err
	}
	s.logger.LogWrite(ctx, "update", path)
	return nil
}

func (s *Pgstore) Delete(ctx context.Context, path string) error {
	defer s.metrics.TrackOperation("delete")()
	err := s.db.WithContext(ctx).
		Exec(`DELETE FROM documents WHERE path = ?`, path).Error
	if err != nil {
		err = s.translateErr(err)
		s.logger.LogError(ctx, err, "delete", path)
		return err
	}
	s.logger.LogWrite(ctx, "delete", path)
	return nil
}

func (s *Pgstore) Increment(ctx context.Context, path, field string, delta int64) error {
	defer s.metrics.TrackOperation("increment")()
	if err := s.increment(ctx, s.db, path, field, delta); err != nil {
		s.logger.LogError(ctx, err, "increment", path)
		return err
	}
	s.logger.LogWrite(ctx, "increment", path)
	return nil
}

func (s *Pgstore) RunTransaction(ctx context.Context, fn func(tx store.Txn) error) error {
	defer s.metrics.TrackOperation("transaction")()
	var staged int
	err := s.db.WithContext(ctx).Transaction(func(dbtx *gorm.DB) error {
		t := &pgTxn{s: s, ctx: ctx, db: dbtx}
		if err := fn(t); err != nil {
			return err
		}
		staged = len(t.writes)
		return t.flush()
	})
	err = s.translateTxnErr(err)
	s.logger.LogTransaction(ctx, staged, err)
	return err
}

func (s *Pgstore) RunBatch(ctx context.Context, writes []store.Write) error {
	defer s.metrics.TrackOperation("batch")()
	if len(writes) > store.MaxBatchWrites {
		return store.ErrBatchTooLarge
	}
	err := s.db.WithContext(ctx).Transaction(func(dbtx *gorm.DB) error {
		return s.apply(ctx, dbtx, writes)
	})
	if err != nil {
		return s.translateTxnErr(err)
	}
	s.logger.LogBatch(ctx, len(writes))
	return nil
}

func (s *Pgstore) Query(ctx context.Context, collectionPath string, q store.Query) ([]*store.Document, error) {
	defer s.metrics.TrackOperation("query")()
	return s.query(ctx, `parent = ?`, collectionPath, q)
}

func (s *Pgstore) QueryGroup(ctx context.Context, collectionID string, q store.Query) ([]*store.Document, error) {
	defer s.metrics.TrackOperation("query_group")()
	return s.query(ctx, `collection = ?`, collectionID, q)
}

func (s *Pgstore) query(ctx context.Context, scope, scopeArg string, q store.Query) ([]*store.Document, error) {
	sql := `SELECT path, doc FROM documents WHERE ` + scope
	args := []any{scopeArg}

	// Equality filters use JSONB containment so the GIN index applies.
	for _, f := range q.Filters {
		probe, err := json.Marshal(map[string]any{f.Field: f.Value})
		if err != nil {
			return nil, fmt.Errorf("pgstore: encode filter: %w", err)
		}
		sql += ` AND doc @> ?::jsonb`
		args = append(args, string(probe))
	}

	if q.OrderBy != "" {
		sql += ` ORDER BY doc->>?`
		args = append(args, q.OrderBy)
		if q.Desc {
			sql += ` DESC`
		}
	} else {
		sql += ` ORDER BY path`
	}
	if q.Limit > 0 {
		sql += ` LIMIT ?`
		args = append(args, q.Limit)
	}

	var rows []docRow
	if err := s.db.WithContext(ctx).Raw(sql, args...).Scan(&rows).Error; err != nil {
		return nil, s.translateErr(err)
	}

	docs := make([]*store.Document, 0, len(rows))
	for _, row := range rows {
		doc, err := decodeRow(row)
		if err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}
	return docs, nil
}

func (s *Pgstore) set(ctx context.Context, db *gorm.DB, path string, fields store.Fields) error {
	if !store.IsDocumentPath(path) {
		return store.ErrInvalidPath
	}
	doc, err := s.encode(fields)
	if err != nil {
		return err
	}
	err = db.WithContext(ctx).Exec(
		`INSERT INTO documents (path, parent, collection, doc)
		 VALUES (?, ?, ?, ?::jsonb)
		 ON CONFLICT (path) DO UPDATE SET doc = EXCLUDED.doc, updated_at = now()`,
		path, store.ParentOf(path), store.CollectionOf(path), doc,
	).Error
	if err != nil {
		return s.translateErr(err)
	}
	return nil
}

func (s *Pgstore) update(ctx context.Context, db *gorm.DB, path string, fields store.Fields) error {
	doc, err := s.encode(fields)
	if err != nil {
		return err
	}
	res := db.WithContext(ctx).Exec(
		`UPDATE documents SET doc = doc || ?::jsonb, updated_at = now() WHERE path = ?`,
		doc, path,
	)
	if res.Error != nil {
		return s.translateErr(res.Error)
	}
	if res.RowsAffected == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *Pgstore) increment(ctx context.Context, db *gorm.DB, path, field string, delta int64) error {
	res := db.WithContext(ctx).Exec(
		`UPDATE documents
		 SET doc = jsonb_set(doc, ARRAY[?], to_jsonb(COALESCE((doc->>?)::bigint, 0) + ?)),
		     updated_at = now()
		 WHERE path = ?`,
		field, field, delta, path,
	)
	if res.Error != nil {
		return s.translateErr(res.Error)
	}
	if res.RowsAffected == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *Pgstore) apply(ctx context.Context, dbtx *gorm.DB, writes []store.Write) error {
	for _, w := range writes {
		var err error
		switch w.Kind {
		case store.WriteSet:
			err = s.set(ctx, dbtx, w.Path, w.Fields)
		case store.WriteUpdate:
			err = s.update(ctx, dbtx, w.Path, w.Fields)
		case store.WriteDelete:
			err = dbtx.WithContext(ctx).
				Exec(`DELETE FROM documents WHERE path = ?`, w.Path).Error
			if err != nil {
				err = s.translateErr(err)
			}
		case store.WriteIncrement:
			err = s.increment(ctx, dbtx, w.Path, w.Field, w.Delta)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

// resolve replaces server-timestamp sentinels with the current clock reading.
func (s *Pgstore) resolve(fields store.Fields) store.Fields {
	resolved := make(store.Fields, len(fields))
	ts := s.now().Format(time.RFC3339Nano)
	for k, v := range fields {
		if v == store.ServerTimestamp {
			resolved[k] = ts
			continue
		}
		resolved[k] = v
	}
	return resolved
}

func (s *Pgstore) encode(fields store.Fields) (string, error) {
	b, err := json.Marshal(s.resolve(fields))
	if err != nil {
		return "", fmt.Errorf("pgstore: encode fields: %w", err)
	}
	return string(b), nil
}

func decodeRow(row docRow) (*store.Document, error) {
	fields := store.Fields{}
	if len(row.Doc) > 0 {
		if err := json.Unmarshal(row.Doc, &fields); err != nil {
			return nil, fmt.Errorf("pgstore: decode document %s: %w", row.Path, err)
		}
	}
	return &store.Document{Path: row.Path, Fields: fields}, nil
}

// pgTxn serves transaction reads with row locks and stages writes until the
// body returns, mirroring the read-then-write discipline of the interface.
type pgTxn struct {
	s      *Pgstore
	ctx    context.Context
	db     *gorm.DB
	writes []store.Write
}

func (t *pgTxn) Get(path string) (*store.Document, error) {
	var row docRow
	err := t.db.WithContext(t.ctx).
		Raw(`SELECT path, doc FROM documents WHERE path = ? FOR UPDATE`, path).
		Scan(&row).Error
	if err != nil {
		return nil, t.s.translateErr(err)
	}

	var doc *store.Document
	if row.Path == "" {
		err = store.ErrNotFound
	} else {
		doc, err = decodeRow(row)
		if err != nil {
			return nil, err
		}
	}

	// Read-your-writes: staged writes shadow the committed row.
	for _, w := range t.writes {
		if w.Path != path {
			continue
		}
		switch w.Kind {
		case store.WriteSet:
			doc = &store.Document{Path: path, Fields: t.s.resolve(w.Fields)}
			err = nil
		case store.WriteDelete:
			doc, err = nil, store.ErrNotFound
		case store.WriteUpdate:
			if doc != nil {
				for k, v := range t.s.resolve(w.Fields) {
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

func (t *pgTxn) Set(path string, fields store.Fields) {
	t.writes = append(t.writes, store.SetWrite(path, fields))
}

func (t *pgTxn) Update(path string, fields store.Fields) {
	t.writes = append(t.writes, store.UpdateWrite(path, fields))
}

func (t *pgTxn) Delete(path string) {
	t.writes = append(t.writes, store.DeleteWrite(path))
}

func (t *pgTxn) Increment(path, field string, delta int64) {
	t.writes = append(t.writes, store.IncrementWrite(path, field, delta))
}

func (t *pgTxn) flush() error {
	return t.s.apply(t.ctx, t.db, t.writes)
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

// translateErr maps driver errors onto the store sentinels and counts
// contention aborts.
func (s *Pgstore) translateErr(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return store.ErrNotFound
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return store.ErrUnavailable
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "40001", "40P01", "55P03": // serialization failure, deadlock, lock not available
			s.metrics.RecordConflict()
			return store.ErrConflict
		}
	}
	return fmt.Errorf("%w: %v", store.ErrUnavailable, err)
}

// translateTxnErr keeps store sentinels and caller errors intact while
// mapping anything the driver produced during commit.
func (s *Pgstore) translateTxnErr(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, store.ErrNotFound),
		errors.Is(err, store.ErrConflict),
		errors.Is(err, store.ErrUnavailable),
		errors.Is(err, store.ErrInvalidPath),
		errors.Is(err, store.ErrBatchTooLarge):
		return err
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return s.translateErr(err)
	}
	return err
}
