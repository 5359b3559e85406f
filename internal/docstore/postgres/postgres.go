// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 AllianceGate Contributors

// Package postgres implements docstore.Store on PostgreSQL. Documents live
// in a single JSONB table keyed by (collection_path, doc_key); collection
// change notifications ride LISTEN/NOTIFY.
package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/samber/oops"

	"github.com/alliancegate/alliancegate/internal/docstore"
)

const (
	notifyChannel    = "docstore_changes"
	subscriberBuffer = 16
)

// Store implements docstore.Store using PostgreSQL.
type Store struct {
	pool *pgxpool.Pool
}

// New connects to the database and returns a Store.
func New(ctx context.Context, dsn string) (*Store, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, oops.Code("DOCSTORE_CONNECT_FAILED").
			With("operation", "connect to database").
			Wrap(err)
	}
	return &Store{pool: pool}, nil
}

// NewWithPool wraps an existing pool, sharing its lifecycle with the caller.
func NewWithPool(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// Close closes the connection pool.
func (s *Store) Close() {
	s.pool.Close()
}

// Ping verifies database connectivity. Used by readiness probes.
func (s *Store) Ping(ctx context.Context) error {
	if err := s.pool.Ping(ctx); err != nil {
		return oops.Code("DOCSTORE_PING_FAILED").Wrap(err)
	}
	return nil
}

// GetByKey returns the document at collection/key, or docstore.ErrNotFound.
func (s *Store) GetByKey(ctx context.Context, collection, key string) (docstore.Document, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT fields FROM documents
		WHERE collection_path = $1 AND doc_key = $2
	`, collection, key)

	var raw []byte
	err := row.Scan(&raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return docstore.Document{}, docstore.ErrNotFound
	}
	if err != nil {
		return docstore.Document{}, oops.Code("DOCSTORE_GET_FAILED").
			With("collection", collection).
			With("key", key).
			Wrap(err)
	}
	return decodeDocument(key, raw)
}

// QueryByField returns all documents whose field equals value.
func (s *Store) QueryByField(ctx context.Context, collection, field, value string) ([]docstore.Document, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT doc_key, fields FROM documents
		WHERE collection_path = $1 AND fields->>$2 = $3
		ORDER BY doc_key
	`, collection, field, value)
	if err != nil {
		return nil, oops.Code("DOCSTORE_QUERY_FAILED").
			With("collection", collection).
			With("field", field).
			Wrap(err)
	}
	defer rows.Close()
	return scanDocuments(rows)
}

// QueryOrdered returns all documents ordered by the given field. JSONB
// ordering sorts numbers numerically and strings lexically.
func (s *Store) QueryOrdered(ctx context.Context, collection, orderField string, dir docstore.Direction) ([]docstore.Document, error) {
	order := "ASC"
	if dir == docstore.Descending {
		order = "DESC"
	}
	rows, err := s.pool.Query(ctx, fmt.Sprintf(`
		SELECT doc_key, fields FROM documents
		WHERE collection_path = $1
		ORDER BY fields->$2 %s, doc_key
	`, order), collection, orderField)
	if err != nil {
		return nil, oops.Code("DOCSTORE_QUERY_FAILED").
			With("collection", collection).
			With("order_field", orderField).
			Wrap(err)
	}
	defer rows.Close()
	return scanDocuments(rows)
}

// Put writes a document; merge=true merges fields into any existing doc.
func (s *Store) Put(ctx context.Context, collection, key string, fields map[string]any, merge bool) error {
	if err := putExec(ctx, s.pool, collection, key, fields, merge); err != nil {
		return wrapWriteError(err, oops.Code("DOCSTORE_PUT_FAILED").
			With("collection", collection).
			With("key", key))
	}
	return nil
}

// wrapWriteError attaches the server-side error class when the failure is
// a PostgreSQL error, so integrity violations are tellable apart from
// connectivity trouble in logs.
func wrapWriteError(err error, builder oops.OopsErrorBuilder) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		builder = builder.
			With("pg_code", pgErr.Code).
			With("integrity_violation", pgerrcode.IsIntegrityConstraintViolation(pgErr.Code))
	}
	return builder.Wrap(err)
}

// Delete removes a document. Deleting a missing document is not an error.
func (s *Store) Delete(ctx context.Context, collection, key string) error {
	_, err := s.pool.Exec(ctx, `
		DELETE FROM documents WHERE collection_path = $1 AND doc_key = $2
	`, collection, key)
	if err != nil {
		return oops.Code("DOCSTORE_DELETE_FAILED").
			With("collection", collection).
			With("key", key).
			Wrap(err)
	}
	return nil
}

// Batch starts an atomic write group backed by a single transaction.
func (s *Store) Batch() docstore.Batch {
	return &batch{pool: s.pool}
}

// Subscribe opens a live snapshot stream for a collection. A dedicated
// connection LISTENs for change notifications; each notification for the
// collection triggers a fresh snapshot query.
func (s *Store) Subscribe(ctx context.Context, collection string) (docstore.Subscription, error) {
	conn, err := s.pool.Acquire(ctx)
	if err != nil {
		return nil, oops.Code("DOCSTORE_SUBSCRIBE_FAILED").
			With("collection", collection).
			Wrap(err)
	}

	if _, err := conn.Exec(ctx, "LISTEN "+notifyChannel); err != nil {
		conn.Release()
		return nil, oops.Code("DOCSTORE_SUBSCRIBE_FAILED").
			With("collection", collection).
			With("operation", "listen").
			Wrap(err)
	}

	streamCtx, cancel := context.WithCancel(ctx)
	sub := &subscription{
		ch:     make(chan []docstore.Document, subscriberBuffer),
		cancel: cancel,
	}

	go func() {
		defer close(sub.ch)
		defer conn.Release()

		snapshot, snapErr := s.snapshot(streamCtx, collection)
		if snapErr != nil {
			slog.Error("initial snapshot failed", "collection", collection, "error", snapErr)
			return
		}
		sub.send(collection, snapshot)

		for {
			notification, waitErr := conn.Conn().WaitForNotification(streamCtx)
			if waitErr != nil {
				// Context cancellation is the normal teardown path.
				if streamCtx.Err() == nil {
					slog.Error("notification wait failed", "collection", collection, "error", waitErr)
				}
				return
			}
			if notification.Payload != collection {
				continue
			}
			snapshot, snapErr = s.snapshot(streamCtx, collection)
			if snapErr != nil {
				if streamCtx.Err() == nil {
					slog.Error("snapshot query failed", "collection", collection, "error", snapErr)
				}
				return
			}
			sub.send(collection, snapshot)
		}
	}()

	return sub, nil
}

// snapshot returns a collection's documents ordered by key.
func (s *Store) snapshot(ctx context.Context, collection string) ([]docstore.Document, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT doc_key, fields FROM documents
		WHERE collection_path = $1
		ORDER BY doc_key
	`, collection)
	if err != nil {
		return nil, oops.Code("DOCSTORE_QUERY_FAILED").
			With("collection", collection).
			Wrap(err)
	}
	defer rows.Close()
	return scanDocuments(rows)
}

type subscription struct {
	ch     chan []docstore.Document
	cancel context.CancelFunc
	once   sync.Once
}

func (s *subscription) Updates() <-chan []docstore.Document { return s.ch }

func (s *subscription) Unsubscribe() {
	s.once.Do(s.cancel)
}

func (s *subscription) send(collection string, snapshot []docstore.Document) {
	select {
	case s.ch <- snapshot:
	default:
		slog.Warn("snapshot dropped: subscriber buffer full", "collection", collection)
	}
}

func putExec(ctx context.Context, pool *pgxpool.Pool, collection, key string, fields map[string]any, merge bool) error {
	raw, err := json.Marshal(fields)
	if err != nil {
		return fmt.Errorf("marshal fields: %w", err)
	}
	_, err = pool.Exec(ctx, putSQL(merge), collection, key, raw)
	return err
}

func putSQL(merge bool) string {
	if merge {
		return `
			INSERT INTO documents (collection_path, doc_key, fields, updated_at)
			VALUES ($1, $2, $3, now())
			ON CONFLICT (collection_path, doc_key)
			DO UPDATE SET fields = documents.fields || EXCLUDED.fields, updated_at = now()
		`
	}
	return `
		INSERT INTO documents (collection_path, doc_key, fields, updated_at)
		VALUES ($1, $2, $3, now())
		ON CONFLICT (collection_path, doc_key)
		DO UPDATE SET fields = EXCLUDED.fields, updated_at = now()
	`
}

type batchOp struct {
	collection string
	key        string
	fields     map[string]any
	merge      bool
	delete     bool
}

// batch stages writes and commits them in one transaction.
type batch struct {
	pool *pgxpool.Pool
	ops  []batchOp
}

func (b *batch) Set(collection, key string, fields map[string]any, merge bool) {
	b.ops = append(b.ops, batchOp{collection: collection, key: key, fields: fields, merge: merge})
}

func (b *batch) Update(collection, key string, fields map[string]any) {
	b.ops = append(b.ops, batchOp{collection: collection, key: key, fields: fields, merge: true})
}

func (b *batch) Delete(collection, key string) {
	b.ops = append(b.ops, batchOp{collection: collection, key: key, delete: true})
}

func (b *batch) Commit(ctx context.Context) error {
	tx, err := b.pool.Begin(ctx)
	if err != nil {
		return oops.Code("DOCSTORE_BATCH_FAILED").
			With("operation", "begin transaction").
			Wrap(err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck // rollback after commit is a no-op

	for _, op := range b.ops {
		if op.delete {
			if _, execErr := tx.Exec(ctx, `
				DELETE FROM documents WHERE collection_path = $1 AND doc_key = $2
			`, op.collection, op.key); execErr != nil {
				return oops.Code("DOCSTORE_BATCH_FAILED").
					With("collection", op.collection).
					With("key", op.key).
					Wrap(execErr)
			}
			continue
		}
		raw, marshalErr := json.Marshal(op.fields)
		if marshalErr != nil {
			return oops.Code("DOCSTORE_BATCH_FAILED").
				With("operation", "marshal fields").
				Wrap(marshalErr)
		}
		if _, execErr := tx.Exec(ctx, putSQL(op.merge), op.collection, op.key, raw); execErr != nil {
			return wrapWriteError(execErr, oops.Code("DOCSTORE_BATCH_FAILED").
				With("collection", op.collection).
				With("key", op.key))
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return oops.Code("DOCSTORE_BATCH_FAILED").
			With("operation", "commit transaction").
			Wrap(err)
	}
	b.ops = nil
	return nil
}

func scanDocuments(rows pgx.Rows) ([]docstore.Document, error) {
	var docs []docstore.Document
	for rows.Next() {
		var key string
		var raw []byte
		if err := rows.Scan(&key, &raw); err != nil {
			return nil, oops.Code("DOCSTORE_SCAN_FAILED").Wrap(err)
		}
		doc, err := decodeDocument(key, raw)
		if err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}
	if err := rows.Err(); err != nil {
		return nil, oops.Code("DOCSTORE_SCAN_FAILED").Wrap(err)
	}
	return docs, nil
}

func decodeDocument(key string, raw []byte) (docstore.Document, error) {
	fields := make(map[string]any)
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &fields); err != nil {
			return docstore.Document{}, oops.Code("DOCSTORE_DECODE_FAILED").
				With("key", key).
				Wrap(err)
		}
	}
	return docstore.Document{Key: key, Fields: fields}, nil
}

// Compile-time interface check.
var _ docstore.Store = (*Store)(nil)
