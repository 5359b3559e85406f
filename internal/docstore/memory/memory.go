// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 AllianceGate Contributors

// Package memory provides an in-memory docstore.Store used by tests and
// by the CLI's local mode.
package memory

import (
	"context"
	"log/slog"
	"sort"
	"sync"

	"github.com/alliancegate/alliancegate/internal/docstore"
)

const subscriberBuffer = 16

// Store is an in-memory document store with live subscriptions.
// Safe for concurrent use.
type Store struct {
	mu          sync.RWMutex
	collections map[string]map[string]map[string]any
	subs        map[string][]*subscription
}

// New creates an empty Store.
func New() *Store {
	return &Store{
		collections: make(map[string]map[string]map[string]any),
		subs:        make(map[string][]*subscription),
	}
}

// GetByKey returns the document at collection/key, or docstore.ErrNotFound.
func (s *Store) GetByKey(_ context.Context, collection, key string) (docstore.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	fields, ok := s.collections[collection][key]
	if !ok {
		return docstore.Document{}, docstore.ErrNotFound
	}
	return docstore.Document{Key: key, Fields: cloneFields(fields)}, nil
}

// QueryByField returns all documents whose field equals value.
func (s *Store) QueryByField(_ context.Context, collection, field, value string) ([]docstore.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var docs []docstore.Document
	for key, fields := range s.collections[collection] {
		doc := docstore.Document{Key: key, Fields: fields}
		if doc.String(field) == value {
			docs = append(docs, docstore.Document{Key: key, Fields: cloneFields(fields)})
		}
	}
	sort.Slice(docs, func(i, j int) bool { return docs[i].Key < docs[j].Key })
	return docs, nil
}

// QueryOrdered returns all documents ordered by the given field.
func (s *Store) QueryOrdered(_ context.Context, collection, orderField string, dir docstore.Direction) ([]docstore.Document, error) {
	s.mu.RLock()
	docs := s.snapshotLocked(collection)
	s.mu.RUnlock()

	sort.SliceStable(docs, func(i, j int) bool {
		less := lessByField(docs[i], docs[j], orderField)
		if dir == docstore.Descending {
			return !less && !equalByField(docs[i], docs[j], orderField)
		}
		return less
	})
	return docs, nil
}

// Put writes a document; merge=true merges fields into any existing doc.
func (s *Store) Put(_ context.Context, collection, key string, fields map[string]any, merge bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.putLocked(collection, key, fields, merge)
	s.notifyLocked(collection)
	return nil
}

// Delete removes a document. Deleting a missing document is not an error.
func (s *Store) Delete(_ context.Context, collection, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.collections[collection], key)
	s.notifyLocked(collection)
	return nil
}

// Batch starts an atomic write group.
func (s *Store) Batch() docstore.Batch {
	return &batch{store: s}
}

// Subscribe opens a live snapshot stream for a collection. The initial
// snapshot is delivered immediately; the stream ends when Unsubscribe is
// called or ctx is cancelled.
func (s *Store) Subscribe(ctx context.Context, collection string) (docstore.Subscription, error) {
	sub := &subscription{
		store:      s,
		collection: collection,
		ch:         make(chan []docstore.Document, subscriberBuffer),
		done:       make(chan struct{}),
	}

	s.mu.Lock()
	s.subs[collection] = append(s.subs[collection], sub)
	sub.ch <- s.snapshotLocked(collection)
	s.mu.Unlock()

	go func() {
		select {
		case <-ctx.Done():
			sub.Unsubscribe()
		case <-sub.done:
		}
	}()

	return sub, nil
}

func (s *Store) putLocked(collection, key string, fields map[string]any, merge bool) {
	coll := s.collections[collection]
	if coll == nil {
		coll = make(map[string]map[string]any)
		s.collections[collection] = coll
	}
	if merge {
		if existing, ok := coll[key]; ok {
			for k, v := range fields {
				existing[k] = v
			}
			return
		}
	}
	coll[key] = cloneFields(fields)
}

// snapshotLocked returns the collection's documents sorted by key.
func (s *Store) snapshotLocked(collection string) []docstore.Document {
	coll := s.collections[collection]
	docs := make([]docstore.Document, 0, len(coll))
	for key, fields := range coll {
		docs = append(docs, docstore.Document{Key: key, Fields: cloneFields(fields)})
	}
	sort.Slice(docs, func(i, j int) bool { return docs[i].Key < docs[j].Key })
	return docs
}

// notifyLocked fans the collection's current snapshot out to its
// subscribers. Sends happen while the store lock is held and Unsubscribe
// closes channels under the same lock, so a send can never hit a closed
// channel.
func (s *Store) notifyLocked(collection string) {
	subs := s.subs[collection]
	if len(subs) == 0 {
		return
	}
	snapshot := s.snapshotLocked(collection)
	for _, sub := range subs {
		select {
		case sub.ch <- snapshot:
		default:
			// Slow subscribers miss intermediate snapshots; the next change
			// delivers a fresh full snapshot anyway.
			slog.Warn("snapshot dropped: subscriber buffer full",
				"collection", sub.collection,
			)
		}
	}
}

type subscription struct {
	store      *Store
	collection string
	ch         chan []docstore.Document
	done       chan struct{}
	once       sync.Once
}

func (s *subscription) Updates() <-chan []docstore.Document { return s.ch }

func (s *subscription) Unsubscribe() {
	s.once.Do(func() {
		s.store.mu.Lock()
		subs := s.store.subs[s.collection]
		for i, sub := range subs {
			if sub == s {
				s.store.subs[s.collection] = append(subs[:i], subs[i+1:]...)
				break
			}
		}
		// Close under the store lock so no writer can be mid-send.
		close(s.ch)
		s.store.mu.Unlock()
		close(s.done)
	})
}

type batchOp struct {
	collection string
	key        string
	fields     map[string]any
	merge      bool
	delete     bool
}

// batch applies all staged operations under one lock so readers never
// observe a partially-committed group.
type batch struct {
	store *Store
	ops   []batchOp
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

func (b *batch) Commit(_ context.Context) error {
	b.store.mu.Lock()
	defer b.store.mu.Unlock()

	touched := make(map[string]struct{})
	for _, op := range b.ops {
		if op.delete {
			delete(b.store.collections[op.collection], op.key)
		} else {
			b.store.putLocked(op.collection, op.key, op.fields, op.merge)
		}
		touched[op.collection] = struct{}{}
	}
	for collection := range touched {
		b.store.notifyLocked(collection)
	}
	b.ops = nil
	return nil
}

func cloneFields(fields map[string]any) map[string]any {
	clone := make(map[string]any, len(fields))
	for k, v := range fields {
		clone[k] = v
	}
	return clone
}

func lessByField(a, b docstore.Document, field string) bool {
	av, aok := a.Fields[field]
	bv, bok := b.Fields[field]
	if !aok || !bok {
		return bok && !aok
	}
	an, aNum := asFloat(av)
	bn, bNum := asFloat(bv)
	if aNum && bNum {
		return an < bn
	}
	return a.String(field) < b.String(field)
}

func equalByField(a, b docstore.Document, field string) bool {
	return !lessByField(a, b, field) && !lessByField(b, a, field)
}

func asFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int64:
		return float64(n), true
	case int:
		return float64(n), true
	default:
		return 0, false
	}
}

// Compile-time interface check.
var _ docstore.Store = (*Store)(nil)
