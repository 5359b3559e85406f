// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 AllianceGate Contributors

// Package docstore defines the keyed document store contract the
// access-control core depends on. The store is organized into flat and
// hierarchical collections addressed by slash-separated paths; documents
// are loosely-typed field maps with last-write-wins semantics.
package docstore

import (
	"context"
	"errors"
	"fmt"
)

// ErrNotFound is returned when a requested document does not exist.
var ErrNotFound = errors.New("document not found")

// Well-known flat collection paths.
const (
	UsersCollection            = "users"
	AllianceRequestsCollection = "alliance_requests"
	SysAdminsCollection        = "sys_admins"
)

// AdminsCollection returns the legacy per-alliance admins collection path.
func AdminsCollection(serverID, allianceID string) string {
	return fmt.Sprintf("servers/%s/alliances/%s/admins", serverID, allianceID)
}

// MembersCollection returns the legacy per-alliance members collection path.
func MembersCollection(serverID, allianceID string) string {
	return fmt.Sprintf("servers/%s/alliances/%s/members", serverID, allianceID)
}

// SettingsCollection returns the per-alliance settings collection path.
// Documents in it are keyed by setting name.
func SettingsCollection(serverID, allianceID string) string {
	return fmt.Sprintf("servers/%s/alliances/%s/settings", serverID, allianceID)
}

// Document is a single stored record: a key plus loosely-typed fields.
type Document struct {
	Key    string
	Fields map[string]any
}

// String returns the named field as a string, or "" when absent or not a
// string. Stored credential fields are historically inconsistent, so all
// reads go through this accessor rather than direct type assertions.
func (d Document) String(field string) string {
	v, ok := d.Fields[field]
	if !ok || v == nil {
		return ""
	}
	switch s := v.(type) {
	case string:
		return s
	default:
		return fmt.Sprint(v)
	}
}

// Int64 returns the named field as an int64, or 0 when absent or
// unparseable. JSON decoding yields float64 for numbers, so both are
// accepted.
func (d Document) Int64(field string) int64 {
	switch v := d.Fields[field].(type) {
	case int64:
		return v
	case int:
		return int64(v)
	case float64:
		return int64(v)
	default:
		return 0
	}
}

// Direction orders QueryOrdered results.
type Direction string

const (
	Ascending  Direction = "asc"
	Descending Direction = "desc"
)

// Batch accumulates writes that commit atomically: either every staged
// operation is applied or none is. Batches are not isolated from concurrent
// single-document writes; last writer wins.
type Batch interface {
	// Set stages a full write (merge=false) or field merge (merge=true).
	Set(collection, key string, fields map[string]any, merge bool)

	// Update stages a field merge into an existing document.
	Update(collection, key string, fields map[string]any)

	// Delete stages a document removal.
	Delete(collection, key string)

	// Commit applies all staged operations atomically.
	Commit(ctx context.Context) error
}

// Subscription is a live snapshot stream for one collection. Teardown must
// be explicit: callers that fail to Unsubscribe leak background work.
type Subscription interface {
	// Updates delivers the full collection snapshot on every change.
	// The channel is closed by Unsubscribe.
	Updates() <-chan []Document

	// Unsubscribe stops delivery and releases the stream's resources.
	Unsubscribe()
}

// Store is the minimal keyed document database contract (point lookup,
// equality query, ordered query, writes, atomic batches, live streams).
// Every method may suspend on a store round-trip; none retries.
type Store interface {
	// GetByKey returns the document at collection/key, or ErrNotFound.
	GetByKey(ctx context.Context, collection, key string) (Document, error)

	// QueryByField returns all documents whose field equals value.
	QueryByField(ctx context.Context, collection, field, value string) ([]Document, error)

	// QueryOrdered returns all documents ordered by the given field.
	QueryOrdered(ctx context.Context, collection, orderField string, dir Direction) ([]Document, error)

	// Put writes a document; merge=true merges fields into any existing doc.
	Put(ctx context.Context, collection, key string, fields map[string]any, merge bool) error

	// Delete removes a document. Deleting a missing document is not an error.
	Delete(ctx context.Context, collection, key string) error

	// Batch starts an atomic write group.
	Batch() Batch

	// Subscribe opens a live snapshot stream for a collection.
	Subscribe(ctx context.Context, collection string) (Subscription, error)
}
