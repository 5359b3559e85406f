// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 AllianceGate Contributors

package auth

// RecencyLimit bounds each recency list.
const RecencyLimit = 5

// RecencyCategory names one of the independent recency lists kept to
// prepopulate login forms. Never used for authorization.
type RecencyCategory string

const (
	RecentServers   RecencyCategory = "server"
	RecentAlliances RecencyCategory = "alliance"
	RecentUserIDs   RecencyCategory = "userid"
)

// RecencyRecorder receives successful-login values for later recall. The
// resolver treats recording as best effort; failures never affect the
// resolution result.
type RecencyRecorder interface {
	Record(category RecencyCategory, value string)
}

// RecencyList is a bounded most-recent-first list with deduplication.
// The zero value is ready to use.
type RecencyList struct {
	entries []string
}

// Add inserts the value at the front, removing any existing occurrence and
// trimming to RecencyLimit. Empty values are ignored.
func (l *RecencyList) Add(value string) {
	if value == "" {
		return
	}
	next := make([]string, 0, len(l.entries)+1)
	next = append(next, value)
	for _, e := range l.entries {
		if e != value {
			next = append(next, e)
		}
	}
	if len(next) > RecencyLimit {
		next = next[:RecencyLimit]
	}
	l.entries = next
}

// Entries returns the list most-recent-first. The returned slice is a copy.
func (l *RecencyList) Entries() []string {
	return append([]string(nil), l.entries...)
}

// Replace overwrites the list contents, applying the same bound. Used when
// rehydrating persisted lists.
func (l *RecencyList) Replace(entries []string) {
	if len(entries) > RecencyLimit {
		entries = entries[:RecencyLimit]
	}
	l.entries = append([]string(nil), entries...)
}
