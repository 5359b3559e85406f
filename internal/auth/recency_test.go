// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 AllianceGate Contributors

package auth

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRecencyListAdd(t *testing.T) {
	t.Parallel()

	t.Run("most recent first", func(t *testing.T) {
		t.Parallel()
		var l RecencyList
		l.Add("a")
		l.Add("b")
		l.Add("c")
		assert.Equal(t, []string{"c", "b", "a"}, l.Entries())
	})

	t.Run("re-adding moves to front without duplicating", func(t *testing.T) {
		t.Parallel()
		var l RecencyList
		l.Add("a")
		l.Add("b")
		l.Add("a")
		assert.Equal(t, []string{"a", "b"}, l.Entries())
	})

	t.Run("bounded at limit", func(t *testing.T) {
		t.Parallel()
		var l RecencyList
		for _, v := range []string{"a", "b", "c", "d", "e", "f"} {
			l.Add(v)
		}
		assert.Equal(t, []string{"f", "e", "d", "c", "b"}, l.Entries())
	})

	t.Run("empty values ignored", func(t *testing.T) {
		t.Parallel()
		var l RecencyList
		l.Add("")
		assert.Empty(t, l.Entries())
	})
}

func TestRecencyListReplace(t *testing.T) {
	t.Parallel()

	var l RecencyList
	l.Replace([]string{"a", "b", "c", "d", "e", "f", "g"})
	assert.Equal(t, []string{"a", "b", "c", "d", "e"}, l.Entries())

	l.Replace(nil)
	assert.Empty(t, l.Entries())
}

func TestRecencyListEntriesIsACopy(t *testing.T) {
	t.Parallel()

	var l RecencyList
	l.Add("a")
	entries := l.Entries()
	entries[0] = "mutated"
	assert.Equal(t, []string{"a"}, l.Entries())
}
