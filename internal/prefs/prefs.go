// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 AllianceGate Contributors

// Package prefs persists small client-side state: the last-known-good
// session snapshot, the login-form recency lists, and the last admin id.
// Everything lives in one JSON file under the XDG state directory; writes
// go through a temp file and rename so a crash never leaves a torn file.
package prefs

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/samber/oops"

	"github.com/alliancegate/alliancegate/internal/auth"
	"github.com/alliancegate/alliancegate/internal/xdg"
)

const fileName = "prefs.json"

// state is the on-disk shape. Field names are part of the file format.
type state struct {
	Session     *sessionSnapshot    `json:"session,omitempty"`
	Recents     map[string][]string `json:"recents,omitempty"`
	LastAdminID string              `json:"lastAdminId,omitempty"`
}

type sessionSnapshot struct {
	LoggedIn   bool   `json:"loggedIn"`
	Identifier string `json:"identifier"`
	Role       string `json:"role"`
	ServerID   string `json:"serverId"`
	AllianceID string `json:"allianceId"`
}

// Prefs is the persistent preferences store. Safe for concurrent use.
type Prefs struct {
	path string

	mu    sync.Mutex
	state state
}

// Open loads (or initializes) the preferences file in the given directory.
// An empty dir uses the XDG state directory.
func Open(dir string) (*Prefs, error) {
	if dir == "" {
		dir = xdg.StateDir()
	}
	if err := xdg.EnsureDir(dir); err != nil {
		return nil, oops.Code("PREFS_OPEN").Wrap(err)
	}

	p := &Prefs{path: filepath.Join(dir, fileName)}

	raw, err := os.ReadFile(p.path)
	switch {
	case errors.Is(err, os.ErrNotExist):
		return p, nil
	case err != nil:
		return nil, oops.Code("PREFS_OPEN").With("path", p.path).Wrap(err)
	}

	if err := json.Unmarshal(raw, &p.state); err != nil {
		// A corrupt prefs file is convenience state, not data; start over.
		p.state = state{}
	}
	return p, nil
}

// SaveSession persists the session snapshot.
func (p *Prefs) SaveSession(s auth.State) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.state.Session = &sessionSnapshot{
		LoggedIn:   s.LoggedIn,
		Identifier: s.Identifier,
		Role:       string(s.Role),
		ServerID:   s.Scope.ServerID,
		AllianceID: s.Scope.AllianceID,
	}
	return p.flushLocked()
}

// LoadSession returns the persisted session snapshot, if any.
func (p *Prefs) LoadSession() (auth.State, bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.state.Session == nil {
		return auth.State{}, false, nil
	}
	s := p.state.Session
	return auth.State{
		LoggedIn:   s.LoggedIn,
		Identifier: s.Identifier,
		Role:       auth.ParseRole(s.Role, auth.RoleUser),
		Scope:      auth.Scope{ServerID: s.ServerID, AllianceID: s.AllianceID},
	}, true, nil
}

// ClearSession removes the persisted session snapshot.
func (p *Prefs) ClearSession() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.state.Session = nil
	return p.flushLocked()
}

// Record adds a value to the named recency list and persists. Implements
// auth.RecencyRecorder; persistence failures are swallowed because recency
// is best-effort convenience state.
func (p *Prefs) Record(category auth.RecencyCategory, value string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	var list auth.RecencyList
	if p.state.Recents == nil {
		p.state.Recents = make(map[string][]string)
	}
	list.Replace(p.state.Recents[string(category)])
	list.Add(value)
	p.state.Recents[string(category)] = list.Entries()

	_ = p.flushLocked()
}

// Recents returns the recency list for a category, most recent first.
func (p *Prefs) Recents(category auth.RecencyCategory) []string {
	p.mu.Lock()
	defer p.mu.Unlock()

	var list auth.RecencyList
	list.Replace(p.state.Recents[string(category)])
	return list.Entries()
}

// SetLastAdminID persists the admin id most recently worked on.
func (p *Prefs) SetLastAdminID(adminID string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.state.LastAdminID = adminID
	return p.flushLocked()
}

// LastAdminID returns the persisted last admin id, or "".
func (p *Prefs) LastAdminID() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state.LastAdminID
}

// Reset wipes all persisted preferences.
func (p *Prefs) Reset() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.state = state{}
	return p.flushLocked()
}

func (p *Prefs) flushLocked() error {
	raw, err := json.MarshalIndent(p.state, "", "  ")
	if err != nil {
		return oops.Code("PREFS_WRITE").Wrap(err)
	}

	tmp := fmt.Sprintf("%s.tmp", p.path)
	if err := os.WriteFile(tmp, raw, 0o600); err != nil {
		return oops.Code("PREFS_WRITE").With("path", tmp).Wrap(err)
	}
	if err := os.Rename(tmp, p.path); err != nil {
		return oops.Code("PREFS_WRITE").With("path", p.path).Wrap(err)
	}
	return nil
}
