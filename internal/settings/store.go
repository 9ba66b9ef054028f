// Package settings persists per account+league preferences, most notably the
// stash tabs selected for tracking.
package settings

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/pelletier/go-toml/v2"
)

// StashTab is one persisted stash-tab selection entry.
type StashTab struct {
	Position int    `toml:"position"`
	Name     string `toml:"name"`
	IsMapTab bool   `toml:"map_tab"`
}

// League holds the settings of one league for one account.
type League struct {
	Account   string     `toml:"account"`
	Name      string     `toml:"name"`
	StashTabs []StashTab `toml:"stashtabs"`
}

// Scope identifies the account+league a selection belongs to.
type Scope struct {
	Account string
	League  string
}

func (s Scope) String() string { return s.Account + "/" + s.League }

// Valid reports whether both parts are set.
func (s Scope) Valid() bool {
	return strings.TrimSpace(s.Account) != "" && strings.TrimSpace(s.League) != ""
}

// ErrInvalidScope is returned for writes without account or league.
var ErrInvalidScope = errors.New("settings: scope needs account and league")

type document struct {
	Leagues []League `toml:"leagues"`
}

// Store is a TOML-file backed settings store. Writes go straight to disk.
type Store struct {
	mu   sync.Mutex
	path string
	doc  document
}

// Open loads path. A missing file yields an empty store.
func Open(path string) (*Store, error) {
	s := &Store{path: path}
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return s, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read settings: %w", err)
	}
	if err := toml.Unmarshal(data, &s.doc); err != nil {
		return nil, fmt.Errorf("parse settings %s: %w", path, err)
	}
	return s, nil
}

// Path returns the backing file.
func (s *Store) Path() string { return s.path }

func (s *Store) find(scope Scope) int {
	for i, l := range s.doc.Leagues {
		if strings.EqualFold(l.Account, scope.Account) && l.Name == scope.League {
			return i
		}
	}
	return -1
}

// Selection returns a copy of the persisted selection for scope, or nil.
func (s *Store) Selection(scope Scope) []StashTab {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.find(scope)
	if i < 0 || s.doc.Leagues[i].StashTabs == nil {
		return nil
	}
	return append([]StashTab(nil), s.doc.Leagues[i].StashTabs...)
}

// SaveSelection replaces the selection for scope and writes the file.
func (s *Store) SaveSelection(scope Scope, tabs []StashTab) error {
	if !scope.Valid() {
		return ErrInvalidScope
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	cp := append([]StashTab{}, tabs...)
	if i := s.find(scope); i >= 0 {
		s.doc.Leagues[i].StashTabs = cp
	} else {
		s.doc.Leagues = append(s.doc.Leagues, League{Account: scope.Account, Name: scope.League, StashTabs: cp})
	}
	return s.writeLocked()
}

// Leagues returns a copy of all stored leagues.
func (s *Store) Leagues() []League {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]League, len(s.doc.Leagues))
	for i, l := range s.doc.Leagues {
		l.StashTabs = append([]StashTab(nil), l.StashTabs...)
		out[i] = l
	}
	return out
}

func (s *Store) writeLocked() error {
	if s.path == "" {
		return nil
	}
	data, err := toml.Marshal(s.doc)
	if err != nil {
		return fmt.Errorf("encode settings: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("mkdir settings dir: %w", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(s.path), ".settings-*.toml")
	if err != nil {
		return fmt.Errorf("create temp settings: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("write settings: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("close settings: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("replace settings: %w", err)
	}
	return nil
}
