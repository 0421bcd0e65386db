// Package store holds the client's canonical copy of the board tree.
//
// The tree is never handed out by reference. Writers go through Patch, which
// transforms a private deep copy and swaps it in only if the transformation
// succeeds; readers get a Materialize view or a Snapshot clone.
package store

import (
	"errors"
	"sync"

	"github.com/dyluth/kanban/pkg/board"
)

// ErrNotLoaded is returned by Patch before the first Replace.
var ErrNotLoaded = errors.New("board not loaded")

// Store is safe for concurrent use. Patches are serialized by a single mutex.
type Store struct {
	mu      sync.RWMutex
	tree    *board.Board
	version uint64
}

// New returns an empty store. Call Replace before Patch.
func New() *Store {
	return &Store{}
}

// Replace overwrites the whole tree with a copy of tree. Used after a full
// fetch or a resync. A nil tree empties the store.
func (s *Store) Replace(tree *board.Board) {
	clone := tree.Clone()

	s.mu.Lock()
	defer s.mu.Unlock()
	s.tree = clone
	s.version++
}

// Patch applies fn to a deep copy of the current tree and installs the result
// atomically. If fn returns an error the tree is left as it was and the error
// is returned unchanged.
func (s *Store) Patch(fn func(tree *board.Board) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.tree == nil {
		return ErrNotLoaded
	}

	working := s.tree.Clone()
	if err := fn(working); err != nil {
		return err
	}

	s.tree = working
	s.version++
	return nil
}

// Materialize returns the filtered, sorted read-only view of the current tree,
// or nil if nothing is loaded.
func (s *Store) Materialize() *board.Board {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return board.Materialize(s.tree)
}

// Snapshot returns a deep copy of the raw tree, unfiltered and unsorted.
func (s *Store) Snapshot() *board.Board {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.tree.Clone()
}

// Loaded reports whether a tree has been installed.
func (s *Store) Loaded() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.tree != nil
}

// Version increments on every successful Replace or Patch.
func (s *Store) Version() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.version
}
