package fsutil

import (
	"errors"
	"path/filepath"
	"sync"
)

// ErrReleased is returned by Path after Release has run.
var ErrReleased = errors.New("scratch directory already released")

// ScratchDir is a lazily created temporary directory. The directory is made on
// the first call to Path and removed by Release, which is safe to defer and to
// call more than once; only the first call removes anything.
type ScratchDir struct {
	fs      FileSystem
	pattern string

	mu       sync.Mutex
	path     string
	released bool
}

// NewScratchDir returns an unallocated scratch directory on fsys.
func NewScratchDir(fsys FileSystem, pattern string) *ScratchDir {
	return &ScratchDir{fs: fsys, pattern: pattern}
}

// Path creates the directory if needed and returns it.
func (s *ScratchDir) Path() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.released {
		return "", ErrReleased
	}
	if s.path != "" {
		return s.path, nil
	}
	p, err := s.fs.MkdirTemp("", s.pattern)
	if err != nil {
		return "", err
	}
	s.path = p
	return p, nil
}

// Join returns name inside the directory, creating it if needed.
func (s *ScratchDir) Join(name string) (string, error) {
	p, err := s.Path()
	if err != nil {
		return "", err
	}
	return filepath.Join(p, name), nil
}

// Created reports whether the directory has been allocated.
func (s *ScratchDir) Created() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.path != ""
}

// Release removes the directory if it was created.
func (s *ScratchDir) Release() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.released {
		return nil
	}
	s.released = true
	if s.path == "" {
		return nil
	}
	return s.fs.RemoveAll(s.path)
}
