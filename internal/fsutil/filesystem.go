// Package fsutil provides the persistence collaborator used by the evaluator:
// a small filesystem abstraction with OS and in-memory backends, JSON
// dump/load helpers and scoped scratch directories.
package fsutil

import (
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"
)

// FileSystem is what the loader and the artifact writer need from disk.
// The methods mirror their os package namesakes.
type FileSystem interface {
	ReadFile(name string) ([]byte, error)
	WriteFile(name string, data []byte, perm os.FileMode) error
	Stat(name string) (fs.FileInfo, error)
	MkdirAll(path string, perm os.FileMode) error
	// MkdirTemp creates a uniquely named directory under dir and returns
	// its path.
	MkdirTemp(dir, pattern string) (string, error)
	RemoveAll(path string) error
	// Exists reports whether name is a file or directory.
	Exists(name string) bool
}

// OSFileSystem is the FileSystem backed by the host.
type OSFileSystem struct{}

func (OSFileSystem) ReadFile(name string) ([]byte, error) { return os.ReadFile(name) }

func (OSFileSystem) WriteFile(name string, data []byte, perm os.FileMode) error {
	return os.WriteFile(name, data, perm)
}

func (OSFileSystem) Stat(name string) (fs.FileInfo, error) { return os.Stat(name) }

func (OSFileSystem) MkdirAll(path string, perm os.FileMode) error { return os.MkdirAll(path, perm) }

func (OSFileSystem) MkdirTemp(dir, pattern string) (string, error) { return os.MkdirTemp(dir, pattern) }

func (OSFileSystem) RemoveAll(path string) error { return os.RemoveAll(path) }

func (OSFileSystem) Exists(name string) bool {
	_, err := os.Stat(name)
	return err == nil
}

// MemoryFileSystem keeps files in a map. It records every path written so
// tests can assert what an evaluation persisted.
type MemoryFileSystem struct {
	mu      sync.RWMutex
	entries map[string]*memEntry
	writes  []string
	tempSeq int
}

// memEntry is a file (data set) or a directory (dir set).
type memEntry struct {
	data []byte
	dir  bool
}

func NewMemoryFileSystem() *MemoryFileSystem {
	return &MemoryFileSystem{entries: make(map[string]*memEntry)}
}

func (m *MemoryFileSystem) lookup(name string) (string, *memEntry) {
	name = filepath.Clean(name)
	return name, m.entries[name]
}

func (m *MemoryFileSystem) ReadFile(name string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	name, e := m.lookup(name)
	if e == nil || e.dir {
		return nil, &fs.PathError{Op: "read", Path: name, Err: fs.ErrNotExist}
	}
	return append([]byte(nil), e.data...), nil
}

func (m *MemoryFileSystem) WriteFile(name string, data []byte, _ os.FileMode) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	name = filepath.Clean(name)
	if e := m.entries[name]; e != nil && e.dir {
		return &fs.PathError{Op: "write", Path: name, Err: fs.ErrExist}
	}
	m.entries[name] = &memEntry{data: append([]byte{}, data...)}
	m.writes = append(m.writes, name)
	return nil
}

func (m *MemoryFileSystem) Stat(name string) (fs.FileInfo, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	name, e := m.lookup(name)
	switch {
	case e == nil:
		return nil, &fs.PathError{Op: "stat", Path: name, Err: fs.ErrNotExist}
	case e.dir:
		return memFileInfo{name: filepath.Base(name), mode: fs.ModeDir | 0o755}, nil
	default:
		return memFileInfo{name: filepath.Base(name), size: int64(len(e.data)), mode: 0o644}, nil
	}
}

func (m *MemoryFileSystem) MkdirAll(path string, _ os.FileMode) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.mkdirAllLocked(filepath.Clean(path))
	return nil
}

func (m *MemoryFileSystem) mkdirAllLocked(path string) {
	for p := path; p != "." && p != "/"; p = filepath.Dir(p) {
		if _, ok := m.entries[p]; !ok {
			m.entries[p] = &memEntry{dir: true}
		}
		if filepath.Dir(p) == p {
			break
		}
	}
}

// MkdirTemp creates a numbered directory. An empty dir means /tmp.
func (m *MemoryFileSystem) MkdirTemp(dir, pattern string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if dir == "" {
		dir = "/tmp"
	}
	m.tempSeq++
	name := filepath.Join(dir, strings.ReplaceAll(pattern, "*", "")+strconv.Itoa(m.tempSeq))
	m.mkdirAllLocked(name)
	return name, nil
}

func (m *MemoryFileSystem) RemoveAll(path string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	path = filepath.Clean(path)
	for name := range m.entries {
		if name == path || strings.HasPrefix(name, path+string(filepath.Separator)) {
			delete(m.entries, name)
		}
	}
	return nil
}

func (m *MemoryFileSystem) Exists(name string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, e := m.lookup(name)
	return e != nil
}

// Writes returns every path passed to WriteFile, in order.
func (m *MemoryFileSystem) Writes() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]string(nil), m.writes...)
}

type memFileInfo struct {
	name string
	size int64
	mode fs.FileMode
}

func (i memFileInfo) Name() string       { return i.name }
func (i memFileInfo) Size() int64        { return i.size }
func (i memFileInfo) Mode() fs.FileMode  { return i.mode }
func (i memFileInfo) ModTime() time.Time { return time.Time{} }
func (i memFileInfo) IsDir() bool        { return i.mode.IsDir() }
func (i memFileInfo) Sys() any           { return nil }
