// Package storage provides the byte oriented backends settings are persisted to.
package storage

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// ErrNotExist is returned when reading a name that has never been written.
var ErrNotExist = errors.New("storage: file does not exist")

// Storage is a flat namespace of small files.
type Storage interface {
	Exists(name string) bool
	OpenRead(name string) (io.ReadCloser, error)
	OpenWrite(name string) (io.WriteCloser, error)
}

// Dir stores files inside a directory of the local filesystem.
type Dir struct {
	root string
	perm os.FileMode
}

// NewDir returns a directory backend rooted at path. The directory is created
// if needed.
func NewDir(path string) (*Dir, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("storage directory must not be empty")
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolve storage directory: %w", err)
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, fmt.Errorf("create storage directory: %w", err)
	}
	return &Dir{root: abs, perm: 0o600}, nil
}

// Path returns the absolute filesystem path for name.
func (d *Dir) Path(name string) string {
	return filepath.Join(d.root, filepath.Base(name))
}

// Exists reports whether name is a regular file.
func (d *Dir) Exists(name string) bool {
	info, err := os.Stat(d.Path(name))
	return err == nil && !info.IsDir()
}

// OpenRead opens name for reading.
func (d *Dir) OpenRead(name string) (io.ReadCloser, error) {
	f, err := os.Open(d.Path(name))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ErrNotExist
		}
		return nil, fmt.Errorf("open %s: %w", name, err)
	}
	return f, nil
}

// OpenWrite returns a writer whose content replaces name atomically on Close.
// Closing after a failed write discards the temporary file.
func (d *Dir) OpenWrite(name string) (io.WriteCloser, error) {
	target := d.Path(name)
	tmp, err := os.CreateTemp(d.root, "."+filepath.Base(name)+".*")
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", name, err)
	}
	return &atomicFile{tmp: tmp, target: target, perm: d.perm}, nil
}

type atomicFile struct {
	tmp    *os.File
	target string
	perm   os.FileMode
	err    error
	closed bool
}

func (f *atomicFile) Write(p []byte) (int, error) {
	n, err := f.tmp.Write(p)
	if err != nil && f.err == nil {
		f.err = err
	}
	return n, err
}

func (f *atomicFile) Close() error {
	if f.closed {
		return nil
	}
	f.closed = true
	name := f.tmp.Name()
	if f.err != nil {
		f.tmp.Close()
		os.Remove(name)
		return f.err
	}
	if err := f.tmp.Sync(); err != nil {
		f.tmp.Close()
		os.Remove(name)
		return fmt.Errorf("sync %s: %w", f.target, err)
	}
	if err := f.tmp.Close(); err != nil {
		os.Remove(name)
		return fmt.Errorf("close %s: %w", f.target, err)
	}
	if err := os.Chmod(name, f.perm); err != nil {
		os.Remove(name)
		return fmt.Errorf("chmod %s: %w", f.target, err)
	}
	if err := os.Rename(name, f.target); err != nil {
		os.Remove(name)
		return fmt.Errorf("replace %s: %w", f.target, err)
	}
	return nil
}

// Memory keeps files in process memory. It is safe for concurrent use.
type Memory struct {
	mu    sync.Mutex
	files map[string][]byte
	// FailWrites makes OpenWrite fail, simulating a read-only medium.
	FailWrites bool
}

// NewMemory returns an empty in-memory backend.
func NewMemory() *Memory {
	return &Memory{files: make(map[string][]byte)}
}

// Exists reports whether name was written.
func (m *Memory) Exists(name string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.files[name]
	return ok
}

// OpenRead returns a reader over a snapshot of name.
func (m *Memory) OpenRead(name string) (io.ReadCloser, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.files[name]
	if !ok {
		return nil, ErrNotExist
	}
	return io.NopCloser(bytes.NewReader(append([]byte(nil), data...))), nil
}

// OpenWrite returns a writer that stores its content under name on Close.
func (m *Memory) OpenWrite(name string) (io.WriteCloser, error) {
	m.mu.Lock()
	fail := m.FailWrites
	m.mu.Unlock()
	if fail {
		return nil, fmt.Errorf("open %s for writing: read-only storage", name)
	}
	return &memoryFile{owner: m, name: name}, nil
}

// Put stores data under name directly.
func (m *Memory) Put(name string, data []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.files[name] = append([]byte(nil), data...)
}

// Get returns a copy of the content stored under name.
func (m *Memory) Get(name string) ([]byte, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.files[name]
	if !ok {
		return nil, false
	}
	return append([]byte(nil), data...), true
}

type memoryFile struct {
	owner  *Memory
	name   string
	buf    bytes.Buffer
	closed bool
}

func (f *memoryFile) Write(p []byte) (int, error) {
	if f.closed {
		return 0, os.ErrClosed
	}
	return f.buf.Write(p)
}

func (f *memoryFile) Close() error {
	if f.closed {
		return nil
	}
	f.closed = true
	f.owner.Put(f.name, f.buf.Bytes())
	return nil
}
