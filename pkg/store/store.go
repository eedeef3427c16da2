// Package store persists the pairing identity and device role in a
// small state file, standing in for the key-value flash partition the
// hardware uses.
package store

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/bloco-robotics/bloco"
)

// state is the on-disk layout.
type state struct {
	PairedAddr string `yaml:"paired_addr,omitempty"`
	Role       string `yaml:"role,omitempty"`
}

// FileStore keeps its state in a single YAML file, rewritten atomically
// on every change.
type FileStore struct {
	mu   sync.Mutex
	path string
}

var _ bloco.Store = (*FileStore)(nil)

// NewFileStore uses path as the state file. The file is created lazily
// on first save; a missing file reads as empty state.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

func (s *FileStore) load() (state, error) {
	var st state
	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return st, nil
	}
	if err != nil {
		return st, fmt.Errorf("read state: %w", err)
	}
	if err := yaml.Unmarshal(data, &st); err != nil {
		return st, fmt.Errorf("parse state: %w", err)
	}
	return st, nil
}

func (s *FileStore) save(st state) error {
	data, err := yaml.Marshal(st)
	if err != nil {
		return fmt.Errorf("encode state: %w", err)
	}
	tmp := s.path + ".tmp"
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("state dir: %w", err)
	}
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write state: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("commit state: %w", err)
	}
	return nil
}

func (s *FileStore) SavePairedAddr(addr bloco.Addr) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, err := s.load()
	if err != nil {
		return err
	}
	st.PairedAddr = addr.String()
	return s.save(st)
}

func (s *FileStore) LoadPairedAddr() (bloco.Addr, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, err := s.load()
	if err != nil {
		return bloco.Addr{}, false, err
	}
	if st.PairedAddr == "" {
		return bloco.Addr{}, false, nil
	}
	addr, err := bloco.ParseAddr(st.PairedAddr)
	if err != nil {
		return bloco.Addr{}, false, err
	}
	return addr, true, nil
}

func (s *FileStore) ClearPairedAddr() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, err := s.load()
	if err != nil {
		return err
	}
	st.PairedAddr = ""
	return s.save(st)
}

func (s *FileStore) SaveRole(role bloco.Role) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, err := s.load()
	if err != nil {
		return err
	}
	st.Role = string(role)
	return s.save(st)
}
