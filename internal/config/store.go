package config

import (
	"crypto/sha256"
	"encoding/hex"
	"os"
	"sync"
)

// Store is the file-backed inventory used by the console. It remembers the
// digest of the last document it wrote so a file watcher can tell the
// console's own saves apart from external edits.
type Store struct {
	path string

	mu         sync.Mutex
	lastDigest string
}

// NewStore returns a store rooted at path.
func NewStore(path string) *Store {
	return &Store{path: path}
}

// Path is the inventory file location.
func (s *Store) Path() string {
	return s.path
}

// Load reads the inventory, creating the default document when absent.
func (s *Store) Load() (*Inventory, error) {
	inv, err := Load(s.path)
	if err != nil {
		return nil, err
	}
	if data, err := os.ReadFile(s.path); err == nil {
		s.remember(data)
	}
	return inv, nil
}

// Save writes inv and records its digest.
func (s *Store) Save(inv *Inventory) error {
	data, err := inv.Save(s.path)
	if err != nil {
		return err
	}
	s.remember(data)
	return nil
}

// IsOwnWrite reports whether data is byte-identical to the last document
// this store loaded or wrote.
func (s *Store) IsOwnWrite(data []byte) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastDigest != "" && s.lastDigest == digest(data)
}

func (s *Store) remember(data []byte) {
	s.mu.Lock()
	s.lastDigest = digest(data)
	s.mu.Unlock()
}

func digest(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}
