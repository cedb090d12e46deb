package session

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// Record is the persisted identity of a session. Credentials live in the
// per-session whatsmeow store; this file only remembers which sessions to
// restore on boot.
type Record struct {
	ID          string    `json:"id"`
	Name        string    `json:"name,omitempty"`
	PhoneNumber string    `json:"phoneNumber,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
}

type metadataFile struct {
	Sessions []Record `json:"sessions"`
}

// Store persists session records as a single JSON file.
type Store struct {
	path string
	mu   sync.Mutex
}

func NewStore(path string) *Store {
	return &Store{path: path}
}

// Load reads all records. A missing file yields an empty list. Malformed
// records are skipped so one bad entry never blocks the rest.
func (s *Store) Load() ([]Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}

	var file metadataFile
	if err := json.Unmarshal(data, &file); err != nil {
		logrus.WithError(err).Warnf("[SESSION] Metadata file %s is corrupt, starting empty", s.path)
		return nil, nil
	}

	records := make([]Record, 0, len(file.Sessions))
	for _, rec := range file.Sessions {
		if rec.ID == "" {
			logrus.Warnf("[SESSION] Skipping metadata record without id")
			continue
		}
		records = append(records, rec)
	}
	return records, nil
}

// Save atomically replaces the metadata file with the given records.
func (s *Store) Save(records []Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(s.path), 0755); err != nil {
		return err
	}

	data, err := json.MarshalIndent(metadataFile{Sessions: records}, "", "  ")
	if err != nil {
		return err
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return err
	}
	return os.Rename(tmp, s.path)
}
