package state

import (
	"errors"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"exoplanet-backend/internal/models"
)

// Listener is notified after a new snapshot has been published.
type Listener func(prev, next *Dataset)

// Store holds the current dataset snapshot. Readers take a snapshot with
// Snapshot and keep using it for the whole request; a reload publishes a
// new pointer and never touches the old one.
type Store struct {
	path    string
	load    func(path string) (*Dataset, error)
	current atomic.Pointer[Dataset]
	version atomic.Uint64

	// reloadMu serialises read-and-publish so reloads publish in order.
	reloadMu sync.Mutex

	mu        sync.Mutex
	listeners []Listener
	lastErr   error
	lastErrAt time.Time
}

// NewStore creates a store backed by the file at path. Nothing is loaded
// until Load is called.
func NewStore(path string) *Store {
	return &Store{path: path, load: LoadFile}
}

func (s *Store) Path() string {
	return s.path
}

// Snapshot returns the current dataset, or nil before the first load.
func (s *Store) Snapshot() *Dataset {
	return s.current.Load()
}

// Subscribe registers fn to run after every successful publish.
func (s *Store) Subscribe(fn Listener) {
	s.mu.Lock()
	s.listeners = append(s.listeners, fn)
	s.mu.Unlock()
}

// Load performs the initial load. It is an error for the file to be
// missing, unreadable or empty.
func (s *Store) Load() error {
	return s.Reload()
}

// Reload re-reads the backing file. On failure the prior snapshot stays
// active and the error is recorded for Status.
func (s *Store) Reload() error {
	if s.path == "" {
		return errors.New("no dataset path configured")
	}

	s.reloadMu.Lock()
	defer s.reloadMu.Unlock()

	ds, err := s.load(s.path)
	if err != nil {
		s.mu.Lock()
		s.lastErr = err
		s.lastErrAt = time.Now()
		s.mu.Unlock()
		if s.Snapshot() != nil {
			log.Printf("[Dataset] Reload failed, keeping version %d: %v", s.Snapshot().Version, err)
		}
		return err
	}

	s.Publish(ds)
	log.Printf("[Dataset] Loaded %s: %d rows, %d columns (version %d)", s.path, ds.Len(), len(ds.Columns()), ds.Version)
	return nil
}

// Publish stamps ds with the next version and makes it current.
func (s *Store) Publish(ds *Dataset) {
	s.mu.Lock()
	ds.Version = s.version.Add(1)
	if ds.LoadedAt.IsZero() {
		ds.LoadedAt = time.Now()
	}
	prev := s.current.Swap(ds)
	s.lastErr = nil
	listeners := make([]Listener, len(s.listeners))
	copy(listeners, s.listeners)
	s.mu.Unlock()

	for _, fn := range listeners {
		fn(prev, ds)
	}
}

// Status reports the active snapshot and the last reload error, if any.
func (s *Store) Status(labelColumn string) models.DatasetStatus {
	ds := s.Snapshot()
	status := models.DatasetStatus{
		Path:        s.path,
		LabelColumn: labelColumn,
	}
	if ds != nil {
		status.Loaded = true
		status.Version = ds.Version
		status.Rows = ds.Len()
		status.ColumnNames = ds.Columns()
		status.Columns = len(status.ColumnNames)
		status.LoadedAt = ds.LoadedAt
		if ds.Path != "" {
			status.Path = ds.Path
		}
	}

	s.mu.Lock()
	if s.lastErr != nil {
		status.LastError = s.lastErr.Error()
		at := s.lastErrAt
		status.LastErrorAt = &at
	}
	s.mu.Unlock()
	return status
}
