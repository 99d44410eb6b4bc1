package store

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/crucible-sim/crucible/internal/models"
)

// FileStore keeps one JSON document per record under a data directory.
type FileStore struct {
	dir string

	mu      sync.RWMutex
	records map[string]*models.Record
	loaded  bool
}

// NewFileStore creates a FileStore rooted at dir, creating it if needed.
func NewFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}
	return &FileStore{
		dir:     dir,
		records: make(map[string]*models.Record),
	}, nil
}

// load reads all record JSON files from the data directory.
func (fs *FileStore) load() error {
	fs.records = make(map[string]*models.Record)

	entries, err := os.ReadDir(fs.dir)
	if err != nil {
		if os.IsNotExist(err) {
			fs.loaded = true
			return nil
		}
		return err
	}

	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".json") {
			continue
		}
		data, err := os.ReadFile(filepath.Join(fs.dir, e.Name()))
		if err != nil {
			continue
		}
		var rec models.Record
		if err := json.Unmarshal(data, &rec); err != nil {
			continue
		}
		if rec.ID == "" {
			rec.ID = strings.TrimSuffix(e.Name(), ".json")
		}
		fs.records[rec.ID] = &rec
	}

	fs.loaded = true
	return nil
}

func (fs *FileStore) ensureLoaded() error {
	if fs.loaded {
		return nil
	}
	return fs.load()
}

// persist writes a record document to disk. Caller holds the write lock.
func (fs *FileStore) persist(rec *models.Record) error {
	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling record: %w", err)
	}
	path := filepath.Join(fs.dir, rec.ID+".json")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing record file: %w", err)
	}
	return nil
}

// Create assigns an ID, persists the record, and returns the ID.
func (fs *FileStore) Create(rec *models.Record) (string, error) {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	if err := fs.ensureLoaded(); err != nil {
		return "", err
	}

	rec.ID = uuid.NewString()
	if err := fs.persist(rec); err != nil {
		return "", err
	}
	fs.records[rec.ID] = rec.Clone()
	return rec.ID, nil
}

// Get returns a copy of the record with the given ID.
func (fs *FileStore) Get(id string) (*models.Record, error) {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	if err := fs.ensureLoaded(); err != nil {
		return nil, err
	}

	rec, ok := fs.records[id]
	if !ok {
		return nil, ErrNotFound
	}
	return rec.Clone(), nil
}

// Update replaces the stored document for an existing record.
func (fs *FileStore) Update(rec *models.Record) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	if err := fs.ensureLoaded(); err != nil {
		return err
	}

	if _, ok := fs.records[rec.ID]; !ok {
		return ErrNotFound
	}
	if err := fs.persist(rec); err != nil {
		return err
	}
	fs.records[rec.ID] = rec.Clone()
	return nil
}

// List returns all records, newest first.
func (fs *FileStore) List() ([]*models.Record, error) {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	if err := fs.ensureLoaded(); err != nil {
		return nil, err
	}

	records := make([]*models.Record, 0, len(fs.records))
	for _, rec := range fs.records {
		records = append(records, rec.Clone())
	}
	sort.Slice(records, func(i, j int) bool {
		return records[i].CreatedAt.After(records[j].CreatedAt)
	})
	return records, nil
}

// Close is a no-op for the file backend.
func (fs *FileStore) Close() error { return nil }

// Ensure FileStore satisfies Store.
var _ Store = (*FileStore)(nil)
