package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	badger "github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"

	"github.com/crucible-sim/crucible/internal/models"
)

// BadgerStore persists records in an embedded Badger database, one JSON
// value per record keyed by ID.
type BadgerStore struct {
	db *badger.DB
}

// NewBadgerStore opens (or creates) a Badger database at path.
func NewBadgerStore(path string) (*BadgerStore, error) {
	opts := badger.DefaultOptions(path).WithLogger(nil)
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("opening badger database: %w", err)
	}
	return &BadgerStore{db: db}, nil
}

// Create assigns an ID, persists the record, and returns the ID.
func (bs *BadgerStore) Create(rec *models.Record) (string, error) {
	rec.ID = uuid.NewString()
	if err := bs.put(rec); err != nil {
		return "", err
	}
	return rec.ID, nil
}

// Get returns the record with the given ID.
func (bs *BadgerStore) Get(id string) (*models.Record, error) {
	var rec models.Record
	err := bs.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(id))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &rec)
		})
	})
	if err != nil {
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("reading record: %w", err)
	}
	return &rec, nil
}

// Update replaces the stored document for an existing record.
func (bs *BadgerStore) Update(rec *models.Record) error {
	if _, err := bs.Get(rec.ID); err != nil {
		return err
	}
	return bs.put(rec)
}

// List returns all records, newest first.
func (bs *BadgerStore) List() ([]*models.Record, error) {
	var records []*models.Record
	err := bs.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			var rec models.Record
			err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &rec)
			})
			if err != nil {
				return err
			}
			records = append(records, &rec)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("listing records: %w", err)
	}
	sort.Slice(records, func(i, j int) bool {
		return records[i].CreatedAt.After(records[j].CreatedAt)
	})
	return records, nil
}

// Close releases the underlying database.
func (bs *BadgerStore) Close() error { return bs.db.Close() }

func (bs *BadgerStore) put(rec *models.Record) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshaling record: %w", err)
	}
	err = bs.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(rec.ID), data)
	})
	if err != nil {
		return fmt.Errorf("writing record: %w", err)
	}
	return nil
}

// Ensure BadgerStore satisfies Store.
var _ Store = (*BadgerStore)(nil)
