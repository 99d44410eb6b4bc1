// Package store persists simulation records as keyed JSON documents. Two
// backends implement the same contract: a directory of JSON files and an
// embedded Badger database.
package store

import (
	"errors"

	"github.com/crucible-sim/crucible/internal/models"
)

// ErrNotFound is returned when a record ID does not match any stored record.
var ErrNotFound = errors.New("simulation not found")

// Store provides keyed access to simulation records. Create assigns the ID;
// Update replaces the stored document for an existing ID.
type Store interface {
	Create(rec *models.Record) (string, error)
	Get(id string) (*models.Record, error)
	Update(rec *models.Record) error
	// List returns all records, newest first.
	List() ([]*models.Record, error)
	Close() error
}
