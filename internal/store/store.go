package store

import (
	"errors"

	"github.com/simplepos/pos-backend/internal/models"
)

var (
	// ErrUnavailable means the backing medium is missing or cannot be
	// read or written.
	ErrUnavailable = errors.New("storage unavailable")
	// ErrCorrupt means the persisted content does not parse into a dataset.
	ErrCorrupt = errors.New("corrupt dataset")
)

// Store keeps the full dataset. Save replaces the prior content and must
// appear atomic to concurrent readers. Callers doing read-modify-write
// serialize through the service-level mutation lock; the store itself does
// not detect stale reads.
type Store interface {
	Load() (models.Dataset, error)
	Save(models.Dataset) error
}
