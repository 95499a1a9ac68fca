package store

import (
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	bolt "github.com/boltdb/bolt"

	"github.com/simplepos/pos-backend/internal/models"
)

var (
	metaBucket  = []byte("meta")
	txnBucket   = []byte("transactions")
	merchantKey = []byte("merchant")
)

// BoltStore keeps the dataset in a BoltDB file: the merchant document under
// the meta bucket and each transaction under an ordered index key, so
// insertion order survives a round-trip. Bolt runs each Update in its own
// transaction, which gives Save the same all-or-nothing visibility as the
// file driver's rename.
type BoltStore struct{ db *bolt.DB }

// OpenBolt opens (or creates) the database file and ensures the buckets
// exist. The open timeout covers the case of another process holding the
// file lock.
func OpenBolt(path string) (*BoltStore, error) {
	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		if _, err := tx.CreateBucketIfNotExists(metaBucket); err != nil {
			return err
		}
		_, err := tx.CreateBucketIfNotExists(txnBucket)
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return &BoltStore{db: db}, nil
}

// Close releases the database file lock.
func (s *BoltStore) Close() error { return s.db.Close() }

func (s *BoltStore) Load() (models.Dataset, error) {
	var d models.Dataset
	err := s.db.View(func(tx *bolt.Tx) error {
		raw := tx.Bucket(metaBucket).Get(merchantKey)
		if raw == nil {
			// Never seeded: same contract as a missing file.
			return ErrUnavailable
		}
		d.Merchant = append(models.Merchant(nil), raw...)
		return tx.Bucket(txnBucket).ForEach(func(k, v []byte) error {
			var t models.Transaction
			if err := json.Unmarshal(v, &t); err != nil {
				return fmt.Errorf("%w: %v", ErrCorrupt, err)
			}
			d.Transactions = append(d.Transactions, t)
			return nil
		})
	})
	if err != nil {
		if errors.Is(err, ErrUnavailable) || errors.Is(err, ErrCorrupt) {
			return models.Dataset{}, err
		}
		return models.Dataset{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if d.Transactions == nil {
		d.Transactions = []models.Transaction{}
	}
	return d, nil
}

func (s *BoltStore) Save(d models.Dataset) error {
	err := s.db.Update(func(tx *bolt.Tx) error {
		if err := tx.Bucket(metaBucket).Put(merchantKey, d.Merchant); err != nil {
			return err
		}
		// Save replaces the full persisted state, so the transaction
		// bucket is rebuilt rather than merged.
		if err := tx.DeleteBucket(txnBucket); err != nil {
			return err
		}
		b, err := tx.CreateBucket(txnBucket)
		if err != nil {
			return err
		}
		for i, t := range d.Transactions {
			v, err := json.Marshal(t)
			if err != nil {
				return err
			}
			k := make([]byte, 8)
			binary.BigEndian.PutUint64(k, uint64(i))
			if err := b.Put(k, v); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}
