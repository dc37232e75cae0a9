package receipt

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.etcd.io/bbolt"
)

const (
	receiptBucket    = "receipts"
	settlementBucket = "settlements"
)

// ErrNotFound is returned when a record does not exist
var ErrNotFound = errors.New("not found")

// DB defines the interface for database operations
type DB interface {
	// SaveReceipt inserts or replaces a receipt
	SaveReceipt(receipt *Receipt) error

	// GetReceipt retrieves a receipt by ID
	GetReceipt(id string) (*Receipt, error)

	// ListReceipts returns all receipts
	ListReceipts() ([]*Receipt, error)

	// DeleteReceipt removes a receipt and its settlements
	DeleteReceipt(id string) error

	// SaveSettlement stores a settlement for a receipt
	SaveSettlement(s *Settlement) error

	// ListSettlements returns the settlements of one receipt, oldest first
	ListSettlements(receiptID string) ([]*Settlement, error)

	// Close closes the database connection
	Close() error
}

// BoltDB implements the DB interface using BoltDB
type BoltDB struct {
	db *bbolt.DB
}

// NewBoltDB creates a new BoltDB instance
func NewBoltDB(path string) (*BoltDB, error) {
	db, err := bbolt.Open(path, 0600, &bbolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("opening boltdb: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		for _, name := range []string{receiptBucket, settlementBucket} {
			if _, err := tx.CreateBucketIfNotExists([]byte(name)); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating buckets: %w", err)
	}

	return &BoltDB{db: db}, nil
}

// settlementKey groups settlements under their receipt so a prefix scan
// finds them in insertion order
func settlementKey(s *Settlement) []byte {
	return []byte(fmt.Sprintf("%s/%020d/%s", s.ReceiptID, s.CreatedAt.UnixNano(), s.ID))
}

// SaveReceipt saves a receipt to the database
func (b *BoltDB) SaveReceipt(receipt *Receipt) error {
	data, err := json.Marshal(receipt)
	if err != nil {
		return fmt.Errorf("marshaling receipt: %w", err)
	}
	return b.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket([]byte(receiptBucket)).Put([]byte(receipt.ID), data)
	})
}

// GetReceipt retrieves a receipt by ID
func (b *BoltDB) GetReceipt(id string) (*Receipt, error) {
	var receipt Receipt
	err := b.db.View(func(tx *bbolt.Tx) error {
		data := tx.Bucket([]byte(receiptBucket)).Get([]byte(id))
		if data == nil {
			return fmt.Errorf("receipt %s: %w", id, ErrNotFound)
		}
		return json.Unmarshal(data, &receipt)
	})
	if err != nil {
		return nil, err
	}
	return &receipt, nil
}

// ListReceipts returns all receipts
func (b *BoltDB) ListReceipts() ([]*Receipt, error) {
	receipts := make([]*Receipt, 0)
	err := b.db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket([]byte(receiptBucket)).ForEach(func(k, v []byte) error {
			var receipt Receipt
			if err := json.Unmarshal(v, &receipt); err != nil {
				return fmt.Errorf("unmarshaling receipt %s: %w", k, err)
			}
			receipts = append(receipts, &receipt)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return receipts, nil
}

// DeleteReceipt removes a receipt and every settlement stored for it
func (b *BoltDB) DeleteReceipt(id string) error {
	return b.db.Update(func(tx *bbolt.Tx) error {
		receipts := tx.Bucket([]byte(receiptBucket))
		if receipts.Get([]byte(id)) == nil {
			return fmt.Errorf("receipt %s: %w", id, ErrNotFound)
		}
		if err := receipts.Delete([]byte(id)); err != nil {
			return err
		}

		prefix := []byte(id + "/")
		c := tx.Bucket([]byte(settlementBucket)).Cursor()
		for k, _ := c.Seek(prefix); k != nil && bytes.HasPrefix(k, prefix); k, _ = c.Seek(prefix) {
			if err := c.Delete(); err != nil {
				return err
			}
		}
		return nil
	})
}

// SaveSettlement stores a settlement keyed under its receipt
func (b *BoltDB) SaveSettlement(s *Settlement) error {
	data, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("marshaling settlement: %w", err)
	}
	return b.db.Update(func(tx *bbolt.Tx) error {
		if tx.Bucket([]byte(receiptBucket)).Get([]byte(s.ReceiptID)) == nil {
			return fmt.Errorf("receipt %s: %w", s.ReceiptID, ErrNotFound)
		}
		return tx.Bucket([]byte(settlementBucket)).Put(settlementKey(s), data)
	})
}

// ListSettlements returns the settlements stored for a receipt
func (b *BoltDB) ListSettlements(receiptID string) ([]*Settlement, error) {
	settlements := make([]*Settlement, 0)
	prefix := []byte(receiptID + "/")
	err := b.db.View(func(tx *bbolt.Tx) error {
		c := tx.Bucket([]byte(settlementBucket)).Cursor()
		for k, v := c.Seek(prefix); k != nil && bytes.HasPrefix(k, prefix); k, v = c.Next() {
			var s Settlement
			if err := json.Unmarshal(v, &s); err != nil {
				return fmt.Errorf("unmarshaling settlement %s: %w", k, err)
			}
			settlements = append(settlements, &s)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return settlements, nil
}

// Close closes the database connection
func (b *BoltDB) Close() error {
	return b.db.Close()
}

