package receipt

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.etcd.io/bbolt"
)

const (
	receiptBucketName = "receipts"
	reviewBucketName  = "reviews"
)

// ErrNotFound is returned when a receipt or review does not exist
var ErrNotFound = errors.New("not found")

// DB defines the interface for database operations
type DB interface {
	// SaveReceipt saves a receipt to the database
	SaveReceipt(receipt *Receipt) error

	// GetReceipt retrieves a receipt by ID
	GetReceipt(id string) (*Receipt, error)

	// ListReceipts returns all receipts
	ListReceipts() ([]*Receipt, error)

	// DeleteReceipt removes a receipt from the database
	DeleteReceipt(id string) error

	// SaveReview saves a review and links it to its receipt in one transaction
	SaveReview(review *Review) error

	// GetReview retrieves a review by ID
	GetReview(id string) (*Review, error)

	// ListReviews returns all reviews
	ListReviews() ([]*Review, error)

	// DeleteReview removes a review from the database
	DeleteReview(id string) error

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
		for _, name := range []string{receiptBucketName, reviewBucketName} {
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

// SaveReceipt saves a receipt to the database
func (b *BoltDB) SaveReceipt(receipt *Receipt) error {
	return b.db.Update(func(tx *bbolt.Tx) error {
		return put(tx.Bucket([]byte(receiptBucketName)), receipt.ID, receipt)
	})
}

// GetReceipt retrieves a receipt by ID
func (b *BoltDB) GetReceipt(id string) (*Receipt, error) {
	var receipt Receipt
	err := b.db.View(func(tx *bbolt.Tx) error {
		return get(tx.Bucket([]byte(receiptBucketName)), id, &receipt)
	})
	if err != nil {
		return nil, fmt.Errorf("receipt %s: %w", id, err)
	}
	return &receipt, nil
}

// ListReceipts returns all receipts
func (b *BoltDB) ListReceipts() ([]*Receipt, error) {
	receipts := make([]*Receipt, 0)
	err := b.db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket([]byte(receiptBucketName)).ForEach(func(k, v []byte) error {
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

// DeleteReceipt removes a receipt from the database
func (b *BoltDB) DeleteReceipt(id string) error {
	return b.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket([]byte(receiptBucketName)).Delete([]byte(id))
	})
}

// SaveReview stores the review and sets ReviewID on its receipt
func (b *BoltDB) SaveReview(review *Review) error {
	return b.db.Update(func(tx *bbolt.Tx) error {
		receipts := tx.Bucket([]byte(receiptBucketName))
		var receipt Receipt
		if err := get(receipts, review.ReceiptID, &receipt); err != nil {
			return fmt.Errorf("receipt %s: %w", review.ReceiptID, err)
		}
		receipt.ReviewID = review.ID
		receipt.UpdatedAt = review.CreatedAt
		if err := put(receipts, receipt.ID, &receipt); err != nil {
			return err
		}
		return put(tx.Bucket([]byte(reviewBucketName)), review.ID, review)
	})
}

// GetReview retrieves a review by ID
func (b *BoltDB) GetReview(id string) (*Review, error) {
	var review Review
	err := b.db.View(func(tx *bbolt.Tx) error {
		return get(tx.Bucket([]byte(reviewBucketName)), id, &review)
	})
	if err != nil {
		return nil, fmt.Errorf("review %s: %w", id, err)
	}
	return &review, nil
}

// ListReviews returns all reviews
func (b *BoltDB) ListReviews() ([]*Review, error) {
	reviews := make([]*Review, 0)
	err := b.db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket([]byte(reviewBucketName)).ForEach(func(k, v []byte) error {
			var review Review
			if err := json.Unmarshal(v, &review); err != nil {
				return fmt.Errorf("unmarshaling review %s: %w", k, err)
			}
			reviews = append(reviews, &review)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return reviews, nil
}

// DeleteReview removes a review from the database
func (b *BoltDB) DeleteReview(id string) error {
	return b.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket([]byte(reviewBucketName)).Delete([]byte(id))
	})
}

// Close closes the database connection
func (b *BoltDB) Close() error {
	return b.db.Close()
}

func put(bucket *bbolt.Bucket, id string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshaling %s: %w", id, err)
	}
	return bucket.Put([]byte(id), data)
}

func get(bucket *bbolt.Bucket, id string, v any) error {
	data := bucket.Get([]byte(id))
	if data == nil {
		return ErrNotFound
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("unmarshaling %s: %w", id, err)
	}
	return nil
}
