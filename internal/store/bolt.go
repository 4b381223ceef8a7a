package store

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"time"

	"exoplanet-backend/internal/models"

	"go.etcd.io/bbolt"
)

var (
	predictionsBucket = []byte("predictions")
	byTimeBucket      = []byte("predictions_by_time")
)

// BoltStore keeps predictions as JSON values keyed by id, with a secondary
// bucket ordered by timestamp for paging.
type BoltStore struct {
	db *bbolt.DB
}

func OpenBolt(path string) (*BoltStore, error) {
	if path == "" {
		return nil, fmt.Errorf("bolt store requires a file path")
	}
	db, err := bbolt.Open(path, 0o600, &bbolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("open bolt %s: %w", path, err)
	}
	err = db.Update(func(tx *bbolt.Tx) error {
		if _, err := tx.CreateBucketIfNotExists(predictionsBucket); err != nil {
			return err
		}
		_, err := tx.CreateBucketIfNotExists(byTimeBucket)
		return err
	})
	if err != nil {
		db.Close()
		return nil, err
	}
	return &BoltStore{db: db}, nil
}

// timeKey orders by big-endian nanoseconds, then id.
func timeKey(p models.Prediction) []byte {
	key := make([]byte, 8, 8+len(p.ID))
	binary.BigEndian.PutUint64(key, uint64(p.Timestamp.UnixNano()))
	return append(key, p.ID...)
}

func putPrediction(tx *bbolt.Tx, p models.Prediction) error {
	data, err := json.Marshal(p)
	if err != nil {
		return err
	}
	b := tx.Bucket(predictionsBucket)
	if old := b.Get([]byte(p.ID)); old != nil {
		var prev models.Prediction
		if err := json.Unmarshal(old, &prev); err == nil {
			if err := tx.Bucket(byTimeBucket).Delete(timeKey(prev)); err != nil {
				return err
			}
		}
	}
	if err := b.Put([]byte(p.ID), data); err != nil {
		return err
	}
	return tx.Bucket(byTimeBucket).Put(timeKey(p), []byte(p.ID))
}

func (s *BoltStore) Save(_ context.Context, p models.Prediction) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		return putPrediction(tx, p)
	})
}

func (s *BoltStore) SaveBatch(_ context.Context, ps []models.Prediction) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		for _, p := range ps {
			if err := putPrediction(tx, p); err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *BoltStore) Get(_ context.Context, id string) (models.Prediction, error) {
	var p models.Prediction
	err := s.db.View(func(tx *bbolt.Tx) error {
		v := tx.Bucket(predictionsBucket).Get([]byte(id))
		if v == nil {
			return ErrNotFound
		}
		return json.Unmarshal(v, &p)
	})
	return p, err
}

func (s *BoltStore) List(_ context.Context, page, limit int) ([]models.Prediction, int, error) {
	_, limit, offset := pageBounds(page, limit)
	out := []models.Prediction{}
	total := 0

	err := s.db.View(func(tx *bbolt.Tx) error {
		preds := tx.Bucket(predictionsBucket)
		total = preds.Stats().KeyN

		c := tx.Bucket(byTimeBucket).Cursor()
		skipped := 0
		for k, id := c.Last(); k != nil && len(out) < limit; k, id = c.Prev() {
			if skipped < offset {
				skipped++
				continue
			}
			v := preds.Get(id)
			if v == nil {
				continue
			}
			var p models.Prediction
			if err := json.Unmarshal(v, &p); err != nil {
				return err
			}
			out = append(out, p)
		}
		return nil
	})
	return out, total, err
}

func (s *BoltStore) SetActual(_ context.Context, id, actual string) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(predictionsBucket)
		v := b.Get([]byte(id))
		if v == nil {
			return ErrNotFound
		}
		var p models.Prediction
		if err := json.Unmarshal(v, &p); err != nil {
			return err
		}
		p.Actual = actual
		data, err := json.Marshal(p)
		if err != nil {
			return err
		}
		return b.Put([]byte(id), data)
	})
}

func (s *BoltStore) All(_ context.Context) ([]models.Prediction, error) {
	out := []models.Prediction{}
	err := s.db.View(func(tx *bbolt.Tx) error {
		preds := tx.Bucket(predictionsBucket)
		return tx.Bucket(byTimeBucket).ForEach(func(_, id []byte) error {
			v := preds.Get(id)
			if v == nil {
				return nil
			}
			var p models.Prediction
			if err := json.Unmarshal(v, &p); err != nil {
				return err
			}
			out = append(out, p)
			return nil
		})
	})
	return out, err
}

func (s *BoltStore) Available() bool { return true }

func (s *BoltStore) Close() error {
	return s.db.Close()
}
