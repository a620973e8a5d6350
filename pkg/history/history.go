// Package history persists tick snapshots and the remote control state in an
// embedded bbolt database.
package history

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"time"

	"github.com/skohler/chamber-pi/pkg/control"
	"github.com/skohler/chamber-pi/pkg/override"
	bolt "go.etcd.io/bbolt"
)

var (
	bucketReadings = []byte("readings")
	bucketControl  = []byte("control")
	keyOverride    = []byte("override")
)

type Store struct {
	db *bolt.DB
}

func Open(path string) (*Store, error) {
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("history: open %s: %w", path, err)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		if _, err := tx.CreateBucketIfNotExists(bucketReadings); err != nil {
			return err
		}
		_, err := tx.CreateBucketIfNotExists(bucketControl)
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("history: init buckets: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// Append logs one snapshot keyed by its timestamp.
func (s *Store) Append(snap control.Snapshot) error {
	data, err := json.Marshal(snap)
	if err != nil {
		return err
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketReadings).Put(tsKey(snap.Time), data)
	})
}

// Range returns up to limit of the most recent snapshots at or after since,
// oldest first.
func (s *Store) Range(since time.Time, limit int) ([]control.Snapshot, error) {
	if limit <= 0 {
		limit = 1000
	}
	var out []control.Snapshot
	min := tsKey(since)
	err := s.db.View(func(tx *bolt.Tx) error {
		c := tx.Bucket(bucketReadings).Cursor()
		for k, v := c.Last(); k != nil && string(k) >= string(min); k, v = c.Prev() {
			var snap control.Snapshot
			if err := json.Unmarshal(v, &snap); err != nil {
				return err
			}
			out = append(out, snap)
			if len(out) == limit {
				break
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	// Collected newest-first, flip to arrival order.
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out, nil
}

// Latest returns the most recent snapshot, or nil if none exist.
func (s *Store) Latest() (*control.Snapshot, error) {
	var snap *control.Snapshot
	err := s.db.View(func(tx *bolt.Tx) error {
		_, v := tx.Bucket(bucketReadings).Cursor().Last()
		if v == nil {
			return nil
		}
		snap = new(control.Snapshot)
		return json.Unmarshal(v, snap)
	})
	return snap, err
}

// Stats summarizes readings at or after since.
type Stats struct {
	Count  int     `json:"count"`
	AvgLux float64 `json:"avg_lux"`
	MinLux float64 `json:"min_lux"`
	MaxLux float64 `json:"max_lux"`
	AvgPWM float64 `json:"avg_pwm"`
}

func (s *Store) Stats(since time.Time) (Stats, error) {
	var st Stats
	sumLux, sumPWM := 0.0, 0.0
	min := tsKey(since)
	err := s.db.View(func(tx *bolt.Tx) error {
		c := tx.Bucket(bucketReadings).Cursor()
		for k, v := c.Seek(min); k != nil; k, v = c.Next() {
			var snap control.Snapshot
			if err := json.Unmarshal(v, &snap); err != nil {
				return err
			}
			if st.Count == 0 || snap.Raw < st.MinLux {
				st.MinLux = snap.Raw
			}
			if st.Count == 0 || snap.Raw > st.MaxLux {
				st.MaxLux = snap.Raw
			}
			sumLux += snap.Raw
			sumPWM += float64(snap.Command.Code)
			st.Count++
		}
		return nil
	})
	if err != nil {
		return Stats{}, err
	}
	if st.Count > 0 {
		st.AvgLux = sumLux / float64(st.Count)
		st.AvgPWM = sumPWM / float64(st.Count)
	}
	return st, nil
}

// Cleanup deletes readings older than maxAge and reports how many went.
func (s *Store) Cleanup(maxAge time.Duration) (int, error) {
	cutoff := tsKey(time.Now().Add(-maxAge))
	removed := 0
	err := s.db.Update(func(tx *bolt.Tx) error {
		c := tx.Bucket(bucketReadings).Cursor()
		for k, _ := c.First(); k != nil && string(k) < string(cutoff); k, _ = c.Next() {
			if err := c.Delete(); err != nil {
				return err
			}
			removed++
		}
		return nil
	})
	return removed, err
}

// SaveOverride persists the remote control state so it survives restarts.
func (s *Store) SaveOverride(st override.State) error {
	data, err := json.Marshal(st)
	if err != nil {
		return err
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketControl).Put(keyOverride, data)
	})
}

// LoadOverride returns the persisted control state; the zero State if none
// was saved yet.
func (s *Store) LoadOverride() (override.State, error) {
	var st override.State
	err := s.db.View(func(tx *bolt.Tx) error {
		data := tx.Bucket(bucketControl).Get(keyOverride)
		if data == nil {
			return nil
		}
		return json.Unmarshal(data, &st)
	})
	return st, err
}

func tsKey(t time.Time) []byte {
	k := make([]byte, 8)
	n := t.UnixNano()
	if n < 0 {
		// Pre-epoch (including the zero time) sorts before everything.
		n = 0
	}
	binary.BigEndian.PutUint64(k, uint64(n))
	return k
}
