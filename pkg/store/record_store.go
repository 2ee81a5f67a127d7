package store

import (
	"iter"

	"github.com/ssargent/logbuf/pkg/printk"
)

// RecordStore keeps decoded records in arrival order. A store with a fixed
// capacity refuses records once full instead of dropping them. The store is
// not safe for concurrent mutation; once filled it may be read concurrently.
type RecordStore struct {
	records  []*printk.Record
	capacity int
}

// NewRecordStore creates a store holding at most capacity records. A capacity
// of zero or less means unbounded.
func NewRecordStore(capacity int) *RecordStore {
	if capacity < 0 {
		capacity = 0
	}
	s := &RecordStore{capacity: capacity}
	if capacity > 0 {
		s.records = make([]*printk.Record, 0, capacity)
	}
	return s
}

// Push appends rec. It returns ErrStoreFull, leaving the store unchanged,
// when a bounded store has no room left.
func (s *RecordStore) Push(rec *printk.Record) error {
	if rec == nil {
		return ErrInvalidRecord
	}
	if s.Full() {
		return ErrStoreFull
	}
	s.records = append(s.records, rec)
	return nil
}

// Len returns the number of stored records
func (s *RecordStore) Len() int {
	return len(s.records)
}

// Cap returns the capacity, 0 for an unbounded store
func (s *RecordStore) Cap() int {
	return s.capacity
}

// Full reports whether a bounded store has reached its capacity
func (s *RecordStore) Full() bool {
	return s.capacity > 0 && len(s.records) >= s.capacity
}

// At returns the i-th record
func (s *RecordStore) At(i int) *printk.Record {
	return s.records[i]
}

// Records returns a copy of the stored records in insertion order
func (s *RecordStore) Records() []*printk.Record {
	out := make([]*printk.Record, len(s.records))
	copy(out, s.records)
	return out
}

// All returns the records in insertion order. The sequence can be ranged over
// any number of times and always starts from the first record.
func (s *RecordStore) All() iter.Seq[*printk.Record] {
	return func(yield func(*printk.Record) bool) {
		for _, rec := range s.records {
			if !yield(rec) {
				return
			}
		}
	}
}

// Iterator returns a new iterator positioned before the first record
func (s *RecordStore) Iterator() RecordIterator {
	return &storeIterator{records: s.records, pos: -1}
}

// storeIterator walks a snapshot of the store
type storeIterator struct {
	records []*printk.Record
	pos     int
}

func (it *storeIterator) Next() bool {
	if it.pos+1 >= len(it.records) {
		it.pos = len(it.records)
		return false
	}
	it.pos++
	return true
}

func (it *storeIterator) Record() *printk.Record {
	if it.pos < 0 || it.pos >= len(it.records) {
		return nil
	}
	return it.records[it.pos]
}

func (it *storeIterator) Err() error {
	return nil
}

func (it *storeIterator) Close() error {
	return nil
}
