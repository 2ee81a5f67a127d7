package sink

import (
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/cockroachdb/pebble"
	"github.com/segmentio/ksuid"
	"github.com/ssargent/logbuf/pkg/printk"
	"github.com/ssargent/logbuf/pkg/store"
)

// Key layout:
//
//	p<pass ksuid(20)>            -> PassInfo JSON
//	r<pass ksuid(20)><seq(8)>    -> little endian wire record
const (
	passPrefix   = 'p'
	recordPrefix = 'r'
)

const ksuidLen = 20

// archiveBatchSize is the number of records buffered before a batch commit
const archiveBatchSize = 512

var (
	// ErrPassNotFound is returned for an unknown pass ID
	ErrPassNotFound = errors.New("pass not found in archive")

	// ErrPassFinished is returned when writing to a pass after Finish
	ErrPassFinished = errors.New("archive pass already finished")
)

// PassInfo describes one archived decoding pass
type PassInfo struct {
	ID        string    `json:"id"`
	Source    string    `json:"source"`
	Records   int       `json:"records"`
	Bytes     int64     `json:"bytes"`
	Outcome   string    `json:"outcome"`
	Error     string    `json:"error,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Archive stores decoded passes in a pebble database so they can be listed
// and replayed without the original capture
type Archive struct {
	db *pebble.DB
}

// OpenArchive opens or creates an archive in dir
func OpenArchive(dir string) (*Archive, error) {
	db, err := pebble.Open(dir, &pebble.Options{})
	if err != nil {
		return nil, fmt.Errorf("failed to open archive: %w", err)
	}
	return &Archive{db: db}, nil
}

// Close closes the archive
func (a *Archive) Close() error {
	return a.db.Close()
}

func passKey(id ksuid.KSUID) []byte {
	key := make([]byte, 0, 1+ksuidLen)
	key = append(key, passPrefix)
	return append(key, id.Bytes()...)
}

func recordKey(id ksuid.KSUID, seq uint64) []byte {
	key := make([]byte, 0, 1+ksuidLen+8)
	key = append(key, recordPrefix)
	key = append(key, id.Bytes()...)
	return binary.BigEndian.AppendUint64(key, seq)
}

// prefixUpperBound returns the smallest key greater than every key with prefix
func prefixUpperBound(prefix []byte) []byte {
	end := make([]byte, len(prefix))
	copy(end, prefix)
	for i := len(end) - 1; i >= 0; i-- {
		end[i]++
		if end[i] != 0 {
			return end[:i+1]
		}
	}
	return nil
}

// NewPass starts archiving a pass read from source
func (a *Archive) NewPass(id ksuid.KSUID, source string) *ArchiveSink {
	return &ArchiveSink{
		db:    a.db,
		batch: a.db.NewBatch(),
		info: PassInfo{
			ID:        id.String(),
			Source:    source,
			CreatedAt: id.Time().UTC(),
		},
		id: id,
	}
}

// Passes lists archived passes, oldest first
func (a *Archive) Passes() ([]PassInfo, error) {
	lower := []byte{passPrefix}
	iter, err := a.db.NewIter(&pebble.IterOptions{
		LowerBound: lower,
		UpperBound: prefixUpperBound(lower),
	})
	if err != nil {
		return nil, err
	}
	defer iter.Close()

	var passes []PassInfo
	for iter.First(); iter.Valid(); iter.Next() {
		var info PassInfo
		if err := json.Unmarshal(iter.Value(), &info); err != nil {
			return nil, fmt.Errorf("failed to decode pass %x: %w", iter.Key()[1:], err)
		}
		passes = append(passes, info)
	}
	return passes, iter.Error()
}

// Pass returns the metadata of one pass
func (a *Archive) Pass(id ksuid.KSUID) (PassInfo, error) {
	var info PassInfo
	data, closer, err := a.db.Get(passKey(id))
	if errors.Is(err, pebble.ErrNotFound) {
		return info, ErrPassNotFound
	}
	if err != nil {
		return info, err
	}
	defer closer.Close()

	if err := json.Unmarshal(data, &info); err != nil {
		return info, fmt.Errorf("failed to decode pass %s: %w", id, err)
	}
	return info, nil
}

// Replay pushes the records of a pass into dst in their original order
func (a *Archive) Replay(id ksuid.KSUID, dst store.Pusher) error {
	if _, err := a.Pass(id); err != nil {
		return err
	}

	lower := append([]byte{recordPrefix}, id.Bytes()...)
	iter, err := a.db.NewIter(&pebble.IterOptions{
		LowerBound: lower,
		UpperBound: prefixUpperBound(lower),
	})
	if err != nil {
		return err
	}
	defer iter.Close()

	for iter.First(); iter.Valid(); iter.Next() {
		// The iterator reuses its value buffer, so decode from a copy
		value := append([]byte(nil), iter.Value()...)
		rec, err := decodeArchived(value)
		if err != nil {
			return fmt.Errorf("archived record %x: %w", iter.Key()[1+ksuidLen:], err)
		}
		if err := dst.Push(rec); err != nil {
			return err
		}
	}
	return iter.Error()
}

func decodeArchived(value []byte) (*printk.Record, error) {
	h, err := printk.DecodeHeader(value, printk.LittleEndian)
	if err != nil {
		return nil, err
	}
	if h.RecordLen < printk.HeaderSize || len(value) < printk.HeaderSize+h.PayloadLen() {
		return nil, printk.ErrMalformedBody
	}
	textEnd := printk.HeaderSize + int(h.TextLen)
	dictEnd := textEnd + int(h.DictLen)
	return &printk.Record{
		Header: h,
		Text:   value[printk.HeaderSize:textEnd:textEnd],
		Dict:   value[textEnd:dictEnd:dictEnd],
	}, nil
}

// ArchiveSink writes the records of one pass. Records are committed in
// batches; Finish commits the rest and stores the pass summary.
type ArchiveSink struct {
	db      *pebble.DB
	batch   *pebble.Batch
	pending int
	seq     uint64
	id      ksuid.KSUID
	info    PassInfo
	buf     []byte
}

// ID returns the pass ID
func (s *ArchiveSink) ID() ksuid.KSUID {
	return s.id
}

func (s *ArchiveSink) Write(rec *printk.Record) error {
	if s.batch == nil {
		return ErrPassFinished
	}
	data, err := printk.AppendRecord(s.buf[:0], rec, printk.LittleEndian)
	if err != nil {
		return err
	}
	s.buf = data

	// Set copies key and value into the batch
	if err := s.batch.Set(recordKey(s.id, s.seq), data, nil); err != nil {
		return err
	}
	s.seq++
	s.pending++

	if s.pending >= archiveBatchSize {
		return s.Flush()
	}
	return nil
}

// Push implements store.Pusher
func (s *ArchiveSink) Push(rec *printk.Record) error {
	return s.Write(rec)
}

func (s *ArchiveSink) Flush() error {
	if s.batch == nil {
		return ErrPassFinished
	}
	if s.pending == 0 {
		return nil
	}
	if err := s.batch.Commit(pebble.NoSync); err != nil {
		return fmt.Errorf("failed to commit archive batch: %w", err)
	}
	committed := s.batch
	s.batch = s.db.NewBatch()
	s.pending = 0
	return committed.Close()
}

// Finish flushes outstanding records and stores the pass summary durably.
// The batch is released even when the flush fails.
func (s *ArchiveSink) Finish(result store.PassResult) error {
	err := s.Flush()
	if s.batch != nil {
		if closeErr := s.batch.Close(); err == nil {
			err = closeErr
		}
		s.batch = nil
	}
	if err != nil {
		return err
	}

	s.info.Records = result.Records
	s.info.Bytes = result.Bytes
	s.info.Outcome = result.Outcome.String()
	if result.Err != nil {
		s.info.Error = result.Err.Error()
	}

	data, err := json.Marshal(s.info)
	if err != nil {
		return err
	}
	return s.db.Set(passKey(s.id), data, pebble.Sync)
}
