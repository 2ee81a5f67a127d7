package store

import (
	"errors"
	"fmt"

	"github.com/segmentio/ksuid"
	"github.com/ssargent/logbuf/pkg/printk"
)

// RecordDecoder produces records in stream order
type RecordDecoder interface {
	Next() (*printk.Record, error)
	Offset() int64
}

// PassResult summarizes a decoding pass
type PassResult struct {
	ID      ksuid.KSUID    // Identifies the pass in logs and API responses
	Records int            // Records handed to the destination
	Bytes   int64          // Bytes consumed from the source
	Outcome printk.Outcome // How decoding ended, OutcomeOK if the destination stopped it
	Err     error          // Nil after a clean end of stream
}

// Clean reports whether the pass read the whole capture without error
func (r PassResult) Clean() bool {
	return r.Err == nil && r.Outcome == printk.OutcomeEndOfStream
}

// Corrupt reports whether decoding stopped on a damaged or unreadable capture
func (r PassResult) Corrupt() bool {
	return r.Outcome.Corrupt()
}

// Full reports whether the pass stopped because the destination was full
func (r PassResult) Full() bool {
	return errors.Is(r.Err, ErrStoreFull)
}

// Drain decodes records from dec into dst until the stream ends, decoding
// fails or dst refuses a record. Records pushed before a failure stay in dst.
func Drain(dec RecordDecoder, dst Pusher) PassResult {
	return DrainPass(ksuid.New(), dec, dst)
}

// DrainPass is Drain with a caller chosen pass ID
func DrainPass(id ksuid.KSUID, dec RecordDecoder, dst Pusher) PassResult {
	result := PassResult{ID: id}

	for {
		rec, err := dec.Next()
		if err != nil {
			result.Outcome = printk.OutcomeOf(err)
			if result.Outcome != printk.OutcomeEndOfStream {
				result.Err = err
			}
			break
		}

		if err := dst.Push(rec); err != nil {
			result.Outcome = printk.OutcomeOK
			result.Err = fmt.Errorf("record %d at offset %d: %w", result.Records, dec.Offset()-int64(rec.Footprint()), err)
			break
		}
		result.Records++
	}

	result.Bytes = dec.Offset()
	return result
}
