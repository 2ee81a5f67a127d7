package printk

import (
	"errors"
	"fmt"
	"io"
)

// DefaultMaxRecordSize caps record_len accepted from a capture. Kernel
// records carry at most a 1 KiB line plus a small dictionary, so anything
// larger points at a corrupt header.
const DefaultMaxRecordSize = 4096

// Observer is notified about decoded records and the outcome ending a pass
type Observer interface {
	ObserveRecord(rec *Record)
	ObserveOutcome(o Outcome)
}

// Option configures a Decoder
type Option func(*Decoder)

// WithByteOrder sets the byte order of the capture (default LittleEndian)
func WithByteOrder(order ByteOrder) Option {
	return func(d *Decoder) {
		d.order = order
	}
}

// WithMaxRecordSize sets the largest record_len accepted. Zero or a negative
// value disables the limit.
func WithMaxRecordSize(n int) Option {
	return func(d *Decoder) {
		d.maxRecordSize = n
	}
}

// WithBaseOffset sets the stream offset of the first byte read from the
// source, for decoders that start partway into a capture
func WithBaseOffset(n int64) Option {
	return func(d *Decoder) {
		d.offset = n
	}
}

// WithObserver attaches an Observer to the decoder
func WithObserver(o Observer) Option {
	return func(d *Decoder) {
		d.observer = o
	}
}

// Decoder reads records one at a time from a byte source. The decoder is the
// only reader of the source; interleaving other reads corrupts the stream.
type Decoder struct {
	r             io.Reader
	order         ByteOrder
	maxRecordSize int
	observer      Observer

	offset int64
	hdr    [HeaderSize]byte
	err    error
}

// NewDecoder creates a decoder positioned at the start of a record in r
func NewDecoder(r io.Reader, opts ...Option) *Decoder {
	d := &Decoder{
		r:             r,
		order:         LittleEndian,
		maxRecordSize: DefaultMaxRecordSize,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// ByteOrder returns the configured byte order
func (d *Decoder) ByteOrder() ByteOrder {
	return d.order
}

// Offset returns the stream offset just past the last byte consumed
func (d *Decoder) Offset() int64 {
	return d.offset
}

// Err returns the error that ended decoding, or nil while records remain
func (d *Decoder) Err() error {
	return d.err
}

// Next decodes the next record. It returns io.EOF when the source ends on a
// record boundary and a *DecodeError for any other failure. Once Next has
// failed it returns the same error on every later call.
func (d *Decoder) Next() (*Record, error) {
	if d.err != nil {
		return nil, d.err
	}

	rec, err := d.decode()
	if err != nil {
		d.err = err
		if d.observer != nil {
			d.observer.ObserveOutcome(OutcomeOf(err))
		}
		return nil, err
	}

	if d.observer != nil {
		d.observer.ObserveRecord(rec)
	}
	return rec, nil
}

func (d *Decoder) decode() (*Record, error) {
	start := d.offset

	// Read the header
	n, err := io.ReadFull(d.r, d.hdr[:])
	d.offset += int64(n)
	if err != nil {
		if err == io.EOF {
			return nil, io.EOF
		}
		return nil, d.readError(start, nil, err, fmt.Sprintf("header has %d of %d bytes", n, HeaderSize))
	}

	h, err := DecodeHeader(d.hdr[:], d.order)
	if err != nil {
		return nil, d.fail(start, nil, OutcomeTruncated, err)
	}

	// No body length is derived from a header that fails here
	if err := checkHeader(h, d.maxRecordSize); err != nil {
		return nil, d.fail(start, &h, OutcomeMalformedHeader, err)
	}

	// Read the body, padding included
	body := make([]byte, h.BodyLen())
	if len(body) > 0 {
		n, err = io.ReadFull(d.r, body)
		d.offset += int64(n)
		if err != nil {
			return nil, d.readError(start, &h, err, fmt.Sprintf("body has %d of %d bytes", n, len(body)))
		}
	}

	if err := checkBody(h); err != nil {
		return nil, d.fail(start, &h, OutcomeMalformedBody, err)
	}

	textEnd := int(h.TextLen)
	dictEnd := textEnd + int(h.DictLen)
	return &Record{
		Header: h,
		Text:   body[:textEnd:textEnd],
		Dict:   body[textEnd:dictEnd:dictEnd],
	}, nil
}

// readError maps a failed io.ReadFull to Truncated or SourceError
func (d *Decoder) readError(start int64, h *Header, err error, detail string) error {
	if err == io.EOF || errors.Is(err, io.ErrUnexpectedEOF) {
		return d.fail(start, h, OutcomeTruncated, fmt.Errorf("%w: %s", ErrTruncated, detail))
	}
	return d.fail(start, h, OutcomeSourceError, &SourceError{Err: err})
}

func (d *Decoder) fail(start int64, h *Header, outcome Outcome, err error) error {
	return &DecodeError{
		Outcome: outcome,
		Offset:  start,
		Header:  h,
		Err:     err,
	}
}
