package printk

import (
	"errors"
	"fmt"
	"io"
)

var (
	// ErrTruncated means the stream ended inside a record
	ErrTruncated = errors.New("truncated record")
	// ErrMalformedHeader means record_len cannot describe a valid record
	ErrMalformedHeader = errors.New("malformed record header")
	// ErrMalformedBody means text_len + dict_len does not fit the record body
	ErrMalformedBody = errors.New("malformed record body")
	// ErrRecordTooLarge means record_len exceeds the configured maximum.
	// It is reported as a malformed header.
	ErrRecordTooLarge = fmt.Errorf("%w: record too large", ErrMalformedHeader)
)

// Outcome classifies how a call to Decoder.Next ended
type Outcome int

const (
	OutcomeOK Outcome = iota
	OutcomeEndOfStream
	OutcomeTruncated
	OutcomeSourceError
	OutcomeMalformedHeader
	OutcomeMalformedBody
)

var outcomeNames = [...]string{
	OutcomeOK:              "ok",
	OutcomeEndOfStream:     "end_of_stream",
	OutcomeTruncated:       "truncated",
	OutcomeSourceError:     "source_error",
	OutcomeMalformedHeader: "malformed_header",
	OutcomeMalformedBody:   "malformed_body",
}

func (o Outcome) String() string {
	if o >= 0 && int(o) < len(outcomeNames) {
		return outcomeNames[o]
	}
	return fmt.Sprintf("Outcome(%d)", int(o))
}

// Terminal reports whether the outcome ends a decoding pass
func (o Outcome) Terminal() bool {
	return o != OutcomeOK
}

// Corrupt reports whether the outcome means the capture could not be fully read
func (o Outcome) Corrupt() bool {
	return o != OutcomeOK && o != OutcomeEndOfStream
}

// OutcomeOf classifies an error returned by Decoder.Next
func OutcomeOf(err error) Outcome {
	var srcErr *SourceError
	switch {
	case err == nil:
		return OutcomeOK
	case errors.As(err, &srcErr):
		return OutcomeSourceError
	case errors.Is(err, io.EOF):
		return OutcomeEndOfStream
	case errors.Is(err, ErrTruncated):
		return OutcomeTruncated
	case errors.Is(err, ErrMalformedHeader):
		return OutcomeMalformedHeader
	case errors.Is(err, ErrMalformedBody):
		return OutcomeMalformedBody
	default:
		return OutcomeSourceError
	}
}

// SourceError wraps a failure of the underlying byte source
type SourceError struct {
	Err error
}

func (e *SourceError) Error() string {
	return "read logbuf source: " + e.Err.Error()
}

func (e *SourceError) Unwrap() error {
	return e.Err
}

// DecodeError describes why no record could be decoded at Offset
type DecodeError struct {
	Outcome Outcome
	Offset  int64   // Stream offset of the record start
	Header  *Header // Nil when the header itself could not be read
	Err     error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("logbuf record at offset %d: %v", e.Offset, e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}
