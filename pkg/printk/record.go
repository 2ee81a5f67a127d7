package printk

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"strings"
)

const (
	// HeaderSize is the fixed size of a record header in bytes
	HeaderSize = 16
	// Alignment is the boundary every record footprint is padded to
	Alignment = 4
)

// Header field offsets
const (
	offTimestamp = 0
	offRecordLen = 8
	offTextLen   = 10
	offDictLen   = 12
	offFlags     = 14
)

// Align rounds n up to the next multiple of Alignment
func Align(n int) int {
	return (n + Alignment - 1) &^ (Alignment - 1)
}

// ByteOrder selects how the numeric header fields are laid out in a capture
type ByteOrder uint8

const (
	LittleEndian ByteOrder = iota
	BigEndian
)

func (o ByteOrder) binary() binary.ByteOrder {
	if o == BigEndian {
		return binary.BigEndian
	}
	return binary.LittleEndian
}

func (o ByteOrder) String() string {
	switch o {
	case LittleEndian:
		return "little"
	case BigEndian:
		return "big"
	default:
		return fmt.Sprintf("ByteOrder(%d)", uint8(o))
	}
}

// ParseByteOrder parses "little"/"le" or "big"/"be"
func ParseByteOrder(s string) (ByteOrder, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "little", "le", "little-endian":
		return LittleEndian, nil
	case "big", "be", "big-endian":
		return BigEndian, nil
	default:
		return LittleEndian, fmt.Errorf("unknown byte order %q (want little or big)", s)
	}
}

// Header holds the fixed width fields at the start of every record
type Header struct {
	Timestamp uint64 // Monotonic time in nanoseconds
	RecordLen uint16 // Header plus payload size, before alignment
	TextLen   uint16 // Size of the text payload
	DictLen   uint16 // Size of the dictionary payload
	Flags     uint16 // Packed facility and level
}

// DecodeHeader reads the header fields from the first HeaderSize bytes of b
func DecodeHeader(b []byte, order ByteOrder) (Header, error) {
	if len(b) < HeaderSize {
		return Header{}, fmt.Errorf("%w: header has %d of %d bytes", ErrTruncated, len(b), HeaderSize)
	}
	bo := order.binary()
	return Header{
		Timestamp: bo.Uint64(b[offTimestamp:]),
		RecordLen: bo.Uint16(b[offRecordLen:]),
		TextLen:   bo.Uint16(b[offTextLen:]),
		DictLen:   bo.Uint16(b[offDictLen:]),
		Flags:     bo.Uint16(b[offFlags:]),
	}, nil
}

func (h Header) put(b []byte, order ByteOrder) {
	bo := order.binary()
	bo.PutUint64(b[offTimestamp:], h.Timestamp)
	bo.PutUint16(b[offRecordLen:], h.RecordLen)
	bo.PutUint16(b[offTextLen:], h.TextLen)
	bo.PutUint16(b[offDictLen:], h.DictLen)
	bo.PutUint16(b[offFlags:], h.Flags)
}

// Footprint returns the number of bytes the record occupies on the wire
func (h Header) Footprint() int {
	return Align(int(h.RecordLen))
}

// BodyLen returns the payload capacity following the header, padding included.
// Only meaningful once RecordLen >= HeaderSize has been checked.
func (h Header) BodyLen() int {
	return h.Footprint() - HeaderSize
}

// PayloadLen returns TextLen + DictLen without overflowing uint16
func (h Header) PayloadLen() int {
	return int(h.TextLen) + int(h.DictLen)
}

// Level returns the severity packed into Flags
func (h Header) Level() Level {
	return Level(h.Flags & 0x7)
}

// Facility returns the facility packed into Flags
func (h Header) Facility() Facility {
	return Facility(h.Flags >> 3)
}

// checkHeader enforces the header-only invariants. maxRecordSize <= 0 disables
// the size cap.
func checkHeader(h Header, maxRecordSize int) error {
	if h.RecordLen < HeaderSize {
		return fmt.Errorf("%w: record_len %d below header size %d", ErrMalformedHeader, h.RecordLen, HeaderSize)
	}
	if maxRecordSize > 0 && int(h.RecordLen) > maxRecordSize {
		return fmt.Errorf("%w: record_len %d, limit %d", ErrRecordTooLarge, h.RecordLen, maxRecordSize)
	}
	return nil
}

func checkBody(h Header) error {
	if h.PayloadLen() > h.BodyLen() {
		return fmt.Errorf("%w: text_len %d + dict_len %d exceeds body of %d bytes",
			ErrMalformedBody, h.TextLen, h.DictLen, h.BodyLen())
	}
	return nil
}

// Record is one decoded log entry. Records are not modified after decoding.
type Record struct {
	Header
	Text []byte // Exactly TextLen bytes, not NUL terminated
	Dict []byte // Exactly DictLen bytes of NUL separated key=value entries
}

// NewRecord builds a record with RecordLen sized to hold text and dict
func NewRecord(timestamp uint64, facility Facility, level Level, text, dict []byte) *Record {
	size := HeaderSize + len(text) + len(dict)
	if size > 0xFFFF {
		panic("record too large")
	}
	return &Record{
		Header: Header{
			Timestamp: timestamp,
			RecordLen: uint16(size),
			TextLen:   uint16(len(text)),
			DictLen:   uint16(len(dict)),
			Flags:     PackFlags(facility, level),
		},
		Text: text,
		Dict: dict,
	}
}

// Validate checks the record invariants, including that the payload slices
// match the declared lengths
func (r *Record) Validate() error {
	if err := checkHeader(r.Header, 0); err != nil {
		return err
	}
	if err := checkBody(r.Header); err != nil {
		return err
	}
	if len(r.Text) != int(r.TextLen) {
		return fmt.Errorf("%w: text is %d bytes, text_len %d", ErrMalformedBody, len(r.Text), r.TextLen)
	}
	if len(r.Dict) != int(r.DictLen) {
		return fmt.Errorf("%w: dictionary is %d bytes, dict_len %d", ErrMalformedBody, len(r.Dict), r.DictLen)
	}
	return nil
}

// DictEntries splits the dictionary on NUL without interpreting the entries
func (r *Record) DictEntries() [][]byte {
	if len(r.Dict) == 0 {
		return nil
	}
	var entries [][]byte
	for _, e := range bytes.Split(r.Dict, []byte{0}) {
		if len(e) > 0 {
			entries = append(entries, e)
		}
	}
	return entries
}

// String returns the message text
func (r *Record) String() string {
	return string(r.Text)
}
