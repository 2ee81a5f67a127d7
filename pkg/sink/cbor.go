package sink

import (
	"bufio"
	"io"

	"github.com/fxamacker/cbor/v2"
	"github.com/ssargent/logbuf/pkg/printk"
)

// cborEncMode uses Core Deterministic Encoding so equal records always
// produce identical bytes
var cborEncMode cbor.EncMode

func init() {
	var err error
	cborEncMode, err = cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		panic("sink: CBOR encoder initialization failed: " + err.Error())
	}
}

// CBORRecord is the CBOR form of a record. Text and dictionary entries are
// byte strings, so payloads that are not UTF-8 survive unchanged.
type CBORRecord struct {
	Timestamp uint64   `cbor:"ts"`
	Facility  uint16   `cbor:"facility"`
	Level     uint8    `cbor:"level"`
	Text      []byte   `cbor:"text"`
	Dict      [][]byte `cbor:"dict,omitempty"`
}

// NewCBORRecord converts rec to its CBOR form
func NewCBORRecord(rec *printk.Record) CBORRecord {
	return CBORRecord{
		Timestamp: rec.Timestamp,
		Facility:  uint16(rec.Facility()),
		Level:     uint8(rec.Level()),
		Text:      rec.Text,
		Dict:      rec.DictEntries(),
	}
}

// CBORSink writes a CBOR sequence with one data item per record
type CBORSink struct {
	w   *bufio.Writer
	enc *cbor.Encoder
}

// NewCBORSink creates a CBOR sequence sink
func NewCBORSink(w io.Writer) *CBORSink {
	bw := bufio.NewWriter(w)
	return &CBORSink{w: bw, enc: cborEncMode.NewEncoder(bw)}
}

func (s *CBORSink) Write(rec *printk.Record) error {
	return s.enc.Encode(NewCBORRecord(rec))
}

func (s *CBORSink) Flush() error {
	return s.w.Flush()
}
