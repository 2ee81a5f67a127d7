// Package sink renders decoded records.
package sink

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/ssargent/logbuf/pkg/printk"
)

// Sink consumes decoded records in stream order
type Sink interface {
	Write(rec *printk.Record) error
	Flush() error
}

// Formats accepted by New
const (
	FormatText  = "text"
	FormatDmesg = "dmesg"
	FormatJSON  = "json"
	FormatCBOR  = "cbor"

	// FormatDmesgLevel is dmesg with facility and level, like dmesg -x
	FormatDmesgLevel = "dmesg-x"
)

// New returns a sink writing the named format to w
func New(format string, w io.Writer) (Sink, error) {
	switch strings.ToLower(format) {
	case "", FormatText:
		return NewTextSink(w), nil
	case FormatDmesg:
		return NewDmesgSink(w, false), nil
	case FormatDmesgLevel:
		return NewDmesgSink(w, true), nil
	case FormatJSON:
		return NewJSONSink(w), nil
	case FormatCBOR:
		return NewCBORSink(w), nil
	default:
		return nil, fmt.Errorf("unknown output format %q (want text, dmesg, dmesg-x, json or cbor)", format)
	}
}

// TextSink writes each record's text on its own line. The bytes are written
// as captured; invalid UTF-8 is passed through untouched.
type TextSink struct {
	w *bufio.Writer
}

// NewTextSink creates a text sink
func NewTextSink(w io.Writer) *TextSink {
	return &TextSink{w: bufio.NewWriter(w)}
}

func (s *TextSink) Write(rec *printk.Record) error {
	if _, err := s.w.Write(rec.Text); err != nil {
		return err
	}
	return s.w.WriteByte('\n')
}

func (s *TextSink) Flush() error {
	return s.w.Flush()
}

// DmesgSink writes records the way dmesg prints them: the raw timestamp
// split into seconds and microseconds, then the text
type DmesgSink struct {
	w         *bufio.Writer
	showLevel bool
}

// NewDmesgSink creates a dmesg style sink. With showLevel the facility and
// level are printed before the text.
func NewDmesgSink(w io.Writer, showLevel bool) *DmesgSink {
	return &DmesgSink{w: bufio.NewWriter(w), showLevel: showLevel}
}

func (s *DmesgSink) Write(rec *printk.Record) error {
	secs := rec.Timestamp / 1e9
	usecs := (rec.Timestamp % 1e9) / 1e3
	if s.showLevel {
		if _, err := fmt.Fprintf(s.w, "%-6s:%-6s: ", rec.Facility(), rec.Level()); err != nil {
			return err
		}
	}
	if _, err := fmt.Fprintf(s.w, "[%5d.%06d] ", secs, usecs); err != nil {
		return err
	}
	if _, err := s.w.Write(rec.Text); err != nil {
		return err
	}
	return s.w.WriteByte('\n')
}

func (s *DmesgSink) Flush() error {
	return s.w.Flush()
}

// JSONRecord is the JSON form of a record
type JSONRecord struct {
	Timestamp  uint64   `json:"timestamp_ns"`
	RecordLen  uint16   `json:"record_len"`
	Facility   string   `json:"facility"`
	Level      string   `json:"level"`
	Flags      uint16   `json:"flags"`
	Text       string   `json:"text"`
	Dictionary []string `json:"dictionary,omitempty"`
}

// NewJSONRecord converts rec to its JSON form
func NewJSONRecord(rec *printk.Record) JSONRecord {
	out := JSONRecord{
		Timestamp: rec.Timestamp,
		RecordLen: rec.RecordLen,
		Facility:  rec.Facility().String(),
		Level:     rec.Level().String(),
		Flags:     rec.Flags,
		Text:      string(rec.Text),
	}
	for _, entry := range rec.DictEntries() {
		out.Dictionary = append(out.Dictionary, string(entry))
	}
	return out
}

// JSONSink writes one JSON object per line
type JSONSink struct {
	w   *bufio.Writer
	enc *json.Encoder
}

// NewJSONSink creates a JSON lines sink
func NewJSONSink(w io.Writer) *JSONSink {
	bw := bufio.NewWriter(w)
	return &JSONSink{w: bw, enc: json.NewEncoder(bw)}
}

func (s *JSONSink) Write(rec *printk.Record) error {
	return s.enc.Encode(NewJSONRecord(rec))
}

func (s *JSONSink) Flush() error {
	return s.w.Flush()
}
