package store

import (
	"fmt"
	"io"

	"github.com/ssargent/logbuf/pkg/printk"
	"github.com/ssargent/logbuf/pkg/source"
)

// LogReader provides sequential access to records in a captured log buffer
type LogReader struct {
	src     io.ReadCloser
	decoder *printk.Decoder
	config  LogReaderConfig
}

// NewLogReader opens the capture named by config and positions it at StartOffset
func NewLogReader(config LogReaderConfig, opts ...printk.Option) (*LogReader, error) {
	src, err := source.Open(config.FilePath, config.Compression)
	if err != nil {
		return nil, err
	}

	// Captures may be compressed, so skip forward instead of seeking
	if config.StartOffset > 0 {
		if _, err := io.CopyN(io.Discard, src, config.StartOffset); err != nil {
			src.Close()
			return nil, fmt.Errorf("failed to skip to offset %d: %w", config.StartOffset, err)
		}
	}

	decOpts := []printk.Option{
		printk.WithByteOrder(config.ByteOrder),
		printk.WithMaxRecordSize(config.MaxRecordSize),
		printk.WithBaseOffset(config.StartOffset),
	}
	return &LogReader{
		src:     src,
		decoder: printk.NewDecoder(src, append(decOpts, opts...)...),
		config:  config,
	}, nil
}

// ReadNext reads the next record. It returns io.EOF at the clean end of the
// capture and a *printk.DecodeError when the capture is damaged.
func (r *LogReader) ReadNext() (*printk.Record, error) {
	return r.decoder.Next()
}

// Next implements RecordDecoder
func (r *LogReader) Next() (*printk.Record, error) {
	return r.decoder.Next()
}

// Offset returns the current read offset in the decompressed stream
func (r *LogReader) Offset() int64 {
	return r.decoder.Offset()
}

// Iterator returns a streaming iterator for records
func (r *LogReader) Iterator() RecordIterator {
	return &logRecordIterator{reader: r}
}

// Close closes the log reader
func (r *LogReader) Close() error {
	return r.src.Close()
}

// logRecordIterator implements RecordIterator for streaming access
type logRecordIterator struct {
	reader *LogReader
	record *printk.Record
	err    error
}

func (it *logRecordIterator) Next() bool {
	it.record, it.err = it.reader.ReadNext()
	return it.err == nil
}

func (it *logRecordIterator) Record() *printk.Record {
	return it.record
}

// Err returns nil after a clean end of the capture
func (it *logRecordIterator) Err() error {
	if printk.OutcomeOf(it.err) == printk.OutcomeEndOfStream {
		return nil
	}
	return it.err
}

func (it *logRecordIterator) Close() error {
	// Don't close the underlying reader as it's owned by the caller
	return nil
}
