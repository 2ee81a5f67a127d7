package store

import (
	"github.com/ssargent/logbuf/pkg/printk"
	"github.com/ssargent/logbuf/pkg/source"
)

// LogReaderConfig holds configuration for the log reader
type LogReaderConfig struct {
	FilePath      string             // Path to the capture, "-" for stdin
	StartOffset   int64              // Offset of the first record in the decompressed stream
	ByteOrder     printk.ByteOrder   // Byte order of the capture
	MaxRecordSize int                // Largest record_len accepted (0 = unlimited)
	Compression   source.Compression // Capture compression (Auto sniffs)
}

// LogWriterConfig holds configuration for the log writer
type LogWriterConfig struct {
	FilePath   string           // Path of the capture to write
	ByteOrder  printk.ByteOrder // Byte order of the written records
	BufferSize int              // Write buffer size (0 = 64 KiB)
	Append     bool             // Append to an existing capture instead of truncating it
}

// RecordIterator provides streaming access to records
type RecordIterator interface {
	Next() bool
	Record() *printk.Record
	Err() error
	Close() error
}

// Pusher accepts decoded records in stream order
type Pusher interface {
	Push(rec *printk.Record) error
}

// PushFunc adapts a function to a Pusher
type PushFunc func(rec *printk.Record) error

func (f PushFunc) Push(rec *printk.Record) error {
	return f(rec)
}

// Errors
var (
	ErrStoreFull     = &StoreError{"record store is full"}
	ErrInvalidRecord = &StoreError{"invalid record"}
)

// StoreError represents a record store error
type StoreError struct {
	Message string
}

func (e *StoreError) Error() string {
	return e.Message
}
