package store

import (
	"bufio"
	"os"
	"path/filepath"
	"sync"

	"github.com/ssargent/logbuf/pkg/printk"
)

// LogWriter writes records to a capture file in the printk wire format
type LogWriter struct {
	file   *os.File
	writer *bufio.Writer
	config LogWriterConfig
	mutex  sync.Mutex
	offset int64 // Current write offset
	buf    []byte
}

// NewLogWriter creates or truncates the capture file named by config
func NewLogWriter(config LogWriterConfig) (*LogWriter, error) {
	// Ensure directory exists
	if err := os.MkdirAll(filepath.Dir(config.FilePath), 0750); err != nil {
		return nil, err
	}

	flags := os.O_CREATE | os.O_WRONLY | os.O_TRUNC
	if config.Append {
		flags = os.O_CREATE | os.O_WRONLY | os.O_APPEND
	}
	file, err := os.OpenFile(config.FilePath, flags, 0600)
	if err != nil {
		return nil, err
	}

	// Get current file size for offset tracking
	stat, err := file.Stat()
	if err != nil {
		file.Close()
		return nil, err
	}

	bufferSize := config.BufferSize
	if bufferSize <= 0 {
		bufferSize = 64 * 1024
	}

	return &LogWriter{
		file:   file,
		writer: bufio.NewWriterSize(file, bufferSize),
		config: config,
		offset: stat.Size(),
	}, nil
}

// Put appends a record and returns the offset it was written at
func (w *LogWriter) Put(rec *printk.Record) (int64, error) {
	w.mutex.Lock()
	defer w.mutex.Unlock()

	data, err := printk.AppendRecord(w.buf[:0], rec, w.config.ByteOrder)
	if err != nil {
		return 0, err
	}
	w.buf = data

	n, err := w.writer.Write(data)
	if err != nil {
		return 0, err
	}

	recordOffset := w.offset
	w.offset += int64(n)
	return recordOffset, nil
}

// Push implements Pusher
func (w *LogWriter) Push(rec *printk.Record) error {
	_, err := w.Put(rec)
	return err
}

// Sync flushes buffered records and fsyncs the file
func (w *LogWriter) Sync() error {
	w.mutex.Lock()
	defer w.mutex.Unlock()
	return w.sync()
}

func (w *LogWriter) sync() error {
	if err := w.writer.Flush(); err != nil {
		return err
	}
	return w.file.Sync()
}

// Close flushes and closes the capture file
func (w *LogWriter) Close() error {
	w.mutex.Lock()
	defer w.mutex.Unlock()

	if err := w.sync(); err != nil {
		w.file.Close()
		return err
	}
	return w.file.Close()
}

// Size returns the current size of the capture file
func (w *LogWriter) Size() int64 {
	w.mutex.Lock()
	defer w.mutex.Unlock()
	return w.offset
}

// Path returns the file path
func (w *LogWriter) Path() string {
	return w.config.FilePath
}
