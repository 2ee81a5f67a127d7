package api

import (
	"fmt"

	"github.com/ssargent/logbuf/pkg/printk"
	"github.com/ssargent/logbuf/pkg/sink"
	"github.com/ssargent/logbuf/pkg/store"
)

// APIResponse represents a standard API response
type APIResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// ServerConfig holds configuration for the API server
type ServerConfig struct {
	Bind   string
	Port   int
	APIKey string // Empty disables authentication
}

// Addr returns the listen address
func (c ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Bind, c.Port)
}

// RecordReader is the read-only view of decoded records served by the API
type RecordReader interface {
	Len() int
	At(i int) *printk.Record
}

// RecordPage is one page of records
type RecordPage struct {
	Offset  int             `json:"offset"`
	Limit   int             `json:"limit"`
	Total   int             `json:"total"`
	Records []IndexedRecord `json:"records"`
}

// IndexedRecord is a record with its position in the store
type IndexedRecord struct {
	Index int `json:"index"`
	sink.JSONRecord
}

// PassSummary describes the decoding pass that filled the store
type PassSummary struct {
	ID      string `json:"id"`
	Source  string `json:"source"`
	Records int    `json:"records"`
	Bytes   int64  `json:"bytes"`
	Outcome string `json:"outcome"`
	Corrupt bool   `json:"corrupt"`
	Error   string `json:"error,omitempty"`
}

// NewPassSummary converts a pass result for the API
func NewPassSummary(source string, result store.PassResult) PassSummary {
	summary := PassSummary{
		ID:      result.ID.String(),
		Source:  source,
		Records: result.Records,
		Bytes:   result.Bytes,
		Outcome: result.Outcome.String(),
		Corrupt: result.Corrupt(),
	}
	if result.Err != nil {
		summary.Error = result.Err.Error()
	}
	return summary
}
