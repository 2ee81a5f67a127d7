package api

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/ssargent/logbuf/pkg/printk"
	"github.com/ssargent/logbuf/pkg/sink"
	"go.uber.org/zap"
)

const (
	defaultPageLimit = 100
	maxPageLimit     = 1000
)

// Server serves a decoded capture. The records are never modified after the
// server is created, so handlers read them without locking.
type Server struct {
	records RecordReader
	pass    PassSummary
	config  ServerConfig
	metrics *Metrics
	logger  *zap.Logger
}

// NewServer creates a new API server
func NewServer(records RecordReader, pass PassSummary, config ServerConfig, metrics *Metrics, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{
		records: records,
		pass:    pass,
		config:  config,
		metrics: metrics,
		logger:  logger,
	}
}

// handleHealth reports the server as healthy even for a corrupt capture; the
// pass summary says whether the records are complete.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if s.metrics != nil {
		s.metrics.RecordHealthCheck(true)
	}
	sendSuccess(w, map[string]interface{}{
		"status":  "healthy",
		"records": s.records.Len(),
		"corrupt": s.pass.Corrupt,
	})
}

// handlePass returns the summary of the decoding pass
func (s *Server) handlePass(w http.ResponseWriter, r *http.Request) {
	sendSuccess(w, s.pass)
}

// handleListRecords returns a page of records, optionally limited to a
// maximum level (?level=warning keeps emerg through warning)
func (s *Server) handleListRecords(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	offset, err := intParam(query.Get("offset"), 0)
	if err != nil || offset < 0 {
		sendError(w, "Invalid offset", http.StatusBadRequest)
		return
	}
	limit, err := intParam(query.Get("limit"), defaultPageLimit)
	if err != nil || limit <= 0 {
		sendError(w, "Invalid limit", http.StatusBadRequest)
		return
	}
	if limit > maxPageLimit {
		limit = maxPageLimit
	}

	maxLevel := printk.LevelDebug
	if lvl := query.Get("level"); lvl != "" {
		maxLevel, err = printk.ParseLevel(lvl)
		if err != nil {
			sendError(w, err.Error(), http.StatusBadRequest)
			return
		}
	}

	page := RecordPage{
		Offset:  offset,
		Limit:   limit,
		Records: []IndexedRecord{},
	}
	for i := 0; i < s.records.Len(); i++ {
		rec := s.records.At(i)
		if rec.Level() > maxLevel {
			continue
		}
		if page.Total >= offset && len(page.Records) < limit {
			page.Records = append(page.Records, IndexedRecord{Index: i, JSONRecord: sink.NewJSONRecord(rec)})
		}
		page.Total++
	}

	sendSuccess(w, page)
}

// handleGetRecord returns the record at {index}
func (s *Server) handleGetRecord(w http.ResponseWriter, r *http.Request) {
	index, err := strconv.Atoi(chi.URLParam(r, "index"))
	if err != nil {
		sendError(w, "Invalid record index", http.StatusBadRequest)
		return
	}
	if index < 0 || index >= s.records.Len() {
		sendError(w, "Record not found", http.StatusNotFound)
		return
	}

	sendSuccess(w, IndexedRecord{Index: index, JSONRecord: sink.NewJSONRecord(s.records.At(index))})
}

// handleRecordsText streams all records as dmesg style text. ?levels=true
// adds the facility and level prefix.
func (s *Server) handleRecordsText(w http.ResponseWriter, r *http.Request) {
	showLevel, _ := strconv.ParseBool(r.URL.Query().Get("levels"))

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	out := sink.NewDmesgSink(w, showLevel)
	for i := 0; i < s.records.Len(); i++ {
		if err := out.Write(s.records.At(i)); err != nil {
			s.logger.Warn("write records", zap.Error(err))
			return
		}
	}
	if err := out.Flush(); err != nil {
		s.logger.Warn("write records", zap.Error(err))
	}
}

func intParam(value string, def int) (int, error) {
	if value == "" {
		return def, nil
	}
	return strconv.Atoi(value)
}
