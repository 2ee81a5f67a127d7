package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/segmentio/ksuid"
	"github.com/ssargent/logbuf/pkg/printk"
	"github.com/ssargent/logbuf/pkg/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testAPIKey = "test-key"

// setupTestServer creates a router over a store holding five records with
// alternating err and info levels
func setupTestServer(t *testing.T, result store.PassResult) (http.Handler, *Metrics, *prometheus.Registry) {
	t.Helper()

	records := store.NewRecordStore(0)
	for i := 0; i < 5; i++ {
		level := printk.LevelInfo
		if i%2 == 0 {
			level = printk.LevelErr
		}
		text := []byte("line " + string(rune('0'+i)))
		require.NoError(t, records.Push(printk.NewRecord(uint64(i+1)*1_500_000_000, printk.FacilityKern, level, text, []byte("SUBSYSTEM=usb\x00"))))
	}

	reg := prometheus.NewRegistry()
	metrics := NewMetrics(reg)
	server := NewServer(records, NewPassSummary("capture.bin", result), ServerConfig{APIKey: testAPIKey}, metrics, nil)
	return NewRouter(server, reg), metrics, reg
}

func cleanPass() store.PassResult {
	return store.PassResult{ID: ksuid.New(), Records: 5, Bytes: 200, Outcome: printk.OutcomeEndOfStream}
}

func doRequest(t *testing.T, h http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	req.Header.Set("X-API-Key", testAPIKey)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func decodeData(t *testing.T, w *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	var resp struct {
		Success bool            `json:"success"`
		Data    json.RawMessage `json:"data"`
		Error   string          `json:"error"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.True(t, resp.Success, resp.Error)
	require.NoError(t, json.Unmarshal(resp.Data, v))
}

func TestHealth(t *testing.T) {
	h, metrics, _ := setupTestServer(t, cleanPass())

	w := doRequest(t, h, "/api/v1/health")
	require.Equal(t, http.StatusOK, w.Code)

	var health map[string]interface{}
	decodeData(t, w, &health)
	assert.Equal(t, "healthy", health["status"])
	assert.Equal(t, float64(5), health["records"])
	assert.Equal(t, false, health["corrupt"])

	assert.Equal(t, float64(1), testutil.ToFloat64(metrics.healthChecksTotal.WithLabelValues(statusSuccess)))
	assert.Equal(t, float64(1), testutil.ToFloat64(metrics.httpRequestsTotal.WithLabelValues("GET", "/api/v1/health", "200")))
}

func TestRequiresAPIKey(t *testing.T) {
	h, metrics, _ := setupTestServer(t, cleanPass())

	req := httptest.NewRequest(http.MethodGet, "/api/v1/records", nil)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	req = httptest.NewRequest(http.MethodGet, "/api/v1/records", nil)
	req.Header.Set("X-API-Key", "wrong")
	w = httptest.NewRecorder()
	h.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, float64(1), testutil.ToFloat64(metrics.authRequestsTotal.WithLabelValues(statusError)))
}

func TestListRecords(t *testing.T) {
	h, _, _ := setupTestServer(t, cleanPass())

	w := doRequest(t, h, "/api/v1/records")
	require.Equal(t, http.StatusOK, w.Code)

	var page RecordPage
	decodeData(t, w, &page)
	assert.Equal(t, 5, page.Total)
	assert.Equal(t, defaultPageLimit, page.Limit)
	require.Len(t, page.Records, 5)
	for i, rec := range page.Records {
		assert.Equal(t, i, rec.Index)
	}
	assert.Equal(t, "line 0", page.Records[0].Text)
	assert.Equal(t, "kern", page.Records[0].Facility)
	assert.Equal(t, "err", page.Records[0].Level)
	assert.Equal(t, []string{"SUBSYSTEM=usb"}, page.Records[0].Dictionary)
}

func TestListRecords_Paging(t *testing.T) {
	h, _, _ := setupTestServer(t, cleanPass())

	w := doRequest(t, h, "/api/v1/records?offset=1&limit=2")
	require.Equal(t, http.StatusOK, w.Code)

	var page RecordPage
	decodeData(t, w, &page)
	assert.Equal(t, 5, page.Total)
	require.Len(t, page.Records, 2)
	assert.Equal(t, 1, page.Records[0].Index)
	assert.Equal(t, 2, page.Records[1].Index)

	w = doRequest(t, h, "/api/v1/records?offset=10")
	decodeData(t, w, &page)
	assert.Empty(t, page.Records)
	assert.Equal(t, 5, page.Total)
}

func TestListRecords_LevelFilter(t *testing.T) {
	h, _, _ := setupTestServer(t, cleanPass())

	w := doRequest(t, h, "/api/v1/records?level=err")
	require.Equal(t, http.StatusOK, w.Code)

	var page RecordPage
	decodeData(t, w, &page)
	assert.Equal(t, 3, page.Total)
	require.Len(t, page.Records, 3)
	assert.Equal(t, []int{0, 2, 4}, []int{page.Records[0].Index, page.Records[1].Index, page.Records[2].Index})
}

func TestListRecords_BadParams(t *testing.T) {
	h, _, _ := setupTestServer(t, cleanPass())

	for _, path := range []string{
		"/api/v1/records?offset=-1",
		"/api/v1/records?offset=x",
		"/api/v1/records?limit=0",
		"/api/v1/records?level=loud",
	} {
		w := doRequest(t, h, path)
		assert.Equal(t, http.StatusBadRequest, w.Code, path)
	}
}

func TestGetRecord(t *testing.T) {
	h, _, _ := setupTestServer(t, cleanPass())

	w := doRequest(t, h, "/api/v1/records/3")
	require.Equal(t, http.StatusOK, w.Code)

	var rec IndexedRecord
	decodeData(t, w, &rec)
	assert.Equal(t, 3, rec.Index)
	assert.Equal(t, "line 3", rec.Text)
	assert.Equal(t, uint64(6_000_000_000), rec.Timestamp)

	assert.Equal(t, http.StatusNotFound, doRequest(t, h, "/api/v1/records/5").Code)
	assert.Equal(t, http.StatusBadRequest, doRequest(t, h, "/api/v1/records/abc").Code)
}

func TestRecordsText(t *testing.T) {
	h, _, _ := setupTestServer(t, cleanPass())

	w := doRequest(t, h, "/api/v1/records/text")
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, strings.HasPrefix(w.Header().Get("Content-Type"), "text/plain"))

	lines := strings.Split(strings.TrimRight(w.Body.String(), "\n"), "\n")
	require.Len(t, lines, 5)
	assert.Equal(t, "[    1.500000] line 0", lines[0])

	w = doRequest(t, h, "/api/v1/records/text?levels=true")
	lines = strings.Split(strings.TrimRight(w.Body.String(), "\n"), "\n")
	assert.Equal(t, "kern  :err   : [    1.500000] line 0", lines[0])
}

func TestPass_Corrupt(t *testing.T) {
	result := store.PassResult{
		ID:      ksuid.New(),
		Records: 5,
		Bytes:   210,
		Outcome: printk.OutcomeTruncated,
		Err:     &printk.DecodeError{Outcome: printk.OutcomeTruncated, Offset: 200, Err: printk.ErrTruncated},
	}
	h, _, _ := setupTestServer(t, result)

	var pass PassSummary
	decodeData(t, doRequest(t, h, "/api/v1/pass"), &pass)
	assert.Equal(t, result.ID.String(), pass.ID)
	assert.Equal(t, "capture.bin", pass.Source)
	assert.Equal(t, "truncated", pass.Outcome)
	assert.True(t, pass.Corrupt)
	assert.Equal(t, "logbuf record at offset 200: truncated record", pass.Error)

	var health map[string]interface{}
	decodeData(t, doRequest(t, h, "/api/v1/health"), &health)
	assert.Equal(t, true, health["corrupt"])
}

func TestPass_StoreFull(t *testing.T) {
	result := store.PassResult{
		ID:      ksuid.New(),
		Records: 5,
		Outcome: printk.OutcomeOK,
		Err:     fmt.Errorf("record 5 at offset 200: %w", store.ErrStoreFull),
	}
	h, _, _ := setupTestServer(t, result)

	var pass PassSummary
	decodeData(t, doRequest(t, h, "/api/v1/pass"), &pass)
	assert.Equal(t, "ok", pass.Outcome)
	assert.False(t, pass.Corrupt)
	assert.NotEmpty(t, pass.Error)
}

func TestMetricsEndpoint(t *testing.T) {
	h, _, _ := setupTestServer(t, cleanPass())
	doRequest(t, h, "/api/v1/health")

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "logbuf_health_checks_total")
}

func TestServerConfig_Addr(t *testing.T) {
	assert.Equal(t, "127.0.0.1:8080", ServerConfig{Bind: "127.0.0.1", Port: 8080}.Addr())
	assert.Equal(t, ":9000", ServerConfig{Port: 9000}.Addr())
}

func TestSwaggerDoc(t *testing.T) {
	h, _, _ := setupTestServer(t, cleanPass())

	req := httptest.NewRequest(http.MethodGet, "/swagger/doc.json", nil)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var doc map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &doc))
	assert.Equal(t, "2.0", doc["swagger"])
	assert.Equal(t, "/api/v1", doc["basePath"])
	assert.Contains(t, doc["paths"], "/records/{index}")
}
