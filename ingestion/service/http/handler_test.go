package http

import (
	"context"
	"encoding/json"
	"io"
	"log"
	"math"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"statsvc/config"
	core "statsvc/ingestion/service/core"
	"statsvc/internal/messaging/producer"
	"statsvc/processing"
	"statsvc/storage/store"
)

type testServer struct {
	handler http.Handler
	store   store.Store
}

func newTestServer(t *testing.T, maxBodyBytes int64) *testServer {
	t.Helper()
	logger := log.New(io.Discard, "", 0)

	dbCfg := config.DatabaseConfig{Driver: config.DriverSQLite, DSN: filepath.Join(t.TempDir(), "stats.db")}
	dbCfg.SetDefaults()
	s, err := store.New(context.Background(), dbCfg, logger)
	require.NoError(t, err)
	t.Cleanup(s.Close)

	n, err := processing.NewNormalizer("US/Eastern", "UTC")
	require.NoError(t, err)

	batchCfg := config.BatchProcessorConfig{BatchSize: 100, BatchTimeout: time.Hour, FlushChannelBuffer: 4}
	svc := core.NewService(s, producer.NewNoopProducer(logger), processing.NewProcessor(n), logger, batchCfg)
	t.Cleanup(svc.Close)

	monitoring := config.MonitoringConfig{EnableMetrics: true}
	monitoring.SetDefaults()

	return &testServer{
		handler: NewRouter(NewStatsHandler(svc, logger, maxBodyBytes), monitoring),
		store:   s,
	}
}

func (ts *testServer) do(t *testing.T, method, path, body string) (*httptest.ResponseRecorder, map[string]interface{}) {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	ts.handler.ServeHTTP(rec, req)

	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &decoded), "body: %s", rec.Body.String())
	return rec, decoded
}

func (ts *testServer) ingest(t *testing.T, body string) string {
	t.Helper()
	rec, resp := ts.do(t, http.MethodPost, "/ingest/", body)
	require.Equal(t, http.StatusOK, rec.Code, "body: %s", rec.Body.String())
	return resp["request_id"].(string)
}

func TestIngest_Success(t *testing.T) {
	ts := newTestServer(t, 0)

	rec, resp := ts.do(t, http.MethodPost, "/ingest/", `{"time_stamp": "2019-05-01T06:00:00-04:00", "data": [1, 2, 3, 4]}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.Equal(t, MsgIngestAccepted, resp["message"])

	id, err := uuid.Parse(resp["request_id"].(string))
	require.NoError(t, err)
	assert.Equal(t, uuid.Version(4), id.Version())
}

func TestIngest_WithoutTrailingSlash(t *testing.T) {
	ts := newTestServer(t, 0)

	rec, _ := ts.do(t, http.MethodPost, "/ingest", `{"time_stamp": "2023-08-15T14:30:00-0400", "data": [1]}`)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestIngestThenGetStats(t *testing.T) {
	ts := newTestServer(t, 0)
	id := ts.ingest(t, `{"time_stamp": "2023-08-15T14:30:00-0400", "data": [1, 2, 3, 4, 5]}`)

	rec, resp := ts.do(t, http.MethodGet, "/get_stats/"+id, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 3.0, resp["mean"])
	assert.InDelta(t, math.Sqrt2, resp["std_dev"], 1e-12)
	assert.Len(t, resp, 2)
}

func TestIngest_IdenticalRequestsGetDistinctIDs(t *testing.T) {
	ts := newTestServer(t, 0)
	body := `{"time_stamp": "2023-08-15T14:30:00-0700", "data": [2, 4, 4, 4, 5, 5, 7, 9]}`

	first := ts.ingest(t, body)
	second := ts.ingest(t, body)
	assert.NotEqual(t, first, second)

	for _, id := range []string{first, second} {
		rec, resp := ts.do(t, http.MethodGet, "/get_stats/"+id, "")
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, 5.0, resp["mean"])
		assert.Equal(t, 2.0, resp["std_dev"])
	}
}

func TestIngest_ValidationErrors(t *testing.T) {
	ts := newTestServer(t, 0)

	tests := []struct {
		name   string
		body   string
		detail string
	}{
		{"space separated timestamp", `{"time_stamp": "2023-08-15 14:30:00-0400", "data": [1]}`, processing.MsgInvalidTimestampFormat},
		{"zulu timestamp", `{"time_stamp": "2023-08-15T14:30:00Z", "data": [1]}`, processing.MsgInvalidTimestampFormat},
		{"fractional seconds", `{"time_stamp": "2023-08-15T14:30:00.123456-0400", "data": [1]}`, processing.MsgInvalidTimestampFormat},
		{"missing timestamp", `{"data": [1]}`, processing.MsgInvalidTimestampFormat},
		{"empty data", `{"time_stamp": "2023-08-15T14:30:00-0400", "data": []}`, processing.MsgEmptyOrMissingData},
		{"missing data", `{"time_stamp": "2023-08-15T14:30:00-0400"}`, processing.MsgEmptyOrMissingData},
		{"data not a list", `{"time_stamp": "2023-08-15T14:30:00-0400", "data": 5}`, processing.MsgEmptyOrMissingData},
		{"non-numeric data", `{"time_stamp": "2023-08-15T14:30:00-0400", "data": [1, "two", 3]}`, processing.MsgNonNumericData},
		{"boolean data", `{"time_stamp": "2023-08-15T14:30:00-0400", "data": [true]}`, processing.MsgNonNumericData},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, resp := ts.do(t, http.MethodPost, "/ingest/", tt.body)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Equal(t, tt.detail, resp["detail"])
			assert.Equal(t, float64(http.StatusBadRequest), resp["status"])
		})
	}
}

func TestIngest_BadRequests(t *testing.T) {
	ts := newTestServer(t, 0)

	rec, resp := ts.do(t, http.MethodPost, "/ingest/", `{"time_stamp": `)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, MsgInvalidJSON, resp["detail"])

	req := httptest.NewRequest(http.MethodPost, "/ingest/", strings.NewReader(`{}`))
	req.Header.Set("Content-Type", "text/plain")
	w := httptest.NewRecorder()
	ts.handler.ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), MsgInvalidContentType)

	req = httptest.NewRequest(http.MethodPost, "/ingest/", strings.NewReader(`{"time_stamp": "2023-08-15T14:30:00-0400", "data": [1]}`))
	req.Header.Set("Content-Type", "application/json; charset=utf-8")
	w = httptest.NewRecorder()
	ts.handler.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestIngest_WithoutContentType(t *testing.T) {
	ts := newTestServer(t, 0)

	req := httptest.NewRequest(http.MethodPost, "/ingest/", strings.NewReader(`{"time_stamp": "2023-08-15T14:30:00-0400", "data": [1, 2]}`))
	w := httptest.NewRecorder()
	ts.handler.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code, "body: %s", w.Body.String())
	assert.Contains(t, w.Body.String(), MsgIngestAccepted)
}

func TestIngest_OverflowingStatistics(t *testing.T) {
	ts := newTestServer(t, 0)

	for _, data := range []string{`[1e308, 1e308]`, `[-1e308, 1e308]`} {
		rec, resp := ts.do(t, http.MethodPost, "/ingest/", `{"time_stamp": "2023-08-15T14:30:00-0400", "data": `+data+`}`)
		assert.Equal(t, http.StatusBadRequest, rec.Code, "data %s", data)
		assert.Equal(t, processing.MsgStatsOutOfRange, resp["detail"])
	}

	_, resp := ts.do(t, http.MethodGet, "/metrics", "")
	counters := resp["counters"].(map[string]interface{})
	assert.Equal(t, float64(0), counters["ingested"])
	assert.Equal(t, float64(2), counters["validation_failures"])
}

func TestRespondJSON_EncodeFailureIsServerError(t *testing.T) {
	h := NewStatsHandler(nil, log.New(io.Discard, "", 0), 0)
	w := httptest.NewRecorder()

	h.respondJSON(w, StatsResponse{Mean: math.Inf(1)}, http.StatusOK)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))

	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, http.StatusText(http.StatusInternalServerError), resp["detail"])
	assert.Equal(t, float64(http.StatusInternalServerError), resp["status"])
}

func TestIngest_BodyTooLarge(t *testing.T) {
	ts := newTestServer(t, 32)

	rec, resp := ts.do(t, http.MethodPost, "/ingest/", `{"time_stamp": "2023-08-15T14:30:00-0400", "data": [1, 2, 3]}`)
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
	assert.Equal(t, MsgBodyTooLarge, resp["detail"])

	// Unknown length is cut off while reading
	req := httptest.NewRequest(http.MethodPost, "/ingest/", io.MultiReader(strings.NewReader(`{"time_stamp": "2023-08-15T14:30:00-0400", "data": [1, 2, 3]}`)))
	req.ContentLength = -1
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	ts.handler.ServeHTTP(w, req)
	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
}

func TestIngest_StorageFailure(t *testing.T) {
	ts := newTestServer(t, 0)
	ts.store.Close()

	rec, resp := ts.do(t, http.MethodPost, "/ingest/", `{"time_stamp": "2023-08-15T14:30:00-0400", "data": [1, 2]}`)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, MsgStoreFailed, resp["detail"])
}

func TestGetStats_Errors(t *testing.T) {
	ts := newTestServer(t, 0)

	tests := []struct {
		name   string
		id     string
		code   int
		detail string
	}{
		{"not a uuid", "not-a-uuid", http.StatusBadRequest, MsgInvalidRequestID},
		{"version 1 uuid", "a8098c1a-f86e-11da-bd1a-00112444be1e", http.StatusBadRequest, MsgInvalidRequestID},
		{"unknown id", uuid.NewString(), http.StatusNotFound, MsgRequestIDNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, resp := ts.do(t, http.MethodGet, "/get_stats/"+tt.id, "")
			assert.Equal(t, tt.code, rec.Code)
			assert.Equal(t, tt.detail, resp["detail"])
		})
	}
}

func TestHealthCheck(t *testing.T) {
	ts := newTestServer(t, 0)

	rec, resp := ts.do(t, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "healthy", resp["status"])

	ts.store.Close()
	rec, resp = ts.do(t, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, "unhealthy", resp["status"])
}

func TestMetrics(t *testing.T) {
	ts := newTestServer(t, 0)
	id := ts.ingest(t, `{"time_stamp": "2023-08-15T14:30:00-0400", "data": [1, 2]}`)
	ts.do(t, http.MethodGet, "/get_stats/"+id, "")
	ts.do(t, http.MethodGet, "/get_stats/"+uuid.NewString(), "")
	ts.do(t, http.MethodPost, "/ingest/", `{"time_stamp": "2023-08-15T14:30:00-0400", "data": []}`)

	rec, resp := ts.do(t, http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, rec.Code)

	counters := resp["counters"].(map[string]interface{})
	assert.Equal(t, float64(1), counters["ingested"])
	assert.Equal(t, float64(2), counters["lookups"])
	assert.Equal(t, float64(1), counters["not_found"])
	assert.Equal(t, float64(1), counters["validation_failures"])
	assert.Equal(t, float64(0), counters["storage_failures"])
}

func TestRouter_MethodAndPathErrors(t *testing.T) {
	ts := newTestServer(t, 0)

	rec, resp := ts.do(t, http.MethodGet, "/ingest/", "")
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
	assert.Equal(t, float64(http.StatusMethodNotAllowed), resp["status"])

	rec, _ = ts.do(t, http.MethodGet, "/nowhere", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
