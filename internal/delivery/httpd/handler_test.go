package httpd

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/RubachokBoss/plagiarism-checker/duplicate-service/internal/config"
	"github.com/RubachokBoss/plagiarism-checker/duplicate-service/internal/models"
	"github.com/RubachokBoss/plagiarism-checker/duplicate-service/internal/repository"
	"github.com/RubachokBoss/plagiarism-checker/duplicate-service/internal/service"
	"github.com/RubachokBoss/plagiarism-checker/duplicate-service/internal/service/analyzer"
	"github.com/RubachokBoss/plagiarism-checker/duplicate-service/internal/service/integration"
	"github.com/RubachokBoss/plagiarism-checker/duplicate-service/internal/worker"
	"github.com/RubachokBoss/plagiarism-checker/duplicate-service/pkg/hash"
)

type testServer struct {
	router http.Handler
	store  *repository.MemoryStore
	blobs  *repository.MemoryBlobRepository
	audit  *repository.MemoryAuditRepository
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	logger := zerolog.New(io.Discard)
	store := repository.NewMemoryStore()
	blobs := repository.NewMemoryBlobRepository()
	audit := repository.NewMemoryAuditRepository()
	events := integration.NewNoopPublisher()
	sink := service.NewAuditSink(audit, time.Second, logger)

	hasher, err := hash.NewStreamHasher(hash.SHA256)
	require.NoError(t, err)

	backfillPool := worker.NewPool("backfill", 2, time.Second, logger)
	remediationPool := worker.NewPool("remediation", 1, time.Second, logger)

	backfill := service.NewBackfillService(store, store, blobs, hasher, backfillPool, nil, sink, events, logger)
	detection := service.NewDetectionService(store, analyzer.NewExactGrouper("sha256", true), 100, logger)
	remediation := service.NewRemediationService(store, remediationPool, sink, events, 10, logger)
	export := service.NewExportService(detection, logger)

	h := NewHandler(backfill, detection, remediation, export, store, []*worker.Pool{backfillPool, remediationPool}, logger)
	router := NewRouter(h, config.CORSConfig{AllowedOrigins: []string{"*"}}, 5*time.Second, logger)

	return &testServer{router: router, store: store, blobs: blobs, audit: audit}
}

func (s *testServer) add(id, assignment, content string, offset time.Duration) {
	location := "subs/" + id
	s.store.Put(&models.Submission{
		ID:           id,
		AssignmentID: assignment,
		StudentName:  "Student " + id,
		FileURL:      location,
		FileName:     id + ".pdf",
		SubmittedAt:  time.Date(2025, 5, 1, 9, 0, 0, 0, time.UTC).Add(offset),
		Status:       models.SubmissionStatusSubmitted,
	})
	s.blobs.Put(location, []byte(content))
}

func (s *testServer) do(method, target, body string, headers map[string]string) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   struct {
		Code    int               `json:"code"`
		Message string            `json:"message"`
		Fields  map[string]string `json:"fields"`
	} `json:"error"`
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env), rec.Body.String())
	return env
}

func TestHandler_BackfillDetectDelete(t *testing.T) {
	srv := newTestServer(t)
	srv.add("A", "a1", "same", 0)
	srv.add("B", "a1", "same", time.Minute)
	srv.add("C", "a1", "other", 2*time.Minute)

	rec := srv.do(http.MethodPost, "/api/v1/fingerprints/backfill", `{"assignment_id":"a1"}`, map[string]string{ActorHeader: "admin"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var report models.BackfillReport
	require.NoError(t, json.Unmarshal(decode(t, rec).Data, &report))
	assert.True(t, report.Complete)
	assert.Equal(t, 3, report.After.WithHash)

	rec = srv.do(http.MethodPost, "/api/v1/duplicates/detect", `{"assignment_id":"a1","min_similarity":100}`, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var detection models.DetectionReport
	require.NoError(t, json.Unmarshal(decode(t, rec).Data, &detection))
	require.Len(t, detection.Groups, 1)
	assert.Equal(t, 2, detection.Groups[0].Size)

	rec = srv.do(http.MethodDelete, "/api/v1/submissions/B", "", map[string]string{ActorHeader: "t.ivanova"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var outcome models.RemediationOutcome
	require.NoError(t, json.Unmarshal(decode(t, rec).Data, &outcome))
	assert.Equal(t, models.RemediationStatusDeleted, outcome.Status)

	rec = srv.do(http.MethodPost, "/api/v1/duplicates/detect", `{"assignment_id":"a1"}`, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(decode(t, rec).Data, &detection))
	assert.Empty(t, detection.Groups)
}

func TestHandler_DetectValidation(t *testing.T) {
	srv := newTestServer(t)

	rec := srv.do(http.MethodPost, "/api/v1/duplicates/detect", `{"min_similarity":150}`, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	env := decode(t, rec)
	assert.False(t, env.Success)
	assert.Contains(t, env.Error.Fields, "min_similarity")

	rec = srv.do(http.MethodPost, "/api/v1/duplicates/detect", `{"assignment_id":"unknown"}`, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = srv.do(http.MethodPost, "/api/v1/duplicates/detect", `{"bogus":true}`, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandler_DetectBodyAcceptsBareDates(t *testing.T) {
	srv := newTestServer(t)
	srv.add("A", "a1", "same", 0)
	srv.add("B", "a1", "same", time.Minute)
	rec := srv.do(http.MethodPost, "/api/v1/fingerprints/backfill", `{"date_to":"2025-05-01"}`, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var report models.BackfillReport
	require.NoError(t, json.Unmarshal(decode(t, rec).Data, &report))
	assert.Len(t, report.Items, 2)

	rec = srv.do(http.MethodPost, "/api/v1/duplicates/detect", `{"date_from":"2025-05-01","date_to":"2025-05-01"}`, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var detection models.DetectionReport
	require.NoError(t, json.Unmarshal(decode(t, rec).Data, &detection))
	require.Len(t, detection.Groups, 1)
	assert.Equal(t, 2, detection.Groups[0].Size)

	rec = srv.do(http.MethodPost, "/api/v1/duplicates/detect", `{"date_from":"2025-05-02"}`, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(decode(t, rec).Data, &detection))
	assert.Empty(t, detection.Groups)

	rec = srv.do(http.MethodPost, "/api/v1/duplicates/detect", `{"date_to":"May 1st"}`, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandler_DeleteRequiresActor(t *testing.T) {
	srv := newTestServer(t)
	srv.add("A", "a1", "x", 0)

	rec := srv.do(http.MethodDelete, "/api/v1/submissions/A", "", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, 1, srv.store.Len())
}

func TestHandler_DeleteMissingIsAlreadyDeleted(t *testing.T) {
	srv := newTestServer(t)

	rec := srv.do(http.MethodDelete, "/api/v1/submissions/ghost", "", map[string]string{ActorHeader: "t.ivanova"})
	require.Equal(t, http.StatusOK, rec.Code)

	var outcome models.RemediationOutcome
	require.NoError(t, json.Unmarshal(decode(t, rec).Data, &outcome))
	assert.Equal(t, models.RemediationStatusAlreadyDeleted, outcome.Status)
}

func TestHandler_BulkDelete(t *testing.T) {
	srv := newTestServer(t)
	srv.add("A", "a1", "x", 0)
	srv.add("B", "a1", "y", time.Minute)

	rec := srv.do(http.MethodPost, "/api/v1/submissions/bulk-delete", `{"submission_ids":["A","B","Z"]}`, map[string]string{ActorHeader: "t.ivanova"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var result models.BatchRemediationResult
	require.NoError(t, json.Unmarshal(decode(t, rec).Data, &result))
	assert.Equal(t, 3, result.Total)
	assert.Equal(t, 2, result.Deleted)
	assert.Equal(t, 1, result.AlreadyDeleted)
	assert.Zero(t, srv.store.Len())
	assert.Len(t, srv.audit.All(), 3)

	rec = srv.do(http.MethodPost, "/api/v1/submissions/bulk-delete", `{"submission_ids":[]}`, map[string]string{ActorHeader: "t.ivanova"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandler_CoverageAndFingerprint(t *testing.T) {
	srv := newTestServer(t)
	srv.add("A", "a1", "x", 0)
	srv.add("B", "a1", "y", time.Minute)

	rec := srv.do(http.MethodGet, "/api/v1/fingerprints/coverage?assignment_id=a1", "", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var body struct {
		Coverage models.CoverageCounts `json:"coverage"`
		Complete bool                  `json:"complete"`
	}
	require.NoError(t, json.Unmarshal(decode(t, rec).Data, &body))
	assert.Equal(t, 2, body.Coverage.WithoutHash)
	assert.False(t, body.Complete)

	rec = srv.do(http.MethodGet, "/api/v1/fingerprints/A", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"hashed":false`)

	rec = srv.do(http.MethodGet, "/api/v1/fingerprints/nope", "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = srv.do(http.MethodGet, "/api/v1/fingerprints/coverage?date_from=yesterday", "", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandler_ExportCSV(t *testing.T) {
	srv := newTestServer(t)
	srv.add("A", "a1", "same", 0)
	srv.add("B", "a1", "same", time.Minute)
	rec := srv.do(http.MethodPost, "/api/v1/fingerprints/backfill", `{}`, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = srv.do(http.MethodGet, "/api/v1/duplicates/export?assignment_id=a1&date_to=2025-05-01", "", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/csv")
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "attachment")

	records, err := csv.NewReader(bytes.NewReader(rec.Body.Bytes())).ReadAll()
	require.NoError(t, err)
	assert.Len(t, records, 3)

	rec = srv.do(http.MethodGet, "/api/v1/duplicates/export?format=xml", "", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = srv.do(http.MethodGet, "/api/v1/duplicates/export?min_similarity=abc", "", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandler_Health(t *testing.T) {
	srv := newTestServer(t)

	rec := srv.do(http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"max_workers"`)

	rec = srv.do(http.MethodGet, "/ready", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}
