package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yi-wen-tung/Shift-Work-Psychosis-meta-analysis/app"
	"github.com/yi-wen-tung/Shift-Work-Psychosis-meta-analysis/domain/meta"
	"github.com/yi-wen-tung/Shift-Work-Psychosis-meta-analysis/internal/model"
)

func newTestServer() *Server {
	return NewServer(app.NewAnalysisService(), model.FitOptions{})
}

func postJSON(t *testing.T, server *Server, path string, payload interface{}) *httptest.ResponseRecorder {
	t.Helper()
	body, err := json.Marshal(payload)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	server.Handler().ServeHTTP(rec, req)
	return rec
}

func apiStudies() []meta.StudyRecord {
	return []meta.StudyRecord{
		{Label: "Tanaka 2014", Measure: meta.MeasureSMD, Mean1: 10, Mean2: 8, SD1: 2, SD2: 2, N1: 30, N2: 30},
		{Label: "Osei 2016", Measure: meta.MeasureSMD, Mean1: 5.5, Mean2: 5.0, SD1: 1.5, SD2: 1.4, N1: 45, N2: 40},
		{Label: "Berg 2018", Measure: meta.MeasureOR, A: 20, B: 30, C: 12, D: 38},
	}
}

func TestHealth(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	newTestServer().Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestAnalyze_ReturnsResult(t *testing.T) {
	rec := postJSON(t, newTestServer(), "/api/analyze", AnalyzeRequest{Studies: apiStudies()})
	require.Equal(t, http.StatusOK, rec.Code)

	var result meta.AnalysisResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))

	assert.Equal(t, 3, result.Model.K)
	assert.Len(t, result.Studies, 3)
	assert.Len(t, result.Influence, 3)
	assert.GreaterOrEqual(t, result.Model.I2, 0.0)
	assert.LessOrEqual(t, result.Model.I2, 100.0)
}

func TestAnalyze_EmptyBatchRejected(t *testing.T) {
	rec := postJSON(t, newTestServer(), "/api/analyze", AnalyzeRequest{})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestAnalyze_FailFastSurfacesStudyError(t *testing.T) {
	studies := append(apiStudies(), meta.StudyRecord{Label: "Broken", Measure: "RR"})
	rec := postJSON(t, newTestServer(), "/api/analyze", AnalyzeRequest{Studies: studies, FailFast: true})

	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Contains(t, rec.Body.String(), "Broken")
}

func TestAnalyze_InvalidBody(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/api/analyze", bytes.NewReader([]byte("{not json")))
	rec := httptest.NewRecorder()
	newTestServer().Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAnalyzeReport_RendersHTML(t *testing.T) {
	rec := postJSON(t, newTestServer(), "/api/analyze/report", AnalyzeRequest{Studies: apiStudies()})
	require.Equal(t, http.StatusOK, rec.Code)

	assert.Contains(t, rec.Header().Get("Content-Type"), "text/html")
	assert.Contains(t, rec.Body.String(), "Meta-Analysis Summary")
	assert.Contains(t, rec.Body.String(), "Tanaka 2014")
}
