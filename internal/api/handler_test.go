package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/insightdelivered/finfeex/internal/analysis"
	"github.com/insightdelivered/finfeex/internal/extractor"
	"github.com/insightdelivered/finfeex/internal/logging"
	"github.com/insightdelivered/finfeex/internal/metrics"
	"github.com/insightdelivered/finfeex/internal/models"
	"github.com/insightdelivered/finfeex/internal/narrative"
	"github.com/insightdelivered/finfeex/internal/report"
)

type stubSummarizer struct {
	summary string
	err     error
}

func (s stubSummarizer) Summarize(context.Context, string) (string, error) {
	return s.summary, s.err
}

func setupTestApp(t *testing.T, summarizer narrative.Summarizer) *fiber.App {
	t.Helper()
	rec := metrics.New()
	logger := logging.NewNop()
	h := NewHandler(Options{
		Service:        analysis.NewService(extractor.New(1<<20), rec, logger, 800),
		Summarizer:     summarizer,
		Metrics:        rec,
		Logger:         logger,
		Defaults:       analysis.Params{AssumedTxnValue: 100, Recipient: "Support"},
		MaxUploadBytes: 1 << 20,
		Version:        "test",
	})
	return NewApp(h, ServerConfig{MetricsEnabled: true})
}

// uploadRequest builds a multipart POST /api/analyze request. An empty
// filename means no file part.
func uploadRequest(t *testing.T, filename string, content []byte, fields map[string]string) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	if filename != "" {
		part, err := mw.CreateFormFile("file", filename)
		require.NoError(t, err)
		_, err = part.Write(content)
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest("POST", "/api/analyze", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func jsonRequest(t *testing.T, method, target string, payload interface{}) *http.Request {
	t.Helper()
	data, err := json.Marshal(payload)
	require.NoError(t, err)
	req := httptest.NewRequest(method, target, bytes.NewReader(data))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func doRequest(t *testing.T, app *fiber.App, req *http.Request) (*http.Response, []byte) {
	t.Helper()
	resp, err := app.Test(req)
	require.NoError(t, err)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, body
}

func decodeError(t *testing.T, body []byte) AppError {
	t.Helper()
	var result struct {
		Success bool     `json:"success"`
		Error   AppError `json:"error"`
	}
	require.NoError(t, json.Unmarshal(body, &result), string(body))
	assert.False(t, result.Success)
	return result.Error
}

func TestHealthEndpoint(t *testing.T) {
	app := setupTestApp(t, nil)

	resp, body := doRequest(t, app, httptest.NewRequest("GET", "/api/health", nil))
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	var result map[string]string
	require.NoError(t, json.Unmarshal(body, &result))
	assert.Equal(t, "ok", result["status"])
	assert.Equal(t, "fiber", result["engine"])
	assert.Equal(t, "test", result["version"])
}

func TestAnalyzeEndpointRequiresInput(t *testing.T) {
	app := setupTestApp(t, nil)

	req := httptest.NewRequest("POST", "/api/analyze", nil)
	req.Header.Set("Content-Type", "multipart/form-data; boundary=----test")
	resp, _ := doRequest(t, app, req)
	assert.NotEqual(t, fiber.StatusOK, resp.StatusCode)

	resp, body := doRequest(t, app, uploadRequest(t, "", nil, map[string]string{"recipient": "Bank"}))
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, CodeNoInput, decodeError(t, body).Code)
}

func TestAnalyzeEndpoint_TextFile(t *testing.T) {
	app := setupTestApp(t, nil)
	statement := "Convenience fee ₹49\nProcessing fee 99\nSMS alert charges ₹15 per month\nOpening balance ₹10,000\n"

	resp, body := doRequest(t, app, uploadRequest(t, "jan.txt", []byte(statement), map[string]string{"recipient": "Acme Bank"}))
	require.Equal(t, fiber.StatusOK, resp.StatusCode, string(body))

	var a models.Analysis
	require.NoError(t, json.Unmarshal(body, &a))
	assert.Equal(t, models.SourceText, a.Source)
	require.Len(t, a.Fees, 3)
	assert.Equal(t, 328.0, a.Label.TotalAnnualCost)
	assert.Equal(t, 83, a.Label.TransparencyScore)
	assert.Equal(t, "₹", a.Label.Currency)
	assert.Contains(t, a.Complaint, "Dear Acme Bank,")
	assert.Equal(t, statement, a.Preview)
}

func TestAnalyzeEndpoint_TextField(t *testing.T) {
	app := setupTestApp(t, nil)

	fields := map[string]string{
		"text":                "FX markup 2%",
		"estimatedAnnualTxns": "1000",
		"assumedTxnValue":     "200",
	}
	resp, body := doRequest(t, app, uploadRequest(t, "", nil, fields))
	require.Equal(t, fiber.StatusOK, resp.StatusCode, string(body))

	var a models.Analysis
	require.NoError(t, json.Unmarshal(body, &a))
	require.Len(t, a.Fees, 1)
	require.NotNil(t, a.Fees[0].AnnualCostEstimate)
	assert.InDelta(t, 4000.0, *a.Fees[0].AnnualCostEstimate, 1e-9)
	assert.Contains(t, a.Complaint, "Dear Support,")
}

func TestAnalyzeEndpoint_RejectsUploads(t *testing.T) {
	tests := []struct {
		name     string
		filename string
		content  []byte
		status   int
		code     string
	}{
		{"csv extension", "jan.csv", []byte("fee,49"), fiber.StatusBadRequest, CodeUnsupportedFile},
		{"image extension", "jan.png", []byte("\x89PNG\r\n\x1a\n"), fiber.StatusBadRequest, CodeUnsupportedFile},
		{"pdf name with text body", "jan.pdf", []byte("Annual fee 499"), fiber.StatusBadRequest, CodeContentMismatch},
		{"txt name with pdf body", "jan.txt", []byte("%PDF-1.4\n"), fiber.StatusBadRequest, CodeContentMismatch},
		{"empty file", "jan.txt", []byte{}, fiber.StatusBadRequest, CodeEmptyFile},
		{"too large", "jan.txt", bytes.Repeat([]byte("a"), 1<<20+1), fiber.StatusRequestEntityTooLarge, CodeTooLarge},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			app := setupTestApp(t, nil)
			resp, body := doRequest(t, app, uploadRequest(t, tt.filename, tt.content, nil))
			assert.Equal(t, tt.status, resp.StatusCode)
			appErr := decodeError(t, body)
			assert.Equal(t, tt.code, appErr.Code)
			assert.Equal(t, "file", appErr.Field)
		})
	}
}

func TestAnalyzeEndpoint_ValidatesParams(t *testing.T) {
	tests := []struct {
		name   string
		fields map[string]string
		field  string
	}{
		{"negative txns", map[string]string{"text": "fee 10", "estimatedAnnualTxns": "-5"}, "estimatedAnnualTxns"},
		{"negative txn value", map[string]string{"text": "fee 10", "assumedTxnValue": "-1"}, "assumedTxnValue"},
		{"infinite txn value", map[string]string{"text": "FX markup 2.5%", "estimatedAnnualTxns": "12", "assumedTxnValue": "Inf"}, "assumedTxnValue"},
		{"NaN txn value", map[string]string{"text": "FX markup 2.5%", "estimatedAnnualTxns": "12", "assumedTxnValue": "NaN"}, "assumedTxnValue"},
		{"long recipient", map[string]string{"text": "fee 10", "recipient": strings.Repeat("x", 121)}, "recipient"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			app := setupTestApp(t, nil)
			resp, body := doRequest(t, app, uploadRequest(t, "", nil, tt.fields))
			assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
			appErr := decodeError(t, body)
			assert.Equal(t, CodeValidation, appErr.Code)
			assert.Equal(t, tt.field, appErr.Field)
		})
	}
}

func TestExportEndpoint(t *testing.T) {
	app := setupTestApp(t, nil)
	payload := map[string]interface{}{
		"fees": []models.AnnualizedFee{{
			Line:               "Annual fee 499",
			Type:               models.FeeAmount,
			Value:              models.Float(499),
			Category:           models.CategoryAnnualRenewal,
			Frequency:          models.FrequencyYearly,
			AnnualCostEstimate: models.Float(499),
		}},
	}

	resp, body := doRequest(t, app, jsonRequest(t, "POST", "/api/export?format=csv", payload))
	require.Equal(t, fiber.StatusOK, resp.StatusCode, string(body))
	assert.Equal(t, "text/csv; charset=utf-8", resp.Header.Get("Content-Type"))
	assert.Contains(t, resp.Header.Get("Content-Disposition"), "finfeex_fees.csv")
	assert.Equal(t, "Line,Type,Value,Currency,Category,Frequency,AnnualCostEstimate\nAnnual fee 499,amount,499,,Annual/Renewal,yearly,499\n", string(body))

	resp, body = doRequest(t, app, jsonRequest(t, "POST", "/api/export?format=yaml", payload))
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), "line: Annual fee 499")

	resp, body = doRequest(t, app, jsonRequest(t, "POST", "/api/export?format=xlsx", payload))
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, CodeUnsupportedFmt, decodeError(t, body).Code)
}

func TestCompareEndpoint(t *testing.T) {
	app := setupTestApp(t, nil)
	statements := []models.StatementRecord{
		{Name: "Bank A", Fees: []models.AnnualizedFee{{Line: "Annual fee 499", AnnualCostEstimate: models.Float(499)}}},
		{Name: "Bank B", Fees: []models.AnnualizedFee{{Line: "Annual fee 199", AnnualCostEstimate: models.Float(199)}}},
	}

	resp, body := doRequest(t, app, jsonRequest(t, "POST", "/api/compare", map[string]interface{}{"statements": statements}))
	require.Equal(t, fiber.StatusOK, resp.StatusCode, string(body))

	var cmp report.Comparison
	require.NoError(t, json.Unmarshal(body, &cmp))
	assert.Equal(t, "Bank B", cmp.Best)
	assert.Equal(t, "Bank A", cmp.Worst)
	assert.Equal(t, 300.0, cmp.PotentialSavings)
}

func TestCompareEndpoint_Errors(t *testing.T) {
	app := setupTestApp(t, nil)

	one := map[string]interface{}{"statements": []models.StatementRecord{{Name: "only"}}}
	resp, body := doRequest(t, app, jsonRequest(t, "POST", "/api/compare", one))
	assert.Equal(t, fiber.StatusUnprocessableEntity, resp.StatusCode)
	assert.Equal(t, CodeNotEnough, decodeError(t, body).Code)

	unnamed := map[string]interface{}{"statements": []models.StatementRecord{{Name: "a"}, {Name: ""}}}
	resp, body = doRequest(t, app, jsonRequest(t, "POST", "/api/compare", unnamed))
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	appErr := decodeError(t, body)
	assert.Equal(t, CodeValidation, appErr.Code)
	assert.Equal(t, "name", appErr.Field)
}

func TestSummarizeEndpoint(t *testing.T) {
	payload := map[string]interface{}{"fees": []models.AnnualizedFee{{Line: "Late fee ₹500", AnnualCostEstimate: models.Float(500)}}}

	tests := []struct {
		name       string
		summarizer narrative.Summarizer
		status     int
		code       string
	}{
		{"disabled", nil, fiber.StatusServiceUnavailable, CodeSummaryDisabled},
		{"rate limited", stubSummarizer{err: fmt.Errorf("%w: busy", narrative.ErrRateLimited)}, fiber.StatusTooManyRequests, CodeRateLimited},
		{"upstream failure", stubSummarizer{err: errors.New("boom")}, fiber.StatusBadGateway, CodeUpstream},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			app := setupTestApp(t, tt.summarizer)
			resp, body := doRequest(t, app, jsonRequest(t, "POST", "/api/summarize", payload))
			assert.Equal(t, tt.status, resp.StatusCode)
			assert.Equal(t, tt.code, decodeError(t, body).Code)
		})
	}

	t.Run("ok", func(t *testing.T) {
		app := setupTestApp(t, stubSummarizer{summary: "You pay ₹500 a year in late fees."})
		resp, body := doRequest(t, app, jsonRequest(t, "POST", "/api/summarize", payload))
		require.Equal(t, fiber.StatusOK, resp.StatusCode)

		var result map[string]string
		require.NoError(t, json.Unmarshal(body, &result))
		assert.Equal(t, "You pay ₹500 a year in late fees.", result["summary"])
	})
}

func TestMetricsEndpoint(t *testing.T) {
	app := setupTestApp(t, nil)

	resp, _ := doRequest(t, app, uploadRequest(t, "jan.csv", []byte("x"), nil))
	require.Equal(t, fiber.StatusBadRequest, resp.StatusCode)

	resp, body := doRequest(t, app, httptest.NewRequest("GET", "/metrics", nil))
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), `finfeex_request_errors_total{code="ERR_UNSUPPORTED_FILE"} 1`)
}

func TestUnknownRoute(t *testing.T) {
	app := setupTestApp(t, nil)

	resp, body := doRequest(t, app, httptest.NewRequest("GET", "/api/nope", nil))
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
	assert.Equal(t, CodeNotFound, decodeError(t, body).Code)
}

func TestPanicIsRecovered(t *testing.T) {
	app := setupTestApp(t, nil)
	app.Get("/api/panic", func(c *fiber.Ctx) error {
		panic("kaboom")
	})

	resp, body := doRequest(t, app, httptest.NewRequest("GET", "/api/panic", nil))
	assert.Equal(t, fiber.StatusInternalServerError, resp.StatusCode)
	assert.Equal(t, CodeInternal, decodeError(t, body).Code)
}

func TestCheckContentType(t *testing.T) {
	assert.NoError(t, checkContentType(".pdf", []byte("%PDF-1.7\n")))
	assert.NoError(t, checkContentType(".txt", []byte("Convenience fee ₹49")))
	assert.Error(t, checkContentType(".txt", []byte("\x00\x01\x02binary")))
	assert.Error(t, checkContentType(".pdf", []byte("plain words")))
}
