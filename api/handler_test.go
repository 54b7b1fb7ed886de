package api

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/apflow/invoice-match-service/internal/models"
)

func testHandler() *Handler {
	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)
	return NewHandler(&models.Config{
		AI: models.AIConfig{DefaultProvider: "mock"},
		Matching: models.MatchingConfig{
			FuzzyThreshold:            2,
			AmountTolerancePercent:    5.0,
			PaymentTermsToleranceDays: 1,
		},
	}, log)
}

func multipartUpload(t *testing.T, filename string, content []byte) (*bytes.Buffer, string) {
	t.Helper()
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	part, err := writer.CreateFormFile("file", filename)
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	require.NoError(t, writer.Close())
	return body, writer.FormDataContentType()
}

func TestHealth(t *testing.T) {
	router := testHandler().SetupRoutes()

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	require.Equal(t, http.StatusOK, rec.Code)

	var payload map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &payload))
	assert.Equal(t, "ok", payload["status"])
	assert.Contains(t, payload, "database")
	assert.Contains(t, payload, "storage")
	assert.Contains(t, payload, "ai")
}

func TestExtractAndMatchCSVUpload(t *testing.T) {
	router := testHandler().SetupRoutes()

	csv := "invoice_number,po_number,amount,currency_code,payment_term_days,vendor\n" +
		"INV-001,PO-1001,3055.00,USD,30,Acme Corp\n"
	body, contentType := multipartUpload(t, "invoices.csv", []byte(csv))

	req := httptest.NewRequest(http.MethodPost, "/api/extract-and-match", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp ExtractResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "completed", resp.Status)
	require.Len(t, resp.Results, 1)
	assert.Equal(t, "INV-001", resp.Results[0].InvoiceNumber)

	// Without a database there is no PO pool, so nothing matches.
	assert.Equal(t, "none", resp.Results[0].Matching.MatchType)
	assert.Nil(t, resp.Results[0].Matching.MatchedPO)
}

func TestExtractAndMatchRejectsUnsupportedType(t *testing.T) {
	router := testHandler().SetupRoutes()

	body, contentType := multipartUpload(t, "invoice.docx", []byte("not supported"))
	req := httptest.NewRequest(http.MethodPost, "/api/extract-and-match", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestExtractAndMatchRequiresFile(t *testing.T) {
	router := testHandler().SetupRoutes()

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	require.NoError(t, writer.WriteField("note", "no file attached"))
	require.NoError(t, writer.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/extract-and-match", body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestExtractAndMatchBadCSV(t *testing.T) {
	router := testHandler().SetupRoutes()

	body, contentType := multipartUpload(t, "invoices.csv", []byte("invoice_number\n"))
	req := httptest.NewRequest(http.MethodPost, "/api/extract-and-match", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestPurchaseOrderEndpointsNeedDatabase(t *testing.T) {
	router := testHandler().SetupRoutes()

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/purchase-orders", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/invoices", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	body, contentType := multipartUpload(t, "pos.csv", []byte("po_number\n"))
	req := httptest.NewRequest(http.MethodPost, "/api/purchase-orders/import", body)
	req.Header.Set("Content-Type", contentType)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestSelectProvider(t *testing.T) {
	handler := testHandler()

	// No API keys configured: every selection degrades to the mock.
	assert.Equal(t, "mock", handler.selectProvider("").Name())
	assert.Equal(t, "mock", handler.selectProvider("openai").Name())
	assert.Equal(t, "mock", handler.selectProvider("gemini").Name())

	handler.config.AI.OpenAI.APIKey = "sk-test"
	assert.Equal(t, "openai", handler.selectProvider("openai").Name())

	handler.config.AI.Gemini.APIKey = "g-test"
	assert.Equal(t, "gemini", handler.selectProvider("gemini").Name())
}
