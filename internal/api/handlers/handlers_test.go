package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/dvloznov/gg-parser/internal/domain"
	"github.com/dvloznov/gg-parser/internal/extractor"
	"github.com/dvloznov/gg-parser/internal/pipeline"
)

const creditCardBody = "Te informamos que se ha realizado una compra por $122.000 con Tarjeta de Crédito ****1234 en SII el 05/02/2026 16:23."

// MockSink records appends and returns a canned answer.
type MockSink struct {
	detail string
	err    error
	calls  int
}

func (m *MockSink) Append(ctx context.Context, req pipeline.AppendRequest) (string, error) {
	m.calls++
	return m.detail, m.err
}

// MockProcessor fails every request.
type MockProcessor struct {
	err error
}

func (m *MockProcessor) Process(ctx context.Context, email domain.RawEmail) (*pipeline.Result, error) {
	return nil, m.err
}

// MockLister returns canned rows and remembers the page it was asked for.
type MockLister struct {
	rows   [][]interface{}
	err    error
	limit  int
	offset int
	tab    string
}

func (m *MockLister) ListExpenses(ctx context.Context, destinationID, tab string, limit, offset int) ([][]interface{}, error) {
	m.tab, m.limit, m.offset = tab, limit, offset
	return m.rows, m.err
}

var sheetsDest = pipeline.Destination{ID: "sheet-123", Tab: "Gastos", Label: pipeline.DefaultSinkLabel, FailureLabel: pipeline.DefaultFailureLabel, MissingReason: pipeline.DefaultMissingReason}

func postEmail(t *testing.T, h *EmailHandler, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/parse-email", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ParseEmail(rec, req)
	return rec
}

func emailJSON(body string) string {
	b, _ := json.Marshal(map[string]string{"subject": "Compra", "body": body, "date": "2026-02-05T19:23:00Z"})
	return string(b)
}

func TestParseEmail_Saved(t *testing.T) {
	sink := &MockSink{detail: "Gastos!A7:E7"}
	h := NewEmailHandler(pipeline.NewProcessor(extractor.New(), sink, sheetsDest))

	rec := postEmail(t, h, emailJSON(creditCardBody))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}

	var resp ParseResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if resp.Status != "success" {
		t.Errorf("Status = %q", resp.Status)
	}
	if resp.Transaction == nil {
		t.Fatal("expected transaction")
	}
	if resp.Transaction.Amount != 122000 {
		t.Errorf("Amount = %v", resp.Transaction.Amount)
	}
	if resp.Transaction.CardType == nil || *resp.Transaction.CardType != "Crédito" {
		t.Errorf("CardType = %v", resp.Transaction.CardType)
	}
	if resp.Transaction.Merchant == nil || *resp.Transaction.Merchant != "SII" {
		t.Errorf("Merchant = %v", resp.Transaction.Merchant)
	}
	if resp.Transaction.Datetime == nil || *resp.Transaction.Datetime != "05/02/2026 16:23" {
		t.Errorf("Datetime = %v", resp.Transaction.Datetime)
	}
	want := "✅ Guardado en Google Sheets: Agregada fila en rango: Gastos!A7:E7"
	if resp.Message == nil || *resp.Message != want {
		t.Errorf("Message = %v, want %q", resp.Message, want)
	}
	if sink.calls != 1 {
		t.Errorf("sink called %d times, want 1", sink.calls)
	}
}

func TestParseEmail_SinkFailureStillSucceeds(t *testing.T) {
	sink := &MockSink{err: errors.New("googleapi: Error 403: The caller does not have permission")}
	h := NewEmailHandler(pipeline.NewProcessor(extractor.New(), sink, sheetsDest))

	rec := postEmail(t, h, emailJSON(creditCardBody))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}

	var resp ParseResponse
	_ = json.NewDecoder(rec.Body).Decode(&resp)
	if resp.Status != "success" || resp.Transaction == nil {
		t.Fatalf("unexpected response %+v", resp)
	}
	if resp.Message == nil || !strings.HasPrefix(*resp.Message, "⚠️ No guardado en Sheets: ") {
		t.Errorf("Message = %v", resp.Message)
	}
}

func TestParseEmail_NotFound(t *testing.T) {
	sink := &MockSink{}
	h := NewEmailHandler(pipeline.NewProcessor(extractor.New(), sink, sheetsDest))

	rec := postEmail(t, h, emailJSON("Hola, este correo no trae montos."))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}

	var raw map[string]interface{}
	_ = json.NewDecoder(rec.Body).Decode(&raw)
	if raw["status"] != "error" {
		t.Errorf("status = %v", raw["status"])
	}
	if raw["transaction"] != nil {
		t.Errorf("transaction = %v, want null", raw["transaction"])
	}
	if raw["message"] != pipeline.MessageNotFound {
		t.Errorf("message = %v", raw["message"])
	}
	if sink.calls != 0 {
		t.Error("sink must not be called when nothing was extracted")
	}
}

func TestParseEmail_NullOptionalFields(t *testing.T) {
	h := NewEmailHandler(pipeline.NewProcessor(extractor.New(), nil, pipeline.Destination{MissingReason: pipeline.DefaultMissingReason}))

	rec := postEmail(t, h, emailJSON("Monto $950"))

	var raw map[string]interface{}
	_ = json.NewDecoder(rec.Body).Decode(&raw)
	tx, ok := raw["transaction"].(map[string]interface{})
	if !ok {
		t.Fatalf("transaction = %v", raw["transaction"])
	}
	for _, key := range []string{"card_type", "merchant", "datetime"} {
		v, present := tx[key]
		if !present || v != nil {
			t.Errorf("%s = %v (present %v), want null", key, v, present)
		}
	}
	want := "⚠️ No guardado en Sheets: " + pipeline.DefaultMissingReason
	if raw["message"] != want {
		t.Errorf("message = %v, want %q", raw["message"], want)
	}
}

func TestParseEmail_InvalidRequests(t *testing.T) {
	h := NewEmailHandler(&MockProcessor{})

	tests := []struct {
		name       string
		body       string
		wantDetail string
	}{
		{"not json", "{", "Invalid request body"},
		{"missing body", `{"subject":"x","date":"y"}`, "Field required: body"},
		{"missing subject", `{"body":"x","date":"y"}`, "Field required: subject"},
		{"missing date", `{"subject":"x","body":"y"}`, "Field required: date"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := postEmail(t, h, tt.body)
			if rec.Code != http.StatusUnprocessableEntity {
				t.Fatalf("status = %d, want 422", rec.Code)
			}
			var body map[string]string
			_ = json.NewDecoder(rec.Body).Decode(&body)
			if body["detail"] != tt.wantDetail {
				t.Errorf("detail = %q, want %q", body["detail"], tt.wantDetail)
			}
		})
	}
}

func TestParseEmail_EmptyBodyIsNotMissing(t *testing.T) {
	h := NewEmailHandler(pipeline.NewProcessor(extractor.New(), nil, pipeline.Destination{}))

	rec := postEmail(t, h, `{"subject":"","body":"","date":""}`)
	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", rec.Code)
	}
}

func TestParseEmail_UnexpectedFailure(t *testing.T) {
	h := NewEmailHandler(&MockProcessor{err: errors.New("Process: boom")})

	rec := postEmail(t, h, emailJSON(creditCardBody))
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", rec.Code)
	}
	var body map[string]string
	_ = json.NewDecoder(rec.Body).Decode(&body)
	if body["detail"] != "Process: boom" {
		t.Errorf("detail = %q", body["detail"])
	}
}

func TestParseEmail_MalformedSinkResponse(t *testing.T) {
	sink := &MockSink{err: pipeline.ErrMalformedResponse}
	h := NewEmailHandler(pipeline.NewProcessor(extractor.New(), sink, sheetsDest))

	rec := postEmail(t, h, emailJSON(creditCardBody))
	if rec.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", rec.Code)
	}
}

func TestListExpenses(t *testing.T) {
	rows := [][]interface{}{{"05/02/2026", "16:23", "SII", "Crédito", "122000"}}

	tests := []struct {
		name       string
		query      string
		lister     *MockLister
		dest       pipeline.Destination
		wantStatus int
		wantLimit  int
		wantOffset int
	}{
		{"defaults", "", &MockLister{rows: rows}, sheetsDest, http.StatusOK, 100, 0},
		{"paged", "?limit=10&offset=5", &MockLister{rows: rows}, sheetsDest, http.StatusOK, 10, 5},
		{"bad limit", "?limit=abc", &MockLister{}, sheetsDest, http.StatusUnprocessableEntity, 0, 0},
		{"zero limit", "?limit=0", &MockLister{}, sheetsDest, http.StatusUnprocessableEntity, 0, 0},
		{"negative offset", "?offset=-1", &MockLister{}, sheetsDest, http.StatusUnprocessableEntity, 0, 0},
		{"not configured", "", &MockLister{}, pipeline.Destination{MissingReason: "nope"}, http.StatusServiceUnavailable, 0, 0},
		{"read failure", "", &MockLister{err: errors.New("sheets read: boom")}, sheetsDest, http.StatusInternalServerError, 100, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewExpensesHandler(tt.lister, tt.dest)
			rec := httptest.NewRecorder()
			h.ListExpenses(rec, httptest.NewRequest(http.MethodGet, "/expenses"+tt.query, nil))

			if rec.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
			if tt.lister.limit != tt.wantLimit || tt.lister.offset != tt.wantOffset {
				t.Errorf("lister got limit=%d offset=%d", tt.lister.limit, tt.lister.offset)
			}
			if tt.wantStatus != http.StatusOK {
				return
			}

			var body struct {
				Status string          `json:"status"`
				Count  int             `json:"count"`
				Data   [][]interface{} `json:"data"`
			}
			if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
				t.Fatalf("decoding: %v", err)
			}
			if body.Status != "success" || body.Count != 1 || len(body.Data) != 1 {
				t.Errorf("unexpected body %+v", body)
			}
			if tt.lister.tab != "Gastos" {
				t.Errorf("tab = %q", tt.lister.tab)
			}
		})
	}
}

func TestListExpenses_EmptyIsArray(t *testing.T) {
	h := NewExpensesHandler(&MockLister{}, sheetsDest)
	rec := httptest.NewRecorder()
	h.ListExpenses(rec, httptest.NewRequest(http.MethodGet, "/expenses", nil))

	if !strings.Contains(rec.Body.String(), `"data":[]`) {
		t.Errorf("body = %s, want empty data array", rec.Body.String())
	}
}

func TestRootAndHealth(t *testing.T) {
	rec := httptest.NewRecorder()
	Root(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	var root map[string]string
	_ = json.NewDecoder(rec.Body).Decode(&root)
	if root["status"] != "ok" || root["version"] != APIVersion || root["docs"] != "/docs" {
		t.Errorf("root = %v", root)
	}

	rec = httptest.NewRecorder()
	Health(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	if strings.TrimSpace(rec.Body.String()) != `{"status":"healthy"}` {
		t.Errorf("health = %s", rec.Body.String())
	}
}
