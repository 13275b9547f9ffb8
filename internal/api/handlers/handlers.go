package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/dvloznov/gg-parser/internal/api/middleware"
	"github.com/dvloznov/gg-parser/internal/domain"
	"github.com/dvloznov/gg-parser/internal/logger"
	"github.com/dvloznov/gg-parser/internal/pipeline"
)

// APIVersion is reported by the root endpoint.
const APIVersion = "1.0.0"

const (
	defaultExpensesLimit = 100
	maxRequestBodyBytes  = 1 << 20
)

// EmailProcessor runs one email through extraction and persistence.
type EmailProcessor interface {
	Process(ctx context.Context, email domain.RawEmail) (*pipeline.Result, error)
}

// ExpenseLister reads stored transaction rows back, one page at a time.
type ExpenseLister interface {
	ListExpenses(ctx context.Context, destinationID, tab string, limit, offset int) ([][]interface{}, error)
}

// EmailRequest is the body of POST /parse-email. All fields are required.
type EmailRequest struct {
	Subject *string `json:"subject"`
	Body    *string `json:"body"`
	Date    *string `json:"date"`
}

// TransactionResponse is the extracted transaction as clients see it.
type TransactionResponse struct {
	Amount   float64 `json:"amount"`
	CardType *string `json:"card_type"`
	Merchant *string `json:"merchant"`
	Datetime *string `json:"datetime"`
}

// ParseResponse is the body returned by POST /parse-email.
type ParseResponse struct {
	Status      string               `json:"status"`
	Transaction *TransactionResponse `json:"transaction"`
	Message     *string              `json:"message"`
}

// EmailHandler handles POST /parse-email.
// Request-scoped logging comes from the context set by middleware.RequestID.
type EmailHandler struct {
	processor EmailProcessor
}

// NewEmailHandler creates a new email handler.
func NewEmailHandler(processor EmailProcessor) *EmailHandler {
	return &EmailHandler{processor: processor}
}

// ParseEmail handles POST /parse-email
func (h *EmailHandler) ParseEmail(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.FromContext(ctx)

	var req EmailRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBodyBytes)).Decode(&req); err != nil {
		middleware.WriteError(w, http.StatusUnprocessableEntity, "Invalid request body")
		return
	}
	if field := missingField(req); field != "" {
		middleware.WriteError(w, http.StatusUnprocessableEntity, "Field required: "+field)
		return
	}

	email := domain.RawEmail{Subject: *req.Subject, Body: *req.Body, Date: *req.Date}

	result, err := h.processor.Process(ctx, email)
	if err != nil {
		log.Error().Err(err).Str("subject", email.Subject).Msg("Failed to process email")
		middleware.WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}

	middleware.WriteJSON(w, http.StatusOK, NewParseResponse(result))
}

func missingField(req EmailRequest) string {
	switch {
	case req.Subject == nil:
		return "subject"
	case req.Body == nil:
		return "body"
	case req.Date == nil:
		return "date"
	}
	return ""
}

// NewParseResponse converts a pipeline result into its wire form.
func NewParseResponse(result *pipeline.Result) ParseResponse {
	resp := ParseResponse{Status: string(result.Status)}
	if result.Message != "" {
		msg := result.Message
		resp.Message = &msg
	}
	if result.Transaction != nil {
		resp.Transaction = newTransactionResponse(*result.Transaction)
	}
	return resp
}

func newTransactionResponse(rec domain.TransactionRecord) *TransactionResponse {
	tx := &TransactionResponse{Amount: rec.Amount.InexactFloat64()}
	if rec.Instrument != domain.InstrumentUnknown {
		cardType := string(rec.Instrument)
		tx.CardType = &cardType
	}
	if rec.Merchant != "" {
		merchant := rec.Merchant
		tx.Merchant = &merchant
	}
	if rec.OccurredAt != nil {
		dt := rec.OccurredAt.String()
		tx.Datetime = &dt
	}
	return tx
}

// ExpensesHandler handles GET /expenses.
type ExpensesHandler struct {
	lister ExpenseLister
	dest   pipeline.Destination
}

// NewExpensesHandler creates a new expenses handler. A nil lister or an
// unconfigured destination makes the endpoint answer 503.
func NewExpensesHandler(lister ExpenseLister, dest pipeline.Destination) *ExpensesHandler {
	return &ExpensesHandler{
		lister: lister,
		dest:   dest,
	}
}

// ListExpenses handles GET /expenses?limit=100&offset=0
func (h *ExpensesHandler) ListExpenses(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	query := r.URL.Query()
	limit, ok := intParam(query.Get("limit"), defaultExpensesLimit)
	if !ok || limit < 1 {
		middleware.WriteError(w, http.StatusUnprocessableEntity, "limit must be a positive integer")
		return
	}
	offset, ok := intParam(query.Get("offset"), 0)
	if !ok || offset < 0 {
		middleware.WriteError(w, http.StatusUnprocessableEntity, "offset must be a non-negative integer")
		return
	}

	if h.lister == nil || !h.dest.Configured() {
		middleware.WriteError(w, http.StatusServiceUnavailable, h.dest.MissingReason)
		return
	}

	rows, err := h.lister.ListExpenses(ctx, h.dest.ID, h.dest.Tab, limit, offset)
	if err != nil {
		log := logger.FromContext(ctx)
		log.Error().Err(err).Str("destination", h.dest.ID).Msg("Failed to list expenses")
		middleware.WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if rows == nil {
		rows = [][]interface{}{}
	}

	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"status": "success",
		"count":  len(rows),
		"data":   rows,
	})
}

func intParam(raw string, fallback int) (int, bool) {
	if raw == "" {
		return fallback, true
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, false
	}
	return v, true
}

// Root handles GET / with a service banner.
func Root(w http.ResponseWriter, r *http.Request) {
	middleware.WriteJSON(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"message": "GG - Gestor de Gastos API está funcionando",
		"version": APIVersion,
		"docs":    "/docs",
	})
}

// Health handles GET /health
func Health(w http.ResponseWriter, r *http.Request) {
	middleware.WriteJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}
