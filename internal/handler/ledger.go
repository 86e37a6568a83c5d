package handler

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/tv-reposteria/api/internal/database"
	"github.com/tv-reposteria/api/internal/enum"
	"github.com/tv-reposteria/api/internal/report"
)

// LedgerStore defines the database methods needed by ledger handlers.
// Satisfied by *database.Queries; narrow interface for testability.
type LedgerStore interface {
	ListLedgerEntries(ctx context.Context, arg database.ListLedgerEntriesParams) ([]database.LedgerEntry, error)
	GetLedgerTotals(ctx context.Context, arg database.GetLedgerTotalsParams) (database.GetLedgerTotalsRow, error)
	ListLedgerMonthlyTotals(ctx context.Context, arg database.ListLedgerMonthlyTotalsParams) ([]database.ListLedgerMonthlyTotalsRow, error)
}

// LedgerHandler serves the ledger, the dashboard and the spreadsheet export.
// Mounted behind RequireRole(OWNER).
type LedgerHandler struct {
	store LedgerStore
}

// NewLedgerHandler creates a new LedgerHandler.
func NewLedgerHandler(store LedgerStore) *LedgerHandler {
	return &LedgerHandler{store: store}
}

// RegisterRoutes registers ledger endpoints on the given Chi router.
func (h *LedgerHandler) RegisterRoutes(r chi.Router) {
	r.Get("/ledger", h.List)
	r.Get("/ledger/export", h.Export)
	r.Get("/dashboard", h.Dashboard)
}

const (
	defaultPageSize = 20
	maxPageSize     = 100
	exportPageSize  = 500
)

// --- Response types ---

type ledgerEntryResponse struct {
	ID          uuid.UUID  `json:"id"`
	EntryDate   string     `json:"entry_date"`
	Amount      string     `json:"amount"`
	Description string     `json:"description"`
	EntryType   string     `json:"entry_type"`
	OrderID     *uuid.UUID `json:"order_id"`
	CreatedAt   time.Time  `json:"created_at"`
}

func toLedgerEntryResponse(e database.LedgerEntry) ledgerEntryResponse {
	resp := ledgerEntryResponse{
		ID:          e.ID,
		Amount:      numericToString(e.Amount),
		Description: e.Description,
		EntryType:   e.EntryType,
		CreatedAt:   e.CreatedAt,
	}
	if e.EntryDate.Valid {
		resp.EntryDate = e.EntryDate.Time.Format(time.DateOnly)
	}
	if e.OrderID.Valid {
		id := uuid.UUID(e.OrderID.Bytes)
		resp.OrderID = &id
	}
	return resp
}

// --- Handlers ---

// List returns ledger entries, newest first.
func (h *LedgerHandler) List(w http.ResponseWriter, r *http.Request) {
	from, to, err := parseDateFilter(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	limit, offset := parsePagination(r)

	params := database.ListLedgerEntriesParams{
		FromDate: from,
		ToDate:   to,
		Limit:    limit,
		Offset:   offset,
	}
	if s := r.URL.Query().Get("type"); s != "" {
		if !isValidLedgerEntryType(s) {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid type"})
			return
		}
		params.EntryType = pgtype.Text{String: s, Valid: true}
	}

	entries, err := h.store.ListLedgerEntries(r.Context(), params)
	if err != nil {
		writeInternalError(w, r, "list ledger entries", err)
		return
	}

	resp := make([]ledgerEntryResponse, len(entries))
	for i, e := range entries {
		resp[i] = toLedgerEntryResponse(e)
	}
	writeJSON(w, http.StatusOK, resp)
}

// Dashboard returns income, expenses, balance and the monthly series.
func (h *LedgerHandler) Dashboard(w http.ResponseWriter, r *http.Request) {
	from, to, err := parseDateFilter(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	d, err := h.dashboard(r.Context(), from, to)
	if err != nil {
		writeInternalError(w, r, "build dashboard", err)
		return
	}
	writeJSON(w, http.StatusOK, d)
}

// Export streams the ledger for the range as an .xlsx workbook.
func (h *LedgerHandler) Export(w http.ResponseWriter, r *http.Request) {
	from, to, err := parseDateFilter(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	var entries []database.LedgerEntry
	for offset := int32(0); ; offset += exportPageSize {
		page, err := h.store.ListLedgerEntries(r.Context(), database.ListLedgerEntriesParams{
			FromDate: from,
			ToDate:   to,
			Limit:    exportPageSize,
			Offset:   offset,
		})
		if err != nil {
			writeInternalError(w, r, "list ledger entries", err)
			return
		}
		entries = append(entries, page...)
		if len(page) < exportPageSize {
			break
		}
	}

	d, err := h.dashboard(r.Context(), from, to)
	if err != nil {
		writeInternalError(w, r, "build dashboard", err)
		return
	}

	f, err := report.LedgerWorkbook(entries, d.Months)
	if err != nil {
		writeInternalError(w, r, "build workbook", err)
		return
	}
	defer f.Close()

	filename := report.Filename(from.Time, to.Time)
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", "attachment; filename=\""+filename+"\"")
	if err := f.Write(w); err != nil {
		log.WithError(err).Error("write ledger workbook")
	}
}

func (h *LedgerHandler) dashboard(ctx context.Context, from, to pgtype.Date) (report.Dashboard, error) {
	totals, err := h.store.GetLedgerTotals(ctx, database.GetLedgerTotalsParams{FromDate: from, ToDate: to})
	if err != nil {
		return report.Dashboard{}, errors.Wrap(err, "ledger totals")
	}
	months, err := h.store.ListLedgerMonthlyTotals(ctx, database.ListLedgerMonthlyTotalsParams{FromDate: from, ToDate: to})
	if err != nil {
		return report.Dashboard{}, errors.Wrap(err, "monthly totals")
	}
	return report.BuildDashboard(totals, months)
}

// --- Helpers ---

func isValidLedgerEntryType(s string) bool {
	switch s {
	case enum.LedgerEntryPurchase, enum.LedgerEntrySale, enum.LedgerEntrySaleReversal:
		return true
	}
	return false
}

// parseDateFilter reads the inclusive from/to query params (YYYY-MM-DD).
// A missing bound is left open.
func parseDateFilter(r *http.Request) (pgtype.Date, pgtype.Date, error) {
	var from, to pgtype.Date
	if s := r.URL.Query().Get("from"); s != "" {
		t, err := time.Parse(time.DateOnly, s)
		if err != nil {
			return from, to, errors.New("invalid from date, use YYYY-MM-DD")
		}
		from = pgtype.Date{Time: t, Valid: true}
	}
	if s := r.URL.Query().Get("to"); s != "" {
		t, err := time.Parse(time.DateOnly, s)
		if err != nil {
			return from, to, errors.New("invalid to date, use YYYY-MM-DD")
		}
		to = pgtype.Date{Time: t, Valid: true}
	}
	if from.Valid && to.Valid && from.Time.After(to.Time) {
		return from, to, errors.New("from must not be after to")
	}
	return from, to, nil
}

func parsePagination(r *http.Request) (int32, int32) {
	limit := defaultPageSize
	if s := r.URL.Query().Get("limit"); s != "" {
		if v, err := strconv.Atoi(s); err == nil && v > 0 {
			limit = v
		}
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}

	offset := 0
	if s := r.URL.Query().Get("offset"); s != "" {
		if v, err := strconv.Atoi(s); err == nil && v >= 0 {
			offset = v
		}
	}
	return int32(limit), int32(offset)
}
