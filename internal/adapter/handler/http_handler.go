package handler

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/rl1809/stock-reconciler/internal/core/domain"
	"github.com/rl1809/stock-reconciler/internal/core/service"
	"github.com/rl1809/stock-reconciler/internal/logger"
	"github.com/rl1809/stock-reconciler/internal/port"
)

type Pinger interface {
	Ping(ctx context.Context) error
}

type HTTPHandler struct {
	inventory port.InventoryRepository
	ledger    port.LedgerRepository
	runner    service.Runner
	store     Pinger
	logger    *logger.Logger
}

type PurchaseHTTPRequest struct {
	Name     string `json:"name" validate:"required,max=200"`
	Quantity int    `json:"quantity"`
}

type ItemHTTPRequest struct {
	Name     string `json:"name" validate:"required,max=200"`
	Quantity int    `json:"quantity" validate:"min=0"`
}

type RunHTTPRequest struct {
	SourceDocument string            `json:"source_document" validate:"required,max=500"`
	ExtractedText  string            `json:"extracted_text"`
	Items          []ItemHTTPRequest `json:"items" validate:"dive"`
}

func NewHTTPHandler(inventory port.InventoryRepository, ledger port.LedgerRepository, runner service.Runner, store Pinger, l *logger.Logger) *HTTPHandler {
	if l == nil {
		l = logger.Nop()
	}
	return &HTTPHandler{
		inventory: inventory,
		ledger:    ledger,
		runner:    runner,
		store:     store,
		logger:    l,
	}
}

// Routes mounts the API. metrics may be nil.
func (h *HTTPHandler) Routes(metrics http.Handler) http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.RequestID, chimw.Recoverer, requestLogging(h.logger))

	r.Get("/health", h.HealthCheck)
	if metrics != nil {
		r.Method(http.MethodGet, "/metrics", metrics)
	}

	r.Route("/api", func(r chi.Router) {
		r.Get("/inventory", h.ListInventory)
		r.Get("/inventory/lookup", h.LookupInventory)
		r.Post("/inventory/purchases", h.Purchase)

		r.Post("/runs", h.CreateRun)
		r.Get("/runs", h.ListRuns)
		r.Get("/runs/{id}", h.GetRun)
	})

	return r
}

func (h *HTTPHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	if h.store != nil {
		if err := h.store.Ping(r.Context()); err != nil {
			h.logger.Warn(r.Context(), "health check failed", err)
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *HTTPHandler) ListInventory(w http.ResponseWriter, r *http.Request) {
	records, err := h.inventory.ListInventory(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if records == nil {
		records = []domain.InventoryRecord{}
	}
	writeJSON(w, http.StatusOK, records)
}

func (h *HTTPHandler) LookupInventory(w http.ResponseWriter, r *http.Request) {
	name := r.URL.Query().Get("name")
	if strings.TrimSpace(name) == "" {
		writeJSON(w, http.StatusBadRequest, ErrorHTTPResponse{Message: "name is required"})
		return
	}

	rec, err := h.inventory.Lookup(r.Context(), name)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if rec == nil {
		h.writeError(w, r, errNotFound)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (h *HTTPHandler) Purchase(w http.ResponseWriter, r *http.Request) {
	var req PurchaseHTTPRequest
	if err := decodeJSONBody(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}

	rec, err := h.inventory.ApplyPurchase(r.Context(), req.Name, req.Quantity)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (h *HTTPHandler) CreateRun(w http.ResponseWriter, r *http.Request) {
	var req RunHTTPRequest
	if err := decodeJSONBody(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}

	items := make([]domain.ItemRequest, 0, len(req.Items))
	for _, it := range req.Items {
		items = append(items, domain.ItemRequest{Name: it.Name, QuantityNeeded: it.Quantity})
	}

	rec, err := h.runner.Run(r.Context(), service.RunInput{
		SourceDocument: req.SourceDocument,
		ExtractedText:  req.ExtractedText,
		Items:          items,
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, rec)
}

func (h *HTTPHandler) GetRun(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		writeJSON(w, http.StatusBadRequest, ErrorHTTPResponse{Message: "id must be a positive integer"})
		return
	}

	rec, err := h.ledger.Get(r.Context(), id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if rec == nil {
		h.writeError(w, r, errNotFound)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (h *HTTPHandler) ListRuns(w http.ResponseWriter, r *http.Request) {
	var (
		records []domain.ProcessingRecord
		err     error
	)

	if source := r.URL.Query().Get("source"); source != "" {
		records, err = h.ledger.ListBySource(r.Context(), source)
	} else {
		limit, perr := parseQueryInt(r, "limit", 20, 1, 500)
		if perr != nil {
			h.writeError(w, r, perr)
			return
		}
		records, err = h.ledger.ListRecent(r.Context(), limit)
	}
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if records == nil {
		records = []domain.ProcessingRecord{}
	}
	writeJSON(w, http.StatusOK, records)
}

func (h *HTTPHandler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status, message := statusFor(err)
	if status >= http.StatusInternalServerError {
		h.logger.Error(r.Context(), "request failed", err)
	}

	resp := ErrorHTTPResponse{Message: message}
	var runErr *service.RunError
	if errors.As(err, &runErr) {
		resp.FailedIn = string(runErr.State)
		resp.Applied = runErr.Applied
	}
	var verr *validationError
	if errors.As(err, &verr) {
		resp.Details = verr.fields
	}
	writeJSON(w, status, resp)
}
