package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/rl1809/shop-economy/internal/core/domain"
	"github.com/rl1809/shop-economy/internal/core/service"
)

type HTTPHandler struct {
	shop *service.ShopService
	log  *zap.Logger
}

type PurchaseHTTPRequest struct {
	RequestID string `json:"request_id"`
	EntryID   string `json:"entry_id"`
}

type PurchaseHTTPResponse struct {
	Success   bool              `json:"success"`
	Message   string            `json:"message"`
	ReceiptID string            `json:"receipt_id,omitempty"`
	Required  []CostLineMessage `json:"required,omitempty"`
}

type CostLineMessage struct {
	Currency string `json:"currency"`
	Amount   int    `json:"amount"`
}

type GrantHTTPRequest struct {
	Currency string `json:"currency"`
	Amount   int    `json:"amount"`
}

type ConsumeHTTPRequest struct {
	ItemID string `json:"item_id"`
	Amount int    `json:"amount"`
}

type OfferMessage struct {
	EntryID  string            `json:"entry_id"`
	ItemID   string            `json:"item_id"`
	ItemName string            `json:"item_name"`
	MaxStack int               `json:"max_stack"`
	Costs    []CostLineMessage `json:"costs"`
	Stock    int               `json:"stock"`
}

type PurchaseRecordMessage struct {
	ReceiptID string            `json:"receipt_id"`
	RequestID string            `json:"request_id"`
	EntryID   string            `json:"entry_id"`
	ItemID    string            `json:"item_id"`
	Quantity  int               `json:"quantity"`
	Costs     []CostLineMessage `json:"costs"`
	StockLeft int               `json:"stock_left"`
	CreatedAt time.Time         `json:"created_at"`
}

func NewHTTPHandler(shop *service.ShopService, log *zap.Logger) *HTTPHandler {
	if log == nil {
		log = zap.NewNop()
	}
	return &HTTPHandler{shop: shop, log: log}
}

// Routes registers every endpoint on mux.
func (h *HTTPHandler) Routes(mux *http.ServeMux) {
	mux.HandleFunc("/health", h.HealthCheck)
	mux.HandleFunc("/api/purchase", h.Purchase)
	mux.HandleFunc("/api/balances", h.Balances)
	mux.HandleFunc("/api/inventory", h.Inventory)
	mux.HandleFunc("/api/catalog", h.Catalog)
	mux.HandleFunc("/api/currency/grant", h.Grant)
	mux.HandleFunc("/api/inventory/consume", h.Consume)
	mux.HandleFunc("/api/purchases", h.Purchases)
}

func (h *HTTPHandler) Purchase(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req PurchaseHTTPRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, PurchaseHTTPResponse{
			Success: false,
			Message: "invalid request body",
		})
		return
	}

	if req.RequestID == "" || req.EntryID == "" {
		writeJSON(w, http.StatusBadRequest, PurchaseHTTPResponse{
			Success: false,
			Message: "missing required fields",
		})
		return
	}

	receipt, err := h.shop.Purchase(r.Context(), req.RequestID, req.EntryID)
	if err != nil {
		status, message := purchaseErrorStatus(err)
		if status == http.StatusInternalServerError {
			h.log.Error("purchase failed", zap.String("request", req.RequestID), zap.Error(err))
		}

		resp := PurchaseHTTPResponse{Success: false, Message: message}
		var perr *domain.PurchaseError
		if errors.As(err, &perr) {
			resp.Required = costMessages(perr.Costs)
		}
		writeJSON(w, status, resp)
		return
	}

	writeJSON(w, http.StatusOK, PurchaseHTTPResponse{
		Success:   true,
		Message:   "purchase completed",
		ReceiptID: receipt.ID,
	})
}

func purchaseErrorStatus(err error) (int, string) {
	switch {
	case errors.Is(err, service.ErrDuplicateRequest):
		return http.StatusConflict, "duplicate request"
	case errors.Is(err, domain.ErrSoldOut):
		return http.StatusGone, "sold out"
	case errors.Is(err, domain.ErrInsufficientFunds):
		return http.StatusPaymentRequired, "insufficient funds"
	case errors.Is(err, domain.ErrInvalidEntry):
		return http.StatusNotFound, "unknown catalog entry"
	default:
		return http.StatusInternalServerError, "internal error"
	}
}

func (h *HTTPHandler) Balances(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, http.StatusOK, h.shop.Balances())
}

func (h *HTTPHandler) Inventory(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, http.StatusOK, h.shop.Inventory())
}

func (h *HTTPHandler) Catalog(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	offers := h.shop.Offers()
	out := make([]OfferMessage, 0, len(offers))
	for _, o := range offers {
		out = append(out, OfferMessage{
			EntryID:  o.Entry.ID,
			ItemID:   string(o.Entry.Item.ID),
			ItemName: o.Entry.Item.Name,
			MaxStack: o.Entry.Item.MaxStack,
			Costs:    costMessages(o.Entry.Costs),
			Stock:    o.Stock,
		})
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *HTTPHandler) Grant(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req GrantHTTPRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	balance, err := h.shop.Grant(r.Context(), domain.CurrencyID(req.Currency), req.Amount)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"balance": balance})
}

func (h *HTTPHandler) Consume(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req ConsumeHTTPRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	left, err := h.shop.Consume(r.Context(), domain.ItemID(req.ItemID), req.Amount)
	if err != nil {
		status := http.StatusBadRequest
		if errors.Is(err, service.ErrNotEnoughItems) {
			status = http.StatusConflict
		}
		writeJSON(w, status, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"count": left})
}

// Purchases lists journaled purchases, newest first.
func (h *HTTPHandler) Purchases(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid limit"})
			return
		}
		limit = n
	}

	receipts, err := h.shop.Purchases(r.Context(), limit)
	if err != nil {
		if errors.Is(err, service.ErrNoJournal) {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": err.Error()})
			return
		}
		h.log.Error("list purchases failed", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
		return
	}

	out := make([]PurchaseRecordMessage, 0, len(receipts))
	for _, rc := range receipts {
		out = append(out, PurchaseRecordMessage{
			ReceiptID: rc.ID,
			RequestID: rc.RequestID,
			EntryID:   rc.EntryID,
			ItemID:    string(rc.Item),
			Quantity:  rc.Quantity,
			Costs:     costMessages(rc.Costs),
			StockLeft: rc.StockLeft,
			CreatedAt: rc.CreatedAt,
		})
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *HTTPHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func costMessages(lines []domain.CostLine) []CostLineMessage {
	out := make([]CostLineMessage, 0, len(lines))
	for _, l := range lines {
		out = append(out, CostLineMessage{Currency: string(l.Currency), Amount: l.Amount})
	}
	return out
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
