package http

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/ZRnown/energy/internal/models"
	"github.com/ZRnown/energy/internal/store"
)

type Handler struct {
	Store *store.Store
}

func NewHandler(st *store.Store) *Handler {
	return &Handler{Store: st}
}

type paymentResponse struct {
	TxID        string `json:"txId"`
	FromAddress string `json:"fromAddress"`
	ToAddress   string `json:"toAddress"`
	Coin        string `json:"coin"`
	Amount      string `json:"amount"`
	Status      string `json:"status"`
	Notes       string `json:"notes,omitempty"`
	PlatformID  *int64 `json:"platformId,omitempty"`
	PackageID   *int64 `json:"packageId,omitempty"`
	ObservedAt  string `json:"observedAt"`
}

func (h *Handler) ListPayments(w http.ResponseWriter, r *http.Request) {
	status := models.PaymentStatus(r.URL.Query().Get("status"))
	if status == "" {
		status = models.PaymentPending
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	payments, err := h.Store.ListPaymentsByStatus(r.Context(), status, limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "list payments failed")
		return
	}

	out := make([]paymentResponse, 0, len(payments))
	for _, p := range payments {
		out = append(out, toPaymentResponse(p))
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *Handler) GetPayment(w http.ResponseWriter, r *http.Request) {
	txID := chi.URLParam(r, "txID")
	if txID == "" {
		writeError(w, http.StatusBadRequest, "missing tx id")
		return
	}

	payment, err := h.Store.GetPayment(r.Context(), txID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "payment not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "get payment failed")
		return
	}
	writeJSON(w, http.StatusOK, toPaymentResponse(payment))
}

type standingOrderResponse struct {
	ID               int64  `json:"id"`
	WalletAddress    string `json:"walletAddress"`
	ResourceFloor    int64  `json:"resourceFloor"`
	ResourcePerCycle int64  `json:"resourcePerCycle"`
	CyclesPurchased  int64  `json:"cyclesPurchased"`
	CyclesLimit      int64  `json:"cyclesLimit"`
	CurrentEnergy    int64  `json:"currentEnergy"`
	BelowFloor       bool   `json:"belowFloor"`
	BuyInProgress    bool   `json:"buyInProgress"`
	LastAttemptNotes string `json:"lastAttemptNotes,omitempty"`
}

func (h *Handler) ListStandingOrders(w http.ResponseWriter, r *http.Request) {
	orders, err := h.Store.ListStandingOrders(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "list standing orders failed")
		return
	}

	out := make([]standingOrderResponse, 0, len(orders))
	for _, o := range orders {
		out = append(out, standingOrderResponse{
			ID:               o.ID,
			WalletAddress:    o.WalletAddress,
			ResourceFloor:    o.ResourceFloor,
			ResourcePerCycle: o.ResourcePerCycle,
			CyclesPurchased:  o.CyclesPurchased,
			CyclesLimit:      o.CyclesLimit,
			CurrentEnergy:    o.CurrentEnergy,
			BelowFloor:       o.BelowFloor,
			BuyInProgress:    o.BuyInProgress,
			LastAttemptNotes: o.LastAttemptNotes,
		})
	}
	writeJSON(w, http.StatusOK, out)
}

type platformOrderResponse struct {
	ID               int64  `json:"id"`
	DispatchID       string `json:"dispatchId"`
	PlatformID       int64  `json:"platformId"`
	ReceivingAddress string `json:"receivingAddress"`
	SupplierOrderRef string `json:"supplierOrderRef"`
	ResourceAmount   int64  `json:"resourceAmount"`
	DurationDays     int    `json:"durationDays"`
	Source           string `json:"source"`
	CostTRX          string `json:"costTrx"`
	PlacedAt         string `json:"placedAt"`
}

func (h *Handler) ListPlatformOrders(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	orders, err := h.Store.ListPlatformOrders(r.Context(), limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "list platform orders failed")
		return
	}

	out := make([]platformOrderResponse, 0, len(orders))
	for _, o := range orders {
		out = append(out, platformOrderResponse{
			ID:               o.ID,
			DispatchID:       o.DispatchID,
			PlatformID:       o.PlatformID,
			ReceivingAddress: o.ReceivingAddress,
			SupplierOrderRef: o.SupplierOrderRef,
			ResourceAmount:   o.ResourceAmount,
			DurationDays:     o.DurationDays,
			Source:           string(o.Source),
			CostTRX:          o.CostTRX.String(),
			PlacedAt:         o.PlacedAt.Format(time.RFC3339),
		})
	}
	writeJSON(w, http.StatusOK, out)
}

func toPaymentResponse(p *models.Payment) paymentResponse {
	return paymentResponse{
		TxID:        p.TxID,
		FromAddress: p.FromAddress,
		ToAddress:   p.ToAddress,
		Coin:        string(p.Coin),
		Amount:      p.Amount.String(),
		Status:      string(p.Status),
		Notes:       p.Notes,
		PlatformID:  p.PlatformID,
		PackageID:   p.PackageID,
		ObservedAt:  p.ObservedAt.Format(time.RFC3339),
	}
}
