package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/eventgate/booking-core/internal/adapters/crdb"
	mongoadapter "github.com/eventgate/booking-core/internal/adapters/mongo"
	"github.com/eventgate/booking-core/internal/booking"
	"github.com/eventgate/booking-core/internal/config"
	"github.com/eventgate/booking-core/internal/domain"
	"github.com/eventgate/booking-core/internal/fees"
	"github.com/eventgate/booking-core/internal/idempotency"
	"github.com/eventgate/booking-core/internal/observability"
	"github.com/eventgate/booking-core/internal/settlement"
)

type Handlers struct {
	cfg      *config.Config
	repo     *crdb.Repository
	bookings *booking.Service
	engine   *settlement.Engine
	idemp    *idempotency.Idempotency
	audit    *mongoadapter.AuditLogger
	logger   observability.Logger
}

func NewHandlers(cfg *config.Config, repo *crdb.Repository, bookings *booking.Service, engine *settlement.Engine, idemp *idempotency.Idempotency, audit *mongoadapter.AuditLogger, logger observability.Logger) *Handlers {
	return &Handlers{
		cfg:      cfg,
		repo:     repo,
		bookings: bookings,
		engine:   engine,
		idemp:    idemp,
		audit:    audit,
		logger:   logger,
	}
}

type selectionReq struct {
	PackageID     uuid.UUID             `json:"package_id"`
	Quantity      int                   `json:"quantity"`
	TicketHolders []domain.TicketHolder `json:"ticket_holders"`
}

type createBookingReq struct {
	UserID       uuid.UUID      `json:"user_id"`
	EventID      uuid.UUID      `json:"event_id"`
	ReferralCode string         `json:"referral_code,omitempty"`
	Selections   []selectionReq `json:"selections"`
}

func (h *Handlers) CreateBooking(w http.ResponseWriter, r *http.Request) {
	key := r.Header.Get("Idempotency-Key")
	existing, err := h.idemp.Get(r.Context(), key)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if existing != nil {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(existing.Status)
		w.Write(existing.Result)
		return
	}

	var req createBookingReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	selections := make([]booking.Selection, 0, len(req.Selections))
	for _, s := range req.Selections {
		selections = append(selections, booking.Selection{
			PackageID:     s.PackageID,
			Quantity:      s.Quantity,
			TicketHolders: s.TicketHolders,
		})
	}

	result, err := h.bookings.Checkout(r.Context(), req.UserID, req.EventID, req.ReferralCode, selections)
	if err != nil {
		h.writeBookingError(w, err)
		return
	}

	resp := map[string]interface{}{
		"booking_id":         result.Booking.ID,
		"booking_number":     result.Booking.BookingNumber,
		"status":             result.Booking.Status,
		"ticket_count":       result.Booking.TicketCount,
		"total_amount":       result.Booking.TotalAmount,
		"gateway_order_id":   result.GatewayOrderID,
		"payment_session_id": result.PaymentSessionID,
	}
	data, _ := json.Marshal(resp)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	w.Write(data)

	h.idemp.Set(r.Context(), key, idempotency.Response{Status: http.StatusCreated, Result: data})
}

func (h *Handlers) writeBookingError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrPackageNotFound):
		http.Error(w, "package not found", http.StatusNotFound)
	case errors.Is(err, domain.ErrInvalidReferralCode):
		http.Error(w, "invalid referral code", http.StatusUnprocessableEntity)
	case errors.Is(err, domain.ErrInvalidInput):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, domain.ErrOrderCreationFailed):
		// The caller should treat this as "try again", never as partial success.
		http.Error(w, "order creation failed", http.StatusBadGateway)
	case errors.Is(err, domain.ErrNotFound):
		http.Error(w, "not found", http.StatusNotFound)
	case errors.Is(err, domain.ErrSerializationFailure):
		http.Error(w, "conflict, try again", http.StatusConflict)
	default:
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

type paymentCallbackReq struct {
	GatewayOrderID   string    `json:"order_id"`
	GatewayPaymentID string    `json:"payment_id"`
	BookingID        uuid.UUID `json:"booking_id"`
}

// PaymentCallback is the settlement trigger. The gateway delivers it
// at-least-once; Settle is idempotent, so replays answer 200 without side
// effects. Any failure answers 5xx so the gateway retries.
func (h *Handlers) PaymentCallback(w http.ResponseWriter, r *http.Request) {
	var req paymentCallbackReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if req.BookingID == uuid.Nil || req.GatewayOrderID == "" {
		http.Error(w, "order_id and booking_id are required", http.StatusBadRequest)
		return
	}

	err := h.engine.Settle(r.Context(), req.GatewayOrderID, req.GatewayPaymentID, req.BookingID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			http.Error(w, "booking not found", http.StatusNotFound)
			return
		}
		h.logger.WithField("booking_id", req.BookingID.String()).Error("settlement failed: ", err)
		http.Error(w, "settlement failed", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "settled"})
}

func (h *Handlers) GetBooking(w http.ResponseWriter, r *http.Request) {
	idStr := chi.URLParam(r, "id")
	id, err := uuid.Parse(idStr)
	if err != nil {
		http.Error(w, "invalid id", http.StatusBadRequest)
		return
	}

	b, err := h.repo.GetBooking(r.Context(), id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			http.Error(w, "booking not found", http.StatusNotFound)
			return
		}
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	resp := map[string]interface{}{
		"booking_id":     b.ID,
		"booking_number": b.BookingNumber,
		"status":         b.Status,
		"ticket_count":   b.TicketCount,
		"total_amount":   b.TotalAmount,
	}

	if payment, err := h.repo.GetPaymentByBooking(r.Context(), id); err == nil {
		resp["payment_status"] = payment.Status
	}
	if b.Status == domain.BookingConfirmed {
		if tickets, err := h.repo.ListTicketsByBooking(r.Context(), id); err == nil {
			type ticketResp struct {
				TicketNumber string  `json:"ticket_number"`
				HolderName   string  `json:"holder_name"`
				Price        float64 `json:"price"`
			}
			out := make([]ticketResp, 0, len(tickets))
			for _, t := range tickets {
				out = append(out, ticketResp{TicketNumber: t.TicketNumber, HolderName: t.HolderName, Price: t.Price})
			}
			resp["tickets"] = out
		}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

// ListSettlementAudit serves the reconciliation trail for one booking:
// every settlement the engine recorded, amounts included.
func (h *Handlers) ListSettlementAudit(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "invalid id", http.StatusBadRequest)
		return
	}

	entries, err := h.audit.ListByBooking(r.Context(), id)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	type auditResp struct {
		BookingNumber  string  `json:"booking_number"`
		GatewayOrderID string  `json:"gateway_order_id"`
		TicketCount    int     `json:"ticket_count"`
		HostCredit     float64 `json:"host_credit"`
		AdminCredit    float64 `json:"admin_credit"`
		ReferralCredit float64 `json:"referral_credit"`
		Timestamp      string  `json:"timestamp"`
	}
	out := make([]auditResp, 0, len(entries))
	for _, e := range entries {
		out = append(out, auditResp{
			BookingNumber:  e.BookingNumber,
			GatewayOrderID: e.GatewayOrderID,
			TicketCount:    e.TicketCount,
			HostCredit:     e.HostCredit,
			AdminCredit:    e.AdminCredit,
			ReferralCredit: e.ReferralCredit,
			Timestamp:      e.Timestamp.Format(time.RFC3339),
		})
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{"settlements": out})
}

// UpdateFeeSettings validates and stores administrator fee percentages.
// Values outside [0,100] or unknown keys are rejected before any write.
func (h *Handlers) UpdateFeeSettings(w http.ResponseWriter, r *http.Request) {
	var req map[string]string
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	for key, value := range req {
		if err := fees.ValidatePercentage(key, value); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
	}
	for key, value := range req {
		if err := h.repo.UpsertFeeSetting(r.Context(), key, value); err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
	}
	w.WriteHeader(http.StatusOK)
}

func (h *Handlers) Healthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("OK"))
}

func (h *Handlers) Readyz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("Ready"))
}
