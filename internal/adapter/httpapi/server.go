package httpapi

import (
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/shopspring/decimal"

	"github.com/example/btcpay-storefront/internal/domain"
	"github.com/example/btcpay-storefront/internal/signature"
	"github.com/example/btcpay-storefront/internal/usecase"
)

// SignatureHeader carries the processor's HMAC of the raw webhook body.
const SignatureHeader = "BTCPay-Sig"

type Server struct {
	Router      *mux.Router
	UCCreate    usecase.CreateOrder
	UCPay       usecase.PayOrder
	UCGet       usecase.GetOrder
	UCReconcile usecase.ReconcileEvent
	Verifier    signature.Verifier
}

func NewServer(create usecase.CreateOrder, pay usecase.PayOrder, get usecase.GetOrder, reconcile usecase.ReconcileEvent, verifier signature.Verifier) *Server {
	s := &Server{
		Router:      mux.NewRouter(),
		UCCreate:    create,
		UCPay:       pay,
		UCGet:       get,
		UCReconcile: reconcile,
		Verifier:    verifier,
	}
	s.Router.HandleFunc("/orders", s.handleCreate).Methods(http.MethodPost)
	s.Router.HandleFunc("/orders/{id}/pay", s.handlePay).Methods(http.MethodPost)
	s.Router.HandleFunc("/orders/{id}", s.handleGet).Methods(http.MethodGet)
	s.Router.HandleFunc("/webhook", s.handleWebhook).Methods(http.MethodPost)
	s.Router.PathPrefix("/").Handler(http.FileServer(http.Dir("web")))
	return s
}

type createRequest struct {
	Items    []domain.OrderItem `json:"items"`
	Customer domain.Customer    `json:"customer"`
	Currency string             `json:"currency"`
}

type createResponse struct {
	OrderID  string          `json:"orderId"`
	Amount   decimal.Decimal `json:"amount"`
	Currency string          `json:"currency"`
}

func (s *Server) handleCreate(w http.ResponseWriter, r *http.Request) {
	var req createRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	o, err := s.UCCreate.Execute(r.Context(), req.Items, req.Customer, req.Currency)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrOutOfStock):
			writeError(w, http.StatusBadRequest, "item out of stock")
		case errors.Is(err, domain.ErrValidation):
			writeError(w, http.StatusBadRequest, "invalid order data")
		default:
			log.Printf("create order: %v", err)
			writeError(w, http.StatusInternalServerError, "failed to create order")
		}
		return
	}

	writeJSON(w, http.StatusOK, createResponse{
		OrderID:  o.ID.String(),
		Amount:   o.Amount,
		Currency: o.Currency.String(),
	})
}

type payResponse struct {
	InvoiceID    string `json:"invoiceId"`
	CheckoutLink string `json:"checkoutLink"`
}

func (s *Server) handlePay(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		writeError(w, http.StatusNotFound, "order not found")
		return
	}

	inv, err := s.UCPay.Execute(r.Context(), id)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrNotFound):
			writeError(w, http.StatusNotFound, "order not found")
		case errors.Is(err, domain.ErrAlreadyBound):
			writeError(w, http.StatusConflict, "invoice already created for this order")
		default:
			log.Printf("pay order %s: %v", id, err)
			writeError(w, http.StatusInternalServerError, "failed to create invoice")
		}
		return
	}

	writeJSON(w, http.StatusOK, payResponse{InvoiceID: inv.ID, CheckoutLink: inv.CheckoutLink})
}

type orderResponse struct {
	ID        string             `json:"id"`
	Status    domain.OrderStatus `json:"status"`
	Items     []domain.OrderItem `json:"items"`
	Amount    decimal.Decimal    `json:"amount"`
	Currency  string             `json:"currency"`
	Customer  domain.Customer    `json:"customer"`
	InvoiceID string             `json:"invoiceId,omitempty"`
	CreatedAt time.Time          `json:"createdAt"`
}

func (s *Server) handleGet(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		writeError(w, http.StatusNotFound, "order not found")
		return
	}

	o, err := s.UCGet.Execute(r.Context(), id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			writeError(w, http.StatusNotFound, "order not found")
			return
		}
		log.Printf("get order %s: %v", id, err)
		writeError(w, http.StatusInternalServerError, "failed to load order")
		return
	}

	writeJSON(w, http.StatusOK, orderResponse{
		ID:        o.ID.String(),
		Status:    o.Status,
		Items:     o.Items,
		Amount:    o.Amount,
		Currency:  o.Currency.String(),
		Customer:  o.Customer,
		InvoiceID: o.InvoiceID,
		CreatedAt: o.CreatedAt,
	})
}

type webhookEvent struct {
	InvoiceID string `json:"invoiceId"`
	Type      string `json:"type"`
}

// handleWebhook verifies the signature over the exact body bytes as
// received. The contract with the processor is: 403 only when verification
// explicitly fails, 200 in every other case, so our internal faults never
// trigger the processor's retry policy for an authenticated event.
func (s *Server) handleWebhook(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		writeError(w, http.StatusBadRequest, "failed to read body")
		return
	}

	if !s.Verifier.Verify(body, r.Header.Get(SignatureHeader)) {
		log.Printf("webhook rejected: %v", domain.ErrInvalidSignature)
		writeError(w, http.StatusForbidden, "invalid signature")
		return
	}

	var ev webhookEvent
	if err := json.Unmarshal(body, &ev); err != nil || ev.InvoiceID == "" {
		log.Printf("webhook body not recognized, acknowledged")
		w.WriteHeader(http.StatusOK)
		return
	}

	err = s.UCReconcile.Execute(r.Context(), domain.InboundEvent{
		InvoiceID: ev.InvoiceID,
		Kind:      domain.EventKind(ev.Type),
		Raw:       body,
	})
	if err != nil {
		log.Printf("reconcile event %s: %v", ev.Type, err)
	}
	w.WriteHeader(http.StatusOK)
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]string{"error": msg})
}
