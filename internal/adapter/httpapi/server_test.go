package httpapi_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/btcpay-storefront/internal/adapter/catalog"
	"github.com/example/btcpay-storefront/internal/adapter/httpapi"
	"github.com/example/btcpay-storefront/internal/adapter/store"
	"github.com/example/btcpay-storefront/internal/domain"
	"github.com/example/btcpay-storefront/internal/signature"
	"github.com/example/btcpay-storefront/internal/usecase"
)

type stubIssuer struct {
	invoice domain.Invoice
	err     error
}

func (f stubIssuer) CreateInvoice(_ context.Context, _ domain.Order) (domain.Invoice, error) {
	if f.err != nil {
		return domain.Invoice{}, f.err
	}
	return f.invoice, nil
}

type env struct {
	server   *httpapi.Server
	store    *store.MemoryOrderStore
	verifier signature.Verifier
}

func newEnv(t *testing.T, issuer domain.InvoiceIssuer, secret string) env {
	t.Helper()

	s := store.NewMemoryOrderStore()
	v := signature.New(secret)
	srv := httpapi.NewServer(
		usecase.CreateOrder{Store: s, Catalog: catalog.NewStatic()},
		usecase.PayOrder{Store: s, Issuer: issuer},
		usecase.GetOrder{Store: s},
		usecase.ReconcileEvent{Store: s},
		v,
	)
	return env{server: srv, store: s, verifier: v}
}

func (e env) do(t *testing.T, method, path string, body []byte, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(method, path, bytes.NewReader(body))
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	e.server.Router.ServeHTTP(w, req)
	return w
}

func (e env) createOrder(t *testing.T) string {
	t.Helper()

	w := e.do(t, http.MethodPost, "/orders",
		[]byte(`{"items":[{"id":"hoodie","quantity":1}],"customer":{"name":"Ada","email":"ada@example.com"},"currency":"USD"}`), nil)
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		OrderID  string `json:"orderId"`
		Currency string `json:"currency"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.NotEmpty(t, resp.OrderID)
	require.Equal(t, "USD", resp.Currency)
	return resp.OrderID
}

func (e env) webhook(t *testing.T, body []byte, sign bool) *httptest.ResponseRecorder {
	t.Helper()

	headers := map[string]string{}
	if sign {
		headers[httpapi.SignatureHeader] = e.verifier.Sign(body)
	}
	return e.do(t, http.MethodPost, "/webhook", body, headers)
}

func (e env) orderStatus(t *testing.T, orderID string) domain.OrderStatus {
	t.Helper()

	w := e.do(t, http.MethodGet, "/orders/"+orderID, nil, nil)
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Status domain.OrderStatus `json:"status"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp.Status
}

func TestCreateOrder_BadBody(t *testing.T) {
	e := newEnv(t, stubIssuer{}, "secret")

	w := e.do(t, http.MethodPost, "/orders", []byte(`{not json`), nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestPayFlow(t *testing.T) {
	e := newEnv(t, stubIssuer{invoice: domain.Invoice{ID: "inv-1", CheckoutLink: "https://btcpay.example/i/inv-1"}}, "secret")
	orderID := e.createOrder(t)

	w := e.do(t, http.MethodPost, "/orders/"+orderID+"/pay", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		InvoiceID    string `json:"invoiceId"`
		CheckoutLink string `json:"checkoutLink"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "inv-1", resp.InvoiceID)
	assert.Equal(t, "https://btcpay.example/i/inv-1", resp.CheckoutLink)

	// repeat pay is rejected, the bound invoice survives
	w = e.do(t, http.MethodPost, "/orders/"+orderID+"/pay", nil, nil)
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, domain.StatusPendingPayment, e.orderStatus(t, orderID))
}

func TestPayUnknownOrder(t *testing.T) {
	e := newEnv(t, stubIssuer{}, "secret")

	w := e.do(t, http.MethodPost, "/orders/7b3e6a90-0000-0000-0000-000000000000/pay", nil, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = e.do(t, http.MethodPost, "/orders/not-a-uuid/pay", nil, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestPayUpstreamFailure(t *testing.T) {
	e := newEnv(t, stubIssuer{err: domain.ErrUpstreamInvoice}, "secret")
	orderID := e.createOrder(t)

	w := e.do(t, http.MethodPost, "/orders/"+orderID+"/pay", nil, nil)
	assert.Equal(t, http.StatusInternalServerError, w.Code)

	// order still payable
	assert.Equal(t, domain.StatusCreated, e.orderStatus(t, orderID))
}

func TestGetUnknownOrder(t *testing.T) {
	e := newEnv(t, stubIssuer{}, "secret")

	w := e.do(t, http.MethodGet, "/orders/7b3e6a90-0000-0000-0000-000000000000", nil, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestWebhookSettledFlow(t *testing.T) {
	e := newEnv(t, stubIssuer{invoice: domain.Invoice{ID: "inv-1"}}, "secret")
	orderID := e.createOrder(t)

	w := e.do(t, http.MethodPost, "/orders/"+orderID+"/pay", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = e.webhook(t, []byte(`{"invoiceId":"inv-1","type":"InvoiceSettled"}`), true)
	require.Equal(t, http.StatusOK, w.Code)

	assert.Equal(t, domain.StatusPaid, e.orderStatus(t, orderID))
}

func TestWebhookLateSettledPromotesExpired(t *testing.T) {
	e := newEnv(t, stubIssuer{invoice: domain.Invoice{ID: "inv-1"}}, "secret")
	orderID := e.createOrder(t)

	w := e.do(t, http.MethodPost, "/orders/"+orderID+"/pay", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = e.webhook(t, []byte(`{"invoiceId":"inv-1","type":"InvoiceExpired"}`), true)
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, domain.StatusExpired, e.orderStatus(t, orderID))

	// processor's final word on settlement wins over the provisional expiry
	w = e.webhook(t, []byte(`{"invoiceId":"inv-1","type":"InvoiceSettled"}`), true)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, domain.StatusPaid, e.orderStatus(t, orderID))
}

func TestWebhookSignature(t *testing.T) {
	e := newEnv(t, stubIssuer{invoice: domain.Invoice{ID: "inv-1"}}, "secret")
	orderID := e.createOrder(t)

	w := e.do(t, http.MethodPost, "/orders/"+orderID+"/pay", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)

	body := []byte(`{"invoiceId":"inv-1","type":"InvoiceSettled"}`)

	// unsigned
	w = e.webhook(t, body, false)
	assert.Equal(t, http.StatusForbidden, w.Code)

	// signed, then body tampered in transit
	sig := e.verifier.Sign(body)
	tampered := bytes.Replace(body, []byte("inv-1"), []byte("inv-2"), 1)
	w = e.do(t, http.MethodPost, "/webhook", tampered, map[string]string{httpapi.SignatureHeader: sig})
	assert.Equal(t, http.StatusForbidden, w.Code)

	// no state change slipped through
	assert.Equal(t, domain.StatusPendingPayment, e.orderStatus(t, orderID))
}

func TestWebhookInsecureMode(t *testing.T) {
	e := newEnv(t, stubIssuer{invoice: domain.Invoice{ID: "inv-1"}}, "")
	orderID := e.createOrder(t)

	w := e.do(t, http.MethodPost, "/orders/"+orderID+"/pay", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)

	// unsigned events are accepted when no secret is configured
	w = e.webhook(t, []byte(`{"invoiceId":"inv-1","type":"InvoiceSettled"}`), false)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, domain.StatusPaid, e.orderStatus(t, orderID))
}

func TestWebhookUnknownInvoice(t *testing.T) {
	e := newEnv(t, stubIssuer{invoice: domain.Invoice{ID: "inv-1"}}, "secret")
	orderID := e.createOrder(t)

	w := e.webhook(t, []byte(`{"invoiceId":"inv-ghost","type":"InvoiceSettled"}`), true)
	assert.Equal(t, http.StatusOK, w.Code)

	assert.Equal(t, domain.StatusCreated, e.orderStatus(t, orderID))
}

func TestWebhookMalformedBody(t *testing.T) {
	e := newEnv(t, stubIssuer{}, "secret")

	// authenticated but unparseable: acknowledged, never an error upstream
	w := e.webhook(t, []byte(`{broken`), true)
	assert.Equal(t, http.StatusOK, w.Code)
}
