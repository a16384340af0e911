package btcpay

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/shopspring/decimal"

	"github.com/example/btcpay-storefront/internal/domain"
)

// Client talks to the BTCPay Server Greenfield invoice API.
type Client struct {
	BaseURL string
	APIKey  string
	StoreID string

	// RedirectBase is the public base URL of this storefront; the checkout
	// page sends the customer back to {RedirectBase}/order-status.html.
	RedirectBase string

	HTTPClient *http.Client
}

func NewClient(baseURL, apiKey, storeID, redirectBase string) *Client {
	return &Client{
		BaseURL:      baseURL,
		APIKey:       apiKey,
		StoreID:      storeID,
		RedirectBase: redirectBase,
		HTTPClient:   &http.Client{Timeout: 15 * time.Second},
	}
}

type invoiceRequest struct {
	Amount   decimal.Decimal `json:"amount"`
	Currency string          `json:"currency"`
	Metadata invoiceMetadata `json:"metadata"`
	Checkout invoiceCheckout `json:"checkout"`
}

type invoiceMetadata struct {
	// OrderID is the correlation key: it is the only way the processor's
	// later webhook can be mapped back to an order.
	OrderID      string `json:"orderId"`
	CustomerName string `json:"customerName,omitempty"`
}

type invoiceCheckout struct {
	SpeedPolicy       string   `json:"speedPolicy"`
	ExpirationMinutes int      `json:"expirationMinutes"`
	MonitoringMinutes int      `json:"monitoringMinutes"`
	PaymentMethods    []string `json:"paymentMethods"`
	RedirectURL       string   `json:"redirectURL"`
}

type invoiceResponse struct {
	ID           string `json:"id"`
	CheckoutLink string `json:"checkoutLink"`
}

func (c *Client) CreateInvoice(ctx context.Context, o domain.Order) (domain.Invoice, error) {
	payload := invoiceRequest{
		Amount:   o.Amount,
		Currency: o.Currency.String(),
		Metadata: invoiceMetadata{
			OrderID:      o.ID.String(),
			CustomerName: o.Customer.Name,
		},
		Checkout: invoiceCheckout{
			SpeedPolicy:       "MediumSpeed",
			ExpirationMinutes: 15,
			MonitoringMinutes: 15,
			PaymentMethods:    []string{"BTC"},
			RedirectURL:       fmt.Sprintf("%s/order-status.html?orderId=%s", c.RedirectBase, o.ID),
		},
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return domain.Invoice{}, fmt.Errorf("marshal invoice request: %w", err)
	}

	url := fmt.Sprintf("%s/api/v1/stores/%s/invoices", c.BaseURL, c.StoreID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return domain.Invoice{}, fmt.Errorf("build invoice request: %w", err)
	}
	req.Header.Set("Authorization", "token "+c.APIKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return domain.Invoice{}, fmt.Errorf("%w: %v", domain.ErrUpstreamInvoice, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return domain.Invoice{}, fmt.Errorf("%w: status %d: %s", domain.ErrUpstreamInvoice, resp.StatusCode, snippet)
	}

	var ir invoiceResponse
	if err := json.NewDecoder(resp.Body).Decode(&ir); err != nil {
		return domain.Invoice{}, fmt.Errorf("%w: decode response: %v", domain.ErrUpstreamInvoice, err)
	}
	if ir.ID == "" {
		return domain.Invoice{}, fmt.Errorf("%w: response has no invoice id", domain.ErrUpstreamInvoice)
	}

	return domain.Invoice{ID: ir.ID, CheckoutLink: ir.CheckoutLink}, nil
}

var _ domain.InvoiceIssuer = (*Client)(nil)
