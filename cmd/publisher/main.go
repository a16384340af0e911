package main

import (
	"bytes"
	"encoding/json"
	"io"
	"log"
	"net/http"
	"os"

	"github.com/example/btcpay-storefront/internal/adapter/httpapi"
	"github.com/example/btcpay-storefront/internal/signature"
)

// Reads a processor event as JSON from stdin, signs it the way BTCPay does
// and delivers it to a running server's webhook endpoint. Useful for
// exercising the reconciliation path without a live BTCPay instance:
//
//	echo '{"invoiceId":"inv-1","type":"InvoiceSettled"}' | publisher
func main() {
	webhookURL := getenv("WEBHOOK_URL", "http://localhost:8080/webhook")
	secret := os.Getenv("BTCPAY_WEBHOOK_SECRET")

	var payload map[string]any
	dec := json.NewDecoder(os.Stdin)
	if err := dec.Decode(&payload); err != nil {
		log.Fatalf("read json from stdin: %v", err)
	}
	b, err := json.Marshal(payload)
	if err != nil {
		log.Fatalf("marshal: %v", err)
	}

	req, err := http.NewRequest(http.MethodPost, webhookURL, bytes.NewReader(b))
	if err != nil {
		log.Fatalf("build request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")

	v := signature.New(secret)
	if v.Insecure() {
		log.Printf("no BTCPAY_WEBHOOK_SECRET, sending unsigned event")
	} else {
		req.Header.Set(httpapi.SignatureHeader, v.Sign(b))
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		log.Fatalf("deliver: %v", err)
	}
	defer resp.Body.Close()
	respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
	log.Printf("delivered %d bytes to %s: %d %s", len(b), webhookURL, resp.StatusCode, respBody)
}

func getenv(k, d string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return d
}
