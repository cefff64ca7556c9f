// Package gateway 支付网关适配器
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/shopspring/decimal"

	"github.com/wyfcoding/marketplace/internal/escrow/domain"
)

// HTTPGateway 通过 HTTP 对接外部支付服务商。
// 请求携带幂等键（托管交易号），服务商侧保证同键扣款至多一次。
type HTTPGateway struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

func NewHTTPGateway(baseURL, apiKey string, timeout time.Duration) *HTTPGateway {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &HTTPGateway{
		baseURL: baseURL,
		apiKey:  apiKey,
		client:  &http.Client{Timeout: timeout},
	}
}

type chargeRequest struct {
	Amount         string `json:"amount"`
	Currency       string `json:"currency"`
	IdempotencyKey string `json:"idempotency_key"`
}

type refundRequest struct {
	PaymentReference string `json:"payment_reference"`
	Amount           string `json:"amount"`
}

type gatewayResponse struct {
	Reference string `json:"reference"`
	Provider  string `json:"provider"`
	Message   string `json:"message"`
}

func (g *HTTPGateway) Charge(ctx context.Context, amount decimal.Decimal, currency, reference string) (*domain.Receipt, error) {
	resp, err := g.post(ctx, "/v1/charges", chargeRequest{
		Amount:         amount.String(),
		Currency:       currency,
		IdempotencyKey: reference,
	})
	if err != nil {
		return nil, err
	}
	return &domain.Receipt{Reference: resp.Reference, Provider: resp.Provider}, nil
}

func (g *HTTPGateway) Refund(ctx context.Context, reference string, amount decimal.Decimal) (*domain.Receipt, error) {
	resp, err := g.post(ctx, "/v1/refunds", refundRequest{
		PaymentReference: reference,
		Amount:           amount.String(),
	})
	if err != nil {
		return nil, err
	}
	return &domain.Receipt{Reference: resp.Reference, Provider: resp.Provider}, nil
}

func (g *HTTPGateway) post(ctx context.Context, path string, body any) (*gatewayResponse, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+g.apiKey)

	resp, err := g.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("payment gateway request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, err
	}

	var out gatewayResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("payment gateway returned invalid payload: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("payment gateway rejected request: status=%d message=%s", resp.StatusCode, out.Message)
	}
	return &out, nil
}
