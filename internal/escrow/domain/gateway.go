package domain

import (
	"context"

	"github.com/shopspring/decimal"
)

// Receipt 支付网关回执
type Receipt struct {
	Reference string
	Provider  string
}

// PaymentGateway 支付网关契约（Stripe/PayPal/M-Pesa 适配在基础设施层）。
// 仅在 fund 与退款两个边界被调用；调用失败时交易保持原状态。
// Charge 的 reference 是幂等键，网关必须对同一 reference 的重复扣款去重。
type PaymentGateway interface {
	Charge(ctx context.Context, amount decimal.Decimal, currency, reference string) (*Receipt, error)
	Refund(ctx context.Context, reference string, amount decimal.Decimal) (*Receipt, error)
}

// Notifier 通知接收方契约：尽力而为、不阻塞、错误不向调用方传播
type Notifier interface {
	Notify(ctx context.Context, userID, eventType string, payload map[string]any)
}
