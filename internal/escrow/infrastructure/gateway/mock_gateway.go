package gateway

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/wyfcoding/pkg/logging"

	"github.com/wyfcoding/marketplace/internal/escrow/domain"
)

// MockGateway 开发与集成环境用的内存支付网关，按幂等键去重
type MockGateway struct {
	mu      sync.Mutex
	charged map[string]*domain.Receipt
}

func NewMockGateway() *MockGateway {
	return &MockGateway{charged: make(map[string]*domain.Receipt)}
}

func (g *MockGateway) Charge(ctx context.Context, amount decimal.Decimal, currency, reference string) (*domain.Receipt, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if receipt, ok := g.charged[reference]; ok {
		return receipt, nil
	}
	receipt := &domain.Receipt{
		Reference: "mock-" + uuid.NewString(),
		Provider:  "mock",
	}
	g.charged[reference] = receipt
	logging.Info(ctx, "mock gateway charge", "reference", reference, "amount", amount.String(), "currency", currency)
	return receipt, nil
}

func (g *MockGateway) Refund(ctx context.Context, reference string, amount decimal.Decimal) (*domain.Receipt, error) {
	logging.Info(ctx, "mock gateway refund", "reference", reference, "amount", amount.String())
	return &domain.Receipt{Reference: "mock-refund-" + uuid.NewString(), Provider: "mock"}, nil
}
