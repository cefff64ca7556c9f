package sender

import (
	"context"

	"github.com/wyfcoding/pkg/logging"

	"github.com/wyfcoding/marketplace/internal/notification/domain"
)

// MockSMSSender 本地环境使用的短信发送器，只落日志
type MockSMSSender struct{}

func NewMockSMSSender() domain.Sender { return &MockSMSSender{} }

func (s *MockSMSSender) Send(ctx context.Context, target, subject, content string) error {
	logging.Info(ctx, "mock sms sent", "target", target, "subject", subject)
	return nil
}

// StaticResolver 用固定模板生成投递地址，本地与测试环境使用
type StaticResolver struct{}

func NewStaticResolver() domain.ContactResolver { return &StaticResolver{} }

func (r *StaticResolver) Resolve(_ context.Context, userID string, channel domain.Channel) (string, error) {
	switch channel {
	case domain.ChannelSMS:
		return "+0000000" + userID, nil
	default:
		return userID + "@users.marketplace.local", nil
	}
}
