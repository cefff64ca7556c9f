// Package moderation 消息服务与审核服务的进程内适配
package moderation

import (
	"context"

	messagingdomain "github.com/wyfcoding/marketplace/internal/messaging/domain"
	moderationapp "github.com/wyfcoding/marketplace/internal/moderation/application"
	moderationdomain "github.com/wyfcoding/marketplace/internal/moderation/domain"
)

// Adapter 把审核应用服务适配成消息服务的 Moderator
type Adapter struct {
	svc *moderationapp.ModerationService
}

func NewAdapter(svc *moderationapp.ModerationService) *Adapter {
	return &Adapter{svc: svc}
}

func (a *Adapter) Check(ctx context.Context, targetID, senderID, content string) (messagingdomain.Verdict, error) {
	decision, err := a.svc.EvaluateContent(ctx, moderationapp.EvaluateCommand{
		TargetType: moderationdomain.TargetMessage,
		TargetID:   targetID,
		SenderID:   senderID,
		Content:    content,
	})
	if err != nil {
		return messagingdomain.Verdict{}, err
	}
	return messagingdomain.Verdict{
		FlagID:  decision.FlagID,
		Blocked: decision.Action == string(moderationdomain.ActionBlocked),
	}, nil
}

// TargetLookup 把消息仓储适配成审核侧的对象存在性查询。
// 消息软删除后 Exists 返回 false，在途评分静默丢弃。
type TargetLookup struct {
	repo messagingdomain.MessageRepository
}

func NewTargetLookup(repo messagingdomain.MessageRepository) *TargetLookup {
	return &TargetLookup{repo: repo}
}

func (l *TargetLookup) Exists(ctx context.Context, targetType, targetID string) (bool, error) {
	if targetType != moderationdomain.TargetMessage {
		return true, nil
	}
	return l.repo.MessageExists(ctx, targetID)
}
