// Package moderation 刊登服务与审核服务的进程内适配
package moderation

import (
	"context"

	listingdomain "github.com/wyfcoding/marketplace/internal/listing/domain"
	moderationapp "github.com/wyfcoding/marketplace/internal/moderation/application"
	moderationdomain "github.com/wyfcoding/marketplace/internal/moderation/domain"
)

// Adapter 把审核应用服务适配成刊登服务的 Moderator
type Adapter struct {
	svc *moderationapp.ModerationService
}

func NewAdapter(svc *moderationapp.ModerationService) *Adapter {
	return &Adapter{svc: svc}
}

func (a *Adapter) Check(ctx context.Context, targetID, senderID, content string) (listingdomain.Verdict, error) {
	decision, err := a.svc.EvaluateContent(ctx, moderationapp.EvaluateCommand{
		TargetType: moderationdomain.TargetListing,
		TargetID:   targetID,
		SenderID:   senderID,
		Content:    content,
	})
	if err != nil {
		return listingdomain.Verdict{}, err
	}
	return listingdomain.Verdict{
		FlagID:  decision.FlagID,
		Blocked: decision.Action == string(moderationdomain.ActionBlocked),
	}, nil
}
