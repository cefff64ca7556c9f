package jobs

import (
	"context"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/wyfcoding/pkg/logging"

	moderationapp "github.com/wyfcoding/marketplace/internal/moderation/application"
)

// QueueDepthJob 周期性刷新人工复核队列深度指标
type QueueDepthJob struct {
	moderation *moderationapp.ModerationService
	interval   time.Duration
}

func NewQueueDepthJob(moderation *moderationapp.ModerationService, interval time.Duration) *QueueDepthJob {
	if interval <= 0 {
		interval = time.Minute
	}
	return &QueueDepthJob{moderation: moderation, interval: interval}
}

// GetName 获取任务名称
func (j *QueueDepthJob) GetName() string {
	return "moderation_queue_depth"
}

// GetSchedule 获取调度配置
func (j *QueueDepthJob) GetSchedule() gocron.JobDefinition {
	return gocron.DurationJob(j.interval)
}

// Execute 执行任务
func (j *QueueDepthJob) Execute() {
	ctx := context.Background()
	depth, err := j.moderation.RefreshQueueDepth(ctx)
	if err != nil {
		logging.Error(ctx, "refresh review queue depth failed", "error", err)
		return
	}
	logging.Debug(ctx, "review queue depth refreshed", "depth", depth)
}
