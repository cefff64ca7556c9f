// Package jobs 平台后台定时任务
package jobs

import (
	"context"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/wyfcoding/pkg/logging"

	adminapp "github.com/wyfcoding/marketplace/internal/admin/application"
	escrowapp "github.com/wyfcoding/marketplace/internal/escrow/application"
)

const autoReleaseBatchSize = 200

// AutoReleaseJob 买家确认收货后超过放款等待期的交易自动放款。
// 每笔放款仍然走条件更新，与人工放款并发时只有一个生效。
type AutoReleaseJob struct {
	escrow   *escrowapp.EscrowService
	settings *adminapp.AdminService
	interval time.Duration
}

func NewAutoReleaseJob(escrow *escrowapp.EscrowService, settings *adminapp.AdminService, interval time.Duration) *AutoReleaseJob {
	if interval <= 0 {
		interval = 10 * time.Minute
	}
	return &AutoReleaseJob{escrow: escrow, settings: settings, interval: interval}
}

// GetName 获取任务名称
func (j *AutoReleaseJob) GetName() string {
	return "escrow_auto_release"
}

// GetSchedule 获取调度配置
func (j *AutoReleaseJob) GetSchedule() gocron.JobDefinition {
	return gocron.DurationJob(j.interval)
}

// Execute 执行任务
func (j *AutoReleaseJob) Execute() {
	ctx := context.Background()
	cutoff := time.Now().Add(-j.settings.AutoReleaseAfter(ctx))

	released, err := j.escrow.AutoReleaseDelivered(ctx, cutoff, autoReleaseBatchSize)
	if err != nil {
		logging.Error(ctx, "auto release scan failed", "error", err)
		return
	}
	if released > 0 {
		logging.Info(ctx, "auto released delivered transactions",
			"released", released, "cutoff", cutoff)
	}
}
