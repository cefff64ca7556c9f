package jobs

import (
	"context"
	"fmt"

	"github.com/go-co-op/gocron/v2"
	"github.com/wyfcoding/pkg/logging"
)

// Job 定时任务契约
type Job interface {
	GetName() string
	GetSchedule() gocron.JobDefinition
	Execute()
}

// Manager 定时任务管理器
type Manager struct {
	scheduler gocron.Scheduler
}

// NewManager 创建任务管理器
func NewManager() (*Manager, error) {
	s, err := gocron.NewScheduler()
	if err != nil {
		return nil, fmt.Errorf("create scheduler: %w", err)
	}
	return &Manager{scheduler: s}, nil
}

// Register 注册任务，单例模式避免慢任务自我重叠
func (m *Manager) Register(jobs ...Job) error {
	for _, job := range jobs {
		_, err := m.scheduler.NewJob(
			job.GetSchedule(),
			gocron.NewTask(job.Execute),
			gocron.WithName(job.GetName()),
			gocron.WithSingletonMode(gocron.LimitModeReschedule),
		)
		if err != nil {
			return fmt.Errorf("register job %s: %w", job.GetName(), err)
		}
	}
	return nil
}

// Start 启动调度器
func (m *Manager) Start() {
	m.scheduler.Start()
	logging.Info(context.Background(), "job scheduler started")
}

// Stop 停止调度器
func (m *Manager) Stop() {
	if err := m.scheduler.Shutdown(); err != nil {
		logging.Error(context.Background(), "job scheduler shutdown failed", "error", err)
	}
}
