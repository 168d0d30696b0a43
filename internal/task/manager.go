package task

import (
	"github.com/go-co-op/gocron/v2"
	"github.com/starkclip/crs/internal/config"
	"github.com/starkclip/crs/internal/logger"
	"github.com/starkclip/crs/internal/logic"
	"github.com/starkclip/crs/internal/treasury"
	"gorm.io/gorm"
)

// Manager 后台任务管理器
type Manager struct {
	scheduler gocron.Scheduler
	db        *gorm.DB
	treasury  treasury.Treasury
	config    *config.Config
}

// NewManager 创建任务管理器
func NewManager(db *gorm.DB, t treasury.Treasury, cfg *config.Config) *Manager {
	s, err := gocron.NewScheduler()
	if err != nil {
		logger.Fatal("Failed to create scheduler: %v", err)
	}

	return &Manager{
		scheduler: s,
		db:        db,
		treasury:  t,
		config:    cfg,
	}
}

// Start 启动任务管理器
func Start(db *gorm.DB, t treasury.Treasury, submissionLogic *logic.SubmissionLogic, cfg *config.Config) *Manager {
	manager := NewManager(db, t, cfg)

	// 注册所有任务
	manager.RegisterPayoutConfirmJob(submissionLogic)

	manager.scheduler.Start()
	logger.Info("Task manager started successfully")

	return manager
}

// RegisterPayoutConfirmJob 注册支付确认对账任务
func (m *Manager) RegisterPayoutConfirmJob(submissionLogic *logic.SubmissionLogic) {
	job := NewPayoutConfirmJob(m.db, m.config, m.treasury, submissionLogic)

	_, err := m.scheduler.NewJob(
		job.GetSchedule(),
		gocron.NewTask(job.Execute),
		gocron.WithName(job.GetName()),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		logger.Error("Failed to register job %s: %v", job.GetName(), err)
	}
}

// Stop 停止任务管理器
func (m *Manager) Stop() {
	if err := m.scheduler.Shutdown(); err != nil {
		logger.Error("Failed to shutdown scheduler: %v", err)
	}
	logger.Info("Task manager stopped")
}
