package main

import (
	"log"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/starkclip/crs/internal/config"
	"github.com/starkclip/crs/internal/logger"
	"github.com/starkclip/crs/internal/logic"
	"github.com/starkclip/crs/internal/platform"
	"github.com/starkclip/crs/internal/repository"
	"github.com/starkclip/crs/internal/router"
	"github.com/starkclip/crs/internal/task"
	"github.com/starkclip/crs/internal/treasury"
)

func main() {
	// 加载配置
	cfg := config.Load()

	// 初始化日志
	if err := logger.Init(cfg.Log); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Sync()

	// 初始化数据库
	db, err := repository.Init(cfg.Database)
	if err != nil {
		logger.Fatal("Failed to initialize database: %v", err)
	}

	// 初始化金库客户端
	t, err := treasury.Init(cfg.Treasury)
	if err != nil {
		logger.Fatal("Failed to initialize treasury: %v", err)
	}

	// 视频平台协作方客户端
	provider := platform.NewHTTPProvider(cfg.Platform)

	// 发放编排器，金库转账全局串行
	submissionLogic := logic.NewSubmissionLogic(db, provider)
	payoutLogic := logic.NewPayoutLogic(db, submissionLogic, t,
		time.Duration(cfg.Treasury.TransferTimeout)*time.Second)

	// 设置Gin模式
	if cfg.Server.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	// 初始化路由
	r := router.Setup(db, provider, payoutLogic, cfg)

	// 启动支付确认对账任务
	manager := task.Start(db, t, submissionLogic, cfg)
	defer manager.Stop()

	// 启动服务器
	logger.Info("Server starting on port %s", cfg.Server.Port)
	if err := r.Run(":" + cfg.Server.Port); err != nil {
		logger.Fatal("Failed to start server: %v", err)
	}
}
