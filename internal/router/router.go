package router

import (
	"crypto/subtle"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/starkclip/crs/internal/config"
	"github.com/starkclip/crs/internal/handler"
	"github.com/starkclip/crs/internal/logic"
	"github.com/starkclip/crs/internal/platform"
	"gorm.io/gorm"
)

func Setup(db *gorm.DB, provider platform.VideoProvider, payoutLogic *logic.PayoutLogic, cfg *config.Config) *gin.Engine {
	r := gin.Default()

	// 中间件
	r.Use(gin.Logger())
	r.Use(gin.Recovery())
	r.Use(corsMiddleware())

	// 健康检查
	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"status":  "ok",
			"service": "creator-reward-service",
		})
	})

	campaignHandler := handler.NewCampaignHandler(db)
	submissionHandler := handler.NewSubmissionHandler(db, provider)
	payoutHandler := handler.NewPayoutHandler(payoutLogic)

	admin := adminAuthMiddleware(cfg.Admin.Password)

	// 活动路由
	campaigns := r.Group("/campaigns")
	{
		campaigns.GET("/active", campaignHandler.GetActiveCampaign)
		campaigns.GET("/active/all", campaignHandler.GetActiveCampaigns)
		campaigns.GET("", admin, campaignHandler.GetCampaigns)
		campaigns.POST("", admin, campaignHandler.CreateCampaign)
		campaigns.PUT("/:id", admin, campaignHandler.UpdateCampaign)
		campaigns.DELETE("/:id", admin, campaignHandler.DeleteCampaign)
	}

	// 提交路由
	submissions := r.Group("/submissions")
	{
		submissions.POST("", submissionHandler.Submit)
		submissions.GET("", admin, submissionHandler.GetSubmissions)
		submissions.GET("/stats", admin, submissionHandler.GetStats)
		submissions.PATCH("/:id", admin, submissionHandler.UpdateStatus)
		submissions.POST("/batch-status", admin, submissionHandler.BatchStatus)
	}

	// 发放路由（仅管理端）
	payout := r.Group("/admin/payout", admin)
	{
		payout.GET("/balance", payoutHandler.GetBalance)
		payout.POST("/simulate", payoutHandler.Simulate)
		payout.POST("", payoutHandler.Execute)
	}

	return r
}

// adminAuthMiddleware 管理接口鉴权，共享密钥经 x-admin-password 请求头传入
func adminAuthMiddleware(password string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if password == "" {
			c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{"error": "admin access is not configured"})
			return
		}

		provided := c.GetHeader("x-admin-password")
		if subtle.ConstantTimeCompare([]byte(provided), []byte(password)) != 1 {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid admin password"})
			return
		}

		c.Next()
	}
}

// CORS中间件
func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Origin, Content-Type, Content-Length, Accept-Encoding, Authorization, x-admin-password")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	}
}
