package routes

import (
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"workfinder/internal/authz"
	"workfinder/internal/handlers"
	"workfinder/internal/middleware"
)

func SetupRoutes(
	r *gin.Engine,
	authHandler *handlers.AuthHandler,
	profileHandler *handlers.ProfileHandler,
	projectHandler *handlers.ProjectHandler,
	bidHandler *handlers.BidHandler,
	categoryHandler *handlers.CategoryHandler,
	withdrawalHandler *handlers.WithdrawalHandler,
	paymentHandler *handlers.PaymentHandler,
	uploadHandler *handlers.UploadHandler,
	messageHandler *handlers.MessageHandler,
	adminHandler *handlers.AdminHandler,
	integrationsHandler *handlers.IntegrationsHandler, // может быть nil при выключенном боте
) *gin.Engine {

	r.GET("/healthz", func(c *gin.Context) { c.JSON(200, gin.H{"status": "ok"}) })
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	if integrationsHandler != nil {
		r.POST("/integrations/telegram/webhook", integrationsHandler.TelegramWebhook)
	}

	// дальше всё проходит через JWT; публичные пути перечислены в middleware
	r.Use(middleware.AuthMiddleware())

	api := r.Group("/api")

	// AUTH
	auth := api.Group("/auth")
	{
		auth.POST("/telegram/send", authHandler.SendCode)
		auth.POST("/telegram/verify", authHandler.VerifyCode)
		auth.GET("/telegram/status/:requestId", authHandler.Status)
		auth.POST("/refresh", authHandler.Refresh)
	}

	// PROFILES
	profiles := api.Group("/profiles")
	{
		profiles.GET("/me", profileHandler.Me)
		profiles.PATCH("/me", profileHandler.UpdateMe)
		profiles.GET("/:id", profileHandler.Get)
	}

	// PROJECTS + отклики в контексте проекта
	projects := api.Group("/projects")
	{
		projects.GET("", projectHandler.Search)
		projects.POST("", projectHandler.Create)
		projects.GET("/my", projectHandler.ListMy)
		projects.GET("/:id", projectHandler.Get)
		projects.PATCH("/:id", projectHandler.Update)
		projects.DELETE("/:id", projectHandler.Delete)
		projects.PATCH("/:id/status", projectHandler.UpdateStatus)
		projects.POST("/:id/bids", bidHandler.Create)
		projects.GET("/:id/bids", bidHandler.ListByProject)
	}

	// BIDS
	bids := api.Group("/bids")
	{
		bids.GET("/my", bidHandler.ListMy)
		bids.POST("/:id/accept", bidHandler.Accept)
		bids.POST("/:id/withdraw", bidHandler.Withdraw)
	}

	// CATEGORIES (чтение публичное)
	api.GET("/categories", categoryHandler.List)

	// WITHDRAWALS
	withdrawals := api.Group("/withdrawals")
	{
		withdrawals.POST("", withdrawalHandler.Create)
		withdrawals.GET("", withdrawalHandler.ListMy)
		withdrawals.GET("/:id/receipt", withdrawalHandler.Receipt)
	}

	// PAYMENTS
	payments := api.Group("/payments")
	{
		payments.POST("/topup", paymentHandler.CreateTopup)
		payments.POST("/webhook", paymentHandler.Webhook)
	}

	// FILES
	files := api.Group("/files")
	{
		files.POST("", uploadHandler.Upload)
		files.GET("/:id", uploadHandler.Download)
	}

	// MESSAGES
	messages := api.Group("/messages")
	{
		messages.POST("", messageHandler.Send)
		messages.GET("", messageHandler.Conversations)
		messages.GET("/:partnerId", messageHandler.History)
	}

	// ADMIN
	api.POST("/admin/login", authHandler.AdminLogin)

	admin := api.Group("/admin", middleware.RequireRoles(authz.RoleModerator, authz.RoleAdmin))
	{
		admin.GET("/stats", adminHandler.Stats)
		admin.GET("/users", adminHandler.ListUsers)
		admin.POST("/users/:id/block", adminHandler.SetBlocked)
		admin.GET("/withdrawals", adminHandler.ListWithdrawals)
		admin.POST("/withdrawals/:id/approve", adminHandler.ApproveWithdrawal)
		admin.POST("/withdrawals/:id/reject", adminHandler.RejectWithdrawal)

		admin.POST("/categories", categoryHandler.Create)
		admin.PUT("/categories/:id", categoryHandler.Update)
		admin.DELETE("/categories/:id", categoryHandler.Delete)
	}

	return r
}
