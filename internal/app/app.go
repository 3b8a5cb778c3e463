package app

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"time"

	"workfinder/internal/cache"
	"workfinder/internal/config"
	"workfinder/internal/handlers"
	"workfinder/internal/middleware"
	"workfinder/internal/pdf"
	"workfinder/internal/repositories"
	"workfinder/internal/routes"
	"workfinder/internal/services"
	"workfinder/internal/storage"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	_ "github.com/lib/pq"
	"github.com/sirupsen/logrus"

	_ "workfinder/docs"
)

func Run() {
	cfg := config.LoadConfig()

	middleware.SetJWTSecret(cfg.JWT.Secret)

	// === DB ===
	db, err := sql.Open("postgres", cfg.Database.DSN)
	if err != nil {
		log.Fatal("Ошибка подключения к БД: ", err)
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Printf("Ошибка закрытия БД: %v", err)
		}
	}()
	if err := db.Ping(); err != nil {
		log.Fatal("БД недоступна: ", err)
	}

	// === Redis ===
	redisLog := logrus.New()
	cacheSvc := cache.New(cache.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	}, redisLog)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	if err := cacheSvc.Connect(ctx); err != nil {
		// кэш и лимитер переживают отсутствие redis (fail-open), сервер стартует
		log.Printf("Redis недоступен, продолжаем без кэша: %v", err)
	}
	cancel()
	defer func() {
		if err := cacheSvc.Close(); err != nil {
			log.Printf("Ошибка закрытия Redis: %v", err)
		}
	}()

	// === Repos ===
	profileRepo := repositories.NewProfileRepository(db)
	verificationRepo := repositories.NewVerificationRepository(db)
	tgAccountRepo := repositories.NewTelegramAccountRepository(db)
	projectRepo := repositories.NewProjectRepository(db)
	bidRepo := repositories.NewBidRepository(db)
	categoryRepo := repositories.NewCategoryRepository(db)
	withdrawalRepo := repositories.NewWithdrawalRepository(db)
	paymentRepo := repositories.NewPaymentRepository(db)
	messageRepo := repositories.NewMessageRepository(db)
	fileRepo := repositories.NewFileRepository(db)

	// === Services ===
	telegramService, err := services.NewTelegramService(cfg.Telegram.BotToken, cfg.Telegram.DryRun)
	if err != nil {
		log.Fatal("Ошибка инициализации Telegram-бота: ", err)
	}
	if cfg.Telegram.WebhookURL != "" {
		if err := telegramService.SetWebhook(cfg.Telegram.WebhookURL); err != nil {
			log.Printf("Не удалось выставить вебхук Telegram: %v", err)
		}
	}

	emailSender := services.NewEmailSender(
		cfg.Email.SMTPHost,
		cfg.Email.SMTPPort,
		cfg.Email.SMTPUser,
		cfg.Email.SMTPPassword,
		cfg.Email.FromEmail,
	)
	notifier := services.NewNotificationService(profileRepo, telegramService, emailSender)

	resolver := services.NewChatResolver(tgAccountRepo, profileRepo)
	verificationService := services.NewVerificationService(
		verificationRepo, profileRepo, cacheSvc, resolver, telegramService)

	profileService := services.NewProfileService(profileRepo)
	projectService := services.NewProjectService(projectRepo, cacheSvc)
	bidService := services.NewBidService(bidRepo, projectRepo, notifier)
	categoryService := services.NewCategoryService(categoryRepo, cacheSvc)
	withdrawalService := services.NewWithdrawalService(withdrawalRepo, notifier)
	paymentService := services.NewPaymentService(
		paymentRepo, notifier,
		cfg.Payments.RazorpayKeyID, cfg.Payments.RazorpayKeySecret, cfg.Payments.WebhookSecret)
	messageService := services.NewMessageService(messageRepo, projectRepo, bidRepo, cacheSvc, notifier)

	// PDF квитанции: шрифт с кириллицей обязателен
	receiptGen := pdf.NewReceiptGenerator(cfg.Files.RootDir, "assets/fonts/DejaVuSans.ttf")

	fileStore, err := storage.NewStore(cfg.Files.RootDir)
	if err != nil {
		log.Fatal("Ошибка инициализации файлового хранилища: ", err)
	}

	// === Handlers ===
	authHandler := handlers.NewAuthHandler(verificationService, profileRepo)
	profileHandler := handlers.NewProfileHandler(profileService)
	projectHandler := handlers.NewProjectHandler(projectService)
	bidHandler := handlers.NewBidHandler(bidService)
	categoryHandler := handlers.NewCategoryHandler(categoryService)
	withdrawalHandler := handlers.NewWithdrawalHandler(withdrawalService, profileService, receiptGen)
	paymentHandler := handlers.NewPaymentHandler(paymentService)
	uploadHandler := handlers.NewUploadHandler(fileStore, fileRepo, cfg.Files.MaxSizeMB)
	messageHandler := handlers.NewMessageHandler(messageService)
	adminHandler := handlers.NewAdminHandler(profileService, projectRepo, withdrawalService, withdrawalRepo, profileRepo, verificationRepo)
	integrationsHandler := handlers.NewIntegrationsHandler(telegramService, tgAccountRepo)

	// === Gin ===
	if !cfg.Server.Debug {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Logger())
	router.Use(gin.Recovery())
	router.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		ExposeHeaders:    []string{"Content-Disposition"},
		AllowCredentials: false,
		MaxAge:           12 * time.Hour,
	}))

	routes.SetupRoutes(
		router,
		authHandler,
		profileHandler,
		projectHandler,
		bidHandler,
		categoryHandler,
		withdrawalHandler,
		paymentHandler,
		uploadHandler,
		messageHandler,
		adminHandler,
		integrationsHandler,
	)

	// === Run ===
	listenAddr := fmt.Sprintf(":%d", cfg.Server.Port)
	log.Printf("Сервер запущен на %s", listenAddr)
	if err := router.Run(listenAddr); err != nil {
		log.Fatal("Ошибка запуска сервера: ", err)
	}
}
