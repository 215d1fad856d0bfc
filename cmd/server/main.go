package main

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/gofiber/websocket/v2"
	"github.com/joho/godotenv"
	"github.com/planora-app/planora-backend/internal/cache"
	"github.com/planora-app/planora-backend/internal/handlers"
	"github.com/planora-app/planora-backend/internal/middleware"
	"github.com/planora-app/planora-backend/internal/models"
	"github.com/planora-app/planora-backend/internal/repository"
	"github.com/planora-app/planora-backend/internal/scheduler"
	"github.com/planora-app/planora-backend/internal/service"
	"github.com/planora-app/planora-backend/internal/storage"
)

func main() {
	// Load environment variables
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using system environment variables")
	}

	jwtSecret := os.Getenv("JWT_SECRET")
	if jwtSecret == "" {
		log.Fatal("JWT_SECRET is required")
	}

	// Initialize Fiber app
	app := fiber.New(fiber.Config{
		AppName: "Planora Backend",
		// Support attachment uploads up to 10MB + overhead.
		BodyLimit: 12 * 1024 * 1024, // 12MB
	})

	// Middleware
	app.Use(requestid.New())
	app.Use(logger.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins:     os.Getenv("ALLOWED_ORIGINS"),
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization, X-Planora-CSRF",
		AllowMethods:     "GET, POST, PUT, PATCH, DELETE, OPTIONS",
		AllowCredentials: true,
	}))

	// Initialize database connection
	db, err := repository.InitDB()
	if err != nil {
		log.Fatal("Failed to connect to database:", err)
	}

	// Initialize Redis cache
	redisAddr := os.Getenv("REDIS_ADDR")
	if redisAddr == "" {
		redisAddr = "localhost:6379"
	}
	redisPassword := os.Getenv("REDIS_PASSWORD")
	redisDB := 0
	if dbStr := os.Getenv("REDIS_DB"); dbStr != "" {
		if parsedDB, err := strconv.Atoi(dbStr); err == nil {
			redisDB = parsedDB
		}
	}

	redisCache := cache.NewRedisCache(redisAddr, redisPassword, redisDB)
	if err := redisCache.Ping(); err != nil {
		log.Printf("WARNING: Redis connection failed: %v. Running without cache.", err)
		redisCache = nil
	} else {
		log.Println("Redis cache connected successfully")
	}

	convCache := cache.NewConversationCache(redisCache)
	userCache := cache.NewUserCache(redisCache)

	// Initialize repositories
	userRepo := repository.NewUserRepository(db)
	conversationRepo := repository.NewConversationRepository(db)
	messageRepo := repository.NewMessageRepository(db)
	notificationRepo := repository.NewNotificationRepository(db)
	announcementRepo := repository.NewAnnouncementRepository(db)
	accountStatusRepo := repository.NewAccountStatusRepository(db)
	auditLogRepo := repository.NewAuditLogRepository(db)
	refreshTokenRepo := repository.NewRefreshTokenRepository(db)

	// Initialize S3/MinIO storage (best-effort; attachment endpoints return 503 if missing)
	var s3Store *storage.S3Storage
	if cfg, err := storage.LoadS3ConfigFromEnv(); err != nil {
		log.Printf("WARNING: S3 storage not configured: %v", err)
	} else if st, err := storage.NewS3Storage(cfg); err != nil {
		log.Printf("WARNING: Failed to initialize S3 storage: %v", err)
	} else {
		s3Store = st
		log.Printf("S3 storage initialized successfully (bucket=%s)", cfg.Bucket)
	}

	// Initialize services. The websocket hub doubles as the live push channel,
	// so it is created first.
	userService := service.NewUserService(userRepo)
	wsHandler := handlers.NewWebSocketHandler(userService, userCache)
	hub := wsHandler.GetHub()

	authService := service.NewAuthService(userRepo, refreshTokenRepo)
	messageService := service.NewMessageService(messageRepo, conversationRepo, userRepo)
	notificationService := service.NewNotificationService(notificationRepo, userRepo, hub)
	announcementService := service.NewAnnouncementService(announcementRepo, userRepo, hub)
	accountService := service.NewAccountService(userRepo, accountStatusRepo, hub)

	// Initialize handlers
	authHandler := handlers.NewAuthHandler(authService)
	userHandler := handlers.NewUserHandler(userService, userCache, hub)
	messageHandler := handlers.NewMessageHandler(messageService, convCache, hub)
	notificationHandler := handlers.NewNotificationHandler(notificationService)
	adminHandler := handlers.NewAdminHandler(accountService, announcementService, userService, auditLogRepo, userCache, hub)
	attachmentHandler := handlers.NewAttachmentHandler(s3Store)

	// Announcement scheduler: activates future-dated announcements and pushes
	// them to connected targets.
	sched := scheduler.NewScheduler(announcementRepo, notificationRepo, hub)
	sched.Start()
	defer sched.Stop()

	// Public routes
	api := app.Group("/api", middleware.OriginAllowed())
	auth := api.Group("/auth", limiter.New(limiter.Config{
		Max:        20,
		Expiration: time.Minute,
	}))
	auth.Get("/csrf", authHandler.CSRF)
	auth.Post("/register", authHandler.Register)
	auth.Post("/login", authHandler.Login)
	auth.Post("/refresh", authHandler.Refresh) // No CSRF required - protected by HttpOnly refresh token
	auth.Post("/logout", middleware.CSRFRequired(), authHandler.Logout)

	// Protected routes. AccountActive re-checks the durable account state on
	// every request, so a banned or deleted user is cut off even with a valid
	// token still in hand.
	protected := api.Group("/", middleware.AuthRequired(), middleware.AccountActive(userRepo), middleware.CSRFRequired())
	protected.Get("/users/me", userHandler.GetCurrentUser)
	protected.Put("/users/me", userHandler.UpdateProfile)
	protected.Get("/users/search", userHandler.SearchUsers)
	protected.Get("/users/:id", userHandler.GetUser)

	protected.Get("/conversations", messageHandler.GetConversations)
	protected.Get("/conversations/:peerID", messageHandler.GetConversation)
	protected.Post("/conversations/:peerID/read", messageHandler.MarkConversationRead)
	protected.Get("/messages", messageHandler.GetMessages)
	protected.Post("/messages", messageHandler.SendMessage)
	protected.Delete("/messages/:id", messageHandler.DeleteMessage)
	protected.Get("/messages/unread-total", messageHandler.GetUnreadTotal)

	protected.Get("/notifications", notificationHandler.GetNotifications)
	protected.Get("/notifications/unread-count", notificationHandler.GetUnreadCount)
	protected.Post("/notifications/:id/read", notificationHandler.MarkRead)
	protected.Post("/notifications/read-all", notificationHandler.MarkAllRead)

	protected.Post(
		"/attachments",
		limiter.New(limiter.Config{
			Max:        20,
			Expiration: 10 * time.Minute,
		}),
		attachmentHandler.Upload,
	)
	protected.Get("/attachments/*", attachmentHandler.Get)
	protected.Delete("/attachments/*", attachmentHandler.Delete)

	// Admin routes
	admin := protected.Group("/admin", middleware.RequireRole(models.RoleAdmin))
	admin.Get("/stats", adminHandler.Stats)
	admin.Get("/users", adminHandler.ListUsers)
	admin.Post("/users/:id/ban", adminHandler.BanUser)
	admin.Post("/users/:id/unban", adminHandler.UnbanUser)
	admin.Post("/users/:id/promote", adminHandler.PromoteUser)
	admin.Post("/users/:id/demote", adminHandler.DemoteUser)
	admin.Delete("/users/:id", adminHandler.DeleteUser)
	admin.Get("/audit-log", adminHandler.ListAuditLog)
	admin.Post("/announcements", adminHandler.PublishAnnouncement)
	admin.Get("/announcements", adminHandler.ListAnnouncements)
	admin.Delete("/announcements/:id", adminHandler.DeleteAnnouncement)

	// WebSocket route (websocket upgrade needs special handling)
	app.Use(
		"/ws",
		middleware.OriginAllowed(),
		middleware.AuthRequired(),
		middleware.AccountActive(userRepo),
		func(c *fiber.Ctx) error {
			// Upgrade to WebSocket
			if websocket.IsWebSocketUpgrade(c) {
				return c.Next()
			}
			return fiber.ErrUpgradeRequired
		},
	)
	app.Get("/ws", websocket.New(wsHandler.HandleWebSocket))

	// Health check
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":  "ok",
			"message": "Planora backend is running",
		})
	})

	// Start server
	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	log.Printf("Server starting on port %s...", port)
	if err := app.Listen(":" + port); err != nil {
		log.Fatal("Failed to start server:", err)
	}
}
