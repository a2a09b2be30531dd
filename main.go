package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"skillchain/handlers"
	"skillchain/models"
	"skillchain/services"
	"skillchain/utils"
	"skillchain/workers"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/joho/godotenv"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("⚠️  No .env file found, reading environment variables directly")
	}

	app := fiber.New(fiber.Config{
		BodyLimit: 12 * 1024 * 1024, // 10MB proof file + multipart overhead
	})

	allowedOriginsEnv := os.Getenv("ALLOWED_ORIGINS")
	if allowedOriginsEnv == "" {
		log.Println("⚠️  ALLOWED_ORIGINS environment variable not set, using default: http://localhost:5173")
		allowedOriginsEnv = "http://localhost:5173"
	}
	allowedOriginsList := strings.Split(allowedOriginsEnv, ",")
	for i, origin := range allowedOriginsList {
		allowedOriginsList[i] = strings.TrimSpace(origin)
	}
	allowedOriginsString := strings.Join(allowedOriginsList, ",")

	app.Use(cors.New(cors.Config{
		AllowOrigins:     allowedOriginsString,
		AllowMethods:     "GET,POST,OPTIONS",
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization",
		AllowCredentials: true,
		MaxAge:           86400, // 24 hours
	}))

	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		log.Fatal("DATABASE_URL environment variable not set")
	}

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{TranslateError: true})
	if err != nil {
		log.Fatal("failed to connect to database:", err)
	}

	if err := db.AutoMigrate(
		&models.Course{},
		&models.Proof{},
		&models.Certificate{},
	); err != nil {
		log.Fatal("failed to migrate database:", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	ipfsClient := services.NewPinataClient(utils.NewHTTPClient())

	// Chain credentials are optional: without them the process still serves
	// courses and proofs, and mint/verify endpoints answer 503.
	chainClient, err := services.NewEthChainClient(ctx)
	if err != nil {
		log.Fatal("failed to initialize chain client:", err)
	}

	// A nil interface keeps the nil check in the services honest — a typed
	// nil *EthChainClient would slip past it.
	var chain services.ChainClient
	if chainClient != nil {
		chain = chainClient
	}

	courseService := services.NewCourseService(db)
	proofService := services.NewProofService(db, ipfsClient)
	certificateService := services.NewCertificateService(db, ipfsClient, chain)

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok", "timestamp": time.Now().UTC().Format(time.RFC3339)})
	})

	handlers.SetupCourseRoutes(app, courseService)
	handlers.SetupProofRoutes(app, proofService)
	handlers.SetupCertificateRoutes(app, certificateService)

	if chain != nil {
		syncWorker := workers.NewChainSyncWorker(db, chain)
		if err := syncWorker.Start(10 * time.Minute); err != nil {
			log.Fatal("failed to start chain sync worker:", err)
		}
	} else {
		log.Println("⚠️  Chain sync worker disabled — chain client not configured")
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = "5000"
	}

	go func() {
		if err := app.Listen(":" + port); err != nil {
			log.Printf("Server error: %v", err)
		}
	}()

	log.Printf("✅ Server running on http://localhost:%s", port)
	if chainClient != nil {
		log.Println("✅ Chain client configured — minting enabled")
	}
	log.Printf("✅ CORS configured for origins: %s", allowedOriginsString)

	<-ctx.Done()
	log.Println("Shutting down server...")
	_ = app.Shutdown()
}
