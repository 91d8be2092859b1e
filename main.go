package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"learning-gamification-system/handlers"
	"learning-gamification-system/middleware"
	"learning-gamification-system/models"
	"learning-gamification-system/services"
	"learning-gamification-system/workers"

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

	app := fiber.New()

	// 🔐 GLOBAL: Only Gateway requests allowed — no exceptions
	app.Use(middleware.GatewayAuthMiddleware())

	allowedOriginsEnv := os.Getenv("ALLOWED_ORIGINS")
	if allowedOriginsEnv == "" {
		log.Println("⚠️  ALLOWED_ORIGINS environment variable not set, using default: http://localhost:3000")
		allowedOriginsEnv = "http://localhost:3000"
	}
	allowedOriginsList := strings.Split(allowedOriginsEnv, ",")
	for i, origin := range allowedOriginsList {
		allowedOriginsList[i] = strings.TrimSpace(origin)
	}

	app.Use(cors.New(cors.Config{
		AllowOrigins:     strings.Join(allowedOriginsList, ","),
		AllowMethods:     "GET,POST,PUT,DELETE,OPTIONS,PATCH,HEAD",
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization, X-Requested-With, X-Request-ID, X-User-ID, X-User-Roles",
		AllowCredentials: true,
		MaxAge:           86400, // 24 hours
	}))

	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		log.Fatal("DATABASE_URL environment variable not set")
	}

	// TranslateError turns driver unique-violations into
	// gorm.ErrDuplicatedKey, which the idempotency guards rely on.
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{TranslateError: true})
	if err != nil {
		log.Fatal("failed to connect to database:", err)
	}

	if err := db.AutoMigrate(
		&models.Point{},
		&models.UserGamificationStat{},
		&models.UserScopeStat{},
		&models.LevelConfig{},
		&models.Milestone{},
		&models.Challenge{},
		&models.UserChallengeAssignment{},
		&models.UserChallengeCompletion{},
		&models.Course{},
		&models.Unit{},
		&models.Lesson{},
		&models.AssignmentTask{},
		&models.Grade{},
		&models.LessonAttempt{},
		&models.Enrollment{},
	); err != nil {
		log.Fatal("failed to migrate database:", err)
	}

	seedConfigTables(db)

	levelService := services.NewLevelService(db)
	scopeResolver := services.NewScopeResolver(db)
	pointsService := services.NewPointsService(db, levelService, scopeResolver)
	achievementService := services.NewAchievementService(db)
	challengeService := services.NewChallengeService(db)
	challengeProcessor := services.NewChallengeProcessor(db, challengeService)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Optional enrollment mirror; skipped when no LMS endpoint configured
	// (e.g., the LMS writes the enrollments table directly).
	if lmsURL := os.Getenv("LMS_SYNC_URL"); lmsURL != "" {
		serviceToken := os.Getenv("GAMIFICATION_SERVICE_TOKEN")
		syncWorker := workers.NewEnrollmentSyncWorker(db, lmsURL, "/api/v1/public/enrollments", serviceToken)
		syncWorker.Start(ctx)
	}

	challengeProcessor.StartSweepScheduler()

	handlers.SetupGamificationRoutes(app, pointsService, levelService, achievementService, challengeService, challengeProcessor)

	go func() {
		if err := app.Listen(":5300"); err != nil {
			log.Printf("Server error: %v", err)
		}
	}()

	log.Println("✅ Gamification engine running on http://localhost:5300")
	log.Println("✅ Challenge sweep scheduler running")
	log.Println("✅ GatewayAuthMiddleware enforced globally — all requests must come through Gateway")

	<-ctx.Done()
	log.Println("Shutting down server...")
}

// seedConfigTables fills the admin-managed config tables on first boot so a
// fresh install levels and displays milestones sensibly. Existing rows are
// never touched.
func seedConfigTables(db *gorm.DB) {
	var levelCount int64
	db.Model(&models.LevelConfig{}).Count(&levelCount)
	if levelCount == 0 {
		configs := models.DefaultLevelConfigs(100)
		if err := db.Create(&configs).Error; err != nil {
			log.Printf("⚠️ Failed to seed level configs: %v", err)
		} else {
			log.Printf("🌱 Seeded %d level config rows", len(configs))
		}
	}

	var milestoneCount int64
	db.Model(&models.Milestone{}).Count(&milestoneCount)
	if milestoneCount == 0 {
		milestones := models.DefaultMilestones
		if err := db.Create(&milestones).Error; err != nil {
			log.Printf("⚠️ Failed to seed milestones: %v", err)
		} else {
			log.Printf("🌱 Seeded %d milestones", len(milestones))
		}
	}
}
