package main

import (
	"context"
	"log"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"

	"github.com/healthconnect/healthconnect-api/internal/config"
	"github.com/healthconnect/healthconnect-api/internal/handlers"
	"github.com/healthconnect/healthconnect-api/internal/logger"
	"github.com/healthconnect/healthconnect-api/internal/middleware"
	"github.com/healthconnect/healthconnect-api/internal/models"
	"github.com/healthconnect/healthconnect-api/internal/services"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, relying on environment variables.")
	}
	cfg := config.Load()
	if cfg.JWTSecret == "" {
		log.Fatal("JWT_SECRET is not set")
	}

	zapLog, err := logger.New(cfg.Env, cfg.LogLevel)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer zapLog.Sync()

	// --- Database connection ---
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.MongoURI))
	if err != nil {
		zapLog.Fatal("failed to connect to MongoDB", zap.Error(err))
	}
	defer client.Disconnect(context.Background())
	db := client.Database(cfg.MongoDatabase)
	if err := ensureIndexes(ctx, db); err != nil {
		zapLog.Fatal("failed to create indexes", zap.Error(err))
	}
	zapLog.Info("connected to MongoDB", zap.String("database", cfg.MongoDatabase))

	// --- Redis (token revocation) ---
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		zapLog.Fatal("failed to connect to Redis", zap.Error(err))
	}
	defer rdb.Close()
	zapLog.Info("connected to Redis", zap.String("addr", cfg.RedisAddr))

	tokens := services.NewTokenStore(rdb)
	h := handlers.NewHandler(db, zapLog, tokens)

	// --- Router ---
	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestLogger(zapLog))
	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{cfg.FrontendURL},
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		AllowCredentials: true,
	}))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok", "message": "Server is running"})
	})

	limiter := middleware.NewRateLimiter(5, 10)
	auth := middleware.AuthMiddleware(tokens)

	authRoutes := r.Group("/api/auth")
	{
		authRoutes.POST("/register", middleware.RateLimit(limiter), h.RegisterUser)
		authRoutes.POST("/login", middleware.RateLimit(limiter), h.Login)
		authRoutes.POST("/logout", h.Logout)
		authRoutes.GET("/me", auth, h.GetCurrentUser)
	}

	api := r.Group("/api")
	api.Use(auth)
	{
		appointments := api.Group("/appointments")
		{
			appointments.GET("", h.GetAppointments)
			appointments.GET("/availability", h.GetDoctorAvailability)
			appointments.GET("/:id", h.GetAppointment)
			appointments.POST("", middleware.RequireRoles(models.RolePatient, models.RoleAdmin), h.CreateAppointment)
			appointments.PUT("/:id", h.UpdateAppointment)
			appointments.PATCH("/:id/cancel", h.CancelAppointment)
		}

		records := api.Group("/medical-records")
		{
			records.GET("", h.GetMedicalRecords)
			records.GET("/patient/:patientId", middleware.RequireRoles(models.RoleDoctor, models.RoleAdmin), h.GetMedicalRecords)
			records.GET("/:id", h.GetMedicalRecord)
			records.POST("", middleware.RequireRoles(models.RoleDoctor, models.RoleAdmin), h.CreateMedicalRecord)
			records.PUT("/:id", middleware.RequireRoles(models.RoleDoctor, models.RoleAdmin), h.UpdateMedicalRecord)
			records.DELETE("/:id", middleware.RequireRoles(models.RoleDoctor, models.RoleAdmin), h.DeleteMedicalRecord)
		}

		users := api.Group("/users")
		{
			users.GET("/profile", h.GetProfile)
			users.PUT("/profile", h.UpdateProfile)
			users.PUT("/change-password", h.ChangePassword)
			users.GET("/doctors", h.ListDoctors)
			users.GET("/all", middleware.RequireRoles(models.RoleAdmin), h.ListUsers)
		}

		consultations := api.Group("/consultations")
		{
			consultations.GET("", h.ListConsultations)
			consultations.GET("/:id", h.GetConsultation)
			consultations.POST("", h.CreateConsultation)
			consultations.PUT("/:id", h.UpdateConsultation)
			consultations.POST("/:id/start", h.StartConsultation)
			consultations.POST("/:id/end", h.EndConsultation)
		}

		emergency := api.Group("/emergency")
		{
			emergency.GET("/facilities/nearby", h.GetNearbyFacilities)
			emergency.GET("/blood-banks", h.GetBloodBanks)
			emergency.GET("/oxygen-suppliers", h.GetOxygenSuppliers)
			emergency.POST("/assistance", h.RequestEmergencyAssistance)
		}

		reports := api.Group("/reports")
		{
			reports.GET("", h.ListReports)
			reports.GET("/:id", h.GetReport)
			reports.POST("", h.CreateReport)
			reports.PUT("/:id", h.UpdateReport)
		}
	}

	addr := ":" + cfg.Port
	zapLog.Info("starting server", zap.String("addr", addr))
	if err := r.Run(addr); err != nil {
		zapLog.Fatal("server stopped", zap.Error(err))
	}
}

// ensureIndexes creates the unique email index and the guard against two
// live bookings of the same doctor slot.
func ensureIndexes(ctx context.Context, db *mongo.Database) error {
	_, err := db.Collection("users").Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "email", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return err
	}

	_, err = db.Collection("appointments").Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{
			{Key: "doctorId", Value: 1},
			{Key: "date", Value: 1},
			{Key: "startTime", Value: 1},
		},
		Options: options.Index().
			SetUnique(true).
			SetPartialFilterExpression(bson.M{"status": models.StatusScheduled}),
	})
	return err
}
