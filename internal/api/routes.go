package api

import (
	"net/http"
	"strings"
	"time"

	"ironworks/gym-app/internal/config"
	"ironworks/gym-app/internal/domain"
	"ironworks/gym-app/internal/service"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Services bundles what the HTTP layer calls into.
type Services struct {
	Auth          service.AuthService
	Attendance    service.AttendanceService
	Export        service.ExportService
	Challenges    service.ChallengeService
	Participation service.ParticipationService
	Leaderboard   service.LeaderboardService
	Sweeper       StatsSweeper
}

// NewRouter builds the gin engine with middlewares and all routes.
func NewRouter(cfg config.Config, loc *time.Location, svc Services, log *zap.Logger) *gin.Engine {
	switch strings.ToLower(cfg.Server.GinMode) {
	case "debug":
		gin.SetMode(gin.DebugMode)
	case "test":
		gin.SetMode(gin.TestMode)
	default:
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(Recovery(log), RequestLogger(log))

	corsCfg := cors.Config{
		AllowMethods:  []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:  []string{"Authorization", "Content-Type", requestIDHeader},
		ExposeHeaders: []string{"Content-Length", requestIDHeader},
		MaxAge:        12 * time.Hour,
	}
	origins := cfg.Server.AllowedOrigins
	if len(origins) == 0 || (len(origins) == 1 && origins[0] == "*") {
		corsCfg.AllowAllOrigins = true
	} else {
		corsCfg.AllowOrigins = origins
		corsCfg.AllowCredentials = true
	}
	router.Use(cors.New(corsCfg))

	SetupRoutes(router, cfg.JWT.Secret, NewRateLimiter(cfg.Server.RateLimitPerMinute), loc, svc, log)
	return router
}

func SetupRoutes(
	router *gin.Engine,
	jwtSecret string,
	limiter *RateLimiter,
	loc *time.Location,
	svc Services,
	log *zap.Logger,
) {
	authHandler := NewAuthHandler(svc.Auth, log)
	attendanceHandler := NewAttendanceHandler(svc.Attendance, svc.Export, loc, log)
	challengeHandler := NewChallengeHandler(svc.Challenges, svc.Participation, svc.Leaderboard, svc.Sweeper, log)

	authMiddleware := AuthMiddleware(jwtSecret)
	throttle := limiter.Middleware()

	apiV1 := router.Group("/api/v1")
	apiV1.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "pong"})
	})

	authGroup := apiV1.Group("/auth", throttle)
	{
		authGroup.POST("/register", authHandler.Register)
		authGroup.POST("/login", authHandler.Login)
	}

	protected := apiV1.Group("")
	protected.Use(authMiddleware)
	{
		protected.GET("/auth/me", authHandler.Me)
		protected.GET("/me/challenges", challengeHandler.MyChallenges)

		// --- Attendance ---
		attendance := protected.Group("/attendance")
		{
			attendance.POST("/check-in", throttle, attendanceHandler.CheckIn)
			attendance.GET("/stats", attendanceHandler.GetStats)
			attendance.GET("", attendanceHandler.List)
			attendance.DELETE("/:id", StaffOnly(), attendanceHandler.Delete)
			attendance.POST("/export", RoleMiddleware(domain.RoleAdmin), attendanceHandler.Export)
		}

		// --- Challenges ---
		challenges := protected.Group("/challenges")
		{
			challenges.GET("", challengeHandler.List)
			challenges.POST("", StaffOnly(), challengeHandler.Create)
			challenges.GET("/:id", challengeHandler.Get)
			challenges.PUT("/:id", StaffOnly(), challengeHandler.Update)
			challenges.DELETE("/:id", StaffOnly(), challengeHandler.Delete)

			challenges.POST("/:id/join", throttle, challengeHandler.Join)
			challenges.DELETE("/:id/leave", throttle, challengeHandler.Leave)
			challenges.POST("/:id/progress", throttle, challengeHandler.MarkProgress)
			challenges.GET("/:id/progress", challengeHandler.GetProgress)
			challenges.GET("/:id/leaderboard", challengeHandler.Leaderboard)
		}

		admin := protected.Group("/admin", RoleMiddleware(domain.RoleAdmin))
		{
			admin.POST("/challenges/recompute", challengeHandler.Recompute)
		}
	}
}
