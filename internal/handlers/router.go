package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"agridoctor-back/internal/auth"
	"agridoctor-back/internal/database"
	"agridoctor-back/internal/metrics"
	"agridoctor-back/internal/middleware"
	"agridoctor-back/internal/prediction"
)

const apiVersion = "1.0.0"

// RouterDeps are the collaborators wired into the HTTP routes.
type RouterDeps struct {
	Store       database.Store
	Tokens      *auth.TokenService
	Predictions *prediction.Service
	Limiter     *LoginLimiter
	Metrics     *metrics.Metrics
	CORSOrigins []string
	Cookie      CookieConfig
}

// NewRouter builds the gin engine with every route of the API.
func NewRouter(d RouterDeps) *gin.Engine {
	r := gin.Default()
	r.MaxMultipartMemory = d.Predictions.MaxImageSize() + 1<<20

	r.Use(middleware.CORSMiddleware(d.CORSOrigins))
	r.Use(middleware.MetricsMiddleware(d.Metrics))

	r.GET("/", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "AgriDoctor API is running!", "version": apiVersion})
	})
	r.GET("/health", Health(d.Store))
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	requireAuth := middleware.AuthMiddleware(d.Tokens)

	authGroup := r.Group("/api/auth")
	{
		authGroup.POST("/register", Register(d.Store, d.Tokens, d.Cookie))
		authGroup.POST("/login", Login(d.Store, d.Tokens, d.Limiter, d.Cookie))
		authGroup.POST("/logout", Logout(d.Cookie))
		authGroup.GET("/me", requireAuth, GetProfile(d.Store))
	}

	predict := r.Group("/api/predict")
	{
		predict.GET("/health", PredictionHealth(d.Predictions))
		predict.POST("/crop", requireAuth, PredictCrop(d.Predictions))
		predict.POST("/fertilizer", requireAuth, PredictFertilizer(d.Predictions))
		predict.GET("/crop/history", requireAuth, CropHistory(d.Predictions))
		predict.GET("/fertilizer/history", requireAuth, FertilizerHistory(d.Predictions))
	}

	disease := r.Group("/api/disease")
	{
		disease.GET("/health", DiseaseHealth(d.Predictions))
		disease.POST("/detect", requireAuth, DetectDisease(d.Predictions))
		disease.GET("/history", requireAuth, DiseaseHistory(d.Predictions))
	}

	return r
}

// Health reports liveness along with database reachability.
func Health(store database.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()
		if err := store.Ping(ctx); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unhealthy", "database": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "healthy"})
	}
}
