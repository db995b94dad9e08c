package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/car-storefront-api/internal/apperrors"
	"github.com/car-storefront-api/internal/config"
	"github.com/car-storefront-api/internal/service"
	"github.com/car-storefront-api/internal/settings"
	"github.com/car-storefront-api/internal/storage"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// Option configures optional router dependencies
type Option func(*routerDeps)

type routerDeps struct {
	images    *storage.Images
	uploadDir string
	theme     *settings.CSSTheme
	health    func(ctx context.Context) error
}

// WithImages enables the image upload endpoint. uploadDir, when set, is
// served under /uploads.
func WithImages(images *storage.Images, uploadDir string) Option {
	return func(d *routerDeps) {
		d.images = images
		d.uploadDir = uploadDir
	}
}

// WithTheme serves the theme stylesheet on /theme.css
func WithTheme(theme *settings.CSSTheme) Option {
	return func(d *routerDeps) {
		d.theme = theme
	}
}

// WithHealthCheck makes /health report the result of check
func WithHealthCheck(check func(ctx context.Context) error) Option {
	return func(d *routerDeps) {
		d.health = check
	}
}

// NewRouter creates and configures the Gin router
func NewRouter(services *service.Services, cfg *config.Config, log zerolog.Logger, opts ...Option) *gin.Engine {
	deps := &routerDeps{theme: settings.NewCSSTheme()}
	for _, opt := range opts {
		opt(deps)
	}

	router := gin.New()

	// Middleware
	router.Use(recoveryMiddleware(log))
	router.Use(loggingMiddleware(log))
	router.Use(corsMiddleware(cfg.Store.CORSOrigins))

	// Handlers
	publicHandler := NewPublicHandler(services, deps.theme, log)
	adminHandler := NewAdminHandler(services, deps.images, cfg, log)
	importHandler := NewImportHandler(services, cfg, log)
	exportHandler := NewExportHandler(services, log)

	router.GET("/health", healthCheck(deps.health))
	router.GET("/metrics", metricsHandler(services))
	router.GET("/theme.css", publicHandler.ThemeCSS)
	router.GET("/template_veiculos.csv", publicHandler.Template)
	if deps.uploadDir != "" {
		router.Static(storage.PublicPrefix, deps.uploadDir)
	}

	api := router.Group("/api")
	{
		api.GET("/settings", publicHandler.GetSettings)
		api.GET("/store-info", publicHandler.StoreInfo)
		api.GET("/cars", publicHandler.ListCars)
		api.GET("/cars/featured", publicHandler.ListFeatured)
		api.GET("/cars/:id", publicHandler.GetCar)
		api.GET("/cars/:id/contact", publicHandler.ContactLink)
		api.GET("/sellers", publicHandler.ListSellers)

		limiter := newLoginLimiter(cfg.Auth.LoginRatePerMinute, cfg.Auth.LoginBurst)
		api.POST("/auth/login", limiter.middleware(), adminHandler.Login)

		admin := api.Group("/admin", authMiddleware(services.Auth))
		{
			admin.GET("/settings", adminHandler.GetSettings)
			admin.PUT("/settings", adminHandler.ReplaceSettings)

			admin.GET("/sellers", adminHandler.ListSellers)
			admin.POST("/sellers", adminHandler.CreateSeller)
			admin.PUT("/sellers/:id", adminHandler.UpdateSeller)
			admin.DELETE("/sellers/:id", adminHandler.DeleteSeller)

			admin.GET("/cars", adminHandler.ListCars)
			admin.GET("/cars/export", exportHandler.ExportCars)
			admin.POST("/cars", adminHandler.CreateCar)
			admin.PUT("/cars/:id", adminHandler.UpdateCar)
			admin.DELETE("/cars/:id", adminHandler.DeleteCar)

			admin.GET("/stats", adminHandler.Stats)
			admin.POST("/upload-image", adminHandler.UploadImage)
			admin.PUT("/change-password", adminHandler.ChangePassword)

			imports := admin.Group("/imports")
			{
				imports.POST("", importHandler.CreateImport)
				imports.GET("/:id", importHandler.GetImportStatus)
				imports.GET("/:id/errors", importHandler.GetImportErrors)
				imports.POST("/:id/cancel", importHandler.CancelImport)
			}
		}
	}

	return router
}

// healthCheck returns the health status
func healthCheck(check func(ctx context.Context) error) gin.HandlerFunc {
	return func(c *gin.Context) {
		status, code := "healthy", http.StatusOK
		if check != nil {
			if err := check(c.Request.Context()); err != nil {
				status, code = "unhealthy", http.StatusServiceUnavailable
			}
		}
		c.JSON(code, gin.H{
			"status":    status,
			"timestamp": time.Now().Format(time.RFC3339),
			"service":   "car-storefront-api",
		})
	}
}

// metricsHandler returns catalog and import counters
func metricsHandler(services *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		metrics, err := services.Stats.GetMetrics(c.Request.Context())
		if err != nil {
			respondError(c, err)
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"database": gin.H{
				"cars":        metrics.Cars,
				"sellers":     metrics.Sellers,
				"import_runs": metrics.ImportRuns,
			},
			"timestamp": time.Now().Format(time.RFC3339),
		})
	}
}

// respondError writes err as {"error", "code"} with the status of its kind
func respondError(c *gin.Context, err error) {
	code := apperrors.ErrInternal.Code
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		code = appErr.Code
	}
	status := apperrors.HTTPStatus(err)
	message := apperrors.UserMessage(err)
	if status == http.StatusInternalServerError {
		message = apperrors.ErrInternal.Message
	}
	c.AbortWithStatusJSON(status, gin.H{"error": message, "code": code})
}

// recoveryMiddleware handles panics
func recoveryMiddleware(log zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if err := recover(); err != nil {
				log.Error().Interface("error", err).Str("path", c.Request.URL.Path).Msg("Panic recovered")
				c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
					"error": apperrors.ErrInternal.Message,
					"code":  apperrors.ErrInternal.Code,
				})
			}
		}()
		c.Next()
	}
}

// loggingMiddleware logs requests
func loggingMiddleware(log zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path

		c.Next()

		duration := time.Since(start)
		statusCode := c.Writer.Status()

		event := log.Info()
		if statusCode >= 400 {
			event = log.Warn()
		}
		if statusCode >= 500 {
			event = log.Error()
		}

		event.
			Str("method", c.Request.Method).
			Str("path", path).
			Int("status", statusCode).
			Dur("duration", duration).
			Str("client_ip", c.ClientIP()).
			Msg("Request completed")
	}
}

// corsMiddleware allows the storefront and admin frontends to call the API
func corsMiddleware(origins []string) gin.HandlerFunc {
	cfg := cors.Config{
		AllowMethods:  []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Authorization", "Idempotency-Key"},
		ExposeHeaders: []string{"Content-Disposition"},
		MaxAge:        12 * time.Hour,
	}
	if len(origins) == 0 || (len(origins) == 1 && origins[0] == "*") {
		cfg.AllowAllOrigins = true
	} else {
		cfg.AllowOrigins = origins
	}
	return cors.New(cfg)
}
