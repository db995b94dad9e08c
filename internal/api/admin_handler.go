package api

import (
	"net/http"

	"github.com/car-storefront-api/internal/apperrors"
	"github.com/car-storefront-api/internal/config"
	"github.com/car-storefront-api/internal/models"
	"github.com/car-storefront-api/internal/service"
	"github.com/car-storefront-api/internal/storage"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

var errBadBody = apperrors.WithMessage(apperrors.ErrInvalidInput, "invalid request body")

// AdminHandler serves the back-office endpoints
type AdminHandler struct {
	services *service.Services
	images   *storage.Images
	cfg      *config.Config
	log      zerolog.Logger
}

// NewAdminHandler creates a new AdminHandler. images may be nil, which
// disables uploads.
func NewAdminHandler(services *service.Services, images *storage.Images, cfg *config.Config, log zerolog.Logger) *AdminHandler {
	return &AdminHandler{
		services: services,
		images:   images,
		cfg:      cfg,
		log:      log.With().Str("handler", "admin").Logger(),
	}
}

// Login handles POST /api/auth/login
func (h *AdminHandler) Login(c *gin.Context) {
	var req models.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, errBadBody)
		return
	}

	resp, err := h.services.Auth.Login(c.Request.Context(), &req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// ChangePassword handles PUT /api/admin/change-password
func (h *AdminHandler) ChangePassword(c *gin.Context) {
	var req models.ChangePasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, errBadBody)
		return
	}

	if err := h.services.Auth.ChangePassword(c.Request.Context(), c.GetString(ctxAdminID), &req); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Password changed successfully"})
}

// GetSettings handles GET /api/admin/settings
func (h *AdminHandler) GetSettings(c *gin.Context) {
	current, err := h.services.Settings.FetchSettings(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, current)
}

// ReplaceSettings handles PUT /api/admin/settings. The body replaces the
// whole record; fields left out are stored empty.
func (h *AdminHandler) ReplaceSettings(c *gin.Context) {
	var in models.SiteSettings
	if err := c.ShouldBindJSON(&in); err != nil {
		respondError(c, errBadBody)
		return
	}

	saved, err := h.services.Settings.ReplaceSettings(c.Request.Context(), &in)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, saved)
}

// ListSellers handles GET /api/admin/sellers
func (h *AdminHandler) ListSellers(c *gin.Context) {
	sellers, err := h.services.Seller.ListSellers(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, sellers)
}

// CreateSeller handles POST /api/admin/sellers
func (h *AdminHandler) CreateSeller(c *gin.Context) {
	var in models.SellerInput
	if err := c.ShouldBindJSON(&in); err != nil {
		respondError(c, errBadBody)
		return
	}

	seller, err := h.services.Seller.CreateSeller(c.Request.Context(), &in)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, seller)
}

// UpdateSeller handles PUT /api/admin/sellers/:id
func (h *AdminHandler) UpdateSeller(c *gin.Context) {
	var in models.SellerInput
	if err := c.ShouldBindJSON(&in); err != nil {
		respondError(c, errBadBody)
		return
	}

	seller, err := h.services.Seller.UpdateSeller(c.Request.Context(), c.Param("id"), &in)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, seller)
}

// DeleteSeller handles DELETE /api/admin/sellers/:id
func (h *AdminHandler) DeleteSeller(c *gin.Context) {
	if err := h.services.Seller.DeleteSeller(c.Request.Context(), c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Seller deleted successfully"})
}

// ListCars handles GET /api/admin/cars
func (h *AdminHandler) ListCars(c *gin.Context) {
	cars, err := h.services.Car.ListAdmin(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, cars)
}

// CreateCar handles POST /api/admin/cars
func (h *AdminHandler) CreateCar(c *gin.Context) {
	var in models.CarInput
	if err := c.ShouldBindJSON(&in); err != nil {
		respondError(c, errBadBody)
		return
	}

	car, err := h.services.Car.CreateCar(c.Request.Context(), &in)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, car)
}

// UpdateCar handles PUT /api/admin/cars/:id
func (h *AdminHandler) UpdateCar(c *gin.Context) {
	var update models.CarUpdate
	if err := c.ShouldBindJSON(&update); err != nil {
		respondError(c, errBadBody)
		return
	}

	car, err := h.services.Car.UpdateCar(c.Request.Context(), c.Param("id"), &update)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, car)
}

// DeleteCar handles DELETE /api/admin/cars/:id
func (h *AdminHandler) DeleteCar(c *gin.Context) {
	if err := h.services.Car.DeleteCar(c.Request.Context(), c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Car deleted successfully"})
}

// Stats handles GET /api/admin/stats
func (h *AdminHandler) Stats(c *gin.Context) {
	stats, err := h.services.Stats.GetStats(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

// UploadImage handles POST /api/admin/upload-image
func (h *AdminHandler) UploadImage(c *gin.Context) {
	if h.images == nil {
		respondError(c, apperrors.WithMessage(apperrors.ErrInternal, "image uploads are not configured"))
		return
	}

	maxSize := h.cfg.Storage.MaxImageSize
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxSize+1024*1024)

	file, header, err := c.Request.FormFile("file")
	if err != nil {
		respondError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, "file is required"))
		return
	}
	defer file.Close()

	if header.Size > maxSize {
		respondError(c, apperrors.WithMessage(apperrors.ErrInvalidInput,
			"image too large, max size is %d MB", maxSize/(1024*1024)))
		return
	}

	url, err := h.images.Upload(c.Request.Context(), file, header.Header.Get("Content-Type"))
	if err != nil {
		h.log.Warn().Err(err).Str("file", header.Filename).Msg("Image upload failed")
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"url": url})
}
