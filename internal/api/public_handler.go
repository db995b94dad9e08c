package api

import (
	"net/http"

	"github.com/car-storefront-api/internal/importer"
	"github.com/car-storefront-api/internal/models"
	"github.com/car-storefront-api/internal/service"
	"github.com/car-storefront-api/internal/settings"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// PublicHandler serves the storefront endpoints
type PublicHandler struct {
	services *service.Services
	theme    *settings.CSSTheme
	log      zerolog.Logger
}

// NewPublicHandler creates a new PublicHandler
func NewPublicHandler(services *service.Services, theme *settings.CSSTheme, log zerolog.Logger) *PublicHandler {
	return &PublicHandler{
		services: services,
		theme:    theme,
		log:      log.With().Str("handler", "public").Logger(),
	}
}

// GetSettings handles GET /api/settings
func (h *PublicHandler) GetSettings(c *gin.Context) {
	c.JSON(http.StatusOK, h.services.Settings.Current(c.Request.Context()))
}

// StoreInfo handles GET /api/store-info
func (h *PublicHandler) StoreInfo(c *gin.Context) {
	c.JSON(http.StatusOK, h.services.Settings.StoreInfo(c.Request.Context()))
}

// ListCars handles GET /api/cars?status=
func (h *PublicHandler) ListCars(c *gin.Context) {
	h.listCars(c, models.CarFilter{Status: models.CarStatus(c.Query("status"))})
}

// ListFeatured handles GET /api/cars/featured
func (h *PublicHandler) ListFeatured(c *gin.Context) {
	h.listCars(c, models.CarFilter{Status: models.CarStatusAvailable, FeaturedOnly: true})
}

func (h *PublicHandler) listCars(c *gin.Context, filter models.CarFilter) {
	cars, err := h.services.Car.ListPublic(c.Request.Context(), filter)
	if err != nil {
		h.log.Error().Err(err).Str("filter", filter.CacheKey()).Msg("Failed to list cars")
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, cars)
}

// GetCar handles GET /api/cars/:id
func (h *PublicHandler) GetCar(c *gin.Context) {
	car, err := h.services.Car.GetCar(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, car.Public())
}

// ContactLink handles GET /api/cars/:id/contact
func (h *PublicHandler) ContactLink(c *gin.Context) {
	link, err := h.services.Settings.ContactLink(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, link)
}

// ListSellers handles GET /api/sellers
func (h *PublicHandler) ListSellers(c *gin.Context) {
	sellers, err := h.services.Seller.ListSellers(c.Request.Context())
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to list sellers")
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, sellers)
}

// ThemeCSS handles GET /theme.css
func (h *PublicHandler) ThemeCSS(c *gin.Context) {
	c.Header("Cache-Control", "no-cache")
	c.Data(http.StatusOK, "text/css; charset=utf-8", []byte(h.theme.CSS()))
}

// Template handles GET /template_veiculos.csv
func (h *PublicHandler) Template(c *gin.Context) {
	c.Header("Content-Disposition", "attachment; filename="+importer.TemplateFileName)
	c.Data(http.StatusOK, "text/csv; charset=utf-8", importer.Template)
}
