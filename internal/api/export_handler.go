package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/car-storefront-api/internal/apperrors"
	"github.com/car-storefront-api/internal/importer"
	"github.com/car-storefront-api/internal/models"
	"github.com/car-storefront-api/internal/service"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// ExportHandler streams the inventory out of the backend
type ExportHandler struct {
	services *service.Services
	log      zerolog.Logger
}

// NewExportHandler creates a new ExportHandler
func NewExportHandler(services *service.Services, log zerolog.Logger) *ExportHandler {
	return &ExportHandler{
		services: services,
		log:      log.With().Str("handler", "export").Logger(),
	}
}

// ExportCars handles GET /api/admin/cars/export?format=csv|ndjson
// CSV uses the import template layout; NDJSON writes one car with its seller per line.
func (h *ExportHandler) ExportCars(c *gin.Context) {
	format := c.DefaultQuery("format", "csv")
	if format != "csv" && format != "ndjson" {
		respondError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, "format must be one of: csv, ndjson"))
		return
	}

	cars, err := h.services.Car.ListAdmin(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}

	h.log.Info().Str("format", format).Int("cars", len(cars)).Msg("Starting inventory export")

	stamp := time.Now().Format("20060102")
	switch format {
	case "csv":
		plain := make([]*models.Car, 0, len(cars))
		for _, car := range cars {
			plain = append(plain, &car.Car)
		}
		c.Header("Content-Type", "text/csv; charset=utf-8")
		c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=estoque_%s.csv", stamp))
		c.Status(http.StatusOK)
		err = importer.WriteCSV(c.Writer, plain)
	case "ndjson":
		c.Header("Content-Type", "application/x-ndjson")
		c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=estoque_%s.ndjson", stamp))
		c.Status(http.StatusOK)
		enc := json.NewEncoder(c.Writer)
		for _, car := range cars {
			if err = enc.Encode(car); err != nil {
				break
			}
		}
	}

	if err != nil {
		// Can't return error JSON after streaming has started
		h.log.Error().Err(err).Str("format", format).Msg("Export failed")
	}
}
