package api

import (
	"encoding/csv"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strconv"

	"github.com/car-storefront-api/internal/apperrors"
	"github.com/car-storefront-api/internal/config"
	"github.com/car-storefront-api/internal/importer"
	"github.com/car-storefront-api/internal/models"
	"github.com/car-storefront-api/internal/service"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// ImportHandler handles server-side import run endpoints
type ImportHandler struct {
	services *service.Services
	cfg      *config.Config
	log      zerolog.Logger
}

// NewImportHandler creates a new ImportHandler
func NewImportHandler(services *service.Services, cfg *config.Config, log zerolog.Logger) *ImportHandler {
	return &ImportHandler{
		services: services,
		cfg:      cfg,
		log:      log.With().Str("handler", "import").Logger(),
	}
}

// CreateImport handles POST /api/admin/imports
// Accepts a multipart CSV upload plus seller_id and queues it as a run
func (h *ImportHandler) CreateImport(c *gin.Context) {
	ctx := c.Request.Context()

	// Get idempotency key from header
	idempotencyKey := c.GetHeader("Idempotency-Key")

	// Check for existing run with same idempotency key
	if idempotencyKey != "" {
		existing, err := h.services.Run.GetRunByIdempotencyKey(ctx, idempotencyKey)
		if err != nil {
			h.log.Error().Err(err).Msg("Failed to check idempotency key")
		}
		if existing != nil {
			h.log.Info().Str("run_id", existing.ID).Msg("Returning existing run for idempotency key")
			c.JSON(http.StatusOK, existing)
			return
		}
	}

	sellerID := c.PostForm("seller_id")
	if sellerID == "" {
		respondError(c, importer.ErrNoSeller)
		return
	}

	file, header, err := c.Request.FormFile("file")
	if err != nil {
		respondError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, "file upload is required"))
		return
	}
	defer file.Close()

	if header.Size > h.cfg.Import.MaxUploadSize {
		respondError(c, apperrors.WithMessage(apperrors.ErrInvalidInput,
			"file too large, max size is %d MB", h.cfg.Import.MaxUploadSize/(1024*1024)))
		return
	}
	if err := importer.CheckFileName(header.Filename); err != nil {
		respondError(c, err)
		return
	}

	filePath, err := h.saveUpload(file)
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to save upload")
		respondError(c, apperrors.WithMessage(apperrors.ErrInternal, "failed to save file"))
		return
	}

	req := &models.ImportRequest{
		SellerID:       sellerID,
		FileName:       filepath.Base(header.Filename),
		IdempotencyKey: idempotencyKey,
	}

	run, err := h.services.Import.CreateImportRun(ctx, req, filePath)
	if err != nil {
		_ = os.Remove(filePath)
		respondError(c, err)
		return
	}

	h.log.Info().
		Str("run_id", run.ID).
		Str("file", header.Filename).
		Int64("size_bytes", header.Size).
		Msg("Import run queued")

	c.JSON(http.StatusAccepted, gin.H{
		"run_id":  run.ID,
		"status":  run.Status,
		"message": "Import queued for processing",
	})
}

func (h *ImportHandler) saveUpload(src io.Reader) (string, error) {
	uploadDir := h.cfg.Import.UploadDir
	if err := os.MkdirAll(uploadDir, 0755); err != nil {
		return "", err
	}

	filePath := filepath.Join(uploadDir, "import_"+uuid.New().String()+".csv")
	dst, err := os.Create(filePath)
	if err != nil {
		return "", err
	}
	defer dst.Close()

	if _, err := io.Copy(dst, src); err != nil {
		_ = os.Remove(filePath)
		return "", err
	}
	return filePath, nil
}

// GetImportStatus handles GET /api/admin/imports/:id
func (h *ImportHandler) GetImportStatus(c *gin.Context) {
	run, err := h.services.Run.GetRun(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, run)
}

// GetImportErrors handles GET /api/admin/imports/:id/errors?format=json|csv
func (h *ImportHandler) GetImportErrors(c *gin.Context) {
	runID := c.Param("id")

	rowErrors, err := h.services.Run.GetRunErrors(c.Request.Context(), runID)
	if err != nil {
		respondError(c, err)
		return
	}

	format := c.DefaultQuery("format", "json")
	switch format {
	case "csv":
		c.Header("Content-Type", "text/csv; charset=utf-8")
		c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=errors_%s.csv", runID))
		writer := csv.NewWriter(c.Writer)
		_ = writer.Write([]string{"line", "vehicle", "message"})
		for _, e := range rowErrors {
			_ = writer.Write([]string{strconv.Itoa(e.Line), e.Vehicle, e.Message})
		}
		writer.Flush()
		if err := writer.Error(); err != nil {
			h.log.Error().Err(err).Str("run_id", runID).Msg("Failed to write error report")
		}
	case "json":
		if rowErrors == nil {
			rowErrors = []models.RowError{}
		}
		c.JSON(http.StatusOK, gin.H{
			"run_id":      runID,
			"error_count": len(rowErrors),
			"errors":      rowErrors,
		})
	default:
		respondError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, "format must be one of: json, csv"))
	}
}

// CancelImport handles POST /api/admin/imports/:id/cancel
func (h *ImportHandler) CancelImport(c *gin.Context) {
	run, err := h.services.Run.CancelRun(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusAccepted, run)
}
