package storage

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/jpeg"
	_ "image/png"
	"io"

	"github.com/car-storefront-api/internal/apperrors"
	"github.com/car-storefront-api/internal/config"
	"github.com/google/uuid"
	"github.com/nfnt/resize"
	"github.com/rs/zerolog"
)

const jpegQuality = 85

// AllowedContentTypes lists the image types accepted for upload
var AllowedContentTypes = map[string]bool{
	"image/jpeg": true,
	"image/jpg":  true,
	"image/png":  true,
}

// ImageStore persists an encoded JPEG and returns the URL it is served from
type ImageStore interface {
	Save(ctx context.Context, name string, data []byte) (string, error)
}

// Images decodes, downsizes and stores uploaded car pictures
type Images struct {
	store    ImageStore
	maxWidth uint
	log      zerolog.Logger
}

// NewImages creates an uploader writing to store
func NewImages(store ImageStore, maxWidth uint, log zerolog.Logger) *Images {
	return &Images{
		store:    store,
		maxWidth: maxWidth,
		log:      log.With().Str("component", "image_storage").Logger(),
	}
}

// Upload stores r as a JPEG no wider than the configured maximum and
// returns its URL. Local URLs are relative to the backend origin.
func (i *Images) Upload(ctx context.Context, r io.Reader, contentType string) (string, error) {
	if !AllowedContentTypes[contentType] {
		return "", apperrors.WithMessage(apperrors.ErrInvalidInput, "unsupported image type %q, use JPEG or PNG", contentType)
	}

	img, format, err := image.Decode(r)
	if err != nil {
		return "", apperrors.Wrap(err, apperrors.ErrInvalidInput, "The file is not a valid image.")
	}

	img = Fit(img, i.maxWidth)

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: jpegQuality}); err != nil {
		return "", fmt.Errorf("failed to encode image: %w", err)
	}

	name := uuid.New().String()
	url, err := i.store.Save(ctx, name, buf.Bytes())
	if err != nil {
		return "", err
	}

	i.log.Info().
		Str("url", url).
		Str("source_format", format).
		Int("bytes", buf.Len()).
		Msg("Image stored")

	return url, nil
}

// Fit scales img down to maxWidth keeping the aspect ratio. Smaller images
// are returned unchanged.
func Fit(img image.Image, maxWidth uint) image.Image {
	if maxWidth == 0 || uint(img.Bounds().Dx()) <= maxWidth {
		return img
	}
	return resize.Resize(maxWidth, 0, img, resize.Lanczos3)
}

// New returns the S3 store when a bucket is configured, the local store otherwise
func New(ctx context.Context, cfg config.StorageConfig) (ImageStore, error) {
	if cfg.UsesS3() {
		return NewS3Store(ctx, cfg)
	}
	return NewLocalStore(cfg.UploadDir)
}
