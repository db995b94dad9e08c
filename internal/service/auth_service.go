package service

import (
	"context"
	"errors"
	"time"

	"github.com/car-storefront-api/internal/apperrors"
	"github.com/car-storefront-api/internal/config"
	"github.com/car-storefront-api/internal/models"
	"github.com/car-storefront-api/internal/repository"
	"github.com/car-storefront-api/internal/validation"
	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"
)

var (
	errBadCredentials = apperrors.WithMessage(apperrors.ErrUnauthorized, "Invalid username or password")
	errBadToken       = apperrors.WithMessage(apperrors.ErrUnauthorized, "Invalid or expired token")
)

// Claims are carried in admin bearer tokens. Subject is the admin ID.
type Claims struct {
	Username string `json:"username"`
	jwt.RegisteredClaims
}

// authService is the concrete implementation of AuthService
type authService struct {
	admins    repository.AdminRepository
	cfg       config.AuthConfig
	validator *validation.Validator
	log       zerolog.Logger
	now       func() time.Time
}

func newAuthService(admins repository.AdminRepository, cfg config.AuthConfig, log zerolog.Logger) *authService {
	return &authService{
		admins:    admins,
		cfg:       cfg,
		validator: validation.NewValidator(),
		log:       log.With().Str("service", "auth").Logger(),
		now:       time.Now,
	}
}

// EnsureDefaultAdmin creates the bootstrap admin when no admin exists
func (s *authService) EnsureDefaultAdmin(ctx context.Context) error {
	count, err := s.admins.Count(ctx)
	if err != nil {
		return apperrors.Wrap(err, apperrors.ErrDatabase)
	}
	if count > 0 {
		return nil
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(s.cfg.DefaultAdminPassword), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	admin := &models.Admin{
		ID:           uuid.New().String(),
		Username:     s.cfg.DefaultAdminUsername,
		PasswordHash: string(hash),
		CreatedAt:    s.now().UTC(),
	}
	if err := s.admins.Create(ctx, admin); err != nil {
		return apperrors.Wrap(err, apperrors.ErrDatabase)
	}

	s.log.Warn().Str("username", admin.Username).Msg("Created default admin, change its password")
	return nil
}

// Login checks credentials and issues a signed token
func (s *authService) Login(ctx context.Context, req *models.LoginRequest) (*models.LoginResponse, error) {
	if err := validation.AsError(s.validator.ValidateLogin(req)); err != nil {
		return nil, err
	}

	admin, err := s.admins.GetByUsername(ctx, req.Username)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrDatabase)
	}
	if admin == nil || bcrypt.CompareHashAndPassword([]byte(admin.PasswordHash), []byte(req.Password)) != nil {
		s.log.Warn().Str("username", req.Username).Msg("Failed login attempt")
		return nil, errBadCredentials
	}

	now := s.now()
	claims := Claims{
		Username: admin.Username,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   admin.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.cfg.TokenTTL)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(s.cfg.JWTSecret))
	if err != nil {
		return nil, err
	}

	return &models.LoginResponse{Token: token, Username: admin.Username}, nil
}

// ParseToken verifies a bearer token and returns its claims
func (s *authService) ParseToken(token string) (*Claims, error) {
	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return []byte(s.cfg.JWTSecret), nil
	})
	if err != nil || !parsed.Valid || claims.Subject == "" {
		return nil, errBadToken
	}
	return claims, nil
}

// ChangePassword replaces the admin's password after checking the current one
func (s *authService) ChangePassword(ctx context.Context, adminID string, req *models.ChangePasswordRequest) error {
	if err := validation.AsError(s.validator.ValidatePasswordChange(req)); err != nil {
		return err
	}

	admin, err := s.admins.GetByID(ctx, adminID)
	if err != nil {
		return apperrors.Wrap(err, apperrors.ErrDatabase)
	}
	if admin == nil {
		return errBadToken
	}
	if bcrypt.CompareHashAndPassword([]byte(admin.PasswordHash), []byte(req.CurrentPassword)) != nil {
		return apperrors.WithMessage(apperrors.ErrInvalidInput, "Current password is incorrect")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.NewPassword), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	if err := s.admins.UpdatePassword(ctx, admin.ID, string(hash)); err != nil {
		return apperrors.Wrap(err, apperrors.ErrDatabase)
	}

	s.log.Info().Str("username", admin.Username).Msg("Admin password changed")
	return nil
}
