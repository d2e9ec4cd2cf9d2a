package auth

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/sahilkhatri/pharmakart-backend/internal/users"
	pkgAuth "github.com/sahilkhatri/pharmakart-backend/pkg/auth"
	"github.com/sahilkhatri/pharmakart-backend/pkg/config"
	"github.com/sahilkhatri/pharmakart-backend/pkg/db/models"
	"github.com/sahilkhatri/pharmakart-backend/pkg/enums"
	pkgerrors "github.com/sahilkhatri/pharmakart-backend/pkg/errors"
	"github.com/sahilkhatri/pharmakart-backend/pkg/security"
)

const invalidCredentialsMessage = "invalid credentials"

const (
	loginRateLimit  = 10
	loginRateWindow = 15 * time.Minute
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type rateLimiter interface {
	FixedWindowAllow(ctx context.Context, scope string, limit int64, window time.Duration) (bool, int64, error)
}

// Service handles account registration and credential exchange.
type Service struct {
	users   *users.Repository
	tx      txRunner
	limiter rateLimiter
	jwtCfg  config.JWTConfig
	passCfg config.PasswordConfig
}

// NewService constructs the auth service. The rate limiter may be nil, in
// which case login throttling is disabled.
func NewService(users *users.Repository, tx txRunner, limiter rateLimiter, jwtCfg config.JWTConfig, passCfg config.PasswordConfig) (*Service, error) {
	if users == nil {
		return nil, fmt.Errorf("user store is required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner is required")
	}
	return &Service{users: users, tx: tx, limiter: limiter, jwtCfg: jwtCfg, passCfg: passCfg}, nil
}

// PharmacyDetails carries the storefront fields required when registering a
// pharmacy-role account.
type PharmacyDetails struct {
	Name          string  `json:"name"`
	LicenseNumber string  `json:"license_number"`
	Address       string  `json:"address"`
	Phone         *string `json:"phone,omitempty"`
}

// RegisterInput is the payload for account creation.
type RegisterInput struct {
	Email    string           `json:"email"`
	Password string           `json:"password"`
	FullName string           `json:"full_name"`
	Phone    *string          `json:"phone,omitempty"`
	Address  *string          `json:"address,omitempty"`
	Role     enums.UserRole   `json:"role"`
	Pharmacy *PharmacyDetails `json:"pharmacy,omitempty"`
}

// LoginInput carries the credentials presented at login.
type LoginInput struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Session is the authenticated result returned by Register and Login.
type Session struct {
	Token      string         `json:"token"`
	UserID     uuid.UUID      `json:"user_id"`
	Role       enums.UserRole `json:"role"`
	FullName   string         `json:"full_name"`
	PharmacyID *uuid.UUID     `json:"pharmacy_id,omitempty"`
}

// Register creates the account (and the pharmacy storefront for
// pharmacy-role signups) and returns a signed session.
func (s *Service) Register(ctx context.Context, input RegisterInput) (*Session, error) {
	email := strings.ToLower(strings.TrimSpace(input.Email))
	if email == "" || !strings.Contains(email, "@") {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "a valid email is required")
	}
	if len(input.Password) < 8 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "password must be at least 8 characters")
	}
	if strings.TrimSpace(input.FullName) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "full name is required")
	}
	if !input.Role.IsValid() || input.Role == enums.UserRoleAdmin {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "role must be customer, pharmacy, or delivery_partner")
	}
	if input.Role == enums.UserRolePharmacy {
		if input.Pharmacy == nil {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "pharmacy details are required for pharmacy accounts")
		}
		if strings.TrimSpace(input.Pharmacy.Name) == "" ||
			strings.TrimSpace(input.Pharmacy.LicenseNumber) == "" ||
			strings.TrimSpace(input.Pharmacy.Address) == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "pharmacy name, license number, and address are required")
		}
	}

	if existing, err := s.users.FindByEmail(ctx, email); err != nil && err != gorm.ErrRecordNotFound {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "look up email")
	} else if existing != nil {
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "email is already registered")
	}

	hash, err := security.HashPassword(input.Password, s.passCfg)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "hash password")
	}

	user := &models.User{
		ID:           uuid.New(),
		Email:        email,
		PasswordHash: hash,
		Phone:        input.Phone,
		FullName:     strings.TrimSpace(input.FullName),
		Role:         input.Role,
		Address:      input.Address,
	}

	var pharmacyID *uuid.UUID
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.users.WithTx(tx)
		if err := repo.Create(ctx, user); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create user")
		}
		if input.Role == enums.UserRolePharmacy {
			pharmacy := &models.Pharmacy{
				ID:            uuid.New(),
				OwnerUserID:   user.ID,
				Name:          strings.TrimSpace(input.Pharmacy.Name),
				LicenseNumber: strings.TrimSpace(input.Pharmacy.LicenseNumber),
				Address:       strings.TrimSpace(input.Pharmacy.Address),
				Phone:         input.Pharmacy.Phone,
			}
			if err := repo.CreatePharmacy(ctx, pharmacy); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create pharmacy")
			}
			pharmacyID = &pharmacy.ID
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return s.mintSession(user, pharmacyID)
}

// Login verifies credentials and returns a signed session. Attempts are
// throttled per email to slow brute forcing.
func (s *Service) Login(ctx context.Context, input LoginInput) (*Session, error) {
	email := strings.ToLower(strings.TrimSpace(input.Email))
	if email == "" || input.Password == "" {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, invalidCredentialsMessage)
	}

	if s.limiter != nil {
		allowed, _, err := s.limiter.FixedWindowAllow(ctx, "login:"+email, loginRateLimit, loginRateWindow)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check login rate")
		}
		if !allowed {
			return nil, pkgerrors.New(pkgerrors.CodeRateLimit, "too many login attempts, try again later")
		}
	}

	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, invalidCredentialsMessage)
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "look up user")
	}

	ok, err := security.VerifyPassword(input.Password, user.PasswordHash)
	if err != nil || !ok {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, invalidCredentialsMessage)
	}

	var pharmacyID *uuid.UUID
	if user.Role == enums.UserRolePharmacy {
		pharmacy, err := s.users.FindPharmacyByOwner(ctx, user.ID)
		if err != nil {
			if err == gorm.ErrRecordNotFound {
				return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, invalidCredentialsMessage)
			}
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "look up pharmacy")
		}
		pharmacyID = &pharmacy.ID
	}

	return s.mintSession(user, pharmacyID)
}

func (s *Service) mintSession(user *models.User, pharmacyID *uuid.UUID) (*Session, error) {
	token, err := pkgAuth.MintAccessToken(s.jwtCfg, time.Now().UTC(), pkgAuth.AccessTokenPayload{
		UserID:     user.ID,
		Role:       user.Role,
		PharmacyID: pharmacyID,
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "mint token")
	}
	return &Session{
		Token:      token,
		UserID:     user.ID,
		Role:       user.Role,
		FullName:   user.FullName,
		PharmacyID: pharmacyID,
	}, nil
}
