package auth

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/sahilkhatri/pharmakart-backend/internal/users"
	pkgAuth "github.com/sahilkhatri/pharmakart-backend/pkg/auth"
	"github.com/sahilkhatri/pharmakart-backend/pkg/config"
	"github.com/sahilkhatri/pharmakart-backend/pkg/db/models"
	"github.com/sahilkhatri/pharmakart-backend/pkg/enums"
	pkgerrors "github.com/sahilkhatri/pharmakart-backend/pkg/errors"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := "file:auth_" + uuid.NewString() + "?mode=memory&cache=shared"
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: gormlogger.Default.LogMode(gormlogger.Silent)})
	require.NoError(t, err)
	require.NoError(t, conn.AutoMigrate(&models.User{}, &models.Pharmacy{}))
	return conn
}

type dbTxRunner struct {
	db *gorm.DB
}

func (r dbTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return r.db.WithContext(ctx).Transaction(fn)
}

type stubLimiter struct {
	allow bool
	calls int
}

func (s *stubLimiter) FixedWindowAllow(_ context.Context, _ string, _ int64, _ time.Duration) (bool, int64, error) {
	s.calls++
	return s.allow, 1, nil
}

func testConfigs() (config.JWTConfig, config.PasswordConfig) {
	jwtCfg := config.JWTConfig{Secret: "test-secret", Issuer: "pharmakart-test", ExpirationMinutes: 60}
	passCfg := config.PasswordConfig{ArgonMemoryKB: 8, ArgonTime: 1, ArgonParallelism: 1, ArgonSaltLen: 8, ArgonKeyLen: 16}
	return jwtCfg, passCfg
}

func newTestService(t *testing.T, conn *gorm.DB, limiter rateLimiter) *Service {
	t.Helper()
	jwtCfg, passCfg := testConfigs()
	svc, err := NewService(users.NewRepository(conn), dbTxRunner{db: conn}, limiter, jwtCfg, passCfg)
	require.NoError(t, err)
	return svc
}

func strPtr(s string) *string { return &s }

func TestRegisterCustomerAndLogin(t *testing.T) {
	conn := newTestDB(t)
	svc := newTestService(t, conn, nil)
	ctx := context.Background()

	session, err := svc.Register(ctx, RegisterInput{
		Email:    "Asha@Example.com",
		Password: "s3cret-password",
		FullName: "Asha Verma",
		Role:     enums.UserRoleCustomer,
		Address:  strPtr("12 MG Road, Pune"),
	})
	require.NoError(t, err)
	require.NotEmpty(t, session.Token)
	assert.Equal(t, enums.UserRoleCustomer, session.Role)
	assert.Nil(t, session.PharmacyID)

	jwtCfg, _ := testConfigs()
	claims, err := pkgAuth.ParseAccessToken(jwtCfg, session.Token)
	require.NoError(t, err)
	assert.Equal(t, session.UserID, claims.UserID)
	assert.Equal(t, enums.UserRoleCustomer, claims.Role)

	var stored models.User
	require.NoError(t, conn.First(&stored, "id = ?", session.UserID).Error)
	assert.Equal(t, "asha@example.com", stored.Email)
	assert.NotEqual(t, "s3cret-password", stored.PasswordHash)

	login, err := svc.Login(ctx, LoginInput{Email: "asha@example.com", Password: "s3cret-password"})
	require.NoError(t, err)
	assert.Equal(t, session.UserID, login.UserID)
}

func TestRegisterPharmacyCreatesStorefront(t *testing.T) {
	conn := newTestDB(t)
	svc := newTestService(t, conn, nil)
	ctx := context.Background()

	session, err := svc.Register(ctx, RegisterInput{
		Email:    "meds@chemist.in",
		Password: "s3cret-password",
		FullName: "Ravi Gupta",
		Role:     enums.UserRolePharmacy,
		Pharmacy: &PharmacyDetails{
			Name:          "City Chemist",
			LicenseNumber: "MH-12345",
			Address:       "4 FC Road, Pune",
		},
	})
	require.NoError(t, err)
	require.NotNil(t, session.PharmacyID)

	var pharmacy models.Pharmacy
	require.NoError(t, conn.First(&pharmacy, "id = ?", *session.PharmacyID).Error)
	assert.Equal(t, session.UserID, pharmacy.OwnerUserID)
	assert.Equal(t, "City Chemist", pharmacy.Name)

	jwtCfg, _ := testConfigs()
	claims, err := pkgAuth.ParseAccessToken(jwtCfg, session.Token)
	require.NoError(t, err)
	require.NotNil(t, claims.PharmacyID)
	assert.Equal(t, *session.PharmacyID, *claims.PharmacyID)

	login, err := svc.Login(ctx, LoginInput{Email: "meds@chemist.in", Password: "s3cret-password"})
	require.NoError(t, err)
	require.NotNil(t, login.PharmacyID)
	assert.Equal(t, *session.PharmacyID, *login.PharmacyID)
}

func TestRegisterValidation(t *testing.T) {
	conn := newTestDB(t)
	svc := newTestService(t, conn, nil)
	ctx := context.Background()

	cases := []struct {
		name  string
		input RegisterInput
	}{
		{"bad email", RegisterInput{Email: "nope", Password: "s3cret-password", FullName: "A", Role: enums.UserRoleCustomer}},
		{"short password", RegisterInput{Email: "a@b.com", Password: "short", FullName: "A", Role: enums.UserRoleCustomer}},
		{"admin role", RegisterInput{Email: "a@b.com", Password: "s3cret-password", FullName: "A", Role: enums.UserRoleAdmin}},
		{"pharmacy missing details", RegisterInput{Email: "a@b.com", Password: "s3cret-password", FullName: "A", Role: enums.UserRolePharmacy}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.Register(ctx, tc.input)
			require.Error(t, err)
			typed := pkgerrors.As(err)
			require.NotNil(t, typed)
			assert.Equal(t, pkgerrors.CodeValidation, typed.Code())
		})
	}
}

func TestRegisterRejectsDuplicateEmail(t *testing.T) {
	conn := newTestDB(t)
	svc := newTestService(t, conn, nil)
	ctx := context.Background()

	input := RegisterInput{Email: "dup@example.com", Password: "s3cret-password", FullName: "A", Role: enums.UserRoleCustomer}
	_, err := svc.Register(ctx, input)
	require.NoError(t, err)

	_, err = svc.Register(ctx, input)
	require.Error(t, err)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeConflict, typed.Code())
}

func TestLoginRejectsWrongPassword(t *testing.T) {
	conn := newTestDB(t)
	svc := newTestService(t, conn, nil)
	ctx := context.Background()

	_, err := svc.Register(ctx, RegisterInput{Email: "a@b.com", Password: "s3cret-password", FullName: "A", Role: enums.UserRoleCustomer})
	require.NoError(t, err)

	_, err = svc.Login(ctx, LoginInput{Email: "a@b.com", Password: "wrong-password"})
	require.Error(t, err)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeUnauthorized, typed.Code())

	_, err = svc.Login(ctx, LoginInput{Email: "unknown@b.com", Password: "s3cret-password"})
	require.Error(t, err)
	typed = pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeUnauthorized, typed.Code())
}

func TestLoginRateLimited(t *testing.T) {
	conn := newTestDB(t)
	limiter := &stubLimiter{allow: false}
	svc := newTestService(t, conn, limiter)
	ctx := context.Background()

	_, err := svc.Login(ctx, LoginInput{Email: "a@b.com", Password: "whatever-pass"})
	require.Error(t, err)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeRateLimit, typed.Code())
	assert.Equal(t, 1, limiter.calls)
}
