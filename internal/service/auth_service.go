package service

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/unicampus/registrar-api/internal/models"
	appErrors "github.com/unicampus/registrar-api/pkg/errors"
)

const studentNumberPrefix = "STU"

type accountDirectory interface {
	Add(user *models.User) bool
	Get(id string) *models.User
	GetByUsername(username string) *models.User
	GetByEmail(email string) *models.User
	TouchLogin(id string) bool
}

type accountSnapshots interface {
	RequestUsers()
}

// AuthConfig defines configuration for authentication flows.
type AuthConfig struct {
	Secret            string
	AccessTokenExpiry time.Duration
	RefreshExpiry     time.Duration
	Issuer            string
}

type refreshRecord struct {
	userID    string
	expiresAt time.Time
}

// AuthService provides account registration and token issuing. Refresh tokens
// are held in memory and rotate on every use; a restart invalidates them,
// which simply forces a fresh login.
type AuthService struct {
	accounts  accountDirectory
	snapshots accountSnapshots
	validator *validator.Validate
	logger    *zap.Logger
	config    AuthConfig

	mu      sync.Mutex
	refresh map[string]refreshRecord
}

// NewAuthService constructs an AuthService instance.
func NewAuthService(accounts accountDirectory, snapshots accountSnapshots, validate *validator.Validate, logger *zap.Logger, config AuthConfig) *AuthService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if config.AccessTokenExpiry <= 0 {
		config.AccessTokenExpiry = 24 * time.Hour
	}
	if config.RefreshExpiry <= 0 {
		config.RefreshExpiry = 7 * 24 * time.Hour
	}
	return &AuthService{
		accounts:  accounts,
		snapshots: snapshots,
		validator: validate,
		logger:    logger,
		config:    config,
		refresh:   make(map[string]refreshRecord),
	}
}

// Register creates an account. New accounts default to the student role;
// students receive a generated student number.
func (s *AuthService) Register(ctx context.Context, req models.RegisterRequest) (*models.User, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid registration payload")
	}
	if s.accounts.GetByUsername(req.Username) != nil {
		return nil, appErrors.Clone(appErrors.ErrConflict, "username already taken")
	}
	if s.accounts.GetByEmail(req.Email) != nil {
		return nil, appErrors.Clone(appErrors.ErrConflict, "email already registered")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to hash password")
	}

	role := models.UserRole(req.Role)
	if role == "" {
		role = models.RoleStudent
	}

	user := &models.User{
		ID:           uuid.NewString(),
		Username:     req.Username,
		Email:        req.Email,
		PasswordHash: string(hash),
		Role:         role,
		Active:       true,
		CreatedAt:    time.Now().UTC(),
	}
	switch role {
	case models.RoleStudent:
		user.Student = &models.StudentProfile{
			StudentNumber: newStudentNumber(),
			Major:         req.Major,
		}
	case models.RoleAdministrator:
		user.Admin = &models.AdminProfile{Level: "standard"}
	}

	if !s.accounts.Add(user) {
		return nil, appErrors.Clone(appErrors.ErrConflict, "account already exists")
	}
	if s.snapshots != nil {
		s.snapshots.RequestUsers()
	}
	s.logger.Info("account registered",
		zap.String("user_id", user.ID),
		zap.String("role", string(user.Role)))
	return user.Clone(), nil
}

// Login authenticates a user and returns issued tokens.
func (s *AuthService) Login(ctx context.Context, req models.LoginRequest) (*models.LoginResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid login payload")
	}

	user := s.accounts.GetByUsername(req.Username)
	if user == nil {
		return nil, appErrors.Clone(appErrors.ErrInvalidCredentials, "")
	}
	if !user.Active {
		return nil, appErrors.Clone(appErrors.ErrInactiveAccount, "")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		return nil, appErrors.Clone(appErrors.ErrInvalidCredentials, "")
	}

	if s.accounts.TouchLogin(user.ID) && s.snapshots != nil {
		s.snapshots.RequestUsers()
	}

	return s.issueTokens(user)
}

// Refresh exchanges a refresh token for a new token pair. The used token is
// consumed whether or not the exchange succeeds.
func (s *AuthService) Refresh(ctx context.Context, req models.RefreshTokenRequest) (*models.LoginResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid refresh payload")
	}

	s.mu.Lock()
	rec, ok := s.refresh[req.RefreshToken]
	delete(s.refresh, req.RefreshToken)
	s.mu.Unlock()

	if !ok || time.Now().UTC().After(rec.expiresAt) {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "refresh token invalid or expired")
	}

	user := s.accounts.Get(rec.userID)
	if user == nil || !user.Active {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "account no longer active")
	}

	return s.issueTokens(user)
}

// Logout revokes a refresh token.
func (s *AuthService) Logout(_ context.Context, refreshToken string) {
	s.mu.Lock()
	delete(s.refresh, refreshToken)
	s.mu.Unlock()
}

// ValidateToken parses and verifies an access token.
func (s *AuthService) ValidateToken(tokenString string) (*models.JWTClaims, error) {
	claims := &models.JWTClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, appErrors.Clone(appErrors.ErrUnauthorized, "unexpected signing method")
		}
		return []byte(s.config.Secret), nil
	})
	if err != nil || !token.Valid {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "invalid or expired token")
	}
	return claims, nil
}

func (s *AuthService) issueTokens(user *models.User) (*models.LoginResponse, error) {
	accessToken, err := s.generateAccessToken(user)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create access token")
	}
	refreshToken, err := generateRefreshTokenString()
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create refresh token")
	}

	s.mu.Lock()
	s.refresh[refreshToken] = refreshRecord{
		userID:    user.ID,
		expiresAt: time.Now().UTC().Add(s.config.RefreshExpiry),
	}
	s.mu.Unlock()

	info := models.UserInfo{
		ID:       user.ID,
		Username: user.Username,
		Email:    user.Email,
		Role:     user.Role,
	}
	if user.Student != nil {
		info.StudentNumber = user.Student.StudentNumber
	}

	return &models.LoginResponse{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		ExpiresIn:    int64(s.config.AccessTokenExpiry.Seconds()),
		IssuedAt:     time.Now().UTC(),
		User:         info,
	}, nil
}

func (s *AuthService) generateAccessToken(user *models.User) (string, error) {
	now := time.Now().UTC()
	claims := models.JWTClaims{
		UserID:   user.ID,
		Role:     user.Role,
		Username: user.Username,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID,
			Issuer:    s.config.Issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.config.AccessTokenExpiry)),
			ID:        uuid.NewString(),
		},
	}
	if user.Student != nil {
		claims.StudentNumber = user.Student.StudentNumber
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(s.config.Secret))
}

func generateRefreshTokenString() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

func newStudentNumber() string {
	return studentNumberPrefix + strings.ToUpper(uuid.NewString()[:8])
}
