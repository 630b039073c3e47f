package services

import (
	"context"
	"fmt"
	"time"

	"cleancity-backend/internal/apperr"
	"cleancity-backend/internal/models"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

const minPasswordLen = 6

// UserStore is the user persistence the auth service depends on.
type UserStore interface {
	Create(ctx context.Context, user *models.User) error
	GetByID(ctx context.Context, id string) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	UpdateProfile(ctx context.Context, userID string, fullName, avatar *string) (*models.User, error)
	UpdatePasswordHash(ctx context.Context, userID, passwordHash string) error
}

// Identity is the claim set carried by a session token.
type Identity struct {
	UserID string
	Email  string
}

// AuthService handles signup, login, profiles and session tokens
type AuthService struct {
	users      UserStore
	jwtSecret  string
	expiryDays int
}

// NewAuthService creates a new auth service
func NewAuthService(users UserStore, jwtSecret string, expiryDays int) *AuthService {
	if expiryDays <= 0 {
		expiryDays = 7
	}
	return &AuthService{
		users:      users,
		jwtSecret:  jwtSecret,
		expiryDays: expiryDays,
	}
}

// AuthResult bundles a profile with a fresh token.
type AuthResult struct {
	User  *models.Profile `json:"user"`
	Token string          `json:"token"`
}

// Signup registers a new user and issues a token.
func (s *AuthService) Signup(ctx context.Context, fullName, email, password string) (*AuthResult, error) {
	if len(password) < minPasswordLen {
		return nil, apperr.InvalidInput("Password must be at least 6 characters")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, apperr.Internal("failed to hash password", err)
	}

	now := time.Now()
	user := &models.User{
		ID:           uuid.New().String(),
		Email:        email,
		FullName:     fullName,
		PasswordHash: string(hash),
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	// The store's unique constraint on email is authoritative; a pre-check
	// would only race.
	if err := s.users.Create(ctx, user); err != nil {
		return nil, err
	}

	token, err := s.GenerateJWT(user.ID, user.Email)
	if err != nil {
		return nil, err
	}

	return &AuthResult{User: user.Profile(), Token: token}, nil
}

// Login verifies credentials and issues a fresh token. Unknown email and
// wrong password produce the identical error so the distinction cannot
// leak.
func (s *AuthService) Login(ctx context.Context, email, password string) (*AuthResult, error) {
	invalid := apperr.Unauthenticated("Invalid email or password")

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if apperr.KindOf(err) == apperr.KindNotFound {
			return nil, invalid
		}
		return nil, err
	}

	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
		return nil, invalid
	}

	token, err := s.GenerateJWT(user.ID, user.Email)
	if err != nil {
		return nil, err
	}

	return &AuthResult{User: user.Profile(), Token: token}, nil
}

// GetProfile returns the public view of a user.
func (s *AuthService) GetProfile(ctx context.Context, userID string) (*models.Profile, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	return user.Profile(), nil
}

// UpdateProfile changes fullName and/or avatar; nil fields are unchanged.
func (s *AuthService) UpdateProfile(ctx context.Context, userID string, fullName, avatar *string) (*models.Profile, error) {
	user, err := s.users.UpdateProfile(ctx, userID, fullName, avatar)
	if err != nil {
		return nil, err
	}
	return user.Profile(), nil
}

// ChangePassword replaces the stored hash after verifying the old password.
func (s *AuthService) ChangePassword(ctx context.Context, userID, oldPassword, newPassword string) error {
	if len(newPassword) < minPasswordLen {
		return apperr.InvalidInput("Password must be at least 6 characters")
	}

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return err
	}

	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(oldPassword)) != nil {
		return apperr.Unauthenticated("Invalid password")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return apperr.Internal("failed to hash password", err)
	}

	return s.users.UpdatePasswordHash(ctx, userID, string(hash))
}

// GenerateJWT signs a token embedding the user's identity.
func (s *AuthService) GenerateJWT(userID, email string) (string, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"user_id": userID,
		"email":   email,
		"iat":     now.Unix(),
		"exp":     now.AddDate(0, 0, s.expiryDays).Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString([]byte(s.jwtSecret))
	if err != nil {
		return "", apperr.Internal("failed to sign token", err)
	}

	return tokenString, nil
}

// ValidateJWT verifies signature and expiry and returns the embedded
// identity. Any malformed, unsigned or expired token is an error, never a
// panic.
func (s *AuthService) ValidateJWT(tokenString string) (*Identity, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(s.jwtSecret), nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to parse token: %w", err)
	}
	if !token.Valid {
		return nil, fmt.Errorf("invalid token")
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, fmt.Errorf("invalid token claims")
	}

	userID, ok := claims["user_id"].(string)
	if !ok {
		return nil, fmt.Errorf("user_id not found in token")
	}
	email, _ := claims["email"].(string)

	return &Identity{UserID: userID, Email: email}, nil
}
