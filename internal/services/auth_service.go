package services

import (
	"context"
	cryptorand "crypto/rand"
	"crypto/sha256"
	"database/sql"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/spf13/viper"
	"golang.org/x/crypto/argon2"

	"github.com/truecost/backend/internal/config"
	"github.com/truecost/backend/internal/database"
	"github.com/truecost/backend/internal/models"
)

// AuthService issues short-lived access tokens and rotating refresh
// tokens for the single-owner ledger. Refresh tokens are stored hashed;
// logout blacklists the presented access token in Redis when available.
type AuthService struct {
	db        *sql.DB
	redis     *redis.Client
	validator *ValidationHelper
}

func NewAuthService(db *sql.DB, redisClient *redis.Client) *AuthService {
	config.Init()
	return &AuthService{
		db:        db,
		redis:     redisClient,
		validator: NewValidationHelper(),
	}
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6"`
}

type RefreshRequest struct {
	RefreshToken string `json:"refreshToken" validate:"required"`
}

// Login authenticates by email and password and issues a token pair.
func (s *AuthService) login(input LoginRequest) (*models.AuthTokens, error) {
	email := strings.ToLower(strings.TrimSpace(input.Email))

	var userID, storedHash string
	var isActive bool
	err := s.db.QueryRow(`SELECT id, password_hash, is_active FROM users WHERE email = ?`, email).
		Scan(&userID, &storedHash, &isActive)
	if err == sql.ErrNoRows || (err == nil && !isActive) {
		return nil, models.NewAuthError(models.CodeInvalidCredentials, "invalid email or password")
	}
	if err != nil {
		return nil, err
	}
	if !verifyPassword(input.Password, storedHash) {
		return nil, models.NewAuthError(models.CodeInvalidCredentials, "invalid email or password")
	}

	return s.issueTokens(userID, email)
}

// refresh rotates a refresh token: the presented token is revoked and a
// fresh pair is issued.
func (s *AuthService) refresh(refreshToken string) (*models.AuthTokens, error) {
	tokenHash := hashRefreshToken(refreshToken)
	now := database.NowRFC3339()

	var userID, expiresAt string
	var revokedAt sql.NullString
	err := s.db.QueryRow(`
		SELECT user_id, expires_at, revoked_at FROM user_refresh_tokens WHERE token_hash = ?`,
		tokenHash).Scan(&userID, &expiresAt, &revokedAt)
	if err == sql.ErrNoRows {
		return nil, models.NewAuthError(models.CodeInvalidToken, "invalid refresh token")
	}
	if err != nil {
		return nil, err
	}
	if revokedAt.Valid || expiresAt <= now {
		return nil, models.NewAuthError(models.CodeInvalidToken, "refresh token expired or revoked")
	}

	var email string
	var isActive bool
	err = s.db.QueryRow(`SELECT email, is_active FROM users WHERE id = ?`, userID).Scan(&email, &isActive)
	if err != nil || !isActive {
		return nil, models.NewAuthError(models.CodeInvalidToken, "invalid refresh token")
	}

	if _, err := s.db.Exec(`UPDATE user_refresh_tokens SET revoked_at = ? WHERE token_hash = ?`, now, tokenHash); err != nil {
		return nil, err
	}
	return s.issueTokens(userID, email)
}

func (s *AuthService) issueTokens(userID, email string) (*models.AuthTokens, error) {
	accessToken, err := generateAccessToken(userID, email)
	if err != nil {
		return nil, err
	}

	refreshToken, err := generateRefreshToken()
	if err != nil {
		return nil, err
	}
	expiresAt := time.Now().UTC().Add(config.RefreshTokenTTL()).Truncate(time.Second).Format(time.RFC3339)
	_, err = s.db.Exec(`
		INSERT INTO user_refresh_tokens (id, user_id, token_hash, expires_at, revoked_at, created_at)
		VALUES (?, ?, ?, ?, NULL, ?)`,
		uuid.NewString(), userID, hashRefreshToken(refreshToken), expiresAt, database.NowRFC3339())
	if err != nil {
		return nil, err
	}

	return &models.AuthTokens{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		TokenType:    "Bearer",
		ExpiresIn:    int(config.AccessTokenTTL().Seconds()),
	}, nil
}

// EnsureBootstrapUser seeds the owner account from config when the
// users table is empty. Without a bootstrap.password no user is created
// and the API stays locked.
func (s *AuthService) EnsureBootstrapUser() error {
	var count int
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM users`).Scan(&count); err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	password := viper.GetString("bootstrap.password")
	if password == "" {
		log.Println("[AUTH] No bootstrap password configured, skipping user seed")
		return nil
	}

	passwordHash, err := hashPassword(password)
	if err != nil {
		return err
	}
	email := strings.ToLower(viper.GetString("bootstrap.email"))
	_, err = s.db.Exec(`
		INSERT INTO users (id, email, password_hash, is_active, created_at)
		VALUES (?, ?, ?, 1, ?)`,
		uuid.NewString(), email, passwordHash, database.NowRFC3339())
	if err != nil {
		return err
	}
	log.Printf("[AUTH] Bootstrap user created: %s", email)
	return nil
}

// Login handles POST /auth/login
func (s *AuthService) Login(w http.ResponseWriter, r *http.Request) {
	log.Printf("[AUTH] Login attempt from IP: %s", r.RemoteAddr)

	var req LoginRequest
	if err := DecodeJSONBody(w, r, &req); err != nil {
		SendAPIError(w, err)
		return
	}
	if err := s.validator.ValidateStruct(&req); err != nil {
		SendValidationError(w, err)
		return
	}

	tokens, err := s.login(req)
	if err != nil {
		log.Printf("[AUTH] Login failed for %s", req.Email)
		SendAPIError(w, err)
		return
	}

	log.Printf("[AUTH] Login successful for %s", req.Email)
	WriteJSON(w, http.StatusOK, tokens)
}

// Refresh handles POST /auth/refresh
func (s *AuthService) Refresh(w http.ResponseWriter, r *http.Request) {
	var req RefreshRequest
	if err := DecodeJSONBody(w, r, &req); err != nil {
		SendAPIError(w, err)
		return
	}
	if err := s.validator.ValidateStruct(&req); err != nil {
		SendValidationError(w, err)
		return
	}

	tokens, err := s.refresh(req.RefreshToken)
	if err != nil {
		SendAPIError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, tokens)
}

// Logout handles POST /auth/logout
func (s *AuthService) Logout(w http.ResponseWriter, r *http.Request) {
	authHeader := r.Header.Get("Authorization")
	if strings.HasPrefix(authHeader, "Bearer ") {
		token := strings.TrimPrefix(authHeader, "Bearer ")
		if s.redis != nil {
			ctx := context.Background()
			key := fmt.Sprintf("blacklist:%s", token)
			if err := s.redis.Set(ctx, key, "1", config.AccessTokenTTL()).Err(); err != nil {
				log.Printf("[AUTH] Failed to blacklist token: %v", err)
			}
		}
	}

	var req RefreshRequest
	if err := DecodeJSONBody(w, r, &req); err == nil && req.RefreshToken != "" {
		now := database.NowRFC3339()
		if _, err := s.db.Exec(`
			UPDATE user_refresh_tokens SET revoked_at = ?
			WHERE token_hash = ? AND revoked_at IS NULL`,
			now, hashRefreshToken(req.RefreshToken)); err != nil {
			log.Printf("[AUTH] Failed to revoke refresh token: %v", err)
		}
	}

	WriteJSON(w, http.StatusOK, map[string]string{"message": "Logout successful"})
}

// Me handles GET /auth/me
func (s *AuthService) Me(w http.ResponseWriter, r *http.Request) {
	userID, _ := r.Context().Value("userID").(string)
	if userID == "" {
		SendAPIError(w, models.NewAuthError(models.CodeInvalidToken, "unauthorized"))
		return
	}

	var user models.User
	err := s.db.QueryRow(`SELECT id, email, is_active, created_at FROM users WHERE id = ?`, userID).
		Scan(&user.ID, &user.Email, &user.IsActive, &user.CreatedAt)
	if err == sql.ErrNoRows {
		SendAPIError(w, models.NewNotFoundError("user not found: %s", userID))
		return
	}
	if err != nil {
		SendAPIError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, user)
}

func generateAccessToken(userID, email string) (string, error) {
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":   userID,
		"email": email,
		"type":  "access",
		"iat":   now.Unix(),
		"exp":   now.Add(config.AccessTokenTTL()).Unix(),
	})
	return token.SignedString([]byte(config.JWTSecret()))
}

func generateRefreshToken() (string, error) {
	raw := make([]byte, 48)
	if _, err := cryptorand.Read(raw); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(raw), nil
}

func hashRefreshToken(refreshToken string) string {
	sum := sha256.Sum256([]byte(refreshToken))
	return hex.EncodeToString(sum[:])
}

func hashPassword(password string) (string, error) {
	salt := make([]byte, viper.GetInt("argon2.salt_length"))
	if _, err := cryptorand.Read(salt); err != nil {
		return "", err
	}

	hash := argon2.IDKey([]byte(password), salt,
		uint32(viper.GetInt("argon2.time")),
		uint32(viper.GetInt("argon2.memory")),
		uint8(viper.GetInt("argon2.threads")),
		uint32(viper.GetInt("argon2.key_length")))
	return fmt.Sprintf("%s$%s", base64.StdEncoding.EncodeToString(salt), base64.StdEncoding.EncodeToString(hash)), nil
}

func verifyPassword(password, hashedPassword string) bool {
	parts := strings.Split(hashedPassword, "$")
	if len(parts) != 2 {
		return false
	}

	salt, err := base64.StdEncoding.DecodeString(parts[0])
	if err != nil {
		return false
	}
	hash, err := base64.StdEncoding.DecodeString(parts[1])
	if err != nil {
		return false
	}

	computedHash := argon2.IDKey([]byte(password), salt,
		uint32(viper.GetInt("argon2.time")),
		uint32(viper.GetInt("argon2.memory")),
		uint8(viper.GetInt("argon2.threads")),
		uint32(viper.GetInt("argon2.key_length")))
	return string(hash) == string(computedHash)
}
