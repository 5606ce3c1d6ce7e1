package services

import (
	"bytes"
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-redis/redismock/v8"
	"github.com/google/uuid"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/truecost/backend/internal/config"
	"github.com/truecost/backend/internal/database"
	"github.com/truecost/backend/internal/models"
)

func authCode(err error) string {
	var apiErr *models.APIError
	if errors.As(err, &apiErr) {
		return apiErr.Code
	}
	return ""
}

func newTestAuth(t *testing.T) (*AuthService, *sql.DB) {
	t.Helper()
	db := newTestDB(t)
	return NewAuthService(db, nil), db
}

func seedUser(t *testing.T, db *sql.DB, email, password string, active bool) string {
	t.Helper()
	passwordHash, err := hashPassword(password)
	require.NoError(t, err)
	id := uuid.NewString()
	_, err = db.Exec(`
		INSERT INTO users (id, email, password_hash, is_active, created_at)
		VALUES (?, ?, ?, ?, ?)`,
		id, email, passwordHash, active, database.NowRFC3339())
	require.NoError(t, err)
	return id
}

func TestPasswordHashing(t *testing.T) {
	config.Init()

	hash, err := hashPassword("correct horse battery staple")
	require.NoError(t, err)

	assert.True(t, verifyPassword("correct horse battery staple", hash))
	assert.False(t, verifyPassword("correct horse battery stable", hash))
	assert.False(t, verifyPassword("", hash))
	assert.False(t, verifyPassword("anything", "not-a-stored-hash"))

	// Salting makes every hash unique.
	again, err := hashPassword("correct horse battery staple")
	require.NoError(t, err)
	assert.NotEqual(t, hash, again)
}

func TestAuthService_Login(t *testing.T) {
	auth, db := newTestAuth(t)
	seedUser(t, db, "owner@localhost", "hunter2hunter2", true)
	seedUser(t, db, "gone@localhost", "hunter2hunter2", false)

	t.Run("valid credentials", func(t *testing.T) {
		tokens, err := auth.login(LoginRequest{Email: "owner@localhost", Password: "hunter2hunter2"})
		require.NoError(t, err)

		assert.NotEmpty(t, tokens.AccessToken)
		assert.NotEmpty(t, tokens.RefreshToken)
		assert.Equal(t, "Bearer", tokens.TokenType)
		assert.Equal(t, int(config.AccessTokenTTL().Seconds()), tokens.ExpiresIn)
	})

	t.Run("email is case-insensitive", func(t *testing.T) {
		_, err := auth.login(LoginRequest{Email: "  Owner@Localhost ", Password: "hunter2hunter2"})
		assert.NoError(t, err)
	})

	t.Run("wrong password", func(t *testing.T) {
		_, err := auth.login(LoginRequest{Email: "owner@localhost", Password: "hunter3hunter3"})
		assert.Equal(t, models.CodeInvalidCredentials, authCode(err))
	})

	t.Run("unknown email", func(t *testing.T) {
		_, err := auth.login(LoginRequest{Email: "nobody@localhost", Password: "hunter2hunter2"})
		assert.Equal(t, models.CodeInvalidCredentials, authCode(err))
	})

	t.Run("deactivated user", func(t *testing.T) {
		_, err := auth.login(LoginRequest{Email: "gone@localhost", Password: "hunter2hunter2"})
		assert.Equal(t, models.CodeInvalidCredentials, authCode(err))
	})
}

func TestAuthService_Refresh(t *testing.T) {
	auth, db := newTestAuth(t)
	userID := seedUser(t, db, "owner@localhost", "hunter2hunter2", true)

	tokens, err := auth.login(LoginRequest{Email: "owner@localhost", Password: "hunter2hunter2"})
	require.NoError(t, err)

	t.Run("rotates the token", func(t *testing.T) {
		rotated, err := auth.refresh(tokens.RefreshToken)
		require.NoError(t, err)
		assert.NotEqual(t, tokens.RefreshToken, rotated.RefreshToken)
		assert.NotEmpty(t, rotated.AccessToken)
	})

	t.Run("rejects reuse after rotation", func(t *testing.T) {
		_, err := auth.refresh(tokens.RefreshToken)
		assert.Equal(t, models.CodeInvalidToken, authCode(err))
	})

	t.Run("rejects an unknown token", func(t *testing.T) {
		_, err := auth.refresh("never-issued")
		assert.Equal(t, models.CodeInvalidToken, authCode(err))
	})

	t.Run("rejects an expired token", func(t *testing.T) {
		expired := time.Now().UTC().Add(-time.Hour).Format(time.RFC3339)
		_, err := db.Exec(`
			INSERT INTO user_refresh_tokens (id, user_id, token_hash, expires_at, revoked_at, created_at)
			VALUES (?, ?, ?, ?, NULL, ?)`,
			uuid.NewString(), userID, hashRefreshToken("stale-token"), expired, database.NowRFC3339())
		require.NoError(t, err)

		_, refreshErr := auth.refresh("stale-token")
		assert.Equal(t, models.CodeInvalidToken, authCode(refreshErr))
	})

	t.Run("rejects a deactivated user", func(t *testing.T) {
		fresh, err := auth.login(LoginRequest{Email: "owner@localhost", Password: "hunter2hunter2"})
		require.NoError(t, err)

		_, err = db.Exec(`UPDATE users SET is_active = 0 WHERE id = ?`, userID)
		require.NoError(t, err)
		t.Cleanup(func() { db.Exec(`UPDATE users SET is_active = 1 WHERE id = ?`, userID) })

		_, refreshErr := auth.refresh(fresh.RefreshToken)
		assert.Equal(t, models.CodeInvalidToken, authCode(refreshErr))
	})
}

func TestAuthService_Logout(t *testing.T) {
	db := newTestDB(t)
	redisClient, redisMock := redismock.NewClientMock()
	auth := NewAuthService(db, redisClient)
	seedUser(t, db, "owner@localhost", "hunter2hunter2", true)

	tokens, err := auth.login(LoginRequest{Email: "owner@localhost", Password: "hunter2hunter2"})
	require.NoError(t, err)

	redisMock.ExpectSet("blacklist:"+tokens.AccessToken, "1", config.AccessTokenTTL()).SetVal("OK")

	body, err := json.Marshal(RefreshRequest{RefreshToken: tokens.RefreshToken})
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/logout", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+tokens.AccessToken)
	rec := httptest.NewRecorder()

	auth.Logout(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.NoError(t, redisMock.ExpectationsWereMet())

	// The refresh token must be dead after logout.
	_, refreshErr := auth.refresh(tokens.RefreshToken)
	assert.Equal(t, models.CodeInvalidToken, authCode(refreshErr))
}

func TestAuthService_EnsureBootstrapUser(t *testing.T) {
	t.Run("seeds the owner from config", func(t *testing.T) {
		auth, db := newTestAuth(t)
		viper.Set("bootstrap.email", "Owner@Example.com")
		viper.Set("bootstrap.password", "first-run-secret")
		t.Cleanup(func() {
			viper.Set("bootstrap.email", "owner@localhost")
			viper.Set("bootstrap.password", "")
		})

		require.NoError(t, auth.EnsureBootstrapUser())

		var email string
		require.NoError(t, db.QueryRow(`SELECT email FROM users`).Scan(&email))
		assert.Equal(t, "owner@example.com", email)

		_, err := auth.login(LoginRequest{Email: "owner@example.com", Password: "first-run-secret"})
		assert.NoError(t, err)
	})

	t.Run("never overwrites an existing user", func(t *testing.T) {
		auth, db := newTestAuth(t)
		seedUser(t, db, "owner@localhost", "hunter2hunter2", true)
		viper.Set("bootstrap.password", "other-secret")
		t.Cleanup(func() { viper.Set("bootstrap.password", "") })

		require.NoError(t, auth.EnsureBootstrapUser())

		var count int
		require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM users`).Scan(&count))
		assert.Equal(t, 1, count)
	})

	t.Run("skips without a password", func(t *testing.T) {
		auth, db := newTestAuth(t)
		viper.Set("bootstrap.password", "")

		require.NoError(t, auth.EnsureBootstrapUser())

		var count int
		require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM users`).Scan(&count))
		assert.Equal(t, 0, count)
	})
}
