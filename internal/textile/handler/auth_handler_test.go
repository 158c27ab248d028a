package handler

import (
	"net/http"
	"testing"
	"time"

	"github.com/bitfantasy/texcore/internal/config"
	"github.com/bitfantasy/texcore/internal/middleware"
	"github.com/bitfantasy/texcore/internal/textile/entity"
	"github.com/bitfantasy/texcore/internal/textile/repository"
	"github.com/bitfantasy/texcore/internal/textile/service"
	"github.com/bitfantasy/texcore/internal/textile/testutil"
	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"gorm.io/gorm"
)

func setupAuthRouter(t *testing.T) (*gorm.DB, *gin.Engine) {
	t.Helper()
	db := testutil.SetupTestDB(t)
	router := testutil.SetupRouter()

	repos := repository.NewRepositories(db)
	cfg := &config.Config{JWT: config.JWTConfig{Secret: testutil.JWTSecret, Issuer: "texcore"}}
	services := service.NewServices(repos, db, nil, cfg)
	h := NewHandlers(services)

	router.POST("/api/v1/auth/login", h.Auth.Login)
	api := testutil.AuthGroup(router, "/api/v1")
	api.GET("/auth/me", h.Auth.Me)
	api.POST("/auth/logout", h.Auth.Logout)
	return db, router
}

func TestLoginAndMe(t *testing.T) {
	db, router := setupAuthRouter(t)

	// SeedTestUser 的密码是 secret123
	user := testutil.SeedTestUser(t, db, "auth-001", "login_user", entity.RoleOperator)

	w := testutil.DoRequest(router, "POST", "/api/v1/auth/login", map[string]interface{}{
		"username": user.Username,
		"password": "secret123",
	}, "")
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", w.Code, w.Body.String())
	}
	resp := testutil.ParseResponse(w)
	data := resp["data"].(map[string]interface{})
	token, _ := data["token"].(string)
	if token == "" {
		t.Fatal("Expected non-empty token")
	}
	userData := data["user"].(map[string]interface{})
	if _, hasHash := userData["password_hash"]; hasHash {
		t.Error("Password hash must never be serialized")
	}
}

func TestLoginWrongPassword(t *testing.T) {
	db, router := setupAuthRouter(t)
	user := testutil.SeedTestUser(t, db, "auth-002", "wrongpw_user", entity.RoleOperator)

	w := testutil.DoRequest(router, "POST", "/api/v1/auth/login", map[string]interface{}{
		"username": user.Username,
		"password": "bad-password",
	}, "")
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("Expected 401, got %d", w.Code)
	}
}

func TestLoginInactiveUser(t *testing.T) {
	db, router := setupAuthRouter(t)
	user := testutil.SeedTestUser(t, db, "auth-003", "inactive_user", entity.RoleOperator)
	db.Model(&entity.User{}).Where("id = ?", user.ID).Update("active", false)

	w := testutil.DoRequest(router, "POST", "/api/v1/auth/login", map[string]interface{}{
		"username": user.Username,
		"password": "secret123",
	}, "")
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("Expected 401 for deactivated user, got %d", w.Code)
	}
}

func TestLogoutTokenWithoutExpiry(t *testing.T) {
	db, router := setupAuthRouter(t)
	user := testutil.SeedTestUser(t, db, "auth-005", "noexp_user", entity.RoleOperator)

	// 合法签名但不带exp的令牌，注销不能崩
	claims := middleware.JWTClaims{
		UserID:   user.ID,
		Username: user.Username,
		Role:     user.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:  user.ID,
			Issuer:   "texcore",
			IssuedAt: jwt.NewNumericDate(time.Now()),
			ID:       "noexp-jti-001",
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testutil.JWTSecret))
	if err != nil {
		t.Fatalf("Failed to sign token: %v", err)
	}

	w := testutil.DoRequest(router, "POST", "/api/v1/auth/logout", nil, token)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200 for logout without exp claim, got %d: %s", w.Code, w.Body.String())
	}
}

func TestMeRequiresValidToken(t *testing.T) {
	db, router := setupAuthRouter(t)
	user := testutil.SeedTestUser(t, db, "auth-004", "me_user", entity.RoleAdmin)

	token := testutil.GenerateTestToken(user.ID, user.Username, "Me User", entity.RoleAdmin)
	w := testutil.DoRequest(router, "GET", "/api/v1/auth/me", nil, token)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", w.Code, w.Body.String())
	}
	resp := testutil.ParseResponse(w)
	data := resp["data"].(map[string]interface{})
	if data["username"] != user.Username {
		t.Errorf("Expected username %s, got %v", user.Username, data["username"])
	}

	w2 := testutil.DoRequest(router, "GET", "/api/v1/auth/me", nil, "not-a-token")
	if w2.Code != http.StatusUnauthorized {
		t.Fatalf("Expected 401 for garbage token, got %d", w2.Code)
	}
}
