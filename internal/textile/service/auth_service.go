package service

import (
	"context"
	"fmt"
	"time"

	"github.com/bitfantasy/texcore/internal/config"
	"github.com/bitfantasy/texcore/internal/middleware"
	"github.com/bitfantasy/texcore/internal/textile/entity"
	"github.com/bitfantasy/texcore/internal/textile/repository"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"golang.org/x/crypto/bcrypt"
)

// AuthService 认证服务
type AuthService struct {
	userRepo *repository.UserRepository
	rdb      *redis.Client
	jwtCfg   config.JWTConfig
}

func NewAuthService(userRepo *repository.UserRepository, rdb *redis.Client, jwtCfg config.JWTConfig) *AuthService {
	return &AuthService{userRepo: userRepo, rdb: rdb, jwtCfg: jwtCfg}
}

// Login 校验用户名密码并签发访问令牌
func (s *AuthService) Login(ctx context.Context, username, password string) (string, *entity.User, error) {
	user, err := s.userRepo.GetByUsername(ctx, username)
	if err != nil {
		return "", nil, fmt.Errorf("用户名或密码错误")
	}
	if !user.Active {
		return "", nil, fmt.Errorf("账号已停用")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return "", nil, fmt.Errorf("用户名或密码错误")
	}

	now := time.Now()
	user.LastLoginAt = &now
	if err := s.userRepo.Update(ctx, user); err != nil {
		return "", nil, fmt.Errorf("更新登录时间失败: %w", err)
	}

	token, err := s.GenerateToken(user)
	if err != nil {
		return "", nil, fmt.Errorf("生成令牌失败: %w", err)
	}
	return token, user, nil
}

// GenerateToken 为用户签发JWT
func (s *AuthService) GenerateToken(user *entity.User) (string, error) {
	now := time.Now()
	expire := s.jwtCfg.AccessTokenExpire
	if expire <= 0 {
		expire = 24 * time.Hour
	}
	claims := middleware.JWTClaims{
		UserID:   user.ID,
		Username: user.Username,
		Name:     user.FirstName + " " + user.LastName,
		Role:     user.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID,
			Issuer:    s.jwtCfg.Issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(expire)),
			ID:        uuid.New().String(),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(s.jwtCfg.Secret))
}

// Logout 将令牌jti写入黑名单，保留到令牌过期
func (s *AuthService) Logout(ctx context.Context, jti string, expiresAt time.Time) error {
	if s.rdb == nil || jti == "" {
		return nil
	}
	ttl := time.Until(expiresAt)
	if ttl <= 0 {
		return nil
	}
	return s.rdb.Set(ctx, middleware.RevokedTokenPrefix+jti, "1", ttl).Err()
}

// GetCurrentUser 按ID查当前用户
func (s *AuthService) GetCurrentUser(ctx context.Context, userID string) (*entity.User, error) {
	return s.userRepo.GetByID(ctx, userID)
}
