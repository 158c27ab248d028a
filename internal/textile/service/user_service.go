package service

import (
	"context"
	"fmt"

	"github.com/bitfantasy/texcore/internal/textile/entity"
	"github.com/bitfantasy/texcore/internal/textile/repository"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// UserService 用户管理服务，全部操作仅限管理员调用（在路由层限制）
type UserService struct {
	repo *repository.UserRepository
}

func NewUserService(repo *repository.UserRepository) *UserService {
	return &UserService{repo: repo}
}

func (s *UserService) List(ctx context.Context) ([]entity.User, error) {
	return s.repo.List(ctx)
}

func (s *UserService) GetByID(ctx context.Context, id string) (*entity.User, error) {
	return s.repo.GetByID(ctx, id)
}

type CreateUserRequest struct {
	Username  string `json:"username" binding:"required"`
	Email     string `json:"email" binding:"required,email"`
	Password  string `json:"password" binding:"required,min=6"`
	FirstName string `json:"first_name" binding:"required"`
	LastName  string `json:"last_name" binding:"required"`
	Role      string `json:"role" binding:"required"`
}

func (s *UserService) Create(ctx context.Context, req CreateUserRequest) (*entity.User, error) {
	if !entity.IsValidRole(req.Role) {
		return nil, fmt.Errorf("无效角色: %s", req.Role)
	}

	exists, err := s.repo.ExistsByUsername(ctx, req.Username)
	if err != nil {
		return nil, fmt.Errorf("检查用户名失败: %w", err)
	}
	if exists {
		return nil, fmt.Errorf("用户名已存在: %s", req.Username)
	}

	exists, err = s.repo.ExistsByEmail(ctx, req.Email, "")
	if err != nil {
		return nil, fmt.Errorf("检查邮箱失败: %w", err)
	}
	if exists {
		return nil, fmt.Errorf("邮箱已被注册: %s", req.Email)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("密码加密失败: %w", err)
	}

	user := &entity.User{
		ID:           uuid.New().String(),
		Username:     req.Username,
		Email:        req.Email,
		PasswordHash: string(hash),
		FirstName:    req.FirstName,
		LastName:     req.LastName,
		Role:         req.Role,
		Active:       true,
	}
	if err := s.repo.Create(ctx, user); err != nil {
		return nil, fmt.Errorf("创建用户失败: %w", err)
	}
	return user, nil
}

type UpdateUserRequest struct {
	Email     *string `json:"email"`
	FirstName *string `json:"first_name"`
	LastName  *string `json:"last_name"`
	Role      *string `json:"role"`
	Active    *bool   `json:"active"`
}

// Update 更新用户资料和角色。管理员不能编辑自己，避免把自己锁在系统外
func (s *UserService) Update(ctx context.Context, id, actorID string, req UpdateUserRequest) (*entity.User, error) {
	if id == actorID {
		return nil, fmt.Errorf("不能编辑自己的账号")
	}

	user, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.Email != nil {
		taken, err := s.repo.ExistsByEmail(ctx, *req.Email, id)
		if err != nil {
			return nil, fmt.Errorf("检查邮箱失败: %w", err)
		}
		if taken {
			return nil, fmt.Errorf("邮箱已被其他用户注册: %s", *req.Email)
		}
		user.Email = *req.Email
	}
	if req.FirstName != nil {
		user.FirstName = *req.FirstName
	}
	if req.LastName != nil {
		user.LastName = *req.LastName
	}
	if req.Role != nil {
		if !entity.IsValidRole(*req.Role) {
			return nil, fmt.Errorf("无效角色: %s", *req.Role)
		}
		user.Role = *req.Role
	}
	if req.Active != nil {
		user.Active = *req.Active
	}

	if err := s.repo.Update(ctx, user); err != nil {
		return nil, fmt.Errorf("更新用户失败: %w", err)
	}
	return user, nil
}

// Deactivate 停用用户。用户从不物理删除，只停用
func (s *UserService) Deactivate(ctx context.Context, id, actorID string) error {
	if id == actorID {
		return fmt.Errorf("不能停用自己的账号")
	}
	user, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	user.Active = false
	if err := s.repo.Update(ctx, user); err != nil {
		return fmt.Errorf("停用用户失败: %w", err)
	}
	return nil
}
