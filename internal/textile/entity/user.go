package entity

import (
	"time"
)

// UserRole 用户角色
const (
	RoleOperator = "operator" // 操作员：原料入库、纺纱工序
	RolePreparer = "preparer" // 准备员：准备工序
	RoleAdmin    = "admin"    // 管理员
)

// ValidRoles 合法角色集合
var ValidRoles = []string{RoleOperator, RolePreparer, RoleAdmin}

// User 用户实体。角色直接存在用户记录上，一人一角色
type User struct {
	ID           string     `json:"id" gorm:"primaryKey;size:36"`
	Username     string     `json:"username" gorm:"size:64;not null;uniqueIndex"`
	Email        string     `json:"email" gorm:"size:128;not null;uniqueIndex"`
	PasswordHash string     `json:"-" gorm:"size:128;not null"`
	FirstName    string     `json:"first_name" gorm:"size:64"`
	LastName     string     `json:"last_name" gorm:"size:64"`
	Role         string     `json:"role" gorm:"size:16;not null;default:operator"`
	Active       bool       `json:"active" gorm:"not null;default:true"`
	LastLoginAt  *time.Time `json:"last_login_at"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

func (User) TableName() string {
	return "tex_users"
}

// IsValidRole 检查角色是否合法
func IsValidRole(role string) bool {
	for _, r := range ValidRoles {
		if r == role {
			return true
		}
	}
	return false
}
