package service

import (
	"context"
	"testing"

	"github.com/bitfantasy/texcore/internal/textile/entity"
	"github.com/bitfantasy/texcore/internal/textile/repository"
	"github.com/bitfantasy/texcore/internal/textile/testutil"
)

func TestUserCreateValidations(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc := NewUserService(repository.NewUserRepository(db))
	ctx := context.Background()

	user, err := svc.Create(ctx, CreateUserRequest{
		Username:  "maria",
		Email:     "maria@example.com",
		Password:  "secret123",
		FirstName: "Maria",
		LastName:  "Lopez",
		Role:      entity.RolePreparer,
	})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if user.PasswordHash == "secret123" {
		t.Error("Password must be hashed")
	}
	if !user.Active {
		t.Error("New users start active")
	}

	// 重复用户名
	_, err = svc.Create(ctx, CreateUserRequest{
		Username: "maria", Email: "other@example.com", Password: "secret123",
		FirstName: "Other", LastName: "User", Role: entity.RoleOperator,
	})
	if err == nil {
		t.Fatal("Expected duplicate username error")
	}

	// 重复邮箱
	_, err = svc.Create(ctx, CreateUserRequest{
		Username: "maria2", Email: "maria@example.com", Password: "secret123",
		FirstName: "Other", LastName: "User", Role: entity.RoleOperator,
	})
	if err == nil {
		t.Fatal("Expected duplicate email error")
	}

	// 无效角色
	_, err = svc.Create(ctx, CreateUserRequest{
		Username: "maria3", Email: "maria3@example.com", Password: "secret123",
		FirstName: "Other", LastName: "User", Role: "supervisor",
	})
	if err == nil {
		t.Fatal("Expected invalid role error")
	}
}

func TestUserCannotEditSelf(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc := NewUserService(repository.NewUserRepository(db))
	ctx := context.Background()

	admin := testutil.SeedTestUser(t, db, "user-self-001", "selfadmin", entity.RoleAdmin)

	newRole := entity.RoleOperator
	if _, err := svc.Update(ctx, admin.ID, admin.ID, UpdateUserRequest{Role: &newRole}); err == nil {
		t.Fatal("Expected error editing own account")
	}
	if err := svc.Deactivate(ctx, admin.ID, admin.ID); err == nil {
		t.Fatal("Expected error deactivating own account")
	}
}

func TestUserDeactivateIsNotDelete(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc := NewUserService(repository.NewUserRepository(db))
	ctx := context.Background()

	admin := testutil.SeedTestUser(t, db, "user-da-001", "da_admin", entity.RoleAdmin)
	target := testutil.SeedTestUser(t, db, "user-da-002", "da_target", entity.RoleOperator)

	if err := svc.Deactivate(ctx, target.ID, admin.ID); err != nil {
		t.Fatalf("Deactivate failed: %v", err)
	}

	var after entity.User
	if err := db.First(&after, "id = ?", target.ID).Error; err != nil {
		t.Fatalf("User row must survive deactivation: %v", err)
	}
	if after.Active {
		t.Error("Expected user to be inactive")
	}
}
