package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/bitfantasy/texcore/internal/config"
	"github.com/bitfantasy/texcore/internal/textile/entity"
	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// texcore-admin 用户开通工具
//
//	texcore-admin [flags] <username> <email> <password>
//
// 系统没有自助注册，所有账号由此工具或管理员接口创建。
func main() {
	role := flag.String("role", entity.RoleOperator, "用户角色: operator, preparer, admin")
	firstName := flag.String("first-name", "", "名")
	lastName := flag.String("last-name", "", "姓")
	superuser := flag.Bool("superuser", false, "创建管理员账号（等同 --role admin）")
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s [flags] <username> <email> <password>\n\nFlags:\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()

	if flag.NArg() != 3 {
		flag.Usage()
		os.Exit(2)
	}
	username, email, password := flag.Arg(0), flag.Arg(1), flag.Arg(2)

	if *superuser {
		*role = entity.RoleAdmin
	}
	if !entity.IsValidRole(*role) {
		log.Fatalf("无效角色: %s", *role)
	}
	if len(password) < 6 {
		log.Fatalf("密码至少6位")
	}

	if err := godotenv.Load(); err != nil {
		log.Printf("Warning: .env file not found, using environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	dsn := fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.Database.Host, cfg.Database.Port, cfg.Database.User,
		cfg.Database.Password, cfg.Database.DBName, cfg.Database.SSLMode,
	)
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	if err := entity.AutoMigrate(db); err != nil {
		log.Fatalf("Failed to migrate database: %v", err)
	}

	var count int64
	db.Model(&entity.User{}).Where("username = ?", username).Count(&count)
	if count > 0 {
		log.Fatalf("用户名已存在: %s", username)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		log.Fatalf("Failed to hash password: %v", err)
	}

	user := &entity.User{
		ID:           uuid.New().String(),
		Username:     username,
		Email:        email,
		PasswordHash: string(hash),
		FirstName:    *firstName,
		LastName:     *lastName,
		Role:         *role,
		Active:       true,
	}
	if err := db.Create(user).Error; err != nil {
		log.Fatalf("Failed to create user: %v", err)
	}

	fmt.Printf("用户创建成功: %s (%s) role=%s id=%s\n", username, email, *role, user.ID)
}
