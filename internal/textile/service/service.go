package service

import (
	"github.com/bitfantasy/texcore/internal/config"
	"github.com/bitfantasy/texcore/internal/textile/repository"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// Services 纺织业务服务集合
type Services struct {
	Auth        *AuthService
	User        *UserService
	Material    *MaterialService
	Preparation *PreparationService
	Spinning    *SpinningService
	Dashboard   *DashboardService
}

func NewServices(repos *repository.Repositories, db *gorm.DB, rdb *redis.Client, cfg *config.Config) *Services {
	return &Services{
		Auth:        NewAuthService(repos.User, rdb, cfg.JWT),
		User:        NewUserService(repos.User),
		Material:    NewMaterialService(repos.Material),
		Preparation: NewPreparationService(repos.Preparation, repos.Material, db),
		Spinning:    NewSpinningService(repos.Spinning, repos.Preparation),
		Dashboard:   NewDashboardService(db, rdb),
	}
}
