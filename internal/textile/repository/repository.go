package repository

import "gorm.io/gorm"

// Repositories 纺织业务仓库集合
type Repositories struct {
	User        *UserRepository
	Material    *MaterialRepository
	Preparation *PreparationRepository
	Spinning    *SpinningRepository
}

func NewRepositories(db *gorm.DB) *Repositories {
	return &Repositories{
		User:        NewUserRepository(db),
		Material:    NewMaterialRepository(db),
		Preparation: NewPreparationRepository(db),
		Spinning:    NewSpinningRepository(db),
	}
}
