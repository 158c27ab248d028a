package entity

import "gorm.io/gorm"

// AutoMigrate 自动迁移所有纺织业务表
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		// 用户
		&User{},

		// 原料库存
		&MaterialLot{},

		// 准备工序
		&Preparation{},
		&PreparationDetail{},

		// 纺纱工序
		&SpinningProcess{},
		&SpinningDetail{},
	)
}
