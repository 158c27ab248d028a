package entity

import (
	"time"
)

// MaterialLot 原料批次。数量只在入库时建立、在准备工序完成时扣减，
// 没有回库路径，quantity 始终 >= 0
type MaterialLot struct {
	ID           string     `json:"id" gorm:"primaryKey;size:36"`
	MaterialKind string     `json:"material_kind" gorm:"size:100;not null;index"`
	Quantity     float64    `json:"quantity" gorm:"type:decimal(12,4);not null;default:0"`
	Unit         string     `json:"unit" gorm:"size:20;not null;default:kg"`
	LotCode      string     `json:"lot_code" gorm:"size:100;index"`
	IntakeDate   *time.Time `json:"intake_date"`
	RegisteredBy *string    `json:"registered_by" gorm:"size:36"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
	DeletedAt    *time.Time `json:"deleted_at" gorm:"index"`

	Registrar *User `json:"registrar,omitempty" gorm:"foreignKey:RegisteredBy"`
}

func (MaterialLot) TableName() string {
	return "tex_material_lots"
}
