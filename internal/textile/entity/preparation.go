package entity

import (
	"time"
)

// ProcessStatus 工序状态，准备工序和纺纱工序共用
const (
	StatusPending    = "pending"
	StatusInProgress = "in_progress"
	StatusCompleted  = "completed"
	StatusRejected   = "rejected"
)

// ProcessKind 准备工序类型
const (
	ProcessCleaning    = "cleaning"         // 清棉
	ProcessOpening     = "opening"          // 开松
	ProcessBlending    = "blending"         // 混棉
	ProcessRatioAdjust = "ratio_adjustment" // 配比调整
)

// ValidProcessKinds 合法准备工序类型
var ValidProcessKinds = []string{ProcessCleaning, ProcessOpening, ProcessBlending, ProcessRatioAdjust}

// IsTerminalStatus 判断状态是否为终态
func IsTerminalStatus(status string) bool {
	return status == StatusCompleted || status == StatusRejected
}

// Preparation 准备工序记录。创建时只做库存预占（通过可用批次查询表达），
// 完成时才真正扣减批次库存
type Preparation struct {
	ID            string     `json:"id" gorm:"primaryKey;size:36"`
	MaterialLotID string     `json:"material_lot_id" gorm:"size:36;not null;index"`
	ProcessKind   string     `json:"process_kind" gorm:"size:20;not null"`
	Status        string     `json:"status" gorm:"size:20;not null;default:pending;index"`
	Quantity      float64    `json:"quantity" gorm:"type:decimal(12,4);not null"`
	MixPercentage *float64   `json:"mix_percentage" gorm:"type:decimal(5,2)"`
	QualityGrade  string     `json:"quality_grade" gorm:"size:20"`
	Observations  string     `json:"observations" gorm:"type:text"`
	PreparerID    string     `json:"preparer_id" gorm:"size:36;not null;index"`
	StartedAt     time.Time  `json:"started_at"`
	CompletedAt   *time.Time `json:"completed_at"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`

	MaterialLot *MaterialLot        `json:"material_lot,omitempty" gorm:"foreignKey:MaterialLotID"`
	Preparer    *User               `json:"preparer,omitempty" gorm:"foreignKey:PreparerID"`
	Details     []PreparationDetail `json:"details,omitempty" gorm:"foreignKey:PreparationID"`
}

func (Preparation) TableName() string {
	return "tex_preparations"
}

// PreparationDetail 准备工序技术明细，只追加不修改。
// WastePercent 是明细上实测的损耗百分比，与纺纱工序上派生的损耗率是两个概念
type PreparationDetail struct {
	ID             string    `json:"id" gorm:"primaryKey;size:36"`
	PreparationID  string    `json:"preparation_id" gorm:"size:36;not null;index"`
	Temperature    *float64  `json:"temperature" gorm:"type:decimal(6,2)"`
	Humidity       *float64  `json:"humidity" gorm:"type:decimal(5,2)"`
	ProcessMinutes *int      `json:"process_minutes"`
	Equipment      string    `json:"equipment" gorm:"size:100"`
	YieldPercent   *float64  `json:"yield_percent" gorm:"type:decimal(5,2)"`
	WastePercent   *float64  `json:"waste_percent" gorm:"type:decimal(5,2)"`
	TechnicalNotes string    `json:"technical_notes" gorm:"type:text"`
	CreatedAt      time.Time `json:"created_at"`
}

func (PreparationDetail) TableName() string {
	return "tex_preparation_details"
}
