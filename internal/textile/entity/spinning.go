package entity

import (
	"time"
)

// SpinningStage 纺纱工序阶段
const (
	StageCarding  = "carding"  // 梳棉
	StageCombing  = "combing"  // 精梳
	StageSpinning = "spinning" // 细纱
)

// ValidSpinningStages 合法纺纱阶段
var ValidSpinningStages = []string{StageCarding, StageCombing, StageSpinning}

// SpinningProcess 纺纱工序记录，消耗一个已完成准备工序的产出。
// 产出率和损耗率由输入输出数量派生，不落库
type SpinningProcess struct {
	ID             string     `json:"id" gorm:"primaryKey;size:36"`
	PreparationID  *string    `json:"preparation_id" gorm:"size:36;index"`
	Stage          string     `json:"stage" gorm:"size:20;not null"`
	Status         string     `json:"status" gorm:"size:20;not null;default:pending;index"`
	InputFiberQty  float64    `json:"input_fiber_qty" gorm:"type:decimal(12,4);not null"`
	OutputYarnQty  float64    `json:"output_yarn_qty" gorm:"type:decimal(12,4);not null;default:0"`
	YarnCount      string     `json:"yarn_count" gorm:"size:50"`
	Twist          *float64   `json:"twist" gorm:"type:decimal(8,2)"`
	Tenacity       *float64   `json:"tenacity" gorm:"type:decimal(8,2)"`
	QualityGrade   string     `json:"quality_grade" gorm:"size:20"`
	Observations   string     `json:"observations" gorm:"type:text"`
	OperatorID     string     `json:"operator_id" gorm:"size:36;not null;index"`
	StartedAt      time.Time  `json:"started_at"`
	CompletedAt    *time.Time `json:"completed_at"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`

	Preparation *Preparation     `json:"preparation,omitempty" gorm:"foreignKey:PreparationID;constraint:OnDelete:SET NULL"`
	Operator    *User            `json:"operator,omitempty" gorm:"foreignKey:OperatorID"`
	Details     []SpinningDetail `json:"details,omitempty" gorm:"foreignKey:SpinningProcessID"`
}

func (SpinningProcess) TableName() string {
	return "tex_spinning_processes"
}

// Yield 产出率百分比。输入为0时返回0，避免除零
func (p SpinningProcess) Yield() float64 {
	if p.InputFiberQty <= 0 {
		return 0
	}
	return p.OutputYarnQty / p.InputFiberQty * 100
}

// Waste 损耗率百分比。输入为0时返回0
func (p SpinningProcess) Waste() float64 {
	if p.InputFiberQty <= 0 {
		return 0
	}
	return 100 - p.Yield()
}

// SpinningDetail 纺纱工序技术明细，只追加不修改，含阶段相关可选字段
type SpinningDetail struct {
	ID                  string    `json:"id" gorm:"primaryKey;size:36"`
	SpinningProcessID   string    `json:"spinning_process_id" gorm:"size:36;not null;index"`
	MachineSpeed        *float64  `json:"machine_speed" gorm:"type:decimal(8,2)"`
	Temperature         *float64  `json:"temperature" gorm:"type:decimal(6,2)"`
	Humidity            *float64  `json:"humidity" gorm:"type:decimal(5,2)"`
	Machine             string    `json:"machine" gorm:"size:100"`
	SpindleCount        *int      `json:"spindle_count"`
	CardingSpeed        *float64  `json:"carding_speed" gorm:"type:decimal(8,2)"`    // 梳棉
	FiberCleanliness    string    `json:"fiber_cleanliness" gorm:"size:20"`          // 梳棉
	RemovedImpurityPct  *float64  `json:"removed_impurity_pct" gorm:"type:decimal(5,2)"` // 精梳
	RemovedFiberLength  *float64  `json:"removed_fiber_length" gorm:"type:decimal(6,2)"` // 精梳
	TwistGrade          string    `json:"twist_grade" gorm:"size:20"`                // 细纱
	Uniformity          *float64  `json:"uniformity" gorm:"type:decimal(5,2)"`       // 细纱
	ProcessMinutes      *int      `json:"process_minutes"`
	DefectsFound        string    `json:"defects_found" gorm:"type:text"`
	TechnicalNotes      string    `json:"technical_notes" gorm:"type:text"`
	CreatedAt           time.Time `json:"created_at"`
}

func (SpinningDetail) TableName() string {
	return "tex_spinning_details"
}
