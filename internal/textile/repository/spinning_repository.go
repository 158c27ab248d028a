package repository

import (
	"context"

	"github.com/bitfantasy/texcore/internal/textile/entity"
	"gorm.io/gorm"
)

type SpinningRepository struct {
	db *gorm.DB
}

func NewSpinningRepository(db *gorm.DB) *SpinningRepository {
	return &SpinningRepository{db: db}
}

func (r *SpinningRepository) Create(ctx context.Context, proc *entity.SpinningProcess) error {
	return r.db.WithContext(ctx).Create(proc).Error
}

func (r *SpinningRepository) GetByID(ctx context.Context, id string) (*entity.SpinningProcess, error) {
	var proc entity.SpinningProcess
	err := r.db.WithContext(ctx).
		Preload("Preparation").Preload("Preparation.MaterialLot").
		Preload("Operator").Preload("Details").
		Where("id = ?", id).First(&proc).Error
	if err != nil {
		return nil, err
	}
	return &proc, nil
}

func (r *SpinningRepository) Update(ctx context.Context, proc *entity.SpinningProcess) error {
	return r.db.WithContext(ctx).Save(proc).Error
}

// Delete 删除纺纱工序，明细级联删除
func (r *SpinningRepository) Delete(ctx context.Context, proc *entity.SpinningProcess) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("spinning_process_id = ?", proc.ID).Delete(&entity.SpinningDetail{}).Error; err != nil {
			return err
		}
		return tx.Delete(proc).Error
	})
}

type SpinningListParams struct {
	Estado     string // 状态过滤
	Etapa      string // 阶段过滤
	FechaDesde string // 起始日期 YYYY-MM-DD
	FechaHasta string // 截止日期 YYYY-MM-DD
	OperatorID string
	Page       int
	Size       int
}

func (r *SpinningRepository) List(ctx context.Context, params SpinningListParams) ([]entity.SpinningProcess, int64, error) {
	query := r.db.WithContext(ctx).Model(&entity.SpinningProcess{})
	if params.Estado != "" {
		query = query.Where("status = ?", params.Estado)
	}
	if params.Etapa != "" {
		query = query.Where("stage = ?", params.Etapa)
	}
	if params.FechaDesde != "" {
		query = query.Where("started_at::date >= ?", params.FechaDesde)
	}
	if params.FechaHasta != "" {
		query = query.Where("started_at::date <= ?", params.FechaHasta)
	}
	if params.OperatorID != "" {
		query = query.Where("operator_id = ?", params.OperatorID)
	}
	var total int64
	query.Count(&total)
	if params.Page <= 0 {
		params.Page = 1
	}
	if params.Size <= 0 {
		params.Size = 20
	}
	var procs []entity.SpinningProcess
	err := query.Preload("Preparation").Preload("Operator").
		Order("started_at DESC").
		Offset((params.Page - 1) * params.Size).Limit(params.Size).Find(&procs).Error
	return procs, total, err
}

func (r *SpinningRepository) CreateDetail(ctx context.Context, detail *entity.SpinningDetail) error {
	return r.db.WithContext(ctx).Create(detail).Error
}

// CountByStatus 按状态统计数量
func (r *SpinningRepository) CountByStatus(ctx context.Context, status string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&entity.SpinningProcess{}).
		Where("status = ?", status).Count(&count).Error
	return count, err
}

// CountByStage 按阶段统计数量
func (r *SpinningRepository) CountByStage(ctx context.Context, stage string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&entity.SpinningProcess{}).
		Where("stage = ?", stage).Count(&count).Error
	return count, err
}

// TotalYarnOutput 已完成工序的总产纱量
func (r *SpinningRepository) TotalYarnOutput(ctx context.Context) (float64, error) {
	var result struct{ Total float64 }
	err := r.db.WithContext(ctx).Raw(`
		SELECT COALESCE(SUM(output_yarn_qty), 0) as total
		FROM tex_spinning_processes
		WHERE status = ?
	`, entity.StatusCompleted).Scan(&result).Error
	return result.Total, err
}

// AverageYield 已完成工序的平均产出率（按总量计算）
func (r *SpinningRepository) AverageYield(ctx context.Context) (float64, error) {
	var result struct {
		TotalIn  float64
		TotalOut float64
	}
	err := r.db.WithContext(ctx).Raw(`
		SELECT COALESCE(SUM(input_fiber_qty), 0) as total_in,
		       COALESCE(SUM(output_yarn_qty), 0) as total_out
		FROM tex_spinning_processes
		WHERE status = ? AND input_fiber_qty > 0
	`, entity.StatusCompleted).Scan(&result).Error
	if err != nil {
		return 0, err
	}
	if result.TotalIn <= 0 {
		return 0, nil
	}
	return result.TotalOut / result.TotalIn * 100, nil
}

// DB 返回底层db用于事务
func (r *SpinningRepository) DB() *gorm.DB {
	return r.db
}
