package repository

import (
	"context"

	"github.com/bitfantasy/texcore/internal/textile/entity"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type PreparationRepository struct {
	db *gorm.DB
}

func NewPreparationRepository(db *gorm.DB) *PreparationRepository {
	return &PreparationRepository{db: db}
}

func (r *PreparationRepository) Create(ctx context.Context, prep *entity.Preparation) error {
	return r.db.WithContext(ctx).Create(prep).Error
}

func (r *PreparationRepository) GetByID(ctx context.Context, id string) (*entity.Preparation, error) {
	var prep entity.Preparation
	err := r.db.WithContext(ctx).
		Preload("MaterialLot").Preload("Preparer").Preload("Details").
		Where("id = ?", id).First(&prep).Error
	if err != nil {
		return nil, err
	}
	return &prep, nil
}

func (r *PreparationRepository) Update(ctx context.Context, prep *entity.Preparation) error {
	return r.db.WithContext(ctx).Save(prep).Error
}

// Delete 删除准备工序，明细级联删除
func (r *PreparationRepository) Delete(ctx context.Context, prep *entity.Preparation) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("preparation_id = ?", prep.ID).Delete(&entity.PreparationDetail{}).Error; err != nil {
			return err
		}
		return tx.Delete(prep).Error
	})
}

type PreparationListParams struct {
	Estado      string // 状态过滤
	TipoProceso string // 工序类型过滤
	FechaDesde  string // 起始日期 YYYY-MM-DD
	FechaHasta  string // 截止日期 YYYY-MM-DD
	PreparerID  string
	Page        int
	Size        int
}

func (r *PreparationRepository) List(ctx context.Context, params PreparationListParams) ([]entity.Preparation, int64, error) {
	query := r.db.WithContext(ctx).Model(&entity.Preparation{})
	if params.Estado != "" {
		query = query.Where("status = ?", params.Estado)
	}
	if params.TipoProceso != "" {
		query = query.Where("process_kind = ?", params.TipoProceso)
	}
	if params.FechaDesde != "" {
		query = query.Where("started_at::date >= ?", params.FechaDesde)
	}
	if params.FechaHasta != "" {
		query = query.Where("started_at::date <= ?", params.FechaHasta)
	}
	if params.PreparerID != "" {
		query = query.Where("preparer_id = ?", params.PreparerID)
	}
	var total int64
	query.Count(&total)
	if params.Page <= 0 {
		params.Page = 1
	}
	if params.Size <= 0 {
		params.Size = 20
	}
	var preps []entity.Preparation
	err := query.Preload("MaterialLot").Preload("Preparer").
		Order("started_at DESC").
		Offset((params.Page - 1) * params.Size).Limit(params.Size).Find(&preps).Error
	return preps, total, err
}

// ListCompleted 已完成的准备工序，供纺纱工序选择来源
func (r *PreparationRepository) ListCompleted(ctx context.Context) ([]entity.Preparation, error) {
	var preps []entity.Preparation
	err := r.db.WithContext(ctx).
		Preload("MaterialLot").Preload("Preparer").
		Where("status = ?", entity.StatusCompleted).
		Order("completed_at DESC").
		Find(&preps).Error
	return preps, err
}

// GetForUpdate 加行锁读取准备工序，必须在事务内调用
func (r *PreparationRepository) GetForUpdate(tx *gorm.DB, id string) (*entity.Preparation, error) {
	var prep entity.Preparation
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", id).First(&prep).Error
	if err != nil {
		return nil, err
	}
	return &prep, nil
}

func (r *PreparationRepository) CreateDetail(ctx context.Context, detail *entity.PreparationDetail) error {
	return r.db.WithContext(ctx).Create(detail).Error
}

// DB 返回底层db用于事务
func (r *PreparationRepository) DB() *gorm.DB {
	return r.db
}
