package repository

import (
	"context"

	"github.com/bitfantasy/texcore/internal/textile/entity"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type MaterialRepository struct {
	db *gorm.DB
}

func NewMaterialRepository(db *gorm.DB) *MaterialRepository {
	return &MaterialRepository{db: db}
}

func (r *MaterialRepository) Create(ctx context.Context, lot *entity.MaterialLot) error {
	return r.db.WithContext(ctx).Create(lot).Error
}

func (r *MaterialRepository) GetByID(ctx context.Context, id string) (*entity.MaterialLot, error) {
	var lot entity.MaterialLot
	err := r.db.WithContext(ctx).Preload("Registrar").
		Where("id = ? AND deleted_at IS NULL", id).First(&lot).Error
	if err != nil {
		return nil, err
	}
	return &lot, nil
}

func (r *MaterialRepository) Update(ctx context.Context, lot *entity.MaterialLot) error {
	return r.db.WithContext(ctx).Save(lot).Error
}

// SoftDelete 软删除批次
func (r *MaterialRepository) SoftDelete(ctx context.Context, lot *entity.MaterialLot) error {
	return r.db.WithContext(ctx).Model(lot).Update("deleted_at", gorm.Expr("NOW()")).Error
}

type MaterialListParams struct {
	MaterialKind string
	Keyword      string
	Page         int
	Size         int
}

func (r *MaterialRepository) List(ctx context.Context, params MaterialListParams) ([]entity.MaterialLot, int64, error) {
	query := r.db.WithContext(ctx).Model(&entity.MaterialLot{}).Where("deleted_at IS NULL")
	if params.MaterialKind != "" {
		query = query.Where("material_kind = ?", params.MaterialKind)
	}
	if params.Keyword != "" {
		kw := "%" + params.Keyword + "%"
		query = query.Where("material_kind ILIKE ? OR lot_code ILIKE ?", kw, kw)
	}
	var total int64
	query.Count(&total)
	if params.Page <= 0 {
		params.Page = 1
	}
	if params.Size <= 0 {
		params.Size = 20
	}
	var lots []entity.MaterialLot
	err := query.Preload("Registrar").Order("created_at DESC").
		Offset((params.Page - 1) * params.Size).Limit(params.Size).Find(&lots).Error
	return lots, total, err
}

// ListAvailableForPreparation 可用于准备工序的批次：有库存，且没有未结束的准备工序占用
func (r *MaterialRepository) ListAvailableForPreparation(ctx context.Context) ([]entity.MaterialLot, error) {
	var lots []entity.MaterialLot
	err := r.db.WithContext(ctx).
		Where("quantity > 0 AND deleted_at IS NULL").
		Where(`NOT EXISTS (
			SELECT 1 FROM tex_preparations p
			WHERE p.material_lot_id = tex_material_lots.id
			AND p.status IN (?, ?)
		)`, entity.StatusPending, entity.StatusInProgress).
		Order("material_kind ASC, quantity DESC").
		Find(&lots).Error
	return lots, err
}

// CountPreparationsByLot 统计引用该批次的准备工序数量
func (r *MaterialRepository) CountPreparationsByLot(ctx context.Context, lotID string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&entity.Preparation{}).
		Where("material_lot_id = ?", lotID).Count(&count).Error
	return count, err
}

// GetForUpdate 加行锁读取批次，必须在事务内调用
func (r *MaterialRepository) GetForUpdate(tx *gorm.DB, id string) (*entity.MaterialLot, error) {
	var lot entity.MaterialLot
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ? AND deleted_at IS NULL", id).First(&lot).Error
	if err != nil {
		return nil, err
	}
	return &lot, nil
}

// DB 返回底层db用于事务
func (r *MaterialRepository) DB() *gorm.DB {
	return r.db
}
