package service

import (
	"context"
	"fmt"
	"time"

	"github.com/bitfantasy/texcore/internal/textile/entity"
	"github.com/bitfantasy/texcore/internal/textile/repository"
	"github.com/google/uuid"
)

// MaterialService 原料批次服务
type MaterialService struct {
	repo *repository.MaterialRepository
}

func NewMaterialService(repo *repository.MaterialRepository) *MaterialService {
	return &MaterialService{repo: repo}
}

func (s *MaterialService) List(ctx context.Context, params repository.MaterialListParams) ([]entity.MaterialLot, int64, error) {
	return s.repo.List(ctx, params)
}

func (s *MaterialService) GetByID(ctx context.Context, id string) (*entity.MaterialLot, error) {
	return s.repo.GetByID(ctx, id)
}

// ListAvailable 可用于准备工序的批次
func (s *MaterialService) ListAvailable(ctx context.Context) ([]entity.MaterialLot, error) {
	return s.repo.ListAvailableForPreparation(ctx)
}

type CreateMaterialRequest struct {
	MaterialKind string  `json:"material_kind" binding:"required"`
	Quantity     float64 `json:"quantity" binding:"gte=0"`
	Unit         string  `json:"unit"`
	LotCode      string  `json:"lot_code"`
	IntakeDate   string  `json:"intake_date"` // YYYY-MM-DD
}

// Create 入库登记。数量缺省为0，允许为0
func (s *MaterialService) Create(ctx context.Context, req CreateMaterialRequest, userID string) (*entity.MaterialLot, error) {
	unit := req.Unit
	if unit == "" {
		unit = "kg"
	}

	lot := &entity.MaterialLot{
		ID:           uuid.New().String(),
		MaterialKind: req.MaterialKind,
		Quantity:     req.Quantity,
		Unit:         unit,
		LotCode:      req.LotCode,
	}
	if userID != "" {
		lot.RegisteredBy = &userID
	}
	if req.IntakeDate != "" {
		t, err := time.Parse("2006-01-02", req.IntakeDate)
		if err != nil {
			return nil, fmt.Errorf("入库日期格式无效: %s", req.IntakeDate)
		}
		lot.IntakeDate = &t
	}

	if err := s.repo.Create(ctx, lot); err != nil {
		return nil, fmt.Errorf("创建原料批次失败: %w", err)
	}
	return lot, nil
}

type UpdateMaterialRequest struct {
	MaterialKind *string  `json:"material_kind"`
	Quantity     *float64 `json:"quantity"`
	Unit         *string  `json:"unit"`
	LotCode      *string  `json:"lot_code"`
	IntakeDate   *string  `json:"intake_date"`
}

// Update 只更新提交的字段
func (s *MaterialService) Update(ctx context.Context, id string, req UpdateMaterialRequest) (*entity.MaterialLot, error) {
	lot, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.MaterialKind != nil {
		lot.MaterialKind = *req.MaterialKind
	}
	if req.Quantity != nil {
		if *req.Quantity < 0 {
			return nil, fmt.Errorf("数量不能为负数")
		}
		lot.Quantity = *req.Quantity
	}
	if req.Unit != nil {
		lot.Unit = *req.Unit
	}
	if req.LotCode != nil {
		lot.LotCode = *req.LotCode
	}
	if req.IntakeDate != nil {
		if *req.IntakeDate == "" {
			lot.IntakeDate = nil
		} else {
			t, err := time.Parse("2006-01-02", *req.IntakeDate)
			if err != nil {
				return nil, fmt.Errorf("入库日期格式无效: %s", *req.IntakeDate)
			}
			lot.IntakeDate = &t
		}
	}

	if err := s.repo.Update(ctx, lot); err != nil {
		return nil, fmt.Errorf("更新原料批次失败: %w", err)
	}
	return lot, nil
}

// Delete 删除批次。存在任何关联准备工序时拒绝删除，不做级联
func (s *MaterialService) Delete(ctx context.Context, id string) error {
	lot, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}

	count, err := s.repo.CountPreparationsByLot(ctx, id)
	if err != nil {
		return fmt.Errorf("检查关联准备工序失败: %w", err)
	}
	if count > 0 {
		return fmt.Errorf("批次已被 %d 个准备工序引用，不能删除", count)
	}

	if err := s.repo.SoftDelete(ctx, lot); err != nil {
		return fmt.Errorf("删除原料批次失败: %w", err)
	}
	return nil
}

// CheckSufficient 检查批次库存是否满足需求
func (s *MaterialService) CheckSufficient(lot *entity.MaterialLot, required float64) (bool, string) {
	if lot.Quantity < required {
		return false, fmt.Sprintf("库存不足: 可用%.4f%s, 需要%.4f%s",
			lot.Quantity, lot.Unit, required, lot.Unit)
	}
	return true, ""
}
