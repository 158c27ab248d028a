package service

import (
	"context"
	"fmt"
	"time"

	"github.com/bitfantasy/texcore/internal/textile/entity"
	"github.com/bitfantasy/texcore/internal/textile/repository"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// LowStockThreshold 低库存预警阈值：完成后剩余不足当前库存的20%即告警
const LowStockThreshold = 0.2

// PreparationService 准备工序服务。创建时不扣库存，只做软预占；
// 完成时在事务内加行锁复核并扣减，是防止超耗的唯一硬校验点
type PreparationService struct {
	repo    *repository.PreparationRepository
	matRepo *repository.MaterialRepository
	db      *gorm.DB
}

func NewPreparationService(repo *repository.PreparationRepository, matRepo *repository.MaterialRepository, db *gorm.DB) *PreparationService {
	return &PreparationService{repo: repo, matRepo: matRepo, db: db}
}

func (s *PreparationService) List(ctx context.Context, params repository.PreparationListParams) ([]entity.Preparation, int64, error) {
	return s.repo.List(ctx, params)
}

func (s *PreparationService) GetByID(ctx context.Context, id string) (*entity.Preparation, error) {
	return s.repo.GetByID(ctx, id)
}

// ListMine 指定准备员的工序列表
func (s *PreparationService) ListMine(ctx context.Context, preparerID string, page, size int) ([]entity.Preparation, int64, error) {
	return s.repo.List(ctx, repository.PreparationListParams{
		PreparerID: preparerID,
		Page:       page,
		Size:       size,
	})
}

// ListCompleted 已完成的准备工序，供纺纱选择来源
func (s *PreparationService) ListCompleted(ctx context.Context) ([]entity.Preparation, error) {
	return s.repo.ListCompleted(ctx)
}

type CreatePreparationRequest struct {
	MaterialLotID string   `json:"material_lot_id" binding:"required"`
	ProcessKind   string   `json:"process_kind" binding:"required"`
	Quantity      float64  `json:"quantity" binding:"required,gt=0"`
	MixPercentage *float64 `json:"mix_percentage" binding:"omitempty,gte=0,lte=100"`
	QualityGrade  string   `json:"quality_grade"`
	Observations  string   `json:"observations"`
}

func isValidProcessKind(kind string) bool {
	for _, k := range entity.ValidProcessKinds {
		if k == kind {
			return true
		}
	}
	return false
}

// Create 创建准备工序。校验库存充足但不扣减，预占只通过可用批次查询表达。
// 返回的 warning 非空时表示完成后库存将低于20%，不阻塞创建
func (s *PreparationService) Create(ctx context.Context, req CreatePreparationRequest, preparerID string) (*entity.Preparation, string, error) {
	if !isValidProcessKind(req.ProcessKind) {
		return nil, "", fmt.Errorf("无效工序类型: %s", req.ProcessKind)
	}

	lot, err := s.matRepo.GetByID(ctx, req.MaterialLotID)
	if err != nil {
		return nil, "", err
	}

	if lot.Quantity < req.Quantity {
		return nil, "", fmt.Errorf("库存不足: 可用%.4f%s, 需要%.4f%s",
			lot.Quantity, lot.Unit, req.Quantity, lot.Unit)
	}

	var warning string
	remaining := lot.Quantity - req.Quantity
	if remaining < lot.Quantity*LowStockThreshold {
		warning = fmt.Sprintf("完成后 %s 批次仅剩 %.4f%s（低于当前库存的20%%）",
			lot.MaterialKind, remaining, lot.Unit)
	}

	prep := &entity.Preparation{
		ID:            uuid.New().String(),
		MaterialLotID: lot.ID,
		ProcessKind:   req.ProcessKind,
		Status:        entity.StatusPending,
		Quantity:      req.Quantity,
		MixPercentage: req.MixPercentage,
		QualityGrade:  req.QualityGrade,
		Observations:  req.Observations,
		PreparerID:    preparerID,
		StartedAt:     time.Now(),
	}
	if err := s.repo.Create(ctx, prep); err != nil {
		return nil, "", fmt.Errorf("创建准备工序失败: %w", err)
	}
	return prep, warning, nil
}

// Start 开始准备工序：pending → in_progress，仅限指派的准备员
func (s *PreparationService) Start(ctx context.Context, id, actorID string) (*entity.Preparation, error) {
	prep, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if prep.PreparerID != actorID {
		return nil, fmt.Errorf("只能开始自己的准备工序")
	}
	if prep.Status != entity.StatusPending {
		return nil, fmt.Errorf("当前状态不允许开始: %s", prep.Status)
	}

	prep.Status = entity.StatusInProgress
	if err := s.repo.Update(ctx, prep); err != nil {
		return nil, fmt.Errorf("更新准备工序失败: %w", err)
	}
	return prep, nil
}

// Complete 完成准备工序并扣减批次库存。
// 工序行和批次行都加 FOR UPDATE 锁，状态与库存在事务内复核后一并写入，
// 并发完成只有一个能成功，完成时复核库存是唯一的硬校验
func (s *PreparationService) Complete(ctx context.Context, id, actorID string) (*entity.Preparation, error) {
	prep, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if prep.PreparerID != actorID {
		return nil, fmt.Errorf("只能完成自己的准备工序")
	}
	if prep.Status != entity.StatusInProgress {
		return nil, fmt.Errorf("当前状态不允许完成: %s", prep.Status)
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		locked, err := s.repo.GetForUpdate(tx, prep.ID)
		if err != nil {
			return fmt.Errorf("准备工序不存在: %w", err)
		}
		if locked.Status != entity.StatusInProgress {
			return fmt.Errorf("当前状态不允许完成: %s", locked.Status)
		}

		lot, err := s.matRepo.GetForUpdate(tx, locked.MaterialLotID)
		if err != nil {
			return fmt.Errorf("原料批次不存在: %w", err)
		}

		if lot.Quantity < locked.Quantity {
			return fmt.Errorf("库存不足: 可用%.4f%s, 需要%.4f%s",
				lot.Quantity, lot.Unit, locked.Quantity, lot.Unit)
		}

		lot.Quantity -= locked.Quantity
		if err := tx.Save(lot).Error; err != nil {
			return fmt.Errorf("扣减库存失败: %w", err)
		}

		now := time.Now()
		locked.Status = entity.StatusCompleted
		locked.CompletedAt = &now
		if err := tx.Save(locked).Error; err != nil {
			return fmt.Errorf("更新准备工序失败: %w", err)
		}
		prep.Status = locked.Status
		prep.CompletedAt = locked.CompletedAt
		return nil
	})
	if err != nil {
		return nil, err
	}
	return prep, nil
}

// Reject 驳回准备工序。任何非终态均可驳回，仅限指派准备员或管理员
func (s *PreparationService) Reject(ctx context.Context, id, actorID, actorRole string) (*entity.Preparation, error) {
	prep, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if actorRole != entity.RoleAdmin && prep.PreparerID != actorID {
		return nil, fmt.Errorf("只能驳回自己的准备工序")
	}
	if entity.IsTerminalStatus(prep.Status) {
		return nil, fmt.Errorf("当前状态不允许驳回: %s", prep.Status)
	}

	prep.Status = entity.StatusRejected
	if err := s.repo.Update(ctx, prep); err != nil {
		return nil, fmt.Errorf("更新准备工序失败: %w", err)
	}
	return prep, nil
}

type UpdatePreparationRequest struct {
	ProcessKind   *string  `json:"process_kind"`
	Quantity      *float64 `json:"quantity"`
	MixPercentage *float64 `json:"mix_percentage"`
	QualityGrade  *string  `json:"quality_grade"`
	Observations  *string  `json:"observations"`
}

// Update 编辑准备工序，仅限pending状态且指派准备员本人
func (s *PreparationService) Update(ctx context.Context, id, actorID string, req UpdatePreparationRequest) (*entity.Preparation, error) {
	prep, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if prep.PreparerID != actorID {
		return nil, fmt.Errorf("只能编辑自己的准备工序")
	}
	if prep.Status != entity.StatusPending {
		return nil, fmt.Errorf("只有待处理的准备工序才能编辑")
	}

	if req.ProcessKind != nil {
		if !isValidProcessKind(*req.ProcessKind) {
			return nil, fmt.Errorf("无效工序类型: %s", *req.ProcessKind)
		}
		prep.ProcessKind = *req.ProcessKind
	}
	if req.Quantity != nil {
		if *req.Quantity <= 0 {
			return nil, fmt.Errorf("数量必须大于0")
		}
		lot, err := s.matRepo.GetByID(ctx, prep.MaterialLotID)
		if err != nil {
			return nil, err
		}
		if lot.Quantity < *req.Quantity {
			return nil, fmt.Errorf("库存不足: 可用%.4f%s, 需要%.4f%s",
				lot.Quantity, lot.Unit, *req.Quantity, lot.Unit)
		}
		prep.Quantity = *req.Quantity
	}
	if req.MixPercentage != nil {
		if *req.MixPercentage < 0 || *req.MixPercentage > 100 {
			return nil, fmt.Errorf("混比必须在0到100之间")
		}
		prep.MixPercentage = req.MixPercentage
	}
	if req.QualityGrade != nil {
		prep.QualityGrade = *req.QualityGrade
	}
	if req.Observations != nil {
		prep.Observations = *req.Observations
	}

	if err := s.repo.Update(ctx, prep); err != nil {
		return nil, fmt.Errorf("更新准备工序失败: %w", err)
	}
	return prep, nil
}

// Delete 删除准备工序，仅限pending状态（管理员操作，在路由层限制）
func (s *PreparationService) Delete(ctx context.Context, id string) error {
	prep, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if prep.Status != entity.StatusPending {
		return fmt.Errorf("只有待处理的准备工序才能删除")
	}
	if err := s.repo.Delete(ctx, prep); err != nil {
		return fmt.Errorf("删除准备工序失败: %w", err)
	}
	return nil
}

type AddPreparationDetailRequest struct {
	Temperature    *float64 `json:"temperature"`
	Humidity       *float64 `json:"humidity" binding:"omitempty,gte=0,lte=100"`
	ProcessMinutes *int     `json:"process_minutes" binding:"omitempty,gte=0"`
	Equipment      string   `json:"equipment"`
	YieldPercent   *float64 `json:"yield_percent" binding:"omitempty,gte=0,lte=100"`
	WastePercent   *float64 `json:"waste_percent" binding:"omitempty,gte=0,lte=100"`
	TechnicalNotes string   `json:"technical_notes"`
}

// AddDetail 追加技术明细，仅限指派准备员，工序须处于进行中或已完成
func (s *PreparationService) AddDetail(ctx context.Context, id, actorID string, req AddPreparationDetailRequest) (*entity.PreparationDetail, error) {
	prep, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if prep.PreparerID != actorID {
		return nil, fmt.Errorf("只能给自己的准备工序添加明细")
	}
	if prep.Status != entity.StatusInProgress && prep.Status != entity.StatusCompleted {
		return nil, fmt.Errorf("当前状态不允许添加明细: %s", prep.Status)
	}

	detail := &entity.PreparationDetail{
		ID:             uuid.New().String(),
		PreparationID:  prep.ID,
		Temperature:    req.Temperature,
		Humidity:       req.Humidity,
		ProcessMinutes: req.ProcessMinutes,
		Equipment:      req.Equipment,
		YieldPercent:   req.YieldPercent,
		WastePercent:   req.WastePercent,
		TechnicalNotes: req.TechnicalNotes,
	}
	if err := s.repo.CreateDetail(ctx, detail); err != nil {
		return nil, fmt.Errorf("添加明细失败: %w", err)
	}
	return detail, nil
}
