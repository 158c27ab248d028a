package service

import (
	"context"
	"fmt"
	"time"

	"github.com/bitfantasy/texcore/internal/textile/entity"
	"github.com/bitfantasy/texcore/internal/textile/repository"
	"github.com/google/uuid"
)

// SpinningService 纺纱工序服务
type SpinningService struct {
	repo     *repository.SpinningRepository
	prepRepo *repository.PreparationRepository
}

func NewSpinningService(repo *repository.SpinningRepository, prepRepo *repository.PreparationRepository) *SpinningService {
	return &SpinningService{repo: repo, prepRepo: prepRepo}
}

func (s *SpinningService) List(ctx context.Context, params repository.SpinningListParams) ([]entity.SpinningProcess, int64, error) {
	return s.repo.List(ctx, params)
}

func (s *SpinningService) GetByID(ctx context.Context, id string) (*entity.SpinningProcess, error) {
	return s.repo.GetByID(ctx, id)
}

// ListMine 指定操作员的纺纱工序列表
func (s *SpinningService) ListMine(ctx context.Context, operatorID string, page, size int) ([]entity.SpinningProcess, int64, error) {
	return s.repo.List(ctx, repository.SpinningListParams{
		OperatorID: operatorID,
		Page:       page,
		Size:       size,
	})
}

func isValidSpinningStage(stage string) bool {
	for _, st := range entity.ValidSpinningStages {
		if st == stage {
			return true
		}
	}
	return false
}

type CreateSpinningRequest struct {
	PreparationID *string  `json:"preparation_id"`
	Stage         string   `json:"stage" binding:"required"`
	InputFiberQty float64  `json:"input_fiber_qty" binding:"required,gt=0"`
	YarnCount     string   `json:"yarn_count"`
	Twist         *float64 `json:"twist" binding:"omitempty,gte=0"`
	Tenacity      *float64 `json:"tenacity" binding:"omitempty,gte=0"`
	Observations  string   `json:"observations"`
}

// Create 创建纺纱工序。来源准备工序可选，指定时必须是已完成且数量大于0的工序
func (s *SpinningService) Create(ctx context.Context, req CreateSpinningRequest, operatorID string) (*entity.SpinningProcess, error) {
	if !isValidSpinningStage(req.Stage) {
		return nil, fmt.Errorf("无效纺纱阶段: %s", req.Stage)
	}

	if req.PreparationID != nil && *req.PreparationID != "" {
		prep, err := s.prepRepo.GetByID(ctx, *req.PreparationID)
		if err != nil {
			return nil, err
		}
		if prep.Status != entity.StatusCompleted {
			return nil, fmt.Errorf("来源准备工序未完成: %s", prep.Status)
		}
		if prep.Quantity <= 0 {
			return nil, fmt.Errorf("来源准备工序数量为0，不能作为纺纱投入")
		}
	} else {
		req.PreparationID = nil
	}

	proc := &entity.SpinningProcess{
		ID:            uuid.New().String(),
		PreparationID: req.PreparationID,
		Stage:         req.Stage,
		Status:        entity.StatusPending,
		InputFiberQty: req.InputFiberQty,
		YarnCount:     req.YarnCount,
		Twist:         req.Twist,
		Tenacity:      req.Tenacity,
		Observations:  req.Observations,
		OperatorID:    operatorID,
		StartedAt:     time.Now(),
	}
	if err := s.repo.Create(ctx, proc); err != nil {
		return nil, fmt.Errorf("创建纺纱工序失败: %w", err)
	}
	return proc, nil
}

// Start 开始纺纱工序：pending → in_progress，仅限指派操作员
func (s *SpinningService) Start(ctx context.Context, id, actorID string) (*entity.SpinningProcess, error) {
	proc, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if proc.OperatorID != actorID {
		return nil, fmt.Errorf("只能开始自己的纺纱工序")
	}
	if proc.Status != entity.StatusPending {
		return nil, fmt.Errorf("当前状态不允许开始: %s", proc.Status)
	}

	proc.Status = entity.StatusInProgress
	if err := s.repo.Update(ctx, proc); err != nil {
		return nil, fmt.Errorf("更新纺纱工序失败: %w", err)
	}
	return proc, nil
}

type CompleteSpinningRequest struct {
	OutputYarnQty float64  `json:"output_yarn_qty" binding:"gte=0"`
	QualityGrade  string   `json:"quality_grade"`
	Twist         *float64 `json:"twist" binding:"omitempty,gte=0"`
	Tenacity      *float64 `json:"tenacity" binding:"omitempty,gte=0"`
	Observations  *string  `json:"observations"`
}

// Complete 完成纺纱工序，录入产出数据。产出率损耗率不落库，由实体方法派生
func (s *SpinningService) Complete(ctx context.Context, id, actorID string, req CompleteSpinningRequest) (*entity.SpinningProcess, error) {
	proc, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if proc.OperatorID != actorID {
		return nil, fmt.Errorf("只能完成自己的纺纱工序")
	}
	if proc.Status != entity.StatusInProgress {
		return nil, fmt.Errorf("当前状态不允许完成: %s", proc.Status)
	}
	if req.OutputYarnQty > proc.InputFiberQty {
		return nil, fmt.Errorf("产纱量不能超过投入量: 投入%.4f, 产出%.4f",
			proc.InputFiberQty, req.OutputYarnQty)
	}

	now := time.Now()
	proc.Status = entity.StatusCompleted
	proc.CompletedAt = &now
	proc.OutputYarnQty = req.OutputYarnQty
	if req.QualityGrade != "" {
		proc.QualityGrade = req.QualityGrade
	}
	if req.Twist != nil {
		proc.Twist = req.Twist
	}
	if req.Tenacity != nil {
		proc.Tenacity = req.Tenacity
	}
	if req.Observations != nil {
		proc.Observations = *req.Observations
	}

	if err := s.repo.Update(ctx, proc); err != nil {
		return nil, fmt.Errorf("更新纺纱工序失败: %w", err)
	}
	return proc, nil
}

// Reject 驳回纺纱工序。任何非终态均可驳回，仅限指派操作员或管理员
func (s *SpinningService) Reject(ctx context.Context, id, actorID, actorRole string) (*entity.SpinningProcess, error) {
	proc, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if actorRole != entity.RoleAdmin && proc.OperatorID != actorID {
		return nil, fmt.Errorf("只能驳回自己的纺纱工序")
	}
	if entity.IsTerminalStatus(proc.Status) {
		return nil, fmt.Errorf("当前状态不允许驳回: %s", proc.Status)
	}

	proc.Status = entity.StatusRejected
	if err := s.repo.Update(ctx, proc); err != nil {
		return nil, fmt.Errorf("更新纺纱工序失败: %w", err)
	}
	return proc, nil
}

type UpdateSpinningRequest struct {
	Stage         *string  `json:"stage"`
	InputFiberQty *float64 `json:"input_fiber_qty"`
	YarnCount     *string  `json:"yarn_count"`
	Twist         *float64 `json:"twist"`
	Tenacity      *float64 `json:"tenacity"`
	Observations  *string  `json:"observations"`
}

// Update 编辑纺纱工序。已完成的工序不可修改
func (s *SpinningService) Update(ctx context.Context, id, actorID string, req UpdateSpinningRequest) (*entity.SpinningProcess, error) {
	proc, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if proc.OperatorID != actorID {
		return nil, fmt.Errorf("只能编辑自己的纺纱工序")
	}
	if proc.Status == entity.StatusCompleted {
		return nil, fmt.Errorf("已完成的纺纱工序不能编辑")
	}

	if req.Stage != nil {
		if !isValidSpinningStage(*req.Stage) {
			return nil, fmt.Errorf("无效纺纱阶段: %s", *req.Stage)
		}
		proc.Stage = *req.Stage
	}
	if req.InputFiberQty != nil {
		if *req.InputFiberQty <= 0 {
			return nil, fmt.Errorf("投入量必须大于0")
		}
		proc.InputFiberQty = *req.InputFiberQty
	}
	if req.YarnCount != nil {
		proc.YarnCount = *req.YarnCount
	}
	if req.Twist != nil {
		proc.Twist = req.Twist
	}
	if req.Tenacity != nil {
		proc.Tenacity = req.Tenacity
	}
	if req.Observations != nil {
		proc.Observations = *req.Observations
	}

	if err := s.repo.Update(ctx, proc); err != nil {
		return nil, fmt.Errorf("更新纺纱工序失败: %w", err)
	}
	return proc, nil
}

// Delete 删除纺纱工序，仅限pending或rejected状态（管理员操作，在路由层限制）
func (s *SpinningService) Delete(ctx context.Context, id string) error {
	proc, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if proc.Status != entity.StatusPending && proc.Status != entity.StatusRejected {
		return fmt.Errorf("当前状态不允许删除: %s", proc.Status)
	}
	if err := s.repo.Delete(ctx, proc); err != nil {
		return fmt.Errorf("删除纺纱工序失败: %w", err)
	}
	return nil
}

type AddSpinningDetailRequest struct {
	MachineSpeed       *float64 `json:"machine_speed" binding:"omitempty,gte=0"`
	Temperature        *float64 `json:"temperature"`
	Humidity           *float64 `json:"humidity" binding:"omitempty,gte=0,lte=100"`
	Machine            string   `json:"machine"`
	SpindleCount       *int     `json:"spindle_count" binding:"omitempty,gte=0"`
	CardingSpeed       *float64 `json:"carding_speed" binding:"omitempty,gte=0"`
	FiberCleanliness   string   `json:"fiber_cleanliness"`
	RemovedImpurityPct *float64 `json:"removed_impurity_pct" binding:"omitempty,gte=0,lte=100"`
	RemovedFiberLength *float64 `json:"removed_fiber_length" binding:"omitempty,gte=0"`
	TwistGrade         string   `json:"twist_grade"`
	Uniformity         *float64 `json:"uniformity" binding:"omitempty,gte=0,lte=100"`
	ProcessMinutes     *int     `json:"process_minutes" binding:"omitempty,gte=0"`
	DefectsFound       string   `json:"defects_found"`
	TechnicalNotes     string   `json:"technical_notes"`
}

// AddDetail 追加技术明细，仅限指派操作员，工序须处于进行中或已完成
func (s *SpinningService) AddDetail(ctx context.Context, id, actorID string, req AddSpinningDetailRequest) (*entity.SpinningDetail, error) {
	proc, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if proc.OperatorID != actorID {
		return nil, fmt.Errorf("只能给自己的纺纱工序添加明细")
	}
	if proc.Status != entity.StatusInProgress && proc.Status != entity.StatusCompleted {
		return nil, fmt.Errorf("当前状态不允许添加明细: %s", proc.Status)
	}

	detail := &entity.SpinningDetail{
		ID:                 uuid.New().String(),
		SpinningProcessID:  proc.ID,
		MachineSpeed:       req.MachineSpeed,
		Temperature:        req.Temperature,
		Humidity:           req.Humidity,
		Machine:            req.Machine,
		SpindleCount:       req.SpindleCount,
		CardingSpeed:       req.CardingSpeed,
		FiberCleanliness:   req.FiberCleanliness,
		RemovedImpurityPct: req.RemovedImpurityPct,
		RemovedFiberLength: req.RemovedFiberLength,
		TwistGrade:         req.TwistGrade,
		Uniformity:         req.Uniformity,
		ProcessMinutes:     req.ProcessMinutes,
		DefectsFound:       req.DefectsFound,
		TechnicalNotes:     req.TechnicalNotes,
	}
	if err := s.repo.CreateDetail(ctx, detail); err != nil {
		return nil, fmt.Errorf("添加明细失败: %w", err)
	}
	return detail, nil
}

// SpinningStats 纺纱统计
type SpinningStats struct {
	ByStatus     map[string]int64 `json:"by_status"`
	ByStage      map[string]int64 `json:"by_stage"`
	TotalOutput  float64          `json:"total_output"`
	AverageYield float64          `json:"average_yield"`
}

// Stats 纺纱工序统计汇总
func (s *SpinningService) Stats(ctx context.Context) (*SpinningStats, error) {
	stats := &SpinningStats{
		ByStatus: make(map[string]int64),
		ByStage:  make(map[string]int64),
	}
	for _, status := range []string{entity.StatusPending, entity.StatusInProgress, entity.StatusCompleted, entity.StatusRejected} {
		count, err := s.repo.CountByStatus(ctx, status)
		if err != nil {
			return nil, fmt.Errorf("统计状态失败: %w", err)
		}
		stats.ByStatus[status] = count
	}
	for _, stage := range entity.ValidSpinningStages {
		count, err := s.repo.CountByStage(ctx, stage)
		if err != nil {
			return nil, fmt.Errorf("统计阶段失败: %w", err)
		}
		stats.ByStage[stage] = count
	}

	total, err := s.repo.TotalYarnOutput(ctx)
	if err != nil {
		return nil, fmt.Errorf("统计产纱量失败: %w", err)
	}
	stats.TotalOutput = total

	avg, err := s.repo.AverageYield(ctx)
	if err != nil {
		return nil, fmt.Errorf("统计产出率失败: %w", err)
	}
	stats.AverageYield = avg

	return stats, nil
}
