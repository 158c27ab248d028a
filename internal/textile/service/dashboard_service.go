package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/bitfantasy/texcore/internal/textile/entity"
	"github.com/bitfantasy/texcore/internal/textile/repository"
	"github.com/redis/go-redis/v9"
	"github.com/xuri/excelize/v2"
	"gorm.io/gorm"
)

// DashboardCacheTTL 看板统计缓存时长
const DashboardCacheTTL = 60 * time.Second

const adminStatsCacheKey = "texcore:dashboard:admin"

// DashboardService 看板与报表服务，聚合查询直接走db，管理员看板结果缓存60秒
type DashboardService struct {
	db  *gorm.DB
	rdb *redis.Client
}

func NewDashboardService(db *gorm.DB, rdb *redis.Client) *DashboardService {
	return &DashboardService{db: db, rdb: rdb}
}

// KindCount 按原料种类计数
type KindCount struct {
	MaterialKind string  `json:"material_kind"`
	Count        int64   `json:"count"`
	TotalQty     float64 `json:"total_qty"`
}

// MonthlyIntake 按月入库统计
type MonthlyIntake struct {
	Month    string  `json:"month"` // YYYY-MM
	Count    int64   `json:"count"`
	TotalQty float64 `json:"total_qty"`
}

// PreparerActivity 准备员工作量
type PreparerActivity struct {
	PreparerID string `json:"preparer_id"`
	Username   string `json:"username"`
	Total      int64  `json:"total"`
	Completed  int64  `json:"completed"`
}

// AdminStats 管理员看板数据
type AdminStats struct {
	TotalLots          int64                `json:"total_lots"`
	TotalStock         float64              `json:"total_stock"`
	TopKinds           []KindCount          `json:"top_kinds"`
	MonthlyIntakes     []MonthlyIntake      `json:"monthly_intakes"`
	RecentLots         []entity.MaterialLot `json:"recent_lots"`
	PreparationsByStat map[string]int64     `json:"preparations_by_status"`
	ProcessedByKind    []KindCount          `json:"processed_by_kind"`
	ActivePreparers    []PreparerActivity   `json:"active_preparers"`
}

// AdminStats 管理员看板。优先读缓存，缓存未命中时聚合查询并回写
func (s *DashboardService) AdminStats(ctx context.Context) (*AdminStats, error) {
	if s.rdb != nil {
		if raw, err := s.rdb.Get(ctx, adminStatsCacheKey).Result(); err == nil {
			var cached AdminStats
			if json.Unmarshal([]byte(raw), &cached) == nil {
				return &cached, nil
			}
		}
	}

	stats := &AdminStats{PreparationsByStat: make(map[string]int64)}

	if err := s.db.WithContext(ctx).Model(&entity.MaterialLot{}).
		Where("deleted_at IS NULL").Count(&stats.TotalLots).Error; err != nil {
		return nil, fmt.Errorf("统计批次总数失败: %w", err)
	}

	var sum struct{ Total float64 }
	if err := s.db.WithContext(ctx).Raw(`
		SELECT COALESCE(SUM(quantity), 0) as total
		FROM tex_material_lots WHERE deleted_at IS NULL
	`).Scan(&sum).Error; err != nil {
		return nil, fmt.Errorf("统计库存总量失败: %w", err)
	}
	stats.TotalStock = sum.Total

	if err := s.db.WithContext(ctx).Raw(`
		SELECT material_kind, COUNT(*) as count, COALESCE(SUM(quantity), 0) as total_qty
		FROM tex_material_lots WHERE deleted_at IS NULL
		GROUP BY material_kind ORDER BY count DESC LIMIT 5
	`).Scan(&stats.TopKinds).Error; err != nil {
		return nil, fmt.Errorf("统计原料种类失败: %w", err)
	}

	if err := s.db.WithContext(ctx).Raw(`
		SELECT to_char(intake_date, 'YYYY-MM') as month,
		       COUNT(*) as count, COALESCE(SUM(quantity), 0) as total_qty
		FROM tex_material_lots
		WHERE deleted_at IS NULL AND intake_date >= ?
		GROUP BY month ORDER BY month
	`, time.Now().AddDate(0, -6, 0)).Scan(&stats.MonthlyIntakes).Error; err != nil {
		return nil, fmt.Errorf("统计月度入库失败: %w", err)
	}

	if err := s.db.WithContext(ctx).
		Where("deleted_at IS NULL").
		Order("created_at DESC").Limit(5).
		Find(&stats.RecentLots).Error; err != nil {
		return nil, fmt.Errorf("查询最近批次失败: %w", err)
	}

	var stateCounts []struct {
		Status string
		Count  int64
	}
	if err := s.db.WithContext(ctx).Model(&entity.Preparation{}).
		Select("status, COUNT(*) as count").Group("status").
		Scan(&stateCounts).Error; err != nil {
		return nil, fmt.Errorf("统计准备工序状态失败: %w", err)
	}
	for _, sc := range stateCounts {
		stats.PreparationsByStat[sc.Status] = sc.Count
	}

	if err := s.db.WithContext(ctx).Raw(`
		SELECT l.material_kind, COUNT(*) as count, COALESCE(SUM(p.quantity), 0) as total_qty
		FROM tex_preparations p
		JOIN tex_material_lots l ON l.id = p.material_lot_id
		WHERE p.status = ?
		GROUP BY l.material_kind ORDER BY total_qty DESC
	`, entity.StatusCompleted).Scan(&stats.ProcessedByKind).Error; err != nil {
		return nil, fmt.Errorf("统计加工量失败: %w", err)
	}

	if err := s.db.WithContext(ctx).Raw(`
		SELECT p.preparer_id, u.username,
		       COUNT(*) as total,
		       COUNT(*) FILTER (WHERE p.status = ?) as completed
		FROM tex_preparations p
		JOIN tex_users u ON u.id = p.preparer_id
		GROUP BY p.preparer_id, u.username ORDER BY total DESC LIMIT 5
	`, entity.StatusCompleted).Scan(&stats.ActivePreparers).Error; err != nil {
		return nil, fmt.Errorf("统计准备员工作量失败: %w", err)
	}

	if s.rdb != nil {
		if raw, err := json.Marshal(stats); err == nil {
			s.rdb.Set(ctx, adminStatsCacheKey, raw, DashboardCacheTTL)
		}
	}
	return stats, nil
}

// OperatorStats 操作员个人看板
type OperatorStats struct {
	MyProcesses  map[string]int64 `json:"my_processes"`
	TotalOutput  float64          `json:"total_output"`
	AverageYield float64          `json:"average_yield"`
}

func (s *DashboardService) OperatorStats(ctx context.Context, operatorID string) (*OperatorStats, error) {
	stats := &OperatorStats{MyProcesses: make(map[string]int64)}

	var stateCounts []struct {
		Status string
		Count  int64
	}
	if err := s.db.WithContext(ctx).Model(&entity.SpinningProcess{}).
		Select("status, COUNT(*) as count").
		Where("operator_id = ?", operatorID).Group("status").
		Scan(&stateCounts).Error; err != nil {
		return nil, fmt.Errorf("统计纺纱工序失败: %w", err)
	}
	for _, sc := range stateCounts {
		stats.MyProcesses[sc.Status] = sc.Count
	}

	var agg struct {
		TotalIn  float64
		TotalOut float64
	}
	if err := s.db.WithContext(ctx).Raw(`
		SELECT COALESCE(SUM(input_fiber_qty), 0) as total_in,
		       COALESCE(SUM(output_yarn_qty), 0) as total_out
		FROM tex_spinning_processes
		WHERE operator_id = ? AND status = ?
	`, operatorID, entity.StatusCompleted).Scan(&agg).Error; err != nil {
		return nil, fmt.Errorf("统计产量失败: %w", err)
	}
	stats.TotalOutput = agg.TotalOut
	if agg.TotalIn > 0 {
		stats.AverageYield = agg.TotalOut / agg.TotalIn * 100
	}
	return stats, nil
}

// PreparerStats 准备员个人看板
type PreparerStats struct {
	MyPreparations map[string]int64 `json:"my_preparations"`
	ProcessedQty   float64          `json:"processed_qty"`
	AvailableLots  int64            `json:"available_lots"`
}

func (s *DashboardService) PreparerStats(ctx context.Context, preparerID string) (*PreparerStats, error) {
	stats := &PreparerStats{MyPreparations: make(map[string]int64)}

	var stateCounts []struct {
		Status string
		Count  int64
	}
	if err := s.db.WithContext(ctx).Model(&entity.Preparation{}).
		Select("status, COUNT(*) as count").
		Where("preparer_id = ?", preparerID).Group("status").
		Scan(&stateCounts).Error; err != nil {
		return nil, fmt.Errorf("统计准备工序失败: %w", err)
	}
	for _, sc := range stateCounts {
		stats.MyPreparations[sc.Status] = sc.Count
	}

	var sum struct{ Total float64 }
	if err := s.db.WithContext(ctx).Raw(`
		SELECT COALESCE(SUM(quantity), 0) as total
		FROM tex_preparations WHERE preparer_id = ? AND status = ?
	`, preparerID, entity.StatusCompleted).Scan(&sum).Error; err != nil {
		return nil, fmt.Errorf("统计加工量失败: %w", err)
	}
	stats.ProcessedQty = sum.Total

	if err := s.db.WithContext(ctx).Raw(`
		SELECT COUNT(*) FROM tex_material_lots l
		WHERE l.quantity > 0 AND l.deleted_at IS NULL
		  AND NOT EXISTS (
		    SELECT 1 FROM tex_preparations p
		    WHERE p.material_lot_id = l.id AND p.status IN (?, ?)
		  )
	`, entity.StatusPending, entity.StatusInProgress).Scan(&stats.AvailableLots).Error; err != nil {
		return nil, fmt.Errorf("统计可用批次失败: %w", err)
	}
	return stats, nil
}

// ReportKindSummary 报表中按工序类型的汇总行
type ReportKindSummary struct {
	ProcessKind string  `json:"process_kind"`
	Count       int64   `json:"count"`
	TotalQty    float64 `json:"total_qty"`
	Percentage  float64 `json:"percentage"`
}

// PreparationReport 准备工序报表
type PreparationReport struct {
	Items     []entity.Preparation `json:"items"`
	Total     int64                `json:"total"`
	TotalQty  float64              `json:"total_qty"`
	Summaries []ReportKindSummary  `json:"summaries"`
}

// PreparationReport 按条件汇总准备工序，附按工序类型的数量占比
func (s *DashboardService) PreparationReport(ctx context.Context, params repository.PreparationListParams) (*PreparationReport, error) {
	query := s.db.WithContext(ctx).Model(&entity.Preparation{})
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

	report := &PreparationReport{}
	if err := query.Session(&gorm.Session{}).Count(&report.Total).Error; err != nil {
		return nil, fmt.Errorf("统计报表条数失败: %w", err)
	}
	if err := query.Session(&gorm.Session{}).
		Preload("MaterialLot").Preload("Preparer").
		Order("started_at DESC").
		Find(&report.Items).Error; err != nil {
		return nil, fmt.Errorf("查询报表明细失败: %w", err)
	}

	kindTotals := make(map[string]*ReportKindSummary)
	for _, item := range report.Items {
		report.TotalQty += item.Quantity
		summary, ok := kindTotals[item.ProcessKind]
		if !ok {
			summary = &ReportKindSummary{ProcessKind: item.ProcessKind}
			kindTotals[item.ProcessKind] = summary
		}
		summary.Count++
		summary.TotalQty += item.Quantity
	}
	for _, kind := range entity.ValidProcessKinds {
		summary, ok := kindTotals[kind]
		if !ok {
			continue
		}
		if report.TotalQty > 0 {
			summary.Percentage = summary.TotalQty / report.TotalQty * 100
		}
		report.Summaries = append(report.Summaries, *summary)
	}
	return report, nil
}

// ExportPreparationsXLSX 导出准备工序报表为xlsx
func (s *DashboardService) ExportPreparationsXLSX(ctx context.Context, params repository.PreparationListParams) (*excelize.File, error) {
	report, err := s.PreparationReport(ctx, params)
	if err != nil {
		return nil, err
	}

	f := excelize.NewFile()
	const sheet = "Preparations"
	f.SetSheetName("Sheet1", sheet)

	headers := []string{"批次号", "原料种类", "工序类型", "状态", "数量", "单位", "准备员", "开始时间", "完成时间"}
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		f.SetCellValue(sheet, cell, h)
	}

	for row, item := range report.Items {
		lotCode, kind, unit := "", "", ""
		if item.MaterialLot != nil {
			lotCode = item.MaterialLot.LotCode
			kind = item.MaterialLot.MaterialKind
			unit = item.MaterialLot.Unit
		}
		preparer := ""
		if item.Preparer != nil {
			preparer = item.Preparer.Username
		}
		completed := ""
		if item.CompletedAt != nil {
			completed = item.CompletedAt.Format("2006-01-02 15:04")
		}
		values := []interface{}{
			lotCode, kind, item.ProcessKind, item.Status,
			item.Quantity, unit, preparer,
			item.StartedAt.Format("2006-01-02 15:04"), completed,
		}
		for col, v := range values {
			cell, _ := excelize.CoordinatesToCellName(col+1, row+2)
			f.SetCellValue(sheet, cell, v)
		}
	}

	summaryRow := len(report.Items) + 3
	f.SetCellValue(sheet, fmt.Sprintf("A%d", summaryRow), "工序类型汇总")
	for i, summary := range report.Summaries {
		r := summaryRow + 1 + i
		f.SetCellValue(sheet, fmt.Sprintf("A%d", r), summary.ProcessKind)
		f.SetCellValue(sheet, fmt.Sprintf("B%d", r), summary.Count)
		f.SetCellValue(sheet, fmt.Sprintf("C%d", r), summary.TotalQty)
		f.SetCellValue(sheet, fmt.Sprintf("D%d", r), fmt.Sprintf("%.1f%%", summary.Percentage))
	}
	return f, nil
}
