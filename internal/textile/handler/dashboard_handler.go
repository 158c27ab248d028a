package handler

import (
	"fmt"
	"time"

	"github.com/bitfantasy/texcore/internal/textile/repository"
	"github.com/bitfantasy/texcore/internal/textile/service"
	"github.com/gin-gonic/gin"
)

// DashboardHandler 看板与报表处理器
type DashboardHandler struct {
	svc *service.DashboardService
}

func NewDashboardHandler(svc *service.DashboardService) *DashboardHandler {
	return &DashboardHandler{svc: svc}
}

// AdminStats 管理员看板
// GET /api/v1/dashboard/admin
func (h *DashboardHandler) AdminStats(c *gin.Context) {
	stats, err := h.svc.AdminStats(c.Request.Context())
	if err != nil {
		InternalError(c, "获取看板数据失败: "+err.Error())
		return
	}
	Success(c, stats)
}

// OperatorStats 操作员个人看板
// GET /api/v1/dashboard/operator
func (h *DashboardHandler) OperatorStats(c *gin.Context) {
	stats, err := h.svc.OperatorStats(c.Request.Context(), GetUserID(c))
	if err != nil {
		InternalError(c, "获取看板数据失败: "+err.Error())
		return
	}
	Success(c, stats)
}

// PreparerStats 准备员个人看板
// GET /api/v1/dashboard/preparer
func (h *DashboardHandler) PreparerStats(c *gin.Context) {
	stats, err := h.svc.PreparerStats(c.Request.Context(), GetUserID(c))
	if err != nil {
		InternalError(c, "获取看板数据失败: "+err.Error())
		return
	}
	Success(c, stats)
}

func reportParams(c *gin.Context) repository.PreparationListParams {
	return repository.PreparationListParams{
		Estado:      c.Query("estado"),
		TipoProceso: c.Query("tipo_proceso"),
		FechaDesde:  c.Query("fecha_desde"),
		FechaHasta:  c.Query("fecha_hasta"),
	}
}

// PreparationReport 准备工序报表
// GET /api/v1/reports/preparations?estado=completed&tipo_proceso=blending
func (h *DashboardHandler) PreparationReport(c *gin.Context) {
	report, err := h.svc.PreparationReport(c.Request.Context(), reportParams(c))
	if err != nil {
		InternalError(c, "生成报表失败: "+err.Error())
		return
	}
	Success(c, report)
}

// ExportPreparations 导出准备工序报表xlsx
// GET /api/v1/reports/preparations/export
func (h *DashboardHandler) ExportPreparations(c *gin.Context) {
	f, err := h.svc.ExportPreparationsXLSX(c.Request.Context(), reportParams(c))
	if err != nil {
		InternalError(c, "导出报表失败: "+err.Error())
		return
	}

	filename := fmt.Sprintf("preparations_%s.xlsx", time.Now().Format("20060102_150405"))
	c.Header("Content-Disposition", `attachment; filename="`+filename+`"`)
	c.Header("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	if err := f.Write(c.Writer); err != nil {
		InternalError(c, "写出报表失败: "+err.Error())
	}
}
