package handler

import (
	"github.com/bitfantasy/texcore/internal/textile/repository"
	"github.com/bitfantasy/texcore/internal/textile/service"
	"github.com/gin-gonic/gin"
)

// SpinningHandler 纺纱工序处理器
type SpinningHandler struct {
	svc *service.SpinningService
}

func NewSpinningHandler(svc *service.SpinningService) *SpinningHandler {
	return &SpinningHandler{svc: svc}
}

// List 纺纱工序列表
// GET /api/v1/spinning?estado=completed&etapa=carding&fecha_desde=2026-01-01&fecha_hasta=2026-01-31
func (h *SpinningHandler) List(c *gin.Context) {
	page, pageSize := GetPagination(c)
	params := repository.SpinningListParams{
		Estado:     c.Query("estado"),
		Etapa:      c.Query("etapa"),
		FechaDesde: c.Query("fecha_desde"),
		FechaHasta: c.Query("fecha_hasta"),
		Page:       page,
		Size:       pageSize,
	}

	procs, total, err := h.svc.List(c.Request.Context(), params)
	if err != nil {
		InternalError(c, "获取纺纱工序列表失败: "+err.Error())
		return
	}
	Success(c, gin.H{
		"items":     procs,
		"total":     total,
		"page":      page,
		"page_size": pageSize,
	})
}

// ListMine 我的纺纱工序
// GET /api/v1/spinning/mine
func (h *SpinningHandler) ListMine(c *gin.Context) {
	page, pageSize := GetPagination(c)
	procs, total, err := h.svc.ListMine(c.Request.Context(), GetUserID(c), page, pageSize)
	if err != nil {
		InternalError(c, "获取纺纱工序列表失败: "+err.Error())
		return
	}
	Success(c, gin.H{
		"items":     procs,
		"total":     total,
		"page":      page,
		"page_size": pageSize,
	})
}

// Stats 纺纱统计
// GET /api/v1/spinning/stats
func (h *SpinningHandler) Stats(c *gin.Context) {
	stats, err := h.svc.Stats(c.Request.Context())
	if err != nil {
		InternalError(c, "获取纺纱统计失败: "+err.Error())
		return
	}
	Success(c, stats)
}

// Get 纺纱工序详情，附派生产出率与损耗率
// GET /api/v1/spinning/:id
func (h *SpinningHandler) Get(c *gin.Context) {
	proc, err := h.svc.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		ServiceError(c, err)
		return
	}
	Success(c, gin.H{
		"process": proc,
		"yield":   proc.Yield(),
		"waste":   proc.Waste(),
	})
}

// Create 创建纺纱工序
// POST /api/v1/spinning
func (h *SpinningHandler) Create(c *gin.Context) {
	var req service.CreateSpinningRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	proc, err := h.svc.Create(c.Request.Context(), req, GetUserID(c))
	if err != nil {
		ServiceError(c, err)
		return
	}
	Created(c, proc)
}

// Start 开始纺纱工序
// POST /api/v1/spinning/:id/start
func (h *SpinningHandler) Start(c *gin.Context) {
	proc, err := h.svc.Start(c.Request.Context(), c.Param("id"), GetUserID(c))
	if err != nil {
		ServiceError(c, err)
		return
	}
	Success(c, proc)
}

// Complete 完成纺纱工序并录入产出
// POST /api/v1/spinning/:id/complete
func (h *SpinningHandler) Complete(c *gin.Context) {
	var req service.CompleteSpinningRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	proc, err := h.svc.Complete(c.Request.Context(), c.Param("id"), GetUserID(c), req)
	if err != nil {
		ServiceError(c, err)
		return
	}
	Success(c, gin.H{
		"process": proc,
		"yield":   proc.Yield(),
		"waste":   proc.Waste(),
	})
}

// Reject 驳回纺纱工序
// POST /api/v1/spinning/:id/reject
func (h *SpinningHandler) Reject(c *gin.Context) {
	proc, err := h.svc.Reject(c.Request.Context(), c.Param("id"), GetUserID(c), GetUserRole(c))
	if err != nil {
		ServiceError(c, err)
		return
	}
	Success(c, proc)
}

// Update 编辑纺纱工序
// PUT /api/v1/spinning/:id
func (h *SpinningHandler) Update(c *gin.Context) {
	var req service.UpdateSpinningRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	proc, err := h.svc.Update(c.Request.Context(), c.Param("id"), GetUserID(c), req)
	if err != nil {
		ServiceError(c, err)
		return
	}
	Success(c, proc)
}

// Delete 删除纺纱工序，仅限管理员（路由层限制）
// DELETE /api/v1/spinning/:id
func (h *SpinningHandler) Delete(c *gin.Context) {
	if err := h.svc.Delete(c.Request.Context(), c.Param("id")); err != nil {
		ServiceError(c, err)
		return
	}
	Success(c, nil)
}

// AddDetail 追加技术明细
// POST /api/v1/spinning/:id/details
func (h *SpinningHandler) AddDetail(c *gin.Context) {
	var req service.AddSpinningDetailRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	detail, err := h.svc.AddDetail(c.Request.Context(), c.Param("id"), GetUserID(c), req)
	if err != nil {
		ServiceError(c, err)
		return
	}
	Created(c, detail)
}
