package handler

import (
	"github.com/bitfantasy/texcore/internal/textile/repository"
	"github.com/bitfantasy/texcore/internal/textile/service"
	"github.com/gin-gonic/gin"
)

// PreparationHandler 准备工序处理器
type PreparationHandler struct {
	svc *service.PreparationService
}

func NewPreparationHandler(svc *service.PreparationService) *PreparationHandler {
	return &PreparationHandler{svc: svc}
}

// List 准备工序列表
// GET /api/v1/preparations?estado=pending&tipo_proceso=cleaning&fecha_desde=2026-01-01&fecha_hasta=2026-01-31
func (h *PreparationHandler) List(c *gin.Context) {
	page, pageSize := GetPagination(c)
	params := repository.PreparationListParams{
		Estado:      c.Query("estado"),
		TipoProceso: c.Query("tipo_proceso"),
		FechaDesde:  c.Query("fecha_desde"),
		FechaHasta:  c.Query("fecha_hasta"),
		Page:        page,
		Size:        pageSize,
	}

	preps, total, err := h.svc.List(c.Request.Context(), params)
	if err != nil {
		InternalError(c, "获取准备工序列表失败: "+err.Error())
		return
	}
	Success(c, gin.H{
		"items":     preps,
		"total":     total,
		"page":      page,
		"page_size": pageSize,
	})
}

// ListMine 我的准备工序
// GET /api/v1/preparations/mine
func (h *PreparationHandler) ListMine(c *gin.Context) {
	page, pageSize := GetPagination(c)
	preps, total, err := h.svc.ListMine(c.Request.Context(), GetUserID(c), page, pageSize)
	if err != nil {
		InternalError(c, "获取准备工序列表失败: "+err.Error())
		return
	}
	Success(c, gin.H{
		"items":     preps,
		"total":     total,
		"page":      page,
		"page_size": pageSize,
	})
}

// ListCompleted 已完成的准备工序，供纺纱选择来源
// GET /api/v1/preparations/completed
func (h *PreparationHandler) ListCompleted(c *gin.Context) {
	preps, err := h.svc.ListCompleted(c.Request.Context())
	if err != nil {
		InternalError(c, "获取已完成准备工序失败: "+err.Error())
		return
	}
	Success(c, gin.H{"items": preps})
}

// Get 准备工序详情
// GET /api/v1/preparations/:id
func (h *PreparationHandler) Get(c *gin.Context) {
	prep, err := h.svc.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		ServiceError(c, err)
		return
	}
	Success(c, prep)
}

// Create 创建准备工序
// POST /api/v1/preparations
func (h *PreparationHandler) Create(c *gin.Context) {
	var req service.CreatePreparationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	prep, warning, err := h.svc.Create(c.Request.Context(), req, GetUserID(c))
	if err != nil {
		ServiceError(c, err)
		return
	}
	if warning != "" {
		SuccessWithWarning(c, prep, warning)
		return
	}
	Created(c, prep)
}

// Start 开始准备工序
// POST /api/v1/preparations/:id/start
func (h *PreparationHandler) Start(c *gin.Context) {
	prep, err := h.svc.Start(c.Request.Context(), c.Param("id"), GetUserID(c))
	if err != nil {
		ServiceError(c, err)
		return
	}
	Success(c, prep)
}

// Complete 完成准备工序并扣减库存
// POST /api/v1/preparations/:id/complete
func (h *PreparationHandler) Complete(c *gin.Context) {
	prep, err := h.svc.Complete(c.Request.Context(), c.Param("id"), GetUserID(c))
	if err != nil {
		ServiceError(c, err)
		return
	}
	Success(c, prep)
}

// Reject 驳回准备工序
// POST /api/v1/preparations/:id/reject
func (h *PreparationHandler) Reject(c *gin.Context) {
	prep, err := h.svc.Reject(c.Request.Context(), c.Param("id"), GetUserID(c), GetUserRole(c))
	if err != nil {
		ServiceError(c, err)
		return
	}
	Success(c, prep)
}

// Update 编辑准备工序
// PUT /api/v1/preparations/:id
func (h *PreparationHandler) Update(c *gin.Context) {
	var req service.UpdatePreparationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	prep, err := h.svc.Update(c.Request.Context(), c.Param("id"), GetUserID(c), req)
	if err != nil {
		ServiceError(c, err)
		return
	}
	Success(c, prep)
}

// Delete 删除准备工序，仅限管理员（路由层限制）
// DELETE /api/v1/preparations/:id
func (h *PreparationHandler) Delete(c *gin.Context) {
	if err := h.svc.Delete(c.Request.Context(), c.Param("id")); err != nil {
		ServiceError(c, err)
		return
	}
	Success(c, nil)
}

// AddDetail 追加技术明细
// POST /api/v1/preparations/:id/details
func (h *PreparationHandler) AddDetail(c *gin.Context) {
	var req service.AddPreparationDetailRequest
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
