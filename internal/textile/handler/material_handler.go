package handler

import (
	"github.com/bitfantasy/texcore/internal/textile/repository"
	"github.com/bitfantasy/texcore/internal/textile/service"
	"github.com/gin-gonic/gin"
)

// MaterialHandler 原料批次处理器
type MaterialHandler struct {
	svc *service.MaterialService
}

func NewMaterialHandler(svc *service.MaterialService) *MaterialHandler {
	return &MaterialHandler{svc: svc}
}

// List 批次列表
// GET /api/v1/materials?tipo=cotton&keyword=xx&page=1&page_size=20
func (h *MaterialHandler) List(c *gin.Context) {
	page, pageSize := GetPagination(c)
	params := repository.MaterialListParams{
		MaterialKind: c.Query("tipo"),
		Keyword:      c.Query("keyword"),
		Page:         page,
		Size:         pageSize,
	}

	lots, total, err := h.svc.List(c.Request.Context(), params)
	if err != nil {
		InternalError(c, "获取批次列表失败: "+err.Error())
		return
	}
	Success(c, gin.H{
		"items":     lots,
		"total":     total,
		"page":      page,
		"page_size": pageSize,
	})
}

// ListAvailable 可用于准备工序的批次
// GET /api/v1/materials/available
func (h *MaterialHandler) ListAvailable(c *gin.Context) {
	lots, err := h.svc.ListAvailable(c.Request.Context())
	if err != nil {
		InternalError(c, "获取可用批次失败: "+err.Error())
		return
	}
	Success(c, gin.H{"items": lots})
}

// Get 批次详情
// GET /api/v1/materials/:id
func (h *MaterialHandler) Get(c *gin.Context) {
	lot, err := h.svc.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		ServiceError(c, err)
		return
	}
	Success(c, lot)
}

// Create 入库登记
// POST /api/v1/materials
func (h *MaterialHandler) Create(c *gin.Context) {
	var req service.CreateMaterialRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	lot, err := h.svc.Create(c.Request.Context(), req, GetUserID(c))
	if err != nil {
		ServiceError(c, err)
		return
	}
	Created(c, lot)
}

// Update 更新批次
// PUT /api/v1/materials/:id
func (h *MaterialHandler) Update(c *gin.Context) {
	var req service.UpdateMaterialRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	lot, err := h.svc.Update(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		ServiceError(c, err)
		return
	}
	Success(c, lot)
}

// Delete 删除批次，被准备工序引用时拒绝
// DELETE /api/v1/materials/:id
func (h *MaterialHandler) Delete(c *gin.Context) {
	if err := h.svc.Delete(c.Request.Context(), c.Param("id")); err != nil {
		ServiceError(c, err)
		return
	}
	Success(c, nil)
}
