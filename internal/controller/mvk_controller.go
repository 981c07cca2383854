package controller

import (
	"ace_lms_backend/internal/model"
	"ace_lms_backend/internal/repository"
	"ace_lms_backend/internal/service"
	"ace_lms_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type MVKController struct {
	MVKService *service.MVKService
}

func NewMVKController(mvkService *service.MVKService) *MVKController {
	return &MVKController{MVKService: mvkService}
}

// CreateRequirement godoc
// @Summary 创建 MVK 要求
// @Tags MVK
// @Accept  json
// @Produce  json
// @Security ApiKeyAuth
// @Param   body body service.RequirementRequest true "要求"
// @Success 201 {object} util.Response{data=model.MVKRequirement}
// @Failure 400 {object} util.Response
// @Failure 404 {object} util.Response "指向的课程或测验不存在"
// @Router /api/mvk/requirements [post]
func (c *MVKController) CreateRequirement(ctx *gin.Context) {
	var req service.RequirementRequest
	if !bindJSON(ctx, &req) {
		return
	}
	r, err := c.MVKService.CreateRequirement(req)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Created(ctx, r)
}

// ListRequirements godoc
// @Summary MVK 要求列表
// @Tags MVK
// @Produce  json
// @Security ApiKeyAuth
// @Param   level query string false "等级"
// @Param   college query string false "学院"
// @Param   type query string false "类型"
// @Success 200 {object} util.Response{data=[]model.MVKRequirement}
// @Router /api/mvk/requirements [get]
func (c *MVKController) ListRequirements(ctx *gin.Context) {
	list, err := c.MVKService.ListRequirements(repository.RequirementFilter{
		Level:   model.CourseLevel(ctx.Query("level")),
		College: model.College(ctx.Query("college")),
		Type:    model.RequirementType(ctx.Query("type")),
	})
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, list)
}

// @Summary MVK 要求详情
// @Tags MVK
// @Produce  json
// @Security ApiKeyAuth
// @Param   id path string true "要求ID"
// @Success 200 {object} util.Response{data=model.MVKRequirement}
// @Router /api/mvk/requirements/{id} [get]
func (c *MVKController) GetRequirement(ctx *gin.Context) {
	r, err := c.MVKService.GetRequirement(ctx.Param("id"))
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, r)
}

// @Summary 更新 MVK 要求
// @Tags MVK
// @Accept  json
// @Produce  json
// @Security ApiKeyAuth
// @Param   id path string true "要求ID"
// @Param   body body service.RequirementRequest true "要求"
// @Success 200 {object} util.Response{data=model.MVKRequirement}
// @Router /api/mvk/requirements/{id} [put]
func (c *MVKController) UpdateRequirement(ctx *gin.Context) {
	var req service.RequirementRequest
	if !bindJSON(ctx, &req) {
		return
	}
	r, err := c.MVKService.UpdateRequirement(ctx.Param("id"), req)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, r)
}

// @Summary 删除 MVK 要求
// @Tags MVK
// @Produce  json
// @Security ApiKeyAuth
// @Param   id path string true "要求ID"
// @Success 200 {object} util.Response
// @Router /api/mvk/requirements/{id} [delete]
func (c *MVKController) DeleteRequirement(ctx *gin.Context) {
	if err := c.MVKService.DeleteRequirement(ctx.Param("id")); err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, nil)
}

// CreateCertification godoc
// @Summary 创建认证
// @Tags MVK
// @Accept  json
// @Produce  json
// @Security ApiKeyAuth
// @Param   body body service.CertificationRequest true "认证"
// @Success 201 {object} util.Response{data=model.MVKCertification}
// @Failure 400 {object} util.Response
// @Router /api/mvk/certifications [post]
func (c *MVKController) CreateCertification(ctx *gin.Context) {
	var req service.CertificationRequest
	if !bindJSON(ctx, &req) {
		return
	}
	cert, err := c.MVKService.CreateCertification(req)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Created(ctx, cert)
}

// @Summary 认证列表
// @Tags MVK
// @Produce  json
// @Security ApiKeyAuth
// @Param   level query string false "等级"
// @Param   college query string false "学院"
// @Param   isActive query bool false "是否启用"
// @Success 200 {object} util.Response{data=[]model.MVKCertification}
// @Router /api/mvk/certifications [get]
func (c *MVKController) ListCertifications(ctx *gin.Context) {
	list, err := c.MVKService.ListCertifications(repository.CertificationFilter{
		Level:    model.CourseLevel(ctx.Query("level")),
		College:  model.College(ctx.Query("college")),
		IsActive: util.ParseBoolPtr(ctx.Query("isActive")),
	})
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, list)
}

// @Summary 认证详情
// @Tags MVK
// @Produce  json
// @Security ApiKeyAuth
// @Param   id path string true "认证ID"
// @Param   includeRequirements query bool false "是否展开要求"
// @Success 200 {object} util.Response{data=model.MVKCertification}
// @Router /api/mvk/certifications/{id} [get]
func (c *MVKController) GetCertification(ctx *gin.Context) {
	cert, err := c.MVKService.GetCertification(ctx.Param("id"), ctx.Query("includeRequirements") == "true")
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, cert)
}

// UpdateProgress godoc
// @Summary 更新学习进度
// @Description 不传 userId 时更新自己的进度；更新他人需要管理员或讲师
// @Tags MVK
// @Accept  json
// @Produce  json
// @Security ApiKeyAuth
// @Param   body body service.UpdateProgressRequest true "进度"
// @Success 200 {object} util.Response{data=service.ProgressUpdateResult}
// @Failure 403 {object} util.Response
// @Router /api/mvk/progress [put]
func (c *MVKController) UpdateProgress(ctx *gin.Context) {
	var req service.UpdateProgressRequest
	if !bindJSON(ctx, &req) {
		return
	}
	userID, ok := targetUser(ctx, req.UserID)
	if !ok {
		return
	}
	res, err := c.MVKService.UpdateUserProgress(userID, req.RequirementID, req.ProgressPatch)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, res)
}

// GetProgress godoc
// @Summary 用户学习进度
// @Tags MVK
// @Produce  json
// @Security ApiKeyAuth
// @Param   userId path string false "用户ID，my 路由为当前用户"
// @Param   level query string false "等级"
// @Param   college query string false "学院"
// @Param   status query string false "状态"
// @Success 200 {object} util.Response{data=[]service.UserProgressView}
// @Router /api/mvk/progress/{userId} [get]
func (c *MVKController) GetProgress(ctx *gin.Context) {
	userID, ok := targetUser(ctx, ctx.Param("userId"))
	if !ok {
		return
	}
	list, err := c.MVKService.GetUserProgress(userID, service.ProgressFilter{
		Level:   model.CourseLevel(ctx.Query("level")),
		College: model.College(ctx.Query("college")),
		Status:  model.ProgressStatus(ctx.Query("status")),
	})
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, list)
}

// @Summary 学习进度汇总
// @Tags MVK
// @Produce  json
// @Security ApiKeyAuth
// @Param   userId path string false "用户ID"
// @Success 200 {object} util.Response{data=service.ProgressSummary}
// @Router /api/mvk/progress/summary/{userId} [get]
func (c *MVKController) GetProgressSummary(ctx *gin.Context) {
	userID, ok := targetUser(ctx, ctx.Param("userId"))
	if !ok {
		return
	}
	summary, err := c.MVKService.ProgressSummary(userID)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, summary)
}

// @Summary 用户认证状态
// @Tags MVK
// @Produce  json
// @Security ApiKeyAuth
// @Param   userId path string false "用户ID"
// @Success 200 {object} util.Response{data=[]model.UserCertification}
// @Router /api/mvk/certifications/user/{userId} [get]
func (c *MVKController) GetUserCertifications(ctx *gin.Context) {
	userID, ok := targetUser(ctx, ctx.Param("userId"))
	if !ok {
		return
	}
	list, err := c.MVKService.GetUserCertifications(userID)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, list)
}
