package controller

import (
	"ace_lms_backend/internal/model"
	"ace_lms_backend/internal/repository"
	"ace_lms_backend/internal/service"
	"ace_lms_backend/internal/util"
	"strconv"

	"github.com/gin-gonic/gin"
)

type GamificationController struct {
	Service     *service.GamificationService
	SeedVersion int
}

func NewGamificationController(s *service.GamificationService, seedVersion int) *GamificationController {
	return &GamificationController{Service: s, SeedVersion: seedVersion}
}

type RecordCompletionRequest struct {
	UserID string `json:"userId" binding:"required"`
}

// InitCatalog godoc
// @Summary 初始化默认积分目录
// @Description 幂等，已有数据的表不会重复写入
// @Tags 积分
// @Produce  json
// @Security ApiKeyAuth
// @Success 200 {object} util.Response{data=service.SeedReport}
// @Router /api/gamification/init [post]
func (c *GamificationController) InitCatalog(ctx *gin.Context) {
	report, err := c.Service.SeedDefaultCatalog(c.SeedVersion, true)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, report)
}

// 徽章

// @Summary 创建徽章
// @Tags 积分
// @Accept  json
// @Produce  json
// @Security ApiKeyAuth
// @Param   body body service.BadgeRequest true "徽章"
// @Success 201 {object} util.Response{data=model.Badge}
// @Router /api/gamification/badges [post]
func (c *GamificationController) CreateBadge(ctx *gin.Context) {
	var req service.BadgeRequest
	if !bindJSON(ctx, &req) {
		return
	}
	b, err := c.Service.CreateBadge(req)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Created(ctx, b)
}

// @Summary 徽章列表
// @Tags 积分
// @Produce  json
// @Security ApiKeyAuth
// @Param   category query string false "分类"
// @Param   tier query string false "等级"
// @Param   isActive query bool false "是否启用"
// @Success 200 {object} util.Response{data=[]model.Badge}
// @Router /api/gamification/badges [get]
func (c *GamificationController) ListBadges(ctx *gin.Context) {
	list, err := c.Service.ListBadges(repository.BadgeFilter{
		Category: model.BadgeCategory(ctx.Query("category")),
		Tier:     model.BadgeTier(ctx.Query("tier")),
		IsActive: util.ParseBoolPtr(ctx.Query("isActive")),
	})
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, list)
}

// @Summary 徽章详情
// @Tags 积分
// @Produce  json
// @Security ApiKeyAuth
// @Param   id path string true "徽章ID"
// @Success 200 {object} util.Response{data=model.Badge}
// @Router /api/gamification/badges/{id} [get]
func (c *GamificationController) GetBadge(ctx *gin.Context) {
	b, err := c.Service.GetBadge(ctx.Param("id"))
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, b)
}

// UploadBadgeIcon godoc
// @Summary 上传徽章图标
// @Tags 积分
// @Accept  multipart/form-data
// @Produce  json
// @Security ApiKeyAuth
// @Param   id path string true "徽章ID"
// @Param   file formData file true "图标文件"
// @Success 200 {object} util.Response{data=object}
// @Router /api/gamification/badges/{id}/icon [post]
func (c *GamificationController) UploadBadgeIcon(ctx *gin.Context) {
	fileHeader, err := ctx.FormFile("file")
	if err != nil {
		util.BadRequest(ctx, "file is required")
		return
	}
	file, err := fileHeader.Open()
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	defer file.Close()

	url, err := c.Service.UploadBadgeIcon(ctx.Request.Context(), ctx.Param("id"), fileHeader.Filename, file, fileHeader.Size)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, gin.H{"icon": url})
}

// @Summary 授予徽章
// @Tags 积分
// @Accept  json
// @Produce  json
// @Security ApiKeyAuth
// @Param   body body service.AwardBadgeRequest true "授予信息"
// @Success 201 {object} util.Response{data=model.UserBadge}
// @Failure 400 {object} util.Response "用户已拥有该徽章"
// @Router /api/gamification/badges/award [post]
func (c *GamificationController) AwardBadge(ctx *gin.Context) {
	var req service.AwardBadgeRequest
	if !bindJSON(ctx, &req) {
		return
	}
	ub, err := c.Service.AwardBadge(req)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Created(ctx, ub)
}

// 成就

// @Summary 创建成就
// @Tags 积分
// @Accept  json
// @Produce  json
// @Security ApiKeyAuth
// @Param   body body service.AchievementRequest true "成就"
// @Success 201 {object} util.Response{data=model.Achievement}
// @Router /api/gamification/achievements [post]
func (c *GamificationController) CreateAchievement(ctx *gin.Context) {
	var req service.AchievementRequest
	if !bindJSON(ctx, &req) {
		return
	}
	a, err := c.Service.CreateAchievement(req)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Created(ctx, a)
}

// @Summary 成就列表
// @Tags 积分
// @Produce  json
// @Security ApiKeyAuth
// @Param   type query string false "类型"
// @Param   isActive query bool false "是否启用"
// @Success 200 {object} util.Response{data=[]model.Achievement}
// @Router /api/gamification/achievements [get]
func (c *GamificationController) ListAchievements(ctx *gin.Context) {
	list, err := c.Service.ListAchievements(repository.AchievementFilter{
		Type:     model.AchievementType(ctx.Query("type")),
		IsActive: util.ParseBoolPtr(ctx.Query("isActive")),
	})
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, list)
}

// @Summary 成就详情
// @Tags 积分
// @Produce  json
// @Security ApiKeyAuth
// @Param   id path string true "成就ID"
// @Success 200 {object} util.Response{data=model.Achievement}
// @Router /api/gamification/achievements/{id} [get]
func (c *GamificationController) GetAchievement(ctx *gin.Context) {
	a, err := c.Service.GetAchievement(ctx.Param("id"))
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, a)
}

// @Summary 解锁成就
// @Description progress 默认 100，只增不减
// @Tags 积分
// @Accept  json
// @Produce  json
// @Security ApiKeyAuth
// @Param   body body service.UnlockAchievementRequest true "解锁信息"
// @Success 200 {object} util.Response{data=service.UnlockResult}
// @Router /api/gamification/achievements/unlock [post]
func (c *GamificationController) UnlockAchievement(ctx *gin.Context) {
	var req service.UnlockAchievementRequest
	if !bindJSON(ctx, &req) {
		return
	}
	res, err := c.Service.UnlockAchievement(req)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, res)
}

// 等级

// @Summary 创建等级
// @Description 等级编号必须连续，所需积分严格递增
// @Tags 积分
// @Accept  json
// @Produce  json
// @Security ApiKeyAuth
// @Param   body body service.LevelRequest true "等级"
// @Success 201 {object} util.Response{data=model.Level}
// @Router /api/gamification/levels [post]
func (c *GamificationController) CreateLevel(ctx *gin.Context) {
	var req service.LevelRequest
	if !bindJSON(ctx, &req) {
		return
	}
	l, err := c.Service.CreateLevel(req)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Created(ctx, l)
}

// @Summary 等级列表
// @Tags 积分
// @Produce  json
// @Security ApiKeyAuth
// @Success 200 {object} util.Response{data=[]model.Level}
// @Router /api/gamification/levels [get]
func (c *GamificationController) ListLevels(ctx *gin.Context) {
	list, err := c.Service.ListLevels()
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, list)
}

// @Summary 等级详情
// @Tags 积分
// @Produce  json
// @Security ApiKeyAuth
// @Param   id path string true "等级ID"
// @Success 200 {object} util.Response{data=model.Level}
// @Router /api/gamification/levels/{id} [get]
func (c *GamificationController) GetLevel(ctx *gin.Context) {
	l, err := c.Service.GetLevel(ctx.Param("id"))
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, l)
}

// @Summary 按编号查询等级
// @Tags 积分
// @Produce  json
// @Security ApiKeyAuth
// @Param   number path int true "等级编号"
// @Success 200 {object} util.Response{data=model.Level}
// @Router /api/gamification/levels/number/{number} [get]
func (c *GamificationController) GetLevelByNumber(ctx *gin.Context) {
	n, err := strconv.Atoi(ctx.Param("number"))
	if err != nil {
		util.BadRequest(ctx, "invalid level number")
		return
	}
	l, err := c.Service.GetLevelByNumber(n)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, l)
}

// 积分

// @Summary 发放积分
// @Tags 积分
// @Accept  json
// @Produce  json
// @Security ApiKeyAuth
// @Param   body body service.AwardPointsRequest true "积分"
// @Success 201 {object} util.Response{data=model.PointTransaction}
// @Router /api/gamification/points/award [post]
func (c *GamificationController) AwardPoints(ctx *gin.Context) {
	var req service.AwardPointsRequest
	if !bindJSON(ctx, &req) {
		return
	}
	tx, err := c.Service.AwardPoints(req)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Created(ctx, tx)
}

// 用户视图，/my/* 为当前用户，/users/:id/* 需要管理员或讲师

// @Summary 用户徽章
// @Tags 积分
// @Produce  json
// @Security ApiKeyAuth
// @Success 200 {object} util.Response{data=[]model.UserBadge}
// @Router /api/gamification/my/badges [get]
func (c *GamificationController) GetUserBadges(ctx *gin.Context) {
	userID, ok := targetUser(ctx, ctx.Param("id"))
	if !ok {
		return
	}
	list, err := c.Service.GetUserBadges(userID)
	respond(ctx, list, err)
}

// @Summary 用户成就
// @Tags 积分
// @Produce  json
// @Security ApiKeyAuth
// @Success 200 {object} util.Response{data=[]model.UserAchievement}
// @Router /api/gamification/my/achievements [get]
func (c *GamificationController) GetUserAchievements(ctx *gin.Context) {
	userID, ok := targetUser(ctx, ctx.Param("id"))
	if !ok {
		return
	}
	list, err := c.Service.GetUserAchievements(userID)
	respond(ctx, list, err)
}

// @Summary 积分余额
// @Tags 积分
// @Produce  json
// @Security ApiKeyAuth
// @Success 200 {object} util.Response{data=service.PointsBalance}
// @Router /api/gamification/my/points [get]
func (c *GamificationController) GetPointsBalance(ctx *gin.Context) {
	userID, ok := targetUser(ctx, ctx.Param("id"))
	if !ok {
		return
	}
	b, err := c.Service.PointsBalance(userID)
	respond(ctx, b, err)
}

// @Summary 积分流水
// @Tags 积分
// @Produce  json
// @Security ApiKeyAuth
// @Success 200 {object} util.Response{data=[]model.PointTransaction}
// @Router /api/gamification/my/points/transactions [get]
func (c *GamificationController) GetPointTransactions(ctx *gin.Context) {
	userID, ok := targetUser(ctx, ctx.Param("id"))
	if !ok {
		return
	}
	list, err := c.Service.GetUserPointTransactions(userID)
	respond(ctx, list, err)
}

// @Summary 用户等级
// @Tags 积分
// @Produce  json
// @Security ApiKeyAuth
// @Success 200 {object} util.Response{data=service.UserLevelInfo}
// @Router /api/gamification/my/level [get]
func (c *GamificationController) GetUserLevel(ctx *gin.Context) {
	userID, ok := targetUser(ctx, ctx.Param("id"))
	if !ok {
		return
	}
	info, err := c.Service.GetUserLevel(userID)
	respond(ctx, info, err)
}

// @Summary 用户统计
// @Tags 积分
// @Produce  json
// @Security ApiKeyAuth
// @Success 200 {object} util.Response{data=model.UserStats}
// @Router /api/gamification/my/stats [get]
func (c *GamificationController) GetUserStats(ctx *gin.Context) {
	userID, ok := targetUser(ctx, ctx.Param("id"))
	if !ok {
		return
	}
	stats, err := c.Service.GetUserStats(userID)
	respond(ctx, stats, err)
}

// @Summary 排行榜
// @Tags 积分
// @Produce  json
// @Security ApiKeyAuth
// @Param   limit query int false "数量，默认10，最大100"
// @Success 200 {object} util.Response{data=[]service.LeaderboardEntry}
// @Router /api/gamification/leaderboard [get]
func (c *GamificationController) Leaderboard(ctx *gin.Context) {
	limit := util.ParseIntDefault(ctx.Query("limit"), util.DefaultLeaderboardLimit)
	list, err := c.Service.Leaderboard(limit)
	respond(ctx, list, err)
}

// @Summary 记录课程完成
// @Tags 积分
// @Accept  json
// @Produce  json
// @Security ApiKeyAuth
// @Param   courseId path string true "课程ID"
// @Param   body body RecordCompletionRequest true "用户"
// @Success 200 {object} util.Response{data=service.CompletionResult}
// @Router /api/gamification/record/course/{courseId}/complete [post]
func (c *GamificationController) RecordCourseCompletion(ctx *gin.Context) {
	var req RecordCompletionRequest
	if !bindJSON(ctx, &req) {
		return
	}
	res, err := c.Service.RecordCourseCompletion(req.UserID, ctx.Param("courseId"))
	respond(ctx, res, err)
}

// @Summary 记录测验完成
// @Tags 积分
// @Accept  json
// @Produce  json
// @Security ApiKeyAuth
// @Param   submissionId path string true "作答ID"
// @Param   body body RecordCompletionRequest true "用户"
// @Success 200 {object} util.Response{data=service.CompletionResult}
// @Router /api/gamification/record/assessment/{submissionId}/complete [post]
func (c *GamificationController) RecordAssessmentCompletion(ctx *gin.Context) {
	var req RecordCompletionRequest
	if !bindJSON(ctx, &req) {
		return
	}
	res, err := c.Service.RecordAssessmentCompletion(req.UserID, ctx.Param("submissionId"))
	respond(ctx, res, err)
}

func respond(ctx *gin.Context, data interface{}, err error) {
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, data)
}
