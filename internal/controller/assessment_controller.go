package controller

import (
	"ace_lms_backend/internal/repository"
	"ace_lms_backend/internal/service"
	"ace_lms_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type AssessmentController struct {
	AssessmentService *service.AssessmentService
	SubmissionService *service.SubmissionService
}

func NewAssessmentController(assessmentService *service.AssessmentService, submissionService *service.SubmissionService) *AssessmentController {
	return &AssessmentController{
		AssessmentService: assessmentService,
		SubmissionService: submissionService,
	}
}

// CreateQuestion godoc
// @Summary 创建题目
// @Tags 测验
// @Accept  json
// @Produce  json
// @Security ApiKeyAuth
// @Param   body body service.QuestionRequest true "题目"
// @Success 201 {object} util.Response{data=model.Question}
// @Failure 400 {object} util.Response
// @Router /api/assessments/questions [post]
func (c *AssessmentController) CreateQuestion(ctx *gin.Context) {
	var req service.QuestionRequest
	if !bindJSON(ctx, &req) {
		return
	}
	q, err := c.AssessmentService.CreateQuestion(req)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Created(ctx, q)
}

// GetQuestion godoc
// @Summary 题目详情
// @Description 学员看不到答案与解析
// @Tags 测验
// @Produce  json
// @Security ApiKeyAuth
// @Param   id path string true "题目ID"
// @Success 200 {object} util.Response{data=model.Question}
// @Failure 404 {object} util.Response
// @Router /api/assessments/questions/{id} [get]
func (c *AssessmentController) GetQuestion(ctx *gin.Context) {
	claims, ok := currentUser(ctx)
	if !ok {
		return
	}
	q, err := c.AssessmentService.GetQuestion(ctx.Param("id"))
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	if !claims.IsPrivileged() {
		q.CorrectAnswer = nil
		q.Explanation = ""
	}
	util.Success(ctx, q)
}

// CreateAssessment godoc
// @Summary 创建测验
// @Description questions 与 embeddedQuestions 二选一
// @Tags 测验
// @Accept  json
// @Produce  json
// @Security ApiKeyAuth
// @Param   body body service.AssessmentRequest true "测验"
// @Success 201 {object} util.Response{data=model.Assessment}
// @Failure 400 {object} util.Response
// @Router /api/assessments [post]
func (c *AssessmentController) CreateAssessment(ctx *gin.Context) {
	var req service.AssessmentRequest
	if !bindJSON(ctx, &req) {
		return
	}
	a, err := c.AssessmentService.CreateAssessment(req)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Created(ctx, a)
}

// ListAssessments godoc
// @Summary 测验列表
// @Tags 测验
// @Produce  json
// @Security ApiKeyAuth
// @Param   courseId query string false "课程ID"
// @Param   moduleId query string false "模块ID"
// @Param   isActive query bool false "是否启用"
// @Success 200 {object} util.Response{data=[]model.Assessment}
// @Router /api/assessments [get]
func (c *AssessmentController) ListAssessments(ctx *gin.Context) {
	list, err := c.AssessmentService.ListAssessments(repository.AssessmentFilter{
		CourseID: ctx.Query("courseId"),
		ModuleID: ctx.Query("moduleId"),
		IsActive: util.ParseBoolPtr(ctx.Query("isActive")),
	})
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, list)
}

// GetAssessment godoc
// @Summary 测验详情
// @Tags 测验
// @Produce  json
// @Security ApiKeyAuth
// @Param   id path string true "测验ID"
// @Param   includeQuestions query bool false "是否包含题目"
// @Success 200 {object} util.Response{data=model.Assessment}
// @Failure 404 {object} util.Response
// @Router /api/assessments/{id} [get]
func (c *AssessmentController) GetAssessment(ctx *gin.Context) {
	claims, ok := currentUser(ctx)
	if !ok {
		return
	}
	include := ctx.Query("includeQuestions") == "true"
	a, err := c.AssessmentService.GetAssessment(ctx.Param("id"), include)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	if !claims.IsPrivileged() {
		c.AssessmentService.PrepareForLearner(a)
	}
	util.Success(ctx, a)
}

// StartAssessment godoc
// @Summary 开始作答
// @Tags 测验
// @Produce  json
// @Security ApiKeyAuth
// @Param   id path string true "测验ID"
// @Success 201 {object} util.Response{data=model.Submission}
// @Failure 400 {object} util.Response "测验未启用或超过次数"
// @Failure 404 {object} util.Response
// @Router /api/assessments/{id}/start [post]
func (c *AssessmentController) StartAssessment(ctx *gin.Context) {
	claims, ok := currentUser(ctx)
	if !ok {
		return
	}
	sub, err := c.SubmissionService.Start(claims.UserID, ctx.Param("id"))
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Created(ctx, sub)
}

// SubmitAssessment godoc
// @Summary 提交答案
// @Description 立即评分；通过后推进 MVK 与积分，联动失败在 sideEffects 中返回
// @Tags 测验
// @Accept  json
// @Produce  json
// @Security ApiKeyAuth
// @Param   id path string true "测验ID"
// @Param   body body service.SubmitRequest true "答案"
// @Success 200 {object} util.Response{data=service.SubmitResult}
// @Failure 404 {object} util.Response "没有进行中的作答"
// @Router /api/assessments/{id}/submit [post]
func (c *AssessmentController) SubmitAssessment(ctx *gin.Context) {
	claims, ok := currentUser(ctx)
	if !ok {
		return
	}
	var req service.SubmitRequest
	if !bindJSON(ctx, &req) {
		return
	}
	res, err := c.SubmissionService.Submit(ctx.Request.Context(), claims.UserID, ctx.Param("id"), req.Answers)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, res)
}

// GetMySubmissions godoc
// @Summary 我的作答记录
// @Tags 测验
// @Produce  json
// @Security ApiKeyAuth
// @Param   assessmentId query string false "测验ID"
// @Success 200 {object} util.Response{data=[]model.Submission}
// @Router /api/assessments/submissions/my [get]
func (c *AssessmentController) GetMySubmissions(ctx *gin.Context) {
	claims, ok := currentUser(ctx)
	if !ok {
		return
	}
	list, err := c.SubmissionService.GetUserSubmissions(claims.UserID, ctx.Query("assessmentId"))
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, list)
}

// GetSubmission godoc
// @Summary 作答详情
// @Description 学员只能查看自己的作答
// @Tags 测验
// @Produce  json
// @Security ApiKeyAuth
// @Param   id path string true "作答ID"
// @Success 200 {object} util.Response{data=model.Submission}
// @Failure 403 {object} util.Response
// @Failure 404 {object} util.Response
// @Router /api/assessments/submissions/{id} [get]
func (c *AssessmentController) GetSubmission(ctx *gin.Context) {
	claims, ok := currentUser(ctx)
	if !ok {
		return
	}
	sub, err := c.SubmissionService.GetSubmission(ctx.Param("id"))
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	if sub.UserID != claims.UserID && !claims.IsPrivileged() {
		util.Forbidden(ctx)
		return
	}
	util.Success(ctx, sub)
}
