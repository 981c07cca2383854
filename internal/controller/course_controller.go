package controller

import (
	"ace_lms_backend/internal/model"
	"ace_lms_backend/internal/repository"
	"ace_lms_backend/internal/service"
	"ace_lms_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type CourseController struct {
	CourseService *service.CourseService
}

func NewCourseController(courseService *service.CourseService) *CourseController {
	return &CourseController{CourseService: courseService}
}

// CreateCourse godoc
// @Summary 创建课程
// @Tags 课程
// @Accept  json
// @Produce  json
// @Security ApiKeyAuth
// @Param   body body service.CourseRequest true "课程信息"
// @Success 201 {object} util.Response{data=model.Course}
// @Failure 400 {object} util.Response
// @Router /api/courses [post]
func (c *CourseController) CreateCourse(ctx *gin.Context) {
	var req service.CourseRequest
	if !bindJSON(ctx, &req) {
		return
	}
	course, err := c.CourseService.CreateCourse(req)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Created(ctx, course)
}

// ListCourses godoc
// @Summary 课程列表
// @Tags 课程
// @Produce  json
// @Security ApiKeyAuth
// @Param   status query string false "状态"
// @Param   level query string false "等级"
// @Param   college query string false "学院"
// @Success 200 {object} util.Response{data=[]model.Course}
// @Router /api/courses [get]
func (c *CourseController) ListCourses(ctx *gin.Context) {
	courses, err := c.CourseService.ListCourses(repository.CourseFilter{
		Status:  model.CourseStatus(ctx.Query("status")),
		Level:   model.CourseLevel(ctx.Query("level")),
		College: model.College(ctx.Query("college")),
	})
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, courses)
}

// GetCourse godoc
// @Summary 课程详情
// @Tags 课程
// @Produce  json
// @Security ApiKeyAuth
// @Param   id path string true "课程ID"
// @Success 200 {object} util.Response{data=model.Course}
// @Failure 404 {object} util.Response
// @Router /api/courses/{id} [get]
func (c *CourseController) GetCourse(ctx *gin.Context) {
	course, err := c.CourseService.GetCourse(ctx.Param("id"))
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, course)
}

// CompleteCourse godoc
// @Summary 完成课程
// @Description 推进 MVK 要求并记录积分，联动失败在 sideEffects 中返回
// @Tags 课程
// @Produce  json
// @Security ApiKeyAuth
// @Param   id path string true "课程ID"
// @Success 200 {object} util.Response{data=service.CourseCompletionResult}
// @Failure 404 {object} util.Response
// @Router /api/courses/{id}/complete [post]
func (c *CourseController) CompleteCourse(ctx *gin.Context) {
	claims, ok := currentUser(ctx)
	if !ok {
		return
	}
	res, err := c.CourseService.CompleteCourse(claims.UserID, ctx.Param("id"))
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, res)
}
