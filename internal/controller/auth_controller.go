package controller

import (
	"ace_lms_backend/internal/service"
	"ace_lms_backend/internal/util"
	"errors"

	"github.com/gin-gonic/gin"
)

type AuthController struct {
	AuthService *service.AuthService
	UserService *service.UserService
}

func NewAuthController(authService *service.AuthService, userService *service.UserService) *AuthController {
	return &AuthController{
		AuthService: authService,
		UserService: userService,
	}
}

// Register godoc
// @Summary 注册新用户
// @Description 注册学员账号
// @Tags 认证
// @Accept  json
// @Produce  json
// @Param   body body service.RegisterRequest true "用户注册信息"
// @Success 201 {object} util.Response{data=object} "创建成功"
// @Failure 400 {object} util.Response "请求参数错误或邮箱已被注册"
// @Router /api/register [post]
func (c *AuthController) Register(ctx *gin.Context) {
	var req service.RegisterRequest
	if !bindJSON(ctx, &req) {
		return
	}

	user, err := c.AuthService.Register(req)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}

	util.Created(ctx, gin.H{"id": user.ID})
}

// Login godoc
// @Summary 用户登录
// @Tags 认证
// @Accept  json
// @Produce  json
// @Param   body body service.LoginRequest true "登录信息"
// @Success 200 {object} util.Response{data=service.LoginResponse}
// @Failure 400 {object} util.Response "请求参数错误"
// @Failure 401 {object} util.Response "邮箱或密码错误"
// @Router /api/login [post]
func (c *AuthController) Login(ctx *gin.Context) {
	var req service.LoginRequest
	if !bindJSON(ctx, &req) {
		return
	}

	resp, err := c.AuthService.Login(req)
	if err != nil {
		if errors.Is(err, util.ErrInvalidCredentials) {
			util.Unauthorized(ctx)
			return
		}
		util.HandleError(ctx, err)
		return
	}

	util.Success(ctx, resp)
}

// GetProfile godoc
// @Summary 获取当前用户信息
// @Tags 认证
// @Produce  json
// @Security ApiKeyAuth
// @Success 200 {object} util.Response{data=model.User}
// @Failure 401 {object} util.Response
// @Router /api/profile [get]
func (c *AuthController) GetProfile(ctx *gin.Context) {
	claims, ok := currentUser(ctx)
	if !ok {
		return
	}
	user, err := c.UserService.GetUser(claims.UserID)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, user)
}
