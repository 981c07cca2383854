package controller

import (
	"ace_lms_backend/internal/util"

	"github.com/gin-gonic/gin"
)

// currentUser 路由已经过 AuthMiddleware，取不到时直接返回 401
func currentUser(ctx *gin.Context) (*util.Claims, bool) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return nil, false
	}
	return claims, true
}

// targetUser 为空或本人时返回当前用户；查看他人需要管理员或讲师
func targetUser(ctx *gin.Context, requested string) (string, bool) {
	claims, ok := currentUser(ctx)
	if !ok {
		return "", false
	}
	if requested == "" || requested == claims.UserID {
		return claims.UserID, true
	}
	if !claims.IsPrivileged() {
		util.Forbidden(ctx)
		return "", false
	}
	return requested, true
}

func bindJSON(ctx *gin.Context, req interface{}) bool {
	if err := ctx.ShouldBindJSON(req); err != nil {
		util.BadRequest(ctx, err.Error())
		return false
	}
	return true
}
