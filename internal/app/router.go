package app

import (
	"ace_lms_backend/docs"
	"ace_lms_backend/internal/config"
	"ace_lms_backend/internal/middleware"
	"ace_lms_backend/internal/model"
	"ace_lms_backend/pkg/monitoring"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

func (a *App) registerRoutes(router *gin.Engine, c *controllers, repos *repositories, cfg *config.Config) {
	router.GET("/health", c.health.HealthCheck)
	router.GET("/metrics", monitoring.PrometheusHandler())
	docs.SwaggerInfo.BasePath = "/"
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler, ginSwagger.URL("/swagger/doc.json")))

	// 1. 公共路由(无需登录)
	a.registerPublicRoutes(router, c)

	// 2. 需要授权的路由
	authGroup := router.Group("/api")
	authGroup.Use(middleware.AuthMiddleware(cfg.JWT.Secret), middleware.ActivityMiddleware(repos.point))
	{
		// 学员/通用 授权接口
		a.registerLearnerRoutes(authGroup, c)

		// 讲师相关接口
		a.registerInstructorRoutes(authGroup, c)

		// 管理员相关接口
		a.registerAdminRoutes(authGroup, c)
	}
}

func (a *App) registerPublicRoutes(router *gin.Engine, c *controllers) {
	public := router.Group("/api")
	{
		public.GET("/health", c.health.HealthCheck)
		public.POST("/register", c.auth.Register)
		public.POST("/login", c.auth.Login)
	}
}

func (a *App) registerLearnerRoutes(api *gin.RouterGroup, c *controllers) {
	api.GET("/profile", c.auth.GetProfile)

	courses := api.Group("/courses")
	{
		courses.GET("", c.course.ListCourses)
		courses.GET("/:id", c.course.GetCourse)
		courses.POST("/:id/complete", c.course.CompleteCourse)
	}

	assessments := api.Group("/assessments")
	{
		assessments.GET("", c.assessment.ListAssessments)
		assessments.GET("/:id", c.assessment.GetAssessment)
		assessments.GET("/questions/:id", c.assessment.GetQuestion)
		assessments.POST("/:id/start", c.assessment.StartAssessment)
		assessments.POST("/:id/submit", c.assessment.SubmitAssessment)
		assessments.GET("/submissions/my", c.assessment.GetMySubmissions)
		assessments.GET("/submissions/:id", c.assessment.GetSubmission)
	}

	mvk := api.Group("/mvk")
	{
		mvk.GET("/requirements", c.mvk.ListRequirements)
		mvk.GET("/requirements/:id", c.mvk.GetRequirement)
		mvk.GET("/certifications", c.mvk.ListCertifications)
		mvk.GET("/certifications/my", c.mvk.GetUserCertifications)
		mvk.GET("/certifications/:id", c.mvk.GetCertification)
		// 本人可直接更新，他人由控制器校验角色
		mvk.PUT("/progress", c.mvk.UpdateProgress)
		mvk.GET("/progress/my", c.mvk.GetProgress)
		mvk.GET("/progress/summary/my", c.mvk.GetProgressSummary)
	}

	g := api.Group("/gamification")
	{
		g.GET("/badges", c.gamification.ListBadges)
		g.GET("/badges/:id", c.gamification.GetBadge)
		g.GET("/achievements", c.gamification.ListAchievements)
		g.GET("/achievements/:id", c.gamification.GetAchievement)
		g.GET("/levels", c.gamification.ListLevels)
		g.GET("/levels/:id", c.gamification.GetLevel)
		g.GET("/levels/number/:number", c.gamification.GetLevelByNumber)
		g.GET("/leaderboard", c.gamification.Leaderboard)

		my := g.Group("/my")
		my.GET("/badges", c.gamification.GetUserBadges)
		my.GET("/achievements", c.gamification.GetUserAchievements)
		my.GET("/points", c.gamification.GetPointsBalance)
		my.GET("/points/transactions", c.gamification.GetPointTransactions)
		my.GET("/level", c.gamification.GetUserLevel)
		my.GET("/stats", c.gamification.GetUserStats)
	}
}

func (a *App) registerInstructorRoutes(api *gin.RouterGroup, c *controllers) {
	instructor := api.Group("")
	instructor.Use(middleware.RoleMiddleware(model.Instructor))
	{
		instructor.POST("/courses", c.course.CreateCourse)
		instructor.POST("/assessments", c.assessment.CreateAssessment)
		instructor.POST("/assessments/questions", c.assessment.CreateQuestion)

		instructor.GET("/mvk/progress/:userId", c.mvk.GetProgress)
		instructor.GET("/mvk/progress/summary/:userId", c.mvk.GetProgressSummary)
		instructor.GET("/mvk/certifications/user/:userId", c.mvk.GetUserCertifications)

		users := instructor.Group("/gamification/users/:id")
		users.GET("/badges", c.gamification.GetUserBadges)
		users.GET("/achievements", c.gamification.GetUserAchievements)
		users.GET("/points", c.gamification.GetPointsBalance)
		users.GET("/points/transactions", c.gamification.GetPointTransactions)
		users.GET("/level", c.gamification.GetUserLevel)
		users.GET("/stats", c.gamification.GetUserStats)
	}
}

func (a *App) registerAdminRoutes(api *gin.RouterGroup, c *controllers) {
	admin := api.Group("")
	admin.Use(middleware.RoleMiddleware(model.Admin))
	{
		mvk := admin.Group("/mvk")
		mvk.POST("/requirements", c.mvk.CreateRequirement)
		mvk.PUT("/requirements/:id", c.mvk.UpdateRequirement)
		mvk.DELETE("/requirements/:id", c.mvk.DeleteRequirement)
		mvk.POST("/certifications", c.mvk.CreateCertification)

		g := admin.Group("/gamification")
		g.POST("/init", c.gamification.InitCatalog)
		g.POST("/badges", c.gamification.CreateBadge)
		g.POST("/badges/:id/icon", c.gamification.UploadBadgeIcon)
		g.POST("/badges/award", c.gamification.AwardBadge)
		g.POST("/achievements", c.gamification.CreateAchievement)
		g.POST("/achievements/unlock", c.gamification.UnlockAchievement)
		g.POST("/levels", c.gamification.CreateLevel)
		g.POST("/points/award", c.gamification.AwardPoints)
		g.POST("/record/course/:courseId/complete", c.gamification.RecordCourseCompletion)
		g.POST("/record/assessment/:submissionId/complete", c.gamification.RecordAssessmentCompletion)
	}
}
