package app

import (
	"ace_lms_backend/internal/config"
	"ace_lms_backend/internal/controller"
	"ace_lms_backend/internal/repository"
	"ace_lms_backend/internal/scheduler"
	"ace_lms_backend/internal/service"
	"ace_lms_backend/pkg/configwatcher"
	"ace_lms_backend/pkg/database"
	"ace_lms_backend/pkg/logger"
	"ace_lms_backend/pkg/monitoring"
	"ace_lms_backend/pkg/security"
	"ace_lms_backend/pkg/tracing"
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const configFile = "configs/config.yaml"

type App struct {
	Config *config.Config
	Router *gin.Engine
	DB     *gorm.DB

	services        *services
	scheduler       *scheduler.Scheduler
	tracer          *sdktrace.TracerProvider
	origins         *security.OriginList
	configCallbacks []func(*config.Config)
}

type repositories struct {
	user        *repository.UserRepository
	course      *repository.CourseRepository
	assessment  *repository.AssessmentRepository
	submission  *repository.SubmissionRepository
	mvk         *repository.MVKRepository
	progress    *repository.ProgressRepository
	badge       *repository.BadgeRepository
	achievement *repository.AchievementRepository
	level       *repository.LevelRepository
	point       *repository.PointRepository
	seed        *repository.SeedRepository
}

type services struct {
	storage      *service.StorageService
	user         *service.UserService
	auth         *service.AuthService
	gamification *service.GamificationService
	mvk          *service.MVKService
	assessment   *service.AssessmentService
	submission   *service.SubmissionService
	course       *service.CourseService
}

type controllers struct {
	health       *controller.HealthController
	auth         *controller.AuthController
	course       *controller.CourseController
	assessment   *controller.AssessmentController
	mvk          *controller.MVKController
	gamification *controller.GamificationController
}

func (a *App) RegisterConfigCallback(callback func(*config.Config)) {
	a.configCallbacks = append(a.configCallbacks, callback)
}

func (a *App) initRepositories(db *gorm.DB) *repositories {
	return &repositories{
		user:        repository.NewUserRepository(db),
		course:      repository.NewCourseRepository(db),
		assessment:  repository.NewAssessmentRepository(db),
		submission:  repository.NewSubmissionRepository(db),
		mvk:         repository.NewMVKRepository(db),
		progress:    repository.NewProgressRepository(db),
		badge:       repository.NewBadgeRepository(db),
		achievement: repository.NewAchievementRepository(db),
		level:       repository.NewLevelRepository(db),
		point:       repository.NewPointRepository(db),
		seed:        repository.NewSeedRepository(db),
	}
}

// initServices 依赖顺序：user -> gamification -> mvk -> assessment/submission -> course
func (a *App) initServices(repos *repositories, cfg *config.Config) (*services, error) {
	s := &services{}

	storage, err := service.NewStorageService(cfg)
	if err != nil {
		return nil, err
	}
	s.storage = storage
	s.user = service.NewUserService(repos.user)
	s.auth = service.NewAuthService(repos.user, cfg)

	s.gamification = service.NewGamificationService(
		repos.point,
		repos.badge,
		repos.achievement,
		repos.level,
		repos.seed,
		repos.user,
		repos.course,
		repos.submission,
		repos.assessment,
		s.user,
		s.storage,
		cfg.Gamification,
	)

	s.mvk = service.NewMVKService(
		repos.mvk,
		repos.progress,
		repos.course,
		repos.assessment,
		s.user,
		s.gamification,
	)

	s.assessment = service.NewAssessmentService(repos.assessment)
	s.submission = service.NewSubmissionService(
		repos.submission,
		repos.assessment,
		s.user,
		s.mvk,
		s.gamification,
	)
	s.course = service.NewCourseService(repos.course, s.user, s.mvk, s.gamification)

	return s, nil
}

func (a *App) initControllers(s *services, db *gorm.DB) *controllers {
	return &controllers{
		health:       controller.NewHealthController(db),
		auth:         controller.NewAuthController(s.auth, s.user),
		course:       controller.NewCourseController(s.course),
		assessment:   controller.NewAssessmentController(s.assessment, s.submission),
		mvk:          controller.NewMVKController(s.mvk),
		gamification: controller.NewGamificationController(s.gamification, a.Config.Seed.Version),
	}
}

func (a *App) setupMiddlewares(router *gin.Engine, cfg *config.Config) {
	a.origins = security.NewOriginList(cfg.CORS.AllowedOrigins)
	a.RegisterConfigCallback(func(next *config.Config) {
		a.origins.Set(next.CORS.AllowedOrigins)
	})

	router.Use(security.CORS(a.origins))
	router.Use(security.Secure())
	router.Use(security.RateLimiter(cfg.RateLimit.MaxRequests, time.Duration(cfg.RateLimit.WindowMinutes)*time.Minute))

	// 分布式追踪中间件
	if cfg.Tracing.Enabled {
		router.Use(tracing.GinMiddleware())
	}

	router.Use(monitoring.MetricsMiddleware())
}

// seed 默认积分目录与初始管理员，失败只记录日志
func (a *App) seed(s *services, cfg *config.Config) {
	report, err := s.gamification.SeedDefaultCatalog(cfg.Seed.Version, false)
	if err != nil {
		logger.Log.Error("Failed to seed gamification catalog", zap.Error(err))
	} else if report != nil {
		logger.Log.Info("Gamification catalog checked", zap.Any("report", report))
	}

	created, err := s.auth.EnsureAdmin(cfg.Seed.AdminEmail, cfg.Seed.AdminPassword)
	if err != nil {
		logger.Log.Error("Failed to ensure admin account", zap.Error(err))
	} else if created {
		logger.Log.Info("Admin account created", zap.String("email", cfg.Seed.AdminEmail))
	}
}

func (a *App) startBackgroundTasks(repos *repositories, s *services, cfg *config.Config) {
	if !cfg.Scheduler.Enabled {
		return
	}
	a.scheduler = scheduler.New(repos.point, repos.progress, s.gamification)
	if err := a.scheduler.Start(cfg.Scheduler.MaintenanceCron); err != nil {
		logger.Log.Error("Failed to start scheduler", zap.Error(err))
		a.scheduler = nil
	}
}

func (a *App) watchConfig(ctx context.Context) {
	a.RegisterConfigCallback(logger.Reload)
	go func() {
		err := configwatcher.WatchConfig(ctx, configFile, func(next *config.Config) {
			for _, cb := range a.configCallbacks {
				cb(next)
			}
		})
		if err != nil {
			logger.Log.Warn("Config watcher stopped", zap.Error(err))
		}
	}()
}

func NewApp(cfg *config.Config) (*App, error) {
	logger.InitLogger(cfg)
	logger.Log.Info("Logger initialized successfully")

	db, err := database.InitDB(&cfg.Database, cfg.ForceMigrate || cfg.Server.Mode != "release")
	if err != nil {
		logger.Log.Error("Failed to initialize database", zap.Error(err))
		return nil, err
	}

	app := &App{
		Config: cfg,
		DB:     db,
	}
	if cfg.MigrateOnly {
		return app, nil
	}

	repos := app.initRepositories(db)
	services, err := app.initServices(repos, cfg)
	if err != nil {
		logger.Log.Error("Failed to initialize services", zap.Error(err))
		return nil, err
	}
	app.services = services
	controllers := app.initControllers(services, db)

	// 监控初始化
	monitoring.Init()

	if cfg.Server.Mode != "" {
		gin.SetMode(cfg.Server.Mode)
	}
	router := gin.Default()
	app.Router = router

	app.setupMiddlewares(router, cfg)

	if cfg.Tracing.Enabled {
		tp, err := tracing.InitTracer("ace-lms-backend", cfg.Tracing.CollectorEndpoint)
		if err != nil {
			logger.Log.Error("Failed to initialize tracing", zap.Error(err))
		} else {
			app.tracer = tp
		}
	}

	app.registerRoutes(router, controllers, repos, cfg)

	if cfg.Storage.Type == "local" {
		router.Static("/uploads", filepath.Clean(cfg.Storage.LocalPath))
	}

	app.seed(services, cfg)
	app.startBackgroundTasks(repos, services, cfg)

	return app, nil
}

func (a *App) Run() {
	ctx, stop := context.WithCancel(context.Background())
	defer stop()
	a.watchConfig(ctx)

	srv := &http.Server{
		Addr:    ":" + a.Config.Server.Port,
		Handler: a.Router,
	}

	// 启动服务器
	go func() {
		logger.Log.Info("Server running", zap.String("port", a.Config.Server.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Log.Fatal("listen failed", zap.Error(err))
		}
	}()

	// 等待中断信号优雅地关闭服务器（设置5秒的超时时间）
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Log.Info("Shutting down server...")

	if a.scheduler != nil {
		a.scheduler.Stop()
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Log.Error("Server forced to shutdown", zap.Error(err))
	}

	if a.tracer != nil {
		if err := a.tracer.Shutdown(shutdownCtx); err != nil {
			logger.Log.Error("Failed to shutdown tracer provider", zap.Error(err))
		}
	}

	logger.Log.Info("Server exiting")
}
