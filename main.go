// @title ACE LMS 后端 API
// @version 1.0
// @description ACE 学习平台的后端服务：题库测评、MVK 认证与积分体系。

// @host localhost:8080
// @BasePath /
// @securityDefinitions.apikey ApiKeyAuth
// @in header
// @name Authorization

package main

import (
	"ace_lms_backend/internal/app"
	"ace_lms_backend/internal/config"
	"ace_lms_backend/pkg/logger"
	"flag"
	"log"

	"github.com/joho/godotenv"
)

func main() {
	// 命令行参数
	migrateOnly := flag.Bool("migrate-only", false, "只执行数据库迁移，完成后退出")
	migrate := flag.Bool("migrate", false, "启动时强制执行数据库迁移（即使是 release 模式）")
	flag.Parse()

	// .env 可选，不存在时使用环境变量
	_ = godotenv.Load()

	cfg, err := config.LoadConfig("configs")
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// 设置迁移标志
	cfg.ForceMigrate = *migrate || *migrateOnly
	cfg.MigrateOnly = *migrateOnly

	application, err := app.NewApp(cfg)
	if err != nil {
		log.Fatalf("Failed to start application: %v", err)
	}
	defer logger.Log.Sync()

	// 迁移完成后直接退出
	if *migrateOnly {
		log.Println("数据库迁移完成，退出程序")
		return
	}

	application.Run()
}
