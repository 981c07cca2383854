package database

import (
	"ace_lms_backend/internal/config"
	"ace_lms_backend/internal/model"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Models 全部需要迁移的表
func Models() []interface{} {
	return []interface{}{
		&model.User{},
		&model.Course{},
		&model.Question{},
		&model.Assessment{},
		&model.AssessmentQuestion{},
		&model.Submission{},
		&model.MVKRequirement{},
		&model.MVKCertification{},
		&model.CertificationRequirement{},
		&model.UserProgress{},
		&model.UserCertification{},
		&model.Badge{},
		&model.UserBadge{},
		&model.Achievement{},
		&model.UserAchievement{},
		&model.Level{},
		&model.PointTransaction{},
		&model.UserStats{},
		&model.SeedMarker{},
	}
}

func dialector(cfg *config.DatabaseConfig) (gorm.Dialector, error) {
	switch cfg.Driver {
	case "", "mysql":
		dsn := fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=%s&parseTime=%t&loc=Local",
			cfg.User,
			cfg.Password,
			cfg.Host,
			cfg.Port,
			cfg.DBName,
			cfg.Charset,
			cfg.ParseTime,
		)
		return mysql.Open(dsn), nil
	case "postgres":
		dsn := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s TimeZone=UTC",
			cfg.Host,
			cfg.Port,
			cfg.User,
			cfg.Password,
			cfg.DBName,
			cfg.SSLMode,
		)
		return postgres.Open(dsn), nil
	case "sqlite":
		if dir := filepath.Dir(cfg.Path); dir != "." {
			if err := os.MkdirAll(dir, 0755); err != nil {
				return nil, err
			}
		}
		return sqlite.Open(cfg.Path), nil
	}
	return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
}

// GormConfig 所有驱动共用的 gorm 配置
func GormConfig(level logger.LogLevel) *gorm.Config {
	return &gorm.Config{
		Logger:                                   logger.Default.LogMode(level),
		TranslateError:                           true,
		DisableForeignKeyConstraintWhenMigrating: true,
	}
}

func InitDB(cfg *config.DatabaseConfig, migrate bool) (*gorm.DB, error) {
	d, err := dialector(cfg)
	if err != nil {
		return nil, err
	}

	db, err := gorm.Open(d, GormConfig(logger.Warn))
	if err != nil {
		return nil, err
	}

	log.Println("Database connection established")

	if cfg.Driver == "sqlite" {
		// sqlite 不支持并发写
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.SetMaxOpenConns(1)
		}
	}

	if migrate {
		if err := Migrate(db); err != nil {
			return nil, err
		}
		log.Println("Database migration completed")
	}

	return db, nil
}

func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(Models()...)
}
