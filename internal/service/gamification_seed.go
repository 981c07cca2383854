package service

import (
	"ace_lms_backend/internal/model"
	"ace_lms_backend/pkg/logger"
	"errors"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

const catalogMarker = "gamification_catalog"

type SeedReport struct {
	Skipped      bool `json:"skipped"`
	Version      int  `json:"version"`
	Levels       int  `json:"levels"`
	Badges       int  `json:"badges"`
	Achievements int  `json:"achievements"`
}

type catalogAchievement struct {
	AchievementRequest
	BadgeName string
}

var defaultLevels = []LevelRequest{
	{Number: 1, Name: "Novice", Description: "Just getting started", PointsRequired: intPtr(0)},
	{Number: 2, Name: "Apprentice", Description: "Learning the ropes", PointsRequired: intPtr(100)},
	{Number: 3, Name: "Practitioner", Description: "Applying knowledge regularly", PointsRequired: intPtr(300)},
	{Number: 4, Name: "Specialist", Description: "Deepening expertise", PointsRequired: intPtr(600)},
	{Number: 5, Name: "Expert", Description: "Recognised for strong skills", PointsRequired: intPtr(1000)},
	{Number: 6, Name: "Master", Description: "Leading by example", PointsRequired: intPtr(2000)},
	{Number: 7, Name: "Grandmaster", Description: "Exceptional mastery", PointsRequired: intPtr(4000)},
	{Number: 8, Name: "Legend", Description: "The very top", PointsRequired: intPtr(8000)},
}

var defaultBadges = []BadgeRequest{
	{Name: "First Steps", Description: "Completed your first course", Category: string(model.BadgeCourseCompletion), Tier: string(model.TierBronze), PointValue: intPtr(10)},
	{Name: "Perfect Score", Description: "Scored 100% on an assessment", Category: string(model.BadgeAssessment), Tier: string(model.TierGold), PointValue: intPtr(50)},
	{Name: "Quick Learner", Description: "Completed five courses", Category: string(model.BadgeCourseCompletion), Tier: string(model.TierSilver), PointValue: intPtr(30)},
	{Name: "Knowledge Seeker", Description: "Reached level 5", Category: string(model.BadgeAchievement), Tier: string(model.TierGold), PointValue: intPtr(100)},
}

var defaultAchievements = []catalogAchievement{
	{
		AchievementRequest: AchievementRequest{
			Name: "First Course Completed", Description: "Complete your first course",
			Type: string(model.AchievementContentCompletion), PointValue: intPtr(25),
			TriggerCriteria: map[string]interface{}{"type": "course_completion", "count": 1},
		},
		BadgeName: "First Steps",
	},
	{
		AchievementRequest: AchievementRequest{
			Name: "Assessment Ace", Description: "Score 100% on any assessment",
			Type: string(model.AchievementAssessmentScore), PointValue: intPtr(50),
			TriggerCriteria: map[string]interface{}{"perfectScore": true},
		},
		BadgeName: "Perfect Score",
	},
	{
		AchievementRequest: AchievementRequest{
			Name: "Course Champion", Description: "Complete five courses",
			Type: string(model.AchievementContentCompletion), PointValue: intPtr(75),
			TriggerCriteria: map[string]interface{}{"type": "course_completion", "count": 5},
		},
		BadgeName: "Quick Learner",
	},
	{
		AchievementRequest: AchievementRequest{
			Name: "Level 5 Achieved", Description: "Reach level 5",
			Type: string(model.AchievementSpecial), PointValue: intPtr(100),
			TriggerCriteria: map[string]interface{}{"type": "level_up", "level": 5},
		},
		BadgeName: "Knowledge Seeker",
	},
}

// SeedDefaultCatalog 写入默认等级、徽章和成就。版本标记不低于 version 时跳过（force 除外），
// 每张表只要已有数据就不再写入
func (s *GamificationService) SeedDefaultCatalog(version int, force bool) (*SeedReport, error) {
	report := &SeedReport{Version: version}

	marker, err := s.SeedRepo.FindMarker(catalogMarker)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}
	if marker != nil && marker.Version >= version && !force {
		report.Skipped = true
		return report, nil
	}

	if n, err := s.LevelRepo.Count(); err != nil {
		return nil, err
	} else if n == 0 {
		for _, req := range defaultLevels {
			if _, err := s.CreateLevel(req); err != nil {
				return nil, err
			}
			report.Levels++
		}
	}

	if n, err := s.BadgeRepo.Count(); err != nil {
		return nil, err
	} else if n == 0 {
		for _, req := range defaultBadges {
			if _, err := s.CreateBadge(req); err != nil {
				return nil, err
			}
			report.Badges++
		}
	}

	if n, err := s.AchievementRepo.Count(); err != nil {
		return nil, err
	} else if n == 0 {
		for _, def := range defaultAchievements {
			req := def.AchievementRequest
			if badge, err := s.BadgeRepo.FindByName(def.BadgeName); err == nil {
				req.BadgeID = badge.ID
			} else if !errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, err
			}
			if _, err := s.CreateAchievement(req); err != nil {
				return nil, err
			}
			report.Achievements++
		}
	}

	if marker == nil || marker.Version < version {
		if err := s.SeedRepo.SaveMarker(&model.SeedMarker{Name: catalogMarker, Version: version, AppliedAt: time.Now()}); err != nil {
			return nil, err
		}
	}

	logger.Log.Info("Gamification catalog seeded",
		zap.Int("version", version),
		zap.Int("levels", report.Levels),
		zap.Int("badges", report.Badges),
		zap.Int("achievements", report.Achievements))
	return report, nil
}
