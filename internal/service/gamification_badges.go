package service

import (
	"ace_lms_backend/internal/model"
	"ace_lms_backend/internal/repository"
	"ace_lms_backend/internal/util"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type BadgeRequest struct {
	Name        string `json:"name" binding:"required,max=100"`
	Description string `json:"description"`
	Category    string `json:"category" binding:"required,oneof=course_completion assessment achievement participation streak"`
	Tier        string `json:"tier" binding:"required,oneof=bronze silver gold platinum"`
	Icon        string `json:"icon"`
	PointValue  *int   `json:"pointValue" binding:"omitempty,min=0"`
	Criteria    string `json:"criteria"`
	IsActive    *bool  `json:"isActive"`
}

type AwardBadgeRequest struct {
	UserID  string `json:"userId" binding:"required"`
	BadgeID string `json:"badgeId" binding:"required"`
	Reason  string `json:"reason"`
}

type AchievementRequest struct {
	Name            string                 `json:"name" binding:"required,max=100"`
	Description     string                 `json:"description"`
	Type            string                 `json:"type" binding:"required,oneof=course_streak assessment_score content_completion login_streak special"`
	TriggerType     string                 `json:"triggerType" binding:"omitempty,oneof=automatic manual"`
	Icon            string                 `json:"icon"`
	PointValue      *int                   `json:"pointValue" binding:"omitempty,min=0"`
	TriggerCriteria map[string]interface{} `json:"triggerCriteria"`
	BadgeID         string                 `json:"badgeId"`
	IsActive        *bool                  `json:"isActive"`
}

type UnlockAchievementRequest struct {
	UserID        string                 `json:"userId" binding:"required"`
	AchievementID string                 `json:"achievementId" binding:"required"`
	Progress      *int                   `json:"progress" binding:"omitempty,min=0,max=100"`
	Metadata      map[string]interface{} `json:"metadata"`
}

type UnlockResult struct {
	UserAchievement *model.UserAchievement `json:"userAchievement"`
	Unlocked        bool                   `json:"unlocked"`
	Updated         bool                   `json:"updated"`
}

// 徽章

func (s *GamificationService) CreateBadge(req BadgeRequest) (*model.Badge, error) {
	if err := validateStruct(req); err != nil {
		return nil, err
	}
	_, err := s.BadgeRepo.FindByName(req.Name)
	if err == nil {
		return nil, util.AlreadyExists("badge named %s already exists", req.Name)
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	b := &model.Badge{
		Name:        req.Name,
		Description: req.Description,
		Category:    model.BadgeCategory(req.Category),
		Tier:        model.BadgeTier(req.Tier),
		Icon:        req.Icon,
		PointValue:  intOr(req.PointValue, 0),
		Criteria:    req.Criteria,
		IsActive:    boolOr(req.IsActive, true),
	}
	if err := s.BadgeRepo.Create(b); err != nil {
		return nil, err
	}
	return b, nil
}

func (s *GamificationService) GetBadge(id string) (*model.Badge, error) {
	if err := requireID(id, "badge ID"); err != nil {
		return nil, err
	}
	b, err := s.BadgeRepo.FindByID(id)
	if err != nil {
		return nil, notFoundOr(err, "badge with ID %s not found", id)
	}
	return b, nil
}

func (s *GamificationService) ListBadges(f repository.BadgeFilter) ([]model.Badge, error) {
	return s.BadgeRepo.List(f)
}

// AwardBadge 同一徽章不能重复授予，重复时不会产生积分
func (s *GamificationService) AwardBadge(req AwardBadgeRequest) (*model.UserBadge, error) {
	if err := validateStruct(req); err != nil {
		return nil, err
	}
	if err := requireID(req.UserID, "user ID"); err != nil {
		return nil, err
	}
	if err := s.UserService.ensureUser(req.UserID); err != nil {
		return nil, err
	}
	badge, err := s.GetBadge(req.BadgeID)
	if err != nil {
		return nil, err
	}

	has, err := s.BadgeRepo.UserHasBadge(req.UserID, badge.ID)
	if err != nil {
		return nil, err
	}
	if has {
		return nil, util.AlreadyExists("user already has badge: %s", badge.Name)
	}

	reason := req.Reason
	if reason == "" {
		reason = fmt.Sprintf("Earned %s badge", badge.Name)
	}
	ub := &model.UserBadge{
		UserID:      req.UserID,
		BadgeID:     badge.ID,
		AwardedAt:   time.Now(),
		AwardReason: reason,
		IsDisplayed: true,
	}
	if err := s.BadgeRepo.CreateUserBadge(ub); err != nil {
		return nil, duplicateOr(err, "user already has badge: %s", badge.Name)
	}
	ub.Badge = badge

	if badge.PointValue > 0 {
		_, err = s.AwardPoints(AwardPointsRequest{
			UserID:      req.UserID,
			Amount:      badge.PointValue,
			Source:      string(model.SourceBadge),
			ReferenceID: badge.ID,
			Description: fmt.Sprintf("Earned %d points for badge: %s", badge.PointValue, badge.Name),
		})
	} else {
		_, err = s.RecomputeUserStats(req.UserID)
	}
	if err != nil {
		return nil, err
	}
	return ub, nil
}

func (s *GamificationService) GetUserBadges(userID string) ([]model.UserBadge, error) {
	if err := requireID(userID, "user ID"); err != nil {
		return nil, err
	}
	return s.BadgeRepo.FindUserBadges(userID)
}

// UploadBadgeIcon 校验扩展名、大小和真实 MIME 类型后写入存储
func (s *GamificationService) UploadBadgeIcon(ctx context.Context, badgeID, filename string, reader io.Reader, size int64) (string, error) {
	badge, err := s.GetBadge(badgeID)
	if err != nil {
		return "", err
	}
	if !util.HasAllowedExtension(filename, util.AllowedIconExtensions) {
		return "", util.InvalidArgument("unsupported icon extension")
	}
	if size <= 0 || size > util.MaxIconSizeBytes {
		return "", util.InvalidArgument("icon must be between 1 byte and %d bytes", util.MaxIconSizeBytes)
	}

	var head bytes.Buffer
	mimeType, err := util.ValidateMimeType(io.TeeReader(reader, &head), []string{util.MimeImage})
	if err != nil {
		return "", util.InvalidArgument("%s", err.Error())
	}

	key := fmt.Sprintf("badges/%s%s", badge.ID, strings.ToLower(filepath.Ext(filename)))
	url, err := s.Storage.Upload(ctx, key, io.MultiReader(&head, reader), size, mimeType)
	if err != nil {
		return "", err
	}
	if err := s.BadgeRepo.UpdateIcon(badge.ID, url); err != nil {
		return "", err
	}
	return url, nil
}

// 成就

func (s *GamificationService) CreateAchievement(req AchievementRequest) (*model.Achievement, error) {
	if err := validateStruct(req); err != nil {
		return nil, err
	}

	a := &model.Achievement{
		Name:            req.Name,
		Description:     req.Description,
		Type:            model.AchievementType(req.Type),
		TriggerType:     model.TriggerType(req.TriggerType),
		Icon:            req.Icon,
		PointValue:      intOr(req.PointValue, 0),
		TriggerCriteria: datatypes.JSONMap(req.TriggerCriteria),
		IsActive:        boolOr(req.IsActive, true),
	}
	if a.TriggerType == "" {
		a.TriggerType = model.TriggerAutomatic
	}
	if req.BadgeID != "" {
		badge, err := s.GetBadge(req.BadgeID)
		if err != nil {
			return nil, err
		}
		a.BadgeID = &badge.ID
	}

	if err := s.AchievementRepo.Create(a); err != nil {
		return nil, err
	}
	return a, nil
}

func (s *GamificationService) GetAchievement(id string) (*model.Achievement, error) {
	if err := requireID(id, "achievement ID"); err != nil {
		return nil, err
	}
	a, err := s.AchievementRepo.FindByID(id)
	if err != nil {
		return nil, notFoundOr(err, "achievement with ID %s not found", id)
	}
	return a, nil
}

func (s *GamificationService) ListAchievements(f repository.AchievementFilter) ([]model.Achievement, error) {
	return s.AchievementRepo.List(f)
}

// UnlockAchievement 进度只增不减。首次达到 100 时发放积分和关联徽章；
// 已解锁的成就再次解锁返回 AlreadyExists。未给出进度时新记录按 100 处理，
// 已有的部分进度保持不变
func (s *GamificationService) UnlockAchievement(req UnlockAchievementRequest) (*UnlockResult, error) {
	if err := validateStruct(req); err != nil {
		return nil, err
	}
	if err := requireID(req.UserID, "user ID"); err != nil {
		return nil, err
	}
	if err := s.UserService.ensureUser(req.UserID); err != nil {
		return nil, err
	}
	ach, err := s.GetAchievement(req.AchievementID)
	if err != nil {
		return nil, err
	}
	ua, err := s.AchievementRepo.FindUserAchievement(req.UserID, ach.ID)
	isNew := false
	if errors.Is(err, gorm.ErrRecordNotFound) {
		ua = &model.UserAchievement{UserID: req.UserID, AchievementID: ach.ID}
		isNew = true
	} else if err != nil {
		return nil, err
	}

	if ua.Progress >= 100 {
		return nil, util.AlreadyExists("user already unlocked achievement: %s", ach.Name)
	}
	progress := intOr(req.Progress, 100)
	if !isNew && (req.Progress == nil || progress <= ua.Progress) {
		return &UnlockResult{UserAchievement: ua}, nil
	}

	ua.Progress = progress
	if len(req.Metadata) > 0 {
		if ua.Metadata == nil {
			ua.Metadata = datatypes.JSONMap{}
		}
		for k, v := range req.Metadata {
			ua.Metadata[k] = v
		}
	}
	unlocked := progress >= 100
	if unlocked {
		now := time.Now()
		ua.UnlockedAt = &now
	}

	if isNew {
		err = s.AchievementRepo.CreateUserAchievement(ua)
	} else {
		err = s.AchievementRepo.SaveUserAchievement(ua)
	}
	if err != nil {
		return nil, duplicateOr(err, "user already unlocked achievement: %s", ach.Name)
	}

	if unlocked {
		if err := s.grantAchievementRewards(req.UserID, ach); err != nil {
			return nil, err
		}
	}
	ua.Achievement = ach
	return &UnlockResult{UserAchievement: ua, Unlocked: unlocked, Updated: true}, nil
}

// grantAchievementRewards 关联徽章已持有时忽略，其它错误向上返回
func (s *GamificationService) grantAchievementRewards(userID string, ach *model.Achievement) error {
	if ach.PointValue > 0 {
		_, err := s.AwardPoints(AwardPointsRequest{
			UserID:      userID,
			Amount:      ach.PointValue,
			Source:      string(model.SourceAchievement),
			ReferenceID: ach.ID,
			Description: fmt.Sprintf("Earned %d points for achievement: %s", ach.PointValue, ach.Name),
		})
		if err != nil {
			return err
		}
	}

	if ach.BadgeID != nil {
		_, err := s.AwardBadge(AwardBadgeRequest{
			UserID:  userID,
			BadgeID: *ach.BadgeID,
			Reason:  fmt.Sprintf("Unlocked achievement: %s", ach.Name),
		})
		if err != nil && !errors.Is(err, util.ErrAlreadyExists) {
			return err
		}
	}

	_, err := s.RecomputeUserStats(userID)
	return err
}

func (s *GamificationService) GetUserAchievements(userID string) ([]model.UserAchievement, error) {
	if err := requireID(userID, "user ID"); err != nil {
		return nil, err
	}
	return s.AchievementRepo.FindUserAchievements(userID)
}
