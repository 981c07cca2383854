package repository

import (
	"ace_lms_backend/internal/model"
	"time"

	"gorm.io/gorm"
)

type PointRepository struct {
	DB *gorm.DB
}

func NewPointRepository(db *gorm.DB) *PointRepository {
	return &PointRepository{DB: db}
}

func (r *PointRepository) CreateTransaction(t *model.PointTransaction) error {
	return r.DB.Create(t).Error
}

func (r *PointRepository) FindTransactions(userID string) ([]model.PointTransaction, error) {
	var list []model.PointTransaction
	err := r.DB.Where("user_id = ?", userID).Order("transaction_date desc").Find(&list).Error
	return list, err
}

// HasReference 判断某来源+引用是否已经记过积分
func (r *PointRepository) HasReference(userID string, source model.PointSource, referenceID string) (bool, error) {
	var count int64
	err := r.DB.Model(&model.PointTransaction{}).
		Where("user_id = ? AND source = ? AND reference_id = ?", userID, source, referenceID).
		Count(&count).Error
	return count > 0, err
}

// ExpireDue 标记已到期的 earned 积分，返回受影响的用户
func (r *PointRepository) ExpireDue(now time.Time) ([]string, error) {
	var userIDs []string
	err := r.DB.Transaction(func(tx *gorm.DB) error {
		due := tx.Model(&model.PointTransaction{}).
			Where("type = ? AND expired = ? AND expiration_date IS NOT NULL AND expiration_date < ?",
				model.TransactionEarned, false, now)
		if err := due.Session(&gorm.Session{}).Distinct("user_id").Pluck("user_id", &userIDs).Error; err != nil {
			return err
		}
		if len(userIDs) == 0 {
			return nil
		}
		return due.Session(&gorm.Session{}).Update("expired", true).Error
	})
	return userIDs, err
}

func (r *PointRepository) FindStats(userID string) (*model.UserStats, error) {
	var s model.UserStats
	if err := r.DB.Where("user_id = ?", userID).First(&s).Error; err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *PointRepository) CreateStats(s *model.UserStats) error {
	return r.DB.Create(s).Error
}

// UpdateRollup 只更新可由源数据重建的汇总列，计数器和等级不受影响
func (r *PointRepository) UpdateRollup(s *model.UserStats) error {
	return r.DB.Model(&model.UserStats{}).Where("id = ?", s.ID).Updates(map[string]interface{}{
		"total_points":       s.TotalPoints,
		"available_points":   s.AvailablePoints,
		"spent_points":       s.SpentPoints,
		"expired_points":     s.ExpiredPoints,
		"badges_count":       s.BadgesCount,
		"achievements_count": s.AchievementsCount,
		"active_badges":      s.ActiveBadges,
		"last_activity_at":   s.LastActivityAt,
	}).Error
}

// AdvanceLevel 以当前等级为条件推进一级，返回是否成功
func (r *PointRepository) AdvanceLevel(userID string, from, to int) (bool, error) {
	res := r.DB.Model(&model.UserStats{}).
		Where("user_id = ? AND current_level = ?", userID, from).
		Update("current_level", to)
	return res.RowsAffected == 1, res.Error
}

func (r *PointRepository) IncrementCounter(userID, column string) error {
	return r.DB.Model(&model.UserStats{}).
		Where("user_id = ?", userID).
		Update(column, gorm.Expr(column+" + ?", 1)).Error
}

func (r *PointRepository) Leaderboard(limit int) ([]model.UserStats, error) {
	var list []model.UserStats
	err := r.DB.Order("total_points desc").
		Order("achievements_count desc").
		Order("badges_count desc").
		Limit(limit).
		Find(&list).Error
	return list, err
}

// TouchActivity 只更新已有汇总行的最后活跃时间
func (r *PointRepository) TouchActivity(userID string, at time.Time) error {
	return r.DB.Model(&model.UserStats{}).
		Where("user_id = ?", userID).
		Update("last_activity_at", at).Error
}
