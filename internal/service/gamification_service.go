package service

import (
	"ace_lms_backend/internal/config"
	"ace_lms_backend/internal/model"
	"ace_lms_backend/internal/repository"
	"ace_lms_backend/internal/util"
	"ace_lms_backend/pkg/logger"
	"ace_lms_backend/pkg/monitoring"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

type GamificationService struct {
	PointRepo       *repository.PointRepository
	BadgeRepo       *repository.BadgeRepository
	AchievementRepo *repository.AchievementRepository
	LevelRepo       *repository.LevelRepository
	SeedRepo        *repository.SeedRepository
	UserRepo        *repository.UserRepository
	CourseRepo      *repository.CourseRepository
	SubmissionRepo  *repository.SubmissionRepository
	AssessmentRepo  *repository.AssessmentRepository
	UserService     *UserService
	Storage         *StorageService
	Cfg             config.GamificationConfig
}

func NewGamificationService(
	pointRepo *repository.PointRepository,
	badgeRepo *repository.BadgeRepository,
	achievementRepo *repository.AchievementRepository,
	levelRepo *repository.LevelRepository,
	seedRepo *repository.SeedRepository,
	userRepo *repository.UserRepository,
	courseRepo *repository.CourseRepository,
	submissionRepo *repository.SubmissionRepository,
	assessmentRepo *repository.AssessmentRepository,
	userService *UserService,
	storage *StorageService,
	cfg config.GamificationConfig,
) *GamificationService {
	return &GamificationService{
		PointRepo:       pointRepo,
		BadgeRepo:       badgeRepo,
		AchievementRepo: achievementRepo,
		LevelRepo:       levelRepo,
		SeedRepo:        seedRepo,
		UserRepo:        userRepo,
		CourseRepo:      courseRepo,
		SubmissionRepo:  submissionRepo,
		AssessmentRepo:  assessmentRepo,
		UserService:     userService,
		Storage:         storage,
		Cfg:             cfg,
	}
}

type AwardPointsRequest struct {
	UserID         string     `json:"userId" binding:"required"`
	Amount         int        `json:"amount" binding:"required,gt=0"`
	Type           string     `json:"type" binding:"omitempty,oneof=earned spent expired adjusted"`
	Source         string     `json:"source" binding:"required"`
	ReferenceID    string     `json:"referenceId"`
	Description    string     `json:"description"`
	ExpirationDate *time.Time `json:"expirationDate"`
}

type LevelRequest struct {
	Number         int      `json:"number" binding:"required,min=1"`
	Name           string   `json:"name" binding:"required,max=100"`
	Description    string   `json:"description"`
	PointsRequired *int     `json:"pointsRequired" binding:"required,min=0"`
	Icon           string   `json:"icon"`
	Perks          []string `json:"perks"`
	IsActive       *bool    `json:"isActive"`
}

type PointsBalance struct {
	TotalPoints     int `json:"totalPoints"`
	AvailablePoints int `json:"availablePoints"`
	SpentPoints     int `json:"spentPoints"`
	ExpiredPoints   int `json:"expiredPoints"`
}

type UserLevelInfo struct {
	CurrentLevel      *model.Level `json:"currentLevel"`
	NextLevel         *model.Level `json:"nextLevel,omitempty"`
	TotalPoints       int          `json:"totalPoints"`
	Progress          int          `json:"progress"`
	PointsToNextLevel int          `json:"pointsToNextLevel"`
}

type LevelUpResult struct {
	LeveledUp bool `json:"leveledUp"`
	From      int  `json:"from"`
	To        int  `json:"to"`
}

type LeaderboardEntry struct {
	Rank              int                  `json:"rank"`
	UserID            string               `json:"userId"`
	TotalPoints       int                  `json:"totalPoints"`
	CurrentLevel      int                  `json:"currentLevel"`
	BadgesCount       int                  `json:"badgesCount"`
	AchievementsCount int                  `json:"achievementsCount"`
	UserInfo          *model.BasicUserInfo `json:"userInfo,omitempty"`
}

// 积分

// AwardPoints 追加一条流水，然后重算汇总并检查升级
func (s *GamificationService) AwardPoints(req AwardPointsRequest) (*model.PointTransaction, error) {
	if err := validateStruct(req); err != nil {
		return nil, err
	}
	source := model.PointSource(req.Source)
	if !model.ValidPointSource(source) {
		return nil, util.InvalidArgument("invalid point source: %s", req.Source)
	}
	if req.ReferenceID != "" && !model.IsValidID(req.ReferenceID) {
		return nil, util.InvalidArgument("invalid reference ID")
	}
	if err := s.UserService.ensureUser(req.UserID); err != nil {
		return nil, err
	}

	txType := model.TransactionType(req.Type)
	if txType == "" {
		txType = model.TransactionEarned
	}
	desc := req.Description
	if desc == "" {
		desc = fmt.Sprintf("Earned %d points from %s", req.Amount, source)
	}

	tx := &model.PointTransaction{
		UserID:          req.UserID,
		Amount:          req.Amount,
		Type:            txType,
		Source:          source,
		ReferenceID:     req.ReferenceID,
		Description:     desc,
		TransactionDate: time.Now(),
		ExpirationDate:  req.ExpirationDate,
	}
	if err := s.PointRepo.CreateTransaction(tx); err != nil {
		return nil, err
	}
	monitoring.PointsAwarded.WithLabelValues(string(source)).Add(float64(req.Amount))

	if _, err := s.RecomputeUserStats(req.UserID); err != nil {
		return nil, err
	}
	if _, err := s.CheckLevelUp(req.UserID); err != nil {
		return nil, err
	}
	return tx, nil
}

// foldTransactions 余额的权威定义，UserStats 必须与之一致
func foldTransactions(txs []model.PointTransaction) PointsBalance {
	var b PointsBalance
	for _, t := range txs {
		switch t.Type {
		case model.TransactionEarned:
			b.TotalPoints += t.Amount
			if t.Expired {
				b.ExpiredPoints += t.Amount
			} else {
				b.AvailablePoints += t.Amount
			}
		case model.TransactionSpent:
			b.SpentPoints += t.Amount
		case model.TransactionExpired:
			b.ExpiredPoints += t.Amount
		case model.TransactionAdjusted:
			b.TotalPoints += t.Amount
			b.AvailablePoints += t.Amount
		}
	}
	return b
}

// PointsBalance 优先读取汇总行，没有时直接折叠流水
func (s *GamificationService) PointsBalance(userID string) (*PointsBalance, error) {
	if err := requireID(userID, "user ID"); err != nil {
		return nil, err
	}
	stats, err := s.PointRepo.FindStats(userID)
	if err == nil {
		return &PointsBalance{
			TotalPoints:     stats.TotalPoints,
			AvailablePoints: stats.AvailablePoints,
			SpentPoints:     stats.SpentPoints,
			ExpiredPoints:   stats.ExpiredPoints,
		}, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}
	txs, err := s.PointRepo.FindTransactions(userID)
	if err != nil {
		return nil, err
	}
	b := foldTransactions(txs)
	return &b, nil
}

func (s *GamificationService) GetUserPointTransactions(userID string) ([]model.PointTransaction, error) {
	if err := requireID(userID, "user ID"); err != nil {
		return nil, err
	}
	return s.PointRepo.FindTransactions(userID)
}

// 汇总

// GetUserStats 不存在时以 1 级初始化
func (s *GamificationService) GetUserStats(userID string) (*model.UserStats, error) {
	if err := requireID(userID, "user ID"); err != nil {
		return nil, err
	}
	stats, err := s.PointRepo.FindStats(userID)
	if err == nil {
		return stats, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}
	if err := s.UserService.ensureUser(userID); err != nil {
		return nil, err
	}

	stats = &model.UserStats{UserID: userID, CurrentLevel: 1}
	if err := s.PointRepo.CreateStats(stats); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return s.PointRepo.FindStats(userID)
		}
		return nil, err
	}
	return stats, nil
}

// RecomputeUserStats 从流水和徽章/成就记录重建汇总，可重复执行
func (s *GamificationService) RecomputeUserStats(userID string) (*model.UserStats, error) {
	stats, err := s.GetUserStats(userID)
	if err != nil {
		return nil, err
	}

	txs, err := s.PointRepo.FindTransactions(userID)
	if err != nil {
		return nil, err
	}
	b := foldTransactions(txs)

	badges, err := s.BadgeRepo.CountUserBadges(userID)
	if err != nil {
		return nil, err
	}
	unlocked, err := s.AchievementRepo.CountUnlocked(userID)
	if err != nil {
		return nil, err
	}
	displayed, err := s.BadgeRepo.DisplayedBadgeIDs(userID)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	stats.TotalPoints = b.TotalPoints
	stats.AvailablePoints = b.AvailablePoints
	stats.SpentPoints = b.SpentPoints
	stats.ExpiredPoints = b.ExpiredPoints
	stats.BadgesCount = int(badges)
	stats.AchievementsCount = int(unlocked)
	stats.ActiveBadges = displayed
	stats.LastActivityAt = &now

	if err := s.PointRepo.UpdateRollup(stats); err != nil {
		return nil, err
	}
	return stats, nil
}

// 等级

// CheckLevelUp 每次最多升一级
func (s *GamificationService) CheckLevelUp(userID string) (*LevelUpResult, error) {
	stats, err := s.GetUserStats(userID)
	if err != nil {
		return nil, err
	}
	res := &LevelUpResult{From: stats.CurrentLevel, To: stats.CurrentLevel}

	next, err := s.LevelRepo.FindByNumber(stats.CurrentLevel + 1)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return res, nil
	}
	if err != nil {
		return nil, err
	}
	if stats.TotalPoints < next.PointsRequired {
		return res, nil
	}

	ok, err := s.PointRepo.AdvanceLevel(userID, stats.CurrentLevel, next.Number)
	if err != nil {
		return nil, err
	}
	if !ok {
		// 并发请求已经推进过
		return res, nil
	}
	res.LeveledUp = true
	res.To = next.Number

	logger.Log.Info("User leveled up",
		zap.String("userId", userID),
		zap.Int("from", res.From),
		zap.Int("to", res.To))

	s.unlockLevelAchievements(userID, next.Number)
	return res, nil
}

func (s *GamificationService) unlockLevelAchievements(userID string, level int) {
	list, err := s.AchievementRepo.List(repository.AchievementFilter{
		Type:     model.AchievementSpecial,
		IsActive: boolPtr(true),
	})
	if err != nil {
		logger.Log.Warn("load level achievements failed", zap.Error(err))
		return
	}
	for _, a := range list {
		if criteriaString(a.TriggerCriteria, "type") != "level_up" {
			continue
		}
		if n, ok := criteriaInt(a.TriggerCriteria, "level"); !ok || n != level {
			continue
		}
		runSideEffect(StepAchievementUnlock, a.ID, func() error {
			_, err := s.UnlockAchievement(UnlockAchievementRequest{UserID: userID, AchievementID: a.ID, Progress: intPtr(100)})
			if errors.Is(err, util.ErrAlreadyExists) {
				return nil
			}
			return err
		})
	}
}

// CreateLevel 等级必须连续编号，且所需积分严格递增
func (s *GamificationService) CreateLevel(req LevelRequest) (*model.Level, error) {
	if err := validateStruct(req); err != nil {
		return nil, err
	}

	_, err := s.LevelRepo.FindByNumber(req.Number)
	if err == nil {
		return nil, util.AlreadyExists("level %d already exists", req.Number)
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	if req.Number > 1 {
		prev, err := s.LevelRepo.FindByNumber(req.Number - 1)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, util.BusinessRule("cannot create level %d before creating level %d", req.Number, req.Number-1)
		}
		if err != nil {
			return nil, err
		}
		if *req.PointsRequired <= prev.PointsRequired {
			return nil, util.BusinessRule("level %d must require more than %d points", req.Number, prev.PointsRequired)
		}
	}

	level := &model.Level{
		Number:         req.Number,
		Name:           req.Name,
		Description:    req.Description,
		PointsRequired: *req.PointsRequired,
		Icon:           req.Icon,
		Perks:          req.Perks,
		IsActive:       boolOr(req.IsActive, true),
	}
	if err := s.LevelRepo.Create(level); err != nil {
		return nil, duplicateOr(err, "level %d already exists", req.Number)
	}
	return level, nil
}

func (s *GamificationService) ListLevels() ([]model.Level, error) {
	return s.LevelRepo.List()
}

func (s *GamificationService) GetLevel(id string) (*model.Level, error) {
	if err := requireID(id, "level ID"); err != nil {
		return nil, err
	}
	l, err := s.LevelRepo.FindByID(id)
	if err != nil {
		return nil, notFoundOr(err, "level with ID %s not found", id)
	}
	return l, nil
}

func (s *GamificationService) GetLevelByNumber(number int) (*model.Level, error) {
	if number < 1 {
		return nil, util.InvalidArgument("level number must be at least 1")
	}
	l, err := s.LevelRepo.FindByNumber(number)
	if err != nil {
		return nil, notFoundOr(err, "level %d not found", number)
	}
	return l, nil
}

func (s *GamificationService) GetUserLevel(userID string) (*UserLevelInfo, error) {
	stats, err := s.GetUserStats(userID)
	if err != nil {
		return nil, err
	}
	info := &UserLevelInfo{TotalPoints: stats.TotalPoints, Progress: 100}

	cur, err := s.LevelRepo.FindByNumber(stats.CurrentLevel)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}
	info.CurrentLevel = cur

	next, err := s.LevelRepo.FindByNumber(stats.CurrentLevel + 1)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return info, nil
	}
	if err != nil {
		return nil, err
	}
	info.NextLevel = next

	base := 0
	if cur != nil {
		base = cur.PointsRequired
	}
	info.Progress = levelProgress(stats.TotalPoints, base, next.PointsRequired)
	if gap := next.PointsRequired - stats.TotalPoints; gap > 0 {
		info.PointsToNextLevel = gap
	}
	return info, nil
}

func levelProgress(points, from, to int) int {
	span := to - from
	if span <= 0 {
		return 100
	}
	p := (points - from) * 100 / span
	if p < 0 {
		return 0
	}
	if p > 100 {
		return 100
	}
	return p
}

// Leaderboard 用户信息补全失败时保留裸统计行
func (s *GamificationService) Leaderboard(limit int) ([]LeaderboardEntry, error) {
	if limit <= 0 {
		limit = util.DefaultLeaderboardLimit
	}
	if limit > util.MaxLeaderboardLimit {
		limit = util.MaxLeaderboardLimit
	}

	rows, err := s.PointRepo.Leaderboard(limit)
	if err != nil {
		return nil, err
	}

	ids := make([]string, 0, len(rows))
	for _, r := range rows {
		ids = append(ids, r.UserID)
	}
	users := make(map[string]*model.BasicUserInfo, len(ids))
	if list, err := s.UserRepo.FindByIDs(ids); err != nil {
		logger.Log.Warn("leaderboard user enrichment failed", zap.Error(err))
	} else {
		for i := range list {
			users[list[i].ID] = basicInfo(&list[i])
		}
	}

	entries := make([]LeaderboardEntry, 0, len(rows))
	for i, r := range rows {
		entries = append(entries, LeaderboardEntry{
			Rank:              i + 1,
			UserID:            r.UserID,
			TotalPoints:       r.TotalPoints,
			CurrentLevel:      r.CurrentLevel,
			BadgesCount:       r.BadgesCount,
			AchievementsCount: r.AchievementsCount,
			UserInfo:          users[r.UserID],
		})
	}
	return entries, nil
}
