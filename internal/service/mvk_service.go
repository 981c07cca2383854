package service

import (
	"ace_lms_backend/internal/model"
	"ace_lms_backend/internal/repository"
	"ace_lms_backend/internal/util"
	"ace_lms_backend/pkg/logger"
	"ace_lms_backend/pkg/monitoring"
	"errors"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	certificatePrefix   = "ACE-"
	certificateAttempts = 5
	certificateValidity = 2 // 年
)

// targetResolver 判断要求指向的实体是否存在
type targetResolver func(itemID string) (bool, error)

type MVKService struct {
	MVKRepo        *repository.MVKRepository
	ProgressRepo   *repository.ProgressRepository
	CourseRepo     *repository.CourseRepository
	AssessmentRepo *repository.AssessmentRepository
	UserService    *UserService
	Listener       CertificationListener

	resolvers map[model.RequirementType]targetResolver
}

func NewMVKService(
	mvkRepo *repository.MVKRepository,
	progressRepo *repository.ProgressRepository,
	courseRepo *repository.CourseRepository,
	assessmentRepo *repository.AssessmentRepository,
	userService *UserService,
	listener CertificationListener,
) *MVKService {
	s := &MVKService{
		MVKRepo:        mvkRepo,
		ProgressRepo:   progressRepo,
		CourseRepo:     courseRepo,
		AssessmentRepo: assessmentRepo,
		UserService:    userService,
		Listener:       listener,
	}
	s.resolvers = map[model.RequirementType]targetResolver{
		model.RequirementCourse:     courseRepo.Exists,
		model.RequirementAssessment: assessmentRepo.AssessmentExists,
		// 结业项目没有对应的表，只校验ID格式
		model.RequirementCapstone: func(string) (bool, error) { return true, nil },
	}
	return s
}

type RequirementRequest struct {
	Title       string `json:"title" binding:"required,max=255"`
	Description string `json:"description"`
	Level       string `json:"level" binding:"required"`
	College     string `json:"college" binding:"required"`
	Type        string `json:"type" binding:"required,oneof=course assessment capstone"`
	ItemID      string `json:"itemId" binding:"required"`
	IsRequired  *bool  `json:"isRequired"`
	Order       *int   `json:"order" binding:"omitempty,min=1"`
	MinScore    *int   `json:"minScore" binding:"omitempty,min=0,max=100"`
}

type CertificationRequest struct {
	Title                        string   `json:"title" binding:"required,max=255"`
	Description                  string   `json:"description"`
	Level                        string   `json:"level" binding:"required"`
	College                      string   `json:"college" binding:"required"`
	Requirements                 []string `json:"requirements"`
	RequiredCompletionPercentage *int     `json:"requiredCompletionPercentage" binding:"omitempty,min=0,max=100"`
	IsActive                     *bool    `json:"isActive"`
}

// ProgressPatch 两个入口：Status 驱动时间戳，Progress 驱动状态推导，先后顺序固定
type ProgressPatch struct {
	Status           *string `json:"status" binding:"omitempty,oneof=not_started in_progress completed"`
	Progress         *int    `json:"progress" binding:"omitempty,min=0"`
	Score            *int    `json:"score" binding:"omitempty,min=0"`
	TimeSpentMinutes *int    `json:"timeSpentMinutes" binding:"omitempty,min=0"`
}

type UpdateProgressRequest struct {
	UserID        string `json:"userId"`
	RequirementID string `json:"requirementId" binding:"required"`
	ProgressPatch
}

type RecomputeResult struct {
	Certifications []model.UserCertification `json:"certifications"`
	Issued         []string                  `json:"issued,omitempty"`
	Failures       []SideEffectFailure       `json:"failures,omitempty"`
}

type ProgressUpdateResult struct {
	Progress       *model.UserProgress       `json:"progress"`
	Certifications []model.UserCertification `json:"certifications"`
	SideEffects    []SideEffectFailure       `json:"sideEffects,omitempty"`
}

type ProgressFilter struct {
	Level   model.CourseLevel
	College model.College
	Status  model.ProgressStatus
}

type UserProgressView struct {
	model.UserProgress
	Requirement *model.MVKRequirement `json:"requirement,omitempty"`
}

type CertificationSnapshot struct {
	CertificationID              string            `json:"certificationId"`
	Title                        string            `json:"title"`
	Level                        model.CourseLevel `json:"level"`
	College                      model.College     `json:"college"`
	CompletionPercentage         int               `json:"completionPercentage"`
	RequiredCompletionPercentage int               `json:"requiredCompletionPercentage"`
	IsCompleted                  bool              `json:"isCompleted"`
	CertificateNumber            *string           `json:"certificateNumber,omitempty"`
}

type ProgressSummary struct {
	TotalRequirements int                     `json:"totalRequirements"`
	Completed         int                     `json:"completed"`
	InProgress        int                     `json:"inProgress"`
	NotStarted        int                     `json:"notStarted"`
	OverallProgress   int                     `json:"overallProgress"`
	Certifications    []CertificationSnapshot `json:"certifications"`
}

// 要求

func (s *MVKService) buildRequirement(req RequirementRequest, dst *model.MVKRequirement) error {
	if err := validateStruct(req); err != nil {
		return err
	}
	level := model.CourseLevel(req.Level)
	if !model.ValidCourseLevel(level) {
		return util.InvalidArgument("invalid level: %s", req.Level)
	}
	college := model.College(req.College)
	if !model.ValidCollege(college) {
		return util.InvalidArgument("invalid college: %s", req.College)
	}
	if err := requireID(req.ItemID, "item ID"); err != nil {
		return err
	}

	t := model.RequirementType(req.Type)
	ok, err := s.resolvers[t](req.ItemID)
	if err != nil {
		return err
	}
	if !ok {
		return util.NotFound("%s with ID %s not found", t, req.ItemID)
	}

	dst.Title = req.Title
	dst.Description = req.Description
	dst.Level = level
	dst.College = college
	dst.Type = t
	dst.ItemID = req.ItemID
	dst.IsRequired = boolOr(req.IsRequired, true)
	dst.SortOrder = intOr(req.Order, 1)
	dst.MinScore = intOr(req.MinScore, 0)
	return nil
}

func (s *MVKService) CreateRequirement(req RequirementRequest) (*model.MVKRequirement, error) {
	r := &model.MVKRequirement{}
	if err := s.buildRequirement(req, r); err != nil {
		return nil, err
	}
	if err := s.MVKRepo.CreateRequirement(r); err != nil {
		return nil, err
	}
	return r, nil
}

func (s *MVKService) GetRequirement(id string) (*model.MVKRequirement, error) {
	if err := requireID(id, "requirement ID"); err != nil {
		return nil, err
	}
	r, err := s.MVKRepo.FindRequirementByID(id)
	if err != nil {
		return nil, notFoundOr(err, "requirement with ID %s not found", id)
	}
	return r, nil
}

func (s *MVKService) UpdateRequirement(id string, req RequirementRequest) (*model.MVKRequirement, error) {
	r, err := s.GetRequirement(id)
	if err != nil {
		return nil, err
	}
	if err := s.buildRequirement(req, r); err != nil {
		return nil, err
	}
	if err := s.MVKRepo.SaveRequirement(r); err != nil {
		return nil, err
	}
	return r, nil
}

func (s *MVKService) DeleteRequirement(id string) error {
	if _, err := s.GetRequirement(id); err != nil {
		return err
	}
	return s.MVKRepo.DeleteRequirement(id)
}

func (s *MVKService) ListRequirements(f repository.RequirementFilter) ([]model.MVKRequirement, error) {
	return s.MVKRepo.ListRequirements(f)
}

// 认证

func (s *MVKService) CreateCertification(req CertificationRequest) (*model.MVKCertification, error) {
	if err := validateStruct(req); err != nil {
		return nil, err
	}
	level := model.CourseLevel(req.Level)
	if !model.ValidCourseLevel(level) {
		return nil, util.InvalidArgument("invalid level: %s", req.Level)
	}
	college := model.College(req.College)
	if !model.ValidCollege(college) {
		return nil, util.InvalidArgument("invalid college: %s", req.College)
	}

	ids := dedupe(req.Requirements)
	for _, id := range ids {
		if !model.IsValidID(id) {
			return nil, util.InvalidArgument("invalid requirement ID: %s", id)
		}
	}
	found, err := s.MVKRepo.FindRequirementsByIDs(ids)
	if err != nil {
		return nil, err
	}
	if len(found) != len(ids) {
		return nil, util.InvalidArgument("one or more requirement IDs are invalid")
	}

	cert := &model.MVKCertification{
		Title:                        req.Title,
		Description:                  req.Description,
		Level:                        level,
		College:                      college,
		RequiredCompletionPercentage: intOr(req.RequiredCompletionPercentage, 100),
		IsActive:                     boolOr(req.IsActive, true),
	}
	if err := s.MVKRepo.CreateCertification(cert, ids); err != nil {
		return nil, err
	}
	return cert, nil
}

func (s *MVKService) GetCertification(id string, includeRequirements bool) (*model.MVKCertification, error) {
	if err := requireID(id, "certification ID"); err != nil {
		return nil, err
	}
	cert, err := s.MVKRepo.FindCertificationByID(id)
	if err != nil {
		return nil, notFoundOr(err, "certification with ID %s not found", id)
	}
	if includeRequirements {
		reqs, err := s.MVKRepo.FindCertificationRequirements(id)
		if err != nil {
			return nil, err
		}
		cert.Requirements = reqs
	}
	return cert, nil
}

func (s *MVKService) ListCertifications(f repository.CertificationFilter) ([]model.MVKCertification, error) {
	return s.MVKRepo.ListCertifications(f)
}

// 进度

// UpdateUserProgress 写入进度后必然重算该用户的认证汇总
func (s *MVKService) UpdateUserProgress(userID, requirementID string, patch ProgressPatch) (*ProgressUpdateResult, error) {
	if err := validateStruct(patch); err != nil {
		return nil, err
	}
	if err := requireID(requirementID, "requirement ID"); err != nil {
		return nil, err
	}
	if err := s.UserService.ensureUser(userID); err != nil {
		return nil, err
	}
	if _, err := s.GetRequirement(requirementID); err != nil {
		return nil, err
	}

	p, err := s.ProgressRepo.FindProgress(userID, requirementID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		p = &model.UserProgress{
			UserID:        userID,
			RequirementID: requirementID,
			Status:        model.ProgressNotStarted,
		}
	} else if err != nil {
		return nil, err
	}

	applyProgressPatch(p, patch, time.Now())

	if err := s.ProgressRepo.SaveProgress(p); err != nil {
		return nil, err
	}

	rec, err := s.RecomputeCertifications(userID)
	if err != nil {
		return nil, err
	}
	return &ProgressUpdateResult{
		Progress:       p,
		Certifications: rec.Certifications,
		SideEffects:    rec.Failures,
	}, nil
}

func applyProgressPatch(p *model.UserProgress, patch ProgressPatch, now time.Time) {
	if patch.Status != nil {
		p.Status = model.ProgressStatus(*patch.Status)
		switch p.Status {
		case model.ProgressInProgress:
			stamp(&p.StartedAt, now)
		case model.ProgressCompleted:
			stamp(&p.CompletedAt, now)
			p.Progress = 100
		}
	}

	if patch.Progress != nil {
		v := *patch.Progress
		switch {
		case v == 0:
			p.Status = model.ProgressNotStarted
		case v < 100:
			p.Status = model.ProgressInProgress
			stamp(&p.StartedAt, now)
		default:
			v = 100
			p.Status = model.ProgressCompleted
			stamp(&p.CompletedAt, now)
		}
		p.Progress = v
	}

	if patch.Score != nil {
		p.Score = *patch.Score
	}
	if patch.TimeSpentMinutes != nil {
		p.TimeSpentMinutes = *patch.TimeSpentMinutes
	}
}

func stamp(t **time.Time, now time.Time) {
	if *t == nil {
		ts := now
		*t = &ts
	}
}

func completionPercentage(requirementIDs []string, byReq map[string]*model.UserProgress) int {
	if len(requirementIDs) == 0 {
		return 0
	}
	sum := 0
	for _, id := range requirementIDs {
		sum += byReq[id].Percentage()
	}
	return int(math.Round(float64(sum) / float64(len(requirementIDs))))
}

func (s *MVKService) progressIndex(userID string, requirementIDs []string) (map[string]*model.UserProgress, error) {
	rows, err := s.ProgressRepo.FindProgressForRequirements(userID, requirementIDs)
	if err != nil {
		return nil, err
	}
	byReq := make(map[string]*model.UserProgress, len(rows))
	for i := range rows {
		byReq[rows[i].RequirementID] = &rows[i]
	}
	return byReq, nil
}

// RecomputeCertifications 对所有启用的认证重算完成度。输入不变时不写库
func (s *MVKService) RecomputeCertifications(userID string) (*RecomputeResult, error) {
	certs, err := s.MVKRepo.ListCertifications(repository.CertificationFilter{IsActive: boolPtr(true)})
	if err != nil {
		return nil, err
	}

	result := &RecomputeResult{Certifications: make([]model.UserCertification, 0, len(certs))}
	for i := range certs {
		cert := &certs[i]
		byReq, err := s.progressIndex(userID, cert.RequirementIDs)
		if err != nil {
			return nil, err
		}
		pct := completionPercentage(cert.RequirementIDs, byReq)
		completed := pct >= cert.RequiredCompletionPercentage

		uc, err := s.ProgressRepo.FindUserCertification(userID, cert.ID)
		isNew := false
		if errors.Is(err, gorm.ErrRecordNotFound) {
			uc = &model.UserCertification{UserID: userID, CertificationID: cert.ID}
			isNew = true
		} else if err != nil {
			return nil, err
		}

		wasCompleted := uc.IsCompleted
		if !isNew && uc.CompletionPercentage == pct && wasCompleted == completed {
			result.Certifications = append(result.Certifications, *uc)
			continue
		}

		uc.CompletionPercentage = pct
		issued := false
		switch {
		case completed && !wasCompleted:
			now := time.Now()
			expires := now.AddDate(certificateValidity, 0, 0)
			uc.IsCompleted = true
			uc.CompletedAt = &now
			uc.ExpiresAt = &expires
			uc.IsExpired = false
			if uc.CertificateNumber == nil {
				number, err := s.newCertificateNumber()
				if err != nil {
					return nil, err
				}
				uc.CertificateNumber = &number
				issued = true
			}
		case !completed && wasCompleted:
			// 证书编号保留，不回收
			uc.IsCompleted = false
			uc.CompletedAt = nil
		}

		if err := s.ProgressRepo.SaveUserCertification(uc); err != nil {
			return nil, err
		}
		result.Certifications = append(result.Certifications, *uc)

		if issued {
			s.onCertificateIssued(cert, uc, result)
		}
	}
	return result, nil
}

func (s *MVKService) onCertificateIssued(cert *model.MVKCertification, uc *model.UserCertification, result *RecomputeResult) {
	result.Issued = append(result.Issued, *uc.CertificateNumber)
	monitoring.CertificatesIssued.Inc()
	logger.Log.Info("Certificate issued",
		zap.String("userId", uc.UserID),
		zap.String("certificationId", cert.ID),
		zap.String("certificateNumber", *uc.CertificateNumber))

	if s.Listener == nil {
		return
	}
	f := runSideEffect(StepCertificationListener, cert.ID, func() error {
		return s.Listener.CertificationCompleted(uc.UserID, cert, uc)
	})
	result.Failures = appendFailure(result.Failures, f)
}

func (s *MVKService) newCertificateNumber() (string, error) {
	for i := 0; i < certificateAttempts; i++ {
		token := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:8])
		number := certificatePrefix + token
		exists, err := s.ProgressRepo.CertificateNumberExists(number)
		if err != nil {
			return "", err
		}
		if !exists {
			return number, nil
		}
	}
	return "", errors.New("could not allocate a unique certificate number")
}

// RecordItemCompletion 课程或测验完成后把所有指向它的要求记为完成，
// 分数写入进度行。minScore 只作为要求的展示信息，不参与判定
func (s *MVKService) RecordItemCompletion(userID string, t model.RequirementType, itemID string, score int) ([]SideEffectFailure, error) {
	reqs, err := s.MVKRepo.FindRequirementsByTarget(t, itemID)
	if err != nil {
		return nil, err
	}

	var failures []SideEffectFailure
	for _, req := range reqs {
		var nested []SideEffectFailure
		f := runSideEffect(StepMVKProgress, req.ID, func() error {
			res, err := s.UpdateUserProgress(userID, req.ID, ProgressPatch{
				Status:   strPtr(string(model.ProgressCompleted)),
				Progress: intPtr(100),
				Score:    &score,
			})
			if err != nil {
				return err
			}
			nested = res.SideEffects
			return nil
		})
		failures = appendFailure(failures, f)
		failures = append(failures, nested...)
	}
	return failures, nil
}

// GetUserProgress 返回用户的进度行，附带要求详情
func (s *MVKService) GetUserProgress(userID string, f ProgressFilter) ([]UserProgressView, error) {
	if err := requireID(userID, "user ID"); err != nil {
		return nil, err
	}
	rows, err := s.ProgressRepo.FindProgressByUser(userID)
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(rows))
	for _, r := range rows {
		ids = append(ids, r.RequirementID)
	}
	reqs, err := s.MVKRepo.FindRequirementsByIDs(ids)
	if err != nil {
		return nil, err
	}
	byID := make(map[string]*model.MVKRequirement, len(reqs))
	for i := range reqs {
		byID[reqs[i].ID] = &reqs[i]
	}

	views := make([]UserProgressView, 0, len(rows))
	for _, r := range rows {
		req := byID[r.RequirementID]
		if f.Status != "" && r.Status != f.Status {
			continue
		}
		if f.Level != "" && (req == nil || req.Level != f.Level) {
			continue
		}
		if f.College != "" && (req == nil || req.College != f.College) {
			continue
		}
		views = append(views, UserProgressView{UserProgress: r, Requirement: req})
	}
	return views, nil
}

func (s *MVKService) GetUserCertifications(userID string) ([]model.UserCertification, error) {
	if err := requireID(userID, "user ID"); err != nil {
		return nil, err
	}
	return s.ProgressRepo.FindUserCertifications(userID)
}

// ProgressSummary 汇总所有启用认证涉及的要求（按ID去重）
func (s *MVKService) ProgressSummary(userID string) (*ProgressSummary, error) {
	if err := s.UserService.ensureUser(userID); err != nil {
		return nil, err
	}
	certs, err := s.MVKRepo.ListCertifications(repository.CertificationFilter{IsActive: boolPtr(true)})
	if err != nil {
		return nil, err
	}

	var all []string
	for _, c := range certs {
		all = append(all, c.RequirementIDs...)
	}
	all = dedupe(all)

	byReq, err := s.progressIndex(userID, all)
	if err != nil {
		return nil, err
	}

	summary := &ProgressSummary{
		TotalRequirements: len(all),
		OverallProgress:   completionPercentage(all, byReq),
		Certifications:    make([]CertificationSnapshot, 0, len(certs)),
	}
	for _, id := range all {
		switch p := byReq[id]; {
		case p == nil || p.Status == model.ProgressNotStarted:
			summary.NotStarted++
		case p.Status == model.ProgressCompleted:
			summary.Completed++
		default:
			summary.InProgress++
		}
	}

	for _, c := range certs {
		snap := CertificationSnapshot{
			CertificationID:              c.ID,
			Title:                        c.Title,
			Level:                        c.Level,
			College:                      c.College,
			RequiredCompletionPercentage: c.RequiredCompletionPercentage,
		}
		uc, err := s.ProgressRepo.FindUserCertification(userID, c.ID)
		switch {
		case err == nil:
			snap.CompletionPercentage = uc.CompletionPercentage
			snap.IsCompleted = uc.IsCompleted
			snap.CertificateNumber = uc.CertificateNumber
		case errors.Is(err, gorm.ErrRecordNotFound):
			snap.CompletionPercentage = completionPercentage(c.RequirementIDs, byReq)
			snap.IsCompleted = snap.CompletionPercentage >= c.RequiredCompletionPercentage
		default:
			return nil, err
		}
		summary.Certifications = append(summary.Certifications, snap)
	}
	return summary, nil
}

func boolPtr(b bool) *bool { return &b }

func intPtr(i int) *int { return &i }

func strPtr(s string) *string { return &s }
