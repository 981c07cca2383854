package service

import (
	"ace_lms_backend/internal/config"
	"ace_lms_backend/internal/model"
	"ace_lms_backend/internal/repository"
	"ace_lms_backend/internal/util"
	"errors"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

type AuthService struct {
	UserRepo *repository.UserRepository
	Cfg      *config.Config
}

func NewAuthService(userRepo *repository.UserRepository, cfg *config.Config) *AuthService {
	return &AuthService{
		UserRepo: userRepo,
		Cfg:      cfg,
	}
}

type RegisterRequest struct {
	Name     string `json:"name" binding:"required,max=100"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=8"`
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type LoginResponse struct {
	Token string      `json:"token"`
	User  *model.User `json:"user"`
}

// Register 公开注册只创建学员账号
func (s *AuthService) Register(req RegisterRequest) (*model.User, error) {
	return s.createUser(req, model.Learner)
}

func (s *AuthService) createUser(req RegisterRequest, role model.UserRole) (*model.User, error) {
	if err := validateStruct(req); err != nil {
		return nil, err
	}
	email := strings.ToLower(strings.TrimSpace(req.Email))

	_, err := s.UserRepo.FindByEmail(email)
	if err == nil {
		return nil, util.ErrEmailRegistered
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	user := &model.User{
		Name:     req.Name,
		Email:    email,
		Password: string(hashedPassword),
		Role:     role,
	}
	if err := s.UserRepo.Create(user); err != nil {
		return nil, duplicateOr(err, "email already registered")
	}
	return user, nil
}

func (s *AuthService) Login(req LoginRequest) (*LoginResponse, error) {
	if err := validateStruct(req); err != nil {
		return nil, err
	}
	user, err := s.UserRepo.FindByEmail(strings.ToLower(strings.TrimSpace(req.Email)))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, util.ErrInvalidCredentials
		}
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)); err != nil {
		return nil, util.ErrInvalidCredentials
	}
	if user.Disabled {
		return nil, util.ErrAccountDisabled
	}

	token, err := util.GenerateJWT(user, s.Cfg.JWT.Secret, s.Cfg.JWT.ExpireTime)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	_ = s.UserRepo.UpdateLastLogin(user.ID, now)
	user.LastLogin = &now

	return &LoginResponse{Token: token, User: user}, nil
}

// EnsureAdmin 根据配置创建初始管理员，已存在时跳过
func (s *AuthService) EnsureAdmin(email, password string) (bool, error) {
	if email == "" || password == "" {
		return false, nil
	}
	_, err := s.createUser(RegisterRequest{Name: "Administrator", Email: email, Password: password}, model.Admin)
	if errors.Is(err, util.ErrAlreadyExists) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}
