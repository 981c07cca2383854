package service

import (
	"ace_lms_backend/internal/model"
	"ace_lms_backend/internal/repository"
	"ace_lms_backend/internal/util"
)

type UserService struct {
	UserRepo *repository.UserRepository
}

func NewUserService(userRepo *repository.UserRepository) *UserService {
	return &UserService{UserRepo: userRepo}
}

func (s *UserService) UserExists(id string) (bool, error) {
	if err := requireID(id, "user ID"); err != nil {
		return false, err
	}
	return s.UserRepo.Exists(id)
}

// ensureUser 用户必须存在，否则返回 NotFound
func (s *UserService) ensureUser(id string) error {
	ok, err := s.UserExists(id)
	if err != nil {
		return err
	}
	if !ok {
		return util.NotFound("user with ID %s not found", id)
	}
	return nil
}

func (s *UserService) GetUser(id string) (*model.User, error) {
	if err := requireID(id, "user ID"); err != nil {
		return nil, err
	}
	user, err := s.UserRepo.FindByID(id)
	if err != nil {
		return nil, notFoundOr(err, "user with ID %s not found", id)
	}
	return user, nil
}

func (s *UserService) GetBasicUserInfo(id string) (*model.BasicUserInfo, error) {
	user, err := s.GetUser(id)
	if err != nil {
		return nil, err
	}
	return basicInfo(user), nil
}

func basicInfo(u *model.User) *model.BasicUserInfo {
	return &model.BasicUserInfo{ID: u.ID, Name: u.Name, Email: u.Email, Role: u.Role}
}
