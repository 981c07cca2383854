package service

import (
	"ace_lms_backend/internal/model"
	"ace_lms_backend/internal/util"
	"errors"

	"github.com/go-playground/validator/v10"
	"gorm.io/gorm"
)

// validate 与 gin 共用 binding 标签，服务层调用（种子数据、测试、内部联动）同样会校验
var validate = func() *validator.Validate {
	v := validator.New()
	v.SetTagName("binding")
	return v
}()

func validateStruct(s interface{}) error {
	if err := validate.Struct(s); err != nil {
		return util.InvalidArgument("%s", err.Error())
	}
	return nil
}

func requireID(id, name string) error {
	if !model.IsValidID(id) {
		return util.InvalidArgument("invalid %s", name)
	}
	return nil
}

// notFoundOr 将 gorm.ErrRecordNotFound 转为业务 NotFound，其余错误原样返回
func notFoundOr(err error, format string, args ...interface{}) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return util.NotFound(format, args...)
	}
	return err
}

func duplicateOr(err error, format string, args ...interface{}) error {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return util.AlreadyExists(format, args...)
	}
	return err
}

func intOr(p *int, def int) int {
	if p == nil {
		return def
	}
	return *p
}

func boolOr(p *bool, def bool) bool {
	if p == nil {
		return def
	}
	return *p
}
