package util

import (
	"strconv"
)

// ParseIntDefault 将字符串转换为整数，解析失败时返回默认值
func ParseIntDefault(s string, def int) int {
	if s == "" {
		return def
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return n
}

// ParseBoolPtr 解析可选布尔查询参数，空串或非法值返回 nil
func ParseBoolPtr(s string) *bool {
	if s == "" {
		return nil
	}
	b, err := strconv.ParseBool(s)
	if err != nil {
		return nil
	}
	return &b
}
