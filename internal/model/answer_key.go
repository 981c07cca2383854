package model

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strconv"
)

// AnswerKey 标准答案的原始 JSON，以文本列保存。
// 部分驱动会把纯数字答案（如选项下标 1）按数值返回，Scan 需要兼容
type AnswerKey json.RawMessage

func (k AnswerKey) Value() (driver.Value, error) {
	if len(k) == 0 {
		return nil, nil
	}
	return string(k), nil
}

func (k *AnswerKey) Scan(value interface{}) error {
	switch v := value.(type) {
	case nil:
		*k = nil
	case []byte:
		*k = append(AnswerKey(nil), v...)
	case string:
		*k = AnswerKey(v)
	case int64:
		*k = AnswerKey(strconv.FormatInt(v, 10))
	case float64:
		*k = AnswerKey(strconv.FormatFloat(v, 'f', -1, 64))
	case bool:
		*k = AnswerKey(strconv.FormatBool(v))
	default:
		return fmt.Errorf("unsupported answer key value: %T", value)
	}
	return nil
}

func (k AnswerKey) MarshalJSON() ([]byte, error) {
	if len(k) == 0 {
		return []byte("null"), nil
	}
	return []byte(k), nil
}

func (k *AnswerKey) UnmarshalJSON(data []byte) error {
	*k = append((*k)[:0], data...)
	return nil
}
