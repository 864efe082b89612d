package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// JSON 通用 JSON 对象列
type JSON map[string]interface{}

// Value 实现 driver.Valuer 接口
func (j JSON) Value() (driver.Value, error) {
	if j == nil {
		return nil, nil
	}
	return json.Marshal(j)
}

// Scan 实现 sql.Scanner 接口
func (j *JSON) Scan(value interface{}) error {
	if value == nil {
		*j = make(JSON)
		return nil
	}
	switch v := value.(type) {
	case []byte:
		return json.Unmarshal(v, j)
	case string:
		return json.Unmarshal([]byte(v), j)
	default:
		return fmt.Errorf("unsupported JSON column type %T", value)
	}
}

// StringArray 字符串数组列，用于附件等列表
type StringArray []string

// Value 实现 driver.Valuer 接口
func (s StringArray) Value() (driver.Value, error) {
	if s == nil {
		return nil, nil
	}
	return json.Marshal(s)
}

// Scan 实现 sql.Scanner 接口
func (s *StringArray) Scan(value interface{}) error {
	if value == nil {
		*s = StringArray{}
		return nil
	}
	switch v := value.(type) {
	case []byte:
		return json.Unmarshal(v, s)
	case string:
		return json.Unmarshal([]byte(v), s)
	default:
		return fmt.Errorf("unsupported StringArray column type %T", value)
	}
}

// Decimal 数值列（重量、里程），保留 3 位小数
type Decimal struct {
	decimal.Decimal
}

// NewDecimal 从 decimal 创建
func NewDecimal(value decimal.Decimal) Decimal {
	return Decimal{Decimal: value.Round(3)}
}

// ParseDecimal 解析字符串，空串视为 0，支持逗号小数点
func ParseDecimal(raw string) (Decimal, error) {
	trimmed := strings.ReplaceAll(strings.TrimSpace(raw), ",", ".")
	if trimmed == "" {
		return Decimal{}, nil
	}
	d, err := decimal.NewFromString(trimmed)
	if err != nil {
		return Decimal{}, err
	}
	return NewDecimal(d), nil
}

// MarshalJSON 输出去掉多余 0 的字符串
func (d Decimal) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.Decimal.Round(3).String())
}

// UnmarshalJSON 解析数值（字符串或数字）
func (d *Decimal) UnmarshalJSON(b []byte) error {
	if len(b) == 0 || string(b) == "null" {
		return nil
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		parsed, err := ParseDecimal(s)
		if err != nil {
			return err
		}
		*d = parsed
		return nil
	}
	var f float64
	if err := json.Unmarshal(b, &f); err != nil {
		return err
	}
	d.Decimal = decimal.NewFromFloat(f).Round(3)
	return nil
}

// Value 用于数据库写入
func (d Decimal) Value() (driver.Value, error) {
	return d.Decimal.Round(3).Value()
}

// Scan 用于数据库读取
func (d *Decimal) Scan(value interface{}) error {
	if value == nil {
		d.Decimal = decimal.Zero
		return nil
	}
	if err := d.Decimal.Scan(value); err != nil {
		return err
	}
	d.Decimal = d.Decimal.Round(3)
	return nil
}

// String 返回文本形式
func (d Decimal) String() string {
	return d.Decimal.Round(3).String()
}
