package shared

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

var flexDateLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	"2006-01-02",
	"02.01.2006",
}

// FlexDate 兼容多种日期格式的 JSON 字段，空串与 null 视为未填写
// Set 标记请求体里出现过该字段，用于区分未传与显式清空
type FlexDate struct {
	Time  *time.Time
	Valid bool
	Set   bool
}

// UnmarshalJSON 解析日期
func (d *FlexDate) UnmarshalJSON(b []byte) error {
	d.Time = nil
	d.Valid = false
	d.Set = true
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		return nil
	}
	var raw string
	if err := json.Unmarshal(b, &raw); err != nil {
		return fmt.Errorf("date must be a string: %w", err)
	}
	parsed, err := ParseFlexDate(raw)
	if err != nil {
		return err
	}
	d.Time = parsed
	d.Valid = parsed != nil
	return nil
}

// Ptr 返回时间指针
func (d FlexDate) Ptr() *time.Time {
	return d.Time
}

// ParseFlexDate 按支持的格式解析日期字符串
func ParseFlexDate(raw string) (*time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	for _, layout := range flexDateLayouts {
		if t, err := time.ParseInLocation(layout, raw, time.Local); err == nil {
			return &t, nil
		}
	}
	return nil, fmt.Errorf("invalid date %q", raw)
}

// FlexUint 兼容数字与数字字符串的 ID 字段
type FlexUint uint

// UnmarshalJSON 解析 ID
func (u *FlexUint) UnmarshalJSON(b []byte) error {
	*u = 0
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		return nil
	}
	text := strings.Trim(strings.TrimSpace(string(b)), `"`)
	if text == "" {
		return nil
	}
	value, err := strconv.ParseUint(text, 10, 64)
	if err != nil {
		return fmt.Errorf("invalid id %q", text)
	}
	*u = FlexUint(value)
	return nil
}

// Uint 转为 uint
func (u FlexUint) Uint() uint {
	return uint(u)
}

// OptionalID 0 视为未填写
func OptionalID(u *FlexUint) *uint {
	if u == nil || *u == 0 {
		return nil
	}
	value := uint(*u)
	return &value
}

// Cleared 字段出现且为 null 或空串
func (d FlexDate) Cleared() bool {
	return d.Set && d.Time == nil
}

// NullableID 可清空的 ID 字段：未传、null/0（清空）、具体 ID 三种状态
type NullableID struct {
	Set   bool
	Value uint
}

// UnmarshalJSON 解析 ID，null 也会标记 Set
func (n *NullableID) UnmarshalJSON(b []byte) error {
	var id FlexUint
	if err := id.UnmarshalJSON(b); err != nil {
		return err
	}
	n.Set = true
	n.Value = id.Uint()
	return nil
}

// Optional 0 视为未填写
func (n NullableID) Optional() *uint {
	if !n.Set || n.Value == 0 {
		return nil
	}
	value := n.Value
	return &value
}

// Patch 未传返回 nil；传了则返回指向值的指针，0 表示清空
func (n NullableID) Patch() *uint {
	if !n.Set {
		return nil
	}
	value := n.Value
	return &value
}
