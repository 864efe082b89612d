package service

import "unicode"

// PasswordPolicy 后台用户密码规则
type PasswordPolicy struct {
	MinLength     int
	RequireLetter bool
	RequireNumber bool
}

var defaultPasswordPolicy = PasswordPolicy{MinLength: 6}

// WeakPasswordError 未满足的规则，errors.Is(err, ErrWeakPassword) 成立
type WeakPasswordError struct {
	Rule      string // min_length / require_letter / require_number
	MinLength int
}

func (e *WeakPasswordError) Error() string { return "weak password: " + e.Rule }

func (e *WeakPasswordError) Is(target error) bool { return target == ErrWeakPassword }

// Key 对应的 i18n 文案键
func (e *WeakPasswordError) Key() string { return "error.password_" + e.Rule }

// Args 文案参数
func (e *WeakPasswordError) Args() []interface{} {
	if e.Rule == "min_length" {
		return []interface{}{e.MinLength}
	}
	return nil
}

// Check 按长度、字母、数字的顺序检查，返回第一条未满足的规则
func (p PasswordPolicy) Check(password string) error {
	if p.MinLength > 0 && len([]rune(password)) < p.MinLength {
		return &WeakPasswordError{Rule: "min_length", MinLength: p.MinLength}
	}
	var letter, digit bool
	for _, r := range password {
		letter = letter || unicode.IsLetter(r)
		digit = digit || unicode.IsDigit(r)
	}
	if p.RequireLetter && !letter {
		return &WeakPasswordError{Rule: "require_letter"}
	}
	if p.RequireNumber && !digit {
		return &WeakPasswordError{Rule: "require_number"}
	}
	return nil
}
