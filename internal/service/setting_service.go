package service

import (
	"strings"
	"time"

	"github.com/freightdesk/internal/constants"
	"github.com/freightdesk/internal/models"
	"github.com/freightdesk/internal/repository"
)

// TelegramBotSetting Telegram 机器人配置（全局唯一生效）
type TelegramBotSetting struct {
	BotToken    string     `json:"bot_token"`
	BotUsername string     `json:"bot_username"`
	IsActive    bool       `json:"is_active"`
	UpdatedAt   *time.Time `json:"updated_at,omitempty"`
}

// Configured 是否可用于发送
func (s TelegramBotSetting) Configured() bool {
	return s.IsActive && strings.TrimSpace(s.BotToken) != ""
}

// TelegramBotSettingInput 保存 Telegram 配置参数
type TelegramBotSettingInput struct {
	BotToken    string `json:"bot_token"`
	BotUsername string `json:"bot_username"`
	IsActive    *bool  `json:"is_active"`
}

// SettingService 设置业务服务
type SettingService struct {
	repo repository.SettingRepository
}

// NewSettingService 创建设置服务
func NewSettingService(repo repository.SettingRepository) *SettingService {
	return &SettingService{repo: repo}
}

// GetByKey 获取设置
func (s *SettingService) GetByKey(key string) (models.JSON, error) {
	setting, err := s.repo.GetByKey(key)
	if err != nil {
		return nil, err
	}
	if setting == nil {
		return nil, nil
	}
	return setting.ValueJSON, nil
}

// GetTelegramBotSetting 读取生效的机器人配置（含明文 token，仅内部使用）
func (s *SettingService) GetTelegramBotSetting() (TelegramBotSetting, error) {
	result := TelegramBotSetting{}
	if s == nil || s.repo == nil {
		return result, nil
	}
	setting, err := s.repo.GetByKey(constants.SettingKeyTelegramBot)
	if err != nil {
		return result, err
	}
	if setting == nil {
		return result, nil
	}
	result.BotToken = readSettingString(setting.ValueJSON, "bot_token")
	result.BotUsername = readSettingString(setting.ValueJSON, "bot_username")
	result.IsActive = readSettingBool(setting.ValueJSON, "is_active")
	updatedAt := setting.UpdatedAt
	result.UpdatedAt = &updatedAt
	return result, nil
}

// GetTelegramBotSettingView 读取配置，token 打码
func (s *SettingService) GetTelegramBotSettingView() (TelegramBotSetting, error) {
	setting, err := s.GetTelegramBotSetting()
	if err != nil {
		return setting, err
	}
	setting.BotToken = MaskToken(setting.BotToken)
	return setting, nil
}

// SaveTelegramBotSetting 替换生效配置；token 为空或仍是掩码时保留原值
func (s *SettingService) SaveTelegramBotSetting(input TelegramBotSettingInput) (TelegramBotSetting, error) {
	current, err := s.GetTelegramBotSetting()
	if err != nil {
		return TelegramBotSetting{}, err
	}

	token := strings.TrimSpace(input.BotToken)
	if token == "" || token == MaskToken(current.BotToken) {
		token = current.BotToken
	}
	if token == "" {
		return TelegramBotSetting{}, newValidationError("bot_token", "bot_token required")
	}
	isActive := true
	if input.IsActive != nil {
		isActive = *input.IsActive
	}

	value := models.JSON{
		"bot_token":    token,
		"bot_username": strings.TrimPrefix(strings.TrimSpace(input.BotUsername), "@"),
		"is_active":    isActive,
	}
	if _, err := s.repo.Upsert(constants.SettingKeyTelegramBot, value); err != nil {
		return TelegramBotSetting{}, err
	}
	return s.GetTelegramBotSettingView()
}

// MaskToken 仅保留首尾各 4 位
func MaskToken(token string) string {
	token = strings.TrimSpace(token)
	if token == "" {
		return ""
	}
	if len(token) <= 8 {
		return strings.Repeat("*", len(token))
	}
	return token[:4] + strings.Repeat("*", len(token)-8) + token[len(token)-4:]
}

func readSettingString(value models.JSON, key string) string {
	if value == nil {
		return ""
	}
	raw, ok := value[key]
	if !ok || raw == nil {
		return ""
	}
	if s, ok := raw.(string); ok {
		return strings.TrimSpace(s)
	}
	return ""
}

func readSettingBool(value models.JSON, key string) bool {
	if value == nil {
		return false
	}
	switch v := value[key].(type) {
	case bool:
		return v
	case string:
		return strings.EqualFold(strings.TrimSpace(v), "true")
	case float64:
		return v != 0
	default:
		return false
	}
}
