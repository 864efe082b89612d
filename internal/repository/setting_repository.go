package repository

import (
	"errors"
	"strings"
	"time"

	"github.com/freightdesk/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// SettingRepository 键值配置（机器人令牌、通知聊天等）
type SettingRepository interface {
	GetByKey(key string) (*models.Setting, error)
	Upsert(key string, value models.JSON) (*models.Setting, error)
}

// GormSettingRepository GORM 实现
type GormSettingRepository struct {
	db *gorm.DB
}

// NewSettingRepository 创建设置仓库
func NewSettingRepository(db *gorm.DB) *GormSettingRepository {
	return &GormSettingRepository{db: db}
}

// GetByKey 键不存在时返回 nil, nil
func (r *GormSettingRepository) GetByKey(key string) (*models.Setting, error) {
	key = strings.TrimSpace(key)
	if key == "" {
		return nil, nil
	}
	var setting models.Setting
	err := r.db.Where(&models.Setting{Key: key}).Take(&setting).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &setting, nil
}

// Upsert 以 key 为冲突列整行覆盖 value
func (r *GormSettingRepository) Upsert(key string, value models.JSON) (*models.Setting, error) {
	key = strings.TrimSpace(key)
	if key == "" {
		return nil, errors.New("setting key is empty")
	}
	if value == nil {
		value = models.JSON{}
	}
	setting := &models.Setting{Key: key, ValueJSON: value, UpdatedAt: time.Now()}
	err := r.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value_json", "updated_at"}),
	}).Create(setting).Error
	if err != nil {
		return nil, err
	}
	return setting, nil
}
