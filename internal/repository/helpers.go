package repository

import (
	"errors"
	"strings"

	"gorm.io/gorm"
)

// findByID 根据主键读取，不存在时返回 nil, nil
func findByID[T any](db *gorm.DB, id uint, preloads ...string) (*T, error) {
	var item T
	query := db
	for _, preload := range preloads {
		query = query.Preload(preload)
	}
	if err := query.First(&item, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &item, nil
}

// applyLikeSearch 对多个列做 OR LIKE 过滤
func applyLikeSearch(query *gorm.DB, search string, columns ...string) *gorm.DB {
	search = strings.TrimSpace(search)
	if search == "" || len(columns) == 0 {
		return query
	}
	condition, args := likeAnyColumn(caseInsensitiveLike(query), "%"+search+"%", columns)
	if len(args) == 0 {
		return query
	}
	return query.Where(condition, args...)
}

// maxListPageSize 单页上限
const maxListPageSize = 500

// applyPagination 分页；pageSize <= 0 表示不分页
func applyPagination(query *gorm.DB, page, pageSize int) *gorm.DB {
	if query == nil || pageSize <= 0 {
		return query
	}
	if pageSize > maxListPageSize {
		pageSize = maxListPageSize
	}
	if page < 1 {
		page = 1
	}
	return query.Limit(pageSize).Offset((page - 1) * pageSize)
}
