package repository

import (
	"strings"

	"gorm.io/gorm"
)

// caseInsensitiveLike postgres 的 LIKE 区分大小写，改用 ILIKE；其它方言（sqlite）LIKE 本身对 ASCII 不敏感
func caseInsensitiveLike(db *gorm.DB) string {
	if db == nil || db.Dialector == nil {
		return "LIKE"
	}
	switch strings.ToLower(db.Dialector.Name()) {
	case "postgres", "postgresql":
		return "ILIKE"
	}
	return "LIKE"
}

// likeAnyColumn 生成 "a LIKE ? OR b LIKE ?" 及对应参数，空白列名被忽略
func likeAnyColumn(operator, pattern string, columns []string) (string, []interface{}) {
	parts := make([]string, 0, len(columns))
	args := make([]interface{}, 0, len(columns))
	for _, column := range columns {
		if column = strings.TrimSpace(column); column != "" {
			parts = append(parts, column+" "+operator+" ?")
			args = append(args, pattern)
		}
	}
	return strings.Join(parts, " OR "), args
}
