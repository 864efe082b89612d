package shared

import (
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
)

// ActorHeader 操作人标签请求头
const ActorHeader = "X-User-Role"

// ResolveActor 读取操作人标签：请求体字段优先，其次请求头；为空时由 service 兜底
func ResolveActor(c *gin.Context, bodyValue string) string {
	if actor := strings.TrimSpace(bodyValue); actor != "" {
		return actor
	}
	if c == nil {
		return ""
	}
	return strings.TrimSpace(c.GetHeader(ActorHeader))
}

// QueryUint 读取查询参数中的正整数，缺失时 ok 为 true 且值为 0
func QueryUint(c *gin.Context, key string) (uint, bool) {
	raw := strings.TrimSpace(c.Query(key))
	if raw == "" {
		return 0, true
	}
	value, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return 0, false
	}
	return uint(value), true
}
