package response

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// RequestIDKey gin 上下文中的请求 ID
const RequestIDKey = "request_id"

// Response 统一响应结构
type Response struct {
	StatusCode int         `json:"status_code"` // 业务状态码
	Msg        string      `json:"msg"`
	Data       interface{} `json:"data"`
}

// PageResponse 分页响应结构
type PageResponse struct {
	StatusCode int         `json:"status_code"`
	Msg        string      `json:"msg"`
	Data       interface{} `json:"data"`
	Pagination Pagination  `json:"pagination"`
}

// Pagination 分页信息
type Pagination struct {
	Page      int   `json:"page"`
	PageSize  int   `json:"page_size"`
	Total     int64 `json:"total"`
	TotalPage int64 `json:"total_page"`
}

// NewPagination 按总数计算页数
func NewPagination(page, pageSize int, total int64) Pagination {
	p := Pagination{Page: page, PageSize: pageSize, Total: total}
	if pageSize > 0 {
		p.TotalPage = (total + int64(pageSize) - 1) / int64(pageSize)
	}
	return p
}

// Success 成功响应
func Success(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, Response{StatusCode: CodeOK, Msg: "success", Data: data})
}

// SuccessWithPage 分页成功响应；空列表输出 [] 而不是 null
func SuccessWithPage(c *gin.Context, data interface{}, pagination Pagination) {
	if data == nil {
		data = []interface{}{}
	}
	c.JSON(http.StatusOK, PageResponse{
		StatusCode: CodeOK,
		Msg:        "success",
		Data:       data,
		Pagination: pagination,
	})
}

// Error 错误响应
func Error(c *gin.Context, statusCode int, msg string) {
	ErrorWithData(c, statusCode, msg, nil)
}

// ErrorWithData 错误响应（带数据），data 中补充 request_id
func ErrorWithData(c *gin.Context, statusCode int, msg string, data interface{}) {
	c.JSON(http.StatusOK, Response{
		StatusCode: statusCode,
		Msg:        msg,
		Data:       withRequestID(c, data),
	})
}

// Conflict 409 响应，data 携带阻塞引用
func Conflict(c *gin.Context, msg string, data interface{}) {
	ErrorWithData(c, CodeConflict, msg, data)
}

func withRequestID(c *gin.Context, data interface{}) interface{} {
	requestID := ""
	if c != nil {
		requestID = c.GetString(RequestIDKey)
	}
	if requestID == "" {
		return data
	}
	switch v := data.(type) {
	case nil:
		return gin.H{RequestIDKey: requestID}
	case gin.H:
		if _, ok := v[RequestIDKey]; !ok {
			v[RequestIDKey] = requestID
		}
		return v
	default:
		return gin.H{RequestIDKey: requestID, "detail": data}
	}
}
