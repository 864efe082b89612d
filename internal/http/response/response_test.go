package response

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
)

func TestErrorAttachesRequestID(t *testing.T) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Set("request_id", "req-1")

	Error(c, CodeNotFound, "Заказ не найден")

	if w.Code != http.StatusOK {
		t.Fatalf("http status want 200 got %d", w.Code)
	}
	var body Response
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body failed: %v", err)
	}
	if body.StatusCode != CodeNotFound {
		t.Fatalf("status code want 404 got %d", body.StatusCode)
	}
	data, ok := body.Data.(map[string]interface{})
	if !ok || data["request_id"] != "req-1" {
		t.Fatalf("request id not attached: %#v", body.Data)
	}
}

func TestConflictKeepsPayload(t *testing.T) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	Conflict(c, "blocked", gin.H{"blockers": []string{"EU01022026-001"}, "total": 4})

	var body struct {
		StatusCode int `json:"status_code"`
		Data       struct {
			Blockers []string `json:"blockers"`
			Total    int      `json:"total"`
		} `json:"data"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body failed: %v", err)
	}
	if body.StatusCode != CodeConflict || body.Data.Total != 4 || len(body.Data.Blockers) != 1 {
		t.Fatalf("unexpected conflict body: %s", w.Body.String())
	}
}

func TestSuccessWithPageEmptyList(t *testing.T) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	SuccessWithPage(c, nil, NewPagination(2, 20, 41))

	var body struct {
		Data       []interface{} `json:"data"`
		Pagination Pagination    `json:"pagination"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body failed: %v", err)
	}
	if body.Data == nil || len(body.Data) != 0 {
		t.Fatalf("data should be empty list: %s", w.Body.String())
	}
	if body.Pagination.TotalPage != 3 || body.Pagination.Page != 2 {
		t.Fatalf("unexpected pagination: %+v", body.Pagination)
	}
}

func TestNewPaginationWithoutPageSize(t *testing.T) {
	if p := NewPagination(1, 0, 10); p.TotalPage != 0 {
		t.Fatalf("total page want 0 got %d", p.TotalPage)
	}
}
