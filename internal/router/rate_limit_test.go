package router

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
)

func TestKeyByIPAndActor(t *testing.T) {
	gin.SetMode(gin.TestMode)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodPost, "/api/v1/portal", strings.NewReader(`{"action":"create_order"}`))
	c.Request.RemoteAddr = "1.2.3.4:5678"

	if key := KeyByIPAndActor(c); key != "1.2.3.4" {
		t.Fatalf("key without actor want 1.2.3.4 got %s", key)
	}

	c.Request.Header.Set("X-User-Role", " Логист ")
	if key := KeyByIPAndActor(c); key != "логист|1.2.3.4" {
		t.Fatalf("key want логист|1.2.3.4 got %s", key)
	}
}

func TestRateLimitRuleApplies(t *testing.T) {
	rule := RateLimitRule{Methods: []string{http.MethodPost, http.MethodDelete}}
	if !rule.applies("post") {
		t.Fatalf("rule should apply to POST")
	}
	if rule.applies(http.MethodGet) {
		t.Fatalf("rule should not apply to GET")
	}
	if !(RateLimitRule{}).applies(http.MethodGet) {
		t.Fatalf("rule without methods should apply to every method")
	}
}

func TestRateLimitMiddlewareWithoutClient(t *testing.T) {
	gin.SetMode(gin.TestMode)

	r := gin.New()
	r.Use(RateLimitMiddleware(nil, RateLimitRule{WindowSeconds: 60, MaxRequests: 1}, KeyByIP))
	r.POST("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"ok": true})
	})

	for i := 0; i < 3; i++ {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/ping", nil)
		r.ServeHTTP(w, req)
		if w.Code != http.StatusOK {
			t.Fatalf("status want 200 got %d", w.Code)
		}
		if !strings.Contains(w.Body.String(), `"ok":true`) {
			t.Fatalf("expected handler response body, got %s", w.Body.String())
		}
	}
}

func TestRateLimitRuleRetryAfter(t *testing.T) {
	rule := RateLimitRule{WindowSeconds: 60, MaxRequests: 2}
	cases := []struct {
		name  string
		count int64
		ttl   int64
		want  int
	}{
		{name: "under limit", count: 2, ttl: 40, want: 0},
		{name: "over limit uses ttl", count: 3, ttl: 40, want: 40},
		{name: "missing ttl waits full window", count: 3, ttl: -1, want: 60},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := rule.retryAfter(tc.count, tc.ttl); got != tc.want {
				t.Fatalf("retry after want %d got %d", tc.want, got)
			}
		})
	}
	if got := (RateLimitRule{MaxRequests: 1}).retryAfter(5, 0); got != 1 {
		t.Fatalf("zero window should wait at least 1s, got %d", got)
	}
}
