package i18n

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
)

func TestTFallsBackToDefaultAndKey(t *testing.T) {
	if got := T(LocaleEN, "error.order_not_found"); got != "Order not found" {
		t.Fatalf("unexpected en message: %s", got)
	}
	if got := T("de-DE", "error.order_not_found"); got != "Заказ не найден" {
		t.Fatalf("unknown locale should fall back to ru, got %s", got)
	}
	if got := T(LocaleRU, "error.missing_key"); got != "error.missing_key" {
		t.Fatalf("missing key should echo key, got %s", got)
	}
}

func TestSprintf(t *testing.T) {
	if got := Sprintf(LocaleEN, "error.rate_limited", 12); got != "Too many requests, retry in 12 seconds" {
		t.Fatalf("unexpected formatted message: %s", got)
	}
}

func TestResolveLocale(t *testing.T) {
	gin.SetMode(gin.TestMode)
	cases := []struct {
		name   string
		url    string
		header map[string]string
		want   string
	}{
		{name: "default", url: "/", want: LocaleRU},
		{name: "query", url: "/?lang=en", want: LocaleEN},
		{name: "header", url: "/", header: map[string]string{"X-Locale": "en-GB"}, want: LocaleEN},
		{name: "accept", url: "/", header: map[string]string{"Accept-Language": "en-US,en;q=0.9"}, want: LocaleEN},
		{name: "accept_ru", url: "/", header: map[string]string{"Accept-Language": "ru,en;q=0.5"}, want: LocaleRU},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c, _ := gin.CreateTestContext(httptest.NewRecorder())
			c.Request = httptest.NewRequest(http.MethodGet, tc.url, nil)
			for k, v := range tc.header {
				c.Request.Header.Set(k, v)
			}
			if got := ResolveLocale(c); got != tc.want {
				t.Fatalf("locale want %s got %s", tc.want, got)
			}
		})
	}
}
