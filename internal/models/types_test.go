package models

import (
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
)

func TestParseDecimal(t *testing.T) {
	cases := map[string]string{
		"":         "0",
		"20":       "20",
		"20,5":     "20.5",
		" 1.23456": "1.235",
	}
	for raw, want := range cases {
		got, err := ParseDecimal(raw)
		if err != nil {
			t.Fatalf("ParseDecimal(%q) error: %v", raw, err)
		}
		if got.String() != want {
			t.Fatalf("ParseDecimal(%q) want %s got %s", raw, want, got.String())
		}
	}
	if _, err := ParseDecimal("abc"); err == nil {
		t.Fatalf("expected error for invalid decimal")
	}
}

func TestDecimalJSON(t *testing.T) {
	var payload struct {
		Weight Decimal `json:"weight"`
		Dist   Decimal `json:"dist"`
	}
	if err := json.Unmarshal([]byte(`{"weight":"12,5","dist":340.25}`), &payload); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}
	if payload.Weight.String() != "12.5" || payload.Dist.String() != "340.25" {
		t.Fatalf("unexpected decimals: %s %s", payload.Weight, payload.Dist)
	}
	body, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}
	if string(body) != `{"weight":"12.5","dist":"340.25"}` {
		t.Fatalf("unexpected json: %s", body)
	}
}

func TestRoleNotificationFlags(t *testing.T) {
	role := Role{Permissions: JSON{
		"telegram_notifications": map[string]interface{}{
			"order_created":   true,
			"stage_completed": "true",
			"order_loaded":    false,
		},
	}}
	flags := role.NotificationFlags()
	if !flags["order_created"] || !flags["stage_completed"] || flags["order_loaded"] {
		t.Fatalf("unexpected flags: %+v", flags)
	}
	if len((Role{}).NotificationFlags()) != 0 {
		t.Fatalf("empty role should have no flags")
	}
}

func TestDisplayNames(t *testing.T) {
	if got := VehicleDisplayName("Volvo", "А123ВС77", "АВ1234"); got != "Volvo А123ВС77 + АВ1234" {
		t.Fatalf("unexpected vehicle display: %q", got)
	}
	if got := VehicleDisplayName("", "А123ВС77", " "); got != "А123ВС77" {
		t.Fatalf("unexpected vehicle display: %q", got)
	}
	driver := Driver{LastName: "Иванов", FirstName: "Иван"}
	if driver.FullName() != "Иванов Иван" {
		t.Fatalf("unexpected driver name: %q", driver.FullName())
	}
	customer := Customer{CompanyName: "ООО Ромашка", Nickname: ""}
	if customer.DisplayName() != "ООО Ромашка" {
		t.Fatalf("unexpected customer name: %q", customer.DisplayName())
	}
}

func TestOpenDialectorRejectsUnknownDriver(t *testing.T) {
	if _, err := openDialector("mysql", "x"); err == nil {
		t.Fatalf("expected unsupported driver error")
	}
}

func TestInitDefaultRolesAndAdmin(t *testing.T) {
	dsn := fmt.Sprintf("file:models_init_test_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite failed: %v", err)
	}
	if err := db.AutoMigrate(AllModels()...); err != nil {
		t.Fatalf("auto migrate failed: %v", err)
	}
	DB = db

	if err := InitDefaultRoles(); err != nil {
		t.Fatalf("init roles failed: %v", err)
	}
	if err := InitDefaultRoles(); err != nil {
		t.Fatalf("init roles twice failed: %v", err)
	}
	var count int64
	db.Model(&Role{}).Count(&count)
	if count != int64(len(DefaultRoleSeeds())) {
		t.Fatalf("expected %d roles, got %d", len(DefaultRoleSeeds()), count)
	}

	if err := InitDefaultAdmin("", "secret-pass"); err != nil {
		t.Fatalf("init admin failed: %v", err)
	}
	var admin User
	if err := db.Preload("Role").Where("username = ?", "admin").First(&admin).Error; err != nil {
		t.Fatalf("admin not created: %v", err)
	}
	if admin.Role == nil || admin.Role.Name != "admin" {
		t.Fatalf("admin role not linked: %+v", admin.Role)
	}
	if !admin.Role.NotificationFlags()["order_delivered"] {
		t.Fatalf("admin role should receive all events")
	}
}
